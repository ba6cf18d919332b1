package emulator

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/moyoez/castanet/types"
)

// Fixture describes the device being emulated.
type Fixture struct {
	Name       string
	Networks   []types.WifiNetwork
	Configured []types.ConfiguredNetwork
	// ScanDelay is how long after scan_wifi the results stay empty.
	ScanDelay time.Duration
}

type fixtureFile struct {
	Name      string           `yaml:"name"`
	ScanDelay string           `yaml:"scan_delay"`
	Networks  []fixtureNetwork `yaml:"networks"`
}

type fixtureNetwork struct {
	SSID        string `yaml:"ssid"`
	BSSID       string `yaml:"bssid"`
	SignalLevel int    `yaml:"signal_level"`
	Frequency   int    `yaml:"frequency"`
	WpaAuth     int    `yaml:"wpa_auth"`
	WpaCipher   int    `yaml:"wpa_cipher"`
	Saved       bool   `yaml:"saved"`
}

// DefaultFixture is a device in setup mode with a few networks in range.
func DefaultFixture() Fixture {
	return Fixture{
		Name: "Chromecast0000",
		Networks: []types.WifiNetwork{
			{SSID: "Neighbour", BSSID: "aa:bb:cc:00:00:01", SignalLevel: -71, Frequency: 2437, WpaAuth: 7, WpaCipher: 4},
			{SSID: "Home", BSSID: "aa:bb:cc:00:00:02", SignalLevel: -48, Frequency: 5180, WpaAuth: 7, WpaCipher: 4},
			{SSID: "Guest", BSSID: "aa:bb:cc:00:00:03", SignalLevel: -60, Frequency: 2412, WpaAuth: 1, WpaCipher: 1},
		},
	}
}

// ParseFixture decodes a YAML fixture.
func ParseFixture(data []byte) (Fixture, error) {
	var file fixtureFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return Fixture{}, fmt.Errorf("parse fixture: %w", err)
	}
	fixture := Fixture{Name: file.Name}
	if file.ScanDelay != "" {
		delay, err := time.ParseDuration(file.ScanDelay)
		if err != nil {
			return Fixture{}, fmt.Errorf("parse fixture scan_delay: %w", err)
		}
		fixture.ScanDelay = delay
	}
	for _, n := range file.Networks {
		fixture.Networks = append(fixture.Networks, types.WifiNetwork{
			SSID:        n.SSID,
			BSSID:       n.BSSID,
			SignalLevel: n.SignalLevel,
			Frequency:   n.Frequency,
			WpaAuth:     n.WpaAuth,
			WpaCipher:   n.WpaCipher,
		})
		if n.Saved {
			fixture.Configured = append(fixture.Configured, types.ConfiguredNetwork{
				SSID:      n.SSID,
				WpaAuth:   n.WpaAuth,
				WpaCipher: n.WpaCipher,
				WpaID:     len(fixture.Configured),
			})
		}
	}
	return fixture, nil
}

// LoadFixture reads a YAML fixture from path.
func LoadFixture(path string) (Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Fixture{}, fmt.Errorf("read fixture: %w", err)
	}
	return ParseFixture(data)
}
