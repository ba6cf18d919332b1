package types

// WifiNetwork is one entry of /setup/scan_results.
type WifiNetwork struct {
	SSID        string `json:"ssid"`
	BSSID       string `json:"bssid,omitempty"`
	SignalLevel int    `json:"signal_level,omitempty"`
	Frequency   int    `json:"frequency,omitempty"`
	WpaAuth     int    `json:"wpa_auth"`
	WpaCipher   int    `json:"wpa_cipher"`
	WpaID       *int   `json:"wpa_id,omitempty"`

	// Raw is the entry exactly as the device reported it, unknown fields included.
	Raw map[string]any `json:"-"`
}

// ConfiguredNetwork is one entry of /setup/configured_networks.
type ConfiguredNetwork struct {
	SSID      string `json:"ssid"`
	WpaAuth   int    `json:"wpa_auth"`
	WpaCipher int    `json:"wpa_cipher"`
	WpaID     int    `json:"wpa_id"`
}

// Defaults used when the scan branch is skipped.
const (
	DefaultWpaAuth   = 7 // PSK
	DefaultWpaCipher = 4 // WPA2
)
