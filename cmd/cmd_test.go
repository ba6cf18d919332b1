package cmd

import (
	"bytes"
	"context"
	"fmt"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moyoez/castanet/discover"
	"github.com/moyoez/castanet/emulator"
	"github.com/moyoez/castanet/provision"
	"github.com/moyoez/castanet/tool"
	"github.com/moyoez/castanet/types"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	err := rootCmd.ExecuteContext(ctx)
	return out.String(), err
}

func startEmulator(t *testing.T) (*emulator.Server, string) {
	t.Helper()
	fixture := emulator.DefaultFixture()
	fixture.Configured = []types.ConfiguredNetwork{{SSID: "Office", WpaAuth: 7, WpaCipher: 4, WpaID: 3}}
	emu, err := emulator.New(fixture)
	require.NoError(t, err)
	srv := httptest.NewTLSServer(emu.Handler())
	t.Cleanup(srv.Close)
	u, err := url.Parse(srv.URL)
	require.NoError(t, err)
	return emu, u.Host
}

func TestCommandsAgainstEmulator(t *testing.T) {
	emu, host := startEmulator(t)
	device := []string{"--device", host, "--insecure", "--log", "none"}

	t.Run("connect", func(t *testing.T) {
		out, err := execute(t, append([]string{"connect", "--ssid", "Home", "--password", "hunter22", "--scan-wait", "0s"}, device...)...)
		require.NoError(t, err)
		assert.Contains(t, out, `"ssid": "Home"`)
		assert.Contains(t, out, "Connection commands sent successfully!")
		assert.Equal(t, []string{"hunter22"}, emu.Passwords())
	})

	t.Run("info", func(t *testing.T) {
		out, err := execute(t, append([]string{"info"}, device...)...)
		require.NoError(t, err)
		assert.Contains(t, out, `"name": "Chromecast0000"`)
		assert.Contains(t, out, `"public_key"`)
	})

	t.Run("networks", func(t *testing.T) {
		out, err := execute(t, append([]string{"networks"}, device...)...)
		require.NoError(t, err)
		assert.Contains(t, out, `"ssid": "Office"`)
	})

	t.Run("rename", func(t *testing.T) {
		out, err := execute(t, append([]string{"rename", "Den"}, device...)...)
		require.NoError(t, err)
		assert.Contains(t, out, "Renamed Chromecast to 'Den'. Response: 200")
		assert.Equal(t, "Den", emu.Info().Name)
	})

	t.Run("forget", func(t *testing.T) {
		out, err := execute(t, append([]string{"forget", "3"}, device...)...)
		require.NoError(t, err)
		assert.Contains(t, out, "Forgot network 3. Response: 200")
		for _, n := range emu.Configured() {
			assert.NotEqual(t, 3, n.WpaID)
		}
	})

	t.Run("forgetNotANumber", func(t *testing.T) {
		_, err := execute(t, append([]string{"forget", "three"}, device...)...)
		assert.ErrorIs(t, err, provision.ErrInvalidOptions)
	})
}

func TestReportError(t *testing.T) {
	t.Cleanup(func() { tool.SetLogMode("prod") })

	t.Run("silentLogMode", func(t *testing.T) {
		tool.SetLogMode("none")
		var out bytes.Buffer
		reportError(&out, fmt.Errorf("%w: device address is required", provision.ErrInvalidOptions))
		assert.Equal(t, "Error: invalid provisioning options: device address is required\n", out.String())
	})

	t.Run("networkNotFound", func(t *testing.T) {
		tool.SetLogMode("prod")
		saved := config
		t.Cleanup(func() { config = saved })
		config.SSID = "Home"
		var out bytes.Buffer
		reportError(&out, &provision.StepError{Step: provision.StepScan, Err: provision.ErrNetworkNotFound})
		assert.Equal(t, "Error: Could not find WiFi network 'Home'\n", out.String())
	})
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, version)
}

func TestScanPolicyFromConfig(t *testing.T) {
	tests := []struct {
		name    string
		scan    tool.ScanConfig
		want    provision.ScanPolicy
		wantErr bool
	}{
		{
			name: "fixed",
			scan: tool.ScanConfig{Mode: "fixed", Wait: 3 * time.Second, Interval: time.Second, Attempts: 2},
			want: provision.ScanPolicy{Mode: provision.ScanFixedWait, Wait: 3 * time.Second},
		},
		{
			name: "poll",
			scan: tool.ScanConfig{Mode: "poll", Interval: time.Second, MaxInterval: 4 * time.Second, Attempts: 6, Timeout: 30 * time.Second},
			want: provision.ScanPolicy{Mode: provision.ScanPoll, Interval: time.Second, MaxInterval: 4 * time.Second, Attempts: 6, Timeout: 30 * time.Second},
		},
		{name: "pollWithoutAttempts", scan: tool.ScanConfig{Mode: "poll", Interval: time.Second}, wantErr: true},
		{name: "unknownMode", scan: tool.ScanConfig{Mode: "forever"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := scanPolicyFromConfig(tt.scan)
			if tt.wantErr {
				assert.ErrorIs(t, err, provision.ErrInvalidOptions)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestOptionsFromConfig(t *testing.T) {
	cfg, err := tool.LoadConfig(tool.NewViper(), "")
	require.NoError(t, err)
	cfg.Device = "192.168.255.249"
	cfg.SSID = "Home"
	cfg.Password = "secret"
	cfg.Name = "Kitchen"
	cfg.Insecure = true

	var out bytes.Buffer
	opts, err := optionsFromConfig(cfg, &out)
	require.NoError(t, err)
	assert.Equal(t, "192.168.255.249", opts.DeviceIP)
	assert.Equal(t, tool.DefaultSetupPort, opts.Port)
	assert.Equal(t, types.DefaultWpaAuth, opts.WpaAuth)
	assert.Equal(t, types.DefaultWpaCipher, opts.WpaCipher)
	assert.Equal(t, "Kitchen", opts.DeviceName)
	assert.True(t, opts.InsecureSkipVerify)
	assert.False(t, opts.SkipScan)
	require.NotNil(t, opts.Scan)
	assert.Equal(t, provision.DefaultScanPolicy(), *opts.Scan)
	assert.Equal(t, tool.DefaultTimeout, opts.Timeout)
	assert.Same(t, &out, opts.Out)
}

func TestDeviceAddress(t *testing.T) {
	assert.Equal(t, "10.0.0.2:8009", deviceAddress(deviceWith("10.0.0.2", 8009)))
	assert.Equal(t, "[fe80::1]:8009", deviceAddress(deviceWith("fe80::1", 8009)))
	assert.Equal(t, "10.0.0.2", deviceAddress(deviceWith("10.0.0.2", 0)))
}

func deviceWith(addr string, port int) discover.Device {
	return discover.Device{Addresses: []string{addr}, Port: port}
}
