package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/moyoez/castanet/provision"
	"github.com/moyoez/castanet/tool"
	"github.com/moyoez/castanet/types"
)

var connectCmd = &cobra.Command{
	Use:   "connect",
	Short: "join the device to a WiFi network",
	Long: `connect fetches the device's public key, scans for the requested
network, sends the encrypted credentials and asks the device to save them.
Optionally renames the device afterwards.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		opts, err := optionsFromConfig(config, cmd.OutOrStdout())
		if err != nil {
			return err
		}
		_, err = provision.Run(cmd.Context(), opts)
		return err
	},
}

// optionsFromConfig maps the merged configuration onto a provisioning run.
func optionsFromConfig(cfg tool.Config, out io.Writer) (provision.Options, error) {
	policy, err := scanPolicyFromConfig(cfg.Scan)
	if err != nil {
		return provision.Options{}, err
	}
	return provision.Options{
		DeviceIP:           cfg.Device,
		Port:               cfg.Port,
		SSID:               cfg.SSID,
		WpaAuth:            cfg.Auth,
		WpaCipher:          cfg.Cipher,
		Password:           cfg.Password,
		DeviceName:         cfg.Name,
		SkipScan:           cfg.SkipScan,
		InsecureSkipVerify: cfg.Insecure,
		Timeout:            cfg.Timeout,
		Scan:               &policy,
		Preflight:          cfg.Preflight,
		NotifyURL:          cfg.NotifyURL,
		Out:                out,
	}, nil
}

func scanPolicyFromConfig(sc tool.ScanConfig) (provision.ScanPolicy, error) {
	mode, err := provision.ParseScanMode(sc.Mode)
	if err != nil {
		return provision.ScanPolicy{}, err
	}
	if mode == provision.ScanFixedWait {
		return provision.ScanPolicy{Mode: mode, Wait: sc.Wait}, nil
	}
	if sc.Attempts <= 0 || sc.Interval <= 0 {
		return provision.ScanPolicy{}, fmt.Errorf("%w: scan attempts and interval must be positive", provision.ErrInvalidOptions)
	}
	return provision.ScanPolicy{
		Mode:        mode,
		Interval:    sc.Interval,
		MaxInterval: sc.MaxInterval,
		Attempts:    sc.Attempts,
		Timeout:     sc.Timeout,
	}, nil
}

func init() {
	rootCmd.AddCommand(connectCmd)

	f := connectCmd.Flags()
	f.String("ssid", "", "WiFi network to join")
	f.String("password", "", "WiFi password")
	f.Int("auth", types.DefaultWpaAuth, "wpa_auth used when the scan is skipped")
	f.Int("cipher", types.DefaultWpaCipher, "wpa_cipher used when the scan is skipped")
	f.String("name", "", "rename the device after connecting")
	f.Bool("skip-scan", false, "do not scan; use --auth and --cipher as given")
	f.Bool("preflight", false, "ping the device before talking to it")
	f.String("notify-url", "", "POST a JSON summary of the run to this URL")
	f.String("scan-mode", "fixed", "how to wait for scan results: fixed|poll")
	f.Duration("scan-wait", provision.DefaultScanWait, "sleep before reading scan results (fixed mode)")
	f.Duration("scan-interval", provision.PollScanPolicy().Interval, "first poll interval (poll mode)")
	f.Duration("scan-max-interval", provision.PollScanPolicy().MaxInterval, "largest poll interval (poll mode)")
	f.Int("scan-attempts", provision.PollScanPolicy().Attempts, "maximum number of polls (poll mode)")
	f.Duration("scan-timeout", provision.PollScanPolicy().Timeout, "overall poll deadline (poll mode)")

	bindFlags(v, f, map[string]string{
		"ssid":              "ssid",
		"password":          "password",
		"auth":              "auth",
		"cipher":            "cipher",
		"name":              "name",
		"skip_scan":         "skip-scan",
		"preflight":         "preflight",
		"notify_url":        "notify-url",
		"scan.mode":         "scan-mode",
		"scan.wait":         "scan-wait",
		"scan.interval":     "scan-interval",
		"scan.max_interval": "scan-max-interval",
		"scan.attempts":     "scan-attempts",
		"scan.timeout":      "scan-timeout",
	})
}
