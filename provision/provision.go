package provision

import (
	"context"
	"fmt"
	"net/url"

	"github.com/bytedance/sonic"
	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/moyoez/castanet/keys"
	"github.com/moyoez/castanet/notify"
	"github.com/moyoez/castanet/setup"
	"github.com/moyoez/castanet/tool"
	"github.com/moyoez/castanet/types"
)

// Result describes what a run sent and how the device answered.
type Result struct {
	RunID      string
	DeviceName string
	// Network is the scan entry that was selected, nil when the scan was skipped.
	Network       *types.WifiNetwork
	Connect       types.ConnectCommand
	ConnectStatus int
	SaveStatus    int
	// RenameStatus is zero when no rename was requested.
	RenameStatus int
}

// Run provisions one device: fetch its key, scan, encrypt, connect, save and
// optionally rename, in that order. The first failure aborts the run with a
// *StepError; commands already sent are not rolled back.
func Run(ctx context.Context, opts Options) (*Result, error) {
	opts = opts.withDefaults()
	result := &Result{RunID: uuid.NewString()}
	logger := tool.DefaultLogger.With("run", result.RunID)

	err := run(ctx, opts, result, logger)
	if opts.NotifyURL != "" {
		report(ctx, opts, result, err, logger)
	}
	if err != nil {
		return result, err
	}
	return result, nil
}

func run(ctx context.Context, opts Options, result *Result, logger *log.Logger) error {
	if err := opts.validate(); err != nil {
		return stepError(StepValidate, err)
	}
	client, err := setup.Dial(opts.DeviceIP, opts.Port, opts.InsecureSkipVerify, opts.Timeout)
	if err != nil {
		return stepError(StepValidate, fmt.Errorf("%w: %v", ErrInvalidOptions, err))
	}
	if opts.InsecureSkipVerify {
		logger.Debug("TLS certificate verification disabled for the device")
	}
	out := opts.Out

	logger.Infof("Connecting %s to %s", opts.DeviceIP, opts.SSID)

	if opts.Preflight {
		if err := preflight(ctx, opts.DeviceIP); err != nil {
			return stepError(StepPreflight, err)
		}
	}

	info, err := client.EurekaInfo(ctx)
	if err != nil {
		return stepError(StepFetch, err)
	}
	result.DeviceName = info.Name
	publicKey := info.PublicKey
	logger.Debug("fetched device info", "name", info.Name, "build", info.BuildVersion)

	wpaAuth, wpaCipher := opts.WpaAuth, opts.WpaCipher
	if !opts.SkipScan {
		network, err := scan(ctx, client, opts, logger)
		if err != nil {
			return stepError(StepScan, err)
		}
		// Device-reported values win over whatever the caller supplied.
		wpaAuth, wpaCipher = network.WpaAuth, network.WpaCipher
		result.Network = &network
		var shown any = network
		if network.Raw != nil {
			shown = network.Raw
		}
		pretty, err := sonic.ConfigStd.MarshalIndent(shown, "", "  ")
		if err == nil {
			fmt.Fprintln(out, string(pretty))
		}
	}

	encPasswd, err := keys.EncryptPassword(opts.Password, publicKey)
	if err != nil {
		return &StepError{Step: StepEncrypt, Category: ErrCatCrypto, Err: err}
	}

	result.Connect = types.ConnectCommand{
		SSID:      opts.SSID,
		WpaAuth:   wpaAuth,
		WpaCipher: wpaCipher,
		EncPasswd: encPasswd,
	}
	connectResp, err := client.ConnectWifi(ctx, result.Connect)
	if err != nil {
		return stepError(StepConnect, err)
	}
	result.ConnectStatus = connectResp.StatusCode
	fmt.Fprintf(out, "Connect response: %d\n", connectResp.StatusCode)
	fmt.Fprintf(out, "Connect headers: %v\n", connectResp.Header)
	if !connectResp.OK() {
		logger.Warn("device did not accept connect_wifi", "status", connectResp.Status)
	}

	saveResp, err := client.SaveWifi(ctx, types.NewSaveCommand())
	if err != nil {
		return stepError(StepSave, err)
	}
	result.SaveStatus = saveResp.StatusCode
	fmt.Fprintf(out, "Save response: %d\n", saveResp.StatusCode)
	fmt.Fprintf(out, "Save headers: %v\n", saveResp.Header)
	fmt.Fprintf(out, "Save body: %s\n", saveResp.Body)
	if !saveResp.OK() {
		logger.Warn("device did not accept save_wifi", "status", saveResp.Status)
	}

	if opts.DeviceName != "" {
		renameResp, err := client.SetEurekaInfo(ctx, types.NewRenameCommand(opts.DeviceName))
		if err != nil {
			return stepError(StepRename, err)
		}
		result.RenameStatus = renameResp.StatusCode
		fmt.Fprintf(out, "Renamed Chromecast to '%s'. Response: %d\n", opts.DeviceName, renameResp.StatusCode)
	}

	fmt.Fprintln(out, "\nConnection commands sent successfully!")
	Diagnostics(out, hostPort(client.BaseURL()))
	return nil
}

func scan(ctx context.Context, client *setup.Client, opts Options, logger *log.Logger) (types.WifiNetwork, error) {
	if err := client.ScanWifi(ctx); err != nil {
		return types.WifiNetwork{}, err
	}
	logger.Info("Scanning for WiFi networks...")
	networks, err := opts.Scan.waitForResults(ctx, client.ScanResults)
	if err != nil {
		return types.WifiNetwork{}, err
	}
	logger.Debug("scan finished", "networks", len(networks))
	return SelectNetwork(networks, opts.SSID)
}

func report(ctx context.Context, opts Options, result *Result, runErr error, logger *log.Logger) {
	data := map[string]any{
		"run":            result.RunID,
		"connect_status": result.ConnectStatus,
		"save_status":    result.SaveStatus,
	}
	if result.RenameStatus != 0 {
		data["rename_status"] = result.RenameStatus
	}
	n := notify.ProvisionNotification(opts.DeviceIP, opts.SSID, data, runErr)
	// The run may have been cancelled; the outcome is still worth reporting.
	if err := notify.SendNotification(context.WithoutCancel(ctx), n, notify.Options{URL: opts.NotifyURL, Timeout: opts.Timeout}); err != nil {
		logger.Warnf("Failed to send notification: %v", err)
	}
}

func hostPort(baseURL string) string {
	u, err := url.Parse(baseURL)
	if err != nil {
		return baseURL
	}
	return u.Host
}
