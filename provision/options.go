package provision

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/moyoez/castanet/tool"
)

// Options replaces the hardcoded parameters of a provisioning run.
type Options struct {
	DeviceIP   string
	Port       int
	SSID       string
	WpaAuth    int
	WpaCipher  int
	Password   string
	DeviceName string
	// WpaAuth and WpaCipher are sent as given when SkipScan is set, zero included.

	// SkipScan uses WpaAuth and WpaCipher as given instead of asking the device.
	SkipScan bool
	// InsecureSkipVerify must be set to talk to a real device, whose
	// setup certificate is self-signed.
	InsecureSkipVerify bool
	Timeout            time.Duration
	// Scan nil means DefaultScanPolicy.
	Scan      *ScanPolicy
	Preflight bool
	NotifyURL string

	Out io.Writer
}

func (o Options) withDefaults() Options {
	out := o
	out.DeviceIP = strings.TrimSpace(out.DeviceIP)
	if out.Port <= 0 {
		out.Port = tool.DefaultSetupPort
	}
	if out.Timeout <= 0 {
		out.Timeout = tool.DefaultTimeout
	}
	if out.Scan == nil {
		policy := DefaultScanPolicy()
		out.Scan = &policy
	}
	if out.Out == nil {
		out.Out = os.Stdout
	}
	return out
}

func (o Options) validate() error {
	if o.DeviceIP == "" {
		return fmt.Errorf("%w: device address is required", ErrInvalidOptions)
	}
	if o.SSID == "" {
		return fmt.Errorf("%w: ssid is required", ErrInvalidOptions)
	}
	if !o.SkipScan {
		if err := o.Scan.validate(); err != nil {
			return err
		}
	}
	return nil
}
