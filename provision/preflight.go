package provision

import (
	"context"
	"fmt"
	"net"
	"time"

	probing "github.com/prometheus-community/pro-bing"

	"github.com/moyoez/castanet/setup"
)

const (
	preflightCount   = 3
	preflightTimeout = 5 * time.Second
)

// pingFunc is swapped out in tests; ICMP is not available everywhere.
var pingFunc = pingDevice

// pingDevice sends a few unprivileged pings and returns how many came back.
func pingDevice(ctx context.Context, host string) (int, error) {
	pinger, err := probing.NewPinger(host)
	if err != nil {
		return 0, err
	}
	pinger.Count = preflightCount
	pinger.Timeout = preflightTimeout
	pinger.SetPrivileged(false)
	if err := pinger.RunWithContext(ctx); err != nil {
		return 0, err
	}
	return pinger.Statistics().PacketsRecv, nil
}

func preflight(ctx context.Context, deviceIP string) error {
	host := deviceIP
	if h, _, err := net.SplitHostPort(deviceIP); err == nil {
		host = h
	}
	received, err := pingFunc(ctx, host)
	if err != nil {
		return fmt.Errorf("%w: ping %s: %w", setup.ErrTransport, host, err)
	}
	if received == 0 {
		return fmt.Errorf("%w: %s did not answer %d pings", setup.ErrTransport, host, preflightCount)
	}
	return nil
}
