package provision

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"github.com/moyoez/castanet/setup"
	"github.com/moyoez/castanet/types"
)

// ScanMode selects how a run waits for the device's WiFi scan to finish.
type ScanMode int

const (
	// ScanFixedWait sleeps once and reads the results once.
	ScanFixedWait ScanMode = iota
	// ScanPoll reads the results repeatedly with growing intervals until they are non-empty.
	ScanPoll
)

const DefaultScanWait = 20 * time.Second

// ScanPolicy controls the wait between scan_wifi and scan_results.
type ScanPolicy struct {
	Mode ScanMode
	// Wait is the blind sleep of ScanFixedWait.
	Wait time.Duration
	// Interval is the first poll interval; it doubles after every empty answer up to MaxInterval.
	Interval    time.Duration
	MaxInterval time.Duration
	Attempts    int
	// Timeout bounds the whole poll. Zero means Attempts alone bounds it.
	Timeout time.Duration
}

// DefaultScanPolicy waits 20 seconds and reads the results once.
func DefaultScanPolicy() ScanPolicy {
	return ScanPolicy{Mode: ScanFixedWait, Wait: DefaultScanWait}
}

// PollScanPolicy returns a polling policy with sane bounds.
func PollScanPolicy() ScanPolicy {
	return ScanPolicy{
		Mode:        ScanPoll,
		Interval:    2 * time.Second,
		MaxInterval: 10 * time.Second,
		Attempts:    15,
		Timeout:     60 * time.Second,
	}
}

// ParseScanMode accepts "fixed" or "poll".
func ParseScanMode(s string) (ScanMode, error) {
	switch s {
	case "", "fixed":
		return ScanFixedWait, nil
	case "poll":
		return ScanPoll, nil
	default:
		return ScanFixedWait, fmt.Errorf("%w: unknown scan mode %q", ErrInvalidOptions, s)
	}
}

func (p ScanPolicy) validate() error {
	switch p.Mode {
	case ScanFixedWait:
		if p.Wait < 0 {
			return fmt.Errorf("%w: negative scan wait", ErrInvalidOptions)
		}
	case ScanPoll:
		if p.Attempts <= 0 || p.Interval <= 0 {
			return fmt.Errorf("%w: polling needs attempts and interval > 0", ErrInvalidOptions)
		}
	default:
		return fmt.Errorf("%w: unknown scan mode %d", ErrInvalidOptions, p.Mode)
	}
	return nil
}

type fetchFunc func(ctx context.Context) ([]types.WifiNetwork, error)

// waitForResults blocks according to the policy and returns the scan results.
// Poll exhaustion returns the last, empty, answer rather than an error.
func (p ScanPolicy) waitForResults(ctx context.Context, fetch fetchFunc) ([]types.WifiNetwork, error) {
	if p.Mode == ScanFixedWait {
		if err := sleep(ctx, p.Wait); err != nil {
			return nil, err
		}
		return fetch(ctx)
	}

	pollCtx := ctx
	if p.Timeout > 0 {
		var cancel context.CancelFunc
		pollCtx, cancel = context.WithTimeout(ctx, p.Timeout)
		defer cancel()
	}

	interval := p.Interval
	maxInterval := max(p.MaxInterval, interval)
	limiter := rate.NewLimiter(rate.Every(interval), 1)
	// Drain the initial token so the first read happens one interval after scan_wifi.
	limiter.Allow()

	var (
		last    []types.WifiNetwork
		lastErr error
	)
	for attempt := 0; attempt < p.Attempts; attempt++ {
		if err := limiter.Wait(pollCtx); err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			break
		}
		networks, err := fetch(pollCtx)
		switch {
		case err == nil && len(networks) > 0:
			return networks, nil
		case err == nil:
			last, lastErr = networks, nil
		case errors.Is(err, setup.ErrTransport):
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			if pollCtx.Err() != nil {
				return last, lastErr
			}
			lastErr = err
		default:
			return nil, err
		}
		interval = min(interval*2, maxInterval)
		limiter.SetLimit(rate.Every(interval))
	}
	return last, lastErr
}

// SelectNetwork returns the first network whose SSID equals ssid, in device order.
func SelectNetwork(networks []types.WifiNetwork, ssid string) (types.WifiNetwork, error) {
	for _, n := range networks {
		if n.SSID == ssid {
			return n, nil
		}
	}
	return types.WifiNetwork{}, fmt.Errorf("%w: %q", ErrNetworkNotFound, ssid)
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
