package discover

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/grandcat/zeroconf"

	"github.com/moyoez/castanet/tool"
)

const (
	// DefaultService is the mDNS service cast devices advertise.
	DefaultService = "_googlecast._tcp"
	// DefaultDomain is the mDNS domain.
	DefaultDomain = "local."
	// DefaultTimeout bounds one browse.
	DefaultTimeout = 5 * time.Second
)

type browseFunc func(ctx context.Context, service, domain string, entries chan<- *zeroconf.ServiceEntry) error

// Config controls a browse.
type Config struct {
	Service string
	Domain  string
	Timeout time.Duration

	browseFn browseFunc
}

func (c Config) withDefaults() Config {
	out := c
	if out.Service == "" {
		out.Service = DefaultService
	}
	if out.Domain == "" {
		out.Domain = DefaultDomain
	}
	if out.Timeout <= 0 {
		out.Timeout = DefaultTimeout
	}
	return out
}

// Device is a cast device seen on the LAN.
type Device struct {
	ID        string
	Name      string
	Model     string
	HostName  string
	Port      int
	Addresses []string
}

// Browse listens for cast devices for cfg.Timeout and returns them sorted by name.
func Browse(ctx context.Context, config Config) ([]Device, error) {
	cfg := config.withDefaults()
	browse := cfg.browseFn
	if browse == nil {
		resolver, err := zeroconf.NewResolver(nil)
		if err != nil {
			return nil, fmt.Errorf("create mDNS resolver: %w", err)
		}
		browse = resolver.Browse
	}

	scanCtx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	entries := make(chan *zeroconf.ServiceEntry, 32)
	collected := make(map[string]Device)
	var collectedMu sync.Mutex
	collectorDone := make(chan struct{})

	record := func(entry *zeroconf.ServiceEntry) {
		device, valid := parseEntry(entry)
		if !valid {
			return
		}
		tool.DefaultLogger.Debug("found cast device", "name", device.Name, "addresses", device.Addresses)
		collectedMu.Lock()
		collected[device.ID] = device
		collectedMu.Unlock()
	}

	go func() {
		defer close(collectorDone)
		for {
			select {
			case <-scanCtx.Done():
				// drain whatever was queued before the window closed
				for {
					select {
					case entry, ok := <-entries:
						if !ok {
							return
						}
						record(entry)
					default:
						return
					}
				}
			case entry, ok := <-entries:
				if !ok {
					return
				}
				record(entry)
			}
		}
	}()

	if err := browse(scanCtx, cfg.Service, cfg.Domain, entries); err != nil {
		return nil, fmt.Errorf("browse %s: %w", cfg.Service, err)
	}

	<-scanCtx.Done()
	<-collectorDone

	// A timeout just means the browse window ended naturally.
	if err := ctx.Err(); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return nil, err
	}

	collectedMu.Lock()
	defer collectedMu.Unlock()
	devices := make([]Device, 0, len(collected))
	for _, d := range collected {
		devices = append(devices, d)
	}
	sort.Slice(devices, func(i, j int) bool {
		if devices[i].Name != devices[j].Name {
			return devices[i].Name < devices[j].Name
		}
		return devices[i].ID < devices[j].ID
	})
	return devices, nil
}

func parseEntry(entry *zeroconf.ServiceEntry) (Device, bool) {
	if entry == nil {
		return Device{}, false
	}
	txt := txtToMap(entry.Text)

	id := txt["id"]
	if id == "" {
		id = strings.TrimSpace(entry.Instance)
	}
	if id == "" {
		return Device{}, false
	}

	addresses := make([]string, 0, len(entry.AddrIPv4)+len(entry.AddrIPv6))
	seen := make(map[string]struct{})
	for _, ip := range entry.AddrIPv4 {
		addresses = appendUnique(addresses, seen, ip.String())
	}
	for _, ip := range entry.AddrIPv6 {
		addresses = appendUnique(addresses, seen, ip.String())
	}
	if len(addresses) == 0 {
		return Device{}, false
	}

	name := txt["fn"]
	if name == "" {
		name = strings.TrimSpace(entry.Instance)
	}

	return Device{
		ID:        id,
		Name:      name,
		Model:     txt["md"],
		HostName:  entry.HostName,
		Port:      entry.Port,
		Addresses: addresses,
	}, true
}

func appendUnique(out []string, seen map[string]struct{}, addr string) []string {
	if addr == "" || addr == "<nil>" {
		return out
	}
	if _, ok := seen[addr]; ok {
		return out
	}
	seen[addr] = struct{}{}
	return append(out, addr)
}

func txtToMap(text []string) map[string]string {
	out := make(map[string]string, len(text))
	for _, entry := range text {
		key, value, ok := strings.Cut(entry, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		out[key] = strings.TrimSpace(value)
	}
	return out
}
