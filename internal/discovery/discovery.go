package discovery

import (
	"context"
	"fmt"
	"net"
	"sort"
	"strings"

	"github.com/grandcat/zeroconf"
)

// serviceType is the mDNS service LXI-style instruments advertise for
// their raw-socket interface.
const serviceType = "_scpi-raw._tcp"

// Instrument is one discovered time-base candidate on the local network.
type Instrument struct {
	// Instance is the advertised name, e.g. "TB-1000 on bench 3".
	Instance string
	// Hostname is the mDNS hostname, e.g. "tb1000.local.".
	Hostname string
	// Addresses holds the resolved IPv4/IPv6 addresses.
	Addresses []net.IP
	// Port is the advertised raw-socket port.
	Port int
}

// Resource returns a host:port string usable as the controller resource.
// It prefers the first IPv4 address and falls back to the hostname.
func (i Instrument) Resource() string {
	for _, a := range i.Addresses {
		if a.To4() != nil {
			return net.JoinHostPort(a.String(), fmt.Sprint(i.Port))
		}
	}

	return net.JoinHostPort(strings.TrimSuffix(i.Hostname, "."), fmt.Sprint(i.Port))
}

// Browse performs a blocking mDNS browse for raw-socket instruments until
// the context expires, returning deduplicated entries sorted by instance
// name.
func Browse(ctx context.Context) ([]Instrument, error) {
	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return nil, fmt.Errorf("mdns resolver: %w", err)
	}

	entries := make(chan *zeroconf.ServiceEntry)
	byKey := make(map[string]Instrument)
	done := make(chan struct{})

	go func() {
		defer close(done)

		for e := range entries {
			if e == nil {
				continue
			}

			addrs := make([]net.IP, 0, len(e.AddrIPv4)+len(e.AddrIPv6))
			addrs = append(addrs, e.AddrIPv4...)
			addrs = append(addrs, e.AddrIPv6...)

			key := fmt.Sprintf("%s|%d", e.HostName, e.Port)
			byKey[key] = Instrument{
				Instance:  cleanInstance(e.Instance),
				Hostname:  e.HostName,
				Addresses: addrs,
				Port:      e.Port,
			}
		}
	}()

	if err := resolver.Browse(ctx, serviceType, "local.", entries); err != nil {
		return nil, fmt.Errorf("mdns browse: %w", err)
	}

	<-ctx.Done()
	<-done

	out := make([]Instrument, 0, len(byKey))
	for _, inst := range byKey {
		out = append(out, inst)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Instance < out[j].Instance })

	return out, nil
}

// cleanInstance removes zeroconf escape sequences from advertised names.
func cleanInstance(s string) string {
	return strings.ReplaceAll(s, `\ `, " ")
}
