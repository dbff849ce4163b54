package ping

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// ErrResolve is returned when the host has no usable IPv4 address.
var ErrResolve = errors.New("cannot resolve host")

// Resolve looks up the target host and keeps its first IPv4 address.
func (p *Pinger) Resolve(ctx context.Context) error {
	p.addr = nil
	if p.Host == "" {
		return fmt.Errorf("%w: empty host", ErrResolve)
	}
	lookupIP := p.LookupIP
	if lookupIP == nil {
		lookupIP = net.DefaultResolver.LookupIP
	}
	ips, err := lookupIP(ctx, "ip4", p.Host)
	if err != nil {
		return fmt.Errorf("%w %q: %w", ErrResolve, p.Host, err)
	}
	for _, ip := range ips {
		if ip4 := ip.To4(); ip4 != nil {
			p.addr = ip4
			return nil
		}
	}
	return fmt.Errorf("%w %q: no IPv4 address", ErrResolve, p.Host)
}

// Addr returns the resolved IP address as a string.
func (p *Pinger) Addr() string {
	if p.addr == nil {
		return p.Host
	}
	return p.addr.String()
}
