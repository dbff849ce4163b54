// Package ping runs an ICMP echo session against a single IPv4 host and
// collects round-trip statistics.
//
// Here is a very simple example that sends & receives 3 packets:
//
//	pinger := ping.NewPinger("www.google.com")
//	pinger.Count = 3
//	if err := pinger.Run(ctx); err != nil { // blocks until finished
//		return err
//	}
//	stats := pinger.Statistics()
//
// Cancelling ctx stops the run early. A receive that is in progress returns
// at once and that attempt is left out of the statistics.
package ping

import (
	"context"
	"errors"
	"net"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ravvdevv/ping/internal/icmp"
	"github.com/ravvdevv/ping/internal/stats"
)

// Transport performs one echo exchange at a time. *icmp.Session is the
// production implementation.
type Transport interface {
	Configure(ttl int, timeout time.Duration) error
	Exchange(pkt []byte) (*icmp.Reply, error)
	Interrupt()
	Close() error
}

// Packet describes a received echo reply.
type Packet struct {
	Seq    int
	Addr   string
	Nbytes int // Display size, see icmp.DisplayPayloadSize
	TTL    int
	RTT    time.Duration
}

// Statistics is the outcome of a run.
type Statistics struct {
	Host    string
	Addr    string
	Elapsed time.Duration // Wall time of the loop, intervals included
	stats.Summary
}

// Pinger holds state for a single ping session.
type Pinger struct {
	Host     string        // Target hostname or IP
	Count    int           // Number of echo attempts, 0 = until cancelled
	Interval time.Duration // Delay before every send, the first one included
	Timeout  time.Duration // Per-packet reply timeout
	TTL      int           // IP time-to-live
	ID       uint16        // ICMP identifier

	// Callbacks run on the loop goroutine.
	OnRecv      func(*Packet)
	OnLoss      func(seq int)
	OnSendError func(seq int, err error)
	OnRecvError func(seq int, err error)

	// LookupIP and Listen replace host resolution and socket creation.
	// When nil, net.DefaultResolver and a raw icmp.Session are used.
	LookupIP func(ctx context.Context, network, host string) ([]net.IP, error)
	Listen   func(dst net.IP) (Transport, error)

	addr    net.IP
	stats   *stats.Accumulator
	elapsed time.Duration
}

// NewPinger creates a Pinger with the classic defaults: one second between
// packets, two second timeout, TTL 32.
func NewPinger(host string) *Pinger {
	return &Pinger{
		Host:     host,
		Interval: time.Second,
		Timeout:  icmp.DefaultTimeout,
		TTL:      icmp.DefaultTTL,
		ID:       uint16(os.Getpid() & 0xffff),
		stats:    stats.New(),
	}
}

func openSession(dst net.IP) (Transport, error) {
	s, err := icmp.Open(dst)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Run resolves the host if needed, opens the socket and pings until Count
// attempts were made or ctx is cancelled. Cancellation is not an error.
// Errors returned are fatal: resolution, socket creation or configuration.
func (p *Pinger) Run(ctx context.Context) error {
	if p.addr == nil {
		if err := p.Resolve(ctx); err != nil {
			return err
		}
	}

	listen := p.Listen
	if listen == nil {
		listen = openSession
	}
	t, err := listen(p.addr)
	if err != nil {
		return err
	}
	defer t.Close()

	if err := t.Configure(p.TTL, p.Timeout); err != nil {
		return err
	}

	p.stats = stats.New()
	done := make(chan struct{})

	var g errgroup.Group
	g.Go(func() error {
		select {
		case <-ctx.Done():
			t.Interrupt()
		case <-done:
		}
		return nil
	})
	g.Go(func() error {
		defer close(done)
		return p.loop(ctx, t)
	})
	return g.Wait()
}

func (p *Pinger) loop(ctx context.Context, t Transport) error {
	start := time.Now()
	defer func() { p.elapsed = time.Since(start) }()

	for seq := 1; p.Count <= 0 || seq <= p.Count; seq++ {
		pkt, err := icmp.NewEchoRequest(p.ID, uint16(seq)).Marshal()
		if err != nil {
			return err
		}
		if !p.sleep(ctx) {
			return nil
		}

		rep, err := t.Exchange(pkt)
		// The in-flight attempt is dropped whatever came back.
		if ctx.Err() != nil || errors.Is(err, icmp.ErrInterrupted) {
			return nil
		}

		switch {
		case err == nil:
			p.stats.RecordTransmission()
			p.stats.RecordSample(rep.RTT)
			if p.OnRecv != nil {
				p.OnRecv(&Packet{
					Seq:    seq,
					Addr:   p.Addr(),
					Nbytes: icmp.DisplayPayloadSize,
					TTL:    rep.TTL,
					RTT:    rep.RTT,
				})
			}
		case errors.Is(err, icmp.ErrSend):
			if p.OnSendError != nil {
				p.OnSendError(seq, err)
			}
		case errors.Is(err, icmp.ErrTimeout):
			p.stats.RecordTransmission()
			if p.OnLoss != nil {
				p.OnLoss(seq)
			}
		default:
			p.stats.RecordTransmission()
			if p.OnRecvError != nil {
				p.OnRecvError(seq, err)
			}
		}
	}
	return nil
}

// sleep waits out the interval and reports whether the run should go on.
func (p *Pinger) sleep(ctx context.Context) bool {
	if p.Interval <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(p.Interval)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

// Statistics returns the results so far. Call it after Run returns.
func (p *Pinger) Statistics() Statistics {
	s := Statistics{
		Host:    p.Host,
		Addr:    p.Addr(),
		Elapsed: p.elapsed,
	}
	if p.stats != nil {
		s.Summary = p.stats.Summary()
	}
	return s
}
