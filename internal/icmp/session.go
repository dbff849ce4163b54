package icmp

import (
	"errors"
	"fmt"
	"net"
	"os"
	"sync/atomic"
	"time"

	xicmp "golang.org/x/net/icmp"
	"golang.org/x/net/ipv4"
)

const (
	// DefaultTTL is the IP time-to-live set on outgoing requests.
	DefaultTTL = 32

	// DefaultTimeout is how long to wait for a reply before marking as lost.
	DefaultTimeout = 2 * time.Second
)

var (
	// ErrSocket means the raw socket could not be created. Usually a
	// privilege problem.
	ErrSocket = errors.New("cannot create socket")
	// ErrConfig means a socket option was rejected.
	ErrConfig = errors.New("cannot configure socket")
	// ErrSend means the request did not leave the host.
	ErrSend = errors.New("cannot send packet")
	// ErrReceive is a read failure other than a timeout.
	ErrReceive = errors.New("cannot receive packet")
	// ErrTimeout means no matching reply arrived in time.
	ErrTimeout = errors.New("request timeout")
	// ErrInterrupted means Interrupt was called while waiting.
	ErrInterrupted = errors.New("interrupted")
)

// PacketConn is the part of *ipv4.PacketConn used by a Session.
type PacketConn interface {
	ReadFrom(b []byte) (int, *ipv4.ControlMessage, net.Addr, error)
	WriteTo(b []byte, cm *ipv4.ControlMessage, dst net.Addr) (int, error)
	SetReadDeadline(t time.Time) error
	SetTTL(ttl int) error
	SetControlMessage(cf ipv4.ControlFlags, on bool) error
	Close() error
}

// Reply is a matched echo reply.
type Reply struct {
	Echo
	Len  int           // ICMP message length
	TTL  int           // IP TTL of the reply, or the configured TTL if unknown
	Peer net.Addr      // Sender of the reply
	RTT  time.Duration // From just before write to just after the matching read
}

// Session owns a raw ICMP socket bound to one destination and performs one
// echo exchange at a time.
type Session struct {
	conn PacketConn
	dst  *net.IPAddr

	ttl        int
	timeout    time.Duration
	configured bool

	interrupted atomic.Bool
	buf         []byte
}

// Open creates a raw ICMP socket for dst. Requires privileges.
func Open(dst net.IP) (*Session, error) {
	if dst.To4() == nil {
		return nil, fmt.Errorf("%w: %v is not an IPv4 address", ErrSocket, dst)
	}
	c, err := xicmp.ListenPacket("ip4:icmp", "0.0.0.0")
	if err != nil {
		return nil, fmt.Errorf("%w: %w (try running as root)", ErrSocket, err)
	}
	return NewSession(c.IPv4PacketConn(), dst), nil
}

// NewSession wraps an already open connection.
func NewSession(conn PacketConn, dst net.IP) *Session {
	return &Session{
		conn: conn,
		dst:  &net.IPAddr{IP: dst},
		buf:  make([]byte, 1500),
	}
}

// Configure applies the TTL and receive timeout. It may be called once,
// before the first Exchange.
func (s *Session) Configure(ttl int, timeout time.Duration) error {
	if s.configured {
		return fmt.Errorf("%w: already configured", ErrConfig)
	}
	if ttl < 1 || ttl > 255 {
		return fmt.Errorf("%w: ttl %d out of range", ErrConfig, ttl)
	}
	if timeout <= 0 {
		return fmt.Errorf("%w: timeout must be positive", ErrConfig)
	}
	if err := s.conn.SetTTL(ttl); err != nil {
		return fmt.Errorf("%w: set ttl %d: %w", ErrConfig, ttl, err)
	}
	// Not supported on every platform; Reply.TTL falls back to ttl.
	_ = s.conn.SetControlMessage(ipv4.FlagTTL, true)

	s.ttl = ttl
	s.timeout = timeout
	s.configured = true
	return nil
}

// TTL returns the configured time-to-live.
func (s *Session) TTL() int { return s.ttl }

// Exchange sends pkt, an echo request built by Echo.Marshal, and waits for
// its reply. Packets that fail the checksum or answer someone else are
// skipped. The wait is bounded by the configured timeout measured from the
// send.
func (s *Session) Exchange(pkt []byte) (*Reply, error) {
	if !s.configured {
		return nil, fmt.Errorf("%w: session not configured", ErrConfig)
	}
	req, err := ParseEcho(pkt)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSend, err)
	}

	// --- Send ---
	sendTime := time.Now()
	n, err := s.conn.WriteTo(pkt, nil, s.dst)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSend, err)
	}
	if n != len(pkt) {
		return nil, fmt.Errorf("%w: wrote %d of %d bytes", ErrSend, n, len(pkt))
	}

	// --- Receive ---
	if err := s.conn.SetReadDeadline(sendTime.Add(s.timeout)); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrReceive, err)
	}
	for {
		// Checked after the deadline is armed so an Interrupt racing with
		// SetReadDeadline is never lost.
		if s.interrupted.Load() {
			return nil, ErrInterrupted
		}
		n, cm, peer, err := s.conn.ReadFrom(s.buf)
		if s.interrupted.Load() {
			return nil, ErrInterrupted
		}
		if err != nil {
			if errors.Is(err, os.ErrDeadlineExceeded) {
				return nil, ErrTimeout
			}
			return nil, fmt.Errorf("%w: %w", ErrReceive, err)
		}
		rtt := time.Since(sendTime)

		msg := s.buf[:n]
		rep, err := ParseEcho(msg)
		if err != nil || Verify(msg) != nil || !rep.IsReplyTo(req) {
			continue
		}
		if ip, ok := peer.(*net.IPAddr); ok && !ip.IP.Equal(s.dst.IP) {
			continue
		}

		ttl := s.ttl
		if cm != nil && cm.TTL > 0 {
			ttl = cm.TTL
		}
		return &Reply{Echo: rep, Len: n, TTL: ttl, Peer: peer, RTT: rtt}, nil
	}
}

// Interrupt makes a pending or future Exchange return ErrInterrupted. It is
// safe to call from another goroutine.
func (s *Session) Interrupt() {
	s.interrupted.Store(true)
	_ = s.conn.SetReadDeadline(time.Now())
}

// Close releases the socket.
func (s *Session) Close() error {
	return s.conn.Close()
}
