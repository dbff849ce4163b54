// ping sends ICMP echo requests to a host and reports round-trip statistics.
//
// Usage:
//
//	sudo ping [flags] <host>
//
// Flags:
//
//	-c int          Number of echo requests to send (default 0 = until interrupted)
//	-i float        Interval before each request in seconds (default 1.0)
//	-timeout float  Per-packet timeout in seconds (default 2.0)
//	-ttl int        IP time-to-live (default 32)
//	-v              Verbose mode (show receive timestamps)
//
// Example:
//
//	sudo ping -c 5 cloudflare.com
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/ravvdevv/ping/internal/icmp"
	"github.com/ravvdevv/ping/internal/ping"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// newPinger is replaced in tests.
var newPinger = ping.NewPinger

type options struct {
	host     string
	count    int
	interval time.Duration
	timeout  time.Duration
	ttl      int
	verbose  bool
}

func parseArgs(args []string, stderr io.Writer) (*options, error) {
	fs := flag.NewFlagSet("ping", flag.ContinueOnError)
	fs.SetOutput(stderr)
	count := fs.Int("c", 0, "number of echo requests to send (0 = until interrupted)")
	interval := fs.Float64("i", 1.0, "interval before each request (seconds)")
	timeout := fs.Float64("timeout", icmp.DefaultTimeout.Seconds(), "per-packet timeout (seconds)")
	ttl := fs.Int("ttl", icmp.DefaultTTL, "IP time-to-live")
	verbose := fs.Bool("v", false, "verbose: show receive timestamps")
	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: sudo ping [-c count] [flags] <host>\n\n")
		fs.PrintDefaults()
	}

	// The host may come before or after the flags.
	var host string
	var rest []string
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if host == "" && !strings.HasPrefix(arg, "-") && (i == 0 || !takesValue(args[i-1])) {
			host = arg
			continue
		}
		rest = append(rest, arg)
	}

	if err := fs.Parse(rest); err != nil {
		return nil, err
	}
	extra := fs.Args()
	if host == "" && len(extra) > 0 {
		host, extra = extra[0], extra[1:]
	}
	if host == "" {
		fs.Usage()
		return nil, errors.New("missing host")
	}
	if len(extra) > 0 {
		fs.Usage()
		return nil, fmt.Errorf("unexpected argument %q", extra[0])
	}
	if *count < 0 {
		return nil, fmt.Errorf("invalid count %d", *count)
	}
	if *interval < 0 {
		return nil, fmt.Errorf("invalid interval %v", *interval)
	}

	return &options{
		host:     host,
		count:    *count,
		interval: time.Duration(*interval * float64(time.Second)),
		timeout:  time.Duration(*timeout * float64(time.Second)),
		ttl:      *ttl,
		verbose:  *verbose,
	}, nil
}

// takesValue reports whether flag arg consumes the next argument.
func takesValue(arg string) bool {
	switch strings.TrimLeft(arg, "-") {
	case "c", "i", "timeout", "ttl":
		return true
	}
	return false
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	opts, err := parseArgs(args, stderr)
	if err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintf(stderr, "ping: %v\n", err)
		}
		return 1
	}

	p := newPinger(opts.host)
	p.Count = opts.count
	p.Interval = opts.interval
	p.Timeout = opts.timeout
	p.TTL = opts.ttl

	if err := p.Resolve(ctx); err != nil {
		fmt.Fprintf(stderr, "ping: %v\n", err)
		return 1
	}

	p.OnRecv = func(pkt *ping.Packet) {
		ts := ""
		if opts.verbose {
			ts = fmt.Sprintf(" [%s]", time.Now().Format("15:04:05.000"))
		}
		fmt.Fprintf(stdout, "%d bytes from %s: icmp_seq=%d ttl=%d time=%s%s\n",
			pkt.Nbytes, pkt.Addr, pkt.Seq, pkt.TTL, fmtRTT(pkt.RTT), ts)
	}
	p.OnLoss = func(seq int) {
		fmt.Fprintf(stderr, "Request timeout for icmp_seq=%d\n", seq)
	}
	p.OnSendError = func(seq int, err error) {
		fmt.Fprintf(stderr, "icmp_seq=%d: %v\n", seq, err)
	}
	p.OnRecvError = p.OnSendError

	fmt.Fprintf(stdout, "PING %s (%s) %d bytes of data.\n", opts.host, p.Addr(), icmp.DisplayPayloadSize)

	if err := p.Run(ctx); err != nil {
		fmt.Fprintf(stderr, "ping: %v\n", err)
		return 1
	}

	printStats(stdout, p.Statistics())
	return 0
}

func printStats(w io.Writer, s ping.Statistics) {
	fmt.Fprintf(w, "\n--- %s ping statistics ---\n", s.Host)
	fmt.Fprintf(w, "%d packets transmitted, %d received, %.0f%% packet loss, time %dms\n",
		s.Transmitted, s.Received, s.Loss, s.Elapsed.Milliseconds())
	if s.Received > 0 {
		fmt.Fprintf(w, "rtt min/avg/max/mdev = %.3f/%.3f/%.3f/%.3f ms\n",
			s.Min, s.Avg, s.Max, s.StdDev)
	}
}

func fmtRTT(d time.Duration) string {
	ms := float64(d) / float64(time.Millisecond)
	return fmt.Sprintf("%.3f ms", ms)
}
