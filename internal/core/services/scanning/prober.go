// Package scanning probes IoT devices for exposed services, records
// vulnerability findings, and maintains the behavioral score sheets.
package scanning

import (
	"context"
	"net"
	"sort"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"
)

// DialFunc matches net.Dialer.DialContext, injectable for tests.
type DialFunc func(ctx context.Context, network, addr string) (net.Conn, error)

const (
	probeTimeout     = 500 * time.Millisecond
	probeConcurrency = 8
)

// Prober runs bounded-concurrency TCP connect probes against one host.
// A completed handshake means open; refusals and timeouts both read as
// closed, so a firewalled port is indistinguishable from an unused one.
type Prober struct {
	dial        DialFunc
	timeout     time.Duration
	concurrency int
}

func NewProber() *Prober {
	d := &net.Dialer{}
	return &Prober{
		dial:        d.DialContext,
		timeout:     probeTimeout,
		concurrency: probeConcurrency,
	}
}

// Scan returns the subset of ports that accepted a TCP connection,
// ascending.
func (p *Prober) Scan(ctx context.Context, ip string, ports []int) []int {
	open := make(chan int, len(ports))

	var g errgroup.Group
	g.SetLimit(p.concurrency)
	for _, port := range ports {
		g.Go(func() error {
			dialCtx, cancel := context.WithTimeout(ctx, p.timeout)
			defer cancel()
			conn, err := p.dial(dialCtx, "tcp", net.JoinHostPort(ip, strconv.Itoa(port)))
			if err != nil {
				return nil
			}
			conn.Close()
			open <- port
			return nil
		})
	}
	g.Wait()
	close(open)

	result := make([]int, 0, len(open))
	for port := range open {
		result = append(result, port)
	}
	sort.Ints(result)
	return result
}
