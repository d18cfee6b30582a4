package scanning

import (
	"context"
	"errors"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
)

func dialerFor(open map[string]bool) DialFunc {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		if open[addr] {
			client, server := net.Pipe()
			go server.Close()
			return client, nil
		}
		return nil, errors.New("connection refused")
	}
}

func TestProberScan(t *testing.T) {
	p := NewProber()
	p.dial = dialerFor(map[string]bool{
		"192.168.1.50:80":  true,
		"192.168.1.50:443": true,
		"192.168.1.50:23":  false,
	})

	open := p.Scan(context.Background(), "192.168.1.50", []int{23, 443, 80, 22})
	assert.Equal(t, []int{80, 443}, open, "open ports come back ascending")
}

func TestProberScanAllClosed(t *testing.T) {
	p := NewProber()
	p.dial = dialerFor(nil)

	open := p.Scan(context.Background(), "192.168.1.50", probePorts)
	assert.Empty(t, open)
}
