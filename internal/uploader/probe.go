package uploader

import (
	"context"
	"net"
	"net/url"
	"time"
)

// Probe answers whether the device currently has a usable path to the
// collector. A run that finds the device offline returns immediately without
// mutating the queue.
type Probe interface {
	Online(ctx context.Context) bool
}

// AlwaysOnline is a Probe that never reports offline. Useful in tests and
// for deployments that prefer to let the request itself fail.
type AlwaysOnline struct{}

// Online implements Probe.
func (AlwaysOnline) Online(context.Context) bool { return true }

// DialProbe reports connectivity by dialing the collector host with a short
// timeout. The URL is re-read on every call so reconfiguration takes effect
// without rebuilding the probe.
type DialProbe struct {
	// URL returns the current collector endpoint.
	URL func() string
	// Timeout bounds the dial. Zero means 3 seconds.
	Timeout time.Duration
}

// Online implements Probe.
func (p *DialProbe) Online(ctx context.Context) bool {
	raw := p.URL()
	if raw == "" {
		return false
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return false
	}
	host := u.Host
	if u.Port() == "" {
		switch u.Scheme {
		case "https":
			host = net.JoinHostPort(u.Hostname(), "443")
		default:
			host = net.JoinHostPort(u.Hostname(), "80")
		}
	}
	timeout := p.Timeout
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	d := net.Dialer{Timeout: timeout}
	conn, err := d.DialContext(ctx, "tcp", host)
	if err != nil {
		return false
	}
	_ = conn.Close()
	return true
}
