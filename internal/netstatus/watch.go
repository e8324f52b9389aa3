package netstatus

import (
	"context"
	"net/http"
	"time"
)

// Prober reports whether the network is currently reachable.
type Prober interface {
	Probe(ctx context.Context) bool
}

// ProberFunc adapts a function to the Prober interface.
type ProberFunc func(ctx context.Context) bool

// Probe calls f(ctx).
func (f ProberFunc) Probe(ctx context.Context) bool { return f(ctx) }

// Watch probes immediately and then every interval, feeding each result to
// Signal, until ctx is done.
func (m *Monitor) Watch(ctx context.Context, p Prober, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		m.Signal(p.Probe(ctx))

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// DefaultProbeTimeout bounds a single HTTPProber request.
const DefaultProbeTimeout = 3 * time.Second

// HTTPProber probes reachability with a HEAD request. Any HTTP response,
// whatever its status, counts as online; a transport error counts as
// offline.
type HTTPProber struct {
	URL    string
	Client *http.Client
}

// Compile-time check that HTTPProber implements Prober.
var _ Prober = (*HTTPProber)(nil)

// NewHTTPProber creates a prober for url with DefaultProbeTimeout.
func NewHTTPProber(url string) *HTTPProber {
	return &HTTPProber{
		URL:    url,
		Client: &http.Client{Timeout: DefaultProbeTimeout},
	}
}

// Probe issues one HEAD request.
func (p *HTTPProber) Probe(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, p.URL, nil)
	if err != nil {
		return false
	}
	client := p.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return true
}
