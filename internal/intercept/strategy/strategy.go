// Package strategy implements the per-request caching strategies used by
// the interception layer.
package strategy

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/3vilTid/Catalogue-Web-App/internal/partition"
	"github.com/3vilTid/Catalogue-Web-App/internal/stats"
)

// Kind names a strategy.
type Kind int

const (
	KindPassthrough Kind = iota
	KindNetworkFirst
	KindCacheFirst
	KindStaleWhileRevalidate
)

var kindNames = map[Kind]string{
	KindPassthrough:          "passthrough",
	KindNetworkFirst:         "network-first",
	KindCacheFirst:           "cache-first",
	KindStaleWhileRevalidate: "stale-while-revalidate",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// ParseKind returns the Kind named s.
func ParseKind(s string) (Kind, error) {
	for k, name := range kindNames {
		if strings.EqualFold(s, name) {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown strategy %q", s)
}

// Strategy answers one class of requests.
type Strategy interface {
	http.RoundTripper
	Kind() Kind
}

// Env carries what every strategy needs.
type Env struct {
	// Next performs the real network fetch.
	Next    http.RoundTripper
	Storage partition.Storage
	Logger  *zap.Logger
	Stats   stats.Collector
	Now     func() time.Time

	// Detach runs fn in the background with a context that outlives the
	// request. Its outcome is only visible through later cache reads.
	Detach func(ctx context.Context, fn func(ctx context.Context))
}

// fetch performs the network round trip and records its latency.
func (e *Env) fetch(req *http.Request) (*http.Response, error) {
	start := e.Now()
	resp, err := e.Next.RoundTrip(req)
	e.Stats.ObserveHistogram(stats.MetricFetchSeconds, e.Now().Sub(start).Seconds())
	if err != nil {
		e.Stats.IncCounter(stats.MetricNetworkFailures, 1)
	}
	return resp, err
}

// store writes entry into the named partition in the background.
func (e *Env) store(req *http.Request, name string, entry *partition.Entry) {
	e.Detach(req.Context(), func(ctx context.Context) {
		cache, err := e.Storage.Open(ctx, name)
		if err == nil {
			err = cache.Put(ctx, req, entry)
		}
		if err != nil {
			e.Stats.IncCounter(stats.MetricBackgroundErrors, 1)
			e.Logger.Warn("caching response failed",
				zap.String("partition", name),
				zap.String("url", req.URL.String()),
				zap.Error(err),
			)
		}
	})
}

// OfflineBody is the body of the synthesized offline response.
const OfflineBody = "Offline - Content not available"

// Offline synthesizes the 503 returned when neither network nor cache can
// answer req.
func Offline(req *http.Request) *http.Response {
	return synthesize(req, http.StatusServiceUnavailable, "text/plain", OfflineBody)
}

const offlinePage = "<html><body><h1>Offline</h1><p>You are currently offline. Please check your internet connection.</p></body></html>"

// OfflinePage synthesizes the HTML page served by CacheFirst when nothing
// else is available.
func OfflinePage(req *http.Request) *http.Response {
	return synthesize(req, http.StatusOK, "text/html", offlinePage)
}

func synthesize(req *http.Request, status int, contentType, body string) *http.Response {
	return &http.Response{
		Status:        fmt.Sprintf("%d %s", status, http.StatusText(status)),
		StatusCode:    status,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        http.Header{"Content-Type": {contentType}},
		Body:          io.NopCloser(strings.NewReader(body)),
		ContentLength: int64(len(body)),
		Request:       req,
	}
}
