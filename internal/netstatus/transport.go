package netstatus

import (
	"fmt"
	"net/http"

	"github.com/3vilTid/Catalogue-Web-App/internal/fault"
)

// ErrOffline is returned by a Transport while its monitor reports offline.
var ErrOffline = fmt.Errorf("%w: offline", fault.ErrNetworkFailure)

// Transport fails requests fast while a Monitor reports offline and sends
// them through Next otherwise.
type Transport struct {
	Monitor *Monitor
	// Next defaults to http.DefaultTransport.
	Next http.RoundTripper
}

// Compile-time check that Transport implements http.RoundTripper.
var _ http.RoundTripper = (*Transport)(nil)

// RoundTrip implements http.RoundTripper.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.Monitor != nil && !t.Monitor.IsOnline() {
		if req.Body != nil {
			req.Body.Close()
		}
		return nil, fmt.Errorf("%s %s: %w", req.Method, req.URL.Redacted(), ErrOffline)
	}
	next := t.Next
	if next == nil {
		next = http.DefaultTransport
	}
	return next.RoundTrip(req)
}
