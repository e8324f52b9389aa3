package strategy

import (
	"net/http"

	"github.com/3vilTid/Catalogue-Web-App/internal/stats"
)

// Passthrough forwards requests untouched.
type Passthrough struct {
	Env *Env
}

// Compile-time check that Passthrough implements Strategy.
var _ Strategy = (*Passthrough)(nil)

func (p *Passthrough) Kind() Kind { return KindPassthrough }

// RoundTrip forwards req to the network.
func (p *Passthrough) RoundTrip(req *http.Request) (*http.Response, error) {
	p.Env.Stats.IncCounter(stats.MetricPassthrough, 1)
	return p.Env.Next.RoundTrip(req)
}
