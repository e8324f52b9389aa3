package stats

// Noop is a no-op collector that discards all metrics.
// Useful for testing or when metrics are not needed.
type Noop struct{}

// Compile-time check that Noop implements Collector.
var _ Collector = (*Noop)(nil)

// NewNoop creates a new no-op collector.
func NewNoop() *Noop {
	return &Noop{}
}

func (n *Noop) IncCounter(name string, delta int64)         {}
func (n *Noop) SetGauge(name string, value int64)           {}
func (n *Noop) ObserveHistogram(name string, value float64) {}

// Multi fans every observation out to each of its collectors.
type Multi []Collector

// Compile-time check that Multi implements Collector.
var _ Collector = Multi(nil)

// NewMulti combines collectors, skipping nil entries.
func NewMulti(collectors ...Collector) Multi {
	m := make(Multi, 0, len(collectors))
	for _, c := range collectors {
		if c != nil {
			m = append(m, c)
		}
	}
	return m
}

func (m Multi) IncCounter(name string, delta int64) {
	for _, c := range m {
		c.IncCounter(name, delta)
	}
}

func (m Multi) SetGauge(name string, value int64) {
	for _, c := range m {
		c.SetGauge(name, value)
	}
}

func (m Multi) ObserveHistogram(name string, value float64) {
	for _, c := range m {
		c.ObserveHistogram(name, value)
	}
}
