package history

import "time"

const (
	DefaultScrollThrottle  = 100 * time.Millisecond
	DefaultScrollThreshold = 200
)

// Metrics are a viewport's scroll position and sizes, in whatever unit the
// host measures (pixels for a browser, rows for a terminal).
type Metrics struct {
	ScrollTop    int
	ClientHeight int
	ScrollHeight int
}

// Remaining is the distance from the bottom of the viewport to the end of
// the content.
func (m Metrics) Remaining() int {
	return m.ScrollHeight - m.ScrollTop - m.ClientHeight
}

// ScrollGate asks a feed for more visits when the viewport nears the end of
// the rendered content. Checks are throttled; overlapping requests are
// prevented by the feed's own state guard.
type ScrollGate struct {
	feed      *Feed
	interval  time.Duration
	threshold int
	last      time.Time
	pending   bool
}

// NewScrollGate builds a gate for feed. Zero values select the defaults.
func NewScrollGate(feed *Feed, interval time.Duration, threshold int) *ScrollGate {
	if interval <= 0 {
		interval = DefaultScrollThrottle
	}
	if threshold <= 0 {
		threshold = DefaultScrollThreshold
	}
	return &ScrollGate{feed: feed, interval: interval, threshold: threshold}
}

// Observe records a scroll position and returns the next batch request if
// one should be issued. A check swallowed by the throttle leaves the gate
// pending until the next check that gets through.
func (g *ScrollGate) Observe(m Metrics) (BatchRequest, bool) {
	now := g.feed.now()
	if !g.last.IsZero() && now.Sub(g.last) < g.interval {
		g.pending = true
		return BatchRequest{}, false
	}
	g.last = now
	g.pending = false

	if m.Remaining() >= g.threshold || g.feed.State() != StateIdle {
		return BatchRequest{}, false
	}
	return g.feed.RequestMore()
}

// Deferred reports whether a throttled check is waiting and how long until
// Observe will accept it. Hosts re-observe after the delay so that the last
// scroll position of a burst is not lost.
func (g *ScrollGate) Deferred() (time.Duration, bool) {
	if !g.pending {
		return 0, false
	}
	return max(0, g.interval-g.feed.now().Sub(g.last)), true
}
