package history

import (
	"context"
	"fmt"
	"time"
)

// DefaultBatchDays is the width of one backward fetch. Small windows keep a
// single query cheap against dense history.
const DefaultBatchDays = 2

// BatchWindow is the time slice being paged through. Frontier starts at
// Ceiling and moves toward Floor as batches are consumed.
type BatchWindow struct {
	Floor    time.Time
	Ceiling  time.Time
	Frontier time.Time
}

// BatchRequest is one pending fetch of [Begin, End).
type BatchRequest struct {
	Generation uint64
	Begin      time.Time
	End        time.Time
}

// BatchResult carries the outcome of a BatchRequest back to the loader.
type BatchResult struct {
	Request BatchRequest
	Visits  []Visit
	Err     error
}

// Do runs the request against store. It reads no loader state and may run
// on any goroutine.
func (r BatchRequest) Do(ctx context.Context, store Store) BatchResult {
	visits, err := store.QueryRange(ctx, r.Begin.UnixMicro(), r.End.UnixMicro(), 0)
	return BatchResult{Request: r, Visits: visits, Err: err}
}

// BatchLoader pages backward through a window, one request at a time.
type BatchLoader struct {
	window     BatchWindow
	generation uint64
	pending    *BatchRequest
	exhausted  bool
	opened     bool
}

// NewBatchLoader returns a loader with no open window.
func NewBatchLoader() *BatchLoader {
	return &BatchLoader{}
}

// OpenWindow starts paging [floor, ceiling) from the ceiling down. Any
// outstanding request belongs to the previous generation from here on.
func (l *BatchLoader) OpenWindow(floor, ceiling time.Time) uint64 {
	if ceiling.Before(floor) {
		floor, ceiling = ceiling, floor
	}
	l.generation++
	l.window = BatchWindow{Floor: floor, Ceiling: ceiling, Frontier: ceiling}
	l.pending = nil
	l.exhausted = !floor.Before(ceiling)
	l.opened = true
	return l.generation
}

// Window returns the current window.
func (l *BatchLoader) Window() BatchWindow {
	return l.window
}

// Generation returns the id of the current window.
func (l *BatchLoader) Generation() uint64 {
	return l.generation
}

// Loading reports whether a request is outstanding.
func (l *BatchLoader) Loading() bool {
	return l.pending != nil
}

// Exhausted reports whether the window has been fully consumed.
func (l *BatchLoader) Exhausted() bool {
	return l.exhausted
}

// Begin reserves the next slice of batchDays below the frontier. It returns
// false while a request is outstanding, once the window is exhausted, or
// before any window is open.
func (l *BatchLoader) Begin(batchDays int) (BatchRequest, bool) {
	if !l.opened || l.pending != nil || l.exhausted {
		return BatchRequest{}, false
	}
	if batchDays <= 0 {
		batchDays = DefaultBatchDays
	}

	next := l.window.Frontier.AddDate(0, 0, -batchDays)
	if next.Before(l.window.Floor) {
		next = l.window.Floor
	}

	req := BatchRequest{
		Generation: l.generation,
		Begin:      next,
		End:        l.window.Frontier,
	}
	l.pending = &req
	return req, true
}

// Abandon releases the outstanding request without touching the frontier,
// so the next Begin reissues the identical slice.
func (l *BatchLoader) Abandon() {
	l.pending = nil
}

// Complete applies a result. Results for another generation, or for a
// request that is no longer pending, return ErrStaleResult. A failed fetch
// returns an ErrStoreUnavailable error and leaves the frontier where it was.
// On success the visits clipped to the window are returned and the frontier
// advances to the request's Begin.
func (l *BatchLoader) Complete(res BatchResult) ([]Visit, error) {
	if res.Request.Generation != l.generation || l.pending == nil ||
		!l.pending.Begin.Equal(res.Request.Begin) || !l.pending.End.Equal(res.Request.End) {
		return nil, ErrStaleResult
	}
	l.pending = nil

	if res.Err != nil {
		return nil, fmt.Errorf("fetch %s..%s: %w: %w",
			res.Request.Begin.Format(time.DateOnly), res.Request.End.Format(time.DateOnly),
			ErrStoreUnavailable, res.Err)
	}

	clipped := l.clip(res.Visits)
	l.window.Frontier = res.Request.Begin
	l.exhausted = l.window.Frontier.Equal(l.window.Floor) || len(clipped) == 0
	return clipped, nil
}

// LoadNext runs one batch synchronously and appends the clipped visits to
// acc. It is a no-op while loading or once exhausted.
func (l *BatchLoader) LoadNext(ctx context.Context, store Store, batchDays int, acc *[]Visit) error {
	req, ok := l.Begin(batchDays)
	if !ok {
		return nil
	}
	visits, err := l.Complete(req.Do(ctx, store))
	if err != nil {
		return err
	}
	*acc = append(*acc, visits...)
	return nil
}

// clip keeps visits inside [Floor, Ceiling); stores whose range queries are
// coarser than a day may return neighbours.
func (l *BatchLoader) clip(visits []Visit) []Visit {
	lo := l.window.Floor.UnixMicro()
	hi := l.window.Ceiling.UnixMicro()
	out := make([]Visit, 0, len(visits))
	for _, v := range visits {
		if v.TimestampMicros >= lo && v.TimestampMicros < hi {
			out = append(out, v)
		}
	}
	return out
}
