package history

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// State is the feed's loading state for the active selection.
type State int

const (
	StateIdle State = iota
	StateLoading
	StateExhausted
	StateError
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StateExhausted:
		return "exhausted"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// Reference selects the date section labels are computed against.
type Reference int

const (
	// ReferenceToday labels sections relative to today's midnight.
	ReferenceToday Reference = iota
	// ReferenceCeiling labels sections relative to the most recent day of
	// the active selection.
	ReferenceCeiling
)

// ParseReference maps a config value to a Reference, defaulting to today.
func ParseReference(s string) Reference {
	if s == "ceiling" {
		return ReferenceCeiling
	}
	return ReferenceToday
}

// Option configures a Feed.
type Option func(*Feed)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(f *Feed) { f.now = now }
}

// WithBatchDays sets the width of each backward fetch.
func WithBatchDays(days int) Option {
	return func(f *Feed) {
		if days > 0 {
			f.batchDays = days
		}
	}
}

// WithLogger sets the parent logger.
func WithLogger(log zerolog.Logger) Option {
	return func(f *Feed) { f.log = log }
}

// WithReference sets how section labels are anchored.
func WithReference(ref Reference) Option {
	return func(f *Feed) { f.reference = ref }
}

// Feed owns the visits loaded for the active selection and turns them into
// date sections. All methods must be called from a single goroutine; only
// BatchRequest.Do may run elsewhere, with its result handed back to Apply.
type Feed struct {
	store     Store
	now       func() time.Time
	batchDays int
	reference Reference
	log       zerolog.Logger
	session   string

	selector *RangeSelector
	loader   *BatchLoader

	active    TimeRange
	hasActive bool
	records   []Visit
	query     string
	state     State
	err       error
}

// NewFeed builds a feed over store. Call Open before anything else.
func NewFeed(store Store, opts ...Option) *Feed {
	f := &Feed{
		store:     store,
		now:       time.Now,
		batchDays: DefaultBatchDays,
		log:       zerolog.Nop(),
		session:   uuid.NewString(),
		selector:  NewRangeSelector(),
		loader:    NewBatchLoader(),
	}
	for _, opt := range opts {
		opt(f)
	}
	f.log = f.log.With().Str("component", "feed").Str("session", f.session).Logger()
	return f
}

// Session returns the feed's session id.
func (f *Feed) Session() string {
	return f.session
}

// Open discovers the store extent, selects all of it and returns the first
// batch request. A store failure leaves the feed in StateError; Open may be
// called again to retry.
func (f *Feed) Open(ctx context.Context) (BatchRequest, bool, error) {
	if err := f.selector.Initialize(ctx, f.store, f.now()); err != nil {
		f.state = StateError
		f.err = err
		f.log.Warn().Err(err).Msg("store extent unavailable")
		return BatchRequest{}, false, err
	}

	ext := f.selector.Extent()
	f.log.Debug().
		Int("max_days_ago", ext.MaxDaysAgo).
		Bool("empty", ext.Empty).
		Msg("store extent")

	f.hasActive = false
	req, ok := f.CommitSelection()
	return req, ok, nil
}

// SetHandle moves a slider handle. Only the visual selection changes; call
// CommitSelection once input settles to reload.
func (f *Feed) SetHandle(which Handle, value int) bool {
	return f.selector.SetHandle(which, value)
}

// ResetSelection moves the handles back to the full extent.
func (f *Feed) ResetSelection() {
	f.selector.Reset()
}

// CommitSelection reloads from scratch if the selection differs from the
// active one: loaded visits are dropped, a new window generation is opened
// and its first request returned.
func (f *Feed) CommitSelection() (BatchRequest, bool) {
	if !f.selector.Initialized() {
		return BatchRequest{}, false
	}
	sel := f.selector.Selection()
	if f.hasActive && sel == f.active {
		return BatchRequest{}, false
	}
	return f.reopen(sel)
}

// Reload reopens the active selection unconditionally.
func (f *Feed) Reload() (BatchRequest, bool) {
	if !f.selector.Initialized() {
		return BatchRequest{}, false
	}
	return f.reopen(f.selector.Selection())
}

func (f *Feed) reopen(sel TimeRange) (BatchRequest, bool) {
	floor, ceiling := sel.Bounds(f.now())
	gen := f.loader.OpenWindow(floor, ceiling)

	f.active = sel
	f.hasActive = true
	f.records = nil
	f.err = nil

	f.log.Debug().
		Uint64("generation", gen).
		Stringer("selection", sel).
		Time("floor", floor).
		Time("ceiling", ceiling).
		Msg("window opened")

	req, ok := f.loader.Begin(f.batchDays)
	if !ok {
		f.state = StateExhausted
		return BatchRequest{}, false
	}
	f.state = StateLoading
	return req, true
}

// RequestMore asks for the next batch. It only does anything while idle.
func (f *Feed) RequestMore() (BatchRequest, bool) {
	if f.state != StateIdle {
		return BatchRequest{}, false
	}
	req, ok := f.loader.Begin(f.batchDays)
	if !ok {
		if f.loader.Exhausted() {
			f.state = StateExhausted
		}
		return BatchRequest{}, false
	}
	f.state = StateLoading
	return req, true
}

// Retry reissues the window that failed. It only does anything in
// StateError after a successful Open.
func (f *Feed) Retry() (BatchRequest, bool) {
	if f.state != StateError || !f.hasActive {
		return BatchRequest{}, false
	}
	f.loader.Abandon()
	req, ok := f.loader.Begin(f.batchDays)
	if !ok {
		return BatchRequest{}, false
	}
	f.state = StateLoading
	f.err = nil
	f.log.Debug().Time("begin", req.Begin).Time("end", req.End).Msg("retrying batch")
	return req, true
}

// Apply folds a batch result into the feed. It returns false when the
// result belonged to a superseded window and was dropped.
func (f *Feed) Apply(res BatchResult) bool {
	visits, err := f.loader.Complete(res)
	if errors.Is(err, ErrStaleResult) {
		f.log.Debug().
			Uint64("generation", res.Request.Generation).
			Uint64("current", f.loader.Generation()).
			Msg("dropping stale batch")
		return false
	}
	if err != nil {
		f.state = StateError
		f.err = err
		f.log.Warn().Err(err).Msg("batch failed")
		return true
	}

	f.records = append(f.records, visits...)
	if f.loader.Exhausted() {
		f.state = StateExhausted
	} else {
		f.state = StateIdle
	}

	f.log.Debug().
		Int("batch", len(visits)).
		Int("loaded", len(f.records)).
		Stringer("state", f.state).
		Msg("batch applied")
	return true
}

// Load runs req against the feed's store on the calling goroutine and
// applies the result.
func (f *Feed) Load(ctx context.Context, req BatchRequest) bool {
	return f.Apply(req.Do(ctx, f.store))
}

// SetQuery sets the live search query. Blank clears it.
func (f *Feed) SetQuery(q string) {
	f.query = q
}

// Query returns the live search query.
func (f *Feed) Query() string {
	return f.query
}

// Forget drops loaded visits for urls, typically after the caller removed
// them from the store.
func (f *Feed) Forget(urls ...string) int {
	if len(urls) == 0 {
		return 0
	}
	drop := make(map[string]struct{}, len(urls))
	for _, u := range urls {
		drop[u] = struct{}{}
	}
	kept := f.records[:0:0]
	for _, v := range f.records {
		if _, ok := drop[v.URL]; !ok {
			kept = append(kept, v)
		}
	}
	n := len(f.records) - len(kept)
	f.records = kept
	return n
}

// State returns the loading state.
func (f *Feed) State() State { return f.state }

// Err returns the error behind StateError.
func (f *Feed) Err() error { return f.err }

// Selection returns the visual selection, which may be ahead of Active
// while slider input is settling.
func (f *Feed) Selection() TimeRange { return f.selector.Selection() }

// Active returns the selection the loaded visits belong to.
func (f *Feed) Active() TimeRange { return f.active }

// Extent returns the store extent found by Open.
func (f *Feed) Extent() StoreExtent { return f.selector.Extent() }

// Handles returns the raw slider handle positions.
func (f *Feed) Handles() (int, int) { return f.selector.Handles() }

// Tooltip returns the date under a slider handle.
func (f *Feed) Tooltip(which Handle) string { return f.selector.Tooltip(which, f.now()) }

// SelectedDays returns the oldest and newest days covered by the visual
// selection; ok is false when it covers none.
func (f *Feed) SelectedDays() (oldest, newest time.Time, ok bool) {
	return f.selector.Selection().Days(f.now())
}

// Window returns the batch window of the active selection.
func (f *Feed) Window() BatchWindow { return f.loader.Window() }

// Records returns the loaded visits in load order.
func (f *Feed) Records() []Visit {
	out := make([]Visit, len(f.records))
	copy(out, f.records)
	return out
}

// View is the render-ready snapshot of a feed.
type View struct {
	Sections  []DateSection
	Selection TimeRange
	Extent    StoreExtent
	Query     string
	State     State
	Err       error
	Loading   bool
	Exhausted bool
	Errored   bool
	Empty     bool
	Total     int
	Shown     int
}

// View regroups the loaded visits, or the search matches among them while a
// query is set, against a single reference date.
func (f *Feed) View() View {
	shown := Filter(f.records, f.query)
	sections := Group(shown, f.referenceDate())
	return View{
		Sections:  sections,
		Selection: f.active,
		Extent:    f.selector.Extent(),
		Query:     f.query,
		State:     f.state,
		Err:       f.err,
		Loading:   f.state == StateLoading,
		Exhausted: f.state == StateExhausted,
		Errored:   f.state == StateError,
		Empty:     f.state == StateExhausted && len(f.records) == 0,
		Total:     len(f.records),
		Shown:     len(shown),
	}
}

func (f *Feed) referenceDate() time.Time {
	now := f.now()
	if f.reference == ReferenceCeiling && f.hasActive {
		return DaysAgoToDate(now, f.active.Start)
	}
	return Midnight(now)
}

// Group partitions visits by local calendar day. Sections come out newest
// first, as do the visits inside each one; every label is computed against
// reference.
func Group(visits []Visit, reference time.Time) []DateSection {
	index := make(map[int64]int)
	var sections []DateSection

	for _, v := range visits {
		day := Midnight(v.Time())
		i, ok := index[day.Unix()]
		if !ok {
			i = len(sections)
			index[day.Unix()] = i
			sections = append(sections, DateSection{
				Label: FormatRelativeLabel(day, reference),
				Day:   day,
			})
		}
		sections[i].Records = append(sections[i].Records, v)
	}

	for i := range sections {
		recs := sections[i].Records
		sort.SliceStable(recs, func(a, b int) bool {
			return recs[a].TimestampMicros > recs[b].TimestampMicros
		})
	}
	sort.SliceStable(sections, func(a, b int) bool {
		return sections[a].Records[0].TimestampMicros > sections[b].Records[0].TimestampMicros
	})
	return sections
}
