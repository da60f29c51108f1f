package history

import (
	"context"
	"fmt"
	"time"
)

// Handle identifies one of the two slider handles.
type Handle int

const (
	HandleMin Handle = iota
	HandleMax
)

// RangeSelector models the dual-handle slider over the store's extent.
// Handle values are raw positions; the selection is always their sorted
// pair, so the handles may cross freely.
type RangeSelector struct {
	extent      StoreExtent
	handles     [2]int
	initialized bool
}

// NewRangeSelector returns an uninitialized selector.
func NewRangeSelector() *RangeSelector {
	return &RangeSelector{}
}

// Initialize queries the store once for its oldest visit and selects the
// full extent. An empty store gets a DefaultExtentDays synthetic extent.
func (s *RangeSelector) Initialize(ctx context.Context, store Store, now time.Time) error {
	oldest, err := store.QueryOldest(ctx)
	if err != nil {
		return fmt.Errorf("query oldest visit: %w: %w", ErrStoreUnavailable, err)
	}

	if oldest == nil {
		s.extent = StoreExtent{
			Earliest:   DaysAgoToDate(now, DefaultExtentDays),
			MaxDaysAgo: DefaultExtentDays,
			Empty:      true,
		}
	} else {
		earliest := Midnight(oldest.Time())
		days := DaysBetween(earliest, now)
		if days < 0 {
			days = 0
		}
		s.extent = StoreExtent{Earliest: earliest, MaxDaysAgo: days}
	}

	s.initialized = true
	s.Reset()
	return nil
}

// Initialized reports whether the extent is known.
func (s *RangeSelector) Initialized() bool {
	return s.initialized
}

// Extent returns the store extent.
func (s *RangeSelector) Extent() StoreExtent {
	return s.extent
}

// SetHandle moves one handle, clamped to [0, MaxDaysAgo], and reports
// whether the resulting selection changed.
func (s *RangeSelector) SetHandle(which Handle, value int) bool {
	before := s.Selection()
	s.handles[which] = s.clamp(value)
	return s.Selection() != before
}

// Handles returns the raw positions of the min and max handles.
func (s *RangeSelector) Handles() (int, int) {
	return s.handles[HandleMin], s.handles[HandleMax]
}

// Reset selects the full extent.
func (s *RangeSelector) Reset() {
	s.handles = [2]int{0, s.extent.MaxDaysAgo}
}

// Selection returns the normalized selection.
func (s *RangeSelector) Selection() TimeRange {
	a, b := s.handles[HandleMin], s.handles[HandleMax]
	if a > b {
		a, b = b, a
	}
	return TimeRange{Start: a, End: b}
}

// Tooltip returns the dd/mm/yy date a handle stands for: the newest day
// loaded for the handle nearer today, the oldest for the other. A selection
// that covers no day shows the raw handle date.
func (s *RangeSelector) Tooltip(which Handle, now time.Time) string {
	oldest, newest, ok := s.Selection().Days(now)
	if !ok {
		return FormatAbsolute(DaysAgoToDate(now, s.handles[which]))
	}
	if s.handles[which] <= s.handles[1-which] {
		return FormatAbsolute(newest)
	}
	return FormatAbsolute(oldest)
}

func (s *RangeSelector) clamp(v int) int {
	if v < 0 {
		return 0
	}
	if v > s.extent.MaxDaysAgo {
		return s.extent.MaxDaysAgo
	}
	return v
}
