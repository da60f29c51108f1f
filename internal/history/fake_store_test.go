package history

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"
)

var errStoreDown = errors.New("store down")

// fakeStore is an in-memory Store that records every range it was asked for.
type fakeStore struct {
	visits   []Visit
	queries  [][2]int64
	failNext int
	failOld  bool
}

func (s *fakeStore) add(t time.Time, url, title string) {
	s.visits = append(s.visits, Visit{
		ID:              fmt.Sprintf("v%d", len(s.visits)+1),
		URL:             url,
		Title:           title,
		TimestampMicros: t.UnixMicro(),
	})
}

func (s *fakeStore) QueryOldest(ctx context.Context) (*Visit, error) {
	if s.failOld {
		return nil, errStoreDown
	}
	if len(s.visits) == 0 {
		return nil, nil
	}
	oldest := s.visits[0]
	for _, v := range s.visits[1:] {
		if v.TimestampMicros < oldest.TimestampMicros {
			oldest = v
		}
	}
	return &oldest, nil
}

func (s *fakeStore) QueryRange(ctx context.Context, begin, end int64, max int) ([]Visit, error) {
	s.queries = append(s.queries, [2]int64{begin, end})
	if s.failNext > 0 {
		s.failNext--
		return nil, errStoreDown
	}
	var out []Visit
	for _, v := range s.visits {
		if v.TimestampMicros >= begin && v.TimestampMicros < end {
			out = append(out, v)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TimestampMicros > out[j].TimestampMicros })
	if max > 0 && len(out) > max {
		out = out[:max]
	}
	return out, nil
}

func (s *fakeStore) Remove(ctx context.Context, urls ...string) (int64, error) {
	drop := make(map[string]bool, len(urls))
	for _, u := range urls {
		drop[u] = true
	}
	kept := s.visits[:0]
	var n int64
	for _, v := range s.visits {
		if drop[v.URL] {
			n++
			continue
		}
		kept = append(kept, v)
	}
	s.visits = kept
	return n, nil
}

// testNow is a fixed mid-afternoon clock shared by the engine tests.
var testNow = time.Date(2026, time.March, 18, 14, 30, 0, 0, time.Local)

func fixedClock() time.Time { return testNow }

// noonDaysAgo returns noon local time n days before testNow.
func noonDaysAgo(n int) time.Time {
	return DaysAgoToDate(testNow, n).Add(12 * time.Hour)
}
