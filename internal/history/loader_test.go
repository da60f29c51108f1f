package history

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// denseStore holds one visit at noon for each of the last n days.
func denseStore(n int) *fakeStore {
	s := &fakeStore{}
	for d := 0; d <= n; d++ {
		s.add(noonDaysAgo(d), "https://example.com/day", "Day visit")
	}
	return s
}

func TestBatchLoader_BeginBeforeOpen(t *testing.T) {
	l := NewBatchLoader()
	_, ok := l.Begin(2)
	assert.False(t, ok)
}

func TestBatchLoader_SingleFlight(t *testing.T) {
	l := NewBatchLoader()
	l.OpenWindow(DaysAgoToDate(testNow, 10), DaysAgoToDate(testNow, 0))

	_, ok := l.Begin(2)
	require.True(t, ok)
	assert.True(t, l.Loading())

	_, ok = l.Begin(2)
	assert.False(t, ok, "second request while one is outstanding")
}

func TestBatchLoader_ScenarioTwoToFiveDaysAgo(t *testing.T) {
	store := denseStore(10)
	floor, ceiling := TimeRange{Start: 2, End: 5}.Bounds(testNow)

	l := NewBatchLoader()
	l.OpenWindow(floor, ceiling)
	ctx := context.Background()
	var acc []Visit

	// First call: the 2-day slice nearest the ceiling.
	require.NoError(t, l.LoadNext(ctx, store, 2, &acc))
	assert.Equal(t, DaysAgoToDate(testNow, 4), l.Window().Frontier)
	assert.False(t, l.Exhausted())
	assert.Len(t, acc, 2)

	// Second call: the remaining 1-day slice down to the floor.
	require.NoError(t, l.LoadNext(ctx, store, 2, &acc))
	assert.Equal(t, floor, l.Window().Frontier)
	assert.True(t, l.Exhausted())
	assert.Len(t, acc, 3)

	// Third call: no-op.
	require.NoError(t, l.LoadNext(ctx, store, 2, &acc))
	assert.Len(t, acc, 3)
	assert.Len(t, store.queries, 2)

	assert.Equal(t, [2]int64{DaysAgoToDate(testNow, 4).UnixMicro(), ceiling.UnixMicro()}, store.queries[0])
	assert.Equal(t, [2]int64{floor.UnixMicro(), DaysAgoToDate(testNow, 4).UnixMicro()}, store.queries[1])
}

func TestBatchLoader_WindowsTileWithoutGapsOrOverlaps(t *testing.T) {
	for _, batch := range []int{1, 2, 3, 7} {
		store := denseStore(30)
		floor, ceiling := TimeRange{Start: 1, End: 24}.Bounds(testNow)

		l := NewBatchLoader()
		l.OpenWindow(floor, ceiling)
		var acc []Visit
		prev := l.Window().Frontier

		for !l.Exhausted() {
			require.NoError(t, l.LoadNext(context.Background(), store, batch, &acc))
			frontier := l.Window().Frontier
			assert.False(t, frontier.After(prev), "frontier must not move forward")
			assert.False(t, frontier.Before(floor), "frontier must not pass the floor")
			prev = frontier
		}

		require.NotEmpty(t, store.queries)
		assert.Equal(t, ceiling.UnixMicro(), store.queries[0][1], "batch=%d", batch)
		for i := 1; i < len(store.queries); i++ {
			assert.Equal(t, store.queries[i-1][0], store.queries[i][1], "batch=%d query=%d", batch, i)
		}
		assert.Equal(t, floor.UnixMicro(), store.queries[len(store.queries)-1][0], "batch=%d", batch)

		// One visit per day in [1, 24) days ago.
		assert.Len(t, acc, 23, "batch=%d", batch)
		seen := make(map[int64]bool)
		for _, v := range acc {
			assert.False(t, seen[v.TimestampMicros], "visit loaded twice")
			seen[v.TimestampMicros] = true
		}
	}
}

func TestBatchLoader_ExhaustedIsTerminal(t *testing.T) {
	store := denseStore(5)
	l := NewBatchLoader()
	l.OpenWindow(DaysAgoToDate(testNow, 2), DaysAgoToDate(testNow, -1))

	var acc []Visit
	for i := 0; i < 5; i++ {
		require.NoError(t, l.LoadNext(context.Background(), store, 2, &acc))
	}
	require.True(t, l.Exhausted())
	loaded := len(acc)
	queries := len(store.queries)

	require.NoError(t, l.LoadNext(context.Background(), store, 2, &acc))
	assert.Equal(t, loaded, len(acc))
	assert.Equal(t, queries, len(store.queries))
}

func TestBatchLoader_EmptyBatchExhausts(t *testing.T) {
	l := NewBatchLoader()
	l.OpenWindow(DaysAgoToDate(testNow, 365), DaysAgoToDate(testNow, -1))

	var acc []Visit
	require.NoError(t, l.LoadNext(context.Background(), &fakeStore{}, 2, &acc))
	assert.True(t, l.Exhausted())
	assert.Empty(t, acc)
}

func TestBatchLoader_FailureKeepsWindow(t *testing.T) {
	store := denseStore(10)
	store.failNext = 1

	l := NewBatchLoader()
	ceiling := DaysAgoToDate(testNow, -1)
	l.OpenWindow(DaysAgoToDate(testNow, 10), ceiling)

	var acc []Visit
	err := l.LoadNext(context.Background(), store, 2, &acc)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrStoreUnavailable))
	assert.Equal(t, ceiling, l.Window().Frontier)
	assert.False(t, l.Exhausted())
	assert.False(t, l.Loading())

	require.NoError(t, l.LoadNext(context.Background(), store, 2, &acc))
	require.Len(t, store.queries, 2)
	assert.Equal(t, store.queries[0], store.queries[1], "retry must reissue the same slice")
	assert.NotEmpty(t, acc)
}

func TestBatchLoader_StaleGenerationRejected(t *testing.T) {
	store := denseStore(10)
	l := NewBatchLoader()
	l.OpenWindow(DaysAgoToDate(testNow, 10), DaysAgoToDate(testNow, -1))

	old, ok := l.Begin(2)
	require.True(t, ok)
	oldResult := old.Do(context.Background(), store)

	l.OpenWindow(DaysAgoToDate(testNow, 5), DaysAgoToDate(testNow, 2))
	visits, err := l.Complete(oldResult)
	assert.ErrorIs(t, err, ErrStaleResult)
	assert.Nil(t, visits)
	assert.False(t, l.Loading())
}

func TestBatchLoader_ClipsToWindow(t *testing.T) {
	floor := DaysAgoToDate(testNow, 4)
	ceiling := DaysAgoToDate(testNow, 2)
	l := NewBatchLoader()
	l.OpenWindow(floor, ceiling)

	req, ok := l.Begin(2)
	require.True(t, ok)

	// A coarse store returns neighbours outside the window.
	res := BatchResult{Request: req, Visits: []Visit{
		{URL: "https://inside.example", TimestampMicros: noonDaysAgo(3).UnixMicro()},
		{URL: "https://ceiling.example", TimestampMicros: ceiling.UnixMicro()},
		{URL: "https://below.example", TimestampMicros: floor.Add(-time.Second).UnixMicro()},
	}}
	visits, err := l.Complete(res)
	require.NoError(t, err)
	require.Len(t, visits, 1)
	assert.Equal(t, "https://inside.example", visits[0].URL)
}

func TestBatchLoader_ZeroWidthWindowIsExhausted(t *testing.T) {
	l := NewBatchLoader()
	d := DaysAgoToDate(testNow, 3)
	l.OpenWindow(d, d)
	assert.True(t, l.Exhausted())
	_, ok := l.Begin(2)
	assert.False(t, ok)
}
