package history

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDaysAgoToDate_StableWithinDay(t *testing.T) {
	morning := time.Date(2026, time.March, 18, 0, 0, 1, 0, time.Local)
	evening := time.Date(2026, time.March, 18, 23, 59, 59, 999, time.Local)

	for n := 0; n < 40; n++ {
		assert.Equal(t, DaysAgoToDate(morning, n), DaysAgoToDate(evening, n), "n=%d", n)
	}
}

func TestDaysAgoToDate_Midnight(t *testing.T) {
	d := DaysAgoToDate(testNow, 3)
	assert.Equal(t, 15, d.Day())
	assert.Equal(t, 0, d.Hour())
	assert.Equal(t, 0, d.Minute())
	assert.Equal(t, time.March, d.Month())
}

func TestDaysAgoToDate_CrossesMonth(t *testing.T) {
	d := DaysAgoToDate(testNow, 20)
	assert.Equal(t, time.February, d.Month())
	assert.Equal(t, 26, d.Day())
}

func TestDaysBetween_IgnoresTimeOfDay(t *testing.T) {
	a := time.Date(2026, time.March, 10, 23, 59, 0, 0, time.Local)
	b := time.Date(2026, time.March, 11, 0, 1, 0, 0, time.Local)
	assert.Equal(t, 1, DaysBetween(a, b))
	assert.Equal(t, -1, DaysBetween(b, a))
	assert.Equal(t, 0, DaysBetween(a, a))
}

func TestFormatRelativeLabel_Thresholds(t *testing.T) {
	ref := Midnight(testNow)

	tests := []struct {
		days     int
		expected string
	}{
		{0, "Today"},
		{1, "1 day ago"},
		{2, "2 days ago"},
		{6, "6 days ago"},
		{7, "1 week ago"},
		{13, "1 week ago"},
		{14, "2 weeks ago"},
		{27, "3 weeks ago"},
		{28, "1 month ago"},
		{59, "1 month ago"},
		{60, "2 months ago"},
		{364, "12 months ago"},
		{365, "1 year ago"},
		{729, "1 year ago"},
		{730, "2 years ago"},
		{1100, "3 years ago"},
	}

	for _, tc := range tests {
		date := DaysAgoToDate(testNow, tc.days).Add(9 * time.Hour)
		assert.Equal(t, tc.expected, FormatRelativeLabel(date, ref), "days=%d", tc.days)
	}
}

func TestFormatRelativeLabel_FutureIsToday(t *testing.T) {
	ref := Midnight(testNow)
	assert.Equal(t, "Today", FormatRelativeLabel(ref.AddDate(0, 0, 2), ref))
}

func TestFormatRelativeLabel_SameDaySameLabel(t *testing.T) {
	ref := Midnight(testNow)
	early := DaysAgoToDate(testNow, 9).Add(time.Minute)
	late := DaysAgoToDate(testNow, 9).Add(23 * time.Hour)
	assert.Equal(t, FormatRelativeLabel(early, ref), FormatRelativeLabel(late, ref))
}

func TestFormatAbsolute(t *testing.T) {
	d := time.Date(2026, time.January, 5, 8, 7, 0, 0, time.Local)
	assert.Equal(t, "05/01/26", FormatAbsolute(d))
	assert.Equal(t, "08:07", FormatTimeOfDay(d))
}

func TestTimeRange_Bounds(t *testing.T) {
	floor, ceiling := TimeRange{Start: 2, End: 5}.Bounds(testNow)
	assert.Equal(t, DaysAgoToDate(testNow, 5), floor)
	assert.Equal(t, DaysAgoToDate(testNow, 2), ceiling)

	// A range starting today reaches to tomorrow's midnight.
	_, ceiling = TimeRange{Start: 0, End: 3}.Bounds(testNow)
	assert.Equal(t, DaysAgoToDate(testNow, -1), ceiling)
	assert.True(t, ceiling.After(testNow))
}

func TestTimeRange_Days(t *testing.T) {
	oldest, newest, ok := TimeRange{Start: 2, End: 5}.Days(testNow)
	require.True(t, ok)
	assert.Equal(t, "13/03/26", FormatAbsolute(oldest))
	assert.Equal(t, "15/03/26", FormatAbsolute(newest))

	oldest, newest, ok = TimeRange{Start: 0, End: 0}.Days(testNow)
	require.True(t, ok)
	assert.Equal(t, Midnight(testNow), oldest)
	assert.Equal(t, Midnight(testNow), newest)

	oldest, newest, ok = TimeRange{Start: 4, End: 5}.Days(testNow)
	require.True(t, ok)
	assert.Equal(t, oldest, newest)

	_, _, ok = TimeRange{Start: 5, End: 5}.Days(testNow)
	assert.False(t, ok, "the ceiling is exclusive")
}
