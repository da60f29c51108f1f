package history

import (
	"context"
	"time"
)

// Visit is one record from the history store. Visits are never mutated
// after being fetched; views copy or filter them.
type Visit struct {
	ID              string
	URL             string
	Title           string
	TimestampMicros int64
}

// Time returns the visit timestamp in the local time zone.
func (v Visit) Time() time.Time {
	return time.UnixMicro(v.TimestampMicros).Local()
}

// DisplayTitle returns the title, falling back to the URL when empty.
func (v Visit) DisplayTitle() string {
	if v.Title == "" {
		return v.URL
	}
	return v.Title
}

// Store is the query contract the engine needs from a history store.
type Store interface {
	// QueryOldest returns the single most distant visit, or nil when the
	// store is empty.
	QueryOldest(ctx context.Context) (*Visit, error)

	// QueryRange returns visits with timestamps in [beginMicros, endMicros)
	// in descending time order. maxResults <= 0 means unbounded.
	QueryRange(ctx context.Context, beginMicros, endMicros int64, maxResults int) ([]Visit, error)

	// Remove deletes every visit whose URL matches one of urls.
	Remove(ctx context.Context, urls ...string) (int64, error)
}

// Summary is the display-ready form of a visit.
type Summary struct {
	Title        string `json:"title"`
	URL          string `json:"url"`
	AbsoluteDate string `json:"date"`
	TimeOfDay    string `json:"time"`
}

// Summarize converts a visit into its display form.
func Summarize(v Visit) Summary {
	t := v.Time()
	return Summary{
		Title:        v.DisplayTitle(),
		URL:          v.URL,
		AbsoluteDate: FormatAbsolute(t),
		TimeOfDay:    FormatTimeOfDay(t),
	}
}

// DateSection groups the visits of one calendar day under a relative label.
type DateSection struct {
	Label   string    `json:"label"`
	Day     time.Time `json:"day"`
	Records []Visit   `json:"-"`
}

// Summaries returns the section's records in display form.
func (s DateSection) Summaries() []Summary {
	out := make([]Summary, len(s.Records))
	for i, v := range s.Records {
		out[i] = Summarize(v)
	}
	return out
}
