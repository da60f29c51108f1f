package storage

import (
	"time"

	"github.com/runnerr0/histfeed/internal/history"
)

// Visit is a stored page visit with its capture metadata.
type Visit struct {
	ID        string
	URL       string
	Title     string
	Domain    string
	Timestamp time.Time
	Source    string // "manual", "places", "extension"
	Browser   string
}

// Record converts the stored visit to the engine's record type.
func (v Visit) Record() history.Visit {
	return history.Visit{
		ID:              v.ID,
		URL:             v.URL,
		Title:           v.Title,
		TimestampMicros: v.Timestamp.UnixMicro(),
	}
}

// ImportPosition is the last source row an import committed: its visit
// time, then its row id to order visits sharing a timestamp.
type ImportPosition struct {
	Micros int64
	RowID  int64
}

// SearchQuery defines filters for a range-scoped substring search.
type SearchQuery struct {
	Query  string
	Domain string
	Since  time.Time
	Until  time.Time
	Limit  int
}

// Stats holds aggregate statistics about the database.
type Stats struct {
	TotalVisits    int64
	DistinctURLs   int64
	OldestVisit    time.Time
	NewestVisit    time.Time
	TopDomains     []DomainCount
	ExclusionRules int64
}

// DomainCount pairs a domain with its visit count.
type DomainCount struct {
	Domain string
	Count  int64
}
