// Package places imports visit history from a Firefox places.sqlite file.
package places

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"

	"github.com/runnerr0/histfeed/internal/storage"
)

// Source is the storage source tag for imported visits.
const Source = "places"

// DefaultBatchSize is how many visits are written per transaction.
const DefaultBatchSize = 500

// Sink receives imported visits and remembers how far each file was read.
type Sink interface {
	AddVisits(ctx context.Context, visits []storage.Visit) (int, error)
	ImportCursor(ctx context.Context, source string) (storage.ImportPosition, error)
	SetImportCursor(ctx context.Context, source string, pos storage.ImportPosition) error
}

// Result summarises one import run.
type Result struct {
	Scanned int
	Added   int
	Skipped int
	Cursor  int64
}

// Importer copies visits out of places.sqlite into a Sink.
type Importer struct {
	sink      Sink
	log       zerolog.Logger
	batchSize int
	browser   string
}

// NewImporter creates an Importer writing to sink.
func NewImporter(sink Sink, log zerolog.Logger) *Importer {
	return &Importer{
		sink:      sink,
		log:       log.With().Str("component", "places").Logger(),
		batchSize: DefaultBatchSize,
		browser:   "firefox",
	}
}

// SetBatchSize overrides DefaultBatchSize.
func (im *Importer) SetBatchSize(n int) {
	if n > 0 {
		im.batchSize = n
	}
}

// cursorKey scopes the import cursor to one profile's database file.
func cursorKey(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	return Source + ":" + path
}

// openReadOnly opens places.sqlite without taking locks, so a running
// browser does not block the import.
func openReadOnly(path string) (*sql.DB, error) {
	u := url.URL{Scheme: "file", Path: path, RawQuery: "mode=ro&immutable=1"}
	db, err := sql.Open("sqlite3", u.String())
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// visitsQuery reads visits after a (visit_date, id) position, so rows that
// share the cursor's timestamp are neither skipped nor read twice.
const visitsQuery = `
	SELECT v.id, v.visit_date, p.url, COALESCE(p.title, '')
	FROM moz_historyvisits v
	JOIN moz_places p ON p.id = v.place_id
	WHERE (v.visit_date > ? OR (v.visit_date = ? AND v.id > ?))
	  AND (p.url LIKE 'http://%' OR p.url LIKE 'https://%')
	ORDER BY v.visit_date ASC, v.id ASC
`

// Import reads every visit after the file's cursor and stores it.
// The cursor advances after each committed batch, so an interrupted import
// resumes where it stopped.
func (im *Importer) Import(ctx context.Context, path string) (*Result, error) {
	src, err := openReadOnly(path)
	if err != nil {
		return nil, fmt.Errorf("open places database %s: %w", path, err)
	}
	defer src.Close()

	key := cursorKey(path)
	cursor, err := im.sink.ImportCursor(ctx, key)
	if err != nil {
		return nil, err
	}

	log := im.log.With().Str("file", path).Logger()
	log.Debug().Int64("cursor", cursor.Micros).Int64("row", cursor.RowID).Msg("import starting")

	rows, err := src.QueryContext(ctx, visitsQuery, cursor.Micros, cursor.Micros, cursor.RowID)
	if err != nil {
		return nil, fmt.Errorf("query places visits: %w", err)
	}
	defer rows.Close()

	res := &Result{Cursor: cursor.Micros}
	batch := make([]storage.Visit, 0, im.batchSize)
	var last storage.ImportPosition

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		n, err := im.sink.AddVisits(ctx, batch)
		if err != nil {
			return err
		}
		res.Added += n
		res.Skipped += len(batch) - n
		if err := im.sink.SetImportCursor(ctx, key, last); err != nil {
			return err
		}
		res.Cursor = last.Micros
		log.Debug().Int("batch", len(batch)).Int("added", n).Int64("cursor", last.Micros).Msg("batch imported")
		batch = batch[:0]
		return nil
	}

	for rows.Next() {
		var rowID, visitDate int64
		var rawURL, title string
		if err := rows.Scan(&rowID, &visitDate, &rawURL, &title); err != nil {
			return res, fmt.Errorf("scan places visit: %w", err)
		}
		res.Scanned++
		batch = append(batch, storage.Visit{
			URL:       rawURL,
			Title:     title,
			Timestamp: time.UnixMicro(visitDate),
			Source:    Source,
			Browser:   im.browser,
		})
		last = storage.ImportPosition{Micros: visitDate, RowID: rowID}

		if len(batch) >= im.batchSize {
			if err := flush(); err != nil {
				return res, err
			}
		}
	}
	if err := rows.Err(); err != nil {
		return res, fmt.Errorf("read places visits: %w", err)
	}
	if err := flush(); err != nil {
		return res, err
	}

	log.Info().
		Int("scanned", res.Scanned).
		Int("added", res.Added).
		Int("skipped", res.Skipped).
		Msg("import finished")
	return res, nil
}
