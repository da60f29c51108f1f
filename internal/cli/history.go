package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/runnerr0/histfeed/internal/config"
	"github.com/runnerr0/histfeed/internal/history"
	"github.com/runnerr0/histfeed/internal/logging"
)

// historyJSON is the JSON output structure for the history command.
type historyJSON struct {
	Session   string            `json:"session"`
	Selection history.TimeRange `json:"selection"`
	From      string            `json:"from"`
	To        string            `json:"to"`
	Query     string            `json:"query,omitempty"`
	Total     int               `json:"total"`
	Shown     int               `json:"shown"`
	Exhausted bool              `json:"exhausted"`
	Sections  []sectionJSON     `json:"sections"`
}

type sectionJSON struct {
	Label  string            `json:"label"`
	Date   string            `json:"date"`
	Visits []history.Summary `json:"visits"`
}

// newFeed builds a feed configured from cfg.
func newFeed(store history.Store, cfg *config.Config, log zerolog.Logger, now func() time.Time) *history.Feed {
	opts := []history.Option{
		history.WithBatchDays(cfg.Feed.BatchDays),
		history.WithReference(history.ParseReference(cfg.Feed.Reference)),
		history.WithLogger(log),
	}
	if now != nil {
		opts = append(opts, history.WithClock(now))
	}
	return history.NewFeed(store, opts...)
}

// Execute implements the go-flags Commander interface for HistoryCommand.
func (c *HistoryCommand) Execute(args []string) error {
	ctx := context.Background()
	env, err := openEnvironment(ctx, c.globals)
	if err != nil {
		return err
	}
	defer env.Close()

	ctx = logging.WithContext(ctx, logging.WithCommand("history"))
	return c.executeWithStore(ctx, env.store, env.cfg)
}

// executeWithStore drives a feed over store on the calling goroutine and
// prints the loaded sections (for testing).
func (c *HistoryCommand) executeWithStore(ctx context.Context, store history.Store, cfg *config.Config) error {
	if c.Batches < 0 {
		return fmt.Errorf("--batches must not be negative, got %d", c.Batches)
	}
	now := c.now
	if now == nil {
		now = time.Now
	}

	feed := newFeed(store, cfg, logging.FromContext(ctx), now)
	req, ok, err := feed.Open(ctx)
	if err != nil {
		return fmt.Errorf("open history: %w", err)
	}

	to := c.To
	if to < 0 {
		to = feed.Extent().MaxDaysAgo
	}
	feed.SetHandle(history.HandleMin, c.From)
	feed.SetHandle(history.HandleMax, to)
	oldest, newest, whole := feed.SelectedDays()
	if !whole {
		sel := feed.Selection()
		return fmt.Errorf("--from %d --to %d selects no whole day; use --from %d --to %d for that day",
			sel.Start, sel.End, sel.Start-1, sel.End)
	}
	if feed.Selection() != feed.Active() {
		req, ok = feed.CommitSelection()
	}

	loaded := 0
	for ok {
		feed.Load(ctx, req)
		if feed.State() == history.StateError {
			return fmt.Errorf("load history: %w", feed.Err())
		}
		loaded++
		if c.Batches > 0 && loaded >= c.Batches {
			break
		}
		req, ok = feed.RequestMore()
	}

	feed.SetQuery(c.Query)
	v := feed.View()
	sel := v.Selection
	from := history.FormatAbsolute(oldest)
	until := history.FormatAbsolute(newest)

	if c.globals != nil && c.globals.JSON {
		out := historyJSON{
			Session:   feed.Session(),
			Selection: sel,
			From:      from,
			To:        until,
			Query:     v.Query,
			Total:     v.Total,
			Shown:     v.Shown,
			Exhausted: v.Exhausted,
			Sections:  make([]sectionJSON, len(v.Sections)),
		}
		for i, s := range v.Sections {
			out.Sections[i] = sectionJSON{
				Label:  s.Label,
				Date:   history.FormatAbsolute(s.Day),
				Visits: s.Summaries(),
			}
		}
		return writeJSON(out)
	}

	fmt.Printf("History %s to %s (%s)\n", from, until, sel)
	for _, s := range v.Sections {
		fmt.Println()
		fmt.Println(s.Label)
		for _, sum := range s.Summaries() {
			fmt.Printf("  %s  %s\n", sum.TimeOfDay, sum.Title)
			fmt.Printf("         %s\n", sum.URL)
		}
	}

	fmt.Println()
	switch {
	case v.Empty:
		fmt.Println("No history in this range")
	case v.Query != "" && v.Shown == 0:
		fmt.Printf("No matches for %q among %d loaded visits\n", v.Query, v.Total)
	case v.Query != "":
		fmt.Printf("%d of %d loaded visits match %q\n", v.Shown, v.Total, v.Query)
	default:
		fmt.Printf("%d %s loaded\n", v.Total, plural(int64(v.Total), "visit"))
	}
	if v.Exhausted {
		fmt.Println("End of history")
	} else {
		fmt.Println("More history available (raise --batches, or 0 for all)")
	}
	return nil
}
