package panel

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/runnerr0/histfeed/internal/history"
)

// Run shows the panel full screen until the user quits or ctx ends.
func Run(ctx context.Context, store history.Store, feed *history.Feed, opts Options) error {
	p := tea.NewProgram(
		New(ctx, store, feed, opts),
		tea.WithAltScreen(),
		tea.WithContext(ctx),
	)
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("panel: %w", err)
	}
	return nil
}
