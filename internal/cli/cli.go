package cli

import (
	"fmt"
	"os"

	goflags "github.com/jessevdk/go-flags"
)

// commands holds references to all subcommand structs for inspection/testing.
type commands struct {
	History *HistoryCommand
	Panel   *PanelCommand
	Search  *SearchCommand
	Add     *AddCommand
	Remove  *RemoveCommand
	Import  *ImportCommand
	Status  *StatusCommand
	Prune   *PruneCommand
	Purge   *PurgeCommand
}

// buildParser constructs the go-flags parser with all subcommands registered.
func buildParser(version string) (*goflags.Parser, *GlobalFlags, *commands) {
	var globals GlobalFlags

	// Errors are returned, not printed; main reports them once.
	parser := goflags.NewParser(&globals, goflags.HelpFlag|goflags.PassDoubleDash)
	parser.Name = "histfeed"
	parser.LongDescription = "Local browsing history, loaded newest first in day-sized batches."

	cmds := &commands{
		History: &HistoryCommand{globals: &globals, version: version},
		Panel:   &PanelCommand{globals: &globals, version: version},
		Search:  &SearchCommand{globals: &globals, version: version},
		Add:     &AddCommand{globals: &globals, version: version},
		Remove:  &RemoveCommand{globals: &globals, version: version},
		Import:  &ImportCommand{globals: &globals, version: version},
		Status:  &StatusCommand{globals: &globals, version: version},
		Prune:   &PruneCommand{globals: &globals, version: version},
		Purge:   &PurgeCommand{globals: &globals, version: version},
	}

	parser.AddCommand("history", "Print history for a day range", "Print visits grouped by day, loading the selected range newest first in batches.", cmds.History)
	parser.AddCommand("panel", "Open the interactive history panel", "Open the full-screen history panel with a range slider, live search and infinite scroll.", cmds.Panel)
	parser.AddCommand("search", "Search stored visits", "Search stored visits by title or URL substring, with optional time and domain filters.", cmds.Search)
	parser.AddCommand("add", "Record a visit by hand", "Record a URL/title visit by hand. Excluded domains are rejected.", cmds.Add)
	parser.AddCommand("remove", "Delete visits to a URL", "Delete every stored visit to the given URLs.", cmds.Remove)
	parser.AddCommand("import", "Import Firefox history", "Import visits from a Firefox places.sqlite file, resuming after the last import.", cmds.Import)
	parser.AddCommand("status", "Show database statistics", "Show database statistics, the history extent and configuration summary.", cmds.Status)
	parser.AddCommand("prune", "Apply retention pruning", "Delete visits older than the retention period.", cmds.Prune)
	parser.AddCommand("purge", "Delete ALL history", "Delete ALL stored visits. Destructive operation with safety prompt.", cmds.Purge)

	return parser, &globals, cmds
}

// Run is the main entry point for the histfeed CLI using os.Args.
func Run(version string) error {
	return RunWithArgs(version, nil)
}

// RunWithArgs parses the given args (or os.Args if nil) and executes the matched subcommand.
func RunWithArgs(version string, args []string) error {
	// go-flags requires a subcommand, but --version is valid without one.
	checkArgs := args
	if checkArgs == nil {
		checkArgs = os.Args[1:]
	}
	for _, arg := range checkArgs {
		if arg == "--version" {
			fmt.Printf("histfeed %s\n", version)
			return nil
		}
		if arg == "--" {
			break
		}
	}

	parser, _, _ := buildParser(version)

	var err error
	if args != nil {
		_, err = parser.ParseArgs(args)
	} else {
		_, err = parser.Parse()
	}

	if err != nil {
		if flagsErr, ok := err.(*goflags.Error); ok {
			if flagsErr.Type == goflags.ErrHelp {
				fmt.Println(flagsErr.Message)
				return nil
			}
		}
		return err
	}

	return nil
}
