package main

import (
	"fmt"
	"io"
	"os"
	"slices"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/deusflow/ofertas/internal/app"
	"github.com/deusflow/ofertas/internal/deals"
	"github.com/deusflow/ofertas/internal/logger"
)

func newStateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "state",
		Short: "Print the persisted selection state",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			store, err := openStore(ctx, cfg)
			if err != nil {
				return fmt.Errorf("open state store: %w", err)
			}
			defer store.Close()

			state, err := store.Load(ctx)
			if err != nil {
				if !app.IsCorruptState(err) {
					return err
				}
				logger.Warn("Selection state unreadable, showing it as empty", "error", err.Error())
			}

			renderState(os.Stdout, state, time.Now(), cfg.WeeklyCooldown())
			return nil
		},
	}
}

// renderState writes the state as one table per section.
func renderState(w io.Writer, state *deals.SelectionState, now time.Time, cooldown time.Duration) {
	posted := newTable(w, "Published deals")
	posted.AppendHeader(table.Row{"ID", "Published", "Age"})
	ids := make([]string, 0, len(state.PostedIDs))
	for id := range state.PostedIDs {
		ids = append(ids, id)
	}
	// Newest first.
	slices.SortFunc(ids, func(a, b string) int {
		return state.PostedIDs[b].Compare(state.PostedIDs[a])
	})
	for _, id := range ids {
		ts := state.PostedIDs[id]
		posted.AppendRow(table.Row{id, ts.Format(time.RFC3339), now.Sub(ts).Round(time.Minute)})
	}
	posted.Render()

	recent := newTable(w, "Recent categories and titles")
	recent.AppendHeader(table.Row{"#", "Category", "Title"})
	for i := 0; i < max(len(state.RecentCategories), len(state.RecentTitles)); i++ {
		recent.AppendRow(table.Row{i + 1, at(state.RecentCategories, i), at(state.RecentTitles, i)})
	}
	recent.Render()

	weekly := newTable(w, "Weekly limited categories")
	weekly.AppendHeader(table.Row{"Category", "Last published", "Available in"})
	names := make([]string, 0, len(state.WeeklyCategories))
	for name := range state.WeeklyCategories {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		left := "now"
		if remaining := state.WeeklyRemaining(name, now, cooldown); remaining > 0 {
			left = remaining.Round(time.Minute).String()
		}
		weekly.AppendRow(table.Row{name, state.WeeklyCategories[name].Format(time.RFC3339), left})
	}
	weekly.Render()
}

func newTable(w io.Writer, title string) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetTitle(title)
	t.SetStyle(table.StyleLight)
	return t
}

func at(list []string, i int) string {
	if i < len(list) {
		return list[i]
	}
	return ""
}
