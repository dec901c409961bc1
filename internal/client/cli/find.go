package cli

import (
	"context"
	"fmt"
)

// Search ranks the current listing against the query and prints the matches.
func (a *App) Search(ctx context.Context, query string) error {
	results := a.search.Search(ctx, query)
	if len(results) == 0 {
		printlnFn("No matches for:", query)
		return nil
	}
	for _, r := range results {
		printlnFn(fmt.Sprintf("  %-40s %s", r.Item.Name, r.Item.Type))
	}
	return nil
}

// Recent prints the access history, most recent first.
func (a *App) Recent(ctx context.Context) error {
	items := a.tracker.Recent().Get()
	if len(items) == 0 {
		printlnFn("  (no recent items)")
		return nil
	}
	for _, it := range items {
		printlnFn(fmt.Sprintf("  %-40s %-9s x%d  %s",
			it.Name, it.AccessType, it.AccessCount, it.AccessedAt.Format("Jan 2 15:04")))
	}
	return nil
}

// Star toggles the pinned state of an item in the current listing. The note,
// when given, is stored with the star.
func (a *App) Star(ctx context.Context, name, note string) error {
	it, ok := a.resolveItem(name)
	if !ok {
		printlnFn("Not found:", name)
		return nil
	}
	starred, err := a.tracker.ToggleStar(ctx, it, note)
	if err != nil {
		a.log.Warn(ctx, "toggling star failed", "error", err.Error())
		return err
	}
	if starred {
		printlnFn("Starred", it.Name)
	} else {
		printlnFn("Unstarred", it.Name)
	}
	return nil
}

// Starred prints all pinned items.
func (a *App) Starred(ctx context.Context) error {
	items := a.tracker.Starred().Get()
	if len(items) == 0 {
		printlnFn("  (nothing starred)")
		return nil
	}
	for _, it := range items {
		line := fmt.Sprintf("  %-40s %s", it.Name, it.StarredAt.Format("Jan 2 15:04"))
		if it.Note != "" {
			line += "  " + it.Note
		}
		printlnFn(line)
	}
	return nil
}
