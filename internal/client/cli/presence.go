package cli

import (
	"context"
	"fmt"
)

// Users prints the active-user roster with status and current path.
func (a *App) Users(ctx context.Context) error {
	users := a.collab.ActiveUsers().Get()
	if len(users) == 0 {
		printlnFn("  (nobody here)")
		return nil
	}
	for _, u := range users {
		printlnFn(fmt.Sprintf("  %-24s %-6s %s", u.Name, u.Status, u.CurrentPath))
	}
	stats := a.collab.Stats()
	printlnFn(fmt.Sprintf("%d active, %d locked files", stats.ActiveUsers, stats.LockedFiles))
	return nil
}

// Activity prints the most recent entries of the activity feed.
func (a *App) Activity(ctx context.Context) error {
	activities := a.collab.RecentActivities(10)
	if len(activities) == 0 {
		printlnFn("  (no recent activity)")
		return nil
	}
	for _, act := range activities {
		printlnFn(fmt.Sprintf("  %s  %-10s %-24s %s",
			act.Timestamp.Format("15:04:05"), act.Type, act.UserName, act.FileName))
	}
	return nil
}

// Lock places an advisory lock on a file and broadcasts it.
func (a *App) Lock(ctx context.Context, name string) error {
	it, ok := a.resolveItem(name)
	if !ok {
		printlnFn("Not found:", name)
		return nil
	}
	if a.collab.IsFileLocked(it.ID) {
		printlnFn("Already locked:", it.Name)
		return nil
	}
	a.collab.LockFile(ctx, it.ID, it.Name)
	printlnFn("Locked", it.Name)
	return nil
}

// Unlock releases an advisory lock.
func (a *App) Unlock(ctx context.Context, name string) error {
	it, ok := a.resolveItem(name)
	if !ok {
		printlnFn("Not found:", name)
		return nil
	}
	a.collab.UnlockFile(ctx, it.ID)
	printlnFn("Unlocked", it.Name)
	return nil
}
