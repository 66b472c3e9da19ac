package deals

import (
	"slices"
	"time"
)

const (
	// RecencyWindow caps the recent categories and recent titles lists.
	RecencyWindow = 4

	DefaultDuplicateWindow = 48 * time.Hour
	DefaultWeeklyCooldown  = 7 * 24 * time.Hour
)

// SelectionState is the rolling history that constrains which deal can be
// published next. It is loaded at the start of a cycle, changed only after a
// confirmed publish, and persisted at the end of the cycle.
type SelectionState struct {
	// PostedIDs maps product id to the time it was last published.
	PostedIDs map[string]time.Time
	// RecentCategories holds the last published category names, most recent first.
	RecentCategories []string
	// RecentTitles holds the last published titles of categories that check
	// title similarity, most recent first.
	RecentTitles []string
	// WeeklyCategories maps a weekly-limited category to its last publish time.
	WeeklyCategories map[string]time.Time
}

// NewSelectionState returns an empty state.
func NewSelectionState() *SelectionState {
	return &SelectionState{
		PostedIDs:        make(map[string]time.Time),
		WeeklyCategories: make(map[string]time.Time),
	}
}

// PostedWithin reports whether id was published less than window before now.
func (s *SelectionState) PostedWithin(id string, now time.Time, window time.Duration) bool {
	ts, ok := s.PostedIDs[id]
	if !ok {
		return false
	}
	return now.Sub(ts) < window
}

// CategoryRecent reports whether name is in the recent categories window.
func (s *SelectionState) CategoryRecent(name string) bool {
	return slices.Contains(s.RecentCategories, name)
}

// WeeklyRemaining returns how long the weekly cooldown of name still lasts.
// It is zero or negative when the category may publish again.
func (s *SelectionState) WeeklyRemaining(name string, now time.Time, cooldown time.Duration) time.Duration {
	ts, ok := s.WeeklyCategories[name]
	if !ok {
		return 0
	}
	return cooldown - now.Sub(ts)
}

// Prune drops posted ids older than window. It returns how many were dropped.
func (s *SelectionState) Prune(now time.Time, window time.Duration) int {
	dropped := 0
	for id, ts := range s.PostedIDs {
		if now.Sub(ts) >= window {
			delete(s.PostedIDs, id)
			dropped++
		}
	}
	return dropped
}

// RecordPublish applies a successful publish of c at now.
func (s *SelectionState) RecordPublish(c Candidate, now time.Time) {
	if s.PostedIDs == nil {
		s.PostedIDs = make(map[string]time.Time)
	}
	if s.WeeklyCategories == nil {
		s.WeeklyCategories = make(map[string]time.Time)
	}

	s.PostedIDs[c.Product.ID] = now
	s.RecentCategories = pushFront(s.RecentCategories, c.Category.Name, RecencyWindow)
	if c.Category.CheckSimilarTitles {
		s.RecentTitles = pushFront(s.RecentTitles, c.Product.Title, RecencyWindow)
	}
	if c.Category.WeeklyLimit {
		s.WeeklyCategories[c.Category.Name] = now
	}
}

// Clone returns a deep copy of s.
func (s *SelectionState) Clone() *SelectionState {
	out := &SelectionState{
		PostedIDs:        make(map[string]time.Time, len(s.PostedIDs)),
		RecentCategories: slices.Clone(s.RecentCategories),
		RecentTitles:     slices.Clone(s.RecentTitles),
		WeeklyCategories: make(map[string]time.Time, len(s.WeeklyCategories)),
	}
	for k, v := range s.PostedIDs {
		out.PostedIDs[k] = v
	}
	for k, v := range s.WeeklyCategories {
		out.WeeklyCategories[k] = v
	}
	return out
}

func pushFront(list []string, v string, limit int) []string {
	out := make([]string, 0, limit)
	out = append(out, v)
	out = append(out, list...)
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}
