// Package stats derives reading statistics from a library snapshot.
//
// Everything here is a pure function of the entries and the current time, except [Memo], which
// caches the last result by snapshot version and calendar day.
package stats

import (
	"math"
	"slices"
	"sync"
	"time"

	"github.com/desertthunder/readx/internal/models"
)

// DefaultYearlyGoal is used when an account has no valid goal.
const DefaultYearlyGoal = 24

// Derive computes the statistics for entries as of now.
func Derive(entries []models.LibraryEntry, now time.Time) models.Stats {
	stats := models.Stats{TotalBooks: len(entries)}

	progressSum := 0
	for _, e := range entries {
		switch {
		case e.Completed():
			stats.Completed++
		case e.InProgress():
			stats.Reading++
		}
		stats.TotalPages += e.Book.PageCount
		stats.PagesRead += PagesRead(e)
		progressSum += e.Progress
	}

	if len(entries) > 0 {
		stats.AvgProgress = int(math.Round(float64(progressSum) / float64(len(entries))))
	}
	stats.Streak = Streak(entries, now)
	return stats
}

// PagesRead is floor(progress/100 * pageCount).
func PagesRead(e models.LibraryEntry) int {
	return e.Progress * e.Book.PageCount / 100
}

// Streak counts consecutive reading days ending today or yesterday, in now's location.
//
// Read days are deduplicated before the chain is walked, so several entries read on the same day
// count once. Reads stamped after now count as today.
func Streak(entries []models.LibraryEntry, now time.Time) int {
	today := civilDay(now, now.Location())

	seen := make(map[int64]struct{})
	var days []int64
	for _, e := range entries {
		if e.LastRead == nil {
			continue
		}
		day := min(civilDay(*e.LastRead, now.Location()), today)
		if _, ok := seen[day]; ok {
			continue
		}
		seen[day] = struct{}{}
		days = append(days, day)
	}

	if len(days) == 0 {
		return 0
	}
	slices.Sort(days)
	slices.Reverse(days)

	if today-days[0] > 1 {
		return 0
	}

	streak := 1
	for i := 1; i < len(days); i++ {
		if days[i-1]-days[i] != 1 {
			break
		}
		streak++
	}
	return streak
}

// GoalProgress is min(100, completed/goal*100) rounded to a whole percent.
func GoalProgress(completed, goal int) int {
	if goal < 1 {
		goal = DefaultYearlyGoal
	}
	return min(100, int(math.Round(float64(completed)/float64(goal)*100)))
}

// civilDay numbers the calendar day of t in loc, independent of time of day and DST.
func civilDay(t time.Time, loc *time.Location) int64 {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC).Unix() / 86400
}

// Memo caches [Derive] for a snapshot version on one calendar day.
type Memo struct {
	mu      sync.Mutex
	valid   bool
	version uint64
	day     int64
	stats   models.Stats
}

// Derive returns the cached stats when version and now's day are unchanged since the last call.
func (m *Memo) Derive(version uint64, entries []models.LibraryEntry, now time.Time) models.Stats {
	day := civilDay(now, now.Location())

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.valid && m.version == version && m.day == day {
		return m.stats
	}

	m.stats = Derive(entries, now)
	m.version = version
	m.day = day
	m.valid = true
	return m.stats
}
