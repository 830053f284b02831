package stats

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/desertthunder/readx/internal/models"
)

var now = time.Date(2025, 3, 15, 10, 30, 0, 0, time.Local)

func readOn(daysAgo int, hour int) *time.Time {
	t := time.Date(now.Year(), now.Month(), now.Day()-daysAgo, hour, 0, 0, 0, time.Local)
	return &t
}

func entry(progress, pages int, lastRead *time.Time) models.LibraryEntry {
	return models.LibraryEntry{Progress: progress, Book: models.Book{PageCount: pages}, LastRead: lastRead}
}

func TestStreak(t *testing.T) {
	tests := []struct {
		name    string
		entries []models.LibraryEntry
		want    int
	}{
		{"no reads", []models.LibraryEntry{entry(10, 100, nil)}, 0},
		{"three consecutive days ending today", []models.LibraryEntry{
			entry(10, 100, readOn(0, 8)),
			entry(10, 100, readOn(1, 23)),
			entry(10, 100, readOn(2, 1)),
		}, 3},
		{"most recent three days ago", []models.LibraryEntry{
			entry(10, 100, readOn(3, 8)),
			entry(10, 100, readOn(4, 8)),
			entry(10, 100, readOn(5, 8)),
		}, 0},
		{"gap breaks the chain", []models.LibraryEntry{
			entry(10, 100, readOn(0, 8)),
			entry(10, 100, readOn(3, 8)),
		}, 1},
		{"streak ending yesterday is live", []models.LibraryEntry{
			entry(10, 100, readOn(1, 8)),
			entry(10, 100, readOn(2, 8)),
		}, 2},
		{"same day reads count once", []models.LibraryEntry{
			entry(10, 100, readOn(0, 8)),
			entry(10, 100, readOn(0, 20)),
			entry(10, 100, readOn(1, 8)),
		}, 2},
		{"repeated day is deduplicated before walking the chain", []models.LibraryEntry{
			entry(10, 100, readOn(0, 8)),
			entry(10, 100, readOn(0, 9)),
			entry(10, 100, readOn(1, 8)),
			entry(10, 100, readOn(1, 9)),
			entry(10, 100, readOn(2, 8)),
		}, 3},
		{"unsorted input", []models.LibraryEntry{
			entry(10, 100, readOn(2, 8)),
			entry(10, 100, readOn(0, 8)),
			entry(10, 100, readOn(1, 8)),
		}, 3},
		{"future read counts as today", []models.LibraryEntry{
			entry(10, 100, readOn(-1, 8)),
			entry(10, 100, readOn(1, 8)),
		}, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Streak(tt.entries, now))
		})
	}
}

func TestStreakUsesLocalDays(t *testing.T) {
	loc := time.FixedZone("UTC-5", -5*60*60)
	localNow := time.Date(2025, 3, 15, 9, 0, 0, 0, loc)

	// 01:00 UTC on the 15th is still the 14th at UTC-5.
	yesterdayLocal := time.Date(2025, 3, 15, 1, 0, 0, 0, time.UTC)
	twoDaysAgo := time.Date(2025, 3, 13, 12, 0, 0, 0, loc)

	entries := []models.LibraryEntry{
		entry(10, 100, &yesterdayLocal),
		entry(10, 100, &twoDaysAgo),
	}
	assert.Equal(t, 2, Streak(entries, localNow))
}

func TestDerive(t *testing.T) {
	t.Run("empty library", func(t *testing.T) {
		assert.Equal(t, models.Stats{}, Derive(nil, now))
	})

	t.Run("aggregates", func(t *testing.T) {
		entries := []models.LibraryEntry{
			entry(0, 300, nil),
			entry(50, 201, readOn(0, 9)),
			entry(100, 150, readOn(1, 9)),
		}

		got := Derive(entries, now)
		assert.Equal(t, models.Stats{
			TotalBooks:  3,
			Reading:     1,
			Completed:   1,
			TotalPages:  651,
			PagesRead:   100 + 150,
			Streak:      2,
			AvgProgress: 50,
		}, got)
	})

	t.Run("average rounds to nearest", func(t *testing.T) {
		entries := []models.LibraryEntry{entry(33, 0, nil), entry(34, 0, nil)}
		assert.Equal(t, 34, Derive(entries, now).AvgProgress)
	})
}

func TestPagesReadFloors(t *testing.T) {
	assert.Equal(t, 33, PagesRead(entry(33, 101, nil)))
	assert.Equal(t, 0, PagesRead(entry(99, 0, nil)))
}

func TestGoalProgress(t *testing.T) {
	assert.Equal(t, 50, GoalProgress(12, 24))
	assert.Equal(t, 100, GoalProgress(30, 24))
	assert.Equal(t, 33, GoalProgress(1, 3))
	assert.Equal(t, 4, GoalProgress(1, 0), "invalid goal falls back to the default")
}

func TestMemo(t *testing.T) {
	var m Memo
	entries := []models.LibraryEntry{entry(100, 10, readOn(0, 9))}

	first := m.Derive(1, entries, now)
	assert.Equal(t, 1, first.Completed)

	// Same version: cached result even though the slice differs.
	assert.Equal(t, first, m.Derive(1, nil, now))

	// New version recomputes.
	assert.Equal(t, 0, m.Derive(2, nil, now).TotalBooks)

	// Same version on a later day recomputes the streak.
	later := now.Add(72 * time.Hour)
	assert.Equal(t, 0, m.Derive(3, entries, later).Streak)
	assert.Equal(t, 1, m.Derive(3, entries, now).Streak)
}
