package main

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/readx/internal/formatter"
	"github.com/desertthunder/readx/internal/models"
	"github.com/desertthunder/readx/internal/stats"
)

type statsOutput struct {
	models.Stats
	YearlyGoal   int `json:"yearlyGoal"`
	GoalProgress int `json:"goalProgress"`
}

// Stats prints totals derived from the signed-in user's library.
func (r *Runner) Stats(ctx context.Context, cmd *cli.Command) error {
	store, sess, release, err := r.libraryStore(ctx)
	if err != nil {
		return err
	}
	defer release()

	s := stats.Derive(store.Entries(), r.now())
	goal := sess.YearlyGoal
	if goal < 1 {
		goal = stats.DefaultYearlyGoal
	}
	out := statsOutput{Stats: s, YearlyGoal: goal, GoalProgress: stats.GoalProgress(s.Completed, goal)}

	if cmd.Bool("json") {
		return r.writeJSON(out, true)
	}

	r.writePlainHeader("Reading stats")
	r.writePlain("Books saved:      %d\n", s.TotalBooks)
	r.writePlain("Reading now:      %d\n", s.Reading)
	r.writePlain("Completed:        %d\n", s.Completed)
	r.writePlain("Pages read:       %d of %d\n", s.PagesRead, s.TotalPages)
	r.writePlain("Average progress: %d%%\n", s.AvgProgress)
	r.writePlain("Streak:           %d day(s)\n", s.Streak)
	return r.writePlainln("Goal %d/%d  %s %d%%", s.Completed, goal, formatter.ProgressBar(out.GoalProgress, 24), out.GoalProgress)
}
