package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// StartLeaderboardScheduler refreshes leaderboard snapshots every interval.
// The caller owns the returned scheduler and must Shutdown it.
func StartLeaderboardScheduler(leaderboard LeaderboardService, interval time.Duration, logger *slog.Logger) (gocron.Scheduler, error) {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}

	_, err = sched.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			ctx, cancel := context.WithTimeout(context.Background(), interval)
			defer cancel()
			if err := leaderboard.RefreshSnapshots(ctx); err != nil {
				logger.Error("Scheduler: leaderboard snapshot refresh failed", slog.Any("error", err))
			}
		}),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithStartAt(gocron.WithStartImmediately()),
	)
	if err != nil {
		_ = sched.Shutdown()
		return nil, fmt.Errorf("failed to schedule leaderboard snapshots: %w", err)
	}

	sched.Start()
	logger.Info("Leaderboard snapshot scheduler started", slog.Duration("interval", interval))
	return sched, nil
}
