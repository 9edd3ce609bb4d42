package service

import (
	"context"
	"time"

	"github.com/ldi/tally/internal/db"
)

// VersionLog is the slice of the store the sync resolver reads.
type VersionLog interface {
	ListVersionsOn(ctx context.Context, day time.Time) ([]db.VersionRow, error)
	MaxVersionDateBefore(ctx context.Context, day time.Time) (time.Time, error)
}

// SyncResult is the outcome of resolving which day's task set to expose.
// Date is the zero time when the log holds no data at all. Fallback is true
// when an earlier day was substituted for today; callers must surface that
// to the user rather than silently substituting.
type SyncResult struct {
	Rows     []db.VersionRow
	Date     time.Time
	Fallback bool
}

// Resolve selects today's task versions, falling back to the most recent
// earlier day with data. Pure decision procedure: no side effects beyond
// the log reads.
func Resolve(ctx context.Context, log VersionLog, today time.Time) (SyncResult, error) {
	rows, err := log.ListVersionsOn(ctx, today)
	if err != nil {
		return SyncResult{}, err
	}
	if len(rows) > 0 {
		return SyncResult{Rows: rows, Date: today}, nil
	}

	prev, err := log.MaxVersionDateBefore(ctx, today)
	if err != nil {
		return SyncResult{}, err
	}
	if prev.IsZero() {
		return SyncResult{}, nil
	}

	rows, err = log.ListVersionsOn(ctx, prev)
	if err != nil {
		return SyncResult{}, err
	}
	return SyncResult{Rows: rows, Date: prev, Fallback: true}, nil
}

// Sync resolves the task set to display for the given day.
func (s *TaskService) Sync(ctx context.Context, today time.Time) (SyncResult, error) {
	return Resolve(ctx, s.store, today)
}
