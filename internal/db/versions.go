package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/ldi/tally/pkg/models"
)

// VersionRow is a lightweight view of the version log used by day queries.
type VersionRow struct {
	TaskID    string
	TaskName  string
	Timestamp string
}

// ListVersionsOn returns one row per task that has a version on the given
// calendar day, carrying each task's earliest timestamp that day, ordered
// ascending by that timestamp.
func (db *DB) ListVersionsOn(ctx context.Context, day time.Time) ([]VersionRow, error) {
	query := `
		SELECT task_id, task_name, MIN(version_date)
		FROM task_versions
		WHERE DATE(version_date) = ?
		GROUP BY task_id
		ORDER BY MIN(version_date) ASC, version_id ASC
	`
	rows, err := db.QueryContext(ctx, query, day.Format(models.DateLayout))
	if err != nil {
		return nil, fmt.Errorf("failed to list versions for day: %w", err)
	}
	defer rows.Close()

	var result []VersionRow
	for rows.Next() {
		var r VersionRow
		if err := rows.Scan(&r.TaskID, &r.TaskName, &r.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan version row: %w", err)
		}
		result = append(result, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return result, nil
}

// MaxVersionDateBefore returns the most recent calendar day strictly before
// the given day for which at least one version exists. The zero time is
// returned when the log is empty or holds nothing earlier.
func (db *DB) MaxVersionDateBefore(ctx context.Context, day time.Time) (time.Time, error) {
	query := `
		SELECT DATE(version_date)
		FROM task_versions
		WHERE DATE(version_date) < ?
		ORDER BY version_date DESC
		LIMIT 1
	`
	var found string
	err := db.QueryRowContext(ctx, query, day.Format(models.DateLayout)).Scan(&found)
	if err == sql.ErrNoRows {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to find previous version date: %w", err)
	}

	prev, err := time.Parse(models.DateLayout, found)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse version date %q: %w", found, err)
	}
	return prev, nil
}

// LatestVersionFor returns the newest version for the given task id, or nil
// if the task never produced one.
func (db *DB) LatestVersionFor(ctx context.Context, taskID string) (*models.TaskVersion, error) {
	query := `
		SELECT version_id, task_id, task_name, version_date, version_data
		FROM task_versions
		WHERE task_id = ?
		ORDER BY version_date DESC, version_id DESC
		LIMIT 1
	`
	v := &models.TaskVersion{}
	err := db.QueryRowContext(ctx, query, taskID).Scan(
		&v.VersionID, &v.TaskID, &v.TaskName, &v.Timestamp, &v.Data,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest version: %w", err)
	}
	return v, nil
}

// AllVersionsFor returns the full version history for a task, oldest first.
func (db *DB) AllVersionsFor(ctx context.Context, taskID string) ([]*models.TaskVersion, error) {
	query := `
		SELECT version_id, task_id, task_name, version_date, version_data
		FROM task_versions
		WHERE task_id = ?
		ORDER BY version_date ASC, version_id ASC
	`
	return queryVersions(ctx, db, query, taskID)
}

func queryVersions(ctx context.Context, q executor, query string, args ...any) ([]*models.TaskVersion, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query versions: %w", err)
	}
	defer rows.Close()

	var versions []*models.TaskVersion
	for rows.Next() {
		v := &models.TaskVersion{}
		if err := rows.Scan(&v.VersionID, &v.TaskID, &v.TaskName, &v.Timestamp, &v.Data); err != nil {
			return nil, fmt.Errorf("failed to scan version: %w", err)
		}
		versions = append(versions, v)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return versions, nil
}
