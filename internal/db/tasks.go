package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/ldi/tally/pkg/models"
)

// AddTask inserts a new task row and, in the same transaction, a version
// record with an identical snapshot. If t.ID is empty a new UUID is
// generated. Returns the version that was written.
//
// Name, StartDate and DueDate are required; all other fields default to
// empty. A validation failure writes nothing.
func (db *DB) AddTask(ctx context.Context, t *models.Task) (*models.TaskVersion, error) {
	return db.addTaskAt(ctx, t, time.Now())
}

func (db *DB) addTaskAt(ctx context.Context, t *models.Task, now time.Time) (*models.TaskVersion, error) {
	switch {
	case t.Name == "":
		return nil, &ValidationError{Field: "task_name"}
	case t.StartDate == "":
		return nil, &ValidationError{Field: "start_date"}
	case t.DueDate == "":
		return nil, &ValidationError{Field: "due_date"}
	}

	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	if t.Status == "" {
		t.Status = models.TaskStatusPending
	}

	blob, err := json.Marshal(t.Snapshot())
	if err != nil {
		return nil, fmt.Errorf("failed to serialize snapshot: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO tasks (id, task_name, description, start_date, due_date, time_spent,
		                   functional_area, assignment, task_type, status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = tx.ExecContext(ctx, query,
		t.ID, t.Name, t.Description, t.StartDate, t.DueDate, t.TimeSpent,
		t.FunctionalArea, t.Assignment, t.TaskType, t.Status,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert task: %w", err)
	}

	v := &models.TaskVersion{
		TaskID:    t.ID,
		TaskName:  t.Name,
		Timestamp: now.Format(models.TimestampLayout),
		Data:      string(blob),
	}
	err = tx.QueryRowContext(ctx, `
		INSERT INTO task_versions (task_id, task_name, version_date, version_data)
		VALUES (?, ?, ?, ?)
		RETURNING version_id
	`, v.TaskID, v.TaskName, v.Timestamp, v.Data).Scan(&v.VersionID)
	if err != nil {
		return nil, fmt.Errorf("failed to insert task version: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit task: %w", err)
	}
	return v, nil
}

// GetTask retrieves a live task by its ID. Returns nil if the id is unknown.
func (db *DB) GetTask(ctx context.Context, id string) (*models.Task, error) {
	query := `
		SELECT id, task_name, description, start_date, due_date, time_spent,
		       functional_area, assignment, task_type, status
		FROM tasks
		WHERE id = ?
	`
	t := &models.Task{}
	err := db.QueryRowContext(ctx, query, id).Scan(
		&t.ID, &t.Name, &t.Description, &t.StartDate, &t.DueDate, &t.TimeSpent,
		&t.FunctionalArea, &t.Assignment, &t.TaskType, &t.Status,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get task: %w", err)
	}
	return t, nil
}

// ListTasks returns all live tasks in insertion order.
func (db *DB) ListTasks(ctx context.Context) ([]*models.Task, error) {
	query := `
		SELECT id, task_name, description, start_date, due_date, time_spent,
		       functional_area, assignment, task_type, status
		FROM tasks
		ORDER BY rowid ASC
	`
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []*models.Task
	for rows.Next() {
		t := &models.Task{}
		err := rows.Scan(
			&t.ID, &t.Name, &t.Description, &t.StartDate, &t.DueDate, &t.TimeSpent,
			&t.FunctionalArea, &t.Assignment, &t.TaskType, &t.Status,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		tasks = append(tasks, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return tasks, nil
}

// DeleteTask removes the live task row with the given id. Deleting an
// unknown id is a no-op, not an error. Version records are retained.
func (db *DB) DeleteTask(ctx context.Context, id string) error {
	_, err := db.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}
	return nil
}

// CountTasks returns the number of live tasks.
func (db *DB) CountTasks(ctx context.Context) (int, error) {
	var count int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM tasks`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count tasks: %w", err)
	}
	return count, nil
}
