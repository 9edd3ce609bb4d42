package db

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ldi/tally/pkg/models"
)

// ExportHistory writes the complete version log to the given path as JSONL,
// oldest first, atomically using a temporary file. The export is an audit
// artifact; it carries no vectors and cannot seed the similarity index.
func (db *DB) ExportHistory(ctx context.Context, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create history directory: %w", err)
	}

	tempFile, err := os.CreateTemp(dir, "history-*.jsonl")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer func() {
		if tempFile != nil {
			tempFile.Close()
			os.Remove(tempFile.Name())
		}
	}()

	versions, err := queryVersions(ctx, db, `
		SELECT version_id, task_id, task_name, version_date, version_data
		FROM task_versions
		ORDER BY version_date ASC, version_id ASC
	`)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(tempFile)
	for _, v := range versions {
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("failed to write history line: %w", err)
		}
	}

	if err := tempFile.Sync(); err != nil {
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	filename := tempFile.Name()
	tempFile = nil // Prevent defer from removing it

	if err := os.Rename(filename, path); err != nil {
		os.Remove(filename)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}

// ImportHistory reads a JSONL history export and appends any version records
// the log does not already contain, keyed by (task_id, version_date). Task
// rows are not recreated: an imported history is an audit trail, not state.
func (db *DB) ImportHistory(ctx context.Context, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to open history file: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	dec := json.NewDecoder(bytes.NewReader(data))
	for dec.More() {
		var v models.TaskVersion
		if err := dec.Decode(&v); err != nil {
			return fmt.Errorf("failed to decode history line: %w", err)
		}

		var exists int
		err = tx.QueryRowContext(ctx, `
			SELECT COUNT(*) FROM task_versions WHERE task_id = ? AND version_date = ?
		`, v.TaskID, v.Timestamp).Scan(&exists)
		if err != nil {
			return fmt.Errorf("failed to check existing version: %w", err)
		}
		if exists > 0 {
			continue
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO task_versions (task_id, task_name, version_date, version_data)
			VALUES (?, ?, ?, ?)
		`, v.TaskID, v.TaskName, v.Timestamp, v.Data)
		if err != nil {
			return fmt.Errorf("failed to import version for task %s: %w", v.TaskID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit history import: %w", err)
	}
	return nil
}
