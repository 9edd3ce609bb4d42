// Package service orchestrates the task store, the embedder and the
// similarity index. It is the only surface the CLI and MCP layers talk to.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/ldi/tally/internal/db"
	"github.com/ldi/tally/internal/dispatch"
	"github.com/ldi/tally/internal/embedding"
	"github.com/ldi/tally/internal/index"
	"github.com/ldi/tally/internal/settings"
	"github.com/ldi/tally/pkg/models"
)

// TaskService owns the in-memory record list that feeds index rebuilds. The
// persisted snapshots never carry vectors, so that list is the only source
// the index can be rebuilt from; every mutation updates list and index
// together before returning.
type TaskService struct {
	store    *db.DB
	embedder embedding.Embedder
	index    *index.Index

	mu      sync.Mutex
	records []index.Record

	cfg     *settings.Settings
	webhook *dispatch.Client
	logger  *slog.Logger
}

// Option configures a TaskService.
type Option func(*TaskService)

// WithSettings attaches the user settings used by the automation path.
func WithSettings(cfg *settings.Settings) Option {
	return func(s *TaskService) { s.cfg = cfg }
}

// WithWebhook attaches the outbound dispatch client.
func WithWebhook(c *dispatch.Client) Option {
	return func(s *TaskService) { s.webhook = c }
}

// WithLogger overrides the default logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *TaskService) { s.logger = l }
}

func New(store *db.DB, embedder embedding.Embedder, opts ...Option) *TaskService {
	s := &TaskService{
		store:    store,
		embedder: embedder,
		index:    index.New(),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AddTask validates and persists a task, then indexes its embedding. The
// store write is durable before the index is touched: a crash in between
// leaves the store consistent and only the index stale, repaired by the
// next ReloadIndex.
func (s *TaskService) AddTask(ctx context.Context, t *models.Task) (string, error) {
	version, err := s.store.AddTask(ctx, t)
	if err != nil {
		return "", err
	}

	snap, err := version.Snapshot()
	if err != nil {
		return "", fmt.Errorf("failed to decode written snapshot: %w", err)
	}

	vec, err := s.embedder.Embed(ctx, embedText(t))
	if err != nil {
		return t.ID, fmt.Errorf("task %s stored but not indexed: %w", t.ID, err)
	}

	meta := index.Metadata{TaskID: t.ID, Snapshot: snap}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.index.Insert(vec, meta); err != nil {
		return t.ID, fmt.Errorf("task %s stored but not indexed: %w", t.ID, err)
	}
	s.records = append(s.records, index.Record{Vector: vec, Meta: meta})

	s.logger.Debug("task indexed", "task_id", t.ID, "dimension", s.index.Dimension())
	return t.ID, nil
}

// DeleteTask removes a task from the store and the index. An unknown id is
// a no-op. The index supports no point removal, so the surviving records
// are reinserted wholesale.
func (s *TaskService) DeleteTask(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := false
	var pos int
	var record index.Record
	for i, r := range s.records {
		if r.Meta.TaskID == id {
			pos, record = i, r
			s.records = append(s.records[:i], s.records[i+1:]...)
			removed = true
			break
		}
	}

	if err := s.store.DeleteTask(ctx, id); err != nil {
		// Put the record back where it was so the list, the index and the
		// store stay in agreement.
		if removed {
			s.records = append(s.records[:pos], append([]index.Record{record}, s.records[pos:]...)...)
		}
		return err
	}

	if removed {
		if err := s.index.Rebuild(s.records); err != nil {
			return fmt.Errorf("failed to rebuild index after delete: %w", err)
		}
	}
	return nil
}

// SearchSimilar embeds the query text and returns the metadata of the k
// nearest indexed tasks.
func (s *TaskService) SearchSimilar(ctx context.Context, query string, k int) ([]index.Metadata, error) {
	vec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	return s.index.Search(vec, k)
}

// ReloadIndex rebuilds the record list and the index from the live task
// set, re-embedding every task. This is the cold-start and crash-repair
// path.
func (s *TaskService) ReloadIndex(ctx context.Context) error {
	tasks, err := s.store.ListTasks(ctx)
	if err != nil {
		return err
	}

	records := make([]index.Record, 0, len(tasks))
	for _, t := range tasks {
		vec, err := s.embedder.Embed(ctx, embedText(t))
		if err != nil {
			return fmt.Errorf("failed to embed task %s: %w", t.ID, err)
		}
		records = append(records, index.Record{
			Vector: vec,
			Meta:   index.Metadata{TaskID: t.ID, Snapshot: t.Snapshot()},
		})
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.index.Rebuild(records); err != nil {
		return err
	}
	s.records = records

	s.logger.Info("index reloaded", "tasks", len(records))
	return nil
}

// ListTasks returns all live tasks in insertion order.
func (s *TaskService) ListTasks(ctx context.Context) ([]*models.Task, error) {
	return s.store.ListTasks(ctx)
}

// History returns the full version history for a task, oldest first.
func (s *TaskService) History(ctx context.Context, taskID string) ([]*models.TaskVersion, error) {
	return s.store.AllVersionsFor(ctx, taskID)
}

// LatestVersion returns the newest version for a task, or nil. Used to
// repopulate an edit form from history.
func (s *TaskService) LatestVersion(ctx context.Context, taskID string) (*models.TaskVersion, error) {
	return s.store.LatestVersionFor(ctx, taskID)
}

// RecordCount reports the number of records in the authoritative list. It
// equals the live task count after any completed operation.
func (s *TaskService) RecordCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

func embedText(t *models.Task) string {
	return strings.Join([]string{t.Name, t.Description, t.StartDate, t.DueDate}, " ")
}
