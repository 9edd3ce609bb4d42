package service

import (
	"context"
	"fmt"
	"time"

	"github.com/ldi/tally/internal/dispatch"
	"github.com/ldi/tally/internal/report"
	"github.com/ldi/tally/pkg/models"
)

// Automate renders the daily report over the live task set and posts it to
// the configured webhook. A dispatch failure is reportable but leaves all
// task data intact; the whole step may simply be rerun.
func (s *TaskService) Automate(ctx context.Context) error {
	if s.cfg == nil {
		return fmt.Errorf("automation requires settings")
	}
	if s.webhook == nil {
		return fmt.Errorf("automation requires a webhook client")
	}

	tasks, err := s.store.ListTasks(ctx)
	if err != nil {
		return err
	}

	html, err := report.Render(report.Build(time.Now(), tasks, s.cfg))
	if err != nil {
		return err
	}

	snapshots := make([]models.Snapshot, 0, len(tasks))
	for _, t := range tasks {
		snapshots = append(snapshots, t.Snapshot())
	}

	err = s.webhook.Send(ctx, dispatch.Payload{
		HTMLContent: html,
		Tasks:       snapshots,
		ToUser:      s.cfg.ToUser,
		CCUser:      s.cfg.CCUser,
	})
	if err != nil {
		s.logger.Warn("automation dispatch failed", "error", err)
		return err
	}

	s.logger.Info("automation dispatched", "tasks", len(tasks))
	return nil
}
