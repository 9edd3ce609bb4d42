// Package settings persists user configuration as a JSON file: the
// enumerated field sets offered for tasks, the daily automation schedule,
// and the webhook/report details. Membership in the enumerated sets is not
// enforced by the store; they exist for whatever form layer sits on top.
package settings

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

type Settings struct {
	FunctionalAreas []string `json:"functional_areas"`
	Assignments     []string `json:"assignments"`
	TaskTypes       []string `json:"task_types"`
	ScheduleTime    string   `json:"schedule_time"`
	WebhookURL      string   `json:"webhook_url"`
	ToUser          []string `json:"to_user"`
	CCUser          []string `json:"cc_user"`

	// Report signature fields.
	Name          string `json:"name"`
	Role          string `json:"role"`
	MobileNo      string `json:"mobile_no"`
	Email         string `json:"email"`
	TimesheetLink string `json:"timesheet_link"`
}

// Default returns the settings used when no file exists yet.
func Default() *Settings {
	return &Settings{
		FunctionalAreas: []string{"Development", "Testing", "Design"},
		Assignments:     []string{"Research", "Task", "Training", "Development"},
		TaskTypes:       []string{"Bug Fix", "Feature", "Research"},
		ScheduleTime:    "09:00",
		WebhookURL:      "",
		ToUser:          []string{},
		CCUser:          []string{},
	}
}

// Load reads settings from the given path. A missing file yields the
// defaults rather than an error.
func Load(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return Default(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read settings: %w", err)
	}

	s := Default()
	if err := json.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("failed to parse settings: %w", err)
	}

	// Unmarshalling a null clears a slice, so absent list fields need their
	// defaults put back.
	defaults := Default()
	if s.FunctionalAreas == nil {
		s.FunctionalAreas = defaults.FunctionalAreas
	}
	if s.Assignments == nil {
		s.Assignments = defaults.Assignments
	}
	if s.TaskTypes == nil {
		s.TaskTypes = defaults.TaskTypes
	}
	if s.ToUser == nil {
		s.ToUser = defaults.ToUser
	}
	if s.CCUser == nil {
		s.CCUser = defaults.CCUser
	}
	return s, nil
}

// Save writes settings to the given path atomically via a temporary file.
func (s *Settings) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create settings directory: %w", err)
	}

	data, err := json.MarshalIndent(s, "", "    ")
	if err != nil {
		return fmt.Errorf("failed to encode settings: %w", err)
	}

	tempFile, err := os.CreateTemp(dir, "settings-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer func() {
		if tempFile != nil {
			tempFile.Close()
			os.Remove(tempFile.Name())
		}
	}()

	if _, err := tempFile.Write(data); err != nil {
		return fmt.Errorf("failed to write settings: %w", err)
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
