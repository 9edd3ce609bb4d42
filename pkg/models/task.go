package models

import "encoding/json"

type TaskStatus string

const (
	TaskStatusPending   TaskStatus = "Pending"
	TaskStatusCompleted TaskStatus = "Completed"
)

// TimestampLayout is the format used for version timestamps. Date
// comparisons operate on the first ten characters only.
const TimestampLayout = "2006-01-02 15:04:05"

// DateLayout is the format used for start/due dates and calendar-day queries.
const DateLayout = "2006-01-02"

type Task struct {
	ID             string     `json:"id"`
	Name           string     `json:"task_name"`
	Description    string     `json:"description"`
	StartDate      string     `json:"start_date"`
	DueDate        string     `json:"due_date"`
	TimeSpent      string     `json:"time_spent"`
	FunctionalArea string     `json:"functional_area"`
	Assignment     string     `json:"assignment"`
	TaskType       string     `json:"task_type"`
	Status         TaskStatus `json:"status"`
}

// Snapshot is the set of task fields frozen into a version record.
// Field names match the keys of the persisted version blob.
type Snapshot struct {
	TaskName       string     `json:"task_name"`
	Description    string     `json:"description"`
	StartDate      string     `json:"start_date"`
	DueDate        string     `json:"due_date"`
	TimeSpent      string     `json:"time_spent"`
	FunctionalArea string     `json:"functional_area"`
	Assignment     string     `json:"assignment"`
	TaskType       string     `json:"task_type"`
	Status         TaskStatus `json:"status"`
}

// Snapshot copies the task's current field values into a Snapshot.
func (t *Task) Snapshot() Snapshot {
	return Snapshot{
		TaskName:       t.Name,
		Description:    t.Description,
		StartDate:      t.StartDate,
		DueDate:        t.DueDate,
		TimeSpent:      t.TimeSpent,
		FunctionalArea: t.FunctionalArea,
		Assignment:     t.Assignment,
		TaskType:       t.TaskType,
		Status:         t.Status,
	}
}

// TaskVersion is an immutable snapshot of a task taken at creation time.
// Versions outlive their task: deleting a task leaves its history intact.
type TaskVersion struct {
	VersionID int64  `json:"version_id"`
	TaskID    string `json:"task_id"`
	TaskName  string `json:"task_name"`
	Timestamp string `json:"version_date"`
	Data      string `json:"version_data"`
}

// Snapshot deserializes the version's stored field blob.
func (v *TaskVersion) Snapshot() (Snapshot, error) {
	var s Snapshot
	err := json.Unmarshal([]byte(v.Data), &s)
	return s, err
}
