package report

import (
	"strings"
	"testing"
	"time"

	"github.com/ldi/tally/internal/settings"
	"github.com/ldi/tally/pkg/models"
)

func TestBuildAndRender(t *testing.T) {
	cfg := settings.Default()
	cfg.Name = "A. Tester"
	cfg.Role = "Engineer\nSecond line is dropped"
	cfg.MobileNo = "555-0100"
	cfg.Email = "tester@example.com"
	cfg.TimesheetLink = "https://sheets.example.com/ts"

	tasks := []*models.Task{
		{Name: "Write report", Description: "reporting", TimeSpent: "2"},
		{Name: "Review code", Description: "review", TimeSpent: "1.5"},
	}

	date, err := time.Parse(models.DateLayout, "2024-05-10")
	if err != nil {
		t.Fatalf("Failed to parse date: %v", err)
	}

	r := Build(date, tasks, cfg)
	if r.Date != "2024-05-10" {
		t.Errorf("Expected date 2024-05-10, got %q", r.Date)
	}
	if len(r.Rows) != 2 {
		t.Fatalf("Expected 2 rows, got %d", len(r.Rows))
	}
	if r.Rows[0].Keyword != "reporting" {
		t.Errorf("Expected description as keyword, got %q", r.Rows[0].Keyword)
	}
	if r.SignatureRole != "Engineer" {
		t.Errorf("Expected first line of role only, got %q", r.SignatureRole)
	}

	html, err := Render(r)
	if err != nil {
		t.Fatalf("Failed to render: %v", err)
	}

	for _, want := range []string{
		`rowspan="2">2024-05-10`,
		"<td>Write report</td>",
		"<td>Review code</td>",
		"<td>1.5</td>",
		"https://sheets.example.com/ts",
		"<b>A. Tester</b>",
		"M: 555-0100",
		"E: tester@example.com",
	} {
		if !strings.Contains(html, want) {
			t.Errorf("Rendered report missing %q", want)
		}
	}

	// The date cell is emitted once and spans every row.
	if strings.Count(html, "2024-05-10") != 1 {
		t.Errorf("Expected the date exactly once, got %d occurrences", strings.Count(html, "2024-05-10"))
	}
}

func TestRenderEscapesTaskFields(t *testing.T) {
	tasks := []*models.Task{
		{Name: "<script>alert(1)</script>", Description: "x", TimeSpent: "1"},
	}
	r := Build(time.Now(), tasks, settings.Default())

	html, err := Render(r)
	if err != nil {
		t.Fatalf("Failed to render: %v", err)
	}
	if strings.Contains(html, "<script>") {
		t.Errorf("Task name was not escaped")
	}
}

func TestRenderOmitsOptionalSections(t *testing.T) {
	r := Build(time.Now(), nil, settings.Default())

	html, err := Render(r)
	if err != nil {
		t.Fatalf("Failed to render: %v", err)
	}
	for _, absent := range []string{"Monthly Timesheet", "M: ", "E: "} {
		if strings.Contains(html, absent) {
			t.Errorf("Expected %q to be omitted when unset", absent)
		}
	}
}
