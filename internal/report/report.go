// Package report renders the daily task table sent through the outbound
// webhook as HTML.
package report

import (
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/ldi/tally/embed/templates"
	"github.com/ldi/tally/internal/settings"
	"github.com/ldi/tally/pkg/models"
)

// Row is one task line of the report table.
type Row struct {
	Name      string
	Keyword   string
	TimeSpent string
}

// Report is the full data set a rendered report is built from.
type Report struct {
	Date          string
	Rows          []Row
	TimesheetLink string
	SignatureName string
	SignatureRole string
	MobileNo      string
	Email         string
}

var reportTmpl = template.Must(template.New("report").Parse(templates.Report))

// Build assembles a Report for the given day from live tasks and the user's
// signature settings. The description doubles as the task keyword column.
func Build(date time.Time, tasks []*models.Task, cfg *settings.Settings) Report {
	rows := make([]Row, 0, len(tasks))
	for _, t := range tasks {
		rows = append(rows, Row{
			Name:      t.Name,
			Keyword:   t.Description,
			TimeSpent: t.TimeSpent,
		})
	}

	role := cfg.Role
	if i := strings.IndexByte(role, '\n'); i >= 0 {
		role = role[:i]
	}

	return Report{
		Date:          date.Format(models.DateLayout),
		Rows:          rows,
		TimesheetLink: cfg.TimesheetLink,
		SignatureName: cfg.Name,
		SignatureRole: role,
		MobileNo:      cfg.MobileNo,
		Email:         cfg.Email,
	}
}

// Render produces the HTML document for the report.
func Render(r Report) (string, error) {
	var sb strings.Builder
	if err := reportTmpl.Execute(&sb, r); err != nil {
		return "", fmt.Errorf("failed to render report: %w", err)
	}
	return sb.String(), nil
}
