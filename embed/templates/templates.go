package templates

import _ "embed"

// Report is the HTML template for the daily task report.
//
//go:embed report.html.tmpl
var Report string
