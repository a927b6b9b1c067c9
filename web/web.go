package web

import "embed"

// Templates holds the dashboard page templates
//
//go:embed templates/*.html
var Templates embed.FS
