package ui

import "embed"

// Files holds the page templates and the static assets, so the binaries run from any working directory.
//
//go:embed templates static
var Files embed.FS
