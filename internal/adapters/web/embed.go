// Package web serves the redaction JSON API and an embedded demo page over HTTP.
// Binds to localhost only: no network exposure, no auth.
package web

import "embed"

//go:embed static/index.html
var staticFS embed.FS
