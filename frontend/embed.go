// Package frontend embeds the landing page templates and stylesheet.
package frontend

import (
	"embed"
	"io/fs"
)

//go:embed templates static
var files embed.FS

// Templates holds the HTML templates, rooted at the templates directory
var Templates fs.FS

// Static holds the assets served under /static
var Static fs.FS

func init() {
	// Strip the directory prefixes so files are addressed by name
	Templates, _ = fs.Sub(files, "templates")
	Static, _ = fs.Sub(files, "static")
}
