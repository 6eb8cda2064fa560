// Package web holds the HTML templates and static assets compiled into the binary.
package web

import (
	"embed"
	"html/template"
	"io/fs"
	"strconv"
	"time"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

// Templates parses every page template. Pages are addressed by file name, e.g. "endings.html".
func Templates() (*template.Template, error) {
	return template.New("").Funcs(template.FuncMap{
		"formatDate": func(t time.Time) string {
			if t.IsZero() {
				return ""
			}
			return t.UTC().Format("2006-01-02 15:04")
		},
		"formatRating": func(r float64) string {
			if r == 0 {
				return "unrated"
			}
			return strconv.FormatFloat(r, 'f', 1, 64) + " / 5"
		},
	}).ParseFS(templateFS, "templates/*.html")
}

// Static returns the static asset tree rooted at web/static.
func Static() fs.FS {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}
	return sub
}
