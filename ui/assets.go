package ui

import (
	"embed"
	"html/template"
	"io/fs"
	"strconv"
)

// Assets embeds templates and static directories into the binary.
//
//go:embed templates static
var Assets embed.FS

// FuncMap holds the helpers the templates rely on.
func FuncMap() template.FuncMap {
	return template.FuncMap{
		"fixed": func(v float64) string { return strconv.FormatFloat(v, 'f', 2, 64) },
		"add":   func(a, b int) int { return a + b },
	}
}

// Templates parses every embedded page, keyed by base file name.
func Templates() (*template.Template, error) {
	return template.New("").Funcs(FuncMap()).ParseFS(Assets, "templates/*.html")
}

// Static exposes the static directory for r.StaticFS.
func Static() fs.FS {
	sub, err := fs.Sub(Assets, "static")
	if err != nil {
		panic(err)
	}
	return sub
}
