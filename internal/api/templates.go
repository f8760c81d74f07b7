package api

import (
	"embed"
	"html/template"
)

//go:embed templates/*
var templateFS embed.FS

// newTemplates parses the page templates with their helper functions.
func newTemplates() *template.Template {
	funcs := template.FuncMap{
		// classIf returns class when cond holds, for toggled CSS classes.
		"classIf": func(cond bool, class string) string {
			if cond {
				return class
			}
			return ""
		},
	}
	return template.Must(template.New("").Funcs(funcs).ParseFS(templateFS, "templates/*.html"))
}
