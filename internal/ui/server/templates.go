package server

import (
	"embed"
	"fmt"
	"html/template"

	"github.com/Its-donkey/solution-submit/internal/i18n"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

// loadTemplates parses the embedded page templates. Each page is parsed
// together with base.tmpl and rendered through the "base" template.
func loadTemplates() (map[string]*template.Template, error) {
	funcs := template.FuncMap{
		"T": i18n.T,
	}

	pages := []string{"form", "success", "not_found"}
	templates := make(map[string]*template.Template, len(pages))
	for _, name := range pages {
		tmpl, err := template.New(name).Funcs(funcs).ParseFS(templateFS, "templates/base.tmpl", "templates/"+name+".tmpl")
		if err != nil {
			return nil, fmt.Errorf("parse %s templates: %w", name, err)
		}
		templates[name] = tmpl
	}
	return templates, nil
}
