package server

import (
	"bytes"
	"net/http"

	"github.com/Its-donkey/solution-submit/internal/i18n"
	"github.com/Its-donkey/solution-submit/internal/ui/model"
)

type basePageData struct {
	PageTitle   string
	Lang        string
	CurrentYear int
}

type formPageData struct {
	basePageData
	Form        model.FormView
	FormAction  string
	CloseAction string
}

func (s *server) buildBasePageData(title string) basePageData {
	return basePageData{
		PageTitle:   title,
		Lang:        i18n.Lang(),
		CurrentYear: s.currentYear,
	}
}

func (s *server) renderForm(w http.ResponseWriter, r *http.Request, view model.FormView, status int) {
	name := "form"
	title := i18n.T("form.title")
	if view.Succeeded {
		name = "success"
		title = i18n.T("form.success")
		status = http.StatusOK
	}
	if view.Lesson.Title != "" {
		title = title + " · " + view.Lesson.Title
	}
	s.render(w, r, name, formPageData{
		basePageData: s.buildBasePageData(title),
		Form:         view,
		FormAction:   "/submission",
		CloseAction:  formPath(view.ID) + "/close",
	}, status)
}

func (s *server) renderNotFound(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, "not_found", s.buildBasePageData(i18n.T("form.not_found")), http.StatusNotFound)
}

func (s *server) render(w http.ResponseWriter, r *http.Request, name string, data any, status int) {
	tmpl, ok := s.templates[name]
	if !ok {
		http.Error(w, "template missing", http.StatusInternalServerError)
		return
	}
	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "base", data); err != nil {
		s.logger.Error("general", "render template", err, map[string]any{
			"template": name,
			"path":     r.URL.Path,
		})
		http.Error(w, "template error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}
