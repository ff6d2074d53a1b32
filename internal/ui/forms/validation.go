package forms

import (
	"net/url"
	"strings"
	"unicode"

	"github.com/Its-donkey/solution-submit/internal/i18n"
	"github.com/Its-donkey/solution-submit/internal/ui/model"
)

// Validate checks raw against the submission rules for lesson and returns
// the trimmed draft together with any field errors. The draft's IsPublic
// is true; callers override it with the toggle state. When the lesson has
// no live preview the live-preview input is ignored entirely.
func Validate(lesson model.Lesson, raw model.RawFields) (model.SubmissionDraft, model.FieldErrors) {
	draft := model.SubmissionDraft{
		RepoURL:  strings.TrimSpace(raw.RepoURL),
		IsPublic: true,
	}
	errs := model.FieldErrors{}

	switch {
	case draft.RepoURL == "":
		errs[model.FieldRepoURL] = i18n.T("validation.required")
	case !ValidateURL(draft.RepoURL):
		errs[model.FieldRepoURL] = i18n.T("validation.url")
	}

	if lesson.HasLivePreview {
		draft.LivePreviewURL = strings.TrimSpace(raw.LivePreviewURL)
		if draft.LivePreviewURL != "" && !ValidateURL(draft.LivePreviewURL) {
			errs[model.FieldLivePreviewURL] = i18n.T("validation.url")
		}
	}

	if errs.Empty() {
		return draft, nil
	}
	return draft, errs
}

// ValidateURL reports whether raw is an absolute http(s) URL with a host.
func ValidateURL(raw string) bool {
	if raw == "" || strings.IndexFunc(raw, unicode.IsSpace) >= 0 {
		return false
	}
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	return u.Hostname() != ""
}
