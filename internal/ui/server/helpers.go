package server

import (
	"strings"

	"github.com/Its-donkey/solution-submit/internal/submit"
	"github.com/Its-donkey/solution-submit/internal/ui/model"
	"github.com/Its-donkey/solution-submit/internal/ui/state"
)

func applyDefaults(opts Options) Options {
	if strings.TrimSpace(opts.Listen) == "" {
		opts.Listen = "127.0.0.1:4173"
	}
	if strings.TrimSpace(opts.ReturnURL) == "" {
		opts.ReturnURL = "/"
	}
	if opts.Registry == nil {
		opts.Registry = state.NewRegistry(opts.FormTTL)
	}
	if opts.Submitter == nil {
		opts.Submitter = submit.LogSubmitter{Logger: opts.Logger}
	}
	lessons := make(map[string]model.Lesson, len(opts.Lessons))
	for slug, lesson := range opts.Lessons {
		slug = strings.ToLower(strings.TrimSpace(slug))
		if slug == "" {
			continue
		}
		if lesson.Slug == "" {
			lesson.Slug = slug
		}
		lessons[slug] = lesson
	}
	opts.Lessons = lessons
	return opts
}

func formPath(token string) string {
	return "/submission/" + token
}
