package main

import (
	"errors"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/Its-donkey/solution-submit/internal/config"
	"github.com/Its-donkey/solution-submit/internal/submit"
	"github.com/Its-donkey/solution-submit/internal/ui/forms"
	"github.com/Its-donkey/solution-submit/internal/ui/tui"
)

var errNotTerminal = errors.New("tui requires an interactive terminal")

var isTerminal = func(fd int) bool {
	return term.IsTerminal(fd)
}

func newTUICmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tui",
		Short: "Fill in the submission form in the terminal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !isTerminal(int(os.Stdin.Fd())) || !isTerminal(int(os.Stdout.Fd())) {
				return errNotTerminal
			}
			ctx := cmd.Context()
			rt, err := setup(ctx, cmd, "tui", stdoutOrDiscard(false))
			if err != nil {
				return err
			}
			defer rt.close(ctx)

			slug, _ := cmd.Flags().GetString("lesson")
			lesson, ok := rt.cfg.Lesson(slug)
			if !ok {
				return fmt.Errorf("unknown lesson %q", slug)
			}

			form, err := forms.New(lesson, forms.Options{
				OnSubmit: submit.Func(rt.submitter, lesson),
				OnClose: func() {
					rt.logger.Info("tui", "submission form closed", map[string]any{"lesson": lesson.Slug})
				},
				Logger: rt.logger,
				Tracer: rt.telemetry.Tracer(),
			})
			if err != nil {
				return err
			}
			_, err = tea.NewProgram(tui.New(ctx, form), tea.WithContext(ctx)).Run()
			if errors.Is(err, tea.ErrProgramKilled) {
				return nil
			}
			return err
		},
	}
	cmd.Flags().String("lesson", config.DefaultLesson, "lesson slug to submit a solution for")
	return cmd
}
