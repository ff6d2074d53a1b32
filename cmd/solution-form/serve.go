package main

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/Its-donkey/solution-submit/internal/ui/server"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the submission form over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			rt, err := setup(ctx, cmd, "serve", stdoutOrDiscard(true))
			if err != nil {
				return err
			}
			defer rt.close(ctx)

			err = server.Run(ctx, server.Options{
				Listen:    rt.cfg.Listen,
				ReturnURL: rt.cfg.ReturnURL,
				Lessons:   rt.cfg.Lessons,
				Submitter: rt.submitter,
				Logger:    rt.logger,
				Tracer:    rt.telemetry.Tracer(),
				FormTTL:   rt.cfg.FormTTL,
			})
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}
	cmd.Flags().String("listen", "", "address to serve the submission form on")
	cmd.Flags().String("return-url", "", "where the close action sends the browser")
	return cmd
}
