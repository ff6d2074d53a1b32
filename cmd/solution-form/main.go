// Command solution-form serves the project solution submission form over
// HTTP or in a terminal.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := fang.Execute(ctx, newRootCmd(), fang.WithVersion(version)); err != nil {
		stop()
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "solution-form",
		Short:         "Collect project solution submissions",
		Long:          "solution-form shows the project solution form for a lesson and forwards each submission to the learning platform.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	flags := cmd.PersistentFlags()
	flags.String("config", "", "path to solution-form.yaml")
	flags.String("lang", "", "language for form labels (en, de)")
	flags.String("submit-endpoint", "", "URL submissions are POSTed to; empty logs them instead")
	flags.Duration("submit-timeout", 0, "timeout for forwarding a submission")
	flags.String("log-level", "", "minimum log level (debug, info, warn, error)")
	flags.String("log-dir", "", "directory for rotated log files")
	flags.String("otlp-endpoint", "", "OTLP/HTTP endpoint for traces")

	cmd.AddCommand(newServeCmd(), newTUICmd(), newLogsCmd())
	return cmd
}

func configPath(cmd *cobra.Command) string {
	flag := cmd.Flags().Lookup("config")
	if flag == nil {
		flag = cmd.Root().PersistentFlags().Lookup("config")
	}
	if flag == nil {
		return ""
	}
	return flag.Value.String()
}
