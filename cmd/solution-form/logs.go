package main

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/Its-donkey/solution-submit/internal/config"
	"github.com/Its-donkey/solution-submit/logging"
)

var errNoLogDir = errors.New("log.dir is not configured")

func newLogsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Print the most recent entries from the log file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.LoadConfig(cmd, configPath(cmd))
			if err != nil {
				return err
			}
			if cfg.Log.Dir == "" {
				return errNoLogDir
			}
			n, _ := cmd.Flags().GetInt("lines")
			if n <= 0 {
				n = 50
			}
			entries, err := logging.ReadRecent(filepath.Join(cfg.Log.Dir, logFileName), n)
			if err != nil {
				return fmt.Errorf("read log file: %w", err)
			}
			out := cmd.OutOrStdout()
			for _, e := range entries {
				line := fmt.Sprintf("%s %-5s [%s] %s", e.Timestamp.Format("2006-01-02T15:04:05Z07:00"), e.Level, e.Category, e.Message)
				if e.RequestID != "" {
					line += " request_id=" + e.RequestID
				}
				if e.Error != "" {
					line += " error=" + e.Error
				}
				fmt.Fprintln(out, line)
			}
			return nil
		},
	}
	cmd.Flags().IntP("lines", "n", 50, "number of entries to print")
	return cmd
}
