package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/Its-donkey/solution-submit/internal/config"
	"github.com/Its-donkey/solution-submit/internal/i18n"
	"github.com/Its-donkey/solution-submit/internal/submit"
	"github.com/Its-donkey/solution-submit/internal/telemetry"
	"github.com/Its-donkey/solution-submit/logging"
)

const logFileName = "solution-form.log"

// appRuntime holds the shared dependencies of the serve and tui commands.
type appRuntime struct {
	cfg       config.Config
	logger    *logging.Logger
	submitter submit.Submitter
	telemetry *telemetry.Provider
	logFile   *logging.FileWriter
}

// setup loads configuration and builds the logger, submitter and tracer.
// console is where log lines go when no log dir is configured.
func setup(ctx context.Context, cmd *cobra.Command, name string, console io.Writer) (*appRuntime, error) {
	cfg, err := config.LoadConfig(cmd, configPath(cmd))
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if err := i18n.Init(cfg.Lang); err != nil {
		return nil, fmt.Errorf("load translations: %w", err)
	}

	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, err
	}
	rt := &appRuntime{cfg: cfg}
	writers := []io.Writer{console}
	if cfg.Log.Dir != "" {
		fw, err := logging.NewFileWriter(cfg.Log.Dir, logFileName, 10, 5)
		if err != nil {
			return nil, err
		}
		rt.logFile = fw
		writers = []io.Writer{fw}
		if console != io.Discard {
			writers = append(writers, console)
		}
	}
	rt.logger = logging.New(name, level, writers...)

	if cfg.Submit.Endpoint != "" {
		sub, err := submit.NewHTTPSubmitter(cfg.Submit.Endpoint, cfg.Submit.Timeout, rt.logger)
		if err != nil {
			rt.close(ctx)
			return nil, err
		}
		rt.submitter = sub
	} else {
		rt.submitter = submit.LogSubmitter{Logger: rt.logger}
	}

	tp, err := telemetry.Setup(ctx, cfg.Telemetry.Endpoint, cfg.Telemetry.ServiceName)
	if err != nil {
		rt.close(ctx)
		return nil, err
	}
	rt.telemetry = tp
	return rt, nil
}

func (rt *appRuntime) close(ctx context.Context) error {
	var errs []error
	if rt.telemetry != nil {
		if err := rt.telemetry.Shutdown(context.WithoutCancel(ctx)); err != nil {
			errs = append(errs, fmt.Errorf("shutdown telemetry: %w", err))
		}
	}
	if rt.logFile != nil {
		if err := rt.logFile.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close log file: %w", err))
		}
	}
	return errors.Join(errs...)
}

func stdoutOrDiscard(enabled bool) io.Writer {
	if enabled {
		return os.Stdout
	}
	return io.Discard
}
