// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/reqgraph/pkg/logging"
	"github.com/AleutianAI/reqgraph/pkg/ux"
	"github.com/AleutianAI/reqgraph/services/traceability/config"
	"github.com/AleutianAI/reqgraph/services/traceability/telemetry"
)

// configEnv names the environment variable consulted when --config is
// not given.
const configEnv = "REQGRAPH_CONFIG"

type globalFlags struct {
	configPath string
	repos      []string
	logLevel   string
	jsonLogs   bool
	noColor    bool
	quiet      bool
}

// app holds the state shared by every subcommand for one invocation.
type app struct {
	stdout io.Writer
	stderr io.Writer
	flags  globalFlags

	cfg      *config.Config
	logger   *logging.Logger
	shutdown func(context.Context) error
	out      *ux.Printer
	errOut   *ux.Printer
}

func newApp(stdout, stderr io.Writer) *app {
	return &app{stdout: stdout, stderr: stderr}
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "reqgraph",
		Short: "Requirements traceability knowledge graph",
		Long: `reqgraph reads requirement, architecture and design documents written as
Markdown with YAML frontmatter, links them into a knowledge graph, and checks
that every item traces back to a solution.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
	}
	root.SetOut(a.stdout)
	root.SetErr(a.stderr)

	pf := root.PersistentFlags()
	pf.StringVarP(&a.flags.configPath, "config", "c", "", "path to the configuration file (env "+configEnv+", default ./"+config.DefaultFileName+")")
	pf.StringArrayVarP(&a.flags.repos, "repo", "r", nil, "repository path, repeatable (overrides repositories.paths)")
	pf.StringVar(&a.flags.logLevel, "log-level", "", "log level: debug, info, warn, error")
	pf.BoolVar(&a.flags.jsonLogs, "json-logs", false, "write logs as JSON")
	pf.BoolVar(&a.flags.noColor, "no-color", false, "disable colored output")
	pf.BoolVarP(&a.flags.quiet, "quiet", "q", false, "suppress log output on stderr")

	root.AddCommand(
		newValidateCmd(a),
		newQueryCmd(a),
		newDiffCmd(a),
		newReportCmd(a),
		newParseCmd(a),
		newNextIDCmd(a),
		newInitCmd(a),
		newEditCmd(a),
	)
	return root
}

// setup resolves configuration, installs the logger and starts telemetry.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	path := a.flags.configPath
	if path == "" {
		path = os.Getenv(configEnv)
	}
	cfg, used, err := config.Load(path)
	if err != nil {
		return err
	}

	overrides := config.Overrides{
		Repositories: a.flags.repos,
		LogLevel:     a.flags.logLevel,
	}
	if cmd.Flags().Changed("json-logs") {
		overrides.JSONLogs = &a.flags.jsonLogs
	}
	if a.flags.noColor {
		overrides.Colors = string(ux.ColorNever)
	}
	cfg.Merge(overrides)
	if err := cfg.Validate(); err != nil {
		return err
	}
	a.cfg = cfg

	lc, err := cfg.LoggingConfig()
	if err != nil {
		return err
	}
	lc.Output = a.stderr
	lc.Quiet = a.flags.quiet
	a.logger = logging.New(lc)
	slog.SetDefault(a.logger.Slog())

	tc := cfg.TelemetryConfig()
	tc.Writer = a.stderr
	a.shutdown, err = telemetry.Init(cmd.Context(), tc)
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}

	a.out = ux.NewPrinter(a.stdout, ux.ColorMode(cfg.Output.Colors))
	a.errOut = ux.NewPrinter(a.stderr, ux.ColorMode(cfg.Output.Colors))

	slog.Debug("configuration resolved",
		slog.String("file", used),
		slog.String("command", cmd.Name()),
		slog.String("repositories", strings.Join(cfg.Repositories.Paths, ",")),
	)
	return nil
}

// close flushes telemetry and the log file. It runs whether or not the
// command succeeded.
func (a *app) close(ctx context.Context) {
	if a.shutdown != nil {
		if err := a.shutdown(ctx); err != nil {
			slog.Warn("telemetry shutdown failed", slog.String("error", err.Error()))
		}
	}
	if a.logger != nil {
		_ = a.logger.Close()
	}
}

// checkFormat rejects an output format the command does not support.
func checkFormat(format string, allowed ...string) error {
	if slices.Contains(allowed, format) {
		return nil
	}
	return fmt.Errorf("unsupported format %q (expected one of: %s)", format, strings.Join(allowed, ", "))
}
