// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/reqgraph/pkg/logging"
	"github.com/AleutianAI/reqgraph/services/traceability/graph"
	"github.com/AleutianAI/reqgraph/services/traceability/validation"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), DefaultFileName)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestDefaultConfig_IsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, []string{"."}, cfg.Repositories.Paths)
	assert.Equal(t, "auto", cfg.Output.Colors)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadFromFile(t *testing.T) {
	path := writeConfig(t, `
repositories:
  paths: [docs, ../shared]
  include: ["**/*.md"]
  exclude: ["**/drafts/**"]
  workers: 4
validation:
  strict_orphans: true
  allowed_custom_fields: [owner]
telemetry:
  metric_exporter: prometheus
  metrics_addr: 127.0.0.1:9464
logging:
  level: debug
`)

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"docs", "../shared"}, cfg.Repositories.Paths)
	assert.Equal(t, 4, cfg.Repositories.Workers)
	assert.True(t, cfg.Validation.StrictOrphans)
	assert.Equal(t, []string{"owner"}, cfg.Validation.AllowedCustomFields)
	assert.Equal(t, "prometheus", cfg.Telemetry.MetricExporter)
	assert.Equal(t, "none", cfg.Telemetry.TraceExporter, "unset keys keep defaults")
	assert.Equal(t, "auto", cfg.Output.Colors)
	assert.Equal(t, "debug", cfg.Logging.Level)

	filter := cfg.PathFilter()
	assert.True(t, filter.Match("reqs/SOL-001.md"))
	assert.False(t, filter.Match("reqs/drafts/SOL-002.md"))
}

func TestLoadFromFile_Empty(t *testing.T) {
	cfg, err := LoadFromFile(writeConfig(t, ""))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadFromFile_NotFound(t *testing.T) {
	_, err := LoadFromFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, ErrConfigNotFound)
}

func TestLoadFromFile_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantMsg string
	}{
		{"unknown key", "validation:\n  strict: true\n", "strict"},
		{"bad yaml", "repositories: [\n", ""},
		{"empty paths", "repositories:\n  paths: []\n", "repositories.paths is required"},
		{"blank path", "repositories:\n  paths: [\"\"]\n", "repositories.paths[0] is required"},
		{"bad glob", "repositories:\n  exclude: [\"[\"]\n", "repositories.exclude[0] is not a valid glob"},
		{"bad colors", "output:\n  colors: rainbow\n", "output.colors must be one of [auto always never]"},
		{"bad exporter", "telemetry:\n  trace_exporter: otlp\n", "telemetry.trace_exporter must be one of"},
		{"bad level", "logging:\n  level: verbose\n", "logging.level must be one of"},
		{"bad addr", "telemetry:\n  metrics_addr: nope\n", "telemetry.metrics_addr must be host:port"},
		{"negative workers", "repositories:\n  workers: -1\n", "repositories.workers must be gte 0"},
		{"negative graph limit", "graph:\n  max_items: -5\n", "graph.max_items must be gte 0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFromFile(writeConfig(t, tt.body))
			require.ErrorIs(t, err, ErrInvalidConfig)
			if tt.wantMsg != "" {
				assert.Contains(t, err.Error(), tt.wantMsg)
			}
		})
	}
}

func TestLoad_DefaultFileInWorkingDirectory(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	cfg, used, err := Load("")
	require.NoError(t, err)
	assert.Empty(t, used)
	assert.Equal(t, DefaultConfig(), cfg)

	require.NoError(t, os.WriteFile(filepath.Join(dir, DefaultFileName), []byte("output:\n  colors: never\n"), 0o600))
	cfg, used, err = Load("")
	require.NoError(t, err)
	assert.Equal(t, DefaultFileName, used)
	assert.Equal(t, "never", cfg.Output.Colors)

	_, _, err = Load("elsewhere.yaml")
	assert.ErrorIs(t, err, ErrConfigNotFound)
}

func TestMerge(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Validation.StrictOrphans = true
	cfg.Logging.JSON = true

	strict := false
	cfg.Merge(Overrides{
		Repositories: []string{"a", "b"},
		Strict:       &strict,
		LogLevel:     "WARN",
	})

	assert.Equal(t, []string{"a", "b"}, cfg.Repositories.Paths)
	assert.False(t, cfg.Validation.StrictOrphans)
	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.True(t, cfg.Logging.JSON, "nil override keeps file value")
	assert.Equal(t, "auto", cfg.Output.Colors)
	require.NoError(t, cfg.Validate())
}

func TestDerivedOptions(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Validation.StrictOrphans = true
	cfg.Validation.AllowedCustomFields = []string{"owner"}
	cfg.Repositories.Workers = 2
	cfg.Logging.Level = "debug"
	cfg.Logging.Dir = "/tmp/reqgraph-logs"

	v := validation.NewValidator(cfg.ValidatorOptions()...)
	assert.True(t, v.Options().Strict)
	assert.Equal(t, []string{"owner"}, v.Options().AllowedCustomFields)

	assert.Len(t, cfg.ScannerOptions(), 2)

	lc, err := cfg.LoggingConfig()
	require.NoError(t, err)
	assert.Equal(t, logging.LevelDebug, lc.Level)
	assert.Equal(t, "/tmp/reqgraph-logs", lc.LogDir)

	tc := cfg.TelemetryConfig()
	assert.Equal(t, "none", tc.TraceExporter)
	assert.Equal(t, "reqgraph", tc.ServiceName)
}

func TestBuilderOptions(t *testing.T) {
	cfg := DefaultConfig()
	assert.Empty(t, cfg.BuilderOptions())

	cfg, err := Parse([]byte("graph:\n  max_items: 50\n  max_relationships: 200\n"))
	require.NoError(t, err)

	opts := graph.DefaultBuilderOptions()
	for _, opt := range cfg.BuilderOptions() {
		opt(&opts)
	}
	assert.Equal(t, 50, opts.MaxNodes)
	assert.Equal(t, 200, opts.MaxEdges)
}
