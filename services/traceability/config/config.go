// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package config loads and validates reqgraph.yaml.
//
// A configuration file is optional. Values are resolved in three layers:
// DefaultConfig, then the YAML file, then command-line overrides applied
// with Merge. Validate must pass before the configuration is used.
//
// Example reqgraph.yaml:
//
//	repositories:
//	  paths: [docs/requirements, ../platform-reqs]
//	  include: ["**/*.md"]
//	  exclude: ["**/drafts/**"]
//	graph:
//	  max_items: 100000
//	validation:
//	  strict_orphans: true
//	  allowed_custom_fields: [owner, priority]
//	output:
//	  colors: auto
//	telemetry:
//	  trace_exporter: none
//	  metric_exporter: prometheus
//	  metrics_addr: 127.0.0.1:9464
//	logging:
//	  level: info
//	  dir: ~/.reqgraph/logs
//	  json: false
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"reflect"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/AleutianAI/reqgraph/pkg/logging"
	"github.com/AleutianAI/reqgraph/services/traceability/graph"
	"github.com/AleutianAI/reqgraph/services/traceability/repository"
	"github.com/AleutianAI/reqgraph/services/traceability/telemetry"
	"github.com/AleutianAI/reqgraph/services/traceability/validation"
)

// DefaultFileName is the configuration file looked up in the working
// directory when no explicit path is given.
const DefaultFileName = "reqgraph.yaml"

var (
	// ErrConfigNotFound indicates an explicitly requested file does not exist.
	ErrConfigNotFound = errors.New("config file not found")

	// ErrInvalidConfig indicates the file could not be decoded or failed
	// validation.
	ErrInvalidConfig = errors.New("invalid configuration")
)

// configValidate is shared by every Validate call. Custom validators are
// registered in init.
var configValidate *validator.Validate

func init() {
	configValidate = validator.New()
	configValidate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("yaml"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	_ = configValidate.RegisterValidation("glob", validateGlob)
}

// validateGlob accepts a doublestar pattern.
func validateGlob(fl validator.FieldLevel) bool {
	return doublestar.ValidatePattern(fl.Field().String())
}

// Config is the complete reqgraph configuration.
type Config struct {
	Repositories RepositoriesConfig `yaml:"repositories"`
	Graph        GraphConfig        `yaml:"graph"`
	Validation   ValidationConfig   `yaml:"validation"`
	Output       OutputConfig       `yaml:"output"`
	Telemetry    TelemetryConfig    `yaml:"telemetry"`
	Logging      LoggingConfig      `yaml:"logging"`
}

// RepositoriesConfig lists the directories to scan.
type RepositoriesConfig struct {
	// Paths are repository roots. At least one is required.
	Paths []string `yaml:"paths" validate:"required,min=1,dive,required"`

	// Include keeps only files matching one of these doublestar globs.
	// Empty means every Markdown file.
	Include []string `yaml:"include" validate:"dive,glob"`

	// Exclude drops files matching any of these globs. Exclude wins.
	Exclude []string `yaml:"exclude" validate:"dive,glob"`

	// Workers bounds parallel parsing. 0 means one per CPU.
	Workers int `yaml:"workers" validate:"gte=0,lte=256"`
}

// GraphConfig bounds the size of a built graph. Zero keeps the builder's
// own limit.
type GraphConfig struct {
	MaxItems         int `yaml:"max_items" validate:"gte=0"`
	MaxRelationships int `yaml:"max_relationships" validate:"gte=0"`
}

// ValidationConfig tunes the validation pipeline.
type ValidationConfig struct {
	StrictOrphans       bool     `yaml:"strict_orphans"`
	AllowedCustomFields []string `yaml:"allowed_custom_fields" validate:"dive,required"`
}

// OutputConfig controls terminal rendering.
type OutputConfig struct {
	// Colors is "auto" (color only on a terminal), "always" or "never".
	Colors string `yaml:"colors" validate:"oneof=auto always never"`
}

// TelemetryConfig selects OpenTelemetry exporters.
type TelemetryConfig struct {
	TraceExporter  string `yaml:"trace_exporter" validate:"oneof=none stdout"`
	MetricExporter string `yaml:"metric_exporter" validate:"oneof=none stdout prometheus"`

	// MetricsAddr serves /metrics while `validate --watch` runs. It only
	// applies with the prometheus exporter.
	MetricsAddr string `yaml:"metrics_addr" validate:"omitempty,hostname_port"`
}

// LoggingConfig configures pkg/logging.
type LoggingConfig struct {
	Level string `yaml:"level" validate:"oneof=debug info warn error"`
	Dir   string `yaml:"dir"`
	JSON  bool   `yaml:"json"`
}

// DefaultConfig returns the configuration used when no file is present.
func DefaultConfig() *Config {
	return &Config{
		Repositories: RepositoriesConfig{Paths: []string{"."}},
		Output:       OutputConfig{Colors: "auto"},
		Telemetry: TelemetryConfig{
			TraceExporter:  telemetry.ExporterNone,
			MetricExporter: telemetry.ExporterNone,
		},
		Logging: LoggingConfig{Level: "info"},
	}
}

// Load resolves the configuration file.
//
// Description:
//
//	An explicit path must exist. With an empty path, DefaultFileName in
//	the working directory is used if present, otherwise DefaultConfig.
//
// Outputs:
//
//	*Config - Decoded and validated configuration.
//	string - The file that was read, or "" when defaults were used.
//	error - ErrConfigNotFound or ErrInvalidConfig, wrapped.
func Load(path string) (*Config, string, error) {
	if path == "" {
		if _, err := os.Stat(DefaultFileName); err != nil {
			return DefaultConfig(), "", nil
		}
		path = DefaultFileName
	}
	cfg, err := LoadFromFile(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

// LoadFromFile reads path over DefaultConfig and validates the result.
// Keys not defined by Config are rejected.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes YAML over DefaultConfig and validates the result.
func Parse(data []byte) (*Config, error) {
	cfg := DefaultConfig()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks every field against its struct tag.
//
// Outputs:
//
//	error - ErrInvalidConfig wrapping one line per failing field, or nil.
func (c *Config) Validate() error {
	err := configValidate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, describeFieldError(fe))
	}
	return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(msgs, "; "))
}

func describeFieldError(fe validator.FieldError) string {
	field := strings.TrimPrefix(fe.Namespace(), "Config.")
	switch fe.Tag() {
	case "required", "min":
		return fmt.Sprintf("%s is required", field)
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s], got %q", field, fe.Param(), fe.Value())
	case "glob":
		return fmt.Sprintf("%s is not a valid glob: %q", field, fe.Value())
	case "gte", "lte":
		return fmt.Sprintf("%s must be %s %s, got %v", field, fe.Tag(), fe.Param(), fe.Value())
	case "hostname_port":
		return fmt.Sprintf("%s must be host:port, got %q", field, fe.Value())
	default:
		return fmt.Sprintf("%s failed %s", field, fe.Tag())
	}
}

// Overrides carries command-line values. Nil and empty fields leave the
// file value in place.
type Overrides struct {
	Repositories []string
	Strict       *bool
	LogLevel     string
	JSONLogs     *bool
	Colors       string
}

// Merge applies overrides on top of c. Repositories replace the file
// list rather than extending it.
func (c *Config) Merge(o Overrides) {
	if len(o.Repositories) > 0 {
		c.Repositories.Paths = append([]string(nil), o.Repositories...)
	}
	if o.Strict != nil {
		c.Validation.StrictOrphans = *o.Strict
	}
	if o.LogLevel != "" {
		c.Logging.Level = strings.ToLower(o.LogLevel)
	}
	if o.JSONLogs != nil {
		c.Logging.JSON = *o.JSONLogs
	}
	if o.Colors != "" {
		c.Output.Colors = o.Colors
	}
}

// PathFilter returns the include/exclude filter for the scanner.
func (c *Config) PathFilter() repository.PathFilter {
	return repository.PathFilter{Include: c.Repositories.Include, Exclude: c.Repositories.Exclude}
}

// ScannerOptions returns the scanner options implied by the configuration.
func (c *Config) ScannerOptions() []repository.ScannerOption {
	opts := []repository.ScannerOption{repository.WithFilter(c.PathFilter())}
	if c.Repositories.Workers > 0 {
		opts = append(opts, repository.WithWorkerCount(c.Repositories.Workers))
	}
	return opts
}

// BuilderOptions returns the graph size limits implied by the
// configuration.
func (c *Config) BuilderOptions() []graph.BuilderOption {
	var opts []graph.BuilderOption
	if c.Graph.MaxItems > 0 {
		opts = append(opts, graph.WithBuilderMaxNodes(c.Graph.MaxItems))
	}
	if c.Graph.MaxRelationships > 0 {
		opts = append(opts, graph.WithBuilderMaxEdges(c.Graph.MaxRelationships))
	}
	return opts
}

// ValidatorOptions returns the validation options implied by the
// configuration.
func (c *Config) ValidatorOptions() []validation.Option {
	return []validation.Option{
		validation.WithStrict(c.Validation.StrictOrphans),
		validation.WithAllowedCustomFields(c.Validation.AllowedCustomFields...),
	}
}

// TelemetryConfig returns the telemetry settings for telemetry.Init.
func (c *Config) TelemetryConfig() telemetry.Config {
	tc := telemetry.DefaultConfig()
	tc.TraceExporter = c.Telemetry.TraceExporter
	tc.MetricExporter = c.Telemetry.MetricExporter
	return tc
}

// LoggingConfig returns the logger settings for logging.New.
func (c *Config) LoggingConfig() (logging.Config, error) {
	level, err := logging.ParseLevel(c.Logging.Level)
	if err != nil {
		return logging.Config{}, err
	}
	return logging.Config{
		Level:   level,
		LogDir:  c.Logging.Dir,
		Service: "reqgraph",
		JSON:    c.Logging.JSON,
	}, nil
}
