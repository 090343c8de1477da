// Package config holds the runtime settings of the hl7bridge command: how it
// logs, how many messages it transforms at once, where output goes, and
// error-handling overrides applied on top of a mapping configuration.
//
// Settings are read from TOML:
//
//	[log]
//	level = "info"     # debug, info, warn, error
//	format = "text"    # text or json
//
//	[batch]
//	workers = 4        # 0 means one per CPU
//
//	[output]
//	dir = "out"
//	indent = 2         # spaces; 0 writes compact output
//
//	[error_handling]
//	on_validation_fail = "skip"
package config

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime"
	"strings"

	"github.com/BurntSushi/toml"

	"hl7bridge/internal/diagnostic"
	"hl7bridge/internal/fault"
	"hl7bridge/internal/mapping"
	"hl7bridge/internal/match"
)

// Diagnostic codes for settings files.
const (
	CodeUnknownSetting = "S001"
	CodeInvalidSetting = "S002"
)

const defaultIndent = 2

// Settings is the complete runtime configuration of the command.
type Settings struct {
	Log           LogSettings           `toml:"log"`
	Batch         BatchSettings         `toml:"batch"`
	Output        OutputSettings        `toml:"output"`
	ErrorHandling ErrorHandlingSettings `toml:"error_handling"`
}

// LogSettings selects the log handler.
type LogSettings struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// BatchSettings bounds parallel transformation.
type BatchSettings struct {
	Workers int `toml:"workers"`
}

// OutputSettings controls where and how results are written.
type OutputSettings struct {
	Dir    string `toml:"dir"`
	Indent *int   `toml:"indent"`
}

// ErrorHandlingSettings override the mapping's error_handling block. Empty
// values leave the mapping's own setting in place.
type ErrorHandlingSettings struct {
	OnMissingRequired  string `toml:"on_missing_required"`
	OnValidationFail   string `toml:"on_validation_fail"`
	OnExpressionError  string `toml:"on_expression_error"`
	OnCoercionError    string `toml:"on_coercion_error"`
	OnMalformedSegment string `toml:"on_malformed_segment"`
	OnInvalidStructure string `toml:"on_invalid_structure"`
	LogLevel           string `toml:"log_level"`
}

var knownKeys = []string{
	"log", "log.level", "log.format",
	"batch", "batch.workers",
	"output", "output.dir", "output.indent",
	"error_handling",
	"error_handling.on_missing_required",
	"error_handling.on_validation_fail",
	"error_handling.on_expression_error",
	"error_handling.on_coercion_error",
	"error_handling.on_malformed_segment",
	"error_handling.on_invalid_structure",
	"error_handling.log_level",
}

// Default returns the settings used when no file is given.
func Default() *Settings {
	s := &Settings{}
	s.applyDefaults()

	return s
}

// Load reads a TOML settings file. Environment variables in path and in
// output.dir are expanded.
func Load(path string) (*Settings, error) {
	path = os.ExpandEnv(path)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read settings: %w", err)
	}

	s, err := Parse(string(data))
	if err != nil {
		return nil, fmt.Errorf("settings %s: %w", path, err)
	}

	return s, nil
}

// Parse decodes TOML settings, applies defaults and validates the result.
// Unknown keys are errors.
func Parse(data string) (*Settings, error) {
	var s Settings

	md, err := toml.Decode(data, &s)
	if err != nil {
		return nil, fault.Wrap(fault.ConfigError, err)
	}

	var diags diagnostic.Diagnostics

	for _, key := range md.Undecoded() {
		name := key.String()
		diags.AddError(fault.ConfigError, CodeUnknownSetting,
			fmt.Sprintf("unknown setting %q", name), "", "",
			match.Suggest(name, knownKeys, 2)...)
	}

	s.Output.Dir = os.ExpandEnv(s.Output.Dir)
	s.applyDefaults()
	s.validate(&diags)

	if err := diags.Err(); err != nil {
		return nil, err
	}

	return &s, nil
}

func (s *Settings) applyDefaults() {
	if s.Log.Level == "" {
		s.Log.Level = "info"
	}

	if s.Log.Format == "" {
		s.Log.Format = "text"
	}

	if s.Batch.Workers == 0 {
		s.Batch.Workers = runtime.NumCPU()
	}

	if s.Output.Indent == nil {
		n := defaultIndent
		s.Output.Indent = &n
	}
}

func (s *Settings) validate(diags *diagnostic.Diagnostics) {
	invalid := func(key, format string, args ...any) {
		diags.AddError(fault.ConfigError, CodeInvalidSetting, fmt.Sprintf(format, args...), key, "")
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(s.Log.Level)); err != nil {
		invalid("log.level", "unknown level %q (want debug, info, warn or error)", s.Log.Level)
	}

	switch strings.ToLower(s.Log.Format) {
	case "text", "json":
	default:
		invalid("log.format", "unknown format %q (want text or json)", s.Log.Format)
	}

	if s.Batch.Workers < 0 {
		invalid("batch.workers", "must not be negative, got %d", s.Batch.Workers)
	}

	if *s.Output.Indent < 0 {
		invalid("output.indent", "must not be negative, got %d", *s.Output.Indent)
	}

	eh := s.ErrorHandling
	actions := []struct{ key, value string }{
		{"on_missing_required", eh.OnMissingRequired},
		{"on_validation_fail", eh.OnValidationFail},
		{"on_expression_error", eh.OnExpressionError},
		{"on_coercion_error", eh.OnCoercionError},
		{"on_malformed_segment", eh.OnMalformedSegment},
		{"on_invalid_structure", eh.OnInvalidStructure},
	}

	for _, a := range actions {
		if a.value == "" {
			continue
		}

		if _, err := mapping.ParseAction(a.value); err != nil {
			invalid("error_handling."+a.key, "%v", err)
		}
	}

	if eh.LogLevel != "" {
		if _, _, err := mapping.ParseLogLevel(eh.LogLevel); err != nil {
			invalid("error_handling.log_level", "%v", err)
		}
	}
}

// Indent returns the output indentation.
func (s *Settings) Indent() string {
	if s.Output.Indent == nil {
		return strings.Repeat(" ", defaultIndent)
	}

	return strings.Repeat(" ", *s.Output.Indent)
}

// Logger builds the logger the settings describe, writing to w.
func (s *Settings) Logger(w io.Writer) *slog.Logger {
	var level slog.Level
	_ = level.UnmarshalText([]byte(s.Log.Level))

	opts := &slog.HandlerOptions{Level: level}

	if strings.EqualFold(s.Log.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}

	return slog.New(slog.NewTextHandler(w, opts))
}

// ApplyTo overrides f's error_handling block with every non-empty setting.
func (s *Settings) ApplyTo(f *mapping.File) {
	eh := s.ErrorHandling
	dst := &f.ErrorHandling

	override := func(dst *string, value string) {
		if value != "" {
			*dst = value
		}
	}

	override(&dst.OnMissingRequired, eh.OnMissingRequired)
	override(&dst.OnValidationFail, eh.OnValidationFail)
	override(&dst.OnExpressionError, eh.OnExpressionError)
	override(&dst.OnCoercionError, eh.OnCoercionError)
	override(&dst.OnMalformedSegment, eh.OnMalformedSegment)
	override(&dst.OnInvalidStructure, eh.OnInvalidStructure)
	override(&dst.LogLevel, eh.LogLevel)
}
