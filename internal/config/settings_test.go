package config

import (
	"bytes"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hl7bridge/internal/fault"
	"hl7bridge/internal/mapping"
)

func TestDefault(t *testing.T) {
	s := Default()

	assert.Equal(t, "info", s.Log.Level)
	assert.Equal(t, "text", s.Log.Format)
	assert.Equal(t, runtime.NumCPU(), s.Batch.Workers)
	assert.Equal(t, "  ", s.Indent())
	assert.Empty(t, s.Output.Dir)
}

func TestLoad(t *testing.T) {
	t.Setenv("HL7BRIDGE_TEST_OUT", "/tmp/hl7")

	s, err := Load(filepath.Join("testdata", "settings.toml"))
	require.NoError(t, err)

	assert.Equal(t, "debug", s.Log.Level)
	assert.Equal(t, "json", s.Log.Format)
	assert.Equal(t, 3, s.Batch.Workers)
	assert.Equal(t, "/tmp/hl7/results", s.Output.Dir)
	assert.Equal(t, "", s.Indent())
	assert.Equal(t, "skip", s.ErrorHandling.OnValidationFail)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join("testdata", "nope.toml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read settings")
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		toml string
		want []string
	}{
		{
			name: "unknown key with suggestion",
			toml: "[batch]\nworkrs = 2\n",
			want: []string{CodeUnknownSetting, `"batch.workrs"`, `did you mean "batch.workers"`},
		},
		{
			name: "bad level and format",
			toml: "[log]\nlevel = \"loud\"\nformat = \"xml\"\n",
			want: []string{"log.level", "log.format"},
		},
		{
			name: "negative values",
			toml: "[batch]\nworkers = -1\n[output]\nindent = -2\n",
			want: []string{"batch.workers", "output.indent"},
		},
		{
			name: "bad policy",
			toml: "[error_handling]\non_coercion_error = \"explode\"\nlog_level = \"chatty\"\n",
			want: []string{"error_handling.on_coercion_error", "error_handling.log_level"},
		},
		{
			name: "syntax",
			toml: "[log\nlevel = 1\n",
			want: []string{"ConfigError"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.toml)
			require.Error(t, err)
			assert.True(t, fault.Is(err, fault.ConfigError))

			for _, w := range tt.want {
				assert.Contains(t, err.Error(), w)
			}
		})
	}
}

func TestSettings_Logger(t *testing.T) {
	var buf bytes.Buffer

	s, err := Parse("[log]\nformat = \"json\"\nlevel = \"warn\"\n")
	require.NoError(t, err)

	log := s.Logger(&buf)
	log.Info("hidden")
	log.Warn("shown", "segment", "PID")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"msg":"shown"`)
	assert.Contains(t, buf.String(), `"segment":"PID"`)

	buf.Reset()

	Default().Logger(&buf).Info("plain", "n", 1)
	assert.Contains(t, buf.String(), "level=INFO msg=plain n=1")
}

func TestSettings_ApplyTo(t *testing.T) {
	s, err := Parse("[error_handling]\non_missing_required = \"warn\"\nlog_level = \"skip\"\n")
	require.NoError(t, err)

	f := &mapping.File{ErrorHandling: mapping.ErrorHandling{
		OnMissingRequired: "error",
		OnValidationFail:  "skip",
	}}

	s.ApplyTo(f)

	assert.Equal(t, "warn", f.ErrorHandling.OnMissingRequired)
	assert.Equal(t, "skip", f.ErrorHandling.OnValidationFail)
	assert.Equal(t, "skip", f.ErrorHandling.LogLevel)
}
