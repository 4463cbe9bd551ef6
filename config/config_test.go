package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kbukum/tailpipe/errors"
)

type testConfig struct {
	ServiceConfig `yaml:",inline" mapstructure:",squash"`
	Pipeline      PipelineConfig `yaml:"pipeline" mapstructure:"pipeline"`
}

type mockFS struct {
	files  map[string]bool
	loaded []string
}

func (m *mockFS) Exists(path string) bool { return m.files[path] }
func (m *mockFS) LoadEnv(path string) error {
	m.loaded = append(m.loaded, path)
	return nil
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const sampleYAML = `
name: tailpipe
environment: staging
logging:
  level: warn
  format: json
pipeline:
  input: /var/log/access.log
  poll_interval: 250ms
  routes:
    - name: python
      pattern: python
      output: stdout
    - pattern: "^ERR"
      match: regex
      output: file:/tmp/errors.log
`

func TestLoadConfig_YAML(t *testing.T) {
	path := writeFile(t, t.TempDir(), "config.yml", sampleYAML)

	var cfg testConfig
	require.NoError(t, LoadConfig("tailpipe-test", &cfg, WithConfigFile(path)))

	assert.Equal(t, "tailpipe", cfg.Name)
	assert.Equal(t, "staging", cfg.Environment)
	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.Equal(t, "/var/log/access.log", cfg.Pipeline.Input)
	assert.Equal(t, 250*time.Millisecond, cfg.Pipeline.PollInterval)
	require.Len(t, cfg.Pipeline.Routes, 2)
	assert.Equal(t, MatchRegex, cfg.Pipeline.Routes[1].Match)
	assert.Equal(t, "file:/tmp/errors.log", cfg.Pipeline.Routes[1].Output)
}

func TestLoadConfig_EnvOverridesFile(t *testing.T) {
	path := writeFile(t, t.TempDir(), "config.yml", sampleYAML)
	t.Setenv("TAILPIPE_TEST_PIPELINE_INPUT", "/tmp/other.log")
	t.Setenv("TAILPIPE_TEST_PIPELINE_POLL_INTERVAL", "1s")

	var cfg testConfig
	require.NoError(t, LoadConfig("tailpipe-test", &cfg, WithConfigFile(path)))

	assert.Equal(t, "/tmp/other.log", cfg.Pipeline.Input)
	assert.Equal(t, time.Second, cfg.Pipeline.PollInterval)
	assert.Len(t, cfg.Pipeline.Routes, 2, "nested siblings from the file survive env overrides")
}

func TestLoadConfig_FlagsOverrideEnv(t *testing.T) {
	t.Setenv("TAILPIPE_TEST_PIPELINE_INPUT", "/tmp/env.log")

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.String("input", "", "")
	fs.Duration("poll-interval", 0, "")
	require.NoError(t, fs.Parse([]string{"--input", "/tmp/flag.log"}))

	var cfg testConfig
	err := LoadConfig("tailpipe-test", &cfg,
		WithFileSystem(&mockFS{}),
		WithFlags(fs, map[string]string{
			"input":         "pipeline.input",
			"poll-interval": "pipeline.poll_interval",
		}))
	require.NoError(t, err)

	assert.Equal(t, "/tmp/flag.log", cfg.Pipeline.Input)
	assert.Zero(t, cfg.Pipeline.PollInterval)
}

func TestLoadConfig_UnknownFlag(t *testing.T) {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	var cfg testConfig
	err := LoadConfig("tailpipe-test", &cfg,
		WithFileSystem(&mockFS{}),
		WithFlags(fs, map[string]string{"missing": "pipeline.input"}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--missing")
}

func TestLoadConfig_EnvFile(t *testing.T) {
	dir := t.TempDir()
	envPath := writeFile(t, dir, ".env", "TAILPIPE_DOTENV_PIPELINE_INPUT=/tmp/dotenv.log\n")
	t.Cleanup(func() { os.Unsetenv("TAILPIPE_DOTENV_PIPELINE_INPUT") })

	var cfg testConfig
	require.NoError(t, LoadConfig("tailpipe-dotenv", &cfg, WithEnvFile(envPath)))
	assert.Equal(t, "/tmp/dotenv.log", cfg.Pipeline.Input)
}

func TestLoadConfig_MissingFileIsEmpty(t *testing.T) {
	var cfg testConfig
	err := LoadConfig("nonexistent-service", &cfg, WithConfigFile("/nonexistent/path.yml"))
	require.NoError(t, err)
	assert.Empty(t, cfg.Pipeline.Input)
}

func TestLoadConfig_BrokenYAML(t *testing.T) {
	path := writeFile(t, t.TempDir(), "config.yml", "pipeline: [unclosed")
	var cfg testConfig
	err := LoadConfig("tailpipe-test", &cfg, WithConfigFile(path))
	require.Error(t, err)
}

func TestResolver_SearchOrder(t *testing.T) {
	fs := &mockFS{files: map[string]bool{
		"./config/config.yml":       true,
		"./cmd/tailpipe/config.yml": true,
		"./.env":                    true,
	}}
	r := &Resolver{FileSystem: fs}
	files := r.ResolveFiles("tailpipe", LoaderConfig{})
	assert.Equal(t, "./config/config.yml", files.ConfigFile)
	assert.Equal(t, "./.env", files.EnvFile)

	explicit := r.ResolveFiles("tailpipe", LoaderConfig{ConfigFile: "/etc/x.yml"})
	assert.Equal(t, "/etc/x.yml", explicit.ConfigFile)
}

func TestEnvKeyVariants(t *testing.T) {
	got := envKeyVariants("PIPELINE_POLL_INTERVAL")
	assert.Contains(t, got, "pipeline.poll_interval")
	assert.Contains(t, got, "pipeline.poll.interval")
	assert.Contains(t, got, "pipeline_poll_interval")
	assert.Equal(t, []string{"name"}, envKeyVariants("NAME"))
}

func TestServiceConfig(t *testing.T) {
	cfg := ServiceConfig{Name: "tailpipe"}
	cfg.ApplyDefaults()
	assert.Equal(t, "development", cfg.Environment)
	assert.True(t, cfg.Debug)
	assert.Equal(t, "debug", cfg.Logging.Level)
	require.NoError(t, cfg.Validate())

	prod := ServiceConfig{Name: "tailpipe", Environment: "production"}
	prod.ApplyDefaults()
	assert.False(t, prod.Debug)
	assert.Equal(t, "info", prod.Logging.Level)

	assert.ErrorContains(t, (&ServiceConfig{Environment: "production"}).Validate(), "config.name is required")
	bad := ServiceConfig{Name: "x", Environment: "qa"}
	bad.ApplyDefaults()
	assert.ErrorContains(t, bad.Validate(), "config.environment")
}

func TestPipelineConfig_Defaults(t *testing.T) {
	cfg := PipelineConfig{
		Input:  "/var/log/app.log",
		Routes: []RouteConfig{{Pattern: "python"}},
	}
	cfg.ApplyDefaults()

	assert.Equal(t, DefaultPollInterval, cfg.PollInterval)
	assert.Equal(t, PolicyFailFast, cfg.Policy)
	assert.Equal(t, RouteConfig{Name: "python", Pattern: "python", Match: MatchContains, Output: "stdout"}, cfg.Routes[0])
	assert.NoError(t, cfg.Validate())
}

func TestPipelineConfig_Validate(t *testing.T) {
	base := func() PipelineConfig {
		cfg := PipelineConfig{
			Input: "/var/log/app.log",
			Routes: []RouteConfig{
				{Name: "a", Pattern: "a"},
				{Name: "b", Pattern: "b"},
			},
		}
		cfg.ApplyDefaults()
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*PipelineConfig)
		wantErr string
	}{
		{"valid", func(*PipelineConfig) {}, ""},
		{"missing input", func(c *PipelineConfig) { c.Input = "" }, "input: is required"},
		{"bad policy", func(c *PipelineConfig) { c.Policy = "best_effort" }, "policy: must be one of"},
		{"no routes", func(c *PipelineConfig) { c.Routes = nil }, "routes: is required"},
		{"duplicate names", func(c *PipelineConfig) { c.Routes[1].Name = "a" }, `duplicate route name "a"`},
		{"bad regex", func(c *PipelineConfig) {
			c.Routes[0].Match = MatchRegex
			c.Routes[0].Pattern = "(unclosed"
		}, "invalid regular expression"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := base()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if tc.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
			assert.Equal(t, errors.ErrCodeInvalidInput, errors.CodeOf(err))
		})
	}
}

func TestParseRoute(t *testing.T) {
	tests := []struct {
		spec string
		want RouteConfig
	}{
		{"python", RouteConfig{Pattern: "python"}},
		{"py=python@stderr", RouteConfig{Name: "py", Pattern: "python", Output: "stderr"}},
		{"swig@file:/tmp/swig.log", RouteConfig{Pattern: "swig", Output: "file:/tmp/swig.log"}},
		{"errs=~^ERR@nats:alerts", RouteConfig{Name: "errs", Pattern: "^ERR", Match: MatchRegex, Output: "nats:alerts"}},
		{"user@example.com", RouteConfig{Pattern: "user@example.com"}},
		{"mail=user@example.com@stderr", RouteConfig{Name: "mail", Pattern: "user@example.com", Output: "stderr"}},
		{"at@./logs/at.log", RouteConfig{Pattern: "at", Output: "./logs/at.log"}},
	}
	for _, tc := range tests {
		t.Run(tc.spec, func(t *testing.T) {
			got, err := ParseRoute(tc.spec)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}

	_, err := ParseRoute("name=@stdout")
	assert.Error(t, err)
}
