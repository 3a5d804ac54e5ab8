package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kbukum/livecue/logger"
)

type testConfig struct {
	ServiceConfig `yaml:",inline" mapstructure:",squash"`
	Generation    struct {
		Retries       int           `mapstructure:"retries" validate:"gte=0"`
		StreamTimeout time.Duration `mapstructure:"stream_timeout" validate:"gt=0"`
	} `mapstructure:"generation"`
}

func (c *testConfig) ApplyDefaults() {
	c.ServiceConfig.ApplyDefaults()
	if c.Generation.StreamTimeout == 0 {
		c.Generation.StreamTimeout = 45 * time.Second
	}
}

func (c *testConfig) Validate() error {
	return c.ServiceConfig.Validate()
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_YAMLDefaultsAndEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "config.yml", `
name: livecue
environment: production
logging:
  level: debug
  format: json
generation:
  retries: 2
`)
	t.Setenv("LIVECUE_GENERATION_RETRIES", "5")

	var cfg testConfig
	require.NoError(t, Load("livecue", &cfg, WithConfigFile(path), WithEnvFile(filepath.Join(dir, "missing.env"))))

	assert.Equal(t, "livecue", cfg.Name)
	assert.Equal(t, "production", cfg.Environment)
	assert.True(t, cfg.IsProduction())
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, 5, cfg.Generation.Retries)
	assert.Equal(t, 45*time.Second, cfg.Generation.StreamTimeout)
}

func TestServiceConfig_LogFormatByEnvironment(t *testing.T) {
	dev := ServiceConfig{Name: "livecue"}
	dev.ApplyDefaults()
	assert.Equal(t, EnvDevelopment, dev.Environment)
	assert.Equal(t, "console", dev.Logging.Format)
	assert.False(t, dev.IsProduction())

	staging := ServiceConfig{Name: "livecue", Environment: EnvStaging}
	staging.ApplyDefaults()
	assert.Equal(t, "json", staging.Logging.Format)

	explicit := ServiceConfig{Name: "livecue", Environment: EnvProduction, Logging: logger.Config{Format: "pretty"}}
	explicit.ApplyDefaults()
	assert.Equal(t, "pretty", explicit.Logging.Format)

	bad := ServiceConfig{Name: "livecue", Environment: "qa"}
	bad.ApplyDefaults()
	assert.ErrorContains(t, bad.Validate(), "config.environment")
}

func TestLoad_EnvFile(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "config.yml", "name: livecue\n")
	envPath := writeFile(t, dir, ".env", "LIVECUE_GENERATION_STREAM_TIMEOUT=3s\n")
	t.Cleanup(func() { os.Unsetenv("LIVECUE_GENERATION_STREAM_TIMEOUT") })

	var cfg testConfig
	require.NoError(t, Load("livecue", &cfg, WithConfigFile(path), WithEnvFile(envPath)))
	assert.Equal(t, 3*time.Second, cfg.Generation.StreamTimeout)
}

func TestLoad_TagValidationFails(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "config.yml", "name: livecue\ngeneration:\n  retries: -1\n")

	var cfg testConfig
	err := Load("livecue", &cfg, WithConfigFile(path), WithEnvFile(filepath.Join(dir, "none")))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "generation.retries")
}

func TestLoad_MissingNameFails(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "config.yml", "environment: staging\n")

	var cfg testConfig
	err := Load("livecue", &cfg, WithConfigFile(path), WithEnvFile(filepath.Join(dir, "none")))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config.name is required")
}

type mockFS struct {
	files map[string]bool
}

func (m *mockFS) Exists(path string) bool   { return m.files[path] }
func (m *mockFS) LoadEnv(path string) error { return nil }

func TestResolver_SearchOrder(t *testing.T) {
	fs := &mockFS{files: map[string]bool{
		"../cmd/livecue/config.yml": true,
		"./config.yml":              true,
		"./.env":                    true,
	}}
	r := &Resolver{FileSystem: fs}

	files := r.ResolveFiles("livecue", LoaderConfig{})
	assert.Equal(t, "../cmd/livecue/config.yml", files.ConfigFile)
	assert.Equal(t, "./.env", files.EnvFile)

	explicit := r.ResolveFiles("livecue", LoaderConfig{ConfigFile: "/etc/livecue.yml"})
	assert.Equal(t, "/etc/livecue.yml", explicit.ConfigFile)
}

func TestStructKeys(t *testing.T) {
	keys := structKeys(reflect.TypeOf(&testConfig{}), "")
	assert.Contains(t, keys, "name")
	assert.Contains(t, keys, "logging.level")
	assert.Contains(t, keys, "generation.stream_timeout")
}

func TestServiceConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     ServiceConfig
		wantErr string
	}{
		{"valid", ServiceConfig{Name: "livecue", Environment: "staging"}, ""},
		{"missing name", ServiceConfig{Environment: "production"}, "config.name is required"},
		{"bad environment", ServiceConfig{Name: "livecue", Environment: "qa"}, "config.environment"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.cfg.Logging.ApplyDefaults()
			err := tt.cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
