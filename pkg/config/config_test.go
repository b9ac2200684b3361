package config

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nestedConfig struct {
	Token string `env:"TEST_NESTED_TOKEN" yaml:"token"`
}

type testConfig struct {
	Name     string        `env:"TEST_NAME" yaml:"name" default:"fallback"`
	Port     int           `env:"TEST_PORT" yaml:"port" default:"8080"`
	Timeout  time.Duration `env:"TEST_TIMEOUT" yaml:"timeout" default:"10s"`
	Debug    bool          `env:"TEST_DEBUG" yaml:"debug"`
	Admins   []string      `env:"TEST_ADMINS" yaml:"admins"`
	AdminIDs []int64       `env:"TEST_ADMIN_IDS" yaml:"admin_ids"`
	Required string        `env:"TEST_REQUIRED" yaml:"required" required:"true"`
	Nested   nestedConfig  `yaml:"nested,inline"`
}

func TestFromEnvDefaultsAndOverrides(t *testing.T) {
	t.Setenv("TEST_REQUIRED", "present")
	t.Setenv("TEST_PORT", "9090")
	t.Setenv("TEST_ADMINS", "111, 222,333")
	t.Setenv("TEST_ADMIN_IDS", "101, 202,303")
	t.Setenv("TEST_NESTED_TOKEN", "secret")

	var cfg testConfig
	require.NoError(t, FromEnv(&cfg))

	assert.Equal(t, "fallback", cfg.Name)
	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, 10*time.Second, cfg.Timeout)
	assert.False(t, cfg.Debug)
	assert.Equal(t, []string{"111", "222", "333"}, cfg.Admins)
	assert.Equal(t, []int64{101, 202, 303}, cfg.AdminIDs)
	assert.Equal(t, "secret", cfg.Nested.Token)
}

func TestFromEnvMissingRequired(t *testing.T) {
	var cfg testConfig
	err := FromEnv(&cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TEST_REQUIRED")
	// Config must be reset on failure.
	assert.Zero(t, cfg.Port)
}

func TestFromEnvBadValue(t *testing.T) {
	t.Setenv("TEST_REQUIRED", "present")
	t.Setenv("TEST_PORT", "not-a-number")

	var cfg testConfig
	err := FromEnv(&cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TEST_PORT")
}

func TestLoadYAMLWithEnvOverlay(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := "name: from-yaml\nport: 1234\nrequired: yaml-required\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	t.Setenv("TEST_PORT", "4321")

	var cfg testConfig
	require.NoError(t, Load(&cfg, path, false))

	assert.Equal(t, "from-yaml", cfg.Name)
	assert.Equal(t, 4321, cfg.Port, "env must win over yaml")
	assert.Equal(t, "yaml-required", cfg.Required)
}

func TestLoadMissingFile(t *testing.T) {
	t.Setenv("TEST_REQUIRED", "present")

	var cfg testConfig
	assert.Error(t, Load(&cfg, "/does/not/exist.yaml", false))
	require.NoError(t, Load(&cfg, "/does/not/exist.yaml", true))
	assert.Equal(t, "present", cfg.Required)
}

type validatedConfig struct {
	Port int `env:"TEST_VALIDATED_PORT" default:"8080"`
}

func (c validatedConfig) Validate() error {
	if c.Port > 65535 {
		return fmt.Errorf("port out of range: %d", c.Port)
	}
	return nil
}

func TestValidatorIsInvoked(t *testing.T) {
	t.Setenv("TEST_VALIDATED_PORT", "70000")

	var cfg validatedConfig
	err := FromEnv(&cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "port out of range")
}
