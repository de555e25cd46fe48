package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })
	return dir
}

func TestLoadDefaults(t *testing.T) {
	chdirTemp(t)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Source.Driver)
	assert.Equal(t, "source_table", cfg.Source.Table)
	assert.Equal(t, "source_detail", cfg.Source.DetailTable)
	assert.Equal(t, "target_table", cfg.Target.Table)
	assert.Equal(t, "target_detail", cfg.Target.DetailTable)
	assert.Equal(t, "copy", cfg.Target.Mode)
	assert.Equal(t, 4, cfg.Target.MaxPoolConns)
	assert.Equal(t, "migrate-runs.db", cfg.RunLog.Path)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoadFromYAML(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
source:
  driver: csv
  path: /data/export.csv
target:
  database_url: postgres://localhost/dest
  mode: upsert
log:
  level: debug
  format: console
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "csv", cfg.Source.Driver)
	assert.Equal(t, "/data/export.csv", cfg.Source.Path)
	assert.Equal(t, "postgres://localhost/dest", cfg.Target.DatabaseURL)
	assert.Equal(t, "upsert", cfg.Target.Mode)
	assert.Equal(t, "debug", cfg.Log.Level)
	// Defaults still apply for unset values
	assert.Equal(t, "target_table", cfg.Target.Table)
	assert.Equal(t, 4, cfg.Target.MaxPoolConns)
}

func TestLoadProfile(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
target:
  database_url: postgres://staging-host/dest
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config-staging.yaml"), []byte(yaml), 0644))

	cfg, err := Load("staging")
	require.NoError(t, err)
	assert.Equal(t, "postgres://staging-host/dest", cfg.Target.DatabaseURL)
}

func TestLoadProfileMissingFile(t *testing.T) {
	chdirTemp(t)

	_, err := Load("production")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config-production.yaml")
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
source:
  driver: sqlite
log:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	t.Setenv("MIGRATE_SOURCE_DRIVER", "csv")
	t.Setenv("MIGRATE_LOG_LEVEL", "warn")

	cfg, err := Load("")
	require.NoError(t, err)

	// Env overrides file
	assert.Equal(t, "csv", cfg.Source.Driver)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadEnvOverridesDefaults(t *testing.T) {
	chdirTemp(t)

	t.Setenv("MIGRATE_TARGET_MAX_POOL_CONNS", "16")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 16, cfg.Target.MaxPoolConns)
}

func validRunConfig() *Config {
	return &Config{
		Source: Source{Driver: "sqlite", Path: "/data/source.db", Table: "source_table", DetailTable: "source_detail"},
		Target: Target{DatabaseURL: "postgres://localhost/dest", Table: "target_table", DetailTable: "target_detail", Mode: "copy", MaxPoolConns: 4},
		RunLog: RunLog{Path: "migrate-runs.db"},
	}
}

func TestValidateRun_AllPresent(t *testing.T) {
	assert.NoError(t, validRunConfig().Validate("run"))
}

func TestValidateRun_MissingFields(t *testing.T) {
	cfg := validRunConfig()
	cfg.Target.DatabaseURL = ""
	cfg.Source.Path = ""

	err := cfg.Validate("run")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "target.database_url is required")
	assert.Contains(t, err.Error(), "source.path is required")
}

func TestValidateRun_BadDriver(t *testing.T) {
	cfg := validRunConfig()
	cfg.Source.Driver = "mysql"

	err := cfg.Validate("run")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "source.driver must be sqlite or csv")
}

func TestValidateRun_BadMode(t *testing.T) {
	cfg := validRunConfig()
	cfg.Target.Mode = "merge"

	err := cfg.Validate("run")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "target.mode must be copy or upsert")
}

func TestValidateRun_PoolBounds(t *testing.T) {
	cfg := validRunConfig()

	cfg.Target.MaxPoolConns = 0
	err := cfg.Validate("run")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max_pool_conns must be between 1 and 64")

	cfg.Target.MaxPoolConns = 65
	err = cfg.Validate("run")
	require.Error(t, err)

	cfg.Target.MaxPoolConns = 64
	assert.NoError(t, cfg.Validate("run"))
}

func TestValidateInitdb(t *testing.T) {
	cfg := validRunConfig()
	assert.NoError(t, cfg.Validate("initdb"))

	cfg.Target.DatabaseURL = ""
	err := cfg.Validate("initdb")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "target.database_url")
}

func TestValidateRuns(t *testing.T) {
	cfg := validRunConfig()
	assert.NoError(t, cfg.Validate("runs"))

	cfg.RunLog.Path = ""
	assert.Error(t, cfg.Validate("runs"))
}

func TestValidateUnknownMode(t *testing.T) {
	err := validRunConfig().Validate("serve")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown mode")
}

func TestInitLoggerConsole(t *testing.T) {
	err := InitLogger(Log{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerJSON(t *testing.T) {
	err := InitLogger(Log{Level: "info", Format: "json"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerInvalidLevel(t *testing.T) {
	err := InitLogger(Log{Level: "invalid", Format: "json"})
	assert.Error(t, err)
}
