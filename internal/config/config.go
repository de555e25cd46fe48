package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Source Source `yaml:"source" mapstructure:"source"`
	Target Target `yaml:"target" mapstructure:"target"`
	RunLog RunLog `yaml:"runlog" mapstructure:"runlog"`
	Log    Log    `yaml:"log" mapstructure:"log"`
}

// Source configures where records are extracted from.
type Source struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	Path        string `yaml:"path" mapstructure:"path"`
	Table       string `yaml:"table" mapstructure:"table"`
	DetailTable string `yaml:"detail_table" mapstructure:"detail_table"`
}

// Target configures the destination database.
type Target struct {
	DatabaseURL  string `yaml:"database_url" mapstructure:"database_url"`
	Table        string `yaml:"table" mapstructure:"table"`
	DetailTable  string `yaml:"detail_table" mapstructure:"detail_table"`
	Mode         string `yaml:"mode" mapstructure:"mode"`
	MaxPoolConns int    `yaml:"max_pool_conns" mapstructure:"max_pool_conns"`
}

// RunLog configures local run history.
type RunLog struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// Log configures logging.
type Log struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment. When profile is
// non-empty the file config-<profile>.yaml must exist; otherwise
// config.yaml is read if present.
func Load(profile string) (*Config, error) {
	v := viper.New()

	// Config file
	name := "config"
	if profile != "" {
		name = "config-" + profile
	}
	v.SetConfigName(name)
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("MIGRATE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("source.driver", "sqlite")
	v.SetDefault("source.table", "source_table")
	v.SetDefault("source.detail_table", "source_detail")
	v.SetDefault("target.table", "target_table")
	v.SetDefault("target.detail_table", "target_detail")
	v.SetDefault("target.mode", "copy")
	v.SetDefault("target.max_pool_conns", 4)
	v.SetDefault("runlog.path", "migrate-runs.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || profile != "" {
			return nil, eris.Wrapf(err, "config: read %s.yaml", name)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks that the configuration is sufficient for the given
// command mode ("run", "initdb", or "runs").
func (c *Config) Validate(mode string) error {
	var problems []string

	switch mode {
	case "run":
		if c.Target.DatabaseURL == "" {
			problems = append(problems, "target.database_url is required")
		}
		switch c.Source.Driver {
		case "sqlite", "csv":
			if c.Source.Path == "" {
				problems = append(problems, "source.path is required")
			}
		default:
			problems = append(problems, "source.driver must be sqlite or csv")
		}
		if c.Target.Mode != "copy" && c.Target.Mode != "upsert" {
			problems = append(problems, "target.mode must be copy or upsert")
		}
		if c.Target.MaxPoolConns < 1 || c.Target.MaxPoolConns > 64 {
			problems = append(problems, "target.max_pool_conns must be between 1 and 64")
		}
	case "initdb":
		if c.Target.DatabaseURL == "" {
			problems = append(problems, "target.database_url is required")
		}
	case "runs":
		if c.RunLog.Path == "" {
			problems = append(problems, "runlog.path is required")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(problems) > 0 {
		return eris.New("config: " + strings.Join(problems, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg Log) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
