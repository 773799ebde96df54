package config

import (
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store   StoreConfig   `yaml:"store" mapstructure:"store"`
	Sources SourcesConfig `yaml:"sources" mapstructure:"sources"`
	Output  OutputConfig  `yaml:"output" mapstructure:"output"`
	Server  ServerConfig  `yaml:"server" mapstructure:"server"`
	Retry   RetryConfig   `yaml:"retry" mapstructure:"retry"`
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend. An empty driver means
// postgres when a database URL is set and no persistence otherwise.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	SQLitePath  string `yaml:"sqlite_path" mapstructure:"sqlite_path"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// SourcesConfig says where source exports live and how they are fetched.
type SourcesConfig struct {
	Dir         string  `yaml:"dir" mapstructure:"dir"`
	Manifest    string  `yaml:"manifest" mapstructure:"manifest"`
	Concurrency int     `yaml:"concurrency" mapstructure:"concurrency"`
	TempDir     string  `yaml:"temp_dir" mapstructure:"temp_dir"`
	UserAgent   string  `yaml:"user_agent" mapstructure:"user_agent"`
	TimeoutSecs int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxRetries  int     `yaml:"max_retries" mapstructure:"max_retries"`
	RatePerSec  float64 `yaml:"rate_per_sec" mapstructure:"rate_per_sec"`
}

// Timeout returns the per-request download timeout.
func (c SourcesConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSecs) * time.Second
}

// OutputConfig configures where reports are written.
type OutputConfig struct {
	Dir string `yaml:"dir" mapstructure:"dir"`
}

// ServerConfig configures the read API.
type ServerConfig struct {
	Port        int      `yaml:"port" mapstructure:"port"`
	CORSOrigins []string `yaml:"cors_origins" mapstructure:"cors_origins"`
}

// RetryConfig configures retries of transient database errors.
type RetryConfig struct {
	MaxAttempts      int     `yaml:"max_attempts" mapstructure:"max_attempts"`
	InitialBackoffMs int     `yaml:"initial_backoff_ms" mapstructure:"initial_backoff_ms"`
	MaxBackoffMs     int     `yaml:"max_backoff_ms" mapstructure:"max_backoff_ms"`
	Multiplier       float64 `yaml:"multiplier" mapstructure:"multiplier"`
	JitterFraction   float64 `yaml:"jitter_fraction" mapstructure:"jitter_fraction"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// envAliases maps plain environment names to config keys.
var envAliases = map[string]string{
	"store.database_url": "DATABASE_URL",
	"output.dir":         "OUTPUT_DIR",
}

// Load reads configuration from a .env file, config.yaml and the environment.
func Load() (*Config, error) {
	// A missing .env is normal; existing variables win.
	_ = godotenv.Load()

	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("UNIFY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, env := range envAliases {
		if err := v.BindEnv(key, "UNIFY_"+strings.ToUpper(strings.ReplaceAll(key, ".", "_")), env); err != nil {
			return nil, eris.Wrapf(err, "config: bind %s", env)
		}
	}

	// Defaults
	v.SetDefault("store.driver", "")
	v.SetDefault("store.database_url", "")
	v.SetDefault("store.sqlite_path", "bds.db")
	v.SetDefault("store.max_conns", 4)
	v.SetDefault("store.min_conns", 1)
	v.SetDefault("sources.dir", ".")
	v.SetDefault("sources.manifest", "")
	v.SetDefault("sources.concurrency", 4)
	v.SetDefault("sources.temp_dir", "")
	v.SetDefault("sources.user_agent", "bds-unify/1.0")
	v.SetDefault("sources.timeout_secs", 60)
	v.SetDefault("sources.max_retries", 3)
	v.SetDefault("sources.rate_per_sec", 5)
	v.SetDefault("output.dir", "output")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("retry.max_attempts", 3)
	v.SetDefault("retry.initial_backoff_ms", 200)
	v.SetDefault("retry.max_backoff_ms", 5000)
	v.SetDefault("retry.multiplier", 2.0)
	v.SetDefault("retry.jitter_fraction", 0.1)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
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

// Validate checks the settings a command needs. Mode is one of "unify",
// "migrate" or "serve".
func (c *Config) Validate(mode string) error {
	var errs []string

	switch c.Store.Driver {
	case "", "postgres", "sqlite", "none":
	default:
		errs = append(errs, "store.driver must be one of postgres, sqlite, none")
	}

	switch mode {
	case "unify":
		if c.Sources.Concurrency < 1 || c.Sources.Concurrency > 16 {
			errs = append(errs, "sources.concurrency must be between 1 and 16")
		}
		if c.Output.Dir == "" {
			errs = append(errs, "output.dir is required")
		}
		if c.Retry.MaxAttempts < 1 {
			errs = append(errs, "retry.max_attempts must be >= 1")
		}
		if c.Retry.JitterFraction < 0 || c.Retry.JitterFraction > 1 {
			errs = append(errs, "retry.jitter_fraction must be between 0 and 1")
		}
	case "migrate":
		switch {
		case c.Store.Driver == "none":
			errs = append(errs, "store.driver none has nothing to migrate")
		case c.Store.Driver == "sqlite" && c.Store.SQLitePath == "":
			errs = append(errs, "store.sqlite_path is required")
		case c.Store.Driver != "sqlite" && c.Store.DatabaseURL == "":
			errs = append(errs, "store.database_url is required")
		}
	case "serve":
		if c.Server.Port <= 0 {
			errs = append(errs, "server.port must be > 0")
		}
		if c.Output.Dir == "" {
			errs = append(errs, "output.dir is required")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(errs) > 0 {
		return eris.Errorf("config: invalid for %s: %s", mode, strings.Join(errs, "; "))
	}
	return nil
}
