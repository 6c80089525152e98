package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override, e.g. ASCENT_DB_PATH.
const EnvPrefix = "ASCENT"

type Config struct {
	DBPath  string
	Owner   string
	Worker  WorkerConfig
	Metrics MetricsConfig
	Log     LogConfig
}

type WorkerConfig struct {
	Schedule       string
	DeleteAttempts int
}

type MetricsConfig struct {
	// Addr is the listen address for /metrics; empty disables the endpoint.
	Addr string
}

type LogConfig struct {
	Level  string
	Format string
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("db_path", "~/.ascent/ascent.db")
	v.SetDefault("owner", "default")
	v.SetDefault("worker.schedule", "@every 1m")
	v.SetDefault("worker.delete_attempts", 3)
	v.SetDefault("metrics.addr", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// Load reads configuration from defaults, an optional .ascent.yaml and
// ASCENT_* environment variables, in increasing priority. configFile, when
// set, names the file explicitly and must exist.
func Load(configFile string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName(".ascent") // .yaml is implicit
		if override := os.Getenv(EnvPrefix + "_CONFIG_PATH"); override != "" {
			v.AddConfigPath(override)
		}
		v.AddConfigPath("./")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	dbPath, err := expandHome(v.GetString("db_path"))
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		DBPath: dbPath,
		Owner:  v.GetString("owner"),
		Worker: WorkerConfig{
			Schedule:       v.GetString("worker.schedule"),
			DeleteAttempts: v.GetInt("worker.delete_attempts"),
		},
		Metrics: MetricsConfig{Addr: v.GetString("metrics.addr")},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
		},
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.DBPath == "" {
		return errors.New("db_path must not be empty")
	}
	if strings.TrimSpace(c.Owner) == "" {
		return errors.New("owner must not be empty")
	}
	if c.Worker.DeleteAttempts < 1 {
		return fmt.Errorf("worker.delete_attempts must be at least 1, got %d", c.Worker.DeleteAttempts)
	}
	if _, err := parseLevel(c.Log.Level); err != nil {
		return err
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("log.format must be text or json, got %q", c.Log.Format)
	}
	return nil
}

// NewLogger builds the process logger described by cfg.
func NewLogger(w io.Writer, cfg LogConfig) (*slog.Logger, error) {
	level, err := parseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}
	return slog.New(slog.NewTextHandler(w, opts)), nil
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("log.level: %w", err)
	}
	return level, nil
}

func expandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("finding home directory: %w", err)
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}
