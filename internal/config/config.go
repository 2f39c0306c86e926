// Package config loads runtime settings from defaults, an optional
// signassess.yaml, a .env file and SIGNASSESS_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable override.
const EnvPrefix = "SIGNASSESS"

type Server struct {
	Addr      string `mapstructure:"addr"`
	StaticDir string `mapstructure:"static_dir"`
}

type Camera struct {
	ID     int `mapstructure:"id"`
	Width  int `mapstructure:"width"`
	Height int `mapstructure:"height"`
	FPS    int `mapstructure:"fps"`
}

type Detector struct {
	MaxHands      int     `mapstructure:"max_hands"`
	MinConfidence float64 `mapstructure:"min_confidence"`
	ModelPath     string  `mapstructure:"model_path"`
}

type Summary struct {
	TopN int `mapstructure:"top_n"`
}

type Quiz struct {
	File string `mapstructure:"file"`
}

type Log struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type Redis struct {
	Addr string `mapstructure:"addr"`
	Key  string `mapstructure:"key"`
}

type Cassandra struct {
	Hosts    []string `mapstructure:"hosts"`
	Keyspace string   `mapstructure:"keyspace"`
}

type Hooks struct {
	Dir     string        `mapstructure:"dir"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// Config is the full runtime configuration.
type Config struct {
	Server    Server    `mapstructure:"server"`
	DataDir   string    `mapstructure:"data_dir"`
	Camera    Camera    `mapstructure:"camera"`
	Detector  Detector  `mapstructure:"detector"`
	Summary   Summary   `mapstructure:"summary"`
	Quiz      Quiz      `mapstructure:"quiz"`
	Log       Log       `mapstructure:"log"`
	Redis     Redis     `mapstructure:"redis"`
	Cassandra Cassandra `mapstructure:"cassandra"`
	Hooks     Hooks     `mapstructure:"hooks"`
	Tray      bool      `mapstructure:"tray"`
}

// DBPath returns the SQLite database location inside the data directory.
func (c *Config) DBPath() string {
	return filepath.Join(c.DataDir, "signassess.db")
}

// HooksDir returns the hook directory, data_dir/hooks unless configured.
func (c *Config) HooksDir() string {
	if c.Hooks.Dir != "" {
		return c.Hooks.Dir
	}
	return filepath.Join(c.DataDir, "hooks")
}

// Validate checks values that would otherwise fail deep inside a component.
func (c *Config) Validate() error {
	if c.Summary.TopN <= 0 {
		return fmt.Errorf("summary.top_n must be positive, got %d", c.Summary.TopN)
	}
	if c.Camera.FPS <= 0 {
		return fmt.Errorf("camera.fps must be positive, got %d", c.Camera.FPS)
	}
	if c.Detector.MinConfidence < 0 || c.Detector.MinConfidence > 1 {
		return fmt.Errorf("detector.min_confidence must be within [0,1], got %g", c.Detector.MinConfidence)
	}
	if c.DataDir == "" {
		return errors.New("data_dir is required")
	}
	return nil
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".signassess"
	}
	return filepath.Join(home, ".signassess")
}

// SetDefaults registers every key with its default value.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.static_dir", "web")
	v.SetDefault("data_dir", defaultDataDir())
	v.SetDefault("camera.id", 0)
	v.SetDefault("camera.width", 640)
	v.SetDefault("camera.height", 480)
	v.SetDefault("camera.fps", 15)
	v.SetDefault("detector.max_hands", 2)
	v.SetDefault("detector.min_confidence", 0.5)
	v.SetDefault("detector.model_path", "")
	v.SetDefault("summary.top_n", 5)
	v.SetDefault("quiz.file", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.key", "signassess:sessions")
	v.SetDefault("cassandra.hosts", []string{})
	v.SetDefault("cassandra.keyspace", "signassess")
	v.SetDefault("hooks.dir", "")
	v.SetDefault("hooks.timeout", "5s")
	v.SetDefault("tray", false)
}

// Load reads configuration. configFile may be empty, in which case
// signassess.yaml is looked up in the working and data directories.
// A .env file in the working directory is loaded first when present.
func Load(v *viper.Viper, configFile string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("signassess")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath(defaultDataDir())
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
