package config

import (
	"errors"
	"io/fs"
	"os"
	"time"

	"flags-challenge/internal/app"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Log struct {
		Level string `yaml:"level"`
		File  string `yaml:"file"`
	} `yaml:"log"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		TTL      string `yaml:"ttl"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Quiz struct {
		Namespace       string `yaml:"namespace"`
		SnapshotFile    string `yaml:"snapshotFile"`
		CatalogPath     string `yaml:"catalogPath"`
		CountdownWindow string `yaml:"countdownWindow"`
		Question        string `yaml:"question"`
		Interval        string `yaml:"interval"`
		Feedback        string `yaml:"feedback"`
	} `yaml:"quiz"`
}

// Load reads YAML config from path. A missing file yields the defaults.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg.withDefaults(), nil
	}
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	return cfg.withDefaults(), nil
}

func (c Config) withDefaults() Config {
	if c.Quiz.Namespace == "" {
		c.Quiz.Namespace = "flags"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	return c
}

// Timings converts the quiz section into engine timings, keeping defaults for unset fields.
func (c Config) Timings() app.Timings {
	def := app.DefaultTimings()
	return app.Timings{
		CountdownWindow: Duration(c.Quiz.CountdownWindow, def.CountdownWindow),
		Question:        Duration(c.Quiz.Question, def.Question),
		Interval:        Duration(c.Quiz.Interval, def.Interval),
		Feedback:        Duration(c.Quiz.Feedback, def.Feedback),
	}
}

// Duration parses a duration string or returns the fallback if empty or invalid.
func Duration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
