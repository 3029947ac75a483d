package config

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

type CORS struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
}

type Config struct {
	Contests  string    `yaml:"contests_root"`
	Logger    Logger    `yaml:"logger"`
	Storage   Storage   `yaml:"storage"`
	Cache     Cache     `yaml:"cache"`
	NATS      NATS      `yaml:"nats"`
	RateLimit RateLimit `yaml:"ratelimit"`
	Auth      Auth      `yaml:"auth"`
	Listen    string    `yaml:"listen" validate:"required"`
	Admin     Admin     `yaml:"admin"`
	CORS      CORS      `yaml:"cors"`
}

type Logger struct {
	Level string `yaml:"level" validate:"omitempty,oneof=debug info warn error"`
	File  string `yaml:"file"`
}

type Storage struct {
	Driver   string `yaml:"driver" validate:"oneof=sqlite postgres"`
	Database string `yaml:"database" validate:"required"`
}

// Cache configures the Redis scoreboard cache. An empty URL disables it.
type Cache struct {
	URL string        `yaml:"url" validate:"omitempty,url"`
	TTL time.Duration `yaml:"ttl" validate:"gte=0"`
}

// NATS configures the grading result consumer. An empty URL disables it.
type NATS struct {
	URL     string `yaml:"url" validate:"omitempty,url"`
	Subject string `yaml:"subject" validate:"required_with=URL"`
	Queue   string `yaml:"queue"`
}

type RateLimit struct {
	RPS   float64 `yaml:"rps" validate:"gte=0"`
	Burst int     `yaml:"burst" validate:"gte=0"`
}

type Auth struct {
	JWT JWT `yaml:"jwt"`
}

type JWT struct {
	Secret      string `yaml:"secret" validate:"required"`
	ExpireHours int    `yaml:"expire_hours"`
}

type Admin struct {
	Enabled bool   `yaml:"enabled"`
	Listen  string `yaml:"listen" validate:"required_if=Enabled true"`
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	err = yaml.Unmarshal(data, &cfg)
	if err != nil {
		return nil, err
	}

	cfg.applyDefaults()
	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Storage.Driver == "" {
		c.Storage.Driver = "sqlite"
	}
	if c.Contests == "" {
		c.Contests = "contests"
	}
	if c.Cache.TTL == 0 {
		c.Cache.TTL = 5 * time.Second
	}
	if c.NATS.Subject == "" && c.NATS.URL != "" {
		c.NATS.Subject = "grading.results"
	}
	if c.NATS.Queue == "" {
		c.NATS.Queue = "scoreboard"
	}
	if c.RateLimit.RPS == 0 {
		c.RateLimit.RPS = 20
	}
	if c.RateLimit.Burst == 0 {
		c.RateLimit.Burst = 40
	}
	if c.Auth.JWT.ExpireHours == 0 {
		c.Auth.JWT.ExpireHours = 24
	}
}
