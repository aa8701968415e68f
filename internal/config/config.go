package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/edirooss/tablemux/internal/reservation"
	"gopkg.in/yaml.v3"
)

// Config is the tablemux-server.yaml file.
type Config struct {
	ServerAddr            string        `yaml:"server_address"`
	Port                  string        `yaml:"port"`
	Tables                int           `yaml:"tables"`
	WaitlistPolicy        string        `yaml:"waitlist_policy"` // head_only | scan_forward
	RedisAddr             string        `yaml:"redis_address"`   // empty disables notifications
	NotifyChannel         string        `yaml:"notify_channel"`
	MaxConcurrentRequests int           `yaml:"max_concurrent_requests"`
	SummaryTTL            time.Duration `yaml:"summary_ttl"`
}

func Default() *Config {
	return &Config{
		ServerAddr:            "127.0.0.1",
		Port:                  "8080",
		Tables:                2,
		WaitlistPolicy:        "head_only",
		NotifyChannel:         "tablemux:events",
		MaxConcurrentRequests: 100,
		SummaryTTL:            250 * time.Millisecond,
	}
}

// Load reads path over the defaults. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Tables < 0 {
		return fmt.Errorf("tables: must be >= 0, got %d", c.Tables)
	}
	if c.Port == "" {
		return errors.New("port: must be non-empty")
	}
	if c.MaxConcurrentRequests <= 0 {
		return fmt.Errorf("max_concurrent_requests: must be > 0, got %d", c.MaxConcurrentRequests)
	}
	if _, err := reservation.ParsePolicy(c.WaitlistPolicy); err != nil {
		return fmt.Errorf("waitlist_policy: %w", err)
	}
	if c.RedisAddr != "" && c.NotifyChannel == "" {
		return errors.New("notify_channel: must be non-empty when redis_address is set")
	}
	return nil
}

func (c *Config) ListenAddr() string { return c.ServerAddr + ":" + c.Port }
