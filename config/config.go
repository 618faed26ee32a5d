package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds application configuration.
// It is kept in AppConfig so handlers can reach it without plumbing.
type Config struct {
	Port        int
	DatabaseURL string
	RedisURL    string

	CacheTTL       time.Duration
	ScenarioFile   string
	DefaultChannel string

	// Demand defaults used when a request does not override them.
	DemandWeights        [4]float64
	TargetWOS            float64
	SnapshotHistoryLimit int
}

// AppConfig holds the application-wide configuration
var AppConfig Config

// configFile mirrors the optional YAML overlay named by CONFIG_FILE.
type configFile struct {
	Server struct {
		Port int `yaml:"port"`
	} `yaml:"server"`
	Dependencies struct {
		PostgresURL string `yaml:"postgres_url"`
		RedisURL    string `yaml:"redis_url"`
	} `yaml:"dependencies"`
	Dashboard struct {
		CacheTTL       string `yaml:"cache_ttl"`
		ScenarioFile   string `yaml:"scenario_file"`
		DefaultChannel string `yaml:"default_channel"`
	} `yaml:"dashboard"`
	Inventory struct {
		Weights              []float64 `yaml:"weights"`
		TargetWOS            float64   `yaml:"target_wos"`
		SnapshotHistoryLimit int       `yaml:"snapshot_history_limit"`
	} `yaml:"inventory"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Port:                 3000,
		CacheTTL:             5 * time.Minute,
		DefaultChannel:       "Amazon",
		DemandWeights:        [4]float64{40, 30, 20, 10},
		TargetWOS:            8,
		SnapshotHistoryLimit: 30,
	}
}

// Load resolves configuration in order: defaults, CONFIG_FILE, environment.
// A missing .env file is not an error.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("[CONFIG] No .env file found, using environment variables")
	}

	cfg := Default()
	if path := strings.TrimSpace(os.Getenv("CONFIG_FILE")); path != "" {
		if err := applyFile(&cfg, path); err != nil {
			return Config{}, err
		}
	}
	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyFile(cfg *Config, path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file %s: %w", path, err)
	}
	var file configFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	if file.Server.Port > 0 {
		cfg.Port = file.Server.Port
	}
	if file.Dependencies.PostgresURL != "" {
		cfg.DatabaseURL = file.Dependencies.PostgresURL
	}
	if file.Dependencies.RedisURL != "" {
		cfg.RedisURL = file.Dependencies.RedisURL
	}
	if file.Dashboard.CacheTTL != "" {
		ttl, err := time.ParseDuration(file.Dashboard.CacheTTL)
		if err != nil {
			return fmt.Errorf("parse dashboard.cache_ttl: %w", err)
		}
		cfg.CacheTTL = ttl
	}
	if file.Dashboard.ScenarioFile != "" {
		cfg.ScenarioFile = file.Dashboard.ScenarioFile
	}
	if file.Dashboard.DefaultChannel != "" {
		cfg.DefaultChannel = file.Dashboard.DefaultChannel
	}
	if n := len(file.Inventory.Weights); n > 0 {
		if n != 4 {
			return fmt.Errorf("inventory.weights needs 4 values (7/30/60/90 days), got %d", n)
		}
		copy(cfg.DemandWeights[:], file.Inventory.Weights)
	}
	if file.Inventory.TargetWOS > 0 {
		cfg.TargetWOS = file.Inventory.TargetWOS
	}
	if file.Inventory.SnapshotHistoryLimit > 0 {
		cfg.SnapshotHistoryLimit = file.Inventory.SnapshotHistoryLimit
	}
	return nil
}

func applyEnv(cfg *Config) error {
	if v := strings.TrimSpace(os.Getenv("PORT")); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil || port <= 0 {
			return fmt.Errorf("invalid PORT %q", v)
		}
		cfg.Port = port
	}
	if v := strings.TrimSpace(os.Getenv("DATABASE_URL")); v != "" {
		cfg.DatabaseURL = v
	}
	if v := strings.TrimSpace(os.Getenv("REDIS_URL")); v != "" {
		cfg.RedisURL = v
	}
	if v := strings.TrimSpace(os.Getenv("DASHBOARD_CACHE_TTL")); v != "" {
		ttl, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid DASHBOARD_CACHE_TTL %q: %w", v, err)
		}
		cfg.CacheTTL = ttl
	}
	if v := strings.TrimSpace(os.Getenv("SCENARIO_FILE")); v != "" {
		cfg.ScenarioFile = v
	}
	if v := strings.TrimSpace(os.Getenv("DEFAULT_CHANNEL")); v != "" {
		cfg.DefaultChannel = v
	}
	return nil
}
