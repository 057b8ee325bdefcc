package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Storage struct {
		// Driver is "postgres" or "memory".
		Driver string `yaml:"driver"`
	} `yaml:"storage"`
	Nats struct {
		Enabled bool   `yaml:"enabled"`
		URL     string `yaml:"url"`
	} `yaml:"nats"`
	Session struct {
		TickIntervalMs int `yaml:"tick_interval_ms"`
	} `yaml:"session"`
}

func defaultConfig() *Config {
	var config Config
	config.Server.Port = "8080"
	config.Storage.Driver = "memory"
	config.Nats.Enabled = false
	config.Nats.URL = "nats://localhost:4222"
	config.Session.TickIntervalMs = 100
	return &config
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func loadConfig(path string) (*Config, error) {
	config := defaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	// Environment overrides
	config.Server.Port = getEnv("PORT", config.Server.Port)
	config.Storage.Driver = getEnv("STORAGE_DRIVER", config.Storage.Driver)
	config.Nats.URL = getEnv("NATS_URL", config.Nats.URL)
	config.Session.TickIntervalMs = getEnvAsInt("TICK_INTERVAL_MS", config.Session.TickIntervalMs)

	return config, nil
}

func (c *Config) tickInterval() time.Duration {
	return time.Duration(c.Session.TickIntervalMs) * time.Millisecond
}
