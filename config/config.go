package config

import (
	"os"
	"time"
)

// POSConfig holds every credential and endpoint needed to talk to the
// external point-of-sale platform. Built once in main and passed into the
// POS client; nothing reads these from the environment after startup.
type POSConfig struct {
	BaseURL     string
	AccessToken string
	LocationID  string
	Timeout     time.Duration
}

type PushConfig struct {
	GatewayURL string
	Timeout    time.Duration
}

type Config struct {
	Host string
	Port string

	POS  POSConfig
	Push PushConfig
}

func Load() *Config {
	cfg := &Config{
		Host: os.Getenv("HOST"),
		Port: os.Getenv("PORT"),
		POS: POSConfig{
			BaseURL:     os.Getenv("POS_BASE_URL"),
			AccessToken: os.Getenv("POS_ACCESS_TOKEN"),
			LocationID:  os.Getenv("POS_LOCATION_ID"),
			Timeout:     10 * time.Second,
		},
		Push: PushConfig{
			GatewayURL: os.Getenv("PUSH_GATEWAY_URL"),
			Timeout:    5 * time.Second,
		},
	}

	if cfg.Host == "" {
		cfg.Host = "127.0.0.1"
	}
	if cfg.Port == "" {
		cfg.Port = "3000"
	}

	return cfg
}
