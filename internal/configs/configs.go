/*
Package configs is responsible for loading and parsing the application's configuration settings.

It configures the client by reading operating system environment variables,
including the running environment, the hosted backend endpoint, and the
project API key used for every request.
*/
package configs

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"
)

// AppConfig contains all configuration parameters required for the client to run.
// All configuration values are loaded from environment variables.
type AppConfig struct {
	// General Settings
	Environment string

	// Backend Settings
	BackendURL   string
	AnonKey      string
	RealtimePath string

	// HTTPTimeout bounds every REST call made against the backend.
	HTTPTimeout time.Duration
}

// LoadConfig reads and parses the application configuration from environment variables.
// It provides default values where safe and performs necessary validation.
// It returns a pointer to the AppConfig struct and any error encountered.
func LoadConfig() (*AppConfig, error) {
	cfg := &AppConfig{}

	// --- General Settings ---
	cfg.Environment = os.Getenv("ENVIRONMENT")
	if cfg.Environment == "" {
		cfg.Environment = "development"
	}

	// --- Backend Settings ---
	cfg.BackendURL = os.Getenv("BACKEND_URL")
	if cfg.BackendURL == "" {
		if cfg.Environment == "development" {
			cfg.BackendURL = "http://localhost:54321"
		} else {
			return nil, fmt.Errorf("BACKEND_URL environment variable is required in %s environment", cfg.Environment)
		}
	}

	parsed, err := url.Parse(cfg.BackendURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("invalid BACKEND_URL %q: must be an absolute http(s) URL", cfg.BackendURL)
	}

	cfg.AnonKey = os.Getenv("BACKEND_ANON_KEY")
	if cfg.AnonKey == "" {
		if cfg.Environment == "development" {
			cfg.AnonKey = "dev-anon-key-change-me"
		} else {
			return nil, fmt.Errorf("BACKEND_ANON_KEY environment variable is required in %s environment", cfg.Environment)
		}
	}

	cfg.RealtimePath = os.Getenv("REALTIME_PATH")
	if cfg.RealtimePath == "" {
		cfg.RealtimePath = "/realtime/v1/websocket"
	}

	// --- HTTP Settings ---
	timeoutStr := os.Getenv("HTTP_TIMEOUT_SECONDS")
	if timeoutStr == "" {
		timeoutStr = "10"
	}
	timeoutSec, err := strconv.Atoi(timeoutStr)
	if err != nil {
		return nil, fmt.Errorf("invalid HTTP_TIMEOUT_SECONDS environment variable: %w", err)
	}
	if timeoutSec < 1 || timeoutSec > 120 {
		return nil, fmt.Errorf("HTTP_TIMEOUT_SECONDS %d is outside the accepted range (1-120)", timeoutSec)
	}
	cfg.HTTPTimeout = time.Duration(timeoutSec) * time.Second

	return cfg, nil
}
