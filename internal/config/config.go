package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	DBSource string
	Port     string
	Env      string

	// ScraperURL is the base URL of the SAT scraper microservice.
	ScraperURL string

	// SATTimeout bounds one full upstream call. Bulk metadata queries and XML
	// downloads against the SAT are slow, so the default is deliberately long.
	SATTimeout        time.Duration
	SATConnectTimeout time.Duration

	// TempDir holds credential material for the lifetime of one request.
	TempDir string
}

func Load() (*Config, error) {
	godotenv.Load()

	dbSource := os.Getenv("DB_SOURCE")
	if dbSource == "" {
		return nil, fmt.Errorf("DB_SOURCE environment variable is required")
	}

	scraperURL := os.Getenv("SAT_SCRAPER_URL")
	if scraperURL == "" {
		return nil, fmt.Errorf("SAT_SCRAPER_URL environment variable is required")
	}

	port := os.Getenv("SERVER_PORT")
	if port == "" {
		port = "8080"
	}

	env := os.Getenv("ENVIRONMENT")
	if env == "" {
		env = "development"
	}

	tempDir := os.Getenv("SAT_TEMP_DIR")
	if tempDir == "" {
		tempDir = filepath.Join(os.TempDir(), "verificasat")
	}

	return &Config{
		DBSource:          dbSource,
		Port:              port,
		Env:               env,
		ScraperURL:        scraperURL,
		SATTimeout:        durationEnv("SAT_TIMEOUT", 600*time.Second),
		SATConnectTimeout: durationEnv("SAT_CONNECT_TIMEOUT", 15*time.Second),
		TempDir:           tempDir,
	}, nil
}

func durationEnv(key string, fallback time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}
	return d
}
