package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	// Courses API
	APIBaseURL   string        `envconfig:"COURSE_API_BASE_URL" default:"http://localhost:5000/api"`
	APIToken     string        `envconfig:"COURSE_API_TOKEN"`
	APIJWTSecret string        `envconfig:"COURSE_API_JWT_SECRET"`
	APITimeout   time.Duration `envconfig:"COURSE_API_TIMEOUT" default:"30s"`

	// Logging
	Env      string `envconfig:"ENV" default:"production"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	// Export
	ExportWorkers int `envconfig:"EXPORT_WORKERS" default:"8"`

	// SFTP (export upload)
	SFTPHost       string `envconfig:"SFTP_HOST"`
	SFTPPort       int    `envconfig:"SFTP_PORT" default:"22"`
	SFTPUser       string `envconfig:"SFTP_USER"`
	SFTPPass       string `envconfig:"SFTP_PASS"`
	SFTPDir        string `envconfig:"SFTP_DIR" default:"/inbound"`
	SFTPKnownHosts string `envconfig:"SFTP_KNOWN_HOSTS"`
}

// Load reads the environment, after applying any .env files found.
// Missing .env files are not an error; variables already set win.
func Load(envFiles ...string) (Config, error) {
	loadDotEnv(envFiles...)

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	cfg.APIBaseURL = strings.TrimRight(strings.TrimSpace(cfg.APIBaseURL), "/")
	if cfg.APIBaseURL == "" {
		return Config{}, fmt.Errorf("config: COURSE_API_BASE_URL is empty")
	}
	if cfg.ExportWorkers <= 0 {
		cfg.ExportWorkers = 8
	}
	return cfg, nil
}

func loadDotEnv(files ...string) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	existing := make([]string, 0, len(files))
	for _, f := range files {
		if _, err := os.Stat(f); err == nil {
			existing = append(existing, f)
		}
	}
	if len(existing) == 0 {
		return
	}
	_ = godotenv.Load(existing...)
}
