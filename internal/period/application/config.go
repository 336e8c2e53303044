package application

import (
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config defines period module configuration.
type Config struct {
	QueueBuffer     int    `yaml:"queue_buffer"`
	JobTimeout      string `yaml:"job_timeout"`
	StatusTextTTL   string `yaml:"status_text_ttl"`
	DefaultDuration int    `yaml:"default_duration_days"`
}

// LoadConfig loads config from yaml or env.
func LoadConfig() (Config, error) {
	cfg := Config{
		QueueBuffer:     getenvIntDefault("PERIOD_QUEUE_BUFFER", 16),
		JobTimeout:      getenvDefault("PERIOD_JOB_TIMEOUT", "10h"),
		StatusTextTTL:   getenvDefault("PERIOD_STATUS_TEXT_TTL", "1000s"),
		DefaultDuration: getenvIntDefault("PERIOD_DURATION_DAYS", DefaultPeriodDurationDays),
	}

	if path := os.Getenv("PERIOD_CONFIG"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, err
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, err
		}
	}

	if cfg.QueueBuffer <= 0 {
		cfg.QueueBuffer = 16
	}
	if cfg.DefaultDuration <= 0 {
		cfg.DefaultDuration = DefaultPeriodDurationDays
	}
	return cfg, nil
}

// JobTimeoutDuration parses the job timeout, falling back to 10 hours.
func (c Config) JobTimeoutDuration() time.Duration {
	parsed, err := time.ParseDuration(c.JobTimeout)
	if err != nil || parsed <= 0 {
		return 10 * time.Hour
	}
	return parsed
}

// StatusTextTTLDuration parses the status text TTL, falling back to 1000s.
func (c Config) StatusTextTTLDuration() time.Duration {
	parsed, err := time.ParseDuration(c.StatusTextTTL)
	if err != nil || parsed <= 0 {
		return 1000 * time.Second
	}
	return parsed
}

func getenvDefault(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getenvIntDefault(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}
