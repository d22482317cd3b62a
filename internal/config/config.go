package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Port             string
	LogLevel         slog.Level
	APIBaseURL       string
	APITimeout       time.Duration
	DBPath           string
	ThemeStorageKey  string
	DefaultTheme     string
	DefaultPageSize  int
	RetryAttempts    int
	RetryDelay       time.Duration
	RetryJitter      time.Duration
	AutoRetryDelay   time.Duration
	AutoRetryMax     int
	LoadTimeout      time.Duration
	SimulatedLatency float64
	ExportDir        string
}

// settings holds values in the units the env and the file use.
type settings struct {
	Port               string  `yaml:"port"`
	LogLevel           string  `yaml:"log_level"`
	APIBaseURL         string  `yaml:"api_base_url"`
	APITimeoutSeconds  int     `yaml:"api_timeout_seconds"`
	DBPath             string  `yaml:"db_path"`
	ThemeStorageKey    string  `yaml:"theme_storage_key"`
	DefaultTheme       string  `yaml:"default_theme"`
	DefaultPageSize    int     `yaml:"default_page_size"`
	RetryAttempts      int     `yaml:"retry_attempts"`
	RetryDelayMS       int     `yaml:"retry_delay_ms"`
	RetryJitterMS      int     `yaml:"retry_jitter_ms"`
	AutoRetryDelayMS   int     `yaml:"auto_retry_delay_ms"`
	AutoRetryMax       int     `yaml:"auto_retry_max"`
	LoadTimeoutSeconds int     `yaml:"load_timeout_seconds"`
	SimulatedLatency   float64 `yaml:"simulated_latency"`
	ExportDir          string  `yaml:"export_dir"`
}

func defaults() settings {
	return settings{
		Port:               "8080",
		LogLevel:           "info",
		APITimeoutSeconds:  15,
		ThemeStorageKey:    "dashboard-theme",
		DefaultTheme:       "system",
		DefaultPageSize:    10,
		RetryAttempts:      3,
		RetryDelayMS:       1000,
		RetryJitterMS:      1000,
		AutoRetryDelayMS:   5000,
		AutoRetryMax:       3,
		LoadTimeoutSeconds: 30,
		SimulatedLatency:   1,
		ExportDir:          "exports",
	}
}

// FromEnv builds the config from defaults and environment variables.
func FromEnv() Config {
	s := defaults()
	s.applyEnv()
	return s.config()
}

// Load reads an optional YAML file and then applies environment
// overrides. An empty path is the same as FromEnv.
func Load(path string) (Config, error) {
	s := defaults()
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(b, &s); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	s.applyEnv()
	return s.config(), nil
}

func (s *settings) applyEnv() {
	s.Port = envOr("PORT", s.Port)
	s.LogLevel = envOr("LOG_LEVEL", s.LogLevel)
	s.APIBaseURL = envOr("API_BASE_URL", s.APIBaseURL)
	s.APITimeoutSeconds = envInt("API_TIMEOUT_SECONDS", s.APITimeoutSeconds)
	s.DBPath = envOr("DB_PATH", s.DBPath)
	s.ThemeStorageKey = envOr("THEME_STORAGE_KEY", s.ThemeStorageKey)
	s.DefaultTheme = envOr("DEFAULT_THEME", s.DefaultTheme)
	s.DefaultPageSize = envInt("DEFAULT_PAGE_SIZE", s.DefaultPageSize)
	s.RetryAttempts = envInt("RETRY_ATTEMPTS", s.RetryAttempts)
	s.RetryDelayMS = envInt("RETRY_DELAY_MS", s.RetryDelayMS)
	s.RetryJitterMS = envInt("RETRY_JITTER_MS", s.RetryJitterMS)
	s.AutoRetryDelayMS = envInt("AUTO_RETRY_DELAY_MS", s.AutoRetryDelayMS)
	s.AutoRetryMax = envInt("AUTO_RETRY_MAX", s.AutoRetryMax)
	s.LoadTimeoutSeconds = envInt("LOAD_TIMEOUT_SECONDS", s.LoadTimeoutSeconds)
	if v := os.Getenv("SIMULATED_LATENCY"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f >= 0 {
			s.SimulatedLatency = f
		}
	}
	s.ExportDir = envOr("EXPORT_DIR", s.ExportDir)
}

func (s settings) config() Config {
	return Config{
		Port:             s.Port,
		LogLevel:         parseLevel(s.LogLevel),
		APIBaseURL:       strings.TrimRight(s.APIBaseURL, "/"),
		APITimeout:       time.Duration(s.APITimeoutSeconds) * time.Second,
		DBPath:           s.DBPath,
		ThemeStorageKey:  s.ThemeStorageKey,
		DefaultTheme:     s.DefaultTheme,
		DefaultPageSize:  s.DefaultPageSize,
		RetryAttempts:    s.RetryAttempts,
		RetryDelay:       time.Duration(s.RetryDelayMS) * time.Millisecond,
		RetryJitter:      time.Duration(s.RetryJitterMS) * time.Millisecond,
		AutoRetryDelay:   time.Duration(s.AutoRetryDelayMS) * time.Millisecond,
		AutoRetryMax:     s.AutoRetryMax,
		LoadTimeout:      time.Duration(s.LoadTimeoutSeconds) * time.Second,
		SimulatedLatency: s.SimulatedLatency,
		ExportDir:        s.ExportDir,
	}
}

func parseLevel(v string) slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(v)); err != nil {
		return slog.LevelInfo
	}
	return lvl
}

func envOr(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}

func envInt(k string, def int) int {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return def
	}
	return n
}
