package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Supported store drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// ConfigFileEnv names the optional YAML file applied before env vars.
const ConfigFileEnv = "PARKSHARE_CONFIG"

// Config holds runtime configuration. Values come from defaults, then an
// optional YAML file, then env vars.
type Config struct {
	Port        string        `yaml:"port"`
	StoreDriver string        `yaml:"store_driver"`
	DatabaseURL string        `yaml:"database_url"`
	SQLitePath  string        `yaml:"sqlite_path"`
	JWTSecret   string        `yaml:"jwt_secret"`
	JWTIssuer   string        `yaml:"jwt_issuer"`
	JWTTTL      time.Duration `yaml:"jwt_ttl"`
	CORSOrigins []string      `yaml:"cors_origins"`

	InitialCredits     int     `yaml:"initial_credits"`
	ProximityMaxMeters float64 `yaml:"proximity_max_meters"`
	ReportThreshold    int     `yaml:"report_threshold"`
	MaxPageSize        int     `yaml:"max_page_size"`

	ReaperEnabled  bool          `yaml:"reaper_enabled"`
	ReaperInterval time.Duration `yaml:"reaper_interval"`
	StaleAfter     time.Duration `yaml:"stale_after"`

	MetricsEnabled bool          `yaml:"metrics_enabled"`
	Logging        LoggingConfig `yaml:"logging"`
}

// LoggingConfig controls structured logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // text|json
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Port:               "8080",
		StoreDriver:        DriverPostgres,
		SQLitePath:         "parkshare.db",
		JWTIssuer:          "parkshare",
		JWTTTL:             24 * time.Hour,
		CORSOrigins:        []string{"*"},
		InitialCredits:     1,
		ProximityMaxMeters: 50,
		ReportThreshold:    3,
		MaxPageSize:        100,
		ReaperEnabled:      true,
		ReaperInterval:     30 * time.Minute,
		StaleAfter:         2 * time.Hour,
		MetricsEnabled:     true,
		Logging:            LoggingConfig{Level: "info", Format: "text"},
	}
}

// Load builds the configuration. path names a YAML file; when empty the
// PARKSHARE_CONFIG env var is consulted, and no file is read if both are empty.
func Load(path string) (Config, error) {
	cfg := Default()

	if path == "" {
		path = strings.TrimSpace(os.Getenv(ConfigFileEnv))
	}
	if path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return Config{}, err
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	c.Port = fallback(os.Getenv("PORT"), c.Port)
	c.StoreDriver = strings.ToLower(fallback(os.Getenv("STORE_DRIVER"), c.StoreDriver))
	c.DatabaseURL = fallback(os.Getenv("DATABASE_URL"), c.DatabaseURL)
	c.SQLitePath = fallback(os.Getenv("SQLITE_PATH"), c.SQLitePath)
	c.JWTSecret = fallback(os.Getenv("JWT_SECRET"), c.JWTSecret)
	c.JWTIssuer = fallback(os.Getenv("JWT_ISSUER"), c.JWTIssuer)
	if v := os.Getenv("CORS_ALLOWED_ORIGINS"); strings.TrimSpace(v) != "" {
		c.CORSOrigins = parseCSV(v)
	}
	c.Logging.Level = fallback(os.Getenv("LOG_LEVEL"), c.Logging.Level)
	c.Logging.Format = fallback(os.Getenv("LOG_FORMAT"), c.Logging.Format)

	if v := strings.TrimSpace(os.Getenv("JWT_TTL_MINUTES")); v != "" {
		minutes, err := strconv.Atoi(v)
		if err != nil || minutes <= 0 {
			return fmt.Errorf("invalid JWT_TTL_MINUTES %q", v)
		}
		c.JWTTTL = time.Duration(minutes) * time.Minute
	}

	var err error
	if c.InitialCredits, err = intEnv("INITIAL_CREDITS", c.InitialCredits); err != nil {
		return err
	}
	if c.ReportThreshold, err = intEnv("REPORT_THRESHOLD", c.ReportThreshold); err != nil {
		return err
	}
	if c.MaxPageSize, err = intEnv("MAX_PAGE_SIZE", c.MaxPageSize); err != nil {
		return err
	}
	if v := strings.TrimSpace(os.Getenv("PROXIMITY_MAX_METERS")); v != "" {
		meters, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("invalid PROXIMITY_MAX_METERS: %w", err)
		}
		c.ProximityMaxMeters = meters
	}
	if c.ReaperInterval, err = durationEnv("REAPER_INTERVAL", c.ReaperInterval); err != nil {
		return err
	}
	if c.StaleAfter, err = durationEnv("REAPER_STALE_AFTER", c.StaleAfter); err != nil {
		return err
	}
	c.ReaperEnabled = boolEnv("REAPER_ENABLED", c.ReaperEnabled)
	c.MetricsEnabled = boolEnv("METRICS_ENABLED", c.MetricsEnabled)
	return nil
}

// Validate checks required fields and value ranges.
func (c Config) Validate() error {
	var errs []error
	switch c.StoreDriver {
	case DriverPostgres:
		if c.DatabaseURL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required"))
		}
	case DriverSQLite:
		if c.SQLitePath == "" {
			errs = append(errs, errors.New("SQLITE_PATH is required"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver))
	}
	if c.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	if c.JWTTTL <= 0 {
		errs = append(errs, errors.New("jwt ttl must be positive"))
	}
	if c.InitialCredits < 0 {
		errs = append(errs, errors.New("initial credits must not be negative"))
	}
	if c.ProximityMaxMeters <= 0 {
		errs = append(errs, errors.New("proximity max meters must be positive"))
	}
	if c.ReportThreshold <= 0 {
		errs = append(errs, errors.New("report threshold must be positive"))
	}
	if c.MaxPageSize <= 0 {
		errs = append(errs, errors.New("max page size must be positive"))
	}
	if c.ReaperInterval <= 0 || c.StaleAfter <= 0 {
		errs = append(errs, errors.New("reaper interval and stale after must be positive"))
	}
	return errors.Join(errs...)
}

// HTTPAddress returns the host:port pair for the HTTP server to bind to.
func (c Config) HTTPAddress() string {
	return fmt.Sprintf(":%s", c.Port)
}

func fallback(value, def string) string {
	if strings.TrimSpace(value) == "" {
		return def
	}
	return strings.TrimSpace(value)
}

func intEnv(key string, def int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func durationEnv(key string, def time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func boolEnv(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func parseCSV(input string) []string {
	parts := strings.Split(input, ",")
	var out []string
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return []string{"*"}
	}
	return out
}
