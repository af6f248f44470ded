package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Session store backends selectable through SESSION_STORE.
const (
	StoreFile     = "file"
	StoreMemory   = "memory"
	StoreRedis    = "redis"
	StorePostgres = "postgres"
)

type Config struct {
	APIURL             string        `mapstructure:"API_URL"`
	Env                string        `mapstructure:"ENV"`
	Timezone           string        `mapstructure:"TIMEZONE"`
	SessionStore       string        `mapstructure:"SESSION_STORE"`
	SessionFile        string        `mapstructure:"SESSION_FILE"`
	RedisURL           string        `mapstructure:"REDIS_URL"`
	DatabaseURL        string        `mapstructure:"DATABASE_URL"`
	DBMaxConns         int32         `mapstructure:"DB_MAX_CONNS"`
	DBMinConns         int32         `mapstructure:"DB_MIN_CONNS"`
	HTTPTimeout        time.Duration `mapstructure:"HTTP_TIMEOUT"`
	DoctorListTimeout  time.Duration `mapstructure:"DOCTOR_LIST_TIMEOUT"`
	OTPResendCooldown  time.Duration `mapstructure:"OTP_RESEND_COOLDOWN"`
	UnreadPollInterval time.Duration `mapstructure:"UNREAD_POLL_INTERVAL"`
	ChatPollInterval   time.Duration `mapstructure:"CHAT_POLL_INTERVAL"`
	ToastDuration      time.Duration `mapstructure:"TOAST_DURATION"`
	Port               string        `mapstructure:"PORT"`
	CORSOrigins        []string      `mapstructure:"CORS_ORIGINS"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("API_URL", "http://127.0.0.1:8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("TIMEZONE", "")
	v.SetDefault("SESSION_STORE", StoreFile)
	v.SetDefault("SESSION_FILE", defaultSessionFile())
	v.SetDefault("DB_MAX_CONNS", 4)
	v.SetDefault("DB_MIN_CONNS", 1)
	v.SetDefault("HTTP_TIMEOUT", "15s")
	v.SetDefault("DOCTOR_LIST_TIMEOUT", "8s")
	v.SetDefault("OTP_RESEND_COOLDOWN", "15s")
	v.SetDefault("UNREAD_POLL_INTERVAL", "10s")
	v.SetDefault("CHAT_POLL_INTERVAL", "3s")
	v.SetDefault("TOAST_DURATION", "3s")
	v.SetDefault("PORT", "5173")
	v.SetDefault("CORS_ORIGINS", "http://localhost:5173")

	// Bind env vars explicitly so Unmarshal picks them up
	v.BindEnv("API_URL")
	v.BindEnv("ENV")
	v.BindEnv("TIMEZONE")
	v.BindEnv("SESSION_STORE")
	v.BindEnv("SESSION_FILE")
	v.BindEnv("REDIS_URL")
	v.BindEnv("DATABASE_URL")
	v.BindEnv("DB_MAX_CONNS")
	v.BindEnv("DB_MIN_CONNS")
	v.BindEnv("HTTP_TIMEOUT")
	v.BindEnv("DOCTOR_LIST_TIMEOUT")
	v.BindEnv("OTP_RESEND_COOLDOWN")
	v.BindEnv("UNREAD_POLL_INTERVAL")
	v.BindEnv("CHAT_POLL_INTERVAL")
	v.BindEnv("TOAST_DURATION")
	v.BindEnv("PORT")
	v.BindEnv("CORS_ORIGINS")

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.CORSOrigins == nil {
		origins := v.GetString("CORS_ORIGINS")
		if origins != "" {
			cfg.CORSOrigins = strings.Split(origins, ",")
		}
	}

	cfg.APIURL = strings.TrimRight(cfg.APIURL, "/")
	cfg.SessionStore = strings.ToLower(strings.TrimSpace(cfg.SessionStore))

	return cfg, nil
}

func defaultSessionFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "session.json"
	}
	return filepath.Join(dir, "clinicdesk", "session.json")
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// Location resolves TIMEZONE. An empty value means the host's local zone.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load TIMEZONE %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// Validate checks that the selected session store has what it needs and that
// every interval is usable by a ticker.
func (c *Config) Validate() error {
	u, err := url.Parse(c.APIURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("API_URL must be an absolute URL, got %q", c.APIURL)
	}

	switch c.SessionStore {
	case StoreFile:
		if c.SessionFile == "" {
			return fmt.Errorf("SESSION_FILE is required when SESSION_STORE is %q", StoreFile)
		}
	case StoreMemory:
	case StoreRedis:
		if c.RedisURL == "" {
			return fmt.Errorf("REDIS_URL is required when SESSION_STORE is %q", StoreRedis)
		}
	case StorePostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required when SESSION_STORE is %q", StorePostgres)
		}
		if c.DBMinConns > c.DBMaxConns {
			return fmt.Errorf("DB_MIN_CONNS (%d) must not exceed DB_MAX_CONNS (%d)", c.DBMinConns, c.DBMaxConns)
		}
	default:
		return fmt.Errorf("SESSION_STORE must be %q, %q, %q or %q, got %q",
			StoreFile, StoreMemory, StoreRedis, StorePostgres, c.SessionStore)
	}

	intervals := map[string]time.Duration{
		"HTTP_TIMEOUT":         c.HTTPTimeout,
		"DOCTOR_LIST_TIMEOUT":  c.DoctorListTimeout,
		"UNREAD_POLL_INTERVAL": c.UnreadPollInterval,
		"CHAT_POLL_INTERVAL":   c.ChatPollInterval,
		"TOAST_DURATION":       c.ToastDuration,
	}
	for name, d := range intervals {
		if d <= 0 {
			return fmt.Errorf("%s must be positive, got %s", name, d)
		}
	}
	if c.OTPResendCooldown < 0 {
		return fmt.Errorf("OTP_RESEND_COOLDOWN must not be negative, got %s", c.OTPResendCooldown)
	}

	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}
