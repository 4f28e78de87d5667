// Package config loads service settings from defaults, an optional YAML
// file and CLUBPILOT_* environment variables, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// BrowserConfig controls the playwright engine.
type BrowserConfig struct {
	Headless    bool
	TimeoutMS   float64
	SlowMoMS    float64
	SkipInstall bool
}

// SiteConfig locates the Club Virtual deployment.
type SiteConfig struct {
	BaseURL        string
	LoginPath      string
	SelectClubPath string
}

// PoolConfig sizes the session pool.
type PoolConfig struct {
	MaxSessions    int
	AcquireTimeout time.Duration
	SessionTTL     time.Duration
	SweepInterval  time.Duration
}

// SessionsConfig controls saved-login persistence.
type SessionsConfig struct {
	Dir    string
	MaxAge time.Duration
}

// ScreenshotsConfig controls diagnostic captures.
type ScreenshotsConfig struct {
	Dir       string
	Enabled   bool
	OnSuccess bool
}

// RetryConfig tunes the backoff executor.
type RetryConfig struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	Multiplier  float64
}

// Config is the full service configuration.
type Config struct {
	Environment string
	Host        string
	Port        int
	LogLevel    string

	Browser     BrowserConfig
	Site        SiteConfig
	Pool        PoolConfig
	Sessions    SessionsConfig
	Screenshots ScreenshotsConfig
	Retry       RetryConfig
}

// Addr returns the host:port the HTTP server binds to.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Load reads configuration. path names an explicit config file; empty
// falls back to config.yaml in ~/.clubpilot or the working directory,
// and it is fine for neither to exist.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetEnvPrefix("CLUBPILOT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("$HOME/.clubpilot")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	cfg := &Config{
		Environment: v.GetString("environment"),
		Host:        v.GetString("host"),
		Port:        v.GetInt("port"),
		LogLevel:    v.GetString("log.level"),
		Browser: BrowserConfig{
			Headless:    v.GetBool("browser.headless"),
			TimeoutMS:   v.GetFloat64("browser.timeout_ms"),
			SlowMoMS:    v.GetFloat64("browser.slow_mo_ms"),
			SkipInstall: v.GetBool("browser.skip_install"),
		},
		Site: SiteConfig{
			BaseURL:        strings.TrimRight(v.GetString("site.base_url"), "/"),
			LoginPath:      v.GetString("site.login_path"),
			SelectClubPath: v.GetString("site.select_club_path"),
		},
		Pool: PoolConfig{
			MaxSessions:    v.GetInt("pool.max_sessions"),
			AcquireTimeout: v.GetDuration("pool.acquire_timeout"),
			SessionTTL:     v.GetDuration("pool.session_ttl"),
			SweepInterval:  v.GetDuration("pool.sweep_interval"),
		},
		Sessions: SessionsConfig{
			Dir:    v.GetString("sessions.dir"),
			MaxAge: v.GetDuration("sessions.max_age"),
		},
		Screenshots: ScreenshotsConfig{
			Dir:       v.GetString("screenshots.dir"),
			Enabled:   v.GetBool("screenshots.enabled"),
			OnSuccess: v.GetBool("screenshots.on_success"),
		},
		Retry: RetryConfig{
			MaxAttempts: v.GetInt("retry.max_attempts"),
			BaseDelay:   v.GetDuration("retry.base_delay"),
			MaxDelay:    v.GetDuration("retry.max_delay"),
			Multiplier:  v.GetFloat64("retry.multiplier"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")
	v.SetDefault("host", "0.0.0.0")
	v.SetDefault("port", 8080)
	v.SetDefault("log.level", "info")

	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.timeout_ms", 30000)
	v.SetDefault("browser.slow_mo_ms", 0)
	v.SetDefault("browser.skip_install", false)

	v.SetDefault("site.base_url", "https://clubvirtual-asd.org.mx")
	v.SetDefault("site.login_path", "/login/auth")
	v.SetDefault("site.select_club_path", "/valida/selecciona-club")

	v.SetDefault("pool.max_sessions", 3)
	v.SetDefault("pool.acquire_timeout", "30s")
	v.SetDefault("pool.session_ttl", "10m")
	v.SetDefault("pool.sweep_interval", "1m")

	v.SetDefault("sessions.dir", "./sessions")
	v.SetDefault("sessions.max_age", "24h")

	v.SetDefault("screenshots.dir", "./screenshots")
	v.SetDefault("screenshots.enabled", true)
	v.SetDefault("screenshots.on_success", false)

	v.SetDefault("retry.max_attempts", 3)
	v.SetDefault("retry.base_delay", "2s")
	v.SetDefault("retry.max_delay", "10s")
	v.SetDefault("retry.multiplier", 2)
}

// Validate rejects settings the service cannot run with.
func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("port %d out of range", c.Port)
	}
	if c.Site.BaseURL == "" {
		return errors.New("site base URL is required")
	}
	if c.Pool.MaxSessions < 1 {
		return fmt.Errorf("pool needs at least one session, got %d", c.Pool.MaxSessions)
	}
	if c.Retry.MaxAttempts < 1 {
		return fmt.Errorf("retry needs at least one attempt, got %d", c.Retry.MaxAttempts)
	}
	if c.Retry.Multiplier < 1 {
		return fmt.Errorf("retry multiplier must be >= 1, got %g", c.Retry.Multiplier)
	}
	return nil
}
