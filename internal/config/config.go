package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	ListenAddr string `env:"LISTEN_ADDR" envDefault:":8080"`

	APIBaseURL    string `env:"API_BASE_URL" envDefault:"http://127.0.0.1:5000/api"`
	APITimeoutSec int    `env:"API_TIMEOUT_SEC" envDefault:"15"`

	ClientStoreDriver string        `env:"CLIENT_STORE_DRIVER" envDefault:"sqlite"`
	ClientStorePath   string        `env:"CLIENT_STORE_PATH" envDefault:"./data/clients.db"`
	ClientStoreDSN    string        `env:"CLIENT_STORE_DSN"`
	DBMaxOpenConns    int           `env:"APP_DB_MAX_OPEN_CONNS" envDefault:"4"`
	DBMaxIdleConns    int           `env:"APP_DB_MAX_IDLE_CONNS" envDefault:"2"`
	DBConnMaxLifetime time.Duration `env:"APP_DB_CONN_MAX_LIFETIME" envDefault:"30m"`
	MigrationPath     string        `env:"MIGRATION_PATH" envDefault:"migrations/001_init.sql"`

	SessionCookieName  string   `env:"SESSION_COOKIE_NAME" envDefault:"casedesk_client"`
	CSRFCookieName     string   `env:"CSRF_COOKIE_NAME" envDefault:"casedesk_csrf"`
	SessionIdleMinutes int      `env:"SESSION_IDLE_MINUTES" envDefault:"60"`
	ClientCookieDays   int      `env:"CLIENT_COOKIE_DAYS" envDefault:"30"`
	SessionEncryptKey  string   `env:"SESSION_ENCRYPT_KEY" envDefault:"CHANGE_ME_PRODUCTION_SESSION_KEY"`
	CookieSecure       bool     `env:"COOKIE_SECURE" envDefault:"false"`
	TrustProxy         bool     `env:"TRUST_PROXY" envDefault:"false"`
	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:","`

	RatingScaleMax int   `env:"RATING_SCALE_MAX" envDefault:"5"`
	MaxImageBytes  int64 `env:"MAX_IMAGE_BYTES" envDefault:"5242880"`
	MaxImages      int   `env:"MAX_IMAGES" envDefault:"5"`
	PageSize       int   `env:"PAGE_SIZE" envDefault:"10"`

	NotifyQueueSize int `env:"NOTIFY_QUEUE_SIZE" envDefault:"20"`

	CaptchaEnabled   bool   `env:"CAPTCHA_ENABLED" envDefault:"false"`
	CaptchaVerifyURL string `env:"CAPTCHA_VERIFY_URL" envDefault:"https://challenges.cloudflare.com/turnstile/v0/siteverify"`
	CaptchaSecret    string `env:"CAPTCHA_SECRET"`

	HTTPReadTimeoutSec       int `env:"HTTP_READ_TIMEOUT_SEC" envDefault:"10"`
	HTTPReadHeaderTimeoutSec int `env:"HTTP_READ_HEADER_TIMEOUT_SEC" envDefault:"5"`
	HTTPWriteTimeoutSec      int `env:"HTTP_WRITE_TIMEOUT_SEC" envDefault:"30"`
	HTTPIdleTimeoutSec       int `env:"HTTP_IDLE_TIMEOUT_SEC" envDefault:"60"`
}

func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	cfg.ClientStoreDriver = strings.ToLower(strings.TrimSpace(cfg.ClientStoreDriver))
	cfg.CORSAllowedOrigins = trimAll(cfg.CORSAllowedOrigins)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks cross-field constraints. Load calls it; tests that build a
// Config by hand can call it too.
func (c Config) Validate() error {
	u, err := url.Parse(c.APIBaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("API_BASE_URL must be an absolute http(s) URL")
	}
	if c.APITimeoutSec <= 0 {
		return fmt.Errorf("API_TIMEOUT_SEC must be positive")
	}
	switch c.ClientStoreDriver {
	case "sqlite":
		if strings.TrimSpace(c.ClientStorePath) == "" {
			return fmt.Errorf("CLIENT_STORE_PATH is required for the sqlite driver")
		}
	case "mysql", "pgx":
		if strings.TrimSpace(c.ClientStoreDSN) == "" {
			return fmt.Errorf("CLIENT_STORE_DSN is required for the %s driver", c.ClientStoreDriver)
		}
	default:
		return fmt.Errorf("CLIENT_STORE_DRIVER must be one of: sqlite, mysql, pgx")
	}
	if c.DBMaxOpenConns <= 0 || c.DBMaxIdleConns < 0 {
		return fmt.Errorf("invalid DB pool config")
	}
	if c.SessionIdleMinutes <= 0 {
		return fmt.Errorf("session idle timeout must be positive")
	}
	if c.ClientCookieDays <= 0 {
		return fmt.Errorf("CLIENT_COOKIE_DAYS must be positive")
	}
	if strings.TrimSpace(c.SessionEncryptKey) == "" ||
		c.SessionEncryptKey == "CHANGE_ME_PRODUCTION_SESSION_KEY" ||
		len(c.SessionEncryptKey) < 24 {
		return fmt.Errorf("SESSION_ENCRYPT_KEY must be set to a strong non-default value (>=24 chars)")
	}
	if !c.CookieSecure && !isLocalListen(c.ListenAddr) {
		return fmt.Errorf("COOKIE_SECURE=false is allowed only for local listen addresses")
	}
	if c.RatingScaleMax != 5 && c.RatingScaleMax != 10 {
		return fmt.Errorf("RATING_SCALE_MAX must be 5 or 10")
	}
	if c.MaxImageBytes <= 0 || c.MaxImages <= 0 {
		return fmt.Errorf("image limits must be positive")
	}
	if c.PageSize <= 0 || c.PageSize > 100 {
		return fmt.Errorf("PAGE_SIZE must be between 1 and 100")
	}
	if c.NotifyQueueSize <= 0 {
		return fmt.Errorf("NOTIFY_QUEUE_SIZE must be positive")
	}
	if c.CaptchaEnabled && (strings.TrimSpace(c.CaptchaSecret) == "" || strings.TrimSpace(c.CaptchaVerifyURL) == "") {
		return fmt.Errorf("CAPTCHA_SECRET and CAPTCHA_VERIFY_URL are required when CAPTCHA_ENABLED=true")
	}
	return nil
}

func (c Config) SessionIdleDuration() time.Duration {
	return time.Duration(c.SessionIdleMinutes) * time.Minute
}

// ClientLifetime bounds both the client cookie and its durable storage.
func (c Config) ClientLifetime() time.Duration {
	return time.Duration(c.ClientCookieDays) * 24 * time.Hour
}

func (c Config) APITimeout() time.Duration {
	return time.Duration(c.APITimeoutSec) * time.Second
}

func trimAll(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	out := make([]string, 0, len(in))
	for _, p := range in {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func isLocalListen(addr string) bool {
	a := strings.ToLower(strings.TrimSpace(addr))
	return strings.Contains(a, "127.0.0.1") || strings.Contains(a, "localhost") || strings.Contains(a, "[::1]") || strings.HasPrefix(a, ":")
}
