// Package config loads hostreport settings from defaults, an optional YAML
// file, an optional .env file and HOSTREPORT_* environment variables, in that
// order of precedence.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	DefaultFile = "hostreport.yaml"

	EnvConfig         = "HOSTREPORT_CONFIG"
	EnvBind           = "HOSTREPORT_BIND"
	EnvPort           = "HOSTREPORT_PORT"
	EnvRootPath       = "HOSTREPORT_ROOT"
	EnvThreshold      = "HOSTREPORT_FILTER_THRESHOLD"
	EnvStreamInterval = "HOSTREPORT_STREAM_INTERVAL"
	EnvUseTLS         = "HOSTREPORT_USE_TLS"
	EnvTLSCert        = "HOSTREPORT_TLS_CERT"
	EnvTLSKey         = "HOSTREPORT_TLS_KEY"
	EnvAuthUser       = "HOSTREPORT_AUTH_USER"
	EnvAuthHash       = "HOSTREPORT_AUTH_PASSWORD_HASH"
	EnvJWTSecret      = "HOSTREPORT_JWT_SECRET"
	EnvDiscordWebhook = "HOSTREPORT_DISCORD_WEBHOOK"
	EnvTray           = "HOSTREPORT_TRAY"
)

type TLS struct {
	Enabled bool   `yaml:"enabled"`
	Cert    string `yaml:"cert" validate:"required_if=Enabled true"`
	Key     string `yaml:"key" validate:"required_if=Enabled true"`
}

// Auth protects the dashboard when PasswordHash is set.
type Auth struct {
	Username     string `yaml:"username" validate:"required_with=PasswordHash"`
	PasswordHash string `yaml:"password_hash"`
	Secret       string `yaml:"secret"`
}

func (a Auth) Enabled() bool {
	return strings.TrimSpace(a.PasswordHash) != ""
}

type Discord struct {
	WebhookURL string        `yaml:"webhook_url" validate:"omitempty,url"`
	Cooldown   time.Duration `yaml:"cooldown" validate:"min=0"`
}

type RateLimit struct {
	PerMinute int `yaml:"per_minute" validate:"min=1"`
	Burst     int `yaml:"burst" validate:"min=1"`
}

type Config struct {
	Bind            string        `yaml:"bind"`
	Port            int           `yaml:"port" validate:"min=1,max=65535"`
	RootPath        string        `yaml:"root_path"`
	FilterThreshold float64       `yaml:"filter_threshold" validate:"min=0,max=100"`
	StreamInterval  time.Duration `yaml:"stream_interval" validate:"min=1s"`
	TLS             TLS           `yaml:"tls"`
	Auth            Auth          `yaml:"auth"`
	Discord         Discord       `yaml:"discord"`
	RateLimit       RateLimit     `yaml:"rate_limit"`
	Tray            bool          `yaml:"tray"`

	// Source is the file the settings were read from, empty when none existed.
	Source string `yaml:"-"`
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		Port:            8501,
		FilterThreshold: 50,
		StreamInterval:  5 * time.Second,
		Discord:         Discord{Cooldown: 15 * time.Minute},
		RateLimit:       RateLimit{PerMinute: 100, Burst: 10},
	}
}

var validate = validator.New()

// Load resolves settings. An empty path falls back to HOSTREPORT_CONFIG and
// then hostreport.yaml; a missing file is not an error.
func Load(path string) (*Config, error) {
	// .env is optional.
	_ = godotenv.Load()

	cfg := Default()
	if path == "" {
		path = os.Getenv(EnvConfig)
	}
	if path == "" {
		path = DefaultFile
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config %s: %w", path, err)
		}
		if abs, aerr := filepath.Abs(path); aerr == nil {
			cfg.Source = abs
		} else {
			cfg.Source = path
		}
	case os.IsNotExist(err):
	default:
		return nil, fmt.Errorf("reading config: %w", err)
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()

	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv(EnvBind); v != "" {
		c.Bind = v
	}
	if v := os.Getenv(EnvPort); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvPort, err)
		}
		c.Port = port
	}
	if v := os.Getenv(EnvRootPath); v != "" {
		c.RootPath = v
	}
	if v := os.Getenv(EnvThreshold); v != "" {
		th, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvThreshold, err)
		}
		c.FilterThreshold = th
	}
	if v := os.Getenv(EnvStreamInterval); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvStreamInterval, err)
		}
		c.StreamInterval = d
	}
	if v, ok := envBool(EnvUseTLS); ok {
		c.TLS.Enabled = v
	}
	if v := os.Getenv(EnvTLSCert); v != "" {
		c.TLS.Cert = v
	}
	if v := os.Getenv(EnvTLSKey); v != "" {
		c.TLS.Key = v
	}
	if v := os.Getenv(EnvAuthUser); v != "" {
		c.Auth.Username = v
	}
	if v := os.Getenv(EnvAuthHash); v != "" {
		c.Auth.PasswordHash = v
	}
	if v := os.Getenv(EnvJWTSecret); v != "" {
		c.Auth.Secret = v
	}
	if v := os.Getenv(EnvDiscordWebhook); v != "" {
		c.Discord.WebhookURL = v
	}
	if v, ok := envBool(EnvTray); ok {
		c.Tray = v
	}
	return nil
}

func (c *Config) applyDefaults() {
	if strings.TrimSpace(c.RootPath) == "" {
		if c.Source != "" {
			c.RootPath = filepath.Dir(c.Source)
		} else if wd, err := os.Getwd(); err == nil {
			c.RootPath = wd
		} else {
			c.RootPath = os.TempDir()
		}
	}
	if c.Auth.Enabled() && strings.TrimSpace(c.Auth.Username) == "" {
		c.Auth.Username = "admin"
	}
}

// Addr is the listen address for the HTTP server.
func (c *Config) Addr() string {
	return c.Bind + ":" + strconv.Itoa(c.Port)
}

func envBool(key string) (bool, bool) {
	val := os.Getenv(key)
	if val == "" {
		return false, false
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return false, false
	}
	return parsed, true
}
