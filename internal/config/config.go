package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
	"gopkg.in/yaml.v3"
)

// Config holds all server settings. Values come from defaults, then an
// optional YAML file, then environment variables.
type Config struct {
	Port                string   `yaml:"port"`
	DBPath              string   `yaml:"db_path"`
	DBEncryptionKey     string   `yaml:"db_encryption_key"`
	DataDir             string   `yaml:"data_dir"`
	UploadDir           string   `yaml:"upload_dir"`
	MaxUploadMB         int      `yaml:"max_upload_mb"`
	AllowedOrigins      []string `yaml:"allowed_origins"`
	RunMigrations       bool     `yaml:"run_migrations"`
	EnableWorkers       bool     `yaml:"enable_workers"`
	WorkerInterval      string   `yaml:"worker_interval"`
	DisableRegistration bool     `yaml:"disable_registration"`

	Auth     AuthConfig     `yaml:"auth"`
	Logging  LoggingConfig  `yaml:"logging"`
	Push     PushConfig     `yaml:"push"`
	SMTP     SMTPConfig     `yaml:"smtp"`
	Reminder ReminderConfig `yaml:"reminder"`
}

type AuthConfig struct {
	JWTSecret           string `yaml:"jwt_secret"`
	RefreshSecret       string `yaml:"refresh_secret"`
	AccessTokenMinutes  int    `yaml:"access_token_minutes"`
	RefreshTokenDays    int    `yaml:"refresh_token_days"`
	RememberRefreshDays int    `yaml:"remember_refresh_days"`
	CookieSecure        bool   `yaml:"cookie_secure"`
}

type LoggingConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

type PushConfig struct {
	VAPIDPublicKey  string `yaml:"vapid_public_key"`
	VAPIDPrivateKey string `yaml:"vapid_private_key"`
	Subject         string `yaml:"subject"`
}

// Enabled reports whether all VAPID settings are present.
func (p PushConfig) Enabled() bool {
	return p.VAPIDPublicKey != "" && p.VAPIDPrivateKey != "" && p.Subject != ""
}

type SMTPConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
	UseTLS   bool   `yaml:"use_tls"`
	AppURL   string `yaml:"app_url"`
}

func (s SMTPConfig) Enabled() bool {
	return s.Host != ""
}

type ReminderConfig struct {
	// Hour (0-23, user local time) after which incomplete habits trigger a reminder.
	Hour int `yaml:"hour"`
}

func DefaultConfig() *Config {
	return &Config{
		Port:           "3000",
		DBPath:         "./data/step26.db",
		DataDir:        "./data",
		UploadDir:      "./data/uploads",
		MaxUploadMB:    20,
		AllowedOrigins: []string{"http://localhost:80", "http://localhost:5173"},
		EnableWorkers:  true,
		WorkerInterval: "1m",
		Auth: AuthConfig{
			AccessTokenMinutes:  15,
			RefreshTokenDays:    7,
			RememberRefreshDays: 30,
			CookieSecure:        true,
		},
		Logging: LoggingConfig{
			Level:      "info",
			File:       "step26.log",
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
		SMTP: SMTPConfig{
			Port:   587,
			From:   "noreply@step26.app",
			UseTLS: true,
			AppURL: "http://localhost:3000",
		},
		Reminder: ReminderConfig{Hour: 20},
	}
}

// Load reads the YAML file at path (a missing file means defaults) and
// applies environment overrides.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		if err == nil {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config: %w", err)
			}
		}
	}

	cfg.applyEnvOverrides()

	if cfg.Auth.RefreshSecret == "" && cfg.Auth.JWTSecret != "" {
		cfg.Auth.RefreshSecret = cfg.Auth.JWTSecret + "-refresh"
	}
	return cfg, nil
}

// Validate checks settings the server cannot start without.
func (c *Config) Validate() error {
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required and must not be empty")
	}
	if len(c.Auth.JWTSecret) < 32 {
		return fmt.Errorf("JWT_SECRET must be at least 32 characters long")
	}
	if c.Reminder.Hour < 0 || c.Reminder.Hour > 23 {
		return fmt.Errorf("reminder hour must be between 0 and 23, got %d", c.Reminder.Hour)
	}
	if c.Logging.Level != "" {
		if _, err := log.ParseLevel(c.Logging.Level); err != nil {
			return fmt.Errorf("unknown log level %q (use debug, info, warn or error)", c.Logging.Level)
		}
	}
	return nil
}

// LogPath resolves the log file relative to the data directory.
func (c *Config) LogPath() string {
	if filepath.IsAbs(c.Logging.File) {
		return c.Logging.File
	}
	return filepath.Join(c.DataDir, "logs", c.Logging.File)
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("PORT"); v != "" {
		c.Port = v
	}
	if v := os.Getenv("DB_PATH"); v != "" {
		c.DBPath = v
	}
	if v := os.Getenv("DB_ENCRYPTION_KEY"); v != "" {
		c.DBEncryptionKey = v
	}
	if v := os.Getenv("DATA_DIR"); v != "" {
		c.DataDir = v
	}
	if v := os.Getenv("UPLOAD_DIR"); v != "" {
		c.UploadDir = v
	}
	if v := strings.TrimSpace(os.Getenv("ALLOWED_ORIGINS")); v != "" {
		if v == "*" {
			c.AllowedOrigins = []string{"*"}
		} else {
			parts := strings.Split(v, ",")
			origins := make([]string, 0, len(parts))
			for _, p := range parts {
				if p = strings.TrimSpace(p); p != "" {
					origins = append(origins, p)
				}
			}
			c.AllowedOrigins = origins
		}
	}
	if v := os.Getenv("RUN_MIGRATIONS"); v != "" {
		c.RunMigrations = v == "true"
	}
	if v := os.Getenv("ENABLE_WORKERS"); v != "" {
		c.EnableWorkers = v == "true"
	}
	if v := os.Getenv("WORKER_INTERVAL"); v != "" {
		c.WorkerInterval = v
	}
	if v := os.Getenv("DISABLE_REGISTRATION"); v != "" {
		c.DisableRegistration = strings.ToLower(v) == "true"
	}

	if v := os.Getenv("JWT_SECRET"); v != "" {
		c.Auth.JWTSecret = v
	}
	if v := os.Getenv("JWT_REFRESH_SECRET"); v != "" {
		c.Auth.RefreshSecret = v
	}
	if os.Getenv("COOKIE_SECURE") == "false" {
		c.Auth.CookieSecure = false
	}
	setPositiveInt(&c.Auth.AccessTokenMinutes, "ACCESS_TOKEN_MINUTES")
	setPositiveInt(&c.Auth.RefreshTokenDays, "REFRESH_TOKEN_DAYS")
	setPositiveInt(&c.Auth.RememberRefreshDays, "REMEMBER_REFRESH_DAYS")
	setPositiveInt(&c.MaxUploadMB, "MAX_UPLOAD_MB")

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("LOG_FILE"); v != "" {
		c.Logging.File = v
	}

	if v := os.Getenv("VAPID_PUBLIC_KEY"); v != "" {
		c.Push.VAPIDPublicKey = v
	}
	if v := os.Getenv("VAPID_PRIVATE_KEY"); v != "" {
		c.Push.VAPIDPrivateKey = v
	}
	if v := os.Getenv("VAPID_SUBJECT"); v != "" {
		c.Push.Subject = v
	}

	if v := os.Getenv("SMTP_HOST"); v != "" {
		c.SMTP.Host = v
	}
	setPositiveInt(&c.SMTP.Port, "SMTP_PORT")
	if v := os.Getenv("SMTP_USER"); v != "" {
		c.SMTP.Username = v
	}
	if v := os.Getenv("SMTP_PASS"); v != "" {
		c.SMTP.Password = v
	}
	if v := os.Getenv("SMTP_FROM"); v != "" {
		c.SMTP.From = v
	}
	if v := os.Getenv("SMTP_USE_TLS"); v != "" {
		c.SMTP.UseTLS = strings.ToLower(v) != "false"
	}
	if v := os.Getenv("APP_URL"); v != "" {
		c.SMTP.AppURL = v
	}

	if v := os.Getenv("REMINDER_HOUR"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Reminder.Hour = n
		}
	}
}

func setPositiveInt(dst *int, env string) {
	if v := os.Getenv(env); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			*dst = n
		}
	}
}
