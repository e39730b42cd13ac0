package config

import (
	"database/sql"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	gomysql "github.com/go-sql-driver/mysql"
	"gopkg.in/yaml.v3"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type Config struct {
	Server     ServerConfig   `yaml:"server"`
	Log        LogConfig      `yaml:"log"`
	Database   DatabaseConfig `yaml:"database"`
	AI         AIConfig       `yaml:"ai"`
	Storage    StorageConfig  `yaml:"storage"`
	Auth       AuthConfig     `yaml:"auth"`
	Notify     NotifyConfig   `yaml:"notify"`
	Session    SessionConfig  `yaml:"session"`
	ItemPolicy ItemPolicy     `yaml:"item_policy"`
}

type LogConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	Console    bool   `yaml:"console"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

type ServerConfig struct {
	Port int `yaml:"port"`
}

type DatabaseConfig struct {
	Driver       string `yaml:"driver"`
	Host         string `yaml:"host"`
	Port         int    `yaml:"port"`
	User         string `yaml:"user"`
	Password     string `yaml:"password"`
	Name         string `yaml:"name"`
	SSLMode      string `yaml:"sslmode"`
	Path         string `yaml:"path"`
	MaxOpenConns int    `yaml:"max_open_conns"`
	MaxIdleConns int    `yaml:"max_idle_conns"`
}

type AIConfig struct {
	APIKey         string `yaml:"api_key"`
	BaseURL        string `yaml:"base_url"`
	Model          string `yaml:"model"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	CaptionPhotos  bool   `yaml:"caption_photos"`
}

func (a AIConfig) Timeout() time.Duration {
	if a.TimeoutSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(a.TimeoutSeconds) * time.Second
}

type StorageConfig struct {
	Dir string `yaml:"dir"`
}

type AuthConfig struct {
	JWTSecret     string `yaml:"jwt_secret"`
	TokenTTLHours int    `yaml:"token_ttl_hours"`
}

func (a AuthConfig) TokenTTL() time.Duration {
	if a.TokenTTLHours <= 0 {
		return 7 * 24 * time.Hour
	}
	return time.Duration(a.TokenTTLHours) * time.Hour
}

type NotifyConfig struct {
	WebhookURL string `yaml:"webhook_url"`
}

type SessionConfig struct {
	IdleMinutes int `yaml:"idle_minutes"`
}

func (s SessionConfig) IdleTTL() time.Duration {
	if s.IdleMinutes <= 0 {
		return 2 * time.Hour
	}
	return time.Duration(s.IdleMinutes) * time.Minute
}

// ItemPolicy decides what a failed child insert does to the rest of a save.
type ItemPolicy string

const (
	FailFast   ItemPolicy = "fail_fast"
	BestEffort ItemPolicy = "best_effort"
)

func ParseItemPolicy(s string) ItemPolicy {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "fail_fast", "failfast", "strict":
		return FailFast
	default:
		return BestEffort
	}
}

func Load(configFile string) *Config {
	c := &Config{
		Server:     ServerConfig{Port: 9871},
		Log:        LogConfig{Level: "info", Console: true, MaxSizeMB: 100, MaxBackups: 3, MaxAgeDays: 30},
		Database:   DatabaseConfig{Driver: "postgres", Port: 5432, Name: "inspections", SSLMode: "require", MaxOpenConns: 10, MaxIdleConns: 5},
		AI:         AIConfig{BaseURL: "https://generativelanguage.googleapis.com/v1beta", TimeoutSeconds: 30},
		Storage:    StorageConfig{Dir: "inspection_data"},
		Auth:       AuthConfig{JWTSecret: "facility-inspect-dev-secret", TokenTTLHours: 7 * 24},
		Session:    SessionConfig{IdleMinutes: 120},
		ItemPolicy: BestEffort,
	}

	paths := []string{"etc/config-dev.yaml", "/etc/facility-inspect/config.yaml"}
	if configFile != "" {
		paths = []string{configFile}
	}
	for _, path := range paths {
		if data, err := os.ReadFile(path); err == nil {
			yaml.Unmarshal(data, c)
			break
		}
	}

	envOverride(&c.Log.Level, "LOG_LEVEL")
	envOverride(&c.Log.File, "LOG_FILE")
	envOverride(&c.Database.Driver, "DB_DRIVER")
	envOverride(&c.Database.Host, "DB_HOST")
	envOverride(&c.Database.User, "DB_USER")
	envOverride(&c.Database.Password, "DB_PASS")
	envOverride(&c.Database.Name, "DB_NAME")
	envOverride(&c.Database.SSLMode, "DB_SSLMODE")
	envOverride(&c.Database.Path, "DB_PATH")
	envOverride(&c.AI.APIKey, "GEMINI_API_KEY")
	envOverride(&c.AI.BaseURL, "GEMINI_BASE_URL")
	envOverride(&c.AI.Model, "GEMINI_MODEL")
	envOverride(&c.Storage.Dir, "STORAGE_DIR")
	envOverride(&c.Auth.JWTSecret, "JWT_SECRET")
	envOverride(&c.Notify.WebhookURL, "WEBHOOK_URL")
	envOverrideInt(&c.Server.Port, "PORT")
	envOverrideInt(&c.Database.Port, "DB_PORT")
	envOverrideBool(&c.AI.CaptionPhotos, "GEMINI_CAPTION_PHOTOS")

	policy := string(c.ItemPolicy)
	envOverride(&policy, "ITEM_POLICY")
	c.ItemPolicy = ParseItemPolicy(policy)

	return c
}

func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Server.Port)
}

// Enabled reports whether enough connection settings exist to try the database.
func (d DatabaseConfig) Enabled() bool {
	if d.driver() == "sqlite" {
		return d.Path != ""
	}
	return d.Host != ""
}

func (d DatabaseConfig) driver() string {
	return strings.ToLower(strings.TrimSpace(d.Driver))
}

func (d DatabaseConfig) PostgresDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}

func (c *Config) OpenGormDB() (*gorm.DB, error) {
	if !c.Database.Enabled() {
		return nil, fmt.Errorf("database not configured")
	}

	var dialector gorm.Dialector
	switch c.Database.driver() {
	case "mysql":
		cfg := gomysql.NewConfig()
		cfg.User = c.Database.User
		cfg.Passwd = c.Database.Password
		cfg.Net = "tcp"
		cfg.Addr = fmt.Sprintf("%s:%d", c.Database.Host, c.Database.Port)
		cfg.DBName = c.Database.Name
		cfg.ParseTime = true

		connector, err := gomysql.NewConnector(cfg)
		if err != nil {
			return nil, fmt.Errorf("create connector: %w", err)
		}
		sqlDB := sql.OpenDB(connector)
		if err := sqlDB.Ping(); err != nil {
			return nil, fmt.Errorf("ping db: %w", err)
		}
		dialector = mysql.New(mysql.Config{Conn: sqlDB})
	case "postgres", "postgresql":
		dialector = postgres.Open(c.Database.PostgresDSN())
	case "sqlite", "sqlite3":
		dialector = sqlite.Open(c.Database.Path)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", c.Database.driver(), err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("pool: %w", err)
	}
	if c.Database.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(c.Database.MaxOpenConns)
	}
	if c.Database.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(c.Database.MaxIdleConns)
	}
	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("ping db: %w", err)
	}
	return db, nil
}

func envOverride(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func envOverrideInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func envOverrideBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}
