package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

const (
	StoreMemory = "memory"
	StoreRedis  = "redis"
)

type AppConfig struct {
	API      *APIConfig      `mapstructure:"api"`
	Gin      *GinConfig      `mapstructure:"gin"`
	Postgres *PostgresConfig `mapstructure:"postgres"`
	Checkin  *CheckinConfig  `mapstructure:"checkin"`
	Redis    *RedisConfig    `mapstructure:"redis"`
}

type APIConfig struct {
	Environment        string   `mapstructure:"environment"`
	Port               string   `mapstructure:"port"`
	BaseURL            string   `mapstructure:"base_url"`
	JWTSigningKey      string   `mapstructure:"jwt_signing_key"`
	AllowedCORSDomains []string `mapstructure:"allowed_cors_domains"`
	// AdminEmails are granted admin rights when they sign up.
	AdminEmails        []string `mapstructure:"admin_emails"`
}

type GinConfig struct {
	Mode string `mapstructure:"mode"`
}

type PostgresConfig struct {
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DB       string `mapstructure:"db"`
	SSLMode  string `mapstructure:"sslmode"`
}

// CheckinConfig drives the QR credential lifecycle and the rendered image.
type CheckinConfig struct {
	WebappURL    string        `mapstructure:"webapp_url"`
	TokenTTL     time.Duration `mapstructure:"token_ttl"`
	Store        string        `mapstructure:"store"`
	QRSize       int           `mapstructure:"qr_size"`
	QRMargin     int           `mapstructure:"qr_margin"`
	QRForeground string        `mapstructure:"qr_foreground"`
	QRBackground string        `mapstructure:"qr_background"`

	// SingleUseTokens invalidates a QR token after its first check-in.
	SingleUseTokens bool `mapstructure:"single_use_tokens"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

func (c *PostgresConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DB, c.SSLMode)
}

// Load reads the YAML file at path. Every key can be overridden from the
// environment, e.g. API_PORT or CHECKIN_WEBAPP_URL.
func Load(path string) (*AppConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("v.ReadInConfig -> %w", err)
	}

	return decode(v)
}

// Watch calls onChange with the reloaded configuration each time the file changes.
func Watch(path string, onChange func(*AppConfig, error)) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)
	if err := v.ReadInConfig(); err != nil {
		onChange(nil, fmt.Errorf("v.ReadInConfig -> %w", err))
		return
	}

	v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		onChange(decode(v))
	})
	v.WatchConfig()
}

func decode(v *viper.Viper) (*AppConfig, error) {
	var conf AppConfig
	if err := v.Unmarshal(&conf); err != nil {
		return nil, fmt.Errorf("v.Unmarshal -> %w", err)
	}

	if err := conf.validate(); err != nil {
		return nil, err
	}

	return &conf, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("api.environment", "development")
	v.SetDefault("api.port", "8080")
	v.SetDefault("gin.mode", "release")
	v.SetDefault("postgres.sslmode", "disable")
	v.SetDefault("checkin.webapp_url", "http://localhost:3000")
	v.SetDefault("checkin.token_ttl", 5*time.Minute)
	v.SetDefault("checkin.store", StoreMemory)
	v.SetDefault("checkin.qr_size", 300)
	v.SetDefault("checkin.qr_margin", 2)
	v.SetDefault("checkin.qr_foreground", "#000000")
	v.SetDefault("checkin.qr_background", "#FFFFFF")
	v.SetDefault("redis.addr", "localhost:6379")
}

func (c *AppConfig) validate() error {
	if c.API == nil || c.Gin == nil || c.Postgres == nil || c.Checkin == nil || c.Redis == nil {
		return fmt.Errorf("config is missing a required section")
	}
	if c.API.JWTSigningKey == "" {
		return fmt.Errorf("api.jwt_signing_key is required")
	}
	if c.Checkin.TokenTTL <= 0 {
		return fmt.Errorf("checkin.token_ttl must be positive")
	}
	switch c.Checkin.Store {
	case StoreMemory, StoreRedis:
	default:
		return fmt.Errorf("checkin.store must be %q or %q, got %q", StoreMemory, StoreRedis, c.Checkin.Store)
	}

	return nil
}
