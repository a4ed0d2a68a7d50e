package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config defines server configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Transport TransportConfig `yaml:"transport"`
	Log       LogConfig       `yaml:"log"`
	Local     LocalConfig     `yaml:"local"`
	Remote    RemoteConfig    `yaml:"remote"`
	Journal   JournalConfig   `yaml:"journal"`
	Auth      AuthConfig      `yaml:"auth"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type TransportConfig struct {
	// Mode is "http" or "stdio".
	Mode string `yaml:"mode"`
}

type LogConfig struct {
	Level string `yaml:"level"`
	Path  string `yaml:"path"`
}

type LocalConfig struct {
	Root string `yaml:"root"`
}

type RemoteConfig struct {
	CredentialsJSON string        `yaml:"credentials_json"`
	Bucket          string        `yaml:"bucket"`
	Collection      string        `yaml:"collection"`
	IDMode          string        `yaml:"id_mode"`
	Timeout         time.Duration `yaml:"timeout"`
	SignedURLTTL    time.Duration `yaml:"signed_url_ttl"`
}

type JournalConfig struct {
	// Path of the SQLite journal. Empty disables journaling.
	Path string `yaml:"path"`
}

type AuthConfig struct {
	APIToken       string `yaml:"api_token"`
	StatusPassword string `yaml:"status_password"`
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		Transport: TransportConfig{
			Mode: "http",
		},
		Log: LogConfig{
			Level: "info",
		},
		Local: LocalConfig{
			Root: "data",
		},
		Remote: RemoteConfig{
			Collection:   "pedidos",
			IDMode:       "server",
			Timeout:      10 * time.Second,
			SignedURLTTL: 8760 * time.Hour,
		},
		Journal: JournalConfig{
			Path: "data/journal.db",
		},
	}
}

// Load reads configuration from an optional YAML file and environment variables.
// A .env file in the working directory or its parent is loaded first; variables
// already set in the environment take precedence over it.
func Load() (Config, error) {
	loadDotEnv()

	cfg := Defaults()

	if path := os.Getenv("PARTDESK_CONFIG_PATH"); path != "" {
		if err := loadFromFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks enumerated and numeric options.
func (c Config) Validate() error {
	switch c.Transport.Mode {
	case "http", "stdio":
	default:
		return fmt.Errorf("invalid transport mode %q", c.Transport.Mode)
	}
	switch c.Remote.IDMode {
	case "server", "local":
	default:
		return fmt.Errorf("invalid remote id mode %q", c.Remote.IDMode)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	if c.Local.Root == "" {
		return fmt.Errorf("local root must not be empty")
	}
	return nil
}

func applyEnv(cfg *Config) error {
	setString("PARTDESK_SERVER_HOST", &cfg.Server.Host)
	if portStr := os.Getenv("PARTDESK_SERVER_PORT"); portStr != "" {
		port, err := strconv.Atoi(portStr)
		if err != nil {
			return fmt.Errorf("invalid PARTDESK_SERVER_PORT: %w", err)
		}
		cfg.Server.Port = port
	}
	setString("PARTDESK_TRANSPORT_MODE", &cfg.Transport.Mode)
	setString("PARTDESK_LOG_LEVEL", &cfg.Log.Level)
	setString("PARTDESK_LOG_PATH", &cfg.Log.Path)
	setString("PARTDESK_LOCAL_ROOT", &cfg.Local.Root)

	setString("GOOGLE_APPLICATION_CREDENTIALS_JSON", &cfg.Remote.CredentialsJSON)
	setString("FIREBASE_BUCKET", &cfg.Remote.Bucket)
	setString("PARTDESK_REMOTE_COLLECTION", &cfg.Remote.Collection)
	setString("PARTDESK_REMOTE_ID_MODE", &cfg.Remote.IDMode)
	if err := setDuration("PARTDESK_REMOTE_TIMEOUT", &cfg.Remote.Timeout); err != nil {
		return err
	}
	if err := setDuration("PARTDESK_SIGNED_URL_TTL", &cfg.Remote.SignedURLTTL); err != nil {
		return err
	}

	if path, ok := os.LookupEnv("PARTDESK_JOURNAL_PATH"); ok {
		cfg.Journal.Path = path
	}
	setString("PARTDESK_API_TOKEN", &cfg.Auth.APIToken)
	setString("PARTDESK_STATUS_PASSWORD", &cfg.Auth.StatusPassword)
	return nil
}

func setString(key string, dst *string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setDuration(key string, dst *time.Duration) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = d
	return nil
}

func loadDotEnv() {
	for _, path := range []string{".env", "../.env"} {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			return
		}
	}
}

func loadFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}
