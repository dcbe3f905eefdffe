// Package config loads settings for the chat client and the chat backend.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Client ClientConfig `mapstructure:"client"`
	Server ServerConfig `mapstructure:"server"`
	Gemini GeminiConfig `mapstructure:"gemini"`
	AWS    AWSConfig    `mapstructure:"aws"`
}

// ClientConfig controls how the terminal UI reaches the chat backend.
type ClientConfig struct {
	BackendURL string        `mapstructure:"backend_url"`
	Timeout    time.Duration `mapstructure:"timeout"`
	LogFile    string        `mapstructure:"log_file"`
}

// ServerConfig controls the local /api/chat server.
type ServerConfig struct {
	Port             string   `mapstructure:"port"`
	AllowedOrigins   []string `mapstructure:"allowed_origins"`
	MaxMessageLength int      `mapstructure:"max_message_length"`
}

type GeminiConfig struct {
	APIKey  string        `mapstructure:"api_key"`
	Model   string        `mapstructure:"model"`
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// AWSConfig is optional. ParamPrefix enables the SSM key fallback and
// ExchangeTable enables the DynamoDB exchange log.
type AWSConfig struct {
	ParamPrefix   string `mapstructure:"param_prefix"`
	ExchangeTable string `mapstructure:"exchange_table"`
}

// envAliases binds keys to the variable names used by existing deployments.
var envAliases = map[string]string{
	"gemini.api_key":     "API_KEY",
	"server.port":        "PORT",
	"aws.param_prefix":   "PARAM_PREFIX",
	"aws.exchange_table": "EXCHANGE_TABLE",
}

// New returns a viper instance with defaults and environment bindings.
func New() *viper.Viper {
	v := viper.New()
	v.SetDefault("client.backend_url", "http://localhost:8080")
	v.SetDefault("client.timeout", 60*time.Second)
	v.SetDefault("client.log_file", "")
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("server.max_message_length", 4000)
	v.SetDefault("gemini.api_key", "")
	v.SetDefault("gemini.model", "gemini-1.5-flash")
	v.SetDefault("gemini.base_url", "https://generativelanguage.googleapis.com")
	v.SetDefault("gemini.timeout", 30*time.Second)
	v.SetDefault("aws.param_prefix", "")
	v.SetDefault("aws.exchange_table", "")

	v.SetEnvPrefix("GEMINI_CHAT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, env := range envAliases {
		_ = v.BindEnv(key, "GEMINI_CHAT_"+strings.ToUpper(strings.ReplaceAll(key, ".", "_")), env)
	}
	return v
}

// DefaultPath is ~/.gemini-chat/config.yaml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("config: resolve home directory: %w", err)
	}
	return filepath.Join(home, ".gemini-chat", "config.yaml"), nil
}

// Load reads path (if it exists) on top of defaults and environment, then
// validates the result. An empty path means DefaultPath.
func Load(v *viper.Viper, path string) (*Config, error) {
	if v == nil {
		v = New()
	}
	if path == "" {
		if p, err := DefaultPath(); err == nil {
			path = p
		}
	}
	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil && !isNotExist(err) {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: decode: %w", err)
	}
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

func isNotExist(err error) bool {
	var nf viper.ConfigFileNotFoundError
	return errors.As(err, &nf) || errors.Is(err, os.ErrNotExist)
}

func (c *Config) normalize() {
	c.Client.BackendURL = strings.TrimRight(strings.TrimSpace(c.Client.BackendURL), "/")
	c.Gemini.APIKey = strings.TrimSpace(c.Gemini.APIKey)
	c.Gemini.Model = strings.TrimSpace(c.Gemini.Model)
	c.AWS.ParamPrefix = strings.TrimRight(strings.TrimSpace(c.AWS.ParamPrefix), "/")
	c.AWS.ExchangeTable = strings.TrimSpace(c.AWS.ExchangeTable)

	var origins []string
	for _, o := range c.Server.AllowedOrigins {
		for _, part := range strings.Split(o, ",") {
			if part = strings.TrimSpace(part); part != "" {
				origins = append(origins, part)
			}
		}
	}
	c.Server.AllowedOrigins = origins
}

// Validate checks that all required configuration fields are set.
func (c *Config) Validate() error {
	u, err := url.Parse(c.Client.BackendURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("client.backend_url must be an absolute URL, got %q", c.Client.BackendURL)
	}
	if c.Client.Timeout <= 0 {
		return errors.New("client.timeout must be > 0")
	}
	if c.Server.Port == "" {
		return errors.New("server.port cannot be empty")
	}
	if c.Server.MaxMessageLength <= 0 {
		return errors.New("server.max_message_length must be > 0")
	}
	if c.Gemini.Model == "" {
		return errors.New("gemini.model cannot be empty")
	}
	if c.Gemini.Timeout <= 0 {
		return errors.New("gemini.timeout must be > 0")
	}
	return nil
}

// KeyParameterName is the SSM parameter holding the API key, or "" when the
// SSM fallback is disabled.
func (c *Config) KeyParameterName() string {
	if c.AWS.ParamPrefix == "" {
		return ""
	}
	return c.AWS.ParamPrefix + "/api-key"
}

// UsesAWS reports whether any AWS-backed component is configured.
func (c *Config) UsesAWS() bool {
	return c.AWS.ParamPrefix != "" || c.AWS.ExchangeTable != ""
}
