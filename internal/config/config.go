package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds the application configuration
type Config struct {
	API         APIConfig
	Server      ServerConfig
	View        ViewConfig
	Log         LogConfig
	Diagnostics DiagnosticsConfig
	LLM         LLMConfig
}

// APIConfig points at the conversations REST backend.
type APIConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// ServerConfig holds the server configuration
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port string `mapstructure:"port"`
}

// ViewConfig tunes how pages render and how long transient state lives.
type ViewConfig struct {
	Timezone       string        `mapstructure:"timezone"`
	TimeLayout     string        `mapstructure:"time_layout"`
	SaveSuccessTTL time.Duration `mapstructure:"save_success_ttl"`
	RenderWait     time.Duration `mapstructure:"render_wait"`
	MaxPages       int           `mapstructure:"max_pages"`
}

// LogConfig holds the logging configuration
type LogConfig struct {
	Level string `mapstructure:"level"`
}

// DiagnosticsConfig locates the diagnostics journal.
type DiagnosticsConfig struct {
	DBPath string `mapstructure:"db_path"`
}

// LLMConfig holds the LLM configuration used for transcript analysis.
// Analysis is disabled while APIKey is empty.
type LLMConfig struct {
	BaseURL string `mapstructure:"base_url"`
	APIKey  string `mapstructure:"api_key"`
	Model   string `mapstructure:"model"`
}

// AnalysisEnabled reports whether an LLM is configured.
func (c LLMConfig) AnalysisEnabled() bool {
	return strings.TrimSpace(c.APIKey) != ""
}

// Addr is the listen address of the web front end.
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

// Location resolves the configured timezone. "Local" and "" map to the
// process timezone.
func (c ViewConfig) Location() (*time.Location, error) {
	switch strings.TrimSpace(c.Timezone) {
	case "", "Local", "local":
		return time.Local, nil
	}
	return time.LoadLocation(c.Timezone)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("api.base_url", "http://localhost:5000")
	v.SetDefault("api.timeout", time.Duration(0))
	v.SetDefault("server.host", "127.0.0.1")
	v.SetDefault("server.port", "3000")
	v.SetDefault("view.timezone", "Local")
	v.SetDefault("view.time_layout", "1/2/2006, 3:04:05 PM")
	v.SetDefault("view.save_success_ttl", 3*time.Second)
	v.SetDefault("view.render_wait", 2*time.Second)
	v.SetDefault("view.max_pages", 256)
	v.SetDefault("log.level", "info")
	v.SetDefault("diagnostics.db_path", "diagnostics.db")
	v.SetDefault("llm.base_url", "")
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.model", "gpt-4o-mini")
}

// Load loads the configuration from config.yaml (or the file named by
// CONFIG_PATH), overlaid with CONVOVIEW_* environment variables. A .env file
// in the working directory is loaded into the environment first.
func Load() (*Config, error) {
	return LoadFile(os.Getenv("CONFIG_PATH"))
}

// LoadFile is Load with an explicit config file. An empty path searches for
// config.yaml in the working directory and tolerates its absence.
func LoadFile(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("CONVOVIEW")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}
	if err := config.validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

func (c *Config) validate() error {
	c.API.BaseURL = strings.TrimRight(strings.TrimSpace(c.API.BaseURL), "/")
	if c.API.BaseURL == "" {
		return errors.New("api.base_url must not be empty")
	}
	if _, err := c.View.Location(); err != nil {
		return fmt.Errorf("view.timezone: %w", err)
	}
	if c.View.MaxPages <= 0 {
		return fmt.Errorf("view.max_pages must be positive, got %d", c.View.MaxPages)
	}
	if c.View.SaveSuccessTTL <= 0 {
		return fmt.Errorf("view.save_success_ttl must be positive, got %s", c.View.SaveSuccessTTL)
	}
	return nil
}
