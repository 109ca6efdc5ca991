// Package config loads and validates sentinel configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Site      SiteConfig      `mapstructure:"site"`
	HTTP      HTTPConfig      `mapstructure:"http"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Notify    NotifyConfig    `mapstructure:"notify"`
	Events    EventsConfig    `mapstructure:"events"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// AuthConfig defines API authentication toggles for the trigger surface.
type AuthConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	APIKey  string `mapstructure:"api_key"`
}

// SiteConfig locates the monitored site and carries the login credentials.
// Username and password are injected by the host environment
// (SENTINEL_SITE_USERNAME / SENTINEL_SITE_PASSWORD); they are never read
// from a config file in deployment.
type SiteConfig struct {
	PageURL     string `mapstructure:"page_url"`
	LoginURL    string `mapstructure:"login_url"`
	BaseURL     string `mapstructure:"base_url"`
	Username    string `mapstructure:"username"`
	Password    string `mapstructure:"password"`
	UserAgent   string `mapstructure:"user_agent"`
	LoginMarker string `mapstructure:"login_marker"`
}

// HTTPConfig bounds outbound network operations.
type HTTPConfig struct {
	TimeoutSeconds int `mapstructure:"timeout_seconds"`
}

// StorageConfig locates the durable state record.
type StorageConfig struct {
	Provider string `mapstructure:"provider"`
	Bucket   string `mapstructure:"bucket"`
	Object   string `mapstructure:"object"`
}

// NotifyConfig configures the outbound webhook. WebhookURL arrives via
// SENTINEL_NOTIFY_WEBHOOK_URL.
type NotifyConfig struct {
	WebhookURL string `mapstructure:"webhook_url"`
	MaxLinks   int    `mapstructure:"max_links"`
}

// EventsConfig controls optional cycle-event publishing.
type EventsConfig struct {
	Provider  string `mapstructure:"provider"`
	ProjectID string `mapstructure:"project_id"`
	TopicID   string `mapstructure:"topic_id"`
}

// TelemetryConfig controls trace export. An empty project ID keeps tracing
// local while still propagating context onto published events.
type TelemetryConfig struct {
	ProjectID string `mapstructure:"project_id"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("SENTINEL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("site.page_url", "https://awbw.amarriner.com/yourgames.php?yourTurn=1")
	v.SetDefault("site.login_url", "https://awbw.amarriner.com/login.php")
	v.SetDefault("site.base_url", "https://awbw.amarriner.com/")
	v.SetDefault("site.user_agent", "awbw-turn-sentinel/1.0")
	v.SetDefault("site.login_marker", "You must be logged in")
	// Secrets and deploy-specific values arrive via environment variables
	// only; registering empty defaults makes the keys visible to Unmarshal.
	v.SetDefault("site.username", "")
	v.SetDefault("site.password", "")
	v.SetDefault("notify.webhook_url", "")
	v.SetDefault("storage.bucket", "")
	v.SetDefault("auth.api_key", "")
	v.SetDefault("events.project_id", "")
	v.SetDefault("events.topic_id", "")
	v.SetDefault("telemetry.project_id", "")
	v.SetDefault("http.timeout_seconds", 15)
	v.SetDefault("storage.provider", "gcs")
	v.SetDefault("storage.object", "state.json")
	v.SetDefault("notify.max_links", 5)
	v.SetDefault("events.provider", "noop")
	v.SetDefault("logging.development", false)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.HTTP.TimeoutSeconds <= 0 {
		return fmt.Errorf("http.timeout_seconds must be > 0")
	}
	if c.Site.PageURL == "" || c.Site.LoginURL == "" {
		return fmt.Errorf("site.page_url and site.login_url must be set")
	}
	if c.Site.Username == "" || c.Site.Password == "" {
		return fmt.Errorf("site.username and site.password must be set")
	}
	if c.Notify.WebhookURL == "" {
		return fmt.Errorf("notify.webhook_url must be set")
	}
	switch c.Storage.Provider {
	case "gcs":
		if c.Storage.Bucket == "" {
			return fmt.Errorf("storage.bucket must be set when storage.provider is gcs")
		}
	case "memory":
	default:
		return fmt.Errorf("unknown storage provider: %s", c.Storage.Provider)
	}
	switch c.Events.Provider {
	case "pubsub":
		if c.Events.ProjectID == "" || c.Events.TopicID == "" {
			return fmt.Errorf("events.project_id and events.topic_id must be set when events.provider is pubsub")
		}
	case "noop", "memory":
	default:
		return fmt.Errorf("unknown events provider: %s", c.Events.Provider)
	}
	if c.Auth.Enabled && c.Auth.APIKey == "" {
		return fmt.Errorf("auth.api_key must be set when auth is enabled")
	}
	return nil
}

// Timeout converts the HTTP timeout config into a duration.
func (c Config) Timeout() time.Duration {
	return time.Duration(c.HTTP.TimeoutSeconds) * time.Second
}
