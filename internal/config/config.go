package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level configuration loaded from file/env.
type Config struct {
	// HTTPAddr is the listen address for the HTTP/SSE server.
	HTTPAddr string `json:"httpAddr" yaml:"httpAddr"`
	// AuthSecret is the HMAC secret used to verify bearer tokens. When empty,
	// every token fails verification and subscribe falls back to hints.
	AuthSecret string `json:"authSecret" yaml:"authSecret"`
	// AllowAnonymousSubscribe permits subscriptions that resolve to no tenant
	// at all; such subscribers land in the wildcard bucket and observe every
	// tenant's events.
	AllowAnonymousSubscribe bool `json:"allowAnonymousSubscribe" yaml:"allowAnonymousSubscribe"`
	// SubscriberBuffer is the per-subscriber frame buffer; events are dropped
	// for a subscriber whose buffer is full.
	SubscriberBuffer int `json:"subscriberBuffer" yaml:"subscriberBuffer"`
	// KeepAliveSeconds is the interval between SSE keep-alive comments.
	KeepAliveSeconds int `json:"keepAliveSeconds" yaml:"keepAliveSeconds"`
	// TenantDefaults captures per-tenant baseline limits.
	TenantDefaults TenantDefaults `json:"tenantDefaults" yaml:"tenantDefaults"`
}

// TenantDefaults captures per-tenant baseline limits.
type TenantDefaults struct {
	PayloadMaxBytes int `json:"payloadMaxBytes" yaml:"payloadMaxBytes"`
}

// Default returns built-in defaults.
func Default() Config {
	return Config{
		HTTPAddr:                ":8080",
		AllowAnonymousSubscribe: true,
		SubscriberBuffer:        64,
		KeepAliveSeconds:        25,
		TenantDefaults: TenantDefaults{
			PayloadMaxBytes: 1 << 20,
		},
	}
}

// KeepAliveInterval returns the keep-alive period as a duration.
func (c Config) KeepAliveInterval() time.Duration {
	if c.KeepAliveSeconds <= 0 {
		return 25 * time.Second
	}
	return time.Duration(c.KeepAliveSeconds) * time.Second
}

// Load reads configuration from a JSON or YAML file (by extension). If path
// is empty, returns defaults.
func Load(path string) (Config, error) {
	if path == "" {
		return Default(), nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	cfg := Default()
	switch filepath.Ext(path) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
		}
	default:
		if err := json.Unmarshal(b, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}
	return cfg, nil
}
