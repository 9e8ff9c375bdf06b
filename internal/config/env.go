package config

import (
	"os"
	"strconv"
)

// FromEnv overlays PULSE_* environment variables onto cfg.
func FromEnv(cfg *Config) {
	if v := os.Getenv("PULSE_HTTP_ADDR"); v != "" {
		cfg.HTTPAddr = v
	}
	if v := os.Getenv("PULSE_AUTH_SECRET"); v != "" {
		cfg.AuthSecret = v
	}
	if v := os.Getenv("PULSE_ALLOW_ANONYMOUS_SUBSCRIBE"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.AllowAnonymousSubscribe = b
		}
	}
	if v := os.Getenv("PULSE_SUB_BUF"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.SubscriberBuffer = n
		}
	}
	if v := os.Getenv("PULSE_KEEPALIVE_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.KeepAliveSeconds = n
		}
	}
	if v := os.Getenv("PULSE_TENANT_PAYLOAD_MAX_BYTES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.TenantDefaults.PayloadMaxBytes = n
		}
	}
}
