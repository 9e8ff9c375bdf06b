package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaults(t *testing.T) {
	cfg := Default()
	if cfg.HTTPAddr != ":8080" {
		t.Fatalf("httpAddr: %q", cfg.HTTPAddr)
	}
	if !cfg.AllowAnonymousSubscribe {
		t.Fatalf("anonymous subscribe should default on")
	}
	if cfg.SubscriberBuffer <= 0 || cfg.TenantDefaults.PayloadMaxBytes <= 0 {
		t.Fatalf("bad defaults: %+v", cfg)
	}
}

func TestLoadJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pulse.json")
	body := `{"httpAddr":":9999","allowAnonymousSubscribe":false,"tenantDefaults":{"payloadMaxBytes":1024}}`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.HTTPAddr != ":9999" || cfg.AllowAnonymousSubscribe || cfg.TenantDefaults.PayloadMaxBytes != 1024 {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	// Fields absent from the file keep defaults.
	if cfg.SubscriberBuffer != Default().SubscriberBuffer {
		t.Fatalf("default not preserved: %+v", cfg)
	}
}

func TestLoadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pulse.yaml")
	body := "httpAddr: \":7070\"\nkeepAliveSeconds: 10\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.HTTPAddr != ":7070" || cfg.KeepAliveSeconds != 10 {
		t.Fatalf("unexpected config: %+v", cfg)
	}
}

func TestLoadEmptyPathReturnsDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg != Default() {
		t.Fatalf("expected defaults")
	}
}

func TestFromEnvOverlay(t *testing.T) {
	t.Setenv("PULSE_HTTP_ADDR", ":6060")
	t.Setenv("PULSE_ALLOW_ANONYMOUS_SUBSCRIBE", "false")
	t.Setenv("PULSE_SUB_BUF", "128")
	cfg := Default()
	FromEnv(&cfg)
	if cfg.HTTPAddr != ":6060" || cfg.AllowAnonymousSubscribe || cfg.SubscriberBuffer != 128 {
		t.Fatalf("env overlay not applied: %+v", cfg)
	}
}

func TestDefaultDataDirNonEmpty(t *testing.T) {
	if DefaultDataDir() == "" {
		t.Fatalf("empty data dir")
	}
}
