package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_FileAndDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tfcanon.yaml")
	yaml := `
storage:
  path: /var/lib/tfcanon/tfcanon.db
sources:
  terraform:
    - path: ./infra/prod
    - path: ./infra/staging
server:
  api_token: secret
scan:
  schedule: 4h
alerts:
  webhook:
    enabled: true
    url: https://hooks.example.com/tfcanon
    headers:
      X-API-Key: key123
`
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Storage.Path != "/var/lib/tfcanon/tfcanon.db" {
		t.Errorf("storage.path = %q", cfg.Storage.Path)
	}
	if len(cfg.Sources.Terraform) != 2 || cfg.Sources.Terraform[0].Path != "./infra/prod" {
		t.Errorf("sources = %+v", cfg.Sources.Terraform)
	}
	if cfg.Server.APIToken != "secret" {
		t.Errorf("api_token = %q", cfg.Server.APIToken)
	}
	if cfg.Scan.Schedule != "4h" {
		t.Errorf("schedule = %q", cfg.Scan.Schedule)
	}
	if !cfg.Alerts.Webhook.Enabled || cfg.Alerts.Webhook.URL != "https://hooks.example.com/tfcanon" {
		t.Errorf("webhook = %+v", cfg.Alerts.Webhook)
	}
	if cfg.Alerts.Webhook.Headers["X-API-Key"] != "key123" {
		t.Errorf("headers = %v", cfg.Alerts.Webhook.Headers)
	}

	// Keys absent from the file fall back to defaults.
	if cfg.Storage.Memgraph.URI != "bolt://localhost:7687" {
		t.Errorf("memgraph.uri = %q", cfg.Storage.Memgraph.URI)
	}
	if cfg.Storage.Memgraph.Enabled {
		t.Error("memgraph should be disabled by default")
	}
	if cfg.Server.Listen != ":8080" {
		t.Errorf("server.listen = %q, want :8080", cfg.Server.Listen)
	}
	if cfg.Server.RateLimit != 10 {
		t.Errorf("rate_limit = %v, want 10", cfg.Server.RateLimit)
	}
	if !cfg.Scan.OnStartup {
		t.Error("scan.on_startup should be true by default")
	}
	if !cfg.Alerts.Stdout.Enabled {
		t.Error("alerts.stdout should be enabled by default")
	}
	if cfg.Transform.IncludeIgnored {
		t.Error("transform.include_ignored should be false by default")
	}
}

func TestLoad_MalformedFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tfcanon.yaml")
	if err := os.WriteFile(path, []byte("storage: [broken"), 0o600); err != nil {
		t.Fatal(err)
	}

	if _, err := Load(path); err == nil {
		t.Error("expected error for malformed config")
	}
}
