package config

import (
	"os"
	"path/filepath"
	"testing"
)

const sample = `
http:
  port: "${FLEET_HTTP_PORT:-3000}"
database:
  host: ${FLEET_DB_HOST:-localhost}
  port: "5432"
  user: fleet
  password: ${FLEET_DB_PASSWORD:-fleet}
  database: fleet
auth:
  jwt_secret: ${FLEET_JWT_SECRET:-devsecret}
dispatch:
  require_active_shift: true
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, sample))
	if err != nil {
		t.Fatal(err)
	}

	if cfg.HTTP.Port != "3000" {
		t.Errorf("http port = %q, want 3000", cfg.HTTP.Port)
	}
	if cfg.Database.Host != "localhost" {
		t.Errorf("db host = %q, want localhost", cfg.Database.Host)
	}
	if !cfg.Dispatch.RequireActiveShift {
		t.Error("require_active_shift not parsed")
	}
	if cfg.Auth.TokenTTLHours != 12 {
		t.Errorf("token ttl default = %d, want 12", cfg.Auth.TokenTTLHours)
	}
	if cfg.RabbitMQ.Exchange != "dispatch_topic" {
		t.Errorf("exchange default = %q, want dispatch_topic", cfg.RabbitMQ.Exchange)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("FLEET_DB_HOST", "db.internal")
	t.Setenv("FLEET_HTTP_PORT", "8080")

	cfg, err := Load(writeConfig(t, sample))
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Database.Host != "db.internal" {
		t.Errorf("db host = %q, want db.internal", cfg.Database.Host)
	}
	if cfg.HTTP.Port != "8080" {
		t.Errorf("http port = %q, want 8080", cfg.HTTP.Port)
	}
}

func TestDSN(t *testing.T) {
	c := DatabaseConfig{Host: "localhost", Port: "5432", User: "u", Password: "p", Database: "fleet"}
	want := "postgres://u:p@localhost:5432/fleet?sslmode=disable"
	if got := c.DSN(); got != want {
		t.Errorf("DSN() = %q, want %q", got, want)
	}
}
