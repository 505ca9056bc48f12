package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

const minimalJSON = `{
	"discord": {"token": "tok"},
	"logging": {"level": "info", "console": true},
	"storage": {"driver": "file", "path": "./data"},
	"poller": {"interval": "30s"}
}`

func TestParseJSON(t *testing.T) {
	t.Parallel()
	m := NewManager(writeConfig(t, "config.json", minimalJSON))
	cfg, err := m.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Discord.Token != "tok" || cfg.Storage.Path != "./data" {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if got := m.Get(); got != cfg {
		t.Fatal("Get did not return committed config")
	}
}

func TestParseYAML(t *testing.T) {
	t.Parallel()
	m := NewManager(writeConfig(t, "config.yaml", `
discord:
  token: tok
logging:
  level: debug
  console: true
storage:
  driver: sqlite
  path: ./streak.db
  busy_timeout: 500ms
poller:
  interval: 1m
`))
	cfg, err := m.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Storage.Driver != "sqlite" || cfg.Poller.Interval != "1m" {
		t.Fatalf("unexpected config: %+v", cfg)
	}
}

func TestParseRejectsUnknownFields(t *testing.T) {
	t.Parallel()
	m := NewManager(writeConfig(t, "config.json", `{
		"discord": {"token": "tok"},
		"storage": {"path": "./data"},
		"surprise": true
	}`))
	if _, err := m.Parse(); err == nil {
		t.Fatal("unknown field accepted")
	}
}

func TestParseRejectsInvalid(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		body string
	}{
		{"missing token", `{"discord": {}, "storage": {"path": "x"}}`},
		{"missing storage path", `{"discord": {"token": "t"}, "storage": {}}`},
		{"bad driver", `{"discord": {"token": "t"}, "storage": {"path": "x", "driver": "mongo"}}`},
		{"bad interval", `{"discord": {"token": "t"}, "storage": {"path": "x"}, "poller": {"interval": "soon"}}`},
		{"trailing data", `{"discord": {"token": "t"}, "storage": {"path": "x"}}{}`},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			m := NewManager(writeConfig(t, "config.json", tt.body))
			if _, err := m.Parse(); err == nil {
				t.Fatal("invalid config accepted")
			}
		})
	}
}

func TestParseDurationField(t *testing.T) {
	t.Parallel()
	if d, err := ParseDurationField("x", "90s"); err != nil || d.Seconds() != 90 {
		t.Fatalf("got %v, %v", d, err)
	}
	if d, err := ParseDurationField("x", ""); err != nil || d != 0 {
		t.Fatalf("empty: got %v, %v", d, err)
	}
	if _, err := ParseDurationField("x", "-5s"); err == nil {
		t.Fatal("negative duration accepted")
	}
	if d, err := ParseDurationOrDefault("x", "", 42); err != nil || d != 42 {
		t.Fatalf("default: got %v, %v", d, err)
	}
}
