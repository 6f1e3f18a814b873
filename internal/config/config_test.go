package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestParse_Defaults(t *testing.T) {
	cfg, err := Parse([]byte(""))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if cfg.Log.Level != "info" {
		t.Errorf("default log level = %q, want info", cfg.Log.Level)
	}
	if cfg.Log.Format != "json" {
		t.Errorf("default log format = %q, want json", cfg.Log.Format)
	}
	if cfg.OpenAI.Model != "gpt-4o" {
		t.Errorf("default model = %q, want gpt-4o", cfg.OpenAI.Model)
	}
	if cfg.Agent.MaxToolRounds != 8 {
		t.Errorf("default max tool rounds = %d, want 8", cfg.Agent.MaxToolRounds)
	}
	if cfg.Agent.PresenceInterval != 5*time.Second {
		t.Errorf("default presence interval = %v, want 5s", cfg.Agent.PresenceInterval)
	}
}

func TestParse_EnvExpansion(t *testing.T) {
	t.Setenv("TEST_OPENAI_KEY", "secret-key-value")
	raw := `
openai:
  api_key: ${TEST_OPENAI_KEY}
  model: gpt-4o-mini
`
	cfg, err := Parse([]byte(raw))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if cfg.OpenAI.APIKey != "secret-key-value" {
		t.Errorf("api_key = %q, want expanded env value", cfg.OpenAI.APIKey)
	}
	if cfg.OpenAI.Model != "gpt-4o-mini" {
		t.Errorf("model = %q, want gpt-4o-mini", cfg.OpenAI.Model)
	}
}

func TestParse_MultipleDocuments(t *testing.T) {
	raw := "log:\n  level: debug\n---\nlog:\n  level: info\n"
	if _, err := Parse([]byte(raw)); err == nil {
		t.Fatal("Parse() expected error for multi-document input")
	}
}

func TestParse_InvalidYAML(t *testing.T) {
	if _, err := Parse([]byte("log: [unclosed")); err == nil {
		t.Fatal("Parse() expected error for invalid yaml")
	}
}

func TestLoad_File(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	raw := "database:\n  path: /tmp/test.db\nagent:\n  max_tool_rounds: 3\n"
	if err := os.WriteFile(path, []byte(raw), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Database.Path != "/tmp/test.db" {
		t.Errorf("database path = %q", cfg.Database.Path)
	}
	if cfg.Agent.MaxToolRounds != 3 {
		t.Errorf("max tool rounds = %d, want 3", cfg.Agent.MaxToolRounds)
	}
}

func TestLoad_MissingPath(t *testing.T) {
	if _, err := Load(""); err == nil {
		t.Fatal("Load(\"\") expected error")
	}
	if _, err := Load("/nonexistent/config.yaml"); err == nil {
		t.Fatal("Load(missing) expected error")
	}
}
