package observatory

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestConfigDefaults(t *testing.T) {
	cfg := &Config{}
	cfg.defaults()

	if cfg.DBPath != "observatory.db" {
		t.Errorf("db path: got %q", cfg.DBPath)
	}
	if cfg.Engine.MaxConcurrent != 8 {
		t.Errorf("max concurrent: got %d", cfg.Engine.MaxConcurrent)
	}
	if cfg.Engine.RunDeadline != 5*time.Minute {
		t.Errorf("run deadline: got %v", cfg.Engine.RunDeadline)
	}
	if cfg.Engine.ResultsPerQuery != 10 {
		t.Errorf("results per query: got %d", cfg.Engine.ResultsPerQuery)
	}
	if cfg.Fetch.Timeout != 15*time.Second {
		t.Errorf("fetch timeout: got %v", cfg.Fetch.Timeout)
	}
}

func TestLoadConfigFile(t *testing.T) {
	t.Setenv("TEST_OPENAI_KEY", "sk-test")

	raw := `db_path: /tmp/evidence.db
fetch:
  timeout: 5s
  max_retries: 1
engine:
  max_concurrent: 4
  run_deadline: 2m
  skip_validation: true
search:
  provider: openai
  openai:
    api_key: ${TEST_OPENAI_KEY}
    model: gpt-4o-mini
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfigFile(path)
	if err != nil {
		t.Fatalf("LoadConfigFile: %v", err)
	}
	cfg.defaults()

	if cfg.DBPath != "/tmp/evidence.db" {
		t.Errorf("db path: got %q", cfg.DBPath)
	}
	if cfg.Fetch.Timeout != 5*time.Second {
		t.Errorf("fetch timeout: got %v", cfg.Fetch.Timeout)
	}
	if cfg.Engine.MaxConcurrent != 4 || cfg.Engine.RunDeadline != 2*time.Minute {
		t.Errorf("engine: got %+v", cfg.Engine)
	}
	if !cfg.Engine.SkipValidation {
		t.Error("skip_validation not set")
	}
	if cfg.Search.Provider != "openai" || cfg.Search.OpenAI.Model != "gpt-4o-mini" {
		t.Errorf("search: got %+v", cfg.Search)
	}
	// WHY: secrets live in the environment; config files carry ${VAR}
	// placeholders that defaults() expands.
	if cfg.Search.OpenAI.APIKey != "sk-test" {
		t.Errorf("api key: got %q", cfg.Search.OpenAI.APIKey)
	}
	// defaults fill what the file leaves out.
	if cfg.Engine.TaskTimeout != 45*time.Second {
		t.Errorf("task timeout: got %v", cfg.Engine.TaskTimeout)
	}
}
