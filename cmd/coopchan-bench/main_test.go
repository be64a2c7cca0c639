package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "bench.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := loadConfig("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(cfg.Scenarios) == 0 {
		t.Fatal("no built-in scenarios")
	}
}

func TestLoadConfig_SchemaAccepted(t *testing.T) {
	path := writeConfig(t, `
schema: "1.2.0"
scenarios:
  - name: tiny
    capacity: 1
    producers: 1
    messages: 10
`)
	cfg, err := loadConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(cfg.Scenarios) != 1 || cfg.Scenarios[0].Name != "tiny" {
		t.Fatalf("scenarios: %+v", cfg.Scenarios)
	}
}

func TestLoadConfig_SchemaRejected(t *testing.T) {
	path := writeConfig(t, `
schema: "2.0.0"
scenarios: []
`)
	if _, err := loadConfig(path); err == nil {
		t.Fatal("incompatible schema accepted")
	}
}

func TestRun_SmallScenario(t *testing.T) {
	sc := scenario{Name: "t", Capacity: 4, Producers: 2, Messages: 50, Unsafe: true}
	if _, err := run(context.Background(), sc); err != nil {
		t.Fatalf("run: %v", err)
	}
}

func TestRun_SelectConsumer(t *testing.T) {
	sc := scenario{Name: "t", Capacity: 4, Producers: 1, Messages: 50, Unsafe: true, UseSelect: true}
	if _, err := run(context.Background(), sc); err != nil {
		t.Fatalf("run: %v", err)
	}
}
