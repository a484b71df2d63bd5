package browser

import (
	"os"
	"path/filepath"
	"testing"
)

func TestFromEnv(t *testing.T) {
	t.Setenv("BROWSER_CAPS", "vision, pdf")
	t.Setenv("BROWSER_SAVE_SESSION", "true")
	t.Setenv("BROWSER_OUTPUT_DIR", "")

	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv failed: %v", err)
	}
	if want, got := 2, len(cfg.Capabilities); want != got {
		t.Fatalf("capabilities: want %d, got %d (%v)", want, got, cfg.Capabilities)
	}
	if cfg.Capabilities[0] != "vision" || cfg.Capabilities[1] != "pdf" {
		t.Errorf("capabilities not trimmed: %v", cfg.Capabilities)
	}
	if !cfg.SaveSession {
		t.Error("SaveSession should be true")
	}
	if cfg.OutputDir != os.TempDir() {
		t.Errorf("empty output dir should default to temp dir, got %q", cfg.OutputDir)
	}
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(`{"capabilities":["vision"],"saveSession":true}`), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfigFile(path)
	if err != nil {
		t.Fatalf("LoadConfigFile failed: %v", err)
	}
	if len(cfg.Capabilities) != 1 || cfg.Capabilities[0] != "vision" {
		t.Errorf("capabilities: %v", cfg.Capabilities)
	}
	if !cfg.SaveSession {
		t.Error("SaveSession should be true")
	}

	if _, err := LoadConfigFile(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("missing file should fail")
	}

	bad := filepath.Join(t.TempDir(), "bad.json")
	if err := os.WriteFile(bad, []byte("{"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadConfigFile(bad); err == nil {
		t.Error("malformed file should fail")
	}
}

func TestFilterTools(t *testing.T) {
	all := DefaultTools()

	t.Run("default serves core only", func(t *testing.T) {
		got := FilterTools(all, &Config{})
		for _, tool := range got {
			if tool.Capability != CapabilityCore {
				t.Errorf("tool %q with capability %q served without opt-in", tool.Schema.Name, tool.Capability)
			}
		}
		if len(got) == len(all) {
			t.Error("vision tools should be filtered out by default")
		}
	})

	t.Run("opt-in enables vision", func(t *testing.T) {
		got := FilterTools(all, &Config{Capabilities: []string{CapabilityVision}})
		if len(got) != len(all) {
			t.Fatalf("want full catalog (%d), got %d", len(all), len(got))
		}
		// Filtering must preserve catalog order.
		for i, tool := range got {
			if tool.Schema.Name != all[i].Schema.Name {
				t.Fatalf("order changed at %d: want %q, got %q", i, all[i].Schema.Name, tool.Schema.Name)
			}
		}
	})
}
