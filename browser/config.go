package browser

import (
	"encoding/json"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/joeshaw/envdecode"
)

// CoreCapabilityPrefix is the reserved prefix of capability tags that are
// always served regardless of configuration.
const CoreCapabilityPrefix = "core"

// Config selects which tools a connection serves and whether its transcript
// is persisted.
type Config struct {
	// Capabilities is the set of non-core capability tags to enable.
	Capabilities []string `json:"capabilities"`
	// SaveSession enables the per-session transcript.
	SaveSession bool `json:"saveSession"`
	// OutputDir is where transcripts and other artifacts are written.
	OutputDir string `json:"outputDir"`
}

type envConfig struct {
	Capabilities string `env:"BROWSER_CAPS,default="`
	SaveSession  bool   `env:"BROWSER_SAVE_SESSION,default=false"`
	OutputDir    string `env:"BROWSER_OUTPUT_DIR,default="`
}

// FromEnv builds a Config from the environment. Defaults are carried in the
// struct tags.
func FromEnv() (*Config, error) {
	var ec envConfig
	if err := envdecode.Decode(&ec); err != nil {
		return nil, fmt.Errorf("decode browser config from env: %w", err)
	}
	cfg := &Config{
		SaveSession: ec.SaveSession,
		OutputDir:   ec.OutputDir,
	}
	for _, tag := range strings.Split(ec.Capabilities, ",") {
		if tag = strings.TrimSpace(tag); tag != "" {
			cfg.Capabilities = append(cfg.Capabilities, tag)
		}
	}
	if cfg.OutputDir == "" {
		cfg.OutputDir = os.TempDir()
	}
	return cfg, nil
}

// LoadConfigFile reads a JSON Config from disk.
func LoadConfigFile(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	var cfg Config
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("parse config file %s: %w", path, err)
	}
	if cfg.OutputDir == "" {
		cfg.OutputDir = os.TempDir()
	}
	return &cfg, nil
}

// enabled reports whether a capability tag is served under this
// configuration: core-prefixed tags always are, others only when the
// configuration names them.
func (c *Config) enabled(capability string) bool {
	if strings.HasPrefix(capability, CoreCapabilityPrefix) {
		return true
	}
	return slices.Contains(c.Capabilities, capability)
}

// FilterTools returns the tools the configuration serves, preserving order.
func FilterTools(tools []*Tool, cfg *Config) []*Tool {
	out := make([]*Tool, 0, len(tools))
	for _, t := range tools {
		if cfg.enabled(t.Capability) {
			out = append(out, t)
		}
	}
	return out
}
