// Package exportcfg loads the optional YAML export configuration that
// pins down which tables an export covers.
package exportcfg

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v2"
)

// Config is the file-based export configuration. An empty TargetTables
// list means every table in the schema.
type Config struct {
	// TargetTables limits the export to the listed tables. Names are
	// folded to uppercase to match the catalog.
	TargetTables []string `yaml:"target_tables"`

	// BatchSize overrides the data-export batch size.
	BatchSize int `yaml:"batch_size"`
}

// Load reads a config file. A missing path returns a zero config so the
// file stays optional.
func Load(path string) (Config, error) {
	var cfg Config
	if path == "" {
		return cfg, nil
	}

	buf, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config %s: %w", path, err)
	}

	if err := yaml.UnmarshalStrict(buf, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config %s: %w", path, err)
	}

	for i, t := range cfg.TargetTables {
		cfg.TargetTables[i] = strings.ToUpper(strings.TrimSpace(t))
	}
	return cfg, nil
}

// Resolve merges the config's table list with an explicit one. The
// explicit list wins when both are present.
func (c Config) Resolve(explicit []string) []string {
	if len(explicit) > 0 {
		out := make([]string, len(explicit))
		for i, t := range explicit {
			out[i] = strings.ToUpper(strings.TrimSpace(t))
		}
		return out
	}
	return c.TargetTables
}
