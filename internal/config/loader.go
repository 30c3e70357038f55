package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Load reads the server configuration.
// Search order: customPath -> ./configs/pongarena.yaml -> built-in defaults.
// File values are merged over the defaults, so a partial file is fine.
func Load(customPath string) (Config, error) {
	cfg := Default()

	if customPath != "" {
		data, err := os.ReadFile(customPath)
		if err != nil {
			return cfg, fmt.Errorf("failed to read config %s: %w", customPath, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config %s: %w", customPath, err)
		}
		return cfg, cfg.Validate()
	}

	if data, err := os.ReadFile("configs/pongarena.yaml"); err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse configs/pongarena.yaml: %w", err)
		}
	}

	return cfg, cfg.Validate()
}
