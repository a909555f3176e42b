package config

import "gopkg.in/yaml.v3"

// RenderYAML marshals cfg for the GET /config endpoint's format=yaml variant,
// letting operators diff the effective config against the TOML file by eye.
func RenderYAML(cfg *Config) ([]byte, error) {
	return yaml.Marshal(cfg)
}
