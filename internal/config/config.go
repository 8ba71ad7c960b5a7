// Package config loads optional defaults for the command line from a YAML
// file, a .env file and the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultPath is the config file looked up in the working directory.
const DefaultPath = ".elm-module-graph.yaml"

// Config holds settings that flags may override.
type Config struct {
	Output     string `yaml:"output"`
	Format     string `yaml:"format"`
	Parser     string `yaml:"parser"`
	ElmHome    string `yaml:"elm_home"`
	ElmVersion string `yaml:"elm_version"`
	LogLevel   string `yaml:"log_level"`
	LogFormat  string `yaml:"log_format"`
}

// Load reads .env (if present) and the YAML file at path (if present), then
// applies environment overrides. A missing file is not an error.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, err
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("%s: %w", path, err)
			}
		}
	}

	if home := os.Getenv("ELM_HOME"); home != "" {
		cfg.ElmHome = home
	}
	if level := os.Getenv("ELM_MODULE_GRAPH_LOG_LEVEL"); level != "" {
		cfg.LogLevel = level
	}

	return &cfg, nil
}
