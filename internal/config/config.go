// Package config loads the runtime configuration from YAML.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/zeusync/governor/internal/governor"
)

// EnvPath names the environment variable consulted when no path is given.
const EnvPath = "GOVERNOR_CONFIG"

// Load decodes YAML over governor.DefaultConfig, so omitted keys keep their
// defaults, and validates the result.
func Load(r io.Reader) (governor.Config, error) {
	cfg := governor.DefaultConfig()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return governor.Config{}, fmt.Errorf("config: decode: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return governor.Config{}, err
	}
	return cfg, nil
}

// LoadFile reads path, falling back to $GOVERNOR_CONFIG and then to the
// defaults when both are empty.
func LoadFile(path string) (governor.Config, error) {
	if path == "" {
		path = os.Getenv(EnvPath)
	}
	if path == "" {
		return governor.DefaultConfig(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return governor.Config{}, fmt.Errorf("config: %w", err)
	}
	return Load(bytes.NewReader(data))
}

// Marshal renders cfg as YAML.
func Marshal(cfg governor.Config) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
