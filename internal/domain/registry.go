package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
)

// Registry resolves domain configurations from built-in defaults overlaid with optional <id>.json files.
type Registry struct {
	dir       string
	validator *validator.Validate
}

// NewRegistry constructs a registry reading overrides from dir. An empty dir disables overrides.
func NewRegistry(dir string, validate *validator.Validate) *Registry {
	if validate == nil {
		validate = validator.New(validator.WithRequiredStructEnabled())
	}
	return &Registry{dir: dir, validator: validate}
}

// Get resolves and validates the configuration for the raw domain id.
func (r *Registry) Get(raw string) (Config, error) {
	id, err := ParseID(raw)
	if err != nil {
		return Config{}, err
	}

	cfg, err := Defaults(id)
	if err != nil {
		return Config{}, err
	}

	if r.dir != "" {
		path := filepath.Join(r.dir, string(id)+".json")
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := json.Unmarshal(data, &cfg); err != nil {
				return Config{}, fmt.Errorf("parse domain file %s: %w", path, err)
			}
		case errors.Is(err, os.ErrNotExist):
		default:
			return Config{}, fmt.Errorf("read domain file %s: %w", path, err)
		}
	}

	if cfg.ID != id {
		return Config{}, fmt.Errorf("domain file for %q declares id %q", id, cfg.ID)
	}

	if err := r.validator.Struct(cfg); err != nil {
		return Config{}, fmt.Errorf("invalid domain %q: %w", id, err)
	}

	return cfg, nil
}

// List resolves every known domain.
func (r *Registry) List() ([]Config, error) {
	configs := make([]Config, 0, len(IDs))
	for _, id := range IDs {
		cfg, err := r.Get(string(id))
		if err != nil {
			return nil, err
		}
		configs = append(configs, cfg)
	}
	return configs, nil
}
