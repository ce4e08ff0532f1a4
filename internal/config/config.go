package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/pelletier/go-toml/v2"
)

// Environment heuristic: a development build talks to a local app server,
// anything else gets the hosted default.
const (
	EnvVar          = "LIIMPORT_ENV"
	devAPIBase      = "http://localhost:3000"
	prodAPIBase     = "https://app.resumelift.io"
	defaultFileName = "liimport.toml"
)

// fileConfig is the persisted key-value configuration.
type fileConfig struct {
	APIBase string `toml:"api_base"`
}

// Store persists the API base address to a TOML file. Single writer: all
// access goes through the mutex, and the resolver is the only component that
// writes.
type Store struct {
	path string
	mu   sync.Mutex
}

// NewStore returns a store backed by path, or the default location under the
// user config dir when path is empty.
func NewStore(path string) (*Store, error) {
	if path == "" {
		dir, err := os.UserConfigDir()
		if err != nil {
			return nil, fmt.Errorf("resolve config dir: %w", err)
		}
		path = filepath.Join(dir, "liimport", defaultFileName)
	}
	return &Store{path: path}, nil
}

// Get reads the persisted API base. An absent or unreadable file is not an
// error, just an empty value.
func (s *Store) Get() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			log.Warn("config read failed", "path", s.path, "err", err)
		}
		return ""
	}
	var cfg fileConfig
	if err := toml.Unmarshal(data, &cfg); err != nil {
		log.Warn("config parse failed", "path", s.path, "err", err)
		return ""
	}
	return cfg.APIBase
}

// Set persists a new API base.
func (s *Store) Set(apiBase string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	data, err := toml.Marshal(fileConfig{APIBase: apiBase})
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Resolver derives the normalization-API base address: in-memory cache first,
// then the persisted store, then a build default chosen by the environment
// heuristic. Resolution never fails.
type Resolver struct {
	store *Store
	env   func(string) string

	mu     sync.Mutex
	cached string
}

// NewResolver builds a resolver over a store. env defaults to os.Getenv.
func NewResolver(store *Store, env func(string) string) *Resolver {
	if env == nil {
		env = os.Getenv
	}
	return &Resolver{store: store, env: env}
}

// Resolve returns the API base address.
func (r *Resolver) Resolve() string {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.cached != "" {
		return r.cached
	}
	if v := r.store.Get(); v != "" {
		r.cached = v
		return v
	}
	if r.env(EnvVar) == "development" {
		r.cached = devAPIBase
	} else {
		r.cached = prodAPIBase
	}
	return r.cached
}

// Update persists a new API base and refreshes the cache.
func (r *Resolver) Update(apiBase string) error {
	if err := r.store.Set(apiBase); err != nil {
		return err
	}
	r.mu.Lock()
	r.cached = apiBase
	r.mu.Unlock()
	return nil
}
