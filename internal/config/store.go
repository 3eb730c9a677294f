package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

const docExt = ".json"

var (
	// ErrNotFound is returned when a named document does not exist.
	ErrNotFound = errors.New("config not found")
	// ErrInvalidName is returned for names that cannot be used as file names.
	ErrInvalidName = errors.New("invalid config name")
)

// Store keeps named crawl documents as JSON files in one directory.
type Store struct {
	dir string
}

// NewStore returns a store rooted at dir, creating it if needed.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Dir returns the store's directory.
func (s *Store) Dir() string {
	return s.dir
}

// List returns the names of every stored document, sorted.
func (s *Store) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list configs: %w", err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != docExt {
			continue
		}
		names = append(names, strings.TrimSuffix(entry.Name(), docExt))
	}
	sort.Strings(names)
	return names, nil
}

// Load reads the named document.
func (s *Store) Load(name string) (*CrawlConfig, error) {
	path, err := s.path(name)
	if err != nil {
		return nil, err
	}

	cfg, err := LoadConfig(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("config %s: %w", name, err)
	}
	return cfg, nil
}

// Save writes cfg under name, replacing any existing document.
func (s *Store) Save(name string, cfg *CrawlConfig) error {
	path, err := s.path(name)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config %s: %w", name, err)
	}

	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to save config %s: %w", name, err)
	}
	return nil
}

// Delete removes the named document.
func (s *Store) Delete(name string) error {
	path, err := s.path(name)
	if err != nil {
		return err
	}

	err = os.Remove(path)
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if err != nil {
		return fmt.Errorf("failed to delete config %s: %w", name, err)
	}
	return nil
}

// EnsureDefault writes the default document when the store is empty. It
// reports whether a document was created.
func (s *Store) EnsureDefault() (bool, error) {
	names, err := s.List()
	if err != nil {
		return false, err
	}
	if len(names) > 0 {
		return false, nil
	}
	if err := s.Save("default", Default()); err != nil {
		return false, err
	}
	return true, nil
}

// Import reads a JSON or YAML document from path and stores it under name.
// An empty name falls back to the file name.
func (s *Store) Import(path, name string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err = yamlToJSON(data)
		if err != nil {
			return "", fmt.Errorf("failed to parse %s: %w", path, err)
		}
	}

	cfg, err := Parse(data)
	if err != nil {
		return "", fmt.Errorf("%s: %w", path, err)
	}

	if name == "" {
		name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}

	if err := s.Save(name, cfg); err != nil {
		return "", err
	}
	return name, nil
}

func (s *Store) path(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return filepath.Join(s.dir, name+docExt), nil
}

// yamlToJSON re-encodes a YAML document as JSON so a single decoder applies
// defaults and validation for both formats.
func yamlToJSON(data []byte) ([]byte, error) {
	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return json.Marshal(doc)
}
