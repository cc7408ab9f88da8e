// FILE: lixenwraith/propcfg/properties.go
package propcfg

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Properties is a flat key/value store backing the process property mechanism.
// Values keep the type produced by their source: strings from arguments,
// numbers and booleans from files.
type Properties struct {
	mu     sync.RWMutex
	values map[string]any
}

// NewProperties creates an empty store
func NewProperties() *Properties {
	return &Properties{values: make(map[string]any)}
}

// Get returns the value for key
func (p *Properties) Get(key string) (any, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	v, ok := p.values[key]
	return v, ok
}

// Set stores a value
func (p *Properties) Set(key string, value any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.values[key] = value
}

// Delete removes a key
func (p *Properties) Delete(key string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.values, key)
}

// Merge copies all entries of other into p; other wins on conflicts
func (p *Properties) Merge(other *Properties) {
	if other == nil || other == p {
		return
	}
	other.mu.RLock()
	entries := make(map[string]any, len(other.values))
	for k, v := range other.values {
		entries[k] = v
	}
	other.mu.RUnlock()

	p.mu.Lock()
	defer p.mu.Unlock()
	for k, v := range entries {
		p.values[k] = v
	}
}

// Keys returns all keys in sorted order
func (p *Properties) Keys() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	keys := make([]string, 0, len(p.values))
	for k := range p.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Len returns the number of entries
func (p *Properties) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.values)
}

// ParseProperties collects "-Dkey=value" tokens. A bare "-Dkey" stores "".
// Other tokens are ignored.
func ParseProperties(args []string) *Properties {
	props := NewProperties()
	for _, arg := range args {
		content, ok := strings.CutPrefix(arg, "-D")
		if !ok || content == "" {
			continue
		}
		key, value, _ := strings.Cut(content, "=")
		if key == "" {
			continue
		}
		props.values[key] = value
	}
	return props
}

// FileOptions controls how a properties file is read
type FileOptions struct {
	// Format forces "toml", "yaml" or "json"; empty or "auto" detects it
	Format string

	// MaxFileSize rejects larger files when positive
	MaxFileSize int64

	// PreventPathTraversal rejects relative paths escaping the working directory
	PreventPathTraversal bool
}

// LoadProperties reads a TOML, YAML or JSON file into a flat store.
// Nested tables become dotted keys.
func LoadProperties(path string) (*Properties, error) {
	return LoadPropertiesWithOptions(path, FileOptions{})
}

// LoadPropertiesWithOptions is LoadProperties with explicit file options
func LoadPropertiesWithOptions(path string, opts FileOptions) (*Properties, error) {
	if opts.PreventPathTraversal {
		cleanPath := filepath.Clean(path)
		if strings.HasPrefix(cleanPath, ".."+string(filepath.Separator)) || cleanPath == ".." {
			return nil, fmt.Errorf("potential path traversal detected in properties path: %s", path)
		}
	}

	fileInfo, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrPropertiesNotFound, path)
		}
		return nil, fmt.Errorf("failed to stat properties file '%s': %w", path, err)
	}
	if opts.MaxFileSize > 0 && fileInfo.Size() > opts.MaxFileSize {
		return nil, fmt.Errorf("properties file '%s' exceeds maximum size %d bytes", path, opts.MaxFileSize)
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open properties file '%s': %w", path, err)
	}
	defer file.Close()

	var reader io.Reader = file
	if opts.MaxFileSize > 0 {
		reader = io.LimitReader(file, opts.MaxFileSize)
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read properties file '%s': %w", path, err)
	}

	format := opts.Format
	if format == "" || format == "auto" {
		format = detectFileFormat(path)
		if format == "" {
			format = detectFormatFromContent(data)
		}
	}

	nested, err := decodeProperties(data, format)
	if err != nil {
		return nil, fmt.Errorf("properties file '%s': %w", path, err)
	}

	return &Properties{values: flattenMap(nested, "")}, nil
}

func decodeProperties(data []byte, format string) (map[string]any, error) {
	nested := make(map[string]any)
	switch format {
	case "toml":
		if err := toml.Unmarshal(data, &nested); err != nil {
			return nil, fmt.Errorf("failed to parse TOML: %w", err)
		}
	case "json":
		decoder := json.NewDecoder(bytes.NewReader(data))
		decoder.UseNumber()
		if err := decoder.Decode(&nested); err != nil {
			return nil, fmt.Errorf("failed to parse JSON: %w", err)
		}
	case "yaml":
		if err := yaml.Unmarshal(data, &nested); err != nil {
			return nil, fmt.Errorf("failed to parse YAML: %w", err)
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
	return nested, nil
}

// detectFileFormat determines format from file extension
func detectFileFormat(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml", ".tml":
		return "toml"
	case ".json":
		return "json"
	case ".yaml", ".yml":
		return "yaml"
	default:
		return ""
	}
}

// detectFormatFromContent attempts to detect format by parsing.
// JSON is tried before YAML since YAML accepts most JSON documents.
func detectFormatFromContent(data []byte) string {
	var parsed map[string]any
	if err := json.Unmarshal(data, &parsed); err == nil {
		return "json"
	}
	parsed = nil
	if err := toml.Unmarshal(data, &parsed); err == nil {
		return "toml"
	}
	parsed = nil
	if err := yaml.Unmarshal(data, &parsed); err == nil {
		return "yaml"
	}
	return ""
}

// flattenMap converts nested maps to a flat map with dot-notation paths
func flattenMap(nested map[string]any, prefix string) map[string]any {
	flat := make(map[string]any)
	for key, value := range nested {
		path := key
		if prefix != "" {
			path = prefix + "." + key
		}
		if sub, isMap := value.(map[string]any); isMap {
			for subPath, subValue := range flattenMap(sub, path) {
				flat[subPath] = subValue
			}
			continue
		}
		flat[path] = value
	}
	return flat
}

// setNestedValue sets a value in a nested map using a dot-notation path,
// replacing any non-map segment on the way
func setNestedValue(nested map[string]any, path string, value any) {
	segments := strings.Split(path, ".")
	current := nested
	for _, segment := range segments[:len(segments)-1] {
		next, isMap := current[segment].(map[string]any)
		if !isMap {
			next = make(map[string]any)
			current[segment] = next
		}
		current = next
	}
	current[segments[len(segments)-1]] = value
}

// atomicWriteFile writes data to a temp file in the target directory and renames it
func atomicWriteFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory '%s': %w", dir, err)
	}

	tempFile, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}
	tempPath := tempFile.Name()
	defer os.Remove(tempPath)

	if _, err := tempFile.Write(data); err != nil {
		tempFile.Close()
		return fmt.Errorf("failed to write temporary file: %w", err)
	}
	if err := tempFile.Sync(); err != nil {
		tempFile.Close()
		return fmt.Errorf("failed to sync temporary file: %w", err)
	}
	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("failed to close temporary file: %w", err)
	}
	if err := os.Chmod(tempPath, 0644); err != nil {
		return fmt.Errorf("failed to set permissions: %w", err)
	}
	if err := os.Rename(tempPath, path); err != nil {
		return fmt.Errorf("failed to rename temporary file: %w", err)
	}
	return nil
}
