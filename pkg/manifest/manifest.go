// Package manifest loads the declarative stanza manifest
package manifest

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/stanza-build/stanza/pkg/types"
)

const (
	// FileName is the primary manifest file
	FileName = "stanza.toml"
	// LockFileName is the locked manifest written by the installer
	LockFileName = "stanza.lock"
)

// manifestFile mirrors the on-disk TOML structure
type manifestFile struct {
	Package struct {
		Name        string   `toml:"name"`
		Version     string   `toml:"version"`
		Description string   `toml:"description"`
		Authors     []string `toml:"authors"`
		License     string   `toml:"license"`
		Homepage    string   `toml:"homepage"`
		Repository  string   `toml:"repository"`
		Keywords    []string `toml:"keywords"`
		Python      []string `toml:"python"`
		Readme      string   `toml:"readme"`
		Include     []string `toml:"include"`
		Exclude     []string `toml:"exclude"`
		Ignore      []string `toml:"ignore"`
	} `toml:"package"`
	Dependencies    map[string]string      `toml:"dependencies"`
	DevDependencies map[string]string      `toml:"dev-dependencies"`
	Scripts         map[string]string      `toml:"scripts"`
	Extensions      map[string]interface{} `toml:"extensions"`
}

// Load reads and validates the manifest at path
func Load(path string) (*types.Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	var file manifestFile
	if err := toml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}

	if file.Package.Name == "" {
		return nil, fmt.Errorf("manifest %s is missing package.name", path)
	}
	if file.Package.Version == "" {
		return nil, fmt.Errorf("manifest %s is missing package.version", path)
	}

	baseDir := filepath.Dir(path)

	m := &types.Manifest{
		BaseDir:     baseDir,
		Name:        file.Package.Name,
		Version:     file.Package.Version,
		Description: file.Package.Description,
		Authors:     file.Package.Authors,
		License:     file.Package.License,
		Homepage:    file.Package.Homepage,
		Repository:  file.Package.Repository,
		Keywords:    file.Package.Keywords,
		Python:      file.Package.Python,
		Include:     file.Package.Include,
		Exclude:     file.Package.Exclude,
		Ignore:      file.Package.Ignore,
	}

	// TOML tables decode into maps; declaration order is recovered
	// from the raw document.
	for _, name := range tableKeyOrder(data, "scripts", keysOf(file.Scripts)) {
		m.Scripts = append(m.Scripts, types.Script{Name: name, Target: file.Scripts[name]})
	}
	for _, name := range tableKeyOrder(data, "dependencies", keysOf(file.Dependencies)) {
		m.Dependencies = append(m.Dependencies, types.Dependency{
			Name:       name,
			Constraint: file.Dependencies[name],
		})
	}
	for _, name := range tableKeyOrder(data, "dev-dependencies", keysOf(file.DevDependencies)) {
		m.DevDependencies = append(m.DevDependencies, types.Dependency{
			Name:       name,
			Constraint: file.DevDependencies[name],
		})
	}

	extensions, err := decodeExtensions(data, file.Extensions)
	if err != nil {
		return nil, err
	}
	m.Extensions = extensions

	if err := loadReadme(m, baseDir, file.Package.Readme); err != nil {
		return nil, err
	}

	return m, nil
}

// LoadDir loads the manifest for a project root, preferring the lock
// file when one exists. A missing lock file silently falls back to the
// primary manifest. The second return reports whether the lock was used.
func LoadDir(baseDir string) (*types.Manifest, bool, error) {
	lockPath := filepath.Join(baseDir, LockFileName)
	if _, err := os.Stat(lockPath); err == nil {
		m, err := Load(lockPath)
		if err != nil {
			return nil, false, err
		}
		return m, true, nil
	}

	m, err := Load(filepath.Join(baseDir, FileName))
	return m, false, err
}

// decodeExtensions coerces extension values: a string is a single
// source, an array is a source list
func decodeExtensions(data []byte, raw map[string]interface{}) ([]types.Extension, error) {
	var extensions []types.Extension
	for _, module := range tableKeyOrder(data, "extensions", keysOfAny(raw)) {
		ext := types.Extension{Module: module}
		switch value := raw[module].(type) {
		case string:
			ext.Source = value
		case []interface{}:
			for _, item := range value {
				source, ok := item.(string)
				if !ok {
					return nil, fmt.Errorf("extension %s: source entries must be strings", module)
				}
				ext.Sources = append(ext.Sources, source)
			}
		default:
			return nil, fmt.Errorf("extension %s: source must be a string or array of strings", module)
		}
		extensions = append(extensions, ext)
	}
	return extensions, nil
}

// loadReadme resolves the readme content and format. An explicit
// readme field wins; otherwise README.md then README.rst are probed.
func loadReadme(m *types.Manifest, baseDir, declared string) error {
	candidates := []string{declared}
	if declared == "" {
		candidates = []string{"README.md", "README.rst"}
	}

	for _, name := range candidates {
		if name == "" {
			continue
		}
		path := filepath.Join(baseDir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) && declared == "" {
				continue
			}
			if declared != "" {
				return fmt.Errorf("failed to read readme %s: %w", name, err)
			}
			continue
		}
		m.Readme = string(data)
		if strings.HasSuffix(strings.ToLower(name), ".md") {
			m.ReadmeFormat = types.ReadmeFormatMarkdown
		} else {
			m.ReadmeFormat = types.ReadmeFormatRst
		}
		return nil
	}

	return nil
}

// tableKeyOrder orders map keys by their position in the raw TOML
// document's table section. Keys that cannot be located sort last,
// alphabetically, keeping the result deterministic.
func tableKeyOrder(data []byte, table string, keys []string) []string {
	section := tableSection(string(data), table)

	positions := make(map[string]int, len(keys))
	for _, key := range keys {
		positions[key] = keyPosition(section, key)
	}

	sorted := append([]string{}, keys...)
	sort.SliceStable(sorted, func(i, j int) bool {
		pi, pj := positions[sorted[i]], positions[sorted[j]]
		if pi < 0 && pj < 0 {
			return sorted[i] < sorted[j]
		}
		if pi < 0 {
			return false
		}
		if pj < 0 {
			return true
		}
		return pi < pj
	})
	return sorted
}

// tableSection extracts the lines between a [table] header and the
// next table header
func tableSection(doc, table string) string {
	lines := strings.Split(doc, "\n")
	var out []string
	inside := false
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "[") {
			inside = trimmed == "["+table+"]"
			continue
		}
		if inside {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}

// keyPosition finds the line offset of a key assignment, or -1
func keyPosition(section, key string) int {
	for offset, line := range strings.Split(section, "\n") {
		trimmed := strings.TrimSpace(line)
		for _, form := range []string{key, `"` + key + `"`, `'` + key + `'`} {
			if strings.HasPrefix(trimmed, form) {
				rest := strings.TrimSpace(trimmed[len(form):])
				if strings.HasPrefix(rest, "=") {
					return offset
				}
			}
		}
	}
	return -1
}

func keysOf(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	return keys
}

func keysOfAny(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	return keys
}
