// Package state persists per-build receipts under the project root
package state

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/stanza-build/stanza/pkg/logger"
)

// BuildStatus is the terminal outcome of a build
type BuildStatus string

const (
	BuildSucceeded BuildStatus = "succeeded"
	BuildFailed    BuildStatus = "failed"
)

// Receipt records one build invocation
type Receipt struct {
	ID         string        `yaml:"id"`
	Project    string        `yaml:"project"`
	Version    string        `yaml:"version"`
	Status     BuildStatus   `yaml:"status"`
	Archive    string        `yaml:"archive"`
	Universal  bool          `yaml:"universal,omitempty"`
	StartedAt  time.Time     `yaml:"startedAt"`
	FinishedAt time.Time     `yaml:"finishedAt"`
	Duration   time.Duration `yaml:"duration"`
	Error      string        `yaml:"error,omitempty"`
}

// Manager writes and reads build receipts in .stanza/builds
type Manager struct {
	dir    string
	logger logger.Logger
	mu     sync.Mutex
}

// NewManager creates a receipt manager rooted at the project
func NewManager(projectRoot string, log logger.Logger) *Manager {
	dir := filepath.Join(projectRoot, ".stanza", "builds")

	if err := os.MkdirAll(dir, 0755); err != nil {
		log.Error("Failed to create state directory", logger.WithField("error", err))
	}

	return &Manager{
		dir:    dir,
		logger: log,
	}
}

// Record persists a receipt as <id>.yaml
func (m *Manager) Record(r *Receipt) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	data, err := yaml.Marshal(r)
	if err != nil {
		return fmt.Errorf("failed to marshal receipt: %w", err)
	}

	path := filepath.Join(m.dir, r.ID+".yaml")
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write receipt: %w", err)
	}

	m.logger.Debug("Recorded build receipt",
		logger.WithField("id", r.ID),
		logger.WithField("status", r.Status))

	return nil
}

// List returns all recorded receipts, most recent first
func (m *Manager) List() ([]Receipt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entries, err := os.ReadDir(m.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read state directory: %w", err)
	}

	var receipts []Receipt
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".yaml") {
			continue
		}

		data, err := os.ReadFile(filepath.Join(m.dir, entry.Name()))
		if err != nil {
			m.logger.Warn("Skipping unreadable receipt",
				logger.WithField("file", entry.Name()),
				logger.WithField("error", err))
			continue
		}

		var r Receipt
		if err := yaml.Unmarshal(data, &r); err != nil {
			m.logger.Warn("Skipping malformed receipt",
				logger.WithField("file", entry.Name()),
				logger.WithField("error", err))
			continue
		}
		receipts = append(receipts, r)
	}

	sort.Slice(receipts, func(i, j int) bool {
		return receipts[i].StartedAt.After(receipts[j].StartedAt)
	})

	return receipts, nil
}

// Latest returns the most recent receipt, or nil when none exist
func (m *Manager) Latest() (*Receipt, error) {
	receipts, err := m.List()
	if err != nil {
		return nil, err
	}
	if len(receipts) == 0 {
		return nil, nil
	}
	return &receipts[0], nil
}
