// Package workspace manages the staging directory a single book build is
// assembled in before it is packed into the archive.
package workspace

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/yuanying/epubgen/internal/logfields"
	"github.com/yuanying/epubgen/internal/retry"
)

// CleanupError reports that the staging directory could not be removed
// within the retry policy.
type CleanupError struct {
	Path string
	Err  error
}

func (e *CleanupError) Error() string {
	return fmt.Sprintf("failed to remove workspace %s: %v", e.Path, e.Err)
}

func (e *CleanupError) Unwrap() error {
	return e.Err
}

// Manager owns one staging directory.
type Manager struct {
	baseDir string
	dir     string
	keep    bool // debug builds keep the staging tree for inspection
	policy  retry.Policy

	removeAll func(string) error
}

// Option configures a Manager.
type Option func(*Manager)

// WithKeep keeps the staging directory on Cleanup.
func WithKeep(keep bool) Option {
	return func(m *Manager) { m.keep = keep }
}

// WithRetryPolicy overrides the cleanup retry policy.
func WithRetryPolicy(p retry.Policy) Option {
	return func(m *Manager) { m.policy = p }
}

// NewManager creates a manager rooted at baseDir (os.TempDir when empty).
func NewManager(baseDir string, opts ...Option) *Manager {
	if baseDir == "" {
		baseDir = os.TempDir()
	}
	m := &Manager{
		baseDir:   baseDir,
		policy:    retry.DefaultPolicy(),
		removeAll: os.RemoveAll,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Create creates a uniquely named staging directory under the base directory.
func (m *Manager) Create() error {
	dir := filepath.Join(m.baseDir, "epubgen-"+uuid.NewString())
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("failed to create workspace directory: %w", err)
	}
	m.dir = dir
	slog.Debug("Created workspace", logfields.Path(dir))
	return nil
}

// Path returns the staging directory, or "" before Create.
func (m *Manager) Path() string {
	return m.dir
}

// CreateSubdir creates a directory inside the workspace and returns its path.
func (m *Manager) CreateSubdir(name string) (string, error) {
	if m.dir == "" {
		return "", fmt.Errorf("workspace not created")
	}
	subdir := filepath.Join(m.dir, filepath.FromSlash(name))
	if err := os.MkdirAll(subdir, 0o750); err != nil {
		return "", fmt.Errorf("failed to create subdirectory %s: %w", name, err)
	}
	return subdir, nil
}

// Cleanup removes the staging directory, retrying transient failures.
// Kept workspaces are left in place and only logged.
func (m *Manager) Cleanup(ctx context.Context) error {
	if m.dir == "" {
		return nil
	}
	if m.keep {
		slog.Info("Keeping workspace", logfields.Path(m.dir))
		return nil
	}

	err := m.policy.Do(ctx, func() error {
		if _, statErr := os.Stat(m.dir); os.IsNotExist(statErr) {
			return nil
		}
		return m.removeAll(m.dir)
	}, func(attempt int, err error) {
		slog.Warn("Workspace removal failed, retrying",
			logfields.Path(m.dir), logfields.Attempt(attempt), logfields.Error(err))
	})
	if err != nil {
		return &CleanupError{Path: m.dir, Err: err}
	}

	slog.Debug("Cleaned up workspace", logfields.Path(m.dir))
	m.dir = ""
	return nil
}
