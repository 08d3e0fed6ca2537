// Package workspace owns the upload directory layout and temp file cleanup.
package workspace

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"printum/pkg/utils/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// OutputExt is the extension of every produced artifact.
const OutputExt = ".gcode"

// Workspace is the shared upload directory. Every job names its files with a generated
// token, so concurrent jobs never share a path.
type Workspace struct {
	root   string
	remove func(string) error
}

// New creates a workspace rooted at dir. Call EnsureDir before use.
func New(dir string) *Workspace {
	return &Workspace{root: dir, remove: os.Remove}
}

// Root returns the upload directory.
func (w *Workspace) Root() string {
	return w.root
}

// EnsureDir creates the upload directory and its parents if absent.
func (w *Workspace) EnsureDir() error {
	if err := os.MkdirAll(w.root, 0o755); err != nil {
		return fmt.Errorf("create upload dir %s: %w", w.root, err)
	}
	return nil
}

// NewInputPath returns a fresh storage path for an uploaded model keeping its extension.
func (w *Workspace) NewInputPath(ext string) string {
	name := uuid.NewString()
	if ext != "" {
		name += "." + ext
	}
	return filepath.Join(w.root, name)
}

// OutputPath places the artifact for identity next to the model file.
func OutputPath(modelPath, identity string) string {
	return filepath.Join(filepath.Dir(modelPath), identity+OutputExt)
}

// Remove deletes path best-effort. A missing file is fine; other failures are logged as
// cleanup warnings and never returned.
func (w *Workspace) Remove(ctx context.Context, path string) {
	SafeRemove(ctx, w.remove, path)
}

// SafeRemove is Remove for callers without a Workspace.
func SafeRemove(ctx context.Context, remove func(string) error, path string) {
	if path == "" {
		return
	}
	if remove == nil {
		remove = os.Remove
	}
	if err := remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		logger.Warn(ctx, "failed to delete temp file", zap.String("path", path), zap.Error(err))
	}
}

// NewForTests builds a workspace with an injectable remover.
func NewForTests(dir string, remove func(string) error) *Workspace {
	return &Workspace{root: dir, remove: remove}
}
