// Package artifact persists stage outputs (exports, draw outcomes) so that
// each stage can be re-run independently from the previous stage's files.
package artifact

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrNotFound reports a missing artifact.
var ErrNotFound = errors.New("artifact not found")

// Medium stores named artifacts. Write must be atomic: readers observe either
// the complete previous content or the complete new content.
type Medium interface {
	Write(ctx context.Context, name string, data []byte) error
	Read(ctx context.Context, name string) ([]byte, error)
}

// Dir stores artifacts as files in a local directory.
type Dir struct {
	root string
}

// NewDir returns a Dir rooted at root ("." when empty).
func NewDir(root string) *Dir {
	if strings.TrimSpace(root) == "" {
		root = "."
	}
	return &Dir{root: filepath.Clean(root)}
}

// Path returns the file path of name.
func (d *Dir) Path(name string) string {
	return filepath.Join(d.root, name)
}

// Write stages data in a temp file next to the target, syncs it and renames
// it into place.
func (d *Dir) Write(ctx context.Context, name string, data []byte) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.MkdirAll(d.root, 0o755); err != nil {
		return fmt.Errorf("create artifact dir: %w", err)
	}

	tmp, err := os.CreateTemp(d.root, "."+name+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp artifact: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("sync %s: %w", name, err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", name, err)
	}
	if err = os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("chmod %s: %w", name, err)
	}
	if err = os.Rename(tmp.Name(), d.Path(name)); err != nil {
		return fmt.Errorf("rename %s: %w", name, err)
	}
	return nil
}

func (d *Dir) Read(ctx context.Context, name string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(d.Path(name))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", d.Path(name), ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	return data, nil
}

var _ Medium = (*Dir)(nil)
