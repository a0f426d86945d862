// Package sandbox provides disposable per-submission workspaces and a
// blocking run primitive with wall-clock deadline enforcement. The
// deadline is enforced here, on the whole process group, so executors
// never have to be trusted to limit themselves.
package sandbox

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// Sandbox owns the directory under which all workspaces are allocated.
// Workspace names are uuids, so concurrent submissions can never collide
// and one submission's teardown cannot race another's files.
type Sandbox struct {
	root string
}

// New creates the workspace root if needed.
func New(root string) (*Sandbox, error) {
	if root == "" {
		root = filepath.Join(os.TempDir(), "grader")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create sandbox root: %w", err)
	}
	return &Sandbox{root: root}, nil
}

// NewWorkspace allocates a fresh, uniquely named directory. Workspaces
// are never reused across submissions.
func (s *Sandbox) NewWorkspace() (*Workspace, error) {
	path := filepath.Join(s.root, uuid.NewString())
	if err := os.Mkdir(path, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create workspace: %w", err)
	}
	return &Workspace{path: path}, nil
}

// Workspace is one submission's isolated filesystem area.
type Workspace struct {
	path string
}

func (w *Workspace) Path() string { return w.path }

// WriteFile places a file inside the workspace.
func (w *Workspace) WriteFile(name string, content []byte) error {
	if err := os.WriteFile(filepath.Join(w.path, name), content, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	return nil
}

// HasFile reports whether the named file exists in the workspace.
func (w *Workspace) HasFile(name string) bool {
	_, err := os.Stat(filepath.Join(w.path, name))
	return err == nil
}

// Close removes the workspace and everything in it. Safe to call on
// every exit path.
func (w *Workspace) Close() error {
	return os.RemoveAll(w.path)
}
