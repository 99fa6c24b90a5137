package state

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/kestrelworks/maestro/internal/constants"
	"github.com/kestrelworks/maestro/internal/domain"
	maestroerrors "github.com/kestrelworks/maestro/internal/errors"
	"github.com/kestrelworks/maestro/internal/flock"
)

// LockTimeout is the maximum duration to wait for acquiring the snapshot
// file lock.
const LockTimeout = 5 * time.Second

// Directory and file permission constants.
const (
	dirPerm  = 0o750
	filePerm = 0o600
)

// validWorkspaceRegex matches workspace names safe to use as directory
// names.
var validWorkspaceRegex = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._-]*$`)

// SnapshotStore persists AgentState snapshots per workspace under
// <home>/workspaces/<name>/state.json, with file locking against concurrent
// sessions and atomic write-then-rename against partial writes.
type SnapshotStore struct {
	homeDir string
}

// NewSnapshotStore creates a SnapshotStore rooted at homeDir.
// If homeDir is empty, the default ~/.maestro directory is used.
func NewSnapshotStore(homeDir string) (*SnapshotStore, error) {
	if homeDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get user home directory: %w", err)
		}
		homeDir = filepath.Join(home, constants.MaestroHome)
	}
	return &SnapshotStore{homeDir: homeDir}, nil
}

// Save writes the state snapshot for a workspace atomically.
func (s *SnapshotStore) Save(ctx context.Context, workspace string, st domain.AgentState) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := validateWorkspace(workspace); err != nil {
		return maestroerrors.Wrap(err, "failed to save state")
	}

	dir := s.workspaceDir(workspace)
	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return fmt.Errorf("failed to create workspace directory: %w", err)
	}

	st.SchemaVersion = constants.AgentStateSchemaVersion

	lockFile, err := s.acquireLock(ctx, workspace)
	if err != nil {
		return fmt.Errorf("failed to save state for '%s': %w", workspace, err)
	}
	defer func() { _ = releaseLock(lockFile) }()

	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to save state for '%s': %w", workspace, err)
	}

	if err := atomicWrite(s.statePath(workspace), data); err != nil {
		return fmt.Errorf("failed to save state for '%s': %w", workspace, err)
	}

	return nil
}

// Load reads the state snapshot for a workspace.
// A missing snapshot returns a fresh empty state, not an error; a snapshot
// that cannot be parsed returns ErrSnapshotCorrupted.
func (s *SnapshotStore) Load(ctx context.Context, workspace string) (domain.AgentState, error) {
	var st domain.AgentState

	if err := ctx.Err(); err != nil {
		return st, err
	}
	if err := validateWorkspace(workspace); err != nil {
		return st, maestroerrors.Wrap(err, "failed to load state")
	}

	path := s.statePath(workspace)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		st.SchemaVersion = constants.AgentStateSchemaVersion
		return st, nil
	}

	lockFile, err := s.acquireLock(ctx, workspace)
	if err != nil {
		return st, fmt.Errorf("failed to load state for '%s': %w", workspace, err)
	}
	defer func() { _ = releaseLock(lockFile) }()

	data, err := os.ReadFile(path) //#nosec G304 -- path is validated and constructed from trusted base
	if err != nil {
		if os.IsNotExist(err) {
			st.SchemaVersion = constants.AgentStateSchemaVersion
			return st, nil
		}
		return st, fmt.Errorf("failed to read state for '%s': %w", workspace, err)
	}

	if err := json.Unmarshal(data, &st); err != nil {
		return domain.AgentState{}, fmt.Errorf("failed to parse state for '%s': %w: %s",
			workspace, maestroerrors.ErrSnapshotCorrupted, err)
	}

	return st, nil
}

// Delete removes the persisted snapshot for a workspace.
// Deleting a workspace that has no snapshot is a no-op.
func (s *SnapshotStore) Delete(ctx context.Context, workspace string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := validateWorkspace(workspace); err != nil {
		return maestroerrors.Wrap(err, "failed to delete state")
	}

	if err := os.RemoveAll(s.workspaceDir(workspace)); err != nil {
		return fmt.Errorf("failed to delete state for '%s': %w", workspace, err)
	}
	return nil
}

// Workspaces lists workspaces that have a persisted snapshot.
func (s *SnapshotStore) Workspaces(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(filepath.Join(s.homeDir, constants.WorkspacesDir))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to list workspaces: %w", err)
	}

	var names []string
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		if _, err := os.Stat(s.statePath(entry.Name())); err == nil {
			names = append(names, entry.Name())
		}
	}
	return names, nil
}

func (s *SnapshotStore) workspaceDir(workspace string) string {
	return filepath.Join(s.homeDir, constants.WorkspacesDir, workspace)
}

func (s *SnapshotStore) statePath(workspace string) string {
	return filepath.Join(s.workspaceDir(workspace), constants.StateFileName)
}

func (s *SnapshotStore) lockPath(workspace string) string {
	return s.statePath(workspace) + ".lock"
}

// acquireLock takes an exclusive flock on the workspace snapshot, polling
// until LockTimeout.
func (s *SnapshotStore) acquireLock(ctx context.Context, workspace string) (*os.File, error) {
	if err := os.MkdirAll(s.workspaceDir(workspace), dirPerm); err != nil {
		return nil, fmt.Errorf("failed to create lock directory: %w", err)
	}

	f, err := os.OpenFile(s.lockPath(workspace), os.O_CREATE|os.O_RDWR, filePerm) //#nosec G302,G304 -- lock file needs write access, path is constructed from validated name
	if err != nil {
		return nil, fmt.Errorf("failed to open lock file: %w", err)
	}

	deadline := time.Now().Add(LockTimeout)
	for {
		select {
		case <-ctx.Done():
			_ = f.Close()
			return nil, ctx.Err()
		default:
		}

		if err := flock.Exclusive(f.Fd()); err == nil {
			return f, nil
		}

		if time.Now().After(deadline) {
			_ = f.Close()
			return nil, fmt.Errorf("failed to acquire lock: %w", maestroerrors.ErrLockTimeout)
		}

		time.Sleep(50 * time.Millisecond)
	}
}

// releaseLock releases the flock and closes the file.
func releaseLock(f *os.File) error {
	if f == nil {
		return nil
	}

	if err := flock.Unlock(f.Fd()); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to release lock: %w", err)
	}

	return f.Close()
}

// atomicWrite writes data to a file atomically using write-then-rename.
func atomicWrite(path string, data []byte) error {
	tmpPath := path + ".tmp"
	f, err := os.OpenFile(tmpPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, filePerm) //#nosec G304 -- path is constructed internally
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}

	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to write data: %w", err)
	}

	if err := f.Sync(); err != nil {
		_ = f.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to sync file: %w", err)
	}

	if err := f.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to close file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to rename file: %w", err)
	}

	return nil
}

func validateWorkspace(workspace string) error {
	if workspace == "" {
		return fmt.Errorf("workspace name %w", maestroerrors.ErrEmptyValue)
	}
	if !validWorkspaceRegex.MatchString(workspace) {
		return fmt.Errorf("%w: %q", maestroerrors.ErrInvalidWorkspace, workspace)
	}
	return nil
}
