package session

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"github.com/hakulabs/haku/internal/security"
)

const (
	stateDirName  = ".haku"
	stateFileName = "current_session"
)

// stateFilePath returns the path to the current session state file under
// baseDir, creating the state directory if needed. An empty baseDir selects
// the user's home directory, which is the production default; tests pass a
// temp directory.
func stateFilePath(baseDir string) (string, error) {
	if baseDir == "" {
		home, err := security.GetHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolving home directory: %w", err)
		}
		baseDir = home
	}

	dir := filepath.Join(baseDir, stateDirName)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("creating state directory: %w", err)
	}
	return filepath.Join(dir, stateFileName), nil
}

// lockStateFile takes an exclusive lock guarding the state file. Multiple
// haku processes (terminal chat plus an MCP server, say) share the state
// file, so mutations go through the lock. The caller must call the
// returned unlock function.
func lockStateFile(path string) (func(), error) {
	lock := flock.New(path + ".lock")
	if err := lock.Lock(); err != nil {
		return nil, fmt.Errorf("locking state file: %w", err)
	}
	return func() {
		_ = lock.Unlock()
	}, nil
}

// SaveCurrentSessionID records sessionID as the active session. The write
// is atomic: content goes to a temp file in the same directory which is
// then renamed over the state file, so readers never observe a torn write.
func SaveCurrentSessionID(baseDir string, sessionID uuid.UUID) error {
	path, err := stateFilePath(baseDir)
	if err != nil {
		return err
	}

	unlock, err := lockStateFile(path)
	if err != nil {
		return err
	}
	defer unlock()

	tmp, err := os.CreateTemp(filepath.Dir(path), stateFileName+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp state file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.WriteString(sessionID.String() + "\n"); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("writing state file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("closing state file: %w", err)
	}
	if err := os.Chmod(tmpPath, 0o600); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("setting state file mode: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("replacing state file: %w", err)
	}
	return nil
}

// LoadCurrentSessionID reads the active session ID. A missing or empty
// state file means no current session and returns (nil, nil); only a
// present but unparsable file is an error.
func LoadCurrentSessionID(baseDir string) (*uuid.UUID, error) {
	path, err := stateFilePath(baseDir)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading state file: %w", err)
	}

	raw := strings.TrimSpace(string(data))
	if raw == "" {
		return nil, nil
	}

	sessionID, err := uuid.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid session ID in state file: %w", err)
	}
	return &sessionID, nil
}

// ClearCurrentSessionID forgets the active session. Clearing when none is
// recorded is not an error.
func ClearCurrentSessionID(baseDir string) error {
	path, err := stateFilePath(baseDir)
	if err != nil {
		return err
	}

	unlock, err := lockStateFile(path)
	if err != nil {
		return err
	}
	defer unlock()

	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing state file: %w", err)
	}
	return nil
}
