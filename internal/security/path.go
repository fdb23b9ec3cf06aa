package security

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Path validation failures. The messages stay generic on purpose: they are
// returned to clients and must not echo the rejected path.
var (
	ErrPathOutsideAllowed    = errors.New("access denied: path is outside allowed directories")
	ErrSymlinkOutsideAllowed = errors.New("access denied: symbolic link target is outside allowed directories")
)

// Path validates file paths against a set of allowed directories to prevent
// path traversal (CWE-22). The working directory at construction time is
// always allowed.
type Path struct {
	allowedDirs []string
	workDir     string
}

// NewPath creates a path validator. With an empty allowedDirs only the
// working directory is reachable.
func NewPath(allowedDirs []string) (*Path, error) {
	workDir, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("resolving working directory: %w", err)
	}

	abs := make([]string, 0, len(allowedDirs))
	for _, dir := range allowedDirs {
		absDir, err := filepath.Abs(dir)
		if err != nil {
			return nil, fmt.Errorf("resolving directory %s: %w", dir, err)
		}
		abs = append(abs, absDir)
	}

	return &Path{allowedDirs: abs, workDir: workDir}, nil
}

// Validate cleans path and returns its absolute form, or an error when the
// path, or the symlink target it resolves to, escapes the allowed
// directories. Paths that do not exist yet validate fine as long as they sit
// inside an allowed directory, so new files can be created.
func (p *Path) Validate(path string) (string, error) {
	if strings.ContainsRune(path, 0) {
		return "", fmt.Errorf("invalid path: contains null byte")
	}

	absPath, err := filepath.Abs(filepath.Clean(path))
	if err != nil {
		return "", fmt.Errorf("invalid path: %w", err)
	}

	if !p.isAllowed(absPath) {
		return "", ErrPathOutsideAllowed
	}

	// A symlink inside an allowed directory can point anywhere. Resolve it
	// and check the real target against the same rules.
	realPath, err := filepath.EvalSymlinks(absPath)
	if err != nil {
		if os.IsNotExist(err) {
			return absPath, nil
		}
		return "", fmt.Errorf("resolving symbolic link: %w", err)
	}
	if realPath != absPath && !p.isAllowed(realPath) {
		return "", ErrSymlinkOutsideAllowed
	}

	return realPath, nil
}

// isAllowed reports whether abs sits inside the working directory or one of
// the allowed directories.
func (p *Path) isAllowed(abs string) bool {
	if insideDir(abs, p.workDir) {
		return true
	}
	for _, dir := range p.allowedDirs {
		if insideDir(abs, dir) {
			return true
		}
	}
	return false
}

func insideDir(path, dir string) bool {
	dir = filepath.Clean(dir)
	if path == dir {
		return true
	}
	return strings.HasPrefix(path, dir+string(filepath.Separator))
}

// IsPathSafe is a quick denylist check for obviously dangerous patterns.
// It is a pre-filter for request handlers, not a substitute for Validate.
func IsPathSafe(path string) bool {
	dangerousPatterns := []string{
		"../",
		"..\\",
		"/etc/",
		"/dev/",
		"/proc/",
		"/sys/",
		"c:\\",
		"c:/",
	}

	lowerPath := strings.ToLower(path)
	for _, pattern := range dangerousPatterns {
		if strings.Contains(lowerPath, pattern) {
			return false
		}
	}

	return true
}

// GetHomeDir retrieves the user's home directory.
func GetHomeDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("unable to get user home directory: %w", err)
	}
	return home, nil
}
