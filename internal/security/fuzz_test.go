package security

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// FuzzPathValidation tests path validation against malicious inputs.
// Run with: go test -fuzz=FuzzPathValidation -fuzztime=30s ./internal/security/
func FuzzPathValidation(f *testing.F) {
	// Seed corpus with known attack vectors
	seedCorpus := []string{
		// Basic traversal
		"../../../etc/passwd",
		"..\\..\\..\\etc\\passwd",
		"....//....//....//etc/passwd",
		"..%2f..%2f..%2fetc%2fpasswd",
		"..%252f..%252f..%252fetc%252fpasswd",

		// Null byte injection
		"/tmp/safe.txt\x00/etc/passwd",
		"file.txt\x00.exe",

		// Unicode attacks
		"..%c0%af..%c0%af..%c0%afetc/passwd",
		"..%c1%9c..%c1%9c..%c1%9cetc/passwd",
		"..／..／..／etc/passwd", // fullwidth solidus

		// Path normalization bypass
		"/tmp/./test/../../../etc/passwd",
		"/tmp/test/....//....//etc/passwd",
		"/.../etc/passwd",
		"/..../etc/passwd",

		// Device files
		"/dev/null",
		"/dev/zero",
		"/dev/urandom",

		// Sensitive paths
		"/etc/shadow",
		"/etc/passwd",
		"/proc/self/environ",
		"/sys/kernel/debug",

		// Windows paths
		"C:\\Windows\\System32\\config\\SAM",
		"\\\\server\\share\\file",
		"file:///etc/passwd",

		// Edge cases
		"",
		"/",
		".",
		"..",
		"~",
		"~root",
		"~/../etc/passwd",

		// Long paths
		strings.Repeat("a", 1000),
		strings.Repeat("../", 100),
	}

	for _, seed := range seedCorpus {
		f.Add(seed)
	}

	tmpDir := f.TempDir()
	validator, err := NewPath([]string{tmpDir})
	if err != nil {
		f.Fatalf("creating validator: %v", err)
	}

	f.Fuzz(func(t *testing.T, input string) {
		result, err := validator.Validate(input)

		// Property 1: any validated path must be absolute and inside the
		// allowed directories.
		if err == nil {
			if !filepath.IsAbs(result) {
				t.Errorf("validated path is not absolute: %q", result)
			}
			if !strings.HasPrefix(result, tmpDir) && !strings.HasPrefix(result, validator.workDir) {
				t.Errorf("validated path escapes allowed directories: %q", result)
			}
		}

		// Property 2: sensitive system paths must never come back validated.
		sensitivePaths := []string{"/etc", "/proc", "/sys", "/dev", "/root", "/var/log"}
		cleanInput := filepath.Clean(input)
		for _, sensitive := range sensitivePaths {
			if strings.HasPrefix(cleanInput, sensitive) || strings.Contains(cleanInput, sensitive+"/") {
				if err == nil && strings.HasPrefix(result, sensitive) {
					t.Errorf("sensitive path not blocked: input=%q result=%q", input, result)
				}
			}
		}

		// Property 3: null bytes must always cause rejection.
		if strings.Contains(input, "\x00") && err == nil {
			t.Errorf("null byte not rejected: input=%q result=%q", input, result)
		}
	})
}

// FuzzPathValidationWithSymlinks tests symlink handling.
func FuzzPathValidationWithSymlinks(f *testing.F) {
	f.Add("link_to_etc")
	f.Add("nested_symlink")
	f.Add("circular_link")

	f.Fuzz(func(t *testing.T, linkName string) {
		// Skip invalid link names
		if linkName == "" || strings.Contains(linkName, "/") || strings.Contains(linkName, "\\") {
			return
		}
		if strings.Contains(linkName, "\x00") {
			return
		}

		tmpDir := t.TempDir()
		validator, err := NewPath([]string{tmpDir})
		if err != nil {
			t.Skipf("creating validator: %v", err)
		}

		// A symlink inside the allowed directory pointing outside of it.
		linkPath := filepath.Join(tmpDir, linkName)
		err = os.Symlink("/etc/passwd", linkPath)
		if err != nil {
			t.Skipf("creating symlink: %v", err)
		}

		if _, err = validator.Validate(linkPath); err == nil {
			t.Errorf("symlink to /etc/passwd was not blocked: link=%q", linkPath)
		}
	})
}

// FuzzURLValidation tests URL validation against SSRF bypass attempts.
// Run with: go test -fuzz=FuzzURLValidation -fuzztime=30s ./internal/security/
func FuzzURLValidation(f *testing.F) {
	seeds := []string{
		// Valid public URLs
		"https://example.com",
		"http://example.com/path?q=1",

		// Blocked schemes
		"ftp://example.com",
		"file:///etc/passwd",
		"javascript:alert(1)",
		"gopher://evil.com",

		// Loopback
		"http://127.0.0.1",
		"http://127.0.0.1:8080",
		"http://[::1]",

		// Private IPs
		"http://10.0.0.1",
		"http://172.16.0.1",
		"http://192.168.1.1",

		// Cloud metadata
		"http://169.254.169.254/latest/meta-data/",
		"http://metadata.google.internal",

		// Blocked hosts
		"http://localhost",
		"http://localhost:3000",

		// Edge cases
		"",
		"://",
		"http://",
		"http://0.0.0.0",
		"http://[::ffff:127.0.0.1]",

		// Encoding tricks
		"http://0x7f000001",      // 127.0.0.1 as hex
		"http://2130706433",      // 127.0.0.1 as decimal
		"http://017700000001",    // 127.0.0.1 as octal
		"http://[::ffff:7f00:1]", // IPv6-mapped IPv4 loopback
		"http://127.1",           // short form loopback
		"http://0x7f.0.0.1",      // partial hex loopback
		"http://0177.0.0.1",      // octal first octet
	}

	for _, seed := range seeds {
		f.Add(seed)
	}

	validator := NewURL()

	f.Fuzz(func(t *testing.T, rawURL string) {
		// Must not panic
		_ = validator.Validate(rawURL)
	})
}
