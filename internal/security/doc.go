// Package security validates the two kinds of untrusted references the
// ingestion pipeline accepts: URLs fetched from the network and paths read
// from the local filesystem.
//
// # Overview
//
// Documents enter the knowledge base from files, directories, and web pages.
// Both entry points take attacker-influenced input, so both are validated
// before any I/O happens:
//
//   - URL prevents Server-Side Request Forgery (CWE-918): requests to
//     loopback, private networks, link-local ranges, and cloud metadata
//     endpoints are refused, both statically and again at DNS resolution
//     time.
//   - Path prevents path traversal (CWE-22): file operations must stay
//     inside the working directory or an explicitly allowed directory, and
//     symbolic links are resolved and re-checked.
//
// # URL Validation
//
//	validator := security.NewURL()
//	if err := validator.Validate(rawURL); err != nil {
//	    // refuse to fetch
//	}
//
// Validate alone checks the URL as written. DNS rebinding defeats that, so
// fetching goes through a client whose dialer re-validates every resolved
// address:
//
//	client := validator.SafeClient(10 * time.Second)
//
// The client also re-validates each redirect hop and stops after ten.
//
// # Path Validation
//
//	validator, err := security.NewPath([]string{dataDir})
//	abs, err := validator.Validate(userPath)
//
// Validate returns the cleaned absolute path on success. Rejections use the
// sentinel errors ErrPathOutsideAllowed and ErrSymlinkOutsideAllowed and
// deliberately omit the offending path from their messages, so handlers can
// return them to clients without leaking filesystem layout.
//
// # Design Philosophy
//
//   - Fail-secure: when in doubt, deny.
//   - Allowlists over denylists where possible.
//   - Errors name the rule that fired, not the internal topology behind it.
package security
