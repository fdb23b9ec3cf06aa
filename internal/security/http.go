package security

import (
	"net/http"
	"time"
)

// MaxFetchSize caps how many bytes a single fetched document may occupy.
// Fetchers must stop reading at this limit; a page that large is not worth
// embedding anyway.
const MaxFetchSize = 5 * 1024 * 1024

// SafeClient returns an http.Client configured for fetching untrusted URLs:
// every dial goes through SafeTransport, every redirect hop is re-validated,
// and the whole request is bounded by timeout.
func (v *URL) SafeClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Transport:     v.SafeTransport(),
		Timeout:       timeout,
		CheckRedirect: v.ValidateRedirect,
	}
}
