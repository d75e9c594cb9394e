package integrations

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/matzehuels/prereqgraph/pkg/buildinfo"
	"github.com/matzehuels/prereqgraph/pkg/cache"
)

const httpTimeout = 10 * time.Second

var (
	// ErrNotFound is returned when the upstream answers 404, e.g. for a
	// department the catalog does not know.
	ErrNotFound = errors.New("resource not found")

	// ErrNetwork is returned for transport failures and unexpected statuses.
	ErrNetwork = errors.New("network error")
)

// NewHTTPClient returns the client used for payload and catalog requests.
func NewHTTPClient() *http.Client {
	return &http.Client{Timeout: httpTimeout}
}

// UserAgent identifies prereqgraph and its version to upstream services.
func UserAgent() string {
	return "prereqgraph/" + strings.TrimPrefix(buildinfo.Get().Version, "v")
}

// JoinURL appends path segments to base, escaping each segment.
func JoinURL(base string, segments ...string) string {
	escaped := make([]string, len(segments))
	for i, s := range segments {
		escaped[i] = url.PathEscape(s)
	}
	return strings.TrimRight(base, "/") + "/" + strings.Join(escaped, "/")
}

// checkStatus maps a response status to an error. Server errors and 429 are
// marked retryable.
func checkStatus(code int) error {
	switch {
	case code >= 200 && code < 300:
		return nil
	case code == http.StatusNotFound:
		return ErrNotFound
	case code == http.StatusTooManyRequests || code >= 500:
		return cache.Retryable(fmt.Errorf("%w: %d %s", ErrNetwork, code, http.StatusText(code)))
	default:
		return fmt.Errorf("%w: %d %s", ErrNetwork, code, http.StatusText(code))
	}
}
