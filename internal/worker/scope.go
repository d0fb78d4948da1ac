package worker

import (
	"fmt"
	"net"
	"net/url"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Scope decides which requests the worker controls: same origin and a path
// matching one of the glob patterns.
type Scope struct {
	origin   string
	patterns []string
}

// NewScope builds a scope for origin. With no patterns every path is in scope.
func NewScope(origin *url.URL, patterns []string) (*Scope, error) {
	for _, p := range patterns {
		if !doublestar.ValidatePattern(p) {
			return nil, fmt.Errorf("invalid scope pattern %q", p)
		}
	}
	if len(patterns) == 0 {
		patterns = []string{"/**"}
	}
	return &Scope{origin: originOf(origin), patterns: patterns}, nil
}

// Controls reports whether u falls inside the scope.
func (s *Scope) Controls(u *url.URL) bool {
	if u == nil || originOf(u) != s.origin {
		return false
	}

	path := u.Path
	if path == "" {
		path = "/"
	}
	for _, p := range s.patterns {
		if ok, _ := doublestar.Match(p, path); ok {
			return true
		}
	}
	return false
}

// SameOrigin reports whether a and b share scheme, host and port.
func SameOrigin(a, b *url.URL) bool {
	if a == nil || b == nil {
		return false
	}
	return originOf(a) == originOf(b)
}

// originOf renders scheme://host:port with the default port made explicit.
func originOf(u *url.URL) string {
	scheme := strings.ToLower(u.Scheme)
	port := u.Port()
	if port == "" {
		switch scheme {
		case "http":
			port = "80"
		case "https":
			port = "443"
		}
	}
	return scheme + "://" + net.JoinHostPort(strings.ToLower(u.Hostname()), port)
}
