package middleware

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/wolfman30/studio-site/pkg/logging"
)

// localOrigins are always trusted so the site can be exercised locally
// against a production-mode server.
var localOrigins = []string{
	"http://localhost:3000",
	"http://127.0.0.1:3000",
	"http://localhost",
	"http://127.0.0.1",
}

// OriginGuard accepts browser requests that come from the site itself.
type OriginGuard struct {
	allow       map[string]struct{}
	development bool
	logger      *logging.Logger
}

// NewOriginGuard trusts the given site URLs plus local origins. In
// development every request is allowed.
func NewOriginGuard(siteURLs []string, development bool, logger *logging.Logger) *OriginGuard {
	if logger == nil {
		logger = logging.Default()
	}
	allow := make(map[string]struct{}, len(siteURLs)+len(localOrigins))
	for _, raw := range append(append([]string{}, siteURLs...), localOrigins...) {
		if origin := originOf(raw); origin != "" {
			allow[origin] = struct{}{}
		}
	}
	return &OriginGuard{
		allow:       allow,
		development: development,
		logger:      logger.WithComponent("origin_guard"),
	}
}

// Allowed checks the Origin header, or the Referer's origin when no Origin
// was sent, against the allow-set and the request's own origin.
func (g *OriginGuard) Allowed(r *http.Request) bool {
	if g.development {
		return true
	}

	candidate := originOf(r.Header.Get("Origin"))
	if candidate == "" {
		candidate = originOf(r.Header.Get("Referer"))
	}
	if candidate == "" {
		return false
	}
	if _, ok := g.allow[candidate]; ok {
		return true
	}
	return candidate == requestOrigin(r)
}

// Middleware rejects requests from foreign origins with 403.
func (g *OriginGuard) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !g.Allowed(r) {
			g.logger.Warn("origin rejected",
				"origin", r.Header.Get("Origin"),
				"referer", r.Header.Get("Referer"),
				"path", r.URL.Path,
			)
			writeJSONError(w, http.StatusForbidden, "Forbidden")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// requestOrigin rebuilds the origin the client used to reach this server.
func requestOrigin(r *http.Request) string {
	proto := "https"
	if forwarded := r.Header.Get("X-Forwarded-Proto"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		if first = strings.TrimSpace(first); first != "" {
			proto = first
		}
	}
	if r.Host == "" {
		return ""
	}
	return strings.ToLower(proto + "://" + r.Host)
}

// originOf reduces a URL to scheme://host[:port]. Unparseable values and
// opaque origins ("null") yield "".
func originOf(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return ""
	}
	return strings.ToLower(u.Scheme + "://" + u.Host)
}
