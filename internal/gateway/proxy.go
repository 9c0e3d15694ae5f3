package gateway

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/kindergrid/kindergrid/pkg/authsdk"
	"github.com/kindergrid/kindergrid/pkg/httpx"
	"github.com/kindergrid/kindergrid/pkg/slogx"
)

// hopHeaders are connection-level headers that never cross the proxy.
var hopHeaders = []string{
	"Connection",
	"Proxy-Connection",
	"Keep-Alive",
	"Proxy-Authenticate",
	"Proxy-Authorization",
	"Te",
	"Trailer",
	"Transfer-Encoding",
	"Upgrade",
}

// Proxy forwards verified requests to upstream services. By the time a
// request reaches ServeHTTP it has passed rate limiting and caller-token
// verification; the proxy's job is the trust exchange: swap the caller's
// Authorization for a fresh service identity and carry the caller token in
// the side header for downstream re-verification.
type Proxy struct {
	Routes []Route
	Minter *IdentityMinter

	// Client executes upstream requests. Timeout handling is per-request
	// via context, so the client itself carries no deadline.
	Client *http.Client

	UpstreamTimeout time.Duration
}

func (p *Proxy) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	route, rest, ok := p.match(r.URL.Path)
	if !ok {
		authsdk.NewAuthError(http.StatusNotFound, "unknown_route", "no upstream for this path").WriteError(w)
		return
	}

	callerToken := bearerToken(r)

	identity, err := p.Minter.Mint(route.Name)
	if err != nil {
		log.Error("failed to mint service identity", "err", err, "route", route.Name)
		authsdk.ErrServerError.WriteError(w)
		return
	}

	upstreamURL := *route.Upstream
	upstreamURL.Path = singleJoin(route.Upstream.Path, rest)
	upstreamURL.RawQuery = r.URL.RawQuery

	upstreamCtx, cancel := context.WithTimeout(ctx, p.UpstreamTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(upstreamCtx, r.Method, upstreamURL.String(), r.Body)
	if err != nil {
		log.Error("failed to build upstream request", "err", err)
		authsdk.ErrServerError.WriteError(w)
		return
	}

	copyHeaders(req.Header, r.Header)
	for _, h := range hopHeaders {
		req.Header.Del(h)
	}

	// The trust exchange. Any inbound copy of the side header is an
	// injection attempt and gets dropped before the caller token goes in.
	req.Header.Del(httpx.HeaderCallerToken)
	req.Header.Set("Authorization", "Bearer "+identity)
	req.Header.Set(httpx.HeaderCallerToken, callerToken)

	resp, err := p.Client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || upstreamCtx.Err() != nil {
			log.Warn("upstream timed out", "route", route.Name, "timeout", p.UpstreamTimeout)
			authsdk.ErrUpstreamTimeout.WriteError(w)
			return
		}
		log.Error("upstream request failed", "err", err, "route", route.Name)
		authsdk.NewAuthError(http.StatusBadGateway, "upstream_error", "the upstream service is unreachable").WriteError(w)
		return
	}
	defer resp.Body.Close()

	copyHeaders(w.Header(), resp.Header)
	for _, h := range hopHeaders {
		w.Header().Del(h)
	}
	w.WriteHeader(resp.StatusCode)
	_, _ = io.Copy(w, resp.Body)
}

// match resolves the first path segment to a route and returns the remaining
// path to forward.
func (p *Proxy) match(path string) (Route, string, bool) {
	trimmed := strings.TrimPrefix(path, "/")
	name, rest, _ := strings.Cut(trimmed, "/")
	for _, route := range p.Routes {
		if route.Name == name {
			return route, "/" + rest, true
		}
	}
	return Route{}, "", false
}

func singleJoin(a, b string) string {
	switch {
	case strings.HasSuffix(a, "/") && strings.HasPrefix(b, "/"):
		return a + b[1:]
	case !strings.HasSuffix(a, "/") && !strings.HasPrefix(b, "/"):
		return a + "/" + b
	default:
		return a + b
	}
}

func copyHeaders(dst, src http.Header) {
	for k, values := range src {
		for _, v := range values {
			dst.Add(k, v)
		}
	}
}

func bearerToken(r *http.Request) string {
	authz := r.Header.Get("Authorization")
	if !strings.HasPrefix(authz, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(authz, "Bearer"))
}
