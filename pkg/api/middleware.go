package api

import (
	"net"
	"net/http"
	"net/netip"
	"strconv"
	"strings"
	"time"

	"altiora-site/pkg/logging"
	"altiora-site/pkg/metrics"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus"
)

func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("X-XSS-Protection", "1; mode=block")
		h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		h.Set("Permissions-Policy", "camera=(), microphone=(), geolocation=()")
		if r.TLS != nil || strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https") {
			h.Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}
		next.ServeHTTP(w, r)
	})
}

func noStore(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-store")
		next.ServeHTTP(w, r)
	})
}

// originCheck rejects requests whose Origin (or, without one, Referer) is
// not one of allowed, counting them under rejected.
func originCheck(allowed []string, rejected *prometheus.CounterVec) func(http.Handler) http.Handler {
	set := make(map[string]bool, len(allowed))
	for _, o := range allowed {
		set[strings.TrimRight(o, "/")] = true
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !originAllowed(set, r.Header.Get("Origin"), r.Header.Get("Referer")) {
				rejected.WithLabelValues("rejected_origin").Inc()
				logging.Ctx(r.Context()).Warn().
					Str("origin", r.Header.Get("Origin")).
					Str("referer", r.Header.Get("Referer")).
					Msg("request from disallowed origin")
				writeError(w, http.StatusForbidden, "Forbidden")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func originAllowed(allowed map[string]bool, origin, referer string) bool {
	if origin != "" {
		return allowed[strings.TrimRight(origin, "/")]
	}
	if referer == "" {
		return false
	}
	for o := range allowed {
		if referer == o || strings.HasPrefix(referer, o+"/") {
			return true
		}
	}
	return false
}

// realIP replaces RemoteAddr with the client address from X-Forwarded-For
// or X-Real-IP, but only when the direct peer is one of trusted. Requests
// from anyone else keep their peer address, so a forged header cannot buy
// a fresh rate-limit quota.
func realIP(trusted []string) func(http.Handler) http.Handler {
	proxies := parseProxies(trusted)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if ip := forwardedIP(proxies, r); ip != "" {
				r.RemoteAddr = ip
			}
			next.ServeHTTP(w, r)
		})
	}
}

// parseProxies accepts single addresses and CIDR ranges.
func parseProxies(entries []string) []netip.Prefix {
	var out []netip.Prefix
	for _, e := range entries {
		e = strings.TrimSpace(e)
		if e == "" {
			continue
		}
		if p, err := netip.ParsePrefix(e); err == nil {
			out = append(out, p.Masked())
			continue
		}
		if a, err := netip.ParseAddr(e); err == nil {
			a = a.Unmap()
			out = append(out, netip.PrefixFrom(a, a.BitLen()))
			continue
		}
		logging.Warn().Str("entry", e).Msg("ignoring invalid trusted proxy")
	}
	return out
}

func isTrusted(proxies []netip.Prefix, a netip.Addr) bool {
	a = a.Unmap()
	for _, p := range proxies {
		if p.Contains(a) {
			return true
		}
	}
	return false
}

// forwardedIP returns the client address a trusted peer forwarded, or "".
// X-Forwarded-For is read right to left, skipping further trusted hops.
func forwardedIP(proxies []netip.Prefix, r *http.Request) string {
	if len(proxies) == 0 {
		return ""
	}
	host := r.RemoteAddr
	if h, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		host = h
	}
	peer, err := netip.ParseAddr(host)
	if err != nil || !isTrusted(proxies, peer) {
		return ""
	}

	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		hops := strings.Split(xff, ",")
		for i := len(hops) - 1; i >= 0; i-- {
			a, err := netip.ParseAddr(strings.TrimSpace(hops[i]))
			if err != nil {
				break
			}
			if !isTrusted(proxies, a) {
				return a.Unmap().String()
			}
		}
	}
	if a, err := netip.ParseAddr(strings.TrimSpace(r.Header.Get("X-Real-IP"))); err == nil {
		return a.Unmap().String()
	}
	return ""
}

// rateLimit allows limit requests per client IP per window. realIP must run
// first so the key is the visitor, not the proxy.
func rateLimit(limit int, window time.Duration, rejected *prometheus.CounterVec) func(http.Handler) http.Handler {
	retryAfter := strconv.Itoa(int(window.Seconds()))
	return httprate.Limit(limit, window,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			if w.Header().Get("Retry-After") == "" {
				w.Header().Set("Retry-After", retryAfter)
			}
			rejected.WithLabelValues("rate_limited").Inc()
			logging.Ctx(r.Context()).Warn().Str("ip", r.RemoteAddr).Str("path", r.URL.Path).Msg("rate limit exceeded")
			writeError(w, http.StatusTooManyRequests, "Too many requests. Please try again later.")
		}),
	)
}

// requestLogger attaches a request-scoped logger and records metrics once
// the route pattern is known.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		l := logging.With().
			Str("request_id", chimiddleware.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Logger()
		r = r.WithContext(logging.WithContext(r.Context(), l))

		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}
		d := time.Since(start)
		metrics.RecordHTTPRequest(r.Method, route, status, d)

		ev := l.Info()
		if status >= 500 {
			ev = l.Error()
		}
		ev.Int("status", status).
			Int("bytes", ww.BytesWritten()).
			Dur("duration", d).
			Str("remote", r.RemoteAddr).
			Msg("request")
	})
}
