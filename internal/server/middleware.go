package server

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"runtime/debug"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"github.com/joseph-ayodele/phototranslate/internal/common"
)

const requestIDHeader = "X-Request-ID"

type statusWriter struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	n, err := w.ResponseWriter.Write(b)
	w.bytes += n
	return n, err
}

func withRecovery(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				logger.Error("http.panic",
					"path", r.URL.Path,
					"panic", rec,
					"stack", string(debug.Stack()),
					"request_id", common.RequestIDFromContext(r.Context()),
				)
				writeErr(w, r, http.StatusInternalServerError, "internal", "internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// withRequestID honours an incoming X-Request-ID and otherwise generates one.
func withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if id := strings.TrimSpace(r.Header.Get(requestIDHeader)); id != "" {
			ctx = common.WithRequestID(ctx, id)
		}
		ctx, id := common.EnsureRequestID(ctx)
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func withLogging(logger *slog.Logger, trustProxy bool, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w}
		next.ServeHTTP(sw, r)
		status := sw.status
		if status == 0 {
			status = http.StatusOK
		}
		level := slog.LevelInfo
		if status >= http.StatusInternalServerError {
			level = slog.LevelError
		}
		logger.Log(r.Context(), level, "http.request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", status,
			"bytes", sw.bytes,
			"client", clientIP(r, trustProxy),
			"request_id", common.RequestIDFromContext(r.Context()),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
	})
}

// withAuth requires an HS256 bearer token on every route except /health.
// An empty secret disables authentication.
func withAuth(secret []byte, logger *slog.Logger, next http.Handler) http.Handler {
	if len(secret) == 0 {
		return next
	}
	keyFunc := func(*jwt.Token) (any, error) { return secret, nil }
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}
		raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || strings.TrimSpace(raw) == "" {
			writeErr(w, r, http.StatusUnauthorized, "unauthorized", "missing bearer token")
			return
		}
		claims := &jwt.RegisteredClaims{}
		tok, err := jwt.ParseWithClaims(strings.TrimSpace(raw), claims, keyFunc,
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
		if err != nil || !tok.Valid {
			logger.Warn("http.auth.rejected", "path", r.URL.Path, "error", err)
			writeErr(w, r, http.StatusUnauthorized, "unauthorized", "invalid bearer token")
			return
		}
		next.ServeHTTP(w, r.WithContext(common.WithSubject(r.Context(), claims.Subject)))
	})
}

// clientLimiter hands out one token bucket per client key.
// Buckets idle for longer than idle are dropped by sweep.
type clientLimiter struct {
	every    time.Duration
	burst    int
	idle     time.Duration
	now      func() time.Time
	limiters sync.Map // key -> *limiterEntry
}

type limiterEntry struct {
	lim      *rate.Limiter
	lastSeen atomic.Int64 // unix nanos
}

func newClientLimiter(every time.Duration, burst int, idle time.Duration) *clientLimiter {
	if burst <= 0 {
		burst = 1
	}
	if idle <= 0 {
		idle = defaultLimiterIdle
	}
	return &clientLimiter{every: every, burst: burst, idle: idle, now: time.Now}
}

const defaultLimiterIdle = 10 * time.Minute

func (l *clientLimiter) allow(key string) bool {
	v, ok := l.limiters.Load(key)
	if !ok {
		v, _ = l.limiters.LoadOrStore(key, &limiterEntry{lim: rate.NewLimiter(rate.Every(l.every), l.burst)})
	}
	e := v.(*limiterEntry)
	e.lastSeen.Store(l.now().UnixNano())
	return e.lim.Allow()
}

// sweep drops buckets not used within the idle window and reports how many remain.
func (l *clientLimiter) sweep() int {
	cutoff := l.now().Add(-l.idle).UnixNano()
	kept := 0
	l.limiters.Range(func(k, v any) bool {
		if v.(*limiterEntry).lastSeen.Load() < cutoff {
			l.limiters.Delete(k)
		} else {
			kept++
		}
		return true
	})
	return kept
}

// run sweeps idle buckets until ctx is done.
func (l *clientLimiter) run(ctx context.Context, logger *slog.Logger) {
	if l == nil || l.every <= 0 {
		return
	}
	ticker := time.NewTicker(l.idle / 2)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			logger.Debug("http.ratelimit.sweep", "clients", l.sweep())
		}
	}
}

// withRateLimit throttles per authenticated subject, or per client IP without auth.
// A zero interval disables limiting.
func withRateLimit(l *clientLimiter, trustProxy bool, next http.Handler) http.Handler {
	if l == nil || l.every <= 0 {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}
		key := common.SubjectFromContext(r.Context())
		if key == "" {
			key = clientIP(r, trustProxy)
		}
		if !l.allow(key) {
			w.Header().Set("Retry-After", "1")
			writeErr(w, r, http.StatusTooManyRequests, "rate_limited", "too many requests")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// withConcurrencyLimit bounds in-flight requests; excess callers get 503 immediately.
func withConcurrencyLimit(sem *semaphore.Weighted, next http.HandlerFunc) http.HandlerFunc {
	if sem == nil {
		return next
	}
	return func(w http.ResponseWriter, r *http.Request) {
		if !sem.TryAcquire(1) {
			w.Header().Set("Retry-After", "2")
			writeErr(w, r, http.StatusServiceUnavailable, "capacity", "too many scans in progress")
			return
		}
		defer sem.Release(1)
		next(w, r)
	}
}

// clientIP is the peer address. Forwarding headers are consulted only when
// trustProxy is set, i.e. the server sits behind a proxy that overwrites them.
func clientIP(r *http.Request, trustProxy bool) string {
	if trustProxy {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			first, _, _ := strings.Cut(xff, ",")
			if ip := strings.TrimSpace(first); ip != "" {
				return ip
			}
		}
		if xr := strings.TrimSpace(r.Header.Get("X-Real-IP")); xr != "" {
			return xr
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
