package httpapi

import (
	"context"
	"fmt"
	"math"
	"net"
	"net/http"
	"runtime/debug"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"formgate.org/internal/audit"
	"formgate.org/internal/obs"
)

type ctxKey int

const (
	requestIDKey ctxKey = iota
	clientIPKey
)

const (
	requestIDHeader = "X-Request-ID"
	maxRequestIDLen = 128
)

// RequestID assigns every request an identifier, reusing a sane inbound
// X-Request-ID, and echoes it in the response.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rid := strings.TrimSpace(r.Header.Get(requestIDHeader))
		if !validRequestID(rid) {
			rid = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, rid)
		ctx := context.WithValue(r.Context(), requestIDKey, rid)
		ctx = audit.WithRequestID(ctx, rid)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func validRequestID(s string) bool {
	if s == "" || len(s) > maxRequestIDLen {
		return false
	}
	for _, c := range s {
		if c < 0x21 || c > 0x7e {
			return false
		}
	}
	return true
}

// RequestIDFromContext returns the id assigned by RequestID.
func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	rid, _ := ctx.Value(requestIDKey).(string)
	return rid
}

// ClientIP resolves the caller's address once per request. With trustedProxies
// > 0 the entry that many hops from the right of X-Forwarded-For is used, so a
// client cannot spoof its address by prepending entries.
func ClientIP(trustedProxies int) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := resolveClientIP(r, trustedProxies)
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), clientIPKey, ip)))
		})
	}
}

func resolveClientIP(r *http.Request, trustedProxies int) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" && trustedProxies > 0 {
		parts := strings.Split(xff, ",")
		idx := len(parts) - trustedProxies
		if idx >= 0 {
			if ip := strings.TrimSpace(parts[idx]); ip != "" {
				return ip
			}
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func clientIP(r *http.Request) string {
	if ip, ok := r.Context().Value(clientIPKey).(string); ok && ip != "" {
		return ip
	}
	return resolveClientIP(r, 0)
}

// LoggingJSON emits one structured entry per request.
func LoggingJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sw := &statusWriter{ResponseWriter: w, code: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(sw, r)
		obs.Logger().Info("request_complete",
			zap.String("request_id", RequestIDFromContext(r.Context())),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", sw.code),
			zap.Float64("duration_ms", float64(time.Since(start).Microseconds())/1000),
			zap.String("remote_ip", clientIP(r)),
		)
	})
}

type statusWriter struct {
	http.ResponseWriter
	code        int
	wroteHeader bool
}

func (w *statusWriter) WriteHeader(code int) {
	if !w.wroteHeader {
		w.code = code
		w.wroteHeader = true
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	w.wroteHeader = true
	return w.ResponseWriter.Write(b)
}

func (w *statusWriter) Unwrap() http.ResponseWriter { return w.ResponseWriter }

// Recover turns a panic into a logged 500 with a generic body.
func Recover(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}
			obs.Logger().Error("panic recovered",
				zap.String("request_id", RequestIDFromContext(r.Context())),
				zap.String("path", r.URL.Path),
				zap.Any("panic", rec),
				zap.ByteString("stack", debug.Stack()),
			)
			writeError(w, r, newAPIError(kindInternal, http.StatusInternalServerError, "Internal server error"))
		}()
		next.ServeHTTP(w, r)
	})
}

// SecurityHeaders sets hardening headers suited to a JSON API.
func SecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("X-XSS-Protection", "0")
		h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		h.Set("Permissions-Policy", "camera=(), microphone=(), geolocation=()")
		h.Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
		h.Set("Strict-Transport-Security", "max-age=63072000; includeSubDomains")
		next.ServeHTTP(w, r)
	})
}

// CORS allows credentialed requests from the listed origins only. A "*"
// entry allows any origin without credentials.
func CORS(origins []string) func(http.Handler) http.Handler {
	allowed := make(map[string]struct{}, len(origins))
	allowAll := false
	for _, o := range origins {
		o = strings.TrimRight(strings.TrimSpace(o), "/")
		if o == "" {
			continue
		}
		if o == "*" {
			allowAll = true
			continue
		}
		allowed[o] = struct{}{}
	}
	const (
		allowedMethods = "GET,POST,OPTIONS"
		allowedHeaders = "Content-Type,Authorization,X-CSRF-Token,X-Request-ID"
	)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin != "" {
				w.Header().Add("Vary", "Origin")
				if _, ok := allowed[origin]; ok {
					w.Header().Set("Access-Control-Allow-Origin", origin)
					w.Header().Set("Access-Control-Allow-Credentials", "true")
				} else if allowAll {
					w.Header().Set("Access-Control-Allow-Origin", "*")
				}
			}
			if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
				w.Header().Set("Access-Control-Allow-Methods", allowedMethods)
				w.Header().Set("Access-Control-Allow-Headers", allowedHeaders)
				w.Header().Set("Access-Control-Max-Age", "600")
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// MaxBodyBytes limits the request body size.
func MaxBodyBytes(maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Body != nil && maxBytes > 0 {
				r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			}
			next.ServeHTTP(w, r)
		})
	}
}

// FloodGuard is a per-client token bucket in front of every route. It bounds
// raw request volume; the per-form fixed windows still apply on top.
type FloodGuard struct {
	mu        sync.Mutex
	limit     rate.Limit
	burst     int
	ttl       time.Duration
	now       func() time.Time
	lastSweep time.Time
	buckets   map[string]*bucket
}

type bucket struct {
	lim  *rate.Limiter
	seen time.Time
}

// NewFloodGuard returns a guard refilling perSecond tokens up to burst.
// perSecond <= 0 returns nil, which lets every request through.
func NewFloodGuard(perSecond float64, burst int) *FloodGuard {
	if perSecond <= 0 {
		return nil
	}
	if burst <= 0 {
		burst = 1
	}
	return &FloodGuard{
		limit:   rate.Limit(perSecond),
		burst:   burst,
		ttl:     5 * time.Minute,
		now:     time.Now,
		buckets: make(map[string]*bucket),
	}
}

// Allow takes one token for key.
func (g *FloodGuard) Allow(key string) bool {
	if g == nil {
		return true
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	if now.Sub(g.lastSweep) > time.Minute {
		for k, b := range g.buckets {
			if now.Sub(b.seen) > g.ttl {
				delete(g.buckets, k)
			}
		}
		g.lastSweep = now
	}
	b, ok := g.buckets[key]
	if !ok {
		b = &bucket{lim: rate.NewLimiter(g.limit, g.burst)}
		g.buckets[key] = b
	}
	b.seen = now
	return b.lim.AllowN(now, 1)
}

// Middleware rejects clients that exhausted their bucket with 429.
func (g *FloodGuard) Middleware(next http.Handler) http.Handler {
	if g == nil {
		return next
	}
	retry := strconv.Itoa(int(math.Max(1, math.Ceil(1/float64(g.limit)))))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !g.Allow(clientIP(r)) {
			obs.RateLimitedTotal.WithLabelValues("global").Inc()
			w.Header().Set("Retry-After", retry)
			writeError(w, r, newAPIError(kindRateLimited, http.StatusTooManyRequests,
				fmt.Sprintf("Too many requests. Please retry in %s seconds.", retry)).
				with("remaining", 0))
			return
		}
		next.ServeHTTP(w, r)
	})
}
