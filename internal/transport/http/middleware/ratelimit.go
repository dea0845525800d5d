package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"workzen/internal/transport/http/api"
)

// RateLimitKeyFunc picks the bucket a request is charged to.
type RateLimitKeyFunc func(r *http.Request) string

type RateLimitOption func(*keyedLimiter)

type limiterEntry struct {
	limiter *rate.Limiter
	seen    time.Time
}

// keyedLimiter keeps one token bucket per key. A bucket holds limit tokens and
// refills completely over window.
type keyedLimiter struct {
	mu        sync.Mutex
	limit     int
	window    time.Duration
	keyFn     RateLimitKeyFunc
	entries   map[string]*limiterEntry
	lastSweep time.Time
}

func WithKeyFunc(fn RateLimitKeyFunc) RateLimitOption {
	return func(kl *keyedLimiter) {
		if fn != nil {
			kl.keyFn = fn
		}
	}
}

// RateLimit throttles every request, keyed by the authenticated user or the
// client IP.
func RateLimit(limit int, window time.Duration, opts ...RateLimitOption) func(http.Handler) http.Handler {
	kl := newKeyedLimiter(limit, window, actorOrIPKey)
	for _, opt := range opts {
		opt(kl)
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !kl.allow(w, r) {
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// SensitiveMutationRateLimit applies tighter budgets to credential endpoints
// (a quarter of baseLimit, per IP and per submitted email) and to leave
// decisions, payroll generation and account administration (half of
// baseLimit, per actor).
func SensitiveMutationRateLimit(baseLimit int, window time.Duration) func(http.Handler) http.Handler {
	credentialLimit := max(baseLimit/4, 1)
	mutationLimit := max(baseLimit/2, 1)
	byIP := newKeyedLimiter(credentialLimit, window, clientIPKey)
	byEmail := newKeyedLimiter(credentialLimit, window, AuthEmailOrIPKey("email"))
	byActor := newKeyedLimiter(mutationLimit, window, actorOrIPKey)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch sensitiveRateScope(r) {
			case sensitiveScopeAuth:
				if !byIP.allow(w, r) || !byEmail.allow(w, r) {
					return
				}
			case sensitiveScopeActor:
				if !byActor.allow(w, r) {
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// AuthEmailOrIPKey keys on the email in the JSON body so one address cannot be
// sprayed from many IPs.
func AuthEmailOrIPKey(field string) RateLimitKeyFunc {
	field = strings.TrimSpace(field)
	if field == "" {
		field = "email"
	}
	return func(r *http.Request) string {
		email := extractJSONField(r, field)
		if email == "" {
			return clientIPKey(r)
		}
		return "email:" + strings.ToLower(email)
	}
}

func actorOrIPKey(r *http.Request) string {
	if user, ok := GetUser(r.Context()); ok && user.UserID != "" {
		return "user:" + user.UserID
	}
	return clientIPKey(r)
}

func clientIPKey(r *http.Request) string {
	if fwd := strings.TrimSpace(r.Header.Get("X-Forwarded-For")); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if first = strings.TrimSpace(first); first != "" {
			return first
		}
	}
	host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
	if err == nil && host != "" {
		return host
	}
	return strings.TrimSpace(r.RemoteAddr)
}

func newKeyedLimiter(limit int, window time.Duration, keyFn RateLimitKeyFunc) *keyedLimiter {
	if keyFn == nil {
		keyFn = actorOrIPKey
	}
	return &keyedLimiter{
		limit:   limit,
		window:  window,
		keyFn:   keyFn,
		entries: map[string]*limiterEntry{},
	}
}

func (kl *keyedLimiter) refill() rate.Limit {
	return rate.Every(kl.window / time.Duration(kl.limit))
}

// get returns the bucket for key and drops buckets idle for a full window,
// which are back at capacity anyway.
func (kl *keyedLimiter) get(key string, now time.Time) *rate.Limiter {
	kl.mu.Lock()
	defer kl.mu.Unlock()

	if now.Sub(kl.lastSweep) > kl.window {
		for k, entry := range kl.entries {
			if now.Sub(entry.seen) > kl.window {
				delete(kl.entries, k)
			}
		}
		kl.lastSweep = now
	}

	entry, ok := kl.entries[key]
	if !ok {
		entry = &limiterEntry{limiter: rate.NewLimiter(kl.refill(), kl.limit)}
		kl.entries[key] = entry
	}
	entry.seen = now
	return entry.limiter
}

func (kl *keyedLimiter) allow(w http.ResponseWriter, r *http.Request) bool {
	if kl.limit <= 0 || kl.window <= 0 {
		return true
	}

	key := kl.keyFn(r)
	if key == "" {
		key = clientIPKey(r)
	}
	now := time.Now()
	limiter := kl.get(key, now)

	reservation := limiter.ReserveN(now, 1)
	delay := reservation.DelayFrom(now)
	if delay > 0 {
		reservation.CancelAt(now)
	}
	tokens := limiter.TokensAt(now)

	headers := w.Header()
	headers.Set("X-RateLimit-Limit", strconv.Itoa(kl.limit))
	headers.Set("X-RateLimit-Remaining", strconv.Itoa(max(int(tokens), 0)))
	headers.Set("X-RateLimit-Reset", strconv.Itoa(ceilSeconds(time.Duration((float64(kl.limit)-tokens)/float64(kl.refill())*float64(time.Second)))))

	if delay > 0 {
		headers.Set("Retry-After", strconv.Itoa(max(ceilSeconds(delay), 1)))
		slog.Warn("rate limit exceeded",
			"key", key,
			"path", r.URL.Path,
			"method", r.Method,
			"limit", kl.limit,
			"windowSec", int(kl.window.Seconds()),
		)
		api.Fail(w, http.StatusTooManyRequests, "rate_limited", "too many requests", GetRequestID(r.Context()))
		return false
	}
	return true
}

func ceilSeconds(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int(math.Ceil(d.Seconds()))
}

// extractJSONField peeks at a string field of a JSON body and restores the
// body for the handler.
func extractJSONField(r *http.Request, field string) string {
	if r == nil || r.Body == nil {
		return ""
	}
	if !strings.Contains(strings.ToLower(r.Header.Get("Content-Type")), "application/json") {
		return ""
	}
	raw, err := io.ReadAll(io.LimitReader(r.Body, 64*1024))
	if err != nil {
		return ""
	}
	r.Body = io.NopCloser(bytes.NewReader(raw))
	payload := map[string]any{}
	if len(raw) == 0 || json.Unmarshal(raw, &payload) != nil {
		return ""
	}
	value, _ := payload[field].(string)
	return strings.TrimSpace(value)
}

type sensitiveScope string

const (
	sensitiveScopeNone  sensitiveScope = ""
	sensitiveScopeAuth  sensitiveScope = "auth"
	sensitiveScopeActor sensitiveScope = "actor"
)

var credentialRoutes = map[string]bool{
	"/auth/login":       true,
	"/auth/password":    true,
	"/auth/mfa/setup":   true,
	"/auth/mfa/enable":  true,
	"/auth/mfa/disable": true,
}

var actorRoutes = map[string]bool{
	"/payroll/generate": true,
	"/payroll/payrun":   true,
}

// actorSuffixes lists collection prefixes whose item actions are sensitive.
var actorSuffixes = map[string][]string{
	"/leave/requests/": {"/approve", "/reject", "/override"},
	"/users/":          {"/role", "/status"},
}

func sensitiveRateScope(r *http.Request) sensitiveScope {
	if r == nil {
		return sensitiveScopeNone
	}
	switch r.Method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
	default:
		return sensitiveScopeNone
	}

	path := normalizedAPIPath(r.URL.Path)
	if credentialRoutes[path] {
		return sensitiveScopeAuth
	}
	if actorRoutes[path] {
		return sensitiveScopeActor
	}
	for prefix, suffixes := range actorSuffixes {
		if !strings.HasPrefix(path, prefix) {
			continue
		}
		for _, suffix := range suffixes {
			if strings.HasSuffix(path, suffix) {
				return sensitiveScopeActor
			}
		}
	}
	return sensitiveScopeNone
}

func normalizedAPIPath(path string) string {
	cleaned := strings.TrimPrefix(strings.TrimSpace(path), "/api/v1")
	if !strings.HasPrefix(cleaned, "/") {
		cleaned = "/" + cleaned
	}
	return cleaned
}
