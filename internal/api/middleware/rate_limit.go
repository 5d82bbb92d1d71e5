package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/time/rate"

	"github.com/sndwiz/veriscase-backend/internal/models"
	"github.com/sndwiz/veriscase-backend/internal/pkg/metrics"
	"github.com/sndwiz/veriscase-backend/internal/pkg/realip"
	"github.com/sndwiz/veriscase-backend/internal/security"
)

// Per-address limiter maps are bounded so a scan from many addresses cannot
// grow memory without bound; evicted addresses simply start a fresh bucket.
const limiterCacheSize = 16384

// LimiterConfig is one limiter's window and threshold. Implemented as a
// token bucket with burst = Threshold refilling at Threshold/Window, so a
// full window's worth of requests is admitted before the first rejection.
type LimiterConfig struct {
	Window    time.Duration
	Threshold int
}

// BankConfig configures the three limiters and their path scoping.
type BankConfig struct {
	Global    LimiterConfig
	Auth      LimiterConfig
	Sensitive LimiterConfig

	// APIPrefix scopes the global limiter; non-API paths are exempt.
	APIPrefix string
	// AuthPaths are the login/callback endpoints the auth limiter covers.
	AuthPaths []string
	// SensitivePrefixes are the path prefixes the sensitive limiter covers.
	SensitivePrefixes []string
	// ExemptPaths bypass the bank entirely (health checks, metrics).
	ExemptPaths []string
}

// DefaultBankConfig returns the production limiter configuration.
func DefaultBankConfig() BankConfig {
	return BankConfig{
		Global:    LimiterConfig{Window: 15 * time.Minute, Threshold: 1000},
		Auth:      LimiterConfig{Window: 15 * time.Minute, Threshold: 20},
		Sensitive: LimiterConfig{Window: time.Minute, Threshold: 60},
		APIPrefix: "/api/v1",
		AuthPaths: []string{"/api/v1/auth/login", "/api/v1/auth/callback"},
		SensitivePrefixes: []string{
			"/api/v1/evidence",
			"/api/v1/documents",
			"/api/v1/approvals",
			"/api/v1/trust-accounts",
			"/api/v1/signatures",
		},
		ExemptPaths: []string{"/health", "/healthz/live", "/healthz/ready", "/metrics"},
	}
}

// tierLimiter holds per-address token buckets for one tier.
type tierLimiter struct {
	name string
	cfg  LimiterConfig

	mu       sync.Mutex
	limiters *lru.Cache[string, *rate.Limiter]
}

func newTierLimiter(name string, cfg LimiterConfig) *tierLimiter {
	cache, _ := lru.New[string, *rate.Limiter](limiterCacheSize)
	return &tierLimiter{name: name, cfg: cfg, limiters: cache}
}

// allow atomically decides one request for the given address. The mutex
// covers lookup-or-create; rate.Limiter itself is safe for concurrent use.
func (t *tierLimiter) allow(addr string) bool {
	t.mu.Lock()
	lim, ok := t.limiters.Get(addr)
	if !ok {
		lim = rate.NewLimiter(rate.Limit(float64(t.cfg.Threshold)/t.cfg.Window.Seconds()), t.cfg.Threshold)
		t.limiters.Add(addr, lim)
	}
	t.mu.Unlock()
	return lim.Allow()
}

// RateLimiterBank applies the global, authentication, and sensitive-resource
// limiters, all keyed by the resolved client address.
type RateLimiterBank struct {
	cfg       BankConfig
	global    *tierLimiter
	auth      *tierLimiter
	sensitive *tierLimiter
	events    security.EventSink
}

// NewRateLimiterBank creates the bank. events may be nil.
func NewRateLimiterBank(cfg BankConfig, events security.EventSink) *RateLimiterBank {
	return &RateLimiterBank{
		cfg:       cfg,
		global:    newTierLimiter("global", cfg.Global),
		auth:      newTierLimiter("auth", cfg.Auth),
		sensitive: newTierLimiter("sensitive", cfg.Sensitive),
		events:    events,
	}
}

// Middleware returns the request filter. Violations get a uniform 429 with
// an {"error": ...} body and raise a rate_limit_exceeded security event.
func (b *RateLimiterBank) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			path := r.URL.Path
			for _, exempt := range b.cfg.ExemptPaths {
				if path == exempt {
					next.ServeHTTP(w, r)
					return
				}
			}

			addr := realip.FromRequest(r)
			if strings.HasPrefix(path, b.cfg.APIPrefix) && !b.global.allow(addr) {
				b.reject(w, r, addr, b.global)
				return
			}
			if b.isAuthPath(path) && !b.auth.allow(addr) {
				b.reject(w, r, addr, b.auth)
				return
			}
			if b.isSensitivePath(path) && !b.sensitive.allow(addr) {
				b.reject(w, r, addr, b.sensitive)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (b *RateLimiterBank) isAuthPath(path string) bool {
	for _, p := range b.cfg.AuthPaths {
		if path == p {
			return true
		}
	}
	return false
}

func (b *RateLimiterBank) isSensitivePath(path string) bool {
	for _, prefix := range b.cfg.SensitivePrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

func (b *RateLimiterBank) reject(w http.ResponseWriter, r *http.Request, addr string, tier *tierLimiter) {
	metrics.RateLimitExceededTotal.WithLabelValues(tier.name).Inc()
	if b.events != nil {
		b.events.Record(&models.SecurityEvent{
			EventType: models.EventRateLimitExceeded,
			IPAddress: addr,
			UserAgent: r.UserAgent(),
			Severity:  models.SeverityWarning,
			Details: models.MarshalDetails(models.RateLimitDetails{
				Path:          r.URL.Path,
				Limit:         tier.cfg.Threshold,
				WindowSeconds: int(tier.cfg.Window.Seconds()),
			}),
		})
	}

	retryAfter := int(tier.cfg.Window.Seconds())
	if retryAfter > 60 {
		retryAfter = 60
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(tier.cfg.Threshold))
	w.Header().Set("X-RateLimit-Remaining", "0")
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(time.Now().Add(tier.cfg.Window).Unix(), 10))
	w.WriteHeader(http.StatusTooManyRequests)
	_, _ = w.Write([]byte(`{"error":"Too many requests. Please retry later."}`))
}
