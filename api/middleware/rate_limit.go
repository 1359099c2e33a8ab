package middleware

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/angelmondragon/giftops-backend/api/responses"
	pkgerrors "github.com/angelmondragon/giftops-backend/pkg/errors"
	"github.com/angelmondragon/giftops-backend/pkg/logger"
	pkgredis "github.com/angelmondragon/giftops-backend/pkg/redis"
)

// RateLimitPolicy throttles one traffic surface per client IP and, for auth
// forms, per submitted email.
type RateLimitPolicy struct {
	name       string
	window     time.Duration
	ipLimit    int
	emailLimit int
}

func NewRateLimitPolicy(name string, window time.Duration, ipLimit, emailLimit int) RateLimitPolicy {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		name = "default"
	}
	return RateLimitPolicy{name: name, window: window, ipLimit: ipLimit, emailLimit: emailLimit}
}

func (p RateLimitPolicy) enabled() bool {
	return p.window > 0 && (p.ipLimit > 0 || p.emailLimit > 0)
}

// limitHit is one dimension that ran out of budget.
type limitHit struct {
	dimension string
	subject   string
	limit     int
	window    pkgredis.Window
}

func (h limitHit) retryAfter() int {
	return max(int(math.Ceil(h.window.ResetIn.Seconds())), 1)
}

// RateLimit enforces the policy. Email counters hash the normalized address so
// raw emails never land in redis keys or logs.
func RateLimit(policy RateLimitPolicy, limiter pkgredis.RateLimiter, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !policy.enabled() || limiter == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			hit, err := policy.check(r, limiter)
			switch {
			case err != nil:
				responses.WriteError(r.Context(), logg, w, err)
			case hit != nil:
				rejectRateLimited(w, r, logg, policy.name, *hit)
			default:
				next.ServeHTTP(w, r)
			}
		})
	}
}

// check counts the request against each enabled dimension, IP first. It
// returns the first dimension over its limit, if any.
func (p RateLimitPolicy) check(r *http.Request, limiter pkgredis.RateLimiter) (*limitHit, error) {
	if p.ipLimit > 0 {
		if ip := clientIP(r); ip != "" {
			if hit, err := p.hit(r, limiter, "ip", ip, p.ipLimit); hit != nil || err != nil {
				return hit, err
			}
		}
	}
	if p.emailLimit == 0 || r.Body == nil {
		return nil, nil
	}
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request")
	}
	r.Body = io.NopCloser(bytes.NewReader(body))
	email := submittedEmail(body)
	if email == "" {
		return nil, nil
	}
	return p.hit(r, limiter, "email", hashValue(email), p.emailLimit)
}

func (p RateLimitPolicy) hit(r *http.Request, limiter pkgredis.RateLimiter, dimension, subject string, limit int) (*limitHit, error) {
	win, err := limiter.Allow(r.Context(), dimension+":"+p.name+":"+subject, int64(limit), p.window)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rate limiting")
	}
	if win.Allowed {
		return nil, nil
	}
	return &limitHit{dimension: dimension, subject: subject, limit: limit, window: win}, nil
}

func rejectRateLimited(w http.ResponseWriter, r *http.Request, logg *logger.Logger, policy string, hit limitHit) {
	retryAfter := hit.retryAfter()
	if logg != nil {
		subjectKey := "ip"
		if hit.dimension == "email" {
			subjectKey = "email_hash"
		}
		logg.Warn(logg.WithFields(r.Context(), map[string]any{
			"policy":              policy,
			"scope":               hit.dimension,
			subjectKey:            hit.subject,
			"attempts":            hit.window.Count,
			"limit":               hit.limit,
			"retry_after_seconds": retryAfter,
		}), "rate_limit.blocked")
	}
	w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
	responses.WriteError(r.Context(), nil, w, pkgerrors.New(pkgerrors.CodeRateLimit, "rate limit exceeded"))
}

// clientIP trusts the first X-Forwarded-For hop, then X-Real-IP, then the
// socket peer.
func clientIP(r *http.Request) string {
	if first, _, _ := strings.Cut(r.Header.Get("X-Forwarded-For"), ","); strings.TrimSpace(first) != "" {
		return strings.TrimSpace(first)
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil && host != "" {
		return host
	}
	return r.RemoteAddr
}

// submittedEmail returns the normalized "email" field of a JSON body.
func submittedEmail(payload []byte) string {
	var body struct {
		Email string `json:"email"`
	}
	if err := json.Unmarshal(payload, &body); err != nil {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(body.Email))
}

func hashValue(value string) string {
	sum := sha256.Sum256([]byte(value))
	return hex.EncodeToString(sum[:])
}
