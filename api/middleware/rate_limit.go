package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/angelmondragon/coursevault-backend/api/responses"
	"github.com/angelmondragon/coursevault-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/coursevault-backend/pkg/errors"
	"github.com/angelmondragon/coursevault-backend/pkg/logger"
	pkgredis "github.com/angelmondragon/coursevault-backend/pkg/redis"
)

const maxCredentialBody = 64 << 10

// RateLimitRule caps hits per client IP and per submitted email for one
// credential endpoint. A zero limit disables that dimension.
type RateLimitRule struct {
	Name     string
	Window   time.Duration
	PerIP    int
	PerEmail int
}

func LoginRule(cfg config.AuthRateLimitConfig) RateLimitRule {
	return RateLimitRule{Name: "login", Window: cfg.LoginWindow, PerIP: cfg.LoginIPLimit, PerEmail: cfg.LoginEmailLimit}
}

func RegisterRule(cfg config.AuthRateLimitConfig) RateLimitRule {
	return RateLimitRule{Name: "register", Window: cfg.RegisterWindow, PerIP: cfg.RegisterIPLimit, PerEmail: cfg.RegisterEmailLimit}
}

func (r RateLimitRule) active() bool {
	return r.Window > 0 && (r.PerIP > 0 || r.PerEmail > 0)
}

// RateLimit rejects requests with 429 once a rule's window is exhausted.
// Emails are hashed before they reach Redis or the logs.
func RateLimit(rule RateLimitRule, limiter pkgredis.RateLimiter, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if limiter == nil || !rule.active() {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			if rule.PerIP > 0 {
				if ip := clientIP(r); ip != "" {
					if !check(ctx, w, limiter, logg, rule, "ip", ip, rule.PerIP) {
						return
					}
				}
			}

			if rule.PerEmail > 0 {
				body, err := io.ReadAll(io.LimitReader(r.Body, maxCredentialBody))
				if err != nil {
					responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "unreadable request body"))
					return
				}
				r.Body = io.NopCloser(bytes.NewReader(body))
				if email := submittedEmail(body); email != "" {
					if !check(ctx, w, limiter, logg, rule, "email", digest(email), rule.PerEmail) {
						return
					}
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}

// check records one hit and writes the error response when the request must stop.
func check(ctx context.Context, w http.ResponseWriter, limiter pkgredis.RateLimiter, logg *logger.Logger, rule RateLimitRule, dimension, value string, limit int) bool {
	count, err := limiter.Hit(ctx, rule.Name+":"+dimension+":"+value, rule.Window)
	if err != nil {
		responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rate limiter unavailable"))
		return false
	}
	if count <= int64(limit) {
		return true
	}
	if logg != nil {
		logg.Warn(logg.WithFields(ctx, map[string]any{
			"rule":      rule.Name,
			"dimension": dimension,
			"hits":      count,
			"limit":     limit,
		}), "rate limit exceeded")
	}
	w.Header().Set("Retry-After", strconvSeconds(rule.Window))
	responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeRateLimit, "too many attempts, try again later"))
	return false
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

func submittedEmail(body []byte) string {
	var payload struct {
		Email string `json:"email"`
	}
	if json.Unmarshal(body, &payload) != nil {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(payload.Email))
}

func digest(value string) string {
	sum := sha256.Sum256([]byte(value))
	return hex.EncodeToString(sum[:16])
}

func strconvSeconds(d time.Duration) string {
	secs := int64(d / time.Second)
	if secs < 1 {
		secs = 1
	}
	return strconv.FormatInt(secs, 10)
}
