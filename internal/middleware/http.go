package middleware

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"log"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"casedesk/internal/app"
	"casedesk/internal/captcha"
	"casedesk/internal/gate"
	"casedesk/internal/models"
	"casedesk/internal/rate"
	"casedesk/internal/util"
)

func RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rid := r.Header.Get("X-Request-ID")
		if _, err := uuid.Parse(rid); err != nil {
			rid = uuid.NewString()
		}
		r = r.WithContext(WithRequestID(r.Context(), rid))
		w.Header().Set("X-Request-ID", rid)
		next.ServeHTTP(w, r)
	})
}

type CookieConfig struct {
	ClientName string
	CSRFName   string
	Secure     bool
	Lifetime   time.Duration
}

// AttachClient resolves the browser's client from its cookie, minting a new
// client when the cookie is missing or malformed. Every request waits for
// the client's one-time identity check.
func AttachClient(reg *app.Registry, cc CookieConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := ""
			if c, err := r.Cookie(cc.ClientName); err == nil && app.ValidToken(c.Value) {
				raw = c.Value
			}
			if raw == "" {
				var err error
				raw, _, err = app.NewClientToken()
				if err != nil {
					util.WriteError(w, http.StatusInternalServerError, "internal_error", "could not start client", RequestID(r.Context()))
					return
				}
				setCookie(w, cc.ClientName, raw, true, cc)
				csrf, err := newCSRFToken()
				if err != nil {
					util.WriteError(w, http.StatusInternalServerError, "internal_error", "could not start client", RequestID(r.Context()))
					return
				}
				setCookie(w, cc.CSRFName, csrf, false, cc)
			}
			client, created := reg.Attach(raw)
			if client.Confirm(r.Context()) {
				log.Printf("client_attached client=%s created=%t authenticated=%t request_id=%s",
					client.ID[:12], created, client.Store.Snapshot().Session.IsAuthenticated(), RequestID(r.Context()))
			}
			next.ServeHTTP(w, r.WithContext(WithClient(r.Context(), client)))
		})
	}
}

func setCookie(w http.ResponseWriter, name, value string, httpOnly bool, cc CookieConfig) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   int(cc.Lifetime.Seconds()),
		HttpOnly: httpOnly,
		Secure:   cc.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func newCSRFToken() (string, error) {
	buf := make([]byte, 24)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// RequireRole runs the access gate on every request it guards.
func RequireRole(role models.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rid := RequestID(r.Context())
			c, ok := Client(r.Context())
			if !ok {
				util.WriteRedirect(w, http.StatusUnauthorized, "unauthorized", "authentication required", gate.RouteLogin, rid)
				return
			}
			v := gate.Evaluate(c.Store.Snapshot().Session, gate.Requirement{Role: role})
			switch v.Outcome {
			case gate.Resolving:
				util.WriteError(w, http.StatusConflict, "resolving", "session is being checked", rid)
				return
			case gate.Denied:
				if v.Redirect == gate.RouteLogin {
					util.WriteRedirect(w, http.StatusUnauthorized, "unauthorized", "authentication required", v.Redirect, rid)
				} else {
					util.WriteRedirect(w, http.StatusForbidden, "forbidden", string(role)+" role required", v.Redirect, rid)
				}
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func CSRFFromCookie(cookieName string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodGet || r.Method == http.MethodHead || r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}
			h := r.Header.Get("X-CSRF-Token")
			c, err := r.Cookie(cookieName)
			if err != nil || c.Value == "" || h == "" {
				util.WriteError(w, http.StatusForbidden, "csrf_failed", "missing csrf token", RequestID(r.Context()))
				return
			}
			if subtle.ConstantTimeCompare([]byte(h), []byte(c.Value)) != 1 {
				util.WriteError(w, http.StatusForbidden, "csrf_failed", "invalid csrf token", RequestID(r.Context()))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RateLimit throttles route per client IP with the limiter's policy for it.
func RateLimit(l *rate.Limiter, route string, trustProxy bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			d := l.Take(route, ClientIP(r, trustProxy))
			if !d.Allowed {
				secs := int(math.Ceil(d.RetryAfter.Seconds()))
				w.Header().Set("Retry-After", strconv.Itoa(max(secs, 1)))
				util.WriteError(w, http.StatusTooManyRequests, "rate_limited", "too many requests", RequestID(r.Context()))
				return
			}
			if d.Remaining >= 0 {
				w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
			}
			next.ServeHTTP(w, r)
		})
	}
}

func ClientIP(r *http.Request, trustProxy bool) string {
	if trustProxy {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			parts := strings.Split(xff, ",")
			return strings.TrimSpace(parts[0])
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func RequestLogger(trustProxy bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sr := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(sr, r)
			log.Printf("request method=%s path=%s status=%d duration_ms=%d request_id=%s remote_ip=%s",
				r.Method, r.URL.Path, sr.status, time.Since(start).Milliseconds(), RequestID(r.Context()), ClientIP(r, trustProxy))
		})
	}
}

// RequireCaptcha checks the X-Captcha-Token header of anonymous account
// requests against v.
func RequireCaptcha(v captcha.Verifier, trustProxy bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			err := v.Verify(r.Context(), r.Header.Get("X-Captcha-Token"), ClientIP(r, trustProxy))
			switch {
			case err == nil:
				next.ServeHTTP(w, r)
			case errors.Is(err, captcha.ErrUnavailable):
				log.Printf("captcha_unavailable request_id=%s err=%v", RequestID(r.Context()), err)
				util.WriteError(w, http.StatusServiceUnavailable, "captcha_unavailable", "challenge could not be checked, try again", RequestID(r.Context()))
			default:
				util.WriteError(w, http.StatusBadRequest, "captcha_required", "challenge failed", RequestID(r.Context()))
			}
		})
	}
}
