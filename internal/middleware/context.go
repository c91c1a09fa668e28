package middleware

import (
	"context"
	"net/http"

	"casedesk/internal/app"
)

type ctxKey string

const (
	ctxRequestID ctxKey = "request_id"
	ctxClient    ctxKey = "client"
)

func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxRequestID, id)
}

func RequestID(ctx context.Context) string {
	v, _ := ctx.Value(ctxRequestID).(string)
	return v
}

func WithClient(ctx context.Context, c *app.Client) context.Context {
	return context.WithValue(ctx, ctxClient, c)
}

func Client(ctx context.Context) (*app.Client, bool) {
	c, ok := ctx.Value(ctxClient).(*app.Client)
	return c, ok && c != nil
}

// SecurityHeaders is tuned for JSON responses; nothing here is rendered as a
// document.
func SecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("Referrer-Policy", "same-origin")
		w.Header().Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'; base-uri 'none'")
		next.ServeHTTP(w, r)
	})
}
