// Package middleware provides the HTTP middleware of the course website
// server: sessions and the request actor, logging, panic recovery, CSRF,
// rate limiting, and security headers.
package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
	written    bool
}

// WriteHeader captures the status code before writing it.
func (rw *responseWriter) WriteHeader(code int) {
	if !rw.written {
		rw.statusCode = code
		rw.written = true
	}
	rw.ResponseWriter.WriteHeader(code)
}

// Write ensures a default 200 status if WriteHeader was never called.
func (rw *responseWriter) Write(b []byte) (int, error) {
	if !rw.written {
		rw.statusCode = http.StatusOK
		rw.written = true
	}
	return rw.ResponseWriter.Write(b)
}

// logKey is the context key of the per-request log fields.
const logKey contextKey = "log"

// logFields collects values set by inner middleware for the access log.
type logFields struct {
	userID int64
}

// requestFields returns the log fields of r, installing new ones when no
// outer middleware did.
func requestFields(r *http.Request) (*logFields, *http.Request) {
	if f, ok := r.Context().Value(logKey).(*logFields); ok {
		return f, r
	}
	f := &logFields{}
	return f, r.WithContext(context.WithValue(r.Context(), logKey, f))
}

// noteUser records the signed-in user for the access log.
func noteUser(ctx context.Context, userID int64) {
	if f, ok := ctx.Value(logKey).(*logFields); ok {
		f.userID = userID
	}
}

// Logger is a structured logging middleware that records method, path,
// status code, request duration, and the signed-in user for every HTTP
// request.
func Logger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		fields, r := requestFields(r)

		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrapped, r)

		attrs := []any{
			"method", r.Method,
			"path", r.URL.Path,
			"status", wrapped.statusCode,
			"duration", time.Since(start).String(),
			"remote", r.RemoteAddr,
		}
		if fields.userID > 0 {
			attrs = append(attrs, "user_id", fields.userID)
		}
		if wrapped.statusCode >= http.StatusInternalServerError {
			slog.Error("http request", attrs...)
			return
		}
		slog.Info("http request", attrs...)
	})
}
