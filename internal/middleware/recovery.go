// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"
)

// Recoverer turns a panic in an editor action or page view into a logged
// stack trace and a JSON 500 envelope. It sits outside LoadSession, so the
// signed-in user is read back from the shared log fields. When the handler
// had already started its response only the log entry is written.
func Recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fields, r := requestFields(r)
		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}
			attrs := []any{
				"error", rec,
				"method", r.Method,
				"path", r.URL.Path,
				"stack", string(debug.Stack()),
			}
			if fields.userID > 0 {
				attrs = append(attrs, "user_id", fields.userID)
			}
			if wrapped.written {
				slog.Error("panic after response started", append(attrs, "status", wrapped.statusCode)...)
				return
			}
			slog.Error("panic recovered", attrs...)
			writeError(wrapped, http.StatusInternalServerError, "internal", "Internal Server Error")
		}()

		next.ServeHTTP(wrapped, r)
	})
}
