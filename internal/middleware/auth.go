// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"coursesite/internal/access"
	"coursesite/internal/session"
)

// contextKey is an unexported type for context keys to prevent collisions.
type contextKey string

const (
	// SessionKey is the context key for the session data.
	SessionKey contextKey = "session"
	// ActorKey is the context key for the request's access.Actor.
	ActorKey contextKey = "actor"
)

// EditModes reads the stored edit-mode preference of a user.
type EditModes interface {
	EditMode(ctx context.Context, userID int64) (bool, error)
}

// LoadSession retrieves the session from Valkey and stores it, together
// with the caller's access.Actor, in the request context. It does not
// enforce authentication. A preference lookup failure leaves edit mode
// off.
func LoadSession(store *session.Store, prefs EditModes) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			data, err := store.Get(r.Context(), r)
			if err != nil {
				slog.Warn("load session failed", "error", err)
				next.ServeHTTP(w, r)
				return
			}
			if data == nil {
				next.ServeHTTP(w, r)
				return
			}

			actor := access.Actor{UserID: data.UserID}
			if prefs != nil {
				on, err := prefs.EditMode(r.Context(), data.UserID)
				if err != nil {
					slog.Warn("load edit mode failed", "user_id", data.UserID, "error", err)
				}
				actor.EditMode = on
			}

			noteUser(r.Context(), data.UserID)
			ctx := context.WithValue(r.Context(), SessionKey, data)
			ctx = context.WithValue(ctx, ActorKey, actor)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAuth answers 401 to requests without a session.
// Must be applied after LoadSession in the middleware chain.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if SessionFromCtx(r.Context()) == nil {
			writeError(w, http.StatusUnauthorized, "unauthenticated", "sign in required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// SessionFromCtx extracts the session data from the request context.
// Returns nil if no session is loaded (user is not authenticated).
func SessionFromCtx(ctx context.Context) *session.Data {
	data, _ := ctx.Value(SessionKey).(*session.Data)
	return data
}

// ActorFromCtx returns the caller. Requests without a session get the
// anonymous actor.
func ActorFromCtx(ctx context.Context) access.Actor {
	actor, _ := ctx.Value(ActorKey).(access.Actor)
	return actor
}

// WithActor returns a copy of ctx carrying actor.
func WithActor(ctx context.Context, actor access.Actor) context.Context {
	return context.WithValue(ctx, ActorKey, actor)
}
