// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package router sets up all HTTP routes and middleware chains of the
// course website API. Reads are open to anonymous visitors and checked by
// the access resolver; every mutation requires a session, a CSRF token,
// and a rate-limit slot.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"coursesite/internal/handlers"
	"coursesite/internal/middleware"
	"coursesite/internal/session"
)

// Options toggles environment-specific routes and middleware.
type Options struct {
	// Secure marks the CSRF cookie Secure. Set outside development.
	Secure bool
	// DevLogin mounts POST /dev/login.
	DevLogin bool
	// Limiter throttles mutating requests. Nil disables rate limiting.
	Limiter *middleware.RateLimiter
}

// New creates and returns the configured Chi router with all middleware
// and route groups wired up.
func New(api *handlers.API, sessions *session.Store, prefs middleware.EditModes, opts Options) chi.Router {
	r := chi.NewRouter()

	// Global middleware, applied to every request.
	r.Use(middleware.Recoverer)
	r.Use(middleware.Logger)
	r.Use(middleware.SecureHeaders)
	r.Use(middleware.LoadSession(sessions, prefs))

	// Health check: no auth, no CSRF.
	r.Get("/health", healthHandler)

	if opts.DevLogin {
		r.With(limit(opts.Limiter)).Post("/dev/login", api.DevLogin)
	}

	r.Group(func(r chi.Router) {
		r.Use(middleware.CSRF(opts.Secure))

		r.Post("/logout", api.Logout)

		r.Route("/sites", func(r chi.Router) {
			// Reads. The service decides what an anonymous visitor may see.
			r.Get("/{siteID}", api.GetSite)
			r.Get("/{siteID}/menu", api.GetMenu)
			r.Get("/{siteID}/pages/{pageID}", api.GetPage)
			r.Get("/{siteID}/blocks/{blockID}/files", api.ListFiles)

			// Mutations.
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireAuth)
				r.Use(limit(opts.Limiter))

				r.Post("/", api.CreateSite)
				r.Get("/{siteID}/recyclebin", api.RecycleBin)
				r.Put("/{siteID}/menu", api.PutMenu)
				r.Put("/{siteID}/permissions", api.SetEditors)
				r.Post("/{siteID}/copy", api.CopySite)
				r.Post("/{siteID}/ajax", api.Ajax)

				r.Post("/{siteID}/pages", api.CreatePage)
				r.Put("/{siteID}/pages/{pageID}", api.UpdatePage)
				r.Post("/{siteID}/pages/{pageID}/sections", api.AddSection)
				r.Post("/{siteID}/pages/{pageID}/copy", api.DistributePage)

				r.Put("/{siteID}/sections/{sectionID}", api.UpdateSection)
				r.Post("/{siteID}/sections/{sectionID}/blocks", api.AddBlock)

				r.Put("/{siteID}/blocks/{blockID}", api.UpdateBlock)
				r.Post("/{siteID}/blocks/{blockID}/files", api.AttachFile)
			})
		})
	})

	return r
}

// limit returns the rate-limit middleware, or a pass-through when rl is nil.
func limit(rl *middleware.RateLimiter) func(http.Handler) http.Handler {
	if rl == nil {
		return func(next http.Handler) http.Handler { return next }
	}
	return rl.Middleware
}

// healthHandler returns a simple JSON health check response.
func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}
