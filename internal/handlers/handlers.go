// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package handlers contains the HTTP handlers of the course website API.
// Handlers decode JSON input, call the sites service with the request
// actor, and translate its errors into JSON envelopes.
package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"coursesite/internal/models"
	"coursesite/internal/prefs"
	"coursesite/internal/session"
	"coursesite/internal/sites"
)

// maxBodySize bounds JSON request bodies.
const maxBodySize = 1 << 20

// API groups the HTTP handlers and their dependencies.
type API struct {
	sites    *sites.Service
	sessions *session.Store
	prefs    *prefs.Store
}

// New creates the handler group.
func New(svc *sites.Service, sessions *session.Store, prefStore *prefs.Store) *API {
	return &API{sites: svc, sessions: sessions, prefs: prefStore}
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeError writes the error envelope {code, error, details}.
func writeError(w http.ResponseWriter, status int, code, message string, details any) {
	body := map[string]any{
		"code":  code,
		"error": message,
	}
	if details != nil {
		body["details"] = details
	}
	writeJSON(w, status, body)
}

// fail maps a service error onto an HTTP status. Permission failures are
// kept distinct from missing resources.
func fail(w http.ResponseWriter, r *http.Request, err error) {
	var ve *models.ValidationError
	switch {
	case errors.As(err, &ve):
		writeError(w, http.StatusUnprocessableEntity, "validation_failed", "validation failed", ve.Fields)
	case errors.Is(err, models.ErrMenuTooDeep):
		writeError(w, http.StatusUnprocessableEntity, "menu_too_deep", models.ErrMenuTooDeep.Error(), nil)
	case errors.Is(err, models.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", "not found", nil)
	case errors.Is(err, models.ErrPermissionDenied):
		writeError(w, http.StatusForbidden, "forbidden", "you do not have permission to do this", nil)
	case errors.Is(err, models.ErrHomepageProtected):
		writeError(w, http.StatusConflict, "homepage_protected", models.ErrHomepageProtected.Error(), nil)
	case errors.Is(err, models.ErrInvalidReference):
		writeError(w, http.StatusConflict, "invalid_reference", err.Error(), nil)
	case errors.Is(err, sites.ErrNoStorage):
		writeError(w, http.StatusServiceUnavailable, "storage_unavailable", sites.ErrNoStorage.Error(), nil)
	default:
		slog.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		writeError(w, http.StatusInternalServerError, "internal", "Internal Server Error", nil)
	}
}

// decode reads a JSON body into dst. Unknown fields are rejected.
func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodySize))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Sprintf("malformed JSON body: %v", err), nil)
		return false
	}
	return true
}

// urlID parses a positive integer URL parameter.
func urlID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusNotFound, "not_found", "not found", nil)
		return 0, false
	}
	return id, true
}
