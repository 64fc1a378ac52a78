// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"log/slog"
	"net/http"

	"coursesite/internal/session"
)

// DevLogin starts a session for any user ID. Users sign in through the
// hosting platform in production; this route is only mounted in
// development.
func (a *API) DevLogin(w http.ResponseWriter, r *http.Request) {
	var in struct {
		UserID   int64 `json:"userid"`
		CourseID int64 `json:"courseid"`
	}
	if !decode(w, r, &in) {
		return
	}
	if in.UserID <= 0 {
		writeError(w, http.StatusUnprocessableEntity, "validation_failed", "validation failed",
			[]map[string]string{{"field": "userid", "error": "must be a user id"}})
		return
	}

	if _, err := a.sessions.Create(r.Context(), w, &session.Data{
		UserID:   in.UserID,
		CourseID: in.CourseID,
	}); err != nil {
		fail(w, r, err)
		return
	}
	slog.Info("dev login", "user_id", in.UserID)
	writeJSON(w, http.StatusOK, map[string]int64{"userid": in.UserID})
}

// Logout destroys the session and clears the cookie.
func (a *API) Logout(w http.ResponseWriter, r *http.Request) {
	if err := a.sessions.Destroy(r.Context(), w, r); err != nil {
		slog.Warn("destroy session failed", "error", err)
	}
	w.WriteHeader(http.StatusNoContent)
}
