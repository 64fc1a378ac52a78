// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"coursesite/internal/access"
	"coursesite/internal/middleware"
	"coursesite/internal/models"
	"coursesite/internal/tree"
)

// ajaxRequest is the envelope of every editor mutation.
type ajaxRequest struct {
	Action string          `json:"action"`
	Data   json.RawMessage `json:"data"`
}

// ajaxCall carries one dispatched mutation.
type ajaxCall struct {
	actor  access.Actor
	siteID int64
	data   json.RawMessage
}

// bind decodes the action payload into dst.
func (c ajaxCall) bind(dst any) error {
	if len(c.data) == 0 {
		return &models.ValidationError{Fields: []models.FieldError{{Field: "data", Error: "this field is required"}}}
	}
	if err := json.Unmarshal(c.data, dst); err != nil {
		return &models.ValidationError{Fields: []models.FieldError{{Field: "data", Error: err.Error()}}}
	}
	return nil
}

// id decodes a payload that is either a bare ID or {"id": N}.
func (c ajaxCall) id() (int64, error) {
	var id int64
	if err := json.Unmarshal(c.data, &id); err == nil {
		return id, nil
	}
	var in struct {
		ID int64 `json:"id"`
	}
	if err := c.bind(&in); err != nil {
		return 0, err
	}
	return in.ID, nil
}

type ajaxAction func(a *API, ctx context.Context, c ajaxCall) (any, error)

// ajaxActions is the dispatch table of the editor RPC endpoint.
var ajaxActions = map[string]ajaxAction{
	"update_mode":      (*API).updateMode,
	"reorder_blocks":   (*API).reorderBlocks,
	"reorder_sections": (*API).reorderSections,
	"delete_block":     deleteAction(models.KindBlock),
	"delete_section":   deleteAction(models.KindSection),
	"delete_page":      deleteAction(models.KindPage),
	"restore_deleted":  (*API).restoreDeleted,
	"move_block":       moveAction(tree.SectionKind),
	"move_section":     moveAction(tree.PageKind),
	"copy_section":     (*API).copySection,
}

// Ajax dispatches {action, data} mutations from the page editor.
func (a *API) Ajax(w http.ResponseWriter, r *http.Request) {
	siteID, ok := urlID(w, r, "siteID")
	if !ok {
		return
	}
	var req ajaxRequest
	if !decode(w, r, &req) {
		return
	}
	action, ok := ajaxActions[req.Action]
	if !ok {
		writeError(w, http.StatusBadRequest, "unknown_action", fmt.Sprintf("unknown action %q", req.Action), nil)
		return
	}

	result, err := action(a, r.Context(), ajaxCall{
		actor:  middleware.ActorFromCtx(r.Context()),
		siteID: siteID,
		data:   req.Data,
	})
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"action": req.Action, "result": result})
}

func (a *API) updateMode(ctx context.Context, c ajaxCall) (any, error) {
	var in struct {
		Mode int `json:"mode"`
	}
	if err := c.bind(&in); err != nil {
		return nil, err
	}
	if in.Mode != 0 && in.Mode != 1 {
		return nil, &models.ValidationError{Fields: []models.FieldError{{Field: "mode", Error: "must be 0 or 1"}}}
	}
	if c.actor.Anonymous() {
		return nil, models.ErrPermissionDenied
	}
	if err := a.prefs.SetEditMode(ctx, c.actor.UserID, in.Mode == 1); err != nil {
		return nil, err
	}
	return map[string]int{"mode": in.Mode}, nil
}

func (a *API) reorderBlocks(ctx context.Context, c ajaxCall) (any, error) {
	var in struct {
		SectionID int64   `json:"sectionid"`
		Blocks    []int64 `json:"blocks"`
	}
	if err := c.bind(&in); err != nil {
		return nil, err
	}
	written, err := a.sites.Reorder(ctx, c.actor, tree.SectionKind, c.siteID, in.SectionID, in.Blocks)
	if err != nil {
		return nil, err
	}
	return map[string]any{"sectionid": in.SectionID, "blocks": written}, nil
}

func (a *API) reorderSections(ctx context.Context, c ajaxCall) (any, error) {
	var in struct {
		PageID   int64   `json:"pageid"`
		Sections []int64 `json:"sections"`
	}
	if err := c.bind(&in); err != nil {
		return nil, err
	}
	written, err := a.sites.Reorder(ctx, c.actor, tree.PageKind, c.siteID, in.PageID, in.Sections)
	if err != nil {
		return nil, err
	}
	return map[string]any{"pageid": in.PageID, "sections": written}, nil
}

func deleteAction(kind models.EntityKind) ajaxAction {
	return func(a *API, ctx context.Context, c ajaxCall) (any, error) {
		id, err := c.id()
		if err != nil {
			return nil, err
		}
		if err := a.sites.Delete(ctx, c.actor, kind, c.siteID, id); err != nil {
			return nil, err
		}
		return map[string]any{"type": kind, "id": id, "deleted": true}, nil
	}
}

func (a *API) restoreDeleted(ctx context.Context, c ajaxCall) (any, error) {
	var in struct {
		ID     int64             `json:"id"`
		Type   models.EntityKind `json:"type"`
		SiteID int64             `json:"siteid"`
	}
	if err := c.bind(&in); err != nil {
		return nil, err
	}
	if in.SiteID != 0 && in.SiteID != c.siteID {
		return nil, fmt.Errorf("site %d: %w", in.SiteID, models.ErrNotFound)
	}
	if err := a.sites.Restore(ctx, c.actor, in.Type, c.siteID, in.ID); err != nil {
		return nil, err
	}
	return map[string]any{"type": in.Type, "id": in.ID, "deleted": false}, nil
}

// moveAction moves a child between two containers of the given kind.
func moveAction(kind tree.Kind) ajaxAction {
	return func(a *API, ctx context.Context, c ajaxCall) (any, error) {
		var in struct {
			ID       int64 `json:"id"`
			From     int64 `json:"from"`
			To       int64 `json:"to"`
			Position int   `json:"position"`
		}
		if err := c.bind(&in); err != nil {
			return nil, err
		}
		if err := a.sites.Move(ctx, c.actor, kind, c.siteID, in.ID, in.From, in.To, in.Position); err != nil {
			return nil, err
		}
		return map[string]any{"id": in.ID, "from": in.From, "to": in.To, "position": in.Position}, nil
	}
}

func (a *API) copySection(ctx context.Context, c ajaxCall) (any, error) {
	var in struct {
		ID     int64 `json:"id"`
		PageID int64 `json:"pageid"`
	}
	if err := c.bind(&in); err != nil {
		return nil, err
	}
	return a.sites.CopySection(ctx, c.actor, c.siteID, in.ID, in.PageID)
}
