// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package access answers who may view and who may edit a site or page.
package access

import (
	"context"
	"fmt"
	"slices"
	"time"

	"coursesite/internal/models"
	"coursesite/internal/store"
)

// Actor is the request-scoped caller. It is built once per request from
// the session and the stored edit-mode preference.
type Actor struct {
	UserID   int64
	EditMode bool
}

// Anonymous reports whether no user is signed in.
func (a Actor) Anonymous() bool { return a.UserID <= 0 }

// Resource is a site, or a page within it when Page is set.
type Resource struct {
	Site *models.Site
	Page *models.Page
}

// SiteResource addresses a whole site.
func SiteResource(s *models.Site) Resource { return Resource{Site: s} }

// PageResource addresses one page of a site.
func PageResource(s *models.Site, p *models.Page) Resource { return Resource{Site: s, Page: p} }

// Resolver evaluates view and edit rules.
type Resolver struct {
	repo   store.Repository
	roster store.Roster
	now    func() time.Time
}

// NewResolver creates a Resolver.
func NewResolver(repo store.Repository, roster store.Roster) *Resolver {
	return &Resolver{repo: repo, roster: roster, now: time.Now}
}

// WithClock returns a copy of r that reads the time from now.
func (r *Resolver) WithClock(now func() time.Time) *Resolver {
	c := *r
	c.now = now
	return &c
}

// WithRepository returns a copy of r reading grants through repo, so a
// check can see rows written earlier in the same transaction.
func (r *Resolver) WithRepository(repo store.Repository) *Resolver {
	c := *r
	c.repo = repo
	return &c
}

// editRule is the rule that granted edit rights.
type editRule int

const (
	ruleNone editRule = iota
	ruleOwner
	ruleGrant
	ruleRole
)

// CanEdit reports whether actor may modify res. Rules are evaluated in
// order: ownership, an explicit grant on the page or site, an elevated
// course role. Owners and grant holders lose edit rights outside the
// site's or page's editing window.
func (r *Resolver) CanEdit(ctx context.Context, actor Actor, res Resource) (bool, error) {
	rule, err := r.editRule(ctx, actor, res)
	if err != nil {
		return false, err
	}
	switch rule {
	case ruleRole:
		return true, nil
	case ruleOwner, ruleGrant:
		return r.inWindow(res), nil
	}
	return false, nil
}

func (r *Resolver) editRule(ctx context.Context, actor Actor, res Resource) (editRule, error) {
	if actor.Anonymous() || res.Site == nil {
		return ruleNone, nil
	}
	if res.Site.OwnerID == actor.UserID {
		return ruleOwner, nil
	}

	if res.Page != nil {
		ok, err := r.repo.HasPermission(ctx, models.ResourcePage, res.Page.ID, actor.UserID)
		if err != nil {
			return ruleNone, fmt.Errorf("check page grant: %w", err)
		}
		if ok {
			return ruleGrant, nil
		}
	}
	ok, err := r.repo.HasPermission(ctx, models.ResourceSite, res.Site.ID, actor.UserID)
	if err != nil {
		return ruleNone, fmt.Errorf("check site grant: %w", err)
	}
	if ok {
		return ruleGrant, nil
	}

	roles, err := r.roster.CourseRoles(ctx, res.Site.CourseID, actor.UserID)
	if err != nil {
		return ruleNone, fmt.Errorf("course roles: %w", err)
	}
	if slices.ContainsFunc(roles, models.Role.IsElevated) {
		return ruleRole, nil
	}
	return ruleNone, nil
}

func (r *Resolver) inWindow(res Resource) bool {
	now := r.now()
	if !res.Site.Window.Contains(now) {
		return false
	}
	return res.Page == nil || res.Page.Window.Contains(now)
}

// CanView reports whether actor may see res. Anyone with edit rights,
// regardless of the editing window, may view. Otherwise the site's
// distribution mode decides, and a hidden page other than the homepage
// stays invisible.
func (r *Resolver) CanView(ctx context.Context, actor Actor, res Resource) (bool, error) {
	if actor.Anonymous() || res.Site == nil {
		return false, nil
	}
	rule, err := r.editRule(ctx, actor, res)
	if err != nil {
		return false, err
	}
	if rule != ruleNone {
		return true, nil
	}
	if res.Page != nil && res.Page.Hidden && !res.Site.IsHomepage(res.Page.ID) {
		return false, nil
	}

	roles, err := r.roster.CourseRoles(ctx, res.Site.CourseID, actor.UserID)
	if err != nil {
		return false, fmt.Errorf("course roles: %w", err)
	}

	switch res.Site.Mode {
	case models.ModeSingleSite:
		return len(roles) > 0, nil
	case models.ModeSitePerStudent:
		if slices.ContainsFunc(roles, models.Role.IsGrader) {
			return true, nil
		}
		return r.roster.IsMentorOf(ctx, actor.UserID, res.Site.OwnerID)
	case models.ModePagePerStudent:
		if slices.ContainsFunc(roles, models.Role.IsGrader) {
			return true, nil
		}
		in, err := r.inRoster(ctx, actor, res.Site.Roster, roles)
		if err != nil || in {
			return in, err
		}
		if res.Page == nil {
			return false, nil
		}
		return r.mentorsGrantHolder(ctx, actor, res.Page.ID)
	}
	return false, nil
}

// inRoster reports whether actor is covered by the site's roster. An empty
// roster covers every enrolled participant.
func (r *Resolver) inRoster(ctx context.Context, actor Actor, roster models.Roster, roles []models.Role) (bool, error) {
	if roster.IsEmpty() {
		return len(roles) > 0, nil
	}
	if slices.Contains(roster.UserIDs, actor.UserID) {
		return true, nil
	}
	for _, role := range roles {
		if slices.Contains(roster.Roles, role) {
			return true, nil
		}
	}
	if len(roster.GroupIDs) == 0 {
		return false, nil
	}
	ok, err := r.roster.InAnyGroup(ctx, actor.UserID, roster.GroupIDs)
	if err != nil {
		return false, fmt.Errorf("group membership: %w", err)
	}
	return ok, nil
}

func (r *Resolver) mentorsGrantHolder(ctx context.Context, actor Actor, pageID int64) (bool, error) {
	grants, err := r.repo.ListPermissions(ctx, models.ResourcePage, pageID)
	if err != nil {
		return false, fmt.Errorf("list page grants: %w", err)
	}
	for _, g := range grants {
		ok, err := r.roster.IsMentorOf(ctx, actor.UserID, g.UserID)
		if err != nil {
			return false, fmt.Errorf("mentor check: %w", err)
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

// SetEditors makes userIDs the exact set of grant holders on a resource.
// Grants already held are left untouched so their granter and creation
// time survive; only additions are inserted and only removals deleted.
func (r *Resolver) SetEditors(ctx context.Context, rt models.ResourceType, key, grantedBy int64, userIDs []int64) (added, removed int, err error) {
	if !rt.Valid() {
		return 0, 0, &models.ValidationError{Fields: []models.FieldError{{Field: "resourcetype", Error: "must be site or page"}}}
	}
	err = r.repo.InTx(ctx, func(tx store.Repository) error {
		existing, err := tx.ListPermissions(ctx, rt, key)
		if err != nil {
			return err
		}

		want := make(map[int64]bool, len(userIDs))
		for _, id := range userIDs {
			if id > 0 {
				want[id] = true
			}
		}
		have := make(map[int64]bool, len(existing))
		for _, p := range existing {
			have[p.UserID] = true
			if !want[p.UserID] {
				if err := tx.DeletePermission(ctx, p.ID); err != nil {
					return err
				}
				removed++
			}
		}
		for _, id := range userIDs {
			if id <= 0 || have[id] {
				continue
			}
			have[id] = true
			p := &models.Permission{ResourceType: rt, ResourceKey: key, UserID: id, OwnerID: grantedBy}
			if err := tx.CreatePermission(ctx, p); err != nil {
				return err
			}
			added++
		}
		return nil
	})
	if err != nil {
		return 0, 0, fmt.Errorf("set editors: %w", err)
	}
	return added, removed, nil
}
