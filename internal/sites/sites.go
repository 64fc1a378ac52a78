// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package sites implements the editing operations of course websites on
// top of the tree model, the permission resolver, and the copy engine.
// Every mutation checks edit rights on the page or site it touches.
package sites

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"

	"coursesite/internal/access"
	"coursesite/internal/clone"
	"coursesite/internal/menu"
	"coursesite/internal/models"
	"coursesite/internal/store"
	"coursesite/internal/tree"
)

// ErrNoStorage is returned when a file operation needs object storage and
// none is configured.
var ErrNoStorage = errors.New("object storage is not configured")

// Files is the object storage used for block attachments.
type Files interface {
	clone.Files
	Upload(ctx context.Context, key, contentType string, body io.Reader, size int64) error
	DownloadURL(ctx context.Context, key string) (string, error)
}

// Service groups the site editing operations and their dependencies.
type Service struct {
	repo   store.Repository
	roster store.Roster
	access *access.Resolver
	menus  *menu.Expander
	files  Files
}

// New creates a Service. files may be nil when object storage is not
// configured; attachment uploads then fail with ErrNoStorage.
func New(repo store.Repository, roster store.Roster, resolver *access.Resolver, menus *menu.Expander, files Files) *Service {
	return &Service{
		repo:   repo,
		roster: roster,
		access: resolver,
		menus:  menus,
		files:  files,
	}
}

func (s *Service) engine(repo store.Repository) *clone.Engine {
	return clone.NewEngine(repo, s.files)
}

// NewSite is the input of CreateSite.
type NewSite struct {
	CourseID   int64                   `json:"courseid" validate:"required,gt=0"`
	OwnerID    int64                   `json:"ownerid" validate:"gte=0"`
	Name       string                  `json:"name" validate:"notblank,max=255"`
	Mode       models.DistributionMode `json:"mode" validate:"min=0,max=2"`
	HomeTitle  string                  `json:"hometitle" validate:"max=255"`
	Roster     models.Roster           `json:"roster"`
	Window     models.Window           `json:"window"`
	IsTemplate bool                    `json:"istemplate"`
}

// CreateSite creates a site with a blank homepage and an empty menu in
// one transaction. Course managers and editing teachers may create any
// site; other participants may only create their own site in a
// site-per-student course website.
func (s *Service) CreateSite(ctx context.Context, actor access.Actor, in NewSite) (*models.Site, error) {
	if err := check(in); err != nil {
		return nil, err
	}
	if err := checkWindow(in.Window); err != nil {
		return nil, err
	}
	if actor.Anonymous() {
		return nil, models.ErrPermissionDenied
	}
	if in.OwnerID == 0 {
		in.OwnerID = actor.UserID
	}
	if in.OwnerID != actor.UserID || in.Mode != models.ModeSitePerStudent {
		elevated, err := s.elevated(ctx, in.CourseID, actor)
		if err != nil {
			return nil, err
		}
		if !elevated {
			return nil, models.ErrPermissionDenied
		}
	}

	site := &models.Site{
		CourseID:   in.CourseID,
		OwnerID:    in.OwnerID,
		Name:       in.Name,
		Mode:       in.Mode,
		Roster:     in.Roster,
		Window:     in.Window,
		IsTemplate: in.IsTemplate,
	}
	title := in.HomeTitle
	if title == "" {
		title = menu.HomeTitle
	}

	err := s.repo.InTx(ctx, func(tx store.Repository) error {
		if err := tx.CreateSite(ctx, site); err != nil {
			return err
		}
		home := &models.Page{SiteID: site.ID, Title: title}
		if err := tx.CreatePage(ctx, home); err != nil {
			return err
		}
		m := &models.Menu{SiteID: site.ID}
		if err := tx.CreateMenu(ctx, m); err != nil {
			return err
		}
		site.Options = models.SiteOptions{HomepageID: home.ID, MenuID: m.ID}
		return tx.UpdateSite(ctx, site)
	})
	if err != nil {
		return nil, fmt.Errorf("create site: %w", err)
	}
	slog.Info("site created", "site_id", site.ID, "course_id", site.CourseID, "owner_id", site.OwnerID)
	return site, nil
}

func (s *Service) elevated(ctx context.Context, courseID int64, actor access.Actor) (bool, error) {
	roles, err := s.roster.CourseRoles(ctx, courseID, actor.UserID)
	if err != nil {
		return false, fmt.Errorf("course roles: %w", err)
	}
	return slices.ContainsFunc(roles, models.Role.IsElevated), nil
}

// SiteView is a site as presented to one viewer.
type SiteView struct {
	Site    *models.Site `json:"site"`
	Menu    []menu.Node  `json:"menu"`
	CanEdit bool         `json:"canedit"`
}

// ViewSite returns a site with its menu expanded for actor.
func (s *Service) ViewSite(ctx context.Context, actor access.Actor, siteID int64) (*SiteView, error) {
	site, err := s.site(ctx, s.repo, siteID)
	if err != nil {
		return nil, err
	}
	res := access.SiteResource(site)
	ok, err := s.access.CanView(ctx, actor, res)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, models.ErrPermissionDenied
	}
	canEdit, err := s.access.CanEdit(ctx, actor, res)
	if err != nil {
		return nil, err
	}
	nodes, err := s.menus.ExpandSite(ctx, site, menu.View{Actor: actor, Editor: canEdit})
	if err != nil {
		return nil, err
	}
	return &SiteView{Site: site, Menu: nodes, CanEdit: canEdit}, nil
}

// Menu expands the site's menu. The backend export shows hidden pages and
// stored titles and is only available to editors.
func (s *Service) Menu(ctx context.Context, actor access.Actor, siteID int64, backend bool) ([]menu.Node, error) {
	site, err := s.site(ctx, s.repo, siteID)
	if err != nil {
		return nil, err
	}
	res := access.SiteResource(site)
	canEdit, err := s.access.CanEdit(ctx, actor, res)
	if err != nil {
		return nil, err
	}
	if backend && !canEdit {
		return nil, models.ErrPermissionDenied
	}
	if !canEdit {
		ok, err := s.access.CanView(ctx, actor, res)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, models.ErrPermissionDenied
		}
	}
	return s.menus.ExpandSite(ctx, site, menu.View{Actor: actor, Backend: backend, Editor: canEdit})
}

// site loads a live site or returns ErrNotFound.
func (s *Service) site(ctx context.Context, repo store.Repository, id int64) (*models.Site, error) {
	site, err := repo.FindSite(ctx, id, store.Live)
	if err != nil {
		return nil, err
	}
	if site == nil {
		return nil, fmt.Errorf("site %d: %w", id, models.ErrNotFound)
	}
	return site, nil
}

// page loads a live page of siteID. A page of another site is reported as
// not found.
func (s *Service) page(ctx context.Context, repo store.Repository, siteID, pageID int64, vis store.Visibility) (*models.Site, *models.Page, error) {
	site, err := s.site(ctx, repo, siteID)
	if err != nil {
		return nil, nil, err
	}
	p, err := repo.FindPage(ctx, pageID, vis)
	if err != nil {
		return nil, nil, err
	}
	if p == nil || p.SiteID != site.ID {
		return nil, nil, fmt.Errorf("page %d: %w", pageID, models.ErrNotFound)
	}
	return site, p, nil
}

// scope returns the resource guarding a section or block: the live page
// that contains it, or the whole site when nothing does.
func (s *Service) scope(ctx context.Context, repo store.Repository, site *models.Site, kind models.EntityKind, id int64) (access.Resource, error) {
	t := tree.New(repo)
	if kind == models.KindBlock {
		sectionID, err := t.Parent(ctx, models.KindBlock, id)
		if err != nil {
			return access.Resource{}, err
		}
		if sectionID == 0 {
			return access.SiteResource(site), nil
		}
		id = sectionID
	}
	pageID, err := t.Parent(ctx, models.KindSection, id)
	if err != nil {
		return access.Resource{}, err
	}
	if pageID == 0 {
		return access.SiteResource(site), nil
	}
	p, err := repo.FindPage(ctx, pageID, store.Live)
	if err != nil {
		return access.Resource{}, err
	}
	if p == nil {
		return access.SiteResource(site), nil
	}
	return access.PageResource(site, p), nil
}

// requireEdit fails with ErrPermissionDenied unless actor may edit res.
func (s *Service) requireEdit(ctx context.Context, repo store.Repository, actor access.Actor, res access.Resource) error {
	ok, err := s.access.WithRepository(repo).CanEdit(ctx, actor, res)
	if err != nil {
		return err
	}
	if !ok {
		return models.ErrPermissionDenied
	}
	return nil
}
