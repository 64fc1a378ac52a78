// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package sites

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"

	"coursesite/internal/access"
	"coursesite/internal/clone"
	"coursesite/internal/models"
	"coursesite/internal/store"
)

// SetMenu replaces a site's menu tree. Every item must name a distinct
// live page of the site and the tree may have at most two levels.
func (s *Service) SetMenu(ctx context.Context, actor access.Actor, siteID int64, items []models.MenuItem) ([]models.MenuItem, error) {
	if err := models.ValidateMenu(items); err != nil {
		return nil, err
	}
	if items == nil {
		items = []models.MenuItem{}
	}
	err := s.repo.InTx(ctx, func(tx store.Repository) error {
		site, err := s.site(ctx, tx, siteID)
		if err != nil {
			return err
		}
		if err := s.requireEdit(ctx, tx, actor, access.SiteResource(site)); err != nil {
			return err
		}

		seen := make(map[int64]bool)
		for _, id := range models.MenuPageIDs(items) {
			if seen[id] {
				return fmt.Errorf("page %d listed twice: %w", id, models.ErrInvalidReference)
			}
			seen[id] = true
			p, err := tx.FindPage(ctx, id, store.Live)
			if err != nil {
				return err
			}
			if p == nil || p.SiteID != site.ID {
				return fmt.Errorf("page %d: %w", id, models.ErrInvalidReference)
			}
		}

		m, err := tx.FindMenu(ctx, site.Options.MenuID)
		if err != nil {
			return err
		}
		if m == nil || m.SiteID != site.ID {
			m = &models.Menu{SiteID: site.ID, Items: items}
			if err := tx.CreateMenu(ctx, m); err != nil {
				return err
			}
			site.Options.MenuID = m.ID
			return tx.UpdateSite(ctx, site)
		}
		return tx.UpdateMenu(ctx, m.ID, items)
	})
	if err != nil {
		return nil, fmt.Errorf("set menu of site %d: %w", siteID, err)
	}
	return items, nil
}

// EditorsInput is the input of SetEditors.
type EditorsInput struct {
	ResourceType models.ResourceType `json:"resourcetype" validate:"required,oneof=site page"`
	ResourceKey  int64               `json:"resourcekey" validate:"required,gt=0"`
	UserIDs      []int64             `json:"userids" validate:"dive,gt=0"`
}

// SetEditors makes in.UserIDs the exact grant holders of the site or one
// of its pages. Only site editors may change grants.
func (s *Service) SetEditors(ctx context.Context, actor access.Actor, siteID int64, in EditorsInput) (added, removed int, err error) {
	if err := check(in); err != nil {
		return 0, 0, err
	}
	err = s.repo.InTx(ctx, func(tx store.Repository) error {
		site, err := s.site(ctx, tx, siteID)
		if err != nil {
			return err
		}
		if err := s.requireEdit(ctx, tx, actor, access.SiteResource(site)); err != nil {
			return err
		}
		switch in.ResourceType {
		case models.ResourceSite:
			if in.ResourceKey != site.ID {
				return fmt.Errorf("site %d: %w", in.ResourceKey, models.ErrNotFound)
			}
		case models.ResourcePage:
			if _, _, err := s.page(ctx, tx, site.ID, in.ResourceKey, store.Live); err != nil {
				return err
			}
		}
		added, removed, err = s.access.WithRepository(tx).SetEditors(ctx, in.ResourceType, in.ResourceKey, actor.UserID, in.UserIDs)
		return err
	})
	if err != nil {
		return 0, 0, err
	}
	slog.Info("editors updated", "site_id", siteID, "resource", in.ResourceType, "key", in.ResourceKey,
		"added", added, "removed", removed)
	return added, removed, nil
}

// FileUpload is an attachment to store on a block.
type FileUpload struct {
	Area        string
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
}

// AttachFile uploads a file to object storage and records it on a block.
// The object is removed again when the row cannot be written.
func (s *Service) AttachFile(ctx context.Context, actor access.Actor, siteID, blockID int64, up FileUpload) (*models.BlockFile, error) {
	switch up.Area {
	case models.AreaContent, models.AreaButtonFile, models.AreaPictureButton:
	default:
		return nil, invalid("area", "unknown file area")
	}
	name := path.Base(strings.ReplaceAll(up.Filename, `\`, "/"))
	if name == "." || name == "/" || strings.TrimSpace(name) == "" {
		return nil, invalid("filename", "this field cannot be blank")
	}
	if s.files == nil {
		return nil, ErrNoStorage
	}

	site, b, err := s.block(ctx, s.repo, siteID, blockID, store.Live)
	if err != nil {
		return nil, err
	}
	res, err := s.scope(ctx, s.repo, site, models.KindBlock, b.ID)
	if err != nil {
		return nil, err
	}
	if err := s.requireEdit(ctx, s.repo, actor, res); err != nil {
		return nil, err
	}

	f := &models.BlockFile{
		BlockID:     b.ID,
		SiteID:      site.ID,
		Area:        up.Area,
		Filename:    name,
		ContentType: up.ContentType,
		SizeBytes:   up.Size,
		Key:         models.BlockFileKey(site.ID, b.ID, up.Area, name),
	}
	if err := s.files.Upload(ctx, f.Key, f.ContentType, up.Body, up.Size); err != nil {
		return nil, fmt.Errorf("upload block file: %w", err)
	}
	if err := s.repo.CreateBlockFile(ctx, f); err != nil {
		if derr := s.files.DeleteFile(context.WithoutCancel(ctx), f.Key); derr != nil {
			slog.Warn("remove orphaned upload failed", "key", f.Key, "error", derr)
		}
		return nil, err
	}
	return f, nil
}

// FileView is an attachment with a download link.
type FileView struct {
	models.BlockFile
	URL string `json:"url"`
}

// BlockFiles lists a block's attachments with download links. Files of a
// hidden block are only listed for editors.
func (s *Service) BlockFiles(ctx context.Context, actor access.Actor, siteID, blockID int64) ([]FileView, error) {
	if s.files == nil {
		return nil, ErrNoStorage
	}
	site, b, err := s.block(ctx, s.repo, siteID, blockID, store.Live)
	if err != nil {
		return nil, err
	}
	res, err := s.scope(ctx, s.repo, site, models.KindBlock, b.ID)
	if err != nil {
		return nil, err
	}
	ok, err := s.access.CanView(ctx, actor, res)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, models.ErrPermissionDenied
	}
	if b.Hidden {
		canEdit, err := s.access.CanEdit(ctx, actor, res)
		if err != nil {
			return nil, err
		}
		if !canEdit {
			return nil, fmt.Errorf("block %d: %w", b.ID, models.ErrNotFound)
		}
	}

	files, err := s.repo.ListBlockFiles(ctx, b.ID)
	if err != nil {
		return nil, err
	}
	out := make([]FileView, 0, len(files))
	for _, f := range files {
		u, err := s.files.DownloadURL(ctx, f.Key)
		if err != nil {
			return nil, err
		}
		out = append(out, FileView{BlockFile: f, URL: u})
	}
	return out, nil
}

// CopyInput is the input of CopySite.
type CopyInput struct {
	OwnerID int64  `json:"ownerid" validate:"gte=0"`
	Name    string `json:"name" validate:"notblank,max=255"`
}

// CopySite creates a new site owned by in.OwnerID from the content of an
// existing site. Page links inside copied HTML are rewritten to the copy.
func (s *Service) CopySite(ctx context.Context, actor access.Actor, srcID int64, in CopyInput) (*models.Site, error) {
	if err := check(in); err != nil {
		return nil, err
	}
	src, err := s.site(ctx, s.repo, srcID)
	if err != nil {
		return nil, err
	}
	if err := s.requireEdit(ctx, s.repo, actor, access.SiteResource(src)); err != nil {
		return nil, err
	}
	if in.OwnerID == 0 {
		in.OwnerID = actor.UserID
	}

	site := &models.Site{
		CourseID: src.CourseID,
		OwnerID:  in.OwnerID,
		Name:     in.Name,
		Mode:     src.Mode,
		Roster:   src.Roster,
		Window:   src.Window,
	}
	if _, err := s.engine(s.repo).CreateFromTemplate(ctx, src.ID, site, clone.Options{RewriteLinks: true}); err != nil {
		return nil, err
	}
	return s.site(ctx, s.repo, site.ID)
}

// DistributeInput is the input of DistributePage.
type DistributeInput struct {
	UserIDs []int64 `json:"userids" validate:"required,min=1,dive,gt=0"`
}

// DistributePage gives each listed user an own copy of a page, with an
// edit grant and a menu entry, for page-per-student course websites.
func (s *Service) DistributePage(ctx context.Context, actor access.Actor, siteID, pageID int64, in DistributeInput) ([]models.Page, error) {
	if err := check(in); err != nil {
		return nil, err
	}
	site, p, err := s.page(ctx, s.repo, siteID, pageID, store.Live)
	if err != nil {
		return nil, err
	}
	if err := s.requireEdit(ctx, s.repo, actor, access.SiteResource(site)); err != nil {
		return nil, err
	}
	if site.Mode != models.ModePagePerStudent {
		return nil, invalid("mode", "pages are only distributed in page-per-student sites")
	}
	return s.engine(s.repo).PagePerStudent(ctx, p.ID, in.UserIDs, actor.UserID)
}

// CopySection copies a section with its blocks to the end of a page of
// the same site. The caller needs edit rights on the page holding the
// source section as well as on the destination page.
func (s *Service) CopySection(ctx context.Context, actor access.Actor, siteID, sectionID, dstPageID int64) (*models.Section, error) {
	var sec *models.Section
	err := s.repo.InTx(ctx, func(tx store.Repository) error {
		src, err := s.resource(ctx, tx, models.KindSection, siteID, sectionID, store.Live)
		if err != nil {
			return err
		}
		site, dst, err := s.page(ctx, tx, siteID, dstPageID, store.Live)
		if err != nil {
			return err
		}
		if err := s.requireEdit(ctx, tx, actor, src); err != nil {
			return err
		}
		if err := s.requireEdit(ctx, tx, actor, access.PageResource(site, dst)); err != nil {
			return err
		}
		sec, _, err = s.engine(tx).CloneSection(ctx, sectionID, dst.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return sec, nil
}
