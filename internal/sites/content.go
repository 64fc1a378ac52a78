// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package sites

import (
	"context"
	"encoding/json"
	"fmt"

	"coursesite/internal/access"
	"coursesite/internal/menu"
	"coursesite/internal/models"
	"coursesite/internal/store"
	"coursesite/internal/tree"
)

// PageInput is the input of CreatePage and UpdatePage. AddToMenu is only
// read on create.
type PageInput struct {
	Title     string        `json:"title" validate:"notblank,max=255"`
	Hidden    bool          `json:"hidden"`
	Window    models.Window `json:"window"`
	AddToMenu bool          `json:"addtomenu"`
}

// CreatePage adds a page to a site and optionally appends it to the menu.
func (s *Service) CreatePage(ctx context.Context, actor access.Actor, siteID int64, in PageInput) (*models.Page, error) {
	if err := check(in); err != nil {
		return nil, err
	}
	if err := checkWindow(in.Window); err != nil {
		return nil, err
	}
	page := &models.Page{Title: in.Title, Hidden: in.Hidden, Window: in.Window}
	err := s.repo.InTx(ctx, func(tx store.Repository) error {
		site, err := s.site(ctx, tx, siteID)
		if err != nil {
			return err
		}
		if err := s.requireEdit(ctx, tx, actor, access.SiteResource(site)); err != nil {
			return err
		}
		page.SiteID = site.ID
		if err := tx.CreatePage(ctx, page); err != nil {
			return err
		}
		if in.AddToMenu {
			return tree.New(tx).AppendChild(ctx, tree.MenuContainer(site.ID), page.ID)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("create page: %w", err)
	}
	return page, nil
}

// UpdatePage writes a page's title, hidden flag, and editing window. The
// site homepage cannot be hidden.
func (s *Service) UpdatePage(ctx context.Context, actor access.Actor, siteID, pageID int64, in PageInput) (*models.Page, error) {
	if err := check(in); err != nil {
		return nil, err
	}
	if err := checkWindow(in.Window); err != nil {
		return nil, err
	}
	var page *models.Page
	err := s.repo.InTx(ctx, func(tx store.Repository) error {
		site, p, err := s.page(ctx, tx, siteID, pageID, store.Live)
		if err != nil {
			return err
		}
		if err := s.requireEdit(ctx, tx, actor, access.PageResource(site, p)); err != nil {
			return err
		}
		if in.Hidden && site.IsHomepage(p.ID) {
			return models.ErrHomepageProtected
		}
		p.Title = in.Title
		p.Hidden = in.Hidden
		p.Window = in.Window
		page = p
		return tx.UpdatePage(ctx, p)
	})
	if err != nil {
		return nil, fmt.Errorf("update page %d: %w", pageID, err)
	}
	return page, nil
}

// SectionInput is the input of AddSection and UpdateSection.
type SectionInput struct {
	Title   string                `json:"title" validate:"max=255"`
	Layout  models.Layout         `json:"layout" validate:"required,min=1,max=4"`
	Options models.SectionOptions `json:"options"`
	Hidden  bool                  `json:"hidden"`
}

// AddSection creates a section and appends it to a page.
func (s *Service) AddSection(ctx context.Context, actor access.Actor, siteID, pageID int64, in SectionInput) (*models.Section, error) {
	if err := check(in); err != nil {
		return nil, err
	}
	section := &models.Section{Title: in.Title, Layout: in.Layout, Options: in.Options, Hidden: in.Hidden}
	err := s.repo.InTx(ctx, func(tx store.Repository) error {
		site, p, err := s.page(ctx, tx, siteID, pageID, store.Live)
		if err != nil {
			return err
		}
		if err := s.requireEdit(ctx, tx, actor, access.PageResource(site, p)); err != nil {
			return err
		}
		section.SiteID = site.ID
		if err := tx.CreateSection(ctx, section); err != nil {
			return err
		}
		return tree.New(tx).AppendChild(ctx, tree.PageContainer(p.ID), section.ID)
	})
	if err != nil {
		return nil, fmt.Errorf("add section: %w", err)
	}
	return section, nil
}

// UpdateSection writes a section's title, layout, options, and hidden flag.
func (s *Service) UpdateSection(ctx context.Context, actor access.Actor, siteID, sectionID int64, in SectionInput) (*models.Section, error) {
	if err := check(in); err != nil {
		return nil, err
	}
	var section *models.Section
	err := s.repo.InTx(ctx, func(tx store.Repository) error {
		site, sec, err := s.section(ctx, tx, siteID, sectionID, store.Live)
		if err != nil {
			return err
		}
		res, err := s.scope(ctx, tx, site, models.KindSection, sec.ID)
		if err != nil {
			return err
		}
		if err := s.requireEdit(ctx, tx, actor, res); err != nil {
			return err
		}
		sec.Title = in.Title
		sec.Layout = in.Layout
		sec.Options = in.Options
		sec.Hidden = in.Hidden
		section = sec
		return tx.UpdateSection(ctx, sec)
	})
	if err != nil {
		return nil, fmt.Errorf("update section %d: %w", sectionID, err)
	}
	return section, nil
}

func (s *Service) section(ctx context.Context, repo store.Repository, siteID, sectionID int64, vis store.Visibility) (*models.Site, *models.Section, error) {
	site, err := s.site(ctx, repo, siteID)
	if err != nil {
		return nil, nil, err
	}
	sec, err := repo.FindSection(ctx, sectionID, vis)
	if err != nil {
		return nil, nil, err
	}
	if sec == nil || sec.SiteID != site.ID {
		return nil, nil, fmt.Errorf("section %d: %w", sectionID, models.ErrNotFound)
	}
	return site, sec, nil
}

// BlockInput is the input of AddBlock and UpdateBlock. Content holds the
// type's payload: {"html": ...} for editor blocks, the picture button
// fields otherwise.
type BlockInput struct {
	Type    models.BlockType `json:"type" validate:"required,oneof=editor picturebutton"`
	Content json.RawMessage  `json:"content" validate:"required"`
	Hidden  bool             `json:"hidden"`
}

func (in BlockInput) decode() (models.BlockContent, error) {
	if err := check(in); err != nil {
		return nil, err
	}
	c, err := models.DecodeContentJSON(in.Type, in.Content)
	if err != nil {
		return nil, invalid("content", "malformed "+string(in.Type)+" content")
	}
	if err := checkContent(c); err != nil {
		return nil, err
	}
	return c, nil
}

// checkPageLink rejects a picture button pointing at a page outside the
// block's site.
func checkPageLink(ctx context.Context, repo store.Repository, siteID int64, c models.BlockContent) error {
	pb, ok := c.(models.PictureButtonContent)
	if !ok || pb.LinkType != models.LinkPage {
		return nil
	}
	p, err := repo.FindPage(ctx, pb.PageID, store.Live)
	if err != nil {
		return err
	}
	if p == nil || p.SiteID != siteID {
		return invalid("pageid", "must be a page of this site")
	}
	return nil
}

// AddBlock creates a block and appends it to a section.
func (s *Service) AddBlock(ctx context.Context, actor access.Actor, siteID, sectionID int64, in BlockInput) (*models.Block, error) {
	content, err := in.decode()
	if err != nil {
		return nil, err
	}
	block := &models.Block{Content: content, Hidden: in.Hidden}
	err = s.repo.InTx(ctx, func(tx store.Repository) error {
		site, sec, err := s.section(ctx, tx, siteID, sectionID, store.Live)
		if err != nil {
			return err
		}
		res, err := s.scope(ctx, tx, site, models.KindSection, sec.ID)
		if err != nil {
			return err
		}
		if err := s.requireEdit(ctx, tx, actor, res); err != nil {
			return err
		}
		if err := checkPageLink(ctx, tx, site.ID, content); err != nil {
			return err
		}
		block.SiteID = site.ID
		if err := tx.CreateBlock(ctx, block); err != nil {
			return err
		}
		return tree.New(tx).AppendChild(ctx, tree.SectionContainer(sec.ID), block.ID)
	})
	if err != nil {
		return nil, fmt.Errorf("add block: %w", err)
	}
	return block, nil
}

// UpdateBlock replaces a block's content and hidden flag. The block type
// cannot change.
func (s *Service) UpdateBlock(ctx context.Context, actor access.Actor, siteID, blockID int64, in BlockInput) (*models.Block, error) {
	content, err := in.decode()
	if err != nil {
		return nil, err
	}
	var block *models.Block
	err = s.repo.InTx(ctx, func(tx store.Repository) error {
		site, b, err := s.block(ctx, tx, siteID, blockID, store.Live)
		if err != nil {
			return err
		}
		res, err := s.scope(ctx, tx, site, models.KindBlock, b.ID)
		if err != nil {
			return err
		}
		if err := s.requireEdit(ctx, tx, actor, res); err != nil {
			return err
		}
		if b.Type() != in.Type {
			return invalid("type", "cannot change the type of a block")
		}
		if err := checkPageLink(ctx, tx, site.ID, content); err != nil {
			return err
		}
		b.Content = content
		b.Hidden = in.Hidden
		block = b
		return tx.UpdateBlock(ctx, b)
	})
	if err != nil {
		return nil, fmt.Errorf("update block %d: %w", blockID, err)
	}
	return block, nil
}

func (s *Service) block(ctx context.Context, repo store.Repository, siteID, blockID int64, vis store.Visibility) (*models.Site, *models.Block, error) {
	site, err := s.site(ctx, repo, siteID)
	if err != nil {
		return nil, nil, err
	}
	b, err := repo.FindBlock(ctx, blockID, vis)
	if err != nil {
		return nil, nil, err
	}
	if b == nil || b.SiteID != site.ID {
		return nil, nil, fmt.Errorf("block %d: %w", blockID, models.ErrNotFound)
	}
	return site, b, nil
}

// SectionView is a section with the blocks the viewer may see.
type SectionView struct {
	models.Section
	Blocks []models.Block `json:"blocks"`
}

// PageView is a page as presented to one viewer.
type PageView struct {
	Site     *models.Site  `json:"site"`
	Page     *models.Page  `json:"page"`
	Sections []SectionView `json:"sections"`
	Menu     []menu.Node   `json:"menu"`
	CanEdit  bool          `json:"canedit"`
}

// ViewPage resolves a page for actor: live sections and blocks in list
// order, with hidden ones shown only to editors, and the expanded menu.
func (s *Service) ViewPage(ctx context.Context, actor access.Actor, siteID, pageID int64) (*PageView, error) {
	site, p, err := s.page(ctx, s.repo, siteID, pageID, store.Live)
	if err != nil {
		return nil, err
	}
	res := access.PageResource(site, p)
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

	t := tree.New(s.repo)
	sections, err := t.Sections(ctx, p)
	if err != nil {
		return nil, err
	}
	view := &PageView{Site: site, Page: p, Sections: []SectionView{}, CanEdit: canEdit}
	for _, sec := range sections {
		if sec.Hidden && !canEdit {
			continue
		}
		blocks, err := t.Blocks(ctx, &sec)
		if err != nil {
			return nil, err
		}
		sv := SectionView{Section: sec, Blocks: []models.Block{}}
		for _, b := range blocks {
			if b.Hidden && !canEdit {
				continue
			}
			sv.Blocks = append(sv.Blocks, b)
		}
		view.Sections = append(view.Sections, sv)
	}

	siteEditor, err := s.access.CanEdit(ctx, actor, access.SiteResource(site))
	if err != nil {
		return nil, err
	}
	view.Menu, err = s.menus.ExpandSite(ctx, site, menu.View{Actor: actor, Editor: siteEditor})
	if err != nil {
		return nil, err
	}
	return view, nil
}
