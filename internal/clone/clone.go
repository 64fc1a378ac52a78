// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package clone deep-copies sites, pages, and sections. Every copy runs in
// two passes inside one transaction: the duplicate pass writes new rows and
// records an old-to-new ID mapping per entity kind, then the rewrite pass
// points every reference list, menu tree, and site option at the copies.
// References whose target was not copied are dropped.
package clone

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"coursesite/internal/models"
	"coursesite/internal/store"
)

// Files copies and removes block attachments in object storage.
type Files interface {
	CopyFile(ctx context.Context, srcKey, dstKey string) error
	DeleteFile(ctx context.Context, key string) error
}

// Mapping records the ID each copied row received, per entity kind.
type Mapping struct {
	Menus    map[int64]int64 `json:"menus"`
	Pages    map[int64]int64 `json:"pages"`
	Sections map[int64]int64 `json:"sections"`
	Blocks   map[int64]int64 `json:"blocks"`
}

func newMapping() *Mapping {
	return &Mapping{
		Menus:    map[int64]int64{},
		Pages:    map[int64]int64{},
		Sections: map[int64]int64{},
		Blocks:   map[int64]int64{},
	}
}

// remapIDs rewrites a reference list, dropping IDs with no copy.
func remapIDs(ids []int64, mapping map[int64]int64) []int64 {
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if newID, ok := mapping[id]; ok && !slices.Contains(out, newID) {
			out = append(out, newID)
		}
	}
	return out
}

// Options tune a site copy.
type Options struct {
	// RewriteLinks substitutes links to source pages embedded in block
	// HTML with links to their copies.
	RewriteLinks bool
}

// Engine performs copies against a repository and object storage.
type Engine struct {
	repo  store.Repository
	files Files
}

// NewEngine creates an Engine. files may be nil when no block carries
// attachments; copying an attachment without it fails.
func NewEngine(repo store.Repository, files Files) *Engine {
	return &Engine{repo: repo, files: files}
}

// run is the state of one top-level copy.
type run struct {
	repo    store.Repository
	files   Files
	srcSite int64
	dstSite int64
	m       *Mapping
	copied  []string // object keys written, removed again on failure
}

// transact runs fn in one transaction and removes copied objects when it
// fails.
func (e *Engine) transact(ctx context.Context, srcSite, dstSite int64, fn func(*run) error) (*Mapping, error) {
	r := &run{files: e.files, srcSite: srcSite, dstSite: dstSite, m: newMapping()}
	err := e.repo.InTx(ctx, func(tx store.Repository) error {
		r.repo = tx
		return fn(r)
	})
	if err != nil {
		r.cleanup(ctx)
		return nil, err
	}
	return r.m, nil
}

func (r *run) cleanup(ctx context.Context) {
	for _, key := range r.copied {
		if err := r.files.DeleteFile(context.WithoutCancel(ctx), key); err != nil {
			slog.Warn("clone cleanup: delete copied file failed", "key", key, "error", err)
		}
	}
}

// CloneSite copies every live menu, page, section, and block of the source
// site into dst and repoints dst's homepage and menu at the copies.
func (e *Engine) CloneSite(ctx context.Context, srcID int64, dst *models.Site, opts Options) (*Mapping, error) {
	src, err := e.repo.FindSite(ctx, srcID, store.Live)
	if err != nil {
		return nil, fmt.Errorf("clone site: %w", err)
	}
	if src == nil {
		return nil, fmt.Errorf("clone site %d: %w", srcID, models.ErrNotFound)
	}
	if dst == nil || dst.ID == 0 || dst.ID == src.ID {
		return nil, fmt.Errorf("clone site %d: %w", srcID, models.ErrInvalidReference)
	}

	m, err := e.transact(ctx, src.ID, dst.ID, func(r *run) error {
		return r.cloneSite(ctx, src, dst, opts)
	})
	if err != nil {
		return nil, fmt.Errorf("clone site %d into %d: %w", src.ID, dst.ID, err)
	}
	slog.Info("site cloned", "src", src.ID, "dst", dst.ID,
		"pages", len(m.Pages), "sections", len(m.Sections), "blocks", len(m.Blocks))
	return m, nil
}

// CreateFromTemplate creates a new site from the fields of site and fills
// it with a copy of the template's content, in one transaction.
func (e *Engine) CreateFromTemplate(ctx context.Context, templateID int64, site *models.Site, opts Options) (*Mapping, error) {
	var mapping *Mapping
	err := e.repo.InTx(ctx, func(tx store.Repository) error {
		site.IsTemplate = false
		site.Options = models.SiteOptions{}
		if err := tx.CreateSite(ctx, site); err != nil {
			return err
		}
		var err error
		mapping, err = NewEngine(tx, e.files).CloneSite(ctx, templateID, site, opts)
		return err
	})
	if err != nil {
		return nil, err
	}
	return mapping, nil
}

func (r *run) cloneSite(ctx context.Context, src, dst *models.Site, opts Options) error {
	menus, err := r.repo.ListMenus(ctx, src.ID)
	if err != nil {
		return err
	}
	pages, err := r.repo.ListPages(ctx, src.ID, store.Live)
	if err != nil {
		return err
	}
	sections, err := r.repo.ListSections(ctx, src.ID, store.Live)
	if err != nil {
		return err
	}
	blocks, err := r.repo.ListBlocks(ctx, src.ID, store.Live)
	if err != nil {
		return err
	}

	// Duplicate pass, in dependency order.
	newMenus := make([]models.Menu, 0, len(menus))
	for _, menu := range menus {
		c := models.Menu{SiteID: dst.ID, Items: menu.Items}
		if err := r.repo.CreateMenu(ctx, &c); err != nil {
			return err
		}
		r.m.Menus[menu.ID] = c.ID
		newMenus = append(newMenus, c)
	}
	newPages, err := r.duplicatePages(ctx, pages)
	if err != nil {
		return err
	}
	newSections, err := r.duplicateSections(ctx, sections)
	if err != nil {
		return err
	}
	newBlocks, err := r.duplicateBlocks(ctx, blocks)
	if err != nil {
		return err
	}

	// Rewrite pass.
	if err := r.rewriteLists(ctx, newPages, newSections); err != nil {
		return err
	}
	for _, menu := range newMenus {
		if err := r.repo.UpdateMenu(ctx, menu.ID, models.RemapMenu(menu.Items, r.m.Pages)); err != nil {
			return err
		}
	}
	if err := r.rewriteBlocks(ctx, newBlocks, opts.RewriteLinks); err != nil {
		return err
	}

	dst.Options = models.SiteOptions{
		HomepageID: r.m.Pages[src.Options.HomepageID],
		MenuID:     r.m.Menus[src.Options.MenuID],
	}
	return r.repo.UpdateSite(ctx, dst)
}

// duplicatePages inserts copies that still carry the source section IDs.
func (r *run) duplicatePages(ctx context.Context, pages []models.Page) ([]models.Page, error) {
	out := make([]models.Page, 0, len(pages))
	for _, p := range pages {
		c := models.Page{
			SiteID:     r.dstSite,
			Title:      p.Title,
			Hidden:     p.Hidden,
			SectionIDs: p.SectionIDs,
			Window:     p.Window,
		}
		if err := r.repo.CreatePage(ctx, &c); err != nil {
			return nil, err
		}
		r.m.Pages[p.ID] = c.ID
		out = append(out, c)
	}
	return out, nil
}

// duplicateSections inserts copies that still carry the source block IDs.
func (r *run) duplicateSections(ctx context.Context, sections []models.Section) ([]models.Section, error) {
	out := make([]models.Section, 0, len(sections))
	for _, s := range sections {
		c := models.Section{
			SiteID:   r.dstSite,
			Title:    s.Title,
			Layout:   s.Layout,
			Options:  s.Options,
			BlockIDs: s.BlockIDs,
			Hidden:   s.Hidden,
		}
		if err := r.repo.CreateSection(ctx, &c); err != nil {
			return nil, err
		}
		r.m.Sections[s.ID] = c.ID
		out = append(out, c)
	}
	return out, nil
}

// duplicateBlocks inserts block copies and copies their attachments into
// the destination namespace keyed by the new block ID.
func (r *run) duplicateBlocks(ctx context.Context, blocks []models.Block) ([]models.Block, error) {
	out := make([]models.Block, 0, len(blocks))
	for _, b := range blocks {
		c := models.Block{SiteID: r.dstSite, Content: b.Content, Hidden: b.Hidden}
		if err := r.repo.CreateBlock(ctx, &c); err != nil {
			return nil, err
		}
		r.m.Blocks[b.ID] = c.ID
		if err := r.copyFiles(ctx, b.ID, c.ID); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

func (r *run) copyFiles(ctx context.Context, srcBlock, dstBlock int64) error {
	files, err := r.repo.ListBlockFiles(ctx, srcBlock)
	if err != nil {
		return err
	}
	if len(files) > 0 && r.files == nil {
		return fmt.Errorf("copy files of block %d: no object storage configured", srcBlock)
	}
	for _, f := range files {
		key := models.BlockFileKey(r.dstSite, dstBlock, f.Area, f.Filename)
		if err := r.files.CopyFile(ctx, f.Key, key); err != nil {
			return err
		}
		r.copied = append(r.copied, key)

		c := models.BlockFile{
			BlockID:     dstBlock,
			SiteID:      r.dstSite,
			Area:        f.Area,
			Filename:    f.Filename,
			ContentType: f.ContentType,
			SizeBytes:   f.SizeBytes,
			Key:         key,
		}
		if err := r.repo.CreateBlockFile(ctx, &c); err != nil {
			return err
		}
	}
	return nil
}

// rewriteLists points copied pages and sections at copied children.
func (r *run) rewriteLists(ctx context.Context, pages []models.Page, sections []models.Section) error {
	for _, p := range pages {
		if err := r.repo.SetPageSections(ctx, p.ID, remapIDs(p.SectionIDs, r.m.Sections)); err != nil {
			return err
		}
	}
	for _, s := range sections {
		if err := r.repo.SetSectionBlocks(ctx, s.ID, remapIDs(s.BlockIDs, r.m.Blocks)); err != nil {
			return err
		}
	}
	return nil
}

// rewriteBlocks repoints picture-button page links at copied pages and,
// when asked, rewrites page URLs embedded in block HTML.
func (r *run) rewriteBlocks(ctx context.Context, blocks []models.Block, rewriteLinks bool) error {
	for _, b := range blocks {
		content, changed := r.rewriteContent(b.Content, rewriteLinks)
		if !changed {
			continue
		}
		b.Content = content
		if err := r.repo.UpdateBlock(ctx, &b); err != nil {
			return err
		}
	}
	return nil
}

func (r *run) rewriteContent(c models.BlockContent, rewriteLinks bool) (models.BlockContent, bool) {
	switch v := c.(type) {
	case models.EditorContent:
		if !rewriteLinks {
			return c, false
		}
		html := RewriteLinks(v.HTML, r.srcSite, r.dstSite, r.m.Pages)
		return models.EditorContent{HTML: html}, html != v.HTML
	case models.PictureButtonContent:
		orig := v
		if v.LinkType == models.LinkPage && v.PageID != 0 {
			v.PageID = r.pageLink(v.PageID)
		}
		if rewriteLinks {
			v.HTML = RewriteLinks(v.HTML, r.srcSite, r.dstSite, r.m.Pages)
			v.URL = RewriteLinks(v.URL, r.srcSite, r.dstSite, r.m.Pages)
		}
		return v, v != orig
	}
	return c, false
}

// pageLink maps a page link target. A link to a page that was not copied
// still resolves when the copy stays within the source site; otherwise it
// is cleared.
func (r *run) pageLink(pageID int64) int64 {
	if newID, ok := r.m.Pages[pageID]; ok {
		return newID
	}
	if r.srcSite == r.dstSite {
		return pageID
	}
	return 0
}
