// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package clone

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"

	"coursesite/internal/models"
	"coursesite/internal/store"
)

// PageOptions tune a page copy.
type PageOptions struct {
	// Title overrides the copied title when set.
	Title string
	// GrantTo receives an explicit edit grant on the new page.
	GrantTo int64
	// GrantedBy is recorded as the owner of that grant.
	GrantedBy int64
	// AddToMenu appends the new page to the destination site's menu.
	AddToMenu bool
}

// ClonePage copies a page with its live sections and blocks into the site
// dstSiteID.
func (e *Engine) ClonePage(ctx context.Context, pageID, dstSiteID int64, opts PageOptions) (*models.Page, *Mapping, error) {
	src, err := e.repo.FindPage(ctx, pageID, store.Live)
	if err != nil {
		return nil, nil, fmt.Errorf("clone page: %w", err)
	}
	if src == nil {
		return nil, nil, fmt.Errorf("clone page %d: %w", pageID, models.ErrNotFound)
	}

	var page *models.Page
	m, err := e.transact(ctx, src.SiteID, dstSiteID, func(r *run) error {
		var err error
		page, err = r.clonePage(ctx, src, opts)
		return err
	})
	if err != nil {
		return nil, nil, fmt.Errorf("clone page %d into site %d: %w", pageID, dstSiteID, err)
	}
	return page, m, nil
}

func (r *run) clonePage(ctx context.Context, src *models.Page, opts PageOptions) (*models.Page, error) {
	dst, err := r.repo.FindSite(ctx, r.dstSite, store.Live)
	if err != nil {
		return nil, err
	}
	if dst == nil {
		return nil, fmt.Errorf("site %d: %w", r.dstSite, models.ErrNotFound)
	}

	sections, blocks, err := r.subtree(ctx, src.SectionIDs)
	if err != nil {
		return nil, err
	}

	copied := *src
	if opts.Title != "" {
		copied.Title = opts.Title
	}
	newPages, err := r.duplicatePages(ctx, []models.Page{copied})
	if err != nil {
		return nil, err
	}
	newSections, err := r.duplicateSections(ctx, sections)
	if err != nil {
		return nil, err
	}
	newBlocks, err := r.duplicateBlocks(ctx, blocks)
	if err != nil {
		return nil, err
	}

	if err := r.rewriteLists(ctx, newPages, newSections); err != nil {
		return nil, err
	}
	if err := r.rewriteBlocks(ctx, newBlocks, false); err != nil {
		return nil, err
	}

	page := newPages[0]
	page.SectionIDs = remapIDs(src.SectionIDs, r.m.Sections)

	if opts.GrantTo > 0 {
		grant := &models.Permission{
			ResourceType: models.ResourcePage,
			ResourceKey:  page.ID,
			UserID:       opts.GrantTo,
			OwnerID:      opts.GrantedBy,
		}
		if err := r.repo.CreatePermission(ctx, grant); err != nil {
			return nil, err
		}
	}
	if opts.AddToMenu {
		if err := r.appendMenuItem(ctx, dst, page.ID); err != nil {
			return nil, err
		}
	}
	return &page, nil
}

// subtree loads the live sections listed in sectionIDs and their live
// blocks, skipping rows of other sites.
func (r *run) subtree(ctx context.Context, sectionIDs []int64) ([]models.Section, []models.Block, error) {
	var (
		sections []models.Section
		blocks   []models.Block
		seen     = map[int64]bool{}
		seenB    = map[int64]bool{}
	)
	for _, id := range sectionIDs {
		s, err := r.repo.FindSection(ctx, id, store.Live)
		if err != nil {
			return nil, nil, err
		}
		if s == nil || s.SiteID != r.srcSite || seen[s.ID] {
			continue
		}
		seen[s.ID] = true
		sections = append(sections, *s)

		sb, err := r.blocksOf(ctx, s, seenB)
		if err != nil {
			return nil, nil, err
		}
		blocks = append(blocks, sb...)
	}
	return sections, blocks, nil
}

// blocksOf loads the live blocks of s that are not yet in seen.
func (r *run) blocksOf(ctx context.Context, s *models.Section, seen map[int64]bool) ([]models.Block, error) {
	var out []models.Block
	for _, id := range s.BlockIDs {
		if seen[id] {
			continue
		}
		seen[id] = true
		b, err := r.repo.FindBlock(ctx, id, store.Live)
		if err != nil {
			return nil, err
		}
		if b == nil || b.SiteID != r.srcSite {
			continue
		}
		out = append(out, *b)
	}
	return out, nil
}

func (r *run) appendMenuItem(ctx context.Context, site *models.Site, pageID int64) error {
	menu, err := r.repo.FindMenu(ctx, site.Options.MenuID)
	if err != nil {
		return err
	}
	if menu == nil || menu.SiteID != site.ID {
		return fmt.Errorf("menu of site %d: %w", site.ID, models.ErrNotFound)
	}
	for _, it := range menu.Items {
		if it.PageID == pageID {
			return nil
		}
	}
	return r.repo.UpdateMenu(ctx, menu.ID, append(menu.Items, models.MenuItem{PageID: pageID}))
}

// PagePerStudent gives every student an own copy of a template page in the
// same site, with an edit grant and a menu entry. All copies are made in
// one transaction; when one fails, the attachments already copied for
// earlier students are removed again.
func (e *Engine) PagePerStudent(ctx context.Context, templatePageID int64, studentIDs []int64, grantedBy int64) ([]models.Page, error) {
	src, err := e.repo.FindPage(ctx, templatePageID, store.Live)
	if err != nil {
		return nil, fmt.Errorf("page per student: %w", err)
	}
	if src == nil {
		return nil, fmt.Errorf("page per student %d: %w", templatePageID, models.ErrNotFound)
	}

	var pages []models.Page
	_, err = e.transact(ctx, src.SiteID, src.SiteID, func(r *run) error {
		for _, student := range studentIDs {
			r.m = newMapping()
			p, err := r.clonePage(ctx, src, PageOptions{
				GrantTo:   student,
				GrantedBy: grantedBy,
				AddToMenu: true,
			})
			if err != nil {
				return fmt.Errorf("page for user %d: %w", student, err)
			}
			pages = append(pages, *p)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("page per student %d: %w", templatePageID, err)
	}
	slog.Info("pages distributed", "template", templatePageID, "students", len(studentIDs))
	return pages, nil
}

// CloneSection copies a live section with its live blocks and appends the
// copy to the page dstPageID, which may belong to another site.
func (e *Engine) CloneSection(ctx context.Context, sectionID, dstPageID int64) (*models.Section, *Mapping, error) {
	src, err := e.repo.FindSection(ctx, sectionID, store.Live)
	if err != nil {
		return nil, nil, fmt.Errorf("clone section: %w", err)
	}
	if src == nil {
		return nil, nil, fmt.Errorf("clone section %d: %w", sectionID, models.ErrNotFound)
	}
	dstPage, err := e.repo.FindPage(ctx, dstPageID, store.Live)
	if err != nil {
		return nil, nil, fmt.Errorf("clone section: %w", err)
	}
	if dstPage == nil {
		return nil, nil, fmt.Errorf("clone section into page %d: %w", dstPageID, models.ErrNotFound)
	}

	var section *models.Section
	m, err := e.transact(ctx, src.SiteID, dstPage.SiteID, func(r *run) error {
		blocks, err := r.blocksOf(ctx, src, map[int64]bool{})
		if err != nil {
			return err
		}
		newSections, err := r.duplicateSections(ctx, []models.Section{*src})
		if err != nil {
			return err
		}
		newBlocks, err := r.duplicateBlocks(ctx, blocks)
		if err != nil {
			return err
		}
		if err := r.rewriteLists(ctx, nil, newSections); err != nil {
			return err
		}
		if err := r.rewriteBlocks(ctx, newBlocks, false); err != nil {
			return err
		}

		section = &newSections[0]
		section.BlockIDs = remapIDs(src.BlockIDs, r.m.Blocks)
		return r.repo.SetPageSections(ctx, dstPage.ID, append(dstPage.SectionIDs, section.ID))
	})
	if err != nil {
		return nil, nil, fmt.Errorf("clone section %d into page %d: %w", sectionID, dstPageID, err)
	}
	return section, m, nil
}

var pageLinkPattern = regexp.MustCompile(`/sites/(\d+)/pages/(\d+)`)

// RewriteLinks replaces links of the form /sites/{src}/pages/{id} in s
// with links to the copied page in dst. Links to pages with no copy and
// links to other sites are left alone.
func RewriteLinks(s string, src, dst int64, pages map[int64]int64) string {
	if s == "" {
		return s
	}
	return pageLinkPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := pageLinkPattern.FindStringSubmatch(match)
		siteID, err1 := strconv.ParseInt(parts[1], 10, 64)
		pageID, err2 := strconv.ParseInt(parts[2], 10, 64)
		if err1 != nil || err2 != nil || siteID != src {
			return match
		}
		newID, ok := pages[pageID]
		if !ok {
			return match
		}
		return fmt.Sprintf("/sites/%d/pages/%d", dst, newID)
	})
}
