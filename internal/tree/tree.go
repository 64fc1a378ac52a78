// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package tree maintains the ordered reference lists that make up a site's
// content tree: a page lists its sections, a section lists its blocks, and
// a site's menu lists its top-level pages. Lists are always written whole.
// Reads resolve each ID and silently skip missing or deleted children
// without touching the stored list.
package tree

import (
	"context"
	"fmt"
	"slices"

	"coursesite/internal/models"
	"coursesite/internal/store"
)

// Kind is a container kind.
type Kind string

const (
	// PageKind lists section IDs.
	PageKind Kind = "page"
	// SectionKind lists block IDs.
	SectionKind Kind = "section"
	// MenuKind lists the top-level page IDs of a site's menu. Its
	// container ID is the site ID.
	MenuKind Kind = "menu"
)

// Container addresses one reference list.
type Container struct {
	Kind Kind
	ID   int64
}

// PageContainer returns the section list of a page.
func PageContainer(id int64) Container { return Container{Kind: PageKind, ID: id} }

// SectionContainer returns the block list of a section.
func SectionContainer(id int64) Container { return Container{Kind: SectionKind, ID: id} }

// MenuContainer returns the top-level menu list of a site.
func MenuContainer(siteID int64) Container { return Container{Kind: MenuKind, ID: siteID} }

// childKind is the entity kind stored in a container's list.
func (c Container) childKind() models.EntityKind {
	switch c.Kind {
	case PageKind:
		return models.KindSection
	case SectionKind:
		return models.KindBlock
	}
	return models.KindPage
}

// Model reads and writes reference lists through a repository.
type Model struct {
	repo store.Repository
}

// New creates a Model over repo.
func New(repo store.Repository) *Model {
	return &Model{repo: repo}
}

// inTx runs fn with a Model bound to one transaction.
func (m *Model) inTx(ctx context.Context, fn func(*Model) error) error {
	return m.repo.InTx(ctx, func(r store.Repository) error {
		return fn(&Model{repo: r})
	})
}

// Children returns the stored list of a container, including references
// to children that are deleted or missing.
func (m *Model) Children(ctx context.Context, c Container) ([]int64, error) {
	_, ids, err := m.load(ctx, c)
	return ids, err
}

// SetChildren replaces a container's list. Every ID must name an existing
// child (deleted or not) of the container's site and appear at most once.
func (m *Model) SetChildren(ctx context.Context, c Container, ids []int64) error {
	return m.inTx(ctx, func(tm *Model) error {
		siteID, _, err := tm.load(ctx, c)
		if err != nil {
			return err
		}
		if err := tm.checkChildren(ctx, c, siteID, ids); err != nil {
			return err
		}
		return tm.store(ctx, c, ids)
	})
}

// AppendChild adds id at the end of the list unless it is already present.
func (m *Model) AppendChild(ctx context.Context, c Container, id int64) error {
	return m.inTx(ctx, func(tm *Model) error {
		siteID, ids, err := tm.load(ctx, c)
		if err != nil {
			return err
		}
		if slices.Contains(ids, id) {
			return nil
		}
		if err := tm.checkChildren(ctx, c, siteID, []int64{id}); err != nil {
			return err
		}
		return tm.store(ctx, c, append(ids, id))
	})
}

// Reorder applies a full order computed by a client that only sees live
// children. Stored references to deleted children the client left out are
// kept at the end so a later restore brings them back in place. References
// to rows that no longer exist are dropped. It returns the list written.
func (m *Model) Reorder(ctx context.Context, c Container, visible []int64) ([]int64, error) {
	var written []int64
	err := m.inTx(ctx, func(tm *Model) error {
		siteID, stored, err := tm.load(ctx, c)
		if err != nil {
			return err
		}
		if err := tm.checkChildren(ctx, c, siteID, visible); err != nil {
			return err
		}

		written = slices.Clone(visible)
		for _, id := range stored {
			if slices.Contains(visible, id) {
				continue
			}
			deleted, exists, err := tm.childState(ctx, c.childKind(), id)
			if err != nil {
				return err
			}
			if exists && deleted {
				written = append(written, id)
			}
		}
		return tm.store(ctx, c, written)
	})
	if err != nil {
		return nil, err
	}
	return written, nil
}

// Move takes childID out of one container and inserts it into another, in
// one transaction. position counts live children of the destination; a
// position past the end appends. from and to may be the same container.
func (m *Model) Move(ctx context.Context, childID int64, from, to Container, position int) error {
	if from.Kind != to.Kind || from.Kind == MenuKind {
		return fmt.Errorf("move %s to %s: %w", from.Kind, to.Kind, models.ErrInvalidReference)
	}
	return m.inTx(ctx, func(tm *Model) error {
		fromSite, src, err := tm.load(ctx, from)
		if err != nil {
			return err
		}
		idx := slices.Index(src, childID)
		if idx < 0 {
			return fmt.Errorf("%s %d not in %s %d: %w", from.childKind(), childID, from.Kind, from.ID, models.ErrInvalidReference)
		}
		src = slices.Delete(slices.Clone(src), idx, idx+1)

		dst := src
		if to != from {
			toSite, stored, err := tm.load(ctx, to)
			if err != nil {
				return err
			}
			if toSite != fromSite {
				return fmt.Errorf("move across sites: %w", models.ErrInvalidReference)
			}
			dst = slices.DeleteFunc(slices.Clone(stored), func(id int64) bool { return id == childID })
		}

		at, err := tm.insertIndex(ctx, to.childKind(), dst, position)
		if err != nil {
			return err
		}
		dst = slices.Insert(dst, at, childID)

		if to != from {
			if err := tm.store(ctx, from, src); err != nil {
				return err
			}
		}
		return tm.store(ctx, to, dst)
	})
}

// insertIndex maps a position among live children to an index in the
// stored list.
func (m *Model) insertIndex(ctx context.Context, kind models.EntityKind, ids []int64, position int) (int, error) {
	if position <= 0 {
		return 0, nil
	}
	live := 0
	for i, id := range ids {
		deleted, exists, err := m.childState(ctx, kind, id)
		if err != nil {
			return 0, err
		}
		if exists && !deleted {
			live++
			if live == position {
				return i + 1, nil
			}
		}
	}
	return len(ids), nil
}

// Parent returns the ID of the live container that references a section
// or block, or 0 when nothing references it.
func (m *Model) Parent(ctx context.Context, kind models.EntityKind, childID int64) (int64, error) {
	switch kind {
	case models.KindSection:
		p, err := m.repo.FindPageBySection(ctx, childID)
		if err != nil || p == nil {
			return 0, err
		}
		return p.ID, nil
	case models.KindBlock:
		s, err := m.repo.FindSectionByBlock(ctx, childID)
		if err != nil || s == nil {
			return 0, err
		}
		return s.ID, nil
	}
	return 0, fmt.Errorf("parent of %s: %w", kind, models.ErrInvalidReference)
}

// Sections returns the live sections of a page in list order.
func (m *Model) Sections(ctx context.Context, page *models.Page) ([]models.Section, error) {
	out := make([]models.Section, 0, len(page.SectionIDs))
	for _, id := range page.SectionIDs {
		s, err := m.repo.FindSection(ctx, id, store.Live)
		if err != nil {
			return nil, err
		}
		if s == nil || s.SiteID != page.SiteID {
			continue
		}
		out = append(out, *s)
	}
	return out, nil
}

// Blocks returns the live blocks of a section in list order.
func (m *Model) Blocks(ctx context.Context, section *models.Section) ([]models.Block, error) {
	out := make([]models.Block, 0, len(section.BlockIDs))
	for _, id := range section.BlockIDs {
		b, err := m.repo.FindBlock(ctx, id, store.Live)
		if err != nil {
			return nil, err
		}
		if b == nil || b.SiteID != section.SiteID {
			continue
		}
		out = append(out, *b)
	}
	return out, nil
}

// load returns the site and the stored list of a live container.
func (m *Model) load(ctx context.Context, c Container) (int64, []int64, error) {
	switch c.Kind {
	case PageKind:
		p, err := m.repo.FindPage(ctx, c.ID, store.Live)
		if err != nil {
			return 0, nil, err
		}
		if p == nil {
			return 0, nil, fmt.Errorf("page %d: %w", c.ID, models.ErrNotFound)
		}
		return p.SiteID, p.SectionIDs, nil
	case SectionKind:
		s, err := m.repo.FindSection(ctx, c.ID, store.Live)
		if err != nil {
			return 0, nil, err
		}
		if s == nil {
			return 0, nil, fmt.Errorf("section %d: %w", c.ID, models.ErrNotFound)
		}
		return s.SiteID, s.BlockIDs, nil
	case MenuKind:
		menu, err := m.siteMenu(ctx, c.ID)
		if err != nil {
			return 0, nil, err
		}
		ids := make([]int64, 0, len(menu.Items))
		for _, it := range menu.Items {
			ids = append(ids, it.PageID)
		}
		return c.ID, ids, nil
	}
	return 0, nil, fmt.Errorf("unknown container kind %q", c.Kind)
}

func (m *Model) siteMenu(ctx context.Context, siteID int64) (*models.Menu, error) {
	site, err := m.repo.FindSite(ctx, siteID, store.Live)
	if err != nil {
		return nil, err
	}
	if site == nil {
		return nil, fmt.Errorf("site %d: %w", siteID, models.ErrNotFound)
	}
	menu, err := m.repo.FindMenu(ctx, site.Options.MenuID)
	if err != nil {
		return nil, err
	}
	if menu == nil || menu.SiteID != siteID {
		return nil, fmt.Errorf("menu of site %d: %w", siteID, models.ErrNotFound)
	}
	return menu, nil
}

// store writes a container's list.
func (m *Model) store(ctx context.Context, c Container, ids []int64) error {
	switch c.Kind {
	case PageKind:
		return m.repo.SetPageSections(ctx, c.ID, ids)
	case SectionKind:
		return m.repo.SetSectionBlocks(ctx, c.ID, ids)
	case MenuKind:
		menu, err := m.siteMenu(ctx, c.ID)
		if err != nil {
			return err
		}
		return m.repo.UpdateMenu(ctx, menu.ID, rebuildMenu(menu.Items, ids))
	}
	return fmt.Errorf("unknown container kind %q", c.Kind)
}

// rebuildMenu orders the top level of a menu by ids. Existing items keep
// their attributes and children. A page promoted to the top level is
// removed from any child list it appeared in.
func rebuildMenu(items []models.MenuItem, ids []int64) []models.MenuItem {
	byPage := make(map[int64]models.MenuItem, len(items))
	for _, it := range items {
		byPage[it.PageID] = it
	}
	out := make([]models.MenuItem, 0, len(ids))
	for _, id := range ids {
		it, ok := byPage[id]
		if !ok {
			it = models.MenuItem{PageID: id}
		}
		if len(it.Children) > 0 {
			it.Children = slices.DeleteFunc(slices.Clone(it.Children), func(c models.MenuItem) bool {
				return slices.Contains(ids, c.PageID)
			})
			if len(it.Children) == 0 {
				it.Children = nil
			}
		}
		out = append(out, it)
	}
	return out
}

// checkChildren verifies ids are unique and name existing children of the
// container's kind within siteID.
func (m *Model) checkChildren(ctx context.Context, c Container, siteID int64, ids []int64) error {
	seen := make(map[int64]bool, len(ids))
	kind := c.childKind()
	for _, id := range ids {
		if seen[id] {
			return fmt.Errorf("duplicate %s %d: %w", kind, id, models.ErrInvalidReference)
		}
		seen[id] = true

		childSite, err := m.childSite(ctx, kind, id)
		if err != nil {
			return err
		}
		if childSite != siteID {
			return fmt.Errorf("%s %d does not belong to site %d: %w", kind, id, siteID, models.ErrInvalidReference)
		}
	}
	return nil
}

// childSite returns the site of a child row, or 0 when it does not exist.
func (m *Model) childSite(ctx context.Context, kind models.EntityKind, id int64) (int64, error) {
	switch kind {
	case models.KindPage:
		p, err := m.repo.FindPage(ctx, id, store.WithDeleted)
		if err != nil || p == nil {
			return 0, err
		}
		return p.SiteID, nil
	case models.KindSection:
		s, err := m.repo.FindSection(ctx, id, store.WithDeleted)
		if err != nil || s == nil {
			return 0, err
		}
		return s.SiteID, nil
	case models.KindBlock:
		b, err := m.repo.FindBlock(ctx, id, store.WithDeleted)
		if err != nil || b == nil {
			return 0, err
		}
		return b.SiteID, nil
	}
	return 0, fmt.Errorf("unknown entity kind %q", kind)
}

// childState reports whether a child row exists and is soft-deleted.
func (m *Model) childState(ctx context.Context, kind models.EntityKind, id int64) (deleted, exists bool, err error) {
	switch kind {
	case models.KindPage:
		p, err := m.repo.FindPage(ctx, id, store.WithDeleted)
		if err != nil || p == nil {
			return false, false, err
		}
		return p.Deleted, true, nil
	case models.KindSection:
		s, err := m.repo.FindSection(ctx, id, store.WithDeleted)
		if err != nil || s == nil {
			return false, false, err
		}
		return s.Deleted, true, nil
	case models.KindBlock:
		b, err := m.repo.FindBlock(ctx, id, store.WithDeleted)
		if err != nil || b == nil {
			return false, false, err
		}
		return b.Deleted, true, nil
	}
	return false, false, fmt.Errorf("unknown entity kind %q", kind)
}
