// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package memstore

import (
	"context"
	"fmt"
	"slices"

	"coursesite/internal/models"
	"coursesite/internal/store"
)

func (m *Store) CreateSite(_ context.Context, s *models.Site) error {
	t, unlock := m.lock()
	defer unlock()

	s.ID = t.next()
	s.CreatedAt = m.s.now()
	s.UpdatedAt = s.CreatedAt
	t.sites[s.ID] = copySite(*s)
	return nil
}

func (m *Store) FindSite(_ context.Context, id int64, vis store.Visibility) (*models.Site, error) {
	t, unlock := m.lock()
	defer unlock()

	s, ok := t.sites[id]
	if !ok || !vis.Includes(s.Deleted) {
		return nil, nil
	}
	s = copySite(s)
	return &s, nil
}

func (m *Store) UpdateSite(_ context.Context, s *models.Site) error {
	t, unlock := m.lock()
	defer unlock()

	orig, ok := t.sites[s.ID]
	if !ok {
		return notFound("site")
	}
	s.CreatedAt = orig.CreatedAt
	s.Deleted = orig.Deleted
	s.UpdatedAt = m.s.now()
	t.sites[s.ID] = copySite(*s)
	return nil
}

func (m *Store) ListSites(_ context.Context, courseID int64) ([]models.Site, error) {
	t, unlock := m.lock()
	defer unlock()

	var out []models.Site
	for _, id := range sortedKeys(t.sites) {
		s := t.sites[id]
		if s.CourseID == courseID && !s.Deleted {
			out = append(out, copySite(s))
		}
	}
	return out, nil
}

func (m *Store) CreatePage(_ context.Context, p *models.Page) error {
	t, unlock := m.lock()
	defer unlock()

	if _, ok := t.sites[p.SiteID]; !ok {
		return fmt.Errorf("create page: site %d: %w", p.SiteID, models.ErrNotFound)
	}
	p.ID = t.next()
	p.Deleted = false
	p.CreatedAt = m.s.now()
	p.UpdatedAt = p.CreatedAt
	p.SectionIDs = cloneIDs(p.SectionIDs)
	t.pages[p.ID] = copyPage(*p)
	return nil
}

func (m *Store) FindPage(_ context.Context, id int64, vis store.Visibility) (*models.Page, error) {
	t, unlock := m.lock()
	defer unlock()

	p, ok := t.pages[id]
	if !ok || !vis.Includes(p.Deleted) {
		return nil, nil
	}
	p = copyPage(p)
	return &p, nil
}

func (m *Store) UpdatePage(_ context.Context, p *models.Page) error {
	t, unlock := m.lock()
	defer unlock()

	orig, ok := t.pages[p.ID]
	if !ok {
		return notFound(models.KindPage)
	}
	orig.Title = p.Title
	orig.Hidden = p.Hidden
	orig.Window = copyWindow(p.Window)
	orig.UpdatedAt = m.s.now()
	t.pages[p.ID] = orig
	p.UpdatedAt = orig.UpdatedAt
	return nil
}

func (m *Store) ListPages(_ context.Context, siteID int64, vis store.Visibility) ([]models.Page, error) {
	t, unlock := m.lock()
	defer unlock()

	var out []models.Page
	for _, id := range sortedKeys(t.pages) {
		p := t.pages[id]
		if p.SiteID == siteID && vis.Includes(p.Deleted) {
			out = append(out, copyPage(p))
		}
	}
	return out, nil
}

func (m *Store) SetPageSections(_ context.Context, pageID int64, ids []int64) error {
	t, unlock := m.lock()
	defer unlock()

	p, ok := t.pages[pageID]
	if !ok {
		return notFound(models.KindPage)
	}
	p.SectionIDs = cloneIDs(ids)
	p.UpdatedAt = m.s.now()
	t.pages[pageID] = p
	return nil
}

func (m *Store) FindPageBySection(_ context.Context, sectionID int64) (*models.Page, error) {
	t, unlock := m.lock()
	defer unlock()

	for _, id := range sortedKeys(t.pages) {
		p := t.pages[id]
		if !p.Deleted && slices.Contains(p.SectionIDs, sectionID) {
			p = copyPage(p)
			return &p, nil
		}
	}
	return nil, nil
}

func (m *Store) CreateSection(_ context.Context, s *models.Section) error {
	t, unlock := m.lock()
	defer unlock()

	if _, ok := t.sites[s.SiteID]; !ok {
		return fmt.Errorf("create section: site %d: %w", s.SiteID, models.ErrNotFound)
	}
	s.ID = t.next()
	s.Deleted = false
	s.CreatedAt = m.s.now()
	s.UpdatedAt = s.CreatedAt
	s.BlockIDs = cloneIDs(s.BlockIDs)
	t.sections[s.ID] = copySection(*s)
	return nil
}

func (m *Store) FindSection(_ context.Context, id int64, vis store.Visibility) (*models.Section, error) {
	t, unlock := m.lock()
	defer unlock()

	s, ok := t.sections[id]
	if !ok || !vis.Includes(s.Deleted) {
		return nil, nil
	}
	s = copySection(s)
	return &s, nil
}

func (m *Store) UpdateSection(_ context.Context, s *models.Section) error {
	t, unlock := m.lock()
	defer unlock()

	orig, ok := t.sections[s.ID]
	if !ok {
		return notFound(models.KindSection)
	}
	orig.Title = s.Title
	orig.Layout = s.Layout
	orig.Options = s.Options
	orig.Hidden = s.Hidden
	orig.UpdatedAt = m.s.now()
	t.sections[s.ID] = orig
	s.UpdatedAt = orig.UpdatedAt
	return nil
}

func (m *Store) ListSections(_ context.Context, siteID int64, vis store.Visibility) ([]models.Section, error) {
	t, unlock := m.lock()
	defer unlock()

	var out []models.Section
	for _, id := range sortedKeys(t.sections) {
		s := t.sections[id]
		if s.SiteID == siteID && vis.Includes(s.Deleted) {
			out = append(out, copySection(s))
		}
	}
	return out, nil
}

func (m *Store) SetSectionBlocks(_ context.Context, sectionID int64, ids []int64) error {
	t, unlock := m.lock()
	defer unlock()

	s, ok := t.sections[sectionID]
	if !ok {
		return notFound(models.KindSection)
	}
	s.BlockIDs = cloneIDs(ids)
	s.UpdatedAt = m.s.now()
	t.sections[sectionID] = s
	return nil
}

func (m *Store) FindSectionByBlock(_ context.Context, blockID int64) (*models.Section, error) {
	t, unlock := m.lock()
	defer unlock()

	for _, id := range sortedKeys(t.sections) {
		s := t.sections[id]
		if !s.Deleted && slices.Contains(s.BlockIDs, blockID) {
			s = copySection(s)
			return &s, nil
		}
	}
	return nil, nil
}

func (m *Store) CreateBlock(_ context.Context, b *models.Block) error {
	if _, _, err := models.EncodeContent(b.Content); err != nil {
		return err
	}
	t, unlock := m.lock()
	defer unlock()

	if _, ok := t.sites[b.SiteID]; !ok {
		return fmt.Errorf("create block: site %d: %w", b.SiteID, models.ErrNotFound)
	}
	b.ID = t.next()
	b.Deleted = false
	b.CreatedAt = m.s.now()
	b.UpdatedAt = b.CreatedAt
	t.blocks[b.ID] = *b
	return nil
}

func (m *Store) FindBlock(_ context.Context, id int64, vis store.Visibility) (*models.Block, error) {
	t, unlock := m.lock()
	defer unlock()

	b, ok := t.blocks[id]
	if !ok || !vis.Includes(b.Deleted) {
		return nil, nil
	}
	return &b, nil
}

func (m *Store) UpdateBlock(_ context.Context, b *models.Block) error {
	if _, _, err := models.EncodeContent(b.Content); err != nil {
		return err
	}
	t, unlock := m.lock()
	defer unlock()

	orig, ok := t.blocks[b.ID]
	if !ok {
		return notFound(models.KindBlock)
	}
	orig.Content = b.Content
	orig.Hidden = b.Hidden
	orig.UpdatedAt = m.s.now()
	t.blocks[b.ID] = orig
	b.UpdatedAt = orig.UpdatedAt
	return nil
}

func (m *Store) ListBlocks(_ context.Context, siteID int64, vis store.Visibility) ([]models.Block, error) {
	t, unlock := m.lock()
	defer unlock()

	var out []models.Block
	for _, id := range sortedKeys(t.blocks) {
		b := t.blocks[id]
		if b.SiteID == siteID && vis.Includes(b.Deleted) {
			out = append(out, b)
		}
	}
	return out, nil
}
