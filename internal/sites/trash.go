// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package sites

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sort"

	"coursesite/internal/access"
	"coursesite/internal/models"
	"coursesite/internal/store"
	"coursesite/internal/tree"
)

// resource loads a page, section, or block of siteID with the given
// visibility and returns the resource guarding it.
func (s *Service) resource(ctx context.Context, repo store.Repository, kind models.EntityKind, siteID, id int64, vis store.Visibility) (access.Resource, error) {
	switch kind {
	case models.KindPage:
		site, p, err := s.page(ctx, repo, siteID, id, vis)
		if err != nil {
			return access.Resource{}, err
		}
		return access.PageResource(site, p), nil
	case models.KindSection:
		site, _, err := s.section(ctx, repo, siteID, id, vis)
		if err != nil {
			return access.Resource{}, err
		}
		return s.scope(ctx, repo, site, kind, id)
	case models.KindBlock:
		site, _, err := s.block(ctx, repo, siteID, id, vis)
		if err != nil {
			return access.Resource{}, err
		}
		return s.scope(ctx, repo, site, kind, id)
	}
	return access.Resource{}, invalid("type", "must be page, section, or block")
}

// Delete soft-deletes a page, section, or block. References to it stay in
// their lists so a restore puts it back in place. The site homepage cannot
// be deleted.
func (s *Service) Delete(ctx context.Context, actor access.Actor, kind models.EntityKind, siteID, id int64) error {
	err := s.repo.InTx(ctx, func(tx store.Repository) error {
		res, err := s.resource(ctx, tx, kind, siteID, id, store.Live)
		if err != nil {
			return err
		}
		if err := s.requireEdit(ctx, tx, actor, res); err != nil {
			return err
		}
		if kind == models.KindPage && res.Site.IsHomepage(id) {
			return models.ErrHomepageProtected
		}
		return tx.SetDeleted(ctx, kind, id, true)
	})
	if err != nil {
		return fmt.Errorf("delete %s %d: %w", kind, id, err)
	}
	slog.Info("content deleted", "type", kind, "id", id, "site_id", siteID, "user_id", actor.UserID)
	return nil
}

// Restore clears the deleted flag of a page, section, or block of siteID.
func (s *Service) Restore(ctx context.Context, actor access.Actor, kind models.EntityKind, siteID, id int64) error {
	err := s.repo.InTx(ctx, func(tx store.Repository) error {
		res, err := s.resource(ctx, tx, kind, siteID, id, store.OnlyDeleted)
		if err != nil {
			return err
		}
		if err := s.requireEdit(ctx, tx, actor, res); err != nil {
			return err
		}
		return tx.SetDeleted(ctx, kind, id, false)
	})
	if err != nil {
		return fmt.Errorf("restore %s %d: %w", kind, id, err)
	}
	slog.Info("content restored", "type", kind, "id", id, "site_id", siteID, "user_id", actor.UserID)
	return nil
}

// RecycleBin lists the deleted pages, sections, and blocks of a site,
// most recently changed first.
func (s *Service) RecycleBin(ctx context.Context, actor access.Actor, siteID int64) ([]models.DeletedItem, error) {
	site, err := s.site(ctx, s.repo, siteID)
	if err != nil {
		return nil, err
	}
	if err := s.requireEdit(ctx, s.repo, actor, access.SiteResource(site)); err != nil {
		return nil, err
	}

	pages, err := s.repo.ListPages(ctx, site.ID, store.OnlyDeleted)
	if err != nil {
		return nil, err
	}
	sections, err := s.repo.ListSections(ctx, site.ID, store.OnlyDeleted)
	if err != nil {
		return nil, err
	}
	blocks, err := s.repo.ListBlocks(ctx, site.ID, store.OnlyDeleted)
	if err != nil {
		return nil, err
	}

	items := make([]models.DeletedItem, 0, len(pages)+len(sections)+len(blocks))
	for _, p := range pages {
		items = append(items, models.DeletedItem{Kind: models.KindPage, ID: p.ID, SiteID: site.ID, Label: p.Title, UpdatedAt: p.UpdatedAt})
	}
	for _, sec := range sections {
		items = append(items, models.DeletedItem{Kind: models.KindSection, ID: sec.ID, SiteID: site.ID, Label: sec.Title, UpdatedAt: sec.UpdatedAt})
	}
	for _, b := range blocks {
		items = append(items, models.DeletedItem{Kind: models.KindBlock, ID: b.ID, SiteID: site.ID, Label: blockLabel(b), UpdatedAt: b.UpdatedAt})
	}
	sort.SliceStable(items, func(i, j int) bool { return items[i].UpdatedAt.After(items[j].UpdatedAt) })
	return items, nil
}

func blockLabel(b models.Block) string {
	if pb, ok := b.Content.(models.PictureButtonContent); ok && pb.Title != "" {
		return pb.Title
	}
	return string(b.Type())
}

// container returns the tree container for a page or section ID of
// siteID together with the resource guarding it.
func (s *Service) container(ctx context.Context, repo store.Repository, kind tree.Kind, siteID, id int64) (tree.Container, access.Resource, error) {
	switch kind {
	case tree.PageKind:
		site, p, err := s.page(ctx, repo, siteID, id, store.Live)
		if err != nil {
			return tree.Container{}, access.Resource{}, err
		}
		return tree.PageContainer(p.ID), access.PageResource(site, p), nil
	case tree.SectionKind:
		res, err := s.resource(ctx, repo, models.KindSection, siteID, id, store.Live)
		if err != nil {
			return tree.Container{}, access.Resource{}, err
		}
		return tree.SectionContainer(id), res, nil
	}
	return tree.Container{}, access.Resource{}, invalid("type", "must be page or section")
}

// Reorder applies the order a client sees to a page's sections or a
// section's blocks and returns the list written.
func (s *Service) Reorder(ctx context.Context, actor access.Actor, kind tree.Kind, siteID, containerID int64, ids []int64) ([]int64, error) {
	var written []int64
	err := s.repo.InTx(ctx, func(tx store.Repository) error {
		c, res, err := s.container(ctx, tx, kind, siteID, containerID)
		if err != nil {
			return err
		}
		if err := s.requireEdit(ctx, tx, actor, res); err != nil {
			return err
		}
		if err := s.checkAdopted(ctx, tx, actor, c, res, ids); err != nil {
			return err
		}
		written, err = tree.New(tx).Reorder(ctx, c, ids)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("reorder %s %d: %w", kind, containerID, err)
	}
	return written, nil
}

// checkAdopted guards the IDs a reorder adds to a container. A child
// listed by another live container is rejected; it has to be moved. A
// child nobody lists may only be taken in by an editor of the whole site.
func (s *Service) checkAdopted(ctx context.Context, repo store.Repository, actor access.Actor, c tree.Container, res access.Resource, ids []int64) error {
	t := tree.New(repo)
	stored, err := t.Children(ctx, c)
	if err != nil {
		return err
	}
	kind := models.KindSection
	if c.Kind == tree.SectionKind {
		kind = models.KindBlock
	}
	siteChecked := false
	for _, id := range ids {
		if slices.Contains(stored, id) {
			continue
		}
		parent, err := t.Parent(ctx, kind, id)
		if err != nil {
			return err
		}
		if parent != 0 && parent != c.ID {
			return fmt.Errorf("%s %d belongs to %s %d: %w", kind, id, c.Kind, parent, models.ErrInvalidReference)
		}
		if parent == 0 && !siteChecked {
			if err := s.requireEdit(ctx, repo, actor, access.SiteResource(res.Site)); err != nil {
				return err
			}
			siteChecked = true
		}
	}
	return nil
}

// Move moves a section between pages or a block between sections of the
// same site. The caller needs edit rights on both containers.
func (s *Service) Move(ctx context.Context, actor access.Actor, kind tree.Kind, siteID, childID, fromID, toID int64, position int) error {
	err := s.repo.InTx(ctx, func(tx store.Repository) error {
		from, fromRes, err := s.container(ctx, tx, kind, siteID, fromID)
		if err != nil {
			return err
		}
		to, toRes, err := s.container(ctx, tx, kind, siteID, toID)
		if err != nil {
			return err
		}
		if err := s.requireEdit(ctx, tx, actor, fromRes); err != nil {
			return err
		}
		if err := s.requireEdit(ctx, tx, actor, toRes); err != nil {
			return err
		}
		return tree.New(tx).Move(ctx, childID, from, to, position)
	})
	if err != nil {
		return fmt.Errorf("move %d from %s %d to %d: %w", childID, kind, fromID, toID, err)
	}
	return nil
}
