// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package menu resolves a stored menu tree into the nodes a viewer may see.
// Nothing is cached: a restored page reappears on the next expansion.
package menu

import (
	"context"
	"fmt"
	"strings"

	"coursesite/internal/access"
	"coursesite/internal/models"
	"coursesite/internal/store"
)

const (
	// HomeTitle replaces the homepage title when it leads the menu.
	HomeTitle = "Home"
	// UntitledPage is shown for pages with an empty title.
	UntitledPage = "Untitled page"
)

// Node is one resolved menu entry.
type Node struct {
	PageID      int64  `json:"pageid"`
	Title       string `json:"title"`
	URL         string `json:"url"`
	Target      string `json:"target"`
	Hidden      bool   `json:"hidden"`
	IsHomepage  bool   `json:"ishomepage"`
	HasChildren bool   `json:"haschildren"`
	Children    []Node `json:"children"`
}

// View describes who the menu is expanded for.
type View struct {
	Actor access.Actor
	// Backend is set for administrative exports such as the menu editor,
	// which must see hidden pages and stored titles.
	Backend bool
	// Editor is set when the actor may edit the site.
	Editor bool
}

// showsHidden reports whether hidden pages stay in the menu.
func (v View) showsHidden() bool {
	return v.Backend || v.Editor || v.Actor.EditMode
}

// Viewer decides per-page visibility.
type Viewer interface {
	CanView(ctx context.Context, actor access.Actor, res access.Resource) (bool, error)
}

// Expander resolves menus against a repository.
type Expander struct {
	repo    store.Repository
	viewer  Viewer
	baseURL string
}

// NewExpander creates an Expander. Page URLs are built under baseURL.
func NewExpander(repo store.Repository, viewer Viewer, baseURL string) *Expander {
	return &Expander{repo: repo, viewer: viewer, baseURL: strings.TrimRight(baseURL, "/")}
}

// PageURL returns the address of a page.
func (e *Expander) PageURL(siteID, pageID int64) string {
	return PageURL(e.baseURL, siteID, pageID)
}

// PageURL returns the address of a page under baseURL.
func PageURL(baseURL string, siteID, pageID int64) string {
	return fmt.Sprintf("%s/sites/%d/pages/%d", strings.TrimRight(baseURL, "/"), siteID, pageID)
}

// ExpandSite loads the site's menu and expands it.
func (e *Expander) ExpandSite(ctx context.Context, site *models.Site, v View) ([]Node, error) {
	m, err := e.repo.FindMenu(ctx, site.Options.MenuID)
	if err != nil {
		return nil, fmt.Errorf("find menu: %w", err)
	}
	if m == nil || m.SiteID != site.ID {
		return []Node{}, nil
	}
	return e.Expand(ctx, site, m.Items, v)
}

// Expand walks the stored tree depth first. Items whose page is missing,
// deleted, or not visible to the viewer are dropped along with their
// children; the remaining siblings keep their order.
func (e *Expander) Expand(ctx context.Context, site *models.Site, items []models.MenuItem, v View) ([]Node, error) {
	nodes, err := e.expand(ctx, site, items, v, 1)
	if err != nil {
		return nil, err
	}
	if !v.Backend && len(nodes) > 0 && nodes[0].IsHomepage {
		nodes[0].Title = HomeTitle
	}
	return nodes, nil
}

func (e *Expander) expand(ctx context.Context, site *models.Site, items []models.MenuItem, v View, depth int) ([]Node, error) {
	nodes := make([]Node, 0, len(items))
	for _, it := range items {
		page, err := e.repo.FindPage(ctx, it.PageID, store.Live)
		if err != nil {
			return nil, fmt.Errorf("menu page %d: %w", it.PageID, err)
		}
		if page == nil || page.SiteID != site.ID {
			continue
		}
		home := site.IsHomepage(page.ID)
		if page.Hidden && !home && !v.showsHidden() {
			continue
		}
		if !v.Backend && !v.Editor {
			ok, err := e.viewer.CanView(ctx, v.Actor, access.PageResource(site, page))
			if err != nil {
				return nil, err
			}
			if !ok {
				continue
			}
		}

		n := Node{
			PageID:     page.ID,
			Title:      page.Title,
			URL:        e.PageURL(site.ID, page.ID),
			Target:     it.Target(),
			Hidden:     page.Hidden,
			IsHomepage: home,
			Children:   []Node{},
		}
		if n.Title == "" {
			n.Title = UntitledPage
		}
		if depth < models.MaxMenuDepth && len(it.Children) > 0 {
			if n.Children, err = e.expand(ctx, site, it.Children, v, depth+1); err != nil {
				return nil, err
			}
		}
		n.HasChildren = len(n.Children) > 0
		nodes = append(nodes, n)
	}
	return nodes, nil
}
