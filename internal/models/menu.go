// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

import (
	"fmt"
	"time"
)

// Menu link target values.
const (
	TargetSelf   = "_self"
	TargetBlank  = "_blank"
	TargetParent = "_parent"
	TargetTop    = "_top"
)

// MaxMenuDepth is the deepest nesting a stored menu may have.
const MaxMenuDepth = 2

// MenuAttributes is the optional per-item attributes blob.
type MenuAttributes struct {
	Target string `json:"target,omitempty"`
}

// MenuItem references a page. Top-level items may carry children;
// second-level items may not.
type MenuItem struct {
	PageID     int64           `json:"pageid"`
	Attributes *MenuAttributes `json:"attributes,omitempty"`
	Children   []MenuItem      `json:"children,omitempty"`
}

// Target returns the configured link target, defaulting to the same window.
func (m MenuItem) Target() string {
	if m.Attributes == nil || m.Attributes.Target == "" {
		return TargetSelf
	}
	return m.Attributes.Target
}

// Menu is the navigation tree of one site, stored independently of page
// containment.
type Menu struct {
	ID        int64      `json:"id"`
	SiteID    int64      `json:"siteid"`
	Items     []MenuItem `json:"items"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// ValidateMenu checks the structural rules of a menu tree: at most two
// levels, positive page IDs, and known targets.
func ValidateMenu(items []MenuItem) error {
	for _, it := range items {
		if err := validateMenuItem(it); err != nil {
			return err
		}
		for _, child := range it.Children {
			if err := validateMenuItem(child); err != nil {
				return err
			}
			if len(child.Children) > 0 {
				return fmt.Errorf("menu item %d: %w", child.PageID, ErrMenuTooDeep)
			}
		}
	}
	return nil
}

func validateMenuItem(it MenuItem) error {
	if it.PageID <= 0 {
		return &ValidationError{Fields: []FieldError{{Field: "pageid", Error: "must be a page id"}}}
	}
	switch it.Target() {
	case TargetSelf, TargetBlank, TargetParent, TargetTop:
		return nil
	}
	return &ValidationError{Fields: []FieldError{{Field: "target", Error: "unknown link target"}}}
}

// MenuPageIDs returns every page ID referenced by the tree, parents first.
func MenuPageIDs(items []MenuItem) []int64 {
	var ids []int64
	for _, it := range items {
		ids = append(ids, it.PageID)
		for _, child := range it.Children {
			ids = append(ids, child.PageID)
		}
	}
	return ids
}

// RemapMenu rewrites every page reference through mapping. Items whose
// page is absent from the mapping are dropped together with their children.
func RemapMenu(items []MenuItem, mapping map[int64]int64) []MenuItem {
	out := make([]MenuItem, 0, len(items))
	for _, it := range items {
		newID, ok := mapping[it.PageID]
		if !ok {
			continue
		}
		copied := MenuItem{PageID: newID, Attributes: cloneAttributes(it.Attributes)}
		if len(it.Children) > 0 {
			copied.Children = RemapMenu(it.Children, mapping)
		}
		out = append(out, copied)
	}
	return out
}

func cloneAttributes(a *MenuAttributes) *MenuAttributes {
	if a == nil {
		return nil
	}
	c := *a
	return &c
}
