// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

import "time"

// Page belongs to one site. SectionIDs is the authoritative content order:
// list membership, not a pointer on the section, defines containment.
type Page struct {
	ID         int64     `json:"id"`
	SiteID     int64     `json:"siteid"`
	Title      string    `json:"title"`
	Hidden     bool      `json:"hidden"`
	SectionIDs []int64   `json:"sectionids"`
	Window     Window    `json:"window"`
	Deleted    bool      `json:"deleted"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Layout is the arrangement of blocks inside a section.
type Layout int

const (
	LayoutGrid       Layout = 1
	LayoutHorizontal Layout = 2
	LayoutLeftFixed  Layout = 3
	LayoutRightFixed Layout = 4
)

// Valid reports whether l is one of the four supported layouts.
func (l Layout) Valid() bool {
	return l >= LayoutGrid && l <= LayoutRightFixed
}

// SectionOptions is the options blob stored on a section.
type SectionOptions struct {
	HideTitle   bool `json:"hidetitle"`
	Collapsible bool `json:"collapsible"`
}

// Section belongs to one site and orders its blocks through BlockIDs.
type Section struct {
	ID        int64          `json:"id"`
	SiteID    int64          `json:"siteid"`
	Title     string         `json:"title"`
	Layout    Layout         `json:"layout"`
	Options   SectionOptions `json:"options"`
	BlockIDs  []int64        `json:"blockids"`
	Hidden    bool           `json:"hidden"`
	Deleted   bool           `json:"deleted"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// EntityKind names the soft-deletable content entities.
type EntityKind string

const (
	KindPage    EntityKind = "page"
	KindSection EntityKind = "section"
	KindBlock   EntityKind = "block"
)

// Valid reports whether k is a known entity kind.
func (k EntityKind) Valid() bool {
	switch k {
	case KindPage, KindSection, KindBlock:
		return true
	}
	return false
}

// DeletedItem is one entry of a site's recycle bin.
type DeletedItem struct {
	Kind      EntityKind `json:"type"`
	ID        int64      `json:"id"`
	SiteID    int64      `json:"siteid"`
	Label     string     `json:"label"`
	UpdatedAt time.Time  `json:"updated_at"`
}
