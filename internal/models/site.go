// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package models defines the data structures that map to database tables
// and provides the core types used throughout the application.
package models

import "time"

// DistributionMode decides how a course website activity hands out sites.
type DistributionMode int

const (
	// ModeSingleSite is one site shared by every participant.
	ModeSingleSite DistributionMode = 0
	// ModeSitePerStudent gives each student their own site.
	ModeSitePerStudent DistributionMode = 1
	// ModePagePerStudent gives each student their own page inside one site.
	ModePagePerStudent DistributionMode = 2
)

// Valid reports whether m is a known distribution mode.
func (m DistributionMode) Valid() bool {
	return m >= ModeSingleSite && m <= ModePagePerStudent
}

// SiteOptions is the options blob stored on a site. It points at the
// homepage and the navigation menu.
type SiteOptions struct {
	HomepageID int64 `json:"homepageid"`
	MenuID     int64 `json:"menuid"`
}

// Roster lists who takes part in a page-per-student site. Any user in one
// of the groups, holding one of the roles, or listed explicitly is in.
type Roster struct {
	GroupIDs []int64 `json:"groupids,omitempty"`
	Roles    []Role  `json:"roles,omitempty"`
	UserIDs  []int64 `json:"userids,omitempty"`
}

// IsEmpty reports whether no roster criteria are configured.
func (r Roster) IsEmpty() bool {
	return len(r.GroupIDs) == 0 && len(r.Roles) == 0 && len(r.UserIDs) == 0
}

// Window is an optional editing window. A nil bound is open.
type Window struct {
	From   *time.Time `json:"from,omitempty"`
	Cutoff *time.Time `json:"cutoff,omitempty"`
}

// Contains reports whether t falls inside the window.
func (w Window) Contains(t time.Time) bool {
	if w.From != nil && t.Before(*w.From) {
		return false
	}
	if w.Cutoff != nil && t.After(*w.Cutoff) {
		return false
	}
	return true
}

// Site is the top-level content container of a course website.
type Site struct {
	ID         int64            `json:"id"`
	CourseID   int64            `json:"courseid"`
	OwnerID    int64            `json:"ownerid"`
	Name       string           `json:"name"`
	Mode       DistributionMode `json:"mode"`
	Options    SiteOptions      `json:"options"`
	Roster     Roster           `json:"roster"`
	Window     Window           `json:"window"`
	IsTemplate bool             `json:"istemplate"`
	Deleted    bool             `json:"deleted"`
	CreatedAt  time.Time        `json:"created_at"`
	UpdatedAt  time.Time        `json:"updated_at"`
}

// IsHomepage reports whether pageID is this site's homepage.
func (s *Site) IsHomepage(pageID int64) bool {
	return s.Options.HomepageID != 0 && s.Options.HomepageID == pageID
}
