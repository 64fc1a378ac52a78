// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

import "time"

// Role is a course-level role held by a participant.
type Role string

const (
	RoleManager        Role = "manager"
	RoleEditingTeacher Role = "editingteacher"
	RoleTeacher        Role = "teacher"
	RoleStudent        Role = "student"
)

// IsElevated reports whether the role may edit every site in the course.
func (r Role) IsElevated() bool {
	return r == RoleManager || r == RoleEditingTeacher
}

// IsGrader reports whether the role may view every student's work.
func (r Role) IsGrader() bool {
	return r.IsElevated() || r == RoleTeacher
}

// ResourceType is what an edit grant applies to.
type ResourceType string

const (
	ResourceSite ResourceType = "site"
	ResourcePage ResourceType = "page"
)

// Valid reports whether t is a known resource type.
func (t ResourceType) Valid() bool {
	return t == ResourceSite || t == ResourcePage
}

// Permission is an explicit edit grant for one user on one resource.
// OwnerID records who granted it.
type Permission struct {
	ID           int64        `json:"id"`
	ResourceType ResourceType `json:"resourcetype"`
	ResourceKey  int64        `json:"resourcekey"`
	UserID       int64        `json:"userid"`
	OwnerID      int64        `json:"ownerid"`
	CreatedAt    time.Time    `json:"created_at"`
}
