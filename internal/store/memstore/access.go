// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package memstore

import (
	"context"
	"slices"

	"coursesite/internal/models"
)

func (m *Store) CreateMenu(_ context.Context, menu *models.Menu) error {
	t, unlock := m.lock()
	defer unlock()

	menu.ID = t.next()
	menu.CreatedAt = m.s.now()
	menu.UpdatedAt = menu.CreatedAt
	if menu.Items == nil {
		menu.Items = []models.MenuItem{}
	}
	t.menus[menu.ID] = copyMenu(*menu)
	return nil
}

func (m *Store) FindMenu(_ context.Context, id int64) (*models.Menu, error) {
	t, unlock := m.lock()
	defer unlock()

	menu, ok := t.menus[id]
	if !ok {
		return nil, nil
	}
	menu = copyMenu(menu)
	return &menu, nil
}

func (m *Store) UpdateMenu(_ context.Context, id int64, items []models.MenuItem) error {
	t, unlock := m.lock()
	defer unlock()

	menu, ok := t.menus[id]
	if !ok {
		return notFound("menu")
	}
	menu.Items = copyItems(items)
	menu.UpdatedAt = m.s.now()
	t.menus[id] = copyMenu(menu)
	return nil
}

func (m *Store) ListMenus(_ context.Context, siteID int64) ([]models.Menu, error) {
	t, unlock := m.lock()
	defer unlock()

	var out []models.Menu
	for _, id := range sortedKeys(t.menus) {
		if menu := t.menus[id]; menu.SiteID == siteID {
			out = append(out, copyMenu(menu))
		}
	}
	return out, nil
}

func (m *Store) ListPermissions(_ context.Context, rt models.ResourceType, key int64) ([]models.Permission, error) {
	t, unlock := m.lock()
	defer unlock()

	var out []models.Permission
	for _, id := range sortedKeys(t.permissions) {
		if p := t.permissions[id]; p.ResourceType == rt && p.ResourceKey == key {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *Store) HasPermission(_ context.Context, rt models.ResourceType, key, userID int64) (bool, error) {
	t, unlock := m.lock()
	defer unlock()

	for _, p := range t.permissions {
		if p.ResourceType == rt && p.ResourceKey == key && p.UserID == userID {
			return true, nil
		}
	}
	return false, nil
}

// CreatePermission keeps the existing row when the grant already exists.
func (m *Store) CreatePermission(_ context.Context, p *models.Permission) error {
	t, unlock := m.lock()
	defer unlock()

	for _, existing := range t.permissions {
		if existing.ResourceType == p.ResourceType && existing.ResourceKey == p.ResourceKey && existing.UserID == p.UserID {
			*p = existing
			return nil
		}
	}
	p.ID = t.next()
	p.CreatedAt = m.s.now()
	t.permissions[p.ID] = *p
	return nil
}

func (m *Store) DeletePermission(_ context.Context, id int64) error {
	t, unlock := m.lock()
	defer unlock()

	if _, ok := t.permissions[id]; !ok {
		return notFound("permission")
	}
	delete(t.permissions, id)
	return nil
}

func (m *Store) CreateBlockFile(_ context.Context, f *models.BlockFile) error {
	t, unlock := m.lock()
	defer unlock()

	f.ID = t.next()
	f.CreatedAt = m.s.now()
	t.files[f.ID] = *f
	return nil
}

func (m *Store) ListBlockFiles(_ context.Context, blockID int64) ([]models.BlockFile, error) {
	t, unlock := m.lock()
	defer unlock()

	var out []models.BlockFile
	for _, id := range sortedKeys(t.files) {
		if f := t.files[id]; f.BlockID == blockID {
			out = append(out, f)
		}
	}
	slices.SortStableFunc(out, func(a, b models.BlockFile) int {
		switch {
		case a.Area < b.Area:
			return -1
		case a.Area > b.Area:
			return 1
		}
		return 0
	})
	return out, nil
}

// Enrol records that userID holds role in courseID.
func (m *Store) Enrol(courseID, userID int64, role models.Role) {
	t, unlock := m.lock()
	defer unlock()

	key := [2]int64{courseID, userID}
	if !slices.Contains(t.roles[key], role) {
		t.roles[key] = append(t.roles[key], role)
	}
}

// AddGroupMember puts userID into groupID.
func (m *Store) AddGroupMember(groupID, userID int64) {
	t, unlock := m.lock()
	defer unlock()

	if t.groups[groupID] == nil {
		t.groups[groupID] = map[int64]bool{}
	}
	t.groups[groupID][userID] = true
}

// AddMentor records that mentorID mentors userID.
func (m *Store) AddMentor(mentorID, userID int64) {
	t, unlock := m.lock()
	defer unlock()
	t.mentors[[2]int64{mentorID, userID}] = true
}

func (m *Store) CourseRoles(_ context.Context, courseID, userID int64) ([]models.Role, error) {
	t, unlock := m.lock()
	defer unlock()
	return slices.Clone(t.roles[[2]int64{courseID, userID}]), nil
}

func (m *Store) InAnyGroup(_ context.Context, userID int64, groupIDs []int64) (bool, error) {
	t, unlock := m.lock()
	defer unlock()

	for _, g := range groupIDs {
		if t.groups[g][userID] {
			return true, nil
		}
	}
	return false, nil
}

func (m *Store) IsMentorOf(_ context.Context, mentorID, userID int64) (bool, error) {
	t, unlock := m.lock()
	defer unlock()
	return t.mentors[[2]int64{mentorID, userID}], nil
}
