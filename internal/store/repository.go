// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"context"

	"coursesite/internal/models"
)

// Visibility selects which rows a read returns with respect to the
// soft-delete flag. The zero value hides deleted rows.
type Visibility int

const (
	// Live returns only rows that are not soft-deleted.
	Live Visibility = iota
	// WithDeleted returns every row.
	WithDeleted
	// OnlyDeleted returns only soft-deleted rows (recycle bin).
	OnlyDeleted
)

// Includes reports whether a row with the given deleted flag is visible.
func (v Visibility) Includes(deleted bool) bool {
	switch v {
	case WithDeleted:
		return true
	case OnlyDeleted:
		return deleted
	default:
		return !deleted
	}
}

// Repository is the persistence contract for sites and their content.
// Find methods return (nil, nil) when no visible row matches.
type Repository interface {
	// InTx runs fn inside one transaction. The transaction is committed
	// when fn returns nil and rolled back otherwise. Nested calls join the
	// outer transaction.
	InTx(ctx context.Context, fn func(Repository) error) error

	CreateSite(ctx context.Context, s *models.Site) error
	FindSite(ctx context.Context, id int64, vis Visibility) (*models.Site, error)
	UpdateSite(ctx context.Context, s *models.Site) error
	ListSites(ctx context.Context, courseID int64) ([]models.Site, error)

	CreatePage(ctx context.Context, p *models.Page) error
	FindPage(ctx context.Context, id int64, vis Visibility) (*models.Page, error)
	UpdatePage(ctx context.Context, p *models.Page) error
	ListPages(ctx context.Context, siteID int64, vis Visibility) ([]models.Page, error)
	SetPageSections(ctx context.Context, pageID int64, ids []int64) error
	FindPageBySection(ctx context.Context, sectionID int64) (*models.Page, error)

	CreateSection(ctx context.Context, s *models.Section) error
	FindSection(ctx context.Context, id int64, vis Visibility) (*models.Section, error)
	UpdateSection(ctx context.Context, s *models.Section) error
	ListSections(ctx context.Context, siteID int64, vis Visibility) ([]models.Section, error)
	SetSectionBlocks(ctx context.Context, sectionID int64, ids []int64) error
	FindSectionByBlock(ctx context.Context, blockID int64) (*models.Section, error)

	CreateBlock(ctx context.Context, b *models.Block) error
	FindBlock(ctx context.Context, id int64, vis Visibility) (*models.Block, error)
	UpdateBlock(ctx context.Context, b *models.Block) error
	ListBlocks(ctx context.Context, siteID int64, vis Visibility) ([]models.Block, error)

	// SetDeleted flips the soft-delete flag of a page, section, or block.
	SetDeleted(ctx context.Context, kind models.EntityKind, id int64, deleted bool) error

	CreateMenu(ctx context.Context, m *models.Menu) error
	FindMenu(ctx context.Context, id int64) (*models.Menu, error)
	UpdateMenu(ctx context.Context, id int64, items []models.MenuItem) error
	ListMenus(ctx context.Context, siteID int64) ([]models.Menu, error)

	ListPermissions(ctx context.Context, rt models.ResourceType, key int64) ([]models.Permission, error)
	HasPermission(ctx context.Context, rt models.ResourceType, key, userID int64) (bool, error)
	CreatePermission(ctx context.Context, p *models.Permission) error
	DeletePermission(ctx context.Context, id int64) error

	CreateBlockFile(ctx context.Context, f *models.BlockFile) error
	ListBlockFiles(ctx context.Context, blockID int64) ([]models.BlockFile, error)
}

// Roster answers course membership questions. Enrolment itself is managed
// outside this application; these tables mirror it.
type Roster interface {
	CourseRoles(ctx context.Context, courseID, userID int64) ([]models.Role, error)
	InAnyGroup(ctx context.Context, userID int64, groupIDs []int64) (bool, error)
	IsMentorOf(ctx context.Context, mentorID, userID int64) (bool, error)
}
