// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"context"
	"database/sql"
	"fmt"

	"coursesite/internal/models"
)

const pageColumns = `id, site_id, title, hidden, section_ids,
	available_from, cutoff_at, deleted, created_at, updated_at`

// scanPage scans a page row into a Page struct.
func scanPage(scanner interface{ Scan(...any) error }) (*models.Page, error) {
	var (
		p   models.Page
		ids []byte
	)
	err := scanner.Scan(
		&p.ID, &p.SiteID, &p.Title, &p.Hidden, &ids,
		&p.Window.From, &p.Window.Cutoff, &p.Deleted, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if p.SectionIDs, err = decodeIDs(ids); err != nil {
		return nil, fmt.Errorf("page %d sections: %w", p.ID, err)
	}
	return &p, nil
}

// CreatePage inserts a new page and fills in its generated ID and timestamps.
func (s *Store) CreatePage(ctx context.Context, p *models.Page) error {
	ids, err := encodeIDs(p.SectionIDs)
	if err != nil {
		return err
	}
	err = s.q.QueryRowContext(ctx, `
		INSERT INTO pages (site_id, title, hidden, section_ids, available_from, cutoff_at)
		VALUES ($1, $2, $3, $4::jsonb, $5, $6)
		RETURNING id, created_at, updated_at
	`, p.SiteID, p.Title, p.Hidden, ids, p.Window.From, p.Window.Cutoff,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create page: %w", err)
	}
	if p.SectionIDs == nil {
		p.SectionIDs = []int64{}
	}
	return nil
}

// FindPage retrieves a page by ID. Returns nil if not found.
func (s *Store) FindPage(ctx context.Context, id int64, vis Visibility) (*models.Page, error) {
	row := s.q.QueryRowContext(ctx,
		`SELECT `+pageColumns+` FROM pages WHERE id = $1 AND `+deletedClause(vis, ""), id)
	p, err := scanPage(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find page by id: %w", err)
	}
	return p, nil
}

// UpdatePage writes the title, hidden flag, and editing window. The
// section list is only written through SetPageSections.
func (s *Store) UpdatePage(ctx context.Context, p *models.Page) error {
	res, err := s.q.ExecContext(ctx, `
		UPDATE pages SET
			title = $1, hidden = $2, available_from = $3, cutoff_at = $4,
			updated_at = NOW()
		WHERE id = $5
	`, p.Title, p.Hidden, p.Window.From, p.Window.Cutoff, p.ID)
	if err != nil {
		return fmt.Errorf("update page: %w", err)
	}
	return requireRow(res, models.KindPage)
}

// ListPages returns the pages of a site ordered by ID.
func (s *Store) ListPages(ctx context.Context, siteID int64, vis Visibility) ([]models.Page, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT `+pageColumns+`
		FROM pages
		WHERE site_id = $1 AND `+deletedClause(vis, "")+`
		ORDER BY id
	`, siteID)
	if err != nil {
		return nil, fmt.Errorf("list pages: %w", err)
	}
	defer rows.Close()

	var items []models.Page
	for rows.Next() {
		p, err := scanPage(rows)
		if err != nil {
			return nil, fmt.Errorf("scan page: %w", err)
		}
		items = append(items, *p)
	}
	return items, rows.Err()
}

// SetPageSections replaces a page's section list as a unit.
func (s *Store) SetPageSections(ctx context.Context, pageID int64, ids []int64) error {
	raw, err := encodeIDs(ids)
	if err != nil {
		return err
	}
	res, err := s.q.ExecContext(ctx,
		`UPDATE pages SET section_ids = $1::jsonb, updated_at = NOW() WHERE id = $2`, raw, pageID)
	if err != nil {
		return fmt.Errorf("set page sections: %w", err)
	}
	return requireRow(res, models.KindPage)
}

// FindPageBySection returns the live page whose section list contains
// sectionID, or nil when the section is not referenced.
func (s *Store) FindPageBySection(ctx context.Context, sectionID int64) (*models.Page, error) {
	row := s.q.QueryRowContext(ctx, `
		SELECT `+pageColumns+`
		FROM pages
		WHERE section_ids @> to_jsonb($1::bigint) AND `+deletedClause(Live, "")+`
		ORDER BY id
		LIMIT 1
	`, sectionID)
	p, err := scanPage(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find page by section: %w", err)
	}
	return p, nil
}
