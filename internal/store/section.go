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

const sectionColumns = `id, site_id, title, layout, options, block_ids,
	hidden, deleted, created_at, updated_at`

// scanSection scans a section row into a Section struct.
func scanSection(scanner interface{ Scan(...any) error }) (*models.Section, error) {
	var (
		sec          models.Section
		options, ids []byte
	)
	err := scanner.Scan(
		&sec.ID, &sec.SiteID, &sec.Title, &sec.Layout, &options, &ids,
		&sec.Hidden, &sec.Deleted, &sec.CreatedAt, &sec.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := decodeJSON(options, &sec.Options); err != nil {
		return nil, fmt.Errorf("section %d options: %w", sec.ID, err)
	}
	if sec.BlockIDs, err = decodeIDs(ids); err != nil {
		return nil, fmt.Errorf("section %d blocks: %w", sec.ID, err)
	}
	return &sec, nil
}

// CreateSection inserts a new section and fills in its generated ID and timestamps.
func (s *Store) CreateSection(ctx context.Context, sec *models.Section) error {
	options, err := encodeJSON(sec.Options)
	if err != nil {
		return err
	}
	ids, err := encodeIDs(sec.BlockIDs)
	if err != nil {
		return err
	}
	err = s.q.QueryRowContext(ctx, `
		INSERT INTO sections (site_id, title, layout, options, block_ids, hidden)
		VALUES ($1, $2, $3, $4::jsonb, $5::jsonb, $6)
		RETURNING id, created_at, updated_at
	`, sec.SiteID, sec.Title, sec.Layout, options, ids, sec.Hidden,
	).Scan(&sec.ID, &sec.CreatedAt, &sec.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create section: %w", err)
	}
	if sec.BlockIDs == nil {
		sec.BlockIDs = []int64{}
	}
	return nil
}

// FindSection retrieves a section by ID. Returns nil if not found.
func (s *Store) FindSection(ctx context.Context, id int64, vis Visibility) (*models.Section, error) {
	row := s.q.QueryRowContext(ctx,
		`SELECT `+sectionColumns+` FROM sections WHERE id = $1 AND `+deletedClause(vis, ""), id)
	sec, err := scanSection(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find section by id: %w", err)
	}
	return sec, nil
}

// UpdateSection writes title, layout, options, and hidden flag. The block
// list is only written through SetSectionBlocks.
func (s *Store) UpdateSection(ctx context.Context, sec *models.Section) error {
	options, err := encodeJSON(sec.Options)
	if err != nil {
		return err
	}
	res, err := s.q.ExecContext(ctx, `
		UPDATE sections SET
			title = $1, layout = $2, options = $3::jsonb, hidden = $4,
			updated_at = NOW()
		WHERE id = $5
	`, sec.Title, sec.Layout, options, sec.Hidden, sec.ID)
	if err != nil {
		return fmt.Errorf("update section: %w", err)
	}
	return requireRow(res, models.KindSection)
}

// ListSections returns the sections of a site ordered by ID.
func (s *Store) ListSections(ctx context.Context, siteID int64, vis Visibility) ([]models.Section, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT `+sectionColumns+`
		FROM sections
		WHERE site_id = $1 AND `+deletedClause(vis, "")+`
		ORDER BY id
	`, siteID)
	if err != nil {
		return nil, fmt.Errorf("list sections: %w", err)
	}
	defer rows.Close()

	var items []models.Section
	for rows.Next() {
		sec, err := scanSection(rows)
		if err != nil {
			return nil, fmt.Errorf("scan section: %w", err)
		}
		items = append(items, *sec)
	}
	return items, rows.Err()
}

// SetSectionBlocks replaces a section's block list as a unit.
func (s *Store) SetSectionBlocks(ctx context.Context, sectionID int64, ids []int64) error {
	raw, err := encodeIDs(ids)
	if err != nil {
		return err
	}
	res, err := s.q.ExecContext(ctx,
		`UPDATE sections SET block_ids = $1::jsonb, updated_at = NOW() WHERE id = $2`, raw, sectionID)
	if err != nil {
		return fmt.Errorf("set section blocks: %w", err)
	}
	return requireRow(res, models.KindSection)
}

// FindSectionByBlock returns the live section whose block list contains
// blockID, or nil when the block is not referenced.
func (s *Store) FindSectionByBlock(ctx context.Context, blockID int64) (*models.Section, error) {
	row := s.q.QueryRowContext(ctx, `
		SELECT `+sectionColumns+`
		FROM sections
		WHERE block_ids @> to_jsonb($1::bigint) AND `+deletedClause(Live, "")+`
		ORDER BY id
		LIMIT 1
	`, blockID)
	sec, err := scanSection(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find section by block: %w", err)
	}
	return sec, nil
}
