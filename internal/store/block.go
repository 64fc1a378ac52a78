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

const blockColumns = `id, site_id, type, content, hidden, deleted, created_at, updated_at`

// scanBlock scans a block row and decodes its content by type.
func scanBlock(scanner interface{ Scan(...any) error }) (*models.Block, error) {
	var (
		b       models.Block
		typ     models.BlockType
		content string
	)
	err := scanner.Scan(&b.ID, &b.SiteID, &typ, &content, &b.Hidden, &b.Deleted, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if b.Content, err = models.DecodeContent(typ, content); err != nil {
		return nil, fmt.Errorf("block %d: %w", b.ID, err)
	}
	return &b, nil
}

// CreateBlock inserts a new block and fills in its generated ID and timestamps.
func (s *Store) CreateBlock(ctx context.Context, b *models.Block) error {
	typ, content, err := models.EncodeContent(b.Content)
	if err != nil {
		return err
	}
	err = s.q.QueryRowContext(ctx, `
		INSERT INTO blocks (site_id, type, content, hidden)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at
	`, b.SiteID, typ, content, b.Hidden,
	).Scan(&b.ID, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create block: %w", err)
	}
	return nil
}

// FindBlock retrieves a block by ID. Returns nil if not found.
func (s *Store) FindBlock(ctx context.Context, id int64, vis Visibility) (*models.Block, error) {
	row := s.q.QueryRowContext(ctx,
		`SELECT `+blockColumns+` FROM blocks WHERE id = $1 AND `+deletedClause(vis, ""), id)
	b, err := scanBlock(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find block by id: %w", err)
	}
	return b, nil
}

// UpdateBlock writes the block's content and hidden flag.
func (s *Store) UpdateBlock(ctx context.Context, b *models.Block) error {
	typ, content, err := models.EncodeContent(b.Content)
	if err != nil {
		return err
	}
	res, err := s.q.ExecContext(ctx, `
		UPDATE blocks SET type = $1, content = $2, hidden = $3, updated_at = NOW()
		WHERE id = $4
	`, typ, content, b.Hidden, b.ID)
	if err != nil {
		return fmt.Errorf("update block: %w", err)
	}
	return requireRow(res, models.KindBlock)
}

// ListBlocks returns the blocks of a site ordered by ID.
func (s *Store) ListBlocks(ctx context.Context, siteID int64, vis Visibility) ([]models.Block, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT `+blockColumns+`
		FROM blocks
		WHERE site_id = $1 AND `+deletedClause(vis, "")+`
		ORDER BY id
	`, siteID)
	if err != nil {
		return nil, fmt.Errorf("list blocks: %w", err)
	}
	defer rows.Close()

	var items []models.Block
	for rows.Next() {
		b, err := scanBlock(rows)
		if err != nil {
			return nil, fmt.Errorf("scan block: %w", err)
		}
		items = append(items, *b)
	}
	return items, rows.Err()
}
