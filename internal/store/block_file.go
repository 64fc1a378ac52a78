// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"context"
	"fmt"

	"coursesite/internal/models"
)

// CreateBlockFile records an attachment uploaded to object storage.
func (s *Store) CreateBlockFile(ctx context.Context, f *models.BlockFile) error {
	err := s.q.QueryRowContext(ctx, `
		INSERT INTO block_files (block_id, site_id, area, filename, content_type, size_bytes, s3_key)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at
	`, f.BlockID, f.SiteID, f.Area, f.Filename, f.ContentType, f.SizeBytes, f.Key,
	).Scan(&f.ID, &f.CreatedAt)
	if err != nil {
		return fmt.Errorf("create block file: %w", err)
	}
	return nil
}

// ListBlockFiles returns a block's attachments ordered by area then ID.
func (s *Store) ListBlockFiles(ctx context.Context, blockID int64) ([]models.BlockFile, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT id, block_id, site_id, area, filename, content_type, size_bytes, s3_key, created_at
		FROM block_files
		WHERE block_id = $1
		ORDER BY area, id
	`, blockID)
	if err != nil {
		return nil, fmt.Errorf("list block files: %w", err)
	}
	defer rows.Close()

	var items []models.BlockFile
	for rows.Next() {
		var f models.BlockFile
		if err := rows.Scan(&f.ID, &f.BlockID, &f.SiteID, &f.Area, &f.Filename,
			&f.ContentType, &f.SizeBytes, &f.Key, &f.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan block file: %w", err)
		}
		items = append(items, f)
	}
	return items, rows.Err()
}
