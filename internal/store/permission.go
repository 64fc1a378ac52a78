// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"context"
	"fmt"

	"coursesite/internal/models"
)

// ListPermissions returns the edit grants on one resource ordered by ID.
func (s *Store) ListPermissions(ctx context.Context, rt models.ResourceType, key int64) ([]models.Permission, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT id, resource_type, resource_key, user_id, owner_id, created_at
		FROM permissions
		WHERE resource_type = $1 AND resource_key = $2
		ORDER BY id
	`, rt, key)
	if err != nil {
		return nil, fmt.Errorf("list permissions: %w", err)
	}
	defer rows.Close()

	var items []models.Permission
	for rows.Next() {
		var p models.Permission
		if err := rows.Scan(&p.ID, &p.ResourceType, &p.ResourceKey, &p.UserID, &p.OwnerID, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan permission: %w", err)
		}
		items = append(items, p)
	}
	return items, rows.Err()
}

// HasPermission reports whether userID holds a grant on the resource.
func (s *Store) HasPermission(ctx context.Context, rt models.ResourceType, key, userID int64) (bool, error) {
	var ok bool
	err := s.q.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM permissions
			WHERE resource_type = $1 AND resource_key = $2 AND user_id = $3
		)
	`, rt, key, userID).Scan(&ok)
	if err != nil {
		return false, fmt.Errorf("has permission: %w", err)
	}
	return ok, nil
}

// CreatePermission inserts a grant. Granting the same user twice is a no-op
// that leaves the original row in place.
func (s *Store) CreatePermission(ctx context.Context, p *models.Permission) error {
	err := s.q.QueryRowContext(ctx, `
		INSERT INTO permissions (resource_type, resource_key, user_id, owner_id)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (resource_type, resource_key, user_id)
		DO UPDATE SET resource_type = EXCLUDED.resource_type
		RETURNING id, owner_id, created_at
	`, p.ResourceType, p.ResourceKey, p.UserID, p.OwnerID).Scan(&p.ID, &p.OwnerID, &p.CreatedAt)
	if err != nil {
		return fmt.Errorf("create permission: %w", err)
	}
	return nil
}

// DeletePermission removes a grant by ID.
func (s *Store) DeletePermission(ctx context.Context, id int64) error {
	res, err := s.q.ExecContext(ctx, `DELETE FROM permissions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete permission: %w", err)
	}
	return requireRow(res, "permission")
}
