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

const menuColumns = `id, site_id, tree, created_at, updated_at`

func scanMenu(scanner interface{ Scan(...any) error }) (*models.Menu, error) {
	var (
		m    models.Menu
		tree []byte
	)
	if err := scanner.Scan(&m.ID, &m.SiteID, &tree, &m.CreatedAt, &m.UpdatedAt); err != nil {
		return nil, err
	}
	if err := decodeJSON(tree, &m.Items); err != nil {
		return nil, fmt.Errorf("menu %d tree: %w", m.ID, err)
	}
	if m.Items == nil {
		m.Items = []models.MenuItem{}
	}
	return &m, nil
}

func encodeMenu(items []models.MenuItem) (string, error) {
	if items == nil {
		items = []models.MenuItem{}
	}
	return encodeJSON(items)
}

// CreateMenu inserts a menu and fills in its generated ID and timestamps.
func (s *Store) CreateMenu(ctx context.Context, m *models.Menu) error {
	tree, err := encodeMenu(m.Items)
	if err != nil {
		return err
	}
	err = s.q.QueryRowContext(ctx, `
		INSERT INTO menus (site_id, tree)
		VALUES ($1, $2::jsonb)
		RETURNING id, created_at, updated_at
	`, m.SiteID, tree).Scan(&m.ID, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create menu: %w", err)
	}
	return nil
}

// FindMenu retrieves a menu by ID. Returns nil if not found.
func (s *Store) FindMenu(ctx context.Context, id int64) (*models.Menu, error) {
	row := s.q.QueryRowContext(ctx, `SELECT `+menuColumns+` FROM menus WHERE id = $1`, id)
	m, err := scanMenu(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find menu by id: %w", err)
	}
	return m, nil
}

// UpdateMenu replaces the whole menu tree.
func (s *Store) UpdateMenu(ctx context.Context, id int64, items []models.MenuItem) error {
	tree, err := encodeMenu(items)
	if err != nil {
		return err
	}
	res, err := s.q.ExecContext(ctx,
		`UPDATE menus SET tree = $1::jsonb, updated_at = NOW() WHERE id = $2`, tree, id)
	if err != nil {
		return fmt.Errorf("update menu: %w", err)
	}
	return requireRow(res, "menu")
}

// ListMenus returns every menu of a site ordered by ID.
func (s *Store) ListMenus(ctx context.Context, siteID int64) ([]models.Menu, error) {
	rows, err := s.q.QueryContext(ctx,
		`SELECT `+menuColumns+` FROM menus WHERE site_id = $1 ORDER BY id`, siteID)
	if err != nil {
		return nil, fmt.Errorf("list menus: %w", err)
	}
	defer rows.Close()

	var items []models.Menu
	for rows.Next() {
		m, err := scanMenu(rows)
		if err != nil {
			return nil, fmt.Errorf("scan menu: %w", err)
		}
		items = append(items, *m)
	}
	return items, rows.Err()
}
