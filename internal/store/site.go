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

const siteColumns = `id, course_id, owner_id, name, mode, options, roster,
	available_from, cutoff_at, is_template, deleted, created_at, updated_at`

// scanSite scans a site row into a Site struct.
func scanSite(scanner interface{ Scan(...any) error }) (*models.Site, error) {
	var (
		st              models.Site
		options, roster []byte
	)
	err := scanner.Scan(
		&st.ID, &st.CourseID, &st.OwnerID, &st.Name, &st.Mode, &options, &roster,
		&st.Window.From, &st.Window.Cutoff, &st.IsTemplate, &st.Deleted,
		&st.CreatedAt, &st.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := decodeJSON(options, &st.Options); err != nil {
		return nil, fmt.Errorf("site %d options: %w", st.ID, err)
	}
	if err := decodeJSON(roster, &st.Roster); err != nil {
		return nil, fmt.Errorf("site %d roster: %w", st.ID, err)
	}
	return &st, nil
}

// CreateSite inserts a new site and fills in its generated ID and timestamps.
func (s *Store) CreateSite(ctx context.Context, st *models.Site) error {
	options, err := encodeJSON(st.Options)
	if err != nil {
		return err
	}
	roster, err := encodeJSON(st.Roster)
	if err != nil {
		return err
	}

	err = s.q.QueryRowContext(ctx, `
		INSERT INTO sites (course_id, owner_id, name, mode, options, roster,
		                   available_from, cutoff_at, is_template)
		VALUES ($1, $2, $3, $4, $5::jsonb, $6::jsonb, $7, $8, $9)
		RETURNING id, created_at, updated_at
	`, st.CourseID, st.OwnerID, st.Name, st.Mode, options, roster,
		st.Window.From, st.Window.Cutoff, st.IsTemplate,
	).Scan(&st.ID, &st.CreatedAt, &st.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create site: %w", err)
	}
	return nil
}

// FindSite retrieves a site by ID. Returns nil if not found.
func (s *Store) FindSite(ctx context.Context, id int64, vis Visibility) (*models.Site, error) {
	row := s.q.QueryRowContext(ctx,
		`SELECT `+siteColumns+` FROM sites WHERE id = $1 AND `+deletedClause(vis, ""), id)
	st, err := scanSite(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find site by id: %w", err)
	}
	return st, nil
}

// UpdateSite writes every mutable column of a site, including its options blob.
func (s *Store) UpdateSite(ctx context.Context, st *models.Site) error {
	options, err := encodeJSON(st.Options)
	if err != nil {
		return err
	}
	roster, err := encodeJSON(st.Roster)
	if err != nil {
		return err
	}

	res, err := s.q.ExecContext(ctx, `
		UPDATE sites SET
			name = $1, mode = $2, options = $3::jsonb, roster = $4::jsonb,
			available_from = $5, cutoff_at = $6, is_template = $7, owner_id = $8,
			updated_at = NOW()
		WHERE id = $9
	`, st.Name, st.Mode, options, roster, st.Window.From, st.Window.Cutoff,
		st.IsTemplate, st.OwnerID, st.ID)
	if err != nil {
		return fmt.Errorf("update site: %w", err)
	}
	return requireRow(res, "site")
}

// ListSites returns the live sites of a course ordered by ID.
func (s *Store) ListSites(ctx context.Context, courseID int64) ([]models.Site, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT `+siteColumns+`
		FROM sites
		WHERE course_id = $1 AND `+deletedClause(Live, "")+`
		ORDER BY id
	`, courseID)
	if err != nil {
		return nil, fmt.Errorf("list sites: %w", err)
	}
	defer rows.Close()

	var items []models.Site
	for rows.Next() {
		st, err := scanSite(rows)
		if err != nil {
			return nil, fmt.Errorf("scan site: %w", err)
		}
		items = append(items, *st)
	}
	return items, rows.Err()
}
