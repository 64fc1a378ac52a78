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

// RosterStore reads course membership from the mirrored enrolment tables.
type RosterStore struct {
	db *sql.DB
}

var _ Roster = (*RosterStore)(nil)

// NewRosterStore creates a new RosterStore with the given database connection.
func NewRosterStore(db *sql.DB) *RosterStore {
	return &RosterStore{db: db}
}

// CourseRoles returns every role userID holds in courseID.
func (s *RosterStore) CourseRoles(ctx context.Context, courseID, userID int64) ([]models.Role, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT role FROM course_participants
		WHERE course_id = $1 AND user_id = $2
		ORDER BY role
	`, courseID, userID)
	if err != nil {
		return nil, fmt.Errorf("course roles: %w", err)
	}
	defer rows.Close()

	var roles []models.Role
	for rows.Next() {
		var r models.Role
		if err := rows.Scan(&r); err != nil {
			return nil, fmt.Errorf("scan role: %w", err)
		}
		roles = append(roles, r)
	}
	return roles, rows.Err()
}

// InAnyGroup reports whether userID belongs to at least one of groupIDs.
func (s *RosterStore) InAnyGroup(ctx context.Context, userID int64, groupIDs []int64) (bool, error) {
	if len(groupIDs) == 0 {
		return false, nil
	}
	ids, err := encodeIDs(groupIDs)
	if err != nil {
		return false, err
	}
	var ok bool
	err = s.db.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM group_members
			WHERE user_id = $1
			  AND group_id IN (SELECT jsonb_array_elements_text($2::jsonb)::bigint)
		)
	`, userID, ids).Scan(&ok)
	if err != nil {
		return false, fmt.Errorf("in any group: %w", err)
	}
	return ok, nil
}

// IsMentorOf reports whether mentorID mentors userID.
func (s *RosterStore) IsMentorOf(ctx context.Context, mentorID, userID int64) (bool, error) {
	var ok bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM mentors WHERE mentor_id = $1 AND user_id = $2)`,
		mentorID, userID).Scan(&ok)
	if err != nil {
		return false, fmt.Errorf("is mentor of: %w", err)
	}
	return ok, nil
}
