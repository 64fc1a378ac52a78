// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package store implements the content repository on PostgreSQL. Reference
// lists and the menu tree live in JSONB columns; every read goes through a
// Visibility so the soft-delete predicate is applied in one place.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"coursesite/internal/models"
)

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store is the PostgreSQL Repository.
type Store struct {
	db *sql.DB
	q  queryer
	tx bool
}

var _ Repository = (*Store)(nil)

// New creates a new Store with the given database connection.
func New(db *sql.DB) *Store {
	return &Store{db: db, q: db}
}

// InTx implements Repository.
func (s *Store) InTx(ctx context.Context, fn func(Repository) error) error {
	if s.tx {
		return fn(s)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&Store{db: s.db, q: tx, tx: true}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// deletedClause renders the soft-delete predicate for vis. The column is
// qualified with alias when one is given.
func deletedClause(vis Visibility, alias string) string {
	col := "deleted"
	if alias != "" {
		col = alias + ".deleted"
	}
	switch vis {
	case WithDeleted:
		return "TRUE"
	case OnlyDeleted:
		return col + " = TRUE"
	default:
		return col + " = FALSE"
	}
}

// encodeIDs renders a reference list for a JSONB column. A nil list is
// stored as [] so containment queries always see an array.
func encodeIDs(ids []int64) (string, error) {
	if ids == nil {
		ids = []int64{}
	}
	raw, err := json.Marshal(ids)
	if err != nil {
		return "", fmt.Errorf("encode id list: %w", err)
	}
	return string(raw), nil
}

func decodeIDs(raw []byte) ([]int64, error) {
	ids := []int64{}
	if len(raw) == 0 {
		return ids, nil
	}
	if err := json.Unmarshal(raw, &ids); err != nil {
		return nil, fmt.Errorf("decode id list: %w", err)
	}
	return ids, nil
}

func encodeJSON(v any) (string, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encode json: %w", err)
	}
	return string(raw), nil
}

func decodeJSON(raw []byte, v any) error {
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("decode json: %w", err)
	}
	return nil
}

// SetDeleted implements Repository.
func (s *Store) SetDeleted(ctx context.Context, kind models.EntityKind, id int64, deleted bool) error {
	var table string
	switch kind {
	case models.KindPage:
		table = "pages"
	case models.KindSection:
		table = "sections"
	case models.KindBlock:
		table = "blocks"
	default:
		return fmt.Errorf("set deleted: unknown kind %q", kind)
	}

	res, err := s.q.ExecContext(ctx,
		`UPDATE `+table+` SET deleted = $1, updated_at = NOW() WHERE id = $2`, deleted, id)
	if err != nil {
		return fmt.Errorf("set %s deleted: %w", kind, err)
	}
	return requireRow(res, kind)
}

// requireRow turns an UPDATE that touched nothing into ErrNotFound.
func requireRow(res sql.Result, kind models.EntityKind) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", kind, models.ErrNotFound)
	}
	return nil
}
