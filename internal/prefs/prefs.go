// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package prefs stores per-user preferences in Valkey.
package prefs

import (
	"context"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
)

const editModePrefix = "prefs:editmode:"

// Store reads and writes user preferences.
type Store struct {
	client *redis.Client
}

// NewStore creates a preference store backed by the given Valkey client.
func NewStore(client *redis.Client) *Store {
	return &Store{client: client}
}

func editModeKey(userID int64) string {
	return editModePrefix + strconv.FormatInt(userID, 10)
}

// EditMode returns the user's global edit-mode flag. Users who never set
// it are not in edit mode.
func (s *Store) EditMode(ctx context.Context, userID int64) (bool, error) {
	v, err := s.client.Get(ctx, editModeKey(userID)).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("get edit mode: %w", err)
	}
	return v == "1", nil
}

// SetEditMode persists the user's edit-mode flag without expiry.
func (s *Store) SetEditMode(ctx context.Context, userID int64, on bool) error {
	v := "0"
	if on {
		v = "1"
	}
	if err := s.client.Set(ctx, editModeKey(userID), v, 0).Err(); err != nil {
		return fmt.Errorf("set edit mode: %w", err)
	}
	return nil
}
