// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package memstore is an in-memory store.Repository and store.Roster used
// by tests and by the memory store driver. Transactions snapshot the whole
// state and restore it when the callback fails.
package memstore

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"coursesite/internal/models"
	"coursesite/internal/store"
)

type tables struct {
	seq         int64
	sites       map[int64]models.Site
	pages       map[int64]models.Page
	sections    map[int64]models.Section
	blocks      map[int64]models.Block
	menus       map[int64]models.Menu
	permissions map[int64]models.Permission
	files       map[int64]models.BlockFile

	roles   map[[2]int64][]models.Role // {course, user}
	groups  map[int64]map[int64]bool   // group -> users
	mentors map[[2]int64]bool          // {mentor, user}
}

func newTables() *tables {
	return &tables{
		sites:       map[int64]models.Site{},
		pages:       map[int64]models.Page{},
		sections:    map[int64]models.Section{},
		blocks:      map[int64]models.Block{},
		menus:       map[int64]models.Menu{},
		permissions: map[int64]models.Permission{},
		files:       map[int64]models.BlockFile{},
		roles:       map[[2]int64][]models.Role{},
		groups:      map[int64]map[int64]bool{},
		mentors:     map[[2]int64]bool{},
	}
}

// clone deep-copies every table. Entities are copied by value, so only the
// slices they carry need duplicating.
func (t *tables) clone() *tables {
	c := newTables()
	c.seq = t.seq
	for k, v := range t.sites {
		c.sites[k] = copySite(v)
	}
	for k, v := range t.pages {
		c.pages[k] = copyPage(v)
	}
	for k, v := range t.sections {
		c.sections[k] = copySection(v)
	}
	for k, v := range t.blocks {
		c.blocks[k] = v
	}
	for k, v := range t.menus {
		c.menus[k] = copyMenu(v)
	}
	for k, v := range t.permissions {
		c.permissions[k] = v
	}
	for k, v := range t.files {
		c.files[k] = v
	}
	for k, v := range t.roles {
		c.roles[k] = slices.Clone(v)
	}
	for g, users := range t.groups {
		c.groups[g] = map[int64]bool{}
		for u := range users {
			c.groups[g][u] = true
		}
	}
	for k := range t.mentors {
		c.mentors[k] = true
	}
	return c
}

func (t *tables) next() int64 {
	t.seq++
	return t.seq
}

type shared struct {
	mu   sync.Mutex
	txMu sync.Mutex
	t    *tables
	now  func() time.Time
}

// Store is the in-memory Repository and Roster.
type Store struct {
	s  *shared
	tx bool
}

var (
	_ store.Repository = (*Store)(nil)
	_ store.Roster     = (*Store)(nil)
)

// New returns an empty in-memory store.
func New() *Store {
	return &Store{s: &shared{t: newTables(), now: time.Now}}
}

// SetClock replaces the timestamp source. Used by tests.
func (m *Store) SetClock(now func() time.Time) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	m.s.now = now
}

// lock takes the state lock and returns the live tables.
func (m *Store) lock() (*tables, func()) {
	m.s.mu.Lock()
	return m.s.t, m.s.mu.Unlock
}

// InTx implements store.Repository. Transactions are serialised; a failed
// callback restores the state captured when the transaction began.
func (m *Store) InTx(ctx context.Context, fn func(store.Repository) error) error {
	if m.tx {
		return fn(m)
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	m.s.txMu.Lock()
	defer m.s.txMu.Unlock()

	m.s.mu.Lock()
	snapshot := m.s.t.clone()
	m.s.mu.Unlock()

	if err := fn(&Store{s: m.s, tx: true}); err != nil {
		m.s.mu.Lock()
		m.s.t = snapshot
		m.s.mu.Unlock()
		return err
	}
	return nil
}

// SetDeleted implements store.Repository.
func (m *Store) SetDeleted(_ context.Context, kind models.EntityKind, id int64, deleted bool) error {
	t, unlock := m.lock()
	defer unlock()
	now := m.s.now()

	switch kind {
	case models.KindPage:
		p, ok := t.pages[id]
		if !ok {
			return notFound(kind)
		}
		p.Deleted, p.UpdatedAt = deleted, now
		t.pages[id] = p
	case models.KindSection:
		sec, ok := t.sections[id]
		if !ok {
			return notFound(kind)
		}
		sec.Deleted, sec.UpdatedAt = deleted, now
		t.sections[id] = sec
	case models.KindBlock:
		b, ok := t.blocks[id]
		if !ok {
			return notFound(kind)
		}
		b.Deleted, b.UpdatedAt = deleted, now
		t.blocks[id] = b
	default:
		return fmt.Errorf("set deleted: unknown kind %q", kind)
	}
	return nil
}

func notFound(kind models.EntityKind) error {
	return fmt.Errorf("%s: %w", kind, models.ErrNotFound)
}

// sortedKeys returns the map keys in ascending order so list reads are
// ordered by ID like the SQL store.
func sortedKeys[V any](m map[int64]V) []int64 {
	keys := make([]int64, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

func cloneIDs(ids []int64) []int64 {
	if ids == nil {
		return []int64{}
	}
	return slices.Clone(ids)
}

func copySite(s models.Site) models.Site {
	s.Roster.GroupIDs = slices.Clone(s.Roster.GroupIDs)
	s.Roster.Roles = slices.Clone(s.Roster.Roles)
	s.Roster.UserIDs = slices.Clone(s.Roster.UserIDs)
	s.Window = copyWindow(s.Window)
	return s
}

func copyPage(p models.Page) models.Page {
	p.SectionIDs = cloneIDs(p.SectionIDs)
	p.Window = copyWindow(p.Window)
	return p
}

func copySection(s models.Section) models.Section {
	s.BlockIDs = cloneIDs(s.BlockIDs)
	return s
}

func copyMenu(m models.Menu) models.Menu {
	m.Items = copyItems(m.Items)
	if m.Items == nil {
		m.Items = []models.MenuItem{}
	}
	return m
}

func copyItems(items []models.MenuItem) []models.MenuItem {
	if items == nil {
		return nil
	}
	out := make([]models.MenuItem, len(items))
	for i, it := range items {
		out[i] = models.MenuItem{PageID: it.PageID, Children: copyItems(it.Children)}
		if it.Attributes != nil {
			a := *it.Attributes
			out[i].Attributes = &a
		}
	}
	return out
}

func copyWindow(w models.Window) models.Window {
	if w.From != nil {
		from := *w.From
		w.From = &from
	}
	if w.Cutoff != nil {
		cutoff := *w.Cutoff
		w.Cutoff = &cutoff
	}
	return w
}
