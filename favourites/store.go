// Copyright 2026 The Mapcode Workbench Authors
// SPDX-License-Identifier: Apache-2.0

// Package favourites persists the user's named locations. The whole
// collection lives under a single preference key and every mutation is a
// read-modify-write of that blob; the underlying repository guarantees the
// replacement itself is atomic, concurrent writers race last-write-wins.
package favourites

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/uber/h3-go/v4"

	"github.com/mapcode-foundation/mapcode-workbench/prefs"
	"github.com/mapcode-foundation/mapcode-workbench/spatial"
	"github.com/mapcode-foundation/mapcode-workbench/utils"
)

// Errors returned by the store.
var (
	// ErrDuplicateLocation means a favourite already exists at the exact
	// coordinate pair.
	ErrDuplicateLocation = errors.New("favourite already exists at this location")
	// ErrNotFound means no favourite has the given id.
	ErrNotFound = errors.New("favourite not found")
	// ErrEmptyName means the favourite name is empty after trimming.
	ErrEmptyName = errors.New("favourite name must not be empty")
)

// nearbyResolution is the H3 resolution used for Nearby; cells are roughly
// a neighbourhood in size.
const nearbyResolution = 8

// Entity is a named location. Identity is the opaque generated ID; at most
// one entity exists per exact (latitude, longitude) pair.
type Entity struct {
	ID   string  `json:"id"`
	Name string  `json:"name"`
	Lat  float64 `json:"latitude"`
	Lng  float64 `json:"longitude"`
}

// Point returns the entity's coordinate.
func (e Entity) Point() spatial.Point {
	return spatial.Point{Lat: e.Lat, Lng: e.Lng}
}

// Store is the favourites collection over a preference repository. It keeps
// an in-memory projection of the persisted set, kept live through the
// repository's watch channel so writes from other handles are visible.
type Store struct {
	repo prefs.Repository

	mu       sync.RWMutex
	entities []Entity

	stop func()
}

// NewStore loads the persisted collection and starts tracking changes.
func NewStore(repo prefs.Repository) (*Store, error) {
	s := &Store{repo: repo}

	blob, ok, err := repo.Get(prefs.KeyFavourites)
	if err != nil {
		return nil, fmt.Errorf("loading favourites: %w", err)
	}

	if ok {
		entities, err := decode(blob)
		if err != nil {
			return nil, fmt.Errorf("decoding favourites: %w", err)
		}

		s.entities = entities
	}

	ch, cancel := repo.Watch(prefs.KeyFavourites)
	s.stop = cancel

	go func() {
		for blob := range ch {
			entities, err := decode(blob)
			if err != nil {
				continue
			}

			s.mu.Lock()
			s.entities = entities
			s.mu.Unlock()
		}
	}()

	return s, nil
}

// Close stops tracking repository changes.
func (s *Store) Close() {
	if s.stop != nil {
		s.stop()
	}
}

// List returns all favourites sorted by folded name. Order in storage is not
// significant; the sort only keeps CLI and API output stable.
func (s *Store) List() []Entity {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Entity, len(s.entities))
	copy(out, s.entities)

	sort.Slice(out, func(i, j int) bool {
		a, b := utils.LowerASCIIFolding(out[i].Name), utils.LowerASCIIFolding(out[j].Name)
		if a != b {
			return a < b
		}

		return out[i].ID < out[j].ID
	})

	return out
}

// Watch emits the full collection on every persisted change, the current
// state first. A slow consumer only sees the newest snapshot.
func (s *Store) Watch() (<-chan []Entity, func()) {
	raw, cancel := s.repo.Watch(prefs.KeyFavourites)
	out := make(chan []Entity, 1)

	go func() {
		defer close(out)

		for blob := range raw {
			entities, err := decode(blob)
			if err != nil {
				continue
			}

			select {
			case <-out:
			default:
			}

			out <- entities
		}
	}()

	return out, cancel
}

// Get returns the favourite with the given id.
func (s *Store) Get(id string) (Entity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, e := range s.entities {
		if e.ID == id {
			return e, nil
		}
	}

	return Entity{}, fmt.Errorf("%w: %s", ErrNotFound, id)
}

// Create adds a favourite and returns its generated id. It fails with
// ErrDuplicateLocation when a favourite already exists at the exact
// coordinate pair.
func (s *Store) Create(name string, lat, lng float64) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", ErrEmptyName
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range s.entities {
		if e.Lat == lat && e.Lng == lng {
			return "", fmt.Errorf("%w: (%f, %f)", ErrDuplicateLocation, lat, lng)
		}
	}

	id, err := newID()
	if err != nil {
		return "", err
	}

	next := append(s.snapshotLocked(), Entity{ID: id, Name: name, Lat: lat, Lng: lng})
	if err := s.persistLocked(next); err != nil {
		return "", err
	}

	return id, nil
}

// Update replaces the favourite with a matching id wholesale. Unknown ids
// fail with ErrNotFound; both Update and Get share that policy.
func (s *Store) Update(entity Entity) error {
	if strings.TrimSpace(entity.Name) == "" {
		return ErrEmptyName
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.snapshotLocked()

	for i, e := range next {
		if e.ID == entity.ID {
			next[i] = entity

			return s.persistLocked(next)
		}
	}

	return fmt.Errorf("%w: %s", ErrNotFound, entity.ID)
}

// Delete removes the favourite with the given id. Deleting an absent id is
// a no-op.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.snapshotLocked()

	for i, e := range next {
		if e.ID == id {
			next = append(next[:i], next[i+1:]...)

			return s.persistLocked(next)
		}
	}

	return nil
}

// Nearby returns favourites whose H3 cell matches the given coordinate's,
// nearest first.
func (s *Store) Nearby(lat, lng float64) ([]Entity, error) {
	cell, err := h3.LatLngToCell(h3.NewLatLng(lat, lng), nearbyResolution)
	if err != nil {
		return nil, fmt.Errorf("computing h3 cell: %w", err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Entity

	for _, e := range s.entities {
		c, err := h3.LatLngToCell(h3.NewLatLng(e.Lat, e.Lng), nearbyResolution)
		if err != nil {
			return nil, fmt.Errorf("computing h3 cell for %s: %w", e.ID, err)
		}

		if c == cell {
			out = append(out, e)
		}
	}

	origin := spatial.Point{Lat: lat, Lng: lng}

	sort.Slice(out, func(i, j int) bool {
		pi, pj := out[i].Point(), out[j].Point()

		return origin.HaversineDistance(&pi) < origin.HaversineDistance(&pj)
	})

	return out, nil
}

// Import merges entities into the collection in one write. Entries without
// an id get one; entries colliding with an existing coordinate pair are
// skipped. Returns the number added and skipped.
func (s *Store) Import(entities []Entity) (added, skipped int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.snapshotLocked()

	taken := make(map[spatial.Point]bool, len(next))
	for _, e := range next {
		taken[e.Point()] = true
	}

	for _, e := range entities {
		if strings.TrimSpace(e.Name) == "" || taken[e.Point()] {
			skipped++

			continue
		}

		if e.ID == "" {
			id, err := newID()
			if err != nil {
				return added, skipped, err
			}

			e.ID = id
		}

		e.Name = strings.TrimSpace(e.Name)
		next = append(next, e)
		taken[e.Point()] = true
		added++
	}

	if added == 0 {
		return 0, skipped, nil
	}

	return added, skipped, s.persistLocked(next)
}

func (s *Store) snapshotLocked() []Entity {
	out := make([]Entity, len(s.entities))
	copy(out, s.entities)

	return out
}

// persistLocked writes the whole collection and updates the projection.
// Callers hold the write lock.
func (s *Store) persistLocked(entities []Entity) error {
	blob, err := encode(entities)
	if err != nil {
		return err
	}

	if err := s.repo.Set(prefs.KeyFavourites, blob); err != nil {
		return fmt.Errorf("persisting favourites: %w", err)
	}

	s.entities = entities

	return nil
}

// encode serializes each entity independently, collected into one array
// blob.
func encode(entities []Entity) ([]byte, error) {
	records := make([]json.RawMessage, 0, len(entities))

	for _, e := range entities {
		record, err := json.Marshal(e)
		if err != nil {
			return nil, fmt.Errorf("encoding favourite %s: %w", e.ID, err)
		}

		records = append(records, record)
	}

	return json.Marshal(records)
}

func decode(blob []byte) ([]Entity, error) {
	if len(blob) == 0 {
		return nil, nil
	}

	var records []json.RawMessage
	if err := json.Unmarshal(blob, &records); err != nil {
		return nil, err
	}

	entities := make([]Entity, 0, len(records))

	for _, record := range records {
		var e Entity
		if err := json.Unmarshal(record, &e); err != nil {
			return nil, err
		}

		entities = append(entities, e)
	}

	return entities, nil
}

func newID() (string, error) {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return "", fmt.Errorf("generating favourite id: %w", err)
	}

	return hex.EncodeToString(buf[:]), nil
}
