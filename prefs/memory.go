// Copyright 2026 The Mapcode Workbench Authors
// SPDX-License-Identifier: Apache-2.0

package prefs

import "sync"

// MemoryRepository is an in-process Repository used by tests and one-shot
// commands that have no database open.
type MemoryRepository struct {
	mu     sync.RWMutex
	values map[string][]byte
	hub    *hub
}

// NewMemoryRepository creates an empty in-memory repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		values: make(map[string][]byte),
		hub:    newHub(),
	}
}

// Get implements Repository.
func (r *MemoryRepository) Get(key string) ([]byte, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	value, ok := r.values[key]
	if !ok {
		return nil, false, nil
	}

	out := make([]byte, len(value))
	copy(out, value)

	return out, true, nil
}

// Set implements Repository.
func (r *MemoryRepository) Set(key string, value []byte) error {
	stored := make([]byte, len(value))
	copy(stored, value)

	r.mu.Lock()
	r.values[key] = stored
	r.mu.Unlock()

	r.hub.publish(key, stored)

	return nil
}

// Watch implements Repository.
func (r *MemoryRepository) Watch(key string) (<-chan []byte, func()) {
	ch, cancel := r.hub.subscribe(key)

	if value, ok, _ := r.Get(key); ok {
		offer(ch, value)
	}

	return ch, cancel
}
