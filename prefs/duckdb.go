// Copyright 2026 The Mapcode Workbench Authors
// SPDX-License-Identifier: Apache-2.0

package prefs

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// DuckDBRepository persists preferences in a DuckDB table. Replacement of a
// key's blob happens inside a transaction, so concurrent readers never see a
// partial write. Watch notifications are in-process only.
type DuckDBRepository struct {
	db  *sql.DB
	hub *hub
}

// NewDuckDBRepository creates the repository and its schema.
func NewDuckDBRepository(db *sql.DB) (*DuckDBRepository, error) {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS preferences (
			key VARCHAR PRIMARY KEY,
			value VARCHAR NOT NULL,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		);
	`)
	if err != nil {
		return nil, fmt.Errorf("creating preferences schema: %w", err)
	}

	return &DuckDBRepository{db: db, hub: newHub()}, nil
}

// Get implements Repository.
func (r *DuckDBRepository) Get(key string) ([]byte, bool, error) {
	var value string

	err := r.db.QueryRow(`SELECT value FROM preferences WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}

	if err != nil {
		return nil, false, fmt.Errorf("reading preference %q: %w", key, err)
	}

	return []byte(value), true, nil
}

// Set implements Repository.
func (r *DuckDBRepository) Set(key string, value []byte) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("starting preference write: %w", err)
	}

	_, err = tx.Exec(`
		INSERT INTO preferences(key, value, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT (key) DO UPDATE
		SET value = excluded.value, updated_at = excluded.updated_at
	`, key, string(value), time.Now())
	if err != nil {
		if rErr := tx.Rollback(); rErr != nil {
			err = rErr
		}

		return fmt.Errorf("writing preference %q: %w", key, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing preference %q: %w", key, err)
	}

	r.hub.publish(key, value)

	return nil
}

// Watch implements Repository.
func (r *DuckDBRepository) Watch(key string) (<-chan []byte, func()) {
	ch, cancel := r.hub.subscribe(key)

	if value, ok, err := r.Get(key); err == nil && ok {
		offer(ch, value)
	}

	return ch, cancel
}
