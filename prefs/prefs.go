// Copyright 2026 The Mapcode Workbench Authors
// SPDX-License-Identifier: Apache-2.0

// Package prefs is the key-value preference store. Each key holds one blob
// that is replaced atomically on write; watchers see every replacement made
// through any handle in the process.
package prefs

import "sync"

// Well-known preference keys.
const (
	KeyFavourites      = "favourites"
	KeyCameraLatitude  = "camera.latitude"
	KeyCameraLongitude = "camera.longitude"
	KeyCameraZoom      = "camera.zoom"
)

// Repository stores one blob per key with atomic replacement.
type Repository interface {
	// Get returns the blob stored under key, if any.
	Get(key string) ([]byte, bool, error)

	// Set atomically replaces the blob stored under key and notifies
	// watchers.
	Set(key string, value []byte) error

	// Watch returns a channel that receives the current value (when one
	// exists) and every subsequent replacement. The returned function
	// cancels the subscription.
	Watch(key string) (<-chan []byte, func())
}

// hub fans Set notifications out to watchers. Channels are buffered with a
// latest-wins discipline so a slow watcher never blocks a writer.
type hub struct {
	mu   sync.Mutex
	subs map[string]map[int]chan []byte
	next int
}

func newHub() *hub {
	return &hub{subs: make(map[string]map[int]chan []byte)}
}

func (h *hub) subscribe(key string) (chan []byte, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	ch := make(chan []byte, 1)
	id := h.next
	h.next++

	if h.subs[key] == nil {
		h.subs[key] = make(map[int]chan []byte)
	}

	h.subs[key][id] = ch

	cancel := func() {
		h.mu.Lock()
		defer h.mu.Unlock()

		if _, ok := h.subs[key][id]; ok {
			delete(h.subs[key], id)
			close(ch)
		}
	}

	return ch, cancel
}

func (h *hub) publish(key string, value []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, ch := range h.subs[key] {
		select {
		case <-ch:
		default:
		}

		ch <- value
	}
}

// offer delivers the initial value to a freshly subscribed channel. If a
// publish already queued a newer value the initial one is skipped.
func offer(ch chan []byte, value []byte) {
	select {
	case ch <- value:
	default:
	}
}
