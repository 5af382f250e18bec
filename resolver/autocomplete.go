// Copyright 2026 The Mapcode Workbench Authors
// SPDX-License-Identifier: Apache-2.0

package resolver

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/mapcode-foundation/mapcode-workbench/geocode"
)

// DefaultAutocompleteDelay is the pause after the last keystroke before a
// suggestion lookup fires.
const DefaultAutocompleteDelay = 300 * time.Millisecond

// Autocompleter debounces address keystrokes into suggestion lookups.
// Only the newest query may populate the dropdown; results for anything
// older are dropped, and failed lookups close the dropdown without
// surfacing an error.
type Autocompleter struct {
	engine   *Engine
	geocoder geocode.Geocoder
	delay    time.Duration

	mu      sync.Mutex
	seq     uint64
	pending *time.Timer
}

// NewAutocompleter wires the controller to the engine. A non-positive
// delay selects DefaultAutocompleteDelay.
func NewAutocompleter(engine *Engine, geocoder geocode.Geocoder, delay time.Duration) *Autocompleter {
	if delay <= 0 {
		delay = DefaultAutocompleteDelay
	}

	return &Autocompleter{
		engine:   engine,
		geocoder: geocoder,
		delay:    delay,
	}
}

// QueryChanged is called on every keystroke in the address field. The
// previous pending lookup is cancelled; an empty query clears the
// dropdown immediately instead of scheduling one.
func (a *Autocompleter) QueryChanged(query string) {
	query = strings.TrimSpace(query)

	a.mu.Lock()
	defer a.mu.Unlock()

	a.seq++
	a.cancelPendingLocked()

	if query == "" {
		a.engine.post(setAutocompleteIntent{})

		return
	}

	id := a.seq
	a.pending = time.AfterFunc(a.delay, func() { a.lookup(id, query) })
}

// Pick resolves a suggestion from the dropdown. Any in-flight or pending
// lookup is abandoned.
func (a *Autocompleter) Pick(suggestion string) {
	a.mu.Lock()
	a.seq++
	a.cancelPendingLocked()
	a.mu.Unlock()

	a.engine.PickSuggestion(suggestion)
}

// Close cancels any pending lookup.
func (a *Autocompleter) Close() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.seq++
	a.cancelPendingLocked()
}

func (a *Autocompleter) lookup(id uint64, query string) {
	ctx, cancel := context.WithTimeout(context.Background(), lookupTimeout)
	defer cancel()

	suggestions, err := a.geocoder.Suggest(ctx, query)

	// The staleness check and the post to the engine stay under the same
	// lock, so a newer query cannot be overtaken between them.
	a.mu.Lock()
	defer a.mu.Unlock()

	if id != a.seq {
		return
	}

	if err != nil {
		a.engine.post(setAutocompleteIntent{state: AutocompleteState{Query: query}})

		return
	}

	a.engine.post(setAutocompleteIntent{state: AutocompleteState{
		Query:       query,
		Suggestions: suggestions,
		IsOpen:      len(suggestions) > 0,
	}})
}

func (a *Autocompleter) cancelPendingLocked() {
	if a.pending != nil {
		a.pending.Stop()
		a.pending = nil
	}
}
