// Copyright 2026 The Mapcode Workbench Authors
// SPDX-License-Identifier: Apache-2.0

package resolver

import (
	"context"
	"errors"
	"log"
	"math"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/mapcode-foundation/mapcode-workbench/geocode"
	"github.com/mapcode-foundation/mapcode-workbench/mapcode"
	"github.com/mapcode-foundation/mapcode-workbench/prefs"
	"github.com/mapcode-foundation/mapcode-workbench/spatial"
)

// Default camera when no last-known position is stored: the Mapcode
// Foundation's home town.
var defaultHome = spatial.Point{Lat: 52.376514, Lng: 4.908542}

const (
	defaultZoom   = 16.0
	lookupTimeout = 15 * time.Second
)

// Clipboard receives the selected mapcode on copy. Fire-and-forget.
type Clipboard interface {
	Copy(text string)
}

// Options wires the engine's collaborators. Mapcodes and Geocoder are
// required; Prefs enables last-camera persistence and Clipboard the copy
// operation.
type Options struct {
	Mapcodes  mapcode.Gateway
	Geocoder  geocode.Geocoder
	Prefs     prefs.Repository
	Clipboard Clipboard

	// Home overrides the default start camera when no position is stored.
	Home     spatial.Point
	HomeZoom float64
}

// Engine owns the canonical location. A single goroutine consumes intents
// from one channel; async lookup results re-enter as intents carrying the
// request id issued for them, and any result that is not the newest issue
// of its channel is dropped, errors included.
type Engine struct {
	mapcodes  mapcode.Gateway
	geocoder  geocode.Geocoder
	prefs     prefs.Repository
	clipboard Clipboard

	intents   chan intent
	done      chan struct{}
	closeOnce sync.Once

	// Owned by the loop goroutine.
	state      State
	addressSeq uint64
	reverseSeq uint64
	decodeSeq  uint64

	wmu      sync.Mutex
	watchers map[int]chan State
	nextID   int
}

// Intents. Async results carry the request id that was current when their
// lookup was issued.
type intent interface{ isIntent() }

type (
	moveCameraIntent      struct{ lat, lng, zoom float64 }
	submitAddressIntent   struct{ text string }
	submitLatitudeIntent  struct{ text string }
	submitLongitudeIntent struct{ text string }
	submitMapcodeIntent   struct{ text string }
	selectMapcodeIntent   struct{ index int }
	focusAddressIntent    struct{ focused bool }
	focusLatitudeIntent   struct{}
	focusLongitudeIntent  struct{}
	copyMapcodeIntent     struct{}
	pickSuggestionIntent  struct{ suggestion string }
	setAutocompleteIntent struct{ state AutocompleteState }
	currentIntent         struct{ reply chan State }

	geocodeResultIntent struct {
		id     uint64
		query  string
		result *geocode.Result
		err    error
	}

	reverseResultIntent struct {
		id      uint64
		address string
		err     error
	}

	decodeResultIntent struct {
		id    uint64
		input string
		point spatial.Point
		err   error
	}
)

func (moveCameraIntent) isIntent()      {}
func (submitAddressIntent) isIntent()   {}
func (submitLatitudeIntent) isIntent()  {}
func (submitLongitudeIntent) isIntent() {}
func (submitMapcodeIntent) isIntent()   {}
func (selectMapcodeIntent) isIntent()   {}
func (focusAddressIntent) isIntent()    {}
func (focusLatitudeIntent) isIntent()   {}
func (focusLongitudeIntent) isIntent()  {}
func (copyMapcodeIntent) isIntent()     {}
func (pickSuggestionIntent) isIntent()  {}
func (setAutocompleteIntent) isIntent() {}
func (currentIntent) isIntent()         {}
func (geocodeResultIntent) isIntent()   {}
func (reverseResultIntent) isIntent()   {}
func (decodeResultIntent) isIntent()    {}

// New creates the engine, restores the last camera position and starts the
// intent loop.
func New(opts Options) (*Engine, error) {
	if opts.Mapcodes == nil {
		return nil, errors.New("resolver: mapcode gateway is required")
	}

	if opts.Geocoder == nil {
		return nil, errors.New("resolver: geocoder is required")
	}

	e := &Engine{
		mapcodes:  opts.Mapcodes,
		geocoder:  opts.Geocoder,
		prefs:     opts.Prefs,
		clipboard: opts.Clipboard,
		intents:   make(chan intent, 64),
		done:      make(chan struct{}),
		watchers:  make(map[int]chan State),
	}

	start, zoom := e.restoreCamera(opts)

	e.state = State{
		Location: start,
		Zoom:     zoom,
		LatitudeField: NumericFieldState{
			Text:    formatCoord(start.Lat),
			IsValid: true,
		},
		LongitudeField: NumericFieldState{
			Text:    formatCoord(start.Lng),
			IsValid: true,
		},
	}

	if codes, err := e.mapcodes.Encode(start.Lat, start.Lng); err != nil {
		log.Printf("mapcode encode failed at start for %s: %v", start, err)
	} else {
		e.state.Mapcodes = codes
	}

	go e.run()

	return e, nil
}

// Close stops the loop and closes all watcher channels.
func (e *Engine) Close() {
	e.closeOnce.Do(func() { close(e.done) })
}

// MoveCamera moves the canonical location. Out-of-range coordinates
// saturate at the valid bounds.
func (e *Engine) MoveCamera(lat, lng, zoom float64) {
	e.post(moveCameraIntent{lat: lat, lng: lng, zoom: zoom})
}

// SubmitAddress resolves free-text address input. Empty input clears the
// address error and helper without a lookup.
func (e *Engine) SubmitAddress(text string) {
	e.post(submitAddressIntent{text: text})
}

// SubmitLatitude commits the latitude field's text.
func (e *Engine) SubmitLatitude(text string) {
	e.post(submitLatitudeIntent{text: text})
}

// SubmitLongitude commits the longitude field's text.
func (e *Engine) SubmitLongitude(text string) {
	e.post(submitLongitudeIntent{text: text})
}

// SubmitMapcode decodes a hand-entered mapcode and moves the camera there.
func (e *Engine) SubmitMapcode(text string) {
	e.post(submitMapcodeIntent{text: text})
}

// SelectMapcode selects one of the derived mapcodes. Out-of-range indexes
// are ignored.
func (e *Engine) SelectMapcode(index int) {
	e.post(selectMapcodeIntent{index: index})
}

// FocusAddress marks the address field focused or blurred. While focused,
// camera moves do not overwrite the address text.
func (e *Engine) FocusAddress(focused bool) {
	e.post(focusAddressIntent{focused: focused})
}

// FocusLatitude marks the latitude field focused.
func (e *Engine) FocusLatitude() { e.post(focusLatitudeIntent{}) }

// FocusLongitude marks the longitude field focused.
func (e *Engine) FocusLongitude() { e.post(focusLongitudeIntent{}) }

// CopySelectedMapcode sends the selected mapcode, territory-prefixed, to
// the clipboard collaborator. No state mutation.
func (e *Engine) CopySelectedMapcode() { e.post(copyMapcodeIntent{}) }

// PickSuggestion resolves an autocomplete suggestion: the dropdown closes,
// the address field blurs and the suggestion is submitted as a query.
func (e *Engine) PickSuggestion(suggestion string) {
	e.post(pickSuggestionIntent{suggestion: suggestion})
}

// Current returns the state snapshot after every previously posted intent
// has been applied.
func (e *Engine) Current() State {
	reply := make(chan State, 1)
	e.post(currentIntent{reply: reply})

	select {
	case s := <-reply:
		return s
	case <-e.done:
		return State{}
	}
}

// Watch returns a channel carrying state snapshots. A slow consumer only
// sees the newest one. The returned function cancels the subscription.
func (e *Engine) Watch() (<-chan State, func()) {
	e.wmu.Lock()
	defer e.wmu.Unlock()

	ch := make(chan State, 1)

	if e.watchers == nil { // engine already closed
		close(ch)

		return ch, func() {}
	}

	id := e.nextID
	e.nextID++
	e.watchers[id] = ch

	cancel := func() {
		e.wmu.Lock()
		defer e.wmu.Unlock()

		if c, ok := e.watchers[id]; ok {
			delete(e.watchers, id)
			close(c)
		}
	}

	return ch, cancel
}

func (e *Engine) post(it intent) {
	select {
	case e.intents <- it:
	case <-e.done:
	}
}

func (e *Engine) run() {
	defer func() {
		e.wmu.Lock()
		defer e.wmu.Unlock()

		for _, ch := range e.watchers {
			close(ch)
		}

		e.watchers = nil
	}()

	for {
		select {
		case <-e.done:
			return
		case it := <-e.intents:
			if cur, ok := it.(currentIntent); ok {
				cur.reply <- e.state.clone()

				continue
			}

			e.apply(it)
			e.notify()
		}
	}
}

func (e *Engine) apply(it intent) {
	switch it := it.(type) {
	case moveCameraIntent:
		e.moveCamera(spatial.Point{Lat: it.lat, Lng: it.lng}, it.zoom, true)
	case submitAddressIntent:
		e.submitAddress(it.text)
	case submitLatitudeIntent:
		e.submitLatitude(it.text)
	case submitLongitudeIntent:
		e.submitLongitude(it.text)
	case submitMapcodeIntent:
		e.submitMapcode(it.text)
	case selectMapcodeIntent:
		if it.index >= 0 && it.index < len(e.state.Mapcodes) {
			e.state.SelectedMapcodeIndex = it.index
		}
	case focusAddressIntent:
		e.state.AddressFocused = it.focused
	case focusLatitudeIntent:
		e.state.LatitudeField.IsFocused = true
	case focusLongitudeIntent:
		e.state.LongitudeField.IsFocused = true
	case copyMapcodeIntent:
		if mc, ok := e.state.SelectedMapcode(); ok && e.clipboard != nil {
			e.clipboard.Copy(mc.CodeWithTerritory())
		}
	case pickSuggestionIntent:
		e.state.Autocomplete = AutocompleteState{}
		e.state.AddressFocused = false
		e.submitAddress(it.suggestion)
	case setAutocompleteIntent:
		e.state.Autocomplete = it.state
	case geocodeResultIntent:
		e.applyGeocodeResult(it)
	case reverseResultIntent:
		e.applyReverseResult(it)
	case decodeResultIntent:
		e.applyDecodeResult(it)
	case currentIntent:
		it.reply <- e.state.clone()
	}
}

// moveCamera sets the canonical location, re-derives the mapcodes and,
// when wanted and the address field is not focused, issues a
// reverse-geocode tagged with a fresh request id.
func (e *Engine) moveCamera(p spatial.Point, zoom float64, reverse bool) {
	p = p.Clamp()

	e.state.Location = p
	e.state.Zoom = zoom
	e.state.MapcodeError = nil

	if codes, err := e.mapcodes.Encode(p.Lat, p.Lng); err != nil {
		log.Printf("mapcode encode failed for %s: %v", p, err)
	} else {
		e.state.Mapcodes = codes
		e.state.SelectedMapcodeIndex = 0
	}

	e.refreshNumericFields()
	e.persistCamera(p, zoom)

	if !reverse || e.state.AddressFocused {
		return
	}

	e.reverseSeq++
	id := e.reverseSeq

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), lookupTimeout)
		defer cancel()

		address, err := e.geocoder.ReverseGeocode(ctx, p.Lat, p.Lng)
		e.post(reverseResultIntent{id: id, address: address, err: err})
	}()
}

func (e *Engine) submitAddress(text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		e.state.AddressText = ""
		e.state.AddressError = nil
		e.state.AddressHelper = AddressHelper{}

		return
	}

	e.state.AddressText = text

	e.addressSeq++
	id := e.addressSeq

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), lookupTimeout)
		defer cancel()

		result, err := e.geocoder.Geocode(ctx, text)
		e.post(geocodeResultIntent{id: id, query: text, result: result, err: err})
	}()
}

func (e *Engine) applyGeocodeResult(it geocodeResultIntent) {
	if it.id != e.addressSeq {
		return // superseded, drop even errors
	}

	switch {
	case it.err == nil:
		e.state.AddressError = nil
		e.state.AddressText = it.result.DisplayName
		e.state.AddressHelper = AddressHelper{Kind: HelperResolved, Summary: it.result.DisplayName}
		e.moveCamera(spatial.Point{Lat: it.result.Latitude, Lng: it.result.Longitude}, e.state.Zoom, false)
	case geocode.IsUnknownAddressError(it.err):
		e.state.AddressError = &UnknownAddress{Query: it.query}
		e.state.AddressHelper = AddressHelper{}
	case geocode.IsConnectivityError(it.err):
		e.state.AddressError = nil
		e.state.AddressHelper = AddressHelper{Kind: HelperNoInternet}
	default:
		log.Printf("geocode failed for %q: %v", it.query, it.err)
	}
}

func (e *Engine) applyReverseResult(it reverseResultIntent) {
	if it.id != e.reverseSeq {
		return
	}

	switch {
	case it.err == nil:
		e.state.AddressText = it.address
		e.state.AddressError = nil
		e.state.AddressHelper = AddressHelper{Kind: HelperResolved, Summary: it.address}
	case geocode.IsNoAddressError(it.err):
		e.state.AddressText = ""
		e.state.AddressError = nil
		e.state.AddressHelper = AddressHelper{Kind: HelperNoAddress}
	case geocode.IsConnectivityError(it.err):
		e.state.AddressHelper = AddressHelper{Kind: HelperNoInternet}
	default:
		log.Printf("reverse geocode failed for %s: %v", e.state.Location, it.err)
	}
}

func (e *Engine) submitLatitude(text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		// No change; the field releases focus and reformats.
		e.state.LatitudeField = NumericFieldState{
			Text:    formatCoord(e.state.Location.Lat),
			IsValid: true,
		}

		return
	}

	v, err := strconv.ParseFloat(text, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		// Invalid input withholds commit and keeps focus.
		e.state.LatitudeField = NumericFieldState{Text: text, IsFocused: true}

		return
	}

	e.state.LatitudeField.IsFocused = false
	e.moveCamera(spatial.Point{Lat: v, Lng: e.state.Location.Lng}, e.state.Zoom, true)
}

func (e *Engine) submitLongitude(text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		e.state.LongitudeField = NumericFieldState{
			Text:    formatCoord(e.state.Location.Lng),
			IsValid: true,
		}

		return
	}

	v, err := strconv.ParseFloat(text, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		e.state.LongitudeField = NumericFieldState{Text: text, IsFocused: true}

		return
	}

	e.state.LongitudeField.IsFocused = false
	e.moveCamera(spatial.Point{Lat: e.state.Location.Lat, Lng: v}, e.state.Zoom, true)
}

func (e *Engine) submitMapcode(text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		e.state.MapcodeError = nil

		return
	}

	e.decodeSeq++
	id := e.decodeSeq

	go func() {
		point, err := e.mapcodes.Decode(text)
		e.post(decodeResultIntent{id: id, input: text, point: point, err: err})
	}()
}

func (e *Engine) applyDecodeResult(it decodeResultIntent) {
	if it.id != e.decodeSeq {
		return
	}

	if it.err != nil {
		e.state.MapcodeError = &UnknownMapcode{Input: it.input}

		return
	}

	e.state.MapcodeError = nil
	e.moveCamera(it.point, e.state.Zoom, true)
}

// refreshNumericFields reformats unfocused numeric fields from the
// canonical location. Focused fields keep the user's buffer.
func (e *Engine) refreshNumericFields() {
	if !e.state.LatitudeField.IsFocused {
		e.state.LatitudeField = NumericFieldState{
			Text:    formatCoord(e.state.Location.Lat),
			IsValid: true,
		}
	}

	if !e.state.LongitudeField.IsFocused {
		e.state.LongitudeField = NumericFieldState{
			Text:    formatCoord(e.state.Location.Lng),
			IsValid: true,
		}
	}
}

func (e *Engine) restoreCamera(opts Options) (spatial.Point, float64) {
	start := opts.Home
	if start == (spatial.Point{}) {
		start = defaultHome
	}

	zoom := opts.HomeZoom
	if zoom == 0 {
		zoom = defaultZoom
	}

	if e.prefs == nil {
		return start, zoom
	}

	lat, okLat := e.readFloat(prefs.KeyCameraLatitude)
	lng, okLng := e.readFloat(prefs.KeyCameraLongitude)

	if okLat && okLng {
		start = spatial.Point{Lat: lat, Lng: lng}.Clamp()
	}

	if z, ok := e.readFloat(prefs.KeyCameraZoom); ok {
		zoom = z
	}

	return start, zoom
}

func (e *Engine) readFloat(key string) (float64, bool) {
	blob, ok, err := e.prefs.Get(key)
	if err != nil || !ok {
		return 0, false
	}

	v, err := strconv.ParseFloat(string(blob), 64)
	if err != nil {
		return 0, false
	}

	return v, true
}

// persistCamera stores the last camera position. Fire-and-forget.
func (e *Engine) persistCamera(p spatial.Point, zoom float64) {
	if e.prefs == nil {
		return
	}

	go func() {
		for key, v := range map[string]float64{
			prefs.KeyCameraLatitude:  p.Lat,
			prefs.KeyCameraLongitude: p.Lng,
			prefs.KeyCameraZoom:      zoom,
		} {
			if err := e.prefs.Set(key, []byte(formatCoord(v))); err != nil {
				log.Printf("persisting %s: %v", key, err)
			}
		}
	}()
}

func (e *Engine) notify() {
	e.wmu.Lock()
	defer e.wmu.Unlock()

	if len(e.watchers) == 0 {
		return
	}

	snapshot := e.state.clone()

	for _, ch := range e.watchers {
		select {
		case <-ch:
		default:
		}

		ch <- snapshot
	}
}
