// Copyright 2026 The Mapcode Workbench Authors
// SPDX-License-Identifier: Apache-2.0

package resolver

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mapcode-foundation/mapcode-workbench/geocode"
	"github.com/mapcode-foundation/mapcode-workbench/mapcode"
	"github.com/mapcode-foundation/mapcode-workbench/prefs"
	"github.com/mapcode-foundation/mapcode-workbench/spatial"
)

// fakeCodec derives deterministic mapcodes from the coordinate so tests
// can assert on them without a live codec.
type fakeCodec struct {
	mu      sync.Mutex
	decodes map[string]spatial.Point
}

func newFakeCodec() *fakeCodec {
	return &fakeCodec{decodes: map[string]spatial.Point{
		"NLD AB.XY": {Lat: 3, Lng: 2},
	}}
}

func (c *fakeCodec) Encode(lat, lng float64) ([]mapcode.Mapcode, error) {
	if lat == 3 && lng == 2 {
		return []mapcode.Mapcode{
			{Code: "AB.XY", Territory: "NLD"},
			{Code: "VHXG9.FXXX", Territory: mapcode.TerritoryInternational},
		}, nil
	}

	return []mapcode.Mapcode{
		{Code: fmt.Sprintf("%.4f.%.4f", lat, lng), Territory: "NLD"},
		{Code: fmt.Sprintf("I%.4f.%.4f", lat, lng), Territory: mapcode.TerritoryInternational},
	}, nil
}

func (c *fakeCodec) Decode(code string) (spatial.Point, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	p, ok := c.decodes[code]
	if !ok {
		return spatial.Point{}, mapcode.ErrUnknownMapcode
	}

	return p, nil
}

// scriptedGeocoder serves canned results and can hold a query's response
// behind a gate until the test releases it.
type scriptedGeocoder struct {
	mu           sync.Mutex
	results      map[string]*geocode.Result
	errs         map[string]error
	gates        map[string]chan struct{}
	reverseText  string
	reverseErr   error
	reverseCalls int
	suggestions  map[string][]string
	suggestErr   error
	suggestGates map[string]chan struct{}
	suggestCalls int
}

func newScriptedGeocoder() *scriptedGeocoder {
	return &scriptedGeocoder{
		results:      make(map[string]*geocode.Result),
		errs:         make(map[string]error),
		gates:        make(map[string]chan struct{}),
		suggestions:  make(map[string][]string),
		suggestGates: make(map[string]chan struct{}),
	}
}

func (g *scriptedGeocoder) Geocode(ctx context.Context, address string) (*geocode.Result, error) {
	g.mu.Lock()
	gate := g.gates[address]
	g.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if err, ok := g.errs[address]; ok {
		return nil, err
	}

	if r, ok := g.results[address]; ok {
		cp := *r

		return &cp, nil
	}

	return nil, &geocode.GeocodingError{
		Type:    geocode.ErrorTypeUnknownAddress,
		Message: "address not found: " + address,
	}
}

func (g *scriptedGeocoder) ReverseGeocode(ctx context.Context, lat, lng float64) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.reverseCalls++

	if g.reverseErr != nil {
		return "", g.reverseErr
	}

	if g.reverseText != "" {
		return g.reverseText, nil
	}

	return fmt.Sprintf("%.4f, %.4f", lat, lng), nil
}

func (g *scriptedGeocoder) Suggest(ctx context.Context, query string) ([]string, error) {
	g.mu.Lock()
	gate := g.suggestGates[query]
	g.suggestCalls++
	g.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if g.suggestErr != nil {
		return nil, g.suggestErr
	}

	return g.suggestions[query], nil
}

func (g *scriptedGeocoder) countReverseCalls() int {
	g.mu.Lock()
	defer g.mu.Unlock()

	return g.reverseCalls
}

func (g *scriptedGeocoder) countSuggestCalls() int {
	g.mu.Lock()
	defer g.mu.Unlock()

	return g.suggestCalls
}

type recordingClipboard struct {
	mu     sync.Mutex
	copied []string
}

func (c *recordingClipboard) Copy(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.copied = append(c.copied, text)
}

func (c *recordingClipboard) last() string {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.copied) == 0 {
		return ""
	}

	return c.copied[len(c.copied)-1]
}

func newTestEngine(t *testing.T, geocoder geocode.Geocoder, repo prefs.Repository) *Engine {
	t.Helper()

	e, err := New(Options{
		Mapcodes: newFakeCodec(),
		Geocoder: geocoder,
		Prefs:    repo,
	})
	require.NoError(t, err)
	t.Cleanup(e.Close)

	return e
}

func waitForState(t *testing.T, e *Engine, cond func(State) bool) State {
	t.Helper()

	var last State

	require.Eventually(t, func() bool {
		last = e.Current()

		return cond(last)
	}, 2*time.Second, 5*time.Millisecond)

	return last
}

func TestMoveCameraClampsOutOfRange(t *testing.T) {
	e := newTestEngine(t, newScriptedGeocoder(), nil)

	e.MoveCamera(95, 200, 12)

	s := e.Current()
	assert.Equal(t, spatial.Point{Lat: spatial.MaxLat, Lng: spatial.MaxLng}, s.Location)
	assert.Equal(t, 12.0, s.Zoom)

	e.MoveCamera(-95, -200, 12)

	s = e.Current()
	assert.Equal(t, spatial.Point{Lat: spatial.MinLat, Lng: spatial.MinLng}, s.Location)
}

func TestMoveCameraDerivesMapcodesAndFields(t *testing.T) {
	e := newTestEngine(t, newScriptedGeocoder(), nil)

	e.SelectMapcode(1)
	e.MoveCamera(3, 2, 10)

	s := e.Current()
	require.Len(t, s.Mapcodes, 2)
	assert.Equal(t, "AB.XY", s.Mapcodes[0].Code)
	assert.Equal(t, 0, s.SelectedMapcodeIndex, "selection resets on camera move")
	assert.Equal(t, "3", s.LatitudeField.Text)
	assert.Equal(t, "2", s.LongitudeField.Text)
	assert.True(t, s.LatitudeField.IsValid)
	assert.True(t, s.LongitudeField.IsValid)
}

func TestMoveCameraReverseGeocodesUnlessAddressFocused(t *testing.T) {
	g := newScriptedGeocoder()
	g.reverseText = "Street, City"

	e := newTestEngine(t, g, nil)

	e.MoveCamera(3, 2, 10)

	s := waitForState(t, e, func(s State) bool { return s.AddressText == "Street, City" })
	assert.Equal(t, HelperResolved, s.AddressHelper.Kind)
	assert.Equal(t, "Street, City", s.AddressHelper.Summary)

	// While the address field is focused the user's draft stays put.
	before := g.countReverseCalls()

	e.FocusAddress(true)
	e.MoveCamera(4, 5, 10)
	e.Current()

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, before, g.countReverseCalls())
	assert.Equal(t, "Street, City", e.Current().AddressText)
}

func TestSubmitAddressResolves(t *testing.T) {
	g := newScriptedGeocoder()
	g.results["Street, City"] = &geocode.Result{
		Latitude:    3,
		Longitude:   2,
		DisplayName: "Street, City",
	}

	e := newTestEngine(t, g, nil)

	e.SubmitAddress("Street, City")

	s := waitForState(t, e, func(s State) bool {
		return s.Location.Equal(spatial.Point{Lat: 3, Lng: 2})
	})

	assert.Equal(t, "AB.XY", s.Mapcodes[0].Code)
	assert.Equal(t, "3", s.LatitudeField.Text)
	assert.Equal(t, "2", s.LongitudeField.Text)
	assert.Equal(t, HelperResolved, s.AddressHelper.Kind)
	assert.Nil(t, s.AddressError)
}

func TestSubmitAddressUnknownThenResolvedClearsError(t *testing.T) {
	g := newScriptedGeocoder()
	g.results["Street, City"] = &geocode.Result{Latitude: 3, Longitude: 2, DisplayName: "Street, City"}

	e := newTestEngine(t, g, nil)
	before := e.Current().Location

	e.SubmitAddress("nowhere at all")

	s := waitForState(t, e, func(s State) bool { return s.AddressError != nil })
	assert.Equal(t, "nowhere at all", s.AddressError.Query)
	assert.Equal(t, HelperNone, s.AddressHelper.Kind, "helper and error are mutually exclusive")
	assert.True(t, s.Location.Equal(before), "failed lookup must not move the camera")

	e.SubmitAddress("Street, City")

	s = waitForState(t, e, func(s State) bool { return s.AddressHelper.Kind == HelperResolved })
	assert.Nil(t, s.AddressError)
}

func TestSubmitAddressConnectivityFailure(t *testing.T) {
	g := newScriptedGeocoder()
	g.errs["Street, City"] = &geocode.GeocodingError{
		Type:    geocode.ErrorTypeConnectivity,
		Message: "no route to host",
	}

	e := newTestEngine(t, g, nil)

	e.SubmitAddress("Street, City")

	s := waitForState(t, e, func(s State) bool { return s.AddressHelper.Kind == HelperNoInternet })
	assert.Nil(t, s.AddressError)
}

func TestSubmitAddressEmptyClearsWithoutLookup(t *testing.T) {
	g := newScriptedGeocoder()
	e := newTestEngine(t, g, nil)

	e.SubmitAddress("nowhere at all")
	waitForState(t, e, func(s State) bool { return s.AddressError != nil })

	e.SubmitAddress("   ")

	s := e.Current()
	assert.Nil(t, s.AddressError)
	assert.Equal(t, HelperNone, s.AddressHelper.Kind)
	assert.Empty(t, s.AddressText)
}

func TestStaleGeocodeResultIsDropped(t *testing.T) {
	g := newScriptedGeocoder()
	gateA := make(chan struct{})
	g.gates["query a"] = gateA
	g.results["query a"] = &geocode.Result{Latitude: 10, Longitude: 10, DisplayName: "A"}
	g.results["query b"] = &geocode.Result{Latitude: 20, Longitude: 20, DisplayName: "B"}

	e := newTestEngine(t, g, nil)

	e.SubmitAddress("query a")
	e.SubmitAddress("query b")

	waitForState(t, e, func(s State) bool {
		return s.Location.Equal(spatial.Point{Lat: 20, Lng: 20})
	})

	// Now the older lookup completes. Its result must be ignored.
	close(gateA)
	time.Sleep(50 * time.Millisecond)

	s := e.Current()
	assert.True(t, s.Location.Equal(spatial.Point{Lat: 20, Lng: 20}))
	assert.Equal(t, "B", s.AddressText)
}

func TestStaleGeocodeErrorIsDropped(t *testing.T) {
	g := newScriptedGeocoder()
	gateA := make(chan struct{})
	g.gates["query a"] = gateA
	g.errs["query a"] = &geocode.GeocodingError{Type: geocode.ErrorTypeUnknownAddress, Message: "nope"}
	g.results["query b"] = &geocode.Result{Latitude: 20, Longitude: 20, DisplayName: "B"}

	e := newTestEngine(t, g, nil)

	e.SubmitAddress("query a")
	e.SubmitAddress("query b")

	waitForState(t, e, func(s State) bool {
		return s.Location.Equal(spatial.Point{Lat: 20, Lng: 20})
	})

	close(gateA)
	time.Sleep(50 * time.Millisecond)

	assert.Nil(t, e.Current().AddressError, "stale errors are dropped like stale successes")
}

func TestSubmitLatitude(t *testing.T) {
	e := newTestEngine(t, newScriptedGeocoder(), nil)
	e.MoveCamera(3, 2, 10)

	t.Run("valid input moves the camera", func(t *testing.T) {
		e.SubmitLatitude("52.5")

		s := e.Current()
		assert.True(t, s.Location.Equal(spatial.Point{Lat: 52.5, Lng: 2}))
		assert.Equal(t, "52.5", s.LatitudeField.Text)
		assert.True(t, s.LatitudeField.IsValid)
		assert.False(t, s.LatitudeField.IsFocused)
	})

	t.Run("invalid input withholds commit and keeps focus", func(t *testing.T) {
		e.SubmitLatitude("a")

		s := e.Current()
		assert.True(t, s.Location.Equal(spatial.Point{Lat: 52.5, Lng: 2}))

		want := NumericFieldState{Text: "a", IsValid: false, IsFocused: true}
		if diff := cmp.Diff(want, s.LatitudeField); diff != "" {
			t.Errorf("latitude field mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("empty input accepts and reformats", func(t *testing.T) {
		e.SubmitLatitude("")

		s := e.Current()
		assert.True(t, s.Location.Equal(spatial.Point{Lat: 52.5, Lng: 2}))

		want := NumericFieldState{Text: "52.5", IsValid: true, IsFocused: false}
		if diff := cmp.Diff(want, s.LatitudeField); diff != "" {
			t.Errorf("latitude field mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("comma separator is rejected", func(t *testing.T) {
		e.SubmitLatitude("52,5")

		s := e.Current()
		assert.False(t, s.LatitudeField.IsValid)
		assert.True(t, s.LatitudeField.IsFocused)
	})
}

func TestSubmitLongitudeKeepsLatitude(t *testing.T) {
	e := newTestEngine(t, newScriptedGeocoder(), nil)
	e.MoveCamera(3, 2, 10)

	e.SubmitLongitude("4.9")

	s := e.Current()
	assert.True(t, s.Location.Equal(spatial.Point{Lat: 3, Lng: 4.9}))
}

func TestFocusedFieldKeepsDraftOnCameraMove(t *testing.T) {
	e := newTestEngine(t, newScriptedGeocoder(), nil)
	e.MoveCamera(3, 2, 10)

	e.FocusLatitude()
	e.MoveCamera(40, 50, 10)

	s := e.Current()
	assert.Equal(t, "3", s.LatitudeField.Text, "focused field keeps the user's buffer")
	assert.Equal(t, "50", s.LongitudeField.Text, "unfocused field reformats")
}

func TestSubmitMapcode(t *testing.T) {
	e := newTestEngine(t, newScriptedGeocoder(), nil)

	e.SubmitMapcode("NLD AB.XY")

	s := waitForState(t, e, func(s State) bool {
		return s.Location.Equal(spatial.Point{Lat: 3, Lng: 2})
	})
	assert.Nil(t, s.MapcodeError)

	e.SubmitMapcode("ZZZ 99.99")

	s = waitForState(t, e, func(s State) bool { return s.MapcodeError != nil })
	assert.Equal(t, "ZZZ 99.99", s.MapcodeError.Input)
	assert.True(t, s.Location.Equal(spatial.Point{Lat: 3, Lng: 2}), "failed decode must not move the camera")

	e.SubmitMapcode("NLD AB.XY")

	s = waitForState(t, e, func(s State) bool { return s.MapcodeError == nil })
	assert.True(t, s.Location.Equal(spatial.Point{Lat: 3, Lng: 2}))
}

func TestSelectMapcodeIgnoresOutOfRange(t *testing.T) {
	e := newTestEngine(t, newScriptedGeocoder(), nil)
	e.MoveCamera(3, 2, 10)

	e.SelectMapcode(1)
	assert.Equal(t, 1, e.Current().SelectedMapcodeIndex)

	e.SelectMapcode(99)
	assert.Equal(t, 1, e.Current().SelectedMapcodeIndex)

	e.SelectMapcode(-1)
	assert.Equal(t, 1, e.Current().SelectedMapcodeIndex)
}

func TestCopySelectedMapcode(t *testing.T) {
	clip := &recordingClipboard{}
	codec := newFakeCodec()

	e, err := New(Options{
		Mapcodes:  codec,
		Geocoder:  newScriptedGeocoder(),
		Clipboard: clip,
	})
	require.NoError(t, err)
	t.Cleanup(e.Close)

	e.MoveCamera(3, 2, 10)

	e.CopySelectedMapcode()
	e.Current()
	assert.Equal(t, "NLD AB.XY", clip.last())

	// The international representation drops the territory prefix.
	e.SelectMapcode(1)
	e.CopySelectedMapcode()
	e.Current()
	assert.Equal(t, "VHXG9.FXXX", clip.last())
}

func TestPickSuggestionSubmitsAndCloses(t *testing.T) {
	g := newScriptedGeocoder()
	g.results["Street, City"] = &geocode.Result{Latitude: 3, Longitude: 2, DisplayName: "Street, City"}

	e := newTestEngine(t, g, nil)

	e.post(setAutocompleteIntent{state: AutocompleteState{
		Query:       "Str",
		Suggestions: []string{"Street, City"},
		IsOpen:      true,
	}})
	e.FocusAddress(true)

	e.PickSuggestion("Street, City")

	s := waitForState(t, e, func(s State) bool {
		return s.Location.Equal(spatial.Point{Lat: 3, Lng: 2})
	})
	assert.False(t, s.Autocomplete.IsOpen)
	assert.Empty(t, s.Autocomplete.Suggestions)
	assert.False(t, s.AddressFocused)
}

func TestCameraPersistsAndRestores(t *testing.T) {
	repo := prefs.NewMemoryRepository()
	g := newScriptedGeocoder()

	e := newTestEngine(t, g, repo)
	e.MoveCamera(3, 2, 14)

	require.Eventually(t, func() bool {
		blob, ok, err := repo.Get(prefs.KeyCameraLatitude)

		return err == nil && ok && string(blob) == "3"
	}, 2*time.Second, 5*time.Millisecond)

	e.Close()

	restored := newTestEngine(t, g, repo)

	s := restored.Current()
	assert.True(t, s.Location.Equal(spatial.Point{Lat: 3, Lng: 2}))
	assert.Equal(t, 14.0, s.Zoom)
	assert.Equal(t, "AB.XY", s.Mapcodes[0].Code, "mapcodes derive from the restored position")
}

func TestWatchDeliversLatestSnapshot(t *testing.T) {
	e := newTestEngine(t, newScriptedGeocoder(), nil)

	ch, cancel := e.Watch()
	defer cancel()

	e.MoveCamera(3, 2, 10)

	require.Eventually(t, func() bool {
		select {
		case <-ch:
			return true
		default:
			return false
		}
	}, 2*time.Second, 5*time.Millisecond)

	// A slow consumer only sees the newest state.
	e.MoveCamera(10, 10, 10)
	e.MoveCamera(20, 20, 10)
	e.Current()

	var last State

	require.Eventually(t, func() bool {
		select {
		case s := <-ch:
			last = s

			return s.Location.Equal(spatial.Point{Lat: 20, Lng: 20})
		default:
			return false
		}
	}, 2*time.Second, 5*time.Millisecond)

	assert.Equal(t, "20", last.LatitudeField.Text)
}

func TestCloseStopsWatchers(t *testing.T) {
	e := newTestEngine(t, newScriptedGeocoder(), nil)

	ch, cancel := e.Watch()
	defer cancel()

	e.Close()

	require.Eventually(t, func() bool {
		_, ok := <-ch

		return !ok
	}, 2*time.Second, 5*time.Millisecond)
}

func TestCurrentReflectsPriorIntents(t *testing.T) {
	e := newTestEngine(t, newScriptedGeocoder(), nil)

	for i := 0; i < 50; i++ {
		e.MoveCamera(float64(i%90), float64(i%180), 10)
	}

	s := e.Current()
	assert.True(t, strings.HasPrefix(s.Mapcodes[0].Code, fmt.Sprintf("%.4f", s.Location.Lat)))
}
