// Copyright 2026 The Mapcode Workbench Authors
// SPDX-License-Identifier: Apache-2.0

package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"github.com/mapcode-foundation/mapcode-workbench/utils/ttlcache"
)

const googleGeocodeURL = "https://maps.googleapis.com/maps/api/geocode/json"

// GoogleMapsGeocoder uses the Google Maps Geocoding API.
type GoogleMapsGeocoder struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	cache      *ttlcache.Cache[*Result]
}

// NewGoogleMapsGeocoder creates a new Google Maps geocoder.
func NewGoogleMapsGeocoder(apiKey string) *GoogleMapsGeocoder {
	return NewGoogleMapsGeocoderURL(apiKey, googleGeocodeURL)
}

// NewGoogleMapsGeocoderURL creates a geocoder against a specific endpoint.
func NewGoogleMapsGeocoderURL(apiKey, baseURL string) *GoogleMapsGeocoder {
	return &GoogleMapsGeocoder{
		apiKey:  apiKey,
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		limiter: rate.NewLimiter(rate.Limit(10), 5),
		cache:   ttlcache.New[*Result](time.Hour),
	}
}

type googleMapsResponse struct {
	Results []struct {
		Geometry struct {
			Location struct {
				Lat float64 `json:"lat"`
				Lng float64 `json:"lng"`
			} `json:"location"`
			LocationType string `json:"location_type"` // ROOFTOP, RANGE_INTERPOLATED, GEOMETRIC_CENTER, APPROXIMATE
		} `json:"geometry"`
		FormattedAddress string `json:"formatted_address"`
	} `json:"results"`
	Status string `json:"status"` // OK, ZERO_RESULTS, etc.
}

// Geocode implements Geocoder.
func (g *GoogleMapsGeocoder) Geocode(ctx context.Context, address string) (*Result, error) {
	if cached, found := g.cache.Get("fwd:" + address); found {
		return cached, nil
	}

	params := url.Values{}
	params.Set("address", address)

	resp, err := g.query(ctx, params)
	if err != nil {
		return nil, err
	}

	if len(resp.Results) == 0 {
		return nil, &GeocodingError{
			Type:    ErrorTypeUnknownAddress,
			Message: fmt.Sprintf("no results for address: %s", address),
		}
	}

	top := resp.Results[0]

	// Confidence follows location_type: rooftop and interpolated matches are
	// precise, geometric centers less so.
	confidence := "low"

	switch top.Geometry.LocationType {
	case "ROOFTOP", "RANGE_INTERPOLATED":
		confidence = "high"
	case "GEOMETRIC_CENTER":
		confidence = "medium"
	case "APPROXIMATE":
		confidence = "low"
	}

	result := &Result{
		Latitude:    top.Geometry.Location.Lat,
		Longitude:   top.Geometry.Location.Lng,
		Confidence:  confidence,
		Provider:    "google_maps",
		DisplayName: top.FormattedAddress,
	}

	g.cache.Set("fwd:"+address, result)

	return result, nil
}

// ReverseGeocode implements Geocoder.
func (g *GoogleMapsGeocoder) ReverseGeocode(ctx context.Context, lat, lng float64) (string, error) {
	key := fmt.Sprintf("rev:%.7f,%.7f", lat, lng)
	if cached, found := g.cache.Get(key); found {
		return cached.DisplayName, nil
	}

	params := url.Values{}
	params.Set("latlng", fmt.Sprintf("%.7f,%.7f", lat, lng))

	resp, err := g.query(ctx, params)
	if err != nil {
		return "", err
	}

	if len(resp.Results) == 0 {
		return "", &GeocodingError{
			Type:    ErrorTypeNoAddress,
			Message: fmt.Sprintf("no address at %.7f,%.7f", lat, lng),
		}
	}

	address := resp.Results[0].FormattedAddress
	g.cache.Set(key, &Result{DisplayName: address})

	return address, nil
}

// Suggest implements Geocoder. The geocoding API has no dedicated completion
// endpoint, so suggestions are the formatted addresses of a forward lookup.
func (g *GoogleMapsGeocoder) Suggest(ctx context.Context, query string) ([]string, error) {
	params := url.Values{}
	params.Set("address", query)

	resp, err := g.query(ctx, params)
	if err != nil {
		return nil, err
	}

	suggestions := make([]string, 0, len(resp.Results))
	for _, r := range resp.Results {
		suggestions = append(suggestions, r.FormattedAddress)
	}

	return suggestions, nil
}

func (g *GoogleMapsGeocoder) query(ctx context.Context, params url.Values) (*googleMapsResponse, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	params.Set("key", g.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("building geocoding request: %w", err)
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, &GeocodingError{
			Type:    ErrorTypeConnectivity,
			Message: "geocoding request failed",
			Err:     err,
		}
	}

	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, ClassifyHTTPError(resp.StatusCode)
	}

	var gmResp googleMapsResponse
	if err := json.NewDecoder(resp.Body).Decode(&gmResp); err != nil {
		return nil, fmt.Errorf("decoding geocoding response: %w", err)
	}

	switch gmResp.Status {
	case "OK", "ZERO_RESULTS":
		return &gmResp, nil
	case "OVER_QUERY_LIMIT", "OVER_DAILY_LIMIT":
		return nil, &GeocodingError{
			Type:    ErrorTypeRateLimit,
			Message: fmt.Sprintf("google maps status: %s", gmResp.Status),
		}
	case "INVALID_REQUEST":
		return nil, &GeocodingError{
			Type:    ErrorTypeInvalidRequest,
			Message: fmt.Sprintf("google maps status: %s", gmResp.Status),
		}
	default:
		return nil, &GeocodingError{
			Type:    ErrorTypeUnknown,
			Message: fmt.Sprintf("google maps status: %s", gmResp.Status),
		}
	}
}
