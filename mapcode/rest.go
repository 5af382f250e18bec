// Copyright 2026 The Mapcode Workbench Authors
// SPDX-License-Identifier: Apache-2.0

package mapcode

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/mapcode-foundation/mapcode-workbench/spatial"
	"github.com/mapcode-foundation/mapcode-workbench/utils/ttlcache"
)

const defaultBaseURL = "https://api.mapcode.com/mapcode"

// RESTGateway talks to the Mapcode Foundation REST codec service. Encoding
// is deterministic for a coordinate, so results are cached aggressively.
type RESTGateway struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	encCache   *ttlcache.Cache[[]Mapcode]
	decCache   *ttlcache.Cache[spatial.Point]
}

// NewRESTGateway creates a gateway against the public mapcode REST API.
func NewRESTGateway() *RESTGateway {
	return NewRESTGatewayURL(defaultBaseURL)
}

// NewRESTGatewayURL creates a gateway against a specific codec endpoint.
func NewRESTGatewayURL(baseURL string) *RESTGateway {
	return &RESTGateway{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		limiter:  rate.NewLimiter(rate.Limit(10), 5),
		encCache: ttlcache.New[[]Mapcode](24 * time.Hour),
		decCache: ttlcache.New[spatial.Point](24 * time.Hour),
	}
}

type codesResponse struct {
	Mapcodes []struct {
		Mapcode   string `json:"mapcode"`
		Territory string `json:"territory"`
	} `json:"mapcodes"`
	International struct {
		Mapcode string `json:"mapcode"`
	} `json:"international"`
}

type coordsResponse struct {
	LatDeg float64 `json:"latDeg"`
	LonDeg float64 `json:"lonDeg"`
}

type apiError struct {
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

// Encode implements Gateway. The returned list keeps the service ranking:
// local territories first, the international mapcode last.
func (g *RESTGateway) Encode(lat, lng float64) ([]Mapcode, error) {
	key := fmt.Sprintf("%.9f,%.9f", lat, lng)
	if cached, found := g.encCache.Get(key); found {
		return cached, nil
	}

	reqURL := fmt.Sprintf("%s/codes/%s", g.baseURL, key)

	var resp codesResponse
	if err := g.getJSON(reqURL, &resp); err != nil {
		return nil, err
	}

	codes := make([]Mapcode, 0, len(resp.Mapcodes)+1)

	for _, mc := range resp.Mapcodes {
		territory := Territory(mc.Territory)
		if mc.Territory == "" {
			territory = TerritoryInternational
		}

		codes = append(codes, Mapcode{Code: mc.Mapcode, Territory: territory})
	}

	if len(codes) == 0 {
		if resp.International.Mapcode == "" {
			return nil, fmt.Errorf("codec returned no mapcodes for %s", key)
		}

		codes = append(codes, Mapcode{
			Code:      resp.International.Mapcode,
			Territory: TerritoryInternational,
		})
	}

	g.encCache.Set(key, codes)

	return codes, nil
}

// Decode implements Gateway.
func (g *RESTGateway) Decode(code string) (spatial.Point, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return spatial.Point{}, ErrUnknownMapcode
	}

	if cached, found := g.decCache.Get(code); found {
		return cached, nil
	}

	// A territory prefix travels as a query parameter: "NLD 49.4V" becomes
	// coords/49.4V?territory=NLD.
	lookup := code
	params := url.Values{}

	if fields := strings.Fields(code); len(fields) == 2 {
		params.Set("territory", fields[0])

		lookup = fields[1]
	}

	reqURL := fmt.Sprintf("%s/coords/%s", g.baseURL, url.PathEscape(lookup))
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	var resp coordsResponse
	if err := g.getJSON(reqURL, &resp); err != nil {
		return spatial.Point{}, err
	}

	point := spatial.Point{Lat: resp.LatDeg, Lng: resp.LonDeg}
	g.decCache.Set(code, point)

	return point, nil
}

func (g *RESTGateway) getJSON(reqURL string, out any) error {
	ctx, cancel := context.WithTimeout(context.Background(), g.httpClient.Timeout)
	defer cancel()

	if err := g.limiter.Wait(ctx); err != nil {
		return err
	}

	resp, err := g.httpClient.Get(reqURL)
	if err != nil {
		return fmt.Errorf("mapcode request failed: %w", err)
	}

	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		// fall through to decoding
	case resp.StatusCode == http.StatusNotFound, resp.StatusCode == http.StatusBadRequest:
		var apiErr apiError
		if err := json.NewDecoder(resp.Body).Decode(&apiErr); err == nil && len(apiErr.Errors) > 0 {
			return fmt.Errorf("%w: %s", ErrUnknownMapcode, apiErr.Errors[0].Message)
		}

		return ErrUnknownMapcode
	default:
		return fmt.Errorf("mapcode service returned status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding mapcode response: %w", err)
	}

	return nil
}
