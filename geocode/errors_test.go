// Copyright 2026 The Mapcode Workbench Authors
// SPDX-License-Identifier: Apache-2.0

package geocode

import (
	"errors"
	"net/http"
	"testing"
)

func TestIsConnectivityError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{
			name: "connectivity error type",
			err: &GeocodingError{
				Type:    ErrorTypeConnectivity,
				Message: "request failed",
			},
			want: true,
		},
		{
			name: "wrapped connectivity error",
			err: &GeocodingError{
				Type:    ErrorTypeConnectivity,
				Message: "geocoding request failed",
				Err:     errors.New("dial tcp: lookup maps.googleapis.com"),
			},
			want: true,
		},
		{
			name: "message contains connection refused",
			err:  errors.New("dial tcp 127.0.0.1:80: connection refused"),
			want: true,
		},
		{
			name: "message contains deadline exceeded",
			err:  errors.New("context deadline exceeded"),
			want: true,
		},
		{
			name: "unknown address type",
			err: &GeocodingError{
				Type:    ErrorTypeUnknownAddress,
				Message: "not found",
			},
			want: false,
		},
		{
			name: "unrelated error",
			err:  errors.New("some other error"),
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsConnectivityError(tt.err); got != tt.want {
				t.Errorf("IsConnectivityError() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsUnknownAddressError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{
			name: "unknown address type",
			err: &GeocodingError{
				Type:    ErrorTypeUnknownAddress,
				Message: "no results for address: nowhere",
			},
			want: true,
		},
		{
			name: "no address type",
			err: &GeocodingError{
				Type:    ErrorTypeNoAddress,
				Message: "no address at 0,0",
			},
			want: false,
		},
		{
			name: "plain error",
			err:  errors.New("address not found"),
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsUnknownAddressError(tt.err); got != tt.want {
				t.Errorf("IsUnknownAddressError() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsRateLimitError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{
			name: "rate limit type",
			err:  &GeocodingError{Type: ErrorTypeRateLimit, Message: "rate limit reached"},
			want: true,
		},
		{
			name: "message contains over_query_limit",
			err:  errors.New("google maps status: OVER_QUERY_LIMIT"),
			want: true,
		},
		{
			name: "message contains 429",
			err:  errors.New("service returned status 429"),
			want: true,
		},
		{
			name: "unrelated error",
			err:  errors.New("boom"),
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRateLimitError(tt.err); got != tt.want {
				t.Errorf("IsRateLimitError() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestClassifyHTTPError(t *testing.T) {
	tests := []struct {
		status int
		want   ErrorType
	}{
		{http.StatusTooManyRequests, ErrorTypeRateLimit},
		{http.StatusForbidden, ErrorTypeRateLimit},
		{http.StatusBadRequest, ErrorTypeInvalidRequest},
		{http.StatusNotFound, ErrorTypeUnknownAddress},
		{http.StatusServiceUnavailable, ErrorTypeConnectivity},
		{http.StatusBadGateway, ErrorTypeConnectivity},
		{http.StatusTeapot, ErrorTypeUnknown},
	}

	for _, tt := range tests {
		if got := ClassifyHTTPError(tt.status); got.Type != tt.want {
			t.Errorf("ClassifyHTTPError(%d).Type = %v, want %v", tt.status, got.Type, tt.want)
		}
	}
}
