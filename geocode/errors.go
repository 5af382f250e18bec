// Copyright 2026 The Mapcode Workbench Authors
// SPDX-License-Identifier: Apache-2.0

package geocode

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// GeocodingError represents a classified geocoding failure.
type GeocodingError struct {
	Type    ErrorType
	Message string
	Err     error
}

// ErrorType classifies geocoding failures.
type ErrorType int

const (
	// ErrorTypeUnknown is an unclassified failure.
	ErrorTypeUnknown ErrorType = iota
	// ErrorTypeUnknownAddress means the address text did not resolve.
	ErrorTypeUnknownAddress
	// ErrorTypeNoAddress means the coordinate has no reverse-geocoded address.
	ErrorTypeNoAddress
	// ErrorTypeConnectivity means the lookup could not reach the service.
	ErrorTypeConnectivity
	// ErrorTypeRateLimit means the service refused the request for quota reasons.
	ErrorTypeRateLimit
	// ErrorTypeInvalidRequest means the request itself was malformed.
	ErrorTypeInvalidRequest
)

func (e *GeocodingError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}

	return e.Message
}

func (e *GeocodingError) Unwrap() error {
	return e.Err
}

// IsUnknownAddressError reports whether err means the address did not resolve.
func IsUnknownAddressError(err error) bool {
	return isType(err, ErrorTypeUnknownAddress)
}

// IsNoAddressError reports whether err means the coordinate has no address.
func IsNoAddressError(err error) bool {
	return isType(err, ErrorTypeNoAddress)
}

// IsConnectivityError reports whether err is a connectivity failure.
func IsConnectivityError(err error) bool {
	if isType(err, ErrorTypeConnectivity) {
		return true
	}

	errStr := strings.ToLower(err.Error())

	return strings.Contains(errStr, "connection refused") ||
		strings.Contains(errStr, "no such host") ||
		strings.Contains(errStr, "timeout") ||
		strings.Contains(errStr, "deadline exceeded") ||
		strings.Contains(errStr, "network is unreachable")
}

// IsRateLimitError reports whether err is a rate-limit rejection.
func IsRateLimitError(err error) bool {
	if isType(err, ErrorTypeRateLimit) {
		return true
	}

	errStr := strings.ToLower(err.Error())

	return strings.Contains(errStr, "rate limit") ||
		strings.Contains(errStr, "too many requests") ||
		strings.Contains(errStr, "over_query_limit") ||
		strings.Contains(errStr, "429")
}

func isType(err error, tpe ErrorType) bool {
	var geoErr *GeocodingError
	if errors.As(err, &geoErr) {
		return geoErr.Type == tpe
	}

	return false
}

// ClassifyHTTPError maps an HTTP status into a geocoding error.
func ClassifyHTTPError(statusCode int) *GeocodingError {
	switch statusCode {
	case http.StatusTooManyRequests:
		return &GeocodingError{
			Type:    ErrorTypeRateLimit,
			Message: "rate limit reached",
		}
	case http.StatusForbidden:
		return &GeocodingError{
			Type:    ErrorTypeRateLimit,
			Message: "quota exceeded or access denied",
		}
	case http.StatusBadRequest:
		return &GeocodingError{
			Type:    ErrorTypeInvalidRequest,
			Message: "invalid request",
		}
	case http.StatusNotFound:
		return &GeocodingError{
			Type:    ErrorTypeUnknownAddress,
			Message: "address not found",
		}
	case http.StatusServiceUnavailable, http.StatusBadGateway, http.StatusGatewayTimeout:
		return &GeocodingError{
			Type:    ErrorTypeConnectivity,
			Message: fmt.Sprintf("service unavailable (status %d)", statusCode),
		}
	default:
		return &GeocodingError{
			Type:    ErrorTypeUnknown,
			Message: fmt.Sprintf("HTTP error %d", statusCode),
		}
	}
}
