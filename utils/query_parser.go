package utils

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"admissions-crm/models"
)

// TimeFilterParams holds parsed time filter parameters
type TimeFilterParams struct {
	CreatedAfter  *time.Time
	CreatedBefore *time.Time
}

// ParseTimeFilters extracts and validates time filter query parameters from HTTP request
func ParseTimeFilters(r *http.Request) (*TimeFilterParams, error) {
	params := &TimeFilterParams{}

	if str := r.URL.Query().Get("created_after"); str != "" {
		parsed, err := time.Parse(time.RFC3339, str)
		if err != nil {
			return nil, fmt.Errorf("invalid created_after format. Use RFC3339 (e.g., 2025-11-13T10:00:00Z)")
		}
		params.CreatedAfter = &parsed
	}

	if str := r.URL.Query().Get("created_before"); str != "" {
		parsed, err := time.Parse(time.RFC3339, str)
		if err != nil {
			return nil, fmt.Errorf("invalid created_before format. Use RFC3339 (e.g., 2025-11-13T10:00:00Z)")
		}
		params.CreatedBefore = &parsed
	}

	return params, nil
}

// ParseIDParam reads a required positive integer query parameter.
func ParseIDParam(r *http.Request, name string) (int64, error) {
	str := r.URL.Query().Get(name)
	if str == "" {
		return 0, fmt.Errorf("%s is required", name)
	}
	id, err := strconv.ParseInt(str, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s", name)
	}
	return id, nil
}

// ParseOptionalID reads an optional positive integer query parameter.
func ParseOptionalID(r *http.Request, name string) (*int64, error) {
	if r.URL.Query().Get(name) == "" {
		return nil, nil
	}
	id, err := ParseIDParam(r, name)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

// ParseLimit reads ?limit=, falling back to DefaultLimit and capping at MaxLimit.
func ParseLimit(r *http.Request) int {
	limit := DefaultLimit
	if str := r.URL.Query().Get("limit"); str != "" {
		if parsed, err := strconv.Atoi(str); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	return limit
}

// ParseDate reads an optional YYYY-MM-DD query parameter. Empty means today.
func ParseDate(r *http.Request, name string) (string, error) {
	str := r.URL.Query().Get(name)
	if str == "" {
		return "", nil
	}
	if _, err := time.Parse(models.DateLayout, str); err != nil {
		return "", fmt.Errorf("invalid %s format. Use YYYY-MM-DD", name)
	}
	return str, nil
}
