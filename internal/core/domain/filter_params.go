package domain

import (
	"fmt"
	"strings"
	"time"
)

// DateLayout is the date-only form accepted for filter bounds.
const DateLayout = "2006-01-02"

// FilterParams is the wire form of SearchFilters used by the CLI, the MCP
// server and evaluation datasets. Dates are RFC 3339 timestamps or
// YYYY-MM-DD; a date-only upper bound covers the whole day.
type FilterParams struct {
	Product  string            `json:"product,omitempty"`
	Version  string            `json:"version,omitempty"`
	Lang     string            `json:"lang,omitempty"`
	Source   string            `json:"source,omitempty"`
	DateFrom string            `json:"date_from,omitempty"`
	DateTo   string            `json:"date_to,omitempty"`
	Extra    map[string]string `json:"extra,omitempty"`
}

// ToFilters parses and validates the parameters.
func (p FilterParams) ToFilters() (SearchFilters, error) {
	var f SearchFilters
	f.Product = optional(p.Product)
	f.Version = optional(p.Version)
	f.Language = optional(p.Lang)
	f.Source = optional(p.Source)

	if p.DateFrom != "" {
		t, _, err := parseDate(p.DateFrom)
		if err != nil {
			return SearchFilters{}, fmt.Errorf("%w: date_from: %v", ErrInvalidInput, err)
		}
		f.DateFrom = &t
	}
	if p.DateTo != "" {
		t, dateOnly, err := parseDate(p.DateTo)
		if err != nil {
			return SearchFilters{}, fmt.Errorf("%w: date_to: %v", ErrInvalidInput, err)
		}
		if dateOnly {
			t = t.Add(24*time.Hour - time.Nanosecond)
		}
		f.DateTo = &t
	}
	if len(p.Extra) > 0 {
		f.Extra = make(map[string]string, len(p.Extra))
		for k, v := range p.Extra {
			f.Extra[k] = v
		}
	}

	if err := f.Validate(); err != nil {
		return SearchFilters{}, err
	}
	return f, nil
}

// FilterParamsFrom renders filters back to their wire form.
func FilterParamsFrom(f SearchFilters) FilterParams {
	p := FilterParams{
		Product: deref(f.Product),
		Version: deref(f.Version),
		Lang:    deref(f.Language),
		Source:  deref(f.Source),
	}
	if f.DateFrom != nil {
		p.DateFrom = f.DateFrom.UTC().Format(time.RFC3339Nano)
	}
	if f.DateTo != nil {
		p.DateTo = f.DateTo.UTC().Format(time.RFC3339Nano)
	}
	if len(f.Extra) > 0 {
		p.Extra = make(map[string]string, len(f.Extra))
		for k, v := range f.Extra {
			p.Extra[k] = v
		}
	}
	return p
}

func parseDate(s string) (time.Time, bool, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t.UTC(), false, nil
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("expected RFC 3339 or %s, got %q", DateLayout, s)
	}
	return t, true, nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
