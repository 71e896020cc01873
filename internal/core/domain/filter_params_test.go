package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilterParams_ToFilters(t *testing.T) {
	t.Run("empty params impose nothing", func(t *testing.T) {
		f, err := FilterParams{}.ToFilters()
		require.NoError(t, err)
		assert.True(t, f.IsEmpty())
	})

	t.Run("maps every field", func(t *testing.T) {
		f, err := FilterParams{
			Product:  "raggy",
			Version:  "1.2",
			Lang:     "en",
			Source:   "docs",
			DateFrom: "2024-01-01T00:00:00Z",
			DateTo:   "2024-01-31",
			Extra:    map[string]string{"team": "search"},
		}.ToFilters()
		require.NoError(t, err)

		assert.Equal(t, "raggy", *f.Product)
		assert.Equal(t, "1.2", *f.Version)
		assert.Equal(t, "en", *f.Language)
		assert.Equal(t, "docs", *f.Source)
		assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), *f.DateFrom)
		assert.Equal(t, time.Date(2024, 1, 31, 23, 59, 59, 999999999, time.UTC), *f.DateTo)
		assert.Equal(t, map[string]string{"team": "search"}, f.Extra)
	})

	t.Run("date-only lower bound starts the day", func(t *testing.T) {
		f, err := FilterParams{DateFrom: "2024-03-05"}.ToFilters()
		require.NoError(t, err)
		assert.Equal(t, time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC), *f.DateFrom)
	})

	tests := []struct {
		name   string
		params FilterParams
	}{
		{name: "bad date_from", params: FilterParams{DateFrom: "yesterday"}},
		{name: "bad date_to", params: FilterParams{DateTo: "2024/01/01"}},
		{name: "inverted range", params: FilterParams{DateFrom: "2024-02-01", DateTo: "2024-01-01"}},
		{name: "quoted extra key", params: FilterParams{Extra: map[string]string{`a"b`: "x"}}},
		{name: "blank extra key", params: FilterParams{Extra: map[string]string{" ": "x"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.params.ToFilters()
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}
}

func TestFilterParams_RoundTripThroughFilters(t *testing.T) {
	in := FilterParams{
		Lang:     "de",
		DateFrom: "2024-05-01T10:00:00Z",
		Extra:    map[string]string{"tier": "gold"},
	}
	f, err := in.ToFilters()
	require.NoError(t, err)

	out := FilterParamsFrom(f)
	assert.Equal(t, in, out)

	f.Extra["tier"] = "silver"
	assert.Equal(t, "gold", out.Extra["tier"])
}

func TestFilterParams_JSON(t *testing.T) {
	var p FilterParams
	require.NoError(t, json.Unmarshal([]byte(`{"lang":"en","extra":{"k":"v"}}`), &p))
	assert.Equal(t, FilterParams{Lang: "en", Extra: map[string]string{"k": "v"}}, p)

	data, err := json.Marshal(FilterParams{})
	require.NoError(t, err)
	assert.JSONEq(t, `{}`, string(data))
}
