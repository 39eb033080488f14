package datenorm

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNormalizeKnownFormats(t *testing.T) {
	for _, tc := range []struct {
		in   any
		want string
	}{
		{"2025-08-05T19:40:56.053Z", "2025-08-05T19:40:56.053000+00:00"},
		{"2025-08-05T19:40:56Z", "2025-08-05T19:40:56.000000+00:00"},
		{"2025-08-05 19:40:56", "2025-08-05T19:40:56.000000+00:00"},
		{"2025-08-05", "2025-08-05T00:00:00.000000+00:00"},
		{"2025-08-05T21:40:56+02:00", "2025-08-05T19:40:56.000000+00:00"},
		{int64(1754422856), "2025-08-05T19:40:56.000000+00:00"},
		{int64(1754422856053), "2025-08-05T19:40:56.053000+00:00"},
		{"1754422856", "2025-08-05T19:40:56.000000+00:00"},
		{"Aug 5, 2025", "2025-08-05T00:00:00.000000+00:00"},
		{time.Date(2025, 8, 5, 19, 40, 56, 0, time.UTC), "2025-08-05T19:40:56.000000+00:00"},
	} {
		got, ok := Normalize(tc.in)
		require.True(t, ok, "input: %v", tc.in)
		require.Equal(t, tc.want, got, "input: %v", tc.in)
	}
}

func TestNormalizeUnparsable(t *testing.T) {
	for _, in := range []any{
		nil,
		"",
		"   ",
		"not a date",
		"na",
		"Selector not found",
		int64(0),
		-42,
		time.Time{},
	} {
		got, ok := Normalize(in)
		require.False(t, ok, "input: %v", in)
		require.Equal(t, "", got)
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []any{
		"2025-08-05T19:40:56.053Z",
		"2025-08-05 19:40:56",
		"2025-08-05",
		int64(1754422856),
	}
	for _, in := range inputs {
		once, ok := Normalize(in)
		require.True(t, ok)
		twice, ok := Normalize(once)
		require.True(t, ok)
		require.Equal(t, once, twice)
	}
}

func TestNormalizeFields(t *testing.T) {
	record := map[string]any{
		"updated_at": "2025-08-05 19:40:56",
		"shop_url":   "example.com",
		"nested": map[string]any{
			"creation_date": int64(1754422856),
			"name":          "inner",
		},
		"scraping_last_update": "garbage",
	}
	fields := map[string]bool{
		"updated_at":           true,
		"creation_date":        true,
		"scraping_last_update": true,
	}

	got := NormalizeFields(record, fields)

	require.Equal(t, "2025-08-05T19:40:56.000000+00:00", got["updated_at"])
	require.Equal(t, "example.com", got["shop_url"])
	require.Nil(t, got["scraping_last_update"])

	nested := got["nested"].(map[string]any)
	require.Equal(t, "2025-08-05T19:40:56.000000+00:00", nested["creation_date"])
	require.Equal(t, "inner", nested["name"])
}
