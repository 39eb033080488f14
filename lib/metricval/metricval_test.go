package metricval

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestToInteger(t *testing.T) {
	for _, tc := range []struct {
		in   string
		want int64
		ok   bool
	}{
		{"1,234", 1234, true},
		{"$4,599", 4599, true},
		{" 42 ", 42, true},
		{"1234.0", 1234, true},
		{"na", 0, false},
		{"N/A", 0, false},
		{"", 0, false},
		{"Selector not found", 0, false},
		{"garbage", 0, false},
		{"éèê", 0, false},
	} {
		got, ok := ToInteger(tc.in)
		require.Equal(t, tc.ok, ok, "input: %q", tc.in)
		require.Equal(t, tc.want, got, "input: %q", tc.in)
	}
}

func TestToNumeric(t *testing.T) {
	for _, tc := range []struct {
		in   string
		want float64
		ok   bool
	}{
		{"45.5%", 45.5, true},
		{"1,234.5", 1234.5, true},
		{"0.42", 0.42, true},
		{"-3.5", -3.5, true},
		{"na", 0, false},
		{"", 0, false},
		{"--", 0, false},
	} {
		got, ok := ToNumeric(tc.in)
		require.Equal(t, tc.ok, ok, "input: %q", tc.in)
		require.InDelta(t, tc.want, got, 1e-9, "input: %q", tc.in)
	}
}

func TestToDurationSeconds(t *testing.T) {
	for _, tc := range []struct {
		in   string
		want float64
		ok   bool
	}{
		{"2:45", 165, true},
		{"00:02:45", 165, true},
		{"90", 90, true},
		{"1:2:3:4", 0, false},
		{"na", 0, false},
		{"abc:def", 0, false},
	} {
		got, ok := ToDurationSeconds(tc.in)
		require.Equal(t, tc.ok, ok, "input: %q", tc.in)
		require.InDelta(t, tc.want, got, 1e-9, "input: %q", tc.in)
	}
}

func TestToText(t *testing.T) {
	got, ok := ToText("  Shopify  ")
	require.True(t, ok)
	require.Equal(t, "Shopify", got)

	_, ok = ToText("na")
	require.False(t, ok)
	_, ok = ToText("")
	require.False(t, ok)
}

func TestParseCompact(t *testing.T) {
	for _, tc := range []struct {
		in   string
		want float64
		ok   bool
	}{
		{"1.2K", 1200, true},
		{"3M", 3e6, true},
		{"1.1B", 1.1e9, true},
		{"45,6K", 45600, true},
		{"980", 980, true},
		{"na", 0, false},
	} {
		got, ok := ParseCompact(tc.in)
		require.Equal(t, tc.ok, ok, "input: %q", tc.in)
		require.InDelta(t, tc.want, got, 1e-6, "input: %q", tc.in)
	}
}

func TestToCount(t *testing.T) {
	for _, tc := range []struct {
		in   string
		want int64
		ok   bool
	}{
		{"1,234", 1234, true},
		{"12.5K", 12500, true},
		{"3M", 3000000, true},
		{"980", 980, true},
		{"n/a", 0, false},
	} {
		got, ok := ToCount(tc.in)
		require.Equal(t, tc.ok, ok, "input: %q", tc.in)
		require.Equal(t, tc.want, got, "input: %q", tc.in)
	}
}

func TestNormalizeFraction(t *testing.T) {
	require.InDelta(t, 0.455, NormalizeFraction(45.5), 1e-9)
	require.InDelta(t, 0.42, NormalizeFraction(0.42), 1e-9)
}
