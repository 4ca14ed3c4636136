package esversion

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompare(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"1.2.3", "1.10.0", -1},
		{"1.10.0", "1.2.3", 1},
		{"5.6.3", "5.6.3", 0},
		{"5.6", "5.6.0", 0},
		{"5.6", "5.6.1", -1},
		{"5.6.0.1", "5.6", 1},
		{"2.0.0", "10.0.0", -1},
		{"0.0.0", "0.0.1", -1},
		{"9", "9.0.0", 0},
		{" 5.6.3 ", "5.6.3", 0},
	}
	for _, tt := range tests {
		t.Run(tt.a+" vs "+tt.b, func(t *testing.T) {
			got, err := Compare(tt.a, tt.b)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCompare_Invalid(t *testing.T) {
	for _, pair := range [][2]string{
		{"", "1.0"},
		{"1.0", ""},
		{"1.a.0", "1.0"},
		{"1..0", "1.0"},
		{"1.-2.0", "1.0"},
		{"5.6.3-beta1", "5.6.3"},
	} {
		_, err := Compare(pair[0], pair[1])
		assert.Error(t, err, "expected error for %q vs %q", pair[0], pair[1])
	}
}

func TestParseString(t *testing.T) {
	v, err := Parse("5.6.3")
	require.NoError(t, err)
	assert.Equal(t, Version{5, 6, 3}, v)
	assert.Equal(t, "5.6.3", v.String())
}
