package rating

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormat(t *testing.T) {
	cases := []struct {
		in   int
		want string
	}{
		{0, "0"},
		{7, "7"},
		{-3, "-3"},
		{950, "950"},
		{999, "999"},
		{-999, "-999"},
		{1_000, "1.0k"},
		{1_500, "1.5k"},
		{-1_500, "-1.5k"},
		{42_000, "42.0k"},
		{1_000_000, "1.0m"},
		{2_300_000, "2.3m"},
		{1_000_000_000, "1.0b"},
		{-1_000_000_000, "-1.0b"},
		{12_340_000_000, "12.3b"},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, Format(tc.in), "Format(%d)", tc.in)
	}
}
