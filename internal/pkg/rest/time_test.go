package rest

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTime(t *testing.T) {
	want := time.Date(2026, 2, 3, 4, 5, 6, 0, time.UTC)

	for _, in := range []string{
		"2026-02-03T04:05:06Z",
		"2026-02-03T04:05:06+00:00",
		"2026-02-03T05:05:06+01:00",
		"2026-02-03T04:05:06.000000",
		"2026-02-03T04:05:06",
		"2026-02-03 04:05:06",
	} {
		got, err := ParseTime(in)
		require.NoError(t, err, in)
		assert.True(t, want.Equal(got), "%s parsed as %s", in, got)
		assert.Equal(t, time.UTC, got.Location())
	}

	_, err := ParseTime("yesterday")
	assert.ErrorIs(t, err, ErrDecode)
}
