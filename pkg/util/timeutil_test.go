package util

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMillisSince(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	require.EqualValues(t, 1500, MillisSince(start, start.Add(1500*time.Millisecond+300*time.Microsecond)))
	require.Zero(t, MillisSince(start, start.Add(-time.Second)))
	require.Equal(t, time.UTC, NowUTC().Location())
}
