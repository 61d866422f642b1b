package timewindow

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve_RelativeTokens(t *testing.T) {
	now := time.Date(2024, 3, 15, 18, 30, 45, 0, time.UTC)

	cases := []struct {
		n    int
		unit string
		span int64
	}{
		{1, "h", 3600},
		{24, "h", 24 * 3600},
		{3, "d", 3 * 24 * 3600},
		{2, "w", 2 * 7 * 24 * 3600},
		{120, "h", 120 * 3600},
	}

	for _, tc := range cases {
		token := fmt.Sprintf("%d%s", tc.n, tc.unit)
		t.Run(token, func(t *testing.T) {
			w := Resolve(token, now)
			assert.Equal(t, now.Unix(), w.End)
			assert.Equal(t, tc.span, w.End-w.Start)
			assert.Equal(t, fmt.Sprintf("Last %s", token), w.Description)
		})
	}
}

func TestResolve_Today(t *testing.T) {
	now := time.Date(2024, 3, 15, 18, 30, 45, 0, time.UTC)

	w := Resolve("today", now)

	assert.Equal(t, time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC).Unix(), w.Start)
	assert.Equal(t, now.Unix(), w.End)
	assert.Equal(t, "Today", w.Description)
}

func TestResolve_Yesterday(t *testing.T) {
	// Fixed window regardless of now's time of day.
	for _, hour := range []int{0, 9, 23} {
		now := time.Date(2024, 3, 15, hour, 7, 0, 0, time.UTC)
		w := Resolve("yesterday", now)

		require.LessOrEqual(t, w.Start, w.End)
		assert.Equal(t, "2024-03-14", time.Unix(w.Start, 0).UTC().Format("2006-01-02"))
		assert.Equal(t, "2024-03-14", time.Unix(w.End, 0).UTC().Format("2006-01-02"))
	}
}

func TestResolve_YesterdayHonorsLocation(t *testing.T) {
	loc, err := time.LoadLocation("Asia/Tokyo")
	require.NoError(t, err)

	now := time.Date(2024, 3, 15, 2, 0, 0, 0, loc)
	w := Resolve("yesterday", now)

	assert.Equal(t, "2024-03-14", time.Unix(w.Start, 0).In(loc).Format("2006-01-02"))
	assert.Equal(t, "2024-03-14", time.Unix(w.End, 0).In(loc).Format("2006-01-02"))
}

func TestResolve_FallbackEqualsDefault(t *testing.T) {
	now := time.Date(2024, 3, 15, 18, 30, 45, 0, time.UTC)
	want := Resolve(DefaultToken, now)

	for _, token := range []string{"", "garbage", "12x", "h24", "-3d", "0h", "3.5d", "next week"} {
		t.Run(fmt.Sprintf("%q", token), func(t *testing.T) {
			got := Resolve(token, now)
			assert.Equal(t, want.Start, got.Start)
			assert.Equal(t, want.End, got.End)
			assert.Equal(t, want.Description, got.Description)
		})
	}
}

func TestResolve_TokenNormalization(t *testing.T) {
	now := time.Date(2024, 3, 15, 18, 30, 45, 0, time.UTC)

	assert.Equal(t, Resolve("3d", now), Resolve("  3D ", now))
	assert.Equal(t, Resolve("today", now), Resolve("Today", now))
}
