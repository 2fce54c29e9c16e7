package booking

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := ParseDate(s)
	require.NoError(t, err)
	return d
}

func stay(t *testing.T, checkIn, checkOut string) DateRange {
	t.Helper()
	r, err := ParseDateRange(checkIn, checkOut)
	require.NoError(t, err)
	return r
}

func TestOverlaps(t *testing.T) {
	base := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)
	day := func(n int) time.Time { return base.AddDate(0, 0, n) }

	t.Run("symmetric", func(t *testing.T) {
		rng := rand.New(rand.NewSource(7))
		for i := 0; i < 500; i++ {
			a, b := rng.Intn(30), rng.Intn(30)
			c, d := rng.Intn(30), rng.Intn(30)
			assert.Equal(t,
				Overlaps(day(a), day(a+1+b), day(c), day(c+1+d)),
				Overlaps(day(c), day(c+1+d), day(a), day(a+1+b)),
			)
		}
	})

	t.Run("interval overlaps itself", func(t *testing.T) {
		assert.True(t, Overlaps(day(0), day(3), day(0), day(3)))
		assert.False(t, Overlaps(day(2), day(2), day(2), day(2)), "degenerate interval")
	})

	t.Run("same-day turnover", func(t *testing.T) {
		assert.False(t, Overlaps(day(0), day(4), day(4), day(7)))
		assert.False(t, Overlaps(day(4), day(7), day(0), day(4)))
	})

	t.Run("partial and nested", func(t *testing.T) {
		assert.True(t, Overlaps(day(0), day(4), day(2), day(5)))
		assert.True(t, Overlaps(day(0), day(10), day(2), day(5)))
		assert.False(t, Overlaps(day(0), day(2), day(5), day(8)))
	})
}

func TestDateRange(t *testing.T) {
	t.Run("nights", func(t *testing.T) {
		assert.Equal(t, 3, stay(t, "2025-06-01", "2025-06-04").Nights())
		assert.Equal(t, 0, stay(t, "2025-06-04", "2025-06-01").Nights())
		assert.Equal(t, 0, DateRange{CheckIn: date(t, "2025-06-01")}.Nights())
	})

	t.Run("valid", func(t *testing.T) {
		assert.True(t, stay(t, "2025-06-01", "2025-06-02").Valid())
		assert.False(t, stay(t, "2025-06-01", "2025-06-01").Valid())
		assert.False(t, stay(t, "2025-06-02", "2025-06-01").Valid())
		assert.False(t, DateRange{}.Valid())
	})

	t.Run("truncates to calendar dates", func(t *testing.T) {
		in := time.Date(2025, 6, 1, 15, 0, 0, 0, time.UTC)
		out := time.Date(2025, 6, 3, 11, 0, 0, 0, time.UTC)
		r := NewDateRange(in, out)
		assert.Equal(t, 2, r.Nights())
		assert.Equal(t, "[2025-06-01, 2025-06-03)", r.String())
	})

	t.Run("rejects malformed dates", func(t *testing.T) {
		_, err := ParseDateRange("2025-13-01", "2025-06-03")
		assert.Error(t, err)
	})
}
