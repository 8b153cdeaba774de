package availability

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "carrental/internal/errors"
)

func at(day, hour int) time.Time {
	return time.Date(2025, 6, day, hour, 0, 0, 0, time.UTC)
}

func iv(fromDay, fromHour, toDay, toHour int) Interval {
	return Interval{From: at(fromDay, fromHour), To: at(toDay, toHour)}
}

func TestIsAvailable_Scenarios(t *testing.T) {
	existing := []Interval{iv(1, 10, 1, 12)}

	cases := []struct {
		name      string
		candidate Interval
		want      bool
	}{
		{"overlapping start", iv(1, 11, 1, 13), false},
		{"back to back after", iv(1, 12, 1, 14), true},
		{"back to back before", iv(1, 8, 1, 10), true},
		{"contained", iv(1, 10, 1, 11), false},
		{"containing", iv(1, 9, 1, 13), false},
		{"identical", iv(1, 10, 1, 12), false},
		{"disjoint", iv(2, 10, 2, 12), true},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			assert.Equal(t, c.want, IsAvailable(existing, c.candidate))
		})
	}
}

func TestIsAvailable_EmptyList(t *testing.T) {
	assert.True(t, IsAvailable(nil, iv(1, 10, 1, 12)))
}

func TestOverlapIsSymmetric(t *testing.T) {
	pairs := [][2]Interval{
		{iv(1, 10, 1, 12), iv(1, 11, 1, 13)},
		{iv(1, 10, 1, 12), iv(1, 12, 1, 14)},
		{iv(1, 9, 1, 13), iv(1, 10, 1, 11)},
		{iv(1, 10, 1, 12), iv(3, 10, 3, 12)},
	}
	for _, p := range pairs {
		assert.Equal(t, p[0].Overlaps(p[1]), p[1].Overlaps(p[0]))
	}
}

func TestValidate(t *testing.T) {
	assert.NoError(t, iv(1, 10, 1, 12).Validate())
	assert.ErrorIs(t, iv(1, 10, 1, 10).Validate(), apperrors.ErrInvalidInterval)
	assert.ErrorIs(t, iv(1, 12, 1, 10).Validate(), apperrors.ErrInvalidInterval)
}

func TestCheck(t *testing.T) {
	existing := []Interval{iv(1, 10, 1, 12), iv(2, 10, 2, 12)}

	require.NoError(t, Check(existing, iv(1, 12, 2, 10)))

	err := Check(existing, iv(2, 11, 2, 15))
	assert.ErrorIs(t, err, apperrors.ErrSlotConflict)

	err = Check(existing, iv(3, 12, 3, 10))
	assert.ErrorIs(t, err, apperrors.ErrInvalidInterval)
}

func TestConflicts(t *testing.T) {
	existing := []Interval{iv(1, 10, 1, 12), iv(1, 14, 1, 16), iv(2, 10, 2, 12)}
	got := Conflicts(existing, iv(1, 11, 1, 15))
	assert.Equal(t, []Interval{iv(1, 10, 1, 12), iv(1, 14, 1, 16)}, got)
	assert.Empty(t, Conflicts(existing, iv(3, 0, 3, 1)))
}

func TestRemove(t *testing.T) {
	existing := []Interval{iv(1, 10, 1, 12), iv(2, 10, 2, 12)}

	out := Remove(existing, iv(1, 10, 1, 12))
	assert.Equal(t, []Interval{iv(2, 10, 2, 12)}, out)
	assert.Len(t, existing, 2)

	assert.True(t, IsAvailable(out, iv(1, 10, 1, 12)))
	assert.Len(t, Remove(existing, iv(5, 1, 5, 2)), 2)
}

func TestEqualIgnoresLocation(t *testing.T) {
	loc := time.FixedZone("CET", 3600)
	a := iv(1, 10, 1, 12)
	b := Interval{From: a.From.In(loc), To: a.To.In(loc)}
	assert.True(t, a.Equal(b))
	assert.False(t, IsAvailable([]Interval{a}, b))
}
