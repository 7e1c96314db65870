package timeutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseDeadline(t *testing.T) {
	t.Run("ISO datetime", func(t *testing.T) {
		got, err := ParseDeadline("2026-03-15 14:30")
		assert.NoError(t, err)
		assert.Equal(t, 2026, got.Year())
		assert.Equal(t, time.March, got.Month())
		assert.Equal(t, 15, got.Day())
		assert.Equal(t, 14, got.Hour())
		assert.Equal(t, 30, got.Minute())
		assert.Equal(t, AlmatyTZ.String(), got.Location().String())
	})

	t.Run("russian datetime", func(t *testing.T) {
		got, err := ParseDeadline("15.03.2026 09:00")
		assert.NoError(t, err)
		assert.Equal(t, time.March, got.Month())
		assert.Equal(t, 15, got.Day())
		assert.Equal(t, 9, got.Hour())
	})

	t.Run("bare date resolves to end of day", func(t *testing.T) {
		got, err := ParseDeadline("2026-03-15")
		assert.NoError(t, err)
		assert.Equal(t, 23, got.Hour())
		assert.Equal(t, 59, got.Minute())
	})

	t.Run("bare russian date", func(t *testing.T) {
		got, err := ParseDeadline("15.03.2026")
		assert.NoError(t, err)
		assert.Equal(t, 15, got.Day())
		assert.Equal(t, 23, got.Hour())
	})

	t.Run("garbage is rejected", func(t *testing.T) {
		_, err := ParseDeadline("завтра")
		assert.Error(t, err)
	})

	t.Run("empty is rejected", func(t *testing.T) {
		_, err := ParseDeadline("")
		assert.Error(t, err)
	})
}

func TestFormatDeadline(t *testing.T) {
	// 10:00 UTC = 15:00 in Almaty (UTC+5).
	utc := time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)
	assert.Equal(t, "15.03.2026 15:00", FormatDeadline(utc))
}

func TestFormatUntilDeadline(t *testing.T) {
	t.Run("past deadline", func(t *testing.T) {
		assert.Equal(t, "срок истёк", FormatUntilDeadline(Now().Add(-time.Hour)))
	})

	t.Run("minutes remaining", func(t *testing.T) {
		got := FormatUntilDeadline(Now().Add(30 * time.Minute))
		assert.Contains(t, got, "мин")
	})

	t.Run("hours remaining", func(t *testing.T) {
		got := FormatUntilDeadline(Now().Add(5 * time.Hour))
		assert.Contains(t, got, "ч")
	})

	t.Run("single day", func(t *testing.T) {
		got := FormatUntilDeadline(Now().Add(25 * time.Hour))
		assert.Equal(t, "остался 1 день", got)
	})

	t.Run("multiple days", func(t *testing.T) {
		got := FormatUntilDeadline(Now().Add(73 * time.Hour))
		assert.Equal(t, "осталось 3 дн", got)
	})
}

func TestStartAndEndOfDay(t *testing.T) {
	moment := time.Date(2026, 7, 1, 13, 45, 0, 0, AlmatyTZ)

	start := StartOfDay(moment)
	assert.Equal(t, 0, start.Hour())
	assert.Equal(t, 0, start.Minute())
	assert.Equal(t, 1, start.Day())

	end := EndOfDay(moment)
	assert.Equal(t, 23, end.Hour())
	assert.Equal(t, 59, end.Minute())
	assert.True(t, end.After(start))
}

func TestIsSafeNotificationTime(t *testing.T) {
	day := time.Date(2026, 7, 1, 0, 0, 0, 0, AlmatyTZ)

	assert.False(t, IsSafeNotificationTime(day.Add(3*time.Hour)))  // 03:00
	assert.True(t, IsSafeNotificationTime(day.Add(9*time.Hour)))   // 09:00
	assert.True(t, IsSafeNotificationTime(day.Add(21*time.Hour)))  // 21:00
	assert.False(t, IsSafeNotificationTime(day.Add(22*time.Hour))) // 22:00
}

func TestRoundTripUTC(t *testing.T) {
	parsed, err := ParseDeadline("2026-03-15 14:30")
	assert.NoError(t, err)

	stored := ToUTC(parsed)
	assert.Equal(t, 9, stored.Hour()) // 14:30 Almaty = 09:30 UTC
	assert.Equal(t, "15.03.2026 14:30", FormatDeadline(stored))
}
