package collector

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestMonthKey(t *testing.T) {
	assert.Equal(t, "2023-01", MonthKey(date(2023, 1, 31)))
	assert.Equal(t, "2022-12", MonthKey(time.Date(2022, 12, 31, 23, 59, 59, 0, time.UTC)))

	seoul, err := time.LoadLocation("Asia/Seoul")
	require.NoError(t, err)
	// 2023-01-01 05:00 in Seoul is still December in UTC.
	assert.Equal(t, "2022-12", MonthKey(time.Date(2023, 1, 1, 5, 0, 0, 0, seoul)))
}

func TestEffectiveStart(t *testing.T) {
	start := date(2022, 1, 1)

	assert.Equal(t, start, EffectiveStart(start, date(2021, 6, 1)))
	assert.Equal(t, date(2023, 1, 1), EffectiveStart(start, date(2023, 1, 1)))
}

func TestMonthWindows(t *testing.T) {
	t.Run("clips first and last window", func(t *testing.T) {
		start := time.Date(2023, 1, 15, 12, 0, 0, 0, time.UTC)
		end := time.Date(2023, 3, 10, 8, 0, 0, 0, time.UTC)

		windows := MonthWindows(start, end)
		require.Len(t, windows, 3)

		assert.Equal(t, "2023-01", windows[0].MonthKey)
		assert.Equal(t, start, windows[0].Start)
		assert.Equal(t, time.Date(2023, 1, 31, 23, 59, 59, int(999*time.Millisecond), time.UTC), windows[0].End)
		assert.False(t, windows[0].StartsAtMonthStart())
		assert.True(t, windows[0].EndsAtMonthEnd())

		assert.Equal(t, "2023-02", windows[1].MonthKey)
		assert.Equal(t, date(2023, 2, 1), windows[1].Start)
		assert.Equal(t, time.Date(2023, 2, 28, 23, 59, 59, int(999*time.Millisecond), time.UTC), windows[1].End)
		assert.True(t, windows[1].StartsAtMonthStart())
		assert.True(t, windows[1].EndsAtMonthEnd())

		assert.Equal(t, "2023-03", windows[2].MonthKey)
		assert.Equal(t, end, windows[2].End)
		assert.False(t, windows[2].EndsAtMonthEnd())
	})

	t.Run("spans year boundary", func(t *testing.T) {
		windows := MonthWindows(date(2022, 1, 1), time.Date(2023, 3, 31, 23, 59, 59, 0, time.UTC))
		require.Len(t, windows, 15)
		assert.Equal(t, "2022-01", windows[0].MonthKey)
		assert.Equal(t, "2022-12", windows[11].MonthKey)
		assert.Equal(t, "2023-03", windows[14].MonthKey)

		for i := 1; i < len(windows); i++ {
			assert.True(t, windows[i].Start.After(windows[i-1].End))
		}
	})

	t.Run("single day", func(t *testing.T) {
		windows := MonthWindows(date(2024, 2, 29), time.Date(2024, 2, 29, 23, 59, 59, 0, time.UTC))
		require.Len(t, windows, 1)
		assert.Equal(t, "2024-02", windows[0].MonthKey)
	})

	t.Run("inverted range", func(t *testing.T) {
		assert.Empty(t, MonthWindows(date(2024, 3, 1), date(2024, 2, 1)))
	})
}

func TestDayBounds(t *testing.T) {
	day := time.Date(2024, 5, 20, 15, 30, 0, 0, time.UTC)

	start, end := DayBounds(day, time.UTC)
	assert.Equal(t, date(2024, 5, 20), start)
	assert.Equal(t, time.Date(2024, 5, 20, 23, 59, 59, int(999*time.Millisecond), time.UTC), end)

	seoul, err := time.LoadLocation("Asia/Seoul")
	require.NoError(t, err)
	start, end = DayBounds(day, seoul)
	// 15:30 UTC is already May 21st in Seoul (UTC+9).
	assert.Equal(t, time.Date(2024, 5, 20, 15, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2024, 5, 21, 14, 59, 59, int(999*time.Millisecond), time.UTC), end)
}

func TestParseDate(t *testing.T) {
	got, err := ParseDate("2024-02-29", true)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 2, 29, 23, 59, 59, int(999*time.Millisecond), time.UTC), got)

	got, err = ParseDate("2024-02-29", false)
	require.NoError(t, err)
	assert.Equal(t, date(2024, 2, 29), got)

	got, err = ParseDate("2024-03-01T01:00:00+09:00", true)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 2, 29, 16, 0, 0, 0, time.UTC), got)

	_, err = ParseDate("", false)
	assert.Error(t, err)
}
