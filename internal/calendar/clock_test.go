package calendar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTimeOfDay(t *testing.T) {
	t.Parallel()

	valid := map[string]TimeOfDay{
		"08:00": {Hour: 8},
		"8:30":  {Hour: 8, Minute: 30},
		"23:59": {Hour: 23, Minute: 59},
		"00:00": {},
	}
	for in, want := range valid {
		got, err := ParseTimeOfDay(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	for _, in := range []string{"", "24:00", "12:60", "12", "12:5", "ab:cd", "123:00"} {
		_, err := ParseTimeOfDay(in)
		assert.ErrorIs(t, err, ErrInvalidTime, in)
	}
}

func TestTimeOfDayString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "07:05", NewTimeOfDay(7, 5).String())
	assert.Equal(t, -1, NewTimeOfDay(7, 5).Compare(NewTimeOfDay(7, 6)))
	assert.Equal(t, 425, NewTimeOfDay(7, 5).Minutes())
}

func TestAtAndWall(t *testing.T) {
	t.Parallel()

	saoPaulo := time.FixedZone("BRT", -3*60*60)
	local := time.Date(2024, 3, 4, 22, 30, 0, 0, saoPaulo)

	wall := Wall(local)
	assert.Equal(t, At(MustParseDate("2024-03-04"), NewTimeOfDay(22, 30)), wall)
	assert.Equal(t, MustParseDate("2024-03-04"), DateOf(local))
	assert.Equal(t, NewTimeOfDay(22, 30), ClockOf(local))
}

func TestDayTimeSlots(t *testing.T) {
	t.Parallel()

	slots := DayTimeSlots(6, 20)
	require.Len(t, slots, 15)
	assert.Equal(t, "06:00", slots[0].String())
	assert.Equal(t, "20:00", slots[14].String())
	assert.Nil(t, DayTimeSlots(10, 9))
}

func TestRange(t *testing.T) {
	t.Parallel()

	month := MonthRange(MustParseDate("2023-02-10"))
	require.NoError(t, month.Validate())
	assert.Equal(t, 28, month.Len())
	assert.True(t, month.Contains(MustParseDate("2023-02-28")))
	assert.False(t, month.Contains(MustParseDate("2023-03-01")))

	week := WeekRange(MustParseDate("2024-03-07"))
	assert.Equal(t, "2024-03-04..2024-03-10", week.String())

	bad := Range{Start: MustParseDate("2024-03-02"), End: MustParseDate("2024-03-01")}
	assert.ErrorIs(t, bad.Validate(), ErrInvalidRange)
	assert.Zero(t, bad.Len())
}
