package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseTimeOfDay(t *testing.T) {
	testCases := []struct {
		name      string
		input     string
		expected  TimeOfDay
		expectErr bool
	}{
		{name: "morning", input: "08:00", expected: TimeOfDay{Hour: 8}},
		{name: "late evening", input: "23:45", expected: TimeOfDay{Hour: 23, Minute: 45}},
		{name: "midnight", input: "0:00", expected: TimeOfDay{}},
		{name: "surrounding whitespace", input: " 09:30 ", expected: TimeOfDay{Hour: 9, Minute: 30}},
		{name: "missing minutes", input: "09", expectErr: true},
		{name: "hour out of range", input: "24:00", expectErr: true},
		{name: "minute out of range", input: "10:60", expectErr: true},
		{name: "not a number", input: "ab:cd", expectErr: true},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseTimeOfDay(tc.input)
			if tc.expectErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tc.expected, got)
		})
	}
}

func TestTimeOfDayOn(t *testing.T) {
	loc, err := time.LoadLocation("Europe/Moscow")
	assert.NoError(t, err)

	day := time.Date(2024, 3, 15, 13, 37, 21, 0, loc)
	anchored := TimeOfDay{Hour: 8, Minute: 30}.On(day)

	assert.Equal(t, time.Date(2024, 3, 15, 8, 30, 0, 0, loc), anchored)
	assert.Equal(t, loc, anchored.Location())
}

func TestProfileMutedAt(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	p := &Profile{}
	assert.False(t, p.MutedAt(now))

	until := now.Add(30 * time.Minute)
	p.MuteUntil = &until
	assert.True(t, p.MutedAt(now))
	assert.False(t, p.MutedAt(now.Add(time.Hour)))
}
