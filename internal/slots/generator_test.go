package slots

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"interviewhub/internal/models"
)

func TestGenerate(t *testing.T) {
	tests := []struct {
		name      string
		schedule  Schedule
		wantCount int
		wantFirst Window
		wantLast  Window
	}{
		{
			name:      "full day with lunch",
			schedule:  Schedule{DayStart: "09:00", DayEnd: "18:00", BreakStart: "13:00", BreakEnd: "14:00", SlotMinutes: 30},
			wantCount: 16, // 9 hours - 1 lunch hour = 8 hours * 2 slots
			wantFirst: Window{StartTime: "09:00", EndTime: "09:30"},
			wantLast:  Window{StartTime: "17:30", EndTime: "18:00"},
		},
		{
			name:      "hour slots without break",
			schedule:  Schedule{DayStart: "10:00", DayEnd: "13:00", SlotMinutes: 60},
			wantCount: 3,
			wantFirst: Window{StartTime: "10:00", EndTime: "11:00"},
			wantLast:  Window{StartTime: "12:00", EndTime: "13:00"},
		},
		{
			name:      "remainder dropped",
			schedule:  Schedule{DayStart: "10:00", DayEnd: "11:40", SlotMinutes: 45},
			wantCount: 2,
			wantFirst: Window{StartTime: "10:00", EndTime: "10:45"},
			wantLast:  Window{StartTime: "10:45", EndTime: "11:30"},
		},
		{
			name:      "slot touching break skipped",
			schedule:  Schedule{DayStart: "12:00", DayEnd: "15:00", BreakStart: "13:30", BreakEnd: "14:00", SlotMinutes: 60},
			wantCount: 2,
			wantFirst: Window{StartTime: "12:00", EndTime: "13:00"},
			wantLast:  Window{StartTime: "14:00", EndTime: "15:00"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Generate(tt.schedule)
			require.NoError(t, err)
			require.Len(t, got, tt.wantCount)
			assert.Equal(t, tt.wantFirst, got[0])
			assert.Equal(t, tt.wantLast, got[len(got)-1])
		})
	}
}

func TestGenerate_Invalid(t *testing.T) {
	_, err := Generate(Schedule{DayStart: "10:00", DayEnd: "09:00", SlotMinutes: 30})
	assert.ErrorIs(t, err, models.ErrInvalidWindow)

	_, err = Generate(Schedule{DayStart: "10:00", DayEnd: "12:00"})
	assert.Error(t, err)

	_, err = Generate(Schedule{DayStart: "1000", DayEnd: "12:00", SlotMinutes: 30})
	assert.Error(t, err)
}
