package month

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAdd(t *testing.T) {
	tests := []struct {
		name   string
		start  time.Time
		months int
		want   time.Time
	}{
		{
			name:   "middle of month",
			start:  time.Date(2025, 3, 15, 10, 30, 0, 0, time.UTC),
			months: 1,
			want:   time.Date(2025, 4, 15, 10, 30, 0, 0, time.UTC),
		},
		{
			name:   "end of january clamps to february",
			start:  time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC),
			months: 1,
			want:   time.Date(2025, 2, 28, 0, 0, 0, 0, time.UTC),
		},
		{
			name:   "leap year february",
			start:  time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC),
			months: 1,
			want:   time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC),
		},
		{
			name:   "crosses year boundary",
			start:  time.Date(2025, 11, 30, 8, 0, 0, 0, time.UTC),
			months: 3,
			want:   time.Date(2026, 2, 28, 8, 0, 0, 0, time.UTC),
		},
		{
			name:   "twelve months",
			start:  time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
			months: 12,
			want:   time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			name:   "zero months",
			start:  time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
			months: 0,
			want:   time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			name:   "thirty first to thirtieth",
			start:  time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC),
			months: 1,
			want:   time.Date(2025, 4, 30, 0, 0, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, tt.want.Equal(Add(tt.start, tt.months)), "got %s", Add(tt.start, tt.months))
		})
	}
}

func TestAdd_PreservesNanoseconds(t *testing.T) {
	start := time.Date(2025, 5, 10, 1, 2, 3, 456, time.UTC)
	got := Add(start, 2)
	assert.Equal(t, 456, got.Nanosecond())
}
