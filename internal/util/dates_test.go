package util

import (
	"testing"
	"time"
)

func TestParseNSEDate(t *testing.T) {
	d, err := ParseNSEDate("25-Apr-2025")
	if err != nil {
		t.Fatalf("ParseNSEDate failed: %v", err)
	}
	want := time.Date(2025, 4, 25, 0, 0, 0, 0, time.UTC)
	if !d.Equal(want) {
		t.Errorf("ParseNSEDate = %v, expected %v", d, want)
	}

	if _, err := ParseNSEDate("2025-04-25"); err == nil {
		t.Error("ISO date should not parse as an NSE date")
	}
}

func TestYearsBetween(t *testing.T) {
	from := time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(1, 0, 0)
	if got := YearsBetween(from, to); got < 0.99 || got > 1.01 {
		t.Errorf("one year apart = %v, expected ~1.0", got)
	}

	// expired contracts clamp to zero
	if got := YearsBetween(to, from); got != 0 {
		t.Errorf("negative span should clamp to 0, got %v", got)
	}
}

func TestPrevBusinessDay(t *testing.T) {
	tests := []struct {
		name string
		from time.Time
		want time.Time
	}{
		{
			name: "midweek",
			from: time.Date(2025, 4, 16, 0, 0, 0, 0, time.UTC), // Wed
			want: time.Date(2025, 4, 15, 0, 0, 0, 0, time.UTC), // Tue
		},
		{
			name: "monday skips the weekend",
			from: time.Date(2025, 4, 14, 0, 0, 0, 0, time.UTC), // Mon
			want: time.Date(2025, 4, 11, 0, 0, 0, 0, time.UTC), // Fri
		},
		{
			name: "sunday lands on friday",
			from: time.Date(2025, 4, 13, 0, 0, 0, 0, time.UTC),
			want: time.Date(2025, 4, 11, 0, 0, 0, 0, time.UTC),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := PrevBusinessDay(tt.from); !got.Equal(tt.want) {
				t.Errorf("PrevBusinessDay(%v) = %v, expected %v", tt.from, got, tt.want)
			}
		})
	}
}

func TestMondayIndex(t *testing.T) {
	if MondayIndex(time.Monday) != 0 {
		t.Error("Monday should map to 0")
	}
	if MondayIndex(time.Sunday) != 6 {
		t.Error("Sunday should map to 6")
	}
	if MondayIndex(time.Wednesday) != 2 {
		t.Error("Wednesday should map to 2")
	}
}

func TestNextWeekday(t *testing.T) {
	mon := time.Date(2025, 4, 14, 0, 0, 0, 0, time.UTC)
	fri := NextWeekday(mon, time.Friday)
	if !fri.Equal(time.Date(2025, 4, 18, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("NextWeekday(Mon, Friday) = %v", fri)
	}

	// strictly after: asking for the same weekday jumps a full week
	nextMon := NextWeekday(mon, time.Monday)
	if !nextMon.Equal(mon.AddDate(0, 0, 7)) {
		t.Errorf("NextWeekday(Mon, Monday) = %v, expected a week later", nextMon)
	}
}

func TestMonthBounds(t *testing.T) {
	first, last := MonthBounds(2024, time.February)
	if first.Day() != 1 || last.Day() != 29 {
		t.Errorf("February 2024 bounds = %v..%v", first, last)
	}
}
