package forecast

import (
	"errors"
	"testing"
	"time"
)

func TestHolidaysForIndonesia(t *testing.T) {
	events, err := HolidaysFor("id", 2023, 2024)
	if err != nil {
		t.Fatalf("HolidaysFor failed: %v", err)
	}
	if len(events) != 16 {
		t.Fatalf("expected 16 events across 2023-2024, got %d", len(events))
	}

	// Sorted by date.
	for i := 1; i < len(events); i++ {
		if events[i].Date.Before(events[i-1].Date) {
			t.Fatalf("events not sorted at %d: %v before %v", i, events[i].Date, events[i-1].Date)
		}
	}

	// Movable feast pinned per year.
	found := false
	for _, ev := range events {
		if ev.Name == "Eid al-Fitr" && ev.Date.Equal(time.Date(2024, 4, 10, 0, 0, 0, 0, time.UTC)) {
			found = true
		}
	}
	if !found {
		t.Error("expected Eid al-Fitr on 2024-04-10")
	}
}

func TestHolidaysForUS(t *testing.T) {
	events, err := HolidaysFor("us", 2024, 2024)
	if err != nil {
		t.Fatalf("HolidaysFor failed: %v", err)
	}
	if len(events) != 6 {
		t.Fatalf("expected 6 events for 2024, got %d", len(events))
	}

	want := map[string]time.Time{
		"New Year's Day":   time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		"Memorial Day":     time.Date(2024, 5, 27, 0, 0, 0, 0, time.UTC),
		"Independence Day": time.Date(2024, 7, 4, 0, 0, 0, 0, time.UTC),
		"Labor Day":        time.Date(2024, 9, 2, 0, 0, 0, 0, time.UTC),
		"Thanksgiving":     time.Date(2024, 11, 28, 0, 0, 0, 0, time.UTC),
		"Christmas Day":    time.Date(2024, 12, 25, 0, 0, 0, 0, time.UTC),
	}
	for _, ev := range events {
		expected, ok := want[ev.Name]
		if !ok {
			t.Errorf("unexpected event %q", ev.Name)
			continue
		}
		if !ev.Date.Equal(expected) {
			t.Errorf("%s = %v, want %v", ev.Name, ev.Date, expected)
		}
	}
}

func TestHolidaysForDeterministic(t *testing.T) {
	first, err := HolidaysFor("id", 2022, 2025)
	if err != nil {
		t.Fatalf("HolidaysFor failed: %v", err)
	}
	second, err := HolidaysFor("id", 2022, 2025)
	if err != nil {
		t.Fatalf("HolidaysFor failed: %v", err)
	}

	if len(first) != len(second) {
		t.Fatalf("lengths differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Errorf("event %d differs: %v vs %v", i, first[i], second[i])
		}
	}
}

func TestHolidaysForUnknownRegion(t *testing.T) {
	_, err := HolidaysFor("zz", 2024, 2024)
	var unsupported *UnsupportedRegionError
	if !errors.As(err, &unsupported) {
		t.Fatalf("expected UnsupportedRegionError, got %v", err)
	}
	if unsupported.Region != "zz" {
		t.Errorf("Region = %q, want zz", unsupported.Region)
	}
}

func TestHolidaysForCaseInsensitive(t *testing.T) {
	upper, err := HolidaysFor("US", 2024, 2024)
	if err != nil {
		t.Fatalf("HolidaysFor failed: %v", err)
	}
	lower, err := HolidaysFor("us", 2024, 2024)
	if err != nil {
		t.Fatalf("HolidaysFor failed: %v", err)
	}
	if len(upper) != len(lower) {
		t.Errorf("case-sensitive lookup: %d vs %d events", len(upper), len(lower))
	}
}

func TestHolidaysForSwappedRange(t *testing.T) {
	events, err := HolidaysFor("us", 2025, 2024)
	if err != nil {
		t.Fatalf("HolidaysFor failed: %v", err)
	}
	if len(events) != 12 {
		t.Errorf("expected 12 events for swapped 2024-2025 range, got %d", len(events))
	}
}

func TestRegions(t *testing.T) {
	regions := Regions()
	if len(regions) < 2 {
		t.Fatalf("expected at least 2 registered regions, got %v", regions)
	}
	for i := 1; i < len(regions); i++ {
		if regions[i] < regions[i-1] {
			t.Errorf("regions not sorted: %v", regions)
		}
	}
}

func TestNthWeekday(t *testing.T) {
	tests := []struct {
		name    string
		year    int
		month   time.Month
		weekday time.Weekday
		n       int
		want    time.Time
	}{
		{"first monday sep 2025", 2025, time.September, time.Monday, 1, time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC)},
		{"fourth thursday nov 2025", 2025, time.November, time.Thursday, 4, time.Date(2025, 11, 27, 0, 0, 0, 0, time.UTC)},
		{"last monday may 2025", 2025, time.May, time.Monday, -1, time.Date(2025, 5, 26, 0, 0, 0, 0, time.UTC)},
		{"last monday may 2021", 2021, time.May, time.Monday, -1, time.Date(2021, 5, 31, 0, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := nthWeekday(tt.year, tt.month, tt.weekday, tt.n)
			if !got.Equal(tt.want) {
				t.Errorf("nthWeekday = %v, want %v", got, tt.want)
			}
		})
	}
}
