package forecast

import (
	"testing"
	"time"
)

func TestParseGranularity(t *testing.T) {
	tests := []struct {
		input   string
		want    Granularity
		wantErr bool
	}{
		{"weekly", Weekly, false},
		{"monthly", Monthly, false},
		{"", Monthly, false},
		{"daily", "", true},
		{"WEEKLY", "", true},
	}

	for _, tt := range tests {
		got, err := ParseGranularity(tt.input)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseGranularity(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			continue
		}
		if !tt.wantErr && got != tt.want {
			t.Errorf("ParseGranularity(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestBucketStartWeekly(t *testing.T) {
	tests := []struct {
		name  string
		input time.Time
		want  time.Time
	}{
		{
			name:  "wednesday maps to preceding monday",
			input: time.Date(2024, 5, 15, 13, 45, 0, 0, time.UTC),
			want:  time.Date(2024, 5, 13, 0, 0, 0, 0, time.UTC),
		},
		{
			name:  "monday maps to itself",
			input: time.Date(2024, 5, 13, 0, 0, 0, 0, time.UTC),
			want:  time.Date(2024, 5, 13, 0, 0, 0, 0, time.UTC),
		},
		{
			name:  "sunday maps back six days",
			input: time.Date(2024, 5, 19, 23, 59, 0, 0, time.UTC),
			want:  time.Date(2024, 5, 13, 0, 0, 0, 0, time.UTC),
		},
		{
			name:  "crosses month boundary",
			input: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
			want:  time.Date(2024, 5, 27, 0, 0, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Weekly.BucketStart(tt.input)
			if !got.Equal(tt.want) {
				t.Errorf("BucketStart(%v) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestBucketStartMonthly(t *testing.T) {
	got := Monthly.BucketStart(time.Date(2024, 5, 31, 18, 0, 0, 0, time.UTC))
	want := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("BucketStart = %v, want %v", got, want)
	}
}

func TestGranularityIndex(t *testing.T) {
	monthStart := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	if idx := Monthly.Index(monthStart, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)); idx != 14 {
		t.Errorf("monthly index = %d, want 14", idx)
	}
	if idx := Monthly.Index(monthStart, time.Date(2022, 12, 1, 0, 0, 0, 0, time.UTC)); idx != -1 {
		t.Errorf("monthly index before start = %d, want -1", idx)
	}

	weekStart := time.Date(2024, 5, 13, 0, 0, 0, 0, time.UTC)
	if idx := Weekly.Index(weekStart, time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC)); idx != 4 {
		t.Errorf("weekly index = %d, want 4", idx)
	}
}

func TestGranularityAddBuckets(t *testing.T) {
	monthStart := time.Date(2023, 11, 1, 0, 0, 0, 0, time.UTC)
	if got := Monthly.AddBuckets(monthStart, 3); !got.Equal(time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("AddBuckets monthly = %v", got)
	}

	weekStart := time.Date(2024, 12, 30, 0, 0, 0, 0, time.UTC)
	if got := Weekly.AddBuckets(weekStart, 2); !got.Equal(time.Date(2025, 1, 13, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("AddBuckets weekly = %v", got)
	}
}

func TestSeriesAccessors(t *testing.T) {
	series := monthlySeries(3, func(i int) float64 { return float64(i) * 10 })

	values := series.Values()
	if len(values) != 3 || values[2] != 20 {
		t.Errorf("Values() = %v", values)
	}

	buckets := series.Buckets()
	if !buckets[0].Equal(testBaseMonth) {
		t.Errorf("Buckets()[0] = %v, want %v", buckets[0], testBaseMonth)
	}

	if !series.Start().Equal(testBaseMonth) || !series.End().Equal(testBaseMonth.AddDate(0, 2, 0)) {
		t.Errorf("Start/End = %v/%v", series.Start(), series.End())
	}

	var empty Series
	if !empty.Start().IsZero() || !empty.End().IsZero() {
		t.Error("empty series should report zero start/end")
	}
}
