package core

import (
	"testing"
	"time"
)

func TestResolveDateRange(t *testing.T) {
	now := time.Date(2025, 3, 31, 15, 4, 5, 0, time.UTC)

	cases := []struct {
		name     string
		from, to string
		want     DateRange
		wantErr  bool
	}{
		{"defaults", "", "", DateRange{From: NewDate(2025, 3, 1), To: NewDate(2025, 3, 31)}, false},
		{"explicit", "2025-01-01", "2025-01-31", DateRange{From: NewDate(2025, 1, 1), To: NewDate(2025, 1, 31)}, false},
		{"only to", "", "2025-02-10", DateRange{From: NewDate(2025, 1, 11), To: NewDate(2025, 2, 10)}, false},
		{"only from", "2025-03-20", "", DateRange{From: NewDate(2025, 3, 20), To: NewDate(2025, 3, 31)}, false},
		{"same day", "2025-03-05", "2025-03-05", DateRange{From: NewDate(2025, 3, 5), To: NewDate(2025, 3, 5)}, false},
		{"malformed from", "2025-13-40", "", DateRange{}, true},
		{"malformed to", "", "yesterday", DateRange{}, true},
		{"inverted", "2025-02-01", "2025-01-01", DateRange{}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ResolveDateRange(tc.from, tc.to, now)
			if tc.wantErr {
				if _, ok := AsValidationError(err); !ok {
					t.Fatalf("expected validation error, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.want {
				t.Fatalf("got %v..%v, want %v..%v", got.From, got.To, tc.want.From, tc.want.To)
			}
		})
	}
}

func TestDefaultRangeEqualsExplicitRange(t *testing.T) {
	now := time.Date(2025, 6, 15, 23, 59, 0, 0, time.UTC)
	def, err := ResolveDateRange("", "", now)
	if err != nil {
		t.Fatal(err)
	}
	explicit, err := ResolveDateRange("2025-05-16", "2025-06-15", now)
	if err != nil {
		t.Fatal(err)
	}
	if def != explicit {
		t.Fatalf("default %v..%v differs from explicit %v..%v", def.From, def.To, explicit.From, explicit.To)
	}
}

func TestDateRangeDaysAndPrevious(t *testing.T) {
	r := DateRange{From: NewDate(2025, 3, 1), To: NewDate(2025, 3, 10)}
	if r.Days() != 10 {
		t.Fatalf("expected 10 days, got %d", r.Days())
	}
	prev := r.Previous()
	if prev.From != NewDate(2025, 2, 19) || prev.To != NewDate(2025, 2, 28) {
		t.Fatalf("unexpected previous range %v..%v", prev.From, prev.To)
	}
	count := 0
	r.Each(func(Date) { count++ })
	if count != 10 {
		t.Fatalf("Each visited %d days", count)
	}
}

func TestDateRangeDaysBeyondDurationLimit(t *testing.T) {
	// One full Gregorian cycle, longer than time.Duration can express.
	r := DateRange{From: NewDate(2000, 1, 1), To: NewDate(2399, 12, 31)}
	if r.Days() != 146097 {
		t.Fatalf("expected 146097 days, got %d", r.Days())
	}
	prev := r.Previous()
	if prev.Days() != r.Days() {
		t.Fatalf("previous window has %d days, want %d", prev.Days(), r.Days())
	}
	if prev.To != NewDate(1999, 12, 31) || prev.From != NewDate(1600, 1, 1) {
		t.Fatalf("unexpected previous range %v..%v", prev.From, prev.To)
	}

	full := DateRange{From: NewDate(1, 1, 1), To: NewDate(9999, 12, 31)}
	if full.Days() != 3652059 {
		t.Fatalf("expected 3652059 days, got %d", full.Days())
	}
}
