package core

import (
	"testing"
	"time"
)

func TestAccrueInterest(t *testing.T) {
	cases := []struct {
		name    string
		balance string
		rate    string
		method  InterestMethod
		origin  time.Time
		asOf    time.Time
		want    string
	}{
		{
			name:    "daily on origin date accrues nothing",
			balance: "1000", rate: "10", method: MethodSimpleDaily,
			origin: date(2024, 1, 1), asOf: date(2024, 1, 1),
			want: "0",
		},
		{
			name:    "daily 73 days at 10 percent",
			balance: "1000", rate: "10", method: MethodSimpleDaily,
			origin: date(2024, 1, 1), asOf: date(2024, 3, 14),
			want: "20", // 1000 * 0.10 * 73/365
		},
		{
			name:    "daily one day rounds half-up to 2dp",
			balance: "1000", rate: "10", method: MethodSimpleDaily,
			origin: date(2024, 1, 1), asOf: date(2024, 1, 2),
			want: "0.27", // 0.27397...
		},
		{
			name:    "monthly whole months",
			balance: "500", rate: "24", method: MethodSimpleMonthly,
			origin: date(2024, 1, 1), asOf: date(2024, 4, 1),
			want: "360", // 500 * 0.24 * 3
		},
		{
			name:    "monthly with day fraction",
			balance: "300", rate: "10", method: MethodSimpleMonthly,
			origin: date(2024, 1, 1), asOf: date(2024, 2, 16),
			want: "45", // 300 * 0.10 * (1 + 15/30)
		},
		{
			name:    "flat is independent of elapsed time",
			balance: "1000", rate: "12", method: MethodFlat,
			origin: date(2024, 1, 1), asOf: date(2030, 6, 15),
			want: "120",
		},
		{
			name:    "flat on origin date",
			balance: "1000", rate: "12", method: MethodFlat,
			origin: date(2024, 1, 1), asOf: date(2024, 1, 1),
			want: "120",
		},
		{
			name:    "none method",
			balance: "1000", rate: "10", method: MethodNone,
			origin: date(2024, 1, 1), asOf: date(2025, 1, 1),
			want: "0",
		},
		{
			name:    "zero rate",
			balance: "1000", rate: "0", method: MethodSimpleDaily,
			origin: date(2024, 1, 1), asOf: date(2025, 1, 1),
			want: "0",
		},
		{
			name:    "unknown method treated as none",
			balance: "1000", rate: "10", method: InterestMethod("compound"),
			origin: date(2024, 1, 1), asOf: date(2025, 1, 1),
			want: "0",
		},
		{
			name:    "asOf before origin clamps to zero for daily",
			balance: "1000", rate: "10", method: MethodSimpleDaily,
			origin: date(2024, 6, 1), asOf: date(2024, 1, 1),
			want: "0",
		},
		{
			name:    "asOf before origin clamps to zero for monthly",
			balance: "1000", rate: "10", method: MethodSimpleMonthly,
			origin: date(2024, 6, 1), asOf: date(2024, 1, 1),
			want: "0",
		},
		{
			name:    "non-positive balance accrues nothing",
			balance: "-200", rate: "10", method: MethodFlat,
			origin: date(2024, 1, 1), asOf: date(2024, 6, 1),
			want: "0",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := AccrueInterest(dec(tc.balance), dec(tc.rate), tc.method, tc.origin, tc.asOf)
			if !got.Equal(dec(tc.want)) {
				t.Fatalf("AccrueInterest = %s, want %s", got, tc.want)
			}
			if got.IsNegative() {
				t.Fatalf("interest must never be negative, got %s", got)
			}
		})
	}
}

func TestDaysBetween(t *testing.T) {
	cases := []struct {
		a, b time.Time
		want int
	}{
		{date(2024, 1, 1), date(2024, 1, 1), 0},
		{date(2024, 1, 1), date(2024, 1, 2), 1},
		{date(2024, 1, 1), date(2024, 3, 14), 73},
		{date(2024, 2, 1), date(2024, 3, 1), 29}, // leap year
		{date(2024, 6, 1), date(2024, 1, 1), 0},  // clamped
	}
	for _, tc := range cases {
		if got := DaysBetween(tc.a, tc.b); got != tc.want {
			t.Fatalf("DaysBetween(%s, %s) = %d, want %d",
				tc.a.Format("2006-01-02"), tc.b.Format("2006-01-02"), got, tc.want)
		}
	}
}

func TestDaysBetweenIgnoresTimeOfDay(t *testing.T) {
	a := time.Date(2024, 1, 1, 23, 59, 0, 0, time.UTC)
	b := time.Date(2024, 1, 2, 0, 1, 0, 0, time.UTC)
	if got := DaysBetween(a, b); got != 1 {
		t.Fatalf("DaysBetween across midnight = %d, want 1", got)
	}
}

func TestMonthsBetween(t *testing.T) {
	cases := []struct {
		a, b       time.Time
		wantMonths int
		wantDays   int
	}{
		{date(2024, 1, 1), date(2024, 4, 1), 3, 0},
		{date(2024, 1, 1), date(2024, 2, 16), 1, 15},
		{date(2024, 1, 15), date(2024, 2, 10), 0, 26},
		{date(2024, 1, 31), date(2024, 2, 29), 0, 29},
		{date(2024, 1, 1), date(2024, 1, 1), 0, 0},
		{date(2024, 6, 1), date(2024, 1, 1), 0, 0}, // clamped
	}
	for _, tc := range cases {
		months, days := MonthsBetween(tc.a, tc.b)
		if months != tc.wantMonths || days != tc.wantDays {
			t.Fatalf("MonthsBetween(%s, %s) = (%d, %d), want (%d, %d)",
				tc.a.Format("2006-01-02"), tc.b.Format("2006-01-02"),
				months, days, tc.wantMonths, tc.wantDays)
		}
	}
}
