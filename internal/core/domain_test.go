package core

import (
	"testing"
	"time"
)

func TestDateRangeValidate(t *testing.T) {
	cases := []struct {
		r  DateRange
		ok bool
	}{
		{DateRange{NewDate(2026, 3, 1), NewDate(2026, 3, 7)}, true},
		{DateRange{NewDate(2026, 3, 7), NewDate(2026, 3, 7)}, true},
		{DateRange{NewDate(2026, 3, 8), NewDate(2026, 3, 7)}, false},
		{DateRange{Date{}, NewDate(2026, 3, 7)}, false},
	}
	for i, tc := range cases {
		err := tc.r.Validate()
		if tc.ok && err != nil {
			t.Fatalf("case %d expected ok, got %v", i, err)
		}
		if !tc.ok && err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestDateRangeDays(t *testing.T) {
	r := DateRange{NewDate(2026, 3, 1), NewDate(2026, 3, 7)}
	if got := r.Days(); got != 7 {
		t.Fatalf("Days() = %d, want 7", got)
	}
	one := DateRange{NewDate(2026, 3, 1), NewDate(2026, 3, 1)}
	if got := one.Days(); got != 1 {
		t.Fatalf("Days() = %d, want 1", got)
	}
}

func TestDateRangeDates(t *testing.T) {
	r := DateRange{NewDate(2026, 2, 27), NewDate(2026, 3, 2)}
	dates := r.Dates()
	want := []string{"2026-02-27", "2026-02-28", "2026-03-01", "2026-03-02"}
	if len(dates) != len(want) {
		t.Fatalf("got %d dates, want %d", len(dates), len(want))
	}
	for i, d := range dates {
		if d.ISO() != want[i] {
			t.Fatalf("dates[%d] = %s, want %s", i, d.ISO(), want[i])
		}
	}
}

func TestDateRangeShiftYears(t *testing.T) {
	r := DateRange{NewDate(2026, 4, 10), NewDate(2026, 4, 20)}
	shifted := r.ShiftYears(-1)
	if shifted.Start.ISO() != "2025-04-10" || shifted.End.ISO() != "2025-04-20" {
		t.Fatalf("shifted = %s..%s", shifted.Start.ISO(), shifted.End.ISO())
	}
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate(" 2026-05-01 ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.ISO() != "2026-05-01" {
		t.Fatalf("got %s", d.ISO())
	}
	if _, err := ParseDate("01/05/2026"); err == nil {
		t.Fatalf("expected error for wrong format")
	}
}

func TestCurrencySupported(t *testing.T) {
	if !TWD.Supported() {
		t.Fatal("TWD should be supported")
	}
	if Currency("XAU").Supported() {
		t.Fatal("XAU should not be supported")
	}
}

func TestTripValidate(t *testing.T) {
	good := Trip{
		Name:  "Kyoto spring",
		Range: DateRange{NewDate(2026, 4, 1), NewDate(2026, 4, 7)},
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	bads := []Trip{
		{Name: "", Range: good.Range},
		{Name: "x", Range: DateRange{NewDate(2026, 4, 7), NewDate(2026, 4, 1)}},
		{Name: "x", Range: DateRange{}},
	}
	for i, tr := range bads {
		if err := tr.Validate(); err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestTripHasCoordinates(t *testing.T) {
	if (Trip{}).HasCoordinates() {
		t.Fatal("zero trip should have no coordinates")
	}
	if !(Trip{Lat: 35.01, Lon: 135.76}).HasCoordinates() {
		t.Fatal("geocoded trip should have coordinates")
	}
}

func TestExpenseValidate(t *testing.T) {
	good := Expense{
		ItemName:    "ramen",
		Amount:      1200,
		Currency:    JPY,
		Payer:       "A",
		SplitDetail: map[string]float64{"A": 600, "B": 600},
		CreatedAt:   time.Now(),
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	bads := []Expense{
		{ItemName: "", Amount: 1, Currency: JPY, Payer: "A"},
		{ItemName: "x", Amount: 0, Currency: JPY, Payer: "A"},
		{ItemName: "x", Amount: 1, Currency: "XAU", Payer: "A"},
		{ItemName: "x", Amount: 1, Currency: JPY, Payer: " "},
	}
	for i, e := range bads {
		if err := e.Validate(); err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestMemoryValidate(t *testing.T) {
	if err := (Memory{Body: "great view"}).Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if err := (Memory{Body: "  "}).Validate(); err == nil {
		t.Fatal("expected error for empty body")
	}
}
