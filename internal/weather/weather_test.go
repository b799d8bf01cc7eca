package weather

import (
	"context"
	"errors"
	"testing"

	"github.com/joujou-angel/Traveller2-sub000/internal/core"
)

var today = core.NewDate(2026, 3, 1)

// fakeSource returns one synthetic day per requested date, encoding the
// queried date in the temperature so re-labeling can be asserted.
func fakeSource(code int) Source {
	return SourceFunc(func(_ context.Context, _ Coordinates, r core.DateRange) ([]Day, error) {
		var days []Day
		for i, d := range r.Dates() {
			days = append(days, Day{Date: d, Code: code, TempMax: float64(20 + i), TempMin: float64(10 + i)})
		}
		return days, nil
	})
}

func failingSource(err error) Source {
	return SourceFunc(func(context.Context, Coordinates, core.DateRange) ([]Day, error) {
		return nil, err
	})
}

var coords = Coordinates{Lat: 25.03, Lon: 121.56}

func TestPartitionRangeAllForecast(t *testing.T) {
	trip := core.DateRange{Start: today.AddDays(2), End: today.AddDays(9)}
	parts := PartitionRange(trip, today, 14)
	if len(parts) != 1 || parts[0].Historical {
		t.Fatalf("parts = %+v, want single forecast range", parts)
	}
	if parts[0].Range != trip {
		t.Fatalf("range = %+v, want %+v", parts[0].Range, trip)
	}
}

func TestPartitionRangeAllHistorical(t *testing.T) {
	trip := core.DateRange{Start: today.AddDays(15), End: today.AddDays(20)}
	parts := PartitionRange(trip, today, 14)
	if len(parts) != 1 || !parts[0].Historical {
		t.Fatalf("parts = %+v, want single historical range", parts)
	}
}

func TestPartitionRangeStraddle(t *testing.T) {
	trip := core.DateRange{Start: today.AddDays(10), End: today.AddDays(20)}
	parts := PartitionRange(trip, today, 14)
	if len(parts) != 2 {
		t.Fatalf("parts = %+v, want forecast+historical", parts)
	}
	if parts[0].Historical || !parts[1].Historical {
		t.Fatalf("tags = %v/%v, want forecast then historical", parts[0].Historical, parts[1].Historical)
	}
	if got := parts[0].Range.End.ISO(); got != today.AddDays(14).ISO() {
		t.Fatalf("forecast end = %s, want %s", got, today.AddDays(14).ISO())
	}
	if got := parts[1].Range.Start.ISO(); got != today.AddDays(15).ISO() {
		t.Fatalf("historical start = %s, want %s", got, today.AddDays(15).ISO())
	}
}

func TestPartitionRangeHorizonBoundary(t *testing.T) {
	// A trip ending exactly on the forecast limit is pure forecast.
	trip := core.DateRange{Start: today, End: today.AddDays(14)}
	parts := PartitionRange(trip, today, 14)
	if len(parts) != 1 || parts[0].Historical {
		t.Fatalf("parts = %+v, want single forecast range", parts)
	}
	// Starting one day past the limit is pure historical.
	trip = core.DateRange{Start: today.AddDays(15), End: today.AddDays(15)}
	parts = PartitionRange(trip, today, 14)
	if len(parts) != 1 || !parts[0].Historical {
		t.Fatalf("parts = %+v, want single historical range", parts)
	}
}

func TestAggregateNoCoordinates(t *testing.T) {
	agg := NewAggregator(fakeSource(0), fakeSource(0))
	trip := core.DateRange{Start: today, End: today.AddDays(3)}
	_, err := agg.Aggregate(context.Background(), Coordinates{}, trip, today)
	if !errors.Is(err, ErrNoCoordinates) {
		t.Fatalf("err = %v, want ErrNoCoordinates", err)
	}
}

func TestAggregateAllForecast(t *testing.T) {
	agg := NewAggregator(fakeSource(1), failingSource(errors.New("must not be called")))
	trip := core.DateRange{Start: today.AddDays(1), End: today.AddDays(5)}

	segs, err := agg.Aggregate(context.Background(), coords, trip, today)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(segs) != 5 {
		t.Fatalf("got %d segments, want 5", len(segs))
	}
	for _, s := range segs {
		if s.Historical {
			t.Fatalf("segment %s marked historical in an all-forecast trip", s.DateISO)
		}
		if !trip.Contains(s.Date) {
			t.Fatalf("segment %s outside trip range", s.DateISO)
		}
	}
}

func TestAggregateAllHistoricalRelabels(t *testing.T) {
	var queried core.DateRange
	archive := SourceFunc(func(ctx context.Context, c Coordinates, r core.DateRange) ([]Day, error) {
		queried = r
		return fakeSource(2).Fetch(ctx, c, r)
	})
	agg := NewAggregator(failingSource(errors.New("must not be called")), archive)
	trip := core.DateRange{Start: today.AddDays(20), End: today.AddDays(25)}

	segs, err := agg.Aggregate(context.Background(), coords, trip, today)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if queried.Start.ISO() != trip.Start.ShiftYears(-1).ISO() {
		t.Fatalf("archive queried from %s, want %s", queried.Start.ISO(), trip.Start.ShiftYears(-1).ISO())
	}
	if len(segs) != trip.Days() {
		t.Fatalf("got %d segments, want %d", len(segs), trip.Days())
	}
	for i, s := range segs {
		if !s.Historical {
			t.Fatalf("segment %s not marked historical", s.DateISO)
		}
		// Dates must be the trip's own, not the shifted query window.
		if want := trip.Start.AddDays(i).ISO(); s.DateISO != want {
			t.Fatalf("segment[%d] date = %s, want %s", i, s.DateISO, want)
		}
	}
}

func TestAggregateStraddle(t *testing.T) {
	agg := NewAggregator(fakeSource(1), fakeSource(2))
	trip := core.DateRange{Start: today.AddDays(10), End: today.AddDays(20)}

	segs, err := agg.Aggregate(context.Background(), coords, trip, today)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(segs) != 11 {
		t.Fatalf("got %d segments, want 11", len(segs))
	}

	limit := today.AddDays(14)
	seen := map[string]bool{}
	for i, s := range segs {
		if seen[s.DateISO] {
			t.Fatalf("duplicate date %s", s.DateISO)
		}
		seen[s.DateISO] = true
		if want := trip.Start.AddDays(i).ISO(); s.DateISO != want {
			t.Fatalf("segment[%d] = %s, want %s (sorted, no gaps)", i, s.DateISO, want)
		}
		wantHistorical := s.Date.After(limit.Time)
		if s.Historical != wantHistorical {
			t.Fatalf("segment %s historical = %v, want %v", s.DateISO, s.Historical, wantHistorical)
		}
	}
}

func TestAggregateDegradesOnSourceFailure(t *testing.T) {
	agg := NewAggregator(failingSource(errors.New("boom")), fakeSource(2))
	trip := core.DateRange{Start: today.AddDays(10), End: today.AddDays(20)}

	segs, err := agg.Aggregate(context.Background(), coords, trip, today)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Forecast failed: only the historical run remains.
	if len(segs) != 6 {
		t.Fatalf("got %d segments, want 6", len(segs))
	}
	for _, s := range segs {
		if !s.Historical {
			t.Fatalf("unexpected forecast segment %s after forecast failure", s.DateISO)
		}
	}
}

func TestAggregateEmptyWhenBothFail(t *testing.T) {
	agg := NewAggregator(failingSource(errors.New("boom")), failingSource(errors.New("boom")))
	trip := core.DateRange{Start: today.AddDays(10), End: today.AddDays(20)}

	segs, err := agg.Aggregate(context.Background(), coords, trip, today)
	if err != nil {
		t.Fatalf("total source failure must not error, got %v", err)
	}
	if len(segs) != 0 {
		t.Fatalf("got %d segments, want 0", len(segs))
	}
}

func TestAggregateArchiveOverrun(t *testing.T) {
	// An archive answering more days than asked is truncated to the trip
	// range instead of fabricating dates.
	archive := SourceFunc(func(ctx context.Context, c Coordinates, r core.DateRange) ([]Day, error) {
		extended := core.DateRange{Start: r.Start, End: r.End.AddDays(3)}
		return fakeSource(2).Fetch(ctx, c, extended)
	})
	agg := NewAggregator(fakeSource(1), archive)
	trip := core.DateRange{Start: today.AddDays(20), End: today.AddDays(22)}

	segs, err := agg.Aggregate(context.Background(), coords, trip, today)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(segs) != 3 {
		t.Fatalf("got %d segments, want 3", len(segs))
	}
	for _, s := range segs {
		if !trip.Contains(s.Date) {
			t.Fatalf("segment %s outside trip range", s.DateISO)
		}
	}
}

func TestDescribe(t *testing.T) {
	if got := Describe(0); got != "clear sky" {
		t.Fatalf("Describe(0) = %q", got)
	}
	if got := Describe(61); got != "rain" {
		t.Fatalf("Describe(61) = %q", got)
	}
	if got := Describe(1234); got != "unknown" {
		t.Fatalf("Describe(1234) = %q", got)
	}
}
