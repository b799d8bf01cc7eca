// Package weather assembles daily weather for a trip date range by
// combining a real-time forecast source, reliable only for a bounded
// near-future horizon, with a historical-analogue source that stands in
// for dates beyond it using the same calendar window one year earlier.
package weather

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/joujou-angel/Traveller2-sub000/internal/core"
)

// DefaultForecastHorizonDays is how far ahead the forecast source is
// trusted.
const DefaultForecastHorizonDays = 14

// DefaultFetchTimeout bounds each outbound source call. Expiry counts as
// a source failure and degrades like one.
const DefaultFetchTimeout = 10 * time.Second

// ErrNoCoordinates is a precondition failure: the caller asked for
// weather without a geocoded destination. It is reported distinctly from
// a fetch failure so the UI can prompt for setup instead of retrying.
var ErrNoCoordinates = errors.New("no coordinates: destination not configured")

type Coordinates struct {
	Lat float64
	Lon float64
}

func (c Coordinates) IsZero() bool {
	return c.Lat == 0 && c.Lon == 0
}

// Segment is one calendar day's weather summary tagged with its
// provenance. Historical segments carry the trip's own future date, not
// the shifted date they were queried under.
type Segment struct {
	Date        core.Date `json:"-"`
	DateISO     string    `json:"date"`
	Code        int       `json:"code"`
	Description string    `json:"description"`
	TempMax     float64   `json:"tempMax"`
	TempMin     float64   `json:"tempMin"`
	Historical  bool      `json:"isHistorical"`
}

// Day is a single daily record as returned by a source.
type Day struct {
	Date    core.Date
	Code    int
	TempMax float64
	TempMin float64
}

// Source fetches one daily record per date of the requested range.
type Source interface {
	Fetch(ctx context.Context, coords Coordinates, r core.DateRange) ([]Day, error)
}

// SourceFunc adapts a function to the Source interface.
type SourceFunc func(ctx context.Context, coords Coordinates, r core.DateRange) ([]Day, error)

func (f SourceFunc) Fetch(ctx context.Context, coords Coordinates, r core.DateRange) ([]Day, error) {
	return f(ctx, coords, r)
}

// SourceRange is one sub-range of the trip tagged with the source that
// must serve it.
type SourceRange struct {
	Range      core.DateRange
	Historical bool
}

// PartitionRange splits the trip range at the forecast limit
// (today + horizonDays). It returns at most two tagged sub-ranges:
// the forecast part, then the historical part.
func PartitionRange(trip core.DateRange, today core.Date, horizonDays int) []SourceRange {
	limit := today.AddDays(horizonDays)

	if trip.Start.After(limit.Time) {
		// Entirely beyond the horizon.
		return []SourceRange{{Range: trip, Historical: true}}
	}
	if !trip.End.After(limit.Time) {
		// Entirely within the horizon.
		return []SourceRange{{Range: trip, Historical: false}}
	}
	// Straddles the limit.
	return []SourceRange{
		{Range: core.DateRange{Start: trip.Start, End: limit}, Historical: false},
		{Range: core.DateRange{Start: limit.AddDays(1), End: trip.End}, Historical: true},
	}
}

// Aggregator merges forecast and historical-analogue data into one
// chronological list of segments. It holds no state beyond its sources
// and is safe for concurrent use.
type Aggregator struct {
	forecast Source
	archive  Source
	horizon  int
	timeout  time.Duration
}

func NewAggregator(forecast, archive Source) *Aggregator {
	return &Aggregator{
		forecast: forecast,
		archive:  archive,
		horizon:  DefaultForecastHorizonDays,
		timeout:  DefaultFetchTimeout,
	}
}

// WithHorizon overrides the forecast horizon, clamped to at least one day.
func (a *Aggregator) WithHorizon(days int) *Aggregator {
	if days < 1 {
		days = 1
	}
	a.horizon = days
	return a
}

// Aggregate fetches every applicable sub-range concurrently and returns
// the combined segments sorted ascending by date.
//
// A failing source is logged and omitted so the other can still render;
// both failing yields an empty slice and a nil error. Only missing
// coordinates is an error, since the caller should have checked that
// precondition.
func (a *Aggregator) Aggregate(ctx context.Context, coords Coordinates, trip core.DateRange, today core.Date) ([]Segment, error) {
	if coords.IsZero() {
		return nil, ErrNoCoordinates
	}
	if err := trip.Validate(); err != nil {
		return nil, err
	}

	parts := PartitionRange(trip, today, a.horizon)
	results := make([][]Segment, len(parts))

	// The sub-ranges address disjoint dates with no ordering dependency,
	// so they are fetched concurrently. A failed source never fails the
	// group: its range is simply omitted.
	var g errgroup.Group
	for i, part := range parts {
		i, part := i, part
		g.Go(func() error {
			segs, err := a.fetchPart(ctx, coords, part)
			if err != nil {
				slog.WarnContext(ctx, "Weather source unavailable, omitting its range",
					"historical", part.Historical,
					"from", part.Range.Start.ISO(),
					"to", part.Range.End.ISO(),
					"error", err)
				return nil
			}
			results[i] = segs
			return nil
		})
	}
	_ = g.Wait()

	var segments []Segment
	for _, segs := range results {
		segments = append(segments, segs...)
	}
	// The two runs arrive pre-sorted, but a full sort is cheap at the
	// <=30 day trip bound.
	sort.Slice(segments, func(i, j int) bool {
		return segments[i].Date.Before(segments[j].Date.Time)
	})
	return segments, nil
}

func (a *Aggregator) fetchPart(ctx context.Context, coords Coordinates, part SourceRange) ([]Segment, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	if !part.Historical {
		days, err := a.forecast.Fetch(ctx, coords, part.Range)
		if err != nil {
			return nil, err
		}
		return tagSegments(days, false), nil
	}

	// The archive has no notion of future dates: query the same window
	// one year earlier, then re-label each returned day with its true
	// future date by positional correspondence.
	days, err := a.archive.Fetch(ctx, coords, part.Range.ShiftYears(-1))
	if err != nil {
		return nil, err
	}
	trueDates := part.Range.Dates()
	if len(days) > len(trueDates) {
		days = days[:len(trueDates)]
	}
	for i := range days {
		days[i].Date = trueDates[i]
	}
	return tagSegments(days, true), nil
}

func tagSegments(days []Day, historical bool) []Segment {
	segs := make([]Segment, len(days))
	for i, d := range days {
		segs[i] = Segment{
			Date:        d.Date,
			DateISO:     d.Date.ISO(),
			Code:        d.Code,
			Description: Describe(d.Code),
			TempMax:     d.TempMax,
			TempMin:     d.TempMin,
			Historical:  historical,
		}
	}
	return segs
}
