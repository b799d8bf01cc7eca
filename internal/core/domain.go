package core

import (
	"errors"
	"strings"
	"time"
)

const (
	TWD Currency = "TWD"
	JPY Currency = "JPY"
	USD Currency = "USD"
	EUR Currency = "EUR"
	KRW Currency = "KRW"
	THB Currency = "THB"
	VND Currency = "VND"
	GBP Currency = "GBP"
)

type (
	Currency string

	Date struct {
		time.Time
	}

	// DateRange is a pair of calendar dates with Start <= End. It drives
	// both the weather partitioning and the itinerary day tabs.
	DateRange struct {
		Start Date
		End   Date
	}

	Trip struct {
		ID          string
		Name        string
		Destination string
		Lat         float64
		Lon         float64
		Range       DateRange
		OwnerID     string
		CreatedAt   time.Time
	}

	// Participant carries a stable ID; the display name is only a
	// projection used by the ledger and the UI.
	Participant struct {
		ID          string
		TripID      string
		DisplayName string
		JoinedAt    time.Time
	}

	// Expense is the row shape the ledger consumes. Payer and the
	// SplitDetail keys are free-text display names, not user IDs: a payer
	// removed from the trip after paying still has to accrue a balance.
	Expense struct {
		ID          string
		TripID      string
		CreatedAt   time.Time
		ItemName    string
		Amount      float64
		Currency    Currency
		Payer       string
		SplitDetail map[string]float64
	}

	ItineraryItem struct {
		ID        string
		TripID    string
		Date      Date
		StartTime string // "HH:MM", optional
		Title     string
		Place     string
		Note      string
	}

	// Memory is a private annotation on an itinerary item, visible only
	// to its author.
	Memory struct {
		ID              string
		ItineraryItemID string
		AuthorID        string
		Body            string
		CreatedAt       time.Time
	}

	User struct {
		ID           string
		Email        string
		DisplayName  string
		PasswordHash string
		CreatedAt    time.Time
	}
)

var (
	ErrInvalidRange     = errors.New("start date must not be after end date")
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrEmptyName        = errors.New("empty name")
	ErrEmptyPayer       = errors.New("empty payer")
	ErrUnknownCurrency  = errors.New("unsupported currency")
	ErrEmptyDisplayName = errors.New("empty display name")
	ErrEmptyBody        = errors.New("empty body")
	ErrEmptyTitle       = errors.New("empty title")
)

// SupportedCurrencies lists the fixed currency set, in display order.
func SupportedCurrencies() []Currency {
	return []Currency{TWD, JPY, USD, EUR, KRW, THB, VND, GBP}
}

func (c Currency) Supported() bool {
	for _, s := range SupportedCurrencies() {
		if c == s {
			return true
		}
	}
	return false
}

// NewDate creates a Date from year, month, day in UTC.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a yyyy-mm-dd string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", strings.TrimSpace(s))
	if err != nil {
		return Date{}, err
	}
	return Date{Time: t}, nil
}

// ISO returns the date in yyyy-mm-dd form.
func (d Date) ISO() string {
	return d.Format("2006-01-02")
}

// AddDays returns the date shifted by n calendar days.
func (d Date) AddDays(n int) Date {
	return Date{Time: d.AddDate(0, 0, n)}
}

// ShiftYears returns the date shifted by n calendar years.
func (d Date) ShiftYears(n int) Date {
	return Date{Time: d.AddDate(n, 0, 0)}
}

func (d Date) Validate() error {
	if d.IsZero() {
		return errors.New("date cannot be zero")
	}
	return nil
}

func (r DateRange) Validate() error {
	if err := r.Start.Validate(); err != nil {
		return errors.New("invalid start date: " + err.Error())
	}
	if err := r.End.Validate(); err != nil {
		return errors.New("invalid end date: " + err.Error())
	}
	if r.Start.After(r.End.Time) {
		return ErrInvalidRange
	}
	return nil
}

// Days returns the number of calendar days in the range, inclusive.
func (r DateRange) Days() int {
	return int(r.End.Sub(r.Start.Time)/(24*time.Hour)) + 1
}

// Dates enumerates every date in the range in ascending order.
func (r DateRange) Dates() []Date {
	out := make([]Date, 0, r.Days())
	for d := r.Start; !d.After(r.End.Time); d = d.AddDays(1) {
		out = append(out, d)
	}
	return out
}

// Contains reports whether d falls within the range, inclusive.
func (r DateRange) Contains(d Date) bool {
	return !d.Before(r.Start.Time) && !d.After(r.End.Time)
}

// ShiftYears shifts both endpoints by n calendar years.
func (r DateRange) ShiftYears(n int) DateRange {
	return DateRange{Start: r.Start.ShiftYears(n), End: r.End.ShiftYears(n)}
}

func (t Trip) Validate() error {
	if len(strings.TrimSpace(t.Name)) == 0 {
		return ErrEmptyName
	}
	if len(t.Name) > 120 {
		return errors.New("name too long (max 120 characters)")
	}
	return t.Range.Validate()
}

// HasCoordinates reports whether the trip has a geocoded destination.
// A trip without one cannot be asked for weather.
func (t Trip) HasCoordinates() bool {
	return t.Lat != 0 || t.Lon != 0
}

func (p Participant) Validate() error {
	if len(strings.TrimSpace(p.DisplayName)) == 0 {
		return ErrEmptyDisplayName
	}
	return nil
}

// Validate checks the ingestion invariants. The ledger itself never
// validates: partial or legacy rows must still render a best-effort
// ledger.
func (e Expense) Validate() error {
	if len(strings.TrimSpace(e.ItemName)) == 0 {
		return ErrEmptyName
	}
	if e.Amount <= 0 {
		return ErrInvalidAmount
	}
	if !e.Currency.Supported() {
		return ErrUnknownCurrency
	}
	if len(strings.TrimSpace(e.Payer)) == 0 {
		return ErrEmptyPayer
	}
	return nil
}

func (it ItineraryItem) Validate() error {
	if len(strings.TrimSpace(it.Title)) == 0 {
		return ErrEmptyTitle
	}
	return it.Date.Validate()
}

func (m Memory) Validate() error {
	if len(strings.TrimSpace(m.Body)) == 0 {
		return ErrEmptyBody
	}
	if len(m.Body) > 2000 {
		return errors.New("body too long (max 2000 characters)")
	}
	return nil
}
