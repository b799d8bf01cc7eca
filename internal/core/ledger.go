// Package core holds the trip domain types and the derived-view engines.
//
// This file implements the ledger engine: per-currency spend totals and
// per-participant net balances derived from the raw expense rows. The
// engine is a pure derivation with no rounding and no error paths;
// rounding to whole units happens only at presentation time via
// BuildLedgerView.
package core

import (
	"math"
	"sort"

	"github.com/shopspring/decimal"
)

// Ledger is the derived financial position of a trip. Balances are keyed
// by participant display name, then currency; positive means the person
// is owed money, negative means they owe.
type Ledger struct {
	Totals   map[Currency]float64
	Balances map[string]map[Currency]float64
}

// ComputeLedger derives totals and balances from the expense rows.
//
// Every roster name is seeded with an empty bucket so that participants
// with zero activity still appear as settled. Payers and split names
// absent from the roster get buckets created on the fly: a name may
// belong to someone removed from the trip after paying. Malformed share
// values (NaN, Inf) contribute zero rather than failing; money data
// predates stricter validation.
//
// The function is a pure derivation: no rounding, no errors, no shared
// state, safe to call concurrently.
func ComputeLedger(expenses []Expense, participants []string) Ledger {
	l := Ledger{
		Totals:   make(map[Currency]float64),
		Balances: make(map[string]map[Currency]float64, len(participants)),
	}
	for _, name := range participants {
		l.Balances[name] = make(map[Currency]float64)
	}

	for _, e := range expenses {
		amount := coerce(e.Amount)
		l.Totals[e.Currency] += amount
		l.bucket(e.Payer)[e.Currency] += amount
		for name, share := range e.SplitDetail {
			l.bucket(name)[e.Currency] -= coerce(share)
		}
	}
	return l
}

func (l Ledger) bucket(name string) map[Currency]float64 {
	b, ok := l.Balances[name]
	if !ok {
		b = make(map[Currency]float64)
		l.Balances[name] = b
	}
	return b
}

func coerce(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// BalanceEntry is one display-rounded (participant, currency) position.
type BalanceEntry struct {
	Name     string   `json:"name"`
	Currency Currency `json:"currency"`
	Amount   int64    `json:"amount"`
}

// LedgerView is the presentation projection of a Ledger: amounts rounded
// half-up to whole currency units, with positions that round to zero
// reported as settled instead of +0/-0.
type LedgerView struct {
	Totals   map[Currency]int64 `json:"totals"`
	Balances []BalanceEntry     `json:"balances"`
	Settled  []BalanceEntry     `json:"settled"`
}

// RoundForDisplay rounds to whole currency units, half-up. Display only:
// the underlying ledger keeps full precision.
func RoundForDisplay(v float64) int64 {
	return decimal.NewFromFloat(v).Round(0).IntPart()
}

// BuildLedgerView rounds a ledger for presentation. Entries are ordered
// by name then currency so the output is stable across calls.
func BuildLedgerView(l Ledger) LedgerView {
	view := LedgerView{Totals: make(map[Currency]int64, len(l.Totals))}
	for ccy, total := range l.Totals {
		view.Totals[ccy] = RoundForDisplay(total)
	}

	names := make([]string, 0, len(l.Balances))
	for name := range l.Balances {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		ccys := make([]Currency, 0, len(l.Balances[name]))
		for ccy := range l.Balances[name] {
			ccys = append(ccys, ccy)
		}
		sort.Slice(ccys, func(i, j int) bool { return ccys[i] < ccys[j] })

		for _, ccy := range ccys {
			entry := BalanceEntry{Name: name, Currency: ccy, Amount: RoundForDisplay(l.Balances[name][ccy])}
			if entry.Amount == 0 {
				view.Settled = append(view.Settled, entry)
			} else {
				view.Balances = append(view.Balances, entry)
			}
		}
		// Roster members with no activity in any currency are settled
		// outright.
		if len(l.Balances[name]) == 0 {
			view.Settled = append(view.Settled, BalanceEntry{Name: name})
		}
	}
	return view
}
