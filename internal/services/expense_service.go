// Package services orchestrates writes across storage and the activity
// event stream. Storage is the source of truth; events are best-effort.
package services

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/joujou-angel/Traveller2-sub000/internal/core"
	"github.com/joujou-angel/Traveller2-sub000/internal/events"
)

// ExpenseStore is the slice of the repository the service needs.
type ExpenseStore interface {
	CreateExpense(ctx context.Context, userID string, e core.Expense) (core.Expense, error)
	DeleteExpense(ctx context.Context, tripID, userID, expenseID string) error
}

// ActivityPublisher publishes trip activity. May be absent.
type ActivityPublisher interface {
	PublishActivity(ctx context.Context, msg *events.TripActivityMessage) error
}

type ExpenseService struct {
	store     ExpenseStore
	publisher ActivityPublisher
}

func NewExpenseService(store ExpenseStore, publisher ActivityPublisher) *ExpenseService {
	return &ExpenseService{store: store, publisher: publisher}
}

// CreateExpense normalizes the row at the boundary, persists it, and
// publishes an activity event. A publish failure never fails the
// request: the expense is already saved.
func (s *ExpenseService) CreateExpense(ctx context.Context, userID string, e core.Expense) (core.Expense, error) {
	e = NormalizeExpense(e)
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}

	saved, err := s.store.CreateExpense(ctx, userID, e)
	if err != nil {
		return core.Expense{}, fmt.Errorf("save expense: %w", err)
	}

	s.Publish(ctx, events.NewTripActivityMessage(saved.TripID, events.ActionExpenseCreated, saved.ID, userID))
	return saved, nil
}

// DeleteExpense removes the expense and publishes an activity event.
func (s *ExpenseService) DeleteExpense(ctx context.Context, tripID, userID, expenseID string) error {
	if err := s.store.DeleteExpense(ctx, tripID, userID, expenseID); err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}

	s.Publish(ctx, events.NewTripActivityMessage(tripID, events.ActionExpenseDeleted, expenseID, userID))
	return nil
}

// Publish sends an activity event, tolerating a missing or failing
// publisher. Also used for writes that happen outside this service,
// such as membership changes.
func (s *ExpenseService) Publish(ctx context.Context, msg *events.TripActivityMessage) {
	if s.publisher == nil {
		slog.DebugContext(ctx, "Activity publisher not configured, skipping event",
			"trip_id", msg.TripID, "action", msg.Action)
		return
	}
	if err := s.publisher.PublishActivity(ctx, msg); err != nil {
		slog.ErrorContext(ctx, "Failed to publish activity event",
			"trip_id", msg.TripID, "action", msg.Action, "error", err)
	}
}

// NormalizeExpense canonicalizes names and coerces malformed share
// values once, at ingestion. Name matching inside the ledger is exact;
// this is the single place where trimming happens.
func NormalizeExpense(e core.Expense) core.Expense {
	e.ItemName = strings.TrimSpace(e.ItemName)
	e.Payer = strings.TrimSpace(e.Payer)

	if e.SplitDetail == nil {
		return e
	}
	split := make(map[string]float64, len(e.SplitDetail))
	for name, share := range e.SplitDetail {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if math.IsNaN(share) || math.IsInf(share, 0) {
			share = 0
		}
		split[name] = share
	}
	e.SplitDetail = split
	return e
}
