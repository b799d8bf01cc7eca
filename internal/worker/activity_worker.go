// Package worker consumes trip activity events and materializes the
// activity feed rows the API serves.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/joujou-angel/Traveller2-sub000/internal/events"
	"github.com/joujou-angel/Traveller2-sub000/internal/storage"
)

type ActivityWorker struct {
	storage *storage.Repository
}

func NewActivityWorker(storage *storage.Repository) *ActivityWorker {
	return &ActivityWorker{storage: storage}
}

// HandleActivityMessage turns one event into a feed row. For expense
// events the expense is re-read so the row carries a human-readable
// detail; an expense deleted before the event is processed still
// produces a row, just without detail.
func (w *ActivityWorker) HandleActivityMessage(ctx context.Context, msg *events.TripActivityMessage) error {
	activity := storage.Activity{
		TripID:    msg.TripID,
		Actor:     msg.Actor,
		Action:    msg.Action,
		SubjectID: msg.SubjectID,
	}

	if msg.Action == events.ActionExpenseCreated {
		expense, err := w.storage.GetExpense(ctx, msg.SubjectID)
		switch {
		case errors.Is(err, storage.ErrNotFound):
			slog.WarnContext(ctx, "Expense gone before activity processed",
				"expense_id", msg.SubjectID, "trip_id", msg.TripID)
		case err != nil:
			return fmt.Errorf("load expense for activity: %w", err)
		default:
			activity.Detail = fmt.Sprintf("%s %.2f %s", expense.ItemName, expense.Amount, expense.Currency)
		}
	}

	if err := w.storage.InsertActivity(ctx, activity); err != nil {
		return fmt.Errorf("insert activity: %w", err)
	}

	slog.InfoContext(ctx, "Activity recorded",
		"trip_id", msg.TripID,
		"action", msg.Action,
		"subject_id", msg.SubjectID)
	return nil
}
