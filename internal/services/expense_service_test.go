package services

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/joujou-angel/Traveller2-sub000/internal/core"
	"github.com/joujou-angel/Traveller2-sub000/internal/events"
)

type fakeStore struct {
	created []core.Expense
	deleted []string
	err     error
}

func (f *fakeStore) CreateExpense(_ context.Context, _ string, e core.Expense) (core.Expense, error) {
	if f.err != nil {
		return core.Expense{}, f.err
	}
	e.ID = "exp-1"
	f.created = append(f.created, e)
	return e, nil
}

func (f *fakeStore) DeleteExpense(_ context.Context, _, _, expenseID string) error {
	if f.err != nil {
		return f.err
	}
	f.deleted = append(f.deleted, expenseID)
	return nil
}

type fakePublisher struct {
	published []*events.TripActivityMessage
	err       error
}

func (f *fakePublisher) PublishActivity(_ context.Context, msg *events.TripActivityMessage) error {
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, msg)
	return nil
}

func validExpense() core.Expense {
	return core.Expense{
		TripID:      "trip-1",
		ItemName:    "night market",
		Amount:      300,
		Currency:    core.TWD,
		Payer:       "A",
		SplitDetail: map[string]float64{"A": 100, "B": 100, "C": 100},
	}
}

func TestCreateExpensePublishesActivity(t *testing.T) {
	store := &fakeStore{}
	pub := &fakePublisher{}
	svc := NewExpenseService(store, pub)

	saved, err := svc.CreateExpense(context.Background(), "user-1", validExpense())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if saved.ID != "exp-1" {
		t.Fatalf("saved.ID = %q", saved.ID)
	}
	if len(pub.published) != 1 {
		t.Fatalf("published %d events, want 1", len(pub.published))
	}
	if got := pub.published[0]; got.Action != events.ActionExpenseCreated || got.SubjectID != "exp-1" {
		t.Fatalf("event = %+v", got)
	}
}

func TestCreateExpenseSurvivesPublishFailure(t *testing.T) {
	store := &fakeStore{}
	svc := NewExpenseService(store, &fakePublisher{err: errors.New("broker down")})

	if _, err := svc.CreateExpense(context.Background(), "user-1", validExpense()); err != nil {
		t.Fatalf("publish failure must not fail the request: %v", err)
	}
	if len(store.created) != 1 {
		t.Fatalf("expense not stored")
	}
}

func TestCreateExpenseNilPublisher(t *testing.T) {
	store := &fakeStore{}
	svc := NewExpenseService(store, nil)

	if _, err := svc.CreateExpense(context.Background(), "user-1", validExpense()); err != nil {
		t.Fatalf("unexpected error with nil publisher: %v", err)
	}
}

func TestCreateExpenseRejectsInvalid(t *testing.T) {
	svc := NewExpenseService(&fakeStore{}, nil)
	bad := validExpense()
	bad.Amount = 0

	if _, err := svc.CreateExpense(context.Background(), "user-1", bad); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestDeleteExpensePublishesActivity(t *testing.T) {
	store := &fakeStore{}
	pub := &fakePublisher{}
	svc := NewExpenseService(store, pub)

	if err := svc.DeleteExpense(context.Background(), "trip-1", "user-1", "exp-9"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(store.deleted) != 1 || store.deleted[0] != "exp-9" {
		t.Fatalf("deleted = %v", store.deleted)
	}
	if len(pub.published) != 1 || pub.published[0].Action != events.ActionExpenseDeleted {
		t.Fatalf("events = %+v", pub.published)
	}
}

func TestNormalizeExpense(t *testing.T) {
	e := core.Expense{
		ItemName: "  taxi ",
		Payer:    " A ",
		SplitDetail: map[string]float64{
			" B ": 50,
			"  ":  10,
			"C":   math.NaN(),
		},
	}
	got := NormalizeExpense(e)

	if got.ItemName != "taxi" || got.Payer != "A" {
		t.Fatalf("names not trimmed: %+v", got)
	}
	if _, ok := got.SplitDetail["B"]; !ok {
		t.Fatalf("share key not trimmed: %v", got.SplitDetail)
	}
	if len(got.SplitDetail) != 2 {
		t.Fatalf("blank share key not dropped: %v", got.SplitDetail)
	}
	if got.SplitDetail["C"] != 0 {
		t.Fatalf("NaN share not coerced: %v", got.SplitDetail["C"])
	}
}
