package http

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/joujou-angel/Traveller2-sub000/internal/core"
)

type expenseRequest struct {
	ItemName    string             `json:"item_name"`
	Amount      float64            `json:"amount"`
	Currency    string             `json:"currency"`
	Payer       string             `json:"payer"`
	SplitDetail map[string]float64 `json:"split_detail"`
}

type expenseResponse struct {
	ID          string             `json:"id"`
	ItemName    string             `json:"item_name"`
	Amount      float64            `json:"amount"`
	Currency    string             `json:"currency"`
	Payer       string             `json:"payer"`
	SplitDetail map[string]float64 `json:"split_detail"`
	CreatedAt   time.Time          `json:"created_at"`
}

func toExpenseResponse(e core.Expense) expenseResponse {
	return expenseResponse{
		ID:          e.ID,
		ItemName:    e.ItemName,
		Amount:      e.Amount,
		Currency:    string(e.Currency),
		Payer:       e.Payer,
		SplitDetail: e.SplitDetail,
		CreatedAt:   e.CreatedAt,
	}
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	var req expenseRequest
	if !decodeBody(w, r, &req) {
		return
	}

	expense := core.Expense{
		ID:          uuid.NewString(),
		TripID:      mux.Vars(r)["tripId"],
		CreatedAt:   time.Now().UTC(),
		ItemName:    req.ItemName,
		Amount:      req.Amount,
		Currency:    core.Currency(req.Currency),
		Payer:       req.Payer,
		SplitDetail: req.SplitDetail,
	}

	saved, err := s.expenses.CreateExpense(r.Context(), requestUserID(r), expense)
	if err != nil {
		if isValidationError(err) {
			writeError(w, http.StatusUnprocessableEntity, codeInvalidRequest, err.Error())
			return
		}
		writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toExpenseResponse(saved))
}

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	expenses, err := s.store.ListExpenses(r.Context(), mux.Vars(r)["tripId"], requestUserID(r))
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	out := make([]expenseResponse, 0, len(expenses))
	for _, e := range expenses {
		out = append(out, toExpenseResponse(e))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	if err := s.expenses.DeleteExpense(r.Context(), vars["tripId"], requestUserID(r), vars["expenseId"]); err != nil {
		writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

// handleLedger recomputes the trip ledger from all expense rows. The
// computation is cheap enough that no persisted aggregate is kept.
func (s *Server) handleLedger(w http.ResponseWriter, r *http.Request) {
	tripID := mux.Vars(r)["tripId"]
	userID := requestUserID(r)

	expenses, err := s.store.ListExpenses(r.Context(), tripID, userID)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	participants, err := s.store.ListParticipants(r.Context(), tripID, userID)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}

	roster := make([]string, 0, len(participants))
	for _, p := range participants {
		roster = append(roster, p.DisplayName)
	}

	view := core.BuildLedgerView(core.ComputeLedger(expenses, roster))
	writeJSON(w, http.StatusOK, view)
}
