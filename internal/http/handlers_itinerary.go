package http

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/joujou-angel/Traveller2-sub000/internal/core"
)

type itineraryItemRequest struct {
	Date      string `json:"date"`
	StartTime string `json:"start_time"`
	Title     string `json:"title"`
	Place     string `json:"place"`
	Note      string `json:"note"`
}

type itineraryItemResponse struct {
	ID        string `json:"id"`
	Date      string `json:"date"`
	StartTime string `json:"start_time,omitempty"`
	Title     string `json:"title"`
	Place     string `json:"place,omitempty"`
	Note      string `json:"note,omitempty"`
}

type itineraryDayResponse struct {
	Date  string                  `json:"date"`
	Items []itineraryItemResponse `json:"items"`
}

func toItineraryItemResponse(it core.ItineraryItem) itineraryItemResponse {
	return itineraryItemResponse{
		ID:        it.ID,
		Date:      it.Date.ISO(),
		StartTime: it.StartTime,
		Title:     it.Title,
		Place:     it.Place,
		Note:      it.Note,
	}
}

func (s *Server) handleCreateItineraryItem(w http.ResponseWriter, r *http.Request) {
	var req itineraryItemRequest
	if !decodeBody(w, r, &req) {
		return
	}

	date, err := core.ParseDate(req.Date)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, codeInvalidRequest, "date must be yyyy-mm-dd")
		return
	}

	item := core.ItineraryItem{
		ID:        uuid.NewString(),
		TripID:    mux.Vars(r)["tripId"],
		Date:      date,
		StartTime: strings.TrimSpace(req.StartTime),
		Title:     strings.TrimSpace(req.Title),
		Place:     strings.TrimSpace(req.Place),
		Note:      strings.TrimSpace(req.Note),
	}
	if err := item.Validate(); err != nil {
		writeError(w, http.StatusUnprocessableEntity, codeInvalidRequest, err.Error())
		return
	}

	saved, err := s.store.CreateItineraryItem(r.Context(), requestUserID(r), item)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toItineraryItemResponse(saved))
}

// handleListItinerary returns one day entry per date in the trip range,
// empty days included, so clients can render the full day-tab strip.
func (s *Server) handleListItinerary(w http.ResponseWriter, r *http.Request) {
	tripID := mux.Vars(r)["tripId"]
	userID := requestUserID(r)

	trip, err := s.store.GetTrip(r.Context(), tripID, userID)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	items, err := s.store.ListItinerary(r.Context(), tripID, userID)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}

	byDate := make(map[string][]itineraryItemResponse)
	for _, it := range items {
		key := it.Date.ISO()
		byDate[key] = append(byDate[key], toItineraryItemResponse(it))
	}

	days := make([]itineraryDayResponse, 0, trip.Range.Days())
	for _, d := range trip.Range.Dates() {
		key := d.ISO()
		items := byDate[key]
		if items == nil {
			items = []itineraryItemResponse{}
		}
		days = append(days, itineraryDayResponse{Date: key, Items: items})
	}
	writeJSON(w, http.StatusOK, days)
}

type memoryRequest struct {
	Body string `json:"body"`
}

type memoryResponse struct {
	ID        string    `json:"id"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

func (s *Server) handleCreateMemory(w http.ResponseWriter, r *http.Request) {
	var req memoryRequest
	if !decodeBody(w, r, &req) {
		return
	}

	memory := core.Memory{
		ID:              uuid.NewString(),
		ItineraryItemID: mux.Vars(r)["itemId"],
		AuthorID:        requestUserID(r),
		Body:            strings.TrimSpace(req.Body),
		CreatedAt:       time.Now().UTC(),
	}
	if err := memory.Validate(); err != nil {
		writeError(w, http.StatusUnprocessableEntity, codeInvalidRequest, err.Error())
		return
	}

	saved, err := s.store.CreateMemory(r.Context(), memory)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, memoryResponse{ID: saved.ID, Body: saved.Body, CreatedAt: saved.CreatedAt})
}

func (s *Server) handleListMemories(w http.ResponseWriter, r *http.Request) {
	memories, err := s.store.ListMemories(r.Context(), mux.Vars(r)["itemId"], requestUserID(r))
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	out := make([]memoryResponse, 0, len(memories))
	for _, m := range memories {
		out = append(out, memoryResponse{ID: m.ID, Body: m.Body, CreatedAt: m.CreatedAt})
	}
	writeJSON(w, http.StatusOK, out)
}
