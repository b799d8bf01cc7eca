package http

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/joujou-angel/Traveller2-sub000/internal/core"
	"github.com/joujou-angel/Traveller2-sub000/internal/events"
)

type tripRequest struct {
	Name        string  `json:"name"`
	Destination string  `json:"destination"`
	Lat         float64 `json:"lat"`
	Lon         float64 `json:"lon"`
	StartDate   string  `json:"start_date"`
	EndDate     string  `json:"end_date"`
}

type tripResponse struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Destination string  `json:"destination"`
	Lat         float64 `json:"lat"`
	Lon         float64 `json:"lon"`
	StartDate   string  `json:"start_date"`
	EndDate     string  `json:"end_date"`
	OwnerID     string  `json:"owner_id"`
}

func toTripResponse(t core.Trip) tripResponse {
	return tripResponse{
		ID:          t.ID,
		Name:        t.Name,
		Destination: t.Destination,
		Lat:         t.Lat,
		Lon:         t.Lon,
		StartDate:   t.Range.Start.ISO(),
		EndDate:     t.Range.End.ISO(),
		OwnerID:     t.OwnerID,
	}
}

func (s *Server) handleCreateTrip(w http.ResponseWriter, r *http.Request) {
	var req tripRequest
	if !decodeBody(w, r, &req) {
		return
	}

	start, err := core.ParseDate(req.StartDate)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, codeInvalidRequest, "start_date must be yyyy-mm-dd")
		return
	}
	end, err := core.ParseDate(req.EndDate)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, codeInvalidRequest, "end_date must be yyyy-mm-dd")
		return
	}

	trip := core.Trip{
		ID:          uuid.NewString(),
		Name:        strings.TrimSpace(req.Name),
		Destination: strings.TrimSpace(req.Destination),
		Lat:         req.Lat,
		Lon:         req.Lon,
		Range:       core.DateRange{Start: start, End: end},
		OwnerID:     requestUserID(r),
		CreatedAt:   time.Now().UTC(),
	}
	if err := trip.Validate(); err != nil {
		writeError(w, http.StatusUnprocessableEntity, codeInvalidRequest, err.Error())
		return
	}

	saved, err := s.store.CreateTrip(r.Context(), trip)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toTripResponse(saved))
}

func (s *Server) handleListTrips(w http.ResponseWriter, r *http.Request) {
	trips, err := s.store.ListTrips(r.Context(), requestUserID(r))
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	out := make([]tripResponse, 0, len(trips))
	for _, t := range trips {
		out = append(out, toTripResponse(t))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetTrip(w http.ResponseWriter, r *http.Request) {
	trip, err := s.store.GetTrip(r.Context(), mux.Vars(r)["tripId"], requestUserID(r))
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toTripResponse(trip))
}

func (s *Server) handleDeleteTrip(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteTrip(r.Context(), mux.Vars(r)["tripId"], requestUserID(r)); err != nil {
		writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

type destinationRequest struct {
	Destination string  `json:"destination"`
	Lat         float64 `json:"lat"`
	Lon         float64 `json:"lon"`
}

func (s *Server) handleSetDestination(w http.ResponseWriter, r *http.Request) {
	var req destinationRequest
	if !decodeBody(w, r, &req) {
		return
	}
	req.Destination = strings.TrimSpace(req.Destination)
	if req.Destination == "" {
		writeError(w, http.StatusUnprocessableEntity, codeInvalidRequest, "destination is required")
		return
	}

	// Resolve coordinates server-side when the client sends none.
	if req.Lat == 0 && req.Lon == 0 && s.geocoder != nil {
		if loc, err := s.geocoder.Geocode(r.Context(), req.Destination, ""); err == nil {
			req.Lat = loc.Lat
			req.Lon = loc.Lon
		}
	}

	err := s.store.UpdateTripDestination(r.Context(), mux.Vars(r)["tripId"], requestUserID(r), req.Destination, req.Lat, req.Lon)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"destination": req.Destination,
		"lat":         req.Lat,
		"lon":         req.Lon,
	})
}

type addMemberRequest struct {
	UserID string `json:"user_id"`
}

func (s *Server) handleAddMember(w http.ResponseWriter, r *http.Request) {
	var req addMemberRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.UserID) == "" {
		writeError(w, http.StatusUnprocessableEntity, codeInvalidRequest, "user_id is required")
		return
	}
	tripID := mux.Vars(r)["tripId"]
	if err := s.store.AddMember(r.Context(), tripID, requestUserID(r), req.UserID); err != nil {
		writeStoreError(w, r, err)
		return
	}
	s.expenses.Publish(r.Context(), events.NewTripActivityMessage(tripID, events.ActionMemberJoined, req.UserID, requestUserID(r)))
	writeJSON(w, http.StatusCreated, map[string]string{"user_id": req.UserID})
}

type participantRequest struct {
	DisplayName string `json:"display_name"`
}

type participantResponse struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

func (s *Server) handleAddParticipant(w http.ResponseWriter, r *http.Request) {
	var req participantRequest
	if !decodeBody(w, r, &req) {
		return
	}

	p := core.Participant{
		ID:          uuid.NewString(),
		TripID:      mux.Vars(r)["tripId"],
		DisplayName: strings.TrimSpace(req.DisplayName),
		JoinedAt:    time.Now().UTC(),
	}
	if err := p.Validate(); err != nil {
		writeError(w, http.StatusUnprocessableEntity, codeInvalidRequest, err.Error())
		return
	}

	saved, err := s.store.AddParticipant(r.Context(), requestUserID(r), p)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, participantResponse{ID: saved.ID, DisplayName: saved.DisplayName})
}

func (s *Server) handleListParticipants(w http.ResponseWriter, r *http.Request) {
	participants, err := s.store.ListParticipants(r.Context(), mux.Vars(r)["tripId"], requestUserID(r))
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	out := make([]participantResponse, 0, len(participants))
	for _, p := range participants {
		out = append(out, participantResponse{ID: p.ID, DisplayName: p.DisplayName})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleRemoveParticipant(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	if err := s.store.RemoveParticipant(r.Context(), vars["tripId"], requestUserID(r), vars["participantId"]); err != nil {
		writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

type activityResponse struct {
	Action    string    `json:"action"`
	SubjectID string    `json:"subject_id"`
	Actor     string    `json:"actor"`
	Detail    string    `json:"detail,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

func (s *Server) handleListActivity(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 200 {
			writeError(w, http.StatusBadRequest, codeInvalidRequest, "limit must be between 1 and 200")
			return
		}
		limit = n
	}

	entries, err := s.store.ListActivity(r.Context(), mux.Vars(r)["tripId"], requestUserID(r), limit)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	out := make([]activityResponse, 0, len(entries))
	for _, a := range entries {
		out = append(out, activityResponse{
			Action:    a.Action,
			SubjectID: a.SubjectID,
			Actor:     a.Actor,
			Detail:    a.Detail,
			Timestamp: a.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, out)
}
