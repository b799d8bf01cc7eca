package http

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/joujou-angel/Traveller2-sub000/internal/core"
	"github.com/joujou-angel/Traveller2-sub000/internal/weather"
)

type weatherResponse struct {
	Destination string            `json:"destination"`
	Segments    []weather.Segment `json:"segments"`
}

// handleTripWeather serves the combined forecast/historical strip for a
// trip. A destination without coordinates is a client-fixable state and
// gets its own error code; upstream outages degrade to fewer segments
// rather than an error.
func (s *Server) handleTripWeather(w http.ResponseWriter, r *http.Request) {
	trip, err := s.store.GetTrip(r.Context(), mux.Vars(r)["tripId"], requestUserID(r))
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	if !trip.HasCoordinates() {
		writeError(w, http.StatusConflict, codeConfigIncomplete, "trip destination has no coordinates; set a destination first")
		return
	}

	cacheKey := fmt.Sprintf("%s|%s|%s|%.4f|%.4f",
		trip.ID, trip.Range.Start.ISO(), trip.Range.End.ISO(), trip.Lat, trip.Lon)
	if segments, ok := s.weatherCache.Get(cacheKey); ok {
		writeJSON(w, http.StatusOK, weatherResponse{Destination: trip.Destination, Segments: segments})
		return
	}

	today := core.Date{Time: time.Now().UTC().Truncate(24 * time.Hour)}
	segments, err := s.agg.Aggregate(r.Context(), weather.Coordinates{Lat: trip.Lat, Lon: trip.Lon}, trip.Range, today)
	if err != nil {
		if errors.Is(err, weather.ErrNoCoordinates) {
			writeError(w, http.StatusConflict, codeConfigIncomplete, "trip destination has no coordinates; set a destination first")
			return
		}
		slog.ErrorContext(r.Context(), "Weather aggregation failed", "trip_id", trip.ID, "error", err)
		writeError(w, http.StatusBadGateway, codeSourceUnavailable, "weather sources unavailable")
		return
	}
	if segments == nil {
		segments = []weather.Segment{}
	}

	s.weatherCache.Set(cacheKey, segments)
	writeJSON(w, http.StatusOK, weatherResponse{Destination: trip.Destination, Segments: segments})
}

type geocodeResponse struct {
	Name    string  `json:"name"`
	Country string  `json:"country,omitempty"`
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
}

func (s *Server) handleGeocode(w http.ResponseWriter, r *http.Request) {
	place := strings.TrimSpace(r.URL.Query().Get("place"))
	if place == "" {
		writeError(w, http.StatusBadRequest, codeInvalidRequest, "place query parameter is required")
		return
	}
	lang := strings.TrimSpace(r.URL.Query().Get("lang"))

	cacheKey := place + "|" + lang
	if loc, ok := s.geocodeCache.Get(cacheKey); ok {
		writeJSON(w, http.StatusOK, geocodeResponse{Name: loc.Name, Country: loc.Country, Lat: loc.Lat, Lon: loc.Lon})
		return
	}

	loc, err := s.geocoder.Geocode(r.Context(), place, lang)
	if err != nil {
		if errors.Is(err, weather.ErrNoResults) {
			writeError(w, http.StatusNotFound, codeNotFound, "no location matched the given place")
			return
		}
		slog.ErrorContext(r.Context(), "Geocoding failed", "place", place, "error", err)
		writeError(w, http.StatusBadGateway, codeSourceUnavailable, "geocoding source unavailable")
		return
	}

	s.geocodeCache.Set(cacheKey, loc)
	writeJSON(w, http.StatusOK, geocodeResponse{Name: loc.Name, Country: loc.Country, Lat: loc.Lat, Lon: loc.Lon})
}
