// Package http exposes the trip-planning REST API.
package http

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"

	"github.com/joujou-angel/Traveller2-sub000/internal/cache"
	"github.com/joujou-angel/Traveller2-sub000/internal/core"
	"github.com/joujou-angel/Traveller2-sub000/internal/services"
	"github.com/joujou-angel/Traveller2-sub000/internal/storage"
	"github.com/joujou-angel/Traveller2-sub000/internal/weather"
)

// Store is the persistence surface the handlers consume.
type Store interface {
	CreateUser(ctx context.Context, u core.User) (core.User, error)
	GetUserByEmail(ctx context.Context, email string) (core.User, error)

	CreateTrip(ctx context.Context, t core.Trip) (core.Trip, error)
	GetTrip(ctx context.Context, tripID, userID string) (core.Trip, error)
	ListTrips(ctx context.Context, userID string) ([]core.Trip, error)
	UpdateTripDestination(ctx context.Context, tripID, userID, destination string, lat, lon float64) error
	DeleteTrip(ctx context.Context, tripID, userID string) error
	AddMember(ctx context.Context, tripID, userID, newMemberID string) error

	AddParticipant(ctx context.Context, userID string, p core.Participant) (core.Participant, error)
	RemoveParticipant(ctx context.Context, tripID, userID, participantID string) error
	ListParticipants(ctx context.Context, tripID, userID string) ([]core.Participant, error)

	ListExpenses(ctx context.Context, tripID, userID string) ([]core.Expense, error)

	CreateItineraryItem(ctx context.Context, userID string, it core.ItineraryItem) (core.ItineraryItem, error)
	ListItinerary(ctx context.Context, tripID, userID string) ([]core.ItineraryItem, error)

	CreateMemory(ctx context.Context, m core.Memory) (core.Memory, error)
	ListMemories(ctx context.Context, itemID, authorID string) ([]core.Memory, error)

	ListActivity(ctx context.Context, tripID, userID string, limit int) ([]storage.Activity, error)
}

// Options tunes the server beyond its collaborators.
type Options struct {
	JWTSecret       string
	TokenTTL        time.Duration
	WeatherCacheTTL time.Duration
	GeocodeCacheTTL time.Duration
}

type Server struct {
	http.Server
	store    Store
	expenses *services.ExpenseService
	agg      *weather.Aggregator
	geocoder *weather.Geocoder
	opts     Options

	rateLimiter *rateLimiter

	weatherCache *cache.LRU[[]weather.Segment]
	geocodeCache *cache.LRU[weather.Location]

	stopCacheCleanup chan struct{}
	shutdownOnce     sync.Once
}

// NewServer wires routes, middleware, and the derived-view caches.
func NewServer(addr string, store Store, expenses *services.ExpenseService, agg *weather.Aggregator, geocoder *weather.Geocoder, opts Options) *Server {
	if opts.TokenTTL <= 0 {
		opts.TokenTTL = 72 * time.Hour
	}
	if opts.WeatherCacheTTL <= 0 {
		opts.WeatherCacheTTL = time.Hour
	}
	if opts.GeocodeCacheTTL <= 0 {
		opts.GeocodeCacheTTL = 30 * 24 * time.Hour
	}

	s := &Server{
		store:            store,
		expenses:         expenses,
		agg:              agg,
		geocoder:         geocoder,
		opts:             opts,
		rateLimiter:      newRateLimiter(),
		weatherCache:     cache.NewLRU[[]weather.Segment](200, opts.WeatherCacheTTL),
		geocodeCache:     cache.NewLRU[weather.Location](500, opts.GeocodeCacheTTL),
		stopCacheCleanup: make(chan struct{}),
	}

	router := mux.NewRouter()
	router.Use(s.withRequestLogging)

	router.HandleFunc("/healthz", handleHealth).Methods(http.MethodGet)
	router.HandleFunc("/readyz", handleReady).Methods(http.MethodGet)
	router.HandleFunc("/api/register", s.handleRegister).Methods(http.MethodPost)
	router.HandleFunc("/api/login", s.handleLogin).Methods(http.MethodPost)

	api := router.PathPrefix("/api").Subrouter()
	api.Use(s.jwtAuth)

	api.HandleFunc("/trips", s.handleCreateTrip).Methods(http.MethodPost)
	api.HandleFunc("/trips", s.handleListTrips).Methods(http.MethodGet)
	api.HandleFunc("/trips/{tripId}", s.handleGetTrip).Methods(http.MethodGet)
	api.HandleFunc("/trips/{tripId}", s.handleDeleteTrip).Methods(http.MethodDelete)
	api.HandleFunc("/trips/{tripId}/destination", s.handleSetDestination).Methods(http.MethodPut)
	api.HandleFunc("/trips/{tripId}/members", s.handleAddMember).Methods(http.MethodPost)
	api.HandleFunc("/trips/{tripId}/activity", s.handleListActivity).Methods(http.MethodGet)

	api.HandleFunc("/trips/{tripId}/participants", s.handleAddParticipant).Methods(http.MethodPost)
	api.HandleFunc("/trips/{tripId}/participants", s.handleListParticipants).Methods(http.MethodGet)
	api.HandleFunc("/trips/{tripId}/participants/{participantId}", s.handleRemoveParticipant).Methods(http.MethodDelete)

	api.HandleFunc("/trips/{tripId}/expenses", s.handleCreateExpense).Methods(http.MethodPost)
	api.HandleFunc("/trips/{tripId}/expenses", s.handleListExpenses).Methods(http.MethodGet)
	api.HandleFunc("/trips/{tripId}/expenses/{expenseId}", s.handleDeleteExpense).Methods(http.MethodDelete)
	api.HandleFunc("/trips/{tripId}/ledger", s.handleLedger).Methods(http.MethodGet)

	api.HandleFunc("/trips/{tripId}/itinerary", s.handleCreateItineraryItem).Methods(http.MethodPost)
	api.HandleFunc("/trips/{tripId}/itinerary", s.handleListItinerary).Methods(http.MethodGet)

	api.HandleFunc("/itinerary/{itemId}/memories", s.handleCreateMemory).Methods(http.MethodPost)
	api.HandleFunc("/itinerary/{itemId}/memories", s.handleListMemories).Methods(http.MethodGet)

	api.HandleFunc("/trips/{tripId}/weather", s.handleTripWeather).Methods(http.MethodGet)
	api.HandleFunc("/geocode", s.handleGeocode).Methods(http.MethodGet)

	s.Server = http.Server{Addr: addr, Handler: router}

	go s.startCacheCleanup()

	return s
}

func (s *Server) startCacheCleanup() {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			weatherCleaned := s.weatherCache.CleanExpired()
			geocodeCleaned := s.geocodeCache.CleanExpired()
			if weatherCleaned > 0 || geocodeCleaned > 0 {
				slog.Debug("Cache cleanup completed",
					"weather_entries_removed", weatherCleaned,
					"geocode_entries_removed", geocodeCleaned)
			}
		case <-s.stopCacheCleanup:
			return
		}
	}
}

// Shutdown stops the cleanup goroutines before shutting down the
// listener.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		if s.stopCacheCleanup != nil {
			close(s.stopCacheCleanup)
		}
		if s.rateLimiter != nil {
			s.rateLimiter.stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// withRequestLogging tags each request with an ID, applies security
// headers and rate limiting, and logs start/completion.
func (s *Server) withRequestLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		clientIP := r.Header.Get("X-Forwarded-For")
		if clientIP == "" {
			clientIP = r.Header.Get("X-Real-IP")
		}
		if clientIP == "" {
			clientIP = r.RemoteAddr
		}

		requestID := generateRequestID()
		ctx := context.WithValue(r.Context(), requestIDKey, requestID)
		r = r.WithContext(ctx)

		slog.InfoContext(ctx, "Request started",
			"request_id", requestID,
			"method", r.Method,
			"url", r.URL.Path,
			"client_ip", clientIP)

		if isMutation(r.Method) && !s.rateLimiter.allow(clientIP) {
			slog.WarnContext(ctx, "Rate limit exceeded", "client_ip", clientIP, "method", r.Method, "url", r.URL.Path)
			w.Header().Set("Retry-After", "60")
			writeError(w, http.StatusTooManyRequests, codeRateLimited, "rate limit exceeded, try again later")
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rw, r)

		slog.InfoContext(ctx, "Request completed",
			"request_id", requestID,
			"method", r.Method,
			"url", r.URL.Path,
			"status", rw.statusCode,
			"duration_ms", time.Since(start).Milliseconds())
	})
}

func isMutation(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func generateRequestID() string {
	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		return fmt.Sprintf("req_%d", time.Now().UnixNano())
	}
	return "req_" + hex.EncodeToString(bytes)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

// Simple per-IP rate limiter for mutating requests.
type rateLimiter struct {
	mu           sync.Mutex
	clients      map[string]*clientInfo
	stopCleanup  chan struct{}
	shutdownOnce sync.Once
}

type clientInfo struct {
	lastRequest time.Time
	requests    int
}

func newRateLimiter() *rateLimiter {
	rl := &rateLimiter{
		clients:     make(map[string]*clientInfo),
		stopCleanup: make(chan struct{}),
	}
	go rl.startCleanup()
	return rl
}

func (rl *rateLimiter) startCleanup() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.cleanupStaleEntries()
		case <-rl.stopCleanup:
			return
		}
	}
}

func (rl *rateLimiter) cleanupStaleEntries() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := time.Now().Add(-10 * time.Minute)
	for ip, client := range rl.clients {
		if client.lastRequest.Before(cutoff) {
			delete(rl.clients, ip)
		}
	}
}

func (rl *rateLimiter) stop() {
	rl.shutdownOnce.Do(func() {
		if rl.stopCleanup != nil {
			close(rl.stopCleanup)
		}
	})
}

func (rl *rateLimiter) allow(clientIP string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	client, exists := rl.clients[clientIP]

	if !exists {
		rl.clients[clientIP] = &clientInfo{lastRequest: now, requests: 1}
		return true
	}

	if now.Sub(client.lastRequest) > time.Minute {
		client.requests = 1
		client.lastRequest = now
		return true
	}

	client.requests++
	client.lastRequest = now

	return client.requests <= 60
}
