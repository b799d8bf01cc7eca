// Package storage implements the persistence layer on SQLite. Access
// rules mirror the hosted-database row policies the API depends on:
// trip data is readable only by trip members, memories only by their
// author, both enforced in the queries themselves.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/joujou-angel/Traveller2-sub000/internal/core"

	_ "modernc.org/sqlite"
)

var (
	ErrNotFound  = errors.New("not found")
	ErrNotMember = errors.New("not a trip member")
)

type Repository struct {
	db *sql.DB
}

func NewRepository(dbPath string) (*Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Repository{db: db}, nil
}

func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// --- users ---

func (r *Repository) CreateUser(ctx context.Context, u core.User) (core.User, error) {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	u.CreatedAt = time.Now().UTC()
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (id, email, display_name, password_hash, created_at) VALUES (?, ?, ?, ?, ?)`,
		u.ID, u.Email, u.DisplayName, u.PasswordHash, u.CreatedAt)
	if err != nil {
		return core.User{}, fmt.Errorf("create user: %w", err)
	}
	return u, nil
}

func (r *Repository) GetUserByEmail(ctx context.Context, email string) (core.User, error) {
	var u core.User
	err := r.db.QueryRowContext(ctx,
		`SELECT id, email, display_name, password_hash, created_at FROM users WHERE email = ?`, email).
		Scan(&u.ID, &u.Email, &u.DisplayName, &u.PasswordHash, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return core.User{}, ErrNotFound
	}
	if err != nil {
		return core.User{}, fmt.Errorf("get user by email: %w", err)
	}
	return u, nil
}

// --- trips ---

func (r *Repository) CreateTrip(ctx context.Context, t core.Trip) (core.Trip, error) {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	t.CreatedAt = time.Now().UTC()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return core.Trip{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO trips (id, name, destination, lat, lon, start_date, end_date, owner_id, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.Name, t.Destination, t.Lat, t.Lon, t.Range.Start.ISO(), t.Range.End.ISO(), t.OwnerID, t.CreatedAt)
	if err != nil {
		return core.Trip{}, fmt.Errorf("create trip: %w", err)
	}

	// The owner is always a member of their own trip.
	_, err = tx.ExecContext(ctx,
		`INSERT INTO trip_members (trip_id, user_id) VALUES (?, ?)`, t.ID, t.OwnerID)
	if err != nil {
		return core.Trip{}, fmt.Errorf("add owner membership: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return core.Trip{}, fmt.Errorf("commit trip: %w", err)
	}

	slog.InfoContext(ctx, "Trip created", "id", t.ID, "name", t.Name, "owner", t.OwnerID)
	return t, nil
}

func (r *Repository) GetTrip(ctx context.Context, tripID, userID string) (core.Trip, error) {
	var (
		t          core.Trip
		start, end string
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT t.id, t.name, t.destination, t.lat, t.lon, t.start_date, t.end_date, t.owner_id, t.created_at
		 FROM trips t
		 JOIN trip_members m ON m.trip_id = t.id AND m.user_id = ?
		 WHERE t.id = ?`, userID, tripID).
		Scan(&t.ID, &t.Name, &t.Destination, &t.Lat, &t.Lon, &start, &end, &t.OwnerID, &t.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Trip{}, ErrNotFound
	}
	if err != nil {
		return core.Trip{}, fmt.Errorf("get trip: %w", err)
	}
	if t.Range.Start, err = core.ParseDate(start); err != nil {
		return core.Trip{}, fmt.Errorf("parse trip start date: %w", err)
	}
	if t.Range.End, err = core.ParseDate(end); err != nil {
		return core.Trip{}, fmt.Errorf("parse trip end date: %w", err)
	}
	return t, nil
}

func (r *Repository) ListTrips(ctx context.Context, userID string) ([]core.Trip, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT t.id, t.name, t.destination, t.lat, t.lon, t.start_date, t.end_date, t.owner_id, t.created_at
		 FROM trips t
		 JOIN trip_members m ON m.trip_id = t.id
		 WHERE m.user_id = ?
		 ORDER BY t.start_date`, userID)
	if err != nil {
		return nil, fmt.Errorf("list trips: %w", err)
	}
	defer rows.Close()

	var trips []core.Trip
	for rows.Next() {
		var (
			t          core.Trip
			start, end string
		)
		if err := rows.Scan(&t.ID, &t.Name, &t.Destination, &t.Lat, &t.Lon, &start, &end, &t.OwnerID, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan trip: %w", err)
		}
		if t.Range.Start, err = core.ParseDate(start); err != nil {
			return nil, fmt.Errorf("parse trip start date: %w", err)
		}
		if t.Range.End, err = core.ParseDate(end); err != nil {
			return nil, fmt.Errorf("parse trip end date: %w", err)
		}
		trips = append(trips, t)
	}
	return trips, rows.Err()
}

// UpdateTripDestination stores the geocoded destination.
func (r *Repository) UpdateTripDestination(ctx context.Context, tripID, userID, destination string, lat, lon float64) error {
	if err := r.requireMember(ctx, tripID, userID); err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE trips SET destination = ?, lat = ?, lon = ? WHERE id = ?`,
		destination, lat, lon, tripID)
	if err != nil {
		return fmt.Errorf("update trip destination: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteTrip removes a trip and, via cascades, everything under it.
// Only the owner may delete.
func (r *Repository) DeleteTrip(ctx context.Context, tripID, userID string) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM trips WHERE id = ? AND owner_id = ?`, tripID, userID)
	if err != nil {
		return fmt.Errorf("delete trip: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	slog.InfoContext(ctx, "Trip deleted", "id", tripID, "by", userID)
	return nil
}

// IsMember reports whether the user belongs to the trip.
func (r *Repository) IsMember(ctx context.Context, tripID, userID string) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx,
		`SELECT 1 FROM trip_members WHERE trip_id = ? AND user_id = ?`, tripID, userID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check membership: %w", err)
	}
	return true, nil
}

func (r *Repository) requireMember(ctx context.Context, tripID, userID string) error {
	ok, err := r.IsMember(ctx, tripID, userID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotMember
	}
	return nil
}

// AddMember grants a user access to the trip.
func (r *Repository) AddMember(ctx context.Context, tripID, userID, newMemberID string) error {
	if err := r.requireMember(ctx, tripID, userID); err != nil {
		return err
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO trip_members (trip_id, user_id) VALUES (?, ?)`, tripID, newMemberID)
	if err != nil {
		return fmt.Errorf("add member: %w", err)
	}
	return nil
}

// --- participants (roster display names) ---

func (r *Repository) AddParticipant(ctx context.Context, userID string, p core.Participant) (core.Participant, error) {
	if err := r.requireMember(ctx, p.TripID, userID); err != nil {
		return core.Participant{}, err
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	p.JoinedAt = time.Now().UTC()
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO participants (id, trip_id, display_name, joined_at) VALUES (?, ?, ?, ?)`,
		p.ID, p.TripID, p.DisplayName, p.JoinedAt)
	if err != nil {
		return core.Participant{}, fmt.Errorf("add participant: %w", err)
	}
	return p, nil
}

func (r *Repository) RemoveParticipant(ctx context.Context, tripID, userID, participantID string) error {
	if err := r.requireMember(ctx, tripID, userID); err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM participants WHERE id = ? AND trip_id = ?`, participantID, tripID)
	if err != nil {
		return fmt.Errorf("remove participant: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repository) ListParticipants(ctx context.Context, tripID, userID string) ([]core.Participant, error) {
	if err := r.requireMember(ctx, tripID, userID); err != nil {
		return nil, err
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, trip_id, display_name, joined_at FROM participants WHERE trip_id = ? ORDER BY joined_at`, tripID)
	if err != nil {
		return nil, fmt.Errorf("list participants: %w", err)
	}
	defer rows.Close()

	var out []core.Participant
	for rows.Next() {
		var p core.Participant
		if err := rows.Scan(&p.ID, &p.TripID, &p.DisplayName, &p.JoinedAt); err != nil {
			return nil, fmt.Errorf("scan participant: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// --- expenses ---

func (r *Repository) CreateExpense(ctx context.Context, userID string, e core.Expense) (core.Expense, error) {
	if err := r.requireMember(ctx, e.TripID, userID); err != nil {
		return core.Expense{}, err
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	e.CreatedAt = time.Now().UTC()

	split, err := json.Marshal(e.SplitDetail)
	if err != nil {
		return core.Expense{}, fmt.Errorf("marshal split detail: %w", err)
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO expenses (id, trip_id, item_name, amount, currency, payer, split_detail, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.TripID, e.ItemName, e.Amount, string(e.Currency), e.Payer, string(split), e.CreatedAt)
	if err != nil {
		return core.Expense{}, fmt.Errorf("create expense: %w", err)
	}

	slog.InfoContext(ctx, "Expense saved", "id", e.ID, "trip", e.TripID, "amount", e.Amount, "currency", e.Currency)
	return e, nil
}

func (r *Repository) GetExpense(ctx context.Context, expenseID string) (core.Expense, error) {
	var (
		e     core.Expense
		split string
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT id, trip_id, item_name, amount, currency, payer, split_detail, created_at
		 FROM expenses WHERE id = ?`, expenseID).
		Scan(&e.ID, &e.TripID, &e.ItemName, &e.Amount, &e.Currency, &e.Payer, &split, &e.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Expense{}, ErrNotFound
	}
	if err != nil {
		return core.Expense{}, fmt.Errorf("get expense: %w", err)
	}
	e.SplitDetail = decodeSplit(ctx, e.ID, split)
	return e, nil
}

func (r *Repository) ListExpenses(ctx context.Context, tripID, userID string) ([]core.Expense, error) {
	if err := r.requireMember(ctx, tripID, userID); err != nil {
		return nil, err
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, trip_id, item_name, amount, currency, payer, split_detail, created_at
		 FROM expenses WHERE trip_id = ? ORDER BY created_at`, tripID)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	defer rows.Close()

	var out []core.Expense
	for rows.Next() {
		var (
			e     core.Expense
			split string
		)
		if err := rows.Scan(&e.ID, &e.TripID, &e.ItemName, &e.Amount, &e.Currency, &e.Payer, &split, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		e.SplitDetail = decodeSplit(ctx, e.ID, split)
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *Repository) DeleteExpense(ctx context.Context, tripID, userID, expenseID string) error {
	if err := r.requireMember(ctx, tripID, userID); err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM expenses WHERE id = ? AND trip_id = ?`, expenseID, tripID)
	if err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// decodeSplit tolerates malformed split JSON: legacy rows predate
// validation, and the ledger must still render a best-effort view.
func decodeSplit(ctx context.Context, expenseID, raw string) map[string]float64 {
	var split map[string]float64
	if err := json.Unmarshal([]byte(raw), &split); err != nil {
		slog.WarnContext(ctx, "Malformed split detail, treating as empty",
			"expense_id", expenseID, "error", err)
		return map[string]float64{}
	}
	if split == nil {
		split = map[string]float64{}
	}
	return split
}

// --- itinerary ---

func (r *Repository) CreateItineraryItem(ctx context.Context, userID string, it core.ItineraryItem) (core.ItineraryItem, error) {
	if err := r.requireMember(ctx, it.TripID, userID); err != nil {
		return core.ItineraryItem{}, err
	}
	if it.ID == "" {
		it.ID = uuid.NewString()
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO itinerary_items (id, trip_id, date, start_time, title, place, note)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		it.ID, it.TripID, it.Date.ISO(), it.StartTime, it.Title, it.Place, it.Note)
	if err != nil {
		return core.ItineraryItem{}, fmt.Errorf("create itinerary item: %w", err)
	}
	return it, nil
}

func (r *Repository) ListItinerary(ctx context.Context, tripID, userID string) ([]core.ItineraryItem, error) {
	if err := r.requireMember(ctx, tripID, userID); err != nil {
		return nil, err
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, trip_id, date, start_time, title, place, note
		 FROM itinerary_items WHERE trip_id = ? ORDER BY date, start_time`, tripID)
	if err != nil {
		return nil, fmt.Errorf("list itinerary: %w", err)
	}
	defer rows.Close()

	var out []core.ItineraryItem
	for rows.Next() {
		var (
			it   core.ItineraryItem
			date string
		)
		if err := rows.Scan(&it.ID, &it.TripID, &date, &it.StartTime, &it.Title, &it.Place, &it.Note); err != nil {
			return nil, fmt.Errorf("scan itinerary item: %w", err)
		}
		if it.Date, err = core.ParseDate(date); err != nil {
			return nil, fmt.Errorf("parse itinerary date: %w", err)
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

// itemTripID resolves the trip an itinerary item belongs to.
func (r *Repository) itemTripID(ctx context.Context, itemID string) (string, error) {
	var tripID string
	err := r.db.QueryRowContext(ctx,
		`SELECT trip_id FROM itinerary_items WHERE id = ?`, itemID).Scan(&tripID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("resolve itinerary item: %w", err)
	}
	return tripID, nil
}

// --- memories ---

func (r *Repository) CreateMemory(ctx context.Context, m core.Memory) (core.Memory, error) {
	tripID, err := r.itemTripID(ctx, m.ItineraryItemID)
	if err != nil {
		return core.Memory{}, err
	}
	if err := r.requireMember(ctx, tripID, m.AuthorID); err != nil {
		return core.Memory{}, err
	}
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	m.CreatedAt = time.Now().UTC()
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO memories (id, itinerary_item_id, author_id, body, created_at) VALUES (?, ?, ?, ?, ?)`,
		m.ID, m.ItineraryItemID, m.AuthorID, m.Body, m.CreatedAt)
	if err != nil {
		return core.Memory{}, fmt.Errorf("create memory: %w", err)
	}
	return m, nil
}

// ListMemories returns only the author's own memories: they are private
// annotations, never shared with other members.
func (r *Repository) ListMemories(ctx context.Context, itemID, authorID string) ([]core.Memory, error) {
	tripID, err := r.itemTripID(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if err := r.requireMember(ctx, tripID, authorID); err != nil {
		return nil, err
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, itinerary_item_id, author_id, body, created_at
		 FROM memories WHERE itinerary_item_id = ? AND author_id = ? ORDER BY created_at`, itemID, authorID)
	if err != nil {
		return nil, fmt.Errorf("list memories: %w", err)
	}
	defer rows.Close()

	var out []core.Memory
	for rows.Next() {
		var m core.Memory
		if err := rows.Scan(&m.ID, &m.ItineraryItemID, &m.AuthorID, &m.Body, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan memory: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// --- activity feed ---

// Activity is one row of the trip activity feed, maintained by the
// worker from published events.
type Activity struct {
	ID        int64
	TripID    string
	Actor     string
	Action    string
	SubjectID string
	Detail    string
	CreatedAt time.Time
}

func (r *Repository) InsertActivity(ctx context.Context, a Activity) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO activities (trip_id, actor, action, subject_id, detail, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		a.TripID, a.Actor, a.Action, a.SubjectID, a.Detail, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("insert activity: %w", err)
	}
	return nil
}

func (r *Repository) ListActivity(ctx context.Context, tripID, userID string, limit int) ([]Activity, error) {
	if err := r.requireMember(ctx, tripID, userID); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, trip_id, actor, action, subject_id, detail, created_at
		 FROM activities WHERE trip_id = ? ORDER BY created_at DESC, id DESC LIMIT ?`, tripID, limit)
	if err != nil {
		return nil, fmt.Errorf("list activity: %w", err)
	}
	defer rows.Close()

	var out []Activity
	for rows.Next() {
		var a Activity
		if err := rows.Scan(&a.ID, &a.TripID, &a.Actor, &a.Action, &a.SubjectID, &a.Detail, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan activity: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
