package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Postgres is the durable Store. Profiles survive process restarts and
// expire after the configured TTL.
type Postgres struct {
	pool *pgxpool.Pool
	ttl  time.Duration

	mu    sync.Mutex
	locks map[string]*sync.Mutex // per-caller write serialization
}

func NewPostgres(ctx context.Context, databaseURL string, ttl time.Duration) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Postgres{pool: pool, ttl: ttl, locks: make(map[string]*sync.Mutex)}, nil
}

// EnsureSchema creates the profile table when it does not exist.
func (s *Postgres) EnsureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS customer_profiles (
			caller_number         text PRIMARY KEY,
			booking_history       jsonb NOT NULL DEFAULT '[]',
			favorite_service      text NOT NULL DEFAULT '',
			preferred_time_of_day text NOT NULL DEFAULT '',
			total_bookings        int NOT NULL DEFAULT 0,
			avg_duration_hours    double precision NOT NULL DEFAULT 0,
			last_updated          timestamptz NOT NULL,
			expires_at            timestamptz NOT NULL
		)`)
	if err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

func (s *Postgres) Lookup(ctx context.Context, callerNumber string) (*Profile, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT booking_history, favorite_service, preferred_time_of_day,
		       total_bookings, avg_duration_hours, last_updated
		FROM customer_profiles
		WHERE caller_number = $1 AND expires_at > now()`,
		callerNumber,
	)

	var historyJSON []byte
	p := Profile{CallerNumber: callerNumber}
	err := row.Scan(&historyJSON, &p.Preferences.FavoriteService,
		&p.Preferences.PreferredTimeOfDay, &p.Preferences.TotalBookings,
		&p.Preferences.AvgDurationHours, &p.LastUpdated)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lookup profile: %w", err)
	}
	if err := json.Unmarshal(historyJSON, &p.BookingHistory); err != nil {
		return nil, fmt.Errorf("decode booking history: %w", err)
	}
	return &p, nil
}

func (s *Postgres) RecordInteraction(ctx context.Context, callerNumber string, in Interaction) error {
	lock := s.keyLock(callerNumber)
	lock.Lock()
	defer lock.Unlock()

	var history []BookingRecord
	var historyJSON []byte
	err := s.pool.QueryRow(ctx, `
		SELECT booking_history FROM customer_profiles
		WHERE caller_number = $1 AND expires_at > now()`,
		callerNumber,
	).Scan(&historyJSON)
	switch {
	case err == pgx.ErrNoRows:
		// first interaction for this caller
	case err != nil:
		return fmt.Errorf("load booking history: %w", err)
	default:
		if err := json.Unmarshal(historyJSON, &history); err != nil {
			return fmt.Errorf("decode booking history: %w", err)
		}
	}

	history = appendBooking(history, in.Booking)
	prefs := derivePreferences(history)

	encoded, err := json.Marshal(history)
	if err != nil {
		return fmt.Errorf("encode booking history: %w", err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO customer_profiles
			(caller_number, booking_history, favorite_service, preferred_time_of_day,
			 total_bookings, avg_duration_hours, last_updated, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (caller_number)
		DO UPDATE SET
			booking_history = $2,
			favorite_service = $3,
			preferred_time_of_day = $4,
			total_bookings = $5,
			avg_duration_hours = $6,
			last_updated = $7,
			expires_at = $8`,
		callerNumber, encoded, prefs.FavoriteService, prefs.PreferredTimeOfDay,
		prefs.TotalBookings, prefs.AvgDurationHours, in.At, in.At.Add(s.ttl),
	)
	if err != nil {
		return fmt.Errorf("upsert profile: %w", err)
	}
	return nil
}

// PurgeExpired deletes profiles past their TTL. Called by the janitor.
func (s *Postgres) PurgeExpired(ctx context.Context) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM customer_profiles WHERE expires_at <= now()`)
	if err != nil {
		return 0, fmt.Errorf("purge expired profiles: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (s *Postgres) Close() {
	s.pool.Close()
}

func (s *Postgres) keyLock(callerNumber string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.locks[callerNumber]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[callerNumber] = lock
	}
	return lock
}
