package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.opentelemetry.io/otel/attribute"

	"skypath/pkg/database"
	"skypath/pkg/telemetry"
)

// PostgresUserRepository PostgreSQL реализация UserRepository
type PostgresUserRepository struct {
	db database.DB
}

// NewPostgresUserRepository создаёт новый PostgreSQL репозиторий
func NewPostgresUserRepository(db database.DB) *PostgresUserRepository {
	return &PostgresUserRepository{db: db}
}

func (r *PostgresUserRepository) Create(ctx context.Context, user *User) error {
	ctx, span := telemetry.StartSpan(ctx, "PostgresUserRepository.Create")
	defer span.End()

	query := `
		INSERT INTO users (username, password_hash)
		VALUES ($1, $2)
		RETURNING id, created_at
	`

	err := r.db.QueryRow(ctx, query, user.Username, user.PasswordHash).
		Scan(&user.ID, &user.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrUserAlreadyExists
		}
		return fmt.Errorf("failed to create user: %w", err)
	}

	return nil
}

func (r *PostgresUserRepository) GetByID(ctx context.Context, id int64) (*User, error) {
	ctx, span := telemetry.StartSpan(ctx, "PostgresUserRepository.GetByID")
	defer span.End()

	query := `
		SELECT id, username, password_hash, created_at
		FROM users
		WHERE id = $1
	`

	return r.scanUser(r.db.QueryRow(ctx, query, id), "id")
}

func (r *PostgresUserRepository) GetByUsername(ctx context.Context, username string) (*User, error) {
	ctx, span := telemetry.StartSpan(ctx, "PostgresUserRepository.GetByUsername")
	defer span.End()

	query := `
		SELECT id, username, password_hash, created_at
		FROM users
		WHERE username = $1
	`

	return r.scanUser(r.db.QueryRow(ctx, query, username), "username")
}

func (r *PostgresUserRepository) scanUser(row pgx.Row, by string) (*User, error) {
	user := &User{}
	err := row.Scan(&user.ID, &user.Username, &user.PasswordHash, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user by %s: %w", by, err)
	}
	return user, nil
}

// PostgresTripRepository PostgreSQL реализация TripRepository
type PostgresTripRepository struct {
	db database.DB
}

// NewPostgresTripRepository создаёт новый PostgreSQL репозиторий поездок
func NewPostgresTripRepository(db database.DB) *PostgresTripRepository {
	return &PostgresTripRepository{db: db}
}

// Save пишет поездку и её рейсы в одной транзакции
func (r *PostgresTripRepository) Save(ctx context.Context, trip *Trip) error {
	ctx, span := telemetry.StartSpan(ctx, "PostgresTripRepository.Save")
	defer span.End()

	if trip.ID == "" {
		trip.ID = uuid.NewString()
	}
	span.SetAttributes(
		attribute.String("trip.id", trip.ID),
		attribute.Int("trip.legs", len(trip.Legs)),
	)

	err := database.WithTransaction(ctx, r.db, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
			INSERT INTO trips (id, user_id, source, destination, start_time, itinerary,
			                   flight_ids, arrival_time, delay_minutes)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			RETURNING created_at
		`,
			trip.ID,
			trip.UserID,
			trip.Source,
			trip.Destination,
			trip.StartTime,
			trip.Itinerary,
			trip.FlightIDs,
			trip.ArrivalTime,
			trip.DelayMinutes,
		).Scan(&trip.CreatedAt)
		if err != nil {
			return fmt.Errorf("insert trip: %w", err)
		}

		for _, leg := range trip.Legs {
			_, err := tx.Exec(ctx, `
				INSERT INTO trip_legs (trip_id, seq, flight_id, origin, destination,
				                       departure, arrival, delay_minutes)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			`,
				trip.ID,
				leg.Seq,
				leg.FlightID,
				leg.Origin,
				leg.Destination,
				leg.Departure,
				leg.Arrival,
				leg.DelayMinutes,
			)
			if err != nil {
				return fmt.Errorf("insert trip leg %d: %w", leg.Seq, err)
			}
		}
		return nil
	})
	if err != nil {
		telemetry.SetError(ctx, err)
		return fmt.Errorf("failed to save trip: %w", err)
	}

	return nil
}

func (r *PostgresTripRepository) ListByUser(ctx context.Context, userID int64, limit int) ([]*Trip, error) {
	ctx, span := telemetry.StartSpan(ctx, "PostgresTripRepository.ListByUser")
	defer span.End()

	if limit <= 0 {
		limit = 50
	}

	rows, err := r.db.Query(ctx, `
		SELECT id::text, user_id, source, destination, start_time, itinerary,
		       flight_ids, arrival_time, delay_minutes, created_at
		FROM trips
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list trips: %w", err)
	}
	defer rows.Close()

	var trips []*Trip
	for rows.Next() {
		t := &Trip{}
		if err := scanTrip(rows, t); err != nil {
			return nil, fmt.Errorf("failed to scan trip: %w", err)
		}
		trips = append(trips, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate trips: %w", err)
	}

	span.SetAttributes(attribute.Int("trips.count", len(trips)))
	return trips, nil
}

func (r *PostgresTripRepository) Get(ctx context.Context, userID int64, id string) (*Trip, error) {
	ctx, span := telemetry.StartSpan(ctx, "PostgresTripRepository.Get")
	defer span.End()

	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrTripNotFound
	}

	// поездка и её рейсы читаются из одного снимка
	t := &Trip{}
	err := database.WithTxOptions(ctx, r.db, tripReadTx, func(tx pgx.Tx) error {
		err := scanTrip(tx.QueryRow(ctx, `
			SELECT id::text, user_id, source, destination, start_time, itinerary,
			       flight_ids, arrival_time, delay_minutes, created_at
			FROM trips
			WHERE id = $1 AND user_id = $2
		`, id, userID), t)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrTripNotFound
			}
			return fmt.Errorf("failed to get trip: %w", err)
		}

		rows, err := tx.Query(ctx, `
			SELECT seq, flight_id, origin, destination, departure, arrival, delay_minutes
			FROM trip_legs
			WHERE trip_id = $1
			ORDER BY seq
		`, id)
		if err != nil {
			return fmt.Errorf("failed to get trip legs: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			var leg TripLeg
			if err := rows.Scan(
				&leg.Seq,
				&leg.FlightID,
				&leg.Origin,
				&leg.Destination,
				&leg.Departure,
				&leg.Arrival,
				&leg.DelayMinutes,
			); err != nil {
				return fmt.Errorf("failed to scan trip leg: %w", err)
			}
			t.Legs = append(t.Legs, leg)
		}
		if err := rows.Err(); err != nil {
			return fmt.Errorf("failed to iterate trip legs: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	span.SetAttributes(attribute.Int("trip.legs", len(t.Legs)))
	return t, nil
}

var tripReadTx = pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly}

func scanTrip(row pgx.Row, t *Trip) error {
	return row.Scan(
		&t.ID,
		&t.UserID,
		&t.Source,
		&t.Destination,
		&t.StartTime,
		&t.Itinerary,
		&t.FlightIDs,
		&t.ArrivalTime,
		&t.DelayMinutes,
		&t.CreatedAt,
	)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
