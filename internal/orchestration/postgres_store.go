package orchestration

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bizmatters/agent-builder/travel-planner/internal/models"
)

// PostgresStore persists runs, events and users with pgx.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore wraps an open pool.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Ping checks database connectivity.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// CreateRun inserts a new run. The request is stored as JSONB.
func (s *PostgresStore) CreateRun(ctx context.Context, run *models.Run) error {
	err := s.pool.QueryRow(ctx, `
		INSERT INTO trip_runs (id, user_id, session_id, request, status, revision_number)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at
	`, run.ID, run.UserID, run.SessionID, run.Request, run.Status, run.RevisionNumber).Scan(&run.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to create run: %w", err)
	}
	return nil
}

// UpdateRun locks the row, validates the status change and writes the run.
func (s *PostgresStore) UpdateRun(ctx context.Context, run *models.Run) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	current, err := s.lockRunForUpdate(ctx, tx, run.ID)
	if err != nil {
		return err
	}
	if err := validateRunTransition(current, run.Status); err != nil {
		return err
	}

	_, err = tx.Exec(ctx, `
		UPDATE trip_runs
		SET status = $1,
		    revision_number = $2,
		    final_itinerary = $3,
		    critique = $4,
		    error = $5,
		    completed_at = $6
		WHERE id = $7
	`, run.Status, run.RevisionNumber, run.FinalItinerary, run.Critique, run.Error, run.CompletedAt, run.ID)
	if err != nil {
		return fmt.Errorf("failed to update run status: %w", err)
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// GetRun retrieves a run by ID
func (s *PostgresStore) GetRun(ctx context.Context, id uuid.UUID) (*models.Run, error) {
	var run models.Run

	err := s.pool.QueryRow(ctx, `
		SELECT id, user_id, session_id, request, status, revision_number,
		       final_itinerary, critique, error, created_at, completed_at
		FROM trip_runs
		WHERE id = $1
	`, id).Scan(
		&run.ID,
		&run.UserID,
		&run.SessionID,
		&run.Request,
		&run.Status,
		&run.RevisionNumber,
		&run.FinalItinerary,
		&run.Critique,
		&run.Error,
		&run.CreatedAt,
		&run.CompletedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRunNotFound
		}
		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	return &run, nil
}

// AppendEvent stores one stage event. The delta is stored as JSONB.
func (s *PostgresStore) AppendEvent(ctx context.Context, event models.StageEvent) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO trip_run_events (run_id, sequence, event_type, stage, revision, delta, outcome, stop, error, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, event.RunID, event.Sequence, event.EventType, event.Stage, event.Revision,
		event.Delta, event.Outcome, event.Stop, event.Error, event.Timestamp)

	if err != nil {
		return fmt.Errorf("failed to append event: %w", err)
	}
	return nil
}

// ListEvents returns a run's events in sequence order.
func (s *PostgresStore) ListEvents(ctx context.Context, runID uuid.UUID) ([]models.StageEvent, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT run_id, sequence, event_type, stage, revision, delta, outcome, stop, error, created_at
		FROM trip_run_events
		WHERE run_id = $1
		ORDER BY sequence ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	var events []models.StageEvent
	for rows.Next() {
		var event models.StageEvent
		var id uuid.UUID
		err := rows.Scan(
			&id,
			&event.Sequence,
			&event.EventType,
			&event.Stage,
			&event.Revision,
			&event.Delta,
			&event.Outcome,
			&event.Stop,
			&event.Error,
			&event.Timestamp,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		event.RunID = id.String()
		events = append(events, event)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating events: %w", err)
	}

	return events, nil
}

// GetUserByEmail looks up an account for login.
func (s *PostgresStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User

	err := s.pool.QueryRow(ctx, `
		SELECT id, name, email, hashed_password, created_at
		FROM users
		WHERE email = $1
	`, normalizeEmail(email)).Scan(&user.ID, &user.Name, &user.Email, &user.HashedPassword, &user.CreatedAt)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &user, nil
}

// CreateUser inserts an account with an already hashed password.
func (s *PostgresStore) CreateUser(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	user.Email = normalizeEmail(user.Email)

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	err = tx.QueryRow(ctx, `
		INSERT INTO users (id, name, email, hashed_password)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at
	`, user.ID, user.Name, user.Email, user.HashedPassword).Scan(&user.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return fmt.Errorf("%w: %s", ErrUserExists, user.Email)
		}
		if strings.Contains(err.Error(), "duplicate key") {
			return fmt.Errorf("%w: %s", ErrUserExists, user.Email)
		}
		return fmt.Errorf("failed to insert user: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// lockRunForUpdate locks a run row and returns its current status.
func (s *PostgresStore) lockRunForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (models.RunStatus, error) {
	var status models.RunStatus

	err := tx.QueryRow(ctx, `
		SELECT status FROM trip_runs
		WHERE id = $1
		FOR UPDATE
	`, id).Scan(&status)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrRunNotFound
		}
		return "", fmt.Errorf("failed to lock run: %w", err)
	}
	return status, nil
}
