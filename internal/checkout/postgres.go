package checkout

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"
)

// ConnectPostgres opens and pings the sessions database.
func ConnectPostgres(connStr string) (*sql.DB, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	return db, nil
}

// RunMigrations applies the schema under migrationsDir.
func RunMigrations(db *sql.DB, migrationsDir string) error {
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("could not create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		fmt.Sprintf("file://%s", migrationsDir),
		"postgres",
		driver,
	)
	if err != nil {
		return fmt.Errorf("could not create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("could not run migrations: %w", err)
	}
	return nil
}

// PostgresRepository persists checkout sessions.
type PostgresRepository struct {
	db *sql.DB
}

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, rec *Record) error {
	now := time.Now()
	rec.CreatedAt = now
	rec.UpdatedAt = now

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO checkout_sessions
			(id, user_id, idempotency_key, state, transaction_id, order_id, failure_message, total, created_at, updated_at)
		VALUES ($1, $2, NULLIF($3, ''), $4, $5, $6, $7, $8, $9, $10)`,
		rec.ID, rec.UserID, rec.IdempotencyKey, string(rec.State),
		rec.TransactionID, rec.OrderID, rec.FailureMessage, rec.Total,
		rec.CreatedAt, rec.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create checkout session: %w", err)
	}
	return nil
}

func (r *PostgresRepository) UpdateState(ctx context.Context, id string, state State, orderID, failureMessage string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE checkout_sessions
		SET state = $2, order_id = $3, failure_message = $4, updated_at = $5
		WHERE id = $1`,
		id, string(state), orderID, failureMessage, time.Now(),
	)
	if err != nil {
		return fmt.Errorf("failed to update checkout session: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read update result: %w", err)
	}
	if n == 0 {
		return ErrSessionNotFound
	}
	return nil
}

func (r *PostgresRepository) Find(ctx context.Context, id string) (*Record, error) {
	return r.scanOne(r.db.QueryRowContext(ctx, `
		SELECT id, user_id, COALESCE(idempotency_key, ''), state, transaction_id,
		       order_id, failure_message, total, created_at, updated_at
		FROM checkout_sessions WHERE id = $1`, id),
		ErrSessionNotFound)
}

func (r *PostgresRepository) FindByIdempotencyKey(ctx context.Context, userID, key string) (*Record, error) {
	if key == "" {
		return nil, ErrIdempotencyKeyNotFound
	}
	return r.scanOne(r.db.QueryRowContext(ctx, `
		SELECT id, user_id, COALESCE(idempotency_key, ''), state, transaction_id,
		       order_id, failure_message, total, created_at, updated_at
		FROM checkout_sessions WHERE user_id = $1 AND idempotency_key = $2`, userID, key),
		ErrIdempotencyKeyNotFound)
}

func (r *PostgresRepository) scanOne(row *sql.Row, notFound error) (*Record, error) {
	var rec Record
	var state string
	err := row.Scan(
		&rec.ID, &rec.UserID, &rec.IdempotencyKey, &state, &rec.TransactionID,
		&rec.OrderID, &rec.FailureMessage, &rec.Total, &rec.CreatedAt, &rec.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan checkout session: %w", err)
	}
	rec.State = State(state)
	return &rec, nil
}
