package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/glotok-bot/glotok/internal/domain"
)

// IntakeRepository defines persistence operations for the intake ledger.
// Events are append-only; corrections are recorded as new rows with
// negative amounts.
type IntakeRepository interface {
	Insert(ctx context.Context, event *domain.IntakeEvent) error
	SumInRange(ctx context.Context, userID int64, start, end time.Time) (int, error)
	LastTimestamp(ctx context.Context, userID int64) (*time.Time, error)
	DailyTotals(ctx context.Context, userID int64, start, end time.Time, tz string) ([]domain.DailyTotal, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

type intakeRepository struct {
	db  *sql.DB
	log *slog.Logger
}

// NewIntakeRepository creates a new SQL-backed intake ledger.
func NewIntakeRepository(db *sql.DB, log *slog.Logger) IntakeRepository {
	return &intakeRepository{
		db:  db,
		log: log,
	}
}

// Insert appends one event to the ledger and fills in its identifier.
func (r *intakeRepository) Insert(ctx context.Context, event *domain.IntakeEvent) error {
	const query = `
		INSERT INTO intake_events (user_id, ts, amount_ml, source)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`

	if err := r.db.QueryRowContext(
		ctx,
		query,
		event.UserID,
		event.Timestamp,
		event.AmountML,
		event.Source,
	).Scan(&event.ID); err != nil {
		if r.log != nil {
			r.log.Error("failed to insert intake event", slog.Int64("user_id", event.UserID), slog.Any("error", err))
		}
		return fmt.Errorf("insert intake event: %w", err)
	}

	return nil
}

// SumInRange returns the net consumed amount over [start, end).
func (r *intakeRepository) SumInRange(ctx context.Context, userID int64, start, end time.Time) (int, error) {
	const query = `
		SELECT COALESCE(SUM(amount_ml), 0)
		FROM intake_events
		WHERE user_id = $1 AND ts >= $2 AND ts < $3
	`

	var total int
	if err := r.db.QueryRowContext(ctx, query, userID, start, end).Scan(&total); err != nil {
		if r.log != nil {
			r.log.Error("failed to sum intake", slog.Int64("user_id", userID), slog.Any("error", err))
		}
		return 0, fmt.Errorf("sum intake events: %w", err)
	}

	return total, nil
}

// LastTimestamp returns when the user last logged a positive intake, or
// nil if they never have. Corrections do not count as drinking.
func (r *intakeRepository) LastTimestamp(ctx context.Context, userID int64) (*time.Time, error) {
	const query = `
		SELECT ts
		FROM intake_events
		WHERE user_id = $1 AND amount_ml > 0
		ORDER BY ts DESC
		LIMIT 1
	`

	var ts time.Time
	if err := r.db.QueryRowContext(ctx, query, userID).Scan(&ts); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}

		if r.log != nil {
			r.log.Error("failed to fetch last intake timestamp", slog.Int64("user_id", userID), slog.Any("error", err))
		}
		return nil, fmt.Errorf("select last intake timestamp: %w", err)
	}

	ts = ts.UTC()
	return &ts, nil
}

// DailyTotals aggregates net consumption per local day over [start, end).
// Rows are bucketed in the user's zone, so water logged shortly after a
// local midnight lands in that local day, not the UTC one.
func (r *intakeRepository) DailyTotals(ctx context.Context, userID int64, start, end time.Time, tz string) ([]domain.DailyTotal, error) {
	const query = `
		SELECT date_trunc('day', ts AT TIME ZONE $4) AS day, COALESCE(SUM(amount_ml), 0)
		FROM intake_events
		WHERE user_id = $1 AND ts >= $2 AND ts < $3
		GROUP BY day
		ORDER BY day
	`

	rows, err := r.db.QueryContext(ctx, query, userID, start, end, tz)
	if err != nil {
		if r.log != nil {
			r.log.Error("failed to fetch daily totals", slog.Int64("user_id", userID), slog.Any("error", err))
		}
		return nil, fmt.Errorf("select daily totals: %w", err)
	}
	defer rows.Close()

	var totals []domain.DailyTotal
	for rows.Next() {
		var dt domain.DailyTotal
		if err := rows.Scan(&dt.Day, &dt.AmountML); err != nil {
			return nil, fmt.Errorf("scan daily total: %w", err)
		}
		totals = append(totals, dt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate daily totals: %w", err)
	}

	return totals, nil
}

// DeleteOlderThan removes ledger rows older than the cutoff and reports
// how many were deleted.
func (r *intakeRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	const query = `DELETE FROM intake_events WHERE ts < $1`

	result, err := r.db.ExecContext(ctx, query, cutoff)
	if err != nil {
		if r.log != nil {
			r.log.Error("failed to delete old intake events", slog.Any("error", err))
		}
		return 0, fmt.Errorf("delete old intake events: %w", err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("count deleted intake events: %w", err)
	}

	return deleted, nil
}
