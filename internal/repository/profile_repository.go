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

// ProfileRepository defines persistence operations for user profiles.
type ProfileRepository interface {
	FindByTelegramID(ctx context.Context, telegramID int64) (*domain.Profile, error)
	Create(ctx context.Context, profile *domain.Profile) error
	UpdateGoal(ctx context.Context, telegramID int64, goalML int) error
	UpdateWindow(ctx context.Context, telegramID int64, wakeAt, sleepAt domain.TimeOfDay) error
	UpdateGlass(ctx context.Context, telegramID int64, glassML int) error
	UpdateTimezone(ctx context.Context, telegramID int64, timezone string) error
	UpdateUnits(ctx context.Context, telegramID int64, units string) error
	SetSmartReminders(ctx context.Context, telegramID int64, enabled bool) error
	SetMuteUntil(ctx context.Context, telegramID int64, until *time.Time) error
	ListSmartEnabled(ctx context.Context) ([]*domain.Profile, error)
}

type profileRepository struct {
	db  *sql.DB
	log *slog.Logger
}

// NewProfileRepository creates a new SQL-backed profile repository.
func NewProfileRepository(db *sql.DB, log *slog.Logger) ProfileRepository {
	return &profileRepository{
		db:  db,
		log: log,
	}
}

const profileColumns = `
	id, telegram_id, timezone, units, daily_goal_ml,
	wake_at, sleep_at, glass_ml, smart_reminders, mute_until, created_at
`

// FindByTelegramID retrieves a profile by its Telegram identifier.
func (r *profileRepository) FindByTelegramID(ctx context.Context, telegramID int64) (*domain.Profile, error) {
	const query = `
		SELECT ` + profileColumns + `
		FROM profiles
		WHERE telegram_id = $1
	`

	profile, err := scanProfile(r.db.QueryRowContext(ctx, query, telegramID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sql.ErrNoRows
		}

		if r.log != nil {
			r.log.Error("failed to fetch profile by telegram id", slog.Int64("telegram_id", telegramID), slog.Any("error", err))
		}
		return nil, fmt.Errorf("select profile by telegram id: %w", err)
	}

	return profile, nil
}

// Create persists a new profile record in the database.
func (r *profileRepository) Create(ctx context.Context, profile *domain.Profile) error {
	const query = `
		INSERT INTO profiles (
			telegram_id, timezone, units, daily_goal_ml,
			wake_at, sleep_at, glass_ml, smart_reminders, mute_until, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id
	`

	var muteUntil sql.NullTime
	if profile.MuteUntil != nil {
		muteUntil = sql.NullTime{Time: *profile.MuteUntil, Valid: true}
	}

	if err := r.db.QueryRowContext(
		ctx,
		query,
		profile.TelegramID,
		profile.Timezone,
		profile.Units,
		profile.DailyGoalML,
		profile.WakeAt.String(),
		profile.SleepAt.String(),
		profile.GlassML,
		profile.SmartRemindersEnabled,
		muteUntil,
		profile.CreatedAt,
	).Scan(&profile.ID); err != nil {
		if r.log != nil {
			r.log.Error("failed to create profile", slog.Int64("telegram_id", profile.TelegramID), slog.Any("error", err))
		}
		return fmt.Errorf("insert profile: %w", err)
	}

	return nil
}

// UpdateGoal changes the daily goal for a profile.
func (r *profileRepository) UpdateGoal(ctx context.Context, telegramID int64, goalML int) error {
	const query = `UPDATE profiles SET daily_goal_ml = $2 WHERE telegram_id = $1`

	return r.exec(ctx, "update goal", telegramID, query, telegramID, goalML)
}

// UpdateWindow changes the waking window for a profile.
func (r *profileRepository) UpdateWindow(ctx context.Context, telegramID int64, wakeAt, sleepAt domain.TimeOfDay) error {
	const query = `UPDATE profiles SET wake_at = $2, sleep_at = $3 WHERE telegram_id = $1`

	return r.exec(ctx, "update window", telegramID, query, telegramID, wakeAt.String(), sleepAt.String())
}

// UpdateGlass changes the default glass size for a profile.
func (r *profileRepository) UpdateGlass(ctx context.Context, telegramID int64, glassML int) error {
	const query = `UPDATE profiles SET glass_ml = $2 WHERE telegram_id = $1`

	return r.exec(ctx, "update glass", telegramID, query, telegramID, glassML)
}

// UpdateTimezone changes the IANA timezone for a profile.
func (r *profileRepository) UpdateTimezone(ctx context.Context, telegramID int64, timezone string) error {
	const query = `UPDATE profiles SET timezone = $2 WHERE telegram_id = $1`

	return r.exec(ctx, "update timezone", telegramID, query, telegramID, timezone)
}

// UpdateUnits changes the display units for a profile.
func (r *profileRepository) UpdateUnits(ctx context.Context, telegramID int64, units string) error {
	const query = `UPDATE profiles SET units = $2 WHERE telegram_id = $1`

	return r.exec(ctx, "update units", telegramID, query, telegramID, units)
}

// SetSmartReminders toggles adaptive reminders for a profile.
func (r *profileRepository) SetSmartReminders(ctx context.Context, telegramID int64, enabled bool) error {
	const query = `UPDATE profiles SET smart_reminders = $2 WHERE telegram_id = $1`

	return r.exec(ctx, "set smart reminders", telegramID, query, telegramID, enabled)
}

// SetMuteUntil sets or clears the mute deadline for a profile.
func (r *profileRepository) SetMuteUntil(ctx context.Context, telegramID int64, until *time.Time) error {
	const query = `UPDATE profiles SET mute_until = $2 WHERE telegram_id = $1`

	var muteUntil sql.NullTime
	if until != nil {
		muteUntil = sql.NullTime{Time: *until, Valid: true}
	}

	return r.exec(ctx, "set mute until", telegramID, query, telegramID, muteUntil)
}

// ListSmartEnabled returns all profiles with adaptive reminders switched on.
func (r *profileRepository) ListSmartEnabled(ctx context.Context) ([]*domain.Profile, error) {
	const query = `
		SELECT ` + profileColumns + `
		FROM profiles
		WHERE smart_reminders = TRUE
		ORDER BY id
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		if r.log != nil {
			r.log.Error("failed to list smart-enabled profiles", slog.Any("error", err))
		}
		return nil, fmt.Errorf("select smart-enabled profiles: %w", err)
	}
	defer rows.Close()

	var profiles []*domain.Profile
	for rows.Next() {
		profile, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("scan profile row: %w", err)
		}
		profiles = append(profiles, profile)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate profile rows: %w", err)
	}

	return profiles, nil
}

func (r *profileRepository) exec(ctx context.Context, op string, telegramID int64, query string, args ...any) error {
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		if r.log != nil {
			r.log.Error("failed to "+op, slog.Int64("telegram_id", telegramID), slog.Any("error", err))
		}
		return fmt.Errorf("%s: %w", op, err)
	}

	affected, err := result.RowsAffected()
	if err == nil && affected == 0 {
		return sql.ErrNoRows
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProfile(row rowScanner) (*domain.Profile, error) {
	var (
		profile   domain.Profile
		wakeAt    string
		sleepAt   string
		muteUntil sql.NullTime
	)

	if err := row.Scan(
		&profile.ID,
		&profile.TelegramID,
		&profile.Timezone,
		&profile.Units,
		&profile.DailyGoalML,
		&wakeAt,
		&sleepAt,
		&profile.GlassML,
		&profile.SmartRemindersEnabled,
		&muteUntil,
		&profile.CreatedAt,
	); err != nil {
		return nil, err
	}

	var err error
	if profile.WakeAt, err = domain.ParseTimeOfDay(wakeAt); err != nil {
		return nil, fmt.Errorf("stored wake time: %w", err)
	}
	if profile.SleepAt, err = domain.ParseTimeOfDay(sleepAt); err != nil {
		return nil, fmt.Errorf("stored sleep time: %w", err)
	}
	if muteUntil.Valid {
		t := muteUntil.Time.UTC()
		profile.MuteUntil = &t
	}

	return &profile, nil
}
