package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/dailydraw/streak-bot/internal/domain/shared"
	"github.com/dailydraw/streak-bot/internal/domain/streak"
	"github.com/dailydraw/streak-bot/internal/infrastructure/persistence"
)

const recordColumns = `user_id, guild_id, streak, max_streak, last_submission, has_posted_today, timezone, xp`

// rowScanner is implemented by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// StreakRepository implements streak.Repository on SQLite.
type StreakRepository struct {
	store *Store
	opts  persistence.Options
}

// NewStreakRepository creates a repository over an open store.
func NewStreakRepository(store *Store, opts persistence.Options) *StreakRepository {
	return &StreakRepository{store: store, opts: opts.Normalize()}
}

var _ streak.Repository = (*StreakRepository)(nil)

// Find returns a record by key.
func (r *StreakRepository) Find(ctx context.Context, key streak.Key) (*streak.Record, error) {
	ctx, cancel := r.opts.WithTimeout(ctx)
	defer cancel()

	query := `SELECT ` + recordColumns + ` FROM streaks WHERE user_id = ? AND guild_id = ?`

	rec, err := r.scanRecord(r.store.db.QueryRowContext(ctx, query, key.UserID, key.GuildID))
	if err != nil {
		return nil, persistence.StoreError("Find", err)
	}
	return rec, nil
}

// Update applies fn to the current record inside one transaction. The
// store's single connection keeps other transactions of this process out
// until it commits.
func (r *StreakRepository) Update(ctx context.Context, key streak.Key, fn streak.Mutation) (*streak.Record, error) {
	ctx, cancel := r.opts.WithTimeout(ctx)
	defer cancel()

	var result *streak.Record
	err := r.store.withTx(ctx, func(tx *sql.Tx) error {
		query := `SELECT ` + recordColumns + ` FROM streaks WHERE user_id = ? AND guild_id = ?`

		current, err := r.scanRecord(tx.QueryRowContext(ctx, query, key.UserID, key.GuildID))
		if err != nil && !shared.IsNotFound(err) {
			return err
		}

		var input *streak.Record
		if current != nil {
			input = current.Clone()
		}

		next, err := fn(input)
		if err != nil {
			return err
		}
		if next == nil {
			result = current
			return nil
		}
		if err := next.Validate(); err != nil {
			return err
		}

		if current == nil {
			err = r.insert(ctx, tx, next)
		} else {
			err = r.update(ctx, tx, next)
		}
		if err != nil {
			return err
		}

		result = next
		return nil
	})
	if err != nil {
		return nil, persistence.StoreError("Update", err)
	}

	return result, nil
}

func (r *StreakRepository) insert(ctx context.Context, tx *sql.Tx, rec *streak.Record) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO streaks (`+recordColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.UserID, rec.GuildID, rec.Streak, rec.MaxStreak,
		r.opts.FormatTime(rec.LastSubmission), rec.HasPostedToday, rec.Timezone, rec.XP,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return persistence.ConflictError(err)
		}
		return fmt.Errorf("failed to insert record: %w", err)
	}
	return nil
}

func (r *StreakRepository) update(ctx context.Context, tx *sql.Tx, rec *streak.Record) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE streaks SET
			streak = ?,
			max_streak = ?,
			last_submission = ?,
			has_posted_today = ?,
			timezone = ?,
			xp = ?
		WHERE user_id = ? AND guild_id = ?
	`,
		rec.Streak, rec.MaxStreak, r.opts.FormatTime(rec.LastSubmission),
		rec.HasPostedToday, rec.Timezone, rec.XP, rec.UserID, rec.GuildID,
	)
	if err != nil {
		return fmt.Errorf("failed to update record: %w", err)
	}
	return nil
}

// Top returns the scoreboard of a guild.
func (r *StreakRepository) Top(ctx context.Context, guildID int64, limit int) ([]*streak.Record, error) {
	ctx, cancel := r.opts.WithTimeout(ctx)
	defer cancel()

	rows, err := r.store.db.QueryContext(ctx, `
		SELECT `+recordColumns+`
		FROM streaks
		WHERE guild_id = ?
		ORDER BY max_streak DESC, xp DESC, user_id ASC
		LIMIT ?
	`, guildID, limit)
	if err != nil {
		return nil, persistence.StoreError("Top", err)
	}
	defer rows.Close()

	var records []*streak.Record
	for rows.Next() {
		rec, err := r.scanRecord(rows)
		if err != nil {
			return nil, persistence.StoreError("Top", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, persistence.StoreError("Top", err)
	}

	return records, nil
}

// Import upserts records copied from another store.
func (r *StreakRepository) Import(ctx context.Context, records []*streak.Record) (int, error) {
	imported := 0
	err := r.store.withTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO streaks (`+recordColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT (user_id, guild_id) DO UPDATE SET
				streak = excluded.streak,
				max_streak = MAX(excluded.max_streak, excluded.streak),
				last_submission = excluded.last_submission,
				has_posted_today = excluded.has_posted_today,
				timezone = excluded.timezone,
				xp = excluded.xp
		`)
		if err != nil {
			return fmt.Errorf("prepare import: %w", err)
		}
		defer stmt.Close()

		for _, rec := range records {
			_, err := stmt.ExecContext(ctx,
				rec.UserID, rec.GuildID, rec.Streak, rec.MaxStreak,
				r.opts.FormatTime(rec.LastSubmission), rec.HasPostedToday, rec.Timezone, rec.XP,
			)
			if err != nil {
				return fmt.Errorf("failed to import record %d/%d: %w", rec.GuildID, rec.UserID, err)
			}
			imported++
		}
		return nil
	})
	if err != nil {
		return 0, persistence.StoreError("Import", err)
	}
	return imported, nil
}

// Reset applies the rollover to every record and stores the day marker in
// one transaction.
func (r *StreakRepository) Reset(ctx context.Context, req streak.ResetRequest) (*streak.ResetSummary, error) {
	summary := &streak.ResetSummary{
		Day:       req.Day,
		RunID:     req.RunID,
		Forced:    req.Force,
		AppliedAt: req.AppliedAt,
	}

	err := r.store.withTx(ctx, func(tx *sql.Tx) error {
		exists, err := resetApplied(ctx, tx, req.Day)
		if err != nil {
			return err
		}
		if exists && !req.Force {
			summary.Skipped = true
			return nil
		}

		res, err := tx.ExecContext(ctx, `UPDATE streaks SET streak = 0 WHERE has_posted_today = 0`)
		if err != nil {
			return fmt.Errorf("failed to zero missed streaks: %w", err)
		}
		missed, err := res.RowsAffected()
		if err != nil {
			return err
		}

		res, err = tx.ExecContext(ctx, `UPDATE streaks SET has_posted_today = 0 WHERE has_posted_today != 0`)
		if err != nil {
			return fmt.Errorf("failed to clear posted flags: %w", err)
		}
		kept, err := res.RowsAffected()
		if err != nil {
			return err
		}

		summary.Missed = int(missed)
		summary.Kept = int(kept)
		summary.Total = summary.Missed + summary.Kept

		_, err = tx.ExecContext(ctx, `
			INSERT INTO daily_resets (day, run_id, forced, total, kept, missed, applied_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT (day) DO UPDATE SET
				run_id = excluded.run_id,
				forced = excluded.forced,
				total = excluded.total,
				kept = excluded.kept,
				missed = excluded.missed,
				applied_at = excluded.applied_at
		`, req.Day, req.RunID, req.Force, summary.Total, summary.Kept, summary.Missed,
			req.AppliedAt.UTC().Format(time.RFC3339))
		if err != nil {
			return fmt.Errorf("failed to store reset marker: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, persistence.StoreError("Reset", err)
	}

	return summary, nil
}

// ResetApplied reports whether day already has a reset marker.
func (r *StreakRepository) ResetApplied(ctx context.Context, day string) (bool, error) {
	ctx, cancel := r.opts.WithTimeout(ctx)
	defer cancel()

	exists, err := resetApplied(ctx, r.store.db, day)
	if err != nil {
		return false, persistence.StoreError("ResetApplied", err)
	}
	return exists, nil
}

// Ping checks the database.
func (r *StreakRepository) Ping(ctx context.Context) error {
	ctx, cancel := r.opts.WithTimeout(ctx)
	defer cancel()

	return persistence.StoreError("Ping", r.store.Ping(ctx))
}

type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func resetApplied(ctx context.Context, q queryRower, day string) (bool, error) {
	var exists bool
	err := q.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM daily_resets WHERE day = ?)`, day).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check reset marker: %w", err)
	}
	return exists, nil
}

func (r *StreakRepository) scanRecord(row rowScanner) (*streak.Record, error) {
	var rec streak.Record
	var lastSubmission string

	err := row.Scan(
		&rec.UserID,
		&rec.GuildID,
		&rec.Streak,
		&rec.MaxStreak,
		&lastSubmission,
		&rec.HasPostedToday,
		&rec.Timezone,
		&rec.XP,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, shared.ErrRecordNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan record: %w", err)
	}

	rec.LastSubmission = r.opts.ParseTime(lastSubmission)
	return &rec, nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
