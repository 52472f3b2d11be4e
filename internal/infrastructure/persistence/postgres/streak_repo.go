package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/dailydraw/streak-bot/internal/domain/shared"
	"github.com/dailydraw/streak-bot/internal/domain/streak"
	"github.com/dailydraw/streak-bot/internal/infrastructure/persistence"
)

// resetLockID keys the advisory lock that serializes daily resets across processes.
const resetLockID int64 = 0x5354524b // "STRK"

const recordColumns = `user_id, guild_id, streak, max_streak, last_submission, has_posted_today, timezone, xp`

// ══════════════════════════════════════════════════════════════════════════════
// STREAK REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// StreakRepository implements streak.Repository for PostgreSQL.
type StreakRepository struct {
	conn *Connection
	opts persistence.Options
}

// NewStreakRepository creates a new StreakRepository.
func NewStreakRepository(conn *Connection, opts persistence.Options) *StreakRepository {
	return &StreakRepository{conn: conn, opts: opts.Normalize()}
}

var _ streak.Repository = (*StreakRepository)(nil)

// ─────────────────────────────────────────────────────────────────────────────
// Records
// ─────────────────────────────────────────────────────────────────────────────

// Find returns a record by key.
func (r *StreakRepository) Find(ctx context.Context, key streak.Key) (*streak.Record, error) {
	ctx, cancel := r.opts.WithTimeout(ctx)
	defer cancel()

	query := `SELECT ` + recordColumns + ` FROM streaks WHERE user_id = $1 AND guild_id = $2`

	rec, err := r.scanRecord(r.conn.QueryRow(ctx, query, key.UserID, key.GuildID))
	if err != nil {
		return nil, persistence.StoreError("Find", err)
	}
	return rec, nil
}

// Update reads the row with FOR UPDATE, applies fn and writes the result in
// the same transaction.
func (r *StreakRepository) Update(ctx context.Context, key streak.Key, fn streak.Mutation) (*streak.Record, error) {
	ctx, cancel := r.opts.WithTimeout(ctx)
	defer cancel()

	var result *streak.Record
	err := r.conn.WithTx(ctx, DefaultTxOptions(), func(tx pgx.Tx) error {
		query := `SELECT ` + recordColumns + ` FROM streaks WHERE user_id = $1 AND guild_id = $2 FOR UPDATE`

		current, err := r.scanRecord(tx.QueryRow(ctx, query, key.UserID, key.GuildID))
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

func (r *StreakRepository) insert(ctx context.Context, q Querier, rec *streak.Record) error {
	query := `
		INSERT INTO streaks (` + recordColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := q.Exec(ctx, query,
		rec.UserID,
		rec.GuildID,
		rec.Streak,
		rec.MaxStreak,
		r.opts.FormatTime(rec.LastSubmission),
		rec.HasPostedToday,
		rec.Timezone,
		rec.XP,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return persistence.ConflictError(err)
		}
		return fmt.Errorf("failed to insert record: %w", err)
	}

	return nil
}

func (r *StreakRepository) update(ctx context.Context, q Querier, rec *streak.Record) error {
	query := `
		UPDATE streaks SET
			streak = $3,
			max_streak = $4,
			last_submission = $5,
			has_posted_today = $6,
			timezone = $7,
			xp = $8
		WHERE user_id = $1 AND guild_id = $2
	`

	_, err := q.Exec(ctx, query,
		rec.UserID,
		rec.GuildID,
		rec.Streak,
		rec.MaxStreak,
		r.opts.FormatTime(rec.LastSubmission),
		rec.HasPostedToday,
		rec.Timezone,
		rec.XP,
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

	query := `
		SELECT ` + recordColumns + `
		FROM streaks
		WHERE guild_id = $1
		ORDER BY max_streak DESC, xp DESC, user_id ASC
		LIMIT $2
	`

	rows, err := r.conn.Query(ctx, query, guildID, limit)
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
	query := `
		INSERT INTO streaks (` + recordColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (user_id, guild_id) DO UPDATE SET
			streak = EXCLUDED.streak,
			max_streak = GREATEST(EXCLUDED.max_streak, EXCLUDED.streak),
			last_submission = EXCLUDED.last_submission,
			has_posted_today = EXCLUDED.has_posted_today,
			timezone = EXCLUDED.timezone,
			xp = EXCLUDED.xp
	`

	imported := 0
	err := r.conn.WithTx(ctx, DefaultTxOptions(), func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		for _, rec := range records {
			batch.Queue(query,
				rec.UserID,
				rec.GuildID,
				rec.Streak,
				rec.MaxStreak,
				r.opts.FormatTime(rec.LastSubmission),
				rec.HasPostedToday,
				rec.Timezone,
				rec.XP,
			)
		}

		results := tx.SendBatch(ctx, batch)
		for range records {
			if _, err := results.Exec(); err != nil {
				_ = results.Close()
				return fmt.Errorf("failed to import record: %w", err)
			}
			imported++
		}
		return results.Close()
	})
	if err != nil {
		return 0, persistence.StoreError("Import", err)
	}

	return imported, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Daily reset
// ─────────────────────────────────────────────────────────────────────────────

// Reset applies the rollover to every record and stores the day marker.
// The advisory lock keeps two processes from resetting at once; the row
// locks taken by UPDATE serialize it against in-flight submissions.
func (r *StreakRepository) Reset(ctx context.Context, req streak.ResetRequest) (*streak.ResetSummary, error) {
	summary := &streak.ResetSummary{
		Day:       req.Day,
		RunID:     req.RunID,
		Forced:    req.Force,
		AppliedAt: req.AppliedAt,
	}

	err := r.conn.WithTx(ctx, DefaultTxOptions(), func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, resetLockID); err != nil {
			return fmt.Errorf("failed to acquire reset lock: %w", err)
		}

		var exists bool
		err := tx.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM daily_resets WHERE day = $1)`, req.Day).Scan(&exists)
		if err != nil {
			return fmt.Errorf("failed to check reset marker: %w", err)
		}
		if exists && !req.Force {
			summary.Skipped = true
			return nil
		}

		tag, err := tx.Exec(ctx, `UPDATE streaks SET streak = 0 WHERE has_posted_today = FALSE`)
		if err != nil {
			return fmt.Errorf("failed to zero missed streaks: %w", err)
		}
		summary.Missed = int(tag.RowsAffected())

		tag, err = tx.Exec(ctx, `UPDATE streaks SET has_posted_today = FALSE WHERE has_posted_today = TRUE`)
		if err != nil {
			return fmt.Errorf("failed to clear posted flags: %w", err)
		}
		summary.Kept = int(tag.RowsAffected())
		summary.Total = summary.Missed + summary.Kept

		_, err = tx.Exec(ctx, `
			INSERT INTO daily_resets (day, run_id, forced, total, kept, missed, applied_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (day) DO UPDATE SET
				run_id = EXCLUDED.run_id,
				forced = EXCLUDED.forced,
				total = EXCLUDED.total,
				kept = EXCLUDED.kept,
				missed = EXCLUDED.missed,
				applied_at = EXCLUDED.applied_at
		`, req.Day, req.RunID, req.Force, summary.Total, summary.Kept, summary.Missed, req.AppliedAt)
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

	var exists bool
	err := r.conn.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM daily_resets WHERE day = $1)`, day).Scan(&exists)
	if err != nil {
		return false, persistence.StoreError("ResetApplied", err)
	}
	return exists, nil
}

// Ping checks connectivity.
func (r *StreakRepository) Ping(ctx context.Context) error {
	ctx, cancel := r.opts.WithTimeout(ctx)
	defer cancel()

	return persistence.StoreError("Ping", r.conn.Ping(ctx))
}

// ══════════════════════════════════════════════════════════════════════════════
// HELPER METHODS
// ══════════════════════════════════════════════════════════════════════════════

// scanRecord scans a single record from a row.
func (r *StreakRepository) scanRecord(row pgx.Row) (*streak.Record, error) {
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
	if IsNoRows(err) {
		return nil, shared.ErrRecordNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan record: %w", err)
	}

	rec.LastSubmission = r.opts.ParseTime(lastSubmission)
	return &rec, nil
}
