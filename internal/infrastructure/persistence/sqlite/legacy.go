package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"

	"github.com/dailydraw/streak-bot/internal/domain/streak"
	"github.com/dailydraw/streak-bot/internal/infrastructure/persistence"
)

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]{0,63}$`)

// ValidateTableName rejects anything that is not a plain SQL identifier.
// The legacy table name comes from configuration and ends up in query text.
func ValidateTableName(name string) error {
	if !identifierPattern.MatchString(name) {
		return fmt.Errorf("invalid table name %q", name)
	}
	return nil
}

// LegacyReader reads records from a database written by the previous bot:
// one table with columns user, streak, max_streak, last_submission,
// has_posted_today, timezone, xp, guild and no primary key.
type LegacyReader struct {
	db    *sql.DB
	table string
	opts  persistence.Options
}

// OpenLegacy opens a legacy database read-only.
func OpenLegacy(path, table string, opts persistence.Options) (*LegacyReader, error) {
	if err := ValidateTableName(table); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite3", "file:"+path+"?mode=ro")
	if err != nil {
		return nil, fmt.Errorf("failed to open legacy database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to legacy database: %w", err)
	}

	return &LegacyReader{db: db, table: table, opts: opts.Normalize()}, nil
}

// Close closes the legacy database.
func (l *LegacyReader) Close() error {
	return l.db.Close()
}

// ReadAll returns every row as a record. Rows for the same (user, guild)
// collapse into the last one read. Negative values are clamped to zero and
// max_streak is raised to streak where the old data broke that rule.
func (l *LegacyReader) ReadAll(ctx context.Context) ([]*streak.Record, error) {
	query := fmt.Sprintf(
		`SELECT "user", streak, max_streak, last_submission, has_posted_today, timezone, xp, guild FROM "%s" ORDER BY rowid`,
		l.table,
	)

	rows, err := l.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to read legacy table %s: %w", l.table, err)
	}
	defer rows.Close()

	byKey := make(map[streak.Key]*streak.Record)
	var order []streak.Key

	for rows.Next() {
		var (
			userID, guildID            sql.NullInt64
			cur, maxStreak, posted, tz sql.NullInt64
			xp                         sql.NullInt64
			lastSubmission             sql.NullString
		)
		if err := rows.Scan(&userID, &cur, &maxStreak, &lastSubmission, &posted, &tz, &xp, &guildID); err != nil {
			return nil, fmt.Errorf("failed to scan legacy row: %w", err)
		}
		if !userID.Valid || !guildID.Valid || userID.Int64 <= 0 || guildID.Int64 <= 0 {
			continue
		}

		rec := &streak.Record{
			UserID:         userID.Int64,
			GuildID:        guildID.Int64,
			Streak:         clamp(cur),
			MaxStreak:      clamp(maxStreak),
			LastSubmission: l.opts.ParseTime(lastSubmission.String),
			HasPostedToday: posted.Valid && posted.Int64 != 0,
			Timezone:       streak.DefaultTimezone,
			XP:             clamp(xp),
		}
		if tz.Valid {
			rec.Timezone = int(tz.Int64)
		}
		if rec.MaxStreak < rec.Streak {
			rec.MaxStreak = rec.Streak
		}

		key := rec.Key()
		if _, seen := byKey[key]; !seen {
			order = append(order, key)
		}
		byKey[key] = rec
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate legacy rows: %w", err)
	}

	records := make([]*streak.Record, 0, len(order))
	for _, key := range order {
		records = append(records, byKey[key])
	}
	return records, nil
}

func clamp(v sql.NullInt64) int {
	if !v.Valid || v.Int64 < 0 {
		return 0
	}
	return int(v.Int64)
}
