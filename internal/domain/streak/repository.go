package streak

import (
	"context"
	"sort"
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// REPOSITORY INTERFACE
// ══════════════════════════════════════════════════════════════════════════════

// Mutation computes the next state of a record inside a store transaction.
// current is nil when no record exists yet. Returning a nil record skips the
// write; returning an error rolls the transaction back.
type Mutation func(current *Record) (*Record, error)

// Repository persists streak records.
// Implementations live in the infrastructure layer (PostgreSQL, SQLite).
type Repository interface {
	// Find returns the record or shared.ErrRecordNotFound.
	Find(ctx context.Context, key Key) (*Record, error)

	// Update runs fn against the row-locked current record and writes its
	// result in the same transaction. A lost insert race surfaces as
	// shared.ErrConcurrentModification.
	Update(ctx context.Context, key Key, fn Mutation) (*Record, error)

	// Top returns up to limit records of a guild in scoreboard order.
	Top(ctx context.Context, guildID int64, limit int) ([]*Record, error)

	// Reset applies the daily rollover to every record in one transaction and
	// stores the day marker. Without Force a day that already has a marker
	// is skipped.
	Reset(ctx context.Context, req ResetRequest) (*ResetSummary, error)

	// ResetApplied reports whether the day already has a reset marker.
	ResetApplied(ctx context.Context, day string) (bool, error)

	// Ping checks store connectivity.
	Ping(ctx context.Context) error
}

// Locker serializes work on a single record.
type Locker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

// ══════════════════════════════════════════════════════════════════════════════
// DAILY RESET
// ══════════════════════════════════════════════════════════════════════════════

// ResetRequest describes one reset run.
type ResetRequest struct {
	Day       string // "YYYY-MM-DD" in the configured timezone
	RunID     string
	Force     bool
	AppliedAt time.Time
}

// ResetSummary reports what a reset run did.
type ResetSummary struct {
	Day       string
	RunID     string
	Total     int
	Kept      int
	Missed    int
	Skipped   bool
	Forced    bool
	AppliedAt time.Time
}

// ══════════════════════════════════════════════════════════════════════════════
// SCOREBOARD ORDER
// ══════════════════════════════════════════════════════════════════════════════

// Less reports whether a ranks above b: max streak desc, then xp desc,
// then user id asc.
func Less(a, b *Record) bool {
	if a.MaxStreak != b.MaxStreak {
		return a.MaxStreak > b.MaxStreak
	}
	if a.XP != b.XP {
		return a.XP > b.XP
	}
	return a.UserID < b.UserID
}

// SortForScoreboard sorts records in place in scoreboard order.
func SortForScoreboard(records []*Record) {
	sort.SliceStable(records, func(i, j int) bool {
		return Less(records[i], records[j])
	})
}

// Standing is a ranked scoreboard entry.
type Standing struct {
	Rank        int    `json:"rank"`
	UserID      int64  `json:"user_id"`
	DisplayName string `json:"display_name"`
	Streak      int    `json:"streak"`
	MaxStreak   int    `json:"max_streak"`
	XP          int    `json:"xp"`
}

// NewStandings ranks already-ordered records starting from 1.
func NewStandings(records []*Record) []Standing {
	standings := make([]Standing, 0, len(records))
	for i, r := range records {
		standings = append(standings, Standing{
			Rank:      i + 1,
			UserID:    r.UserID,
			Streak:    r.Streak,
			MaxStreak: r.MaxStreak,
			XP:        r.XP,
		})
	}
	return standings
}

// ScoreboardCache keeps rendered standings per guild between mutations.
//
// Every guild has a generation that Invalidate and InvalidateAll advance. A
// reader takes the generation from Get and passes it back to Set, so standings
// computed before an invalidation are never stored after it.
type ScoreboardCache interface {
	// Get returns cached standings and the current generation of the guild;
	// found is false on a miss.
	Get(ctx context.Context, guildID int64, limit int) (standings []Standing, generation int64, found bool, err error)

	// Set stores standings for a guild unless its generation moved past
	// generation since the matching Get.
	Set(ctx context.Context, guildID int64, limit int, generation int64, standings []Standing) error

	// Invalidate drops every cached scoreboard of a guild.
	Invalidate(ctx context.Context, guildID int64) error

	// InvalidateAll drops every cached scoreboard.
	InvalidateAll(ctx context.Context) error
}

// NopScoreboardCache never caches. Used when Redis is disabled.
type NopScoreboardCache struct{}

func (NopScoreboardCache) Get(context.Context, int64, int) ([]Standing, int64, bool, error) {
	return nil, 0, false, nil
}
func (NopScoreboardCache) Set(context.Context, int64, int, int64, []Standing) error { return nil }
func (NopScoreboardCache) Invalidate(context.Context, int64) error                  { return nil }
func (NopScoreboardCache) InvalidateAll(context.Context) error                      { return nil }
