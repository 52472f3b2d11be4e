// Package streak contains the domain model of daily posting streaks.
// A record tracks one user in one guild: the current and best streak,
// accumulated XP, and whether the user has already posted since the last reset.
package streak

import (
	"fmt"
	"time"

	"github.com/dailydraw/streak-bot/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// CONSTANTS
// ══════════════════════════════════════════════════════════════════════════════

const (
	// DefaultBaseXP is awarded for each qualifying day.
	DefaultBaseXP = 10

	// DefaultTimezone is the legacy per-user timezone column value.
	// It is persisted for compatibility and never read.
	DefaultTimezone = 1
)

// ══════════════════════════════════════════════════════════════════════════════
// VALUE OBJECTS
// ══════════════════════════════════════════════════════════════════════════════

// Key identifies a record: one per user per guild.
type Key struct {
	UserID  int64
	GuildID int64
}

// NewKey creates a validated key.
func NewKey(userID, guildID int64) (Key, error) {
	if userID <= 0 {
		return Key{}, shared.ErrInvalidUserID
	}
	if guildID <= 0 {
		return Key{}, shared.ErrInvalidGuildID
	}
	return Key{UserID: userID, GuildID: guildID}, nil
}

// String returns the lock key for the record.
func (k Key) String() string {
	return fmt.Sprintf("%d:%d", k.GuildID, k.UserID)
}

// Outcome is the result of a submission.
type Outcome int

const (
	// OutcomeWelcomed - first qualifying post, record created.
	OutcomeWelcomed Outcome = iota + 1
	// OutcomeAlreadyPosted - user already posted since the last reset, nothing changed.
	OutcomeAlreadyPosted
	// OutcomeAwarded - streak extended and XP awarded.
	OutcomeAwarded
)

// String returns the outcome name for logs.
func (o Outcome) String() string {
	switch o {
	case OutcomeWelcomed:
		return "welcomed"
	case OutcomeAlreadyPosted:
		return "already_posted"
	case OutcomeAwarded:
		return "awarded"
	default:
		return "unknown"
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// RECORD ENTITY
// ══════════════════════════════════════════════════════════════════════════════

// Record is the streak state of one user in one guild.
type Record struct {
	UserID         int64
	GuildID        int64
	Streak         int
	MaxStreak      int
	LastSubmission time.Time
	HasPostedToday bool
	Timezone       int
	XP             int
}

// NewRecord creates the record for a user's first qualifying post.
func NewRecord(key Key, now time.Time, baseXP int) *Record {
	return &Record{
		UserID:         key.UserID,
		GuildID:        key.GuildID,
		Streak:         1,
		MaxStreak:      1,
		LastSubmission: now,
		HasPostedToday: true,
		Timezone:       DefaultTimezone,
		XP:             baseXP,
	}
}

// Key returns the record's identity.
func (r *Record) Key() Key {
	return Key{UserID: r.UserID, GuildID: r.GuildID}
}

// Clone returns an independent copy.
func (r *Record) Clone() *Record {
	c := *r
	return &c
}

// Submit applies a qualifying post. It returns OutcomeAlreadyPosted without
// touching the record when the user has posted since the last reset.
func (r *Record) Submit(now time.Time, baseXP int) Outcome {
	if r.HasPostedToday {
		return OutcomeAlreadyPosted
	}

	r.XP += baseXP
	r.LastSubmission = now
	r.Streak++
	if r.Streak > r.MaxStreak {
		r.MaxStreak = r.Streak
	}
	r.HasPostedToday = true

	return OutcomeAwarded
}

// SetXP overwrites the XP total.
func (r *Record) SetXP(amount int) error {
	if amount < 0 {
		return shared.ErrNegativeAmount
	}
	r.XP = amount
	return nil
}

// SetStreak overwrites the current streak, raising MaxStreak when exceeded.
func (r *Record) SetStreak(amount int) error {
	if amount < 0 {
		return shared.ErrNegativeAmount
	}
	r.Streak = amount
	if r.Streak > r.MaxStreak {
		r.MaxStreak = r.Streak
	}
	return nil
}

// MarkSafe protects the streak from the next reset.
func (r *Record) MarkSafe() {
	r.HasPostedToday = true
}

// RollOver applies the daily reset to a single record and reports
// whether the streak was kept.
func (r *Record) RollOver() bool {
	if r.HasPostedToday {
		r.HasPostedToday = false
		return true
	}
	r.Streak = 0
	return false
}

// Validate checks the record invariants.
func (r *Record) Validate() error {
	if r.UserID <= 0 {
		return shared.ErrInvalidUserID
	}
	if r.GuildID <= 0 {
		return shared.ErrInvalidGuildID
	}
	if r.Streak < 0 || r.XP < 0 {
		return shared.ErrNegativeAmount
	}
	if r.MaxStreak < r.Streak {
		return shared.NewDomainError("streak", "Validate", shared.ErrInvalidState, "max streak below current streak")
	}
	return nil
}

// Result is what a submission produced.
type Result struct {
	Outcome Outcome
	Record  *Record
}
