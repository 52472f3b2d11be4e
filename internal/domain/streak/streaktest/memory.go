// Package streaktest provides in-memory doubles of the streak ports for
// tests of the layers above the record store.
package streaktest

import (
	"context"
	"sync"

	"github.com/dailydraw/streak-bot/internal/domain/shared"
	"github.com/dailydraw/streak-bot/internal/domain/streak"
)

// Repository is a streak.Repository backed by a map. Update holds one mutex
// for the whole read-modify-write, like a row lock.
type Repository struct {
	mu      sync.Mutex
	records map[streak.Key]*streak.Record
	markers map[string]streak.ResetSummary

	// Err, when set, is returned by every call.
	Err error

	// BeforeUpdate runs at the start of Update. Returning an error aborts
	// the call, which lets tests inject lost races.
	BeforeUpdate func(r *Repository, key streak.Key) error

	UpdateCalls int
	ResetCalls  int
}

var _ streak.Repository = (*Repository)(nil)

// NewRepository creates a repository seeded with records.
func NewRepository(records ...*streak.Record) *Repository {
	r := &Repository{
		records: make(map[streak.Key]*streak.Record),
		markers: make(map[string]streak.ResetSummary),
	}
	for _, rec := range records {
		r.records[rec.Key()] = rec.Clone()
	}
	return r
}

// Put stores a record directly.
func (r *Repository) Put(rec *streak.Record) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records[rec.Key()] = rec.Clone()
}

// Get returns a copy of a record, or nil.
func (r *Repository) Get(key streak.Key) *streak.Record {
	r.mu.Lock()
	defer r.mu.Unlock()
	if rec, ok := r.records[key]; ok {
		return rec.Clone()
	}
	return nil
}

// Len returns the number of records.
func (r *Repository) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.records)
}

// MarkDay stores a reset marker without touching records.
func (r *Repository) MarkDay(day string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.markers[day] = streak.ResetSummary{Day: day}
}

func (r *Repository) Find(ctx context.Context, key streak.Key) (*streak.Record, error) {
	if err := r.check(ctx); err != nil {
		return nil, err
	}
	if rec := r.Get(key); rec != nil {
		return rec, nil
	}
	return nil, shared.ErrRecordNotFound
}

func (r *Repository) Update(ctx context.Context, key streak.Key, fn streak.Mutation) (*streak.Record, error) {
	r.mu.Lock()
	r.UpdateCalls++
	hook := r.BeforeUpdate
	r.mu.Unlock()

	if hook != nil {
		if err := hook(r, key); err != nil {
			return nil, err
		}
	}
	if err := r.check(ctx); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.records[key]
	var input *streak.Record
	if ok {
		input = current.Clone()
	}

	next, err := fn(input)
	if err != nil {
		return nil, err
	}
	if next == nil {
		if !ok {
			return nil, nil
		}
		return current.Clone(), nil
	}
	if err := next.Validate(); err != nil {
		return nil, err
	}

	r.records[key] = next.Clone()
	return next.Clone(), nil
}

func (r *Repository) Top(ctx context.Context, guildID int64, limit int) ([]*streak.Record, error) {
	if err := r.check(ctx); err != nil {
		return nil, err
	}

	r.mu.Lock()
	var out []*streak.Record
	for _, rec := range r.records {
		if rec.GuildID == guildID {
			out = append(out, rec.Clone())
		}
	}
	r.mu.Unlock()

	streak.SortForScoreboard(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *Repository) Reset(ctx context.Context, req streak.ResetRequest) (*streak.ResetSummary, error) {
	if err := r.check(ctx); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.ResetCalls++

	summary := streak.ResetSummary{
		Day:       req.Day,
		RunID:     req.RunID,
		Forced:    req.Force,
		AppliedAt: req.AppliedAt,
	}
	if _, done := r.markers[req.Day]; done && !req.Force {
		summary.Skipped = true
		return &summary, nil
	}

	for _, rec := range r.records {
		if rec.RollOver() {
			summary.Kept++
		} else {
			summary.Missed++
		}
	}
	summary.Total = summary.Kept + summary.Missed
	r.markers[req.Day] = summary

	return &summary, nil
}

func (r *Repository) ResetApplied(ctx context.Context, day string) (bool, error) {
	if err := r.check(ctx); err != nil {
		return false, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.markers[day]
	return ok, nil
}

func (r *Repository) Ping(ctx context.Context) error {
	return r.check(ctx)
}

func (r *Repository) check(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return shared.StoreUnavailable("memory", err)
	}
	if r.Err != nil {
		return r.Err
	}
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// SCOREBOARD CACHE
// ══════════════════════════════════════════════════════════════════════════════

// Cache is a streak.ScoreboardCache that records invalidations. Generations
// follow the Redis implementation: a global counter plus one per guild.
type Cache struct {
	mu          sync.Mutex
	entries     map[int64][]streak.Standing
	generations map[int64]int64
	global      int64
	Invalidated []int64
	Flushes     int
	Rejected    int
}

var _ streak.ScoreboardCache = (*Cache)(nil)

// NewCache creates an empty cache.
func NewCache() *Cache {
	return &Cache{
		entries:     make(map[int64][]streak.Standing),
		generations: make(map[int64]int64),
	}
}

func (c *Cache) Get(_ context.Context, guildID int64, _ int) ([]streak.Standing, int64, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.entries[guildID]
	return s, c.generation(guildID), ok, nil
}

func (c *Cache) Set(_ context.Context, guildID int64, _ int, generation int64, standings []streak.Standing) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if generation != c.generation(guildID) {
		c.Rejected++
		return nil
	}
	c.entries[guildID] = standings
	return nil
}

func (c *Cache) Invalidate(_ context.Context, guildID int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, guildID)
	c.generations[guildID]++
	c.Invalidated = append(c.Invalidated, guildID)
	return nil
}

func (c *Cache) InvalidateAll(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[int64][]streak.Standing)
	c.global++
	c.Flushes++
	return nil
}

func (c *Cache) generation(guildID int64) int64 {
	return c.global + c.generations[guildID]
}

// RejectedSets returns how many writes carried an outdated generation.
func (c *Cache) RejectedSets() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Rejected
}

// InvalidationCount returns how many guild invalidations happened.
func (c *Cache) InvalidationCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.Invalidated)
}
