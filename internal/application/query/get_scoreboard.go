package query

import (
	"context"
	"fmt"
	"strconv"

	"github.com/dailydraw/streak-bot/internal/domain/notification"
	"github.com/dailydraw/streak-bot/internal/domain/shared"
	"github.com/dailydraw/streak-bot/internal/domain/streak"
	"github.com/dailydraw/streak-bot/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET SCOREBOARD QUERY
// Returns the top standings of a guild by best streak, with display names.
// Results are cached per guild until the next mutation of that guild.
// ══════════════════════════════════════════════════════════════════════════════

// DefaultScoreboardSize is the number of standings shown.
const DefaultScoreboardSize = 10

// MaxScoreboardSize caps a requested limit.
const MaxScoreboardSize = 100

// GetScoreboardQuery selects the guild and size.
type GetScoreboardQuery struct {
	GuildID int64

	// Limit defaults to the handler's configured size.
	Limit int
}

// ScoreboardDTO is a ranked list of standings.
type ScoreboardDTO struct {
	GuildID   int64             `json:"guild_id"`
	Limit     int               `json:"limit"`
	Standings []streak.Standing `json:"standings"`
	FromCache bool              `json:"from_cache"`
}

// GetScoreboardHandler handles the GetScoreboardQuery.
type GetScoreboardHandler struct {
	repo        streak.Repository
	cache       streak.ScoreboardCache
	directory   notification.Directory
	defaultSize int
}

// NewGetScoreboardHandler creates a new GetScoreboardHandler. directory may
// be nil, in which case user ids are shown instead of names.
func NewGetScoreboardHandler(
	repo streak.Repository,
	cache streak.ScoreboardCache,
	directory notification.Directory,
	defaultSize int,
) *GetScoreboardHandler {
	if cache == nil {
		cache = streak.NopScoreboardCache{}
	}
	if defaultSize <= 0 {
		defaultSize = DefaultScoreboardSize
	}
	return &GetScoreboardHandler{
		repo:        repo,
		cache:       cache,
		directory:   directory,
		defaultSize: defaultSize,
	}
}

// Handle executes the query.
func (h *GetScoreboardHandler) Handle(ctx context.Context, q GetScoreboardQuery) (*ScoreboardDTO, error) {
	if q.GuildID <= 0 {
		return nil, fmt.Errorf("get_scoreboard: %w", shared.ErrInvalidGuildID)
	}

	limit := q.Limit
	if limit <= 0 {
		limit = h.defaultSize
	}
	if limit > MaxScoreboardSize {
		limit = MaxScoreboardSize
	}

	log := logger.FromContext(ctx).With(logger.GuildID(q.GuildID))

	standings, generation, found, err := h.cache.Get(ctx, q.GuildID, limit)
	if err != nil {
		log.Warn("scoreboard cache read failed", logger.Err(err))
	}
	if found {
		return &ScoreboardDTO{GuildID: q.GuildID, Limit: limit, Standings: standings, FromCache: true}, nil
	}

	records, err := h.repo.Top(ctx, q.GuildID, limit)
	if err != nil {
		return nil, fmt.Errorf("get_scoreboard: %w", err)
	}

	standings = streak.NewStandings(records)
	for i := range standings {
		standings[i].DisplayName = h.displayName(ctx, log, q.GuildID, standings[i].UserID)
	}

	// A mutation during the lookups advances the generation and the write
	// is dropped.
	if err := h.cache.Set(ctx, q.GuildID, limit, generation, standings); err != nil {
		log.Warn("scoreboard cache write failed", logger.Err(err))
	}

	return &ScoreboardDTO{GuildID: q.GuildID, Limit: limit, Standings: standings}, nil
}

func (h *GetScoreboardHandler) displayName(ctx context.Context, log *logger.Logger, guildID, userID int64) string {
	if h.directory != nil {
		name, err := h.directory.DisplayName(ctx, guildID, userID)
		if err == nil && name != "" {
			return name
		}
		if err != nil && !shared.IsNotFound(err) {
			log.Debug("display name lookup failed", logger.UserID(userID), logger.Err(err))
		}
	}
	return strconv.FormatInt(userID, 10)
}
