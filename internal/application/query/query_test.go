package query

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dailydraw/streak-bot/internal/application/command"
	"github.com/dailydraw/streak-bot/internal/domain/notification/notificationtest"
	"github.com/dailydraw/streak-bot/internal/domain/shared"
	"github.com/dailydraw/streak-bot/internal/domain/streak"
	"github.com/dailydraw/streak-bot/internal/domain/streak/streaktest"
	"github.com/dailydraw/streak-bot/pkg/keymutex"
)

const guild int64 = 42

func TestGetScore_ExistingRecord(t *testing.T) {
	repo := streaktest.NewRepository(&streak.Record{
		UserID: 7, GuildID: guild, Streak: 3, MaxStreak: 5, XP: 80, HasPostedToday: true, Timezone: 1,
	})

	dto, err := NewGetScoreHandler(repo).Handle(context.Background(), GetScoreQuery{UserID: 7, GuildID: guild})
	require.NoError(t, err)

	assert.Equal(t, &ScoreDTO{
		UserID: 7, GuildID: guild, XP: 80, Streak: 3, MaxStreak: 5, HasPostedToday: true, Exists: true,
	}, dto)
}

func TestGetScore_AbsentRecordYieldsZeroes(t *testing.T) {
	dto, err := NewGetScoreHandler(streaktest.NewRepository()).Handle(context.Background(), GetScoreQuery{UserID: 7, GuildID: guild})
	require.NoError(t, err)

	assert.False(t, dto.Exists)
	assert.Zero(t, dto.XP)
	assert.Zero(t, dto.Streak)
	assert.False(t, dto.HasPostedToday)
}

func TestGetScore_StoreFailure(t *testing.T) {
	repo := streaktest.NewRepository()
	repo.Err = shared.StoreUnavailable("Find", errors.New("timeout"))

	_, err := NewGetScoreHandler(repo).Handle(context.Background(), GetScoreQuery{UserID: 7, GuildID: guild})
	assert.True(t, shared.IsStoreUnavailable(err))
}

func scoreboardRepo() *streaktest.Repository {
	repo := streaktest.NewRepository()
	for i := int64(1); i <= 12; i++ {
		repo.Put(&streak.Record{UserID: i, GuildID: guild, Streak: 1, MaxStreak: int(i), XP: int(i) * 10, Timezone: 1})
	}
	repo.Put(&streak.Record{UserID: 99, GuildID: 7, Streak: 50, MaxStreak: 50, XP: 500, Timezone: 1})
	return repo
}

func TestGetScoreboard_TopTenByMaxStreak(t *testing.T) {
	dir := &notificationtest.Directory{Members: []notificationtest.Member{{GuildID: guild, UserID: 12, Name: "ana"}}}
	h := NewGetScoreboardHandler(scoreboardRepo(), nil, dir, 10)

	dto, err := h.Handle(context.Background(), GetScoreboardQuery{GuildID: guild})
	require.NoError(t, err)

	require.Len(t, dto.Standings, 10)
	assert.Equal(t, 10, dto.Limit)
	for i, s := range dto.Standings {
		assert.Equal(t, i+1, s.Rank)
		assert.Equal(t, int64(12-i), s.UserID)
	}
	assert.Equal(t, "ana", dto.Standings[0].DisplayName)
	assert.Equal(t, "11", dto.Standings[1].DisplayName)
}

func TestGetScoreboard_TieBreaks(t *testing.T) {
	repo := streaktest.NewRepository(
		&streak.Record{UserID: 3, GuildID: guild, MaxStreak: 4, XP: 40, Timezone: 1},
		&streak.Record{UserID: 1, GuildID: guild, MaxStreak: 4, XP: 40, Timezone: 1},
		&streak.Record{UserID: 2, GuildID: guild, MaxStreak: 4, XP: 60, Timezone: 1},
	)

	dto, err := NewGetScoreboardHandler(repo, nil, nil, 10).Handle(context.Background(), GetScoreboardQuery{GuildID: guild})
	require.NoError(t, err)

	ids := []int64{}
	for _, s := range dto.Standings {
		ids = append(ids, s.UserID)
	}
	assert.Equal(t, []int64{2, 1, 3}, ids)
}

func TestGetScoreboard_UsesCache(t *testing.T) {
	repo := scoreboardRepo()
	cache := streaktest.NewCache()
	h := NewGetScoreboardHandler(repo, cache, nil, 3)
	ctx := context.Background()

	first, err := h.Handle(ctx, GetScoreboardQuery{GuildID: guild})
	require.NoError(t, err)
	assert.False(t, first.FromCache)

	repo.Err = errors.New("store must not be read")
	second, err := h.Handle(ctx, GetScoreboardQuery{GuildID: guild})
	require.NoError(t, err)
	assert.True(t, second.FromCache)
	assert.Equal(t, first.Standings, second.Standings)

	require.NoError(t, cache.Invalidate(ctx, guild))
	_, err = h.Handle(ctx, GetScoreboardQuery{GuildID: guild})
	assert.Error(t, err)
}

// gatedDirectory blocks every name lookup until release is closed.
type gatedDirectory struct {
	notificationtest.Directory
	once    sync.Once
	entered chan struct{}
	release chan struct{}
}

func (d *gatedDirectory) DisplayName(ctx context.Context, guildID, userID int64) (string, error) {
	d.once.Do(func() { close(d.entered) })
	<-d.release
	return d.Directory.DisplayName(ctx, guildID, userID)
}

func TestGetScoreboard_SubmissionDuringLookupIsNotHiddenByCache(t *testing.T) {
	repo := streaktest.NewRepository(&streak.Record{UserID: 1, GuildID: guild, Streak: 1, MaxStreak: 1, XP: 10, Timezone: 1})
	cache := streaktest.NewCache()
	dir := &gatedDirectory{entered: make(chan struct{}), release: make(chan struct{})}
	h := NewGetScoreboardHandler(repo, cache, dir, 10)
	submissions := command.NewProcessSubmissionHandler(repo, keymutex.New(), cache, command.ProcessSubmissionConfig{BaseXP: 10})
	ctx := context.Background()

	done := make(chan *ScoreboardDTO)
	go func() {
		dto, err := h.Handle(ctx, GetScoreboardQuery{GuildID: guild})
		assert.NoError(t, err)
		done <- dto
	}()

	<-dir.entered
	_, err := submissions.Handle(ctx, command.ProcessSubmissionCommand{UserID: 2, GuildID: guild})
	require.NoError(t, err)
	close(dir.release)

	stale := <-done
	require.NotNil(t, stale)
	assert.Len(t, stale.Standings, 1)
	assert.Equal(t, 1, cache.RejectedSets())

	fresh, err := h.Handle(ctx, GetScoreboardQuery{GuildID: guild})
	require.NoError(t, err)
	assert.False(t, fresh.FromCache)
	assert.Len(t, fresh.Standings, 2)

	cached, err := h.Handle(ctx, GetScoreboardQuery{GuildID: guild})
	require.NoError(t, err)
	assert.True(t, cached.FromCache)
	assert.Len(t, cached.Standings, 2)
}

func TestGetScoreboard_EmptyGuild(t *testing.T) {
	dto, err := NewGetScoreboardHandler(streaktest.NewRepository(), nil, nil, 0).Handle(context.Background(), GetScoreboardQuery{GuildID: guild})
	require.NoError(t, err)
	assert.Empty(t, dto.Standings)
	assert.Equal(t, DefaultScoreboardSize, dto.Limit)
}

func TestGetScoreboard_InvalidGuild(t *testing.T) {
	_, err := NewGetScoreboardHandler(streaktest.NewRepository(), nil, nil, 10).Handle(context.Background(), GetScoreboardQuery{})
	assert.ErrorIs(t, err, shared.ErrInvalidGuildID)
}
