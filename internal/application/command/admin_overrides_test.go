package command

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dailydraw/streak-bot/internal/domain/access"
	"github.com/dailydraw/streak-bot/internal/domain/notification/notificationtest"
	"github.com/dailydraw/streak-bot/internal/domain/shared"
	"github.com/dailydraw/streak-bot/internal/domain/streak"
	"github.com/dailydraw/streak-bot/internal/domain/streak/streaktest"
	"github.com/dailydraw/streak-bot/pkg/keymutex"
)

var admin = access.NewSet(access.AllCapabilities...)

func adminFixture() (*streaktest.Repository, *streaktest.Cache, *AdminOverrideHandler) {
	repo := streaktest.NewRepository(&streak.Record{
		UserID: testUser, GuildID: testGuild,
		Streak: 2, MaxStreak: 4, XP: 40, Timezone: 1,
	})
	cache := streaktest.NewCache()
	dir := &notificationtest.Directory{Members: []notificationtest.Member{
		{GuildID: testGuild, UserID: testUser, Name: "ana"},
		{GuildID: testGuild, UserID: 2002, Name: "bo"},
	}}
	return repo, cache, NewAdminOverrideHandler(repo, keymutex.New(), cache, dir)
}

func TestAdminOverride_SetXP(t *testing.T) {
	repo, cache, h := adminFixture()

	res, err := h.Handle(context.Background(), AdminOverrideCommand{
		Action: ActionSetXP, GuildID: testGuild, Capabilities: admin,
		TargetID: testUser, Amount: 500,
	})
	require.NoError(t, err)

	assert.Equal(t, 500, res.Record.XP)
	assert.Equal(t, 500, repo.Get(streak.Key{UserID: testUser, GuildID: testGuild}).XP)
	assert.Equal(t, []int64{testGuild}, cache.Invalidated)
}

func TestAdminOverride_SetStreakRaisesMax(t *testing.T) {
	_, _, h := adminFixture()

	res, err := h.Handle(context.Background(), AdminOverrideCommand{
		Action: ActionSetStreak, GuildID: testGuild, Capabilities: admin,
		TargetQuery: "ana", Amount: 9,
	})
	require.NoError(t, err)

	assert.Equal(t, 9, res.Record.Streak)
	assert.Equal(t, 9, res.Record.MaxStreak)
}

func TestAdminOverride_SetStreakBelowMaxKeepsMax(t *testing.T) {
	_, _, h := adminFixture()

	res, err := h.Handle(context.Background(), AdminOverrideCommand{
		Action: ActionSetStreak, GuildID: testGuild, Capabilities: admin,
		TargetID: testUser, Amount: 1,
	})
	require.NoError(t, err)

	assert.Equal(t, 1, res.Record.Streak)
	assert.Equal(t, 4, res.Record.MaxStreak)
}

func TestAdminOverride_SetSafe(t *testing.T) {
	repo, _, h := adminFixture()

	_, err := h.Handle(context.Background(), AdminOverrideCommand{
		Action: ActionSetSafe, GuildID: testGuild, Capabilities: admin, TargetQuery: "ANA",
	})
	require.NoError(t, err)

	assert.True(t, repo.Get(streak.Key{UserID: testUser, GuildID: testGuild}).HasPostedToday)
}

func TestAdminOverride_DeniedWithoutCapability(t *testing.T) {
	repo, cache, h := adminFixture()
	before := repo.Get(streak.Key{UserID: testUser, GuildID: testGuild})

	for _, caps := range []access.Set{nil, access.NewSet(), access.NewSet(access.ForceReset)} {
		_, err := h.Handle(context.Background(), AdminOverrideCommand{
			Action: ActionSetXP, GuildID: testGuild, Capabilities: caps,
			TargetID: testUser, Amount: 999,
		})
		assert.ErrorIs(t, err, shared.ErrAuthorizationDenied)
	}

	assert.Equal(t, before, repo.Get(streak.Key{UserID: testUser, GuildID: testGuild}))
	assert.Equal(t, 0, repo.UpdateCalls)
	assert.Empty(t, cache.Invalidated)
}

func TestAdminOverride_NegativeAmount(t *testing.T) {
	repo, _, h := adminFixture()

	_, err := h.Handle(context.Background(), AdminOverrideCommand{
		Action: ActionSetStreak, GuildID: testGuild, Capabilities: admin,
		TargetID: testUser, Amount: -1,
	})

	assert.True(t, shared.IsValidation(err))
	assert.Equal(t, 0, repo.UpdateCalls)
}

func TestAdminOverride_NoRecord(t *testing.T) {
	repo, cache, h := adminFixture()

	_, err := h.Handle(context.Background(), AdminOverrideCommand{
		Action: ActionSetXP, GuildID: testGuild, Capabilities: admin,
		TargetQuery: "bo", Amount: 5,
	})

	assert.True(t, shared.IsNotFound(err))
	assert.Equal(t, 1, repo.Len())
	assert.Empty(t, cache.Invalidated)
}

func TestAdminOverride_UnknownMember(t *testing.T) {
	_, _, h := adminFixture()

	_, err := h.Handle(context.Background(), AdminOverrideCommand{
		Action: ActionSetSafe, GuildID: testGuild, Capabilities: admin, TargetQuery: "nobody",
	})

	assert.ErrorIs(t, err, shared.ErrMemberNotFound)
}

func TestAdminOverrideCommand_Validate(t *testing.T) {
	assert.NoError(t, AdminOverrideCommand{Action: ActionSetSafe, GuildID: 1, TargetID: 2}.Validate())
	assert.True(t, shared.IsValidation(AdminOverrideCommand{Action: "set_level", GuildID: 1, TargetID: 2}.Validate()))
	assert.True(t, shared.IsValidation(AdminOverrideCommand{Action: ActionSetXP, GuildID: 1}.Validate()))
	assert.ErrorIs(t, AdminOverrideCommand{Action: ActionSetXP, TargetID: 2}.Validate(), shared.ErrInvalidGuildID)
}
