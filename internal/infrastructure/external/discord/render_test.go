package discord

import (
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"

	"github.com/dailydraw/streak-bot/internal/domain/notification"
)

func TestRender_Golden(t *testing.T) {
	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)

	tests := []struct {
		name string
		msg  notification.Message
	}{
		{"xp_awarded", notification.XPAwarded(10, "ana", "Daily Draw", 40)},
		{"score", notification.Score("Ana", 40, 3, true)},
		{"scoreboard", notification.Scoreboard(10, []notification.ScoreboardEntry{
			{Rank: 1, Name: "Ana", MaxStreak: 12, Streak: 4, XP: 160},
			{Rank: 2, Name: "Bo", MaxStreak: 7, Streak: 7, XP: 70},
		})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g.AssertJson(t, tt.name, Render(tt.msg))
		})
	}
}

func TestRender_PlainMessageHasNoEmbed(t *testing.T) {
	send := Render(notification.Welcome())

	assert.Equal(t, "We spy a new practitioner of the mystic arts!", send.Content)
	assert.Empty(t, send.Embeds)
	assert.NotNil(t, send.AllowedMentions)
	assert.Empty(t, send.AllowedMentions.Parse)
}

func TestRender_DeniedIsRed(t *testing.T) {
	send := Render(notification.Message{Kind: notification.KindDenied, Title: "Denied"})

	assert.Equal(t, 0xE74C3C, send.Embeds[0].Color)
}
