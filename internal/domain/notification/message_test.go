package notification

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMessage_PlainText(t *testing.T) {
	plain := Message{Kind: KindWelcome, Body: "We spy a new practitioner of the mystic arts!"}
	assert.False(t, plain.IsEmbed())
	assert.Equal(t, "We spy a new practitioner of the mystic arts!", plain.PlainText())

	embed := Message{
		Kind:   KindScoreboard,
		Title:  "Top 10 scoreboard",
		Fields: []Field{{Name: "1. ana", Value: "max streak: 3, streak: 2, total xp: 30"}},
	}
	assert.True(t, embed.IsEmbed())
	assert.Equal(t, "Top 10 scoreboard\n1. ana: max streak: 3, streak: 2, total xp: 30", embed.PlainText())
}

func TestXPAwarded(t *testing.T) {
	msg := XPAwarded(10, "ana#0001", "Sketchers", 40)
	assert.Equal(t, KindXPAwarded, msg.Kind)
	assert.Equal(t, "Added 10 to ana#0001 in server Sketchers. (Current exp: 40)", msg.Body)
}

func TestScore(t *testing.T) {
	msg := Score("ana", 30, 3, true)
	assert.True(t, msg.IsEmbed())
	assert.Equal(t, "ana's score", msg.Title)
	assert.Equal(t, "score: 30\nstreak: 3\nhas posted: True", msg.Body)

	assert.Equal(t, "score: 0\nstreak: 0\nhas posted: False", Score("bo", 0, 0, false).Body)
}

func TestScoreboard(t *testing.T) {
	msg := Scoreboard(10, []ScoreboardEntry{
		{Rank: 1, Name: "ana", MaxStreak: 5, Streak: 2, XP: 70},
		{Rank: 2, Name: "bo", MaxStreak: 3, Streak: 3, XP: 30},
	})

	assert.Equal(t, "Top 10 scoreboard", msg.Title)
	assert.Equal(t, []Field{
		{Name: "1. ana", Value: "max streak: 5, streak: 2, total xp: 70"},
		{Name: "2. bo", Value: "max streak: 3, streak: 3, total xp: 30"},
	}, msg.Fields)

	empty := Scoreboard(10, nil)
	assert.True(t, empty.IsEmbed())
	assert.Empty(t, empty.Fields)
}

func TestBanners(t *testing.T) {
	assert.Equal(t, "Pruning the weaklings..", ResetStarted().Body)
	assert.Equal(t, "A new sun rises on the battlefield..", ResetFinished().Body)
	assert.Equal(t, "Ready to break some wrists", Ready().Body)
	assert.Equal(t, "You are not allowed to do that.", Denied().Body)
	assert.False(t, Welcome().IsEmbed())
}
