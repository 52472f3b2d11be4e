package discord

import (
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dailydraw/streak-bot/internal/domain/submission"
)

func TestNewEvent(t *testing.T) {
	m := &discordgo.Message{
		ID:        "m1",
		ChannelID: "c1",
		GuildID:   "42",
		Content:   "day 12",
		Author:    &discordgo.User{ID: "1001", Username: "ana_draws", GlobalName: "Ana"},
		Member:    &discordgo.Member{Nick: "Ana the Painter", Roles: []string{"900"}},
		Attachments: []*discordgo.MessageAttachment{
			{Filename: "day12.png", ContentType: "image/png"},
			nil,
		},
	}

	ev, err := NewEvent(m, "daily-draw", "Daily Draw")
	require.NoError(t, err)

	assert.Equal(t, Event{
		MessageID:   "m1",
		GuildID:     42,
		GuildName:   "Daily Draw",
		ChannelID:   "c1",
		ChannelName: "daily-draw",
		AuthorID:    1001,
		AuthorName:  "Ana the Painter",
		AuthorRoles: []string{"900"},
		Content:     "day 12",
		Attachments: []submission.Attachment{{Filename: "day12.png", ContentType: "image/png"}},
	}, ev)
}

func TestNewEvent_NameFallsBackToAccount(t *testing.T) {
	ev, err := NewEvent(&discordgo.Message{
		GuildID: "42",
		Author:  &discordgo.User{ID: "7", Username: "bo", Bot: true},
	}, "daily-draw", "Daily Draw")
	require.NoError(t, err)

	assert.Equal(t, "bo", ev.AuthorName)
	assert.True(t, ev.AuthorBot)
	assert.Nil(t, ev.AuthorRoles)
}

func TestNewEvent_BadIDs(t *testing.T) {
	_, err := NewEvent(&discordgo.Message{GuildID: "", Author: &discordgo.User{ID: "7"}}, "", "")
	assert.Error(t, err)

	_, err = NewEvent(&discordgo.Message{GuildID: "42", Author: &discordgo.User{ID: "x"}}, "", "")
	assert.Error(t, err)
}

func TestIntentsIncludeMessageContent(t *testing.T) {
	assert.NotZero(t, Intents&discordgo.IntentMessageContent)
	assert.NotZero(t, Intents&discordgo.IntentsGuildMessages)
}
