package discord

import (
	"github.com/bwmarrin/discordgo"

	"github.com/dailydraw/streak-bot/internal/domain/notification"
)

// Embed colors per message kind.
var kindColors = map[notification.Kind]int{
	notification.KindScore:      0x3498DB,
	notification.KindScoreboard: 0xF1C40F,
	notification.KindDenied:     0xE74C3C,
	notification.KindError:      0xE74C3C,
}

// Render converts a message to a Discord payload. Messages without a title
// or fields are sent as plain content.
func Render(msg notification.Message) *discordgo.MessageSend {
	send := &discordgo.MessageSend{
		// Never ping anyone from bot output.
		AllowedMentions: &discordgo.MessageAllowedMentions{Parse: []discordgo.AllowedMentionType{}},
	}

	if !msg.IsEmbed() {
		send.Content = msg.Body
		return send
	}

	embed := &discordgo.MessageEmbed{
		Type:        discordgo.EmbedTypeRich,
		Title:       msg.Title,
		Description: msg.Body,
		Color:       kindColors[msg.Kind],
	}
	for _, f := range msg.Fields {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:   f.Name,
			Value:  f.Value,
			Inline: false,
		})
	}
	send.Embeds = []*discordgo.MessageEmbed{embed}

	return send
}
