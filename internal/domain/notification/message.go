// Package notification describes outbound chat messages independent of how
// the chat platform renders them.
package notification

import (
	"context"
	"strings"
)

// Kind classifies a message.
type Kind string

const (
	KindWelcome    Kind = "welcome"
	KindXPAwarded  Kind = "xp_awarded"
	KindScore      Kind = "score"
	KindScoreboard Kind = "scoreboard"
	KindResetStart Kind = "reset_start"
	KindResetEnd   Kind = "reset_end"
	KindReady      Kind = "ready"
	KindDenied     Kind = "denied"
	KindUsage      Kind = "usage"
	KindInfo       Kind = "info"
	KindError      Kind = "error"
)

// Field is one titled section of an embed.
type Field struct {
	Name  string
	Value string
}

// Message is a plain text message, or an embed when Title is set.
type Message struct {
	Kind   Kind
	Title  string
	Body   string
	Fields []Field
}

// IsEmbed reports whether the message renders as an embed.
func (m Message) IsEmbed() bool {
	return m.Title != "" || len(m.Fields) > 0
}

// PlainText flattens the message for logs and non-embed transports.
func (m Message) PlainText() string {
	var b strings.Builder
	if m.Title != "" {
		b.WriteString(m.Title)
	}
	if m.Body != "" {
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString(m.Body)
	}
	for _, f := range m.Fields {
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString(f.Name)
		b.WriteString(": ")
		b.WriteString(f.Value)
	}
	return b.String()
}

// Notifier delivers messages to chat channels.
type Notifier interface {
	// Send posts a message to one channel.
	Send(ctx context.Context, channelID string, msg Message) error

	// Broadcast posts a message to the notification channel of every guild
	// the bot is in. Per-guild failures are reported but do not stop delivery.
	Broadcast(ctx context.Context, msg Message) error
}

// Directory resolves chat identities.
type Directory interface {
	// DisplayName returns the name shown for a user in a guild.
	DisplayName(ctx context.Context, guildID, userID int64) (string, error)

	// FindMember looks up a guild member by display name, username or mention.
	FindMember(ctx context.Context, guildID int64, query string) (int64, error)
}
