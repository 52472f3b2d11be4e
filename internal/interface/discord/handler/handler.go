// Package handler contains the chat command handlers. Each one parses its
// arguments, runs an application command or query and returns the reply.
package handler

import (
	"context"
	"strconv"
	"strings"

	"github.com/dailydraw/streak-bot/internal/domain/access"
	"github.com/dailydraw/streak-bot/internal/domain/notification"
)

// Request is one parsed command invocation.
type Request struct {
	GuildID   int64
	GuildName string
	ChannelID string

	CallerID   int64
	CallerName string

	// Args are the whitespace-separated words after the command name.
	Args []string

	// Capabilities is resolved only for privileged commands.
	Capabilities access.Set
}

// Handler answers a command. A nil message means no reply.
type Handler interface {
	Handle(ctx context.Context, req Request) (*notification.Message, error)
}

// Usager describes a command's arguments for usage replies.
type Usager interface {
	Usage() string
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, req Request) (*notification.Message, error)

// Handle calls f.
func (f HandlerFunc) Handle(ctx context.Context, req Request) (*notification.Message, error) {
	return f(ctx, req)
}

func reply(msg notification.Message) *notification.Message {
	return &msg
}

// splitAmount separates a trailing integer from a member name that may
// contain spaces: "Ana Banana 40" -> ("Ana Banana", 40).
func splitAmount(args []string) (name string, amount int, ok bool) {
	if len(args) < 2 {
		return "", 0, false
	}
	amount, err := strconv.Atoi(args[len(args)-1])
	if err != nil {
		return "", 0, false
	}
	return strings.Join(args[:len(args)-1], " "), amount, true
}
