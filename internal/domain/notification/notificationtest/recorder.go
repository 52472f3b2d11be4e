// Package notificationtest provides recording doubles of the notification
// ports.
package notificationtest

import (
	"context"
	"strings"
	"sync"

	"github.com/dailydraw/streak-bot/internal/domain/notification"
	"github.com/dailydraw/streak-bot/internal/domain/shared"
)

// Sent is one delivered message.
type Sent struct {
	ChannelID string
	Message   notification.Message
}

// Recorder is a notification.Notifier that keeps what it was asked to send.
type Recorder struct {
	mu         sync.Mutex
	sent       []Sent
	broadcasts []notification.Message

	// Err, when set, fails every call after recording it.
	Err error
}

var _ notification.Notifier = (*Recorder)(nil)

func (r *Recorder) Send(_ context.Context, channelID string, msg notification.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, Sent{ChannelID: channelID, Message: msg})
	return r.Err
}

func (r *Recorder) Broadcast(_ context.Context, msg notification.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.broadcasts = append(r.broadcasts, msg)
	return r.Err
}

// Sent returns the messages sent to channels, in order.
func (r *Recorder) Sent() []Sent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Sent(nil), r.sent...)
}

// Broadcasts returns the broadcast messages, in order.
func (r *Recorder) Broadcasts() []notification.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]notification.Message(nil), r.broadcasts...)
}

// BroadcastKinds returns the kinds of broadcast messages, in order.
func (r *Recorder) BroadcastKinds() []notification.Kind {
	r.mu.Lock()
	defer r.mu.Unlock()
	kinds := make([]notification.Kind, 0, len(r.broadcasts))
	for _, m := range r.broadcasts {
		kinds = append(kinds, m.Kind)
	}
	return kinds
}

// Member is a directory entry.
type Member struct {
	GuildID int64
	UserID  int64
	Name    string
}

// Directory is a notification.Directory over a fixed member list.
type Directory struct {
	Members []Member
}

var _ notification.Directory = (*Directory)(nil)

func (d *Directory) DisplayName(_ context.Context, guildID, userID int64) (string, error) {
	for _, m := range d.Members {
		if m.GuildID == guildID && m.UserID == userID {
			return m.Name, nil
		}
	}
	return "", shared.ErrMemberNotFound
}

func (d *Directory) FindMember(_ context.Context, guildID int64, query string) (int64, error) {
	for _, m := range d.Members {
		if m.GuildID == guildID && strings.EqualFold(m.Name, query) {
			return m.UserID, nil
		}
	}
	return 0, shared.ErrMemberNotFound
}
