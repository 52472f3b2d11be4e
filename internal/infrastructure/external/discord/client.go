// Package discord adapts the Discord REST API (through discordgo) to the
// notification ports: sending messages, broadcasting to each guild's
// notification channel and resolving members.
package discord

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/bwmarrin/discordgo"

	"github.com/dailydraw/streak-bot/internal/domain/notification"
	"github.com/dailydraw/streak-bot/internal/domain/shared"
	"github.com/dailydraw/streak-bot/pkg/logger"
	"github.com/dailydraw/streak-bot/pkg/retry"
)

// ══════════════════════════════════════════════════════════════════════════════
// CONFIGURATION
// ══════════════════════════════════════════════════════════════════════════════

// API is the part of *discordgo.Session the client uses.
type API interface {
	ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error)
	GuildMember(guildID, userID string, options ...discordgo.RequestOption) (*discordgo.Member, error)
	GuildMembersSearch(guildID, query string, limit int, options ...discordgo.RequestOption) ([]*discordgo.Member, error)
	GuildChannels(guildID string, options ...discordgo.RequestOption) ([]*discordgo.Channel, error)
	User(userID string, options ...discordgo.RequestOption) (*discordgo.User, error)
	UserChannelPermissions(userID, channelID string, fetchOptions ...discordgo.RequestOption) (int64, error)
}

var _ API = (*discordgo.Session)(nil)

// ClientConfig contains configuration for the Discord client.
type ClientConfig struct {
	// NotifyChannel is the channel name banners are broadcast to in every guild.
	NotifyChannel string

	// Retrier wraps every REST call. Defaults to retry.DiscordRetrier().
	Retrier *retry.Retrier

	Logger *logger.Logger
}

// memberSearchLimit bounds name lookups.
const memberSearchLimit = 25

// ══════════════════════════════════════════════════════════════════════════════
// CLIENT
// ══════════════════════════════════════════════════════════════════════════════

// Client implements notification.Notifier and notification.Directory.
type Client struct {
	api           API
	notifyChannel string
	retrier       *retry.Retrier
	log           *logger.Logger

	mu             sync.RWMutex
	guilds         map[string]struct{}
	notifyChannels map[string]string // guild id -> channel id
}

var (
	_ notification.Notifier  = (*Client)(nil)
	_ notification.Directory = (*Client)(nil)
)

// NewClient creates a new Discord client.
func NewClient(api API, config ClientConfig) *Client {
	if config.Retrier == nil {
		config.Retrier = retry.DiscordRetrier()
	}
	if config.Logger == nil {
		config.Logger = logger.Nop()
	}
	return &Client{
		api:            api,
		notifyChannel:  strings.ToLower(strings.TrimSpace(config.NotifyChannel)),
		retrier:        config.Retrier,
		log:            config.Logger.With(logger.Component("discord")),
		guilds:         make(map[string]struct{}),
		notifyChannels: make(map[string]string),
	}
}

// TrackGuild registers a guild the bot is a member of.
func (c *Client) TrackGuild(guildID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.guilds[guildID] = struct{}{}
}

// ForgetGuild drops a guild the bot left.
func (c *Client) ForgetGuild(guildID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.guilds, guildID)
	delete(c.notifyChannels, guildID)
}

// Guilds returns the tracked guild ids.
func (c *Client) Guilds() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ids := make([]string, 0, len(c.guilds))
	for id := range c.guilds {
		ids = append(ids, id)
	}
	return ids
}

// ══════════════════════════════════════════════════════════════════════════════
// NOTIFIER
// ══════════════════════════════════════════════════════════════════════════════

// Send posts a message to one channel.
func (c *Client) Send(ctx context.Context, channelID string, msg notification.Message) error {
	payload := Render(msg)

	err := c.retrier.Do(ctx, func(ctx context.Context) error {
		_, err := c.api.ChannelMessageSendComplex(channelID, payload, discordgo.WithContext(ctx))
		return classify(err)
	})
	if err != nil {
		return shared.WrapError("discord", "Send", shared.ErrExternalService,
			fmt.Sprintf("send %s to channel %s", msg.Kind, channelID), err)
	}
	return nil
}

// Broadcast posts a message to the notification channel of every tracked
// guild. Guilds without such a channel are skipped.
func (c *Client) Broadcast(ctx context.Context, msg notification.Message) error {
	var errs []error
	for _, guildID := range c.Guilds() {
		channelID, err := c.notifyChannelID(ctx, guildID)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if channelID == "" {
			c.log.Debug("no notification channel in guild", logger.String("guild", guildID))
			continue
		}
		if err := c.Send(ctx, channelID, msg); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// notifyChannelID finds the guild's notification channel by name, caching
// the result. An empty id means the guild has none.
func (c *Client) notifyChannelID(ctx context.Context, guildID string) (string, error) {
	c.mu.RLock()
	id, ok := c.notifyChannels[guildID]
	c.mu.RUnlock()
	if ok {
		return id, nil
	}

	var channels []*discordgo.Channel
	err := c.retrier.Do(ctx, func(ctx context.Context) error {
		var err error
		channels, err = c.api.GuildChannels(guildID, discordgo.WithContext(ctx))
		return classify(err)
	})
	if err != nil {
		return "", shared.WrapError("discord", "GuildChannels", shared.ErrExternalService,
			"list channels of guild "+guildID, err)
	}

	for _, ch := range channels {
		if ch.Type == discordgo.ChannelTypeGuildText && strings.EqualFold(ch.Name, c.notifyChannel) {
			id = ch.ID
			break
		}
	}

	c.mu.Lock()
	c.notifyChannels[guildID] = id
	c.mu.Unlock()

	return id, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// DIRECTORY
// ══════════════════════════════════════════════════════════════════════════════

// DisplayName returns the member's guild nickname, global name or username.
// Users who left the guild fall back to their account name.
func (c *Client) DisplayName(ctx context.Context, guildID, userID int64) (string, error) {
	gid, uid := formatID(guildID), formatID(userID)

	member, err := c.member(ctx, gid, uid)
	if err == nil {
		return MemberName(member), nil
	}
	if !isNotFound(err) {
		return "", shared.WrapError("discord", "DisplayName", shared.ErrExternalService, "fetch member", err)
	}

	var user *discordgo.User
	err = c.retrier.Do(ctx, func(ctx context.Context) error {
		var err error
		user, err = c.api.User(uid, discordgo.WithContext(ctx))
		return classify(err)
	})
	if err != nil {
		if isNotFound(err) {
			return "", shared.ErrMemberNotFound
		}
		return "", shared.WrapError("discord", "DisplayName", shared.ErrExternalService, "fetch user", err)
	}
	return UserName(user), nil
}

// FindMember resolves a mention, a raw id, or a name.
// Names match nickname, global name or username, case-insensitively; a
// prefix match is accepted only when it is unambiguous.
func (c *Client) FindMember(ctx context.Context, guildID int64, query string) (int64, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return 0, shared.ErrMemberNotFound
	}
	if id, ok := ParseMention(query); ok {
		return id, nil
	}
	if id, err := strconv.ParseInt(query, 10, 64); err == nil && id > 0 {
		return id, nil
	}

	// Legacy "name#1234" tags search by the name part.
	name := query
	if i := strings.LastIndex(query, "#"); i > 0 {
		name = query[:i]
	}

	var members []*discordgo.Member
	err := c.retrier.Do(ctx, func(ctx context.Context) error {
		var err error
		members, err = c.api.GuildMembersSearch(formatID(guildID), name, memberSearchLimit, discordgo.WithContext(ctx))
		return classify(err)
	})
	if err != nil {
		return 0, shared.WrapError("discord", "FindMember", shared.ErrExternalService, "search members", err)
	}

	var exact []*discordgo.Member
	for _, m := range members {
		if m.User == nil {
			continue
		}
		if strings.EqualFold(m.User.String(), query) ||
			strings.EqualFold(m.Nick, query) ||
			strings.EqualFold(m.User.GlobalName, query) ||
			strings.EqualFold(m.User.Username, query) {
			exact = append(exact, m)
		}
	}

	switch {
	case len(exact) == 1:
		return parseID(exact[0].User.ID)
	case len(exact) == 0 && len(members) == 1 && members[0].User != nil:
		return parseID(members[0].User.ID)
	default:
		return 0, shared.ErrMemberNotFound
	}
}

// IsAdministrator reports whether the user has the Administrator permission
// in the channel's guild.
func (c *Client) IsAdministrator(ctx context.Context, userID, channelID string) (bool, error) {
	var perms int64
	err := c.retrier.Do(ctx, func(ctx context.Context) error {
		var err error
		perms, err = c.api.UserChannelPermissions(userID, channelID, discordgo.WithContext(ctx))
		return classify(err)
	})
	if err != nil {
		return false, shared.WrapError("discord", "Permissions", shared.ErrExternalService, "fetch permissions", err)
	}
	return perms&discordgo.PermissionAdministrator != 0, nil
}

func (c *Client) member(ctx context.Context, guildID, userID string) (*discordgo.Member, error) {
	var member *discordgo.Member
	err := c.retrier.Do(ctx, func(ctx context.Context) error {
		var err error
		member, err = c.api.GuildMember(guildID, userID, discordgo.WithContext(ctx))
		return classify(err)
	})
	return member, err
}

// ══════════════════════════════════════════════════════════════════════════════
// HELPERS
// ══════════════════════════════════════════════════════════════════════════════

// MemberName returns the name shown for a member.
func MemberName(m *discordgo.Member) string {
	if m == nil {
		return ""
	}
	if m.Nick != "" {
		return m.Nick
	}
	return UserName(m.User)
}

// UserName returns the global display name, or the username.
func UserName(u *discordgo.User) string {
	if u == nil {
		return ""
	}
	if u.GlobalName != "" {
		return u.GlobalName
	}
	return u.Username
}

// ParseMention extracts the user id from "<@123>" or "<@!123>".
func ParseMention(s string) (int64, bool) {
	if !strings.HasPrefix(s, "<@") || !strings.HasSuffix(s, ">") {
		return 0, false
	}
	inner := strings.TrimPrefix(s[2:len(s)-1], "!")
	id, err := strconv.ParseInt(inner, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, shared.WrapError("discord", "ParseID", shared.ErrInvalidID, "invalid snowflake "+s, err)
	}
	return id, nil
}

// classify marks transient failures retryable: rate limits, 5xx responses
// and network errors.
func classify(err error) error {
	if err == nil {
		return nil
	}

	var rl *discordgo.RateLimitError
	if errors.As(err, &rl) {
		return retry.Retryable(err)
	}

	var restErr *discordgo.RESTError
	if errors.As(err, &restErr) {
		if restErr.Response != nil &&
			(restErr.Response.StatusCode == http.StatusTooManyRequests || restErr.Response.StatusCode >= 500) {
			return retry.Retryable(err)
		}
		return err
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return retry.Retryable(err)
	}
	return err
}

func isNotFound(err error) bool {
	var restErr *discordgo.RESTError
	return errors.As(err, &restErr) && restErr.Response != nil &&
		restErr.Response.StatusCode == http.StatusNotFound
}
