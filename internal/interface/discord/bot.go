package discord

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/dailydraw/streak-bot/internal/domain/notification"
	"github.com/dailydraw/streak-bot/internal/domain/submission"
	discordapi "github.com/dailydraw/streak-bot/internal/infrastructure/external/discord"
	"github.com/dailydraw/streak-bot/pkg/logger"
)

// Intents the bot needs: guild list, guild messages and their content.
const Intents = discordgo.IntentsGuilds |
	discordgo.IntentsGuildMessages |
	discordgo.IntentMessageContent

// DefaultEventTimeout bounds the handling of one gateway event.
const DefaultEventTimeout = 30 * time.Second

// ══════════════════════════════════════════════════════════════════════════════
// BOT
// Owns the gateway session and feeds its events to the router.
// ══════════════════════════════════════════════════════════════════════════════

// BotConfig contains configuration for the bot.
type BotConfig struct {
	EventTimeout time.Duration
	Logger       *logger.Logger
}

// Bot connects the gateway session to the router.
type Bot struct {
	session *discordgo.Session
	client  *discordapi.Client
	router  *Router
	config  BotConfig
	log     *logger.Logger
}

// NewSession creates a gateway session with the bot's intents.
func NewSession(token string) (*discordgo.Session, error) {
	s, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("create discord session: %w", err)
	}
	s.Identify.Intents = Intents
	return s, nil
}

// NewBot creates a new Bot.
func NewBot(session *discordgo.Session, client *discordapi.Client, router *Router, config BotConfig) *Bot {
	if config.EventTimeout <= 0 {
		config.EventTimeout = DefaultEventTimeout
	}
	if config.Logger == nil {
		config.Logger = logger.Nop()
	}
	return &Bot{
		session: session,
		client:  client,
		router:  router,
		config:  config,
		log:     config.Logger.With(logger.Component("bot")),
	}
}

// Run opens the gateway connection and blocks until ctx is done.
func (b *Bot) Run(ctx context.Context) error {
	removers := []func(){
		b.session.AddHandler(func(s *discordgo.Session, r *discordgo.Ready) { b.onReady(ctx, r) }),
		b.session.AddHandler(func(s *discordgo.Session, g *discordgo.GuildCreate) { b.onGuildCreate(g) }),
		b.session.AddHandler(func(s *discordgo.Session, g *discordgo.GuildDelete) { b.onGuildDelete(g) }),
		b.session.AddHandler(func(s *discordgo.Session, m *discordgo.MessageCreate) { b.onMessageCreate(ctx, s, m) }),
	}
	defer func() {
		for _, remove := range removers {
			remove()
		}
	}()

	if err := b.session.Open(); err != nil {
		return fmt.Errorf("open discord session: %w", err)
	}
	b.log.Info("gateway connected", logger.Any("commands", b.router.Commands()))

	<-ctx.Done()

	b.log.Info("closing gateway connection")
	if err := b.session.Close(); err != nil {
		return fmt.Errorf("close discord session: %w", err)
	}
	return nil
}

func (b *Bot) onReady(ctx context.Context, r *discordgo.Ready) {
	for _, g := range r.Guilds {
		b.client.TrackGuild(g.ID)
	}
	b.log.Info("ready", logger.String("user", r.User.String()), logger.Int("guilds", len(r.Guilds)))

	ctx, cancel := context.WithTimeout(ctx, b.config.EventTimeout)
	defer cancel()
	if err := b.client.Broadcast(ctx, notification.Ready()); err != nil {
		b.log.Warn("ready announcement failed", logger.Err(err))
	}
}

func (b *Bot) onGuildCreate(g *discordgo.GuildCreate) {
	b.client.TrackGuild(g.ID)
}

func (b *Bot) onGuildDelete(g *discordgo.GuildDelete) {
	// An outage also sends GuildDelete; keep the guild in that case.
	if g.Unavailable {
		return
	}
	b.client.ForgetGuild(g.ID)
}

func (b *Bot) onMessageCreate(ctx context.Context, s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.GuildID == "" || m.Author == nil {
		return
	}

	ctx, cancel := context.WithTimeout(ctx, b.config.EventTimeout)
	defer cancel()

	ev, err := NewEvent(m.Message, b.channelName(ctx, s, m.ChannelID), b.guildName(s, m.GuildID))
	if err != nil {
		b.log.Warn("dropping malformed message", logger.String("message", m.ID), logger.Err(err))
		return
	}
	if err := b.router.Route(ctx, ev); err != nil {
		b.log.Warn("message handling incomplete", logger.String("message", m.ID), logger.Err(err))
	}
}

func (b *Bot) channelName(ctx context.Context, s *discordgo.Session, channelID string) string {
	if ch, err := s.State.Channel(channelID); err == nil {
		return ch.Name
	}
	ch, err := s.Channel(channelID, discordgo.WithContext(ctx))
	if err != nil {
		b.log.Debug("channel lookup failed", logger.ChannelID(channelID), logger.Err(err))
		return ""
	}
	return ch.Name
}

func (b *Bot) guildName(s *discordgo.Session, guildID string) string {
	if g, err := s.State.Guild(guildID); err == nil {
		return g.Name
	}
	return guildID
}

// NewEvent converts a gateway message. Guild messages carry the author's
// member data without the user, so the author is attached to it.
func NewEvent(m *discordgo.Message, channelName, guildName string) (Event, error) {
	guildID, err := strconv.ParseInt(m.GuildID, 10, 64)
	if err != nil {
		return Event{}, fmt.Errorf("guild id %q: %w", m.GuildID, err)
	}
	authorID, err := strconv.ParseInt(m.Author.ID, 10, 64)
	if err != nil {
		return Event{}, fmt.Errorf("author id %q: %w", m.Author.ID, err)
	}

	ev := Event{
		MessageID:   m.ID,
		GuildID:     guildID,
		GuildName:   guildName,
		ChannelID:   m.ChannelID,
		ChannelName: channelName,
		AuthorID:    authorID,
		AuthorName:  discordapi.UserName(m.Author),
		AuthorBot:   m.Author.Bot,
		Content:     m.Content,
	}
	if m.Member != nil {
		ev.AuthorRoles = m.Member.Roles
		if m.Member.Nick != "" {
			ev.AuthorName = m.Member.Nick
		}
	}
	for _, a := range m.Attachments {
		if a == nil {
			continue
		}
		ev.Attachments = append(ev.Attachments, submission.Attachment{
			Filename:    a.Filename,
			ContentType: a.ContentType,
		})
	}
	return ev, nil
}

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}
