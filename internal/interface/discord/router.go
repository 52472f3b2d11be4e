// Package discord is the chat front end of the bot: it turns gateway events
// into submissions and commands and sends the replies.
package discord

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/dailydraw/streak-bot/internal/domain/notification"
	"github.com/dailydraw/streak-bot/internal/domain/shared"
	"github.com/dailydraw/streak-bot/internal/domain/submission"
	"github.com/dailydraw/streak-bot/internal/interface/discord/handler"
	"github.com/dailydraw/streak-bot/internal/interface/discord/middleware"
	"github.com/dailydraw/streak-bot/internal/interface/discord/presenter"
	"github.com/dailydraw/streak-bot/pkg/logger"
)

// DefaultPrefix starts every command.
const DefaultPrefix = "-"

// ══════════════════════════════════════════════════════════════════════════════
// EVENT
// ══════════════════════════════════════════════════════════════════════════════

// Event is a guild message as the router sees it.
type Event struct {
	MessageID   string
	GuildID     int64
	GuildName   string
	ChannelID   string
	ChannelName string

	AuthorID    int64
	AuthorName  string
	AuthorBot   bool
	AuthorRoles []string

	Content     string
	Attachments []submission.Attachment
}

// ══════════════════════════════════════════════════════════════════════════════
// ROUTER CONFIGURATION
// ══════════════════════════════════════════════════════════════════════════════

// RouterConfig contains configuration for the router.
type RouterConfig struct {
	// Prefix starts a command. Defaults to DefaultPrefix.
	Prefix string

	// ListenChannels are the channel names the bot reacts in.
	ListenChannels []string

	Logger *logger.Logger
}

// Dependencies are the collaborators of the router.
type Dependencies struct {
	Classifier  *submission.Classifier
	Submissions *handler.SubmissionHandler
	Notifier    notification.Notifier
	Resolver    *middleware.CapabilityResolver
	Limiter     *middleware.RateLimiter
}

type route struct {
	handler    handler.Handler
	privileged bool
}

// ══════════════════════════════════════════════════════════════════════════════
// ROUTER
// ══════════════════════════════════════════════════════════════════════════════

// Router dispatches events from tracked channels.
type Router struct {
	prefix string
	listen map[string]struct{}
	log    *logger.Logger
	deps   Dependencies

	mu     sync.RWMutex
	routes map[string]route
}

// NewRouter creates a new router.
func NewRouter(config RouterConfig, deps Dependencies) *Router {
	if config.Prefix == "" {
		config.Prefix = DefaultPrefix
	}
	if config.Logger == nil {
		config.Logger = logger.Nop()
	}
	if deps.Classifier == nil {
		deps.Classifier = submission.NewClassifier(nil)
	}
	if deps.Limiter == nil {
		deps.Limiter = middleware.NewRateLimiter(middleware.DefaultRateLimitConfig())
	}

	listen := make(map[string]struct{}, len(config.ListenChannels))
	for _, name := range config.ListenChannels {
		if name = strings.ToLower(strings.TrimSpace(name)); name != "" {
			listen[name] = struct{}{}
		}
	}

	return &Router{
		prefix: config.Prefix,
		listen: listen,
		log:    config.Logger.With(logger.Component("router")),
		deps:   deps,
		routes: make(map[string]route),
	}
}

// Register adds a command anyone in a tracked channel may run.
func (r *Router) Register(name string, h handler.Handler) {
	r.register(name, h, false)
}

// RegisterPrivileged adds a command whose handler needs the caller's
// capabilities.
func (r *Router) RegisterPrivileged(name string, h handler.Handler) {
	r.register(name, h, true)
}

func (r *Router) register(name string, h handler.Handler, privileged bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.routes[strings.ToLower(name)] = route{handler: h, privileged: privileged}
}

// Commands lists the registered command names.
func (r *Router) Commands() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.routes))
	for name := range r.routes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Tracks reports whether the bot reacts in a channel.
func (r *Router) Tracks(channelName string) bool {
	_, ok := r.listen[strings.ToLower(channelName)]
	return ok
}

// Route handles one message. Messages outside tracked channels and from
// bots are ignored. A message may be both a submission and a command.
// The returned error reports failed replies only; handler failures are
// answered and logged.
func (r *Router) Route(ctx context.Context, ev Event) error {
	if !r.Tracks(ev.ChannelName) || ev.AuthorBot {
		return nil
	}

	log := r.log.WithRequestID(uuid.NewString()).With(
		logger.GuildID(ev.GuildID),
		logger.UserID(ev.AuthorID),
		logger.ChannelID(ev.ChannelID),
	)
	ctx = logger.WithContext(ctx, log)

	var errs []error

	if r.deps.Classifier.Qualifies(ev.Attachments) {
		if err := r.handleSubmission(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}

	if name, args, ok := r.parseCommand(ev.Content); ok {
		if err := r.dispatch(ctx, ev, name, args); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

func (r *Router) handleSubmission(ctx context.Context, ev Event) error {
	log := logger.FromContext(ctx)
	if r.deps.Submissions == nil {
		return nil
	}

	var msg *notification.Message
	err := middleware.Recover(ctx, "submission", func() error {
		var err error
		msg, err = r.deps.Submissions.Handle(ctx, handler.Submission{
			GuildID:    ev.GuildID,
			GuildName:  ev.GuildName,
			AuthorID:   ev.AuthorID,
			AuthorName: ev.AuthorName,
		})
		return err
	})
	if err != nil {
		log.Error("submission failed", logger.Err(err))
		failure := notification.Failure()
		msg = &failure
	}

	if msg == nil {
		log.Debug("submission ignored, already posted today")
		return nil
	}
	return r.send(ctx, ev.ChannelID, *msg)
}

func (r *Router) dispatch(ctx context.Context, ev Event, name string, args []string) error {
	log := logger.FromContext(ctx).With(logger.String("command", name))

	r.mu.RLock()
	rt, ok := r.routes[name]
	r.mu.RUnlock()
	if !ok {
		log.Debug("unknown command ignored")
		return nil
	}

	if !r.deps.Limiter.Allow(ev.AuthorID) {
		log.Warn("command throttled", logger.Err(shared.ErrCommandThrottled))
		return nil
	}

	req := handler.Request{
		GuildID:    ev.GuildID,
		GuildName:  ev.GuildName,
		ChannelID:  ev.ChannelID,
		CallerID:   ev.AuthorID,
		CallerName: ev.AuthorName,
		Args:       args,
	}
	if rt.privileged && r.deps.Resolver != nil {
		req.Capabilities = r.deps.Resolver.Resolve(ctx, middleware.Caller{
			UserID:    formatID(ev.AuthorID),
			ChannelID: ev.ChannelID,
			RoleIDs:   ev.AuthorRoles,
		})
	}

	ctx = logger.WithContext(ctx, log)
	var msg *notification.Message
	err := middleware.Recover(ctx, name, func() error {
		var err error
		msg, err = rt.handler.Handle(ctx, req)
		return err
	})
	if err != nil {
		usage := ""
		if u, ok := rt.handler.(handler.Usager); ok {
			usage = u.Usage()
		}
		logCommandError(log, err)
		failure := presenter.Error(err, usage)
		msg = &failure
	}

	if msg == nil {
		return nil
	}
	return r.send(ctx, ev.ChannelID, *msg)
}

func (r *Router) send(ctx context.Context, channelID string, msg notification.Message) error {
	if r.deps.Notifier == nil {
		return nil
	}
	if err := r.deps.Notifier.Send(ctx, channelID, msg); err != nil {
		logger.FromContext(ctx).Error("reply failed", logger.String("kind", string(msg.Kind)), logger.Err(err))
		return err
	}
	return nil
}

// parseCommand splits "-set_xp Ana 40" into ("set_xp", ["Ana", "40"]).
func (r *Router) parseCommand(content string) (string, []string, bool) {
	content = strings.TrimSpace(content)
	if !strings.HasPrefix(content, r.prefix) {
		return "", nil, false
	}
	fields := strings.Fields(content[len(r.prefix):])
	if len(fields) == 0 {
		return "", nil, false
	}
	return strings.ToLower(fields[0]), fields[1:], true
}

func logCommandError(log *logger.Logger, err error) {
	switch {
	case shared.IsForbidden(err):
		log.Warn("command denied", logger.Err(err))
	case shared.IsValidation(err), shared.IsNotFound(err):
		log.Info("command rejected", logger.Err(err))
	case shared.IsExternalService(err):
		log.Warn("command hit a Discord failure", logger.Err(err))
	default:
		log.Error("command failed", logger.Err(err))
	}
}
