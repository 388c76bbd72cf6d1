package bot

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/UTD-JLA/slashbot/internal/config"
	"github.com/UTD-JLA/slashbot/internal/logging"
	"github.com/UTD-JLA/slashbot/pkg/ref"
	"github.com/bwmarrin/discordgo"
	"golang.org/x/sync/errgroup"
)

const UnknownCommandMessage = "Whoops! I didn't handle that well. Either try again later, or tell the human that maintains me!"

const (
	guildPageSize        = 200
	maxConcurrentGuilds  = 8
	defaultIntents       = discordgo.IntentsGuilds | discordgo.IntentsGuildMembers | discordgo.IntentsGuildMessages
	commandLoggerPrefix  = "Commands/"
	listenerLoggerSuffix = "EventListener"
)

var ErrAlreadyStarted = errors.New("bot already started")

var unexpectedErrorMessage = &discordgo.WebhookParams{
	Content: "An unexpected error occurred!",
	Flags:   discordgo.MessageFlagsEphemeral,
}

type Bot struct {
	config    *config.Config
	logs      *logging.Sink
	logger    *logging.Logger
	session   Session
	intents   discordgo.Intent
	commands  *CommandCollection
	listeners *ListenerRegistry
	state     atomic.Int32

	mu              sync.Mutex
	createdCommands map[string]*discordgo.ApplicationCommand
	knownGuilds     map[string]bool
	ready           bool
	pendingGuilds   []*discordgo.Guild
	removeHandlers  []func()
	destroyOnClose  bool
}

type BotOption func(*Bot)

// WithSession replaces the discordgo session the bot would otherwise create.
func WithSession(s Session) BotOption {
	return func(b *Bot) {
		b.session = s
	}
}

func WithIntents(intents discordgo.Intent) BotOption {
	return func(b *Bot) {
		b.intents = intents
	}
}

func WithDestroyCommandsOnClose(destroy bool) BotOption {
	return func(b *Bot) {
		b.destroyOnClose = destroy
	}
}

func NewBot(cfg *config.Config, logs *logging.Sink, opts ...BotOption) (*Bot, error) {
	b := &Bot{
		config:          cfg,
		logs:            logs,
		logger:          logs.Named("BotClient"),
		intents:         defaultIntents,
		commands:        NewCommandCollection(),
		listeners:       NewListenerRegistry(),
		createdCommands: make(map[string]*discordgo.ApplicationCommand),
		knownGuilds:     make(map[string]bool),
		destroyOnClose:  cfg.DestroyCommandsOnClose,
	}

	for _, opt := range opts {
		opt(b)
	}

	if b.session == nil {
		s, err := discordgo.New("Bot " + cfg.Token)
		if err != nil {
			return nil, fmt.Errorf("failed to create session: %w", err)
		}

		s.Identify.Intents = b.intents
		b.session = s
	}

	b.setDefaultListeners()

	return b, nil
}

func (b *Bot) setDefaultListeners() {
	ready := b.logs.Named(EventReady.String() + listenerLoggerSuffix)
	b.SetListener(EventReady, func(ev Event) {
		r := ev.(ReadyEvent)
		if r.Ready != nil && r.User != nil {
			ready.Info("Logged in as " + r.User.String())
		}
	})

	errs := b.logs.Named(EventError.String() + listenerLoggerSuffix)
	b.SetListener(EventError, func(ev Event) {
		errs.Error(ev.(ErrorEvent).Err)
	})

	joined := b.logs.Named(EventGuildJoined.String() + listenerLoggerSuffix)
	b.SetListener(EventGuildJoined, func(ev Event) {
		g := ev.(GuildJoinedEvent).Guild
		joined.Info(fmt.Sprintf("Bot added to guild: %s / %s", g.Name, g.ID))
	})

	left := b.logs.Named(EventGuildLeft.String() + listenerLoggerSuffix)
	b.SetListener(EventGuildLeft, func(ev Event) {
		g := ev.(GuildLeftEvent).Guild
		left.Info(fmt.Sprintf("Bot removed from guild: %s / %s", g.Name, g.ID))
	})
}

// SetListener replaces the listener for an event. It takes effect immediately,
// including after Start.
func (b *Bot) SetListener(name EventName, fn ListenerFunc) {
	b.listeners.Set(name, fn)
}

func (b *Bot) State() State {
	return State(b.state.Load())
}

func (b *Bot) Session() Session {
	return b.session
}

func (b *Bot) Commands() *CommandCollection {
	return b.commands
}

// RegisteredCommand returns the command as Discord acknowledged it.
func (b *Bot) RegisteredCommand(name string) (*discordgo.ApplicationCommand, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	cmd, ok := b.createdCommands[name]
	return cmd, ok
}

func (b *Bot) Start() error {
	if !b.state.CompareAndSwap(int32(StateIdle), int32(StateStarting)) {
		return ErrAlreadyStarted
	}

	b.logger.Info("Starting Discord slash command bot")
	b.logger.Silly("Adding listeners")
	b.attachHandlers()

	b.logger.Debug("Attempting login")

	if err := b.session.Open(); err != nil {
		b.detachHandlers()
		b.state.Store(int32(StateIdle))
		return fmt.Errorf("failed to open session: %w", err)
	}

	return nil
}

func (b *Bot) attachHandlers() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.removeHandlers = append(b.removeHandlers,
		b.session.AddHandler(b.onReady),
		b.session.AddHandler(b.onGuildCreate),
		b.session.AddHandler(b.onGuildDelete),
		b.session.AddHandler(b.onDisconnect),
		b.session.AddHandler(b.onInteractionCreate),
	)
}

func (b *Bot) detachHandlers() {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, remove := range b.removeHandlers {
		remove()
	}

	b.removeHandlers = nil
}

func (b *Bot) onReady(_ *discordgo.Session, r *discordgo.Ready) {
	b.state.CompareAndSwap(int32(StateStarting), int32(StateRunning))

	b.mu.Lock()
	b.ready = true
	for _, g := range r.Guilds {
		b.knownGuilds[g.ID] = true
	}

	var joined []*discordgo.Guild
	for _, g := range b.pendingGuilds {
		if !b.knownGuilds[g.ID] {
			b.knownGuilds[g.ID] = true
			joined = append(joined, g)
		}
	}
	b.pendingGuilds = nil
	b.mu.Unlock()

	b.listeners.Emit(ReadyEvent{Ready: r})

	for _, g := range joined {
		b.listeners.Emit(GuildJoinedEvent{Guild: g})
	}
}

// discordgo reports every guild on connect with GUILD_CREATE; only guilds
// missing from the ready payload are actual joins. Handlers run concurrently,
// so a GUILD_CREATE seen before READY is held until READY is handled.
func (b *Bot) onGuildCreate(_ *discordgo.Session, g *discordgo.GuildCreate) {
	if g.Guild == nil || g.Unavailable {
		return
	}

	b.mu.Lock()
	if !b.ready {
		b.pendingGuilds = append(b.pendingGuilds, g.Guild)
		b.mu.Unlock()
		return
	}

	known := b.knownGuilds[g.ID]
	b.knownGuilds[g.ID] = true
	b.mu.Unlock()

	if !known {
		b.listeners.Emit(GuildJoinedEvent{Guild: g.Guild})
	}
}

func (b *Bot) onGuildDelete(_ *discordgo.Session, g *discordgo.GuildDelete) {
	// unavailable means an outage, not a removal
	if g.Guild == nil || g.Unavailable {
		return
	}

	b.mu.Lock()
	delete(b.knownGuilds, g.ID)
	b.mu.Unlock()

	guild := g.Guild
	if g.BeforeDelete != nil {
		guild = g.BeforeDelete
	}

	b.listeners.Emit(GuildLeftEvent{Guild: guild})
}

func (b *Bot) onDisconnect(_ *discordgo.Session, _ *discordgo.Disconnect) {
	b.logger.Warn("Disconnected from gateway")
}

func (b *Bot) onInteractionCreate(_ *discordgo.Session, i *discordgo.InteractionCreate) {
	b.HandleInteraction(context.Background(), i)
}

// HandleInteraction dispatches an application command interaction to its
// command. Every call answers the interaction unless the command itself chose
// not to reply; a command that returns without answering gets the apology.
func (b *Bot) HandleInteraction(ctx context.Context, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}

	name := i.ApplicationCommandData().Name

	cmd, ok := b.commands.Get(name)
	if !ok {
		b.logger.Warn("Received interaction without a command", "command", name)
		b.replyUnknownCommand(i)
		return
	}

	ictx := NewInteractionContext(ctx, b.logs.Named(commandLoggerPrefix+name), b, b.session, i)
	defer ictx.Cancel()

	err := invoke(cmd, ictx)
	if err != nil {
		b.logger.Error("Error handling command", "command", name, "error", err)
		b.listeners.Emit(ErrorEvent{Err: fmt.Errorf("/%s: %w", name, err)})

		if !ictx.Answered() {
			if _, err = ictx.RespondOrFollowup(unexpectedErrorMessage, false); err != nil {
				b.logger.Error("Failed to send error response", "command", name, "error", err)
			}
		}

		return
	}

	if ictx.Answered() || ictx.skippedReply() {
		return
	}

	if ictx.Deferred() {
		b.logger.Warn("Command deferred without following up", "command", name)
	} else {
		b.logger.Warn("Command finished without responding", "command", name)
	}

	if _, err = ictx.RespondOrFollowup(unexpectedErrorMessage, false); err != nil {
		b.logger.Error("Failed to send fallback response", "command", name, "error", err)
	}
}

func invoke(cmd Command, ctx *InteractionContext) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	return cmd.HandleInteraction(ctx)
}

func (b *Bot) replyUnknownCommand(i *discordgo.InteractionCreate) {
	err := b.session.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: UnknownCommandMessage,
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	})

	if err != nil {
		b.logger.Error("Failed to respond to unknown command", "error", err)
	}
}

// AddCommand registers cmd with Discord, applies its permissions in every
// guild the bot belongs to and finally makes it dispatchable. A failure in one
// guild is logged and reported to the error listener without affecting the
// others.
func (b *Bot) AddCommand(ctx context.Context, cmd Command) error {
	if v, ok := cmd.(interface{ Validate() error }); ok {
		if err := v.Validate(); err != nil {
			return err
		}
	}

	if _, ok := b.commands.Get(cmd.Name()); ok {
		return fmt.Errorf("%w: %s", ErrDuplicateCommand, cmd.Name())
	}

	b.logger.Info("Adding command " + cmd.Name())

	created, err := b.session.ApplicationCommandCreate(b.config.ApplicationID, "", cmd.Build())
	if err != nil {
		return fmt.Errorf("failed to create command %s: %w", cmd.Name(), err)
	}

	b.mu.Lock()
	b.createdCommands[created.Name] = created
	b.mu.Unlock()

	b.logger.Debug("Command added as "+created.Name, "id", created.ID)

	b.logger.Debug("Fetching guilds...")
	guilds, err := b.fetchGuilds()
	if err != nil {
		return fmt.Errorf("failed to fetch guilds for command %s: %w", cmd.Name(), err)
	}
	b.logger.Debug(guilds)

	var g errgroup.Group
	g.SetLimit(maxConcurrentGuilds)

	for _, guild := range guilds {
		guildID := guild.ID

		g.Go(func() error {
			if err := b.applyPermissions(ctx, cmd, created, guildID); err != nil {
				b.logger.Error("Failed to assign permissions", "command", cmd.Name(), "guild", guildID, "error", err)
				b.listeners.Emit(ErrorEvent{Err: fmt.Errorf("permissions for %s in guild %s: %w", cmd.Name(), guildID, err)})
			}
			return nil
		})
	}

	_ = g.Wait()

	if err = b.commands.Add(cmd); err != nil {
		return err
	}

	b.logger.Info("Done adding command " + cmd.Name() + "!")

	return nil
}

func (b *Bot) fetchGuilds() ([]*discordgo.UserGuild, error) {
	var guilds []*discordgo.UserGuild
	after := ""

	for {
		page, err := b.session.UserGuilds(guildPageSize, "", after)
		if err != nil {
			return nil, err
		}

		guilds = append(guilds, page...)

		if len(page) < guildPageSize {
			return guilds, nil
		}

		after = page[len(page)-1].ID
	}
}

func (b *Bot) applyPermissions(ctx context.Context, cmd Command, created *discordgo.ApplicationCommand, guildID string) error {
	guild, err := b.session.Guild(guildID)
	if err != nil {
		return fmt.Errorf("failed to fetch guild: %w", err)
	}

	permissions, err := cmd.Permissions(ctx, guild)
	if err != nil {
		return fmt.Errorf("failed to resolve permissions: %w", err)
	}

	if len(permissions) == 0 {
		return nil
	}

	b.logger.Debug(fmt.Sprintf("Assigning permissions for %s in %s", cmd.Name(), guild.Name))

	err = b.session.ApplicationCommandPermissionsEdit(b.config.ApplicationID, guild.ID, created.ID, &discordgo.ApplicationCommandPermissionsList{
		Permissions: permissions,
	})
	if err != nil {
		return fmt.Errorf("failed to edit permissions: %w", err)
	}

	restricted := cmd.Build()
	restricted.DefaultPermission = ref.New(false)

	_, err = b.session.ApplicationCommandEdit(b.config.ApplicationID, "", created.ID, restricted)
	if err != nil {
		return fmt.Errorf("failed to disable default permission: %w", err)
	}

	return nil
}

// AddCommands registers every command concurrently and returns once all of
// them have finished, joining any failures.
func (b *Bot) AddCommands(ctx context.Context, cmds ...Command) error {
	errs := make([]error, len(cmds))

	var g errgroup.Group

	for i, cmd := range cmds {
		i, cmd := i, cmd

		g.Go(func() error {
			errs[i] = b.AddCommand(ctx, cmd)
			return nil
		})
	}

	_ = g.Wait()

	return errors.Join(errs...)
}

func (b *Bot) Close() error {
	if b.destroyOnClose {
		b.mu.Lock()
		created := make([]*discordgo.ApplicationCommand, 0, len(b.createdCommands))
		for _, c := range b.createdCommands {
			created = append(created, c)
		}
		b.mu.Unlock()

		for _, c := range created {
			err := b.session.ApplicationCommandDelete(b.config.ApplicationID, "", c.ID)
			if err != nil {
				b.logger.Error("Failed to delete command "+c.Name, "error", err)
			}
		}
	}

	b.detachHandlers()
	b.state.Store(int32(StateIdle))

	b.mu.Lock()
	b.ready = false
	b.pendingGuilds = nil
	b.mu.Unlock()

	return b.session.Close()
}
