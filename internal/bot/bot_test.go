package bot_test

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/UTD-JLA/slashbot/internal/bot"
	"github.com/UTD-JLA/slashbot/internal/bot/bottest"
	"github.com/UTD-JLA/slashbot/internal/config"
	"github.com/UTD-JLA/slashbot/internal/logging"
	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testBot struct {
	*bot.Bot
	session *bottest.Session
	logs    *bytes.Buffer
}

func newTestBot(t *testing.T, opts ...bot.BotOption) *testBot {
	t.Helper()

	var buf bytes.Buffer
	sink, err := logging.New(logging.Options{Level: "debug", Writer: &buf})
	require.NoError(t, err)

	session := &bottest.Session{}
	cfg := &config.Config{ApplicationID: "app-1", Token: "token"}

	b, err := bot.NewBot(cfg, sink, append([]bot.BotOption{bot.WithSession(session)}, opts...)...)
	require.NoError(t, err)

	return &testBot{Bot: b, session: session, logs: &buf}
}

func ownerOnly(_ context.Context, guild *discordgo.Guild) ([]*discordgo.ApplicationCommandPermissions, error) {
	return []*discordgo.ApplicationCommandPermissions{
		{ID: guild.OwnerID, Type: discordgo.ApplicationCommandPermissionTypeUser, Permission: true},
	}, nil
}

func TestStart(t *testing.T) {
	b := newTestBot(t)

	assert.Equal(t, bot.StateIdle, b.State())
	require.NoError(t, b.Start())

	assert.True(t, b.session.Opened)
	assert.Equal(t, bot.StateStarting, b.State())
	assert.Equal(t, 5, b.session.HandlerCount())

	assert.ErrorIs(t, b.Start(), bot.ErrAlreadyStarted)

	b.session.Emit(&discordgo.Ready{User: &discordgo.User{Username: "slashbot", Discriminator: "0001"}})
	assert.Equal(t, bot.StateRunning, b.State())
	assert.Contains(t, b.logs.String(), "Logged in as slashbot#0001")

	require.NoError(t, b.Close())
	assert.True(t, b.session.Closed)
	assert.Equal(t, bot.StateIdle, b.State())
	assert.Equal(t, 0, b.session.HandlerCount())
}

func TestStartLoginFailure(t *testing.T) {
	b := newTestBot(t)
	b.session.OpenErr = errors.New("authentication failed")

	err := b.Start()

	assert.ErrorIs(t, err, b.session.OpenErr)
	assert.Equal(t, bot.StateIdle, b.State())
	assert.Equal(t, 0, b.session.HandlerCount())
}

func TestReadyListenerOverride(t *testing.T) {
	b := newTestBot(t)

	var ready []*discordgo.Ready
	b.SetListener(bot.EventReady, func(ev bot.Event) {
		ready = append(ready, ev.(bot.ReadyEvent).Ready)
	})

	require.NoError(t, b.Start())
	r := &discordgo.Ready{User: &discordgo.User{Username: "slashbot"}}
	b.session.Emit(r)

	require.Len(t, ready, 1)
	assert.Same(t, r, ready[0])
	assert.Equal(t, bot.StateRunning, b.State())
	assert.NotContains(t, b.logs.String(), "Logged in as")
}

func TestGuildEvents(t *testing.T) {
	b := newTestBot(t)

	var joined, left []string
	b.SetListener(bot.EventGuildJoined, func(ev bot.Event) {
		joined = append(joined, ev.(bot.GuildJoinedEvent).Guild.ID)
	})
	b.SetListener(bot.EventGuildLeft, func(ev bot.Event) {
		left = append(left, ev.(bot.GuildLeftEvent).Guild.ID)
	})

	require.NoError(t, b.Start())
	b.session.Emit(&discordgo.Ready{Guilds: []*discordgo.Guild{{ID: "existing", Unavailable: true}}})

	b.session.Emit(&discordgo.GuildCreate{Guild: &discordgo.Guild{ID: "existing"}})
	b.session.Emit(&discordgo.GuildCreate{Guild: &discordgo.Guild{ID: "new"}})
	b.session.Emit(&discordgo.GuildDelete{Guild: &discordgo.Guild{ID: "existing", Unavailable: true}})
	b.session.Emit(&discordgo.GuildDelete{Guild: &discordgo.Guild{ID: "new"}})

	assert.Equal(t, []string{"new"}, joined)
	assert.Equal(t, []string{"new"}, left)
}

func TestGuildCreateBeforeReady(t *testing.T) {
	b := newTestBot(t)

	var joined []string
	b.SetListener(bot.EventGuildJoined, func(ev bot.Event) {
		joined = append(joined, ev.(bot.GuildJoinedEvent).Guild.ID)
	})

	require.NoError(t, b.Start())

	b.session.Emit(&discordgo.GuildCreate{Guild: &discordgo.Guild{ID: "existing"}})
	b.session.Emit(&discordgo.GuildCreate{Guild: &discordgo.Guild{ID: "new"}})
	assert.Empty(t, joined)

	b.session.Emit(&discordgo.Ready{Guilds: []*discordgo.Guild{{ID: "existing", Unavailable: true}}})
	assert.Equal(t, []string{"new"}, joined)

	b.session.Emit(&discordgo.GuildCreate{Guild: &discordgo.Guild{ID: "existing"}})
	assert.Equal(t, []string{"new"}, joined)
}

func TestUnknownCommand(t *testing.T) {
	b := newTestBot(t)

	called := false
	require.NoError(t, b.AddCommand(context.Background(), bot.NewSlashCommand("ping", "replies with pong!").WithHandler(func(*bot.InteractionContext) error {
		called = true
		return nil
	})))

	b.HandleInteraction(context.Background(), bottest.NewCommandInteraction("g1", "missing"))

	assert.False(t, called)
	require.Len(t, b.session.Responses, 1)
	assert.Empty(t, b.session.Followups)

	resp := b.session.Responses[0].Response
	assert.Equal(t, discordgo.InteractionResponseChannelMessageWithSource, resp.Type)
	assert.Equal(t, bot.UnknownCommandMessage, resp.Data.Content)
	assert.Equal(t, discordgo.MessageFlagsEphemeral, resp.Data.Flags)

	assert.Contains(t, b.logs.String(), "level=warn")
	assert.Contains(t, b.logs.String(), "Received interaction without a command")
}

func TestPingDispatch(t *testing.T) {
	b := newTestBot(t)

	ping := bot.NewSlashCommand("ping", "replies with pong!").WithHandler(func(ctx *bot.InteractionContext) error {
		return ctx.Reply("Pong!", false)
	})
	require.NoError(t, b.AddCommand(context.Background(), ping))

	b.HandleInteraction(context.Background(), bottest.NewCommandInteraction("g1", "ping"))

	require.Len(t, b.session.Responses, 1)
	data := b.session.Responses[0].Response.Data
	assert.Equal(t, "Pong!", data.Content)
	assert.Zero(t, data.Flags&discordgo.MessageFlagsEphemeral)
}

func TestSubCommandDispatch(t *testing.T) {
	b := newTestBot(t)

	var calls []string
	var options []*discordgo.ApplicationCommandInteractionDataOption

	cmd := bot.NewSlashCommand("about", "About the bot").
		WithHandler(func(*bot.InteractionContext) error {
			calls = append(calls, "parent")
			return nil
		}).
		WithSubCommands(
			bot.NewSubCommand("uptime", "Show uptime", func(ctx *bot.InteractionContext) error {
				calls = append(calls, "uptime:"+ctx.SubCommand())
				options = ctx.Options()
				return ctx.Reply("up", false)
			}).WithOptions(bot.Option{Type: bot.OptionBoolean, Name: "precise", Description: "Exact time"}),
			bot.NewSubCommand("version", "Show version", func(ctx *bot.InteractionContext) error {
				calls = append(calls, "version")
				return ctx.Reply("v1", false)
			}),
		)
	require.NoError(t, b.AddCommand(context.Background(), cmd))

	precise := &discordgo.ApplicationCommandInteractionDataOption{
		Name:  "precise",
		Type:  discordgo.ApplicationCommandOptionBoolean,
		Value: true,
	}
	b.HandleInteraction(context.Background(), bottest.NewSubCommandInteraction("g1", "about", "uptime", precise))

	assert.Equal(t, []string{"uptime:uptime"}, calls)
	assert.Equal(t, []*discordgo.ApplicationCommandInteractionDataOption{precise}, options)
	assert.Equal(t, 1, b.session.ResponseCount())
}

func TestSubCommandNotFound(t *testing.T) {
	b := newTestBot(t)

	var errs []error
	b.SetListener(bot.EventError, func(ev bot.Event) {
		errs = append(errs, ev.(bot.ErrorEvent).Err)
	})

	cmd := bot.NewSlashCommand("about", "About the bot").WithSubCommands(
		bot.NewSubCommand("uptime", "Show uptime", func(ctx *bot.InteractionContext) error {
			t.Fatal("uptime must not run")
			return nil
		}),
	)
	require.NoError(t, b.AddCommand(context.Background(), cmd))

	b.HandleInteraction(context.Background(), bottest.NewSubCommandInteraction("g1", "about", "removed"))

	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0], bot.ErrSubCommandNotFound)
	assert.Contains(t, errs[0].Error(), "removed")

	require.Len(t, b.session.Responses, 1)
	assert.Equal(t, "An unexpected error occurred!", b.session.Responses[0].Response.Data.Content)
	assert.Equal(t, discordgo.MessageFlagsEphemeral, b.session.Responses[0].Response.Data.Flags)
}

func TestHandlerErrorBoundary(t *testing.T) {
	tests := []struct {
		name      string
		handler   bot.HandlerFunc
		responses int
		followups int
	}{
		{
			name:      "error before responding",
			handler:   func(*bot.InteractionContext) error { return errors.New("database down") },
			responses: 1,
		},
		{
			name:      "panic",
			handler:   func(*bot.InteractionContext) error { panic("nil map") },
			responses: 1,
		},
		{
			name: "error after deferring",
			handler: func(ctx *bot.InteractionContext) error {
				if err := ctx.DeferResponse(); err != nil {
					return err
				}
				return errors.New("slow work failed")
			},
			responses: 1,
			followups: 1,
		},
		{
			name: "error after responding",
			handler: func(ctx *bot.InteractionContext) error {
				if err := ctx.Reply("partial", false); err != nil {
					return err
				}
				return errors.New("cleanup failed")
			},
			responses: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := newTestBot(t)
			require.NoError(t, b.AddCommand(context.Background(), bot.NewSlashCommand("fail", "Always fails").WithHandler(tt.handler)))

			b.HandleInteraction(context.Background(), bottest.NewCommandInteraction("g1", "fail"))

			assert.Len(t, b.session.Responses, tt.responses)
			assert.Len(t, b.session.Followups, tt.followups)
			assert.Contains(t, b.logs.String(), "Error handling command")
		})
	}
}

func TestUnansweredCommandGetsApology(t *testing.T) {
	b := newTestBot(t)

	require.NoError(t, b.AddCommand(context.Background(), bot.NewSlashCommand("silent", "Says nothing").WithHandler(func(ctx *bot.InteractionContext) error {
		ctx.NoReply()
		return nil
	})))
	require.NoError(t, b.AddCommand(context.Background(), bot.NewSlashCommand("forgetful", "Forgets to answer").WithHandler(noop)))
	require.NoError(t, b.AddCommand(context.Background(), bot.NewSlashCommand("thinking", "Defers forever").WithHandler(func(ctx *bot.InteractionContext) error {
		return ctx.DeferResponse()
	})))

	b.HandleInteraction(context.Background(), bottest.NewCommandInteraction("g1", "silent"))
	assert.NotContains(t, b.logs.String(), "Command finished without responding")
	assert.Equal(t, 0, b.session.ResponseCount())

	b.HandleInteraction(context.Background(), bottest.NewCommandInteraction("g1", "forgetful"))
	assert.Contains(t, b.logs.String(), "Command finished without responding")
	require.Len(t, b.session.Responses, 1)
	assert.Equal(t, "An unexpected error occurred!", b.session.Responses[0].Response.Data.Content)
	assert.Equal(t, discordgo.MessageFlagsEphemeral, b.session.Responses[0].Response.Data.Flags)

	b.HandleInteraction(context.Background(), bottest.NewCommandInteraction("g1", "thinking"))
	assert.Contains(t, b.logs.String(), "Command deferred without following up")
	require.Len(t, b.session.Responses, 2)
	assert.Equal(t, discordgo.InteractionResponseDeferredChannelMessageWithSource, b.session.Responses[1].Response.Type)
	require.Len(t, b.session.Followups, 1)
	assert.Equal(t, "An unexpected error occurred!", b.session.Followups[0].Params.Content)
}

func TestIgnoresOtherInteractionTypes(t *testing.T) {
	b := newTestBot(t)

	i := bottest.NewCommandInteraction("g1", "missing")
	i.Type = discordgo.InteractionMessageComponent
	i.Data = discordgo.MessageComponentInteractionData{CustomID: "button"}

	b.HandleInteraction(context.Background(), i)

	assert.Equal(t, 0, b.session.ResponseCount())
}

func TestAddCommandWithoutPermissions(t *testing.T) {
	b := newTestBot(t)
	b.session.AddGuild(&discordgo.Guild{ID: "g1", Name: "One", OwnerID: "owner-1"})

	cmd := bot.NewSlashCommand("ping", "replies with pong!").WithHandler(noop)
	require.NoError(t, b.AddCommand(context.Background(), cmd))

	require.Len(t, b.session.Created, 1)
	assert.Equal(t, "app-1", b.session.Created[0].ApplicationID)
	assert.Empty(t, b.session.PermissionsEdits)
	assert.Empty(t, b.session.CommandEdits)

	registered, ok := b.RegisteredCommand("ping")
	require.True(t, ok)
	assert.Equal(t, b.session.Created[0].ID, registered.ID)

	_, ok = b.Commands().Get("ping")
	assert.True(t, ok)
}

func TestAddCommandWithPermissions(t *testing.T) {
	b := newTestBot(t)
	b.session.AddGuild(&discordgo.Guild{ID: "g1", Name: "One", OwnerID: "owner-1"})
	b.session.AddGuild(&discordgo.Guild{ID: "g2", Name: "Two", OwnerID: "owner-2"})

	cmd := bot.NewSlashCommand("admin", "Admin only").WithHandler(noop).WithPermissions(
		func(ctx context.Context, guild *discordgo.Guild) ([]*discordgo.ApplicationCommandPermissions, error) {
			if guild.ID != "g1" {
				return nil, nil
			}
			return []*discordgo.ApplicationCommandPermissions{
				{ID: "owner-1", Type: discordgo.ApplicationCommandPermissionTypeUser, Permission: true},
				{ID: "role-1", Type: discordgo.ApplicationCommandPermissionTypeRole, Permission: true},
				{ID: "role-2", Type: discordgo.ApplicationCommandPermissionTypeRole, Permission: false},
			}, nil
		},
	)
	require.NoError(t, b.AddCommand(context.Background(), cmd))

	require.Len(t, b.session.PermissionsEdits, 1)
	edit := b.session.PermissionsEdits[0]
	assert.Equal(t, "g1", edit.GuildID)
	assert.Equal(t, b.session.Created[0].ID, edit.CommandID)
	assert.Len(t, edit.Permissions, 3)

	require.Len(t, b.session.CommandEdits, 1)
	restricted := b.session.CommandEdits[0].Command
	require.NotNil(t, restricted.DefaultPermission)
	assert.False(t, *restricted.DefaultPermission)
	assert.Equal(t, "admin", restricted.Name)
}

func TestAddCommandGuildFailureIsolated(t *testing.T) {
	b := newTestBot(t)
	b.session.AddGuild(&discordgo.Guild{ID: "g1", OwnerID: "owner-1"})
	b.session.AddGuild(&discordgo.Guild{ID: "g2", OwnerID: "owner-2"})
	b.session.AddGuild(&discordgo.Guild{ID: "g3", OwnerID: "owner-3"})
	b.session.GuildErrs = map[string]error{"g1": errors.New("missing access")}
	b.session.PermissionsEditErrs = map[string]error{"g2": errors.New("forbidden")}

	var mu sync.Mutex
	var errs []error
	b.SetListener(bot.EventError, func(ev bot.Event) {
		mu.Lock()
		defer mu.Unlock()
		errs = append(errs, ev.(bot.ErrorEvent).Err)
	})

	cmd := bot.NewSlashCommand("ping", "replies with pong!").WithHandler(noop).WithPermissions(ownerOnly)
	require.NoError(t, b.AddCommand(context.Background(), cmd))

	require.Len(t, b.session.PermissionsEdits, 1)
	assert.Equal(t, "g3", b.session.PermissionsEdits[0].GuildID)
	assert.Len(t, b.session.CommandEdits, 1)
	assert.Len(t, errs, 2)

	_, ok := b.Commands().Get("ping")
	assert.True(t, ok)
}

func TestAddCommandDispatchableAfterPermissions(t *testing.T) {
	b := newTestBot(t)
	b.session.AddGuild(&discordgo.Guild{ID: "g1", OwnerID: "owner-1"})

	var visibleDuringRegistration bool
	cmd := bot.NewSlashCommand("ping", "replies with pong!").WithHandler(noop).WithPermissions(
		func(ctx context.Context, guild *discordgo.Guild) ([]*discordgo.ApplicationCommandPermissions, error) {
			_, visibleDuringRegistration = b.Commands().Get("ping")
			return nil, nil
		},
	)
	require.NoError(t, b.AddCommand(context.Background(), cmd))

	assert.False(t, visibleDuringRegistration)
	_, ok := b.Commands().Get("ping")
	assert.True(t, ok)
}

func TestAddCommandErrors(t *testing.T) {
	b := newTestBot(t)

	err := b.AddCommand(context.Background(), bot.NewSlashCommand("Bad Name", "x").WithHandler(noop))
	assert.ErrorIs(t, err, bot.ErrInvalidCommand)
	assert.Empty(t, b.session.Created)

	require.NoError(t, b.AddCommand(context.Background(), bot.NewSlashCommand("ping", "replies with pong!").WithHandler(noop)))
	err = b.AddCommand(context.Background(), bot.NewSlashCommand("ping", "again").WithHandler(noop))
	assert.ErrorIs(t, err, bot.ErrDuplicateCommand)
	assert.Len(t, b.session.Created, 1)

	b.session.CreateErr = errors.New("rejected")
	err = b.AddCommand(context.Background(), bot.NewSlashCommand("other", "Other").WithHandler(noop))
	assert.ErrorIs(t, err, b.session.CreateErr)
	_, ok := b.Commands().Get("other")
	assert.False(t, ok)
}

func TestAddCommands(t *testing.T) {
	b := newTestBot(t)

	err := b.AddCommands(context.Background(),
		bot.NewSlashCommand("ping", "replies with pong!").WithHandler(noop),
		bot.NewSlashCommand("INVALID", "nope").WithHandler(noop),
		bot.NewSlashCommand("about", "About").WithHandler(noop),
	)

	assert.ErrorIs(t, err, bot.ErrInvalidCommand)
	assert.Equal(t, []string{"about", "ping"}, b.Commands().Names())
	assert.Len(t, b.session.Created, 2)
}

func TestCloseDestroysCommands(t *testing.T) {
	b := newTestBot(t, bot.WithDestroyCommandsOnClose(true))

	require.NoError(t, b.AddCommand(context.Background(), bot.NewSlashCommand("ping", "replies with pong!").WithHandler(noop)))
	require.NoError(t, b.Close())

	assert.Equal(t, []string{b.session.Created[0].ID}, b.session.Deleted)
}

func TestDispatchThroughSession(t *testing.T) {
	b := newTestBot(t)

	require.NoError(t, b.AddCommand(context.Background(), bot.NewSlashCommand("ping", "replies with pong!").WithHandler(func(ctx *bot.InteractionContext) error {
		return ctx.Reply("Pong!", false)
	})))
	require.NoError(t, b.Start())

	b.session.Emit(bottest.NewCommandInteraction("g1", "ping"))

	require.Len(t, b.session.Responses, 1)
	assert.Equal(t, "Pong!", b.session.Responses[0].Response.Data.Content)
}
