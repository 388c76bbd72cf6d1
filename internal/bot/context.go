package bot

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/UTD-JLA/slashbot/internal/logging"
	"github.com/UTD-JLA/slashbot/pkg/discordutil"
	"github.com/bwmarrin/discordgo"
)

var ErrResponseNotSent = errors.New("response not yet sent")

// replyState is shared between an interaction context and the contexts derived
// from it for sub-commands, so every handler sees the same response status.
type replyState struct {
	mu         sync.Mutex
	deferred   bool
	followedUp bool
	noReply    bool
}

type InteractionContext struct {
	Logger *logging.Logger
	Bot    *Bot

	s Session
	i *discordgo.InteractionCreate
	// cancels when interaction token is invalidated
	ctx       context.Context
	ctxCancel context.CancelFunc
	// cancels when interaction response deadline is reached
	responseCtx       context.Context
	responseCtxCancel context.CancelFunc
	data              discordgo.ApplicationCommandInteractionData
	options           []*discordgo.ApplicationCommandInteractionDataOption
	subCommand        string
	reply             *replyState
}

func NewInteractionContext(
	ctx context.Context,
	logger *logging.Logger,
	bot *Bot,
	s Session,
	i *discordgo.InteractionCreate,
) *InteractionContext {
	responseDeadline := discordutil.GetInteractionResponseDeadline(i.Interaction)
	interactionDeadline := discordutil.GetInteractionFollowupDeadline(i.Interaction)

	interactionDeadlineContext, cancel := context.WithDeadline(ctx, interactionDeadline)
	responseDeadlineContext, cancel2 := context.WithDeadline(interactionDeadlineContext, responseDeadline)

	logger.Silly(
		"Creating interaction context",
		slog.Time("interaction_deadline", interactionDeadline),
		slog.Time("response_deadline", responseDeadline),
	)

	data := i.ApplicationCommandData()

	return &InteractionContext{
		Logger:            logger,
		Bot:               bot,
		s:                 s,
		i:                 i,
		ctx:               interactionDeadlineContext,
		ctxCancel:         cancel,
		responseCtx:       responseDeadlineContext,
		responseCtxCancel: cancel2,
		data:              data,
		options:           data.Options,
		reply:             &replyState{},
	}
}

// forSubCommand narrows the options to those of the invoked sub-command.
func (c *InteractionContext) forSubCommand(option *discordgo.ApplicationCommandInteractionDataOption) *InteractionContext {
	sub := *c
	sub.options = option.Options
	sub.subCommand = option.Name
	return &sub
}

func (c *InteractionContext) Cancel() {
	c.responseCtxCancel()
	c.ctxCancel()
}

func (c *InteractionContext) Session() Session {
	return c.s
}

func (c *InteractionContext) Interaction() *discordgo.InteractionCreate {
	return c.i
}

func (c *InteractionContext) User() *discordgo.User {
	return discordutil.GetInteractionUser(c.i.Interaction)
}

func (c *InteractionContext) GuildID() string {
	return c.i.GuildID
}

// Returns a context that is cancelled when the interaction token is invalidated
func (c *InteractionContext) Context() context.Context {
	return c.ctx
}

// Returns a context that is cancelled when the interaction response deadline is reached
// or when a response is sent
func (c *InteractionContext) ResponseContext() context.Context {
	return c.responseCtx
}

func (c *InteractionContext) Data() discordgo.ApplicationCommandInteractionData {
	return c.data
}

// Options returns the options of the invoked sub-command, or of the command
// itself when no sub-command is involved.
func (c *InteractionContext) Options() []*discordgo.ApplicationCommandInteractionDataOption {
	return c.options
}

func (c *InteractionContext) SubCommand() string {
	return c.subCommand
}

func (c *InteractionContext) IsCommand() bool {
	return c.i.Type == discordgo.InteractionApplicationCommand
}

func (c *InteractionContext) Responded() bool {
	return errors.Is(c.responseCtx.Err(), context.Canceled) && c.ctx.Err() == nil
}

func (c *InteractionContext) CanRespond() bool {
	return c.responseCtx.Err() == nil
}

func (c *InteractionContext) Deferred() bool {
	c.reply.mu.Lock()
	defer c.reply.mu.Unlock()

	return c.reply.deferred
}

func (c *InteractionContext) FollowedUp() bool {
	c.reply.mu.Lock()
	defer c.reply.mu.Unlock()

	return c.reply.followedUp
}

// NoReply marks the interaction as intentionally left without a reply.
func (c *InteractionContext) NoReply() {
	c.reply.mu.Lock()
	defer c.reply.mu.Unlock()

	c.reply.noReply = true
}

func (c *InteractionContext) skippedReply() bool {
	c.reply.mu.Lock()
	defer c.reply.mu.Unlock()

	return c.reply.noReply
}

// Answered reports whether the user has been shown content, as opposed to
// nothing or only a deferred "thinking" state.
func (c *InteractionContext) Answered() bool {
	if c.FollowedUp() {
		return true
	}

	return c.Responded() && !c.Deferred()
}

func (c *InteractionContext) DeferResponse() error {
	return c.Respond(discordgo.InteractionResponseDeferredChannelMessageWithSource, nil)
}

func (c *InteractionContext) Respond(responseType discordgo.InteractionResponseType, data *discordgo.InteractionResponseData) error {
	if !c.CanRespond() {
		return c.responseCtx.Err()
	}

	err := c.s.InteractionRespond(c.i.Interaction, &discordgo.InteractionResponse{
		Type: responseType,
		Data: data,
	})

	if err != nil {
		return err
	}

	if responseType == discordgo.InteractionResponseDeferredChannelMessageWithSource {
		c.reply.mu.Lock()
		c.reply.deferred = true
		c.reply.mu.Unlock()
	}

	c.responseCtxCancel()

	return nil
}

// Reply responds with a plain message.
func (c *InteractionContext) Reply(content string, ephemeral bool) error {
	data := &discordgo.InteractionResponseData{
		Content: content,
	}

	if ephemeral {
		data.Flags = discordgo.MessageFlagsEphemeral
	}

	return c.Respond(discordgo.InteractionResponseChannelMessageWithSource, data)
}

func (c *InteractionContext) Followup(response *discordgo.WebhookParams, wait bool) (*discordgo.Message, error) {
	if c.CanRespond() {
		return nil, ErrResponseNotSent
	}

	msg, err := c.s.FollowupMessageCreate(c.i.Interaction, wait, response)
	if err != nil {
		return nil, err
	}

	c.reply.mu.Lock()
	c.reply.followedUp = true
	c.reply.mu.Unlock()

	return msg, nil
}

func (c *InteractionContext) RespondOrFollowup(params *discordgo.WebhookParams, wait bool) (*discordgo.Message, error) {
	if !c.Responded() {
		data := discordgo.InteractionResponseData{
			TTS:             params.TTS,
			Content:         params.Content,
			Components:      params.Components,
			Embeds:          params.Embeds,
			AllowedMentions: params.AllowedMentions,
			Flags:           params.Flags,
		}

		err := c.Respond(discordgo.InteractionResponseChannelMessageWithSource, &data)
		return nil, err
	}

	return c.Followup(params, wait)
}
