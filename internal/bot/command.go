package bot

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/UTD-JLA/slashbot/pkg/discordutil"
	"github.com/bwmarrin/discordgo"
)

const (
	maxDescriptionLength = 100
	maxOptions           = 25
)

var (
	ErrSubCommandNotFound = errors.New("sub-command not found")
	ErrInvalidCommand     = errors.New("invalid command")
)

var commandNamePattern = regexp.MustCompile(`^[-_a-z0-9]{1,32}$`)

type HandlerFunc func(ctx *InteractionContext) error

// PermissionsFunc resolves the permission overrides of a command in one guild.
// An empty result leaves the command visible with its default permissions.
type PermissionsFunc func(ctx context.Context, guild *discordgo.Guild) ([]*discordgo.ApplicationCommandPermissions, error)

type Command interface {
	Name() string
	// Build returns a new registration payload on every call.
	Build() *discordgo.ApplicationCommand
	HandleInteraction(ctx *InteractionContext) error
	Permissions(ctx context.Context, guild *discordgo.Guild) ([]*discordgo.ApplicationCommandPermissions, error)
}

type SlashCommand struct {
	name        string
	description string
	options     []Option
	subCommands []*SubCommand
	handler     HandlerFunc
	permissions PermissionsFunc
}

var _ Command = (*SlashCommand)(nil)

func NewSlashCommand(name, description string) *SlashCommand {
	return &SlashCommand{
		name:        name,
		description: description,
	}
}

func (c *SlashCommand) WithOptions(options ...Option) *SlashCommand {
	c.options = append(c.options, options...)
	return c
}

func (c *SlashCommand) WithHandler(handler HandlerFunc) *SlashCommand {
	c.handler = handler
	return c
}

func (c *SlashCommand) WithSubCommands(subCommands ...*SubCommand) *SlashCommand {
	c.subCommands = append(c.subCommands, subCommands...)
	return c
}

func (c *SlashCommand) WithPermissions(permissions PermissionsFunc) *SlashCommand {
	c.permissions = permissions
	return c
}

func (c *SlashCommand) Name() string {
	return c.name
}

func (c *SlashCommand) Description() string {
	return c.description
}

func (c *SlashCommand) SubCommand(name string) *SubCommand {
	for _, sub := range c.subCommands {
		if sub.name == name {
			return sub
		}
	}

	return nil
}

func (c *SlashCommand) Build() *discordgo.ApplicationCommand {
	data := &discordgo.ApplicationCommand{
		Name:        c.name,
		Description: c.description,
		Options:     buildOptions(c.options),
	}

	for _, sub := range c.subCommands {
		data.Options = append(data.Options, sub.build())
	}

	return data
}

func (c *SlashCommand) HandleInteraction(ctx *InteractionContext) error {
	if len(c.subCommands) == 0 {
		if c.handler == nil {
			return fmt.Errorf("%w: /%s has no handler", ErrInvalidCommand, c.name)
		}

		return c.handler(ctx)
	}

	option := discordutil.GetSubCommandOption(ctx.Options())
	if option == nil {
		return fmt.Errorf("%w: /%s was invoked without one", ErrSubCommandNotFound, c.name)
	}

	sub := c.SubCommand(option.Name)
	if sub == nil {
		return fmt.Errorf("%w: /%s %s", ErrSubCommandNotFound, c.name, option.Name)
	}

	return sub.HandleInteraction(ctx.forSubCommand(option))
}

func (c *SlashCommand) Permissions(ctx context.Context, guild *discordgo.Guild) ([]*discordgo.ApplicationCommandPermissions, error) {
	if c.permissions == nil {
		return nil, nil
	}

	return c.permissions(ctx, guild)
}

// Validate checks the constraints Discord enforces on registration, so a bad
// command fails before any request is made.
func (c *SlashCommand) Validate() error {
	if err := validateDescriptor(c.name, c.description, c.options); err != nil {
		return err
	}

	if len(c.subCommands) == 0 {
		if c.handler == nil {
			return fmt.Errorf("%w: /%s has no handler", ErrInvalidCommand, c.name)
		}

		return nil
	}

	if len(c.options) > 0 {
		return fmt.Errorf("%w: /%s mixes options with sub-commands", ErrInvalidCommand, c.name)
	}

	if len(c.subCommands) > maxOptions {
		return fmt.Errorf("%w: /%s has more than %d sub-commands", ErrInvalidCommand, c.name, maxOptions)
	}

	seen := make(map[string]bool, len(c.subCommands))

	for _, sub := range c.subCommands {
		if seen[sub.name] {
			return fmt.Errorf("%w: /%s declares sub-command %s twice", ErrInvalidCommand, c.name, sub.name)
		}
		seen[sub.name] = true

		if err := sub.Validate(); err != nil {
			return fmt.Errorf("/%s: %w", c.name, err)
		}
	}

	return nil
}

func validateDescriptor(name, description string, options []Option) error {
	if !commandNamePattern.MatchString(name) {
		return fmt.Errorf("%w: name %q must be 1-32 lowercase letters, digits, dashes or underscores", ErrInvalidCommand, name)
	}

	if description == "" || len(description) > maxDescriptionLength {
		return fmt.Errorf("%w: %s must have a description of 1-%d characters", ErrInvalidCommand, name, maxDescriptionLength)
	}

	if len(options) > maxOptions {
		return fmt.Errorf("%w: %s has more than %d options", ErrInvalidCommand, name, maxOptions)
	}

	seen := make(map[string]bool, len(options))

	for _, o := range options {
		if !commandNamePattern.MatchString(o.Name) {
			return fmt.Errorf("%w: %s has an option with invalid name %q", ErrInvalidCommand, name, o.Name)
		}

		if seen[o.Name] {
			return fmt.Errorf("%w: %s declares option %s twice", ErrInvalidCommand, name, o.Name)
		}
		seen[o.Name] = true

		if o.Description == "" || len(o.Description) > maxDescriptionLength {
			return fmt.Errorf("%w: option %s of %s must have a description of 1-%d characters", ErrInvalidCommand, o.Name, name, maxDescriptionLength)
		}

		if len(o.Choices) > 0 && !o.Type.supportsChoices() {
			return fmt.Errorf("%w: %s option %s cannot have choices", ErrInvalidCommand, o.Type, o.Name)
		}
	}

	return nil
}
