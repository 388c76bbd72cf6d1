package bot

import (
	"fmt"

	"github.com/bwmarrin/discordgo"
)

// SubCommand is selected by name from its parent command. It has no
// sub-commands of its own and shares the parent's permissions.
type SubCommand struct {
	name        string
	description string
	options     []Option
	handler     HandlerFunc
}

func NewSubCommand(name, description string, handler HandlerFunc) *SubCommand {
	return &SubCommand{
		name:        name,
		description: description,
		handler:     handler,
	}
}

func (s *SubCommand) WithOptions(options ...Option) *SubCommand {
	s.options = append(s.options, options...)
	return s
}

func (s *SubCommand) Name() string {
	return s.name
}

func (s *SubCommand) Description() string {
	return s.description
}

func (s *SubCommand) build() *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionSubCommand,
		Name:        s.name,
		Description: s.description,
		Options:     buildOptions(s.options),
	}
}

func (s *SubCommand) HandleInteraction(ctx *InteractionContext) error {
	return s.handler(ctx)
}

func (s *SubCommand) Validate() error {
	if err := validateDescriptor(s.name, s.description, s.options); err != nil {
		return err
	}

	if s.handler == nil {
		return fmt.Errorf("%w: sub-command %s has no handler", ErrInvalidCommand, s.name)
	}

	return nil
}
