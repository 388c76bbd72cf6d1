package commands

import (
	"context"

	"github.com/UTD-JLA/slashbot/internal/bot"
	"github.com/bwmarrin/discordgo"
)

// NewPingCommand creates /ping. permissions may be nil to leave the command
// visible to everyone.
func NewPingCommand(permissions bot.PermissionsFunc) *bot.SlashCommand {
	return bot.NewSlashCommand("ping", "replies with pong!").
		WithHandler(handlePing).
		WithPermissions(permissions)
}

func handlePing(ctx *bot.InteractionContext) error {
	return ctx.Reply("Pong!", false)
}

// OwnerOnly restricts a command to the owner of each guild.
func OwnerOnly(_ context.Context, guild *discordgo.Guild) ([]*discordgo.ApplicationCommandPermissions, error) {
	return []*discordgo.ApplicationCommandPermissions{
		{
			ID:         guild.OwnerID,
			Type:       discordgo.ApplicationCommandPermissionTypeUser,
			Permission: true,
		},
	}, nil
}
