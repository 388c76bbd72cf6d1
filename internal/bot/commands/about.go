package commands

import (
	"strings"
	"time"

	"github.com/UTD-JLA/slashbot/internal/bot"
	"github.com/UTD-JLA/slashbot/pkg/discordutil"
	"github.com/golang-module/carbon/v2"
)

func NewAboutCommand(startedAt time.Time) *bot.SlashCommand {
	return bot.NewSlashCommand("about", "Information about the bot").WithSubCommands(
		bot.NewSubCommand("uptime", "How long the bot has been running", func(ctx *bot.InteractionContext) error {
			started := carbon.CreateFromTimestamp(startedAt.Unix(), carbon.UTC)
			return ctx.Reply("Started "+started.DiffForHumans(), false)
		}),
		bot.NewSubCommand("commands", "List the available commands", handleListCommands).WithOptions(
			bot.Option{
				Type:        bot.OptionBoolean,
				Name:        "private",
				Description: "Only show the list to you",
			},
		),
	)
}

func handleListCommands(ctx *bot.InteractionContext) error {
	names := ctx.Bot.Commands().Names()
	for i, name := range names {
		names[i] = "/" + name
	}

	private := discordutil.GetBoolOptionOrDefault(ctx.Options(), "private", false)

	return ctx.Reply(strings.Join(names, ", "), private)
}
