package commands

import (
	"strings"

	"github.com/UTD-JLA/slashbot/internal/bot"
	"github.com/UTD-JLA/slashbot/pkg/discordutil"
)

const maxEchoRepeat = 5

func NewEchoCommand() *bot.SlashCommand {
	return bot.NewSlashCommand("echo", "Repeat a message").
		WithHandler(handleEcho).
		WithOptions(
			bot.Option{
				Type:        bot.OptionString,
				Name:        "text",
				Description: "The text to repeat",
				Required:    true,
			},
			bot.Option{
				Type:        bot.OptionInteger,
				Name:        "times",
				Description: "How many times to repeat it",
				Choices: []bot.Choice{
					{Name: "Once", Value: 1},
					{Name: "Twice", Value: 2},
					{Name: "Five times", Value: maxEchoRepeat},
				},
			},
			bot.Option{
				Type:        bot.OptionBoolean,
				Name:        "private",
				Description: "Only show the message to you",
			},
		)
}

func handleEcho(ctx *bot.InteractionContext) error {
	options := ctx.Options()

	text := discordutil.GetStringOptionOrDefault(options, "text", "")
	times := discordutil.GetIntOptionOrDefault(options, "times", 1)
	private := discordutil.GetBoolOptionOrDefault(options, "private", false)

	if times < 1 || times > maxEchoRepeat {
		return ctx.Reply("I can only repeat something 1 to 5 times.", true)
	}

	return ctx.Reply(strings.TrimSpace(strings.Repeat(text+"\n", int(times))), private)
}
