package discordutil

import (
	"github.com/bwmarrin/discordgo"
)

type Options = []*discordgo.ApplicationCommandInteractionDataOption

func GetOption(options Options, key string) *discordgo.ApplicationCommandInteractionDataOption {
	for _, option := range options {
		if option.Name == key {
			return option
		}
	}

	return nil
}

// GetSubCommandOption returns the sub-command the user invoked, if any.
// Discord always sends it as the only top-level option.
func GetSubCommandOption(options Options) *discordgo.ApplicationCommandInteractionDataOption {
	for _, option := range options {
		if option.Type == discordgo.ApplicationCommandOptionSubCommand {
			return option
		}
	}

	return nil
}

func GetStringOption(options Options, key string) *string {
	option := GetOption(options, key)
	if option == nil {
		return nil
	}

	str := option.StringValue()
	return &str
}

func GetStringOptionOrDefault(options Options, key, defaultValue string) string {
	option := GetOption(options, key)
	if option == nil {
		return defaultValue
	}

	return option.StringValue()
}

func GetIntOptionOrDefault(options Options, key string, defaultValue int64) int64 {
	option := GetOption(options, key)
	if option == nil {
		return defaultValue
	}

	return option.IntValue()
}

func GetBoolOptionOrDefault(options Options, key string, defaultValue bool) bool {
	option := GetOption(options, key)
	if option == nil {
		return defaultValue
	}

	return option.BoolValue()
}

func GetFloatOptionOrDefault(options Options, key string, defaultValue float64) float64 {
	option := GetOption(options, key)
	if option == nil {
		return defaultValue
	}

	return option.FloatValue()
}
