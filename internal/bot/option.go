package bot

import "github.com/bwmarrin/discordgo"

type OptionType int

const (
	OptionInteger OptionType = iota
	OptionString
	OptionUser
	OptionBoolean
	OptionNumber
	OptionRole
	OptionChannel
	OptionMentionable
)

var optionTypes = map[OptionType]discordgo.ApplicationCommandOptionType{
	OptionInteger:     discordgo.ApplicationCommandOptionInteger,
	OptionString:      discordgo.ApplicationCommandOptionString,
	OptionUser:        discordgo.ApplicationCommandOptionUser,
	OptionBoolean:     discordgo.ApplicationCommandOptionBoolean,
	OptionNumber:      discordgo.ApplicationCommandOptionNumber,
	OptionRole:        discordgo.ApplicationCommandOptionRole,
	OptionChannel:     discordgo.ApplicationCommandOptionChannel,
	OptionMentionable: discordgo.ApplicationCommandOptionMentionable,
}

func (t OptionType) Discord() discordgo.ApplicationCommandOptionType {
	return optionTypes[t]
}

func (t OptionType) String() string {
	switch t {
	case OptionInteger:
		return "integer"
	case OptionString:
		return "string"
	case OptionUser:
		return "user"
	case OptionBoolean:
		return "boolean"
	case OptionNumber:
		return "number"
	case OptionRole:
		return "role"
	case OptionChannel:
		return "channel"
	case OptionMentionable:
		return "mentionable"
	default:
		return "unknown"
	}
}

func (t OptionType) supportsChoices() bool {
	return t == OptionInteger || t == OptionString || t == OptionNumber
}

type Choice struct {
	Name  string
	Value interface{}
}

// Option declares one typed parameter of a command or sub-command.
type Option struct {
	Type        OptionType
	Name        string
	Description string
	Required    bool
	Choices     []Choice
}

func (o Option) build() *discordgo.ApplicationCommandOption {
	option := &discordgo.ApplicationCommandOption{
		Type:        o.Type.Discord(),
		Name:        o.Name,
		Description: o.Description,
		Required:    o.Required,
	}

	for _, c := range o.Choices {
		option.Choices = append(option.Choices, &discordgo.ApplicationCommandOptionChoice{
			Name:  c.Name,
			Value: c.Value,
		})
	}

	return option
}

// buildOptions emits required options first, keeping declaration order within
// each group. Discord rejects a required option that follows an optional one.
func buildOptions(options []Option) []*discordgo.ApplicationCommandOption {
	built := make([]*discordgo.ApplicationCommandOption, 0, len(options))

	for _, o := range options {
		if o.Required {
			built = append(built, o.build())
		}
	}

	for _, o := range options {
		if !o.Required {
			built = append(built, o.build())
		}
	}

	return built
}
