package discordutil

import "github.com/bwmarrin/discordgo"

// Member is nil outside of guilds, User is nil inside them.
func GetInteractionUser(i *discordgo.Interaction) *discordgo.User {
	if i.Member != nil {
		return i.Member.User
	}
	return i.User
}

func IsSameInteractionUser(a, b *discordgo.Interaction) bool {
	ua, ub := GetInteractionUser(a), GetInteractionUser(b)
	return ua != nil && ub != nil && ua.ID == ub.ID
}
