package discordutil

import (
	"time"

	"github.com/bwmarrin/discordgo"
)

const ResponseDeadline = 3 * time.Second
const InteractionTokenLifetime = 15 * time.Minute

// interactionCreatedAt falls back to the current time when the interaction ID
// is not a snowflake, so malformed IDs never produce an already expired deadline.
func interactionCreatedAt(i *discordgo.Interaction) time.Time {
	timestamp, err := discordgo.SnowflakeTimestamp(i.ID)
	if err != nil {
		return time.Now()
	}

	return timestamp
}

func GetInteractionResponseDeadline(i *discordgo.Interaction) time.Time {
	return interactionCreatedAt(i).Add(ResponseDeadline)
}

func GetInteractionFollowupDeadline(i *discordgo.Interaction) time.Time {
	return interactionCreatedAt(i).Add(InteractionTokenLifetime)
}
