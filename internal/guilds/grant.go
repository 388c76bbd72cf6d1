package guilds

import "github.com/bwmarrin/discordgo"

// Grant allows or denies one principal the use of a command in a guild.
type Grant struct {
	GuildID       string
	Command       string
	PrincipalID   string
	PrincipalType discordgo.ApplicationCommandPermissionType
	Allow         bool
}

func NewUserGrant(guildID, command, userID string, allow bool) Grant {
	return Grant{
		GuildID:       guildID,
		Command:       command,
		PrincipalID:   userID,
		PrincipalType: discordgo.ApplicationCommandPermissionTypeUser,
		Allow:         allow,
	}
}

func NewRoleGrant(guildID, command, roleID string, allow bool) Grant {
	return Grant{
		GuildID:       guildID,
		Command:       command,
		PrincipalID:   roleID,
		PrincipalType: discordgo.ApplicationCommandPermissionTypeRole,
		Allow:         allow,
	}
}

func (g Grant) Permission() *discordgo.ApplicationCommandPermissions {
	return &discordgo.ApplicationCommandPermissions{
		ID:         g.PrincipalID,
		Type:       g.PrincipalType,
		Permission: g.Allow,
	}
}

func ToPermissions(grants []Grant) []*discordgo.ApplicationCommandPermissions {
	permissions := make([]*discordgo.ApplicationCommandPermissions, 0, len(grants))
	for _, g := range grants {
		permissions = append(permissions, g.Permission())
	}

	return permissions
}
