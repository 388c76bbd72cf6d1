package guilds

import (
	"context"
	"fmt"

	"github.com/UTD-JLA/slashbot/internal/bot"
	"github.com/bwmarrin/discordgo"
	"github.com/jackc/pgx/v5/pgxpool"
)

type GrantRepository struct {
	pool *pgxpool.Pool
}

func NewGrantRepository(pool *pgxpool.Pool) *GrantRepository {
	return &GrantRepository{pool: pool}
}

func (r *GrantRepository) Set(ctx context.Context, g Grant) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return err
	}

	defer conn.Release()

	_, err = conn.Exec(
		ctx,
		`INSERT INTO command_grants (guild_id, command, principal_id, principal_type, allow)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (guild_id, command, principal_id) DO UPDATE SET
				principal_type = $4,
				allow = $5;`,
		g.GuildID,
		g.Command,
		g.PrincipalID,
		int16(g.PrincipalType),
		g.Allow,
	)

	return err
}

func (r *GrantRepository) Delete(ctx context.Context, guildID, command, principalID string) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return err
	}

	defer conn.Release()

	_, err = conn.Exec(
		ctx,
		`DELETE FROM command_grants WHERE guild_id = $1 AND command = $2 AND principal_id = $3;`,
		guildID,
		command,
		principalID,
	)

	return err
}

func (r *GrantRepository) FindByCommand(ctx context.Context, guildID, command string) ([]Grant, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}

	defer conn.Release()

	rows, err := conn.Query(
		ctx,
		`SELECT principal_id, principal_type, allow
			FROM command_grants
			WHERE guild_id = $1 AND command = $2
			ORDER BY principal_id;`,
		guildID,
		command,
	)
	if err != nil {
		return nil, err
	}

	defer rows.Close()

	grants := make([]Grant, 0)

	for rows.Next() {
		var principalType int16
		g := Grant{GuildID: guildID, Command: command}

		if err = rows.Scan(&g.PrincipalID, &principalType, &g.Allow); err != nil {
			return nil, err
		}

		g.PrincipalType = discordgo.ApplicationCommandPermissionType(principalType)
		grants = append(grants, g)
	}

	return grants, rows.Err()
}

// GrantFinder looks up the stored grants of a command in one guild.
type GrantFinder interface {
	FindByCommand(ctx context.Context, guildID, command string) ([]Grant, error)
}

// Resolver looks up the stored grants of command each time permissions are
// computed for a guild.
func (r *GrantRepository) Resolver(command string) bot.PermissionsFunc {
	return NewResolver(r, command)
}

func NewResolver(finder GrantFinder, command string) bot.PermissionsFunc {
	return func(ctx context.Context, guild *discordgo.Guild) ([]*discordgo.ApplicationCommandPermissions, error) {
		grants, err := finder.FindByCommand(ctx, guild.ID, command)
		if err != nil {
			return nil, fmt.Errorf("failed to load grants for %s in %s: %w", command, guild.ID, err)
		}

		return ToPermissions(grants), nil
	}
}
