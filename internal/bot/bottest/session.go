// Package bottest provides an in-memory bot.Session for tests.
package bottest

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"sync"
	"time"

	"github.com/UTD-JLA/slashbot/internal/bot"
	"github.com/bwmarrin/discordgo"
)

var _ bot.Session = (*Session)(nil)

const discordEpoch = 1420070400000

// NewSnowflake returns a snowflake ID created at t.
func NewSnowflake(t time.Time) string {
	return strconv.FormatInt((t.UnixMilli()-discordEpoch)<<22, 10)
}

type PermissionsEdit struct {
	GuildID     string
	CommandID   string
	Permissions []*discordgo.ApplicationCommandPermissions
}

type CommandEdit struct {
	GuildID   string
	CommandID string
	Command   *discordgo.ApplicationCommand
}

type Response struct {
	Interaction *discordgo.Interaction
	Response    *discordgo.InteractionResponse
}

type Followup struct {
	Interaction *discordgo.Interaction
	Params      *discordgo.WebhookParams
}

// Session records every request made through it. Errors can be injected per
// call site; the zero value is ready to use.
type Session struct {
	mu sync.Mutex

	Guilds map[string]*discordgo.Guild

	OpenErr             error
	CreateErr           error
	GuildErrs           map[string]error
	PermissionsEditErrs map[string]error
	RespondErr          error

	Opened           bool
	Closed           bool
	Created          []*discordgo.ApplicationCommand
	Deleted          []string
	CommandEdits     []CommandEdit
	PermissionsEdits []PermissionsEdit
	Responses        []Response
	Followups        []Followup

	handlers []interface{}
	nextID   int
}

// AddGuild makes the session report membership of a guild.
func (s *Session) AddGuild(g *discordgo.Guild) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.Guilds == nil {
		s.Guilds = make(map[string]*discordgo.Guild)
	}
	s.Guilds[g.ID] = g
}

func (s *Session) Open() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.OpenErr != nil {
		return s.OpenErr
	}

	s.Opened = true
	return nil
}

func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.Closed = true
	return nil
}

func (s *Session) AddHandler(handler interface{}) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.handlers = append(s.handlers, handler)
	index := len(s.handlers) - 1

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.handlers[index] = nil
	}
}

// HandlerCount returns the number of attached handlers.
func (s *Session) HandlerCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, h := range s.handlers {
		if h != nil {
			n++
		}
	}
	return n
}

// Emit calls every attached handler whose event parameter accepts event, the
// way discordgo dispatches gateway events.
func (s *Session) Emit(event interface{}) int {
	s.mu.Lock()
	handlers := make([]interface{}, len(s.handlers))
	copy(handlers, s.handlers)
	s.mu.Unlock()

	ev := reflect.ValueOf(event)
	called := 0

	for _, h := range handlers {
		if h == nil {
			continue
		}

		fn := reflect.ValueOf(h)
		t := fn.Type()
		if t.Kind() != reflect.Func || t.NumIn() != 2 || t.In(1) != ev.Type() {
			continue
		}

		fn.Call([]reflect.Value{reflect.Zero(t.In(0)), ev})
		called++
	}

	return called
}

func (s *Session) ApplicationCommandCreate(appID, guildID string, cmd *discordgo.ApplicationCommand, options ...discordgo.RequestOption) (*discordgo.ApplicationCommand, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.CreateErr != nil {
		return nil, s.CreateErr
	}

	s.nextID++
	created := *cmd
	created.ID = fmt.Sprintf("cmd-%d", s.nextID)
	created.ApplicationID = appID
	created.GuildID = guildID
	s.Created = append(s.Created, &created)

	return &created, nil
}

func (s *Session) ApplicationCommandEdit(appID, guildID, cmdID string, cmd *discordgo.ApplicationCommand, options ...discordgo.RequestOption) (*discordgo.ApplicationCommand, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.CommandEdits = append(s.CommandEdits, CommandEdit{GuildID: guildID, CommandID: cmdID, Command: cmd})

	edited := *cmd
	edited.ID = cmdID
	return &edited, nil
}

func (s *Session) ApplicationCommandDelete(appID, guildID, cmdID string, options ...discordgo.RequestOption) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.Deleted = append(s.Deleted, cmdID)
	return nil
}

func (s *Session) ApplicationCommandPermissionsEdit(appID, guildID, cmdID string, permissions *discordgo.ApplicationCommandPermissionsList, options ...discordgo.RequestOption) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.PermissionsEditErrs[guildID]; err != nil {
		return err
	}

	s.PermissionsEdits = append(s.PermissionsEdits, PermissionsEdit{
		GuildID:     guildID,
		CommandID:   cmdID,
		Permissions: permissions.Permissions,
	})
	return nil
}

func (s *Session) UserGuilds(limit int, beforeID, afterID string, options ...discordgo.RequestOption) ([]*discordgo.UserGuild, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	guilds := make([]*discordgo.UserGuild, 0, len(s.Guilds))
	for _, g := range s.Guilds {
		guilds = append(guilds, &discordgo.UserGuild{ID: g.ID, Name: g.Name})
	}

	// a single page is enough for tests
	if afterID != "" {
		return nil, nil
	}

	return guilds, nil
}

func (s *Session) Guild(guildID string, options ...discordgo.RequestOption) (*discordgo.Guild, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.GuildErrs[guildID]; err != nil {
		return nil, err
	}

	g, ok := s.Guilds[guildID]
	if !ok {
		return nil, errors.New("unknown guild")
	}

	return g, nil
}

func (s *Session) InteractionRespond(interaction *discordgo.Interaction, resp *discordgo.InteractionResponse, options ...discordgo.RequestOption) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.RespondErr != nil {
		return s.RespondErr
	}

	s.Responses = append(s.Responses, Response{Interaction: interaction, Response: resp})
	return nil
}

func (s *Session) FollowupMessageCreate(interaction *discordgo.Interaction, wait bool, data *discordgo.WebhookParams, options ...discordgo.RequestOption) (*discordgo.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.Followups = append(s.Followups, Followup{Interaction: interaction, Params: data})
	return &discordgo.Message{Content: data.Content}, nil
}

// ResponseCount returns the number of interaction responses and followups sent.
func (s *Session) ResponseCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.Responses) + len(s.Followups)
}

// NewCommandInteraction builds an application command interaction created now.
func NewCommandInteraction(guildID, name string, options ...*discordgo.ApplicationCommandInteractionDataOption) *discordgo.InteractionCreate {
	return &discordgo.InteractionCreate{
		Interaction: &discordgo.Interaction{
			ID:      NewSnowflake(time.Now()),
			Type:    discordgo.InteractionApplicationCommand,
			GuildID: guildID,
			Member: &discordgo.Member{
				User: &discordgo.User{ID: "user-1", Username: "tester"},
			},
			Data: discordgo.ApplicationCommandInteractionData{
				Name:    name,
				Options: options,
			},
		},
	}
}

// NewSubCommandInteraction builds an interaction invoking /name sub.
func NewSubCommandInteraction(guildID, name, sub string, options ...*discordgo.ApplicationCommandInteractionDataOption) *discordgo.InteractionCreate {
	return NewCommandInteraction(guildID, name, &discordgo.ApplicationCommandInteractionDataOption{
		Name:    sub,
		Type:    discordgo.ApplicationCommandOptionSubCommand,
		Options: options,
	})
}
