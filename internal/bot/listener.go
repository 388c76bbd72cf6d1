package bot

import (
	"sync"

	"github.com/bwmarrin/discordgo"
)

type EventName int

const (
	EventReady EventName = iota
	EventError
	EventGuildJoined
	EventGuildLeft
)

func (n EventName) String() string {
	switch n {
	case EventReady:
		return "ready"
	case EventError:
		return "error"
	case EventGuildJoined:
		return "guildJoined"
	case EventGuildLeft:
		return "guildLeft"
	default:
		return "unknown"
	}
}

// Event is one of ReadyEvent, ErrorEvent, GuildJoinedEvent or GuildLeftEvent.
type Event interface {
	Name() EventName
}

type ReadyEvent struct {
	*discordgo.Ready
}

type ErrorEvent struct {
	Err error
}

type GuildJoinedEvent struct {
	Guild *discordgo.Guild
}

type GuildLeftEvent struct {
	Guild *discordgo.Guild
}

func (ReadyEvent) Name() EventName       { return EventReady }
func (ErrorEvent) Name() EventName       { return EventError }
func (GuildJoinedEvent) Name() EventName { return EventGuildJoined }
func (GuildLeftEvent) Name() EventName   { return EventGuildLeft }

type ListenerFunc func(ev Event)

// ListenerRegistry holds at most one listener per event name.
type ListenerRegistry struct {
	mu        sync.RWMutex
	listeners map[EventName]ListenerFunc
}

func NewListenerRegistry() *ListenerRegistry {
	return &ListenerRegistry{
		listeners: make(map[EventName]ListenerFunc),
	}
}

// Set replaces any listener previously registered for name.
func (r *ListenerRegistry) Set(name EventName, fn ListenerFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if fn == nil {
		delete(r.listeners, name)
		return
	}

	r.listeners[name] = fn
}

func (r *ListenerRegistry) Get(name EventName) (ListenerFunc, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	fn, ok := r.listeners[name]
	return fn, ok
}

func (r *ListenerRegistry) Emit(ev Event) {
	var name EventName

	switch ev.(type) {
	case ReadyEvent:
		name = EventReady
	case ErrorEvent:
		name = EventError
	case GuildJoinedEvent:
		name = EventGuildJoined
	case GuildLeftEvent:
		name = EventGuildLeft
	default:
		return
	}

	if fn, ok := r.Get(name); ok {
		fn(ev)
	}
}
