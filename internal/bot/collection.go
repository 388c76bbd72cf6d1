package bot

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

var (
	ErrUnknownCommand   = errors.New("unknown command")
	ErrDuplicateCommand = errors.New("duplicate command")
)

// CommandCollection is the local dispatch table, keyed by command name.
type CommandCollection struct {
	mu       sync.RWMutex
	commands map[string]Command
}

func NewCommandCollection() *CommandCollection {
	return &CommandCollection{
		commands: make(map[string]Command),
	}
}

func (c *CommandCollection) Add(cmd Command) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.commands[cmd.Name()]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateCommand, cmd.Name())
	}

	c.commands[cmd.Name()] = cmd
	return nil
}

func (c *CommandCollection) Get(name string) (Command, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	cmd, ok := c.commands[name]
	return cmd, ok
}

func (c *CommandCollection) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	names := make([]string, 0, len(c.commands))
	for name := range c.commands {
		names = append(names, name)
	}
	sort.Strings(names)

	return names
}

func (c *CommandCollection) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.commands)
}
