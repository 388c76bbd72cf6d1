package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"

	"github.com/UTD-JLA/slashbot/internal/config"
	"github.com/go-json-experiment/json"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Placeholder is logged in place of a message that could not be serialized.
const Placeholder = "[unserializable]"

type Options struct {
	Level string
	// MaxLogSize is the size in megabytes a log file may reach before it is rotated.
	MaxLogSize int
	// File enables a rotating log file in addition to Writer.
	File   string
	Writer io.Writer
}

func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Level:      cfg.LogLevel,
		MaxLogSize: cfg.MaxLogSize,
		File:       cfg.LogFile,
	}
}

// Sink is the shared output and minimum level for every named logger.
type Sink struct {
	level   *slog.LevelVar
	handler slog.Handler
	file    *lumberjack.Logger

	mu      sync.Mutex
	loggers map[string]*Logger
}

func New(opts Options) (*Sink, error) {
	level := new(slog.LevelVar)

	if opts.Level != "" {
		l, err := ParseLevel(opts.Level)
		if err != nil {
			return nil, err
		}
		level.Set(l)
	}

	w := opts.Writer
	if w == nil {
		w = os.Stderr
	}

	var file *lumberjack.Logger

	if opts.File != "" {
		file = &lumberjack.Logger{
			Filename: opts.File,
			MaxSize:  opts.MaxLogSize,
		}
		w = io.MultiWriter(w, file)
	}

	handler := slog.NewTextHandler(w, &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: replaceLevel,
	})

	return &Sink{
		level:   level,
		handler: handler,
		file:    file,
		loggers: make(map[string]*Logger),
	}, nil
}

// Named returns the logger for a subsystem, creating it on first use.
func (s *Sink) Named(name string) *Logger {
	s.mu.Lock()
	defer s.mu.Unlock()

	if l, ok := s.loggers[name]; ok {
		return l
	}

	l := &Logger{
		name:   name,
		logger: slog.New(s.handler).With(slog.String("logger", name)),
	}
	s.loggers[name] = l

	return l
}

func (s *Sink) Level() slog.Level {
	return s.level.Level()
}

func (s *Sink) SetLevel(level slog.Level) {
	s.level.Set(level)
}

func (s *Sink) Close() error {
	if s.file == nil {
		return nil
	}

	return s.file.Close()
}

type Logger struct {
	name   string
	logger *slog.Logger
}

func (l *Logger) Name() string {
	return l.name
}

// Slog exposes the underlying structured logger.
func (l *Logger) Slog() *slog.Logger {
	return l.logger
}

func (l *Logger) With(args ...any) *Logger {
	return &Logger{name: l.name, logger: l.logger.With(args...)}
}

func (l *Logger) Log(ctx context.Context, level slog.Level, msg any, args ...any) {
	if !l.logger.Enabled(ctx, level) {
		return
	}

	l.logger.Log(ctx, level, Stringify(msg), args...)
}

func (l *Logger) Audit(msg any, args ...any) {
	l.Log(context.Background(), LevelAudit, msg, args...)
}

// Fatal logs at the fatal level. It does not exit the process.
func (l *Logger) Fatal(msg any, args ...any) {
	l.Log(context.Background(), LevelFatal, msg, args...)
}

func (l *Logger) Error(msg any, args ...any) {
	l.Log(context.Background(), LevelError, msg, args...)
}

func (l *Logger) Warn(msg any, args ...any) {
	l.Log(context.Background(), LevelWarn, msg, args...)
}

func (l *Logger) Info(msg any, args ...any) {
	l.Log(context.Background(), LevelInfo, msg, args...)
}

func (l *Logger) Debug(msg any, args ...any) {
	l.Log(context.Background(), LevelDebug, msg, args...)
}

func (l *Logger) Silly(msg any, args ...any) {
	l.Log(context.Background(), LevelSilly, msg, args...)
}

// Stringify renders an arbitrary log payload as text. Payloads that cannot be
// rendered, including ones whose String or Error method panics, become
// Placeholder.
func Stringify(v any) (s string) {
	defer func() {
		if r := recover(); r != nil {
			s = Placeholder
		}
	}()

	switch m := v.(type) {
	case string:
		return m
	case error:
		return m.Error()
	case fmt.Stringer:
		return m.String()
	}

	b, err := json.Marshal(v)
	if err != nil {
		return Placeholder
	}

	return string(b)
}
