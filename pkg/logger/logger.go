// Package logger wraps zerolog with context-scoped fields. Handlers, jobs and
// consumers attach request, user, auction or job identifiers once and every
// later entry written with that context carries them.
package logger

import (
	"context"
	"io"
	"os"
	"runtime/debug"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/angelmondragon/auctionhouse-backend/pkg/env"
)

const (
	FormatJSON    = "json"
	FormatConsole = "console"
)

// Options configures the structured logger. An empty Format is read from
// AUCTIONHOUSE_LOG_FORMAT (or LOG_FORMAT) and defaults to json.
type Options struct {
	ServiceName string
	Level       zerolog.Level
	WarnStack   bool
	Format      string
	Output      io.Writer
}

// Logger is safe to use as a nil pointer; it then discards everything.
type Logger struct {
	root      zerolog.Logger
	warnStack bool
}

var discard = zerolog.Nop()

func New(opts Options) *Logger {
	if opts.Level == zerolog.NoLevel {
		opts.Level = zerolog.InfoLevel
	}
	zerolog.TimeFieldFormat = time.RFC3339Nano
	return &Logger{
		root: zerolog.New(writer(opts)).
			Level(opts.Level).
			With().
			Timestamp().
			Str("service", opts.ServiceName).
			Logger(),
		warnStack: opts.WarnStack,
	}
}

func writer(opts Options) io.Writer {
	out := opts.Output
	if out == nil {
		out = os.Stdout
	}
	format := opts.Format
	if format == "" {
		format = env.First(FormatJSON, "AUCTIONHOUSE_LOG_FORMAT", "LOG_FORMAT")
	}
	if strings.EqualFold(format, FormatConsole) {
		return zerolog.ConsoleWriter{Out: out, TimeFormat: "15:04:05"}
	}
	return out
}

// ParseLevel falls back to info for blank or unknown values.
func ParseLevel(value string) zerolog.Level {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(value)))
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return lvl
}

// from prefers the logger scoped onto ctx by WithFields.
func (l *Logger) from(ctx context.Context) *zerolog.Logger {
	if l == nil {
		return &discard
	}
	if ctx != nil {
		if scoped := zerolog.Ctx(ctx); scoped.GetLevel() != zerolog.Disabled {
			return scoped
		}
	}
	return &l.root
}

func (l *Logger) WithField(ctx context.Context, key string, value any) context.Context {
	return l.WithFields(ctx, map[string]any{key: value})
}

// WithFields returns a child context; the parent keeps its own fields.
func (l *Logger) WithFields(ctx context.Context, fields map[string]any) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if l == nil {
		return ctx
	}
	scoped := l.from(ctx).With().Fields(fields).Logger()
	return scoped.WithContext(ctx)
}

func (l *Logger) WithRequestID(ctx context.Context, requestID string) context.Context {
	return l.WithField(ctx, "request_id", requestID)
}

func (l *Logger) WithUserID(ctx context.Context, userID string) context.Context {
	return l.WithField(ctx, "user_id", userID)
}

func (l *Logger) WithAuctionID(ctx context.Context, auctionID string) context.Context {
	return l.WithField(ctx, "auction_id", auctionID)
}

// WithJob tags entries emitted by scheduled jobs and consumers.
func (l *Logger) WithJob(ctx context.Context, job string) context.Context {
	return l.WithField(ctx, "job", job)
}

func (l *Logger) Debug(ctx context.Context, msg string) {
	l.from(ctx).Debug().Msg(msg)
}

func (l *Logger) Info(ctx context.Context, msg string) {
	l.from(ctx).Info().Msg(msg)
}

func (l *Logger) Warn(ctx context.Context, msg string) {
	e := l.from(ctx).Warn()
	if l != nil && l.warnStack {
		e = withStack(e)
	}
	e.Msg(msg)
}

// Error always records the stack. A nil err still logs the message.
func (l *Logger) Error(ctx context.Context, msg string, err error) {
	e := l.from(ctx).Error()
	if err != nil {
		e = e.Err(err)
	}
	withStack(e).Msg(msg)
}

func withStack(e *zerolog.Event) *zerolog.Event {
	if e == nil {
		return e
	}
	return e.Str("stack", strings.TrimSpace(string(debug.Stack())))
}
