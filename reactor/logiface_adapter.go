package reactor

import (
	"github.com/joeycumines/logiface"
)

// LogifaceEvent is a minimal logiface.Event implementation sufficient to
// carry the fields a reactor Entry produces (category, message, error, and
// arbitrary key/value fields). It exists so LogifaceLogger has a concrete
// type to hand the logiface builder chain without pulling in a full
// third-party backend (zerolog, logrus, stumpy) as a hard dependency of
// this package.
type LogifaceEvent struct {
	logiface.UnimplementedEvent
	level   logiface.Level
	message string
	err     error
	fields  map[string]any
}

func (e *LogifaceEvent) Level() logiface.Level { return e.level }

func (e *LogifaceEvent) AddField(key string, val any) {
	if e.fields == nil {
		e.fields = make(map[string]any, 4)
	}
	e.fields[key] = val
}

func (e *LogifaceEvent) AddMessage(msg string) bool {
	e.message = msg
	return true
}

func (e *LogifaceEvent) AddError(err error) bool {
	e.err = err
	return true
}

// Message returns the text passed to Builder.Log, for writer implementations
// that format it themselves rather than relying on AddMessage's default
// field placement.
func (e *LogifaceEvent) Message() string { return e.message }

// Err returns the error attached via Builder.Err, if any.
func (e *LogifaceEvent) Err() error { return e.err }

// Fields returns the key/value pairs attached via Builder.Field.
func (e *LogifaceEvent) Fields() map[string]any { return e.fields }

// LogifaceWriter receives fully-built LogifaceEvent values. Hosts supply
// one backed by whichever sink (stumpy, zerolog, logrus, slog) their
// process already uses; this package has no opinion beyond the Event shape.
type LogifaceWriter interface {
	Write(event *LogifaceEvent) error
}

// LogifaceWriterFunc adapts a plain function to LogifaceWriter.
type LogifaceWriterFunc func(event *LogifaceEvent) error

func (f LogifaceWriterFunc) Write(event *LogifaceEvent) error { return f(event) }

func entryLevelToLogiface(l Level) logiface.Level {
	switch l {
	case LevelDebug:
		return logiface.LevelDebug
	case LevelInfo:
		return logiface.LevelInformational
	case LevelWarn:
		return logiface.LevelWarning
	case LevelError:
		return logiface.LevelError
	default:
		return logiface.LevelInformational
	}
}

// LogifaceLogger adapts this package's Logger interface onto a
// logiface.Logger, so a host that has already standardized on logiface
// (e.g. via one of its zerolog/logrus/slog/stumpy backends) can point a
// Reactor's structured logging at the same sink as the rest of its process
// instead of maintaining a second logging pipeline.
type LogifaceLogger struct {
	logger *logiface.Logger[*LogifaceEvent]
}

// NewLogifaceLogger builds a Logger backed by a logiface.Logger configured
// with the given writer and minimum level. The returned value satisfies
// this package's Logger interface and may be passed to Reactor.SetLogger.
func NewLogifaceLogger(writer LogifaceWriter, level logiface.Level) *LogifaceLogger {
	factory := logiface.NewEventFactoryFunc(func(lvl logiface.Level) *LogifaceEvent {
		return &LogifaceEvent{level: lvl}
	})
	l := logiface.New[*LogifaceEvent](
		logiface.WithEventFactory[*LogifaceEvent](factory),
		logiface.WithWriter[*LogifaceEvent](logiface.NewWriterFunc(writer.Write)),
		logiface.WithLevel[*LogifaceEvent](level),
	)
	return &LogifaceLogger{logger: l}
}

func (l *LogifaceLogger) IsEnabled(level Level) bool {
	return l.logger.Level().Enabled() && entryLevelToLogiface(level) <= l.logger.Level()
}

func (l *LogifaceLogger) Log(e Entry) {
	b := l.logger.Build(entryLevelToLogiface(e.Level))
	if b == nil {
		return
	}
	if e.Category != "" {
		b = b.Field("category", e.Category)
	}
	for k, v := range e.Fields {
		b = b.Field(k, v)
	}
	if e.Err != nil {
		b = b.Err(e.Err)
	}
	b.Log(e.Message)
}
