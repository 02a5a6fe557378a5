package reactor

import (
	"errors"
	"testing"

	"github.com/joeycumines/logiface"
	"github.com/stretchr/testify/require"
)

func TestLogifaceLogger_WritesEnabledEvents(t *testing.T) {
	var got []*LogifaceEvent
	logger := NewLogifaceLogger(LogifaceWriterFunc(func(e *LogifaceEvent) error {
		got = append(got, e)
		return nil
	}), logiface.LevelInformational)

	require.True(t, logger.IsEnabled(LevelInfo))
	require.False(t, logger.IsEnabled(LevelDebug))

	logger.Log(Entry{
		Level:    LevelInfo,
		Category: "poll",
		Message:  "tick",
		Fields:   map[string]any{"fd": 3},
	})

	require.Len(t, got, 1)
	require.Equal(t, "tick", got[0].Message())
	require.Equal(t, 3, got[0].Fields()["fd"])
	require.Equal(t, "poll", got[0].Fields()["category"])
}

func TestLogifaceLogger_SuppressesBelowThreshold(t *testing.T) {
	var got int
	logger := NewLogifaceLogger(LogifaceWriterFunc(func(e *LogifaceEvent) error {
		got++
		return nil
	}), logiface.LevelInformational)

	logger.Log(Entry{Level: LevelDebug, Message: "should not appear"})

	require.Zero(t, got)
}

func TestLogifaceLogger_PropagatesError(t *testing.T) {
	var got *LogifaceEvent
	logger := NewLogifaceLogger(LogifaceWriterFunc(func(e *LogifaceEvent) error {
		got = e
		return nil
	}), logiface.LevelInformational)

	boom := errors.New("boom")
	logger.Log(Entry{Level: LevelError, Message: "failed", Err: boom})

	require.NotNil(t, got)
	require.Same(t, boom, got.Err())
}
