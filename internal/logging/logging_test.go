package logging

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/conduit-lang/pipecheck/internal/cli/config"
	"github.com/conduit-lang/pipecheck/internal/graph"
)

func TestNew(t *testing.T) {
	for _, dev := range []bool{false, true} {
		logger, err := New(config.LogConfig{Level: "debug", Development: dev})
		require.NoError(t, err)
		assert.True(t, logger.Core().Enabled(zapcore.DebugLevel))
	}

	logger, err := New(config.LogConfig{Level: "warn"})
	require.NoError(t, err)
	assert.False(t, logger.Core().Enabled(zapcore.InfoLevel))

	_, err = New(config.LogConfig{Level: "loud"})
	assert.Error(t, err)
}

func TestPropagationLogsPass(t *testing.T) {
	var buf bytes.Buffer
	g := graph.New(graph.WithLogger(NewWriter(&buf, zapcore.InfoLevel)))
	require.NoError(t, g.AddOperator(graph.NewOperator("Empty", "noop")))

	report := g.Propagate(context.Background())

	assert.Contains(t, buf.String(), "propagation finished")
	assert.Contains(t, buf.String(), report.PassID.String())
	assert.NotContains(t, buf.String(), "propagation started", "debug entries are filtered")
}
