package logger_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/linemk/price-guess/internal/lib/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]interface{} {
	t.Helper()
	var res []map[string]interface{}
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(line), &m))
		res = append(res, m)
	}
	return res
}

func TestNew_Dev(t *testing.T) {
	var buf bytes.Buffer
	log := logger.New(logger.EnvDev, &buf)

	log.Debug("debug line", logger.Err(errors.New("boom")))

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "DEBUG", lines[0]["level"])
	assert.Equal(t, logger.ServiceName, lines[0]["service"])
	assert.Equal(t, logger.EnvDev, lines[0]["env"])
	assert.Equal(t, "boom", lines[0]["error"])
}

func TestNew_ProdSkipsDebug(t *testing.T) {
	var buf bytes.Buffer
	log := logger.New(logger.EnvProd, &buf)

	log.Debug("hidden")
	log.Info("shown")

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "shown", lines[0]["msg"])
}

func TestNew_UnknownEnvFallsBackToProd(t *testing.T) {
	var buf bytes.Buffer
	log := logger.New("staging", &buf)
	log.Debug("hidden")

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "WARN", lines[0]["level"])
	assert.Equal(t, "staging", lines[0]["requested_env"])
	assert.Equal(t, logger.EnvProd, lines[0]["env"])
}

func TestNew_LocalPretty(t *testing.T) {
	var buf bytes.Buffer
	log := logger.New(logger.EnvLocal, &buf)

	log.Info("hello", logger.Err(errors.New("boom")))

	out := buf.String()
	assert.Contains(t, out, "hello")
	assert.Contains(t, out, "boom")
}
