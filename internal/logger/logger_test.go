package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInit_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Init(&buf, "warn", false))
	ctx := context.Background()

	Get().Info(ctx, "hidden")
	Get().Warn(ctx, "shown", String("match", "r1.qbj"), Int("question", 4))

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "msg=shown")
	assert.Contains(t, out, "match=r1.qbj")
	assert.Contains(t, out, "question=4")
}

func TestInit_JSONAndNamed(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Init(&buf, "debug", true))

	Named("ingest").Debug(context.Background(), "loaded", Error(errors.New("boom")))

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "loaded", rec["msg"])
	assert.Equal(t, "ingest", rec["component"])
	assert.Equal(t, "DEBUG", rec["level"])
}

func TestSetLevelString(t *testing.T) {
	for _, lvl := range []string{"debug", "INFO", "", "warning", "error"} {
		assert.NoError(t, SetLevelString(lvl), lvl)
	}
	assert.Error(t, SetLevelString("loud"))
}
