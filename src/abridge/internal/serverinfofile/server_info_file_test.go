package serverinfofile

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/config"
	"go.uber.org/fx/fxtest"
	"go.uber.org/zap"
)

func provider(t *testing.T, yaml string) config.Provider {
	t.Helper()
	p, err := config.NewYAML(config.Source(strings.NewReader(yaml)))
	require.NoError(t, err)
	return p
}

func TestNew(t *testing.T) {
	infoFile := filepath.Join(t.TempDir(), "abridge-info.json")

	t.Run("valid config", func(t *testing.T) {
		lc := fxtest.NewLifecycle(t)
		s, err := New(Params{
			Config:    provider(t, "serverInfoFilePath: "+infoFile+"\n"),
			Lifecycle: lc,
			Logger:    zap.NewNop().Sugar(),
		})
		require.NoError(t, err)
		assert.NotNil(t, s)
	})

	t.Run("missing key", func(t *testing.T) {
		lc := fxtest.NewLifecycle(t)
		_, err := New(Params{
			Config:    provider(t, "unrelated: value\n"),
			Lifecycle: lc,
			Logger:    zap.NewNop().Sugar(),
		})
		assert.Error(t, err)
	})
}

func TestUpdateField(t *testing.T) {
	infoFile := filepath.Join(t.TempDir(), "abridge-info.json")
	lc := fxtest.NewLifecycle(t)
	s, err := New(Params{
		Config:    provider(t, "serverInfoFilePath: "+infoFile+"\n"),
		Lifecycle: lc,
		Logger:    zap.NewNop().Sugar(),
	})
	require.NoError(t, err)

	require.NoError(t, s.UpdateField("address", "127.0.0.1:27883"))
	require.NoError(t, s.UpdateField("pid", "4242"))

	raw, err := os.ReadFile(infoFile)
	require.NoError(t, err)
	var contents map[string]string
	require.NoError(t, json.Unmarshal(raw, &contents))
	assert.Equal(t, map[string]string{
		"address": "127.0.0.1:27883",
		"pid":     "4242",
	}, contents)
}

func TestOnStopRemovesFile(t *testing.T) {
	infoFile := filepath.Join(t.TempDir(), "abridge-info.json")
	lc := fxtest.NewLifecycle(t)
	s, err := New(Params{
		Config:    provider(t, "serverInfoFilePath: "+infoFile+"\n"),
		Lifecycle: lc,
		Logger:    zap.NewNop().Sugar(),
	})
	require.NoError(t, err)

	require.NoError(t, s.UpdateField("address", "127.0.0.1:27883"))
	lc.RequireStart()
	lc.RequireStop()

	_, statErr := os.Stat(infoFile)
	assert.True(t, os.IsNotExist(statErr))
}
