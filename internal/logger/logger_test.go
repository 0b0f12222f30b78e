package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aanand-mishra/crm-api/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandlerPerEnv(t *testing.T) {
	tests := []struct {
		env        string
		json       bool
		debugLevel bool
	}{
		{env: EnvDev, json: false, debugLevel: true},
		{env: "", json: false, debugLevel: true},
		{env: "unknown", json: false, debugLevel: true},
		{env: EnvStaging, json: true, debugLevel: true},
		{env: EnvProd, json: true, debugLevel: false},
	}

	for _, tt := range tests {
		t.Run(tt.env, func(t *testing.T) {
			var buf bytes.Buffer
			log := slog.New(handler(tt.env, &buf))

			assert.Equal(t, tt.debugLevel, log.Enabled(context.Background(), slog.LevelDebug))
			assert.True(t, log.Enabled(context.Background(), slog.LevelInfo))

			log.Info("hello", slog.String("k", "v"))
			line := strings.TrimSpace(buf.String())

			if tt.json {
				var m map[string]any
				require.NoError(t, json.Unmarshal([]byte(line), &m))
				assert.Equal(t, "hello", m["msg"])
				assert.Equal(t, "v", m["k"])
			} else {
				assert.Contains(t, line, "msg=hello")
				assert.Contains(t, line, "k=v")
			}
		})
	}
}

func TestNewWritesToStdoutByDefault(t *testing.T) {
	log, closer := New(&config.Config{Env: EnvDev})
	require.NotNil(t, log)
	assert.NoError(t, closer.Close())
}

func TestNewWritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "crm.log")

	log, closer := New(&config.Config{
		Env: EnvProd,
		Log: config.Log{Filename: path, MaxSize: 1, MaxAge: 1, MaxBackups: 1},
	})
	log.Info("written to file", slog.Int("n", 7))
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"written to file"`)
	assert.Contains(t, string(data), `"n":7`)
}
