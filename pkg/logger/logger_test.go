package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		give    string
		want    zapcore.Level
		wantErr bool
	}{
		{name: "lower", give: "debug", want: zapcore.DebugLevel},
		{name: "upper with spaces", give: " WARN ", want: zapcore.WarnLevel},
		{name: "invalid", give: "loud", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := ParseLevel(tt.give)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNamed(t *testing.T) {
	t.Parallel()

	lggr, logs := TestObserved(t, zapcore.InfoLevel)
	child := lggr.Named("leagues")
	child.Infow("upserted", "count", 3)

	assert.Equal(t, "leagues", child.Name())
	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "upserted", entry.Message)
	assert.Equal(t, "leagues", entry.LoggerName)
	assert.EqualValues(t, 3, entry.ContextMap()["count"])
}

func TestConfigNew(t *testing.T) {
	t.Parallel()

	cfg := Config{Level: zapcore.ErrorLevel, Encoding: "json"}
	lggr, err := cfg.New()
	require.NoError(t, err)
	require.NotNil(t, lggr)
	assert.Empty(t, lggr.Name())
}
