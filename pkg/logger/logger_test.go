package logger

import (
	"testing"

	"github.com/csaibalakrishna/URL-DETECTOR/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		config  config.LoggerConfig
		wantErr bool
	}{
		{
			name:   "valid json config",
			config: config.LoggerConfig{Level: "debug", Format: "json"},
		},
		{
			name:   "valid console config",
			config: config.LoggerConfig{Level: "info", Format: "console"},
		},
		{
			name:    "invalid level",
			config:  config.LoggerConfig{Level: "invalid", Format: "json"},
			wantErr: true,
		},
		{
			name:   "empty config uses defaults",
			config: config.LoggerConfig{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, err := New(tt.config)
			if tt.wantErr {
				assert.Error(t, err)
				assert.Nil(t, logger)
			} else {
				assert.NoError(t, err)
				assert.NotNil(t, logger)
			}
		})
	}
}

func TestDerivedLoggers(t *testing.T) {
	log, err := New(config.LoggerConfig{Level: "debug", Format: "json", OutputPaths: []string{"stderr"}})
	require.NoError(t, err)

	log.WithComponent("extractor").Infow("component message", "key", "value")
	log.WithURL("https://example.com").Debugw("url message")
	log.WithFields("a", 1, "b", 2).Warn("fields message")

	Nop().Errorw("discarded", "key", "value")
}
