package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	assert.NoError(t, cfg.Validate())
	assert.Equal(t, 0.40, cfg.Model.LowThreshold)
	assert.Equal(t, 0.70, cfg.Model.HighThreshold)
	assert.Contains(t, cfg.Lexical.Shorteners, "bit.ly")
}

func TestDefaultListsAreCopies(t *testing.T) {
	cfg := Default()
	cfg.Lexical.SuspiciousTokens[0] = "changed"
	assert.Equal(t, "login", DefaultSuspiciousTokens[0])
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "low above high",
			mutate:  func(c *Config) { c.Model.LowThreshold = 0.8; c.Model.HighThreshold = 0.5 },
			wantErr: "thresholds",
		},
		{
			name:    "high above one",
			mutate:  func(c *Config) { c.Model.HighThreshold = 1.5 },
			wantErr: "thresholds",
		},
		{
			name:   "equal thresholds allowed",
			mutate: func(c *Config) { c.Model.LowThreshold = 0.5; c.Model.HighThreshold = 0.5 },
		},
		{
			name:    "missing model path",
			mutate:  func(c *Config) { c.Model.Path = "" },
			wantErr: "model.path",
		},
		{
			name:    "zero dns timeout",
			mutate:  func(c *Config) { c.Probes.DNSTimeout = 0 },
			wantErr: "probes.dns_timeout",
		},
		{
			name:    "negative budget",
			mutate:  func(c *Config) { c.Probes.TotalBudget = -time.Second },
			wantErr: "probes.total_budget",
		},
		{
			name:    "no trees",
			mutate:  func(c *Config) { c.Model.Trees = 0 },
			wantErr: "model.trees",
		},
		{
			name:    "zero body cap",
			mutate:  func(c *Config) { c.Probes.MaxBodyBytes = 0 },
			wantErr: "max_body_bytes",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			if assert.Error(t, err) {
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}
