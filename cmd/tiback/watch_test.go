package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/tiback/tiback-client/internal/config"
)

func TestSyncLimiterConfig(t *testing.T) {
	t.Run("defaults when unset", func(t *testing.T) {
		cfg := syncLimiterConfig(config.StatusConfig{})
		assert.Equal(t, 0.2, cfg.RequestsPerSecond)
		assert.Equal(t, 2, cfg.BurstSize)
		assert.Equal(t, time.Minute, cfg.CleanupInterval)
		assert.Equal(t, 5*time.Minute, cfg.TTL)
	})

	t.Run("configured limits win", func(t *testing.T) {
		cfg := syncLimiterConfig(config.StatusConfig{SyncRPS: 1, SyncBurst: 5})
		assert.Equal(t, 1.0, cfg.RequestsPerSecond)
		assert.Equal(t, 5, cfg.BurstSize)
		assert.Equal(t, time.Minute, cfg.CleanupInterval)
	})
}
