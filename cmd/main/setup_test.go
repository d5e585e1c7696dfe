package main

import (
	"testing"

	"market-aggregator/src/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func transportNames(t *testing.T, cfg *config.Config) []string {
	t.Helper()
	transports, _, err := setupTransports(cfg)
	require.NoError(t, err)
	var names []string
	for _, tr := range transports {
		names = append(names, tr.Name())
	}
	return names
}

func TestSetupTransportsLocal(t *testing.T) {
	cfg := &config.Config{MConfig: config.Default()}
	cfg.Publish.Websocket.Enabled = false

	// nothing enabled falls back to the local feed
	assert.Equal(t, []string{"local"}, transportNames(t, cfg))

	cfg.Publish.Redis.Enabled = true
	cfg.Publish.Redis.Addr = "localhost:6379"
	assert.Equal(t, []string{"redis"}, transportNames(t, cfg))

	cfg.Publish.Local.Enabled = true
	assert.Equal(t, []string{"redis", "local"}, transportNames(t, cfg))
}
