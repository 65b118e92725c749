package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockteam/internal/config"
)

func telegramConfig(settings map[string]string) *config.Config {
	cfg := config.Default()
	cfg.Channels = map[string]*config.ChannelConfig{
		"tg": {Enabled: true, Type: "telegram", Settings: settings},
	}
	return cfg
}

func TestBuildChannelsRejectsBadAllowedUsers(t *testing.T) {
	_, err := buildChannels(telegramConfig(map[string]string{
		"bot_token":     "t",
		"allowed_users": "@alice",
	}), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "tg")
	assert.Contains(t, err.Error(), "@alice")
}

func TestBuildChannels(t *testing.T) {
	chs, err := buildChannels(telegramConfig(map[string]string{
		"bot_token":     "t",
		"allowed_users": "1, 2",
	}), nil)
	require.NoError(t, err)
	require.Len(t, chs, 1)
	assert.Equal(t, "telegram", chs[0].Name())

	cfg := telegramConfig(nil)
	cfg.Channels["tg"].Enabled = false
	chs, err = buildChannels(cfg, nil)
	require.NoError(t, err)
	assert.Empty(t, chs)
}
