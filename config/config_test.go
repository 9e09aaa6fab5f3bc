package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "cfg.yaml")
	require.NoError(t, os.WriteFile(p, []byte(`
database:
  host: "localhost"
  port: 5432
  username: "u"
  password: "p"
  name: "db"
kafka:
  host: "localhost"
  port: 9092
  conversation_handled_topic_name: "conversation.handled"
redis:
  host: "localhost"
  port: 6379
sac:
  http_addr: ":8080"
  kafka_consumer_group: "sac-worker"
  carrier_base_url: "https://api.intelipost.com.br"
  carrier_api_key: "k"
  messaging_base_url: "https://chat.example.com"
  messaging_token: "t"
  bot_base_url: "https://bot.example.com"
  bot_token: "bt"
  tracking_cache_ttl_seconds: 600
  timezone: "America/Sao_Paulo"
  business_open: "08:30"
  business_close: "17:30"
  holidays:
    - from: "2025-12-24"
      to: "2026-01-02"
      message: "Estamos em recesso de fim de ano."
`), 0o600))

	cfg, err := LoadConfig(p)
	require.NoError(t, err)
	require.Equal(t, "u", cfg.Database.Username)
	require.Equal(t, "conversation.handled", cfg.Kafka.ConversationHandledTopicName)
	require.Equal(t, 6379, cfg.Redis.Port)
	require.Equal(t, ":8080", cfg.SAC.HTTPAddr)
	require.Equal(t, 600, cfg.SAC.TrackingCacheTTLSeconds)
	require.Len(t, cfg.SAC.Holidays, 1)
	require.Equal(t, "2025-12-24", cfg.SAC.Holidays[0].From)
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}
