package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleYAML = `env: dev
service_name: slothsafe-test
http:
  port: "9090"
  shutdown_timeout: 3s
telegram:
  group_id: -100555
  poll_timeout: 15
ledger:
  receiving_wallet: 0.0.8063721
  vote_price: 2
  token_decimals: 8
  token_symbol: SLOTHBAR
  query_limit: 10
  timeout: 4s
storage:
  driver: memory
polls:
  - name: Poll A
    link: https://t.me/c/1/1
    id: poll_a
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, name := range []string{
		"CONFIG_PATH", "TELEGRAM_BOT_TOKEN", "ENABLE_TELEGRAM", "ENABLE_OUTBOX_RELAY",
		"STORAGE_DRIVER", "STORAGE_PATH", "POSTGRES_DSN", "KAFKA_BROKERS", "VOTE_PRICE",
	} {
		t.Setenv(name, "")
		require.NoError(t, os.Unsetenv(name))
	}
}

func TestLoadFromYAML(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(writeConfig(t, sampleYAML))
	require.NoError(t, err)

	assert.Equal(t, "dev", cfg.Env)
	assert.Equal(t, "9090", cfg.HTTP.Port)
	assert.Equal(t, 3*time.Second, cfg.HTTP.ShutdownTimeout)
	assert.Equal(t, int64(-100555), cfg.Telegram.GroupID)
	assert.Equal(t, "0.0.8063721", cfg.Ledger.ReceivingWallet)
	assert.Equal(t, int64(2), cfg.Ledger.VotePrice)
	assert.Equal(t, 10, cfg.Ledger.QueryLimit)
	assert.Equal(t, StorageMemory, cfg.Storage.Driver)
	require.Len(t, cfg.Polls, 1)
	assert.Equal(t, "poll_a", cfg.Polls[0].ID)

	assert.False(t, cfg.EnableTelegram)
	assert.True(t, cfg.EnableOutboxRelay)
	assert.Equal(t, []string{"localhost:9092"}, cfg.KafkaBrokers)
}

func TestLoadEnvOverridesYAML(t *testing.T) {
	clearEnv(t)
	t.Setenv("VOTE_PRICE", "5")
	t.Setenv("TELEGRAM_BOT_TOKEN", "123:abc")
	t.Setenv("ENABLE_OUTBOX_RELAY", "off")

	cfg, err := Load(writeConfig(t, sampleYAML))
	require.NoError(t, err)

	assert.Equal(t, int64(5), cfg.Ledger.VotePrice)
	assert.True(t, cfg.EnableTelegram)
	assert.False(t, cfg.EnableOutboxRelay)
}

func TestLoadFromEnvDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, StorageJSONFile, cfg.Storage.Driver)
	assert.Equal(t, "user_votes.json", cfg.Storage.Path)
	assert.Equal(t, "0.0.8063721", cfg.Ledger.ReceivingWallet)
	assert.Equal(t, int64(1), cfg.Ledger.VotePrice)
	assert.Equal(t, 8, cfg.Ledger.TokenDecimals)
	assert.Equal(t, 5, cfg.Ledger.QueryLimit)
	assert.Equal(t, int64(-1001234567890), cfg.Telegram.GroupID)
	assert.Equal(t, DefaultPolls(), cfg.Polls)
}

func TestPostgresLeavesOutboxRelayToWorker(t *testing.T) {
	clearEnv(t)
	t.Setenv("STORAGE_DRIVER", "postgres")
	t.Setenv("POSTGRES_DSN", "postgres://slothsafe@localhost:5432/slothsafe")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.False(t, cfg.EnableOutboxRelay)

	t.Setenv("ENABLE_OUTBOX_RELAY", "true")
	cfg, err = Load("")
	require.NoError(t, err)
	assert.True(t, cfg.EnableOutboxRelay)
}

func TestLoadRejectsInvalidSettings(t *testing.T) {
	clearEnv(t)
	t.Setenv("STORAGE_DRIVER", "postgres")
	_, err := Load("")
	assert.Error(t, err)

	clearEnv(t)
	t.Setenv("STORAGE_DRIVER", "sqlite")
	_, err = Load("")
	assert.Error(t, err)

	clearEnv(t)
	t.Setenv("ENABLE_TELEGRAM", "true")
	_, err = Load("")
	assert.Error(t, err)
}

func TestLoadMissingFile(t *testing.T) {
	clearEnv(t)
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestEnvBool(t *testing.T) {
	t.Setenv("FLAG_UNDER_TEST", "yes")
	assert.True(t, envBool("FLAG_UNDER_TEST", false))
	t.Setenv("FLAG_UNDER_TEST", "0")
	assert.False(t, envBool("FLAG_UNDER_TEST", true))
	t.Setenv("FLAG_UNDER_TEST", "maybe")
	assert.True(t, envBool("FLAG_UNDER_TEST", true))
}
