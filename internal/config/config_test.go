package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(EnvMap{})
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, StoreSQLite, cfg.StoreDriver)
	assert.Equal(t, "ptbscope.db", cfg.DBDSN)
	assert.Equal(t, "", cfg.RedisAddr)
	assert.Equal(t, time.Hour, cfg.CacheTTL)
	assert.Equal(t, 256, cfg.AggregateCacheSize)
	assert.Empty(t, cfg.KafkaBrokers)
	assert.Equal(t, "ptbscope-replays", cfg.KafkaTopic)
	assert.Equal(t, int64(32<<20), cfg.MaxBundleBytes)
	assert.Equal(t, 10*time.Second, cfg.RPCTimeout)
}

func TestLoadOverrides(t *testing.T) {
	cfg, err := Load(EnvMap{
		"STORE_DRIVER":       "MySQL",
		"KAFKA_BROKERS":      "a:9092, b:9092,",
		"KAFKA_INGEST_TOPIC": "bundles",
		"CACHE_TTL":          "90s",
		"SUI_RPC_URL":        " https://fullnode.example ",
		"LOG_MAX_BACKUPS":    "2",
	})
	require.NoError(t, err)

	assert.Equal(t, StoreMySQL, cfg.StoreDriver)
	assert.Contains(t, cfg.DBDSN, "tcp(127.0.0.1:3306)/ptbscope")
	assert.Equal(t, []string{"a:9092", "b:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "bundles", cfg.KafkaIngestTopic)
	assert.Equal(t, 90*time.Second, cfg.CacheTTL)
	assert.Equal(t, "https://fullnode.example", cfg.SuiRPCURL)
	assert.Equal(t, 2, cfg.LogMaxBackups)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := map[string]EnvMap{
		"driver":       {"STORE_DRIVER": "postgres"},
		"ttl":          {"CACHE_TTL": "soon"},
		"cache size":   {"AGGREGATE_CACHE_SIZE": "0"},
		"ingest topic": {"KAFKA_INGEST_TOPIC": "bundles"},
		"bundle size":  {"MAX_BUNDLE_BYTES": "-1"},
	}
	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(env)
			assert.Error(t, err)
		})
	}
}

func TestLoadRequiresSource(t *testing.T) {
	_, err := Load(nil)
	assert.Error(t, err)
}

func TestEnvFileOverride(t *testing.T) {
	assert.Equal(t, ".env", envFile(EnvMap{}))
	assert.Equal(t, "local.env", envFile(EnvMap{EnvFileKey: " local.env "}))
}

func TestFileExists(t *testing.T) {
	ok, err := fileExists(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)
	assert.False(t, ok)

	path := filepath.Join(t.TempDir(), "present.env")
	require.NoError(t, os.WriteFile(path, []byte("HTTP_ADDR=:9090\n"), 0o644))
	ok, err = fileExists(path)
	require.NoError(t, err)
	assert.True(t, ok)
}
