package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	StoreSQLite = "sqlite"
	StoreMySQL  = "mysql"
)

type Config struct {
	HTTPAddr           string
	StoreDriver        string
	DBDSN              string
	RedisAddr          string
	CacheTTL           time.Duration
	AggregateCacheSize int
	KafkaBrokers       []string
	KafkaTopic         string
	KafkaIngestTopic   string
	KafkaGroupID       string
	BatchSize          uint64
	FlushInterval      time.Duration
	OtelEndpoint       string
	SuiRPCURL          string
	RPCTimeout         time.Duration
	LogLevel           string
	LogFile            string
	LogMaxSizeMB       int
	LogMaxBackups      int
	MaxBundleBytes     int64
}

type EnvSource interface {
	Lookup(key string) (string, bool)
}

type EnvMap map[string]string

func (e EnvMap) Lookup(key string) (string, bool) {
	value, ok := e[key]
	return value, ok
}

func FromEnviron() EnvSource {
	env := make(EnvMap)
	for _, entry := range os.Environ() {
		if entry == "" {
			continue
		}
		parts := strings.SplitN(entry, "=", 2)
		if len(parts) != 2 {
			continue
		}
		env[parts[0]] = parts[1]
	}
	return env
}

func Load(source EnvSource) (Config, error) {
	if source == nil {
		return Config{}, errors.New("env source is required")
	}

	storeDriver := StoreSQLite
	if raw, ok := source.Lookup("STORE_DRIVER"); ok && strings.TrimSpace(raw) != "" {
		storeDriver = strings.ToLower(strings.TrimSpace(raw))
	}
	var dbDSN string
	switch storeDriver {
	case StoreSQLite:
		dbDSN = "ptbscope.db"
	case StoreMySQL:
		dbDSN = "root:@tcp(127.0.0.1:3306)/ptbscope?parseTime=true&multiStatements=true"
	default:
		return Config{}, fmt.Errorf("invalid STORE_DRIVER %q: want %s or %s", storeDriver, StoreSQLite, StoreMySQL)
	}
	if raw, ok := source.Lookup("DB_DSN"); ok && strings.TrimSpace(raw) != "" {
		dbDSN = raw
	}

	httpAddr := ":8080"
	if raw, ok := source.Lookup("HTTP_ADDR"); ok && raw != "" {
		httpAddr = raw
	}

	redisAddr, _ := source.Lookup("REDIS_ADDR")
	redisAddr = strings.TrimSpace(redisAddr)

	cacheTTL, err := parseDurationEnv(source, "CACHE_TTL", time.Hour)
	if err != nil {
		return Config{}, err
	}
	aggregateCacheSize, err := parseUintEnv(source, "AGGREGATE_CACHE_SIZE", 256)
	if err != nil {
		return Config{}, err
	}
	if aggregateCacheSize == 0 {
		return Config{}, errors.New("AGGREGATE_CACHE_SIZE must be positive")
	}

	kafkaBrokers := parseOptionalList(source, "KAFKA_BROKERS")
	kafkaTopic, ok := source.Lookup("KAFKA_TOPIC")
	if !ok || kafkaTopic == "" {
		kafkaTopic = "ptbscope-replays"
	}
	kafkaIngestTopic, _ := source.Lookup("KAFKA_INGEST_TOPIC")
	kafkaIngestTopic = strings.TrimSpace(kafkaIngestTopic)
	kafkaGroupID, ok := source.Lookup("KAFKA_GROUP_ID")
	if !ok || kafkaGroupID == "" {
		kafkaGroupID = "ptbscope-ingest"
	}
	if kafkaIngestTopic != "" && len(kafkaBrokers) == 0 {
		return Config{}, errors.New("KAFKA_BROKERS is required when KAFKA_INGEST_TOPIC is set")
	}
	batchSize, err := parseUintEnv(source, "BATCH_SIZE", 50)
	if err != nil {
		return Config{}, err
	}
	flushInterval, err := parseDurationEnv(source, "FLUSH_INTERVAL", 500*time.Millisecond)
	if err != nil {
		return Config{}, err
	}

	otelEndpoint, _ := source.Lookup("OTEL_EXPORTER_OTLP_ENDPOINT")
	otelEndpoint = strings.TrimSpace(otelEndpoint)

	suiRPCURL, _ := source.Lookup("SUI_RPC_URL")
	suiRPCURL = strings.TrimSpace(suiRPCURL)
	rpcTimeout, err := parseDurationEnv(source, "RPC_TIMEOUT", 10*time.Second)
	if err != nil {
		return Config{}, err
	}

	logLevel, _ := source.Lookup("LOG_LEVEL")
	logFile, _ := source.Lookup("LOG_FILE")
	logMaxSize, err := parseUintEnv(source, "LOG_MAX_SIZE_MB", 100)
	if err != nil {
		return Config{}, err
	}
	logMaxBackups, err := parseUintEnv(source, "LOG_MAX_BACKUPS", 5)
	if err != nil {
		return Config{}, err
	}
	maxBundleBytes, err := parseUintEnv(source, "MAX_BUNDLE_BYTES", 32<<20)
	if err != nil {
		return Config{}, err
	}

	return Config{
		HTTPAddr:           httpAddr,
		StoreDriver:        storeDriver,
		DBDSN:              dbDSN,
		RedisAddr:          redisAddr,
		CacheTTL:           cacheTTL,
		AggregateCacheSize: int(aggregateCacheSize),
		KafkaBrokers:       kafkaBrokers,
		KafkaTopic:         kafkaTopic,
		KafkaIngestTopic:   kafkaIngestTopic,
		KafkaGroupID:       kafkaGroupID,
		BatchSize:          batchSize,
		FlushInterval:      flushInterval,
		OtelEndpoint:       otelEndpoint,
		SuiRPCURL:          suiRPCURL,
		RPCTimeout:         rpcTimeout,
		LogLevel:           strings.TrimSpace(logLevel),
		LogFile:            strings.TrimSpace(logFile),
		LogMaxSizeMB:       int(logMaxSize),
		LogMaxBackups:      int(logMaxBackups),
		MaxBundleBytes:     int64(maxBundleBytes),
	}, nil
}

func parseUintEnv(source EnvSource, key string, defaultValue uint64) (uint64, error) {
	raw, ok := source.Lookup(key)
	if !ok || raw == "" {
		return defaultValue, nil
	}
	value, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return value, nil
}

func parseDurationEnv(source EnvSource, key string, defaultValue time.Duration) (time.Duration, error) {
	raw, ok := source.Lookup(key)
	if !ok || raw == "" {
		return defaultValue, nil
	}
	duration, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return duration, nil
}

func parseOptionalList(source EnvSource, key string) []string {
	raw, ok := source.Lookup(key)
	if !ok {
		return nil
	}
	var values []string
	for _, item := range strings.Split(raw, ",") {
		value := strings.TrimSpace(item)
		if value == "" {
			continue
		}
		values = append(values, value)
	}
	return values
}
