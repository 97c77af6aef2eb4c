package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

type Config struct {
	AppEnv            string
	AppName           string
	DBHost            string
	DBPort            string
	DBUser            string
	DBPassword        string
	DBName            string
	DBSSLMode         string
	DBMaxOpenConns    int
	DBMaxIdleConns    int
	DBConnMaxLifetime int // minutes
	RedisHost         string
	RedisPort         string
	RedisPassword     string
	RedisDB           int
	RedisPoolSize     int
	RedisMinIdleConns int
	RedisMaxRetries   int
	KafkaBrokers      []string
	KafkaTopic        string
	HTTPPort          string
	MetricsPort       string
	LogLevel          string

	Trust      TrustConfig
	Suggestion SuggestionConfig
}

// TrustConfig holds the trust scoring weights and bounds. The numbers are
// tuned heuristics, kept configurable rather than hard-coded.
type TrustConfig struct {
	LowConfidencePenalty       int // applied when avg confidence is below LowConfidenceThreshold
	LowConfidenceThreshold     float64
	LowRatioPenalty            int // applied when low-confidence ratio exceeds LowRatioThreshold
	LowRatioThreshold          float64
	DomChangedPenalty          int // per occurrence
	NetworkBlockedPenalty      int // per occurrence
	EmptyResultPenalty         int // applied at EmptyResultThreshold or more empty results
	EmptyResultThreshold       int
	SingleRunFloor             int // one bad run may never push a source below this
	WindowSize                 int // retained runs per source
	BacklogMeanThreshold       float64 // mean score across the window below this suggests backlog
	BreakerConsecutiveFailures uint32  // scoring exceptions before the learning subsystem self-disables
}

// SuggestionConfig holds the suggestion engine thresholds.
type SuggestionConfig struct {
	CriticalScoreThreshold     int
	LowScoreThreshold          int
	DomChangedMin              int
	NetworkBlockedMin          int
	DowngradeCountMin          int
	LowCampaignConfidence      float64
	ConfidencePenaltyPerSignal int
	ConfidenceFloor            int
}

// DefaultTrustConfig returns the tuned defaults for trust scoring.
func DefaultTrustConfig() TrustConfig {
	return TrustConfig{
		LowConfidencePenalty:       20,
		LowConfidenceThreshold:     50,
		LowRatioPenalty:            15,
		LowRatioThreshold:          0.3,
		DomChangedPenalty:          10,
		NetworkBlockedPenalty:      15,
		EmptyResultPenalty:         20,
		EmptyResultThreshold:       2,
		SingleRunFloor:             60,
		WindowSize:                 3,
		BacklogMeanThreshold:       40,
		BreakerConsecutiveFailures: 3,
	}
}

// DefaultSuggestionConfig returns the tuned defaults for suggestion generation.
func DefaultSuggestionConfig() SuggestionConfig {
	return SuggestionConfig{
		CriticalScoreThreshold:     25,
		LowScoreThreshold:          40,
		DomChangedMin:              2,
		NetworkBlockedMin:          1,
		DowngradeCountMin:          2,
		LowCampaignConfidence:      35,
		ConfidencePenaltyPerSignal: 15,
		ConfidenceFloor:            20,
	}
}

func Load() (*Config, error) {
	cfg := &Config{
		AppEnv:        os.Getenv("APP_ENV"),
		AppName:       os.Getenv("APP_NAME"),
		DBHost:        os.Getenv("DB_HOST"),
		DBPort:        os.Getenv("DB_PORT"),
		DBUser:        os.Getenv("DB_USER"),
		DBPassword:    os.Getenv("DB_PASSWORD"),
		DBName:        os.Getenv("DB_NAME"),
		DBSSLMode:     os.Getenv("DB_SSL_MODE"),
		RedisHost:     os.Getenv("REDIS_HOST"),
		RedisPort:     os.Getenv("REDIS_PORT"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		KafkaTopic:    os.Getenv("KAFKA_TOPIC"),
		HTTPPort:      os.Getenv("HTTP_PORT"),
		MetricsPort:   os.Getenv("METRICS_PORT"),
		LogLevel:      os.Getenv("LOG_LEVEL"),
		Trust:         DefaultTrustConfig(),
		Suggestion:    DefaultSuggestionConfig(),
	}
	if cfg.DBSSLMode == "" {
		cfg.DBSSLMode = "disable"
	}
	if cfg.KafkaTopic == "" {
		cfg.KafkaTopic = "dealgrid.governance"
	}
	if cfg.HTTPPort == "" {
		cfg.HTTPPort = "8090"
	}
	if cfg.MetricsPort == "" {
		cfg.MetricsPort = "9090"
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		cfg.KafkaBrokers = strings.Split(v, ",")
	}
	var err error
	if v := os.Getenv("DB_MAX_OPEN_CONNS"); v != "" {
		cfg.DBMaxOpenConns, err = strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid DB_MAX_OPEN_CONNS: %w", err)
		}
	}
	if v := os.Getenv("DB_MAX_IDLE_CONNS"); v != "" {
		cfg.DBMaxIdleConns, err = strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid DB_MAX_IDLE_CONNS: %w", err)
		}
	}
	if v := os.Getenv("DB_CONN_MAX_LIFETIME_MINUTES"); v != "" {
		cfg.DBConnMaxLifetime, err = strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid DB_CONN_MAX_LIFETIME_MINUTES: %w", err)
		}
	}
	if v := os.Getenv("REDIS_DB"); v != "" {
		cfg.RedisDB, err = strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
		}
	}
	if v := os.Getenv("REDIS_POOL_SIZE"); v != "" {
		cfg.RedisPoolSize, err = strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid REDIS_POOL_SIZE: %w", err)
		}
	}
	if v := os.Getenv("REDIS_MIN_IDLE_CONNS"); v != "" {
		cfg.RedisMinIdleConns, err = strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid REDIS_MIN_IDLE_CONNS: %w", err)
		}
	}
	if v := os.Getenv("REDIS_MAX_RETRIES"); v != "" {
		cfg.RedisMaxRetries, err = strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid REDIS_MAX_RETRIES: %w", err)
		}
	}
	if cfg.AppEnv == "" || cfg.AppName == "" || cfg.DBHost == "" || cfg.DBPort == "" || cfg.DBUser == "" || cfg.DBPassword == "" || cfg.DBName == "" {
		return nil, fmt.Errorf("missing required environment variables")
	}
	return cfg, nil
}
