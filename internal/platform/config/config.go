package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Server captures HTTP server level configuration.
type Server struct {
	Addr string
}

// Liveness captures the check-in schedule parameters. The defaults mirror the
// product contract: a check-in is due every six months, overdue records get a
// 14 day grace period with at most 4 reminders before escalation.
type Liveness struct {
	CheckinInterval   time.Duration
	GracePeriodDays   uint
	MaxReminders      uint
	SweepWorkers      int
	SweepCronSpec     string
	DedupTTL          time.Duration
	UpcomingOffsets   []int
	SweepLockDuration time.Duration
}

// RedisConfig holds Redis connection settings. An empty URL disables Redis;
// the sweep then falls back to in-process dedup and lock.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// KafkaConfig holds broker addresses and topic names for outbound events.
// Empty brokers disable Kafka publication.
type KafkaConfig struct {
	Brokers       []string
	MessagesTopic string
	ReleasesTopic string
}

type Config struct {
	Server      Server
	Liveness    Liveness
	Redis       RedisConfig
	Kafka       KafkaConfig
	DatabaseURL string
}

// FromEnv builds the full configuration from environment variables so main
// stays lean.
func FromEnv() Config {
	return Config{
		Server: Server{
			Addr: envOr("HEIRLOOM_ADDR", ":8080"),
		},
		Liveness: Liveness{
			CheckinInterval:   envDuration("CHECKIN_INTERVAL", 0), // 0 means "use AddDate months"
			GracePeriodDays:   uint(envInt("GRACE_PERIOD_DAYS", 14)),
			MaxReminders:      uint(envInt("MAX_REMINDERS", 4)),
			SweepWorkers:      envInt("SWEEP_WORKERS", 8),
			SweepCronSpec:     envOr("SWEEP_CRON", "0 9 * * *"), // daily at 09:00
			DedupTTL:          envDuration("REMINDER_DEDUP_TTL", 48*time.Hour),
			UpcomingOffsets:   []int{30, 14, 7, 1},
			SweepLockDuration: envDuration("SWEEP_LOCK_DURATION", 30*time.Minute),
		},
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     envInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  envDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Kafka: KafkaConfig{
			Brokers:       splitNonEmpty(os.Getenv("KAFKA_BROKERS")),
			MessagesTopic: envOr("KAFKA_MESSAGES_TOPIC", "heirloom.outbound-messages"),
			ReleasesTopic: envOr("KAFKA_RELEASES_TOPIC", "heirloom.release-events"),
		},
		DatabaseURL: os.Getenv("DATABASE_URL"),
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func splitNonEmpty(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
