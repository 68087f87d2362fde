// Package config builds runtime configuration from the environment so main
// stays lean. Every knob has a development default; production overrides
// them.
package config

import (
	"crypto/ed25519"
	"encoding/hex"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"sealproof/pkg/domain"
)

// RedisConfig captures connection settings for the redis-backed stores
// (image tokens, jti replay cache, mint rate limiting).
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// KafkaConfig captures the audit event sink. Empty brokers means audit
// events stay in the in-process store.
type KafkaConfig struct {
	Brokers    []string
	AuditTopic string
}

// SigningConfig holds the credential signing key material. The seed derives
// the active ed25519 keypair; PreviousPublicKey stays accepted until
// RotationUntil so in-flight credentials survive a rotation.
type SigningConfig struct {
	Seed              []byte
	PreviousPublicKey ed25519.PublicKey
	RotationUntil     time.Time
	IssuerID          string
}

// Config is the full server configuration.
type Config struct {
	Addr        string
	PostgresURL string
	Redis       RedisConfig
	Kafka       KafkaConfig
	Signing     SigningConfig

	DualControlThreshold domain.Amount

	ImageTokenTTL     time.Duration
	ImageTokenPerMin  int
	ConnectorRole     string
	AllowedImageRoots []string
}

// FromEnv builds a Config from SEALPROOF_* environment variables.
func FromEnv() (Config, error) {
	cfg := Config{
		Addr:        envOr("SEALPROOF_ADDR", ":8080"),
		PostgresURL: os.Getenv("SEALPROOF_POSTGRES_URL"),
		Redis: RedisConfig{
			URL:          os.Getenv("SEALPROOF_REDIS_URL"),
			PoolSize:     envInt("SEALPROOF_REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("SEALPROOF_REDIS_MIN_IDLE", 2),
			DialTimeout:  envDuration("SEALPROOF_REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDuration("SEALPROOF_REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDuration("SEALPROOF_REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Kafka: KafkaConfig{
			AuditTopic: envOr("SEALPROOF_AUDIT_TOPIC", "sealproof.audit"),
		},
		ImageTokenTTL:    envDuration("SEALPROOF_IMAGE_TOKEN_TTL", 90*time.Second),
		ImageTokenPerMin: envInt("SEALPROOF_IMAGE_TOKEN_PER_MIN", 30),
		ConnectorRole:    envOr("SEALPROOF_CONNECTOR_ROLE", "image_fetch"),
	}

	if brokers := os.Getenv("SEALPROOF_KAFKA_BROKERS"); brokers != "" {
		cfg.Kafka.Brokers = splitAndTrim(brokers)
	}
	if roots := os.Getenv("SEALPROOF_IMAGE_ROOTS"); roots != "" {
		cfg.AllowedImageRoots = splitAndTrim(roots)
	} else {
		cfg.AllowedImageRoots = []string{"/mnt/checks"}
	}

	threshold, err := domain.ParseAmount(envOr("SEALPROOF_DUAL_CONTROL_THRESHOLD", "10000.00"))
	if err != nil {
		return Config{}, fmt.Errorf("SEALPROOF_DUAL_CONTROL_THRESHOLD: %w", err)
	}
	cfg.DualControlThreshold = threshold

	signing, err := signingFromEnv()
	if err != nil {
		return Config{}, err
	}
	cfg.Signing = signing

	return cfg, nil
}

func signingFromEnv() (SigningConfig, error) {
	cfg := SigningConfig{
		IssuerID: envOr("SEALPROOF_ISSUER_ID", "sealproof-core"),
	}

	seedHex := os.Getenv("SEALPROOF_SIGNING_SEED")
	if seedHex == "" {
		// Fixed development seed so restarts do not invalidate credentials
		// mid-test. Production must set its own.
		seedHex = strings.Repeat("5a", ed25519.SeedSize)
	}
	seed, err := hex.DecodeString(seedHex)
	if err != nil || len(seed) != ed25519.SeedSize {
		return SigningConfig{}, fmt.Errorf("SEALPROOF_SIGNING_SEED must be %d hex-encoded bytes", ed25519.SeedSize)
	}
	cfg.Seed = seed

	if prevHex := os.Getenv("SEALPROOF_PREVIOUS_PUBLIC_KEY"); prevHex != "" {
		prev, err := hex.DecodeString(prevHex)
		if err != nil || len(prev) != ed25519.PublicKeySize {
			return SigningConfig{}, fmt.Errorf("SEALPROOF_PREVIOUS_PUBLIC_KEY must be %d hex-encoded bytes", ed25519.PublicKeySize)
		}
		cfg.PreviousPublicKey = ed25519.PublicKey(prev)

		until := os.Getenv("SEALPROOF_KEY_ROTATION_UNTIL")
		if until == "" {
			return SigningConfig{}, fmt.Errorf("SEALPROOF_KEY_ROTATION_UNTIL is required when a previous key is configured")
		}
		cfg.RotationUntil, err = time.Parse(time.RFC3339, until)
		if err != nil {
			return SigningConfig{}, fmt.Errorf("SEALPROOF_KEY_ROTATION_UNTIL: %w", err)
		}
	}

	return cfg, nil
}

// ActiveKey derives the signing keypair from the configured seed.
func (s SigningConfig) ActiveKey() ed25519.PrivateKey {
	return ed25519.NewKeyFromSeed(s.Seed)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

func splitAndTrim(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
