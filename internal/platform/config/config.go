package config

import (
	"os"
	"strconv"
	"time"
)

// Mode selects which remote environment the module talks to. The tax
// authority runs distinct endpoints for testing and production, each
// requiring its own certificate.
type Mode string

const (
	// ModeStaging is the authority's test environment ("homologacion").
	ModeStaging Mode = "homologacion"
	// ModeProduction is the live environment.
	ModeProduction Mode = "produccion"
)

// Valid reports whether the mode names a known environment.
func (m Mode) Valid() bool {
	return m == ModeStaging || m == ModeProduction
}

// TicketTTL is the validity window requested for access tickets. The
// authority honours up to 12 hours; 5 hours keeps a healthy refresh margin.
const TicketTTL = 5 * time.Hour

// Config captures everything the binaries need from the environment so main
// stays lean. Credential material is read from files, never inlined in env.
type Config struct {
	Addr          string
	JWTSigningKey string

	Mode            Mode
	CertificateFile string
	PrivateKeyFile  string

	// RepresentedCUIT identifies the company on whose behalf registry
	// queries are made. Required by the registry webservice.
	RepresentedCUIT string

	CacheDir  string
	TicketTTL time.Duration

	Redis    RedisConfig
	Postgres PostgresConfig

	KafkaBrokers []string
	KafkaTopic   string

	// TaxCodeFile points to the yaml table mapping remote tax codes to
	// local tax conditions. Empty means built-in defaults.
	TaxCodeFile string

	// SyncWorkers bounds concurrency inside a census import batch.
	SyncWorkers int
}

// RedisConfig controls the optional Redis-backed ticket cache.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// PostgresConfig controls the optional PostgreSQL party store.
type PostgresConfig struct {
	DSN string
}

// FromEnv builds a Config from environment variables with development
// defaults. Production deployments override everything that matters.
func FromEnv() Config {
	cfg := Config{
		Addr:            envOr("PADRON_ADDR", ":8080"),
		JWTSigningKey:   envOr("PADRON_JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
		Mode:            Mode(envOr("PADRON_MODE", string(ModeStaging))),
		CertificateFile: os.Getenv("PADRON_CERTIFICATE_FILE"),
		RepresentedCUIT: os.Getenv("PADRON_REPRESENTED_CUIT"),
		PrivateKeyFile:  os.Getenv("PADRON_PRIVATE_KEY_FILE"),
		CacheDir:        envOr("PADRON_CACHE_DIR", defaultCacheDir()),
		TicketTTL:       TicketTTL,
		TaxCodeFile:     os.Getenv("PADRON_TAX_CODE_FILE"),
		Redis: RedisConfig{
			URL:          os.Getenv("PADRON_REDIS_URL"),
			PoolSize:     envIntOr("PADRON_REDIS_POOL_SIZE", 10),
			MinIdleConns: envIntOr("PADRON_REDIS_MIN_IDLE", 2),
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
		Postgres: PostgresConfig{
			DSN: os.Getenv("PADRON_POSTGRES_DSN"),
		},
		KafkaTopic:  envOr("PADRON_KAFKA_TOPIC", "padron.sync.outcomes"),
		SyncWorkers: envIntOr("PADRON_SYNC_WORKERS", 1),
	}
	if ttl := os.Getenv("PADRON_TICKET_TTL"); ttl != "" {
		if d, err := time.ParseDuration(ttl); err == nil && d > 0 {
			cfg.TicketTTL = d
		}
	}
	if brokers := os.Getenv("PADRON_KAFKA_BROKERS"); brokers != "" {
		cfg.KafkaBrokers = splitAndTrim(brokers)
	}
	return cfg
}

// Credential loads the configured certificate and private key from disk.
// Missing configuration yields empty material; callers decide whether that
// is fatal for their operation.
func (c Config) Credential() (cert, key []byte, err error) {
	if c.CertificateFile == "" || c.PrivateKeyFile == "" {
		return nil, nil, nil
	}
	cert, err = os.ReadFile(c.CertificateFile)
	if err != nil {
		return nil, nil, err
	}
	key, err = os.ReadFile(c.PrivateKeyFile)
	if err != nil {
		return nil, nil, err
	}
	return cert, key, nil
}

func defaultCacheDir() string {
	if dir, err := os.UserCacheDir(); err == nil {
		return dir + "/padron"
	}
	return "/tmp/padron-cache"
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func splitAndTrim(s string) []string {
	var out []string
	start := 0
	for i := 0; i <= len(s); i++ {
		if i == len(s) || s[i] == ',' {
			part := s[start:i]
			for len(part) > 0 && part[0] == ' ' {
				part = part[1:]
			}
			for len(part) > 0 && part[len(part)-1] == ' ' {
				part = part[:len(part)-1]
			}
			if part != "" {
				out = append(out, part)
			}
			start = i + 1
		}
	}
	return out
}
