package config // package config loads application configuration from environment variables

import (
    "log"
    "os"
    "strconv"
    "time"
)

// Config holds all runtime configuration values.  Each field corresponds
// to an environment variable.  Required values are enforced by must() at
// startup; tuning knobs fall back to sensible defaults.
type Config struct {
    Env          string // application environment (e.g. "dev", "prod")
    Port         string // HTTP port to listen on
    DBUser       string // database username
    DBPass       string // database password (optional)
    DBHost       string // database host address
    DBPort       string // database port number
    DBName       string // database name
    JWTSecret    string // secret used to sign JWTs
    AccessTTLMin int    // access token time-to-live in minutes
    BcryptCost   int    // bcrypt cost for password hashing

    ReservationTTL time.Duration // how long a seat hold lasts
    SweepInterval  time.Duration // how often the expiration sweeper runs
    SweepLockTTL   time.Duration // sweeper lock lease, shorter than the interval
    SweepBatch     int           // max reservations lapsed per sweep

    RelayInterval   time.Duration // how often the outbox relay drains
    RelayBatch      int           // max outbox entries fetched per table per pass
    RelayMaxRetries int           // attempts before an entry is parked
    RelayBaseDelay  time.Duration // first retry delay, doubled per attempt
    RelayMaxDelay   time.Duration // retry delay ceiling
    RelayLockTTL    time.Duration // relay lock lease

    OutboxRetention time.Duration // published rows older than this are deleted
    CleanupInterval time.Duration // how often retention cleanup runs

    IdemLeaseTTL    time.Duration // in-flight lease for an idempotency key
    IdemResponseTTL time.Duration // how long a replayable response is kept
}

// Load reads configuration from environment variables.  Connection and
// secret variables are required; the engine tuning knobs default to
// values suitable for a single-instance deployment.
func Load() Config {
    return Config{
        Env:          must("APP_ENV"),
        Port:         must("APP_PORT"),
        DBUser:       must("DB_USER"),
        DBPass:       os.Getenv("DB_PASS"), // empty allowed
        DBHost:       must("DB_HOST"),
        DBPort:       must("DB_PORT"),
        DBName:       must("DB_NAME"),
        JWTSecret:    must("JWT_SECRET"),
        AccessTTLMin: mustInt("ACCESS_TOKEN_TTL_MIN"),
        BcryptCost:   mustInt("BCRYPT_COST"),

        ReservationTTL: duration("RESERVATION_TTL", 30*time.Second),
        SweepInterval:  duration("SWEEP_INTERVAL", 10*time.Second),
        SweepLockTTL:   duration("SWEEP_LOCK_TTL", 8*time.Second),
        SweepBatch:     intDefault("SWEEP_BATCH", 100),

        RelayInterval:   duration("RELAY_INTERVAL", 5*time.Second),
        RelayBatch:      intDefault("RELAY_BATCH", 100),
        RelayMaxRetries: intDefault("RELAY_MAX_RETRIES", 10),
        RelayBaseDelay:  duration("RELAY_BASE_DELAY", 2*time.Second),
        RelayMaxDelay:   duration("RELAY_MAX_DELAY", 5*time.Minute),
        RelayLockTTL:    duration("RELAY_LOCK_TTL", 4*time.Second),

        OutboxRetention: duration("OUTBOX_RETENTION", 7*24*time.Hour),
        CleanupInterval: duration("CLEANUP_INTERVAL", time.Hour),

        IdemLeaseTTL:    duration("IDEMPOTENCY_LEASE_TTL", 30*time.Second),
        IdemResponseTTL: duration("IDEMPOTENCY_RESPONSE_TTL", 24*time.Hour),
    }
}

// must retrieves the value of a required environment variable.  If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
    v, ok := os.LookupEnv(key)
    if !ok || v == "" {
        log.Fatalf("missing required env var: %s", key)
    }
    return v
}

// mustInt is like must() but converts the retrieved string into an integer.
func mustInt(key string) int {
    s := must(key)
    n, err := strconv.Atoi(s)
    if err != nil {
        log.Fatalf("invalid int for %s: %q", key, s)
    }
    return n
}

// intDefault reads an optional integer variable, falling back to def when
// unset.  A malformed value is fatal rather than silently ignored.
func intDefault(key string, def int) int {
    s := os.Getenv(key)
    if s == "" {
        return def
    }
    n, err := strconv.Atoi(s)
    if err != nil {
        log.Fatalf("invalid int for %s: %q", key, s)
    }
    return n
}

// duration reads an optional Go duration variable (e.g. "30s", "5m"),
// falling back to def when unset.
func duration(key string, def time.Duration) time.Duration {
    s := os.Getenv(key)
    if s == "" {
        return def
    }
    d, err := time.ParseDuration(s)
    if err != nil {
        log.Fatalf("invalid duration for %s: %q", key, s)
    }
    return d
}
