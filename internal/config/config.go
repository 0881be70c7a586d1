package config // package config loads application configuration from environment variables

import (
    "log"     // log is used to report configuration errors and halt execution
    "os"      // os provides access to environment variables
    "strconv" // strconv converts strings to other types
)

// Config holds all runtime configuration values.  Each field corresponds
// to an environment variable.  Monetary thresholds are expressed in minor
// units (cents) to match how amounts are stored in the ledger.
type Config struct {
    Env                 string // application environment (e.g. "dev", "prod")
    Port                string // HTTP port to listen on
    DBUser              string // database username
    DBPass              string // database password (optional)
    DBHost              string // database host address
    DBPort              string // database port number
    DBName              string // database name
    JWTSecret           string // secret used to verify admin bearer tokens
    AMLDailyLimitCents  int64  // per-transaction AML threshold in minor units
    FiatFeeBasisPoints  int64  // fiat gateway fee in basis points (200 = 2%)
    LockTTLSeconds      int    // TTL of the per-booking distributed lock
}

// Load reads configuration values from environment variables and returns
// a Config.  Required variables are enforced by must() and missing values
// cause the program to exit with a fatal log message.  Thresholds carry
// sensible defaults so development runs need no extra variables.
func Load() Config {
    return Config{
        Env:                must("APP_ENV"),      // environment (dev/test/prod)
        Port:               must("APP_PORT"),     // port to bind the HTTP server
        DBUser:             must("DB_USER"),      // database user
        DBPass:             os.Getenv("DB_PASS"), // database password (empty allowed)
        DBHost:             must("DB_HOST"),      // database host
        DBPort:             must("DB_PORT"),      // database port
        DBName:             must("DB_NAME"),      // database name
        JWTSecret:          must("JWT_SECRET"),   // secret used for verifying JWTs
        AMLDailyLimitCents: envInt64("AML_DAILY_LIMIT_CENTS", 1_000_000), // 10,000.00 in minor units
        FiatFeeBasisPoints: envInt64("FIAT_FEE_BASIS_POINTS", 200),      // 2% gateway fee
        LockTTLSeconds:     envInt("BOOKING_LOCK_TTL_SECONDS", 30),
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

// envInt reads an optional integer variable, falling back to a default
// when unset or malformed.
func envInt(key string, def int) int {
    v := os.Getenv(key)
    if v == "" {
        return def
    }
    if n, err := strconv.Atoi(v); err == nil {
        return n
    }
    return def
}

// envInt64 is envInt for 64-bit values such as monetary thresholds.
func envInt64(key string, def int64) int64 {
    v := os.Getenv(key)
    if v == "" {
        return def
    }
    if n, err := strconv.ParseInt(v, 10, 64); err == nil {
        return n
    }
    return def
}
