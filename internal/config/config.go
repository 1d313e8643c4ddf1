package config

import (
	"os"
	"strconv"
	"strings"
)

type Config struct {
	HTTPAddr string

	// Store
	Env         string // "dev" | "prod"
	StoreDriver string // "memory" | "sqlite" | "postgres"
	DBPath      string // sqlite, e.g. "./data/intake.db"
	PostgresDSN string

	// Dev-only badge provisioning
	SeedBadgeCodes []string

	// Duplicate detection
	ShortWindowMinutes   int // in-process fast path (default 5)
	ConfirmWindowMinutes int // store-backed confirmation (default 10)
	IndexRetentionHours  int // duplicate index retention (default 24)
	SweepIntervalMinutes int // eviction sweep cadence (default 60)

	// Scan feed
	FeedBuffer int

	// Delimited payload slot mapping, e.g. "order=0,customer=1,package=2".
	// Empty means the default mapping.
	DelimitedSlots string
}

func FromEnv() Config {
	addr := getenvDefault("INTAKE_HTTP_ADDR", ":8080")

	env := strings.ToLower(getenvDefault("INTAKE_ENV", "dev"))
	if env != "dev" && env != "prod" {
		// fail-soft: treat unknown as dev
		env = "dev"
	}

	driver := strings.ToLower(getenvDefault("INTAKE_STORE_DRIVER", "sqlite"))
	switch driver {
	case "memory", "sqlite", "postgres":
	default:
		driver = "sqlite"
	}

	return Config{
		HTTPAddr: addr,

		Env:         env,
		StoreDriver: driver,
		DBPath:      getenvDefault("INTAKE_DB_PATH", "./data/intake.db"),
		PostgresDSN: os.Getenv("INTAKE_POSTGRES_DSN"),

		SeedBadgeCodes: splitCSV(os.Getenv("INTAKE_SEED_BADGES")),

		ShortWindowMinutes:   getenvInt("INTAKE_SHORT_WINDOW_MINUTES", 5),
		ConfirmWindowMinutes: getenvInt("INTAKE_CONFIRM_WINDOW_MINUTES", 10),
		IndexRetentionHours:  getenvInt("INTAKE_INDEX_RETENTION_HOURS", 24),
		SweepIntervalMinutes: getenvInt("INTAKE_SWEEP_INTERVAL_MINUTES", 60),

		FeedBuffer: getenvInt("INTAKE_FEED_BUFFER", 64),

		DelimitedSlots: os.Getenv("INTAKE_DELIMITED_SLOTS"),
	}
}

func getenvDefault(key, def string) string {
	v := os.Getenv(key)
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}

func getenvInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return def
	}
	return n
}

func splitCSV(v string) []string {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
