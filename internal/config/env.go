package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"

	"github.com/utakatalp/cup-simulator/internal/league"
	"github.com/utakatalp/cup-simulator/internal/store"
)

// Env is the process configuration that does not belong in a tournament
// file.
type Env struct {
	LogLevel  string
	Addr      string
	StoreKind string

	DatabaseURL string
	SQLitePath  string
	MongoURI    string
	MongoDB     string
}

// LoadEnv loads the given dotenv files (".env" when none are named) into
// the process environment, then reads the variables. Missing dotenv files
// are fine; variables already set win over the files.
func LoadEnv(files ...string) (Env, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Env{}, fmt.Errorf("loading %s: %w", f, err)
		}
	}

	env := Env{
		LogLevel:    getenv("CUPSIM_LOG_LEVEL", "info"),
		Addr:        getenv("CUPSIM_ADDR", ":8080"),
		StoreKind:   getenv("CUPSIM_STORE", store.KindNone),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		SQLitePath:  getenv("SQLITE_PATH", "cupsim.db"),
		MongoURI:    getenv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDB:     getenv("MONGO_DB", "cupsim"),
	}
	if _, err := env.StoreConfig(env.StoreKind); err != nil {
		return Env{}, err
	}
	return env, nil
}

// StoreConfig addresses the store of the given kind from the environment.
func (e Env) StoreConfig(kind string) (store.Config, error) {
	cfg := store.Config{Kind: kind}
	switch kind {
	case "", store.KindNone:
		cfg.Kind = store.KindNone
	case store.KindPostgres:
		if e.DatabaseURL == "" {
			return cfg, &league.ConfigurationError{Field: "store", Message: "postgres store needs DATABASE_URL"}
		}
		cfg.DSN = e.DatabaseURL
	case store.KindSQLite:
		cfg.DSN = e.SQLitePath
	case store.KindMongo:
		cfg.DSN = e.MongoURI
		cfg.Database = e.MongoDB
	default:
		return cfg, &league.ConfigurationError{Field: "store", Message: fmt.Sprintf("unknown store %q (want none, postgres, sqlite or mongo)", kind)}
	}
	return cfg, nil
}

func getenv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}
