package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/utakatalp/cup-simulator/internal/montecarlo"
)

// ErrNotFound is returned when no batch matches the lookup.
var ErrNotFound = errors.New("batch not found")

// Interface is what the CLI and the HTTP API need from a results store.
type Interface interface {
	Migrate(ctx context.Context) error
	SaveBatch(ctx context.Context, res *montecarlo.Result) (string, error)
	LoadBatch(ctx context.Context, id string) (*Batch, error)
	LatestBatch(ctx context.Context, tournament string) (*Batch, error)
	Close() error
}

// Batch is a stored Monte Carlo result.
type Batch struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	*montecarlo.Result
}

// Kinds of store Open understands.
const (
	KindNone     = "none"
	KindPostgres = "postgres"
	KindSQLite   = "sqlite"
	KindMongo    = "mongo"
)

// Config selects and addresses a store.
type Config struct {
	Kind string
	// DSN is the Postgres connection string, the SQLite file path or the
	// Mongo URI.
	DSN string
	// Database is the Mongo database name.
	Database string
}

// Open connects to the configured store and migrates it. KindNone yields a
// nil Interface and no error.
func Open(ctx context.Context, cfg Config) (Interface, error) {
	var (
		s   Interface
		err error
	)
	switch cfg.Kind {
	case "", KindNone:
		return nil, nil
	case KindPostgres:
		s, err = NewPostgresStore(ctx, cfg.DSN)
	case KindSQLite:
		s, err = NewSQLiteStore(ctx, cfg.DSN)
	case KindMongo:
		s, err = NewMongoStore(ctx, cfg.DSN, cfg.Database)
	default:
		return nil, fmt.Errorf("unknown store kind %q", cfg.Kind)
	}
	if err != nil {
		return nil, err
	}
	if err := s.Migrate(ctx); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

// rebuild turns stored counters back into a result. Probabilities are
// recomputed from wins and runs, so a round trip is exact.
func rebuild(res *montecarlo.Result, wins map[string]int, strengths map[string]float64, reached map[string][]int) {
	res.Teams = make([]montecarlo.TeamOdds, 0, len(wins))
	for team, w := range wins {
		o := montecarlo.NewTeamOdds(team, w, res.Runs)
		o.Strength = strengths[team]
		o.Reached = reached[team]
		if o.Reached == nil {
			o.Reached = make([]int, res.Rounds+2)
		}
		res.Teams = append(res.Teams, o)
	}
	montecarlo.SortOdds(res.Teams)
}
