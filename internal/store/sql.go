package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"github.com/utakatalp/cup-simulator/internal/montecarlo"
)

// SQLStore keeps batches in Postgres or SQLite. Queries use $n placeholders,
// which both drivers accept.
type SQLStore struct {
	DB  *sql.DB
	now func() time.Time
}

var _ Interface = (*SQLStore)(nil)

// NewSQLStore opens a connection with the given database/sql driver.
func NewSQLStore(ctx context.Context, driver, dsn string) (*SQLStore, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if driver == "sqlite3" {
		// one connection, or every :memory: connection gets its own database
		db.SetMaxOpenConns(1)
	}
	// verify early
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}
	return &SQLStore{DB: db, now: time.Now}, nil
}

// NewPostgresStore connects to Postgres using a lib/pq connection string.
func NewPostgresStore(ctx context.Context, connStr string) (*SQLStore, error) {
	return NewSQLStore(ctx, "postgres", connStr)
}

// NewSQLiteStore opens (or creates) a SQLite file. ":memory:" works too.
func NewSQLiteStore(ctx context.Context, path string) (*SQLStore, error) {
	return NewSQLStore(ctx, "sqlite3", path)
}

// Close releases the connection pool.
func (s *SQLStore) Close() error {
	return s.DB.Close()
}

// Migrate creates the necessary tables if they do not exist.
func (s *SQLStore) Migrate(ctx context.Context) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS batches (
			id         TEXT PRIMARY KEY,
			tournament TEXT      NOT NULL,
			runs       INTEGER   NOT NULL,
			seed       TEXT      NOT NULL,
			rounds     INTEGER   NOT NULL,
			elapsed_ns BIGINT    NOT NULL DEFAULT 0,
			created_at TIMESTAMP NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS batches_tournament_created
			ON batches (tournament, created_at);`,
		`CREATE TABLE IF NOT EXISTS team_odds (
			batch_id TEXT             NOT NULL REFERENCES batches(id),
			team     TEXT             NOT NULL,
			strength DOUBLE PRECISION NOT NULL,
			wins     INTEGER          NOT NULL,
			PRIMARY KEY (batch_id, team)
		);`,
		`CREATE TABLE IF NOT EXISTS team_stages (
			batch_id TEXT    NOT NULL REFERENCES batches(id),
			team     TEXT    NOT NULL,
			stage    INTEGER NOT NULL,
			reached  INTEGER NOT NULL,
			PRIMARY KEY (batch_id, team, stage)
		);`,
	}
	for _, q := range queries {
		if _, err := s.DB.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("migrating: %w", err)
		}
	}
	return nil
}

// SaveBatch writes a batch and all its rows in one transaction and returns
// the new batch id.
func (s *SQLStore) SaveBatch(ctx context.Context, res *montecarlo.Result) (string, error) {
	id := uuid.NewString()

	// 1) Begin a transaction
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("begin SaveBatch tx: %w", err)
	}
	defer tx.Rollback()

	// 2) Batch header
	const insertBatch = `
      INSERT INTO batches (id, tournament, runs, seed, rounds, elapsed_ns, created_at)
      VALUES ($1, $2, $3, $4, $5, $6, $7)
    `
	if _, err := tx.ExecContext(ctx, insertBatch,
		id, res.Tournament, res.Runs, strconv.FormatUint(res.Seed, 10),
		res.Rounds, int64(res.Elapsed), s.now().UTC(),
	); err != nil {
		return "", fmt.Errorf("inserting batch %s: %w", id, err)
	}

	// 3) Per-team counters
	const insertOdds = `INSERT INTO team_odds (batch_id, team, strength, wins) VALUES ($1, $2, $3, $4)`
	const insertStage = `INSERT INTO team_stages (batch_id, team, stage, reached) VALUES ($1, $2, $3, $4)`
	for _, o := range res.Teams {
		if _, err := tx.ExecContext(ctx, insertOdds, id, o.Team, o.Strength, o.Wins); err != nil {
			return "", fmt.Errorf("inserting odds for %s: %w", o.Team, err)
		}
		for stage, n := range o.Reached {
			if _, err := tx.ExecContext(ctx, insertStage, id, o.Team, stage, n); err != nil {
				return "", fmt.Errorf("inserting stage %d for %s: %w", stage, o.Team, err)
			}
		}
	}

	// 4) Commit
	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit SaveBatch tx: %w", err)
	}
	return id, nil
}

// LoadBatch fetches a batch by id.
func (s *SQLStore) LoadBatch(ctx context.Context, id string) (*Batch, error) {
	const q = `
    SELECT id, tournament, runs, seed, rounds, elapsed_ns, created_at
    FROM batches
    WHERE id = $1
    `
	return s.loadBatch(ctx, q, id)
}

// LatestBatch fetches the most recent batch of a tournament.
func (s *SQLStore) LatestBatch(ctx context.Context, tournament string) (*Batch, error) {
	const q = `
    SELECT id, tournament, runs, seed, rounds, elapsed_ns, created_at
    FROM batches
    WHERE tournament = $1
    ORDER BY created_at DESC, id DESC
    LIMIT 1
    `
	return s.loadBatch(ctx, q, tournament)
}

func (s *SQLStore) loadBatch(ctx context.Context, q string, arg string) (*Batch, error) {
	var (
		b       = &Batch{Result: &montecarlo.Result{}}
		seed    string
		elapsed int64
	)
	err := s.DB.QueryRowContext(ctx, q, arg).Scan(
		&b.ID,
		&b.Tournament,
		&b.Runs,
		&seed,
		&b.Rounds,
		&elapsed,
		&b.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying batch: %w", err)
	}
	if b.Seed, err = strconv.ParseUint(seed, 10, 64); err != nil {
		return nil, fmt.Errorf("parsing seed of batch %s: %w", b.ID, err)
	}
	b.Elapsed = time.Duration(elapsed)

	wins, strengths, err := s.loadOdds(ctx, b.ID)
	if err != nil {
		return nil, err
	}
	reached, err := s.loadStages(ctx, b.ID, b.Rounds)
	if err != nil {
		return nil, err
	}
	rebuild(b.Result, wins, strengths, reached)
	return b, nil
}

func (s *SQLStore) loadOdds(ctx context.Context, id string) (map[string]int, map[string]float64, error) {
	rows, err := s.DB.QueryContext(ctx, `SELECT team, strength, wins FROM team_odds WHERE batch_id = $1`, id)
	if err != nil {
		return nil, nil, fmt.Errorf("querying odds: %w", err)
	}
	defer rows.Close()

	wins := make(map[string]int)
	strengths := make(map[string]float64)
	for rows.Next() {
		var (
			team     string
			strength float64
			w        int
		)
		if err := rows.Scan(&team, &strength, &w); err != nil {
			return nil, nil, fmt.Errorf("scanning odds row: %w", err)
		}
		wins[team] = w
		strengths[team] = strength
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("iterating odds rows: %w", err)
	}
	return wins, strengths, nil
}

func (s *SQLStore) loadStages(ctx context.Context, id string, rounds int) (map[string][]int, error) {
	rows, err := s.DB.QueryContext(ctx, `SELECT team, stage, reached FROM team_stages WHERE batch_id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("querying stages: %w", err)
	}
	defer rows.Close()

	reached := make(map[string][]int)
	for rows.Next() {
		var (
			team     string
			stage, n int
		)
		if err := rows.Scan(&team, &stage, &n); err != nil {
			return nil, fmt.Errorf("scanning stage row: %w", err)
		}
		counts, ok := reached[team]
		if !ok {
			counts = make([]int, rounds+2)
			reached[team] = counts
		}
		if stage >= 0 && stage < len(counts) {
			counts[stage] = n
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating stage rows: %w", err)
	}
	return reached, nil
}
