// Package montecarlo runs a tournament many times with independent random
// streams and turns the champions into probability estimates.
package montecarlo

import (
	"context"
	"encoding/binary"
	"fmt"
	"math/rand/v2"
	"runtime"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"lukechampine.com/frand"

	"github.com/utakatalp/cup-simulator/internal/league"
)

// Options control a batch.
type Options struct {
	// Runs is the number of simulated tournaments, must be positive.
	Runs int
	// Workers defaults to the number of CPUs.
	Workers int
	// Seed makes the batch reproducible. Nil draws a fresh seed from OS
	// entropy; the seed used is reported in the Result either way.
	Seed *uint64
}

// Result is the finished estimate of a batch. It is only ever built from a
// complete batch.
type Result struct {
	Tournament string        `json:"tournament"`
	Runs       int           `json:"runs"`
	Seed       uint64        `json:"seed"`
	Rounds     int           `json:"rounds"`
	Teams      []TeamOdds    `json:"teams"`
	// Elapsed is wall-clock metadata and differs between replays of the
	// same seed; every other field is reproducible.
	Elapsed time.Duration `json:"elapsed"`
}

// Lookup finds a team's estimate.
func (r *Result) Lookup(team string) (TeamOdds, bool) {
	for _, o := range r.Teams {
		if o.Team == team {
			return o, true
		}
	}
	return TeamOdds{}, false
}

// TotalProbability sums the title probabilities; it is 1 for any complete
// batch.
func (r *Result) TotalProbability() float64 {
	total := 0.0
	for _, o := range r.Teams {
		total += o.Probability
	}
	return total
}

// RunRand returns the generator for run i of a batch seeded with seed. Each
// run owns its stream, so the outcome of run i does not depend on which
// worker plays it.
func RunRand(seed uint64, i int) *rand.Rand {
	return rand.New(rand.NewPCG(seed, uint64(i)))
}

// NewSeed draws 64 bits of OS entropy.
func NewSeed() uint64 {
	return binary.LittleEndian.Uint64(frand.Bytes(8))
}

// Aggregate plays t opts.Runs times and tallies the champions. A cancelled
// context stops the batch between runs; cancellation or any run error
// returns an error and no partial estimate.
func Aggregate(ctx context.Context, t *league.Tournament, opts Options) (*Result, error) {
	if opts.Runs <= 0 {
		return nil, &league.ConfigurationError{Field: "runs", Message: fmt.Sprintf("must be a positive integer, got %d", opts.Runs)}
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}

	seed := NewSeed()
	if opts.Seed != nil {
		seed = *opts.Seed
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > opts.Runs {
		workers = opts.Runs
	}

	logger := zerolog.Ctx(ctx).With().
		Str("tournament", t.Name).
		Int("runs", opts.Runs).
		Uint64("seed", seed).
		Int("workers", workers).
		Logger()
	logger.Info().Msg("starting batch")
	start := time.Now()

	teams := t.Teams()
	rounds := t.Skeleton.Rounds()
	tallies := make([]*Tally, workers)

	// 1) split the runs into contiguous ranges, one per worker
	perWorker := opts.Runs / workers
	remaining := opts.Runs % workers
	g, gctx := errgroup.WithContext(ctx)
	from := 0
	for w := 0; w < workers; w++ {
		n := perWorker
		if w < remaining {
			n++
		}
		lo, hi := from, from+n
		from = hi
		tally := NewTally(teams, rounds)
		tallies[w] = tally

		g.Go(func() error {
			for i := lo; i < hi; i++ {
				if err := gctx.Err(); err != nil {
					return err
				}
				out, err := t.RunOnce(RunRand(seed, i))
				if err != nil {
					return fmt.Errorf("run %d: %w", i, err)
				}
				tally.Add(out)
			}
			return nil
		})
	}

	// 2) wait for every worker; any failure discards the whole batch
	if err := g.Wait(); err != nil {
		logger.Warn().Err(err).Msg("batch aborted")
		return nil, fmt.Errorf("simulating %s: %w", t.Name, err)
	}

	// 3) merge
	total := NewTally(teams, rounds)
	for _, tally := range tallies {
		total.Merge(tally)
	}
	if total.Runs != opts.Runs {
		return nil, fmt.Errorf("simulating %s: completed %d of %d runs", t.Name, total.Runs, opts.Runs)
	}

	res := &Result{
		Tournament: t.Name,
		Runs:       total.Runs,
		Seed:       seed,
		Rounds:     rounds,
		Teams:      total.Odds(t.Strengths),
		Elapsed:    time.Since(start),
	}
	logger.Info().Dur("elapsed", res.Elapsed).Str("favourite", res.Teams[0].Team).
		Float64("p", res.Teams[0].Probability).Msg("batch finished")
	return res, nil
}
