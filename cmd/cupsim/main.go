// Command cupsim estimates tournament title odds by Monte Carlo simulation.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/utakatalp/cup-simulator/internal/config"
	"github.com/utakatalp/cup-simulator/internal/league"
	"github.com/utakatalp/cup-simulator/internal/montecarlo"
	"github.com/utakatalp/cup-simulator/internal/report"
	"github.com/utakatalp/cup-simulator/internal/server"
	"github.com/utakatalp/cup-simulator/internal/store"
	"github.com/utakatalp/cup-simulator/internal/strength"
)

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		log.Error().Err(err).Msg("cupsim failed")
		if league.IsConfigurationError(err) || league.IsDataError(err) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

func run(args []string, stdout io.Writer) error {
	flags := flag.NewFlagSet("cupsim", flag.ContinueOnError)
	configPath := flags.String("config", "configs/wc2014.yaml", "Tournament file (.yaml, .yml or .json)")
	envFile := flags.String("env", ".env", "Dotenv file to load if present")
	runs := flags.Int("runs", 0, "Number of simulated tournaments (overrides the file)")
	seedFlag := flags.String("seed", "", "Seed for a reproducible batch (overrides the file)")
	workers := flags.Int("workers", 0, "Worker goroutines, 0 for one per CPU")
	top := flags.Int("top", 15, "Rows to print, 0 for all teams")
	stages := flags.Bool("stages", false, "Also print the chance of reaching each knockout round")
	overrides := flags.String("override", "", `Strength overrides, e.g. Brazil=0.9,"Korea, Republic"=0.5`)
	storeKind := flags.String("store", "", "Results store: none, postgres, sqlite or mongo (overrides CUPSIM_STORE)")
	csvPath := flags.String("csv", "", "Also write title probabilities to this CSV file")
	sample := flags.Bool("sample", false, "Print the tables and bracket of one run before the batch")
	serve := flags.Bool("serve", false, "Serve the HTTP API after the batch instead of exiting")
	if err := flags.Parse(args); err != nil {
		return &league.ConfigurationError{Field: "flags", Message: err.Error()}
	}

	// 1) environment and logging
	env, err := config.LoadEnv(*envFile)
	if err != nil {
		return err
	}
	level, err := zerolog.ParseLevel(env.LogLevel)
	if err != nil {
		return fmt.Errorf("CUPSIM_LOG_LEVEL: %w", err)
	}
	zerolog.SetGlobalLevel(level)
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
		With().Timestamp().Logger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = log.Logger.WithContext(ctx)

	// 2) tournament
	file, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	parsed, err := strength.ParseOverrides(*overrides)
	if err != nil {
		return err
	}
	tour, err := file.Tournament(parsed...)
	if err != nil {
		return err
	}
	log.Info().Str("tournament", tour.String()).Msg("loaded")

	opts := file.Options()
	flags.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "runs":
			opts.Runs = *runs
		case "workers":
			opts.Workers = *workers
		}
	})
	if *seedFlag != "" {
		seed, err := strconv.ParseUint(*seedFlag, 10, 64)
		if err != nil {
			return &league.ConfigurationError{Field: "seed", Message: err.Error()}
		}
		opts.Seed = &seed
	}

	if *sample {
		seed := montecarlo.NewSeed()
		if opts.Seed != nil {
			seed = *opts.Seed
		}
		one, err := tour.Play(montecarlo.RunRand(seed, 0))
		if err != nil {
			return err
		}
		if err := report.WriteRun(stdout, one); err != nil {
			return err
		}
		fmt.Fprintln(stdout)
	}

	kind := env.StoreKind
	if *storeKind != "" {
		kind = *storeKind
	}
	storeCfg, err := env.StoreConfig(kind)
	if err != nil {
		return err
	}

	// 3) batch
	res, err := montecarlo.Aggregate(ctx, tour, opts)
	if err != nil {
		return err
	}
	if err := report.WriteSummary(stdout, res, tour.Model); err != nil {
		return err
	}
	fmt.Fprintln(stdout)
	if err := report.WriteOdds(stdout, res, *top); err != nil {
		return err
	}
	if *stages {
		fmt.Fprintln(stdout)
		if err := report.WriteStages(stdout, res, *top); err != nil {
			return err
		}
	}
	if *csvPath != "" {
		if err := writeCSV(*csvPath, res); err != nil {
			return err
		}
		log.Info().Str("path", *csvPath).Msg("saved title probabilities")
	}

	// 4) persistence
	st, err := store.Open(ctx, storeCfg)
	if err != nil {
		return err
	}
	if st != nil {
		defer st.Close()
		id, err := st.SaveBatch(ctx, res)
		if err != nil {
			return err
		}
		log.Info().Str("store", storeCfg.Kind).Str("id", id).Msg("saved batch")
	}

	// 5) API
	if !*serve {
		return nil
	}
	// API batches draw a fresh seed unless the request names one
	defaults := opts
	defaults.Seed = nil
	srv := server.New(server.Config{
		Tournament: tour,
		Defaults:   defaults,
		Store:      st,
		Logger:     log.Logger,
	})
	return srv.ListenAndServe(ctx, env.Addr)
}

func writeCSV(path string, res *montecarlo.Result) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if err := report.WriteCSV(f, res); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
