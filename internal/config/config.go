// Package config loads a tournament file (YAML or JSON) and the process
// environment.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	yaml "gopkg.in/yaml.v2"

	"github.com/utakatalp/cup-simulator/internal/league"
	"github.com/utakatalp/cup-simulator/internal/montecarlo"
	"github.com/utakatalp/cup-simulator/internal/strength"
)

const (
	DefaultRuns       = 10000
	DefaultGroupSize  = 4
	DefaultQualifiers = 2
)

// File is a tournament description as written on disk.
type File struct {
	Name       string         `json:"name" yaml:"name"`
	Runs       int            `json:"runs" yaml:"runs"`
	Seed       *uint64        `json:"seed" yaml:"seed"`
	Workers    int            `json:"workers" yaml:"workers"`
	Model      Model          `json:"model" yaml:"model"`
	GroupSize  int            `json:"groupSize" yaml:"groupSize"`
	Qualifiers int            `json:"qualifiers" yaml:"qualifiers"`
	Groups     []league.Group `json:"groups" yaml:"groups"`
	Knockout   [][]string     `json:"knockout" yaml:"knockout"`

	// Exactly one source of strengths: inline, a team,strength CSV, or a
	// ranking history cut at RankingCutoff.
	Strengths     map[string]float64 `json:"strengths" yaml:"strengths"`
	StrengthsFile string             `json:"strengthsFile" yaml:"strengthsFile"`
	RankingsFile  string             `json:"rankingsFile" yaml:"rankingsFile"`
	RankingCutoff string             `json:"rankingCutoff" yaml:"rankingCutoff"`
	RankingFloor  *float64           `json:"rankingFloor" yaml:"rankingFloor"`

	dir string
}

// Model configures the match sampler. Omitted fields take the defaults of
// league.DefaultMatchModel.
type Model struct {
	Scale *float64 `json:"scale" yaml:"scale"`
	Draw  Draw     `json:"draw" yaml:"draw"`
}

// Draw picks the draw policy: "scaled" (Value is the draw rate between
// equal sides) or "constant" (Value is the draw probability).
type Draw struct {
	Policy string   `json:"policy" yaml:"policy"`
	Value  *float64 `json:"value" yaml:"value"`
}

// Load reads a tournament file; the format follows the extension.
func Load(path string) (*File, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	f := &File{dir: filepath.Dir(path)}

	switch ext := filepath.Ext(path); ext {
	case ".json":
		if err := json.Unmarshal(raw, f); err != nil {
			return nil, &league.ConfigurationError{Field: path, Message: "bad JSON: " + err.Error()}
		}
	case ".yaml", ".yml":
		if err := yaml.UnmarshalStrict(raw, f); err != nil {
			return nil, &league.ConfigurationError{Field: path, Message: "bad YAML: " + err.Error()}
		}
	default:
		return nil, &league.ConfigurationError{Field: path, Message: fmt.Sprintf("unsupported config file format %q", ext)}
	}
	return f, nil
}

// MatchModel resolves the configured sampler.
func (f *File) MatchModel() (league.MatchModel, error) {
	m := league.DefaultMatchModel()
	if f.Model.Scale != nil {
		m.Scale = *f.Model.Scale
	}
	switch f.Model.Draw.Policy {
	case "", "scaled":
		if f.Model.Draw.Value != nil {
			m.Draw = league.ScaledDraw{Rate: *f.Model.Draw.Value}
		}
	case "constant":
		if f.Model.Draw.Value == nil {
			return m, &league.ConfigurationError{Field: "model.draw.value", Message: "constant draw policy needs a value"}
		}
		m.Draw = league.ConstantDraw(*f.Model.Draw.Value)
	default:
		return m, &league.ConfigurationError{Field: "model.draw.policy", Message: fmt.Sprintf("unknown policy %q (want scaled or constant)", f.Model.Draw.Policy)}
	}
	return m, m.Validate()
}

// LoadStrengths resolves the strength source. File paths are relative to
// the tournament file.
func (f *File) LoadStrengths() (league.Strengths, error) {
	sources := 0
	for _, set := range []bool{len(f.Strengths) > 0, f.StrengthsFile != "", f.RankingsFile != ""} {
		if set {
			sources++
		}
	}
	if sources != 1 {
		return nil, &league.ConfigurationError{Field: "strengths", Message: "give exactly one of strengths, strengthsFile or rankingsFile"}
	}

	switch {
	case len(f.Strengths) > 0:
		out := make(league.Strengths, len(f.Strengths))
		for team, v := range f.Strengths {
			out[team] = v
		}
		return out, nil

	case f.StrengthsFile != "":
		r, err := os.Open(f.resolve(f.StrengthsFile))
		if err != nil {
			return nil, fmt.Errorf("opening strengths: %w", err)
		}
		defer r.Close()
		s, err := strength.LoadStrengthsCSV(r)
		if err != nil {
			return nil, fmt.Errorf("loading %s: %w", f.StrengthsFile, err)
		}
		return s, nil

	default:
		if f.RankingCutoff == "" {
			return nil, &league.ConfigurationError{Field: "rankingCutoff", Message: "required with rankingsFile"}
		}
		cutoff, err := time.Parse(strength.DateLayout, f.RankingCutoff)
		if err != nil {
			return nil, &league.ConfigurationError{Field: "rankingCutoff", Message: err.Error()}
		}
		r, err := os.Open(f.resolve(f.RankingsFile))
		if err != nil {
			return nil, fmt.Errorf("opening rankings: %w", err)
		}
		defer r.Close()
		rows, err := strength.LoadRankingsCSV(r)
		if err != nil {
			return nil, fmt.Errorf("loading %s: %w", f.RankingsFile, err)
		}
		snap, _, err := strength.Snapshot(rows, cutoff)
		if err != nil {
			return nil, err
		}
		floor := strength.DefaultFloor
		if f.RankingFloor != nil {
			floor = *f.RankingFloor
		}
		return strength.Normalize(snap, floor)
	}
}

func (f *File) resolve(p string) string {
	if filepath.IsAbs(p) || f.dir == "" {
		return p
	}
	return filepath.Join(f.dir, p)
}

// Tournament assembles and validates the tournament, with overrides applied
// on top of the loaded strengths.
func (f *File) Tournament(overrides ...strength.Override) (*league.Tournament, error) {
	model, err := f.MatchModel()
	if err != nil {
		return nil, err
	}
	pairs, err := league.ParsePairs(f.Knockout)
	if err != nil {
		return nil, err
	}
	skeleton, err := league.NewSkeleton(pairs)
	if err != nil {
		return nil, err
	}
	strengths, err := f.LoadStrengths()
	if err != nil {
		return nil, err
	}
	if strengths, err = strength.Apply(strengths, overrides); err != nil {
		return nil, err
	}

	t := &league.Tournament{
		Name:       f.Name,
		Groups:     f.Groups,
		Skeleton:   skeleton,
		Strengths:  strength.NewProvider(strengths),
		Model:      model,
		GroupSize:  f.GroupSize,
		Qualifiers: f.Qualifiers,
	}
	if t.Name == "" {
		t.Name = "tournament"
	}
	if t.GroupSize == 0 {
		t.GroupSize = DefaultGroupSize
	}
	if t.Qualifiers == 0 {
		t.Qualifiers = DefaultQualifiers
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}

// Options returns the batch settings of the file. Zero runs means the
// default; a negative count is passed on and rejected by the aggregator.
func (f *File) Options() montecarlo.Options {
	opts := montecarlo.Options{Runs: f.Runs, Workers: f.Workers, Seed: f.Seed}
	if opts.Runs == 0 {
		opts.Runs = DefaultRuns
	}
	return opts
}
