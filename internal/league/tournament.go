package league

import (
	"errors"
	"fmt"
	"math"
)

// Tournament is the read-only input of a batch: the draw, the bracket, the
// strengths and the match model.
type Tournament struct {
	Name       string
	Groups     []Group
	Skeleton   *Skeleton
	Strengths  StrengthProvider
	Model      MatchModel
	GroupSize  int
	Qualifiers int
}

func (t *Tournament) stage() GroupStage {
	return GroupStage{Model: t.Model, Size: t.GroupSize, Qualifiers: t.Qualifiers}
}

// Teams returns every team in draw order.
func (t *Tournament) Teams() []string {
	var ids []string
	for _, g := range t.Groups {
		ids = append(ids, g.Teams...)
	}
	return ids
}

// Validate checks the whole input before anything is simulated.
func (t *Tournament) Validate() error {
	if len(t.Groups) == 0 {
		return configErrorf("groups", "no groups given")
	}
	if t.Strengths == nil {
		return configErrorf("strengths", "no strength provider given")
	}
	if err := t.Model.Validate(); err != nil {
		return err
	}

	stage := t.stage()
	labels := make(map[string]bool, len(t.Groups))
	seen := make(map[string]string)
	for _, g := range t.Groups {
		if err := stage.ValidateGroup(g); err != nil {
			return err
		}
		if labels[g.Label] {
			return configErrorf("groups", "group label %q used twice", g.Label)
		}
		labels[g.Label] = true
		for _, team := range g.Teams {
			if other, ok := seen[team]; ok {
				return configErrorf("groups", "team %q drawn in both group %s and group %s", team, other, g.Label)
			}
			seen[team] = g.Label
		}
	}

	if err := t.Skeleton.Validate(t.Groups, t.Qualifiers); err != nil {
		return err
	}

	for _, team := range t.Teams() {
		v, err := t.Strengths.Strength(team)
		if err != nil {
			return err
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return configErrorf("strengths", "team %q has non-finite strength %v", team, v)
		}
	}
	return nil
}

// Run is everything one simulated tournament produced.
type Run struct {
	Tables  []*GroupTable
	Bracket *BracketResult
	Outcome *TournamentOutcome
}

// Play simulates one full tournament and keeps the group tables and
// knockout matches. Each call works on freshly built tables and bracket
// nodes, so runs never see each other's state.
func (t *Tournament) Play(rng Rand) (*Run, error) {
	stage := t.stage()

	// 1) group stage
	run := &Run{Tables: make([]*GroupTable, 0, len(t.Groups))}
	qualifiers := make(map[string][]string, len(t.Groups))
	reached := make(map[string]Stage, len(t.Groups)*t.GroupSize)
	for _, g := range t.Groups {
		table, err := stage.Play(g, t.Strengths, rng)
		if err != nil {
			return nil, err
		}
		run.Tables = append(run.Tables, table)
		qualifiers[g.Label] = table.Qualifiers(t.Qualifiers)
		for _, team := range g.Teams {
			reached[team] = StageGroup
		}
	}

	// 2) knockout
	br, err := PlayBracket(t.Skeleton, qualifiers, t.Strengths, t.Model, rng)
	if err != nil {
		return nil, err
	}
	for team, s := range br.Reached {
		reached[team] = s
	}
	run.Bracket = br
	run.Outcome = &TournamentOutcome{
		Champion: br.Champion,
		RunnerUp: br.RunnerUp,
		Rounds:   br.Rounds,
		Reached:  reached,
	}
	return run, nil
}

// RunOnce simulates one full tournament and returns only its outcome.
func (t *Tournament) RunOnce(rng Rand) (*TournamentOutcome, error) {
	run, err := t.Play(rng)
	if err != nil {
		return nil, err
	}
	return run.Outcome, nil
}

// IsConfigurationError reports whether err carries a ConfigurationError.
func IsConfigurationError(err error) bool {
	var ce *ConfigurationError
	return errors.As(err, &ce)
}

// IsDataError reports whether err carries a DataError.
func IsDataError(err error) bool {
	var de *DataError
	return errors.As(err, &de)
}

func (t *Tournament) String() string {
	return fmt.Sprintf("%s (%d groups of %d, %d qualify each, %d knockout rounds)",
		t.Name, len(t.Groups), t.GroupSize, t.Qualifiers, t.Skeleton.Rounds())
}
