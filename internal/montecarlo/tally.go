package montecarlo

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/utakatalp/cup-simulator/internal/league"
)

// Tally accumulates tournament outcomes. It is not safe for concurrent use;
// every worker keeps its own and they are merged at the end.
type Tally struct {
	Runs   int
	Rounds int
	Wins   map[string]int
	// Reached[team][s] counts runs in which team got at least to stage s.
	Reached map[string][]int
}

// NewTally prepares counters for the given teams.
func NewTally(teams []string, rounds int) *Tally {
	t := &Tally{
		Rounds:  rounds,
		Wins:    make(map[string]int, len(teams)),
		Reached: make(map[string][]int, len(teams)),
	}
	for _, team := range teams {
		t.Wins[team] = 0
		t.Reached[team] = make([]int, rounds+2)
	}
	return t
}

// Add counts one run.
func (t *Tally) Add(out *league.TournamentOutcome) {
	t.Runs++
	t.Wins[out.Champion]++
	for team, stage := range out.Reached {
		counts, ok := t.Reached[team]
		if !ok {
			counts = make([]int, t.Rounds+2)
			t.Reached[team] = counts
		}
		for s := 0; s <= int(stage) && s < len(counts); s++ {
			counts[s]++
		}
	}
}

// Merge adds other's counts into t.
func (t *Tally) Merge(other *Tally) {
	t.Runs += other.Runs
	for team, n := range other.Wins {
		t.Wins[team] += n
	}
	for team, counts := range other.Reached {
		mine, ok := t.Reached[team]
		if !ok {
			mine = make([]int, len(counts))
			t.Reached[team] = mine
		}
		for s, n := range counts {
			mine[s] += n
		}
	}
}

// TeamOdds is the estimate for one team.
type TeamOdds struct {
	Team        string  `json:"team" bson:"team"`
	Strength    float64 `json:"strength" bson:"strength"`
	Wins        int     `json:"wins" bson:"wins"`
	Runs        int     `json:"runs" bson:"runs"`
	Probability float64 `json:"probability" bson:"probability"`
	StdErr      float64 `json:"std_err" bson:"std_err"`
	// Reached[s] counts runs in which the team got at least to stage s.
	Reached []int `json:"reached" bson:"reached"`
}

// NewTeamOdds computes the relative frequency and its binomial standard
// error.
func NewTeamOdds(team string, wins, runs int) TeamOdds {
	o := TeamOdds{Team: team, Wins: wins, Runs: runs}
	if runs > 0 {
		p := float64(wins) / float64(runs)
		o.Probability = p
		o.StdErr = math.Sqrt(p * (1 - p) / float64(runs))
	}
	return o
}

// ConfidenceInterval is the normal-approximation interval at the given
// level (e.g. 0.95), clamped to [0, 1].
func (o TeamOdds) ConfidenceInterval(level float64) (lo, hi float64) {
	z := distuv.UnitNormal.Quantile(0.5 + level/2)
	lo = math.Max(0, o.Probability-z*o.StdErr)
	hi = math.Min(1, o.Probability+z*o.StdErr)
	return lo, hi
}

// StageProbability is the share of runs in which the team got at least to
// stage s.
func (o TeamOdds) StageProbability(s league.Stage) float64 {
	if o.Runs == 0 || int(s) < 0 || int(s) >= len(o.Reached) {
		return 0
	}
	return float64(o.Reached[s]) / float64(o.Runs)
}

// Odds turns the counts into per-team estimates, sorted by probability
// with ties broken by team id.
func (t *Tally) Odds(strengths league.StrengthProvider) []TeamOdds {
	odds := make([]TeamOdds, 0, len(t.Wins))
	for team, wins := range t.Wins {
		o := NewTeamOdds(team, wins, t.Runs)
		if strengths != nil {
			o.Strength, _ = strengths.Strength(team)
		}
		o.Reached = append([]int(nil), t.Reached[team]...)
		odds = append(odds, o)
	}
	SortOdds(odds)
	return odds
}

// SortOdds orders by descending probability, then team id.
func SortOdds(odds []TeamOdds) {
	sort.Slice(odds, func(i, j int) bool {
		if odds[i].Probability != odds[j].Probability {
			return odds[i].Probability > odds[j].Probability
		}
		return odds[i].Team < odds[j].Team
	})
}
