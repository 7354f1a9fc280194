package league

import "fmt"

// Team is a national side with the strength it carries for a whole batch.
type Team struct {
	ID       string  `json:"id"`
	Strength float64 `json:"strength"`
}

// Group is one round-robin group of the draw.
type Group struct {
	Label string   `json:"label" yaml:"label"`
	Teams []string `json:"teams" yaml:"teams"`
}

// StrengthProvider hands out the strength of a team. Implementations must be
// safe for concurrent reads and static for the duration of a batch.
type StrengthProvider interface {
	Strength(teamID string) (float64, error)
}

// Strengths is the in-memory StrengthProvider.
type Strengths map[string]float64

func (s Strengths) Strength(teamID string) (float64, error) {
	v, ok := s[teamID]
	if !ok {
		return 0, &DataError{Team: teamID}
	}
	return v, nil
}

// Known lists the team ids the map carries a value for.
func (s Strengths) Known() []string {
	ids := make([]string, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	return ids
}

// Outcome of a single match, seen from the home side.
type Outcome int

const (
	HomeWin Outcome = iota
	Draw
	AwayWin
)

func (o Outcome) String() string {
	switch o {
	case HomeWin:
		return "home-win"
	case Draw:
		return "draw"
	case AwayWin:
		return "away-win"
	}
	return fmt.Sprintf("Outcome(%d)", int(o))
}

// MatchResult represents a played fixture.
type MatchResult struct {
	Home    string  `json:"home"`
	Away    string  `json:"away"`
	Outcome Outcome `json:"outcome"`
}

// Winner returns the winning team, or "" for a draw.
func (m MatchResult) Winner() string {
	switch m.Outcome {
	case HomeWin:
		return m.Home
	case AwayWin:
		return m.Away
	}
	return ""
}

// Loser returns the losing team, or "" for a draw.
func (m MatchResult) Loser() string {
	switch m.Outcome {
	case HomeWin:
		return m.Away
	case AwayWin:
		return m.Home
	}
	return ""
}

func (m MatchResult) String() string {
	return fmt.Sprintf("%s vs %s: %s", m.Home, m.Away, m.Outcome)
}

// Standing holds the group table info for one team.
type Standing struct {
	Team                        string
	Played, Wins, Draws, Losses int
	Points                      int
	Strength                    float64
	// Lot is the team's position in the drawing of lots for its group.
	Lot int
}

// Stage is how far a team got: StageGroup, then knockout rounds 1..n, and
// n+1 for lifting the trophy.
type Stage int

const StageGroup Stage = 0

// StageName names a stage for a bracket of the given number of rounds.
func StageName(s Stage, rounds int) string {
	switch left := rounds - int(s); {
	case s == StageGroup:
		return "Group stage"
	case left < 0:
		return "Champion"
	case left == 0:
		return "Final"
	case left == 1:
		return "Semi-final"
	case left == 2:
		return "Quarter-final"
	default:
		return fmt.Sprintf("Round of %d", 1<<(left+1))
	}
}

// TournamentOutcome is what one simulated tournament produced.
type TournamentOutcome struct {
	Champion string
	RunnerUp string
	// Rounds is the depth of the knockout bracket.
	Rounds int
	// Reached maps every team to the furthest stage it got to. The champion
	// maps to Stage(Rounds+1).
	Reached map[string]Stage
}

// Eliminated returns the stage a team went out at. ok is false for the
// champion and for teams that did not take part.
func (o *TournamentOutcome) Eliminated(team string) (Stage, bool) {
	s, ok := o.Reached[team]
	if !ok || team == o.Champion {
		return 0, false
	}
	return s, true
}
