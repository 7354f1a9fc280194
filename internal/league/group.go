package league

import "fmt"

// GroupStage simulates round-robin groups.
type GroupStage struct {
	Model MatchModel
	// Size is the number of teams every group must have.
	Size int
	// Qualifiers is how many teams leave each group for the bracket.
	Qualifiers int
}

// GroupTable is the outcome of one simulated group.
type GroupTable struct {
	Label     string
	Standings []*Standing
	Results   []MatchResult
}

// Qualifiers returns the ids of the top k teams, best first.
func (t *GroupTable) Qualifiers(k int) []string {
	if k > len(t.Standings) {
		k = len(t.Standings)
	}
	ids := make([]string, k)
	for i := 0; i < k; i++ {
		ids[i] = t.Standings[i].Team
	}
	return ids
}

// Position returns the 1-based rank of team, or 0 if it is not in the group.
func (t *GroupTable) Position(team string) int {
	for i, s := range t.Standings {
		if s.Team == team {
			return i + 1
		}
	}
	return 0
}

// ValidateGroup checks a group against the stage format.
func (g GroupStage) ValidateGroup(group Group) error {
	field := fmt.Sprintf("groups[%s]", group.Label)
	if group.Label == "" {
		return configErrorf("groups", "group with teams %v has no label", group.Teams)
	}
	if last := group.Label[len(group.Label)-1]; last >= '0' && last <= '9' {
		return configErrorf(field, "label must not end in a digit, bracket slots such as %s1 read trailing digits as the rank", group.Label)
	}
	if len(group.Teams) != g.Size {
		return configErrorf(field, "expected %d teams, got %d", g.Size, len(group.Teams))
	}
	if g.Qualifiers < 1 || g.Qualifiers > len(group.Teams) {
		return configErrorf(field, "cannot qualify %d of %d teams", g.Qualifiers, len(group.Teams))
	}
	seen := make(map[string]bool, len(group.Teams))
	for _, t := range group.Teams {
		if t == "" {
			return configErrorf(field, "empty team id")
		}
		if seen[t] {
			return configErrorf(field, "team %q listed twice", t)
		}
		seen[t] = true
	}
	return nil
}

// Play simulates every fixture of the group once and returns the ranked
// table. All state is local to the call.
func (g GroupStage) Play(group Group, strengths StrengthProvider, rng Rand) (*GroupTable, error) {
	if err := g.ValidateGroup(group); err != nil {
		return nil, err
	}

	strength := make(map[string]float64, len(group.Teams))
	for _, t := range group.Teams {
		s, err := strengths.Strength(t)
		if err != nil {
			return nil, fmt.Errorf("group %s: %w", group.Label, err)
		}
		strength[t] = s
	}

	// 1) drawing of lots, used only if every other criterion is level
	lots := drawLots(len(group.Teams), rng)

	// 2) play the round robin
	fixtures := Fixtures(group.Teams)
	results := make([]MatchResult, 0, len(fixtures))
	for _, f := range fixtures {
		o := g.Model.Sample(strength[f.Home], strength[f.Away], rng, true)
		results = append(results, MatchResult{Home: f.Home, Away: f.Away, Outcome: o})
	}

	// 3) build and rank the table
	table := CalculateTable(group.Teams, results, strength, lots)
	RankStandings(table, results)

	return &GroupTable{Label: group.Label, Standings: table, Results: results}, nil
}

// Qualify is Play followed by Qualifiers.
func (g GroupStage) Qualify(group Group, strengths StrengthProvider, rng Rand) ([]string, error) {
	table, err := g.Play(group, strengths, rng)
	if err != nil {
		return nil, err
	}
	return table.Qualifiers(g.Qualifiers), nil
}

// CalculateTable builds unranked standings from a group's results. lots may
// be nil.
func CalculateTable(teams []string, results []MatchResult, strength map[string]float64, lots []int) []*Standing {
	entries := make(map[string]*Standing, len(teams))
	table := make([]*Standing, 0, len(teams))
	for i, t := range teams {
		s := &Standing{Team: t, Strength: strength[t]}
		if i < len(lots) {
			s.Lot = lots[i]
		}
		entries[t] = s
		table = append(table, s)
	}

	for _, m := range results {
		home, away := entries[m.Home], entries[m.Away]
		if home == nil || away == nil {
			continue
		}
		home.Played++
		away.Played++

		// Win/Draw/Loss and Points
		switch m.Outcome {
		case HomeWin:
			home.Wins++
			away.Losses++
			home.Points += 3
		case AwayWin:
			away.Wins++
			home.Losses++
			away.Points += 3
		default:
			home.Draws++
			away.Draws++
			home.Points++
			away.Points++
		}
	}
	return table
}

// drawLots returns a random permutation of 0..n-1 (Fisher-Yates).
func drawLots(n int, rng Rand) []int {
	lots := make([]int, n)
	for i := range lots {
		lots[i] = i
	}
	for i := n - 1; i > 0; i-- {
		j := int(rng.Float64() * float64(i+1))
		if j > i {
			j = i
		}
		lots[i], lots[j] = lots[j], lots[i]
	}
	return lots
}
