package league

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var wc2014Pairs = [][]string{
	{"A1", "B2"}, {"C1", "D2"},
	{"B1", "A2"}, {"D1", "C2"},
	{"E1", "F2"}, {"G1", "H2"},
	{"F1", "E2"}, {"H1", "G2"},
}

func wc2014(t *testing.T) *Tournament {
	t.Helper()
	groups := []Group{
		{Label: "A", Teams: []string{"BRA", "CRO", "MEX", "CMR"}},
		{Label: "B", Teams: []string{"ESP", "NED", "CHI", "AUS"}},
		{Label: "C", Teams: []string{"COL", "GRE", "CIV", "JPN"}},
		{Label: "D", Teams: []string{"URU", "CRC", "ENG", "ITA"}},
		{Label: "E", Teams: []string{"SUI", "ECU", "FRA", "HON"}},
		{Label: "F", Teams: []string{"ARG", "BIH", "IRN", "NGA"}},
		{Label: "G", Teams: []string{"GER", "POR", "GHA", "USA"}},
		{Label: "H", Teams: []string{"BEL", "ALG", "RUS", "KOR"}},
	}
	strengths := make(Strengths)
	for gi, g := range groups {
		for ti, team := range g.Teams {
			strengths[team] = 1.0 - 0.2*float64(ti) - 0.01*float64(gi)
		}
	}
	pairs, err := ParsePairs(wc2014Pairs)
	require.NoError(t, err)
	sk, err := NewSkeleton(pairs)
	require.NoError(t, err)

	return &Tournament{
		Name:       "World Cup 2014",
		Groups:     groups,
		Skeleton:   sk,
		Strengths:  strengths,
		Model:      DefaultMatchModel(),
		GroupSize:  4,
		Qualifiers: 2,
	}
}

func singleGroupFinal(strengths Strengths, model MatchModel) *Tournament {
	return &Tournament{
		Name:       "one group, one final",
		Groups:     []Group{{Label: "A", Teams: []string{"W", "X", "Y", "Z"}}},
		Skeleton:   &Skeleton{Root: Pair(Leaf(Slot{"A", 1}), Leaf(Slot{"A", 2}))},
		Strengths:  strengths,
		Model:      model,
		GroupSize:  4,
		Qualifiers: 2,
	}
}

func TestTournament_Validate(t *testing.T) {
	require.NoError(t, wc2014(t).Validate())

	tour := wc2014(t)
	tour.Groups[1].Teams[0] = "BRA"
	err := tour.Validate()
	assert.True(t, IsConfigurationError(err))
	assert.Contains(t, err.Error(), "both group A and group B")

	tour = wc2014(t)
	tour.Groups[7].Label = "A"
	assert.True(t, IsConfigurationError(tour.Validate()))

	tour = wc2014(t)
	tour.Qualifiers = 1
	err = tour.Validate()
	assert.True(t, IsConfigurationError(err))
	assert.Contains(t, err.Error(), "16 slots but groups produce 8 qualifiers")

	tour = wc2014(t)
	tour.GroupSize = 5
	assert.True(t, IsConfigurationError(tour.Validate()))

	tour = wc2014(t)
	delete(tour.Strengths.(Strengths), "KOR")
	err = tour.Validate()
	assert.True(t, IsDataError(err))
	assert.False(t, IsConfigurationError(err))

	tour = wc2014(t)
	tour.Groups = nil
	assert.True(t, IsConfigurationError(tour.Validate()))

	tour = wc2014(t)
	tour.Strengths = nil
	assert.True(t, IsConfigurationError(tour.Validate()))

	tour = wc2014(t)
	tour.Model.Scale = -2
	assert.True(t, IsConfigurationError(tour.Validate()))

	for _, v := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		tour = wc2014(t)
		tour.Strengths.(Strengths)["KOR"] = v
		err = tour.Validate()
		assert.True(t, IsConfigurationError(err), "strength %v", v)
		assert.Contains(t, err.Error(), `"KOR" has non-finite strength`)
	}
}

func TestTournament_RunOnce(t *testing.T) {
	tour := wc2014(t)
	require.NoError(t, tour.Validate())
	entrants := make(map[string]bool)
	for _, team := range tour.Teams() {
		entrants[team] = true
	}
	assert.Len(t, entrants, 32)

	rng := rand.New(rand.NewPCG(2014, 0))
	for i := 0; i < 200; i++ {
		out, err := tour.RunOnce(rng)
		require.NoError(t, err)
		require.True(t, entrants[out.Champion])
		assert.Equal(t, 4, out.Rounds)
		assert.Len(t, out.Reached, 32)

		counts := make(map[Stage]int)
		for _, s := range out.Reached {
			counts[s]++
		}
		assert.Equal(t, map[Stage]int{StageGroup: 16, 1: 8, 2: 4, 3: 2, 4: 1, 5: 1}, counts)

		_, ok := out.Eliminated(out.Champion)
		assert.False(t, ok)
		s, ok := out.Eliminated(out.RunnerUp)
		assert.True(t, ok)
		assert.Equal(t, Stage(4), s)
	}
}

func TestTournament_RunOnceIsIsolated(t *testing.T) {
	tour := wc2014(t)
	first, err := tour.RunOnce(rand.New(rand.NewPCG(99, 1)))
	require.NoError(t, err)

	// burn some runs in between
	rng := rand.New(rand.NewPCG(5, 5))
	for i := 0; i < 50; i++ {
		_, err := tour.RunOnce(rng)
		require.NoError(t, err)
	}

	again, err := tour.RunOnce(rand.New(rand.NewPCG(99, 1)))
	require.NoError(t, err)
	assert.Equal(t, first, again)
}

func TestTournament_EqualTeamsShareTheTitle(t *testing.T) {
	tour := singleGroupFinal(equalStrengths("W", "X", "Y", "Z"), DefaultMatchModel())
	require.NoError(t, tour.Validate())

	rng := rand.New(rand.NewPCG(42, 0))
	titles := make(map[string]int)
	for i := 0; i < 1000; i++ {
		out, err := tour.RunOnce(rng)
		require.NoError(t, err)
		titles[out.Champion]++
	}
	assert.Len(t, titles, 4)
	for team, n := range titles {
		// sd is about 13.7 titles
		assert.InDelta(t, 250, n, 60, "team %s", team)
	}
}

func TestTournament_OverwhelmingFavourite(t *testing.T) {
	model := MatchModel{Scale: 4, Draw: ScaledDraw{Rate: 0.25}}
	strengths := Strengths{"W": 0.05, "X": 1.0, "Y": 0.05, "Z": 0.05}
	require.Greater(t, model.WinProbability(1.0, 0.05), 0.95)

	tour := singleGroupFinal(strengths, model)
	rng := rand.New(rand.NewPCG(42, 0))
	titles, toppedGroup := 0, 0
	stage := tour.stage()
	for i := 0; i < 5000; i++ {
		table, err := stage.Play(tour.Groups[0], strengths, rng)
		require.NoError(t, err)
		if table.Standings[0].Team == "X" {
			toppedGroup++
		}
		out, err := tour.RunOnce(rng)
		require.NoError(t, err)
		if out.Champion == "X" {
			titles++
		}
	}
	assert.Greater(t, toppedGroup, 4000)
	assert.Greater(t, titles, 4000)
}

func TestTournament_PlayKeepsDetail(t *testing.T) {
	tour := wc2014(t)
	run, err := tour.Play(rand.New(rand.NewPCG(7, 3)))
	require.NoError(t, err)
	out, err := tour.RunOnce(rand.New(rand.NewPCG(7, 3)))
	require.NoError(t, err)
	assert.Equal(t, out, run.Outcome)

	require.Len(t, run.Tables, 8)
	for i, table := range run.Tables {
		assert.Equal(t, tour.Groups[i].Label, table.Label)
		assert.Len(t, table.Standings, 4)
		assert.Len(t, table.Results, 6)
	}
	assert.Equal(t, run.Outcome.Champion, run.Bracket.Champion)
	assert.Len(t, run.Bracket.Matches[0], 8)
}
