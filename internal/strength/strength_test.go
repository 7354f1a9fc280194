package strength

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utakatalp/cup-simulator/internal/league"
)

const rankingsCSV = `rank,country_full,country_abrv,total_points,rank_date
1,Spain,ESP,1460,2014-05-15
2,Germany,GER,1340,2014-05-15
3,Brazil,BRA,1102,2014-05-15
1,Spain,ESP,1485,2014-06-05
2,Germany,GER,1300,2014-06-05
3,Portugal,POR,1189,2014-06-05
4,Brazil,BRA,1102,2014-06-05
5,Australia,AUS,526,2014-06-05
1,Germany,GER,1725,2014-07-17
,,,,not a date
`

func TestLoadStrengthsCSV(t *testing.T) {
	in := "team,rank,points,strength\nBrazil,4,1102,0.6\n\"Korea Republic\",57,551,0.05\n"
	got, err := LoadStrengthsCSV(strings.NewReader(in))
	require.NoError(t, err)
	assert.Equal(t, league.Strengths{"Brazil": 0.6, "Korea Republic": 0.05}, got)

	for name, bad := range map[string]string{
		"empty":          "",
		"missing column": "team,points\nBrazil,1\n",
		"bad value":      "team,strength\nBrazil,strong\n",
		"twice":          "team,strength\nBrazil,1\nBrazil,0.5\n",
		"blank team":     "team,strength\n,1\n",
	} {
		_, err := LoadStrengthsCSV(strings.NewReader(bad))
		assert.Error(t, err, name)
	}
}

func TestSnapshotAndNormalize(t *testing.T) {
	rows, err := LoadRankingsCSV(strings.NewReader(rankingsCSV))
	require.NoError(t, err)
	assert.Len(t, rows, 9)

	cutoff, _ := time.Parse(DateLayout, "2014-06-12")
	snap, date, err := Snapshot(rows, cutoff)
	require.NoError(t, err)
	assert.Equal(t, "2014-06-05", date.Format(DateLayout))
	require.Len(t, snap, 5)
	assert.Equal(t, "Spain", snap[0].Team)
	assert.Equal(t, "Australia", snap[4].Team)

	strengths, err := Normalize(snap, DefaultFloor)
	require.NoError(t, err)
	assert.Equal(t, 1.0, strengths["Spain"])
	assert.Equal(t, DefaultFloor, strengths["Australia"])
	assert.InDelta(t, (1102.0-526)/(1485-526), strengths["Brazil"], 1e-12)

	_, _, err = Snapshot(rows, time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC))
	assert.Error(t, err)

	// the cutoff date itself is excluded
	_, date, err = Snapshot(rows, time.Date(2014, 6, 5, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, "2014-05-15", date.Format(DateLayout))
}

func TestNormalize_AllEqual(t *testing.T) {
	_, err := Normalize([]Ranking{{Team: "a", Points: 10}, {Team: "b", Points: 10}}, DefaultFloor)
	assert.Error(t, err)
	_, err = Normalize(nil, DefaultFloor)
	assert.Error(t, err)
}

func TestSuggest(t *testing.T) {
	known := []string{"Bosnia and Herzegovina", "Brazil", "Côte d'Ivoire", "Korea Republic", "USA", "Uruguay"}

	assert.Equal(t, "Brazil", Suggest("Brasil", known)[0])
	assert.Equal(t, "Côte d'Ivoire", Suggest("Cote d'Ivoire", known)[0])
	assert.Contains(t, Suggest("Korea", known), "Korea Republic")
	assert.Contains(t, Suggest("Bosnia-Herzegovina", known), "Bosnia and Herzegovina")
	assert.LessOrEqual(t, len(Suggest("U", known)), 3)
	assert.Empty(t, Suggest("Atlantis", known))
}

func TestProvider_SuggestsOnMiss(t *testing.T) {
	p := NewProvider(league.Strengths{"Brazil": 1, "Croatia": 0.5})

	v, err := p.Strength("Croatia")
	require.NoError(t, err)
	assert.Equal(t, 0.5, v)

	_, err = p.Strength("Brasil")
	require.Error(t, err)
	assert.True(t, league.IsDataError(err))
	assert.Contains(t, err.Error(), `did you mean Brazil?`)
}

func TestParseOverrides(t *testing.T) {
	got, err := ParseOverrides(`Brazil=0.9, "Korea, Republic"=0.6 ,USA = 0.25`)
	require.NoError(t, err)
	assert.Equal(t, []Override{
		{Team: "Brazil", Value: 0.9},
		{Team: "Korea, Republic", Value: 0.6},
		{Team: "USA", Value: 0.25},
	}, got)

	got, err = ParseOverrides("  ")
	require.NoError(t, err)
	assert.Empty(t, got)

	for _, bad := range []string{"Brazil", "Brazil=fast", "=0.4", "Brazil=NaN"} {
		_, err := ParseOverrides(bad)
		require.Error(t, err, bad)
		assert.True(t, league.IsConfigurationError(err), bad)
	}
}

func TestApply(t *testing.T) {
	base := league.Strengths{"Brazil": 1, "Croatia": 0.5}
	got, err := Apply(base, []Override{{Team: "Croatia", Value: 0.8}})
	require.NoError(t, err)
	assert.Equal(t, 0.8, got["Croatia"])
	assert.Equal(t, 0.5, base["Croatia"], "base is left alone")

	_, err = Apply(base, []Override{{Team: "Croatai", Value: 0.8}})
	assert.True(t, league.IsDataError(err))
}
