package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utakatalp/cup-simulator/internal/league"
	"github.com/utakatalp/cup-simulator/internal/store"
	"github.com/utakatalp/cup-simulator/internal/strength"
)

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	return p
}

func TestLoad_WorldCup2014(t *testing.T) {
	f, err := Load(filepath.Join("..", "..", "configs", "wc2014.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "World Cup 2014", f.Name)
	assert.Len(t, f.Groups, 8)

	tour, err := f.Tournament()
	require.NoError(t, err)
	assert.Equal(t, 4, tour.Skeleton.Rounds())
	assert.Len(t, tour.Teams(), 32)
	v, err := tour.Strengths.Strength("Spain")
	require.NoError(t, err)
	assert.Equal(t, 1.0, v)

	opts := f.Options()
	assert.Equal(t, 20000, opts.Runs)
	require.NotNil(t, opts.Seed)
	assert.Equal(t, uint64(42), *opts.Seed)
}

func TestLoad_InlineDefaults(t *testing.T) {
	f, err := Load(filepath.Join("..", "..", "configs", "four_equal.yaml"))
	require.NoError(t, err)
	tour, err := f.Tournament(strength.Override{Team: "X", Value: 0.9})
	require.NoError(t, err)

	assert.Equal(t, DefaultGroupSize, tour.GroupSize)
	assert.Equal(t, DefaultQualifiers, tour.Qualifiers)
	assert.Equal(t, league.DefaultMatchModel(), tour.Model)
	x, _ := tour.Strengths.Strength("X")
	assert.Equal(t, 0.9, x)
	assert.Equal(t, 0.5, f.Strengths["X"], "file values stay untouched")

	_, err = f.Tournament(strength.Override{Team: "Q", Value: 0.9})
	assert.True(t, league.IsDataError(err))
}

func TestLoad_JSON(t *testing.T) {
	dir := t.TempDir()
	p := writeFile(t, dir, "cup.json", `{
		"name": "json cup",
		"runs": 50,
		"model": {"scale": 0, "draw": {"policy": "constant", "value": 0.3}},
		"groups": [{"label": "A", "teams": ["a", "b", "c", "d"]}],
		"knockout": [["A1", "A2"]],
		"strengths": {"a": 1, "b": 1, "c": 1, "d": 1}
	}`)
	f, err := Load(p)
	require.NoError(t, err)
	tour, err := f.Tournament()
	require.NoError(t, err)
	assert.Equal(t, league.MatchModel{Scale: 0, Draw: league.ConstantDraw(0.3)}, tour.Model)
	assert.Equal(t, 50, f.Options().Runs)
	assert.Nil(t, f.Options().Seed)
}

func TestLoad_Rankings(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "rankings.csv", `rank,country_full,total_points,rank_date
1,a,900,2014-06-05
2,b,500,2014-06-05
3,c,300,2014-06-05
4,d,100,2014-06-05
1,d,2000,2014-07-17
`)
	p := writeFile(t, dir, "cup.yml", `
name: ranked
groups:
  - label: A
    teams: [a, b, c, d]
knockout:
  - [A1, A2]
rankingsFile: rankings.csv
rankingCutoff: "2014-06-12"
rankingFloor: 0.1
`)
	f, err := Load(p)
	require.NoError(t, err)
	s, err := f.LoadStrengths()
	require.NoError(t, err)
	assert.Equal(t, league.Strengths{"a": 1, "b": 0.5, "c": 0.25, "d": 0.1}, s)
}

func TestLoad_Errors(t *testing.T) {
	dir := t.TempDir()
	base := `
groups:
  - label: A
    teams: [a, b, c, d]
`
	ko := "knockout:\n  - [A1, A2]\n"
	inline := "strengths: {a: 1, b: 1, c: 1, d: 1}\n"

	cases := map[string]string{
		"unknown field":    base + ko + inline + "bogus: 1\n",
		"two sources":      base + ko + inline + "strengthsFile: s.csv\n",
		"no source":        base + ko,
		"no cutoff":        base + ko + "rankingsFile: r.csv\n",
		"bad policy":       base + ko + inline + "model: {draw: {policy: poisson}}\n",
		"constant no val":  base + ko + inline + "model: {draw: {policy: constant}}\n",
		"negative scale":   base + ko + inline + "model: {scale: -1}\n",
		"bad slot":         base + inline + "knockout: [[A1, Z]]\n",
		"no knockout":      base + inline,
		"too many qualify": base + ko + inline + "qualifiers: 5\n",
		"nan strength":     base + ko + "strengths: {a: .nan, b: 1, c: 1, d: 1}\n",
		"inf strength":     base + ko + "strengths: {a: 1, b: 1, c: 1, d: .inf}\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			p := writeFile(t, dir, "cup.yaml", body)
			f, err := Load(p)
			if err == nil {
				_, err = f.Tournament()
			}
			require.Error(t, err)
			assert.True(t, league.IsConfigurationError(err), "got %v", err)
		})
	}

	_, err := Load(writeFile(t, dir, "cup.toml", "name = 1"))
	assert.True(t, league.IsConfigurationError(err))
	_, err = Load(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)

	f, err := Load(writeFile(t, dir, "cup.yaml", base+ko+"strengthsFile: nowhere.csv\n"))
	require.NoError(t, err)
	_, err = f.Tournament()
	assert.Error(t, err)
}

func TestOptions_Runs(t *testing.T) {
	assert.Equal(t, DefaultRuns, (&File{}).Options().Runs)
	assert.Equal(t, -3, (&File{Runs: -3}).Options().Runs)
}

func TestLoadEnv(t *testing.T) {
	dir := t.TempDir()
	dotenv := writeFile(t, dir, ".env", "CUPSIM_STORE=sqlite\nSQLITE_PATH=/tmp/cupsim-test.db\nCUPSIM_ADDR=:9999\n")
	for _, k := range []string{"CUPSIM_STORE", "SQLITE_PATH", "CUPSIM_ADDR", "CUPSIM_LOG_LEVEL"} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
	t.Setenv("CUPSIM_LOG_LEVEL", "debug")

	env, err := LoadEnv(dotenv)
	require.NoError(t, err)
	assert.Equal(t, "debug", env.LogLevel)
	assert.Equal(t, ":9999", env.Addr)
	cfg, err := env.StoreConfig(env.StoreKind)
	require.NoError(t, err)
	assert.Equal(t, store.Config{Kind: store.KindSQLite, DSN: "/tmp/cupsim-test.db"}, cfg)

	cfg, err = env.StoreConfig("mongo")
	require.NoError(t, err)
	assert.Equal(t, store.KindMongo, cfg.Kind)
	assert.NotEmpty(t, cfg.Database)

	t.Setenv("CUPSIM_STORE", "redis")
	_, err = LoadEnv(filepath.Join(dir, "absent.env"))
	assert.True(t, league.IsConfigurationError(err), "got %v", err)

	t.Setenv("CUPSIM_STORE", "postgres")
	t.Setenv("DATABASE_URL", "")
	_, err = LoadEnv(filepath.Join(dir, "absent.env"))
	assert.True(t, league.IsConfigurationError(err), "got %v", err)
}
