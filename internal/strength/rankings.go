package strength

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/utakatalp/cup-simulator/internal/league"
)

// DefaultFloor keeps the weakest side above zero strength.
const DefaultFloor = 0.05

// DateLayout is the format of rank_date and of ranking cutoffs.
const DateLayout = "2006-01-02"

// Ranking is one row of a published ranking table.
type Ranking struct {
	Rank   int
	Team   string
	Points float64
	Date   time.Time
}

// LoadRankingsCSV reads a ranking history with the columns rank,
// country_full, total_points and rank_date. Rows whose date does not parse
// are skipped.
func LoadRankingsCSV(r io.Reader) ([]Ranking, error) {
	records, cols, err := readTable(r, "rank", "country_full", "total_points", "rank_date")
	if err != nil {
		return nil, err
	}
	out := make([]Ranking, 0, len(records))
	for i, rec := range records {
		date, err := time.Parse(DateLayout, strings.TrimSpace(rec[cols["rank_date"]]))
		if err != nil {
			continue
		}
		rank, err := strconv.Atoi(strings.TrimSpace(rec[cols["rank"]]))
		if err != nil {
			return nil, fmt.Errorf("row %d: bad rank %q", i+2, rec[cols["rank"]])
		}
		pts, err := strconv.ParseFloat(strings.TrimSpace(rec[cols["total_points"]]), 64)
		if err != nil {
			return nil, fmt.Errorf("row %d: bad total_points %q", i+2, rec[cols["total_points"]])
		}
		out = append(out, Ranking{
			Rank:   rank,
			Team:   strings.TrimSpace(rec[cols["country_full"]]),
			Points: pts,
			Date:   date,
		})
	}
	return out, nil
}

// Snapshot keeps the rows of the latest ranking published strictly before
// cutoff, ordered by rank.
func Snapshot(rows []Ranking, cutoff time.Time) ([]Ranking, time.Time, error) {
	var latest time.Time
	for _, r := range rows {
		if r.Date.Before(cutoff) && r.Date.After(latest) {
			latest = r.Date
		}
	}
	if latest.IsZero() {
		return nil, time.Time{}, fmt.Errorf("no ranking published before %s", cutoff.Format(DateLayout))
	}

	var snap []Ranking
	for _, r := range rows {
		if r.Date.Equal(latest) {
			snap = append(snap, r)
		}
	}
	sort.SliceStable(snap, func(i, j int) bool { return snap[i].Rank < snap[j].Rank })
	return snap, latest, nil
}

// Normalize maps ranking points linearly onto [0, 1], then raises anything
// below floor to floor.
func Normalize(rows []Ranking, floor float64) (league.Strengths, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("normalizing: no rows")
	}
	lo, hi := rows[0].Points, rows[0].Points
	for _, r := range rows[1:] {
		lo = min(lo, r.Points)
		hi = max(hi, r.Points)
	}
	if hi == lo {
		return nil, fmt.Errorf("normalizing: all teams have %.2f points", hi)
	}

	out := make(league.Strengths, len(rows))
	for _, r := range rows {
		out[r.Team] = max(floor, (r.Points-lo)/(hi-lo))
	}
	return out, nil
}
