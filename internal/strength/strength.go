// Package strength builds the team strength table a batch runs on: from a
// ready team,strength CSV, from a raw ranking history, or from command-line
// overrides.
package strength

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/utakatalp/cup-simulator/internal/league"
)

// maxSuggestions caps the names offered for an unknown team.
const maxSuggestions = 3

// LoadStrengthsCSV reads a table with at least the columns team and
// strength. Other columns are ignored.
func LoadStrengthsCSV(r io.Reader) (league.Strengths, error) {
	records, cols, err := readTable(r, "team", "strength")
	if err != nil {
		return nil, err
	}
	out := make(league.Strengths, len(records))
	for i, rec := range records {
		team := strings.TrimSpace(rec[cols["team"]])
		if team == "" {
			return nil, fmt.Errorf("row %d: empty team", i+2)
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(rec[cols["strength"]]), 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("row %d: bad strength %q for %s", i+2, rec[cols["strength"]], team)
		}
		if _, dup := out[team]; dup {
			return nil, fmt.Errorf("row %d: team %s listed twice", i+2, team)
		}
		out[team] = v
	}
	return out, nil
}

// readTable reads a headed CSV and maps each required column to its index.
func readTable(r io.Reader, required ...string) ([][]string, map[string]int, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil, fmt.Errorf("reading header: empty file")
	}
	if err != nil {
		return nil, nil, fmt.Errorf("reading header: %w", err)
	}

	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))] = i
	}
	var missing []string
	for _, name := range required {
		if _, ok := cols[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, nil, fmt.Errorf("missing required columns: %s", strings.Join(missing, ", "))
	}

	records, err := cr.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("reading rows: %w", err)
	}
	return records, cols, nil
}

// Provider is a strength table whose lookup failures carry name
// suggestions.
type Provider struct {
	league.Strengths
	known []string
}

// NewProvider wraps s. s must not change afterwards.
func NewProvider(s league.Strengths) *Provider {
	known := s.Known()
	sort.Strings(known)
	return &Provider{Strengths: s, known: known}
}

func (p *Provider) Strength(teamID string) (float64, error) {
	v, ok := p.Strengths[teamID]
	if !ok {
		return 0, &league.DataError{Team: teamID, Suggestions: Suggest(teamID, p.known)}
	}
	return v, nil
}

// Suggest returns up to three known ids that look like id: fuzzy matches
// either way round, or names within a small edit distance, closest first.
func Suggest(id string, known []string) []string {
	type candidate struct {
		name string
		dist int
	}
	seen := make(map[string]bool)
	var found []candidate
	add := func(name string) {
		if seen[name] {
			return
		}
		seen[name] = true
		found = append(found, candidate{name, fuzzy.LevenshteinDistance(strings.ToLower(id), strings.ToLower(name))})
	}

	for _, r := range fuzzy.RankFindNormalizedFold(id, known) {
		add(r.Target)
	}
	limit := max(2, len(id)/3)
	for _, name := range known {
		if fuzzy.MatchNormalizedFold(name, id) {
			add(name)
			continue
		}
		if fuzzy.LevenshteinDistance(strings.ToLower(id), strings.ToLower(name)) <= limit {
			add(name)
		}
	}

	sort.Slice(found, func(i, j int) bool {
		if found[i].dist != found[j].dist {
			return found[i].dist < found[j].dist
		}
		return found[i].name < found[j].name
	})
	var out []string
	for i := 0; i < len(found) && i < maxSuggestions; i++ {
		out = append(out, found[i].name)
	}
	return out
}
