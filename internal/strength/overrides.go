package strength

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/go-andiamo/splitter"

	"github.com/utakatalp/cup-simulator/internal/league"
)

// Override sets one team's strength for a batch.
type Override struct {
	Team  string
	Value float64
}

// ParseOverrides reads a comma-separated list of team=value pairs. Names
// that contain commas go in double quotes, e.g. `"Korea, Republic"=0.6`.
func ParseOverrides(s string) ([]Override, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	// commas inside quotes are kept, so team names may contain them
	commaSplitter, err := splitter.NewSplitter(',', splitter.DoubleQuotes, splitter.LeftRightDoubleDoubleQuotes)
	if err != nil {
		return nil, fmt.Errorf("building splitter: %w", err)
	}
	parts, err := commaSplitter.Split(s)
	if err != nil {
		return nil, &league.ConfigurationError{Field: "override", Message: err.Error()}
	}

	var out []Override
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		eq := strings.LastIndex(part, "=")
		if eq < 0 {
			return nil, &league.ConfigurationError{Field: "override", Message: fmt.Sprintf("%q is not team=value", part)}
		}
		team := unquote(strings.TrimSpace(part[:eq]))
		raw := strings.TrimSpace(part[eq+1:])
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, &league.ConfigurationError{Field: "override", Message: fmt.Sprintf("bad value %q for %s", raw, team)}
		}
		if team == "" {
			return nil, &league.ConfigurationError{Field: "override", Message: fmt.Sprintf("%q has no team", part)}
		}
		out = append(out, Override{Team: team, Value: v})
	}
	return out, nil
}

func unquote(s string) string {
	for _, q := range [][2]string{{`"`, `"`}, {"“", "”"}} {
		if len(s) >= len(q[0])+len(q[1]) && strings.HasPrefix(s, q[0]) && strings.HasSuffix(s, q[1]) {
			return strings.TrimSpace(s[len(q[0]) : len(s)-len(q[1])])
		}
	}
	return s
}

// Apply returns a copy of base with the overrides set. Overriding a team
// base does not know is a DataError.
func Apply(base league.Strengths, overrides []Override) (league.Strengths, error) {
	out := make(league.Strengths, len(base))
	for team, v := range base {
		out[team] = v
	}
	for _, o := range overrides {
		if _, ok := base[o.Team]; !ok {
			return nil, &league.DataError{Team: o.Team, Suggestions: Suggest(o.Team, base.Known())}
		}
		out[o.Team] = o.Value
	}
	return out, nil
}
