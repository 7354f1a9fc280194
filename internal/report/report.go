// Package report prints batch results and single runs as plain text tables.
package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/utakatalp/cup-simulator/internal/league"
	"github.com/utakatalp/cup-simulator/internal/montecarlo"
)

func pct(x float64) string { return fmt.Sprintf("%.1f%%", x*100) }

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

// WriteOdds prints the title probabilities of the best top teams (all when
// top <= 0).
func WriteOdds(w io.Writer, res *montecarlo.Result, top int) error {
	tw := newTable(w)
	fmt.Fprintln(tw, "#\tTeam\tStrength\tP(title)\tStd.err\t95% CI")
	for i, o := range limit(res.Teams, top) {
		lo, hi := o.ConfidenceInterval(0.95)
		fmt.Fprintf(tw, "%d\t%s\t%.3f\t%s\t%.4f\t%s - %s\n",
			i+1, o.Team, o.Strength, pct(o.Probability), o.StdErr, pct(lo), pct(hi))
	}
	return tw.Flush()
}

// WriteStages prints, per team, the share of runs that got at least to each
// knockout round.
func WriteStages(w io.Writer, res *montecarlo.Result, top int) error {
	tw := newTable(w)
	fmt.Fprint(tw, "Team")
	for s := league.Stage(1); int(s) <= res.Rounds+1; s++ {
		fmt.Fprintf(tw, "\t%s", league.StageName(s, res.Rounds))
	}
	fmt.Fprintln(tw)

	for _, o := range limit(res.Teams, top) {
		fmt.Fprint(tw, o.Team)
		for s := league.Stage(1); int(s) <= res.Rounds+1; s++ {
			fmt.Fprintf(tw, "\t%s", pct(o.StageProbability(s)))
		}
		fmt.Fprintln(tw)
	}
	return tw.Flush()
}

// WriteSummary prints how the batch was produced.
func WriteSummary(w io.Writer, res *montecarlo.Result, model league.MatchModel) error {
	_, err := fmt.Fprintf(w, `%s Monte Carlo simulation
Runs: %d
Seed: %d
Elapsed: %v

Model notes:
- Match winner from a logistic curve of the strength difference, scale %g.
- Group draws: %s.
- Group ties: points, head-to-head between exactly two sides, wins, strength, drawing of lots.
- Knockout matches always produce a winner.
`, res.Tournament, res.Runs, res.Seed, res.Elapsed.Round(time.Millisecond), model.Scale, describeDraw(model.Draw))
	return err
}

func describeDraw(p league.DrawPolicy) string {
	switch d := p.(type) {
	case league.ConstantDraw:
		return fmt.Sprintf("constant probability %g", float64(d))
	case league.ScaledDraw:
		return fmt.Sprintf("%g between equal sides, fewer as the gap grows", d.Rate)
	case nil:
		return "none"
	default:
		return fmt.Sprintf("%v", d)
	}
}

// WriteCSV writes team, strength, wins and p_title rows, best first.
func WriteCSV(w io.Writer, res *montecarlo.Result) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"team", "strength", "wins", "p_title", "std_err"}); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	for _, o := range res.Teams {
		rec := []string{
			o.Team,
			strconv.FormatFloat(o.Strength, 'f', -1, 64),
			strconv.Itoa(o.Wins),
			strconv.FormatFloat(o.Probability, 'f', -1, 64),
			strconv.FormatFloat(o.StdErr, 'f', 6, 64),
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("writing %s: %w", o.Team, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteRun prints the group tables and knockout results of a single run.
func WriteRun(w io.Writer, run *league.Run) error {
	for _, table := range run.Tables {
		if err := WriteGroupTable(w, table); err != nil {
			return err
		}
		fmt.Fprintln(w)
	}
	rounds := run.Bracket.Rounds
	for r, matches := range run.Bracket.Matches {
		fmt.Fprintln(w, league.StageName(league.Stage(r+1), rounds))
		for _, m := range matches {
			fmt.Fprintf(w, "  %s beat %s\n", m.Winner(), m.Loser())
		}
	}
	_, err := fmt.Fprintf(w, "Champion: %s\n", run.Outcome.Champion)
	return err
}

// WriteGroupTable prints one group's final standings.
func WriteGroupTable(w io.Writer, table *league.GroupTable) error {
	fmt.Fprintf(w, "Group %s\n", table.Label)
	tw := newTable(w)
	fmt.Fprintln(tw, "Team\tP\tW\tD\tL\tPts")
	for _, s := range table.Standings {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\t%d\n", s.Team, s.Played, s.Wins, s.Draws, s.Losses, s.Points)
	}
	return tw.Flush()
}

func limit(odds []montecarlo.TeamOdds, top int) []montecarlo.TeamOdds {
	if top <= 0 || top > len(odds) {
		return odds
	}
	return odds[:top]
}
