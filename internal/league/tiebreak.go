package league

import (
	"cmp"
	"sort"
)

// Tiebreaker orders two standings: negative puts a first, positive puts b
// first, zero hands over to the next tiebreaker in the chain.
type Tiebreaker func(a, b *Standing) int

func byPoints(a, b *Standing) int { return cmp.Compare(b.Points, a.Points) }

func byWins(a, b *Standing) int { return cmp.Compare(b.Wins, a.Wins) }

func byStrength(a, b *Standing) int { return cmp.Compare(b.Strength, a.Strength) }

func byLot(a, b *Standing) int { return cmp.Compare(a.Lot, b.Lot) }

func byTeamID(a, b *Standing) int { return cmp.Compare(a.Team, b.Team) }

// headToHead settles a pair that are the only two teams on their points
// total by the result of the match between them.
func headToHead(table []*Standing, results []MatchResult) Tiebreaker {
	onPoints := make(map[int]int, len(table))
	for _, s := range table {
		onPoints[s.Points]++
	}
	return func(a, b *Standing) int {
		if a.Points != b.Points || onPoints[a.Points] != 2 {
			return 0
		}
		for _, m := range results {
			if (m.Home == a.Team && m.Away == b.Team) || (m.Home == b.Team && m.Away == a.Team) {
				switch m.Winner() {
				case a.Team:
					return -1
				case b.Team:
					return 1
				}
			}
		}
		return 0
	}
}

// TiebreakChain is the group ranking order: points, head-to-head between
// exactly two level teams, wins, strength, drawing of lots, team id.
func TiebreakChain(table []*Standing, results []MatchResult) []Tiebreaker {
	return []Tiebreaker{
		byPoints,
		headToHead(table, results),
		byWins,
		byStrength,
		byLot,
		byTeamID,
	}
}

// Compare applies a chain lexicographically.
func Compare(chain []Tiebreaker, a, b *Standing) int {
	for _, tb := range chain {
		if c := tb(a, b); c != 0 {
			return c
		}
	}
	return 0
}

// RankStandings sorts table in place, best first.
func RankStandings(table []*Standing, results []MatchResult) {
	chain := TiebreakChain(table, results)
	sort.Slice(table, func(i, j int) bool {
		return Compare(chain, table[i], table[j]) < 0
	})
}
