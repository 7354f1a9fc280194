package league

import (
	"fmt"
	"strconv"
	"strings"
)

// Slot references a group qualifier, e.g. A1 is the winner of group A.
type Slot struct {
	Group string
	Rank  int
}

func (s Slot) String() string { return s.Group + strconv.Itoa(s.Rank) }

// ParseSlot reads references such as "A1" or "H2": a group label followed
// by a 1-based rank.
func ParseSlot(ref string) (Slot, error) {
	ref = strings.TrimSpace(ref)
	i := len(ref)
	for i > 0 && ref[i-1] >= '0' && ref[i-1] <= '9' {
		i--
	}
	if i == 0 || i == len(ref) {
		return Slot{}, configErrorf("knockout", "bad slot reference %q, want group label followed by rank", ref)
	}
	rank, err := strconv.Atoi(ref[i:])
	if err != nil || rank < 1 {
		return Slot{}, configErrorf("knockout", "bad rank in slot reference %q", ref)
	}
	return Slot{Group: ref[:i], Rank: rank}, nil
}

// SkeletonNode is a node of the pairing skeleton: either a slot (leaf) or a
// match between the winners of two child nodes.
type SkeletonNode struct {
	Slot        *Slot
	Left, Right *SkeletonNode
}

// Leaf makes a slot node.
func Leaf(s Slot) *SkeletonNode { return &SkeletonNode{Slot: &s} }

// Pair makes a match node.
func Pair(left, right *SkeletonNode) *SkeletonNode {
	return &SkeletonNode{Left: left, Right: right}
}

func (n *SkeletonNode) isLeaf() bool { return n.Slot != nil }

// Skeleton is the fixed knockout tree shared by every run of a batch. It is
// never mutated after construction.
type Skeleton struct {
	Root *SkeletonNode
}

// NewSkeleton builds a bracket from its first-round pairs. Winners of
// adjacent matches meet in the next round until one match is left. The
// number of pairs must be a power of two.
func NewSkeleton(pairs [][2]Slot) (*Skeleton, error) {
	n := len(pairs)
	if n == 0 || n&(n-1) != 0 {
		return nil, configErrorf("knockout", "need a power of two of first-round matches, got %d", n)
	}
	level := make([]*SkeletonNode, n)
	for i, p := range pairs {
		level[i] = Pair(Leaf(p[0]), Leaf(p[1]))
	}
	for len(level) > 1 {
		next := make([]*SkeletonNode, 0, len(level)/2)
		for i := 0; i < len(level); i += 2 {
			next = append(next, Pair(level[i], level[i+1]))
		}
		level = next
	}
	return &Skeleton{Root: level[0]}, nil
}

// ParsePairs turns [["A1","B2"], ...] into slot pairs.
func ParsePairs(refs [][]string) ([][2]Slot, error) {
	pairs := make([][2]Slot, 0, len(refs))
	for i, r := range refs {
		if len(r) != 2 {
			return nil, configErrorf(fmt.Sprintf("knockout[%d]", i), "a match needs exactly two slots, got %d", len(r))
		}
		a, err := ParseSlot(r[0])
		if err != nil {
			return nil, err
		}
		b, err := ParseSlot(r[1])
		if err != nil {
			return nil, err
		}
		pairs = append(pairs, [2]Slot{a, b})
	}
	return pairs, nil
}

// Slots lists the leaves left to right.
func (s *Skeleton) Slots() []Slot {
	var out []Slot
	var walk func(n *SkeletonNode)
	walk = func(n *SkeletonNode) {
		if n == nil {
			return
		}
		if n.isLeaf() {
			out = append(out, *n.Slot)
			return
		}
		walk(n.Left)
		walk(n.Right)
	}
	walk(s.Root)
	return out
}

// Rounds is the number of knockout rounds, i.e. the height of the tree.
func (s *Skeleton) Rounds() int {
	if s == nil {
		return 0
	}
	var height func(n *SkeletonNode) int
	height = func(n *SkeletonNode) int {
		if n == nil || n.isLeaf() {
			return 0
		}
		return 1 + max(height(n.Left), height(n.Right))
	}
	return height(s.Root)
}

// FirstRound lists matches whose both sides are slots, left to right.
func (s *Skeleton) FirstRound() [][2]Slot {
	var out [][2]Slot
	var walk func(n *SkeletonNode)
	walk = func(n *SkeletonNode) {
		if n == nil || n.isLeaf() {
			return
		}
		if n.Left.isLeaf() && n.Right.isLeaf() {
			out = append(out, [2]Slot{*n.Left.Slot, *n.Right.Slot})
			return
		}
		walk(n.Left)
		walk(n.Right)
	}
	walk(s.Root)
	return out
}

// Validate checks the tree shape and that its slots cover exactly the
// qualifiers of the given groups.
func (s *Skeleton) Validate(groups []Group, qualifiers int) error {
	if s == nil || s.Root == nil {
		return configErrorf("knockout", "no bracket given")
	}
	if err := checkNode(s.Root); err != nil {
		return err
	}
	if s.Root.isLeaf() {
		return configErrorf("knockout", "bracket has no matches")
	}

	labels := make(map[string]bool, len(groups))
	for _, g := range groups {
		labels[g.Label] = true
	}
	slots := s.Slots()
	if want := len(groups) * qualifiers; len(slots) != want {
		return configErrorf("knockout", "bracket has %d slots but groups produce %d qualifiers", len(slots), want)
	}
	used := make(map[Slot]bool, len(slots))
	for _, sl := range slots {
		if !labels[sl.Group] {
			return configErrorf("knockout", "slot %s refers to unknown group %q", sl, sl.Group)
		}
		if sl.Rank < 1 || sl.Rank > qualifiers {
			return configErrorf("knockout", "slot %s refers to rank %d but only %d teams qualify", sl, sl.Rank, qualifiers)
		}
		if used[sl] {
			return configErrorf("knockout", "slot %s used twice", sl)
		}
		used[sl] = true
	}
	return nil
}

func checkNode(n *SkeletonNode) error {
	hasChildren := n.Left != nil || n.Right != nil
	switch {
	case n.Slot != nil && hasChildren:
		return configErrorf("knockout", "node %s has both a slot and children", n.Slot)
	case n.Slot == nil && (n.Left == nil || n.Right == nil):
		return configErrorf("knockout", "match node needs two children")
	case n.Slot != nil:
		return nil
	}
	if err := checkNode(n.Left); err != nil {
		return err
	}
	return checkNode(n.Right)
}

// BracketResult is the outcome of one knockout phase.
type BracketResult struct {
	Champion string
	RunnerUp string
	Rounds   int
	// Reached maps each bracket team to the round it lost in, or Rounds+1
	// for the champion.
	Reached map[string]Stage
	// Matches holds the results round by round.
	Matches [][]MatchResult
}

// bracketNode is the per-run copy of a SkeletonNode.
type bracketNode struct {
	team     string
	children [2]*bracketNode
	round    int
	winner   string
}

// PlayBracket substitutes group qualifiers into the skeleton and plays it
// out round by round. qualifiers maps a group label to its qualifiers, best
// first. Every call builds its own node tree.
func PlayBracket(s *Skeleton, qualifiers map[string][]string, strengths StrengthProvider, model MatchModel, rng Rand) (*BracketResult, error) {
	if s == nil || s.Root == nil {
		return nil, configErrorf("knockout", "no bracket given")
	}

	var levels [][]*bracketNode
	var build func(n *SkeletonNode) (*bracketNode, error)
	build = func(n *SkeletonNode) (*bracketNode, error) {
		if n.isLeaf() {
			q := qualifiers[n.Slot.Group]
			if n.Slot.Rank < 1 || n.Slot.Rank > len(q) {
				return nil, configErrorf("knockout", "slot %s has no qualifier", n.Slot)
			}
			team := q[n.Slot.Rank-1]
			return &bracketNode{team: team, winner: team}, nil
		}
		if n.Left == nil || n.Right == nil {
			return nil, configErrorf("knockout", "match node needs two children")
		}
		l, err := build(n.Left)
		if err != nil {
			return nil, err
		}
		r, err := build(n.Right)
		if err != nil {
			return nil, err
		}
		node := &bracketNode{children: [2]*bracketNode{l, r}, round: 1 + max(l.round, r.round)}
		for len(levels) < node.round {
			levels = append(levels, nil)
		}
		levels[node.round-1] = append(levels[node.round-1], node)
		return node, nil
	}
	root, err := build(s.Root)
	if err != nil {
		return nil, err
	}
	if root.round == 0 {
		return nil, configErrorf("knockout", "bracket has no matches")
	}

	res := &BracketResult{
		Rounds:  root.round,
		Reached: make(map[string]Stage),
		Matches: make([][]MatchResult, len(levels)),
	}
	for i, level := range levels {
		round := i + 1
		for _, node := range level {
			home, away := node.children[0].winner, node.children[1].winner
			sh, err := strengths.Strength(home)
			if err != nil {
				return nil, fmt.Errorf("knockout round %d: %w", round, err)
			}
			sa, err := strengths.Strength(away)
			if err != nil {
				return nil, fmt.Errorf("knockout round %d: %w", round, err)
			}
			m := MatchResult{Home: home, Away: away, Outcome: model.Sample(sh, sa, rng, false)}
			node.winner = m.Winner()
			res.Reached[m.Loser()] = Stage(round)
			res.Matches[i] = append(res.Matches[i], m)
			if node == root {
				res.RunnerUp = m.Loser()
			}
		}
	}
	res.Champion = root.winner
	res.Reached[res.Champion] = Stage(res.Rounds + 1)
	return res, nil
}
