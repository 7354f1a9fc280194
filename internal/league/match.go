package league

import "math"

// Rand is the random source threaded through every simulation call.
// *math/rand/v2.Rand satisfies it.
type Rand interface {
	Float64() float64
}

// DrawPolicy decides how much probability mass a group match reserves for
// a draw, given the logistic win probability of the home side.
type DrawPolicy interface {
	DrawProbability(pHome float64) float64
}

// ConstantDraw reserves the same draw probability for every match.
type ConstantDraw float64

func (c ConstantDraw) DrawProbability(float64) float64 { return float64(c) }

// ScaledDraw draws with probability Rate between equal sides and less the
// more lopsided the pairing: Rate * 4 * p * (1 - p).
type ScaledDraw struct {
	Rate float64
}

func (s ScaledDraw) DrawProbability(p float64) float64 { return s.Rate * 4 * p * (1 - p) }

// MatchModel turns two strengths into a match outcome.
type MatchModel struct {
	// Scale is k in 1/(1+exp(-k*(sa-sb))). Zero makes every match a coin flip.
	Scale float64
	Draw  DrawPolicy
}

// DefaultMatchModel is tuned for strengths normalised into [0.05, 1].
func DefaultMatchModel() MatchModel {
	return MatchModel{Scale: 2.0, Draw: ScaledDraw{Rate: 0.25}}
}

// Validate checks the model parameters.
func (m MatchModel) Validate() error {
	if m.Scale < 0 || math.IsNaN(m.Scale) || math.IsInf(m.Scale, 0) {
		return configErrorf("model.scale", "must be a finite non-negative number, got %v", m.Scale)
	}
	if m.Draw == nil {
		return nil
	}
	for _, p := range []float64{0, 0.5, 1} {
		d := m.Draw.DrawProbability(p)
		if d < 0 || d > 1 || math.IsNaN(d) {
			return configErrorf("model.draw", "draw probability %v is outside [0, 1]", d)
		}
	}
	return nil
}

// WinProbability is the chance side A beats side B when draws are not
// allowed.
func (m MatchModel) WinProbability(sa, sb float64) float64 {
	return 1 / (1 + math.Exp(-m.Scale*(sa-sb)))
}

// Probabilities returns home-win, draw and away-win probabilities.
func (m MatchModel) Probabilities(sa, sb float64, allowDraw bool) (pHome, pDraw, pAway float64) {
	pA := m.WinProbability(sa, sb)
	if allowDraw && m.Draw != nil {
		pDraw = m.Draw.DrawProbability(pA)
	}
	pHome = (1 - pDraw) * pA
	pAway = 1 - pHome - pDraw
	return
}

// Sample draws one match outcome using exactly one value from rng.
func (m MatchModel) Sample(sa, sb float64, rng Rand, allowDraw bool) Outcome {
	pHome, pDraw, _ := m.Probabilities(sa, sb, allowDraw)
	u := rng.Float64()
	switch {
	case u < pHome:
		return HomeWin
	case u < pHome+pDraw:
		return Draw
	default:
		return AwayWin
	}
}
