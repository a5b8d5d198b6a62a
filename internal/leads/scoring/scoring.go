// Package scoring computes a lead's quality score and tier from its intrinsic
// attributes. Scoring is a pure function: same input, same result, no side
// effects and no store access, so it can run at intake and again during the
// periodic rescore sweep without coordination.
package scoring

// scoreVersion tracks the scoring model for debugging and analysis.
// Bump this when changing scoring logic significantly.
const scoreVersion = "2026-v1"

const (
	baseScore = 30

	urgencyBonus  = 25
	photoBonus    = 15
	geocodedBonus = 10

	longDescriptionBonus    = 5
	shortDescriptionPenalty = -30

	longDescriptionLen  = 100
	shortDescriptionLen = 20
)

// Tier is the coarse quality bucket derived from the numeric score.
type Tier string

const (
	TierLow     Tier = "low"
	TierMedium  Tier = "medium"
	TierHigh    Tier = "high"
	TierPremium Tier = "premium"
)

// Input carries the pre-validated lead attributes the model looks at.
type Input struct {
	ProblemType string
	Description string
	HasPhoto    bool
	Urgent      bool
	Geocoded    bool
}

// Result is the immutable outcome of a single score computation. Factors
// holds the itemized contribution of every factor, including zero ones, so
// audit tooling can show why a lead landed where it did.
type Result struct {
	Score   int
	Tier    Tier
	Version string
	Factors map[string]int
}

// Score computes the quality score and tier for the given input.
// The model is additive over a fixed factor set, clamped to [0,100].
func Score(in Input) Result {
	factors := map[string]int{
		"base":        baseScore,
		"urgency":     0,
		"photo":       0,
		"geocoded":    0,
		"description": 0,
	}

	if in.Urgent {
		factors["urgency"] = urgencyBonus
	}
	if in.HasPhoto {
		factors["photo"] = photoBonus
	}
	if in.Geocoded {
		factors["geocoded"] = geocodedBonus
	}

	descLen := len(in.Description)
	switch {
	case descLen > longDescriptionLen:
		factors["description"] = longDescriptionBonus
	case descLen < shortDescriptionLen:
		factors["description"] = shortDescriptionPenalty
	}

	raw := 0
	for _, v := range factors {
		raw += v
	}

	score := clampScore(raw)

	return Result{
		Score:   score,
		Tier:    TierFor(score),
		Version: scoreVersion,
		Factors: factors,
	}
}

// TierFor maps a score to its tier. Thresholds are score-inclusive lower
// bounds, so the mapping is monotonic with the score.
func TierFor(score int) Tier {
	switch {
	case score >= 90:
		return TierPremium
	case score >= 70:
		return TierHigh
	case score >= 40:
		return TierMedium
	default:
		return TierLow
	}
}

func clampScore(value int) int {
	if value < 0 {
		return 0
	}
	if value > 100 {
		return 100
	}
	return value
}
