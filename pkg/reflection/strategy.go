package reflection

// Strategy selects the posture of each reflection round.
type Strategy string

// The closed set of reflection strategies.
const (
	SelfCritique          Strategy = "self_critique"
	AlternativeGeneration Strategy = "alternative_generation"
	ConfidenceAssessment  Strategy = "confidence_assessment"
	Verification          Strategy = "verification"
	Adversarial           Strategy = "adversarial"
)

// DefaultStrategy is used when the caller does not pick one.
const DefaultStrategy = SelfCritique

var strategies = []Strategy{
	SelfCritique,
	AlternativeGeneration,
	ConfidenceAssessment,
	Verification,
	Adversarial,
}

var strategyDescriptions = map[Strategy]string{
	SelfCritique:          "critique the previous answer for errors and oversights, then improve it",
	AlternativeGeneration: "generate alternative approaches and synthesize them with the original",
	ConfidenceAssessment:  "assess confidence per claim and revisit the weakest ones",
	Verification:          "check consistency, completeness and factual accuracy, then correct",
	Adversarial:           "argue against the previous answer and address the strongest objections",
}

// Strategies returns the catalog in a stable order.
func Strategies() []Strategy {
	out := make([]Strategy, len(strategies))
	copy(out, strategies)
	return out
}

// ParseStrategy resolves a caller-supplied identifier. Matching is exact:
// case and surrounding whitespace are significant.
func ParseStrategy(s string) (Strategy, error) {
	candidate := Strategy(s)
	if candidate.Valid() {
		return candidate, nil
	}
	return "", &InvalidStrategyError{Value: s, Valid: Strategies()}
}

// Valid reports whether s is in the catalog.
func (s Strategy) Valid() bool {
	switch s {
	case SelfCritique, AlternativeGeneration, ConfidenceAssessment, Verification, Adversarial:
		return true
	default:
		return false
	}
}

// Description is a one-line summary for listings.
func (s Strategy) Description() string {
	return strategyDescriptions[s]
}

func (s Strategy) String() string {
	return string(s)
}
