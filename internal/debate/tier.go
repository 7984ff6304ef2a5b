package debate

// ConcessionTier is the four-valued escalation of how much the bot should
// yield on the current turn, ordered NONE < SOFT < PARTIAL < FULL.
type ConcessionTier string

const (
	// TierNone continues the debate normally.
	TierNone ConcessionTier = "NONE"

	// TierSoft acknowledges the user's point without flipping state.
	TierSoft ConcessionTier = "SOFT"

	// TierPartial concedes a specific sub-claim.
	TierPartial ConcessionTier = "PARTIAL"

	// TierFull concedes the debate and ends the match.
	TierFull ConcessionTier = "FULL"
)

// Positive reports whether the tier counts toward the verdict lanes
// (PARTIAL or FULL).
func (t ConcessionTier) Positive() bool {
	return t == TierPartial || t == TierFull
}

// AtLeast reports whether t is at or above other on the escalation ladder.
func (t ConcessionTier) AtLeast(other ConcessionTier) bool {
	return t.rank() >= other.rank()
}

func (t ConcessionTier) rank() int {
	switch t {
	case TierSoft:
		return 1
	case TierPartial:
		return 2
	case TierFull:
		return 3
	default:
		return 0
	}
}
