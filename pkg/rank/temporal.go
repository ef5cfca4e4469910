package rank

import (
	"time"

	"github.com/wisslab/wissrank/pkg/snapshot"
)

// SignalScore is one signal's raw output for a person. Valid is false when
// the signal cannot be computed at all, e.g. no life dates for the temporal
// signal; an invalid score is imputed during fusion, never treated as zero.
type SignalScore struct {
	Value float64
	Valid bool
}

func invalidScore() SignalScore {
	return SignalScore{}
}

func validScore(v float64) SignalScore {
	return SignalScore{Value: v, Valid: true}
}

// temporalScore measures how much of a person's life overlaps the target era,
// in [0,1].
//
// Both dates unknown yields an invalid score. With both dates known, the
// score is the overlap length divided by the shorter of life span and era
// span, so a life fully inside the era scores 1 regardless of its length.
// With exactly one date known the open bound is clamped to the era edge on
// that side and the result is discounted by penalty (UnknownDatePenalty).
// A zero-length life (birth == death) scores 1 inside the era and 0 outside.
func temporalScore(p snapshot.Person, eraStart, eraEnd time.Time, penalty float64) SignalScore {
	if p.Birth == nil && p.Death == nil {
		return invalidScore()
	}

	if p.Birth != nil && p.Death != nil {
		if p.Birth.Equal(*p.Death) {
			if !p.Birth.Before(eraStart) && !p.Birth.After(eraEnd) {
				return validScore(1.0)
			}
			return validScore(0.0)
		}
		return validScore(overlapFraction(*p.Birth, *p.Death, eraStart, eraEnd))
	}

	// One bound open: clamp the open side to the era edge and discount.
	if p.Birth != nil {
		if p.Birth.After(eraEnd) {
			return validScore(0.0)
		}
		if p.Birth.Equal(eraEnd) {
			return validScore(penalty)
		}
		return validScore(penalty * overlapFraction(*p.Birth, eraEnd, eraStart, eraEnd))
	}

	if p.Death.Before(eraStart) {
		return validScore(0.0)
	}
	if p.Death.Equal(eraStart) {
		return validScore(penalty)
	}
	return validScore(penalty * overlapFraction(eraStart, *p.Death, eraStart, eraEnd))
}

// overlapFraction computes intersection([a1,a2], [b1,b2]) / min(|a|, |b|),
// clamped to [0,1]. Requires a1 < a2 and b1 < b2.
func overlapFraction(a1, a2, b1, b2 time.Time) float64 {
	lo := a1
	if b1.After(lo) {
		lo = b1
	}
	hi := a2
	if b2.Before(hi) {
		hi = b2
	}
	if !lo.Before(hi) {
		return 0.0
	}

	intersection := hi.Sub(lo).Seconds()
	spanA := a2.Sub(a1).Seconds()
	spanB := b2.Sub(b1).Seconds()
	denom := spanA
	if spanB < denom {
		denom = spanB
	}
	if denom <= 0 {
		return 0.0
	}

	frac := intersection / denom
	if frac > 1 {
		return 1.0
	}
	if frac < 0 {
		return 0.0
	}
	return frac
}
