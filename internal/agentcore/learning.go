package agentcore

import "sync/atomic"

// LearningBounds declares the valid range for each adjustable parameter.
type LearningBounds struct {
	PriorityFeePercentileMin  float64
	PriorityFeePercentileMax  float64
	MaxSlippageBpsMin         float64
	MaxSlippageBpsMax         float64
	PositionSizeMultiplierMin float64
	PositionSizeMultiplierMax float64
}

// LearningParameters is the current, immutable snapshot of adaptive
// strategy tuning. A LearningStore holds it behind an atomic.Pointer and
// replaces it wholesale on each feedback application (read -> compute new
// -> compare-and-swap), never mutating in place.
type LearningParameters struct {
	PriorityFeePercentile  float64
	MaxSlippageBps         float64
	PositionSizeMultiplier float64
}

func clamp(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

// Apply returns a new LearningParameters with the given adjustments applied
// and clamped to bounds. The receiver is left unmodified.
func (p LearningParameters) Apply(adjustments []Adjustment, bounds LearningBounds) LearningParameters {
	next := p
	for _, adj := range adjustments {
		switch adj.Name {
		case AdjustmentPriorityFeePercentile:
			next.PriorityFeePercentile = clamp(next.PriorityFeePercentile+adj.Delta, bounds.PriorityFeePercentileMin, bounds.PriorityFeePercentileMax)
		case AdjustmentMaxSlippageBps:
			next.MaxSlippageBps = clamp(next.MaxSlippageBps+adj.Delta, bounds.MaxSlippageBpsMin, bounds.MaxSlippageBpsMax)
		case AdjustmentPositionSizeMultiplier:
			next.PositionSizeMultiplier = clamp(next.PositionSizeMultiplier+adj.Delta, bounds.PositionSizeMultiplierMin, bounds.PositionSizeMultiplierMax)
		}
	}
	return next
}

// LearningStore is an atomic-pointer-guarded holder of the current
// LearningParameters, read by the planner and CAS-updated by the planner on
// each feedback application.
type LearningStore struct {
	ptr atomic.Pointer[LearningParameters]
}

// NewLearningStore seeds the store with an initial snapshot.
func NewLearningStore(initial LearningParameters) *LearningStore {
	s := &LearningStore{}
	s.ptr.Store(&initial)
	return s
}

// Load returns the current snapshot.
func (s *LearningStore) Load() LearningParameters {
	return *s.ptr.Load()
}

// ApplyFeedback computes the next snapshot from adjustments and CASes it in,
// retrying on concurrent writers until it succeeds.
func (s *LearningStore) ApplyFeedback(adjustments []Adjustment, bounds LearningBounds) LearningParameters {
	for {
		current := s.ptr.Load()
		next := current.Apply(adjustments, bounds)
		if s.ptr.CompareAndSwap(current, &next) {
			return next
		}
	}
}
