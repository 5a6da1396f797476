package agentcore

// QualityBucket discretizes execution quality for parameter adjustment.
type QualityBucket string

const (
	QualityExcellent QualityBucket = "excellent"
	QualityGood      QualityBucket = "good"
	QualityFair      QualityBucket = "fair"
	QualityPoor      QualityBucket = "poor"
)

// PerformanceImpact is the measured effect of one Result on the running
// portfolio statistics.
type PerformanceImpact struct {
	PnLDelta      float64
	WinRateDelta  float64
	RiskDelta     float64
	Quality       QualityBucket
}

// Adjustment names a learning-parameter nudge. Field names match the
// learning-parameter bounds: priority_fee_percentile, max_slippage_bps,
// position_size_multiplier.
type Adjustment struct {
	Name  string
	Delta float64
}

// LearningFeedback is emitted by the observer for every Result and consumed
// by the planner, which applies its adjustments to the shared LearningStore.
type LearningFeedback struct {
	StrategyTag StrategyTag
	Result      ExecutionResult
	Impact      PerformanceImpact
	Adjustments []Adjustment
}

const (
	AdjustmentPriorityFeePercentile = "priority_fee_percentile"
	AdjustmentMaxSlippageBps        = "max_slippage_bps"
	AdjustmentPositionSizeMultiplier = "position_size_multiplier"
)

// QualityBucketFor computes the execution-quality bucket for a result's
// elapsed time and (optional) observed slippage, per the time-score/
// slip-score table.
func QualityBucketFor(executionTimeMs int64, slippageBps *uint16) QualityBucket {
	var timeScore float64
	switch {
	case executionTimeMs < 2000:
		timeScore = 1.0
	case executionTimeMs < 5000:
		timeScore = 0.7
	default:
		timeScore = 0.3
	}

	var slipScore float64
	if slippageBps == nil {
		slipScore = 0.5
	} else {
		switch {
		case *slippageBps < 50:
			slipScore = 1.0
		case *slippageBps < 100:
			slipScore = 0.7
		default:
			slipScore = 0.3
		}
	}

	combined := timeScore
	if slipScore > combined {
		combined = slipScore
	}
	switch {
	case combined >= 0.8:
		return QualityExcellent
	case combined >= 0.6:
		return QualityGood
	case combined >= 0.4:
		return QualityFair
	default:
		return QualityPoor
	}
}

// AdjustmentsFor returns the named parameter adjustments prescribed for a
// quality bucket.
func AdjustmentsFor(bucket QualityBucket) []Adjustment {
	switch bucket {
	case QualityPoor:
		return []Adjustment{
			{Name: AdjustmentPriorityFeePercentile, Delta: 5.0},
			{Name: AdjustmentMaxSlippageBps, Delta: 10.0},
			{Name: AdjustmentPositionSizeMultiplier, Delta: -0.10},
		}
	case QualityFair:
		return []Adjustment{
			{Name: AdjustmentPriorityFeePercentile, Delta: 2.0},
			{Name: AdjustmentMaxSlippageBps, Delta: 5.0},
		}
	case QualityGood:
		return []Adjustment{
			{Name: AdjustmentPositionSizeMultiplier, Delta: 0.05},
		}
	case QualityExcellent:
		return []Adjustment{
			{Name: AdjustmentPriorityFeePercentile, Delta: -1.0},
			{Name: AdjustmentPositionSizeMultiplier, Delta: 0.10},
		}
	default:
		return nil
	}
}
