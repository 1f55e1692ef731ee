package services

import (
	"math/rand"
	"time"

	"adaptivequiz/internal/config"
	"adaptivequiz/internal/models"
)

// QuestionWeight computes the selection weight for a bank question.
// Every question starts from the base weight, earns a freshness bonus
// proportional to how long ago it was last used (capped, with never-used
// questions treated as maximally fresh), and pays a flat penalty per prior
// use. The result is floored so every candidate stays selectable.
func QuestionWeight(q *models.Question, now time.Time, maxTimeGap time.Duration) float64 {
	weight := config.WeightBase

	if !q.LastUsedAt.Valid {
		weight += config.WeightMaxFreshnessBonus
	} else {
		gap := now.Sub(q.LastUsedAt.Time)
		bonus := config.WeightMaxFreshnessBonus * float64(gap) / float64(maxTimeGap)
		if bonus > config.WeightMaxFreshnessBonus {
			bonus = config.WeightMaxFreshnessBonus
		}
		if bonus < 0 {
			bonus = 0
		}
		weight += bonus
	}

	weight -= float64(q.UsageCount) * config.WeightUsagePenalty

	if weight < config.WeightFloor {
		weight = config.WeightFloor
	}
	return weight
}

// PoolWeights computes the weight of every question in a pool
func PoolWeights(pool []*models.Question, now time.Time, maxTimeGap time.Duration) []float64 {
	weights := make([]float64, len(pool))
	for i, q := range pool {
		weights[i] = QuestionWeight(q, now, maxTimeGap)
	}
	return weights
}

// WeightedSelect picks an index from the pool by cumulative-weight roulette:
// a uniform draw in [0, total) walks the weights until the remainder is
// spent. Floating-point accumulation can leave a sliver at the end of the
// walk, so the last candidate is the fallback. O(n) per draw.
func WeightedSelect(weights []float64, rng *rand.Rand) int {
	if len(weights) == 0 {
		return -1
	}

	total := 0.0
	for _, w := range weights {
		total += w
	}

	r := rng.Float64() * total
	for i, w := range weights {
		r -= w
		if r <= 0 {
			return i
		}
	}
	return len(weights) - 1
}
