package services

import (
	"database/sql"
	"math/rand"
	"testing"
	"time"

	"adaptivequiz/internal/config"
	"adaptivequiz/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestQuestionWeight_NeverUsedGetsFullBonus(t *testing.T) {
	now := time.Now()
	q := &models.Question{Difficulty: 3}

	weight := QuestionWeight(q, now, config.DefaultFreshnessHorizon)
	assert.Equal(t, config.WeightBase+config.WeightMaxFreshnessBonus, weight)
}

func TestQuestionWeight_BonusProportionalToGap(t *testing.T) {
	now := time.Now()
	horizon := 100 * 24 * time.Hour

	halfway := &models.Question{
		LastUsedAt: sql.NullTime{Time: now.Add(-50 * 24 * time.Hour), Valid: true},
	}
	weight := QuestionWeight(halfway, now, horizon)
	assert.InDelta(t, config.WeightBase+config.WeightMaxFreshnessBonus/2, weight, 0.01)

	justUsed := &models.Question{
		LastUsedAt: sql.NullTime{Time: now, Valid: true},
	}
	assert.InDelta(t, config.WeightBase, QuestionWeight(justUsed, now, horizon), 0.01)
}

func TestQuestionWeight_BonusCappedAtMaximum(t *testing.T) {
	now := time.Now()
	horizon := 30 * 24 * time.Hour

	ancient := &models.Question{
		LastUsedAt: sql.NullTime{Time: now.Add(-365 * 24 * time.Hour), Valid: true},
	}
	weight := QuestionWeight(ancient, now, horizon)
	assert.Equal(t, config.WeightBase+config.WeightMaxFreshnessBonus, weight)
}

func TestQuestionWeight_UsagePenalty(t *testing.T) {
	now := time.Now()

	q := &models.Question{
		UsageCount: 4,
		LastUsedAt: sql.NullTime{Time: now, Valid: true},
	}
	weight := QuestionWeight(q, now, config.DefaultFreshnessHorizon)
	assert.InDelta(t, config.WeightBase-4*config.WeightUsagePenalty, weight, 0.01)
}

func TestQuestionWeight_FlooredForHeavilyUsed(t *testing.T) {
	now := time.Now()

	// Usage penalty alone would push the weight far below zero
	q := &models.Question{
		UsageCount: 500,
		LastUsedAt: sql.NullTime{Time: now, Valid: true},
	}
	weight := QuestionWeight(q, now, config.DefaultFreshnessHorizon)
	assert.Equal(t, config.WeightFloor, weight)
}

func TestWeightedSelect_EmptyPool(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	assert.Equal(t, -1, WeightedSelect(nil, rng))
}

func TestWeightedSelect_SingleCandidate(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 10; i++ {
		assert.Equal(t, 0, WeightedSelect([]float64{42}, rng))
	}
}

func TestWeightedSelect_RespectsWeights(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	weights := []float64{90, 10}

	counts := make(map[int]int)
	for i := 0; i < 10000; i++ {
		counts[WeightedSelect(weights, rng)]++
	}

	// 90/10 split with generous slack for randomness
	assert.Greater(t, counts[0], 8500)
	assert.Less(t, counts[1], 1500)
	assert.Greater(t, counts[1], 500)
}

func TestWeightedSelect_EveryCandidateReachable(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	weights := []float64{1, 1, 1, 1}

	seen := make(map[int]bool)
	for i := 0; i < 1000; i++ {
		seen[WeightedSelect(weights, rng)] = true
	}
	assert.Len(t, seen, 4)
}

func TestPoolWeights(t *testing.T) {
	now := time.Now()
	pool := []*models.Question{
		{},
		{UsageCount: 2, LastUsedAt: sql.NullTime{Time: now, Valid: true}},
	}

	weights := PoolWeights(pool, now, config.DefaultFreshnessHorizon)
	assert.Len(t, weights, 2)
	assert.Greater(t, weights[0], weights[1])
}
