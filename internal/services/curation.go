package services

import (
	"math/rand"

	"adaptivequiz/internal/config"
)

// CurationSequence generates the per-slot target difficulties for a quiz.
// The walk starts at the configured starting difficulty and at each step
// moves up, holds, or moves down according to the curation probabilities,
// clamped to the valid difficulty range. This shapes the quiz as a whole
// and is independent of any student's in-attempt difficulty.
func CurationSequence(count, startingDifficulty int, rng *rand.Rand) []int {
	sequence := make([]int, count)
	current := clampDifficulty(startingDifficulty)

	for i := 0; i < count; i++ {
		sequence[i] = current

		roll := rng.Float64()
		switch {
		case roll < config.CurationStepUpProbability:
			current = clampDifficulty(current + 1)
		case roll < config.CurationStepUpProbability+config.CurationStepHoldProbability:
			// hold
		default:
			current = clampDifficulty(current - 1)
		}
	}
	return sequence
}

func clampDifficulty(d int) int {
	if d < config.MinDifficulty {
		return config.MinDifficulty
	}
	if d > config.MaxDifficulty {
		return config.MaxDifficulty
	}
	return d
}
