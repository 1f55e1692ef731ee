package services

import (
	"math"

	"adaptivequiz/internal/models"
)

// ProgressionStrategy decides the difficulty a student faces next, based on
// the answer just graded and the attempt's answer log so far. The history
// slice includes the answer that was just submitted, most recent last.
// Implementations must return a value inside the valid difficulty range.
type ProgressionStrategy interface {
	Name() string
	NextDifficulty(current int, isCorrect bool, history []models.AttemptAnswer) int
}

// StrategyForName resolves a strategy by its configured name. Unknown names
// fall back to the immediate strategy so a quiz with a stale config value
// keeps working.
func StrategyForName(name string) ProgressionStrategy {
	switch name {
	case models.StrategyGradual:
		return &gradualStrategy{}
	case models.StrategyMLBased:
		return &mlBasedStrategy{}
	default:
		return &immediateStrategy{}
	}
}

// immediateStrategy moves one step per answer: up on correct, down on wrong.
type immediateStrategy struct{}

func (s *immediateStrategy) Name() string { return models.StrategyImmediate }

func (s *immediateStrategy) NextDifficulty(current int, isCorrect bool, _ []models.AttemptAnswer) int {
	if isCorrect {
		return clampDifficulty(current + 1)
	}
	return clampDifficulty(current - 1)
}

// gradualStrategy looks at the last three answers: two or more correct moves
// up, one or fewer moves down, but only once three answers exist. Anything
// in between holds.
type gradualStrategy struct{}

func (s *gradualStrategy) Name() string { return models.StrategyGradual }

func (s *gradualStrategy) NextDifficulty(current int, _ bool, history []models.AttemptAnswer) int {
	window := history
	if len(window) > 3 {
		window = window[len(window)-3:]
	}

	correct := 0
	for _, a := range window {
		if a.IsCorrect {
			correct++
		}
	}

	if correct >= 2 {
		return clampDifficulty(current + 1)
	}
	if len(history) >= 3 && correct <= 1 {
		return clampDifficulty(current - 1)
	}
	return current
}

// mlBasedStrategy maps the attempt's overall accuracy onto the difficulty
// scale and walks one step toward that target per answer, so a hot or cold
// streak never yanks the student across several levels at once. A
// placeholder for a learned model, but the contract is the same as the
// other strategies so swapping one in later is a config change.
type mlBasedStrategy struct{}

func (s *mlBasedStrategy) Name() string { return models.StrategyMLBased }

func (s *mlBasedStrategy) NextDifficulty(current int, _ bool, history []models.AttemptAnswer) int {
	if len(history) == 0 {
		return clampDifficulty(current)
	}

	correct := 0
	for _, a := range history {
		if a.IsCorrect {
			correct++
		}
	}

	accuracy := float64(correct) / float64(len(history))
	target := clampDifficulty(int(math.Ceil(accuracy * 5)))

	switch {
	case target > current:
		return clampDifficulty(current + 1)
	case target < current:
		return clampDifficulty(current - 1)
	default:
		return current
	}
}
