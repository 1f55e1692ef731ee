package services

import (
	"math/rand"
	"testing"

	"adaptivequiz/internal/config"

	"github.com/stretchr/testify/assert"
)

func TestCurationSequence_LengthAndStart(t *testing.T) {
	rng := rand.New(rand.NewSource(11))

	sequence := CurationSequence(20, 1, rng)
	assert.Len(t, sequence, 20)
	assert.Equal(t, 1, sequence[0])
}

func TestCurationSequence_StaysInBounds(t *testing.T) {
	rng := rand.New(rand.NewSource(5))

	for start := config.MinDifficulty; start <= config.MaxDifficulty; start++ {
		sequence := CurationSequence(50, start, rng)
		for i, d := range sequence {
			assert.GreaterOrEqual(t, d, config.MinDifficulty, "slot %d", i)
			assert.LessOrEqual(t, d, config.MaxDifficulty, "slot %d", i)
		}
	}
}

func TestCurationSequence_StepsAtMostOne(t *testing.T) {
	rng := rand.New(rand.NewSource(9))

	sequence := CurationSequence(100, 3, rng)
	for i := 1; i < len(sequence); i++ {
		step := sequence[i] - sequence[i-1]
		assert.LessOrEqual(t, step, 1, "slot %d", i)
		assert.GreaterOrEqual(t, step, -1, "slot %d", i)
	}
}

func TestCurationSequence_ClampsOutOfRangeStart(t *testing.T) {
	rng := rand.New(rand.NewSource(2))

	assert.Equal(t, config.MinDifficulty, CurationSequence(5, 0, rng)[0])
	assert.Equal(t, config.MaxDifficulty, CurationSequence(5, 9, rng)[0])
}

func TestCurationSequence_MostlyRises(t *testing.T) {
	rng := rand.New(rand.NewSource(17))

	// With a 50% up / 30% hold / 20% down walk from the bottom, long
	// sequences should spend most of their time above the start.
	sequence := CurationSequence(1000, 1, rng)
	above := 0
	for _, d := range sequence {
		if d > 1 {
			above++
		}
	}
	assert.Greater(t, above, 500)
}
