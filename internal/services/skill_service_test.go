package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSkillPointsDelta_Correct(t *testing.T) {
	assert.Equal(t, 1.0, SkillPointsDelta(1, true))
	assert.Equal(t, 3.0, SkillPointsDelta(3, true))
	assert.Equal(t, 5.0, SkillPointsDelta(5, true))
}

func TestSkillPointsDelta_Wrong(t *testing.T) {
	// Missing an easy question costs more than missing a hard one
	assert.Equal(t, -2.5, SkillPointsDelta(1, false))
	assert.Equal(t, -2.0, SkillPointsDelta(2, false))
	assert.Equal(t, -1.5, SkillPointsDelta(3, false))
	assert.Equal(t, -1.0, SkillPointsDelta(4, false))
	assert.Equal(t, -0.5, SkillPointsDelta(5, false))
}

func TestSkillLevelForPoints_Thresholds(t *testing.T) {
	assert.Equal(t, 0, SkillLevelForPoints(0))
	assert.Equal(t, 0, SkillLevelForPoints(24.9))
	assert.Equal(t, 1, SkillLevelForPoints(25))
	assert.Equal(t, 1, SkillLevelForPoints(49))
	assert.Equal(t, 2, SkillLevelForPoints(50))
	assert.Equal(t, 2, SkillLevelForPoints(99.5))
	assert.Equal(t, 3, SkillLevelForPoints(100))
	assert.Equal(t, 4, SkillLevelForPoints(200))
	assert.Equal(t, 4, SkillLevelForPoints(399))
	assert.Equal(t, 5, SkillLevelForPoints(400))
	assert.Equal(t, 5, SkillLevelForPoints(10000))
}
