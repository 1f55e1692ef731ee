package models

import "time"

// TopicSkill tracks a user's cumulative mastery points and discrete level
// for one topic. Points never drop below zero.
type TopicSkill struct {
	ID        int       `json:"id" yaml:"id"`
	UserID    int       `json:"user_id" yaml:"user_id"`
	Topic     string    `json:"topic" yaml:"topic"`
	Points    float64   `json:"points" yaml:"points"`
	Level     int       `json:"level" yaml:"level"`
	UpdatedAt time.Time `json:"updated_at" yaml:"updated_at"`
}

// SkillAnswer is the slice of an attempt answer the aggregator consumes
type SkillAnswer struct {
	Topic      string `json:"topic"`
	Difficulty int    `json:"difficulty"`
	IsCorrect  bool   `json:"is_correct"`
}
