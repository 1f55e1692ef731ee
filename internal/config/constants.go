package config

import "time"

// Timeout constants
const (
	// HTTP timeouts
	DefaultHTTPTimeout = 60 * time.Second
	ShutdownTimeout    = 30 * time.Second

	// Database timeouts
	DatabaseConnMaxLifetime = 5 * time.Minute
)

// Difficulty bounds shared by the assembler and the attempt state machine
const (
	MinDifficulty = 1
	MaxDifficulty = 5
)

// Quiz assembly defaults
const (
	// DefaultQuizQuestionCount is the number of embedded question snapshots per quiz
	DefaultQuizQuestionCount = 20
	// DefaultMinimumPoolSize is the minimum eligible pool required to generate a quiz
	DefaultMinimumPoolSize = 40
	// DefaultFreshnessHorizon is the time gap at which a question earns the full freshness bonus
	DefaultFreshnessHorizon = 365 * 24 * time.Hour
)

// Selection weight parameters
const (
	// WeightBase is the weight every eligible question starts from
	WeightBase = 100.0
	// WeightMaxFreshnessBonus is the cap on the freshness bonus
	WeightMaxFreshnessBonus = 50.0
	// WeightUsagePenalty is subtracted per prior use
	WeightUsagePenalty = 5.0
	// WeightFloor keeps every candidate selectable
	WeightFloor = 1.0
)

// Curation sequence step probabilities. The remaining mass (0.2) steps down.
const (
	CurationStepUpProbability   = 0.5
	CurationStepHoldProbability = 0.3
)

// Adaptive config defaults stamped into generated quizzes
const (
	DefaultTargetCorrectAnswers = 10
	DefaultProgressionStrategy  = "immediate"
	DefaultStartingDifficulty   = 1
)

// Security configuration constants
const (
	// Content Security Policy
	DefaultCSP = "default-src 'self'; style-src 'self' 'unsafe-inline'; script-src 'self' 'unsafe-inline'; img-src 'self' data:;"
)
