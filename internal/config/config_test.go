package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	contextutils "adaptivequiz/internal/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEngineConfig_Defaults(t *testing.T) {
	e := &EngineConfig{}

	assert.Equal(t, DefaultQuizQuestionCount, e.QuestionCountOrDefault())
	assert.Equal(t, DefaultMinimumPoolSize, e.MinimumPoolSizeOrDefault())
	assert.Equal(t, DefaultFreshnessHorizon, e.FreshnessHorizonOrDefault())
	assert.Equal(t, DefaultTargetCorrectAnswers, e.TargetCorrectAnswersOrDefault())
	assert.Equal(t, DefaultProgressionStrategy, e.ProgressionStrategyOrDefault())
	assert.Equal(t, DefaultStartingDifficulty, e.StartingDifficultyOrDefault())
}

func TestEngineConfig_ConfiguredValuesWin(t *testing.T) {
	e := &EngineConfig{
		QuestionCount:        10,
		MinimumPoolSize:      15,
		FreshnessHorizon:     30 * 24 * time.Hour,
		TargetCorrectAnswers: 7,
		ProgressionStrategy:  "gradual",
		StartingDifficulty:   3,
	}

	assert.Equal(t, 10, e.QuestionCountOrDefault())
	assert.Equal(t, 15, e.MinimumPoolSizeOrDefault())
	assert.Equal(t, 30*24*time.Hour, e.FreshnessHorizonOrDefault())
	assert.Equal(t, 7, e.TargetCorrectAnswersOrDefault())
	assert.Equal(t, "gradual", e.ProgressionStrategyOrDefault())
	assert.Equal(t, 3, e.StartingDifficultyOrDefault())
}

func TestEngineConfig_StartingDifficultyValidated(t *testing.T) {
	assert.Equal(t, DefaultStartingDifficulty, (&EngineConfig{StartingDifficulty: 0}).StartingDifficultyOrDefault())
	assert.Equal(t, DefaultStartingDifficulty, (&EngineConfig{StartingDifficulty: 6}).StartingDifficultyOrDefault())
	assert.Equal(t, 5, (&EngineConfig{StartingDifficulty: 5}).StartingDifficultyOrDefault())
}

func writeConfigFile(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))
	return path
}

func TestNewConfig_LoadsYAMLFile(t *testing.T) {
	path := writeConfigFile(t, `
server:
  port: "9090"
  log_level: "debug"
engine:
  question_count: 12
  freshness_horizon: 720h
  progression_strategy: "ml_based"
`)
	t.Setenv("QUIZ_CONFIG_FILE", path)

	cfg, err := NewConfig()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Server.LogLevel)
	assert.Equal(t, 12, cfg.Engine.QuestionCount)
	assert.Equal(t, 720*time.Hour, cfg.Engine.FreshnessHorizon)
	assert.Equal(t, "ml_based", cfg.Engine.ProgressionStrategy)
}

func TestNewConfig_EnvironmentOverrides(t *testing.T) {
	path := writeConfigFile(t, `
server:
  port: "8080"
engine:
  question_count: 20
  starting_difficulty: 1
`)
	t.Setenv("QUIZ_CONFIG_FILE", path)
	t.Setenv("SERVER_PORT", "3000")
	t.Setenv("ENGINE_QUESTION_COUNT", "15")
	t.Setenv("ENGINE_STARTING_DIFFICULTY", "2")
	t.Setenv("ENGINE_FRESHNESS_HORIZON", "48h")
	t.Setenv("DATABASE_URL", "postgres://env-wins")

	cfg, err := NewConfig()
	require.NoError(t, err)

	assert.Equal(t, "3000", cfg.Server.Port)
	assert.Equal(t, 15, cfg.Engine.QuestionCount)
	assert.Equal(t, 2, cfg.Engine.StartingDifficulty)
	assert.Equal(t, 48*time.Hour, cfg.Engine.FreshnessHorizon)
	assert.Equal(t, "postgres://env-wins", cfg.Database.URL)
}

func TestNewConfig_RejectsUnknownProgressionStrategy(t *testing.T) {
	path := writeConfigFile(t, `
engine:
  progression_strategy: "bogus"
`)
	t.Setenv("QUIZ_CONFIG_FILE", path)

	_, err := NewConfig()
	require.Error(t, err)
	assert.Equal(t, contextutils.ErrorCodeValidationFailed, contextutils.GetErrorCode(err))
	assert.Contains(t, err.Error(), "bogus")
}

func TestNewConfig_RejectsUnknownStrategyFromEnv(t *testing.T) {
	path := writeConfigFile(t, `
engine:
  progression_strategy: "gradual"
`)
	t.Setenv("QUIZ_CONFIG_FILE", path)
	t.Setenv("ENGINE_PROGRESSION_STRATEGY", "adaptive9000")

	_, err := NewConfig()
	require.Error(t, err)
	assert.Equal(t, contextutils.ErrorCodeValidationFailed, contextutils.GetErrorCode(err))
}

func TestNewConfig_MissingFileFails(t *testing.T) {
	t.Setenv("QUIZ_CONFIG_FILE", filepath.Join(t.TempDir(), "missing.yaml"))

	_, err := NewConfig()
	assert.Error(t, err)
}
