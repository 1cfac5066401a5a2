package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		t.Setenv("DATABASE_URL", "postgres://localhost/ponto")

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "3000", cfg.Port)
		assert.Equal(t, "development", cfg.Environment)
		assert.Equal(t, "mock", cfg.ExtractorType)
		assert.Equal(t, 128, cfg.EmbeddingDim)
		assert.Equal(t, 0.45, cfg.MatchDistanceThreshold)
		assert.Equal(t, 0.85, cfg.MinFaceConfidence)
		assert.Equal(t, 0.5, cfg.DetectionScoreThreshold)
		assert.Equal(t, 3, cfg.LivenessFramesRequired)
		assert.Equal(t, 2, cfg.LivenessQuorum)
		assert.Equal(t, 3, cfg.MinConsecutiveMatches)
		assert.Equal(t, 0.25, cfg.BlinkEARThreshold)
		assert.Equal(t, 6.0, cfg.MinHoursForPunchOut)
		assert.True(t, cfg.IsDevelopment())
	})

	t.Run("missing database url", func(t *testing.T) {
		t.Setenv("DATABASE_URL", "")

		_, err := Load()
		assert.Error(t, err)
	})

	t.Run("rejects empty motion band", func(t *testing.T) {
		t.Setenv("DATABASE_URL", "postgres://localhost/ponto")
		t.Setenv("MOTION_MIN_DISPLACEMENT", "5.0")
		t.Setenv("MOTION_MAX_DISPLACEMENT", "1.0")

		_, err := Load()
		assert.Error(t, err)
	})

	t.Run("rejects out-of-range detection threshold", func(t *testing.T) {
		t.Setenv("DATABASE_URL", "postgres://localhost/ponto")
		t.Setenv("DETECTION_SCORE_THRESHOLD", "1.5")

		_, err := Load()
		assert.Error(t, err)
	})

	t.Run("rejects unknown matcher index", func(t *testing.T) {
		t.Setenv("DATABASE_URL", "postgres://localhost/ponto")
		t.Setenv("MATCHER_INDEX", "kdtree")

		_, err := Load()
		assert.Error(t, err)
	})

	t.Run("punch out interval", func(t *testing.T) {
		t.Setenv("DATABASE_URL", "postgres://localhost/ponto")
		t.Setenv("MIN_HOURS_FOR_PUNCHOUT", "7.5")

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, "7h30m0s", cfg.MinPunchOutInterval().String())
	})
}
