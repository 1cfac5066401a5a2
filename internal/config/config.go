package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all runtime configuration, populated from environment
// variables. A .env file is loaded first when present.
type Config struct {
	Port        string `envconfig:"PORT" default:"3000"`
	Environment string `envconfig:"ENV" default:"development"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`

	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`
	APIKey      string `envconfig:"API_KEY"`

	// Extraction pipeline. DetectionScoreThreshold gates which detector
	// boxes count as faces at all; it is independent from the decision
	// confidence floor below.
	ExtractorType           string  `envconfig:"EXTRACTOR_TYPE" default:"mock"`
	ModelsDir               string  `envconfig:"MODELS_DIR" default:"./models"`
	OnnxLibraryPath         string  `envconfig:"ONNX_LIBRARY_PATH"`
	EmbeddingDim            int     `envconfig:"EMBEDDING_DIM" default:"128"`
	DetectionScoreThreshold float64 `envconfig:"DETECTION_SCORE_THRESHOLD" default:"0.5"`

	// Matching thresholds. Distance is exclusive: a candidate at exactly
	// the threshold is rejected.
	MatchDistanceThreshold float64 `envconfig:"MATCH_DISTANCE_THRESHOLD" default:"0.45"`
	MinFaceConfidence      float64 `envconfig:"MIN_FACE_CONFIDENCE" default:"0.85"`
	MatcherIndex           string  `envconfig:"MATCHER_INDEX" default:"linear"`
	MinConsecutiveMatches  int     `envconfig:"MIN_CONSECUTIVE_MATCHES" default:"3"`

	// Liveness fusion.
	LivenessFramesRequired int     `envconfig:"LIVENESS_FRAMES_REQUIRED" default:"3"`
	LivenessQuorum         int     `envconfig:"LIVENESS_QUORUM" default:"2"`
	BlinkEARThreshold      float64 `envconfig:"BLINK_EAR_THRESHOLD" default:"0.25"`
	TextureThreshold       float64 `envconfig:"TEXTURE_THRESHOLD" default:"0.6"`
	MotionMinDisplacement  float64 `envconfig:"MOTION_MIN_DISPLACEMENT" default:"0.3"`
	MotionMaxDisplacement  float64 `envconfig:"MOTION_MAX_DISPLACEMENT" default:"20.0"`

	// Attendance state machine.
	MinHoursForPunchOut float64 `envconfig:"MIN_HOURS_FOR_PUNCHOUT" default:"6"`

	// Evidence storage (disabled when endpoint is empty).
	MinioEndpoint  string `envconfig:"MINIO_ENDPOINT"`
	MinioAccessKey string `envconfig:"MINIO_ACCESS_KEY"`
	MinioSecretKey string `envconfig:"MINIO_SECRET_KEY"`
	MinioBucket    string `envconfig:"MINIO_BUCKET" default:"attendance-evidence"`
	MinioUseSSL    bool   `envconfig:"MINIO_USE_SSL" default:"false"`

	// Event publishing (disabled when URL is empty).
	NatsURL string `envconfig:"NATS_URL"`
}

// Load reads configuration from the environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	// envconfig's required tag accepts a set-but-empty variable.
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.MatchDistanceThreshold <= 0 {
		return fmt.Errorf("MATCH_DISTANCE_THRESHOLD must be positive")
	}
	if c.DetectionScoreThreshold <= 0 || c.DetectionScoreThreshold >= 1 {
		return fmt.Errorf("DETECTION_SCORE_THRESHOLD must be between 0 and 1")
	}
	if c.LivenessQuorum < 1 || c.LivenessQuorum > 3 {
		return fmt.Errorf("LIVENESS_QUORUM must be between 1 and 3")
	}
	if c.LivenessFramesRequired < 1 {
		return fmt.Errorf("LIVENESS_FRAMES_REQUIRED must be at least 1")
	}
	if c.MinConsecutiveMatches < 1 {
		return fmt.Errorf("MIN_CONSECUTIVE_MATCHES must be at least 1")
	}
	if c.MotionMinDisplacement >= c.MotionMaxDisplacement {
		return fmt.Errorf("motion displacement band is empty")
	}
	switch c.MatcherIndex {
	case "linear", "hnsw":
	default:
		return fmt.Errorf("MATCHER_INDEX must be linear or hnsw")
	}
	return nil
}

// IsDevelopment reports whether the service runs in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// MinPunchOutInterval returns the minimum in-to-out gap as a duration.
func (c *Config) MinPunchOutInterval() time.Duration {
	return time.Duration(c.MinHoursForPunchOut * float64(time.Hour))
}
