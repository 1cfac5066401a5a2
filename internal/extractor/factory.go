package extractor

import (
	"fmt"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/tupi-labs/ponto/internal/config"
)

// New builds the extractor named by cfg.ExtractorType.
func New(cfg *config.Config) (Extractor, error) {
	switch cfg.ExtractorType {
	case "onnx":
		if !ort.IsInitialized() {
			if cfg.OnnxLibraryPath != "" {
				ort.SetSharedLibraryPath(cfg.OnnxLibraryPath)
			}
			if err := ort.InitializeEnvironment(); err != nil {
				return nil, fmt.Errorf("initialize onnx runtime: %w", err)
			}
		}
		return NewONNX(cfg.ModelsDir, cfg.DetectionScoreThreshold)
	case "mock":
		return NewMock(cfg.EmbeddingDim), nil
	default:
		return nil, fmt.Errorf("unknown extractor type: %s", cfg.ExtractorType)
	}
}
