package extractor

import (
	"context"
	"image"
)

// Point is one facial landmark position in pixel coordinates.
type Point struct {
	X float64
	Y float64
}

// Analysis is everything the engine extracts from a single frame. The frame
// itself stays opaque to the rest of the system: matching consumes the
// embedding, the liveness detectors consume landmarks and the face crop.
type Analysis struct {
	// Embedding is the fixed-length face descriptor, L2-normalized.
	Embedding []float64
	// Landmarks follows the 68-point dlib layout. May be shorter when the
	// backend provides fewer points; consumers must bounds-check.
	Landmarks []Point
	// Crop is the grayscale face region, resized to CropSize x CropSize.
	Crop *image.Gray
	// Confidence is the face-detection confidence in [0,1].
	Confidence float64
}

// CropSize is the side of the normalized grayscale face crop used by the
// texture detector.
const CropSize = 128

// Extractor turns a raw frame into an Analysis. Backends are black boxes:
// the engine never inspects pixels outside this interface.
//
// Analyze returns domain.ErrNoFaceDetected when the frame contains no
// usable face and domain.ErrInvalidImage when the bytes cannot be decoded.
type Extractor interface {
	Analyze(ctx context.Context, frame []byte) (*Analysis, error)
	// Dim reports the embedding dimensionality this backend produces.
	Dim() int
}
