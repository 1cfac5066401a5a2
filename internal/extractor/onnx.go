package extractor

import (
	"context"
	"fmt"
	"image"
	"math"
	"path/filepath"
	"sync"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/tupi-labs/ponto/internal/domain"
)

const (
	detectInputSize = 640
	embedInputSize  = 112
	lmkInputSize    = 112
	embeddingDim    = 512
	landmarkCount   = 68
)

// ONNX bundles the three models the pipeline needs: a RetinaFace-style
// detector, a 68-point landmark regressor (PFLD) and an ArcFace embedder.
// Model files are loaded from modelsDir: det_10g.onnx, pfld_68.onnx,
// w600k_r50.onnx.
type ONNX struct {
	// ORT sessions are not safe for concurrent Run calls on the same
	// bound tensors, so the whole pipeline is serialized.
	mu sync.Mutex

	detector *detectSession
	landmark *regressSession
	embedder *regressSession

	detectThreshold float32
}

// NewONNX initializes the ONNX runtime sessions. The ONNX runtime
// environment must be initialized by the caller (ort.InitializeEnvironment)
// before the first session is created.
func NewONNX(modelsDir string, detectThreshold float64) (*ONNX, error) {
	detector, err := newDetectSession(filepath.Join(modelsDir, "det_10g.onnx"))
	if err != nil {
		return nil, fmt.Errorf("load detector: %w", err)
	}

	landmark, err := newRegressSession(
		filepath.Join(modelsDir, "pfld_68.onnx"),
		"input", "output",
		lmkInputSize, landmarkCount*2,
	)
	if err != nil {
		detector.destroy()
		return nil, fmt.Errorf("load landmark model: %w", err)
	}

	embedder, err := newRegressSession(
		filepath.Join(modelsDir, "w600k_r50.onnx"),
		"input.1", "683",
		embedInputSize, embeddingDim,
	)
	if err != nil {
		detector.destroy()
		landmark.destroy()
		return nil, fmt.Errorf("load embedder: %w", err)
	}

	return &ONNX{
		detector:        detector,
		landmark:        landmark,
		embedder:        embedder,
		detectThreshold: float32(detectThreshold),
	}, nil
}

func (o *ONNX) Dim() int {
	return embeddingDim
}

// Analyze runs detect -> crop -> landmarks + embedding on one frame.
// When several faces are present the largest one is used, matching the
// behavior expected at a single-person kiosk.
func (o *ONNX) Analyze(ctx context.Context, frame []byte) (*Analysis, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	img, err := decodeFrame(frame)
	if err != nil {
		return nil, err
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	face, err := o.detector.detect(img, o.detectThreshold)
	if err != nil {
		return nil, err
	}
	if face == nil {
		return nil, domain.ErrNoFaceDetected
	}

	rect := face.rect()
	crop, err := grayCrop(img, rect)
	if err != nil {
		return nil, domain.ErrNoFaceDetected.WithError(err)
	}

	faceCHW := toCHW(cropRGBA(img, rect), lmkInputSize, lmkInputSize)

	rawLmk, err := o.landmark.run(faceCHW)
	if err != nil {
		return nil, fmt.Errorf("landmark inference: %w", err)
	}
	landmarks := decodeLandmarks(rawLmk, rect)

	rawEmb, err := o.embedder.run(faceCHW)
	if err != nil {
		return nil, fmt.Errorf("embedding inference: %w", err)
	}
	embedding := make([]float64, len(rawEmb))
	for i, v := range rawEmb {
		embedding[i] = float64(v)
	}
	l2Normalize(embedding)

	return &Analysis{
		Embedding:  embedding,
		Landmarks:  landmarks,
		Crop:       crop,
		Confidence: float64(face.score),
	}, nil
}

func (o *ONNX) Close() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.detector.destroy()
	o.landmark.destroy()
	o.embedder.destroy()
}

// decodeLandmarks maps PFLD output (normalized x,y pairs over the crop)
// back to pixel coordinates in the original frame.
func decodeLandmarks(raw []float32, rect image.Rectangle) []Point {
	n := len(raw) / 2
	pts := make([]Point, 0, n)
	w := float64(rect.Dx())
	h := float64(rect.Dy())
	for i := 0; i < n; i++ {
		pts = append(pts, Point{
			X: float64(rect.Min.X) + float64(raw[2*i])*w,
			Y: float64(rect.Min.Y) + float64(raw[2*i+1])*h,
		})
	}
	return pts
}

func cropRGBA(img image.Image, rect image.Rectangle) image.Image {
	rect = rect.Intersect(img.Bounds())
	type subImager interface {
		SubImage(image.Rectangle) image.Image
	}
	if s, ok := img.(subImager); ok {
		return s.SubImage(rect)
	}
	return img
}

func l2Normalize(v []float64) {
	var norm float64
	for _, x := range v {
		norm += x * x
	}
	if norm == 0 {
		return
	}
	norm = math.Sqrt(norm)
	for i := range v {
		v[i] /= norm
	}
}

// detection is one face candidate from the detector.
type detection struct {
	x1, y1, x2, y2 float32
	score          float32
}

func (d *detection) rect() image.Rectangle {
	return image.Rect(int(d.x1), int(d.y1), int(d.x2), int(d.y2))
}

func (d *detection) area() float32 {
	return (d.x2 - d.x1) * (d.y2 - d.y1)
}

// detectSession wraps the RetinaFace det_10g model. Output tensors are
// score/bbox pairs per stride (8, 16, 32) without a batch dimension.
type detectSession struct {
	session       *ort.AdvancedSession
	inputTensor   *ort.Tensor[float32]
	outputTensors []*ort.Tensor[float32]
}

var detectStrides = []int{8, 16, 32}

const anchorsPerCell = 2

func newDetectSession(modelPath string) (*detectSession, error) {
	inputShape := ort.NewShape(1, 3, detectInputSize, detectInputSize)
	inputTensor, err := ort.NewEmptyTensor[float32](inputShape)
	if err != nil {
		return nil, fmt.Errorf("create input tensor: %w", err)
	}

	type outputDef struct {
		name  string
		shape ort.Shape
	}
	outputs := []outputDef{
		{"448", ort.NewShape(12800, 1)}, // scores stride 8
		{"471", ort.NewShape(3200, 1)},  // scores stride 16
		{"494", ort.NewShape(800, 1)},   // scores stride 32
		{"451", ort.NewShape(12800, 4)}, // bboxes stride 8
		{"474", ort.NewShape(3200, 4)},  // bboxes stride 16
		{"497", ort.NewShape(800, 4)},   // bboxes stride 32
	}

	outputNames := make([]string, len(outputs))
	outputTensors := make([]*ort.Tensor[float32], len(outputs))
	outputValues := make([]ort.Value, len(outputs))
	for i, def := range outputs {
		outputNames[i] = def.name
		t, err := ort.NewEmptyTensor[float32](def.shape)
		if err != nil {
			for j := 0; j < i; j++ {
				outputTensors[j].Destroy()
			}
			inputTensor.Destroy()
			return nil, fmt.Errorf("create output tensor %s: %w", def.name, err)
		}
		outputTensors[i] = t
		outputValues[i] = t
	}

	session, err := ort.NewAdvancedSession(modelPath,
		[]string{"input.1"},
		outputNames,
		[]ort.Value{inputTensor},
		outputValues,
		nil,
	)
	if err != nil {
		inputTensor.Destroy()
		for _, t := range outputTensors {
			t.Destroy()
		}
		return nil, fmt.Errorf("create detector session: %w", err)
	}

	return &detectSession{
		session:       session,
		inputTensor:   inputTensor,
		outputTensors: outputTensors,
	}, nil
}

// detect returns the largest face above threshold, or nil when none.
func (s *detectSession) detect(img image.Image, threshold float32) (*detection, error) {
	copy(s.inputTensor.GetData(), toCHW(img, detectInputSize, detectInputSize))

	if err := s.session.Run(); err != nil {
		return nil, fmt.Errorf("run detection: %w", err)
	}

	bounds := img.Bounds()
	scaleX := float32(bounds.Dx()) / detectInputSize
	scaleY := float32(bounds.Dy()) / detectInputSize

	var best *detection
	for si, stride := range detectStrides {
		scores := s.outputTensors[si].GetData()
		boxes := s.outputTensors[si+3].GetData()
		cells := detectInputSize / stride

		for i := 0; i < len(scores); i++ {
			if scores[i] < threshold {
				continue
			}
			// Anchor center from flattened (row, col, anchor) layout;
			// bbox output is center-relative distances in stride units.
			cell := i / anchorsPerCell
			cx := float32(cell%cells) * float32(stride)
			cy := float32(cell/cells) * float32(stride)

			d := detection{
				x1:    (cx - boxes[i*4+0]*float32(stride)) * scaleX,
				y1:    (cy - boxes[i*4+1]*float32(stride)) * scaleY,
				x2:    (cx + boxes[i*4+2]*float32(stride)) * scaleX,
				y2:    (cy + boxes[i*4+3]*float32(stride)) * scaleY,
				score: scores[i],
			}
			if best == nil || d.area() > best.area() {
				c := d
				best = &c
			}
		}
	}

	return best, nil
}

func (s *detectSession) destroy() {
	if s == nil {
		return
	}
	if s.session != nil {
		s.session.Destroy()
	}
	if s.inputTensor != nil {
		s.inputTensor.Destroy()
	}
	for _, t := range s.outputTensors {
		t.Destroy()
	}
}

// regressSession wraps a single-input single-output model (landmarks,
// embeddings) with a square CHW input.
type regressSession struct {
	session      *ort.AdvancedSession
	inputTensor  *ort.Tensor[float32]
	outputTensor *ort.Tensor[float32]
	outDim       int
}

func newRegressSession(modelPath, inputName, outputName string, inputSize, outDim int) (*regressSession, error) {
	inputShape := ort.NewShape(1, 3, int64(inputSize), int64(inputSize))
	inputTensor, err := ort.NewEmptyTensor[float32](inputShape)
	if err != nil {
		return nil, fmt.Errorf("create input tensor: %w", err)
	}

	outputShape := ort.NewShape(1, int64(outDim))
	outputTensor, err := ort.NewEmptyTensor[float32](outputShape)
	if err != nil {
		inputTensor.Destroy()
		return nil, fmt.Errorf("create output tensor: %w", err)
	}

	session, err := ort.NewAdvancedSession(modelPath,
		[]string{inputName},
		[]string{outputName},
		[]ort.Value{inputTensor},
		[]ort.Value{outputTensor},
		nil,
	)
	if err != nil {
		inputTensor.Destroy()
		outputTensor.Destroy()
		return nil, fmt.Errorf("create session: %w", err)
	}

	return &regressSession{
		session:      session,
		inputTensor:  inputTensor,
		outputTensor: outputTensor,
		outDim:       outDim,
	}, nil
}

func (s *regressSession) run(input []float32) ([]float32, error) {
	copy(s.inputTensor.GetData(), input)
	if err := s.session.Run(); err != nil {
		return nil, err
	}
	out := make([]float32, s.outDim)
	copy(out, s.outputTensor.GetData())
	return out, nil
}

func (s *regressSession) destroy() {
	if s == nil {
		return
	}
	if s.session != nil {
		s.session.Destroy()
	}
	if s.inputTensor != nil {
		s.inputTensor.Destroy()
	}
	if s.outputTensor != nil {
		s.outputTensor.Destroy()
	}
}
