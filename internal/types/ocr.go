package types

// OCR providers.
const (
  OCRProviderVision = "gcp_vision"
  OCRProviderMock   = "mock"
)

// Vertex is a point in source-image pixel space.
type Vertex struct {
  X int `json:"x"`
  Y int `json:"y"`
}

// TextDetection is one spatial detection from OCR: a word or phrase with its
// bounding polygon. Immutable once produced; persisted only embedded in a
// capture's OCR result.
type TextDetection struct {
  Text   string   `json:"text"`
  Bounds []Vertex `json:"bounds,omitempty"`
}

// OCRResult is the full output of one extraction pass. Provider lets
// downstream consumers tell genuine output from the configured placeholder;
// the pipeline itself treats both as valid data.
type OCRResult struct {
  Provider   string          `json:"provider"`
  Text       string          `json:"text"`
  Detections []TextDetection `json:"detections,omitempty"`
}

// Mock reports whether the result is the degraded placeholder.
func (r *OCRResult) Mock() bool {
  return r != nil && r.Provider == OCRProviderMock
}
