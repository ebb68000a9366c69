package services

import (
  "context"
  "os"
  "strings"
  "time"

  vision "cloud.google.com/go/vision/v2/apiv1"
  "cloud.google.com/go/vision/v2/apiv1/visionpb"
  "google.golang.org/api/option"

  "github.com/yomisnap/yomisnap-backend/internal/logger"
  "github.com/yomisnap/yomisnap-backend/internal/types"
)

// OCRService extracts a transcript plus spatial text detections from image
// bytes. It is a pure function of the bytes and never fails on backend
// trouble: a down or unconfigured recognition backend degrades to the
// configured fallback result so the rest of the pipeline keeps working.
type OCRService interface {
  DetectText(ctx context.Context, img []byte) (*types.OCRResult, error)
  Close() error
}

// DefaultMockOCR is the placeholder extraction used when no Vision
// credentials are configured or the backend call fails. Consumers recognize
// it by Provider == types.OCRProviderMock.
var DefaultMockOCR = types.OCRResult{
  Provider: types.OCRProviderMock,
  Text:     "日本語の勉強は楽しいです。東京駅に行きたい。",
  Detections: []types.TextDetection{
    {Text: "日本語の勉強は楽しいです。東京駅に行きたい。"},
    {Text: "日本語", Bounds: []types.Vertex{{X: 10, Y: 10}, {X: 100, Y: 10}, {X: 100, Y: 50}, {X: 10, Y: 50}}},
    {Text: "勉強", Bounds: []types.Vertex{{X: 110, Y: 10}, {X: 200, Y: 10}, {X: 200, Y: 50}, {X: 110, Y: 50}}},
    {Text: "楽しい", Bounds: []types.Vertex{{X: 10, Y: 60}, {X: 100, Y: 60}, {X: 100, Y: 100}, {X: 10, Y: 100}}},
    {Text: "東京", Bounds: []types.Vertex{{X: 110, Y: 60}, {X: 180, Y: 60}, {X: 180, Y: 100}, {X: 110, Y: 100}}},
    {Text: "駅", Bounds: []types.Vertex{{X: 190, Y: 60}, {X: 230, Y: 60}, {X: 230, Y: 100}, {X: 190, Y: 100}}},
  },
}

type visionOCRService struct {
  log      *logger.Logger
  client   *vision.ImageAnnotatorClient
  fallback types.OCRResult
}

// NewVisionOCRService builds the Cloud Vision adapter. When credentials are
// missing the service stays usable and serves the fallback for every call.
// A nil fallback selects DefaultMockOCR.
func NewVisionOCRService(log *logger.Logger, fallback *types.OCRResult) (OCRService, error) {
  serviceLog := log.With("service", "OCRService")

  fb := DefaultMockOCR
  if fallback != nil {
    fb = *fallback
  }
  fb.Provider = types.OCRProviderMock

  creds := strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS_JSON"))
  if creds == "" {
    creds = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
  }

  ctx := context.Background()

  var (
    client *vision.ImageAnnotatorClient
    err    error
  )
  if creds != "" {
    client, err = vision.NewImageAnnotatorClient(ctx, option.WithCredentialsFile(creds))
  } else {
    // ADC; may still fail on hosts without attached service accounts, in
    // which case extraction serves the fallback.
    client, err = vision.NewImageAnnotatorClient(ctx)
  }
  if err != nil {
    serviceLog.Warn("Vision client unavailable, OCR will serve fallback results", "error", err)
    client = nil
  }

  return &visionOCRService{
    log:      serviceLog,
    client:   client,
    fallback: fb,
  }, nil
}

func (s *visionOCRService) Close() error {
  if s.client != nil {
    return s.client.Close()
  }
  return nil
}

func (s *visionOCRService) DetectText(ctx context.Context, img []byte) (*types.OCRResult, error) {
  if len(img) == 0 {
    return &types.OCRResult{Provider: types.OCRProviderVision}, nil
  }
  if s.client == nil {
    s.log.Warn("No Vision backend configured, returning mock OCR result")
    out := s.fallback
    return &out, nil
  }

  ctx, cancel := context.WithTimeout(ctx, 60*time.Second)
  defer cancel()

  req := &visionpb.AnnotateImageRequest{
    Image: &visionpb.Image{Content: img},
    Features: []*visionpb.Feature{
      {Type: visionpb.Feature_TEXT_DETECTION},
    },
    ImageContext: &visionpb.ImageContext{
      LanguageHints: []string{"ja", "en"},
    },
  }
  br := &visionpb.BatchAnnotateImagesRequest{Requests: []*visionpb.AnnotateImageRequest{req}}
  resp, err := s.client.BatchAnnotateImages(ctx, br)
  if err != nil {
    // Backend unavailability is absorbed, not propagated: the pipeline has no
    // special case for "OCR absent".
    s.log.Error("Vision BatchAnnotateImages failed, returning mock OCR result", "error", err)
    out := s.fallback
    return &out, nil
  }
  if resp == nil || len(resp.Responses) == 0 || resp.Responses[0] == nil {
    return &types.OCRResult{Provider: types.OCRProviderVision}, nil
  }
  r0 := resp.Responses[0]
  if r0.Error != nil && r0.Error.Message != "" {
    s.log.Error("Vision annotate error, returning mock OCR result", "error", r0.Error.Message)
    out := s.fallback
    return &out, nil
  }

  annotations := r0.TextAnnotations
  if len(annotations) == 0 {
    return &types.OCRResult{Provider: types.OCRProviderVision}, nil
  }

  // The first annotation is the entire text block; the rest are individual
  // words/phrases with bounding polygons.
  result := &types.OCRResult{
    Provider:   types.OCRProviderVision,
    Text:       annotations[0].GetDescription(),
    Detections: make([]types.TextDetection, 0, len(annotations)),
  }
  for _, ann := range annotations {
    det := types.TextDetection{Text: ann.GetDescription()}
    if poly := ann.GetBoundingPoly(); poly != nil {
      for _, v := range poly.GetVertices() {
        det.Bounds = append(det.Bounds, types.Vertex{X: int(v.GetX()), Y: int(v.GetY())})
      }
    }
    result.Detections = append(result.Detections, det)
  }
  return result, nil
}
