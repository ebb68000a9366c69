package services

import (
  "bytes"
  "context"
  "crypto/sha256"
  "encoding/hex"
  "encoding/json"
  "fmt"
  "path/filepath"
  "strings"

  "github.com/google/uuid"
  "golang.org/x/sync/errgroup"
  "gorm.io/datatypes"
  "gorm.io/gorm"

  "github.com/yomisnap/yomisnap-backend/internal/logger"
  "github.com/yomisnap/yomisnap-backend/internal/repos"
  "github.com/yomisnap/yomisnap-backend/internal/types"
)

const translatorSystemPrompt = "You are a translator. Translate the Japanese text to English. Detailed, context-aware translation. If it's a menu/sign, describe it briefly."

// CaptureService ingests photo uploads: content-addressed blob storage with
// per-owner dedup, OCR with digest-keyed reuse, and best-effort translation.
type CaptureService interface {
  Ingest(ctx context.Context, userID uuid.UUID, originalName string, data []byte, geo *types.GeoPoint) (*types.Capture, error)
  GetByID(ctx context.Context, userID uuid.UUID, captureID uuid.UUID) (*types.Capture, error)
  ListRecent(ctx context.Context, userID uuid.UUID, limit int) ([]*types.Capture, error)
  EnsureTranslation(ctx context.Context, userID uuid.UUID, captureID uuid.UUID) (string, error)
  CandidateWords(ctx context.Context, userID uuid.UUID, captureID uuid.UUID) ([]string, error)
}

type captureService struct {
  db            *gorm.DB
  log           *logger.Logger
  captureRepo   repos.CaptureRepo
  ocrCacheRepo  repos.OCRCacheRepo
  bucketService BucketService
  ocrService    OCRService
  aiClient      OpenAIClient
  tokenizer     TokenizerService
}

func NewCaptureService(
  db *gorm.DB,
  baseLog *logger.Logger,
  captureRepo repos.CaptureRepo,
  ocrCacheRepo repos.OCRCacheRepo,
  bucketService BucketService,
  ocrService OCRService,
  aiClient OpenAIClient,
  tokenizer TokenizerService,
) CaptureService {
  return &captureService{
    db:            db,
    log:           baseLog.With("service", "CaptureService"),
    captureRepo:   captureRepo,
    ocrCacheRepo:  ocrCacheRepo,
    bucketService: bucketService,
    ocrService:    ocrService,
    aiClient:      aiClient,
    tokenizer:     tokenizer,
  }
}

func (s *captureService) Ingest(ctx context.Context, userID uuid.UUID, originalName string, data []byte, geo *types.GeoPoint) (*types.Capture, error) {
  if userID == uuid.Nil {
    return nil, fmt.Errorf("unauthorized")
  }
  if len(data) == 0 {
    return nil, fmt.Errorf("empty image upload")
  }

  sum := sha256.Sum256(data)
  digest := hex.EncodeToString(sum[:])

  existing, err := s.captureRepo.FirstByDigestWithBlob(ctx, nil, userID, digest)
  if err != nil {
    return nil, fmt.Errorf("digest lookup failed: %w", err)
  }

  var (
    imageURL   string
    storageKey string
    ocr        *types.OCRResult
    freshOCR   bool
  )

  if existing != nil {
    // Same bytes seen before: reuse the blob, and reuse the OCR output when
    // the digest cache has it.
    s.log.Debug("Duplicate image digest, reusing blob", "digest", digest, "capture_id", existing.ID)
    imageURL = existing.ImageURL
    storageKey = existing.StorageKey

    cached, cErr := s.ocrCacheRepo.GetByDigest(ctx, nil, userID, digest)
    if cErr != nil {
      s.log.Warn("OCR cache lookup failed", "error", cErr, "digest", digest)
    }
    if cached != nil {
      ocr = ocrResultFromCache(cached)
    }
    if ocr == nil {
      ocr = s.detectBestEffort(ctx, data)
      freshOCR = ocr != nil
    }
    // Backfill the earlier row if its extraction came up empty at the time.
    if ocr != nil && existing.OCRTranscript == "" && ocr.Text != "" {
      dets, _ := json.Marshal(ocr.Detections)
      if uErr := s.captureRepo.UpdateOCR(ctx, nil, existing.ID, ocr.Text, datatypes.JSON(dets), ocr.Provider); uErr != nil {
        s.log.Warn("Failed to backfill OCR on earlier capture", "error", uErr, "capture_id", existing.ID)
      }
    }
  } else {
    storageKey = fmt.Sprintf("captures/%s/%s%s", userID.String(), uuid.New().String(), fileExt(originalName))

    // Blob upload and extraction only need the raw bytes, so they run
    // concurrently. Upload failure is fatal: no Capture row is persisted.
    g, gctx := errgroup.WithContext(ctx)
    g.Go(func() error {
      return s.bucketService.UploadFile(gctx, storageKey, bytes.NewReader(data))
    })
    g.Go(func() error {
      ocr = s.detectBestEffort(gctx, data)
      return nil
    })
    if err := g.Wait(); err != nil {
      return nil, fmt.Errorf("capture upload failed: %w", err)
    }
    imageURL = s.bucketService.GetPublicURL(storageKey)
    freshOCR = ocr != nil
  }

  capture := &types.Capture{
    ID:            uuid.New(),
    UserID:        userID,
    ContentDigest: digest,
    StorageKey:    storageKey,
    ImageURL:      imageURL,
  }
  if geo != nil {
    lat, lng := geo.Lat, geo.Lng
    capture.GeoLat = &lat
    capture.GeoLng = &lng
  }
  if ocr != nil {
    capture.OCRTranscript = ocr.Text
    capture.OCRProvider = ocr.Provider
    if dets, mErr := json.Marshal(ocr.Detections); mErr == nil {
      capture.OCRDetections = datatypes.JSON(dets)
    }
  }

  if _, err := s.captureRepo.Create(ctx, nil, []*types.Capture{capture}); err != nil {
    return nil, fmt.Errorf("failed to save capture: %w", err)
  }

  if freshOCR && ocr != nil {
    entry := &types.OCRCacheEntry{
      UserID:        userID,
      ContentDigest: digest,
      Transcript:    ocr.Text,
      Detections:    capture.OCRDetections,
      Provider:      ocr.Provider,
    }
    if err := s.ocrCacheRepo.Put(ctx, nil, entry); err != nil {
      s.log.Warn("Failed to store OCR cache entry", "error", err, "digest", digest)
    }
  }

  // Context-aware translation is best-effort: failure leaves the field unset
  // and never fails the upload.
  if ocr != nil && strings.TrimSpace(ocr.Text) != "" {
    if translation, tErr := s.generateTranslation(ctx, ocr.Text); tErr != nil {
      s.log.Warn("Translation failed", "error", tErr, "capture_id", capture.ID)
    } else if translation != "" {
      if uErr := s.captureRepo.UpdateTranslation(ctx, nil, capture.ID, translation); uErr != nil {
        s.log.Warn("Failed to save translation", "error", uErr, "capture_id", capture.ID)
      } else {
        capture.Translation = &translation
      }
    }
  }

  return capture, nil
}

func (s *captureService) GetByID(ctx context.Context, userID uuid.UUID, captureID uuid.UUID) (*types.Capture, error) {
  return s.captureRepo.GetByID(ctx, nil, userID, captureID)
}

func (s *captureService) ListRecent(ctx context.Context, userID uuid.UUID, limit int) ([]*types.Capture, error) {
  return s.captureRepo.ListByUserID(ctx, nil, userID, limit)
}

func (s *captureService) EnsureTranslation(ctx context.Context, userID uuid.UUID, captureID uuid.UUID) (string, error) {
  capture, err := s.captureRepo.GetByID(ctx, nil, userID, captureID)
  if err != nil {
    return "", err
  }
  if capture.Translation != nil && *capture.Translation != "" {
    return *capture.Translation, nil
  }
  if strings.TrimSpace(capture.OCRTranscript) == "" {
    return "", fmt.Errorf("capture has no text to translate")
  }
  translation, err := s.generateTranslation(ctx, capture.OCRTranscript)
  if err != nil {
    return "", fmt.Errorf("translation failed: %w", err)
  }
  if translation != "" {
    if uErr := s.captureRepo.UpdateTranslation(ctx, nil, captureID, translation); uErr != nil {
      return "", fmt.Errorf("failed to save translation: %w", uErr)
    }
  }
  return translation, nil
}

func (s *captureService) CandidateWords(ctx context.Context, userID uuid.UUID, captureID uuid.UUID) ([]string, error) {
  capture, err := s.captureRepo.GetByID(ctx, nil, userID, captureID)
  if err != nil {
    return nil, err
  }
  if s.tokenizer == nil {
    return nil, nil
  }
  return s.tokenizer.CandidateWords(capture.OCRTranscript), nil
}

// detectBestEffort never lets extraction trouble surface: a failed pass ends
// up as "no OCR" on the capture, which stays fixable by a later re-scan.
func (s *captureService) detectBestEffort(ctx context.Context, data []byte) *types.OCRResult {
  result, err := s.ocrService.DetectText(ctx, data)
  if err != nil {
    s.log.Warn("OCR extraction failed", "error", err)
    return nil
  }
  return result
}

func (s *captureService) generateTranslation(ctx context.Context, text string) (string, error) {
  if s.aiClient == nil {
    return "", nil
  }
  user := fmt.Sprintf("Translate this text found on a sign/image:\n\n%s", text)
  return s.aiClient.Complete(ctx, translatorSystemPrompt, user, 300)
}

func ocrResultFromCache(entry *types.OCRCacheEntry) *types.OCRResult {
  result := &types.OCRResult{
    Provider: entry.Provider,
    Text:     entry.Transcript,
  }
  if len(entry.Detections) > 0 {
    _ = json.Unmarshal(entry.Detections, &result.Detections)
  }
  return result
}

func fileExt(name string) string {
  ext := strings.ToLower(filepath.Ext(name))
  if ext == "" {
    return ".jpg"
  }
  return ext
}
