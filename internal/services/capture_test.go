package services

import (
  "context"
  "errors"
  "testing"

  "github.com/google/uuid"
  "gorm.io/gorm"

  "github.com/yomisnap/yomisnap-backend/internal/logger"
  "github.com/yomisnap/yomisnap-backend/internal/repos"
  "github.com/yomisnap/yomisnap-backend/internal/types"
)

type captureFixture struct {
  svc         CaptureService
  db          *gorm.DB
  captureRepo repos.CaptureRepo
  cacheRepo   repos.OCRCacheRepo
  bucket      *fakeBucket
  ocr         *fakeOCR
  ai          *fakeAIClient
}

func newCaptureFixture(t *testing.T) *captureFixture {
  t.Helper()
  db := newTestDB(t)
  log := logger.NewNop()
  captureRepo := repos.NewCaptureRepo(db, log)
  cacheRepo := repos.NewOCRCacheRepo(db, log)
  bucket := &fakeBucket{}
  ocr := &fakeOCR{result: &types.OCRResult{
    Provider: types.OCRProviderVision,
    Text:     "営業中",
    Detections: []types.TextDetection{
      {Text: "営業中", Bounds: []types.Vertex{{X: 0, Y: 0}, {X: 10, Y: 10}}},
    },
  }}
  ai := &fakeAIClient{completeResponse: "Open for business"}
  svc := NewCaptureService(db, log, captureRepo, cacheRepo, bucket, ocr, ai, nil)
  return &captureFixture{
    svc:         svc,
    db:          db,
    captureRepo: captureRepo,
    cacheRepo:   cacheRepo,
    bucket:      bucket,
    ocr:         ocr,
    ai:          ai,
  }
}

func TestIngest_StoresBlobAndOCR(t *testing.T) {
  f := newCaptureFixture(t)
  userID := uuid.New()

  capture, err := f.svc.Ingest(context.Background(), userID, "sign.jpg", []byte("image-bytes"), &types.GeoPoint{Lat: 35.68, Lng: 139.69})
  if err != nil {
    t.Fatalf("Ingest: %v", err)
  }
  if len(f.bucket.uploads) != 1 {
    t.Fatalf("expected 1 blob upload, got %d", len(f.bucket.uploads))
  }
  if capture.ImageURL == "" || capture.StorageKey == "" {
    t.Fatalf("blob fields not set: %+v", capture)
  }
  if capture.OCRTranscript != "営業中" {
    t.Fatalf("transcript not stored: %q", capture.OCRTranscript)
  }
  if capture.OCRProvider != types.OCRProviderVision {
    t.Fatalf("provider not stored: %q", capture.OCRProvider)
  }
  if capture.GeoLat == nil || *capture.GeoLat != 35.68 {
    t.Fatalf("geo not stored: %+v", capture.GeoLat)
  }
  if capture.Translation == nil || *capture.Translation != "Open for business" {
    t.Fatalf("translation not stored: %+v", capture.Translation)
  }
  if len(capture.ContentDigest) != 64 {
    t.Fatalf("expected sha256 hex digest, got %q", capture.ContentDigest)
  }
}

func TestIngest_UploadFailureLeavesNoRow(t *testing.T) {
  f := newCaptureFixture(t)
  f.bucket.uploadErr = errors.New("bucket unavailable")
  userID := uuid.New()

  if _, err := f.svc.Ingest(context.Background(), userID, "sign.jpg", []byte("image-bytes"), nil); err == nil {
    t.Fatal("expected ingest to fail when the blob upload fails")
  }
  rows, err := f.captureRepo.ListByUserID(context.Background(), nil, userID, 10)
  if err != nil {
    t.Fatalf("ListByUserID: %v", err)
  }
  if len(rows) != 0 {
    t.Fatalf("expected no capture rows after failed upload, got %d", len(rows))
  }
}

func TestIngest_DuplicateBytesReuseBlobAndOCR(t *testing.T) {
  f := newCaptureFixture(t)
  userID := uuid.New()
  data := []byte("the-same-photo")

  first, err := f.svc.Ingest(context.Background(), userID, "a.jpg", data, nil)
  if err != nil {
    t.Fatalf("first ingest: %v", err)
  }
  second, err := f.svc.Ingest(context.Background(), userID, "b.jpg", data, nil)
  if err != nil {
    t.Fatalf("second ingest: %v", err)
  }

  if first.ID == second.ID {
    t.Fatal("duplicate upload must still create a distinct capture row")
  }
  if len(f.bucket.uploads) != 1 {
    t.Fatalf("duplicate bytes must not re-upload, got %d uploads", len(f.bucket.uploads))
  }
  if second.ImageURL != first.ImageURL || second.StorageKey != first.StorageKey {
    t.Fatal("duplicate capture must point at the original blob")
  }
  if f.ocr.calls != 1 {
    t.Fatalf("expected OCR reuse from cache, got %d calls", f.ocr.calls)
  }
  if second.OCRTranscript != first.OCRTranscript {
    t.Fatalf("cached transcript mismatch: %q vs %q", second.OCRTranscript, first.OCRTranscript)
  }

  captures, err := f.captureRepo.ListByUserID(context.Background(), nil, userID, 10)
  if err != nil {
    t.Fatalf("list: %v", err)
  }
  if len(captures) != 2 {
    t.Fatalf("expected 2 capture rows, got %d", len(captures))
  }
}

func TestIngest_DigestScopedPerOwner(t *testing.T) {
  f := newCaptureFixture(t)
  data := []byte("shared-photo")

  if _, err := f.svc.Ingest(context.Background(), uuid.New(), "a.jpg", data, nil); err != nil {
    t.Fatalf("first owner ingest: %v", err)
  }
  if _, err := f.svc.Ingest(context.Background(), uuid.New(), "a.jpg", data, nil); err != nil {
    t.Fatalf("second owner ingest: %v", err)
  }
  if len(f.bucket.uploads) != 2 {
    t.Fatalf("different owners must not share blobs, got %d uploads", len(f.bucket.uploads))
  }
  if f.ocr.calls != 2 {
    t.Fatalf("different owners must not share OCR results, got %d calls", f.ocr.calls)
  }
}

func TestIngest_OCRFailureAbsorbed(t *testing.T) {
  f := newCaptureFixture(t)
  f.ocr.err = context.DeadlineExceeded
  userID := uuid.New()

  capture, err := f.svc.Ingest(context.Background(), userID, "a.jpg", []byte("photo"), nil)
  if err != nil {
    t.Fatalf("ingest must survive OCR failure: %v", err)
  }
  if capture.OCRTranscript != "" {
    t.Fatalf("expected empty transcript, got %q", capture.OCRTranscript)
  }
  if f.ai.completeCalls != 0 {
    t.Fatal("no transcript means no translation call")
  }
  if len(f.bucket.uploads) != 1 {
    t.Fatalf("blob must still be stored, got %d uploads", len(f.bucket.uploads))
  }
}

func TestIngest_BackfillsEarlierCaptureOCR(t *testing.T) {
  f := newCaptureFixture(t)
  userID := uuid.New()
  data := []byte("retry-photo")

  f.ocr.err = context.DeadlineExceeded
  first, err := f.svc.Ingest(context.Background(), userID, "a.jpg", data, nil)
  if err != nil {
    t.Fatalf("first ingest: %v", err)
  }

  f.ocr.err = nil
  if _, err := f.svc.Ingest(context.Background(), userID, "a.jpg", data, nil); err != nil {
    t.Fatalf("second ingest: %v", err)
  }

  reread, err := f.captureRepo.GetByID(context.Background(), nil, userID, first.ID)
  if err != nil {
    t.Fatalf("reread first capture: %v", err)
  }
  if reread.OCRTranscript != "営業中" {
    t.Fatalf("earlier capture not backfilled, transcript %q", reread.OCRTranscript)
  }
}

func TestIngest_RejectsEmptyUpload(t *testing.T) {
  f := newCaptureFixture(t)
  if _, err := f.svc.Ingest(context.Background(), uuid.New(), "a.jpg", nil, nil); err == nil {
    t.Fatal("expected error for empty upload")
  }
}

func TestEnsureTranslation(t *testing.T) {
  f := newCaptureFixture(t)
  userID := uuid.New()

  capture, err := f.svc.Ingest(context.Background(), userID, "a.jpg", []byte("photo"), nil)
  if err != nil {
    t.Fatalf("ingest: %v", err)
  }
  callsAfterIngest := f.ai.completeCalls

  // Already translated during ingest: no extra model call.
  got, err := f.svc.EnsureTranslation(context.Background(), userID, capture.ID)
  if err != nil {
    t.Fatalf("EnsureTranslation: %v", err)
  }
  if got != "Open for business" {
    t.Fatalf("unexpected translation %q", got)
  }
  if f.ai.completeCalls != callsAfterIngest {
    t.Fatal("existing translation must be returned without a model call")
  }
}
