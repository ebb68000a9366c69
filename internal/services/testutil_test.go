package services

import (
  "context"
  "fmt"
  "io"
  "strings"
  "testing"

  "gorm.io/driver/sqlite"
  "gorm.io/gorm"

  "github.com/yomisnap/yomisnap-backend/internal/types"
)

func newTestDB(t *testing.T) *gorm.DB {
  t.Helper()
  dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
  db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
  if err != nil {
    t.Fatalf("open test db: %v", err)
  }
  err = db.AutoMigrate(
    &types.User{},
    &types.UserToken{},
    &types.Capture{},
    &types.OCRCacheEntry{},
    &types.VocabularyItem{},
    &types.CaptureVocabularyLink{},
  )
  if err != nil {
    t.Fatalf("migrate test db: %v", err)
  }
  return db
}

type fakeAIClient struct {
  completeCalls     int
  completeJSONCalls int
  completeResponse  string
  completeErr       error
  jsonResponse      map[string]any
  jsonErr           error
}

func (f *fakeAIClient) Complete(ctx context.Context, system, user string, maxTokens int) (string, error) {
  f.completeCalls++
  return f.completeResponse, f.completeErr
}

func (f *fakeAIClient) CompleteJSON(ctx context.Context, system, user string) (map[string]any, error) {
  f.completeJSONCalls++
  if f.jsonErr != nil {
    return nil, f.jsonErr
  }
  return f.jsonResponse, nil
}

type fakeBucket struct {
  uploads   []string
  uploadErr error
}

func (f *fakeBucket) UploadFile(ctx context.Context, key string, file io.Reader) error {
  if f.uploadErr != nil {
    return f.uploadErr
  }
  if _, err := io.ReadAll(file); err != nil {
    return err
  }
  f.uploads = append(f.uploads, key)
  return nil
}

func (f *fakeBucket) DeleteFile(ctx context.Context, key string) error { return nil }

func (f *fakeBucket) GetPublicURL(key string) string {
  return "https://cdn.test/" + key
}

type fakeOCR struct {
  calls  int
  result *types.OCRResult
  err    error
}

func (f *fakeOCR) DetectText(ctx context.Context, img []byte) (*types.OCRResult, error) {
  f.calls++
  if f.err != nil {
    return nil, f.err
  }
  return f.result, nil
}

func (f *fakeOCR) Close() error { return nil }
