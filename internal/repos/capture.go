package repos

import (
  "context"
  "errors"

  "github.com/google/uuid"
  "gorm.io/datatypes"
  "gorm.io/gorm"

  "github.com/yomisnap/yomisnap-backend/internal/logger"
  "github.com/yomisnap/yomisnap-backend/internal/types"
)

type CaptureRepo interface {
  Create(ctx context.Context, tx *gorm.DB, captures []*types.Capture) ([]*types.Capture, error)
  GetByID(ctx context.Context, tx *gorm.DB, userID uuid.UUID, captureID uuid.UUID) (*types.Capture, error)
  ListByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID, limit int) ([]*types.Capture, error)
  // FirstByDigestWithBlob returns the owner's earliest capture carrying the
  // digest with a populated blob URL, or nil when the digest is unseen.
  FirstByDigestWithBlob(ctx context.Context, tx *gorm.DB, userID uuid.UUID, digest string) (*types.Capture, error)
  UpdateOCR(ctx context.Context, tx *gorm.DB, captureID uuid.UUID, transcript string, detections datatypes.JSON, provider string) error
  UpdateTranslation(ctx context.Context, tx *gorm.DB, captureID uuid.UUID, translation string) error
}

type captureRepo struct {
  db  *gorm.DB
  log *logger.Logger
}

func NewCaptureRepo(db *gorm.DB, baseLog *logger.Logger) CaptureRepo {
  return &captureRepo{db: db, log: baseLog.With("repo", "CaptureRepo")}
}

func (r *captureRepo) Create(ctx context.Context, tx *gorm.DB, captures []*types.Capture) ([]*types.Capture, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }
  if len(captures) == 0 {
    return []*types.Capture{}, nil
  }
  if err := transaction.WithContext(ctx).Create(&captures).Error; err != nil {
    return nil, err
  }
  return captures, nil
}

func (r *captureRepo) GetByID(ctx context.Context, tx *gorm.DB, userID uuid.UUID, captureID uuid.UUID) (*types.Capture, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }
  var result types.Capture
  err := transaction.WithContext(ctx).
    Where("id = ? AND user_id = ?", captureID, userID).
    First(&result).Error
  if err != nil {
    return nil, err
  }
  return &result, nil
}

func (r *captureRepo) ListByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID, limit int) ([]*types.Capture, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }
  if limit <= 0 {
    limit = 50
  }
  var results []*types.Capture
  if err := transaction.WithContext(ctx).
    Where("user_id = ?", userID).
    Order("created_at DESC").
    Limit(limit).
    Find(&results).Error; err != nil {
    return nil, err
  }
  return results, nil
}

func (r *captureRepo) FirstByDigestWithBlob(ctx context.Context, tx *gorm.DB, userID uuid.UUID, digest string) (*types.Capture, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }
  var result types.Capture
  err := transaction.WithContext(ctx).
    Where("user_id = ? AND content_digest = ? AND image_url <> ''", userID, digest).
    Order("created_at ASC").
    First(&result).Error
  if errors.Is(err, gorm.ErrRecordNotFound) {
    return nil, nil
  }
  if err != nil {
    return nil, err
  }
  return &result, nil
}

func (r *captureRepo) UpdateOCR(ctx context.Context, tx *gorm.DB, captureID uuid.UUID, transcript string, detections datatypes.JSON, provider string) error {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }
  return transaction.WithContext(ctx).
    Model(&types.Capture{}).
    Where("id = ?", captureID).
    Updates(map[string]interface{}{
      "ocr_transcript": transcript,
      "ocr_detections": detections,
      "ocr_provider":   provider,
    }).Error
}

func (r *captureRepo) UpdateTranslation(ctx context.Context, tx *gorm.DB, captureID uuid.UUID, translation string) error {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }
  return transaction.WithContext(ctx).
    Model(&types.Capture{}).
    Where("id = ?", captureID).
    Update("translation", translation).Error
}
