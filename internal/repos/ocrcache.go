package repos

import (
  "context"
  "errors"

  "github.com/google/uuid"
  "gorm.io/gorm"
  "gorm.io/gorm/clause"

  "github.com/yomisnap/yomisnap-backend/internal/logger"
  "github.com/yomisnap/yomisnap-backend/internal/types"
)

type OCRCacheRepo interface {
  GetByDigest(ctx context.Context, tx *gorm.DB, userID uuid.UUID, digest string) (*types.OCRCacheEntry, error)
  // Put stores the extraction result for a digest. A concurrent writer for the
  // same (owner, digest) wins silently; the first write is authoritative.
  Put(ctx context.Context, tx *gorm.DB, entry *types.OCRCacheEntry) error
}

type ocrCacheRepo struct {
  db  *gorm.DB
  log *logger.Logger
}

func NewOCRCacheRepo(db *gorm.DB, baseLog *logger.Logger) OCRCacheRepo {
  return &ocrCacheRepo{db: db, log: baseLog.With("repo", "OCRCacheRepo")}
}

func (r *ocrCacheRepo) GetByDigest(ctx context.Context, tx *gorm.DB, userID uuid.UUID, digest string) (*types.OCRCacheEntry, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }
  var result types.OCRCacheEntry
  err := transaction.WithContext(ctx).
    Where("user_id = ? AND content_digest = ?", userID, digest).
    First(&result).Error
  if errors.Is(err, gorm.ErrRecordNotFound) {
    return nil, nil
  }
  if err != nil {
    return nil, err
  }
  return &result, nil
}

func (r *ocrCacheRepo) Put(ctx context.Context, tx *gorm.DB, entry *types.OCRCacheEntry) error {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }
  if entry.ID == uuid.Nil {
    entry.ID = uuid.New()
  }
  return transaction.WithContext(ctx).
    Clauses(clause.OnConflict{
      Columns:   []clause.Column{{Name: "user_id"}, {Name: "content_digest"}},
      DoNothing: true,
    }).
    Create(entry).Error
}
