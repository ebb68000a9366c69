package repos

import (
  "context"

  "github.com/google/uuid"
  "gorm.io/gorm"
  "gorm.io/gorm/clause"

  "github.com/yomisnap/yomisnap-backend/internal/logger"
  "github.com/yomisnap/yomisnap-backend/internal/types"
)

type CaptureVocabularyLinkRepo interface {
  // Link inserts the (vocabulary, capture) pair; an already-existing pair is a
  // no-op, so concurrent duplicate inserts are safe.
  Link(ctx context.Context, tx *gorm.DB, link *types.CaptureVocabularyLink) error
  ListByVocabularyID(ctx context.Context, tx *gorm.DB, userID uuid.UUID, vocabularyID uuid.UUID) ([]*types.CaptureVocabularyLink, error)
  DeleteByVocabularyID(ctx context.Context, tx *gorm.DB, userID uuid.UUID, vocabularyID uuid.UUID) error
}

type captureVocabularyLinkRepo struct {
  db  *gorm.DB
  log *logger.Logger
}

func NewCaptureVocabularyLinkRepo(db *gorm.DB, baseLog *logger.Logger) CaptureVocabularyLinkRepo {
  return &captureVocabularyLinkRepo{db: db, log: baseLog.With("repo", "CaptureVocabularyLinkRepo")}
}

func (r *captureVocabularyLinkRepo) Link(ctx context.Context, tx *gorm.DB, link *types.CaptureVocabularyLink) error {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }
  return transaction.WithContext(ctx).
    Clauses(clause.OnConflict{DoNothing: true}).
    Create(link).Error
}

func (r *captureVocabularyLinkRepo) ListByVocabularyID(ctx context.Context, tx *gorm.DB, userID uuid.UUID, vocabularyID uuid.UUID) ([]*types.CaptureVocabularyLink, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }
  var results []*types.CaptureVocabularyLink
  if err := transaction.WithContext(ctx).
    Where("user_id = ? AND vocabulary_id = ?", userID, vocabularyID).
    Find(&results).Error; err != nil {
    return nil, err
  }
  return results, nil
}

func (r *captureVocabularyLinkRepo) DeleteByVocabularyID(ctx context.Context, tx *gorm.DB, userID uuid.UUID, vocabularyID uuid.UUID) error {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }
  return transaction.WithContext(ctx).
    Where("user_id = ? AND vocabulary_id = ?", userID, vocabularyID).
    Delete(&types.CaptureVocabularyLink{}).Error
}
