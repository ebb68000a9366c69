package repos

import (
  "context"
  "errors"
  "time"

  "github.com/google/uuid"
  "gorm.io/gorm"

  "github.com/yomisnap/yomisnap-backend/internal/logger"
  "github.com/yomisnap/yomisnap-backend/internal/types"
)

type VocabularyItemRepo interface {
  Create(ctx context.Context, tx *gorm.DB, item *types.VocabularyItem) error
  GetByID(ctx context.Context, tx *gorm.DB, userID uuid.UUID, itemID uuid.UUID) (*types.VocabularyItem, error)
  GetByWord(ctx context.Context, tx *gorm.DB, userID uuid.UUID, word string) (*types.VocabularyItem, error)
  GetByWords(ctx context.Context, tx *gorm.DB, userID uuid.UUID, words []string) ([]*types.VocabularyItem, error)
  ListByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.VocabularyItem, error)
  ListDue(ctx context.Context, tx *gorm.DB, userID uuid.UUID, now time.Time, limit int) ([]*types.VocabularyItem, error)
  ListDistractors(ctx context.Context, tx *gorm.DB, userID uuid.UUID, excludeID uuid.UUID, limit int) ([]*types.VocabularyItem, error)
  ListPending(ctx context.Context, tx *gorm.DB, userID uuid.UUID, limit int) ([]*types.VocabularyItem, error)
  UpdateFields(ctx context.Context, tx *gorm.DB, itemID uuid.UUID, fields map[string]interface{}) error
  DeleteByID(ctx context.Context, tx *gorm.DB, userID uuid.UUID, itemID uuid.UUID) error
}

type vocabularyItemRepo struct {
  db  *gorm.DB
  log *logger.Logger
}

func NewVocabularyItemRepo(db *gorm.DB, baseLog *logger.Logger) VocabularyItemRepo {
  return &vocabularyItemRepo{db: db, log: baseLog.With("repo", "VocabularyItemRepo")}
}

func (r *vocabularyItemRepo) Create(ctx context.Context, tx *gorm.DB, item *types.VocabularyItem) error {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }
  // Duplicate (user_id, word) surfaces as gorm.ErrDuplicatedKey so the caller
  // can switch to merge.
  return transaction.WithContext(ctx).Create(item).Error
}

func (r *vocabularyItemRepo) GetByID(ctx context.Context, tx *gorm.DB, userID uuid.UUID, itemID uuid.UUID) (*types.VocabularyItem, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }
  var result types.VocabularyItem
  err := transaction.WithContext(ctx).
    Where("id = ? AND user_id = ?", itemID, userID).
    First(&result).Error
  if err != nil {
    return nil, err
  }
  return &result, nil
}

func (r *vocabularyItemRepo) GetByWord(ctx context.Context, tx *gorm.DB, userID uuid.UUID, word string) (*types.VocabularyItem, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }
  var result types.VocabularyItem
  err := transaction.WithContext(ctx).
    Where("user_id = ? AND word = ?", userID, word).
    First(&result).Error
  if errors.Is(err, gorm.ErrRecordNotFound) {
    return nil, nil
  }
  if err != nil {
    return nil, err
  }
  return &result, nil
}

func (r *vocabularyItemRepo) GetByWords(ctx context.Context, tx *gorm.DB, userID uuid.UUID, words []string) ([]*types.VocabularyItem, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }
  var results []*types.VocabularyItem
  if len(words) == 0 {
    return results, nil
  }
  if err := transaction.WithContext(ctx).
    Where("user_id = ? AND word IN ?", userID, words).
    Find(&results).Error; err != nil {
    return nil, err
  }
  return results, nil
}

func (r *vocabularyItemRepo) ListByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.VocabularyItem, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }
  var results []*types.VocabularyItem
  if err := transaction.WithContext(ctx).
    Where("user_id = ?", userID).
    Order("created_at DESC").
    Find(&results).Error; err != nil {
    return nil, err
  }
  return results, nil
}

func (r *vocabularyItemRepo) ListDue(ctx context.Context, tx *gorm.DB, userID uuid.UUID, now time.Time, limit int) ([]*types.VocabularyItem, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }
  var results []*types.VocabularyItem
  if err := transaction.WithContext(ctx).
    Where("user_id = ? AND next_review_at <= ?", userID, now).
    Order("next_review_at ASC").
    Limit(limit).
    Find(&results).Error; err != nil {
    return nil, err
  }
  return results, nil
}

func (r *vocabularyItemRepo) ListDistractors(ctx context.Context, tx *gorm.DB, userID uuid.UUID, excludeID uuid.UUID, limit int) ([]*types.VocabularyItem, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }
  var results []*types.VocabularyItem
  if err := transaction.WithContext(ctx).
    Where("user_id = ? AND id <> ?", userID, excludeID).
    Order("created_at DESC").
    Limit(limit).
    Find(&results).Error; err != nil {
    return nil, err
  }
  return results, nil
}

func (r *vocabularyItemRepo) ListPending(ctx context.Context, tx *gorm.DB, userID uuid.UUID, limit int) ([]*types.VocabularyItem, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }
  var results []*types.VocabularyItem
  if err := transaction.WithContext(ctx).
    Where("user_id = ? AND enriched_data IS NULL", userID).
    Order("created_at ASC").
    Limit(limit).
    Find(&results).Error; err != nil {
    return nil, err
  }
  return results, nil
}

func (r *vocabularyItemRepo) UpdateFields(ctx context.Context, tx *gorm.DB, itemID uuid.UUID, fields map[string]interface{}) error {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }
  if len(fields) == 0 {
    return nil
  }
  return transaction.WithContext(ctx).
    Model(&types.VocabularyItem{}).
    Where("id = ?", itemID).
    Updates(fields).Error
}

func (r *vocabularyItemRepo) DeleteByID(ctx context.Context, tx *gorm.DB, userID uuid.UUID, itemID uuid.UUID) error {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }
  return transaction.WithContext(ctx).
    Where("id = ? AND user_id = ?", itemID, userID).
    Delete(&types.VocabularyItem{}).Error
}
