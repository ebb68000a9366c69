package types

import (
  "time"

  "github.com/google/uuid"
)

// CaptureVocabularyLink records that a vocabulary item was spotted in a
// capture. At most one link exists per (vocabulary_id, capture_id); duplicate
// inserts are treated as no-ops by the write path.
type CaptureVocabularyLink struct {
  VocabularyID uuid.UUID `gorm:"type:uuid;primaryKey" json:"vocabulary_id"`
  CaptureID    uuid.UUID `gorm:"type:uuid;primaryKey" json:"capture_id"`
  UserID       uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"`
  CreatedAt    time.Time `gorm:"not null" json:"created_at"`
}

func (CaptureVocabularyLink) TableName() string { return "capture_vocabulary_link" }
