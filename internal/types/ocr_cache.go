package types

import (
  "time"

  "github.com/google/uuid"
  "gorm.io/datatypes"
)

// OCRCacheEntry maps a content digest to the OCR output produced for it. The
// table exists so OCR reuse across Capture rows is an explicit lookup rather
// than a scan over captures: extraction runs at most once per (owner, digest).
type OCRCacheEntry struct {
  ID            uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
  UserID        uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex:idx_ocr_cache_owner_digest" json:"user_id"`
  ContentDigest string         `gorm:"column:content_digest;type:varchar(64);not null;uniqueIndex:idx_ocr_cache_owner_digest" json:"content_digest"`
  Transcript    string         `gorm:"column:transcript" json:"transcript"`
  Detections    datatypes.JSON `gorm:"column:detections;type:jsonb" json:"detections,omitempty"`
  Provider      string         `gorm:"column:provider" json:"provider"`
  CreatedAt     time.Time      `gorm:"not null" json:"created_at"`
}

func (OCRCacheEntry) TableName() string { return "ocr_cache" }
