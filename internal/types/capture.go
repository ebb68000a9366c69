package types

import (
  "time"

  "github.com/google/uuid"
  "gorm.io/datatypes"
)

// Capture is one upload event of a photo. Several captures may share the same
// content digest (re-scans of the same physical image); they then share the
// underlying blob and, when available, OCR output.
type Capture struct {
  ID            uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
  UserID        uuid.UUID      `gorm:"type:uuid;not null;index" json:"user_id"`
  User          *User          `gorm:"constraint:OnDelete:CASCADE;foreignKey:UserID;references:ID" json:"user,omitempty"`
  ContentDigest string         `gorm:"column:content_digest;type:varchar(64);not null;index:idx_capture_owner_digest" json:"content_digest"`
  StorageKey    string         `gorm:"column:storage_key" json:"-"`
  ImageURL      string         `gorm:"column:image_url;not null" json:"image_url"`
  OCRTranscript string         `gorm:"column:ocr_transcript" json:"ocr_transcript"`
  OCRDetections datatypes.JSON `gorm:"column:ocr_detections;type:jsonb" json:"ocr_detections,omitempty"`
  OCRProvider   string         `gorm:"column:ocr_provider" json:"ocr_provider,omitempty"`
  Translation   *string        `gorm:"column:translation" json:"translation,omitempty"`
  GeoLat        *float64       `gorm:"column:geo_lat" json:"geo_lat,omitempty"`
  GeoLng        *float64       `gorm:"column:geo_lng" json:"geo_lng,omitempty"`
  CreatedAt     time.Time      `gorm:"not null" json:"created_at"`
  UpdatedAt     time.Time      `gorm:"not null" json:"updated_at"`
}

func (Capture) TableName() string { return "capture" }

type GeoPoint struct {
  Lat float64 `json:"lat"`
  Lng float64 `json:"lng"`
}
