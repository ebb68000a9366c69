package types

import (
  "time"

  "github.com/google/uuid"
  "gorm.io/gorm"
)

type User struct {
  ID              uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
  Email           string         `gorm:"column:email;uniqueIndex;not null" json:"email"`
  Password        string         `gorm:"column:password;not null" json:"-"`
  DisplayName     string         `gorm:"column:display_name" json:"display_name"`
  AvatarBucketKey string         `gorm:"column:avatar_bucket_key" json:"-"`
  AvatarURL       string         `gorm:"column:avatar_url" json:"avatar_url"`
  AvatarColor     string         `gorm:"column:avatar_color" json:"avatar_color"`
  XP              int            `gorm:"column:xp;not null;default:0" json:"xp"`
  CreatedAt       time.Time      `gorm:"not null" json:"created_at"`
  UpdatedAt       time.Time      `gorm:"not null" json:"updated_at"`
  DeletedAt       gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (User) TableName() string { return "user" }
