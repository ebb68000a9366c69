package types

import (
  "time"

  "github.com/google/uuid"
)

type UserToken struct {
  ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
  UserID       uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"`
  User         *User     `gorm:"constraint:OnDelete:CASCADE;foreignKey:UserID;references:ID" json:"user,omitempty"`
  RefreshToken string    `gorm:"column:refresh_token;not null" json:"-"`
  ExpiresAt    time.Time `gorm:"column:expires_at;not null" json:"expires_at"`
  CreatedAt    time.Time `gorm:"not null" json:"created_at"`
}

func (UserToken) TableName() string { return "user_token" }
