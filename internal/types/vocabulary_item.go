package types

import (
  "time"

  "github.com/google/uuid"
  "gorm.io/datatypes"
)

// Vocabulary sources.
const (
  SourceScan    = "scan"
  SourceRelated = "related"
  SourceHunt    = "hunt"
)

// VocabularyItem is one word in a user's deck. (user_id, word) is unique:
// spotting the same word in another photo merges into the existing record and
// adds a capture link instead of creating a duplicate.
type VocabularyItem struct {
  ID                 uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
  UserID             uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex:idx_vocab_owner_word" json:"user_id"`
  User               *User          `gorm:"constraint:OnDelete:CASCADE;foreignKey:UserID;references:ID" json:"user,omitempty"`
  Word               string         `gorm:"column:word;not null;uniqueIndex:idx_vocab_owner_word" json:"word"`
  Reading            string         `gorm:"column:reading" json:"reading"`
  Meaning            string         `gorm:"column:meaning" json:"meaning"`
  ExampleSentence    string         `gorm:"column:example_sentence" json:"example_sentence"`
  ExampleTranslation string         `gorm:"column:example_translation" json:"example_translation"`
  // EnrichedData is nil until the enrichment step fills it; a nil value is the
  // "pending" state, written all-or-nothing exactly once.
  EnrichedData     datatypes.JSON `gorm:"column:enriched_data;type:jsonb" json:"enriched_data,omitempty"`
  ProficiencyLevel int            `gorm:"column:proficiency_level;not null;default:0" json:"proficiency_level"`
  NextReviewAt     time.Time      `gorm:"column:next_review_at;not null;index" json:"next_review_at"`
  Source           string         `gorm:"column:source;not null;default:'scan'" json:"source"`
  CreatedAt        time.Time      `gorm:"not null" json:"created_at"`
  UpdatedAt        time.Time      `gorm:"not null" json:"updated_at"`
}

func (VocabularyItem) TableName() string { return "vocabulary_item" }

// Enriched reports whether the record has completed enrichment.
func (v *VocabularyItem) Enriched() bool {
  return len(v.EnrichedData) > 0
}
