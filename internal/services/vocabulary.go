package services

import (
  "context"
  "encoding/json"
  "errors"
  "fmt"
  "strings"
  "time"

  "github.com/google/uuid"
  "gorm.io/datatypes"
  "gorm.io/gorm"

  "github.com/yomisnap/yomisnap-backend/internal/logger"
  "github.com/yomisnap/yomisnap-backend/internal/repos"
  "github.com/yomisnap/yomisnap-backend/internal/types"
)

// VocabularyService owns the merge semantics of the vocabulary book: one
// record per (owner, word), any number of capture links, and enrichment that
// only ever moves a record forward.
type VocabularyService interface {
  Save(ctx context.Context, userID uuid.UUID, lesson *types.LessonDraft, existingID *uuid.UUID, captureID *uuid.UUID, source string) (*types.VocabularyItem, bool, error)
  SavePlaceholders(ctx context.Context, userID uuid.UUID, words []string, captureID *uuid.UUID) ([]*types.VocabularyItem, error)
  EnrichPending(ctx context.Context, userID uuid.UUID, contextText string, limit int) (int, error)
  List(ctx context.Context, userID uuid.UUID) ([]*types.VocabularyItem, error)
  Get(ctx context.Context, userID uuid.UUID, itemID uuid.UUID) (*types.VocabularyItem, error)
  CaptureIDs(ctx context.Context, userID uuid.UUID, itemID uuid.UUID) ([]uuid.UUID, error)
  Delete(ctx context.Context, userID uuid.UUID, itemID uuid.UUID) error
}

type vocabularyService struct {
  db            *gorm.DB
  log           *logger.Logger
  vocabRepo     repos.VocabularyItemRepo
  linkRepo      repos.CaptureVocabularyLinkRepo
  lessonService LessonService
}

func NewVocabularyService(
  db *gorm.DB,
  log *logger.Logger,
  vocabRepo repos.VocabularyItemRepo,
  linkRepo repos.CaptureVocabularyLinkRepo,
  lessonService LessonService,
) VocabularyService {
  return &vocabularyService{
    db:            db,
    log:           log.With("service", "VocabularyService"),
    vocabRepo:     vocabRepo,
    linkRepo:      linkRepo,
    lessonService: lessonService,
  }
}

func (s *vocabularyService) Save(ctx context.Context, userID uuid.UUID, lesson *types.LessonDraft, existingID *uuid.UUID, captureID *uuid.UUID, source string) (*types.VocabularyItem, bool, error) {
  if userID == uuid.Nil {
    return nil, false, fmt.Errorf("unauthorized")
  }
  if lesson == nil || strings.TrimSpace(lesson.Word) == "" {
    return nil, false, fmt.Errorf("lesson word required")
  }
  if source == "" {
    source = types.SourceScan
  }

  var item *types.VocabularyItem
  var merged bool
  err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
    existing, fErr := s.resolveExisting(ctx, tx, userID, lesson.Word, existingID)
    if fErr != nil {
      return fErr
    }

    if existing == nil {
      created, cErr := s.createFromLesson(ctx, tx, userID, lesson, source)
      if cErr == nil {
        item = created
        return s.linkCapture(ctx, tx, userID, item.ID, captureID)
      }
      if !errors.Is(cErr, gorm.ErrDuplicatedKey) {
        return cErr
      }
      // Lost the race with a concurrent save of the same word. The record
      // exists now, so fall through to merge.
      existing, fErr = s.vocabRepo.GetByWord(ctx, tx, userID, lesson.Word)
      if fErr != nil {
        return fErr
      }
      if existing == nil {
        return fmt.Errorf("duplicate word save could not be resolved: %s", lesson.Word)
      }
    }

    merged = true
    if mErr := s.mergeLesson(ctx, tx, existing, lesson); mErr != nil {
      return mErr
    }
    item = existing
    return s.linkCapture(ctx, tx, userID, existing.ID, captureID)
  })
  if err != nil {
    return nil, false, err
  }
  return item, merged, nil
}

func (s *vocabularyService) SavePlaceholders(ctx context.Context, userID uuid.UUID, words []string, captureID *uuid.UUID) ([]*types.VocabularyItem, error) {
  cleaned := dedupeWords(words)
  if len(cleaned) == 0 {
    return nil, fmt.Errorf("no words selected")
  }
  items := make([]*types.VocabularyItem, 0, len(cleaned))
  for _, word := range cleaned {
    placeholder := &types.LessonDraft{
      Word:               word,
      Reading:            "Generating...",
      Meaning:            "Processing definition...",
      ExampleSentence:    "...",
      ExampleTranslation: "...",
    }
    item, _, err := s.Save(ctx, userID, placeholder, nil, captureID, types.SourceScan)
    if err != nil {
      return nil, fmt.Errorf("failed to save placeholder for %q: %w", word, err)
    }
    items = append(items, item)
  }
  return items, nil
}

func (s *vocabularyService) EnrichPending(ctx context.Context, userID uuid.UUID, contextText string, limit int) (int, error) {
  if limit <= 0 {
    limit = 20
  }
  pending, err := s.vocabRepo.ListPending(ctx, nil, userID, limit)
  if err != nil {
    return 0, fmt.Errorf("pending lookup failed: %w", err)
  }
  if len(pending) == 0 {
    return 0, nil
  }

  words := make([]string, 0, len(pending))
  byWord := make(map[string]*types.VocabularyItem, len(pending))
  for _, item := range pending {
    words = append(words, item.Word)
    byWord[item.Word] = item
  }

  results, err := s.lessonService.ResolveLessons(ctx, userID, words, contextText)
  if err != nil {
    return 0, fmt.Errorf("enrichment generation failed: %w", err)
  }

  enriched := 0
  for _, result := range results {
    if result.Generated == nil || result.Generated.Enriched == nil {
      continue
    }
    item, ok := byWord[result.Generated.Word]
    if !ok {
      continue
    }
    if mErr := s.mergeLesson(ctx, nil, item, result.Generated); mErr != nil {
      s.log.Warn("Failed to enrich pending word", "word", item.Word, "error", mErr)
      continue
    }
    enriched++
  }
  s.log.Info("Enrichment sweep finished", "pending", len(pending), "enriched", enriched)
  return enriched, nil
}

func (s *vocabularyService) List(ctx context.Context, userID uuid.UUID) ([]*types.VocabularyItem, error) {
  return s.vocabRepo.ListByUserID(ctx, nil, userID)
}

func (s *vocabularyService) Get(ctx context.Context, userID uuid.UUID, itemID uuid.UUID) (*types.VocabularyItem, error) {
  return s.vocabRepo.GetByID(ctx, nil, userID, itemID)
}

func (s *vocabularyService) CaptureIDs(ctx context.Context, userID uuid.UUID, itemID uuid.UUID) ([]uuid.UUID, error) {
  links, err := s.linkRepo.ListByVocabularyID(ctx, nil, userID, itemID)
  if err != nil {
    return nil, err
  }
  ids := make([]uuid.UUID, 0, len(links))
  for _, link := range links {
    ids = append(ids, link.CaptureID)
  }
  return ids, nil
}

func (s *vocabularyService) Delete(ctx context.Context, userID uuid.UUID, itemID uuid.UUID) error {
  return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
    if _, err := s.vocabRepo.GetByID(ctx, tx, userID, itemID); err != nil {
      return err
    }
    if err := s.linkRepo.DeleteByVocabularyID(ctx, tx, userID, itemID); err != nil {
      return fmt.Errorf("failed to delete capture links: %w", err)
    }
    return s.vocabRepo.DeleteByID(ctx, tx, userID, itemID)
  })
}

func (s *vocabularyService) resolveExisting(ctx context.Context, tx *gorm.DB, userID uuid.UUID, word string, existingID *uuid.UUID) (*types.VocabularyItem, error) {
  if existingID != nil && *existingID != uuid.Nil {
    item, err := s.vocabRepo.GetByID(ctx, tx, userID, *existingID)
    if err != nil {
      return nil, fmt.Errorf("existing item lookup failed: %w", err)
    }
    return item, nil
  }
  return s.vocabRepo.GetByWord(ctx, tx, userID, word)
}

func (s *vocabularyService) createFromLesson(ctx context.Context, tx *gorm.DB, userID uuid.UUID, lesson *types.LessonDraft, source string) (*types.VocabularyItem, error) {
  item := &types.VocabularyItem{
    ID:                 uuid.New(),
    UserID:             userID,
    Word:               lesson.Word,
    Reading:            lesson.Reading,
    Meaning:            lesson.Meaning,
    ExampleSentence:    lesson.ExampleSentence,
    ExampleTranslation: lesson.ExampleTranslation,
    ProficiencyLevel:   0,
    NextReviewAt:       time.Now(),
    Source:             source,
  }
  if lesson.Enriched != nil {
    data, mErr := json.Marshal(lesson.Enriched)
    if mErr != nil {
      return nil, fmt.Errorf("failed to encode enrichment: %w", mErr)
    }
    item.EnrichedData = datatypes.JSON(data)
  }
  if err := s.vocabRepo.Create(ctx, tx, item); err != nil {
    return nil, err
  }
  return item, nil
}

// mergeLesson updates an existing record in place. Drafts without enrichment
// (placeholders, fallbacks) change nothing: populated fields never regress to
// placeholder text.
func (s *vocabularyService) mergeLesson(ctx context.Context, tx *gorm.DB, item *types.VocabularyItem, lesson *types.LessonDraft) error {
  if lesson.Enriched == nil {
    return nil
  }
  data, mErr := json.Marshal(lesson.Enriched)
  if mErr != nil {
    return fmt.Errorf("failed to encode enrichment: %w", mErr)
  }
  fields := map[string]interface{}{
    "reading":             lesson.Reading,
    "meaning":             lesson.Meaning,
    "example_sentence":    lesson.ExampleSentence,
    "example_translation": lesson.ExampleTranslation,
    "enriched_data":       datatypes.JSON(data),
  }
  if err := s.vocabRepo.UpdateFields(ctx, tx, item.ID, fields); err != nil {
    return fmt.Errorf("failed to merge lesson: %w", err)
  }
  item.Reading = lesson.Reading
  item.Meaning = lesson.Meaning
  item.ExampleSentence = lesson.ExampleSentence
  item.ExampleTranslation = lesson.ExampleTranslation
  item.EnrichedData = datatypes.JSON(data)
  return nil
}

func (s *vocabularyService) linkCapture(ctx context.Context, tx *gorm.DB, userID uuid.UUID, vocabID uuid.UUID, captureID *uuid.UUID) error {
  if captureID == nil || *captureID == uuid.Nil {
    return nil
  }
  link := &types.CaptureVocabularyLink{
    VocabularyID: vocabID,
    CaptureID:    *captureID,
    UserID:       userID,
  }
  if err := s.linkRepo.Link(ctx, tx, link); err != nil {
    return fmt.Errorf("failed to link capture: %w", err)
  }
  return nil
}
