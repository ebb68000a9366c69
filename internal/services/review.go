package services

import (
  "context"
  "fmt"
  "os"
  "time"

  "github.com/google/uuid"
  "gopkg.in/yaml.v3"

  "github.com/yomisnap/yomisnap-backend/internal/logger"
  "github.com/yomisnap/yomisnap-backend/internal/repos"
  "github.com/yomisnap/yomisnap-backend/internal/types"
)

// DefaultReviewLadder holds the wait before the next review at each
// proficiency level. Level 0 is due immediately.
var DefaultReviewLadder = []time.Duration{
  0,
  10 * time.Minute,
  24 * time.Hour,
  3 * 24 * time.Hour,
  7 * 24 * time.Hour,
  30 * 24 * time.Hour,
}

const (
  maxQuizItems       = 20
  distractorPoolSize = 50
)

// QuizData is one quiz session payload: the due items plus a pool of the
// owner's other words to build multiple-choice options from.
type QuizData struct {
  Items       []*types.VocabularyItem `json:"items"`
  Distractors []*types.VocabularyItem `json:"distractors"`
}

// ReviewOutcome reports the state after one graded answer.
type ReviewOutcome struct {
  NewLevel     int       `json:"new_level"`
  NextReviewAt time.Time `json:"next_review_at"`
  XPAwarded    int       `json:"xp_awarded"`
}

// ReviewService runs the leveled review scheduler over the vocabulary book.
type ReviewService interface {
  GetQuizData(ctx context.Context, userID uuid.UUID, limit int) (*QuizData, error)
  SubmitReview(ctx context.Context, userID uuid.UUID, itemID uuid.UUID, correct bool) (*ReviewOutcome, error)
  Ladder() []time.Duration
}

type reviewService struct {
  log       *logger.Logger
  vocabRepo repos.VocabularyItemRepo
  userRepo  repos.UserRepo
  ladder    []time.Duration
}

func NewReviewService(log *logger.Logger, vocabRepo repos.VocabularyItemRepo, userRepo repos.UserRepo, ladder []time.Duration) ReviewService {
  if len(ladder) == 0 {
    ladder = DefaultReviewLadder
  }
  return &reviewService{
    log:       log.With("service", "ReviewService"),
    vocabRepo: vocabRepo,
    userRepo:  userRepo,
    ladder:    ladder,
  }
}

// LoadReviewLadder reads the interval ladder from the YAML file named by
// REVIEW_LADDER_FILE. Durations use Go syntax ("10m", "72h"). An unset env
// var selects the default ladder.
func LoadReviewLadder(log *logger.Logger) ([]time.Duration, error) {
  path := os.Getenv("REVIEW_LADDER_FILE")
  if path == "" {
    return DefaultReviewLadder, nil
  }
  data, err := os.ReadFile(path)
  if err != nil {
    return nil, fmt.Errorf("failed to read review ladder file: %w", err)
  }
  var cfg struct {
    Intervals []string `yaml:"intervals"`
  }
  if err := yaml.Unmarshal(data, &cfg); err != nil {
    return nil, fmt.Errorf("failed to parse review ladder file: %w", err)
  }
  if len(cfg.Intervals) == 0 {
    return nil, fmt.Errorf("review ladder file lists no intervals")
  }
  ladder := make([]time.Duration, len(cfg.Intervals))
  for i, raw := range cfg.Intervals {
    d, pErr := time.ParseDuration(raw)
    if pErr != nil {
      return nil, fmt.Errorf("invalid interval %q at position %d: %w", raw, i, pErr)
    }
    if d < 0 {
      return nil, fmt.Errorf("negative interval %q at position %d", raw, i)
    }
    ladder[i] = d
  }
  log.Info("Loaded review ladder", "path", path, "levels", len(ladder))
  return ladder, nil
}

// GetQuizData returns the due items plus one shared distractor pool for the
// whole session. The pool is not filtered per question; the client drops the
// entry matching the item under test when assembling choices.
func (s *reviewService) GetQuizData(ctx context.Context, userID uuid.UUID, limit int) (*QuizData, error) {
  if userID == uuid.Nil {
    return nil, fmt.Errorf("unauthorized")
  }
  if limit <= 0 || limit > maxQuizItems {
    limit = maxQuizItems
  }
  items, err := s.vocabRepo.ListDue(ctx, nil, userID, time.Now(), limit)
  if err != nil {
    return nil, fmt.Errorf("due items lookup failed: %w", err)
  }
  distractors, err := s.vocabRepo.ListDistractors(ctx, nil, userID, uuid.Nil, distractorPoolSize)
  if err != nil {
    return nil, fmt.Errorf("distractor lookup failed: %w", err)
  }
  return &QuizData{Items: items, Distractors: distractors}, nil
}

func (s *reviewService) SubmitReview(ctx context.Context, userID uuid.UUID, itemID uuid.UUID, correct bool) (*ReviewOutcome, error) {
  if userID == uuid.Nil {
    return nil, fmt.Errorf("unauthorized")
  }
  item, err := s.vocabRepo.GetByID(ctx, nil, userID, itemID)
  if err != nil {
    return nil, err
  }

  // Stored levels can exceed the configured ladder when the operator
  // installs a shorter one. Clamp before indexing.
  newLevel := item.ProficiencyLevel
  if newLevel > len(s.ladder)-1 {
    newLevel = len(s.ladder) - 1
  }
  if newLevel < 0 {
    newLevel = 0
  }
  xpGained := 0
  if correct {
    if newLevel < len(s.ladder)-1 {
      newLevel++
    }
    xpGained = 10 + newLevel*2
  } else if newLevel > 0 {
    newLevel--
  }

  nextReview := time.Now().Add(s.ladder[newLevel])
  fields := map[string]interface{}{
    "proficiency_level": newLevel,
    "next_review_at":    nextReview,
  }
  if err := s.vocabRepo.UpdateFields(ctx, nil, item.ID, fields); err != nil {
    return nil, fmt.Errorf("failed to update review state: %w", err)
  }

  if xpGained > 0 {
    if err := s.userRepo.AddXP(ctx, nil, userID, xpGained); err != nil {
      s.log.Warn("Failed to award XP", "error", err, "user_id", userID)
    }
  }

  return &ReviewOutcome{
    NewLevel:     newLevel,
    NextReviewAt: nextReview,
    XPAwarded:    xpGained,
  }, nil
}

func (s *reviewService) Ladder() []time.Duration {
  return s.ladder
}
