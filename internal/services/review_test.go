package services

import (
  "context"
  "os"
  "path/filepath"
  "testing"
  "time"

  "github.com/google/uuid"

  "github.com/yomisnap/yomisnap-backend/internal/logger"
  "github.com/yomisnap/yomisnap-backend/internal/repos"
  "github.com/yomisnap/yomisnap-backend/internal/types"
)

func newReviewFixture(t *testing.T) (ReviewService, repos.VocabularyItemRepo, repos.UserRepo, uuid.UUID) {
  t.Helper()
  db := newTestDB(t)
  log := logger.NewNop()
  vocabRepo := repos.NewVocabularyItemRepo(db, log)
  userRepo := repos.NewUserRepo(db, log)

  user := &types.User{
    ID:       uuid.New(),
    Email:    t.Name() + "@example.com",
    Password: "hashed",
  }
  if _, err := userRepo.Create(context.Background(), nil, []*types.User{user}); err != nil {
    t.Fatalf("seed user: %v", err)
  }

  svc := NewReviewService(log, vocabRepo, userRepo, nil)
  return svc, vocabRepo, userRepo, user.ID
}

func seedReviewItem(t *testing.T, repo repos.VocabularyItemRepo, userID uuid.UUID, word string, level int, due time.Time) *types.VocabularyItem {
  t.Helper()
  item := &types.VocabularyItem{
    ID:               uuid.New(),
    UserID:           userID,
    Word:             word,
    Reading:          "よみ",
    Meaning:          "meaning",
    ProficiencyLevel: level,
    NextReviewAt:     due,
    Source:           types.SourceScan,
  }
  if err := repo.Create(context.Background(), nil, item); err != nil {
    t.Fatalf("seed review item: %v", err)
  }
  return item
}

func TestSubmitReview_LevelBeyondLadderClamped(t *testing.T) {
  _, vocabRepo, userRepo, userID := newReviewFixture(t)
  shortLadder := []time.Duration{0, 10 * time.Minute, 24 * time.Hour}
  svc := NewReviewService(logger.NewNop(), vocabRepo, userRepo, shortLadder)

  t.Run("incorrect decays from the top rung", func(t *testing.T) {
    item := seedReviewItem(t, vocabRepo, userID, "階段", 5, time.Now().Add(-time.Hour))
    outcome, err := svc.SubmitReview(context.Background(), userID, item.ID, false)
    if err != nil {
      t.Fatalf("SubmitReview: %v", err)
    }
    if outcome.NewLevel != len(shortLadder)-2 {
      t.Fatalf("level: want %d, got %d", len(shortLadder)-2, outcome.NewLevel)
    }
  })

  t.Run("correct stays on the top rung", func(t *testing.T) {
    item := seedReviewItem(t, vocabRepo, userID, "天井", 7, time.Now().Add(-time.Hour))
    outcome, err := svc.SubmitReview(context.Background(), userID, item.ID, true)
    if err != nil {
      t.Fatalf("SubmitReview: %v", err)
    }
    if outcome.NewLevel != len(shortLadder)-1 {
      t.Fatalf("level: want %d, got %d", len(shortLadder)-1, outcome.NewLevel)
    }
    gotInterval := time.Until(outcome.NextReviewAt)
    want := shortLadder[len(shortLadder)-1]
    if gotInterval > want+time.Minute || gotInterval < want-time.Minute {
      t.Fatalf("interval: want ~%v, got %v", want, gotInterval)
    }
  })
}

func TestSubmitReview_LevelTransitions(t *testing.T) {
  tests := []struct {
    name      string
    level     int
    correct   bool
    wantLevel int
    wantXP    int
  }{
    {"correct climbs", 0, true, 1, 12},
    {"correct mid ladder", 2, true, 3, 16},
    {"correct clamped at top", 5, true, 5, 20},
    {"incorrect decays", 3, false, 2, 0},
    {"incorrect floored at zero", 0, false, 0, 0},
  }
  for _, tt := range tests {
    t.Run(tt.name, func(t *testing.T) {
      svc, vocabRepo, _, userID := newReviewFixture(t)
      item := seedReviewItem(t, vocabRepo, userID, "語", tt.level, time.Now().Add(-time.Hour))

      outcome, err := svc.SubmitReview(context.Background(), userID, item.ID, tt.correct)
      if err != nil {
        t.Fatalf("SubmitReview: %v", err)
      }
      if outcome.NewLevel != tt.wantLevel {
        t.Fatalf("level: want %d, got %d", tt.wantLevel, outcome.NewLevel)
      }
      if outcome.XPAwarded != tt.wantXP {
        t.Fatalf("xp: want %d, got %d", tt.wantXP, outcome.XPAwarded)
      }
      if outcome.NextReviewAt.Before(time.Now().Add(-time.Minute)) {
        t.Fatalf("next review in the past: %v", outcome.NextReviewAt)
      }
      wantInterval := DefaultReviewLadder[tt.wantLevel]
      gotInterval := time.Until(outcome.NextReviewAt)
      if gotInterval > wantInterval+time.Minute || gotInterval < wantInterval-time.Minute {
        t.Fatalf("interval for level %d: want ~%v, got %v", tt.wantLevel, wantInterval, gotInterval)
      }

      reread, err := vocabRepo.GetByID(context.Background(), nil, userID, item.ID)
      if err != nil {
        t.Fatalf("reread: %v", err)
      }
      if reread.ProficiencyLevel != tt.wantLevel {
        t.Fatalf("persisted level: want %d, got %d", tt.wantLevel, reread.ProficiencyLevel)
      }
    })
  }
}

func TestSubmitReview_AwardsXPOnProfile(t *testing.T) {
  svc, vocabRepo, userRepo, userID := newReviewFixture(t)
  item := seedReviewItem(t, vocabRepo, userID, "字", 1, time.Now().Add(-time.Minute))

  outcome, err := svc.SubmitReview(context.Background(), userID, item.ID, true)
  if err != nil {
    t.Fatalf("SubmitReview: %v", err)
  }
  users, err := userRepo.GetByIDs(context.Background(), nil, []uuid.UUID{userID})
  if err != nil || len(users) == 0 {
    t.Fatalf("load user: %v", err)
  }
  if users[0].XP != outcome.XPAwarded {
    t.Fatalf("profile xp: want %d, got %d", outcome.XPAwarded, users[0].XP)
  }
}

func TestSubmitReview_WrongOwnerRejected(t *testing.T) {
  svc, vocabRepo, _, userID := newReviewFixture(t)
  item := seedReviewItem(t, vocabRepo, userID, "金", 0, time.Now())

  if _, err := svc.SubmitReview(context.Background(), uuid.New(), item.ID, true); err == nil {
    t.Fatal("expected error for foreign item")
  }
}

func TestListDistractors_ExcludesGivenItem(t *testing.T) {
  _, vocabRepo, _, userID := newReviewFixture(t)
  ctx := context.Background()
  tested := seedReviewItem(t, vocabRepo, userID, "本命", 1, time.Now().Add(-time.Hour))
  other := seedReviewItem(t, vocabRepo, userID, "他人", 1, time.Now().Add(-time.Hour))

  pool, err := vocabRepo.ListDistractors(ctx, nil, userID, tested.ID, 10)
  if err != nil {
    t.Fatalf("ListDistractors: %v", err)
  }
  if len(pool) != 1 {
    t.Fatalf("expected 1 distractor, got %d", len(pool))
  }
  if pool[0].ID != other.ID {
    t.Fatalf("wrong distractor: got %s, want %s", pool[0].ID, other.ID)
  }
}

func TestGetQuizData_DueFilterAndDistractors(t *testing.T) {
  svc, vocabRepo, _, userID := newReviewFixture(t)
  now := time.Now()
  seedReviewItem(t, vocabRepo, userID, "一", 0, now.Add(-2*time.Hour))
  seedReviewItem(t, vocabRepo, userID, "二", 1, now.Add(-time.Hour))
  seedReviewItem(t, vocabRepo, userID, "三", 2, now.Add(48*time.Hour))

  data, err := svc.GetQuizData(context.Background(), userID, 0)
  if err != nil {
    t.Fatalf("GetQuizData: %v", err)
  }
  if len(data.Items) != 2 {
    t.Fatalf("expected 2 due items, got %d", len(data.Items))
  }
  // Earliest due first.
  if data.Items[0].Word != "一" {
    t.Fatalf("expected oldest due first, got %q", data.Items[0].Word)
  }
  if len(data.Distractors) != 3 {
    t.Fatalf("expected full distractor pool, got %d", len(data.Distractors))
  }
}

func TestLoadReviewLadder_FromYAML(t *testing.T) {
  path := filepath.Join(t.TempDir(), "ladder.yaml")
  content := "intervals:\n  - 0s\n  - 5m\n  - 12h\n"
  if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
    t.Fatalf("write ladder file: %v", err)
  }
  t.Setenv("REVIEW_LADDER_FILE", path)

  ladder, err := LoadReviewLadder(logger.NewNop())
  if err != nil {
    t.Fatalf("LoadReviewLadder: %v", err)
  }
  want := []time.Duration{0, 5 * time.Minute, 12 * time.Hour}
  if len(ladder) != len(want) {
    t.Fatalf("ladder length: want %d, got %d", len(want), len(ladder))
  }
  for i := range want {
    if ladder[i] != want[i] {
      t.Fatalf("ladder[%d]: want %v, got %v", i, want[i], ladder[i])
    }
  }
}

func TestLoadReviewLadder_DefaultWhenUnset(t *testing.T) {
  t.Setenv("REVIEW_LADDER_FILE", "")
  ladder, err := LoadReviewLadder(logger.NewNop())
  if err != nil {
    t.Fatalf("LoadReviewLadder: %v", err)
  }
  if len(ladder) != len(DefaultReviewLadder) {
    t.Fatalf("expected default ladder, got %d levels", len(ladder))
  }
}

func TestLoadReviewLadder_RejectsBadIntervals(t *testing.T) {
  path := filepath.Join(t.TempDir(), "ladder.yaml")
  if err := os.WriteFile(path, []byte("intervals:\n  - banana\n"), 0o600); err != nil {
    t.Fatalf("write ladder file: %v", err)
  }
  t.Setenv("REVIEW_LADDER_FILE", path)
  if _, err := LoadReviewLadder(logger.NewNop()); err == nil {
    t.Fatal("expected parse error for invalid interval")
  }
}
