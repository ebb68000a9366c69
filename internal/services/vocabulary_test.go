package services

import (
  "context"
  "testing"
  "time"

  "github.com/google/uuid"
  "gorm.io/gorm"

  "github.com/yomisnap/yomisnap-backend/internal/logger"
  "github.com/yomisnap/yomisnap-backend/internal/repos"
  "github.com/yomisnap/yomisnap-backend/internal/types"
)

func enrichedDraft(word string) *types.LessonDraft {
  return &types.LessonDraft{
    Word:               word,
    Reading:            "よみ",
    Meaning:            "meaning of " + word,
    ExampleSentence:    word + "です。",
    ExampleTranslation: "It is " + word + ".",
    Enriched: &types.EnrichedLesson{
      BasicInfo: types.LessonBasicInfo{Meaning: "meaning of " + word},
      Readings:  types.LessonReadings{Kunyomi: types.ReadingNote{Kana: "よみ"}},
    },
  }
}

func newVocabFixture(t *testing.T) (VocabularyService, repos.VocabularyItemRepo, repos.CaptureVocabularyLinkRepo, *fakeAIClient) {
  t.Helper()
  db := newTestDB(t)
  log := logger.NewNop()
  vocabRepo := repos.NewVocabularyItemRepo(db, log)
  linkRepo := repos.NewCaptureVocabularyLinkRepo(db, log)
  ai := &fakeAIClient{}
  lessonSvc := NewLessonService(log, vocabRepo, ai)
  svc := NewVocabularyService(db, log, vocabRepo, linkRepo, lessonSvc)
  return svc, vocabRepo, linkRepo, ai
}

// raceWindowVocabRepo hides an existing word from a fixed number of lookups,
// so the following insert collides with the unique index the way a concurrent
// save landing between lookup and create would.
type raceWindowVocabRepo struct {
  repos.VocabularyItemRepo
  misses int
}

func (r *raceWindowVocabRepo) GetByWord(ctx context.Context, tx *gorm.DB, userID uuid.UUID, word string) (*types.VocabularyItem, error) {
  if r.misses > 0 {
    r.misses--
    return nil, nil
  }
  return r.VocabularyItemRepo.GetByWord(ctx, tx, userID, word)
}

func TestVocabularySave_RecoversFromConcurrentCreate(t *testing.T) {
  db := newTestDB(t)
  log := logger.NewNop()
  stub := &raceWindowVocabRepo{VocabularyItemRepo: repos.NewVocabularyItemRepo(db, log)}
  linkRepo := repos.NewCaptureVocabularyLinkRepo(db, log)
  svc := NewVocabularyService(db, log, stub, linkRepo, NewLessonService(log, stub, &fakeAIClient{}))
  ctx := context.Background()
  userID := uuid.New()

  first, merged, err := svc.Save(ctx, userID, enrichedDraft("衝突"), nil, nil, "")
  if err != nil {
    t.Fatalf("first save: %v", err)
  }
  if merged {
    t.Fatal("first save must create")
  }

  // The next save does not see the row, inserts, and hits the unique index.
  stub.misses = 1
  second, merged, err := svc.Save(ctx, userID, enrichedDraft("衝突"), nil, nil, "")
  if err != nil {
    t.Fatalf("save after losing the race: %v", err)
  }
  if !merged {
    t.Fatal("save must fall back to merge after the duplicate insert")
  }
  if second.ID != first.ID {
    t.Fatalf("merge resolved to a different record: %s vs %s", second.ID, first.ID)
  }

  all, err := stub.ListByUserID(ctx, nil, userID)
  if err != nil {
    t.Fatalf("list: %v", err)
  }
  if len(all) != 1 {
    t.Fatalf("expected a single record, got %d", len(all))
  }
}

func TestVocabularySave_CreateThenMerge(t *testing.T) {
  svc, vocabRepo, linkRepo, _ := newVocabFixture(t)
  ctx := context.Background()
  userID := uuid.New()
  captureA := uuid.New()
  captureB := uuid.New()

  item, merged, err := svc.Save(ctx, userID, enrichedDraft("勉強"), nil, &captureA, "")
  if err != nil {
    t.Fatalf("first save: %v", err)
  }
  if merged {
    t.Fatal("first save must create, not merge")
  }
  if item.ProficiencyLevel != 0 {
    t.Fatalf("new item should start at level 0, got %d", item.ProficiencyLevel)
  }
  if item.Source != types.SourceScan {
    t.Fatalf("expected default source scan, got %q", item.Source)
  }
  if time.Until(item.NextReviewAt) > time.Minute {
    t.Fatalf("new item should be due immediately, next review %v", item.NextReviewAt)
  }

  again, merged, err := svc.Save(ctx, userID, enrichedDraft("勉強"), nil, &captureB, "")
  if err != nil {
    t.Fatalf("second save: %v", err)
  }
  if !merged {
    t.Fatal("second save of the same word must merge")
  }
  if again.ID != item.ID {
    t.Fatalf("merge produced a different record: %s vs %s", again.ID, item.ID)
  }

  all, err := vocabRepo.ListByUserID(ctx, nil, userID)
  if err != nil {
    t.Fatalf("list: %v", err)
  }
  if len(all) != 1 {
    t.Fatalf("expected exactly one record per (owner, word), got %d", len(all))
  }

  links, err := linkRepo.ListByVocabularyID(ctx, nil, userID, item.ID)
  if err != nil {
    t.Fatalf("list links: %v", err)
  }
  if len(links) != 2 {
    t.Fatalf("expected links to both captures, got %d", len(links))
  }
}

func TestVocabularySave_LinkIdempotent(t *testing.T) {
  svc, _, linkRepo, _ := newVocabFixture(t)
  ctx := context.Background()
  userID := uuid.New()
  captureID := uuid.New()

  item, _, err := svc.Save(ctx, userID, enrichedDraft("本"), nil, &captureID, "")
  if err != nil {
    t.Fatalf("first save: %v", err)
  }
  if _, _, err := svc.Save(ctx, userID, enrichedDraft("本"), nil, &captureID, ""); err != nil {
    t.Fatalf("repeat save: %v", err)
  }

  links, err := linkRepo.ListByVocabularyID(ctx, nil, userID, item.ID)
  if err != nil {
    t.Fatalf("list links: %v", err)
  }
  if len(links) != 1 {
    t.Fatalf("repeated link must be a no-op, got %d links", len(links))
  }
}

func TestVocabularySave_OwnersIsolated(t *testing.T) {
  svc, vocabRepo, _, _ := newVocabFixture(t)
  ctx := context.Background()
  alice := uuid.New()
  bob := uuid.New()

  if _, _, err := svc.Save(ctx, alice, enrichedDraft("猫"), nil, nil, ""); err != nil {
    t.Fatalf("alice save: %v", err)
  }
  _, merged, err := svc.Save(ctx, bob, enrichedDraft("猫"), nil, nil, "")
  if err != nil {
    t.Fatalf("bob save: %v", err)
  }
  if merged {
    t.Fatal("same word under a different owner must create, not merge")
  }
  aliceItems, _ := vocabRepo.ListByUserID(ctx, nil, alice)
  bobItems, _ := vocabRepo.ListByUserID(ctx, nil, bob)
  if len(aliceItems) != 1 || len(bobItems) != 1 {
    t.Fatalf("expected one item each, got %d and %d", len(aliceItems), len(bobItems))
  }
}

func TestVocabularyPlaceholders_NeverOverwriteEnrichment(t *testing.T) {
  svc, vocabRepo, _, _ := newVocabFixture(t)
  ctx := context.Background()
  userID := uuid.New()

  item, _, err := svc.Save(ctx, userID, enrichedDraft("魚"), nil, nil, "")
  if err != nil {
    t.Fatalf("save enriched: %v", err)
  }

  if _, err := svc.SavePlaceholders(ctx, userID, []string{"魚", "肉"}, nil); err != nil {
    t.Fatalf("save placeholders: %v", err)
  }

  reread, err := vocabRepo.GetByID(ctx, nil, userID, item.ID)
  if err != nil {
    t.Fatalf("reread: %v", err)
  }
  if reread.Meaning != "meaning of 魚" {
    t.Fatalf("placeholder overwrote enriched meaning: %q", reread.Meaning)
  }
  if !reread.Enriched() {
    t.Fatal("placeholder wiped enrichment data")
  }

  pending, err := vocabRepo.GetByWord(ctx, nil, userID, "肉")
  if err != nil || pending == nil {
    t.Fatalf("placeholder for new word missing: %v", err)
  }
  if pending.Enriched() {
    t.Fatal("fresh placeholder must be pending")
  }
  if pending.Reading != "Generating..." {
    t.Fatalf("unexpected placeholder reading %q", pending.Reading)
  }
}

func TestVocabularyEnrichPending(t *testing.T) {
  svc, vocabRepo, _, ai := newVocabFixture(t)
  ctx := context.Background()
  userID := uuid.New()

  if _, err := svc.SavePlaceholders(ctx, userID, []string{"駅"}, nil); err != nil {
    t.Fatalf("save placeholder: %v", err)
  }
  ai.jsonResponse = map[string]any{
    "駅": map[string]any{
      "basicInfo": map[string]any{"meaning": "station"},
      "readings":  map[string]any{"kunyomi": map[string]any{"kana": "えき"}},
      "context_usage": map[string]any{
        "sentence": "駅はどこですか。",
        "english":  "Where is the station?",
      },
    },
  }

  enriched, err := svc.EnrichPending(ctx, userID, "signs near a station", 0)
  if err != nil {
    t.Fatalf("enrich pending: %v", err)
  }
  if enriched != 1 {
    t.Fatalf("expected 1 enriched record, got %d", enriched)
  }

  item, err := vocabRepo.GetByWord(ctx, nil, userID, "駅")
  if err != nil || item == nil {
    t.Fatalf("reread: %v", err)
  }
  if !item.Enriched() {
    t.Fatal("record still pending after enrichment pass")
  }
  if item.Meaning != "station" || item.Reading != "えき" {
    t.Fatalf("enrichment not applied in place: %+v", item)
  }

  // Second pass finds nothing pending and makes no model call.
  before := ai.completeJSONCalls
  n, err := svc.EnrichPending(ctx, userID, "", 0)
  if err != nil || n != 0 {
    t.Fatalf("expected empty second pass, got n=%d err=%v", n, err)
  }
  if ai.completeJSONCalls != before {
    t.Fatal("empty sweep must not call the model")
  }
}

func TestVocabularyDelete_RemovesLinks(t *testing.T) {
  svc, vocabRepo, linkRepo, _ := newVocabFixture(t)
  ctx := context.Background()
  userID := uuid.New()
  captureID := uuid.New()

  item, _, err := svc.Save(ctx, userID, enrichedDraft("花"), nil, &captureID, "")
  if err != nil {
    t.Fatalf("save: %v", err)
  }
  if err := svc.Delete(ctx, userID, item.ID); err != nil {
    t.Fatalf("delete: %v", err)
  }
  if got, err := vocabRepo.GetByWord(ctx, nil, userID, "花"); err != nil || got != nil {
    t.Fatalf("item still present after delete: %+v err=%v", got, err)
  }
  links, err := linkRepo.ListByVocabularyID(ctx, nil, userID, item.ID)
  if err != nil {
    t.Fatalf("list links: %v", err)
  }
  if len(links) != 0 {
    t.Fatalf("links survived delete: %d", len(links))
  }
}
