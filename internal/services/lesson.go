package services

import (
  "context"
  "fmt"
  "strings"

  "github.com/google/uuid"

  "github.com/yomisnap/yomisnap-backend/internal/logger"
  "github.com/yomisnap/yomisnap-backend/internal/repos"
  "github.com/yomisnap/yomisnap-backend/internal/types"
)

const lessonSystemPrompt = "You are a helpful Japanese language tutor. Return valid JSON."

// DefaultFallbackLesson is served per word when generation cannot produce a
// usable breakdown. Enriched stays nil so the saved record remains pending and
// is picked up again by a later enrichment pass.
var DefaultFallbackLesson = types.LessonDraft{
  Word:               "日本語",
  Reading:            "Nihongo",
  Meaning:            "Japanese Language",
  ExampleSentence:    "日本語を勉強しています。",
  ExampleReading:     "Nihongo o benkyou shiteimasu.",
  ExampleTranslation: "I am studying Japanese.",
}

// LessonService resolves a batch of words against the owner's vocabulary and
// generates lesson content for the rest in a single model call.
type LessonService interface {
  ResolveLessons(ctx context.Context, userID uuid.UUID, words []string, contextText string) ([]types.LessonResult, error)
}

type lessonService struct {
  log       *logger.Logger
  vocabRepo repos.VocabularyItemRepo
  aiClient  OpenAIClient
}

func NewLessonService(log *logger.Logger, vocabRepo repos.VocabularyItemRepo, aiClient OpenAIClient) LessonService {
  return &lessonService{
    log:       log.With("service", "LessonService"),
    vocabRepo: vocabRepo,
    aiClient:  aiClient,
  }
}

func (s *lessonService) ResolveLessons(ctx context.Context, userID uuid.UUID, words []string, contextText string) ([]types.LessonResult, error) {
  if userID == uuid.Nil {
    return nil, fmt.Errorf("unauthorized")
  }

  cleaned := dedupeWords(words)
  if len(cleaned) == 0 {
    return nil, fmt.Errorf("no words to resolve")
  }

  existing, err := s.vocabRepo.GetByWords(ctx, nil, userID, cleaned)
  if err != nil {
    return nil, fmt.Errorf("vocabulary lookup failed: %w", err)
  }
  existingByWord := make(map[string]*types.VocabularyItem, len(existing))
  for _, item := range existing {
    existingByWord[item.Word] = item
  }

  // Pending records (saved from a fallback, never enriched) go back through
  // generation instead of being served as-is.
  var toGenerate []string
  for _, w := range cleaned {
    item, known := existingByWord[w]
    if !known || !item.Enriched() {
      toGenerate = append(toGenerate, w)
    }
  }

  var generated map[string]types.LessonDraft
  if len(toGenerate) > 0 {
    generated = s.generateBatch(ctx, toGenerate, contextText)
  }

  results := make([]types.LessonResult, 0, len(cleaned))
  for _, w := range cleaned {
    if item, known := existingByWord[w]; known && item.Enriched() {
      results = append(results, types.LessonResult{Existing: item})
      continue
    }
    draft, ok := generated[w]
    if !ok {
      draft = fallbackLesson(w)
    }
    results = append(results, types.LessonResult{Generated: &draft})
  }
  return results, nil
}

// generateBatch asks for every word in one call and degrades per word. It
// never returns an error: a failed call yields an empty map and the caller
// substitutes fallbacks.
func (s *lessonService) generateBatch(ctx context.Context, words []string, contextText string) map[string]types.LessonDraft {
  drafts := make(map[string]types.LessonDraft, len(words))
  if s.aiClient == nil {
    s.log.Warn("No generation client configured, serving fallback lessons", "words", len(words))
    return drafts
  }

  raw, err := s.aiClient.CompleteJSON(ctx, lessonSystemPrompt, buildBatchPrompt(words, contextText))
  if err != nil {
    s.log.Warn("Batch lesson generation failed", "error", err, "words", len(words))
    return drafts
  }

  // Some model replies collapse a one-word batch into a flat lesson object
  // instead of keying it by word.
  if len(words) == 1 {
    if _, keyed := raw[words[0]]; !keyed && looksLikeLessonPayload(raw) {
      raw = map[string]any{words[0]: raw}
    }
  }

  for _, w := range words {
    payload, ok := raw[w].(map[string]any)
    if !ok {
      s.log.Warn("Generation response missing word", "word", w)
      continue
    }
    drafts[w] = normalizeLesson(w, payload)
  }
  return drafts
}

func buildBatchPrompt(words []string, contextText string) string {
  quoted := make([]string, len(words))
  for i, w := range words {
    quoted[i] = fmt.Sprintf("%q", w)
  }
  sharedContext := []rune(contextText)
  if len(sharedContext) > 300 {
    sharedContext = sharedContext[:300]
  }

  var b strings.Builder
  fmt.Fprintf(&b, "Analyze the following Japanese words: [%s].\n", strings.Join(quoted, ", "))
  fmt.Fprintf(&b, "Shared Context: %q.\n\n", string(sharedContext))
  b.WriteString(`TASK: Create a detailed "Vocabulary Card Drill" for each word.

STRICT JSON OUTPUT STRUCTURE (For each word key):
{
  "currentKanji": "The Kanji itself",
  "basicInfo": {
    "meaning": "English keywords separated by slashes",
    "radical": "Root component (e.g., 气)"
  },
  "readings": {
    "onyomi": { "kana": "Katakana reading", "note": "Usage note" },
    "kunyomi": { "kana": "Hiragana reading", "note": "Usage note" }
  },
  "combinations": [
    { "word": "Compound Word", "reading": "Reading", "meaning": "Meaning", "targetKanji": "The OTHER kanji in the word to learn next" }
  ],
  "dialogue": [
    { "speaker": "A", "japanese": "Sentence using the word", "english": "Translation" },
    { "speaker": "B", "japanese": "Response using the word (if possible)", "english": "Translation" }
  ],
  "context_usage": { "sentence": "One of the dialogue sentences", "reading": "Romaji reading", "english": "Translation" }
}

STRICT RULES:
1. Use the JSON keys provided exactly.
2. Provide exactly 5 essential combinations, each with "targetKanji" (the partner character).
3. Dialogue MUST be conversational (A/B).`)
  return b.String()
}

func fallbackLesson(word string) types.LessonDraft {
  d := DefaultFallbackLesson
  d.Word = word
  return d
}

// looksLikeLessonPayload reports whether a JSON object is a lesson body rather
// than a word-keyed envelope.
func looksLikeLessonPayload(m map[string]any) bool {
  for _, key := range []string{"currentKanji", "basicInfo", "readings", "combinations", "dialogue"} {
    if _, ok := m[key]; ok {
      return true
    }
  }
  return false
}

// normalizeLesson maps one word's payload onto a draft, tolerating the field
// name variants the model is known to produce (on_reading vs onyomi, snake
// case combination keys).
func normalizeLesson(word string, payload map[string]any) types.LessonDraft {
  draft := types.LessonDraft{Word: word}

  basicInfo := subObject(payload, "basicInfo", "basic_info")
  readings := subObject(payload, "readings")

  draft.Meaning = stringField(basicInfo, "meaning")
  if draft.Meaning == "" {
    draft.Meaning = "Meaning"
  }

  onyomi := readingNote(subObject(readings, "onyomi", "on_reading"))
  kunyomi := readingNote(subObject(readings, "kunyomi", "kun_reading"))
  draft.Reading = joinReadings(onyomi.Kana, kunyomi.Kana)
  if draft.Reading == "" {
    draft.Reading = "Reading"
  }

  dialogue := dialogueLines(payload["dialogue"])

  contextUsage := subObject(payload, "context_usage", "contextUsage")
  draft.ExampleSentence = stringField(contextUsage, "sentence")
  draft.ExampleReading = stringField(contextUsage, "reading")
  draft.ExampleTranslation = stringField(contextUsage, "english")
  if draft.ExampleSentence == "" && len(dialogue) > 0 {
    draft.ExampleSentence = dialogue[0].Japanese
    draft.ExampleTranslation = dialogue[0].English
  }

  draft.Enriched = &types.EnrichedLesson{
    BasicInfo: types.LessonBasicInfo{
      Meaning: draft.Meaning,
      Radical: stringField(basicInfo, "radical"),
    },
    Readings: types.LessonReadings{
      Onyomi:  onyomi,
      Kunyomi: kunyomi,
    },
    Combinations: combinationList(payload["combinations"]),
    Dialogue:     dialogue,
  }
  return draft
}

func readingNote(m map[string]any) types.ReadingNote {
  return types.ReadingNote{
    Kana: stringField(m, "kana"),
    Note: stringField(m, "note"),
  }
}

func joinReadings(on, kun string) string {
  switch {
  case on != "" && kun != "":
    return on + " / " + kun
  case on != "":
    return on
  default:
    return kun
  }
}

func combinationList(v any) []types.Combination {
  items, ok := v.([]any)
  if !ok {
    return nil
  }
  combos := make([]types.Combination, 0, len(items))
  for _, item := range items {
    m, ok := item.(map[string]any)
    if !ok {
      continue
    }
    combo := types.Combination{
      Word:        stringField(m, "word"),
      Reading:     stringField(m, "reading"),
      Meaning:     stringField(m, "meaning"),
      TargetKanji: stringField(m, "targetKanji", "target_kanji"),
    }
    if combo.Word == "" {
      continue
    }
    combos = append(combos, combo)
  }
  return combos
}

func dialogueLines(v any) []types.DialogueLine {
  items, ok := v.([]any)
  if !ok {
    return nil
  }
  lines := make([]types.DialogueLine, 0, len(items))
  for _, item := range items {
    m, ok := item.(map[string]any)
    if !ok {
      continue
    }
    line := types.DialogueLine{
      Speaker:  stringField(m, "speaker"),
      Japanese: stringField(m, "japanese"),
      English:  stringField(m, "english"),
    }
    if line.Japanese == "" {
      continue
    }
    lines = append(lines, line)
  }
  return lines
}

func subObject(m map[string]any, keys ...string) map[string]any {
  if m == nil {
    return nil
  }
  for _, key := range keys {
    if sub, ok := m[key].(map[string]any); ok {
      return sub
    }
  }
  return nil
}

func stringField(m map[string]any, keys ...string) string {
  if m == nil {
    return ""
  }
  for _, key := range keys {
    if s, ok := m[key].(string); ok && strings.TrimSpace(s) != "" {
      return strings.TrimSpace(s)
    }
  }
  return ""
}

func dedupeWords(words []string) []string {
  seen := make(map[string]struct{}, len(words))
  out := make([]string, 0, len(words))
  for _, w := range words {
    w = strings.TrimSpace(w)
    if w == "" {
      continue
    }
    if _, dup := seen[w]; dup {
      continue
    }
    seen[w] = struct{}{}
    out = append(out, w)
  }
  return out
}
