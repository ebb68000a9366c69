package types

// ReadingNote is one reading (on or kun) with a short usage note.
type ReadingNote struct {
  Kana string `json:"kana"`
  Note string `json:"note,omitempty"`
}

type LessonReadings struct {
  Onyomi  ReadingNote `json:"onyomi"`
  Kunyomi ReadingNote `json:"kunyomi"`
}

type LessonBasicInfo struct {
  Meaning string `json:"meaning"`
  Radical string `json:"radical,omitempty"`
}

// Combination is a compound word built from the studied character; TargetKanji
// names the partner character to learn next.
type Combination struct {
  Word        string `json:"word"`
  Reading     string `json:"reading"`
  Meaning     string `json:"meaning"`
  TargetKanji string `json:"targetKanji,omitempty"`
}

type DialogueLine struct {
  Speaker  string `json:"speaker"`
  Japanese string `json:"japanese"`
  English  string `json:"english"`
}

// EnrichedLesson is the structured breakdown the generator produces for one
// word. Written to VocabularyItem.EnrichedData all-or-nothing.
type EnrichedLesson struct {
  BasicInfo    LessonBasicInfo `json:"basicInfo"`
  Readings     LessonReadings  `json:"readings"`
  Combinations []Combination   `json:"combinations,omitempty"`
  Dialogue     []DialogueLine  `json:"dialogue,omitempty"`
}

// LessonDraft is normalized, not-yet-persisted enrichment data for one word.
// A nil Enriched marks a placeholder draft: the record it creates stays in the
// pending state until a later enrichment pass fills it.
type LessonDraft struct {
  Word               string          `json:"word"`
  Reading            string          `json:"reading"`
  Meaning            string          `json:"meaning"`
  ExampleSentence    string          `json:"example_sentence"`
  ExampleReading     string          `json:"example_reading,omitempty"`
  ExampleTranslation string          `json:"example_translation"`
  Enriched           *EnrichedLesson `json:"enriched,omitempty"`
}

// LessonResult is the outcome of resolving one requested word: either the
// owner's existing record or a freshly generated draft, never both.
type LessonResult struct {
  Existing  *VocabularyItem `json:"existing,omitempty"`
  Generated *LessonDraft    `json:"generated,omitempty"`
}
