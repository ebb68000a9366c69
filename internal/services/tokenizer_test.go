package services

import (
  "testing"

  "github.com/yomisnap/yomisnap-backend/internal/logger"
)

func TestCandidateWords(t *testing.T) {
  svc, err := NewTokenizerService(logger.NewNop())
  if err != nil {
    t.Fatalf("NewTokenizerService: %v", err)
  }

  t.Run("keeps content words drops particles", func(t *testing.T) {
    words := svc.CandidateWords("私は水を飲む")
    set := toSet(words)
    if _, ok := set["水"]; !ok {
      t.Fatalf("expected 水 in candidates, got %v", words)
    }
    if _, ok := set["飲む"]; !ok {
      t.Fatalf("expected base form 飲む in candidates, got %v", words)
    }
    if _, ok := set["は"]; ok {
      t.Fatalf("particle は must be dropped, got %v", words)
    }
    if _, ok := set["を"]; ok {
      t.Fatalf("particle を must be dropped, got %v", words)
    }
  })

  t.Run("dedupes repeated words", func(t *testing.T) {
    words := svc.CandidateWords("水と水と水")
    count := 0
    for _, w := range words {
      if w == "水" {
        count++
      }
    }
    if count != 1 {
      t.Fatalf("expected 水 once, got %d times in %v", count, words)
    }
  })

  t.Run("empty transcript", func(t *testing.T) {
    if words := svc.CandidateWords(""); len(words) != 0 {
      t.Fatalf("expected no candidates, got %v", words)
    }
  })

  t.Run("digits are not vocabulary", func(t *testing.T) {
    words := svc.CandidateWords("1200円")
    if _, ok := toSet(words)["1200"]; ok {
      t.Fatalf("bare number must be dropped, got %v", words)
    }
  })
}

func toSet(words []string) map[string]struct{} {
  set := make(map[string]struct{}, len(words))
  for _, w := range words {
    set[w] = struct{}{}
  }
  return set
}
