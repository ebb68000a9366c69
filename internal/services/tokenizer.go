package services

import (
  "strings"
  "unicode"

  "github.com/ikawaha/kagome-dict/ipa"
  "github.com/ikawaha/kagome/v2/tokenizer"

  "github.com/yomisnap/yomisnap-backend/internal/logger"
)

// TokenizerService segments a Japanese OCR transcript into candidate
// vocabulary words for the selection UI.
type TokenizerService interface {
  CandidateWords(transcript string) []string
}

// CandidateWord pulls content words only: these are the IPA-dictionary POS
// labels for nouns, verbs and adjectives.
var contentPOS = map[string]bool{
  "名詞":  true,
  "動詞":  true,
  "形容詞": true,
}

type tokenizerService struct {
  log *logger.Logger
  t   *tokenizer.Tokenizer
}

func NewTokenizerService(log *logger.Logger) (TokenizerService, error) {
  t, err := tokenizer.New(ipa.Dict(), tokenizer.OmitBosEos())
  if err != nil {
    return nil, err
  }
  return &tokenizerService{
    log: log.With("service", "TokenizerService"),
    t:   t,
  }, nil
}

func (s *tokenizerService) CandidateWords(transcript string) []string {
  if strings.TrimSpace(transcript) == "" {
    return nil
  }

  tokens := s.t.Tokenize(transcript)
  seen := make(map[string]bool, len(tokens))
  out := make([]string, 0, len(tokens))

  for _, token := range tokens {
    if token.Class == tokenizer.DUMMY {
      continue
    }
    surface := strings.TrimSpace(token.Surface)
    if surface == "" {
      continue
    }

    features := token.Features()
    if len(features) == 0 || !contentPOS[features[0]] {
      continue
    }
    // IPA feature layout: 0 POS, 1-3 sub-POS, 4-5 conjugation, 6 base form.
    word := surface
    if len(features) > 6 && features[6] != "*" {
      word = features[6]
    }
    if !containsLetter(word) {
      continue
    }
    if seen[word] {
      continue
    }
    seen[word] = true
    out = append(out, word)
  }
  return out
}

func containsLetter(s string) bool {
  for _, r := range s {
    if unicode.IsLetter(r) {
      return true
    }
  }
  return false
}
