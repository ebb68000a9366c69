package handlers

import (
  "fmt"
  "net/http"

  "github.com/gin-gonic/gin"
  "github.com/google/uuid"

  "github.com/yomisnap/yomisnap-backend/internal/requestdata"
  "github.com/yomisnap/yomisnap-backend/internal/services"
  "github.com/yomisnap/yomisnap-backend/internal/types"
)

type VocabularyHandler struct {
  lessonService     services.LessonService
  vocabularyService services.VocabularyService
}

func NewVocabularyHandler(lessonService services.LessonService, vocabularyService services.VocabularyService) *VocabularyHandler {
  return &VocabularyHandler{
    lessonService:     lessonService,
    vocabularyService: vocabularyService,
  }
}

func (vh *VocabularyHandler) ResolveLessons(c *gin.Context) {
  userID := requestdata.UserID(c.Request.Context())
  var req struct {
    Words   []string `json:"words"`
    Context string   `json:"context"`
  }
  if err := c.ShouldBindJSON(&req); err != nil {
    RespondError(c, http.StatusBadRequest, "invalid_body", fmt.Errorf("invalid request body"))
    return
  }
  results, err := vh.lessonService.ResolveLessons(c.Request.Context(), userID, req.Words, req.Context)
  if err != nil {
    RespondError(c, http.StatusBadRequest, "resolve_failed", err)
    return
  }
  RespondOK(c, gin.H{"lessons": results})
}

func (vh *VocabularyHandler) Save(c *gin.Context) {
  userID := requestdata.UserID(c.Request.Context())
  var req struct {
    Lesson     *types.LessonDraft `json:"lesson"`
    ExistingID *uuid.UUID         `json:"existing_id"`
    CaptureID  *uuid.UUID         `json:"capture_id"`
    Source     string             `json:"source"`
  }
  if err := c.ShouldBindJSON(&req); err != nil {
    RespondError(c, http.StatusBadRequest, "invalid_body", fmt.Errorf("invalid request body"))
    return
  }
  item, merged, err := vh.vocabularyService.Save(c.Request.Context(), userID, req.Lesson, req.ExistingID, req.CaptureID, req.Source)
  if err != nil {
    RespondError(c, http.StatusBadRequest, "save_failed", err)
    return
  }
  RespondOK(c, gin.H{"item": item, "merged": merged})
}

// SaveSelections persists placeholder records for the user's selected words
// and returns immediately: enrichment happens on a later pass.
func (vh *VocabularyHandler) SaveSelections(c *gin.Context) {
  userID := requestdata.UserID(c.Request.Context())
  var req struct {
    Words     []string   `json:"words"`
    CaptureID *uuid.UUID `json:"capture_id"`
  }
  if err := c.ShouldBindJSON(&req); err != nil {
    RespondError(c, http.StatusBadRequest, "invalid_body", fmt.Errorf("invalid request body"))
    return
  }
  items, err := vh.vocabularyService.SavePlaceholders(c.Request.Context(), userID, req.Words, req.CaptureID)
  if err != nil {
    RespondError(c, http.StatusBadRequest, "save_failed", err)
    return
  }
  RespondOK(c, gin.H{"items": items})
}

func (vh *VocabularyHandler) Enrich(c *gin.Context) {
  userID := requestdata.UserID(c.Request.Context())
  var req struct {
    Context string `json:"context"`
    Limit   int    `json:"limit"`
  }
  if err := c.ShouldBindJSON(&req); err != nil {
    RespondError(c, http.StatusBadRequest, "invalid_body", fmt.Errorf("invalid request body"))
    return
  }
  enriched, err := vh.vocabularyService.EnrichPending(c.Request.Context(), userID, req.Context, req.Limit)
  if err != nil {
    RespondError(c, http.StatusInternalServerError, "enrich_failed", err)
    return
  }
  RespondOK(c, gin.H{"enriched": enriched})
}

func (vh *VocabularyHandler) List(c *gin.Context) {
  userID := requestdata.UserID(c.Request.Context())
  items, err := vh.vocabularyService.List(c.Request.Context(), userID)
  if err != nil {
    RespondError(c, http.StatusInternalServerError, "list_failed", err)
    return
  }
  RespondOK(c, gin.H{"items": items})
}

func (vh *VocabularyHandler) Get(c *gin.Context) {
  userID := requestdata.UserID(c.Request.Context())
  itemID, err := uuid.Parse(c.Param("id"))
  if err != nil {
    RespondError(c, http.StatusBadRequest, "invalid_id", fmt.Errorf("invalid vocabulary id"))
    return
  }
  item, err := vh.vocabularyService.Get(c.Request.Context(), userID, itemID)
  if err != nil {
    RespondError(c, http.StatusNotFound, "not_found", err)
    return
  }
  captureIDs, err := vh.vocabularyService.CaptureIDs(c.Request.Context(), userID, itemID)
  if err != nil {
    RespondError(c, http.StatusInternalServerError, "link_lookup_failed", err)
    return
  }
  RespondOK(c, gin.H{"item": item, "capture_ids": captureIDs})
}

func (vh *VocabularyHandler) Delete(c *gin.Context) {
  userID := requestdata.UserID(c.Request.Context())
  itemID, err := uuid.Parse(c.Param("id"))
  if err != nil {
    RespondError(c, http.StatusBadRequest, "invalid_id", fmt.Errorf("invalid vocabulary id"))
    return
  }
  if err := vh.vocabularyService.Delete(c.Request.Context(), userID, itemID); err != nil {
    RespondError(c, http.StatusNotFound, "delete_failed", err)
    return
  }
  RespondOK(c, gin.H{"deleted": true})
}
