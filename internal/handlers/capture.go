package handlers

import (
  "fmt"
  "io"
  "net/http"
  "strconv"

  "github.com/gin-gonic/gin"
  "github.com/google/uuid"

  "github.com/yomisnap/yomisnap-backend/internal/requestdata"
  "github.com/yomisnap/yomisnap-backend/internal/services"
  "github.com/yomisnap/yomisnap-backend/internal/types"
)

const maxUploadBytes = 15 << 20

type CaptureHandler struct {
  captureService services.CaptureService
}

func NewCaptureHandler(captureService services.CaptureService) *CaptureHandler {
  return &CaptureHandler{captureService: captureService}
}

func (ch *CaptureHandler) Upload(c *gin.Context) {
  userID := requestdata.UserID(c.Request.Context())

  fileHeader, err := c.FormFile("image")
  if err != nil {
    RespondError(c, http.StatusBadRequest, "missing_image", fmt.Errorf("image file required"))
    return
  }
  if fileHeader.Size > maxUploadBytes {
    RespondError(c, http.StatusRequestEntityTooLarge, "image_too_large", fmt.Errorf("image exceeds upload limit"))
    return
  }
  file, err := fileHeader.Open()
  if err != nil {
    RespondError(c, http.StatusBadRequest, "unreadable_image", err)
    return
  }
  defer file.Close()
  data, err := io.ReadAll(io.LimitReader(file, maxUploadBytes+1))
  if err != nil {
    RespondError(c, http.StatusBadRequest, "unreadable_image", err)
    return
  }

  geo := parseGeo(c.PostForm("lat"), c.PostForm("lng"))

  capture, err := ch.captureService.Ingest(c.Request.Context(), userID, fileHeader.Filename, data, geo)
  if err != nil {
    RespondError(c, http.StatusInternalServerError, "upload_failed", err)
    return
  }
  RespondOK(c, gin.H{"capture": capture})
}

func (ch *CaptureHandler) List(c *gin.Context) {
  userID := requestdata.UserID(c.Request.Context())
  limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
  captures, err := ch.captureService.ListRecent(c.Request.Context(), userID, limit)
  if err != nil {
    RespondError(c, http.StatusInternalServerError, "list_failed", err)
    return
  }
  RespondOK(c, gin.H{"captures": captures})
}

func (ch *CaptureHandler) Get(c *gin.Context) {
  userID := requestdata.UserID(c.Request.Context())
  captureID, err := uuid.Parse(c.Param("id"))
  if err != nil {
    RespondError(c, http.StatusBadRequest, "invalid_id", fmt.Errorf("invalid capture id"))
    return
  }
  capture, err := ch.captureService.GetByID(c.Request.Context(), userID, captureID)
  if err != nil {
    RespondError(c, http.StatusNotFound, "not_found", err)
    return
  }
  RespondOK(c, gin.H{"capture": capture})
}

func (ch *CaptureHandler) Translate(c *gin.Context) {
  userID := requestdata.UserID(c.Request.Context())
  captureID, err := uuid.Parse(c.Param("id"))
  if err != nil {
    RespondError(c, http.StatusBadRequest, "invalid_id", fmt.Errorf("invalid capture id"))
    return
  }
  translation, err := ch.captureService.EnsureTranslation(c.Request.Context(), userID, captureID)
  if err != nil {
    RespondError(c, http.StatusInternalServerError, "translation_failed", err)
    return
  }
  RespondOK(c, gin.H{"translation": translation})
}

func (ch *CaptureHandler) Candidates(c *gin.Context) {
  userID := requestdata.UserID(c.Request.Context())
  captureID, err := uuid.Parse(c.Param("id"))
  if err != nil {
    RespondError(c, http.StatusBadRequest, "invalid_id", fmt.Errorf("invalid capture id"))
    return
  }
  words, err := ch.captureService.CandidateWords(c.Request.Context(), userID, captureID)
  if err != nil {
    RespondError(c, http.StatusNotFound, "not_found", err)
    return
  }
  RespondOK(c, gin.H{"words": words})
}

func parseGeo(latStr, lngStr string) *types.GeoPoint {
  if latStr == "" || lngStr == "" {
    return nil
  }
  lat, latErr := strconv.ParseFloat(latStr, 64)
  lng, lngErr := strconv.ParseFloat(lngStr, 64)
  if latErr != nil || lngErr != nil {
    return nil
  }
  return &types.GeoPoint{Lat: lat, Lng: lng}
}
