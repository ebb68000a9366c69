package handlers

import (
  "fmt"
  "net/http"
  "strconv"

  "github.com/gin-gonic/gin"
  "github.com/google/uuid"

  "github.com/yomisnap/yomisnap-backend/internal/requestdata"
  "github.com/yomisnap/yomisnap-backend/internal/services"
)

type QuizHandler struct {
  reviewService services.ReviewService
}

func NewQuizHandler(reviewService services.ReviewService) *QuizHandler {
  return &QuizHandler{reviewService: reviewService}
}

// GetQuiz returns due items and a shared distractor pool. The pool covers the
// whole session, so the client filters out the entry matching the item it is
// currently testing.
func (qh *QuizHandler) GetQuiz(c *gin.Context) {
  userID := requestdata.UserID(c.Request.Context())
  limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
  data, err := qh.reviewService.GetQuizData(c.Request.Context(), userID, limit)
  if err != nil {
    RespondError(c, http.StatusInternalServerError, "quiz_failed", err)
    return
  }
  RespondOK(c, data)
}

func (qh *QuizHandler) SubmitResult(c *gin.Context) {
  userID := requestdata.UserID(c.Request.Context())
  var req struct {
    ItemID  uuid.UUID `json:"item_id"`
    Correct bool      `json:"correct"`
  }
  if err := c.ShouldBindJSON(&req); err != nil {
    RespondError(c, http.StatusBadRequest, "invalid_body", fmt.Errorf("invalid request body"))
    return
  }
  if req.ItemID == uuid.Nil {
    RespondError(c, http.StatusBadRequest, "invalid_id", fmt.Errorf("item_id required"))
    return
  }
  outcome, err := qh.reviewService.SubmitReview(c.Request.Context(), userID, req.ItemID, req.Correct)
  if err != nil {
    RespondError(c, http.StatusNotFound, "submit_failed", err)
    return
  }
  RespondOK(c, outcome)
}
