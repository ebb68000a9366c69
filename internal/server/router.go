package server

import (
  "github.com/gin-contrib/cors"
  "github.com/gin-gonic/gin"
  "go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

  "github.com/yomisnap/yomisnap-backend/internal/handlers"
  "github.com/yomisnap/yomisnap-backend/internal/middleware"
)

type RouterConfig struct {
  ServiceName       string
  AuthHandler       *handlers.AuthHandler
  AuthMiddleware    *middleware.AuthMiddleware
  UserHandler       *handlers.UserHandler
  CaptureHandler    *handlers.CaptureHandler
  VocabularyHandler *handlers.VocabularyHandler
  QuizHandler       *handlers.QuizHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
  router := gin.Default()
  router.Use(otelgin.Middleware(cfg.ServiceName))

  // Cors
  router.Use(cors.New(cors.Config{
    AllowOrigins: []string{
      "http://localhost:80",
      "http://localhost:3000",
      "http://localhost:5174",
    },
    AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
    AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
    AllowCredentials: true,
  }))

  // ===============
  // || Public    ||
  // ===============
  router.GET("/healthcheck", handlers.HealthCheck)
  router.POST("/register", cfg.AuthHandler.Register)
  router.POST("/login", cfg.AuthHandler.Login)
  router.POST("/refresh", cfg.AuthHandler.Refresh)

  // ===============
  // || Protected ||
  // ===============
  protected := router.Group("/")
  protected.Use(cfg.AuthMiddleware.RequireAuth())
  // Auth
  protected.POST("/logout", cfg.AuthHandler.Logout)
  // User
  protected.GET("/user", cfg.UserHandler.GetMe)

  api := protected.Group("/api")
  // Captures
  api.POST("/captures", cfg.CaptureHandler.Upload)
  api.GET("/captures", cfg.CaptureHandler.List)
  api.GET("/captures/:id", cfg.CaptureHandler.Get)
  api.POST("/captures/:id/translation", cfg.CaptureHandler.Translate)
  api.GET("/captures/:id/candidates", cfg.CaptureHandler.Candidates)
  // Lessons + vocabulary
  api.POST("/lessons/resolve", cfg.VocabularyHandler.ResolveLessons)
  api.POST("/vocabulary", cfg.VocabularyHandler.Save)
  api.POST("/selections", cfg.VocabularyHandler.SaveSelections)
  api.POST("/vocabulary/enrich", cfg.VocabularyHandler.Enrich)
  api.GET("/vocabulary", cfg.VocabularyHandler.List)
  api.GET("/vocabulary/:id", cfg.VocabularyHandler.Get)
  api.DELETE("/vocabulary/:id", cfg.VocabularyHandler.Delete)
  // Quiz
  api.GET("/quiz", cfg.QuizHandler.GetQuiz)
  api.POST("/quiz/result", cfg.QuizHandler.SubmitResult)

  return router
}
