package main

import (
  "context"
  "fmt"
  "os"
  "time"

  "github.com/joho/godotenv"

  "github.com/yomisnap/yomisnap-backend/internal/db"
  "github.com/yomisnap/yomisnap-backend/internal/handlers"
  "github.com/yomisnap/yomisnap-backend/internal/logger"
  "github.com/yomisnap/yomisnap-backend/internal/middleware"
  "github.com/yomisnap/yomisnap-backend/internal/observability"
  "github.com/yomisnap/yomisnap-backend/internal/repos"
  "github.com/yomisnap/yomisnap-backend/internal/server"
  "github.com/yomisnap/yomisnap-backend/internal/services"
  "github.com/yomisnap/yomisnap-backend/internal/utils"
)

const serviceName = "yomisnap-backend"

func main() {
  _ = godotenv.Load()

  // Logger
  logMode := os.Getenv("LOG_MODE")
  if logMode == "" {
    logMode = "development"
  }
  log, err := logger.New(logMode)
  if err != nil {
    fmt.Printf("Failed to init logger: %v\n", err)
    os.Exit(1)
  }
  defer log.Sync()

  // Tracing
  shutdownTracing := observability.InitOTel(context.Background(), log, observability.OtelConfig{
    ServiceName: serviceName,
    Environment: utils.GetEnv("APP_ENV", "development", log),
    Version:     utils.GetEnv("APP_VERSION", "dev", log),
  })
  if shutdownTracing != nil {
    defer func() {
      ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
      defer cancel()
      _ = shutdownTracing(ctx)
    }()
  }

  // Env
  log.Info("Loading environment variables from main...")
  jwtSecretKey := utils.GetEnv("JWT_SECRET_KEY", "defaultsecret", log)
  accessTokenTTL := utils.GetEnvAsInt("ACCESS_TOKEN_TTL", 3600, log)
  refreshTokenTTL := utils.GetEnvAsInt("REFRESH_TOKEN_TTL", 86400, log)
  port := utils.GetEnv("PORT", "8080", log)

  // Postgres
  postgresService, err := db.NewPostgresService(log)
  if err != nil {
    log.Fatal("Postgres init failed", "error", err)
  }
  if err = postgresService.AutoMigrateAll(); err != nil {
    log.Fatal("Postgres auto migration failed", "error", err)
  }
  thePG := postgresService.DB()

  // Repos
  log.Info("Setting up Repos from main...")
  userRepo := repos.NewUserRepo(thePG, log)
  userTokenRepo := repos.NewUserTokenRepo(thePG, log)
  captureRepo := repos.NewCaptureRepo(thePG, log)
  ocrCacheRepo := repos.NewOCRCacheRepo(thePG, log)
  vocabularyItemRepo := repos.NewVocabularyItemRepo(thePG, log)
  captureVocabularyLinkRepo := repos.NewCaptureVocabularyLinkRepo(thePG, log)

  // Services
  log.Info("Setting up Services from main...")
  bucketService, err := services.NewBucketService(log)
  if err != nil {
    log.Fatal("Could not init BucketService", "error", err)
  }
  openaiClient, err := services.NewOpenAIClient(log)
  if err != nil {
    log.Fatal("Could not init OpenAIClient", "error", err)
  }
  ocrService, err := services.NewVisionOCRService(log, nil)
  if err != nil {
    log.Fatal("Could not init VisionOCRService", "error", err)
  }
  defer ocrService.Close()
  tokenizerService, err := services.NewTokenizerService(log)
  if err != nil {
    log.Fatal("Could not init TokenizerService", "error", err)
  }
  avatarService, err := services.NewAvatarService(thePG, log, userRepo, bucketService)
  if err != nil {
    // Account creation works without generated avatars.
    log.Warn("Could not init AvatarService", "error", err)
    avatarService = nil
  }
  reviewLadder, err := services.LoadReviewLadder(log)
  if err != nil {
    log.Fatal("Could not load review ladder", "error", err)
  }

  authService := services.NewAuthService(thePG, log, userRepo, userTokenRepo, avatarService, jwtSecretKey, time.Duration(accessTokenTTL)*time.Second, time.Duration(refreshTokenTTL)*time.Second)
  userService := services.NewUserService(log, userRepo)
  captureService := services.NewCaptureService(thePG, log, captureRepo, ocrCacheRepo, bucketService, ocrService, openaiClient, tokenizerService)
  lessonService := services.NewLessonService(log, vocabularyItemRepo, openaiClient)
  vocabularyService := services.NewVocabularyService(thePG, log, vocabularyItemRepo, captureVocabularyLinkRepo, lessonService)
  reviewService := services.NewReviewService(log, vocabularyItemRepo, userRepo, reviewLadder)

  // Handlers
  log.Info("Setting up Handlers from main...")
  authHandler := handlers.NewAuthHandler(authService)
  userHandler := handlers.NewUserHandler(userService)
  captureHandler := handlers.NewCaptureHandler(captureService)
  vocabularyHandler := handlers.NewVocabularyHandler(lessonService, vocabularyService)
  quizHandler := handlers.NewQuizHandler(reviewService)

  // Middleware
  authMiddleware := middleware.NewAuthMiddleware(log, authService)

  // Router
  router := server.NewRouter(server.RouterConfig{
    ServiceName:       serviceName,
    AuthHandler:       authHandler,
    AuthMiddleware:    authMiddleware,
    UserHandler:       userHandler,
    CaptureHandler:    captureHandler,
    VocabularyHandler: vocabularyHandler,
    QuizHandler:       quizHandler,
  })

  log.Info("Starting server...", "port", port)
  if err := router.Run(":" + port); err != nil {
    log.Fatal("Server exited", "error", err)
  }
}
