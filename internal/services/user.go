package services

import (
  "context"
  "fmt"

  "github.com/google/uuid"

  "github.com/yomisnap/yomisnap-backend/internal/logger"
  "github.com/yomisnap/yomisnap-backend/internal/repos"
  "github.com/yomisnap/yomisnap-backend/internal/requestdata"
  "github.com/yomisnap/yomisnap-backend/internal/types"
)

type UserService interface {
  GetMe(ctx context.Context) (*types.User, error)
}

type userService struct {
  log      *logger.Logger
  userRepo repos.UserRepo
}

func NewUserService(log *logger.Logger, userRepo repos.UserRepo) UserService {
  return &userService{
    log:      log.With("service", "UserService"),
    userRepo: userRepo,
  }
}

func (us *userService) GetMe(ctx context.Context) (*types.User, error) {
  userID := requestdata.UserID(ctx)
  if userID == uuid.Nil {
    return nil, fmt.Errorf("no user in context")
  }
  users, err := us.userRepo.GetByIDs(ctx, nil, []uuid.UUID{userID})
  if err != nil {
    return nil, fmt.Errorf("failed to load user: %w", err)
  }
  if len(users) == 0 {
    return nil, fmt.Errorf("user not found")
  }
  return users[0], nil
}
