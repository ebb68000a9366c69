package services

import (
  "context"
  "testing"
  "time"

  "github.com/yomisnap/yomisnap-backend/internal/logger"
  "github.com/yomisnap/yomisnap-backend/internal/repos"
  "github.com/yomisnap/yomisnap-backend/internal/requestdata"
  "github.com/yomisnap/yomisnap-backend/internal/types"
)

func newAuthFixture(t *testing.T) AuthService {
  t.Helper()
  db := newTestDB(t)
  log := logger.NewNop()
  userRepo := repos.NewUserRepo(db, log)
  userTokenRepo := repos.NewUserTokenRepo(db, log)
  return NewAuthService(db, log, userRepo, userTokenRepo, nil, "test-secret", time.Hour, 24*time.Hour)
}

func TestAuth_RegisterLoginRoundTrip(t *testing.T) {
  svc := newAuthFixture(t)
  ctx := context.Background()

  user := &types.User{Email: "Learner@Example.com", DisplayName: "Learner", Password: "correcthorse"}
  if err := svc.RegisterUser(ctx, user); err != nil {
    t.Fatalf("register: %v", err)
  }
  if user.Password == "correcthorse" {
    t.Fatal("password stored in plain text")
  }

  // Email comparison is case-insensitive.
  access, refresh, err := svc.LoginUser(ctx, "learner@example.com", "correcthorse")
  if err != nil {
    t.Fatalf("login: %v", err)
  }
  if access == "" || refresh == "" {
    t.Fatal("expected both tokens")
  }

  authedCtx, err := svc.SetContextFromToken(ctx, access)
  if err != nil {
    t.Fatalf("SetContextFromToken: %v", err)
  }
  if requestdata.UserID(authedCtx) != user.ID {
    t.Fatal("token does not resolve to the registered user")
  }
}

func TestAuth_RejectsBadCredentials(t *testing.T) {
  svc := newAuthFixture(t)
  ctx := context.Background()

  user := &types.User{Email: "a@example.com", Password: "correcthorse"}
  if err := svc.RegisterUser(ctx, user); err != nil {
    t.Fatalf("register: %v", err)
  }
  if _, _, err := svc.LoginUser(ctx, "a@example.com", "wrong-password"); err == nil {
    t.Fatal("expected login failure for wrong password")
  }
  if _, _, err := svc.LoginUser(ctx, "nobody@example.com", "correcthorse"); err == nil {
    t.Fatal("expected login failure for unknown email")
  }
  if err := svc.RegisterUser(ctx, &types.User{Email: "a@example.com", Password: "anotherpass"}); err == nil {
    t.Fatal("expected duplicate email rejection")
  }
  if err := svc.RegisterUser(ctx, &types.User{Email: "b@example.com", Password: "short"}); err == nil {
    t.Fatal("expected short password rejection")
  }
}

func TestAuth_RefreshRotatesToken(t *testing.T) {
  svc := newAuthFixture(t)
  ctx := context.Background()

  user := &types.User{Email: "r@example.com", Password: "correcthorse"}
  if err := svc.RegisterUser(ctx, user); err != nil {
    t.Fatalf("register: %v", err)
  }
  _, refresh, err := svc.LoginUser(ctx, "r@example.com", "correcthorse")
  if err != nil {
    t.Fatalf("login: %v", err)
  }

  access2, refresh2, err := svc.RefreshUser(ctx, refresh)
  if err != nil {
    t.Fatalf("refresh: %v", err)
  }
  if access2 == "" || refresh2 == "" || refresh2 == refresh {
    t.Fatal("refresh must rotate the refresh token")
  }
  // Old refresh token is spent.
  if _, _, err := svc.RefreshUser(ctx, refresh); err == nil {
    t.Fatal("expected old refresh token to be rejected")
  }
}

func TestAuth_InvalidTokenRejected(t *testing.T) {
  svc := newAuthFixture(t)
  if _, err := svc.SetContextFromToken(context.Background(), "not-a-jwt"); err == nil {
    t.Fatal("expected parse failure")
  }
  if _, err := svc.SetContextFromToken(context.Background(), ""); err == nil {
    t.Fatal("expected missing token failure")
  }
}
