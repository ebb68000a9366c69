package requestdata

import (
  "context"

  "github.com/google/uuid"
)

type ctxKey struct{}

var requestDataKey ctxKey

type RequestData struct {
  TokenString string
  UserID      uuid.UUID
}

func WithRequestData(ctx context.Context, rd *RequestData) context.Context {
  return context.WithValue(ctx, requestDataKey, rd)
}

func GetRequestData(ctx context.Context) *RequestData {
  if rd, ok := ctx.Value(requestDataKey).(*RequestData); ok {
    return rd
  }
  return nil
}

// UserID is a convenience accessor; returns uuid.Nil when no caller identity
// is attached to the context.
func UserID(ctx context.Context) uuid.UUID {
  rd := GetRequestData(ctx)
  if rd == nil {
    return uuid.Nil
  }
  return rd.UserID
}
