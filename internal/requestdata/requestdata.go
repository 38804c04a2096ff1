package requestdata

import (
	"context"

	"github.com/google/uuid"
)

// AdminIdentity is the authenticated caller attached to a request context by
// the auth middleware.
type AdminIdentity struct {
	ID    uuid.UUID
	Email string
	Role  string
}

type ctxKey struct{}

func WithAdmin(ctx context.Context, admin *AdminIdentity) context.Context {
	return context.WithValue(ctx, ctxKey{}, admin)
}

func GetAdmin(ctx context.Context) *AdminIdentity {
	admin, _ := ctx.Value(ctxKey{}).(*AdminIdentity)
	return admin
}
