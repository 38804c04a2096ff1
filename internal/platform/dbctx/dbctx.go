package dbctx

import (
	"context"

	"gorm.io/gorm"
)

// Context carries a request context and, when the caller opened one, the
// transaction every repo call in scope must share. Repos fall back to their
// own connection when Tx is nil.
type Context struct {
	Ctx context.Context
	Tx  *gorm.DB
}
