package db

import (
	"context"

	"gorm.io/gorm"

	"github.com/quiltline/patternvault-backend/internal/platform/dbctx"
)

// TxRunner scopes a function to a single database transaction. Repo calls
// made through the dbctx it hands to fn share that transaction and roll back
// together when fn returns an error.
type TxRunner interface {
	InTx(ctx context.Context, fn func(dbc dbctx.Context) error) error
}

type gormTxRunner struct {
	db *gorm.DB
}

func NewTxRunner(gdb *gorm.DB) TxRunner {
	return &gormTxRunner{db: gdb}
}

func (r *gormTxRunner) InTx(ctx context.Context, fn func(dbc dbctx.Context) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(dbctx.Context{Ctx: ctx, Tx: tx})
	})
}
