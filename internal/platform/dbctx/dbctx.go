package dbctx

import (
	"context"

	"gorm.io/gorm"
)

// Context carries the caller's context and, inside a unit of work, the open
// transaction. Repos fall back to their own handle when Tx is nil.
type Context struct {
	Ctx context.Context
	Tx  *gorm.DB
}

func Of(ctx context.Context) Context { return Context{Ctx: ctx} }

func InTx(ctx context.Context, tx *gorm.DB) Context { return Context{Ctx: ctx, Tx: tx} }
