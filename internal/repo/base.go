// Package repo holds the gorm plumbing shared by the domain repositories.
package repo

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Base carries the connection a repository runs against. Inside a
// transaction that connection is the tx handle.
type Base struct {
	conn *gorm.DB
}

func NewBase(conn *gorm.DB) Base {
	return Base{conn: conn}
}

// Bind returns a Base on tx, or the receiver when tx is nil.
func (b Base) Bind(tx *gorm.DB) Base {
	if tx == nil {
		return b
	}
	return Base{conn: tx}
}

// DB scopes the connection to ctx.
func (b Base) DB(ctx context.Context) *gorm.DB {
	if ctx == nil {
		return b.conn
	}
	return b.conn.WithContext(ctx)
}

// ForUpdate scopes the connection to ctx and row-locks whatever the query
// reads until the surrounding transaction ends.
func (b Base) ForUpdate(ctx context.Context) *gorm.DB {
	return b.DB(ctx).Clauses(clause.Locking{Strength: clause.LockingStrengthUpdate})
}
