// Package repository defines the data-access-layer interfaces the core consumes.
package repository

import (
	"context"
)

// TxKey is the context key a Transactor stashes the active transaction under.
type TxKey struct{}

// Transactor runs fn inside a single durable-store transaction.
type Transactor interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
