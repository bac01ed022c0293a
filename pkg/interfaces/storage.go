package interfaces

import "context"

// StorageProvider encapsulates the artifact I/O operations the generator
// issues. The query/exec strings are sitegen operation identifiers (see
// internal/generator), not SQL; filesystem and in-memory providers interpret
// them against their own backing store. Implementations must be safe for
// concurrent use.
type StorageProvider interface {
	Query(ctx context.Context, query string, args ...any) (Rows, error)
	Exec(ctx context.Context, query string, args ...any) (Result, error)
	Transaction(ctx context.Context, fn func(tx Transaction) error) error
}

// Rows is the cursor returned by StorageProvider.Query.
type Rows interface {
	Next() bool
	Scan(dest ...any) error
	Close() error
}

// Result reports the outcome of a StorageProvider.Exec call.
type Result interface {
	RowsAffected() (int64, error)
	LastInsertId() (int64, error)
}

// Transaction scopes a group of storage operations. Providers without native
// transactions may run the callback against themselves.
type Transaction interface {
	StorageProvider
	Commit() error
	Rollback() error
}
