package ditesting

import (
	"context"
	"errors"
	"io"
	"sync"

	"github.com/goliatone/go-sitegen/internal/di"
	"github.com/goliatone/go-sitegen/internal/runtimeconfig"
	"github.com/goliatone/go-sitegen/internal/storage"
	"github.com/goliatone/go-sitegen/pkg/interfaces"
)

// MemoryStorage records generator storage interactions for assertions in
// tests. Write operations are decoded into WrittenFile entries so tests can
// inspect the artifacts a build produced without touching the filesystem.
type MemoryStorage struct {
	mu         sync.Mutex
	execCalls  []ExecCall
	queryCalls []QueryCall
	written    []WrittenFile
	removed    []string
}

// ExecCall captures an Exec invocation against the memory storage.
type ExecCall struct {
	Query         string
	Args          []any
	InTransaction bool
}

// QueryCall captures a Query invocation against the memory storage.
type QueryCall struct {
	Query         string
	Args          []any
	InTransaction bool
}

// WrittenFile is one decoded write operation.
type WrittenFile struct {
	Path        string
	Body        []byte
	Category    string
	ContentType string
	Locale      string
}

// NewMemoryStorage constructs a new in-memory storage adapter.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{}
}

// Exec records the executed operation, draining write payloads into memory.
func (m *MemoryStorage) Exec(_ context.Context, query string, args ...any) (interfaces.Result, error) {
	m.record(query, false, args)
	return memoryResult{}, nil
}

// Query records the query and returns an exhausted rows iterator, so manifest
// lookups behave like a fresh output directory.
func (m *MemoryStorage) Query(_ context.Context, query string, args ...any) (interfaces.Rows, error) {
	m.recordQuery(query, false, args)
	return memoryRows{}, nil
}

// Transaction executes the provided function with a transactional view of the
// storage.
func (m *MemoryStorage) Transaction(_ context.Context, fn func(tx interfaces.Transaction) error) error {
	if fn == nil {
		return nil
	}
	tx := &memoryTx{storage: m}
	if err := fn(tx); err != nil {
		tx.rollback = true
		return err
	}
	tx.commit = true
	return nil
}

// ExecCalls returns a copy of recorded Exec calls.
func (m *MemoryStorage) ExecCalls() []ExecCall {
	m.mu.Lock()
	defer m.mu.Unlock()

	calls := make([]ExecCall, len(m.execCalls))
	copy(calls, m.execCalls)
	return calls
}

// QueryCalls returns a copy of recorded Query calls.
func (m *MemoryStorage) QueryCalls() []QueryCall {
	m.mu.Lock()
	defer m.mu.Unlock()

	calls := make([]QueryCall, len(m.queryCalls))
	copy(calls, m.queryCalls)
	return calls
}

// WrittenFiles returns every decoded write in execution order.
func (m *MemoryStorage) WrittenFiles() []WrittenFile {
	m.mu.Lock()
	defer m.mu.Unlock()

	files := make([]WrittenFile, len(m.written))
	copy(files, m.written)
	return files
}

// Written returns the decoded write for path, if one was recorded.
func (m *MemoryStorage) Written(path string) (WrittenFile, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, file := range m.written {
		if file.Path == path {
			return file, true
		}
	}
	return WrittenFile{}, false
}

// Removed returns every path a remove operation targeted.
func (m *MemoryStorage) Removed() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := make([]string, len(m.removed))
	copy(removed, m.removed)
	return removed
}

func (m *MemoryStorage) record(query string, inTx bool, args []any) {
	decoded, removedPath := decodeOperation(query, args)

	m.mu.Lock()
	defer m.mu.Unlock()

	cloned := append([]any(nil), args...)
	m.execCalls = append(m.execCalls, ExecCall{
		Query:         query,
		Args:          cloned,
		InTransaction: inTx,
	})
	if decoded != nil {
		m.written = append(m.written, *decoded)
	}
	if removedPath != "" {
		m.removed = append(m.removed, removedPath)
	}
}

func (m *MemoryStorage) recordQuery(query string, inTx bool, args []any) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cloned := append([]any(nil), args...)
	m.queryCalls = append(m.queryCalls, QueryCall{
		Query:         query,
		Args:          cloned,
		InTransaction: inTx,
	})
}

// decodeOperation unpacks write and remove operations. Write payload readers
// are drained here; the generator hands over a fresh reader per write.
func decodeOperation(query string, args []any) (*WrittenFile, string) {
	switch query {
	case storage.OpWrite:
		if len(args) < 2 {
			return nil, ""
		}
		file := WrittenFile{}
		file.Path, _ = args[0].(string)
		if reader, ok := args[1].(io.Reader); ok && reader != nil {
			body, err := io.ReadAll(reader)
			if err == nil {
				file.Body = body
			}
		}
		if len(args) > 3 {
			file.Category, _ = args[3].(string)
		}
		if len(args) > 4 {
			file.ContentType, _ = args[4].(string)
		}
		if len(args) > 5 {
			file.Locale, _ = args[5].(string)
		}
		return &file, ""
	case storage.OpRemove:
		if len(args) == 0 {
			return nil, ""
		}
		path, _ := args[0].(string)
		return nil, path
	default:
		return nil, ""
	}
}

type memoryRows struct{}

func (memoryRows) Next() bool {
	return false
}

func (memoryRows) Scan(dest ...any) error {
	return errors.New("memory storage: no rows available")
}

func (memoryRows) Close() error {
	return nil
}

type memoryResult struct{}

func (memoryResult) RowsAffected() (int64, error) {
	return 0, nil
}

func (memoryResult) LastInsertId() (int64, error) {
	return 0, nil
}

type memoryTx struct {
	storage  *MemoryStorage
	commit   bool
	rollback bool
}

func (tx *memoryTx) Query(ctx context.Context, query string, args ...any) (interfaces.Rows, error) {
	tx.storage.recordQuery(query, true, args)
	return memoryRows{}, nil
}

func (tx *memoryTx) Exec(ctx context.Context, query string, args ...any) (interfaces.Result, error) {
	tx.storage.record(query, true, args)
	return memoryResult{}, nil
}

func (tx *memoryTx) Transaction(context.Context, func(tx interfaces.Transaction) error) error {
	return errors.New("memory storage: nested transactions not supported")
}

func (tx *memoryTx) Commit() error {
	tx.commit = true
	return nil
}

func (tx *memoryTx) Rollback() error {
	tx.rollback = true
	return nil
}

// NewGeneratorContainer creates a DI container configured with memory-based
// generator storage.
func NewGeneratorContainer(cfg runtimeconfig.Config, opts ...di.Option) (*di.Container, *MemoryStorage, error) {
	memStorage := NewMemoryStorage()
	options := append([]di.Option{di.WithGeneratorStorage(memStorage)}, opts...)

	container, err := di.NewContainer(cfg, options...)
	if err != nil {
		return nil, nil, err
	}
	return container, memStorage, nil
}
