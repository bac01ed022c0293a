// Package storage provides the artifact store the generator writes rendered
// sites into. Operations are addressed by the Op* identifiers rather than
// SQL; the filesystem provider maps them onto directory and file calls under
// a configured root.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/goliatone/go-sitegen/pkg/interfaces"
)

// Operation identifiers understood by the storage providers.
const (
	OpEnsureDir = "sitegen.ensure_dir"
	OpWrite     = "sitegen.write"
	OpRead      = "sitegen.read"
	OpRemove    = "sitegen.remove"
)

// NewFilesystemStorage returns an interfaces.StorageProvider that writes
// artifacts to disk under root. The base argument should match the generator
// output directory so duplicated prefixes in incoming paths are trimmed.
func NewFilesystemStorage(root, base string) interfaces.StorageProvider {
	base = filepath.ToSlash(filepath.Clean(base))
	return &filesystemStorage{root: root, base: base}
}

type filesystemStorage struct {
	root string
	base string
}

func (s *filesystemStorage) Query(_ context.Context, query string, args ...any) (interfaces.Rows, error) {
	if query != OpRead || len(args) == 0 {
		return &fileRows{read: true}, nil
	}
	target := s.normalizePath(args[0])
	data, err := os.ReadFile(s.abs(target))
	if errors.Is(err, os.ErrNotExist) {
		return &fileRows{read: true}, nil
	}
	if err != nil {
		return nil, err
	}
	return &fileRows{data: data}, nil
}

func (s *filesystemStorage) Exec(_ context.Context, query string, args ...any) (interfaces.Result, error) {
	switch query {
	case OpEnsureDir:
		if len(args) == 0 {
			return emptyResult{}, fmt.Errorf("storage: ensure_dir requires path")
		}
		path := s.normalizePath(args[0])
		return emptyResult{}, os.MkdirAll(s.abs(path), 0o755)
	case OpWrite:
		if len(args) < 2 {
			return emptyResult{}, fmt.Errorf("storage: write requires path and reader")
		}
		path := s.normalizePath(args[0])
		reader, ok := args[1].(io.Reader)
		if !ok || reader == nil {
			return emptyResult{}, fmt.Errorf("storage: write expects io.Reader content")
		}
		full := s.abs(path)
		if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
			return emptyResult{}, err
		}
		file, err := os.Create(full)
		if err != nil {
			return emptyResult{}, err
		}
		defer file.Close()
		if _, err := io.Copy(file, reader); err != nil {
			return emptyResult{}, err
		}
		return emptyResult{}, nil
	case OpRemove:
		if len(args) == 0 {
			return emptyResult{}, fmt.Errorf("storage: remove requires path")
		}
		path := s.normalizePath(args[0])
		err := os.RemoveAll(s.abs(path))
		if errors.Is(err, os.ErrNotExist) {
			return emptyResult{}, nil
		}
		return emptyResult{}, err
	default:
		return emptyResult{}, nil
	}
}

func (s *filesystemStorage) Transaction(ctx context.Context, fn func(tx interfaces.Transaction) error) error {
	if fn == nil {
		return nil
	}
	return fn(&filesystemTx{storage: s})
}

func (s *filesystemStorage) abs(rel string) string {
	if rel == "" {
		return s.root
	}
	return filepath.Join(s.root, filepath.FromSlash(rel))
}

func (s *filesystemStorage) normalizePath(arg any) string {
	path, _ := arg.(string)
	path = filepath.ToSlash(filepath.Clean(path))
	if s.base != "" && strings.HasPrefix(path, s.base) {
		path = strings.TrimPrefix(path, s.base)
		path = strings.TrimPrefix(path, "/")
	}
	return path
}

type filesystemTx struct {
	storage *filesystemStorage
}

func (tx *filesystemTx) Query(ctx context.Context, query string, args ...any) (interfaces.Rows, error) {
	return tx.storage.Query(ctx, query, args...)
}

func (tx *filesystemTx) Exec(ctx context.Context, query string, args ...any) (interfaces.Result, error) {
	return tx.storage.Exec(ctx, query, args...)
}

func (tx *filesystemTx) Transaction(context.Context, func(interfaces.Transaction) error) error {
	return errors.New("storage: nested transactions not supported")
}

func (tx *filesystemTx) Commit() error {
	return nil
}

func (tx *filesystemTx) Rollback() error {
	return nil
}

type emptyResult struct{}

func (emptyResult) RowsAffected() (int64, error) { return 0, nil }
func (emptyResult) LastInsertId() (int64, error) { return 0, nil }

type fileRows struct {
	data []byte
	read bool
}

func (r *fileRows) Next() bool {
	if r.read {
		return false
	}
	r.read = true
	return true
}

func (r *fileRows) Scan(dest ...any) error {
	if len(dest) == 0 {
		return fmt.Errorf("storage: scan requires destination")
	}
	bytesDest, ok := dest[0].(*[]byte)
	if !ok {
		return fmt.Errorf("storage: unsupported scan destination %T", dest[0])
	}
	*bytesDest = append((*bytesDest)[:0], r.data...)
	return nil
}

func (r *fileRows) Close() error {
	return nil
}
