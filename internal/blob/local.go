package blob

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/dmitrijs2005/filesmanager/internal/common"
	"github.com/dmitrijs2005/filesmanager/internal/filex"
	"github.com/google/uuid"
)

// LocalStorage keeps content as files in a single folder.
type LocalStorage struct {
	dir string
}

// NewLocalStorage creates dir if absent.
func NewLocalStorage(dir string) (*LocalStorage, error) {
	abs, err := filex.EnsureDir(dir)
	if err != nil {
		return nil, err
	}
	return &LocalStorage{dir: abs}, nil
}

func (s *LocalStorage) Dir() string { return s.dir }

func (s *LocalStorage) Put(ctx context.Context, data []byte) (string, error) {
	path := filepath.Join(s.dir, uuid.NewString())
	if err := s.PutAt(ctx, path, data); err != nil {
		return "", err
	}
	return path, nil
}

func (s *LocalStorage) PutAt(_ context.Context, locator string, data []byte) error {
	if err := filex.WriteFileAtomic(locator, data, 0o640); err != nil {
		return fmt.Errorf("store %s: %w", locator, err)
	}
	return nil
}

func (s *LocalStorage) Get(_ context.Context, locator string) ([]byte, error) {
	data, err := os.ReadFile(locator)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, common.ErrorNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", locator, err)
	}
	return data, nil
}

func (s *LocalStorage) Delete(_ context.Context, locator string) error {
	if err := os.Remove(locator); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove %s: %w", locator, err)
	}
	return nil
}
