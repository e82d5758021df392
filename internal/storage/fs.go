package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/sir_venger/resumable_lite/pkg/transferproto"
)

// FSStore хранит каждый артефакт отдельным файлом в корневом каталоге.
// Каталоги и прочие не-файлы в корне артефактами не считаются.
type FSStore struct {
	root       string
	openAppend func(path string) (appendFile, error)
}

// appendFile — операции AppendAt над открытым файлом.
type appendFile interface {
	io.WriteCloser
	Stat() (fs.FileInfo, error)
	Sync() error
	Truncate(size int64) error
}

// NewFSStore создаёт каталог данных и возвращает хранилище поверх него.
func NewFSStore(root string) (*FSStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, failure("create data dir", err)
	}
	return &FSStore{root: root, openAppend: openAppendFile}, nil
}

func openAppendFile(path string) (appendFile, error) {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}
	return f, nil
}

func (s *FSStore) path(name string) (string, error) {
	if err := ValidateName(name); err != nil {
		return "", err
	}
	return filepath.Join(s.root, name), nil
}

// lookup возвращает nil info, если по пути ничего нет.
func (s *FSStore) lookup(name string) (string, fs.FileInfo, error) {
	p, err := s.path(name)
	if err != nil {
		return "", nil, err
	}
	info, err := os.Stat(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return p, nil, nil
		}
		return "", nil, failure("stat", err)
	}
	return p, info, nil
}

// Length возвращает размер файла артефакта.
func (s *FSStore) Length(_ context.Context, name string) (int64, error) {
	_, info, err := s.lookup(name)
	if err != nil {
		return 0, err
	}
	if info == nil || !info.Mode().IsRegular() {
		return 0, notFound(name)
	}
	return info.Size(), nil
}

// AppendAt дописывает чанк в конец файла в режиме O_APPEND и синхронизирует его на диск.
// Файл создаётся только при первой успешной дозаписи с offset 0.
func (s *FSStore) AppendAt(_ context.Context, name string, offset int64, data []byte) (int64, error) {
	p, info, err := s.lookup(name)
	if err != nil {
		return 0, err
	}
	var current int64
	if info != nil {
		if !info.Mode().IsRegular() {
			return 0, fmt.Errorf("%w: %q is taken by a non-regular file", transferproto.ErrInvalidName, name)
		}
		current = info.Size()
	}
	if current != offset {
		return 0, conflict(offset, current)
	}

	f, err := s.openAppend(p)
	if err != nil {
		return 0, failure("open", err)
	}
	defer f.Close()

	info, err = f.Stat()
	if err != nil {
		return 0, failure("stat", err)
	}
	if info.Size() != offset {
		return 0, conflict(offset, info.Size())
	}

	// Частичная запись откатывается до прежней длины, чтобы файл оставался префиксом.
	if _, err = f.Write(data); err != nil {
		_ = f.Truncate(offset)
		return 0, failure("write", err)
	}
	if err = f.Sync(); err != nil {
		_ = f.Truncate(offset)
		return 0, failure("sync", err)
	}

	return offset + int64(len(data)), nil
}

// ReadRange открывает файл и отдаёт секцию [start, end].
func (s *FSStore) ReadRange(_ context.Context, name string, start, end int64) (io.ReadCloser, error) {
	p, err := s.path(name)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, notFound(name)
		}
		return nil, failure("open", err)
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, failure("stat", err)
	}
	if !info.Mode().IsRegular() {
		_ = f.Close()
		return nil, notFound(name)
	}

	return sectionReadCloser{Reader: io.NewSectionReader(f, start, end-start+1), Closer: f}, nil
}

// Delete удаляет файл артефакта. Не-файлы в корне не трогает.
func (s *FSStore) Delete(_ context.Context, name string) error {
	p, info, err := s.lookup(name)
	if err != nil {
		return err
	}
	if info == nil || !info.Mode().IsRegular() {
		return nil
	}
	if err = os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return failure("remove", err)
	}
	return nil
}
