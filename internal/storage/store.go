// Package storage хранит байты артефактов. Каждая реализация Store гарантирует, что
// артефакт растёт только дозаписью ровно в текущий конец и остаётся валидным префиксом.
package storage

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/sir_venger/resumable_lite/pkg/transferproto"
)

const maxNameLength = 255

// Store — байтовое хранилище артефактов с append-only семантикой.
type Store interface {
	// Length возвращает текущую длину артефакта или ErrNotFound.
	Length(ctx context.Context, name string) (int64, error)
	// AppendAt дописывает data, только если offset равен текущей длине, и возвращает новую длину.
	AppendAt(ctx context.Context, name string, offset int64, data []byte) (int64, error)
	// ReadRange открывает поток байт [start, end] включительно. Границы проверяет вызывающий.
	ReadRange(ctx context.Context, name string, start, end int64) (io.ReadCloser, error)
	// Delete удаляет артефакт целиком; отсутствие артефакта ошибкой не считается.
	Delete(ctx context.Context, name string) error
}

// ValidateName отсекает имена, которые могут выйти за пределы каталога или префикса.
func ValidateName(name string) error {
	switch {
	case name == "", name == ".", name == "..":
		return fmt.Errorf("%w: %q", transferproto.ErrInvalidName, name)
	case len(name) > maxNameLength:
		return fmt.Errorf("%w: name longer than %d bytes", transferproto.ErrInvalidName, maxNameLength)
	case strings.ContainsAny(name, "/\\\x00"):
		return fmt.Errorf("%w: %q", transferproto.ErrInvalidName, name)
	}
	return nil
}

func conflict(offset, current int64) error {
	return &transferproto.OffsetConflictError{Declared: offset, Current: current}
}

func notFound(name string) error {
	return fmt.Errorf("%w: %s", transferproto.ErrNotFound, name)
}

func failure(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", transferproto.ErrStorageFailure, op, err)
}

type sectionReadCloser struct {
	io.Reader
	io.Closer
}
