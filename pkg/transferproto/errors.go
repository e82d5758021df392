package transferproto

import (
	"errors"
	"fmt"
)

var (
	ErrMalformedRequest    = errors.New("malformed request")
	ErrOffsetConflict      = errors.New("offset conflict")
	ErrRangeNotSatisfiable = errors.New("range not satisfiable")
	ErrNotFound            = errors.New("artifact not found")
	ErrStorageFailure      = errors.New("storage failure")
	ErrCancelled           = errors.New("transfer cancelled")
	ErrLeaseHeld           = errors.New("artifact is leased by another session")
	ErrInvalidName         = errors.New("invalid artifact name")
	ErrChunkTooLarge       = errors.New("chunk too large")
)

// OffsetConflictError возвращается, когда объявленное начало чанка не совпадает с
// текущим размером артефакта. Current — реальный размер на сервере.
type OffsetConflictError struct {
	Declared int64
	Current  int64
}

func (e *OffsetConflictError) Error() string {
	if e.Declared < 0 {
		return fmt.Sprintf("offset conflict: stored size is %d", e.Current)
	}
	return fmt.Sprintf("offset conflict: declared start %d, stored size %d", e.Declared, e.Current)
}

func (e *OffsetConflictError) Is(target error) bool { return target == ErrOffsetConflict }

// RangeNotSatisfiableError несёт актуальную длину артефакта, чтобы вызывающий мог
// повторить запрос с исправленным диапазоном.
type RangeNotSatisfiableError struct {
	Size int64
}

func (e *RangeNotSatisfiableError) Error() string {
	return fmt.Sprintf("range not satisfiable: artifact size is %d", e.Size)
}

func (e *RangeNotSatisfiableError) Is(target error) bool { return target == ErrRangeNotSatisfiable }
