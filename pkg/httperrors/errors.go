package httperrors

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/sir_venger/resumable_lite/pkg/transferproto"
)

// Write пишет ошибку в ответ с кодом из Status. Для ошибок, несущих размер,
// добавляет `Content-Range: bytes */N` и X-Size, чтобы клиент мог пересинхронизироваться.
func Write(w http.ResponseWriter, err error) {
	var conflict *transferproto.OffsetConflictError
	var unsatisfiable *transferproto.RangeNotSatisfiableError
	switch {
	case errors.As(err, &conflict):
		setSize(w, conflict.Current)
	case errors.As(err, &unsatisfiable):
		setSize(w, unsatisfiable.Size)
	}

	http.Error(w, err.Error(), Status(err))
}

// Status сопоставляет ошибку таксономии с HTTP-статусом.
func Status(err error) int {
	switch {
	case errors.Is(err, transferproto.ErrMalformedRequest), errors.Is(err, transferproto.ErrInvalidName):
		return http.StatusBadRequest
	case errors.Is(err, transferproto.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, transferproto.ErrLeaseHeld):
		return http.StatusConflict
	case errors.Is(err, transferproto.ErrChunkTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, transferproto.ErrOffsetConflict), errors.Is(err, transferproto.ErrRangeNotSatisfiable):
		return http.StatusRequestedRangeNotSatisfiable
	default:
		return http.StatusInternalServerError
	}
}

func setSize(w http.ResponseWriter, size int64) {
	w.Header().Set(transferproto.HeaderContentRange, transferproto.FormatUnsatisfiedRange(size))
	w.Header().Set(transferproto.HeaderStoredSize, strconv.FormatInt(size, 10))
}
