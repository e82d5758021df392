package transfersvc

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/sir_venger/resumable_lite/internal/models"
	"github.com/sir_venger/resumable_lite/internal/storage"
	"github.com/sir_venger/resumable_lite/pkg/transferproto"
)

// Append проверяет чанк и дописывает его в конец артефакта.
// Порядок проверок: имя и размер чанка, длина тела, аренда, точное совпадение начала
// с текущим размером. При любом отказе состояние артефакта не меняется.
func (s *Transfers) Append(ctx context.Context, req models.AppendRequest) (models.AppendResult, error) {
	if err := storage.ValidateName(req.Name); err != nil {
		return models.AppendResult{}, err
	}

	size := req.Range.Size()
	if size > s.MaxChunkSize {
		return models.AppendResult{}, fmt.Errorf("%w: %d bytes, limit %d", transferproto.ErrChunkTooLarge, size, s.MaxChunkSize)
	}
	if int64(len(req.Payload)) != size {
		return models.AppendResult{}, fmt.Errorf("%w: payload has %d bytes, range %s declares %d",
			transferproto.ErrMalformedRequest, len(req.Payload), req.Range, size)
	}

	unlock := s.locks.Lock(req.Name)
	defer unlock()

	now := s.Now()
	rec, err := s.MetaStorage.Get(ctx, req.Name)
	exists := err == nil
	if err != nil && !errors.Is(err, transferproto.ErrNotFound) {
		return models.AppendResult{}, fmt.Errorf("%w: read meta: %v", transferproto.ErrStorageFailure, err)
	}
	if exists && rec.LeasedByOther(req.Session, now) {
		return models.AppendResult{}, fmt.Errorf("%w: %s until %s", transferproto.ErrLeaseHeld, req.Name, rec.LeaseUntil.Format(time.RFC3339))
	}

	current, err := s.Artifacts.Length(ctx, req.Name)
	if err != nil && !errors.Is(err, transferproto.ErrNotFound) {
		return models.AppendResult{}, err
	}
	if req.Range.Start != current {
		return models.AppendResult{}, &transferproto.OffsetConflictError{Declared: req.Range.Start, Current: current}
	}

	stored, err := s.Artifacts.AppendAt(ctx, req.Name, current, req.Payload)
	if err != nil {
		return models.AppendResult{}, err
	}

	if !exists {
		rec = models.Artifact{Name: req.Name, CreatedAt: now}
	}
	rec.StoredSize = stored
	rec.DeclaredTotal = req.Range.Total
	rec.UpdatedAt = now
	rec.Session = req.Session
	rec.LeaseUntil = time.Time{}
	if req.Session != "" {
		rec.LeaseUntil = now.Add(s.LeaseTTL)
	}

	// Байты уже на диске; размер восстанавливается из хранилища, поэтому ошибка meta не фатальна.
	if err = s.MetaStorage.Save(ctx, rec); err != nil {
		s.Logger.Warn("save artifact meta", zap.String("name", req.Name), zap.Error(err))
	}

	s.Logger.Debug("chunk appended",
		zap.String("name", req.Name),
		zap.Int64("start", req.Range.Start),
		zap.Int64("end", req.Range.End),
		zap.Int64("stored", stored),
	)

	return models.AppendResult{StoredSize: stored}, nil
}
