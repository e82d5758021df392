package transfersvc

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/sir_venger/resumable_lite/pkg/transferproto"
)

// Sweep удаляет незавершённые артефакты, которые не дописывались дольше ttl.
func (s *Transfers) Sweep(ctx context.Context, ttl time.Duration) (int, error) {
	list, err := s.MetaStorage.List(ctx)
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, a := range list {
		if !a.Incomplete() || s.Now().Sub(a.UpdatedAt) < ttl {
			continue
		}

		ok, err := s.sweepOne(ctx, a.Name, ttl)
		if err != nil {
			s.Logger.Warn("gc artifact", zap.String("name", a.Name), zap.Error(err))
			continue
		}
		if ok {
			removed++
		}
	}

	if removed > 0 {
		s.Logger.Info("gc finished", zap.Int("removed", removed))
	}
	return removed, nil
}

// sweepOne перепроверяет запись под замком имени: её могли дописать после List.
func (s *Transfers) sweepOne(ctx context.Context, name string, ttl time.Duration) (bool, error) {
	unlock := s.locks.Lock(name)
	defer unlock()

	a, err := s.MetaStorage.Get(ctx, name)
	if errors.Is(err, transferproto.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if !a.Incomplete() || s.Now().Sub(a.UpdatedAt) < ttl {
		return false, nil
	}

	if err = s.Artifacts.Delete(ctx, name); err != nil {
		return false, err
	}
	return true, s.MetaStorage.Delete(ctx, name)
}
