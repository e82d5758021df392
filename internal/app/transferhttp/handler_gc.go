package transferhttp

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/sir_venger/resumable_lite/pkg/httperrors"
)

const manualGCTTL = 24 * time.Hour

// Sweeper удаляет брошенные незавершённые артефакты.
type Sweeper interface {
	Sweep(ctx context.Context, ttl time.Duration) (int, error)
}

// gcOnce вручную запускает сбор старых незавершённых артефактов.
func (a *Server) gcOnce(w http.ResponseWriter, r *http.Request) {
	removed, err := a.svc.Sweep(r.Context(), a.gcTTL)
	if err != nil {
		a.logger.Error("manual gc", zap.Error(err))
		httperrors.Write(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]int{"removed": removed})
}

// StartGC стартует периодическую очистку. Возвращённая функция останавливает её.
func StartGC(s Sweeper, logger *zap.Logger, ttl time.Duration, every time.Duration) func() {
	if every <= 0 || ttl <= 0 {
		return func() {}
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	ticker := time.NewTicker(every)
	stop := make(chan struct{})
	var once sync.Once
	go func() {
		for {
			select {
			case <-ticker.C:
				if _, err := s.Sweep(context.Background(), ttl); err != nil {
					logger.Warn("periodic gc", zap.Error(err))
				}
			case <-stop:
				ticker.Stop()
				return
			}
		}
	}()

	return func() {
		once.Do(func() {
			close(stop)
		})
	}
}
