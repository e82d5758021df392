package transfersvc

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/sir_venger/resumable_lite/internal/models"
	"github.com/sir_venger/resumable_lite/internal/storage"
	"github.com/sir_venger/resumable_lite/pkg/transferproto"
)

const (
	DefaultMaxChunkSize int64 = 16 << 20
	DefaultLeaseTTL           = 5 * time.Minute
)

type (
	// MetaStorage хранилище метаданных артефактов
	MetaStorage interface {
		Get(ctx context.Context, name string) (models.Artifact, error)
		Save(ctx context.Context, a models.Artifact) error
		Delete(ctx context.Context, name string) error
		List(ctx context.Context) ([]models.Artifact, error)
	}

	// Service объединяет дозапись чанков, выдачу диапазонов и обслуживание артефактов.
	Service interface {
		Append(ctx context.Context, req models.AppendRequest) (models.AppendResult, error)
		Stat(ctx context.Context, name string) (models.ArtifactInfo, error)
		Open(ctx context.Context, name string, rng *transferproto.RangeSpec) (models.ReadResult, error)
		Sweep(ctx context.Context, ttl time.Duration) (int, error)
		Health(ctx context.Context) (models.Health, error)
	}
)

type Deps struct {
	Artifacts    storage.Store
	MetaStorage  MetaStorage
	Logger       *zap.Logger
	MaxChunkSize int64
	LeaseTTL     time.Duration
	Now          func() time.Time
}

type Transfers struct {
	Deps
	locks *keyedMutex
}

// New конструирует сервис с заданными зависимостями, подставляя значения по умолчанию.
func New(deps Deps) *Transfers {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.MaxChunkSize <= 0 {
		deps.MaxChunkSize = DefaultMaxChunkSize
	}
	if deps.LeaseTTL <= 0 {
		deps.LeaseTTL = DefaultLeaseTTL
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}

	return &Transfers{Deps: deps, locks: newKeyedMutex()}
}

var _ Service = (*Transfers)(nil)

// Health суммирует число артефактов и объём сохранённых байт по метаданным.
func (s *Transfers) Health(ctx context.Context) (models.Health, error) {
	list, err := s.MetaStorage.List(ctx)
	if err != nil {
		return models.Health{}, err
	}

	h := models.Health{OK: true, Artifacts: len(list)}
	for _, a := range list {
		h.StoredBytes += a.StoredSize
	}
	return h, nil
}
