package transfersvc

import (
	"context"
	"io"
	"strings"

	"github.com/sir_venger/resumable_lite/internal/models"
	"github.com/sir_venger/resumable_lite/internal/storage"
	"github.com/sir_venger/resumable_lite/pkg/transferproto"
)

// Stat возвращает текущий сохранённый размер без передачи тела.
func (s *Transfers) Stat(ctx context.Context, name string) (models.ArtifactInfo, error) {
	if err := storage.ValidateName(name); err != nil {
		return models.ArtifactInfo{}, err
	}

	size, err := s.Artifacts.Length(ctx, name)
	if err != nil {
		return models.ArtifactInfo{}, err
	}
	return models.ArtifactInfo{Name: name, Size: size}, nil
}

// Open отдаёт артефакт целиком или запрошенный диапазон. Длина фиксируется один раз в
// начале, поэтому параллельная дозапись не влияет на уже начатый ответ.
func (s *Transfers) Open(ctx context.Context, name string, rng *transferproto.RangeSpec) (models.ReadResult, error) {
	info, err := s.Stat(ctx, name)
	if err != nil {
		return models.ReadResult{}, err
	}
	size := info.Size

	if rng == nil {
		if size == 0 {
			return models.ReadResult{Body: io.NopCloser(strings.NewReader("")), End: -1}, nil
		}
		body, err := s.Artifacts.ReadRange(ctx, name, 0, size-1)
		if err != nil {
			return models.ReadResult{}, err
		}
		return models.ReadResult{Body: body, Start: 0, End: size - 1, Size: size}, nil
	}

	start, end, err := rng.Resolve(size)
	if err != nil {
		return models.ReadResult{}, err
	}
	body, err := s.Artifacts.ReadRange(ctx, name, start, end)
	if err != nil {
		return models.ReadResult{}, err
	}

	return models.ReadResult{Body: body, Start: start, End: end, Size: size, Partial: true}, nil
}
