package transferclient

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/sir_venger/resumable_lite/pkg/transferproto"
)

// StoredSize узнаёт, сколько байт артефакта уже сохранено на сервере.
// Любая ошибка, включая 404, даёт 0: больше, чем сохранено, предполагать нельзя.
func (c *Client) StoredSize(ctx context.Context, name string) int64 {
	size, err := c.headSize(ctx, c.uploadURL(name))
	if err != nil {
		if !errors.Is(err, transferproto.ErrNotFound) && ctx.Err() == nil {
			c.logger.Warn("size query failed, restarting from zero", zap.String("name", name), zap.Error(err))
		}
		return 0
	}
	return size
}
