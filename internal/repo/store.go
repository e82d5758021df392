package meta

import (
	"context"
	"fmt"
	"strings"

	"github.com/sir_venger/resumable_lite/internal/models"
)

// Store хранит метаданные артефактов: объявленный total, аренду сессии, отметки времени.
type Store interface {
	Get(ctx context.Context, name string) (models.Artifact, error)
	Save(ctx context.Context, a models.Artifact) error
	Delete(ctx context.Context, name string) error
	List(ctx context.Context) ([]models.Artifact, error)
	Close() error
}

const (
	schemeMemory   = "memory://"
	schemeBadger   = "badger://"
	schemePostgres = "postgres://"
	schemePG       = "postgresql://"
)

// Open выбирает реализацию по схеме DSN: memory://, badger://<dir>, postgres://.
func Open(ctx context.Context, dsn string) (Store, error) {
	dsn = strings.TrimSpace(dsn)
	switch {
	case dsn == "":
		return nil, fmt.Errorf("meta dsn is empty")
	case strings.HasPrefix(dsn, schemeMemory):
		return NewMemoryStore(), nil
	case strings.HasPrefix(dsn, schemeBadger):
		return OpenBadger(strings.TrimPrefix(dsn, schemeBadger))
	case strings.HasPrefix(dsn, schemePostgres), strings.HasPrefix(dsn, schemePG):
		return NewPGStore(ctx, dsn)
	default:
		return nil, fmt.Errorf("unsupported meta dsn %q", dsn)
	}
}

// IsPostgres сообщает, что DSN указывает на Postgres и требует миграций.
func IsPostgres(dsn string) bool {
	dsn = strings.TrimSpace(dsn)
	return strings.HasPrefix(dsn, schemePostgres) || strings.HasPrefix(dsn, schemePG)
}
