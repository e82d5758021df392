package meta

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sir_venger/resumable_lite/internal/models"
	"github.com/sir_venger/resumable_lite/pkg/transferproto"
)

const artifactsMetaTable = "artifacts_meta"

var (
	psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

	artifactColumns = []string{
		"name",
		"declared_total",
		"stored_size",
		"session",
		"lease_until",
		"created_at",
		"updated_at",
	}
)

// PGStore сохраняет метаданные в Postgres.
type PGStore struct {
	pool *pgxpool.Pool
}

// NewPGStore создаёт пул подключений к Postgres. Таблицу создают миграции (cmd/migrate).
func NewPGStore(ctx context.Context, dsn string) (*PGStore, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("meta dsn is empty")
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}

	return &PGStore{pool: pool}, nil
}

func buildSelectArtifact(name string) (string, []any, error) {
	return psql.Select(artifactColumns...).
		From(artifactsMetaTable).
		Where(sq.Eq{"name": name}).
		Limit(1).
		ToSql()
}

func buildListArtifacts() (string, []any, error) {
	return psql.Select(artifactColumns...).
		From(artifactsMetaTable).
		OrderBy("name").
		ToSql()
}

func buildUpsertArtifact(a models.Artifact) (string, []any, error) {
	var leaseUntil *time.Time
	if !a.LeaseUntil.IsZero() {
		leaseUntil = &a.LeaseUntil
	}

	return psql.Insert(artifactsMetaTable).
		Columns(artifactColumns...).
		Values(a.Name, a.DeclaredTotal, a.StoredSize, a.Session, leaseUntil, a.CreatedAt, a.UpdatedAt).
		Suffix(`
			ON CONFLICT (name) DO UPDATE
			SET declared_total = EXCLUDED.declared_total,
				stored_size    = EXCLUDED.stored_size,
				session        = EXCLUDED.session,
				lease_until    = EXCLUDED.lease_until,
				updated_at     = EXCLUDED.updated_at`).
		ToSql()
}

func buildDeleteArtifact(name string) (string, []any, error) {
	return psql.Delete(artifactsMetaTable).Where(sq.Eq{"name": name}).ToSql()
}

func scanArtifact(row pgx.Row) (models.Artifact, error) {
	var (
		a          models.Artifact
		leaseUntil *time.Time
	)
	if err := row.Scan(&a.Name, &a.DeclaredTotal, &a.StoredSize, &a.Session, &leaseUntil, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return models.Artifact{}, err
	}
	if leaseUntil != nil {
		a.LeaseUntil = *leaseUntil
	}
	return a, nil
}

// Get возвращает описание артефакта по имени.
func (s *PGStore) Get(ctx context.Context, name string) (models.Artifact, error) {
	sqlStr, args, err := buildSelectArtifact(name)
	if err != nil {
		return models.Artifact{}, fmt.Errorf("build select: %w", err)
	}

	a, err := scanArtifact(s.pool.QueryRow(ctx, sqlStr, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Artifact{}, transferproto.ErrNotFound
		}
		return models.Artifact{}, fmt.Errorf("scan artifact row: %w", err)
	}
	return a, nil
}

// Save записывает (или обновляет) описание артефакта.
func (s *PGStore) Save(ctx context.Context, a models.Artifact) error {
	sqlStr, args, err := buildUpsertArtifact(a)
	if err != nil {
		return fmt.Errorf("build upsert sql: %w", err)
	}

	if _, err = s.pool.Exec(ctx, sqlStr, args...); err != nil {
		return fmt.Errorf("exec upsert: %w", err)
	}
	return nil
}

func (s *PGStore) Delete(ctx context.Context, name string) error {
	sqlStr, args, err := buildDeleteArtifact(name)
	if err != nil {
		return fmt.Errorf("build delete: %w", err)
	}
	if _, err = s.pool.Exec(ctx, sqlStr, args...); err != nil {
		return fmt.Errorf("exec delete: %w", err)
	}
	return nil
}

func (s *PGStore) List(ctx context.Context) ([]models.Artifact, error) {
	sqlStr, args, err := buildListArtifacts()
	if err != nil {
		return nil, fmt.Errorf("build list: %w", err)
	}

	rows, err := s.pool.Query(ctx, sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("query artifacts: %w", err)
	}
	defer rows.Close()

	var out []models.Artifact
	for rows.Next() {
		a, err := scanArtifact(rows)
		if err != nil {
			return nil, fmt.Errorf("scan artifact row: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// Close освобождает подключения пула.
func (s *PGStore) Close() error {
	if s.pool != nil {
		s.pool.Close()
	}
	return nil
}
