package models

import (
	"time"

	"github.com/sir_venger/resumable_lite/pkg/transferproto"
)

// Artifact описывает метаданные артефакта, который дописывается чанками.
// Источник истины для размера — хранилище байт; StoredSize здесь кешируется после append.
type Artifact struct {
	Name          string    `json:"name" msgpack:"name"`
	DeclaredTotal int64     `json:"declared_total" msgpack:"declared_total"`
	StoredSize    int64     `json:"stored_size" msgpack:"stored_size"`
	Session       string    `json:"session,omitempty" msgpack:"session"`
	LeaseUntil    time.Time `json:"lease_until" msgpack:"lease_until"`
	CreatedAt     time.Time `json:"created_at" msgpack:"created_at"`
	UpdatedAt     time.Time `json:"updated_at" msgpack:"updated_at"`
}

// Incomplete сообщает, что последний объявленный total ещё не достигнут.
// Артефакты с неизвестным total (`*`) неполными не считаются.
func (a Artifact) Incomplete() bool {
	return a.DeclaredTotal != transferproto.UnknownTotal && a.StoredSize < a.DeclaredTotal
}

// LeasedByOther возвращает true, если живая аренда принадлежит другой сессии.
func (a Artifact) LeasedByOther(session string, now time.Time) bool {
	if a.Session == "" || a.Session == session {
		return false
	}
	return now.Before(a.LeaseUntil)
}
