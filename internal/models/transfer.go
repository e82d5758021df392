package models

import (
	"io"

	"github.com/sir_venger/resumable_lite/pkg/transferproto"
)

// AppendRequest — один чанк, присланный клиентом.
type AppendRequest struct {
	Name    string
	Range   transferproto.ContentRange
	Session string
	Payload []byte
}

// AppendResult возвращается после успешной дозаписи.
type AppendResult struct {
	StoredSize int64
}

// ArtifactInfo — ответ на запрос размера без тела.
type ArtifactInfo struct {
	Name string
	Size int64
}

// ReadResult — тело полного или частичного ответа. Body нужно закрыть.
type ReadResult struct {
	Body    io.ReadCloser
	Start   int64
	End     int64
	Size    int64
	Partial bool
}

// Length возвращает число байт в Body.
func (r ReadResult) Length() int64 {
	if r.Size == 0 {
		return 0
	}
	return r.End - r.Start + 1
}

// Health агрегирует состояние сервера для /health.
type Health struct {
	OK          bool  `json:"ok"`
	Artifacts   int   `json:"artifacts"`
	StoredBytes int64 `json:"stored_bytes"`
}
