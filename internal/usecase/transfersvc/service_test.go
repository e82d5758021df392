package transfersvc

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sir_venger/resumable_lite/internal/models"
	meta "github.com/sir_venger/resumable_lite/internal/repo"
	"github.com/sir_venger/resumable_lite/internal/storage"
	"github.com/sir_venger/resumable_lite/pkg/transferproto"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newService(t *testing.T) (*Transfers, *storage.MemoryStore, *clock) {
	t.Helper()
	artifacts := storage.NewMemoryStore()
	c := &clock{now: time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)}
	svc := New(Deps{
		Artifacts:   artifacts,
		MetaStorage: meta.NewMemoryStore(),
		LeaseTTL:    time.Minute,
		Now:         c.Now,
	})
	return svc, artifacts, c
}

func chunk(start int64, payload []byte, total int64, session string) models.AppendRequest {
	return models.AppendRequest{
		Name:    "big.bin",
		Range:   transferproto.ContentRange{Start: start, End: start + int64(len(payload)) - 1, Total: total},
		Session: session,
		Payload: payload,
	}
}

func pattern(n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte(i % 251)
	}
	return b
}

func TestAppend_SequentialChunksBuildPrefix(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newService(t)

	const mib = 1 << 20
	data := pattern(2*mib + mib/2)
	total := int64(len(data))

	res, err := svc.Append(ctx, chunk(0, data[:mib], total, "s1"))
	require.NoError(t, err)
	assert.Equal(t, int64(mib), res.StoredSize)

	res, err = svc.Append(ctx, chunk(mib, data[mib:2*mib], total, "s1"))
	require.NoError(t, err)
	assert.Equal(t, int64(2097152), res.StoredSize)

	info, err := svc.Stat(ctx, "big.bin")
	require.NoError(t, err)
	assert.Equal(t, int64(2097152), info.Size)

	res, err = svc.Append(ctx, chunk(2*mib, data[2*mib:], total, "s1"))
	require.NoError(t, err)
	assert.Equal(t, total, res.StoredSize)

	out, err := svc.Open(ctx, "big.bin", nil)
	require.NoError(t, err)
	defer out.Body.Close()
	got, err := io.ReadAll(out.Body)
	require.NoError(t, err)
	assert.True(t, bytes.Equal(data, got))
	assert.False(t, out.Partial)

	rec, err := svc.MetaStorage.Get(ctx, "big.bin")
	require.NoError(t, err)
	assert.Equal(t, total, rec.StoredSize)
	assert.False(t, rec.Incomplete())
}

func TestAppend_OffsetConflictReportsCurrentSize(t *testing.T) {
	ctx := context.Background()
	svc, artifacts, _ := newService(t)

	_, err := svc.Append(ctx, chunk(0, pattern(400000), 1000000, ""))
	require.NoError(t, err)

	_, err = svc.Append(ctx, chunk(500000, pattern(1000), 1000000, ""))
	var oce *transferproto.OffsetConflictError
	require.True(t, errors.As(err, &oce))
	assert.Equal(t, int64(400000), oce.Current)
	assert.Equal(t, int64(500000), oce.Declared)

	size, err := artifacts.Length(ctx, "big.bin")
	require.NoError(t, err)
	assert.Equal(t, int64(400000), size)

	// Повтор уже принятого чанка — тоже конфликт, а не перезапись.
	_, err = svc.Append(ctx, chunk(0, pattern(10), 1000000, ""))
	assert.ErrorIs(t, err, transferproto.ErrOffsetConflict)
	size, _ = artifacts.Length(ctx, "big.bin")
	assert.Equal(t, int64(400000), size)
}

func TestAppend_FirstChunkMustStartAtZero(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newService(t)

	_, err := svc.Append(ctx, chunk(10, pattern(10), 100, ""))
	var oce *transferproto.OffsetConflictError
	require.True(t, errors.As(err, &oce))
	assert.Equal(t, int64(0), oce.Current)

	_, err = svc.Stat(ctx, "big.bin")
	assert.ErrorIs(t, err, transferproto.ErrNotFound)
}

func TestAppend_PayloadLengthMismatchIsMalformed(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newService(t)

	req := chunk(0, pattern(10), 100, "")
	req.Payload = req.Payload[:7]
	_, err := svc.Append(ctx, req)
	assert.ErrorIs(t, err, transferproto.ErrMalformedRequest)

	_, err = svc.Stat(ctx, "big.bin")
	assert.ErrorIs(t, err, transferproto.ErrNotFound)
}

func TestAppend_ChunkTooLargeAndInvalidName(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newService(t)
	svc.MaxChunkSize = 8

	_, err := svc.Append(ctx, chunk(0, pattern(9), 100, ""))
	assert.ErrorIs(t, err, transferproto.ErrChunkTooLarge)

	req := chunk(0, pattern(4), 100, "")
	req.Name = "../escape"
	_, err = svc.Append(ctx, req)
	assert.ErrorIs(t, err, transferproto.ErrInvalidName)
}

func TestAppend_LeaseBlocksOtherSessions(t *testing.T) {
	ctx := context.Background()
	svc, _, clk := newService(t)

	_, err := svc.Append(ctx, chunk(0, pattern(10), 30, "owner"))
	require.NoError(t, err)

	_, err = svc.Append(ctx, chunk(10, pattern(10), 30, "intruder"))
	assert.ErrorIs(t, err, transferproto.ErrLeaseHeld)
	_, err = svc.Append(ctx, chunk(10, pattern(10), 30, ""))
	assert.ErrorIs(t, err, transferproto.ErrLeaseHeld)

	info, err := svc.Stat(ctx, "big.bin")
	require.NoError(t, err)
	assert.Equal(t, int64(10), info.Size)

	clk.Advance(2 * time.Minute)
	res, err := svc.Append(ctx, chunk(10, pattern(10), 30, "intruder"))
	require.NoError(t, err)
	assert.Equal(t, int64(20), res.StoredSize)

	rec, err := svc.MetaStorage.Get(ctx, "big.bin")
	require.NoError(t, err)
	assert.Equal(t, "intruder", rec.Session)
}

func TestAppend_ConcurrentSameNameNeverInterleaves(t *testing.T) {
	ctx := context.Background()
	svc, artifacts, _ := newService(t)

	const writers = 16
	var wg sync.WaitGroup
	var mu sync.Mutex
	accepted := 0
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.Append(ctx, chunk(0, pattern(100), 100, "")); err == nil {
				mu.Lock()
				accepted++
				mu.Unlock()
			} else {
				assert.ErrorIs(t, err, transferproto.ErrOffsetConflict)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, accepted)
	size, err := artifacts.Length(ctx, "big.bin")
	require.NoError(t, err)
	assert.Equal(t, int64(100), size)
	assert.Equal(t, 0, svc.locks.size())
}

func TestOpen_Ranges(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newService(t)
	data := pattern(1000)
	_, err := svc.Append(ctx, chunk(0, data, 1000, ""))
	require.NoError(t, err)

	res, err := svc.Open(ctx, "big.bin", &transferproto.RangeSpec{Start: 100, End: 199})
	require.NoError(t, err)
	got, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	require.NoError(t, res.Body.Close())
	assert.True(t, res.Partial)
	assert.Equal(t, int64(100), res.Length())
	assert.Equal(t, data[100:200], got)
	assert.Equal(t, int64(1000), res.Size)

	res, err = svc.Open(ctx, "big.bin", &transferproto.RangeSpec{Start: 900, End: -1})
	require.NoError(t, err)
	assert.Equal(t, int64(999), res.End)
	_ = res.Body.Close()

	_, err = svc.Open(ctx, "big.bin", &transferproto.RangeSpec{Start: 0, End: 1000})
	var rnse *transferproto.RangeNotSatisfiableError
	require.True(t, errors.As(err, &rnse))
	assert.Equal(t, int64(1000), rnse.Size)

	_, err = svc.Open(ctx, "missing.bin", nil)
	assert.ErrorIs(t, err, transferproto.ErrNotFound)
}

func TestSweep_RemovesOnlyStaleIncomplete(t *testing.T) {
	ctx := context.Background()
	svc, artifacts, clk := newService(t)

	_, err := svc.Append(ctx, chunk(0, pattern(10), 100, ""))
	require.NoError(t, err)

	done := chunk(0, pattern(10), 10, "")
	done.Name = "done.bin"
	_, err = svc.Append(ctx, done)
	require.NoError(t, err)

	n, err := svc.Sweep(ctx, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	clk.Advance(2 * time.Hour)
	n, err = svc.Sweep(ctx, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = artifacts.Length(ctx, "big.bin")
	assert.ErrorIs(t, err, transferproto.ErrNotFound)
	_, err = artifacts.Length(ctx, "done.bin")
	assert.NoError(t, err)

	h, err := svc.Health(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.Health{OK: true, Artifacts: 1, StoredBytes: 10}, h)
}
