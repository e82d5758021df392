package transferhttp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sir_venger/resumable_lite/internal/models"
	meta "github.com/sir_venger/resumable_lite/internal/repo"
	"github.com/sir_venger/resumable_lite/internal/storage"
	"github.com/sir_venger/resumable_lite/internal/usecase/transfersvc"
	"github.com/sir_venger/resumable_lite/pkg/transferproto"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	svc := transfersvc.New(transfersvc.Deps{
		Artifacts:   storage.NewMemoryStore(),
		MetaStorage: meta.NewMemoryStore(),
	})
	srv := httptest.NewServer(New(svc, Options{MaxChunkSize: 1 << 20, GCTTL: time.Nanosecond}))
	t.Cleanup(srv.Close)
	return srv
}

func put(t *testing.T, base, name, contentRange, session string, body []byte) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodPut, base+"/upload/"+name, bytes.NewReader(body))
	require.NoError(t, err)
	if contentRange != "" {
		req.Header.Set(transferproto.HeaderContentRange, contentRange)
	}
	if session != "" {
		req.Header.Set(transferproto.HeaderSession, session)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func get(t *testing.T, method, target, rangeHeader string) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequest(method, target, nil)
	require.NoError(t, err)
	if rangeHeader != "" {
		req.Header.Set(transferproto.HeaderRange, rangeHeader)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, b
}

func Test_UploadSequentialChunks(t *testing.T) {
	srv := newTestServer(t)
	payload := []byte("0123456789abcdefghij")

	resp := put(t, srv.URL, "f.bin", "bytes 0-9/20", "", payload[:10])
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "10", resp.Header.Get(transferproto.HeaderStoredSize))

	resp = put(t, srv.URL, "f.bin", "bytes 10-19/20", "", payload[10:])
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "20", resp.Header.Get(transferproto.HeaderStoredSize))

	resp, b := get(t, http.MethodGet, srv.URL+"/download/f.bin", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, payload, b)
	assert.Equal(t, transferproto.ContentTypeOctetStream, resp.Header.Get("Content-Type"))
	assert.Equal(t, "bytes", resp.Header.Get(transferproto.HeaderAcceptRanges))
}

func Test_UploadOffsetConflictReportsCurrentSize(t *testing.T) {
	srv := newTestServer(t)

	require.Equal(t, http.StatusOK, put(t, srv.URL, "f.bin", "bytes 0-9/30", "", make([]byte, 10)).StatusCode)

	resp := put(t, srv.URL, "f.bin", "bytes 20-29/30", "", make([]byte, 10))
	require.Equal(t, http.StatusRequestedRangeNotSatisfiable, resp.StatusCode)
	assert.Equal(t, "bytes */10", resp.Header.Get(transferproto.HeaderContentRange))

	head, _ := get(t, http.MethodHead, srv.URL+"/upload/f.bin", "")
	assert.Equal(t, int64(10), head.ContentLength)
}

func Test_UploadRejectsBadRequests(t *testing.T) {
	srv := newTestServer(t)

	cases := []struct {
		name, file, contentRange string
		body                     []byte
		want                     int
	}{
		{"missing range", "f.bin", "", []byte("abc"), http.StatusBadRequest},
		{"garbage range", "f.bin", "bytes x-y/z", []byte("abc"), http.StatusBadRequest},
		{"length mismatch", "f.bin", "bytes 0-9/10", []byte("abc"), http.StatusBadRequest},
		{"too large", "f.bin", fmt.Sprintf("bytes 0-%d/*", 2<<20), []byte("abc"), http.StatusRequestEntityTooLarge},
		{"traversal", "%2E%2E", "bytes 0-2/3", []byte("abc"), http.StatusBadRequest},
		{"slash", "a%2Fb", "bytes 0-2/3", []byte("abc"), http.StatusBadRequest},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp := put(t, srv.URL, tc.file, tc.contentRange, "", tc.body)
			assert.Equal(t, tc.want, resp.StatusCode)
		})
	}

	head, _ := get(t, http.MethodHead, srv.URL+"/upload/f.bin", "")
	assert.Equal(t, http.StatusNotFound, head.StatusCode)
}

func Test_UploadEscapedName(t *testing.T) {
	srv := newTestServer(t)
	name := url.PathEscape("my report 100%.bin")

	require.Equal(t, http.StatusOK, put(t, srv.URL, name, "bytes 0-4/5", "", []byte("hello")).StatusCode)

	head, _ := get(t, http.MethodHead, srv.URL+"/upload/"+name, "")
	require.Equal(t, http.StatusOK, head.StatusCode)
	assert.Equal(t, "5", head.Header.Get(transferproto.HeaderStoredSize))
	assert.Equal(t, "bytes", head.Header.Get(transferproto.HeaderAcceptRanges))

	_, b := get(t, http.MethodGet, srv.URL+"/download/"+name, "")
	assert.Equal(t, "hello", string(b))
}

func Test_UploadLeaseHeldByOtherSession(t *testing.T) {
	srv := newTestServer(t)

	require.Equal(t, http.StatusOK, put(t, srv.URL, "f.bin", "bytes 0-4/10", "session-a", []byte("hello")).StatusCode)

	resp := put(t, srv.URL, "f.bin", "bytes 5-9/10", "session-b", []byte("world"))
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp = put(t, srv.URL, "f.bin", "bytes 5-9/10", "session-a", []byte("world"))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func Test_DownloadRanges(t *testing.T) {
	srv := newTestServer(t)
	payload := []byte("0123456789")
	require.Equal(t, http.StatusOK, put(t, srv.URL, "f.bin", "bytes 0-9/10", "", payload).StatusCode)

	cases := []struct {
		rng, wantRange, wantBody string
	}{
		{"bytes=2-5", "bytes 2-5/10", "2345"},
		{"bytes=7-", "bytes 7-9/10", "789"},
		{"bytes=-3", "bytes 7-9/10", "789"},
		{"bytes=0-0", "bytes 0-0/10", "0"},
	}
	for _, tc := range cases {
		t.Run(tc.rng, func(t *testing.T) {
			resp, b := get(t, http.MethodGet, srv.URL+"/download/f.bin", tc.rng)
			require.Equal(t, http.StatusPartialContent, resp.StatusCode)
			assert.Equal(t, tc.wantRange, resp.Header.Get(transferproto.HeaderContentRange))
			assert.Equal(t, "bytes", resp.Header.Get(transferproto.HeaderAcceptRanges))
			assert.Equal(t, tc.wantBody, string(b))
		})
	}

	resp, _ := get(t, http.MethodGet, srv.URL+"/download/f.bin", "bytes=10-")
	require.Equal(t, http.StatusRequestedRangeNotSatisfiable, resp.StatusCode)
	assert.Equal(t, "bytes */10", resp.Header.Get(transferproto.HeaderContentRange))

	resp, _ = get(t, http.MethodGet, srv.URL+"/download/f.bin", "bytes=0-1,4-5")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = get(t, http.MethodGet, srv.URL+"/download/absent.bin", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, b := get(t, http.MethodHead, srv.URL+"/download/f.bin", "bytes=2-5")
	require.Equal(t, http.StatusPartialContent, resp.StatusCode)
	assert.Equal(t, int64(4), resp.ContentLength)
	assert.Empty(t, b)
}

func Test_HealthAndManualGC(t *testing.T) {
	srv := newTestServer(t)
	require.Equal(t, http.StatusOK, put(t, srv.URL, "done.bin", "bytes 0-2/3", "", []byte("abc")).StatusCode)
	require.Equal(t, http.StatusOK, put(t, srv.URL, "partial.bin", "bytes 0-2/9", "", []byte("abc")).StatusCode)

	resp, b := get(t, http.MethodGet, srv.URL+"/health", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var h models.Health
	require.NoError(t, json.Unmarshal(b, &h))
	assert.Equal(t, models.Health{OK: true, Artifacts: 2, StoredBytes: 6}, h)

	gcResp, err := http.Post(srv.URL+"/admin/gc", "application/json", strings.NewReader(""))
	require.NoError(t, err)
	defer gcResp.Body.Close()
	require.Equal(t, http.StatusOK, gcResp.StatusCode)
	var out map[string]int
	require.NoError(t, json.NewDecoder(gcResp.Body).Decode(&out))
	assert.Equal(t, 1, out["removed"])

	head, _ := get(t, http.MethodHead, srv.URL+"/upload/partial.bin", "")
	assert.Equal(t, http.StatusNotFound, head.StatusCode)
	head, _ = get(t, http.MethodHead, srv.URL+"/upload/done.bin", "")
	assert.Equal(t, http.StatusOK, head.StatusCode)
}

type countingSweeper struct{ calls chan time.Duration }

func (c countingSweeper) Sweep(_ context.Context, ttl time.Duration) (int, error) {
	c.calls <- ttl
	return 0, nil
}

func Test_StartGCRunsPeriodically(t *testing.T) {
	s := countingSweeper{calls: make(chan time.Duration, 16)}
	stop := StartGC(s, nil, time.Hour, 5*time.Millisecond)
	defer stop()

	select {
	case ttl := <-s.calls:
		assert.Equal(t, time.Hour, ttl)
	case <-time.After(2 * time.Second):
		t.Fatal("gc never ran")
	}

	stop()
	stop()
}

func Test_StartGCDisabled(t *testing.T) {
	stop := StartGC(countingSweeper{}, nil, 0, time.Second)
	stop()
}

func newServerWithStore(t *testing.T, artifacts storage.Store) *httptest.Server {
	t.Helper()
	svc := transfersvc.New(transfersvc.Deps{
		Artifacts:   artifacts,
		MetaStorage: meta.NewMemoryStore(),
	})
	srv := httptest.NewServer(New(svc, Options{MaxChunkSize: 1 << 20}))
	t.Cleanup(srv.Close)
	return srv
}

// brokenDisk принимает чтения, но любая дозапись падает.
type brokenDisk struct {
	storage.Store
}

func (brokenDisk) AppendAt(context.Context, string, int64, []byte) (int64, error) {
	return 0, fmt.Errorf("%w: write: no space left on device", transferproto.ErrStorageFailure)
}

func Test_UploadStorageFailureIs500(t *testing.T) {
	srv := newServerWithStore(t, brokenDisk{Store: storage.NewMemoryStore()})

	resp := put(t, srv.URL, "a.bin", "bytes 0-4/10", "", []byte("hello"))
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)

	head, _ := get(t, http.MethodHead, srv.URL+"/upload/a.bin", "")
	assert.Equal(t, http.StatusNotFound, head.StatusCode)
}

func Test_DirectoryInDataDirIsNotServed(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(root, ".meta"), 0o755))
	fsStore, err := storage.NewFSStore(root)
	require.NoError(t, err)
	srv := newServerWithStore(t, fsStore)

	head, _ := get(t, http.MethodHead, srv.URL+"/upload/.meta", "")
	assert.Equal(t, http.StatusNotFound, head.StatusCode)

	resp, _ := get(t, http.MethodGet, srv.URL+"/download/.meta", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	up := put(t, srv.URL, ".meta", "bytes 0-0/1", "", []byte("x"))
	assert.Equal(t, http.StatusBadRequest, up.StatusCode)
}
