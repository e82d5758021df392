package transferclient

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sir_venger/resumable_lite/internal/app/transferhttp"
	meta "github.com/sir_venger/resumable_lite/internal/repo"
	"github.com/sir_venger/resumable_lite/internal/storage"
	"github.com/sir_venger/resumable_lite/internal/usecase/transfersvc"
	"github.com/sir_venger/resumable_lite/pkg/transferproto"
)

// newServer поднимает настоящий сервер на памяти; wrap позволяет вклиниться перед ним.
func newServer(t *testing.T, wrap func(http.Handler) http.Handler) *httptest.Server {
	t.Helper()
	svc := transfersvc.New(transfersvc.Deps{
		Artifacts:   storage.NewMemoryStore(),
		MetaStorage: meta.NewMemoryStore(),
	})
	var h http.Handler = transferhttp.New(svc, transferhttp.Options{})
	if wrap != nil {
		h = wrap(h)
	}
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return srv
}

func pattern(n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte(i*31 + i/7)
	}
	return b
}

func fetchAll(t *testing.T, c *Client, name string) []byte {
	t.Helper()
	body, _, err := c.ReadRange(context.Background(), name, transferproto.RangeSpec{Start: 0, End: -1})
	require.NoError(t, err)
	defer body.Close()

	var buf bytes.Buffer
	_, err = buf.ReadFrom(body)
	require.NoError(t, err)
	return buf.Bytes()
}

func bytesReader(b []byte) *bytes.Reader { return bytes.NewReader(b) }
