package integration

import (
	"context"
	"fmt"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"github.com/sir_venger/resumable_lite/internal/app"
	"github.com/sir_venger/resumable_lite/internal/config"
)

// startApp собирает сервер из YAML так же, как cmd/server: fs-хранилище и badger для метаданных.
func startApp(t *testing.T, dataDir, extra string) (*app.App, *httptest.Server) {
	t.Helper()
	yaml := fmt.Sprintf("listen_addr: \":0\"\nbackend: fs\ndata_dir: %q\nmeta_dsn: %q\nmax_chunk_size: 1MiB\n%s",
		filepath.Join(dataDir, "artifacts"), "badger://"+filepath.Join(dataDir, "meta"), extra)
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := config.LoadFile(path)
	if err != nil {
		t.Fatal(err)
	}

	a, err := app.New(context.Background(), cfg, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	srv := httptest.NewServer(a.Handler)
	return a, srv
}

func stop(t *testing.T, a *app.App, srv *httptest.Server) {
	t.Helper()
	srv.Close()
	if err := a.Close(); err != nil {
		t.Fatal(err)
	}
}

func pattern(n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte(i ^ (i >> 8))
	}
	return b
}
