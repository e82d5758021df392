package transferhttp

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/sir_venger/resumable_lite/internal/usecase/transfersvc"
)

// Server serves the resumable transfer HTTP API.
type Server struct {
	svc          transfersvc.Service
	logger       *zap.Logger
	maxChunkSize int64
	gcTTL        time.Duration
}

// Options настраивает HTTP-слой.
type Options struct {
	Logger       *zap.Logger
	MaxChunkSize int64
	// GCTTL — возраст незавершённой загрузки для ручного POST /admin/gc.
	GCTTL time.Duration
}

// New создаёт HTTP-обработчик поверх сервиса передачи.
func New(svc transfersvc.Service, opts Options) http.Handler {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.MaxChunkSize <= 0 {
		opts.MaxChunkSize = transfersvc.DefaultMaxChunkSize
	}
	if opts.GCTTL <= 0 {
		opts.GCTTL = manualGCTTL
	}

	srv := &Server{
		svc:          svc,
		logger:       opts.Logger,
		maxChunkSize: opts.MaxChunkSize,
		gcTTL:        opts.GCTTL,
	}

	return srv.routes()
}

// routes регистрирует обработчики загрузки, выдачи, здоровья и GC.
func (a *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(a.logger))

	r.Route("/upload/{name}", func(ur chi.Router) {
		ur.Put("/", a.uploadChunk)
		ur.Head("/", a.inspectUpload)
	})
	r.Route("/download/{name}", func(dr chi.Router) {
		dr.Get("/", a.download)
		dr.Head("/", a.download)
	})

	r.Get("/health", a.health)
	r.Post("/admin/gc", a.gcOnce)

	return r
}
