package transferclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sir_venger/resumable_lite/pkg/transferproto"
)

// State — состояние сессии загрузки.
type State int

const (
	StateIdle State = iota
	StateNegotiating
	StateTransferring
	StateCompleted
	StatePaused
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateNegotiating:
		return "negotiating"
	case StateTransferring:
		return "transferring"
	case StateCompleted:
		return "completed"
	case StatePaused:
		return "paused"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// ErrRemoteLarger: на сервере больше байт, чем в локальном источнике, значит
// удалённый артефакт не может быть префиксом этого файла.
var ErrRemoteLarger = errors.New("remote artifact is larger than local source")

// Progress считается только по подтверждённым сервером байтам.
type Progress struct {
	Uploaded int64
	Total    int64
	Percent  float64
}

// Session загружает один источник под одним именем. Start и Pause можно звать из
// разных горутин; одновременно идёт не больше одного PUT.
type Session struct {
	client *Client
	name   string
	src    Source
	id     string

	// OnProgress вызывается после каждого подтверждённого чанка.
	OnProgress func(Progress)

	run sync.Mutex

	mu       sync.Mutex
	state    State
	uploaded int64
	gen      uint64
	cancel   context.CancelFunc
	err      error
}

// SessionOption настраивает Session.
type SessionOption func(*Session)

// WithSessionID продолжает загрузку под ранее выданным id: аренда имени на сервере
// привязана к нему, поэтому новый процесс после паузы должен прийти с тем же id.
// Пустой id игнорируется.
func WithSessionID(id string) SessionOption {
	return func(s *Session) {
		if id != "" {
			s.id = id
		}
	}
}

// NewSession готовит загрузку src под именем name.
func (c *Client) NewSession(name string, src Source, opts ...SessionOption) *Session {
	s := &Session{
		client: c,
		name:   name,
		src:    src,
		id:     uuid.NewString(),
		state:  StateIdle,
		cancel: func() {},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Session) ID() string { return s.id }

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Err возвращает ошибку, с которой сессия перешла в Failed.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *Session) Progress() Progress {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.progressLocked()
}

func (s *Session) progressLocked() Progress {
	total := s.src.Size()
	p := Progress{Uploaded: s.uploaded, Total: total, Percent: 100}
	if total > 0 {
		p.Percent = float64(s.uploaded) * 100 / float64(total)
	}
	return p
}

// Start выясняет у сервера точку продолжения и последовательно отправляет чанки.
// Пауза возвращает (StatePaused, nil). Отмена ctx тоже ставит паузу, но с ErrCancelled.
// Новый Start отменяет предыдущий запуск и ждёт его завершения.
func (s *Session) Start(ctx context.Context) (State, error) {
	gen, tokenCtx, cancel := s.renewToken(ctx)
	defer cancel()

	s.run.Lock()
	defer s.run.Unlock()

	if tokenCtx.Err() != nil {
		return s.stopped(gen, tokenCtx)
	}

	total := s.src.Size()
	offset := s.client.StoredSize(tokenCtx, s.name)
	if tokenCtx.Err() != nil {
		return s.stopped(gen, tokenCtx)
	}
	if offset > total {
		return s.fail(gen, tokenCtx, fmt.Errorf("%w: remote %d, local %d", ErrRemoteLarger, offset, total))
	}
	if !s.ack(gen, offset, StateTransferring) {
		return s.stopped(gen, tokenCtx)
	}
	s.client.logger.Debug("resume negotiated",
		zap.String("name", s.name), zap.String("session", s.id),
		zap.Int64("offset", offset), zap.Int64("total", total))

	for c := range Plan(offset, total, s.client.chunkSize) {
		body := io.NewSectionReader(s.src, c.Start, c.Size())
		cr := transferproto.ContentRange{Start: c.Start, End: c.End, Total: total}

		if _, err := s.client.PutChunk(tokenCtx, s.name, s.id, cr, body); err != nil {
			if tokenCtx.Err() != nil {
				return s.stopped(gen, tokenCtx)
			}
			return s.fail(gen, tokenCtx, err)
		}
		if !s.ack(gen, c.End+1, StateTransferring) {
			return s.stopped(gen, tokenCtx)
		}
	}

	if !s.ack(gen, total, StateCompleted) {
		return s.stopped(gen, tokenCtx)
	}
	return StateCompleted, nil
}

// Pause отменяет запрос в полёте. Чанк, не подтверждённый до паузы, не засчитывается.
func (s *Session) Pause() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateNegotiating && s.state != StateTransferring {
		return
	}
	s.gen++
	s.cancel()
	s.state = StatePaused
}

// renewToken делает новый токен текущим, отменяя предыдущий.
func (s *Session) renewToken(parent context.Context) (uint64, context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancel()
	s.gen++
	s.cancel = cancel
	s.state = StateNegotiating
	s.err = nil

	return s.gen, ctx, cancel
}

// ack продвигает подтверждённый размер, только если токен gen ещё текущий.
func (s *Session) ack(gen uint64, uploaded int64, next State) bool {
	s.mu.Lock()
	if gen != s.gen {
		s.mu.Unlock()
		return false
	}
	s.uploaded = uploaded
	s.state = next
	p := s.progressLocked()
	s.mu.Unlock()

	if s.OnProgress != nil {
		s.OnProgress(p)
	}
	return true
}

func (s *Session) fail(gen uint64, ctx context.Context, err error) (State, error) {
	s.mu.Lock()
	if gen != s.gen {
		s.mu.Unlock()
		return s.stopped(gen, ctx)
	}
	s.state = StateFailed
	s.err = err
	s.mu.Unlock()

	s.client.logger.Warn("upload failed", zap.String("name", s.name), zap.String("session", s.id), zap.Error(err))
	return StateFailed, err
}

// stopped завершает запуск, прерванный отменой токена.
func (s *Session) stopped(gen uint64, ctx context.Context) (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if gen == s.gen {
		// Токен всё ещё текущий: отменили родительский ctx, а не Pause.
		s.gen++
		s.state = StatePaused
		return StatePaused, fmt.Errorf("%w: %w", transferproto.ErrCancelled, context.Cause(ctx))
	}
	if s.state == StatePaused {
		return StatePaused, nil
	}
	// Запуск вытеснен более новым Start.
	return s.state, transferproto.ErrCancelled
}
