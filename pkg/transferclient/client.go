package transferclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/melbahja/got"
	"go.uber.org/zap"

	"github.com/sir_venger/resumable_lite/pkg/transferproto"
)

const defaultProbeRetries = 2

// Client говорит с сервером возобновляемой загрузки.
type Client struct {
	baseURL   string
	http      *http.Client
	probe     *retryablehttp.Client
	logger    *zap.Logger
	chunkSize int64
	retries   int
}

type Option func(*Client)

// WithHTTPClient подменяет транспорт для PUT/GET и для HEAD-проб.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.http = c }
}

func WithLogger(l *zap.Logger) Option {
	return func(cl *Client) { cl.logger = l }
}

// WithChunkSize задаёт размер чанка загрузки. Значения <= 0 игнорируются.
func WithChunkSize(n int64) Option {
	return func(cl *Client) {
		if n > 0 {
			cl.chunkSize = n
		}
	}
}

// WithProbeRetries задаёт число повторов идемпотентного HEAD.
func WithProbeRetries(n int) Option {
	return func(cl *Client) { cl.retries = n }
}

// New создаёт клиента для сервера по адресу baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		http:      &http.Client{},
		logger:    zap.NewNop(),
		chunkSize: transferproto.DefaultChunkSize,
		retries:   defaultProbeRetries,
	}
	for _, opt := range opts {
		opt(c)
	}

	probe := retryablehttp.NewClient()
	probe.HTTPClient = c.http
	probe.RetryMax = c.retries
	probe.RetryWaitMin = 50 * time.Millisecond
	probe.RetryWaitMax = 500 * time.Millisecond
	probe.Logger = leveledLogger{c.logger.Sugar()}
	c.probe = probe

	return c
}

func (c *Client) ChunkSize() int64 { return c.chunkSize }

func (c *Client) uploadURL(name string) string {
	return fmt.Sprintf(transferproto.UploadPathFormat, c.baseURL, url.PathEscape(name))
}

func (c *Client) downloadURL(name string) string {
	return fmt.Sprintf(transferproto.DownloadPathFormat, c.baseURL, url.PathEscape(name))
}

// PutChunk отправляет один чанк и возвращает размер, подтверждённый сервером.
// PUT не повторяется: при 416 вызывающий должен заново узнать размер.
func (c *Client) PutChunk(ctx context.Context, name, session string, cr transferproto.ContentRange, body io.Reader) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.uploadURL(name), body)
	if err != nil {
		return 0, err
	}
	req.ContentLength = cr.Size()
	req.Header.Set(transferproto.HeaderContentRange, cr.String())
	req.Header.Set("Content-Type", transferproto.ContentTypeOctetStream)
	if session != "" {
		req.Header.Set(transferproto.HeaderSession, session)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return 0, fmt.Errorf("%w: %w", transferproto.ErrCancelled, ctx.Err())
		}
		return 0, fmt.Errorf("put chunk %s: %w", cr, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusRequestedRangeNotSatisfiable {
		current, perr := transferproto.ParseUnsatisfiedRange(resp.Header.Get(transferproto.HeaderContentRange))
		if perr != nil {
			return 0, fmt.Errorf("%w: %v", transferproto.ErrOffsetConflict, perr)
		}
		return 0, &transferproto.OffsetConflictError{Declared: cr.Start, Current: current}
	}
	if resp.StatusCode != http.StatusOK {
		return 0, statusError(resp)
	}
	_, _ = io.Copy(io.Discard, resp.Body)

	if v := resp.Header.Get(transferproto.HeaderStoredSize); v != "" {
		if n, perr := strconv.ParseInt(v, 10, 64); perr == nil {
			return n, nil
		}
	}
	return cr.End + 1, nil
}

// ReadRange скачивает диапазон артефакта. Вызывающий закрывает тело.
func (c *Client) ReadRange(ctx context.Context, name string, spec transferproto.RangeSpec) (io.ReadCloser, transferproto.ContentRange, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.downloadURL(name), nil)
	if err != nil {
		return nil, transferproto.ContentRange{}, err
	}
	req.Header.Set(transferproto.HeaderRange, spec.String())

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, transferproto.ContentRange{}, err
	}

	switch resp.StatusCode {
	case http.StatusPartialContent:
		cr, perr := transferproto.ParseContentRange(resp.Header.Get(transferproto.HeaderContentRange))
		if perr != nil {
			resp.Body.Close()
			return nil, transferproto.ContentRange{}, perr
		}
		return resp.Body, cr, nil
	case http.StatusOK:
		n := resp.ContentLength
		return resp.Body, transferproto.ContentRange{Start: 0, End: n - 1, Total: n}, nil
	case http.StatusRequestedRangeNotSatisfiable:
		defer resp.Body.Close()
		size, perr := transferproto.ParseUnsatisfiedRange(resp.Header.Get(transferproto.HeaderContentRange))
		if perr != nil {
			return nil, transferproto.ContentRange{}, fmt.Errorf("%w: %v", transferproto.ErrRangeNotSatisfiable, perr)
		}
		return nil, transferproto.ContentRange{}, &transferproto.RangeNotSatisfiableError{Size: size}
	default:
		defer resp.Body.Close()
		return nil, transferproto.ContentRange{}, statusError(resp)
	}
}

// Size возвращает полный размер артефакта, доступного на скачивание.
func (c *Client) Size(ctx context.Context, name string) (int64, error) {
	return c.headSize(ctx, c.downloadURL(name))
}

// Download скачивает артефакт целиком в dest параллельными диапазонными запросами.
func (c *Client) Download(ctx context.Context, name, dest string, connections int) error {
	size, err := c.Size(ctx, name)
	if err != nil {
		return err
	}
	// got выясняет размер запросом bytes=0-0, который для пустого артефакта даёт 416.
	if size == 0 {
		f, err := os.Create(dest)
		if err != nil {
			return err
		}
		return f.Close()
	}

	downloader := got.New()
	downloader.Client = c.http

	dl := got.NewDownload(ctx, c.downloadURL(name), dest)
	if connections > 0 {
		dl.Concurrency = uint(connections)
	}

	c.logger.Debug("download", zap.String("name", name), zap.Int64("size", size), zap.String("dest", dest))
	if err = downloader.Do(dl); err != nil {
		return fmt.Errorf("download %s: %w", name, err)
	}
	return nil
}

// headSize шлёт HEAD через retryablehttp и читает X-Size, а при его отсутствии Content-Length.
func (c *Client) headSize(ctx context.Context, u string) (int64, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodHead, u, nil)
	if err != nil {
		return 0, err
	}

	resp, err := c.probe.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, statusError(resp)
	}

	if v := resp.Header.Get(transferproto.HeaderStoredSize); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n < 0 {
			return 0, fmt.Errorf("%w: %s %q", transferproto.ErrMalformedRequest, transferproto.HeaderStoredSize, v)
		}
		return n, nil
	}
	if resp.ContentLength < 0 {
		return 0, fmt.Errorf("%w: size missing in HEAD response", transferproto.ErrMalformedRequest)
	}
	return resp.ContentLength, nil
}

// statusError переводит HTTP-статус обратно в таксономию ошибок.
func statusError(resp *http.Response) error {
	msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	detail := strings.TrimSpace(string(msg))

	var kind error
	switch {
	case resp.StatusCode == http.StatusBadRequest:
		kind = transferproto.ErrMalformedRequest
	case resp.StatusCode == http.StatusNotFound:
		kind = transferproto.ErrNotFound
	case resp.StatusCode == http.StatusConflict:
		kind = transferproto.ErrLeaseHeld
	case resp.StatusCode == http.StatusRequestEntityTooLarge:
		kind = transferproto.ErrChunkTooLarge
	case resp.StatusCode >= http.StatusInternalServerError:
		kind = transferproto.ErrStorageFailure
	default:
		if detail == "" {
			detail = resp.Status
		}
		return errors.New("unexpected response: " + detail)
	}
	// Сервер пишет в тело текст той же ошибки, повторять его не нужно.
	detail = strings.TrimPrefix(strings.TrimPrefix(detail, kind.Error()), ": ")
	if detail == "" {
		detail = resp.Status
	}
	return fmt.Errorf("%w: %s", kind, detail)
}

// leveledLogger адаптирует zap к retryablehttp.LeveledLogger.
type leveledLogger struct {
	s *zap.SugaredLogger
}

func (l leveledLogger) Error(msg string, kv ...interface{}) { l.s.Errorw(msg, kv...) }
func (l leveledLogger) Info(msg string, kv ...interface{})  { l.s.Infow(msg, kv...) }
func (l leveledLogger) Debug(msg string, kv ...interface{}) { l.s.Debugw(msg, kv...) }
func (l leveledLogger) Warn(msg string, kv ...interface{})  { l.s.Warnw(msg, kv...) }

var _ retryablehttp.LeveledLogger = leveledLogger{}
