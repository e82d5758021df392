package transferclient

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/docker/go-units"
)

const (
	progressBarWidth     = 32
	progressRenderPeriod = 120 * time.Millisecond
)

// ProgressBar рисует ASCII-индикатор выполнения по подтверждённым байтам.
type ProgressBar struct {
	mu       sync.Mutex
	out      io.Writer
	prefix   string
	total    int64
	current  int64
	drawn    time.Time
	width    int
	finished bool
}

// NewProgressBar создаёт индикатор, пишущий в out (по умолчанию os.Stdout).
func NewProgressBar(out io.Writer, prefix string, total int64) *ProgressBar {
	if out == nil {
		out = os.Stdout
	}
	return &ProgressBar{out: out, prefix: prefix, total: total}
}

func (p *ProgressBar) AddBytes(n int64) {
	p.move(func(cur int64) int64 { return cur + n })
}

// Set выставляет абсолютное значение, например подтверждённый размер после возобновления.
func (p *ProgressBar) Set(current int64) {
	p.move(func(int64) int64 { return current })
}

// Update подходит как Session.OnProgress.
func (p *ProgressBar) Update(pr Progress) {
	p.Set(pr.Uploaded)
}

func (p *ProgressBar) Finish() {
	p.finish(" ✓")
}

func (p *ProgressBar) Fail(err error) {
	mark := " ✗"
	if err != nil {
		mark += " " + err.Error()
	}
	p.finish(mark)
}

func (p *ProgressBar) move(next func(int64) int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.finished {
		return
	}
	p.current = next(p.current)
	if time.Since(p.drawn) >= progressRenderPeriod {
		p.drawLocked("", "")
	}
}

func (p *ProgressBar) finish(mark string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.finished {
		return
	}
	p.finished = true
	p.drawLocked(mark, "\n")
}

// drawLocked перерисовывает строку через \r и затирает хвост предыдущей, если она была длиннее.
func (p *ProgressBar) drawLocked(mark, end string) {
	line := p.lineLocked() + mark
	pad := ""
	if p.width > len(line) {
		pad = strings.Repeat(" ", p.width-len(line))
	}
	fmt.Fprintf(p.out, "\r%s%s%s", line, pad, end)
	p.width = len(line)
	p.drawn = time.Now()
}

func (p *ProgressBar) lineLocked() string {
	if p.total <= 0 {
		return fmt.Sprintf("%s %s transferred", p.prefix, humanBytes(p.current))
	}
	ratio := min(float64(p.current)/float64(p.total), 1)
	filled := int(ratio*progressBarWidth + 0.5)
	return fmt.Sprintf("%s [%s%s] %3d%% %s/%s",
		p.prefix,
		strings.Repeat("=", filled),
		strings.Repeat(" ", progressBarWidth-filled),
		int(ratio*100+0.5),
		humanBytes(p.current),
		humanBytes(p.total),
	)
}

type progressReadCloser struct {
	io.ReadCloser
	bar *ProgressBar
}

// NewProgressReadCloser продвигает bar по мере чтения inner и закрывает его на EOF или ошибке.
func NewProgressReadCloser(inner io.ReadCloser, bar *ProgressBar) io.ReadCloser {
	if bar == nil || inner == nil {
		return inner
	}
	return progressReadCloser{ReadCloser: inner, bar: bar}
}

func (r progressReadCloser) Read(b []byte) (int, error) {
	n, err := r.ReadCloser.Read(b)
	r.bar.AddBytes(int64(n))
	switch {
	case errors.Is(err, io.EOF):
		r.bar.Finish()
	case err != nil:
		r.bar.Fail(err)
	}
	return n, err
}

func (r progressReadCloser) Close() error {
	err := r.ReadCloser.Close()
	if err != nil {
		r.bar.Fail(err)
	} else {
		r.bar.Finish()
	}
	return err
}

func humanBytes(v int64) string {
	return units.BytesSize(float64(v))
}
