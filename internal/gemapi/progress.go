package gemapi

import (
	"io"
	"sync"
)

// ProgressFunc receives a percentage in [0, 100]
type ProgressFunc func(percent int)

// progressReader reports how much of a known-length body has been consumed.
// Callbacks only fire when the whole-number percentage changes.
type progressReader struct {
	r        io.Reader
	total    int64
	read     int64
	last     int
	onChange ProgressFunc
	mu       sync.Mutex
}

func newProgressReader(r io.Reader, total int64, fn ProgressFunc) io.Reader {
	if fn == nil {
		return r
	}
	return &progressReader{r: r, total: total, last: -1, onChange: fn}
}

func (p *progressReader) Read(buf []byte) (int, error) {
	n, err := p.r.Read(buf)

	p.mu.Lock()
	p.read += int64(n)
	percent := 100
	if p.total > 0 {
		percent = int(p.read * 100 / p.total)
	}
	if percent > 100 {
		percent = 100
	}
	changed := percent != p.last
	p.last = percent
	p.mu.Unlock()

	if changed {
		p.onChange(percent)
	}
	return n, err
}
