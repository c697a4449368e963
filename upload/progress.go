package upload

import (
	"io"
	"sync"
)

// ProgressFunc receives upload progress in the range [0,100]. Values are
// monotonically non-decreasing; 100 is reported exactly once, on success.
type ProgressFunc func(percent int)

// progressReader counts bytes as the HTTP transport drains the request body
// and converts them to percentages. When the total size is unknown it stays
// silent; the driver still reports the terminal 100 on success.
type progressReader struct {
	reader io.Reader
	total  int64
	emit   ProgressFunc

	mu   sync.Mutex
	sent int64
	last int
}

func newProgressReader(r io.Reader, total int64, emit ProgressFunc) *progressReader {
	return &progressReader{reader: r, total: total, emit: emit, last: -1}
}

func (p *progressReader) Read(buf []byte) (int, error) {
	n, err := p.reader.Read(buf)
	if n > 0 && p.emit != nil && p.total > 0 {
		p.mu.Lock()
		p.sent += int64(n)
		percent := int(p.sent * 100 / p.total)
		if percent > 100 {
			percent = 100
		}
		// Hold back 100 until the server confirms the upload.
		if percent == 100 {
			percent = 99
		}
		shouldEmit := percent > p.last
		if shouldEmit {
			p.last = percent
		}
		p.mu.Unlock()

		if shouldEmit {
			p.emit(percent)
		}
	}
	return n, err
}

// finish reports the terminal 100.
func (p *progressReader) finish() {
	if p.emit == nil {
		return
	}
	p.mu.Lock()
	done := p.last >= 100
	p.last = 100
	p.mu.Unlock()
	if !done {
		p.emit(100)
	}
}
