package chat

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"sync"
)

// MaxLineBytes bounds a single input line
const MaxLineBytes = 1 << 20

type lineResult struct {
	line string
	err  error
}

// LineReader reads prompted lines from an input stream without blocking cancellation.
type LineReader struct {
	ctx       context.Context
	out       io.Writer
	prompt    string
	lines     chan lineResult
	next      chan struct{}
	stop      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

// NewLineReader starts a reader over in. Each Read writes prompt to out and waits for a
// line; cancelling ctx makes Read return ErrInterrupted.
func NewLineReader(ctx context.Context, in io.Reader, out io.Writer, prompt string) *LineReader {
	r := &LineReader{
		ctx:    ctx,
		out:    out,
		prompt: prompt,
		lines:  make(chan lineResult, 1),
		next:   make(chan struct{}),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	go r.scan(in)
	return r
}

func (r *LineReader) scan(in io.Reader) {
	defer close(r.done)

	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), MaxLineBytes)
	for {
		select {
		case <-r.next:
		case <-r.stop:
			return
		case <-r.ctx.Done():
			return
		}
		if !scanner.Scan() {
			err := scanner.Err()
			if err == nil {
				err = io.EOF
			}
			r.lines <- lineResult{err: err}
			return
		}
		r.lines <- lineResult{line: scanner.Text()}
	}
}

// Read satisfies ReadFunc
func (r *LineReader) Read() (string, error) {
	if r.prompt != "" && r.out != nil {
		_, _ = fmt.Fprint(r.out, r.prompt)
	}
	if r.ctx.Err() != nil {
		return "", ErrInterrupted
	}

	select {
	case r.next <- struct{}{}:
	case <-r.done:
		return "", io.EOF
	case <-r.ctx.Done():
		return "", ErrInterrupted
	}

	select {
	case res := <-r.lines:
		return res.line, res.err
	case <-r.ctx.Done():
		return "", ErrInterrupted
	}
}

// Close stops the scanning goroutine once it is between reads.
func (r *LineReader) Close() {
	r.closeOnce.Do(func() { close(r.stop) })
}
