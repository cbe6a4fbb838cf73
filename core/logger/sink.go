package logger

import (
	"bufio"
	"errors"
	"io"
	"sync"
)

var errSinkClosed = errors.New("logger: sink closed")

// sink serialises log lines onto a single background goroutine so that
// callers never block on slow files.
type sink struct {
	lines chan []byte
	flush chan chan error
	done  chan struct{}
	w     *bufio.Writer

	mu     sync.Mutex
	closed bool

	errMu sync.Mutex
	err   error
}

func newSink(bufSize int, outs ...io.Writer) *sink {
	if bufSize <= 0 {
		bufSize = 32 * 1024
	}
	s := &sink{
		lines: make(chan []byte, 512),
		flush: make(chan chan error),
		done:  make(chan struct{}),
		w:     bufio.NewWriterSize(io.MultiWriter(outs...), bufSize),
	}
	go s.run()
	return s
}

func (s *sink) run() {
	defer close(s.done)
	for {
		select {
		case line, ok := <-s.lines:
			if !ok {
				s.fail(s.w.Flush())
				return
			}
			s.write(line)
			if len(s.lines) == 0 {
				s.fail(s.w.Flush())
			}
		case reply := <-s.flush:
			s.drain()
			reply <- s.w.Flush()
		}
	}
}

// drain writes every line queued before a flush request.
func (s *sink) drain() {
	for {
		select {
		case line, ok := <-s.lines:
			if !ok {
				return
			}
			s.write(line)
		default:
			return
		}
	}
}

func (s *sink) write(line []byte) {
	if _, err := s.w.Write(line); err != nil {
		s.fail(err)
	}
}

func (s *sink) fail(err error) {
	if err == nil {
		return
	}
	s.errMu.Lock()
	if s.err == nil {
		s.err = err
	}
	s.errMu.Unlock()
}

func (s *sink) lastErr() error {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	return s.err
}

// Write queues a copy of line.
func (s *sink) Write(line []byte) error {
	if len(line) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errSinkClosed
	}
	s.lines <- append([]byte(nil), line...)
	return nil
}

// Flush blocks until every queued line reached the outputs.
func (s *sink) Flush() error {
	reply := make(chan error, 1)
	select {
	case s.flush <- reply:
		if err := <-reply; err != nil {
			return err
		}
		return s.lastErr()
	case <-s.done:
		return s.lastErr()
	}
}

// Close drains the queue and stops the writer goroutine.
func (s *sink) Close() error {
	s.mu.Lock()
	if !s.closed {
		s.closed = true
		close(s.lines)
	}
	s.mu.Unlock()
	<-s.done
	return s.lastErr()
}
