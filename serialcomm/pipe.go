// serialcomm/pipe.go
package serialcomm

import (
	"bytes"
	"sync"
	"time"
)

// Pipe returns two connected in-memory ports. Bytes written to one end are
// read from the other. It stands in for a null-modem cable: loopback runs
// and tests drive a Responder on one end and a session on the other.
//
// Reads block for at most quantum when nothing is buffered and then return
// (0, nil), like a serial port with a read timeout.
func Pipe(quantum time.Duration) (*PipeEnd, *PipeEnd) {
	if quantum <= 0 {
		quantum = DefaultReadQuantum
	}
	ab := newPipeBuffer()
	ba := newPipeBuffer()
	done := make(chan struct{})
	once := &sync.Once{}

	a := &PipeEnd{in: ba, out: ab, quantum: quantum, done: done, once: once}
	b := &PipeEnd{in: ab, out: ba, quantum: quantum, done: done, once: once}
	return a, b
}

// PipeEnd is one side of a Pipe. It implements Port.
type PipeEnd struct {
	in      *pipeBuffer
	out     *pipeBuffer
	quantum time.Duration
	done    chan struct{}
	once    *sync.Once
}

type pipeBuffer struct {
	mu     sync.Mutex
	buf    bytes.Buffer
	notify chan struct{}
}

func newPipeBuffer() *pipeBuffer {
	return &pipeBuffer{notify: make(chan struct{}, 1)}
}

func (e *PipeEnd) closed() bool {
	select {
	case <-e.done:
		return true
	default:
		return false
	}
}

func (e *PipeEnd) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}

	timer := time.NewTimer(e.quantum)
	defer timer.Stop()

	for {
		e.in.mu.Lock()
		if e.in.buf.Len() > 0 {
			n, _ := e.in.buf.Read(p)
			e.in.mu.Unlock()
			return n, nil
		}
		e.in.mu.Unlock()

		if e.closed() {
			return 0, ErrPortClosed
		}

		select {
		case <-e.in.notify:
		case <-e.done:
		case <-timer.C:
			return 0, nil
		}
	}
}

func (e *PipeEnd) Write(p []byte) (int, error) {
	if e.closed() {
		return 0, ErrPortClosed
	}

	e.out.mu.Lock()
	n, _ := e.out.buf.Write(p)
	e.out.mu.Unlock()

	select {
	case e.out.notify <- struct{}{}:
	default:
	}
	return n, nil
}

// Flush discards everything buffered for this end to read.
func (e *PipeEnd) Flush() error {
	if e.closed() {
		return ErrPortClosed
	}
	e.in.mu.Lock()
	e.in.buf.Reset()
	e.in.mu.Unlock()
	return nil
}

// Close closes both ends; the peer sees ErrPortClosed once its buffer drains.
func (e *PipeEnd) Close() error {
	e.once.Do(func() { close(e.done) })
	return nil
}

func (e *PipeEnd) String() string {
	return "pipe"
}
