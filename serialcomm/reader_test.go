package serialcomm

import (
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// delayedReader returns nothing until delay has elapsed since creation,
// then hands out data in chunks of at most chunk bytes.
type delayedReader struct {
	mu    sync.Mutex
	start time.Time
	delay time.Duration
	data  []byte
	chunk int
	eof   bool
}

func (d *delayedReader) Read(p []byte) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if time.Since(d.start) < d.delay || len(d.data) == 0 {
		if d.eof {
			return 0, io.EOF
		}
		return 0, nil
	}
	n := len(p)
	if d.chunk > 0 && n > d.chunk {
		n = d.chunk
	}
	n = copy(p[:n], d.data)
	d.data = d.data[n:]
	return n, nil
}

func TestReadExact_DataBeforeDeadline(t *testing.T) {
	const delay = 30 * time.Millisecond
	r := &delayedReader{start: time.Now(), delay: delay, data: make([]byte, 14), chunk: 5}

	start := time.Now()
	got, err := ReadExact(r, 14, 200*time.Millisecond)
	elapsed := time.Since(start)

	require.NoError(t, err)
	assert.Len(t, got, 14)
	assert.GreaterOrEqual(t, elapsed, delay)
	assert.Less(t, elapsed, 200*time.Millisecond)
}

func TestReadExact_DataAfterDeadline(t *testing.T) {
	const timeout = 40 * time.Millisecond
	r := &delayedReader{start: time.Now(), delay: 200 * time.Millisecond, data: make([]byte, 14)}

	start := time.Now()
	got, err := ReadExact(r, 14, timeout)
	elapsed := time.Since(start)

	require.NoError(t, err)
	assert.Less(t, len(got), 14)
	assert.GreaterOrEqual(t, elapsed, timeout)
	assert.Less(t, elapsed, timeout+50*time.Millisecond)
}

func TestReadExact_PartialData(t *testing.T) {
	r := &delayedReader{start: time.Now(), data: []byte{1, 2, 3, 4, 5, 6}}

	got, err := ReadExact(r, 14, 30*time.Millisecond)

	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3, 4, 5, 6}, got)
}

func TestReadExact_EOFIsEmptyPoll(t *testing.T) {
	r := &delayedReader{start: time.Now(), delay: 10 * time.Millisecond, data: []byte{9, 8, 7, 6}, eof: true}

	got, err := ReadExact(r, 4, 100*time.Millisecond)

	require.NoError(t, err)
	assert.Equal(t, []byte{9, 8, 7, 6}, got)
}

func TestReadExact_NeverExceedsN(t *testing.T) {
	r := &delayedReader{start: time.Now(), data: make([]byte, 64)}

	got, err := ReadExact(r, 14, 50*time.Millisecond)

	require.NoError(t, err)
	assert.Len(t, got, 14)
	assert.Len(t, r.data, 50)
}

type failingReader struct {
	first []byte
	err   error
}

func (f *failingReader) Read(p []byte) (int, error) {
	if len(f.first) > 0 {
		n := copy(p, f.first)
		f.first = f.first[n:]
		return n, nil
	}
	return 0, f.err
}

func TestReadExact_TransportError(t *testing.T) {
	boom := errors.New("device disappeared")
	r := &failingReader{first: []byte{0xAA, 0xBB}, err: boom}

	got, err := ReadExact(r, 14, time.Second)

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []byte{0xAA, 0xBB}, got)
}

func TestReadExact_ZeroCount(t *testing.T) {
	got, err := ReadExact(&failingReader{err: errors.New("unused")}, 0, time.Second)
	require.NoError(t, err)
	assert.Empty(t, got)
}
