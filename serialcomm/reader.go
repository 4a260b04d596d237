// serialcomm/reader.go
package serialcomm

import (
	"errors"
	"io"
	"time"
)

// PollInterval is how long ReadExact yields after a read that returned no data.
const PollInterval = time.Millisecond

// ReadExact collects n bytes from r, or whatever arrived before timeout elapsed.
//
// A zero-byte read reporting io.EOF is treated as "nothing buffered yet";
// serial drivers report an expired VTIME that way. Any other read error is
// returned together with the bytes collected so far.
//
// The result never exceeds n bytes. Elapsed time may overrun timeout by at
// most one blocking Read of the underlying port.
func ReadExact(r io.Reader, n int, timeout time.Duration) ([]byte, error) {
	if n <= 0 {
		return []byte{}, nil
	}

	buf := make([]byte, n)
	collected := 0
	start := time.Now()

	for collected < n && time.Since(start) < timeout {
		m, err := r.Read(buf[collected:])
		if m > 0 {
			collected += m
		}
		if err != nil && !errors.Is(err, io.EOF) {
			return buf[:collected], err
		}
		if m == 0 {
			time.Sleep(PollInterval)
		}
	}

	return buf[:collected], nil
}
