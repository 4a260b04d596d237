// serialcomm/responder.go
package serialcomm

import (
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"uartloop/frame"
	"uartloop/internal/logging"
)

// ReplyFunc builds the response to one 4-byte request.
// A nil or empty result sends nothing.
type ReplyFunc func(req [frame.RequestSize]byte) []byte

// EchoReply answers every request with its echo, fixed RX values and status bytes.
func EchoReply(rx1, rx2 uint32, st1, st2 byte) ReplyFunc {
	return func(req [frame.RequestSize]byte) []byte {
		return frame.Response{
			Echo: req,
			RX1:  frame.Encode(rx1),
			RX2:  frame.Encode(rx2),
			ST1:  st1,
			ST2:  st2,
		}.Bytes()
	}
}

// ResponderConfig configures a Responder.
type ResponderConfig struct {
	// Reply builds each response. Default is EchoReply(0, 0, 'K', 'K').
	Reply ReplyFunc

	// IdleTimeout discards a partial request once no byte has arrived for this long.
	IdleTimeout time.Duration

	Logger *slog.Logger
}

// Responder plays the device side of the link: it reads 4-byte requests
// and writes back whatever Reply produces. It owns the port and closes it
// when the loop exits.
type Responder struct {
	port   Port
	config ResponderConfig

	mu      sync.Mutex
	started bool
	stopCh  chan struct{}
	done    chan struct{}
	err     error
	served  atomic.Uint64
}

const responderPollWindow = 50 * time.Millisecond

// NewResponder creates a responder on port. Call Start to begin serving.
func NewResponder(port Port, cfg ResponderConfig) *Responder {
	if cfg.Reply == nil {
		cfg.Reply = EchoReply(0, 0, frame.StatusPass, frame.StatusPass)
	}
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.NewNop()
	}
	return &Responder{
		port:   port,
		config: cfg,
		stopCh: make(chan struct{}),
		done:   make(chan struct{}),
	}
}

// Start launches the serving goroutine.
func (r *Responder) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.started {
		return errors.New("responder already started")
	}
	r.started = true
	go r.loop()
	return nil
}

func (r *Responder) loop() {
	defer close(r.done)
	defer r.port.Close()

	log := r.config.Logger
	log.Info("responder started")

	pending := make([]byte, 0, frame.RequestSize)
	lastData := time.Now()

	for {
		select {
		case <-r.stopCh:
			log.Info("responder stopped", "served", r.served.Load())
			return
		default:
		}

		chunk, err := ReadExact(r.port, frame.RequestSize-len(pending), responderPollWindow)
		if errors.Is(err, ErrPortClosed) {
			log.Info("responder link closed", "served", r.served.Load())
			return
		}
		if err != nil {
			log.Error("responder read failed", "error", err)
			r.setErr(err)
			return
		}

		if len(chunk) == 0 {
			if len(pending) > 0 && time.Since(lastData) > r.config.IdleTimeout {
				log.Warn("discarding partial request", "bytes", frame.Hex(pending))
				pending = pending[:0]
			}
			continue
		}

		lastData = time.Now()
		pending = append(pending, chunk...)
		if len(pending) < frame.RequestSize {
			continue
		}

		var req [frame.RequestSize]byte
		copy(req[:], pending)
		pending = pending[:0]

		resp := r.config.Reply(req)
		log.Debug("request", "tx", frame.Hex(req[:]), "reply", frame.Hex(resp))
		if len(resp) > 0 {
			if _, err := r.port.Write(resp); err != nil {
				log.Error("responder write failed", "error", err)
				r.setErr(err)
				return
			}
		}
		r.served.Add(1)
	}
}

func (r *Responder) setErr(err error) {
	r.mu.Lock()
	r.err = err
	r.mu.Unlock()
}

// Err returns the error that ended the serving loop, if any.
func (r *Responder) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

// Served reports how many requests have been answered.
func (r *Responder) Served() uint64 {
	return r.served.Load()
}

// Done is closed once the serving loop has exited.
func (r *Responder) Done() <-chan struct{} {
	return r.done
}

// Close stops the loop and waits for it to exit.
func (r *Responder) Close() error {
	r.mu.Lock()
	started := r.started
	select {
	case <-r.stopCh:
	default:
		close(r.stopCh)
	}
	r.mu.Unlock()

	if !started {
		return r.port.Close()
	}
	<-r.done
	return nil
}
