package exchange

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"uartloop/frame"
	"uartloop/serialcomm"
)

// CommandSource supplies the command list. Snapshot must return a copy the
// caller may keep; it is called once per round.
type CommandSource interface {
	Snapshot() []uint32
}

// Words is a fixed command list.
type Words []uint32

// Snapshot returns a copy of the words.
func (w Words) Snapshot() []uint32 {
	out := make([]uint32, len(w))
	copy(out, w)
	return out
}

// Stats are running totals for the current (or last) run.
type Stats struct {
	Round     uint64
	Exchanges uint64
	Passed    uint64
	Failed    uint64
	Short     uint64
}

// Session drives the exchange loop. Only one run is active at a time;
// a stopped or failed session can be started again.
type Session struct {
	sink   Sink
	config Config

	mu     sync.Mutex
	state  State
	stopCh chan struct{}
	done   chan struct{}
	err    error

	round     atomic.Uint64
	exchanges atomic.Uint64
	passed    atomic.Uint64
	failed    atomic.Uint64
	short     atomic.Uint64
}

// New creates an idle Session that reports to sink.
func New(sink Sink, opts ...Option) *Session {
	if sink == nil {
		sink = Discard
	}

	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	s := &Session{
		sink:   sink,
		config: cfg,
		state:  Idle,
	}
	cfg.Metrics.SetState(int(Idle))
	return s
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Err returns the transport failure that ended the most recent run, or nil.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Done returns a channel closed when the current run's loop has exited.
// Before the first Start it returns an already closed channel.
func (s *Session) Done() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return s.done
}

// Wait blocks until the current run's loop exits or ctx is done, and returns
// the run's transport failure, if any.
func (s *Session) Wait(ctx context.Context) error {
	select {
	case <-s.Done():
		return s.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stats returns the totals of the current (or last) run.
func (s *Session) Stats() Stats {
	return Stats{
		Round:     s.round.Load(),
		Exchanges: s.exchanges.Load(),
		Passed:    s.passed.Load(),
		Failed:    s.failed.Load(),
		Short:     s.short.Load(),
	}
}

// Start opens the transport and launches the round loop on its own goroutine.
// It does not wait for any exchange.
func (s *Session) Start(src CommandSource, tc serialcomm.Config) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.Active() {
		return ErrAlreadyRunning
	}
	if src == nil || len(src.Snapshot()) == 0 {
		return ErrEmptyCommandList
	}

	log := s.config.Logger
	port, err := s.config.Opener(tc)
	if err != nil {
		terr := &TransportError{Op: "open", Err: err}
		s.err = terr
		s.config.Metrics.IncTransportErrors()
		log.Error("open transport", "port", tc.Name, "error", err)
		s.sink.Emit(newLifecycleEvent(EventError, s.config.Now(), terr))
		return terr
	}

	s.err = nil
	s.stopCh = make(chan struct{})
	s.done = make(chan struct{})
	s.round.Store(0)
	s.exchanges.Store(0)
	s.passed.Store(0)
	s.failed.Store(0)
	s.short.Store(0)

	s.setStateLocked(Running)
	log.Info("session started", "port", tc.Name, "baud", tc.Baud)
	s.sink.Emit(newLifecycleEvent(EventStart, s.config.Now(), nil))

	go s.run(port, src, s.stopCh, s.done)
	return nil
}

// Stop asks the running loop to halt before its next write. It returns
// immediately; watch Done for the loop to reach Stopped. Calling Stop in any
// state other than Running has no effect.
func (s *Session) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != Running {
		return
	}
	s.setStateLocked(StopRequested)
	close(s.stopCh)
	s.config.Logger.Info("stop requested", "round", s.round.Load())
	s.sink.Emit(newLifecycleEvent(EventStopRequested, s.config.Now(), nil))
}

func (s *Session) setStateLocked(state State) {
	if s.state != state {
		s.config.Logger.Debug("session state", "from", s.state.String(), "to", state.String())
	}
	s.state = state
	s.config.Metrics.SetState(int(state))
}

// emptyListWait is the shortest pause between checks of an empty command list.
const emptyListWait = 50 * time.Millisecond

func (s *Session) run(port serialcomm.Port, src CommandSource, stop <-chan struct{}, done chan struct{}) {
	defer close(done)

	s.pause(s.config.SettleDelay, stop)

	idle := false
	for !stopRequested(stop) {
		words := src.Snapshot()
		if len(words) == 0 {
			// Empty rounds are not counted; wait for words to be added.
			if !idle {
				s.config.Logger.Info("command list empty, waiting")
				idle = true
			}
			s.pause(max(s.config.RoundGap, emptyListWait), stop)
			continue
		}
		idle = false

		round := s.round.Add(1)
		s.config.Metrics.IncRounds()
		s.config.Logger.Debug("round", "round", round, "words", len(words))

		if err := s.runRound(port, round, words, stop); err != nil {
			s.fail(port, err)
			return
		}

		s.pause(s.config.RoundGap, stop)
	}

	if err := port.Close(); err != nil {
		s.config.Logger.Warn("close transport", "error", err)
	}

	s.mu.Lock()
	s.setStateLocked(Stopped)
	s.config.Logger.Info("session stopped", "rounds", s.round.Load(), "exchanges", s.exchanges.Load())
	s.sink.Emit(newLifecycleEvent(EventStopped, s.config.Now(), nil))
	s.mu.Unlock()
}

func (s *Session) runRound(port serialcomm.Port, round uint64, words []uint32, stop <-chan struct{}) error {
	for i, word := range words {
		if stopRequested(stop) {
			s.config.Logger.Debug("round abandoned", "round", round, "index", i)
			return nil
		}

		rec, err := s.exchange(port, round, i, word)
		if err != nil {
			return err
		}
		s.sink.Emit(newExchangeEvent(rec))

		if i < len(words)-1 {
			s.pause(s.config.WordGap, stop)
		}
	}
	return nil
}

// exchange performs one request/response cycle. A short response is a
// normal outcome; only transport failures are returned as errors.
func (s *Session) exchange(port serialcomm.Port, round uint64, index int, word uint32) (Record, error) {
	req := frame.Encode(word)

	if err := port.Flush(); err != nil {
		return Record{}, &TransportError{Op: "flush", Err: err}
	}

	start := time.Now()
	if _, err := port.Write(req[:]); err != nil {
		return Record{}, &TransportError{Op: "write", Err: err}
	}

	raw, err := serialcomm.ReadExact(port, frame.ResponseSize, s.config.RxTimeout)
	if err != nil {
		return Record{}, &TransportError{Op: "read", Err: err}
	}
	elapsed := time.Since(start)

	rec := NewRecord(s.config.Now(), round, index, word, raw)

	s.exchanges.Add(1)
	switch {
	case rec.Short:
		s.short.Add(1)
		s.config.Logger.Warn("short frame", "round", round, "index", index, "tx", rec.TX, "len", rec.Length)
	case rec.Passed():
		s.passed.Add(1)
	default:
		s.failed.Add(1)
	}
	if !rec.Short && !rec.EchoOK {
		s.config.Logger.Debug("echo mismatch", "round", round, "index", index, "tx", rec.TX, "echo", rec.Echo)
	}
	s.config.Metrics.ObserveExchange(rec.Result(), elapsed)

	return rec, nil
}

func (s *Session) fail(port serialcomm.Port, err error) {
	log := s.config.Logger
	log.Error("transport failure", "error", err)
	s.config.Metrics.IncTransportErrors()

	if cerr := port.Close(); cerr != nil {
		log.Debug("close after failure", "error", cerr)
	}

	s.mu.Lock()
	s.err = err
	s.setStateLocked(Errored)
	s.sink.Emit(newLifecycleEvent(EventError, s.config.Now(), err))
	s.setStateLocked(Idle)
	s.mu.Unlock()

	if s.config.OnError != nil {
		s.config.OnError(err)
	}
}

// pause sleeps for d, returning early if stop is signalled.
func (s *Session) pause(d time.Duration, stop <-chan struct{}) {
	if d <= 0 {
		return
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
	case <-stop:
	}
}

func stopRequested(stop <-chan struct{}) bool {
	select {
	case <-stop:
		return true
	default:
		return false
	}
}
