package exchange

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"
)

// Sink consumes session events. Implementations must be safe for concurrent use.
type Sink interface {
	Emit(ev Event)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ev Event)

func (f SinkFunc) Emit(ev Event) { f(ev) }

// Discard drops every event.
var Discard Sink = SinkFunc(func(Event) {})

type multiSink []Sink

func (m multiSink) Emit(ev Event) {
	for _, s := range m {
		s.Emit(ev)
	}
}

// MultiSink fans every event out to each sink in order. Nil sinks are skipped.
func MultiSink(sinks ...Sink) Sink {
	out := make(multiSink, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			out = append(out, s)
		}
	}
	return out
}

// LineWriter writes each event's line, newline-terminated, to w.
type LineWriter struct {
	mu  sync.Mutex
	w   io.Writer
	err error
}

// NewLineWriter creates a LineWriter on w.
func NewLineWriter(w io.Writer) *LineWriter {
	return &LineWriter{w: w}
}

func (l *LineWriter) Emit(ev Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, err := io.WriteString(l.w, ev.Line+"\n"); err != nil && l.err == nil {
		l.err = err
	}
}

// Err returns the first write error, if any.
func (l *LineWriter) Err() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.err
}

type jsonEvent struct {
	Kind   EventKind `json:"kind"`
	Time   time.Time `json:"time"`
	Record *Record   `json:"record,omitempty"`
	Error  string    `json:"error,omitempty"`
	Line   string    `json:"line"`
}

// JSONSink writes one JSON object per event.
type JSONSink struct {
	mu  sync.Mutex
	enc *json.Encoder
}

// NewJSONSink creates a JSON lines sink on w.
func NewJSONSink(w io.Writer) *JSONSink {
	return &JSONSink{enc: json.NewEncoder(w)}
}

func (j *JSONSink) Emit(ev Event) {
	out := jsonEvent{Kind: ev.Kind, Time: ev.Time, Record: ev.Record, Line: ev.Line}
	if ev.Err != nil {
		out.Error = ev.Err.Error()
	}

	j.mu.Lock()
	defer j.mu.Unlock()
	_ = j.enc.Encode(out)
}

// LogSink reports events through a structured logger: exchanges at debug
// (short frames at warn), lifecycle at info and failures at error.
func LogSink(logger *slog.Logger) Sink {
	return SinkFunc(func(ev Event) {
		switch ev.Kind {
		case EventExchange:
			rec := ev.Record
			if rec.Short {
				logger.Warn("short frame", "round", rec.Round, "index", rec.Index, "tx", rec.TX, "len", rec.Length)
				return
			}
			logger.Debug("exchange", "round", rec.Round, "index", rec.Index, "tx", rec.TX, "result", rec.Result())
		case EventError:
			logger.Error("session failed", "error", ev.Err)
		default:
			logger.Info("session", "event", ev.Kind.String())
		}
	})
}

// LogFile is an append-only exchange log on disk.
type LogFile struct {
	mu   sync.Mutex
	path string
	f    *os.File
}

// OpenLogFile opens path for appending, creating it if needed.
func OpenLogFile(path string) (*LogFile, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	return &LogFile{path: path, f: f}, nil
}

func (l *LogFile) Emit(ev Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.f == nil {
		return
	}
	_, _ = l.f.WriteString(ev.Line + "\n")
}

// Truncate empties the file. Later events append from the start.
func (l *LogFile) Truncate() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.f == nil {
		return os.ErrClosed
	}
	return l.f.Truncate(0)
}

// Path returns the file path.
func (l *LogFile) Path() string {
	return l.path
}

// Close closes the file.
func (l *LogFile) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.f == nil {
		return nil
	}
	err := l.f.Close()
	l.f = nil
	return err
}
