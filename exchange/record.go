package exchange

import (
	"fmt"
	"time"

	"uartloop/frame"
	"uartloop/metrics"
)

// TimeLayout is the timestamp format at the start of every line.
const TimeLayout = "2006-01-02 15:04:05.000"

// Record is the classified outcome of one exchange.
// A SHORT record carries only the received length and bytes.
type Record struct {
	Time  time.Time `json:"time"`
	Round uint64    `json:"round"`
	Index int       `json:"index"`
	Word  uint32    `json:"word"`
	TX    string    `json:"tx"`

	Short  bool   `json:"short"`
	Length int    `json:"length"`
	RX     string `json:"rx"`

	Echo   string `json:"echo,omitempty"`
	EchoOK bool   `json:"echo_ok"`
	RX1    string `json:"rx1,omitempty"`
	RX2    string `json:"rx2,omitempty"`
	ST1    byte   `json:"st1"`
	ST2    byte   `json:"st2"`
	Pass1  bool   `json:"pass1"`
	Pass2  bool   `json:"pass2"`
}

// NewRecord classifies the bytes received for word.
func NewRecord(ts time.Time, round uint64, index int, word uint32, raw []byte) Record {
	rec := Record{
		Time:   ts,
		Round:  round,
		Index:  index,
		Word:   word,
		TX:     frame.WordHex(word),
		Length: len(raw),
		RX:     frame.Hex(raw),
	}

	resp, err := frame.Decode(raw)
	if err != nil {
		rec.Short = true
		return rec
	}

	rec.Echo = frame.Hex(resp.Echo[:])
	rec.EchoOK = resp.EchoMatches(word)
	rec.RX1 = frame.Hex(resp.RX1[:])
	rec.RX2 = frame.Hex(resp.RX2[:])
	rec.ST1 = resp.ST1
	rec.ST2 = resp.ST2
	rec.Pass1, rec.Pass2 = resp.Pass()
	return rec
}

// Passed reports a complete frame with both markers passing.
func (r Record) Passed() bool {
	return !r.Short && r.Pass1 && r.Pass2
}

// Result is the metrics label for the record.
func (r Record) Result() string {
	switch {
	case r.Short:
		return metrics.ResultShort
	case r.Pass1 && r.Pass2:
		return metrics.ResultPass
	default:
		return metrics.ResultFail
	}
}

// Line formats the record as one log line.
func (r Record) Line() string {
	ts := r.Time.Format(TimeLayout)
	if r.Short {
		return fmt.Sprintf("%s | R=%d I=%d | TX=%s | RX=%s | SHORT len=%d",
			ts, r.Round, r.Index, r.TX, r.RX, r.Length)
	}
	return fmt.Sprintf("%s | R=%d I=%d | TX=%s | ECHO=%s | RX1=%s | RX2=%s | ST1=%s | ST2=%s | %s | %s",
		ts, r.Round, r.Index, r.TX, r.Echo, r.RX1, r.RX2,
		frame.StatusChar(r.ST1), frame.StatusChar(r.ST2),
		verdict(r.Pass1, "1"), verdict(r.Pass2, "2"))
}

func verdict(pass bool, slot string) string {
	if pass {
		return "PASS" + slot
	}
	return "FAIL" + slot
}

// EventKind identifies what an Event reports.
type EventKind int

const (
	EventStart EventKind = iota
	EventStopRequested
	EventExchange
	EventStopped
	EventError
	EventLogCleared
)

func (k EventKind) String() string {
	switch k {
	case EventStart:
		return "START"
	case EventStopRequested:
		return "STOP_REQUESTED"
	case EventExchange:
		return "EXCHANGE"
	case EventStopped:
		return "STOPPED"
	case EventError:
		return "ERROR"
	case EventLogCleared:
		return "LOG_CLEARED"
	default:
		return fmt.Sprintf("EVENT(%d)", int(k))
	}
}

// MarshalText encodes the kind by name.
func (k EventKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Event is one line-worth of session output.
type Event struct {
	Kind   EventKind
	Time   time.Time
	Record *Record // EventExchange only
	Err    error   // EventError only

	// Line is the formatted text for the event.
	Line string
}

func newLifecycleEvent(kind EventKind, ts time.Time, err error) Event {
	ev := Event{Kind: kind, Time: ts, Err: err}
	stamp := ts.Format(TimeLayout)
	switch kind {
	case EventStart:
		ev.Line = stamp + " | START"
	case EventStopRequested:
		ev.Line = stamp + " | STOP requested"
	case EventStopped:
		ev.Line = stamp + " | STOPPED"
	case EventError:
		ev.Line = fmt.Sprintf("%s | ERROR: %v", stamp, err)
	case EventLogCleared:
		ev.Line = stamp + " | LOG CLEARED"
	}
	return ev
}

// LogCleared reports that the exchange log was emptied at ts.
func LogCleared(ts time.Time) Event {
	return newLifecycleEvent(EventLogCleared, ts, nil)
}

func newExchangeEvent(rec Record) Event {
	return Event{Kind: EventExchange, Time: rec.Time, Record: &rec, Line: rec.Line()}
}
