// Package cmdlist holds the host-side list of command words: parsing hex
// input, importing word files and a concurrency-safe editable list.
package cmdlist

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

var (
	// ErrEmptyInput is returned for blank input.
	ErrEmptyInput = errors.New("empty")

	// ErrComment is returned for input starting with '#'.
	ErrComment = errors.New("comment")

	// ErrNoWords is returned when a source contains no valid word.
	ErrNoWords = errors.New("no valid command words")
)

// ParseHex32 parses a 32-bit hex command word. Underscores and spaces are
// ignored and an optional 0x prefix is accepted: "0x1234_ABCD", "DEAD BEEF".
func ParseHex32(s string) (uint32, error) {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, "_", "")
	s = strings.ReplaceAll(s, " ", "")
	if s == "" {
		return 0, ErrEmptyInput
	}
	if strings.HasPrefix(s, "#") {
		return 0, ErrComment
	}
	if len(s) >= 2 && (s[:2] == "0x" || s[:2] == "0X") {
		s = s[2:]
	}

	v, err := strconv.ParseUint(s, 16, 64)
	if err != nil {
		var numErr *strconv.NumError
		if errors.As(err, &numErr) && errors.Is(numErr.Err, strconv.ErrRange) {
			return 0, fmt.Errorf("out of range 0..FFFFFFFF")
		}
		return 0, fmt.Errorf("invalid hex %q", s)
	}
	if v > 0xFFFFFFFF {
		return 0, fmt.Errorf("out of range 0..FFFFFFFF")
	}
	return uint32(v), nil
}

// LineError reports the line that failed to parse.
type LineError struct {
	Line int
	Text string
	Err  error
}

func (e *LineError) Error() string {
	return fmt.Sprintf("line %d %q: %v", e.Line, e.Text, e.Err)
}

func (e *LineError) Unwrap() error {
	return e.Err
}

// Parse reads one word per line. Blank lines and '#' comments are skipped;
// the first malformed line aborts with a *LineError.
func Parse(r io.Reader) ([]uint32, error) {
	var words []uint32
	scanner := bufio.NewScanner(r)
	lineNo := 0

	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		w, err := ParseHex32(line)
		if err != nil {
			return nil, &LineError{Line: lineNo, Text: line, Err: err}
		}
		words = append(words, w)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read command words: %w", err)
	}

	if len(words) == 0 {
		return nil, ErrNoWords
	}
	return words, nil
}

// ParseStrings parses each element as a command word.
func ParseStrings(items []string) ([]uint32, error) {
	words := make([]uint32, 0, len(items))
	for i, item := range items {
		w, err := ParseHex32(item)
		if err != nil {
			return nil, &LineError{Line: i + 1, Text: item, Err: err}
		}
		words = append(words, w)
	}
	return words, nil
}

// LoadFile parses a words file.
func LoadFile(path string) ([]uint32, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open words file: %w", err)
	}
	defer f.Close()

	words, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return words, nil
}
