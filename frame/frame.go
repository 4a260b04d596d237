// Package frame implements the request/response wire format used to exercise
// the device: a 4-byte big-endian command word out, a fixed 14-byte frame back.
//
//	Request:  [WORD(4)]
//	Response: [ECHO(4)][RX1(4)][RX2(4)][ST1(1)][ST2(1)]
//
// RX1 and RX2 are opaque device values and are only ever rendered as hex.
// ST1 and ST2 are status markers; a marker passes only when it is exactly 'K'.
package frame

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"strings"
)

const (
	// RequestSize is the size of an encoded command word.
	RequestSize = 4

	// ResponseSize is the size of a complete response frame.
	ResponseSize = 14

	// StatusPass is the only status byte value treated as a pass.
	StatusPass byte = 'K'
)

// Response is a decoded, complete response frame.
type Response struct {
	Echo [4]byte
	RX1  [4]byte
	RX2  [4]byte
	ST1  byte
	ST2  byte
}

// Encode serializes a command word big-endian.
func Encode(word uint32) [RequestSize]byte {
	var b [RequestSize]byte
	binary.BigEndian.PutUint32(b[:], word)
	return b
}

// Decode slices a 14-byte response into its fields.
// Callers must branch on length first; anything but ResponseSize bytes is an error.
func Decode(raw []byte) (Response, error) {
	if len(raw) != ResponseSize {
		return Response{}, fmt.Errorf("response frame must be %d bytes, got %d", ResponseSize, len(raw))
	}

	var r Response
	copy(r.Echo[:], raw[0:4])
	copy(r.RX1[:], raw[4:8])
	copy(r.RX2[:], raw[8:12])
	r.ST1 = raw[12]
	r.ST2 = raw[13]
	return r, nil
}

// Classify reports whether each status marker equals StatusPass.
func Classify(st1, st2 byte) (pass1, pass2 bool) {
	return st1 == StatusPass, st2 == StatusPass
}

// Pass classifies the frame's status markers.
func (r Response) Pass() (pass1, pass2 bool) {
	return Classify(r.ST1, r.ST2)
}

// EchoMatches reports whether the echo field equals the encoded word.
func (r Response) EchoMatches(word uint32) bool {
	return r.Echo == Encode(word)
}

// Bytes re-serializes the frame.
func (r Response) Bytes() []byte {
	b := make([]byte, 0, ResponseSize)
	b = append(b, r.Echo[:]...)
	b = append(b, r.RX1[:]...)
	b = append(b, r.RX2[:]...)
	return append(b, r.ST1, r.ST2)
}

// Hex renders bytes as upper-case hex with no separators.
func Hex(b []byte) string {
	return strings.ToUpper(hex.EncodeToString(b))
}

// WordHex renders a command word the way it appears on the wire.
func WordHex(word uint32) string {
	b := Encode(word)
	return Hex(b[:])
}

// StatusChar renders a status byte as a character, substituting U+FFFD for
// bytes that are not valid single-byte UTF-8.
func StatusChar(b byte) string {
	if b >= 0x80 {
		return "�"
	}
	return string(rune(b))
}
