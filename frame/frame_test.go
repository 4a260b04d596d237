package frame

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncode(t *testing.T) {
	tests := []struct {
		name string
		word uint32
		want [4]byte
	}{
		{"zero", 0x00000000, [4]byte{0x00, 0x00, 0x00, 0x00}},
		{"one", 0x00000001, [4]byte{0x00, 0x00, 0x00, 0x01}},
		{"big endian", 0x12345678, [4]byte{0x12, 0x34, 0x56, 0x78}},
		{"max", 0xFFFFFFFF, [4]byte{0xFF, 0xFF, 0xFF, 0xFF}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Encode(tt.word))
		})
	}
}

func TestDecode_EchoRoundTrip(t *testing.T) {
	suffix := []byte{0xAA, 0xAA, 0xAA, 0xAA, 0xBB, 0xBB, 0xBB, 0xBB, 'K', 'x'}
	words := []uint32{0, 1, 0x7FFFFFFF, 0x80000000, 0xDEADBEEF, 0xFFFFFFFF}

	for _, w := range words {
		req := Encode(w)
		raw := append(req[:], suffix...)

		resp, err := Decode(raw)
		require.NoError(t, err)
		assert.Equal(t, req, resp.Echo, "word 0x%08X", w)
		assert.True(t, resp.EchoMatches(w))
	}
}

func TestDecode_Fields(t *testing.T) {
	raw := []byte{
		0x00, 0x00, 0x00, 0x02, // echo
		0xAA, 0xAA, 0xAA, 0xAA, // rx1
		0xBB, 0xBB, 0xBB, 0xBB, // rx2
		'K', 'E',
	}

	resp, err := Decode(raw)
	require.NoError(t, err)

	assert.Equal(t, "00000002", Hex(resp.Echo[:]))
	assert.Equal(t, "AAAAAAAA", Hex(resp.RX1[:]))
	assert.Equal(t, "BBBBBBBB", Hex(resp.RX2[:]))
	assert.Equal(t, byte('K'), resp.ST1)
	assert.Equal(t, byte('E'), resp.ST2)
	assert.Equal(t, raw, resp.Bytes())

	pass1, pass2 := resp.Pass()
	assert.True(t, pass1)
	assert.False(t, pass2)
}

func TestDecode_WrongLength(t *testing.T) {
	for _, n := range []int{0, 6, 13, 15} {
		_, err := Decode(make([]byte, n))
		assert.Error(t, err, "len %d", n)
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		st1, st2 byte
		want1    bool
		want2    bool
	}{
		{"both K", 'K', 'K', true, true},
		{"first only", 'K', 'E', true, false},
		{"second only", 0x00, 'K', false, true},
		{"lowercase k", 'k', 'k', false, false},
		{"null bytes", 0x00, 0x00, false, false},
		{"error marker", 'E', 'E', false, false},
		{"high byte", 0xCB, 0xFF, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p1, p2 := Classify(tt.st1, tt.st2)
			assert.Equal(t, tt.want1, p1)
			assert.Equal(t, tt.want2, p2)
		})
	}
}

func TestClassify_OnlyK(t *testing.T) {
	for b := 0; b < 256; b++ {
		p1, p2 := Classify(byte(b), byte(b))
		want := byte(b) == 'K'
		assert.Equal(t, want, p1, "byte 0x%02X", b)
		assert.Equal(t, want, p2, "byte 0x%02X", b)
	}
}

func TestWordHex(t *testing.T) {
	assert.Equal(t, "0000ABCD", WordHex(0xABCD))
	assert.Equal(t, "K", StatusChar('K'))
	assert.Equal(t, "�", StatusChar(0xFF))
}
