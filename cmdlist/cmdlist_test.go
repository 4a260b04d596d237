package cmdlist

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseHex32(t *testing.T) {
	tests := []struct {
		in      string
		want    uint32
		wantErr bool
	}{
		{"1", 0x1, false},
		{"0x00000001", 0x1, false},
		{"0XdeadBEEF", 0xDEADBEEF, false},
		{"  1234_ABCD  ", 0x1234ABCD, false},
		{"DEAD BEEF", 0xDEADBEEF, false},
		{"FFFFFFFF", 0xFFFFFFFF, false},
		{"100000000", 0, true},
		{"FFFFFFFFFFFFFFFFFF", 0, true},
		{"xyz", 0, true},
		{"0x", 0, true},
		{"-1", 0, true},
		{"", 0, true},
		{"# note", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseHex32(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseHex32_Sentinels(t *testing.T) {
	_, err := ParseHex32("   ")
	assert.ErrorIs(t, err, ErrEmptyInput)

	_, err = ParseHex32("#00000001")
	assert.ErrorIs(t, err, ErrComment)
}

func TestParse(t *testing.T) {
	input := `# test words
0x00000001

00000002
  # indented comment
dead_beef
`
	words, err := Parse(strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, []uint32{1, 2, 0xDEADBEEF}, words)
}

func TestParse_BadLine(t *testing.T) {
	_, err := Parse(strings.NewReader("00000001\nnope\n"))
	require.Error(t, err)

	var lineErr *LineError
	require.True(t, errors.As(err, &lineErr))
	assert.Equal(t, 2, lineErr.Line)
	assert.Equal(t, "nope", lineErr.Text)
}

func TestParse_NoWords(t *testing.T) {
	_, err := Parse(strings.NewReader("# only comments\n\n"))
	assert.ErrorIs(t, err, ErrNoWords)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "words.txt")
	require.NoError(t, os.WriteFile(path, []byte("0x0A\n0x0B\n"), 0o644))

	words, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []uint32{0x0A, 0x0B}, words)

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.txt"))
	assert.Error(t, err)
}

func TestParseStrings(t *testing.T) {
	words, err := ParseStrings([]string{"1", "0x2"})
	require.NoError(t, err)
	assert.Equal(t, []uint32{1, 2}, words)

	_, err = ParseStrings([]string{"1", "zz"})
	var lineErr *LineError
	require.ErrorAs(t, err, &lineErr)
	assert.Equal(t, 2, lineErr.Line)
}

func TestList_Edit(t *testing.T) {
	l := NewList(1, 2, 3)

	w, err := l.Remove(1)
	require.NoError(t, err)
	assert.Equal(t, uint32(2), w)
	assert.Equal(t, []uint32{1, 3}, l.Snapshot())

	_, err = l.Remove(5)
	assert.Error(t, err)

	l.Add(4)
	assert.Equal(t, 3, l.Len())
	assert.Equal(t, "  0  0x00000001\n  1  0x00000003\n  2  0x00000004\n", l.String())

	l.Clear()
	assert.Zero(t, l.Len())
	assert.Empty(t, l.Snapshot())
}

func TestList_SnapshotIsIndependent(t *testing.T) {
	l := NewList(1, 2)
	snap := l.Snapshot()

	l.Add(3)
	_, _ = l.Remove(0)
	snap[1] = 99

	assert.Equal(t, []uint32{2, 3}, l.Snapshot())
	assert.Equal(t, []uint32{1, 99}, snap)
}

func TestList_ConcurrentEdits(t *testing.T) {
	l := NewList()
	var wg sync.WaitGroup

	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func(v uint32) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				l.Add(v)
			}
		}(uint32(i))
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_ = l.Snapshot()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 800, l.Len())
}
