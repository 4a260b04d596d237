package cmdlist

import (
	"fmt"
	"strings"
	"sync"
)

// List is the editable command list. The exchange loop only ever sees
// Snapshot copies, so edits take effect at the next round boundary.
type List struct {
	mu    sync.RWMutex
	words []uint32
}

// NewList creates a list holding a copy of words.
func NewList(words ...uint32) *List {
	l := &List{}
	l.Add(words...)
	return l
}

// Add appends words.
func (l *List) Add(words ...uint32) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.words = append(l.words, words...)
}

// Remove deletes the word at index i.
func (l *List) Remove(i int) (uint32, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if i < 0 || i >= len(l.words) {
		return 0, fmt.Errorf("index %d out of range [0, %d)", i, len(l.words))
	}
	w := l.words[i]
	l.words = append(l.words[:i], l.words[i+1:]...)
	return w, nil
}

// Clear removes every word.
func (l *List) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.words = nil
}

// Len returns the number of words.
func (l *List) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.words)
}

// Snapshot returns an independent copy of the current words.
func (l *List) Snapshot() []uint32 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]uint32, len(l.words))
	copy(out, l.words)
	return out
}

// String renders the list one word per line as 0xXXXXXXXX.
func (l *List) String() string {
	var sb strings.Builder
	for i, w := range l.Snapshot() {
		fmt.Fprintf(&sb, "%3d  0x%08X\n", i, w)
	}
	return sb.String()
}
