package console

import (
	"context"
	"errors"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/peterh/liner"
)

// RunTerminal is Run on the controlling terminal, with line editing, tab
// completion of command names and history kept in historyPath (optional).
// Ctrl+C and Ctrl+D end the loop like quit.
func (c *Console) RunTerminal(ctx context.Context, historyPath string) error {
	line := liner.NewLiner()
	defer line.Close()

	line.SetCtrlCAborts(true)
	line.SetCompleter(Complete)

	if historyPath != "" {
		if f, err := os.Open(historyPath); err == nil {
			_, _ = line.ReadHistory(f)
			f.Close()
		}
		defer func() {
			f, err := os.Create(historyPath)
			if err != nil {
				c.logger().Debug("save history", "error", err)
				return
			}
			_, _ = line.WriteHistory(f)
			f.Close()
		}()
	}

	type result struct {
		text string
		err  error
	}

	for {
		ch := make(chan result, 1)
		go func() {
			text, err := line.Prompt("> ")
			ch <- result{text, err}
		}()

		var r result
		select {
		case <-ctx.Done():
			return ctx.Err()
		case r = <-ch:
		}

		if errors.Is(r.err, liner.ErrPromptAborted) || errors.Is(r.err, io.EOF) {
			_ = c.Execute("quit")
			c.printf("\n")
			return nil
		}
		if r.err != nil {
			return r.err
		}

		text := strings.TrimSpace(r.text)
		if text == "" {
			continue
		}
		line.AppendHistory(text)

		err := c.Execute(text)
		if errors.Is(err, ErrQuit) {
			return nil
		}
		if err != nil {
			c.printf("error: %v\n", err)
		}
	}
}

// Complete returns the command names starting with the typed prefix.
func Complete(prefix string) []string {
	prefix = strings.ToLower(strings.TrimSpace(prefix))
	var out []string
	for name := range commands {
		if strings.HasPrefix(name, prefix) {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}
