// Package console implements the interactive operator prompt of the run
// command: editing the command list, starting and stopping the session and
// clearing the exchange log.
package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"uartloop/cmdlist"
	"uartloop/exchange"
	"uartloop/internal/logging"
	"uartloop/serialcomm"
)

// Session is the part of *exchange.Session the console drives.
type Session interface {
	Start(src exchange.CommandSource, tc serialcomm.Config) error
	Stop()
	State() exchange.State
	Stats() exchange.Stats
	Err() error
}

// Truncater empties the exchange log.
type Truncater interface {
	Truncate() error
}

// ErrQuit is returned by Execute for the quit command.
var ErrQuit = errors.New("quit")

// Console executes operator commands.
type Console struct {
	Session Session
	List    *cmdlist.List
	Serial  serialcomm.Config

	// Log is cleared by "clearlog" (optional)
	Log Truncater
	// Events receives the LOG CLEARED line after a clear (optional)
	Events exchange.Sink

	Out    io.Writer
	Logger *slog.Logger
}

type command struct {
	usage string
	help  string
	run   func(c *Console, args []string) error
}

var commands map[string]command

func init() {
	commands = map[string]command{
		"start":    {"start", "start the exchange loop", (*Console).start},
		"stop":     {"stop", "stop after the current exchange", (*Console).stop},
		"add":      {"add <hex>...", "append command words", (*Console).add},
		"del":      {"del <index>", "remove the word at index", (*Console).del},
		"clear":    {"clear", "remove every word", (*Console).clear},
		"list":     {"list", "show the command list", (*Console).list},
		"import":   {"import <file>", "append words from a file", (*Console).importFile},
		"clearlog": {"clearlog", "empty the exchange log file", (*Console).clearLog},
		"status":   {"status", "show session state and totals", (*Console).status},
		"help":     {"help", "show this help", (*Console).help},
		"quit":     {"quit", "stop and exit", (*Console).quit},
	}
	commands["exit"] = commands["quit"]
}

// Execute runs one command line. Blank lines are ignored.
// It returns ErrQuit for "quit" and "exit".
func (c *Console) Execute(line string) error {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}

	name := strings.ToLower(fields[0])
	cmd, ok := commands[name]
	if !ok {
		return fmt.Errorf("unknown command %q (try \"help\")", fields[0])
	}
	c.logger().Debug("console command", "cmd", name, "args", fields[1:])
	return cmd.run(c, fields[1:])
}

// Run reads commands from in until quit, end of input or ctx is done.
// Command errors are printed and do not end the loop.
func (c *Console) Run(ctx context.Context, in io.Reader) error {
	lines := make(chan string)
	readErr := make(chan error, 1)

	go func() {
		defer close(lines)
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
		readErr <- sc.Err()
	}()

	for {
		c.prompt()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case line, ok := <-lines:
			if !ok {
				select {
				case err := <-readErr:
					return err
				default:
					return nil
				}
			}
			err := c.Execute(line)
			if errors.Is(err, ErrQuit) {
				return nil
			}
			if err != nil {
				c.printf("error: %v\n", err)
			}
		}
	}
}

func (c *Console) prompt() {
	c.printf("> ")
}

func (c *Console) printf(format string, args ...any) {
	if c.Out != nil {
		fmt.Fprintf(c.Out, format, args...)
	}
}

func (c *Console) logger() *slog.Logger {
	if c.Logger == nil {
		c.Logger = logging.NewNop()
	}
	return c.Logger
}

func (c *Console) start(args []string) error {
	if err := c.Session.Start(c.List, c.Serial); err != nil {
		return err
	}
	c.printf("started on %s (%d words)\n", c.Serial.Name, c.List.Len())
	return nil
}

func (c *Console) stop(args []string) error {
	if !c.Session.State().Active() {
		c.printf("not running\n")
		return nil
	}
	c.Session.Stop()
	return nil
}

func (c *Console) add(args []string) error {
	if len(args) == 0 {
		return errors.New("usage: add <hex>...")
	}
	words, err := cmdlist.ParseStrings(args)
	if err != nil {
		return err
	}
	c.List.Add(words...)
	for _, w := range words {
		c.printf("added 0x%08X\n", w)
	}
	return nil
}

func (c *Console) del(args []string) error {
	if len(args) != 1 {
		return errors.New("usage: del <index>")
	}
	i, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("invalid index %q", args[0])
	}
	w, err := c.List.Remove(i)
	if err != nil {
		return err
	}
	c.printf("removed 0x%08X\n", w)
	return nil
}

func (c *Console) clear(args []string) error {
	c.List.Clear()
	c.printf("command list cleared\n")
	return nil
}

func (c *Console) list(args []string) error {
	if c.List.Len() == 0 {
		c.printf("(empty)\n")
		return nil
	}
	c.printf("%s", c.List.String())
	return nil
}

func (c *Console) importFile(args []string) error {
	if len(args) != 1 {
		return errors.New("usage: import <file>")
	}
	words, err := cmdlist.LoadFile(args[0])
	if err != nil {
		return err
	}
	c.List.Add(words...)
	c.printf("imported %d words\n", len(words))
	return nil
}

func (c *Console) clearLog(args []string) error {
	if c.Log == nil {
		return errors.New("no log file configured")
	}
	if err := c.Log.Truncate(); err != nil {
		return fmt.Errorf("clear log: %w", err)
	}
	if c.Events != nil {
		c.Events.Emit(exchange.LogCleared(time.Now()))
	}
	c.printf("log cleared\n")
	return nil
}

func (c *Console) status(args []string) error {
	st := c.Session.Stats()
	c.printf("state=%s round=%d exchanges=%d pass=%d fail=%d short=%d words=%d\n",
		c.Session.State(), st.Round, st.Exchanges, st.Passed, st.Failed, st.Short, c.List.Len())
	if err := c.Session.Err(); err != nil {
		c.printf("last error: %v\n", err)
	}
	return nil
}

func (c *Console) help(args []string) error {
	names := []string{"start", "stop", "add", "del", "clear", "list", "import", "clearlog", "status", "help", "quit"}
	for _, name := range names {
		cmd := commands[name]
		c.printf("  %-14s %s\n", cmd.usage, cmd.help)
	}
	return nil
}

func (c *Console) quit(args []string) error {
	if c.Session.State().Active() {
		c.Session.Stop()
	}
	return ErrQuit
}
