package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetIn(strings.NewReader(""))
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "uartloop version dev\n", out)
}

func TestCheckCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "words.txt")
	require.NoError(t, os.WriteFile(path, []byte("# probe\n0x00000001\nDEAD_BEEF\n"), 0o644))

	out, err := execute(t, "check", path)
	require.NoError(t, err)
	assert.Equal(t, "  0  0x00000001\n  1  0xDEADBEEF\n2 words OK\n", out)
}

func TestCheckCommand_BadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "words.txt")
	require.NoError(t, os.WriteFile(path, []byte("01\nzz\n"), 0o644))

	_, err := execute(t, "check", path)
	assert.ErrorContains(t, err, `line 2 "zz"`)
}

func TestRunCommand_HeadlessLoopback(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "uart_log.txt")

	out, err := execute(t, "run",
		"--headless", "--loopback", "--for", "300ms",
		"--port", "loopback",
		"--words", "00000001,00000002",
		"--settle", "0s", "--word-gap", "0s", "--round-gap", "10ms",
		"--log-file", logPath,
	)
	require.NoError(t, err)

	data, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.Equal(t, out, string(data), "stdout and the log file carry the same lines")

	lines := strings.Split(strings.TrimSuffix(string(data), "\n"), "\n")
	require.GreaterOrEqual(t, len(lines), 5)
	assert.True(t, strings.HasSuffix(lines[0], " | START"), lines[0])
	assert.True(t, strings.HasSuffix(lines[1],
		" | R=1 I=0 | TX=00000001 | ECHO=00000001 | RX1=5A5A5A5A | RX2=A5A5A5A5 | ST1=K | ST2=K | PASS1 | PASS2"), lines[1])
	assert.True(t, strings.HasSuffix(lines[2], " | R=1 I=1 | TX=00000002 | ECHO=00000002"+
		" | RX1=5A5A5A5A | RX2=A5A5A5A5 | ST1=K | ST2=K | PASS1 | PASS2"), lines[2])
	assert.Contains(t, string(data), " | STOP requested\n")
	assert.True(t, strings.HasSuffix(lines[len(lines)-1], " | STOPPED"), lines[len(lines)-1])
}

func TestRunCommand_InvalidConfig(t *testing.T) {
	_, err := execute(t, "run", "--headless", "--driver", "usb")
	assert.ErrorContains(t, err, "port.driver")
	// reset for later tests sharing rootCmd
	require.NoError(t, rootCmd.PersistentFlags().Set("driver", "tarm"))
}

func TestRunCommand_MissingConfigFile(t *testing.T) {
	_, err := execute(t, "run", "--config", filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorContains(t, err, "failed to read config")
	require.NoError(t, rootCmd.PersistentFlags().Set("config", ""))
}
