package serialcomm

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestConfigDefaults(t *testing.T) {
	cfg := Config{Name: "/dev/ttyUSB0"}.withDefaults()
	assert.Equal(t, DefaultBaud, cfg.Baud)
	assert.Equal(t, DriverTarm, cfg.Driver)
	assert.Equal(t, DefaultReadQuantum, cfg.ReadQuantum)

	cfg = Config{Name: "COM5", Baud: 115200, Driver: DriverBugst, ReadQuantum: time.Second}.withDefaults()
	assert.Equal(t, 115200, cfg.Baud)
	assert.Equal(t, DriverBugst, cfg.Driver)
	assert.Equal(t, time.Second, cfg.ReadQuantum)
}

func TestOpen_Errors(t *testing.T) {
	_, err := Open(Config{})
	assert.EqualError(t, err, "serial port name is required")

	_, err = Open(Config{Name: "/dev/null", Driver: "usb"})
	assert.EqualError(t, err, `unknown serial driver "usb"`)

	missing := filepath.Join(t.TempDir(), "ttyMissing")
	for _, driver := range []string{DriverTarm, DriverBugst} {
		_, err = Open(Config{Name: missing, Driver: driver})
		assert.ErrorContains(t, err, "open "+missing, driver)
	}
}

func TestTranslateBugstErr(t *testing.T) {
	assert.NoError(t, translateBugstErr(nil))

	other := errors.New("framing error")
	assert.Equal(t, other, translateBugstErr(other))
}
