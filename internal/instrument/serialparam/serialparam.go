// Package serialparam adapts a line-oriented serial-port instrument into
// the instrument.Parameter Get/Set contract. It exists so Parameter
// Binding can be exercised end-to-end against a real transport, even
// though instrument drivers are an external collaborator the core spec
// leaves unspecified.
package serialparam

import (
	"bufio"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.bug.st/serial"
)

// Port is the subset of go.bug.st/serial.Port this package needs,
// mirroring the teacher's radar.RadarPortInterface narrowing of the full
// serial.Port surface down to what the caller actually uses.
type Port interface {
	Write(p []byte) (int, error)
	Read(p []byte) (int, error)
	Close() error
}

// Channel is one query/write-command pair addressing a single reading on
// a multi-channel serial instrument (e.g. a temperature controller with
// several sensor inputs).
type Channel struct {
	port     Port
	mu       sync.Mutex
	reader   *bufio.Reader
	queryCmd string // e.g. "TEMP?"
	writeCmd string // e.g. "TEMP" -> "TEMP <value>"
	timeout  time.Duration
}

// NewChannel constructs a Channel bound to an open serial port. queryCmd
// is sent verbatim (newline-terminated) to request a reading; writeCmd,
// if non-empty, is used as the prefix for Set (writeCmd + " " + value).
func NewChannel(port Port, queryCmd, writeCmd string) *Channel {
	return &Channel{
		port:     port,
		reader:   bufio.NewReader(newPortReader(port)),
		queryCmd: queryCmd,
		writeCmd: writeCmd,
		timeout:  2 * time.Second,
	}
}

// portReader adapts the Read-only half of Port into an io.Reader value
// bufio.NewReader can hold without pulling in the whole serial.Port
// interface.
type portReader struct{ p Port }

func newPortReader(p Port) *portReader { return &portReader{p: p} }
func (r *portReader) Read(b []byte) (int, error) { return r.p.Read(b) }

func (c *Channel) send(cmd string) error {
	if !strings.HasSuffix(cmd, "\n") {
		cmd += "\n"
	}
	n, err := c.port.Write([]byte(cmd))
	if err != nil {
		return err
	}
	if n != len(cmd) {
		return fmt.Errorf("serialparam: short write (%d of %d bytes)", n, len(cmd))
	}
	return nil
}

// Get sends the query command and parses the reply line as a float64.
func (c *Channel) Get() (float64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.send(c.queryCmd); err != nil {
		return 0, fmt.Errorf("serialparam: query %q: %w", c.queryCmd, err)
	}

	line, err := c.reader.ReadString('\n')
	if err != nil {
		return 0, fmt.Errorf("serialparam: read reply to %q: %w", c.queryCmd, err)
	}

	v, err := strconv.ParseFloat(strings.TrimSpace(line), 64)
	if err != nil {
		return 0, fmt.Errorf("serialparam: parse reply %q: %w", line, err)
	}
	return v, nil
}

// Set writes the value using the channel's write command. It is a no-op
// error if the channel has no write command configured (get-only
// follow parameters never call Set).
func (c *Channel) Set(value float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.writeCmd == "" {
		return fmt.Errorf("serialparam: channel has no write command")
	}
	return c.send(fmt.Sprintf("%s %g", c.writeCmd, value))
}

// Open opens a serial port with sane lab-instrument defaults (8N1 at the
// given baud rate), matching the mode used by the teacher's
// radar.NewRadarPort.
func Open(portName string, baud int) (serial.Port, error) {
	mode := &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	return serial.Open(portName, mode)
}
