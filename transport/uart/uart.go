// go-pn532
// Copyright (c) 2025 The Zaparoo Project Contributors.
// SPDX-License-Identifier: LGPL-3.0-or-later
//
// This file is part of go-pn532.
//
// go-pn532 is free software; you can redistribute it and/or
// modify it under the terms of the GNU Lesser General Public
// License as published by the Free Software Foundation; either
// version 3 of the License, or (at your option) any later version.
//
// go-pn532 is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU
// Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with go-pn532; if not, write to the Free Software Foundation,
// Inc., 51 Franklin Street, Fifth Floor, Boston, MA  02110-1301, USA.

// Package uart runs the PN532 frame protocol over a serial port (HSU mode).
package uart

import (
	"errors"
	"fmt"
	"io"
	"time"

	"go.bug.st/serial"

	"github.com/spooltag/go-pn532"
)

const (
	// DefaultBaudRate is the PN532 HSU rate after power-on.
	DefaultBaudRate = 115200
	// DefaultReadTimeout bounds each port read. A read that times out
	// returns no bytes and the session polls again.
	DefaultReadTimeout = 50 * time.Millisecond

	interruptRetries = 3
	interruptBackoff = 2 * time.Millisecond
)

// wakeUpSequence brings the PN532 out of power-down over HSU: 0x55 then
// enough zeros to cover its start-up time.
var wakeUpSequence = []byte{
	0x55, 0x00, 0x00, 0x00, 0x00, 0x00,
	0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	0x00, 0x00, 0x00, 0x00,
}

// Option configures a UART transport.
type Option func(*config)

type config struct {
	dispatcherOpts []pn532.DispatcherOption
	baudRate       int
	readTimeout    time.Duration
	skipWakeUp     bool
}

func defaultConfig() config {
	return config{
		baudRate:    DefaultBaudRate,
		readTimeout: DefaultReadTimeout,
	}
}

// WithBaudRate overrides the serial rate. Only useful after the PN532 has
// been switched with SetSerialBaudRate.
func WithBaudRate(rate int) Option {
	return func(c *config) {
		if rate > 0 {
			c.baudRate = rate
		}
	}
}

// WithReadTimeout sets the per-read port timeout.
func WithReadTimeout(timeout time.Duration) Option {
	return func(c *config) {
		if timeout > 0 {
			c.readTimeout = timeout
		}
	}
}

// WithDispatcherOptions passes options through to the command dispatcher,
// e.g. pn532.WithStrictResponses.
func WithDispatcherOptions(opts ...pn532.DispatcherOption) Option {
	return func(c *config) {
		c.dispatcherOpts = append(c.dispatcherOpts, opts...)
	}
}

// WithoutWakeUp skips the HSU wake-up sequence.
func WithoutWakeUp() Option {
	return func(c *config) {
		c.skipWakeUp = true
	}
}

// Transport is a pn532.Transport over a serial port.
type Transport struct {
	*pn532.StreamTransport
	port     serial.Port
	portName string
}

// New opens portName at 115200 8N1, wakes the PN532 and returns a ready
// transport.
func New(portName string, opts ...Option) (*Transport, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	port, err := serial.Open(portName, &serial.Mode{
		BaudRate: cfg.baudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open UART port %s: %w", portName, err)
	}

	t, err := NewWithPort(port, portName, opts...)
	if err != nil {
		_ = port.Close()
		return nil, err
	}
	return t, nil
}

// NewWithPort builds a transport over an already opened port. The port is
// closed by Close.
func NewWithPort(port serial.Port, portName string, opts ...Option) (*Transport, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	if err := port.SetReadTimeout(cfg.readTimeout); err != nil {
		return nil, fmt.Errorf("failed to set UART read timeout: %w", err)
	}

	pio := &portIO{port: port, name: portName}
	if !cfg.skipWakeUp {
		if err := pio.wakeUp(); err != nil {
			return nil, err
		}
	}

	return &Transport{
		StreamTransport: pn532.NewStreamTransport(pio, portName, cfg.dispatcherOpts...).
			WithType(pn532.TransportUART),
		port:     port,
		portName: portName,
	}, nil
}

// PortName returns the serial device path.
func (t *Transport) PortName() string {
	return t.portName
}

// portIO adapts serial.Port to the byte stream a pn532.Session reads. Writes
// are drained before returning and interrupted system calls are retried.
type portIO struct {
	port serial.Port
	name string
}

func (p *portIO) Read(buf []byte) (int, error) {
	var (
		n   int
		err error
	)
	for attempt := range interruptRetries {
		n, err = p.port.Read(buf)
		if err == nil || !isInterrupted(err) {
			break
		}
		pn532.Debugf("%s: read interrupted (attempt %d)", p.name, attempt+1)
		n = 0
	}
	if err != nil {
		return n, fmt.Errorf("UART read: %w", err)
	}
	return n, nil
}

func (p *portIO) Write(data []byte) (int, error) {
	n, err := p.port.Write(data)
	if err != nil {
		return n, fmt.Errorf("UART write: %w", err)
	}
	if n != len(data) {
		return n, io.ErrShortWrite
	}
	return n, p.drain("write")
}

func (p *portIO) Close() error {
	if err := p.port.Close(); err != nil {
		return fmt.Errorf("UART close failed: %w", err)
	}
	return nil
}

func (p *portIO) wakeUp() error {
	n, err := p.port.Write(wakeUpSequence)
	if err != nil {
		return fmt.Errorf("UART wake up write failed: %w", err)
	}
	if n != len(wakeUpSequence) {
		return pn532.NewTransportWriteError("wake up", p.name, io.ErrShortWrite)
	}
	if err := p.drain("wake up"); err != nil {
		return err
	}
	if err := p.port.ResetInputBuffer(); err != nil {
		return fmt.Errorf("UART reset input buffer: %w", err)
	}
	return nil
}

// drain waits for buffered output to reach the wire, backing off 2, 4 and
// 8 ms when the call is interrupted.
func (p *portIO) drain(operation string) error {
	delay := interruptBackoff
	var err error
	for range interruptRetries {
		if err = p.port.Drain(); err == nil {
			return nil
		}
		if !isInterrupted(err) {
			break
		}
		time.Sleep(delay)
		delay *= 2
	}
	return fmt.Errorf("UART %s drain failed: %w", operation, err)
}

// causer matches errors such as serial.PortError that expose the
// underlying OS error through Cause rather than Unwrap.
type causer interface {
	Cause() error
}

// isInterrupted reports whether err, or the error it was caused by, is the
// platform's interrupted-call errno.
func isInterrupted(err error) bool {
	if err == nil {
		return false
	}
	if isInterruptErrno(err) {
		return true
	}
	var c causer
	if errors.As(err, &c) {
		return isInterruptErrno(c.Cause())
	}
	return false
}
