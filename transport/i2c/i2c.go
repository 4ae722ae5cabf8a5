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

// Package i2c runs the PN532 frame protocol over an I2C bus using periph.io.
package i2c

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/host/v3"

	"github.com/spooltag/go-pn532"
	"github.com/spooltag/go-pn532/internal/frame"
	"github.com/spooltag/go-pn532/internal/syncutil"
)

const (
	// Address is the PN532 7-bit I2C address. The datasheet's 0x48 is the
	// 8-bit write address.
	Address = 0x24

	pn532Ready   = 0x01
	maxClockFreq = 400 * physic.KiloHertz

	// A response read covers the largest normal frame in one transaction:
	// every read restarts at the first byte of the PN532 output buffer.
	maxReadLen = frame.MaxPayload + frame.Overhead

	defaultPollInterval = time.Millisecond
)

// Option configures an I2C transport.
type Option func(*Transport)

// WithDispatcherOptions passes options through to the command dispatcher.
func WithDispatcherOptions(opts ...pn532.DispatcherOption) Option {
	return func(t *Transport) {
		t.dispatcherOpts = append(t.dispatcherOpts, opts...)
	}
}

// WithAddress overrides the 7-bit device address.
func WithAddress(addr uint16) Option {
	return func(t *Transport) {
		t.addr = addr
	}
}

// Transport is a pn532.Transport over I2C.
type Transport struct {
	bus            i2c.Bus
	dispatcher     *pn532.Dispatcher
	busName        string
	dispatcherOpts []pn532.DispatcherOption
	mu             syncutil.Mutex
	addr           uint16
	closed         bool
}

// parseI2CPath accepts "/dev/i2c-1:0x24" as well as a bare bus name.
func parseI2CPath(path string) string {
	bus, _, _ := strings.Cut(path, ":")
	return bus
}

// New initialises the periph host drivers and opens busName.
func New(busName string, opts ...Option) (*Transport, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize periph host: %w", err)
	}

	bus, err := i2creg.Open(parseI2CPath(busName))
	if err != nil {
		return nil, fmt.Errorf("failed to open I2C bus %s: %w", busName, err)
	}
	// not every adapter supports 400 kHz; the default speed still works
	if err := bus.SetSpeed(maxClockFreq); err != nil {
		pn532.Debugf("%s: keeping default bus speed: %v", busName, err)
	}

	return NewWithBus(bus, busName, opts...), nil
}

// NewWithBus builds a transport on an open bus. The bus is closed by Close
// when it implements io.Closer.
func NewWithBus(bus i2c.Bus, busName string, opts ...Option) *Transport {
	t := &Transport{
		bus:     bus,
		busName: busName,
		addr:    Address,
	}
	for _, opt := range opts {
		opt(t)
	}

	l := &link{
		dev:          &i2c.Dev{Addr: t.addr, Bus: bus},
		name:         busName,
		dec:          frame.NewDecoder(frame.Pn532ToHost),
		pollInterval: defaultPollInterval,
	}
	dopts := append([]pn532.DispatcherOption{pn532.WithPortName(busName)}, t.dispatcherOpts...)
	t.dispatcher = pn532.NewDispatcher(l, dopts...)
	return t
}

// SendCommand implements pn532.Transport.
func (t *Transport) SendCommand(ctx context.Context, cmd byte, args []byte) ([]byte, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return nil, fmt.Errorf("command 0x%02X: %w", cmd, pn532.ErrTransportClosed)
	}
	return t.dispatcher.Send(ctx, cmd, args)
}

// SetTimeout implements pn532.Transport.
func (t *Transport) SetTimeout(timeout time.Duration) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.dispatcher.SetResponseTimeout(timeout)
}

// Close releases the bus. It is safe to call more than once.
func (t *Transport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return nil
	}
	t.closed = true
	if c, ok := t.bus.(io.Closer); ok {
		if err := c.Close(); err != nil {
			return fmt.Errorf("failed to close I2C bus: %w", err)
		}
	}
	return nil
}

// IsConnected implements pn532.Transport.
func (t *Transport) IsConnected() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return !t.closed
}

// Type implements pn532.Transport.
func (*Transport) Type() pn532.TransportType {
	return pn532.TransportI2C
}

// link is a pn532.FrameLink over I2C. The PN532 signals data with a ready
// byte (0x01) that precedes every read transaction.
type link struct {
	dev          *i2c.Dev
	dec          *frame.Decoder
	name         string
	pollInterval time.Duration
}

var errNotReady = errors.New("PN532 not ready")

func (l *link) WriteFrame(wire []byte) error {
	if err := l.dev.Tx(wire, nil); err != nil {
		return pn532.NewTransportWriteError("write frame", l.name, err)
	}
	return nil
}

func (l *link) Discard() {
	l.dec.Reset()
}

// read returns n bytes from the PN532 output buffer, or errNotReady.
func (l *link) read(n int) ([]byte, error) {
	status := make([]byte, 1)
	if err := l.dev.Tx(nil, status); err != nil {
		return nil, pn532.NewTransportReadError("ready check", l.name, err)
	}
	if status[0] != pn532Ready {
		return nil, errNotReady
	}

	buf := make([]byte, 1+n)
	if err := l.dev.Tx(nil, buf); err != nil {
		return nil, pn532.NewTransportReadError("read", l.name, err)
	}
	if buf[0] != pn532Ready {
		return nil, errNotReady
	}
	return buf[1:], nil
}

func (l *link) idle(ctx context.Context) error {
	timer := time.NewTimer(l.pollInterval)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", l.name, ctx.Err())
	case <-timer.C:
		return nil
	}
}

func (l *link) WaitAck(ctx context.Context, timeout time.Duration) (bool, error) {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		data, err := l.read(len(frame.AckFrame))
		switch {
		case errors.Is(err, errNotReady):
			if err := l.idle(ctx); err != nil {
				return false, err
			}
			continue
		case err != nil:
			return false, err
		}

		l.dec.Reset()
		l.dec.Push(data)
		switch l.dec.NextAck() {
		case frame.AckReceived:
			return true, nil
		case frame.NackReceived:
			pn532.Debugf("%s: NACK received while waiting for ACK", l.name)
			return false, nil
		case frame.AckOther:
			pn532.Debugf("%s: frame arrived while waiting for ACK", l.name)
			return false, nil
		case frame.AckPending:
			if err := l.idle(ctx); err != nil {
				return false, err
			}
		}
	}
	return false, nil
}

// WaitFrame reads the whole output buffer once the PN532 is ready. A frame
// that fails validation is NACKed so the PN532 sends it again.
func (l *link) WaitFrame(ctx context.Context, timeout time.Duration) (frame.Frame, bool, error) {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		data, err := l.read(maxReadLen)
		switch {
		case errors.Is(err, errNotReady):
			if err := l.idle(ctx); err != nil {
				return frame.Frame{}, false, err
			}
			continue
		case err != nil:
			return frame.Frame{}, false, err
		}

		l.dec.Reset()
		l.dec.Push(data)
		f, ok, err := l.dec.Next()
		if ok {
			return f, true, nil
		}
		if err != nil {
			pn532.Debugf("%s: %v", l.name, err)
		}
		if err := l.WriteFrame(frame.NackFrame); err != nil {
			return frame.Frame{}, false, err
		}
		if err := l.idle(ctx); err != nil {
			return frame.Frame{}, false, err
		}
	}
	return frame.Frame{}, false, nil
}
