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

package pn532

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spooltag/go-pn532/internal/syncutil"
)

// Transport defines the interface for communication with PN532 devices.
// UART and I2C backends implement it.
type Transport interface {
	// SendCommand sends a command to the PN532 and waits for its response.
	// The returned bytes follow the response opcode.
	SendCommand(ctx context.Context, cmd byte, args []byte) ([]byte, error)

	// Close closes the transport connection
	Close() error

	// SetTimeout sets the default response timeout
	SetTimeout(timeout time.Duration) error

	// IsConnected returns true if the transport is connected
	IsConnected() bool

	// Type returns the transport type
	Type() TransportType
}

// TransportType represents the type of transport
type TransportType string

const (
	// TransportUART represents UART/serial transport.
	TransportUART TransportType = "uart"
	// TransportI2C represents I2C bus transport.
	TransportI2C TransportType = "i2c"
	// TransportStream represents any other byte stream.
	TransportStream TransportType = "stream"
	// TransportMock represents a mock transport for testing
	TransportMock TransportType = "mock"
)

// StreamTransport runs the PN532 frame protocol over an io.ReadWriter.
// The UART transport is a StreamTransport over a serial port.
type StreamTransport struct {
	rw         io.ReadWriter
	dispatcher *Dispatcher
	kind       TransportType
	mu         syncutil.Mutex
	closed     bool
}

// NewStreamTransport builds a transport over rw. name labels errors and
// logs. rw is closed by Close when it implements io.Closer.
func NewStreamTransport(rw io.ReadWriter, name string, opts ...DispatcherOption) *StreamTransport {
	opts = append([]DispatcherOption{WithPortName(name)}, opts...)
	return &StreamTransport{
		rw:         rw,
		dispatcher: NewDispatcher(NewSession(rw, name), opts...),
		kind:       TransportStream,
	}
}

// WithType overrides the reported transport type.
func (t *StreamTransport) WithType(kind TransportType) *StreamTransport {
	t.kind = kind
	return t
}

// SendCommand implements Transport.
func (t *StreamTransport) SendCommand(ctx context.Context, cmd byte, args []byte) ([]byte, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return nil, fmt.Errorf("%s: %w", commandName(cmd), ErrTransportClosed)
	}
	return t.dispatcher.Send(ctx, cmd, args)
}

// SetTimeout implements Transport.
func (t *StreamTransport) SetTimeout(timeout time.Duration) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.dispatcher.SetResponseTimeout(timeout)
}

// IsConnected implements Transport.
func (t *StreamTransport) IsConnected() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return !t.closed
}

// Type implements Transport.
func (t *StreamTransport) Type() TransportType {
	return t.kind
}

// Close implements Transport. It is safe to call more than once.
func (t *StreamTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return nil
	}
	t.closed = true
	if c, ok := t.rw.(io.Closer); ok {
		if err := c.Close(); err != nil {
			return fmt.Errorf("close stream: %w", err)
		}
	}
	return nil
}

// MockCall records one SendCommand invocation on a MockTransport.
type MockCall struct {
	Args []byte
	Cmd  byte
}

// MockTransport provides a command-level mock of Transport for testing.
// Responses are the bytes after the response opcode, as SendCommand returns.
type MockTransport struct {
	responses map[byte][][]byte
	errorMap  map[byte]error
	calls     []MockCall
	timeout   time.Duration
	delay     time.Duration
	mu        syncutil.RWMutex
	connected bool
}

// NewMockTransport creates a new mock transport
func NewMockTransport() *MockTransport {
	return &MockTransport{
		connected: true,
		timeout:   DefaultResponseTimeout,
		responses: make(map[byte][][]byte),
		errorMap:  make(map[byte]error),
	}
}

// SendCommand implements Transport. Queued responses for cmd are returned
// in order; the last one repeats once the queue is down to a single entry.
// Commands with nothing configured return an empty response.
func (m *MockTransport) SendCommand(ctx context.Context, cmd byte, args []byte) ([]byte, error) {
	m.mu.RLock()
	connected, delay := m.connected, m.delay
	m.mu.RUnlock()

	if !connected {
		return nil, fmt.Errorf("%s: %w", commandName(cmd), ErrTransportClosed)
	}

	if delay > 0 {
		timer := time.NewTimer(delay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		}
	} else if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls = append(m.calls, MockCall{Cmd: cmd, Args: append([]byte(nil), args...)})

	if err, exists := m.errorMap[cmd]; exists {
		return nil, err
	}

	queue := m.responses[cmd]
	switch len(queue) {
	case 0:
		return []byte{}, nil
	case 1:
		return append([]byte(nil), queue[0]...), nil
	default:
		m.responses[cmd] = queue[1:]
		return append([]byte(nil), queue[0]...), nil
	}
}

// Close implements Transport interface
func (m *MockTransport) Close() error {
	m.mu.Lock()
	m.connected = false
	m.mu.Unlock()
	return nil
}

// SetTimeout implements Transport interface
func (m *MockTransport) SetTimeout(timeout time.Duration) error {
	if timeout <= 0 {
		return errors.New("timeout must be positive")
	}
	m.mu.Lock()
	m.timeout = timeout
	m.mu.Unlock()
	return nil
}

// IsConnected implements Transport interface
func (m *MockTransport) IsConnected() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.connected
}

// Type implements Transport interface
func (*MockTransport) Type() TransportType {
	return TransportMock
}

// SetResponse configures the response for a command, replacing any queue.
func (m *MockTransport) SetResponse(cmd byte, response []byte) {
	m.mu.Lock()
	m.responses[cmd] = [][]byte{response}
	m.mu.Unlock()
}

// QueueResponses configures successive responses for a command.
func (m *MockTransport) QueueResponses(cmd byte, responses ...[]byte) {
	m.mu.Lock()
	m.responses[cmd] = append(m.responses[cmd], responses...)
	m.mu.Unlock()
}

// SetError configures an error to be returned for a specific command
func (m *MockTransport) SetError(cmd byte, err error) {
	m.mu.Lock()
	m.errorMap[cmd] = err
	m.mu.Unlock()
}

// ClearError removes error injection for a command
func (m *MockTransport) ClearError(cmd byte) {
	m.mu.Lock()
	delete(m.errorMap, cmd)
	m.mu.Unlock()
}

// SetDelay configures a delay to simulate hardware response time
func (m *MockTransport) SetDelay(delay time.Duration) {
	m.mu.Lock()
	m.delay = delay
	m.mu.Unlock()
}

// Calls returns every recorded invocation in order.
func (m *MockTransport) Calls() []MockCall {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]MockCall(nil), m.calls...)
}

// GetCallCount returns how many times a command was called
func (m *MockTransport) GetCallCount(cmd byte) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	count := 0
	for _, c := range m.calls {
		if c.Cmd == cmd {
			count++
		}
	}
	return count
}

// Reset clears recorded calls and reconnects the mock.
func (m *MockTransport) Reset() {
	m.mu.Lock()
	m.calls = nil
	m.connected = true
	m.mu.Unlock()
}
