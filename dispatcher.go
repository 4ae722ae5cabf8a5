// Copyright 2026 The Zaparoo Project Contributors.
// SPDX-License-Identifier: Apache-2.0
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package pn532

import (
	"context"
	"fmt"
	"time"

	"github.com/spooltag/go-pn532/internal/frame"
)

// Dispatcher timing defaults.
const (
	DefaultAckTimeout      = 100 * time.Millisecond
	DefaultResponseTimeout = time.Second

	errorMarker = 0x7F
	traceDepth  = 16
)

// Dispatcher turns a command into a request/response exchange over a
// FrameLink: write, ACK (resending the frame once), response, validation.
// It is not safe for concurrent use; Device serializes callers.
type Dispatcher struct {
	link            FrameLink
	trace           *TraceBuffer
	port            string
	ackTimeout      time.Duration
	responseTimeout time.Duration
	strict          bool
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithAckTimeout sets how long each ACK wait lasts.
func WithAckTimeout(timeout time.Duration) DispatcherOption {
	return func(d *Dispatcher) {
		if timeout > 0 {
			d.ackTimeout = timeout
		}
	}
}

// WithResponseTimeout sets how long to wait for a response once the
// command has been acknowledged.
func WithResponseTimeout(timeout time.Duration) DispatcherOption {
	return func(d *Dispatcher) {
		if timeout > 0 {
			d.responseTimeout = timeout
		}
	}
}

// WithStrictResponses makes a response whose opcode is not command+1 an
// error instead of a logged warning.
func WithStrictResponses(strict bool) DispatcherOption {
	return func(d *Dispatcher) {
		d.strict = strict
	}
}

// WithPortName labels errors and traces with the port or bus name.
func WithPortName(name string) DispatcherOption {
	return func(d *Dispatcher) {
		d.port = name
	}
}

// NewDispatcher creates a dispatcher over link.
func NewDispatcher(link FrameLink, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		link:            link,
		ackTimeout:      DefaultAckTimeout,
		responseTimeout: DefaultResponseTimeout,
	}
	for _, opt := range opts {
		opt(d)
	}
	d.trace = NewTraceBuffer(d.port, traceDepth)
	return d
}

// SetResponseTimeout changes the default response timeout.
func (d *Dispatcher) SetResponseTimeout(timeout time.Duration) error {
	if timeout <= 0 {
		return fmt.Errorf("%w: response timeout must be positive", ErrInvalidParameter)
	}
	d.responseTimeout = timeout
	return nil
}

// ResponseTimeout returns the current default response timeout.
func (d *Dispatcher) ResponseTimeout() time.Duration {
	return d.responseTimeout
}

type responseTimeoutKey struct{}

// WithCallResponseTimeout returns a context that overrides the response
// timeout for the commands sent with it, leaving the dispatcher default
// untouched. The context deadline still caps the wait.
//
//	ctx := pn532.WithCallResponseTimeout(ctx, 3*time.Second)
//	fw, err := device.FirmwareVersion(ctx)
func WithCallResponseTimeout(ctx context.Context, timeout time.Duration) context.Context {
	return context.WithValue(ctx, responseTimeoutKey{}, timeout)
}

// responseWait is the per-call or default response timeout, shortened to
// the context's deadline when that comes sooner.
func (d *Dispatcher) responseWait(ctx context.Context) time.Duration {
	timeout := d.responseTimeout
	if override, ok := ctx.Value(responseTimeoutKey{}).(time.Duration); ok && override > 0 {
		timeout = override
	}
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < timeout {
			timeout = max(remaining, 0)
		}
	}
	return timeout
}

// Send issues cmd with params and returns the response bytes that follow
// the response opcode.
func (d *Dispatcher) Send(ctx context.Context, cmd byte, params []byte) ([]byte, error) {
	if len(params)+1 > frame.MaxPayload {
		return nil, fmt.Errorf("command 0x%02X: %w: %d parameter bytes", cmd, ErrDataTooLarge, len(params))
	}

	payload := make([]byte, 0, len(params)+1)
	payload = append(payload, cmd)
	payload = append(payload, params...)
	wire := frame.Encode(frame.HostToPn532, payload)

	d.trace.Clear()
	if err := d.writeAndAwaitAck(ctx, cmd, wire); err != nil {
		return nil, d.trace.WrapError(err)
	}

	f, ok, err := d.link.WaitFrame(ctx, d.responseWait(ctx))
	if err != nil {
		return nil, d.trace.WrapError(err)
	}
	if !ok {
		d.trace.RecordTimeout("response")
		return nil, d.trace.WrapError(NewResponseTimeoutError(commandName(cmd), d.port))
	}
	d.trace.RecordRX(f.Payload, "response")

	return d.checkResponse(cmd, f)
}

// writeAndAwaitAck writes wire and waits for the ACK, sending the frame a
// second time if the first wait comes back empty.
func (d *Dispatcher) writeAndAwaitAck(ctx context.Context, cmd byte, wire []byte) error {
	for attempt := 1; attempt <= 2; attempt++ {
		d.link.Discard()
		if err := d.link.WriteFrame(wire); err != nil {
			return err
		}
		d.trace.RecordTX(wire, fmt.Sprintf("%s attempt %d", commandName(cmd), attempt))

		acked, err := d.link.WaitAck(ctx, d.ackTimeout)
		if err != nil {
			return err
		}
		if acked {
			return nil
		}
		d.trace.RecordTimeout("ACK")
		Debugf("%s: no ACK for %s (attempt %d)", d.port, commandName(cmd), attempt)
	}
	return NewAckTimeoutError(commandName(cmd), d.port)
}

func (d *Dispatcher) checkResponse(cmd byte, f frame.Frame) ([]byte, error) {
	if f.IsError() {
		raw := append([]byte{errorMarker}, f.Payload...)
		return nil, &DeviceError{Command: cmd, Raw: raw}
	}

	resp := f.Payload
	if len(resp) == 0 {
		return nil, fmt.Errorf("%s: %w: empty response", commandName(cmd), ErrInvalidResponse)
	}
	if resp[0] == errorMarker {
		return nil, &DeviceError{Command: cmd, Raw: append([]byte(nil), resp...)}
	}
	if resp[0] != cmd+1 {
		if d.strict {
			return nil, fmt.Errorf("%s: %w: got 0x%02X, want 0x%02X",
				commandName(cmd), ErrOpcodeMismatch, resp[0], cmd+1)
		}
		Debugf("%s: response opcode 0x%02X, expected 0x%02X", commandName(cmd), resp[0], cmd+1)
	}
	return resp[1:], nil
}
