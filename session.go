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
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spooltag/go-pn532/internal/frame"
)

const (
	// DefaultPollInterval is how long a wait loop sleeps after a read that
	// returned no bytes.
	DefaultPollInterval = time.Millisecond

	readChunkSize = 64
)

// FrameLink moves encoded frames to the PN532 and collects what comes back.
// Session implements it for byte streams; bus transports provide their own.
type FrameLink interface {
	// WriteFrame sends one complete wire frame.
	WriteFrame(wire []byte) error
	// WaitAck reports whether an ACK arrived within timeout. A NACK, a
	// different frame or an expired timeout all yield false with a nil
	// error; errors are reserved for I/O failure and cancellation.
	WaitAck(ctx context.Context, timeout time.Duration) (bool, error)
	// WaitFrame returns the next well-formed response frame. ok is false
	// when none arrived within timeout. Malformed frames are skipped.
	WaitFrame(ctx context.Context, timeout time.Duration) (f frame.Frame, ok bool, err error)
	// Discard drops any bytes received but not yet consumed.
	Discard()
}

// Session is a FrameLink over a byte stream such as a serial port. Reads
// are expected to return (0, nil) or io.EOF when no data is available.
type Session struct {
	rw           io.ReadWriter
	dec          *frame.Decoder
	buf          []byte
	name         string
	pollInterval time.Duration
}

// NewSession wraps rw. name identifies the stream in errors and logs.
func NewSession(rw io.ReadWriter, name string) *Session {
	return &Session{
		rw:           rw,
		name:         name,
		dec:          frame.NewDecoder(frame.Pn532ToHost),
		buf:          make([]byte, readChunkSize),
		pollInterval: DefaultPollInterval,
	}
}

// WriteFrame writes wire in full.
func (s *Session) WriteFrame(wire []byte) error {
	n, err := s.rw.Write(wire)
	if err != nil {
		return NewTransportWriteError("write frame", s.name, err)
	}
	if n != len(wire) {
		return NewTransportWriteError("write frame", s.name, io.ErrShortWrite)
	}
	return nil
}

// Discard drops bytes that were received but not consumed.
func (s *Session) Discard() {
	if n := s.dec.Buffered(); n > 0 {
		Debugf("%s: discarding %d stale bytes", s.name, n)
	}
	s.dec.Reset()
}

// fill performs one read and hands the bytes to the decoder.
func (s *Session) fill() (int, error) {
	n, err := s.rw.Read(s.buf)
	if n > 0 {
		s.dec.Push(s.buf[:n])
	}
	if err != nil && !errors.Is(err, io.EOF) {
		return n, NewTransportReadError("read", s.name, err)
	}
	return n, nil
}

// idle sleeps for one poll interval unless ctx ends first.
func (s *Session) idle(ctx context.Context) error {
	timer := time.NewTimer(s.pollInterval)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", s.name, ctx.Err())
	case <-timer.C:
		return nil
	}
}

// WaitAck polls the stream for the 6-byte ACK frame.
func (s *Session) WaitAck(ctx context.Context, timeout time.Duration) (bool, error) {
	deadline := time.Now().Add(timeout)
	for {
		switch s.dec.NextAck() {
		case frame.AckReceived:
			return true, nil
		case frame.NackReceived:
			Debugf("%s: NACK received while waiting for ACK", s.name)
			return false, nil
		case frame.AckOther:
			Debugf("%s: frame arrived while waiting for ACK", s.name)
			return false, nil
		case frame.AckPending:
		}

		if !time.Now().Before(deadline) {
			return false, nil
		}
		n, err := s.fill()
		if err != nil {
			return false, err
		}
		if n == 0 {
			if err := s.idle(ctx); err != nil {
				return false, err
			}
		}
	}
}

// WaitFrame polls the stream until a complete frame decodes or timeout
// elapses. Framing errors are logged and scanning resumes.
func (s *Session) WaitFrame(ctx context.Context, timeout time.Duration) (frame.Frame, bool, error) {
	deadline := time.Now().Add(timeout)
	for {
		f, ok, err := s.dec.Next()
		if err != nil {
			Debugf("%s: %v", s.name, err)
			continue
		}
		if ok {
			return f, true, nil
		}

		if !time.Now().Before(deadline) {
			return frame.Frame{}, false, nil
		}
		n, err := s.fill()
		if err != nil {
			return frame.Frame{}, false, err
		}
		if n == 0 {
			if err := s.idle(ctx); err != nil {
				return frame.Frame{}, false, err
			}
		}
	}
}
