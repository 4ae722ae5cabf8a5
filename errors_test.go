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
	"errors"
	"fmt"
	"io"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransportError(t *testing.T) {
	t.Parallel()

	err := NewAckTimeoutError("GetFirmwareVersion", "/dev/ttyUSB0")
	assert.Equal(t, "GetFirmwareVersion /dev/ttyUSB0: no ACK received", err.Error())
	require.ErrorIs(t, err, ErrAckTimeout)
	assert.True(t, err.Retryable)
	assert.Equal(t, ErrorTypeTimeout, err.Type)

	noPort := NewResponseTimeoutError("InDataExchange", "")
	assert.Equal(t, "InDataExchange: no response received", noPort.Error())

	cause := errors.New("broken pipe")
	werr := NewTransportWriteError("write frame", "sim", cause)
	require.ErrorIs(t, werr, ErrTransportWrite)
	require.ErrorIs(t, werr, cause)

	rerr := NewTransportReadError("read", "sim", cause)
	require.ErrorIs(t, rerr, ErrTransportRead)
	require.ErrorIs(t, rerr, cause)
}

func TestDeviceError(t *testing.T) {
	t.Parallel()

	err := &DeviceError{Command: CmdInDataExchange, Raw: []byte{0x7F, 0x01}}
	assert.Equal(t, byte(0x01), err.Code())
	assert.Contains(t, err.Error(), "command 0x40")
	assert.Contains(t, err.Error(), "timeout")

	bare := &DeviceError{Command: CmdGetFirmwareVersion, Raw: []byte{0x7F}}
	assert.Zero(t, bare.Code())
	assert.Contains(t, bare.Error(), "7F")
}

func TestStatusError(t *testing.T) {
	t.Parallel()

	err := &StatusError{Op: "read block 1", Err: ErrTagReadFailed, Status: 0x41}
	assert.Equal(t, byte(0x01), err.Code(), "NAD and MI bits are masked")
	require.ErrorIs(t, err, ErrTagReadFailed)
	assert.Contains(t, err.Error(), "status 0x41")
	assert.False(t, err.IsAuthenticationError())

	auth := &StatusError{Op: "auth", Err: ErrInvalidResponse, Status: 0x14}
	assert.True(t, auth.IsAuthenticationError())
}

func TestPn532ErrorCodeMeaning(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "timeout", pn532ErrorCodeMeaning(0x01))
	assert.Equal(t, "card disappeared", pn532ErrorCodeMeaning(0x2B))
	assert.Equal(t, "unknown error", pn532ErrorCodeMeaning(0x99))
}

func TestIsUsageError(t *testing.T) {
	t.Parallel()

	assert.True(t, IsUsageError(ErrPageProtected))
	assert.True(t, IsUsageError(fmt.Errorf("write: %w", ErrDataTooLarge)))
	assert.False(t, IsUsageError(ErrAckTimeout))
	assert.False(t, IsUsageError(nil))
}

func TestIsRetryable(t *testing.T) {
	t.Parallel()

	tests := []struct {
		err  error
		name string
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "ack timeout", err: NewAckTimeoutError("op", "p"), want: true},
		{name: "wrapped response timeout", err: fmt.Errorf("x: %w", ErrResponseTimeout), want: true},
		{name: "no tag", err: ErrNoTagDetected, want: true},
		{name: "status timeout", err: &StatusError{Err: ErrTagReadFailed, Status: 0x01}, want: true},
		{name: "status crc", err: &StatusError{Err: ErrTagReadFailed, Status: 0x02}, want: false},
		{name: "device error", err: &DeviceError{Raw: []byte{0x7F}}, want: false},
		{name: "usage", err: ErrPageProtected, want: false},
		{name: "permanent transport", err: NewTransportError("op", "p", io.EOF, ErrorTypePermanent), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, IsRetryable(tt.err))
		})
	}
}

func TestIsFatal(t *testing.T) {
	t.Parallel()

	tests := []struct {
		err  error
		name string
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "closed", err: fmt.Errorf("x: %w", ErrTransportClosed), want: true},
		{name: "eof", err: io.EOF, want: true},
		{name: "eio", err: fmt.Errorf("read: %w", syscall.EIO), want: true},
		{name: "enodev", err: syscall.ENODEV, want: true},
		{name: "permanent", err: NewTransportError("op", "p", errors.New("gone"), ErrorTypePermanent), want: true},
		{name: "ack timeout", err: NewAckTimeoutError("op", "p"), want: false},
		{name: "empty response", err: fmt.Errorf("x: %w", ErrInvalidResponse), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, IsFatal(tt.err))
		})
	}
}
