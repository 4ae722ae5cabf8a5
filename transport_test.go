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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type closingStream struct {
	*scriptedStream
	closed int
}

func (c *closingStream) Close() error {
	c.closed++
	return nil
}

func TestStreamTransport_SendCommand(t *testing.T) {
	t.Parallel()

	transport, sim := newSimTransport(t)
	assert.Equal(t, TransportStream, transport.Type())
	assert.True(t, transport.IsConnected())

	resp, err := transport.SendCommand(context.Background(), CmdGetFirmwareVersion, nil)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x32, 0x01, 0x06, 0x07}, resp)
	assert.Equal(t, 1, sim.FramesReceived())
}

func TestStreamTransport_WithType(t *testing.T) {
	t.Parallel()

	transport, _ := newSimTransport(t)
	assert.Equal(t, TransportUART, transport.WithType(TransportUART).Type())
}

func TestStreamTransport_Close(t *testing.T) {
	t.Parallel()

	stream := &closingStream{scriptedStream: newScriptedStream()}
	transport := NewStreamTransport(stream, "test")

	require.NoError(t, transport.Close())
	require.NoError(t, transport.Close())
	assert.Equal(t, 1, stream.closed)
	assert.False(t, transport.IsConnected())

	_, err := transport.SendCommand(context.Background(), CmdGetFirmwareVersion, nil)
	require.ErrorIs(t, err, ErrTransportClosed)
	assert.Empty(t, stream.written.Bytes())
}

func TestStreamTransport_SetTimeout(t *testing.T) {
	t.Parallel()

	transport, sim := newSimTransport(t)
	require.NoError(t, transport.SetTimeout(40*time.Millisecond))
	require.Error(t, transport.SetTimeout(0))

	sim.DropNextResponse(1)
	start := time.Now()
	_, err := transport.SendCommand(context.Background(), CmdGetFirmwareVersion, nil)
	require.ErrorIs(t, err, ErrResponseTimeout)
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}

func TestMockTransport_Responses(t *testing.T) {
	t.Parallel()

	mock := NewMockTransport()
	ctx := context.Background()

	resp, err := mock.SendCommand(ctx, CmdGetFirmwareVersion, nil)
	require.NoError(t, err)
	assert.Empty(t, resp)

	mock.QueueResponses(CmdInListPassiveTarget, []byte{0x00}, []byte{0x01})
	first, _ := mock.SendCommand(ctx, CmdInListPassiveTarget, []byte{0x01, 0x00})
	second, _ := mock.SendCommand(ctx, CmdInListPassiveTarget, []byte{0x01, 0x00})
	third, _ := mock.SendCommand(ctx, CmdInListPassiveTarget, []byte{0x01, 0x00})
	assert.Equal(t, []byte{0x00}, first)
	assert.Equal(t, []byte{0x01}, second)
	assert.Equal(t, []byte{0x01}, third, "last response repeats")
	assert.Equal(t, 3, mock.GetCallCount(CmdInListPassiveTarget))

	mock.SetResponse(CmdInListPassiveTarget, []byte{0x02})
	fourth, _ := mock.SendCommand(ctx, CmdInListPassiveTarget, nil)
	assert.Equal(t, []byte{0x02}, fourth)
}

func TestMockTransport_Errors(t *testing.T) {
	t.Parallel()

	mock := NewMockTransport()
	ctx := context.Background()
	boom := errors.New("boom")

	mock.SetError(CmdInDataExchange, boom)
	_, err := mock.SendCommand(ctx, CmdInDataExchange, nil)
	require.ErrorIs(t, err, boom)

	mock.ClearError(CmdInDataExchange)
	_, err = mock.SendCommand(ctx, CmdInDataExchange, nil)
	require.NoError(t, err)

	require.NoError(t, mock.Close())
	_, err = mock.SendCommand(ctx, CmdInDataExchange, nil)
	require.ErrorIs(t, err, ErrTransportClosed)

	mock.Reset()
	assert.True(t, mock.IsConnected())
	assert.Empty(t, mock.Calls())
	require.Error(t, mock.SetTimeout(0))
	assert.Equal(t, TransportMock, mock.Type())
}

func TestMockTransport_Delay(t *testing.T) {
	t.Parallel()

	mock := NewMockTransport()
	mock.SetDelay(time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := mock.SendCommand(ctx, CmdGetFirmwareVersion, nil)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Empty(t, mock.Calls())
}
