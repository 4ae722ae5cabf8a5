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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	virt "github.com/spooltag/go-pn532/internal/testing"
)

func newSimDispatcher(opts ...DispatcherOption) (*Dispatcher, *virt.VirtualPN532) {
	sim := virt.NewVirtualPN532()
	opts = append([]DispatcherOption{
		WithAckTimeout(testAckTimeout),
		WithResponseTimeout(testResponseTimeout),
		WithPortName("sim"),
	}, opts...)
	return NewDispatcher(NewSession(sim, "sim"), opts...), sim
}

func TestDispatcher_Send(t *testing.T) {
	t.Parallel()

	d, sim := newSimDispatcher()
	resp, err := d.Send(context.Background(), CmdGetFirmwareVersion, nil)

	require.NoError(t, err)
	assert.Equal(t, []byte{0x32, 0x01, 0x06, 0x07}, resp)
	assert.Equal(t, 1, sim.FramesReceived())
}

func TestDispatcher_AckTimeoutAfterTwoTransmissions(t *testing.T) {
	t.Parallel()

	d, sim := newSimDispatcher()
	sim.SetSilent(true)

	_, err := d.Send(context.Background(), CmdGetFirmwareVersion, nil)

	require.ErrorIs(t, err, ErrAckTimeout)
	assert.Equal(t, 2, sim.FramesReceived())
	assert.True(t, IsRetryable(err))

	trace := GetTrace(err)
	require.NotNil(t, trace)
	tx := 0
	for _, entry := range trace.Trace {
		if entry.Direction == TraceTX {
			tx++
		}
	}
	assert.Equal(t, 2, tx)
	assert.Equal(t, "sim", trace.Port)
}

func TestDispatcher_ResendsOnceAfterLostAck(t *testing.T) {
	t.Parallel()

	d, sim := newSimDispatcher()
	sim.DropNextACK(1)

	resp, err := d.Send(context.Background(), CmdGetFirmwareVersion, nil)

	require.NoError(t, err)
	assert.Equal(t, []byte{0x32, 0x01, 0x06, 0x07}, resp)
	assert.Equal(t, 2, sim.FramesReceived())
}

func TestDispatcher_ResponseTimeout(t *testing.T) {
	t.Parallel()

	d, sim := newSimDispatcher()
	sim.DropNextResponse(1)

	start := time.Now()
	_, err := d.Send(context.Background(), CmdGetFirmwareVersion, nil)

	require.ErrorIs(t, err, ErrResponseTimeout)
	assert.GreaterOrEqual(t, time.Since(start), testResponseTimeout)
	assert.Equal(t, 1, sim.FramesReceived())
}

func TestDispatcher_CorruptResponseBecomesTimeout(t *testing.T) {
	t.Parallel()

	d, sim := newSimDispatcher()
	sim.CorruptNextResponse(1)

	_, err := d.Send(context.Background(), CmdGetFirmwareVersion, nil)
	require.ErrorIs(t, err, ErrResponseTimeout)

	// the next command is unaffected
	resp, err := d.Send(context.Background(), CmdGetFirmwareVersion, nil)
	require.NoError(t, err)
	assert.Len(t, resp, 4)
}

func TestDispatcher_NoiseBeforeResponse(t *testing.T) {
	t.Parallel()

	d, sim := newSimDispatcher()
	sim.InjectNoise([]byte{0x00, 0xFF, 0x42, 0x13, 0x00})

	resp, err := d.Send(context.Background(), CmdGetFirmwareVersion, nil)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x32, 0x01, 0x06, 0x07}, resp)
}

func TestDispatcher_DeviceError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		setup   func(*virt.VirtualPN532)
		name    string
		wantRaw []byte
	}{
		{
			name:    "error marker with code",
			setup:   func(s *virt.VirtualPN532) { s.SetErrorReply(CmdGetFirmwareVersion, []byte{0x7F, 0x01}) },
			wantRaw: []byte{0x7F, 0x01},
		},
		{
			name:    "error frame",
			setup:   func(s *virt.VirtualPN532) { s.SetErrorFrame(CmdGetFirmwareVersion) },
			wantRaw: []byte{0x7F},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			d, sim := newSimDispatcher()
			tt.setup(sim)

			_, err := d.Send(context.Background(), CmdGetFirmwareVersion, nil)

			var de *DeviceError
			require.ErrorAs(t, err, &de)
			assert.Equal(t, tt.wantRaw, de.Raw)
			assert.Equal(t, CmdGetFirmwareVersion, de.Command)
			assert.False(t, IsRetryable(err))
		})
	}
}

func TestDispatcher_EmptyResponse(t *testing.T) {
	t.Parallel()

	d, sim := newSimDispatcher()
	sim.SetErrorReply(CmdGetFirmwareVersion, []byte{})

	_, err := d.Send(context.Background(), CmdGetFirmwareVersion, nil)
	require.ErrorIs(t, err, ErrInvalidResponse)
}

func TestDispatcher_OpcodeMismatch(t *testing.T) {
	t.Parallel()

	t.Run("lenient", func(t *testing.T) {
		t.Parallel()

		d, sim := newSimDispatcher()
		sim.OverrideOpcode(CmdGetFirmwareVersion, 0x05)

		resp, err := d.Send(context.Background(), CmdGetFirmwareVersion, nil)
		require.NoError(t, err)
		assert.Equal(t, []byte{0x32, 0x01, 0x06, 0x07}, resp)
	})

	t.Run("strict", func(t *testing.T) {
		t.Parallel()

		d, sim := newSimDispatcher(WithStrictResponses(true))
		sim.OverrideOpcode(CmdGetFirmwareVersion, 0x05)

		_, err := d.Send(context.Background(), CmdGetFirmwareVersion, nil)
		require.ErrorIs(t, err, ErrOpcodeMismatch)
	})
}

func TestDispatcher_ParamsTooLarge(t *testing.T) {
	t.Parallel()

	d, sim := newSimDispatcher()
	_, err := d.Send(context.Background(), CmdInDataExchange, make([]byte, 254))

	require.ErrorIs(t, err, ErrDataTooLarge)
	assert.True(t, IsUsageError(err))
	assert.Zero(t, sim.FramesReceived())
}

func TestDispatcher_ResponseWait(t *testing.T) {
	t.Parallel()

	d, _ := newSimDispatcher(WithResponseTimeout(time.Second))
	assert.Equal(t, time.Second, d.responseWait(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	assert.LessOrEqual(t, d.responseWait(ctx), 50*time.Millisecond)

	long, cancelLong := context.WithTimeout(context.Background(), time.Hour)
	defer cancelLong()
	assert.Equal(t, time.Second, d.responseWait(long))
}

func TestDispatcher_CallResponseTimeout(t *testing.T) {
	t.Parallel()

	d, sim := newSimDispatcher(WithResponseTimeout(time.Second))

	ctx := WithCallResponseTimeout(context.Background(), 3*time.Second)
	assert.Equal(t, 3*time.Second, d.responseWait(ctx))

	short := WithCallResponseTimeout(context.Background(), 30*time.Millisecond)
	assert.Equal(t, 30*time.Millisecond, d.responseWait(short))
	assert.Equal(t, time.Second, d.responseWait(WithCallResponseTimeout(context.Background(), 0)))

	capped, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancel()
	assert.LessOrEqual(t, d.responseWait(capped), 50*time.Millisecond)

	// the override applies to one call and leaves the default alone
	sim.DropNextResponse(1)
	start := time.Now()
	_, err := d.Send(short, CmdGetFirmwareVersion, nil)
	require.ErrorIs(t, err, ErrResponseTimeout)
	assert.Less(t, time.Since(start), 500*time.Millisecond)
	assert.Equal(t, time.Second, d.ResponseTimeout())

	resp, err := d.Send(context.Background(), CmdGetFirmwareVersion, nil)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x32, 0x01, 0x06, 0x07}, resp)
}

func TestDispatcher_SetResponseTimeout(t *testing.T) {
	t.Parallel()

	d, _ := newSimDispatcher()
	require.NoError(t, d.SetResponseTimeout(2*time.Second))
	assert.Equal(t, 2*time.Second, d.ResponseTimeout())

	err := d.SetResponseTimeout(0)
	require.ErrorIs(t, err, ErrInvalidParameter)
	assert.Equal(t, 2*time.Second, d.ResponseTimeout())
}

func TestDispatcher_CancelledContext(t *testing.T) {
	t.Parallel()

	d, sim := newSimDispatcher()
	sim.SetSilent(true)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := d.Send(ctx, CmdGetFirmwareVersion, nil)
	require.ErrorIs(t, err, context.Canceled)
}

func TestDispatcher_OverJitteryLink(t *testing.T) {
	t.Parallel()

	sim := virt.NewVirtualPN532()
	conn := virt.NewJitteryConnection(sim, virt.JitterConfig{MaxChunk: 3, EmptyReads: true, Seed: 99})
	d := NewDispatcher(NewSession(conn, "jittery"))

	for range 5 {
		resp, err := d.Send(context.Background(), CmdGetFirmwareVersion, nil)
		require.NoError(t, err)
		assert.Equal(t, []byte{0x32, 0x01, 0x06, 0x07}, resp)
	}
}
