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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	virt "github.com/spooltag/go-pn532/internal/testing"
)

func TestNew(t *testing.T) {
	t.Parallel()

	_, err := New(nil)
	require.ErrorIs(t, err, ErrInvalidParameter)

	mock := NewMockTransport()
	device, err := New(mock, WithTimeout(250*time.Millisecond), WithPollTiming(time.Second, 10*time.Millisecond))
	require.NoError(t, err)

	cfg := device.Config()
	assert.Equal(t, 250*time.Millisecond, cfg.Timeout)
	assert.Equal(t, time.Second, cfg.PollAttemptTimeout)
	assert.Equal(t, 10*time.Millisecond, cfg.PollDelay)
	assert.Same(t, mock, device.Transport())
}

func TestNew_InvalidOptions(t *testing.T) {
	t.Parallel()

	_, err := New(NewMockTransport(), WithTimeout(0))
	require.ErrorIs(t, err, ErrInvalidParameter)

	_, err = New(NewMockTransport(), WithPollTiming(0, 0))
	require.ErrorIs(t, err, ErrInvalidParameter)
}

func TestDeviceInit(t *testing.T) {
	t.Parallel()

	device, sim := newSimDevice(t)
	require.NoError(t, device.Init(context.Background()))

	assert.True(t, sim.SAMConfigured())
	assert.Equal(t, []byte{CmdSAMConfiguration, CmdGetFirmwareVersion}, sim.Commands())

	fw := device.CachedFirmwareVersion()
	require.NotNil(t, fw)
	assert.Equal(t, "1.6", fw.Version)
	assert.Equal(t, byte(0x32), fw.IC)
	assert.True(t, fw.SupportIso14443a)
	assert.True(t, fw.SupportIso14443b)
	assert.True(t, fw.SupportIso18092)
}

func TestDeviceInit_SAMArguments(t *testing.T) {
	t.Parallel()

	device, mock := newMockDevice(t)
	mock.SetResponse(CmdGetFirmwareVersion, virt.BuildFirmwareVersionResponse())
	require.NoError(t, device.Init(context.Background()))

	calls := mock.Calls()
	require.Len(t, calls, 2)
	assert.Equal(t, CmdSAMConfiguration, calls[0].Cmd)
	assert.Equal(t, []byte{byte(SAMModeNormal), DefaultSAMTimeout, 0x00}, calls[0].Args)
}

func TestDeviceInit_PassiveActivationRetries(t *testing.T) {
	t.Parallel()

	mock := NewMockTransport()
	mock.SetResponse(CmdGetFirmwareVersion, virt.BuildFirmwareVersionResponse())
	device, err := New(mock, WithPassiveActivationRetries(0x10))
	require.NoError(t, err)
	require.NoError(t, device.Init(context.Background()))

	require.Equal(t, 1, mock.GetCallCount(CmdRFConfiguration))
	for _, call := range mock.Calls() {
		if call.Cmd == CmdRFConfiguration {
			assert.Equal(t, []byte{RFItemMaxRetries, 0x00, 0x00, 0x10}, call.Args)
		}
	}
}

func TestDeviceInit_RFConfigurationRefusedIsTolerated(t *testing.T) {
	t.Parallel()

	mock := NewMockTransport()
	mock.SetResponse(CmdGetFirmwareVersion, virt.BuildFirmwareVersionResponse())
	mock.SetError(CmdRFConfiguration, &DeviceError{Command: CmdRFConfiguration, Raw: []byte{0x7F}})
	device, err := New(mock, WithPassiveActivationRetries(0x05))
	require.NoError(t, err)

	require.NoError(t, device.Init(context.Background()))
	assert.NotNil(t, device.CachedFirmwareVersion())
}

func TestDeviceInit_Failures(t *testing.T) {
	t.Parallel()

	t.Run("sam", func(t *testing.T) {
		t.Parallel()

		device, sim := newSimDevice(t)
		sim.SetErrorReply(CmdSAMConfiguration, []byte{0x7F, 0x27})

		err := device.Init(context.Background())
		var de *DeviceError
		require.ErrorAs(t, err, &de)
		assert.Nil(t, device.CachedFirmwareVersion())
	})

	t.Run("short firmware", func(t *testing.T) {
		t.Parallel()

		device, mock := newMockDevice(t)
		mock.SetResponse(CmdGetFirmwareVersion, []byte{0x32, 0x01})

		err := device.Init(context.Background())
		require.ErrorIs(t, err, ErrInvalidResponse)
	})
}

func TestConnectDevice(t *testing.T) {
	t.Parallel()

	sim := virt.NewVirtualPN532()
	var openedPath string
	factory := func(path string) (Transport, error) {
		openedPath = path
		return NewStreamTransport(sim, path, WithAckTimeout(testAckTimeout)), nil
	}

	device, err := ConnectDevice(context.Background(), "/dev/sim0", WithTransportFactory(factory))
	require.NoError(t, err)
	t.Cleanup(func() { _ = device.Close() })

	assert.Equal(t, "/dev/sim0", openedPath)
	assert.NotNil(t, device.CachedFirmwareVersion())
	assert.True(t, sim.SAMConfigured())
}

func TestConnectDevice_WithoutInit(t *testing.T) {
	t.Parallel()

	mock := NewMockTransport()
	device, err := ConnectDevice(context.Background(), "mock",
		WithTransportFactory(func(string) (Transport, error) { return mock, nil }),
		WithDeviceOptions(WithTimeout(time.Second)),
		WithoutInit())
	require.NoError(t, err)

	assert.Empty(t, mock.Calls())
	assert.Nil(t, device.CachedFirmwareVersion())
}

func TestConnectDevice_Failures(t *testing.T) {
	t.Parallel()

	_, err := ConnectDevice(context.Background(), "x")
	require.Error(t, err)

	_, err = ConnectDevice(context.Background(), "x", WithTransportFactory(nil))
	require.Error(t, err)

	openErr := errors.New("port busy")
	_, err = ConnectDevice(context.Background(), "x",
		WithTransportFactory(func(string) (Transport, error) { return nil, openErr }))
	require.ErrorIs(t, err, openErr)

	// init failure closes the transport again
	mock := NewMockTransport()
	mock.SetError(CmdSAMConfiguration, ErrAckTimeout)
	_, err = ConnectDevice(context.Background(), "x",
		WithTransportFactory(func(string) (Transport, error) { return mock, nil }))
	require.ErrorIs(t, err, ErrAckTimeout)
	assert.False(t, mock.IsConnected())
}

func TestDevice_SetTimeout(t *testing.T) {
	t.Parallel()

	device, _ := newSimDevice(t)
	require.NoError(t, device.SetTimeout(2*time.Second))
	assert.Equal(t, 2*time.Second, device.Config().Timeout)

	require.Error(t, device.SetTimeout(-1))
	assert.Equal(t, 2*time.Second, device.Config().Timeout)
}

func TestDevice_ClosedTransport(t *testing.T) {
	t.Parallel()

	device, mock := newMockDevice(t)
	require.NoError(t, device.Close())

	_, err := device.FirmwareVersion(context.Background())
	require.ErrorIs(t, err, ErrTransportClosed)
	assert.Empty(t, mock.Calls())
}

func TestDevice_ConcurrentCallersAreSerialized(t *testing.T) {
	t.Parallel()

	device, _ := newSimDevice(t)
	errs := make(chan error, 8)
	for range 8 {
		go func() {
			_, err := device.FirmwareVersion(context.Background())
			errs <- err
		}()
	}
	for range 8 {
		require.NoError(t, <-errs)
	}
}
