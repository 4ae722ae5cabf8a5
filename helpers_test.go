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
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	virt "github.com/spooltag/go-pn532/internal/testing"
)

const (
	testAckTimeout      = 20 * time.Millisecond
	testResponseTimeout = 150 * time.Millisecond
)

// newSimTransport connects a StreamTransport to a fresh wire simulator.
func newSimTransport(t *testing.T, opts ...DispatcherOption) (*StreamTransport, *virt.VirtualPN532) {
	t.Helper()

	sim := virt.NewVirtualPN532()
	opts = append([]DispatcherOption{WithAckTimeout(testAckTimeout)}, opts...)
	return NewStreamTransport(sim, "sim", opts...), sim
}

// newSimDevice returns a device over the wire simulator with short
// timeouts and fast discovery.
func newSimDevice(t *testing.T, opts ...DispatcherOption) (*Device, *virt.VirtualPN532) {
	t.Helper()

	transport, sim := newSimTransport(t, opts...)
	device, err := New(transport,
		WithTimeout(testResponseTimeout),
		WithPollTiming(50*time.Millisecond, 5*time.Millisecond))
	require.NoError(t, err)
	t.Cleanup(func() { _ = device.Close() })
	return device, sim
}

// newSimDeviceWithTag places an NTAG215 in the field and selects it.
func newSimDeviceWithTag(t *testing.T) (*Device, *virt.VirtualPN532, *virt.VirtualTag, *Target) {
	t.Helper()

	device, sim := newSimDevice(t)
	tag := virt.NewVirtualNTAG215(nil)
	sim.SetTag(tag)

	target, err := device.PollTarget(context.Background(), BaudISO14443A106, time.Second)
	require.NoError(t, err)
	return device, sim, tag, target
}

// newMockDevice returns a device over a command-level mock.
func newMockDevice(t *testing.T) (*Device, *MockTransport) {
	t.Helper()

	mock := NewMockTransport()
	device, err := New(mock)
	require.NoError(t, err)
	return device, mock
}

var testTarget = Target{Number: 1, UID: virt.TestNTAGUID}
