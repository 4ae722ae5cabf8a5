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
	"time"

	"github.com/spooltag/go-pn532/internal/syncutil"
)

// Discovery timing
const (
	// DefaultPollAttemptTimeout bounds a single InListPassiveTarget exchange.
	DefaultPollAttemptTimeout = 500 * time.Millisecond
	// DefaultPollInterAttemptDelay separates discovery attempts.
	DefaultPollInterAttemptDelay = 50 * time.Millisecond
	// DefaultTargetNumber is the logical target used when a Target does not
	// carry one.
	DefaultTargetNumber byte = 0x01
)

// DeviceConfig contains configuration options for the Device
type DeviceConfig struct {
	// Timeout is the default response timeout applied to the transport
	Timeout time.Duration
	// PollAttemptTimeout bounds each discovery attempt
	PollAttemptTimeout time.Duration
	// PollDelay is the pause between discovery attempts
	PollDelay time.Duration
	// PassiveActivationRetries is sent with RFConfiguration during Init.
	// Zero leaves the chip default untouched.
	PassiveActivationRetries byte
}

// DefaultDeviceConfig returns default device configuration
func DefaultDeviceConfig() *DeviceConfig {
	return &DeviceConfig{
		Timeout:            DefaultResponseTimeout,
		PollAttemptTimeout: DefaultPollAttemptTimeout,
		PollDelay:          DefaultPollInterAttemptDelay,
	}
}

// Option configures a Device.
type Option func(*Device) error

// WithTimeout sets the default response timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(d *Device) error {
		if timeout <= 0 {
			return fmt.Errorf("%w: timeout must be positive", ErrInvalidParameter)
		}
		d.config.Timeout = timeout
		return nil
	}
}

// WithPollTiming overrides the per-attempt discovery timeout and the delay
// between attempts.
func WithPollTiming(attempt, delay time.Duration) Option {
	return func(d *Device) error {
		if attempt <= 0 || delay < 0 {
			return fmt.Errorf("%w: invalid poll timing %v/%v", ErrInvalidParameter, attempt, delay)
		}
		d.config.PollAttemptTimeout = attempt
		d.config.PollDelay = delay
		return nil
	}
}

// WithPassiveActivationRetries makes Init cap the chip's passive activation
// retries so a missing tag cannot stall InListPassiveTarget.
func WithPassiveActivationRetries(retries byte) Option {
	return func(d *Device) error {
		d.config.PassiveActivationRetries = retries
		return nil
	}
}

// Device represents a PN532 NFC reader. Each exported method runs as one
// logical operation; concurrent callers are serialized.
type Device struct {
	transport       Transport
	config          *DeviceConfig
	firmwareVersion *FirmwareVersion
	mu              syncutil.Mutex
}

// New creates a new PN532 device with the given transport
func New(transport Transport, opts ...Option) (*Device, error) {
	if transport == nil {
		return nil, fmt.Errorf("%w: nil transport", ErrInvalidParameter)
	}

	device := &Device{
		transport: transport,
		config:    DefaultDeviceConfig(),
	}

	for _, opt := range opts {
		if err := opt(device); err != nil {
			return nil, err
		}
	}

	if err := transport.SetTimeout(device.config.Timeout); err != nil {
		return nil, fmt.Errorf("failed to set timeout on transport: %w", err)
	}

	return device, nil
}

// TransportFactory is a function type for creating transports
type TransportFactory func(path string) (Transport, error)

// ConnectOption represents a functional option for ConnectDevice
type ConnectOption func(*connectConfig) error

type connectConfig struct {
	transportFactory TransportFactory
	deviceOptions    []Option
	skipInit         bool
}

// WithDeviceOptions adds device-level options
func WithDeviceOptions(opts ...Option) ConnectOption {
	return func(c *connectConfig) error {
		c.deviceOptions = append(c.deviceOptions, opts...)
		return nil
	}
}

// WithTransportFactory sets the transport factory function
func WithTransportFactory(factory TransportFactory) ConnectOption {
	return func(c *connectConfig) error {
		if factory == nil {
			return errors.New("transport factory is nil")
		}
		c.transportFactory = factory
		return nil
	}
}

// WithoutInit skips SAM configuration and the firmware query.
func WithoutInit() ConnectOption {
	return func(c *connectConfig) error {
		c.skipInit = true
		return nil
	}
}

// ConnectDevice opens a transport for path, wraps it in a Device and runs
// Init. The transport is closed again if any step fails.
//
//	device, err := pn532.ConnectDevice(ctx, "/dev/ttyUSB0",
//		pn532.WithTransportFactory(func(p string) (pn532.Transport, error) { return uart.New(p) }))
func ConnectDevice(ctx context.Context, path string, opts ...ConnectOption) (*Device, error) {
	config := &connectConfig{}
	for _, opt := range opts {
		if err := opt(config); err != nil {
			return nil, fmt.Errorf("failed to apply connect option: %w", err)
		}
	}
	if config.transportFactory == nil {
		return nil, errors.New("transport factory not provided")
	}

	transport, err := config.transportFactory(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create transport for path %s: %w", path, err)
	}

	device, err := New(transport, config.deviceOptions...)
	if err != nil {
		_ = transport.Close()
		return nil, fmt.Errorf("failed to create device: %w", err)
	}

	if !config.skipInit {
		if err := device.Init(ctx); err != nil {
			_ = transport.Close()
			return nil, fmt.Errorf("failed to initialize device: %w", err)
		}
	}

	return device, nil
}

// Transport returns the underlying transport
func (d *Device) Transport() Transport {
	return d.transport
}

// Config returns a copy of the device configuration.
func (d *Device) Config() DeviceConfig {
	return *d.config
}

// Init brings the reader into initiator mode: SAM configuration in normal
// mode, optional passive activation retry cap, then the firmware query.
func (d *Device) Init(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.samConfiguration(ctx, SAMModeNormal, DefaultSAMTimeout, false); err != nil {
		return fmt.Errorf("SAM configuration failed: %w", err)
	}

	if retries := d.config.PassiveActivationRetries; retries != 0 {
		if err := d.setPassiveActivationRetries(ctx, retries); err != nil {
			// older firmware may refuse the item
			Debugf("passive activation retries not applied: %v", err)
		}
	}

	fw, err := d.getFirmwareVersion(ctx)
	if err != nil {
		return fmt.Errorf("failed to get firmware version: %w", err)
	}
	d.firmwareVersion = fw
	Debugf("PN5%02X firmware %s", fw.IC, fw.Version)
	return nil
}

// SetTimeout sets the default response timeout
func (d *Device) SetTimeout(timeout time.Duration) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.transport.SetTimeout(timeout); err != nil {
		return fmt.Errorf("failed to set timeout on transport: %w", err)
	}
	d.config.Timeout = timeout
	return nil
}

// Close closes the device connection
func (d *Device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.transport.Close(); err != nil {
		return fmt.Errorf("failed to close transport: %w", err)
	}
	return nil
}

// send forwards one command to the transport. Callers hold d.mu.
func (d *Device) send(ctx context.Context, cmd byte, args ...byte) ([]byte, error) {
	if !d.transport.IsConnected() {
		return nil, fmt.Errorf("%s: %w", commandName(cmd), ErrTransportClosed)
	}
	return d.transport.SendCommand(ctx, cmd, args)
}
