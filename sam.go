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
)

// SAMMode represents the SAM configuration mode
type SAMMode byte

const (
	SAMModeNormal      SAMMode = 0x01
	SAMModeVirtualCard SAMMode = 0x02
	SAMModeWiredCard   SAMMode = 0x03
	SAMModeDualCard    SAMMode = 0x04
)

// DefaultSAMTimeout is the virtual card timeout byte (x 50 ms) sent with
// SAMConfiguration.
const DefaultSAMTimeout byte = 0x14

// RF configuration items
const (
	RFItemField        byte = 0x01
	RFItemTimings      byte = 0x02
	RFItemMaxRtyCOM    byte = 0x04
	RFItemMaxRetries   byte = 0x05
	rfFieldAutoRFCA    byte = 0x02
	rfFieldOn          byte = 0x01
	mxRtyDefaultATR    byte = 0x00
	mxRtyDefaultPSL    byte = 0x00
	passiveRetriesInfi byte = 0xFF
)

// SAMConfiguration selects how the chip uses its security access module.
// Normal mode is required before acting as an initiator.
func (d *Device) SAMConfiguration(ctx context.Context, mode SAMMode, timeout byte, useIRQ bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.samConfiguration(ctx, mode, timeout, useIRQ)
}

func (d *Device) samConfiguration(ctx context.Context, mode SAMMode, timeout byte, useIRQ bool) error {
	irq := byte(0x00)
	if useIRQ {
		irq = 0x01
	}
	if _, err := d.send(ctx, CmdSAMConfiguration, byte(mode), timeout, irq); err != nil {
		return err
	}
	return nil
}

// RFConfiguration writes one configuration item.
func (d *Device) RFConfiguration(ctx context.Context, item byte, data []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.rfConfiguration(ctx, item, data)
}

func (d *Device) rfConfiguration(ctx context.Context, item byte, data []byte) error {
	args := append([]byte{item}, data...)
	if _, err := d.send(ctx, CmdRFConfiguration, args...); err != nil {
		return fmt.Errorf("RF configuration item 0x%02X: %w", item, err)
	}
	return nil
}

// SetRFField switches the antenna field. autoRF lets the chip manage the
// field around collision avoidance.
func (d *Device) SetRFField(ctx context.Context, autoRF, on bool) error {
	var value byte
	if autoRF {
		value |= rfFieldAutoRFCA
	}
	if on {
		value |= rfFieldOn
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	return d.rfConfiguration(ctx, RFItemField, []byte{value})
}

// SetPassiveActivationRetries caps InListPassiveTarget retries. 0xFF means
// retry forever, which can leave the chip stuck until power cycled.
func (d *Device) SetPassiveActivationRetries(ctx context.Context, maxRetries byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.setPassiveActivationRetries(ctx, maxRetries)
}

func (d *Device) setPassiveActivationRetries(ctx context.Context, maxRetries byte) error {
	if maxRetries == passiveRetriesInfi {
		Debugf("passive activation retries set to infinite")
	}
	return d.rfConfiguration(ctx, RFItemMaxRetries, []byte{mxRtyDefaultATR, mxRtyDefaultPSL, maxRetries})
}

// PowerDown puts the chip to sleep until one of the wake-up sources fires.
func (d *Device) PowerDown(ctx context.Context, wakeupEnable byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	resp, err := d.send(ctx, CmdPowerDown, wakeupEnable)
	if err != nil {
		return err
	}
	if len(resp) > 0 && resp[0] != 0x00 {
		return &StatusError{Op: "PowerDown", Err: ErrInvalidResponse, Status: resp[0]}
	}
	return nil
}
