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

// FirmwareVersion contains PN532 firmware information
type FirmwareVersion struct {
	Version          string `json:"version"`
	IC               byte   `json:"ic"`
	Ver              byte   `json:"ver"`
	Rev              byte   `json:"rev"`
	Support          byte   `json:"support"`
	SupportIso14443a bool   `json:"iso14443a"`
	SupportIso14443b bool   `json:"iso14443b"`
	SupportIso18092  bool   `json:"iso18092"`
}

// GeneralStatus contains PN532 general status information
type GeneralStatus struct {
	LastError    byte `json:"last_error"`
	FieldPresent bool `json:"field_present"`
	Targets      byte `json:"targets"`
}

// FirmwareVersion queries the chip. Init caches the result; use
// CachedFirmwareVersion to read it without I/O.
func (d *Device) FirmwareVersion(ctx context.Context) (*FirmwareVersion, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	fw, err := d.getFirmwareVersion(ctx)
	if err != nil {
		return nil, err
	}
	d.firmwareVersion = fw
	return fw, nil
}

// CachedFirmwareVersion returns the version read by Init, or nil.
func (d *Device) CachedFirmwareVersion() *FirmwareVersion {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.firmwareVersion
}

func (d *Device) getFirmwareVersion(ctx context.Context) (*FirmwareVersion, error) {
	resp, err := d.send(ctx, CmdGetFirmwareVersion)
	if err != nil {
		return nil, err
	}
	if len(resp) < 4 {
		return nil, fmt.Errorf("%w: firmware version response has %d bytes", ErrInvalidResponse, len(resp))
	}

	return &FirmwareVersion{
		IC:               resp[0],
		Ver:              resp[1],
		Rev:              resp[2],
		Support:          resp[3],
		Version:          fmt.Sprintf("%d.%d", resp[1], resp[2]),
		SupportIso14443a: resp[3]&0x01 != 0,
		SupportIso14443b: resp[3]&0x02 != 0,
		SupportIso18092:  resp[3]&0x04 != 0,
	}, nil
}

// GetGeneralStatus reports the last error, RF field state and the number
// of targets the chip currently holds.
func (d *Device) GetGeneralStatus(ctx context.Context) (*GeneralStatus, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	resp, err := d.send(ctx, CmdGetGeneralStatus)
	if err != nil {
		return nil, err
	}
	if len(resp) < 3 {
		return nil, fmt.Errorf("%w: general status response has %d bytes", ErrInvalidResponse, len(resp))
	}

	return &GeneralStatus{
		LastError:    resp[0],
		FieldPresent: resp[1] == 0x01,
		Targets:      resp[2],
	}, nil
}
