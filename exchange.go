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

// Block and page sizes of the InDataExchange memory primitives.
const (
	BlockSize     = 16
	PageSize      = 4
	PagesPerBlock = BlockSize / PageSize
	KeySize       = 6
)

// dataExchange sends a command to the target and strips the status byte.
// Callers hold d.mu.
func (d *Device) dataExchange(ctx context.Context, target Target, data ...byte) (status byte, out []byte, err error) {
	args := make([]byte, 0, len(data)+1)
	args = append(args, target.targetNumber())
	args = append(args, data...)

	resp, err := d.send(ctx, CmdInDataExchange, args...)
	if err != nil {
		return 0, nil, err
	}
	if len(resp) == 0 {
		return 0, nil, fmt.Errorf("%w: InDataExchange returned no status", ErrInvalidResponse)
	}
	return resp[0], resp[1:], nil
}

// DataExchange sends raw tag command bytes through InDataExchange and
// returns the tag's answer. A non-zero status yields a *StatusError.
func (d *Device) DataExchange(ctx context.Context, target Target, data []byte) ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	status, out, err := d.dataExchange(ctx, target, data...)
	if err != nil {
		return nil, err
	}
	if status != 0 {
		return nil, &StatusError{Op: "InDataExchange", Err: ErrInvalidResponse, Status: status}
	}
	return out, nil
}

// ReadBlock reads the 16-byte block at index block, which holds pages
// 4*block through 4*block+3.
func (d *Device) ReadBlock(ctx context.Context, target Target, block byte) ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.readBlock(ctx, target, block)
}

func (d *Device) readBlock(ctx context.Context, target Target, block byte) ([]byte, error) {
	status, data, err := d.dataExchange(ctx, target, MifareRead, block)
	if err != nil {
		return nil, fmt.Errorf("read block %d: %w", block, err)
	}
	if status != 0 {
		return nil, &StatusError{Op: fmt.Sprintf("read block %d", block), Err: ErrTagReadFailed, Status: status}
	}
	if len(data) < BlockSize {
		return nil, fmt.Errorf("read block %d: %w: got %d bytes", block, ErrTagReadFailed, len(data))
	}
	return data[:BlockSize], nil
}

// WriteBlock writes exactly 16 bytes to block.
func (d *Device) WriteBlock(ctx context.Context, target Target, block byte, data []byte) error {
	if len(data) != BlockSize {
		return fmt.Errorf("%w: block data must be %d bytes, got %d", ErrInvalidParameter, BlockSize, len(data))
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	return d.writeBlock(ctx, target, block, data)
}

func (d *Device) writeBlock(ctx context.Context, target Target, block byte, data []byte) error {
	cmd := make([]byte, 0, 2+BlockSize)
	cmd = append(cmd, MifareWrite, block)
	cmd = append(cmd, data...)

	status, _, err := d.dataExchange(ctx, target, cmd...)
	if err != nil {
		return fmt.Errorf("write block %d: %w", block, err)
	}
	if status != 0 {
		return &StatusError{Op: fmt.Sprintf("write block %d", block), Err: ErrTagWriteFailed, Status: status}
	}
	return nil
}

// Authenticate runs MIFARE Classic key authentication for block. keyType
// is MifareAuthA or MifareAuthB. NTAG21x tags do not need it.
func (d *Device) Authenticate(ctx context.Context, target Target, block, keyType byte, key []byte) error {
	if keyType != MifareAuthA && keyType != MifareAuthB {
		return fmt.Errorf("%w: key type 0x%02X", ErrInvalidParameter, keyType)
	}
	if len(key) != KeySize {
		return fmt.Errorf("%w: key must be %d bytes, got %d", ErrInvalidParameter, KeySize, len(key))
	}
	if len(target.UID) < 4 {
		return fmt.Errorf("%w: UID must be at least 4 bytes, got %d", ErrInvalidParameter, len(target.UID))
	}

	cmd := make([]byte, 0, 2+KeySize+4)
	cmd = append(cmd, keyType, block)
	cmd = append(cmd, key...)
	cmd = append(cmd, target.UID[:4]...)

	d.mu.Lock()
	defer d.mu.Unlock()

	status, _, err := d.dataExchange(ctx, target, cmd...)
	if err != nil {
		return fmt.Errorf("authenticate block %d: %w", block, err)
	}
	if status != 0 {
		return &StatusError{Op: fmt.Sprintf("authenticate block %d", block), Err: ErrInvalidResponse, Status: status}
	}
	return nil
}
