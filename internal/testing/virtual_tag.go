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

package testing

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/spooltag/go-pn532/internal/syncutil"
)

const (
	pageSize  = 4
	blockSize = 16
)

var (
	errTagRemoved     = errors.New("tag removed from field")
	errBlockRange     = errors.New("block out of range")
	errBlockReadOnly  = errors.New("block is read-only")
	errInjectedFault  = errors.New("injected fault")
	errBadBlockLength = errors.New("block data must be 16 bytes")
)

// VirtualTag simulates an NTAG215 or NTAG216. Memory is addressed in
// 16-byte blocks: block N holds pages 4N through 4N+3. Pages past the end
// of the chip read as zeros.
type VirtualTag struct {
	failRead   map[int]bool
	failWrite  map[int]bool
	Type       string
	UID        []byte
	memory     []byte
	reads      int
	writes     int
	mu         syncutil.Mutex
	SensRes    [2]byte
	SelRes     byte
	present    bool
	totalPages int
}

// NewVirtualNTAG215 creates a blank NTAG215 with an empty record in user
// memory. A nil uid selects TestNTAGUID.
func NewVirtualNTAG215(uid []byte) *VirtualTag {
	return newVirtualNTAG("NTAG215", uid, 135, 0x3E, 0x83)
}

// NewVirtualNTAG216 creates a blank NTAG216 with an empty record in user
// memory. A nil uid selects TestNTAGUID.
func NewVirtualNTAG216(uid []byte) *VirtualTag {
	return newVirtualNTAG("NTAG216", uid, 231, 0x6D, 0xE3)
}

func newVirtualNTAG(kind string, uid []byte, totalPages int, ccSize byte, cfgPage int) *VirtualTag {
	if uid == nil {
		uid = TestNTAGUID
	}
	tag := &VirtualTag{
		Type:       kind,
		UID:        append([]byte(nil), uid...),
		SensRes:    [2]byte{0x00, 0x44},
		SelRes:     0x00,
		memory:     make([]byte, totalPages*pageSize),
		totalPages: totalPages,
		present:    true,
		failRead:   make(map[int]bool),
		failWrite:  make(map[int]bool),
	}
	tag.initMemory(ccSize, cfgPage)
	return tag
}

// initMemory lays out the manufacturer pages, capability container, an
// empty record TLV and the configuration pages.
func (v *VirtualTag) initMemory(ccSize byte, cfgPage int) {
	uid := make([]byte, 7)
	copy(uid, v.UID)

	bcc0 := 0x88 ^ uid[0] ^ uid[1] ^ uid[2]
	bcc1 := uid[3] ^ uid[4] ^ uid[5] ^ uid[6]
	copy(v.memory[0:], []byte{uid[0], uid[1], uid[2], bcc0})
	copy(v.memory[4:], []byte{uid[3], uid[4], uid[5], uid[6]})
	copy(v.memory[8:], []byte{bcc1, 0x48, 0x00, 0x00})
	copy(v.memory[12:], []byte{0xE1, 0x10, ccSize, 0x00})
	copy(v.memory[16:], []byte{0x03, 0x00, 0xFE, 0x00})

	// AUTH0 = 0xFF leaves password protection off
	copy(v.memory[cfgPage*pageSize:], []byte{0x04, 0x00, 0x00, 0xFF})
	copy(v.memory[(cfgPage+1)*pageSize:], []byte{0x00, 0x05, 0x00, 0x00})
	copy(v.memory[(cfgPage+2)*pageSize:], []byte{0xFF, 0xFF, 0xFF, 0xFF})
}

// GetUIDString returns the UID as upper-case hex.
func (v *VirtualTag) GetUIDString() string {
	return strings.ToUpper(hex.EncodeToString(v.UID))
}

// TotalPages returns the number of pages on the chip.
func (v *VirtualTag) TotalPages() int {
	return v.totalPages
}

// ReadBlock returns the 16 bytes of block.
func (v *VirtualTag) ReadBlock(block int) ([]byte, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if !v.present {
		return nil, errTagRemoved
	}
	if v.failRead[block] {
		return nil, fmt.Errorf("read block %d: %w", block, errInjectedFault)
	}
	start := block * blockSize
	if block < 0 || start >= len(v.memory) {
		return nil, fmt.Errorf("read block %d: %w", block, errBlockRange)
	}

	v.reads++
	out := make([]byte, blockSize)
	copy(out, v.memory[start:])
	return out, nil
}

// WriteBlock stores 16 bytes at block. Block 0 carries the UID and is
// read-only; bytes past the end of the chip are dropped.
func (v *VirtualTag) WriteBlock(block int, data []byte) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if !v.present {
		return errTagRemoved
	}
	if len(data) != blockSize {
		return errBadBlockLength
	}
	if v.failWrite[block] {
		return fmt.Errorf("write block %d: %w", block, errInjectedFault)
	}
	if block == 0 {
		return errBlockReadOnly
	}
	start := block * blockSize
	if block < 0 || start >= len(v.memory) {
		return fmt.Errorf("write block %d: %w", block, errBlockRange)
	}

	v.writes++
	copy(v.memory[start:], data)
	return nil
}

// Page returns a copy of one page, or nil when page is out of range.
func (v *VirtualTag) Page(page int) []byte {
	v.mu.Lock()
	defer v.mu.Unlock()

	if page < 0 || page >= v.totalPages {
		return nil
	}
	return append([]byte(nil), v.memory[page*pageSize:(page+1)*pageSize]...)
}

// SetPage overwrites one page directly, bypassing write protection.
func (v *VirtualTag) SetPage(page int, data []byte) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if page < 0 || page >= v.totalPages {
		return
	}
	copy(v.memory[page*pageSize:(page+1)*pageSize], data)
}

// LoadUserData copies data into memory starting at page 4.
func (v *VirtualTag) LoadUserData(data []byte) {
	v.mu.Lock()
	defer v.mu.Unlock()
	copy(v.memory[4*pageSize:], data)
}

// UserData returns n bytes of memory starting at page 4.
func (v *VirtualTag) UserData(n int) []byte {
	v.mu.Lock()
	defer v.mu.Unlock()

	end := min(4*pageSize+n, len(v.memory))
	return append([]byte(nil), v.memory[4*pageSize:end]...)
}

// FailReadAt makes reads of block fail until cleared.
func (v *VirtualTag) FailReadAt(block int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.failRead[block] = true
}

// FailWriteAt makes writes of block fail until cleared.
func (v *VirtualTag) FailWriteAt(block int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.failWrite[block] = true
}

// ClearFaults removes injected read and write failures.
func (v *VirtualTag) ClearFaults() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.failRead = make(map[int]bool)
	v.failWrite = make(map[int]bool)
}

// Counts returns the number of successful block reads and writes.
func (v *VirtualTag) Counts() (reads, writes int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.reads, v.writes
}

// Remove simulates taking the tag out of the field.
func (v *VirtualTag) Remove() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.present = false
}

// Insert puts the tag back in the field.
func (v *VirtualTag) Insert() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.present = true
}

// IsPresent reports whether the tag is in the field.
func (v *VirtualTag) IsPresent() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.present
}
