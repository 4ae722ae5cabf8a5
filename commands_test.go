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
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCommandConstants(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		constant byte
		expected byte
	}{
		{"CmdDiagnose", CmdDiagnose, 0x00},
		{"CmdGetFirmwareVersion", CmdGetFirmwareVersion, 0x02},
		{"CmdSAMConfiguration", CmdSAMConfiguration, 0x14},
		{"CmdPowerDown", CmdPowerDown, 0x16},
		{"CmdRFConfiguration", CmdRFConfiguration, 0x32},
		{"CmdInDataExchange", CmdInDataExchange, 0x40},
		{"CmdInListPassiveTarget", CmdInListPassiveTarget, 0x4A},
		{"CmdInRelease", CmdInRelease, 0x52},
		{"CmdInAutoPoll", CmdInAutoPoll, 0x60},
		{"CmdTgInitAsTarget", CmdTgInitAsTarget, 0x8C},
		{"MifareRead", MifareRead, 0x30},
		{"MifareWrite", MifareWrite, 0xA0},
		{"MifareAuthA", MifareAuthA, 0x60},
		{"MifareAuthB", MifareAuthB, 0x61},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, tt.constant, "%s", tt.name)
		})
	}
}

func TestCommandNames_UniqueOpcodes(t *testing.T) {
	t.Parallel()

	seen := make(map[string]byte, len(commandNames))
	for code, name := range commandNames {
		prev, dup := seen[name]
		assert.False(t, dup, "%s used for 0x%02X and 0x%02X", name, prev, code)
		seen[name] = code
		// responses carry opcode+1, so every command opcode is even
		assert.Zero(t, code&0x01, "%s has an odd opcode 0x%02X", name, code)
	}
}

func TestCommandName(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "InListPassiveTarget", commandName(CmdInListPassiveTarget))
	assert.Equal(t, "command 0xFE", commandName(0xFE))
}

func TestWakeupFlags_SingleBit(t *testing.T) {
	t.Parallel()

	for _, flag := range []byte{WakeupHSU, WakeupSPI, WakeupI2C, WakeupGPIOP32, WakeupGPIOP34, WakeupRF, WakeupINT1} {
		assert.Zero(t, flag&(flag-1), "0x%02X is not a single bit", flag)
	}
	assert.Equal(t, byte(0x25), WakeupHSU|WakeupI2C|WakeupRF)
}
