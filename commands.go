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

import "fmt"

// PN532 command codes. The response to a command carries opcode+1.
const (
	CmdDiagnose            byte = 0x00
	CmdGetFirmwareVersion  byte = 0x02
	CmdGetGeneralStatus    byte = 0x04
	CmdReadRegister        byte = 0x06
	CmdWriteRegister       byte = 0x08
	CmdReadGPIO            byte = 0x0C
	CmdWriteGPIO           byte = 0x0E
	CmdSetSerialBaudRate   byte = 0x10
	CmdSetParameters       byte = 0x12
	CmdSAMConfiguration    byte = 0x14
	CmdPowerDown           byte = 0x16
	CmdRFConfiguration     byte = 0x32
	CmdInDataExchange      byte = 0x40
	CmdInCommunicateThru   byte = 0x42
	CmdInDeselect          byte = 0x44
	CmdInJumpForPSL        byte = 0x46
	CmdInListPassiveTarget byte = 0x4A
	CmdInPSL               byte = 0x4E
	CmdInATR               byte = 0x50
	CmdInRelease           byte = 0x52
	CmdInSelect            byte = 0x54
	CmdInJumpForDEP        byte = 0x56
	CmdInAutoPoll          byte = 0x60
	CmdTgGetData           byte = 0x86
	CmdTgGetInitiatorCmd   byte = 0x88
	CmdTgGetTargetStatus   byte = 0x8A
	CmdTgInitAsTarget      byte = 0x8C
	CmdTgSetData           byte = 0x8E
	CmdTgResponseToInit    byte = 0x90
	CmdTgSetGeneralBytes   byte = 0x92
	CmdTgSetMetaData       byte = 0x94
)

// MIFARE commands carried inside InDataExchange. NTAG21x tags answer the
// same READ (16 bytes) and WRITE opcodes.
const (
	MifareAuthA     byte = 0x60
	MifareAuthB     byte = 0x61
	MifareRead      byte = 0x30
	MifareWrite     byte = 0xA0
	MifareTransfer  byte = 0xB0
	MifareDecrement byte = 0xC0
	MifareIncrement byte = 0xC1
	MifareRestore   byte = 0xC2
)

// BaudMode selects the modulation used by InListPassiveTarget.
type BaudMode byte

const (
	BaudISO14443A106 BaudMode = 0x00 // 106 kbps type A
	BaudFeliCa212    BaudMode = 0x01 // 212 kbps
	BaudFeliCa424    BaudMode = 0x02 // 424 kbps
	BaudISO14443B106 BaudMode = 0x03 // 106 kbps type B
)

var commandNames = map[byte]string{
	CmdDiagnose:            "Diagnose",
	CmdGetFirmwareVersion:  "GetFirmwareVersion",
	CmdGetGeneralStatus:    "GetGeneralStatus",
	CmdReadRegister:        "ReadRegister",
	CmdWriteRegister:       "WriteRegister",
	CmdReadGPIO:            "ReadGPIO",
	CmdWriteGPIO:           "WriteGPIO",
	CmdSetSerialBaudRate:   "SetSerialBaudRate",
	CmdSetParameters:       "SetParameters",
	CmdSAMConfiguration:    "SAMConfiguration",
	CmdPowerDown:           "PowerDown",
	CmdRFConfiguration:     "RFConfiguration",
	CmdInDataExchange:      "InDataExchange",
	CmdInCommunicateThru:   "InCommunicateThru",
	CmdInDeselect:          "InDeselect",
	CmdInJumpForPSL:        "InJumpForPSL",
	CmdInListPassiveTarget: "InListPassiveTarget",
	CmdInPSL:               "InPSL",
	CmdInATR:               "InATR",
	CmdInRelease:           "InRelease",
	CmdInSelect:            "InSelect",
	CmdInJumpForDEP:        "InJumpForDEP",
	CmdInAutoPoll:          "InAutoPoll",
	CmdTgGetData:           "TgGetData",
	CmdTgGetInitiatorCmd:   "TgGetInitiatorCommand",
	CmdTgGetTargetStatus:   "TgGetTargetStatus",
	CmdTgInitAsTarget:      "TgInitAsTarget",
	CmdTgSetData:           "TgSetData",
	CmdTgResponseToInit:    "TgResponseToInitiator",
	CmdTgSetGeneralBytes:   "TgSetGeneralBytes",
	CmdTgSetMetaData:       "TgSetMetaData",
}

// commandName returns a readable name for logs and errors.
func commandName(cmd byte) string {
	if name, ok := commandNames[cmd]; ok {
		return name
	}
	return fmt.Sprintf("command 0x%02X", cmd)
}

// PowerDown wake-up sources
const (
	WakeupHSU     byte = 0x01 // High Speed UART
	WakeupSPI     byte = 0x02
	WakeupI2C     byte = 0x04
	WakeupGPIOP32 byte = 0x08
	WakeupGPIOP34 byte = 0x10
	WakeupRF      byte = 0x20
	WakeupINT1    byte = 0x80 // GPIO P72/INT1
)
