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

// Package testing provides test utilities including a wire-level PN532 simulator.
//
// The VirtualPN532 type implements io.ReadWriter and answers host frames the
// way the chip does on its UART: an ACK frame as soon as a command frame is
// accepted, followed by the response frame. Fault hooks let tests drop ACKs,
// withhold responses, corrupt checksums and inject device error replies.
//
// Protocol Reference: PN532 User Manual, section 6.2 "Host controller communication protocol"
package testing

import (
	"github.com/spooltag/go-pn532/internal/frame"
	"github.com/spooltag/go-pn532/internal/syncutil"
)

// PN532 command codes handled by the simulator (User Manual §7, Table 12)
const (
	cmdGetFirmwareVersion  = 0x02
	cmdGetGeneralStatus    = 0x04
	cmdSAMConfiguration    = 0x14
	cmdPowerDown           = 0x16
	cmdRFConfiguration     = 0x32
	cmdInDataExchange      = 0x40
	cmdInListPassiveTarget = 0x4A
	cmdInRelease           = 0x52
)

// Tag-level commands carried inside InDataExchange
const (
	tagCmdRead  = 0x30
	tagCmdWrite = 0xA0
)

// InDataExchange status bytes (User Manual §7.1)
const (
	statusOK       = 0x00
	statusTimeout  = 0x01
	statusWrongCtx = 0x27
)

// ACK and NACK frames from PN532 User Manual §6.2.1.3 and §6.2.1.4
var (
	ACKFrame  = frame.AckFrame
	NACKFrame = frame.NackFrame
)

// syntaxErrorFrame is the application-level error frame the chip sends for
// a command it does not understand (§6.2.1.5).
var syntaxErrorFrame = []byte{0x00, 0x00, 0xFF, 0x01, 0xFF, 0x7F, 0x81, 0x00}

// VirtualPN532 simulates a PN532 attached through a byte stream. Read
// returns (0, nil) when nothing is pending, like a serial port with a
// short read timeout.
type VirtualPN532 struct {
	tag            *VirtualTag
	rx             *frame.Decoder
	errorReplies   map[byte][]byte
	errorFrames    map[byte]bool
	opcodeOverride map[byte]byte
	commands       []byte
	txBuffer       []byte
	noise          []byte
	firmware       [4]byte
	framesReceived int
	ignoreFrames   int
	dropResponses  int
	corruptNext    int
	mu             syncutil.Mutex
	silent         bool
	samConfigured  bool
	rfField        bool
	targetActive   bool
	poweredDown    bool
}

// NewVirtualPN532 creates a simulator reporting PN532 firmware 1.6 with
// ISO14443A/B and ISO18092 support and no tag in the field.
func NewVirtualPN532() *VirtualPN532 {
	return &VirtualPN532{
		rx:             frame.NewDecoder(frame.HostToPn532),
		errorReplies:   make(map[byte][]byte),
		errorFrames:    make(map[byte]bool),
		opcodeOverride: make(map[byte]byte),
		firmware:       [4]byte{0x32, 0x01, 0x06, 0x07},
		rfField:        true,
	}
}

// Write accepts bytes from the host. Every complete command frame is
// answered into the transmit buffer before Write returns.
func (v *VirtualPN532) Write(data []byte) (int, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.rx.Push(data)
	for {
		f, ok, err := v.rx.Next()
		if err != nil {
			// a corrupted command frame is ignored; the host sees no ACK
			continue
		}
		if !ok {
			break
		}
		v.processFrame(f.Payload)
	}
	return len(data), nil
}

// Read drains pending ACK and response bytes.
func (v *VirtualPN532) Read(buf []byte) (int, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	n := copy(buf, v.txBuffer)
	v.txBuffer = v.txBuffer[n:]
	return n, nil
}

func (v *VirtualPN532) processFrame(payload []byte) {
	v.framesReceived++
	if len(payload) == 0 {
		return
	}
	if v.silent {
		return
	}
	if v.ignoreFrames > 0 {
		v.ignoreFrames--
		return
	}

	cmd := payload[0]
	v.commands = append(v.commands, cmd)
	v.txBuffer = append(v.txBuffer, ACKFrame...)

	if v.dropResponses > 0 {
		v.dropResponses--
		return
	}

	v.txBuffer = append(v.txBuffer, v.noise...)
	v.noise = nil

	if v.errorFrames[cmd] {
		v.txBuffer = append(v.txBuffer, syntaxErrorFrame...)
		return
	}

	var resp []byte
	if raw, ok := v.errorReplies[cmd]; ok {
		resp = append([]byte(nil), raw...)
	} else {
		resp = v.handleCommand(cmd, payload[1:])
		if resp == nil {
			v.txBuffer = append(v.txBuffer, syntaxErrorFrame...)
			return
		}
		if op, ok := v.opcodeOverride[cmd]; ok {
			resp[0] = op
		}
	}

	wire := frame.Encode(frame.Pn532ToHost, resp)
	if v.corruptNext > 0 {
		v.corruptNext--
		wire[len(wire)-2] ^= 0xFF
	}
	v.txBuffer = append(v.txBuffer, wire...)
}

// handleCommand returns the response payload starting with the response
// opcode, or nil for an unsupported command.
func (v *VirtualPN532) handleCommand(cmd byte, params []byte) []byte {
	switch cmd {
	case cmdGetFirmwareVersion:
		return []byte{cmd + 1, v.firmware[0], v.firmware[1], v.firmware[2], v.firmware[3]}
	case cmdGetGeneralStatus:
		return v.handleGeneralStatus()
	case cmdSAMConfiguration:
		if len(params) < 1 {
			return nil
		}
		v.samConfigured = true
		return []byte{cmd + 1}
	case cmdRFConfiguration:
		if len(params) < 1 {
			return nil
		}
		if params[0] == 0x01 && len(params) > 1 {
			v.rfField = params[1]&0x01 != 0
		}
		return []byte{cmd + 1}
	case cmdInListPassiveTarget:
		return v.handleInListPassiveTarget(params)
	case cmdInDataExchange:
		return v.handleInDataExchange(params)
	case cmdInRelease:
		v.targetActive = false
		return []byte{cmd + 1, statusOK}
	case cmdPowerDown:
		v.poweredDown = true
		v.targetActive = false
		return []byte{cmd + 1, statusOK}
	default:
		return nil
	}
}

func (v *VirtualPN532) handleGeneralStatus() []byte {
	field := byte(0)
	if v.rfField {
		field = 1
	}
	targets := byte(0)
	if v.targetActive {
		targets = 1
	}
	return []byte{cmdGetGeneralStatus + 1, 0x00, field, targets}
}

// handleInListPassiveTarget reports the tag in the field, if any. Only
// 106 kbps type A discovery is simulated.
func (v *VirtualPN532) handleInListPassiveTarget(params []byte) []byte {
	none := []byte{cmdInListPassiveTarget + 1, 0x00}
	if len(params) < 2 || params[1] != 0x00 {
		return none
	}
	if v.tag == nil || !v.tag.IsPresent() {
		v.targetActive = false
		return none
	}

	v.targetActive = true
	resp := []byte{cmdInListPassiveTarget + 1, 0x01, 0x01}
	resp = append(resp, v.tag.SensRes[:]...)
	resp = append(resp, v.tag.SelRes, byte(len(v.tag.UID)))
	return append(resp, v.tag.UID...)
}

func (v *VirtualPN532) handleInDataExchange(params []byte) []byte {
	status := func(s byte) []byte { return []byte{cmdInDataExchange + 1, s} }

	if len(params) < 2 {
		return status(statusWrongCtx)
	}
	if !v.targetActive || v.tag == nil || !v.tag.IsPresent() {
		return status(statusTimeout)
	}

	tagCmd := params[1]
	switch tagCmd {
	case tagCmdRead:
		if len(params) < 3 {
			return status(statusWrongCtx)
		}
		data, err := v.tag.ReadBlock(int(params[2]))
		if err != nil {
			return status(statusTimeout)
		}
		return append(status(statusOK), data...)
	case tagCmdWrite:
		if len(params) < 3+16 {
			return status(statusWrongCtx)
		}
		if err := v.tag.WriteBlock(int(params[2]), params[3:3+16]); err != nil {
			return status(statusTimeout)
		}
		return status(statusOK)
	default:
		return status(statusWrongCtx)
	}
}

// SetTag places tag in the field, replacing any previous tag.
func (v *VirtualPN532) SetTag(tag *VirtualTag) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.tag = tag
	v.targetActive = false
}

// RemoveTag empties the field.
func (v *VirtualPN532) RemoveTag() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.tag = nil
	v.targetActive = false
}

// SetFirmware changes the GetFirmwareVersion answer.
func (v *VirtualPN532) SetFirmware(ic, ver, rev, support byte) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.firmware = [4]byte{ic, ver, rev, support}
}

// SetSilent makes the simulator swallow every frame without ACK or response.
func (v *VirtualPN532) SetSilent(silent bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.silent = silent
}

// DropNextACK ignores the next n command frames entirely.
func (v *VirtualPN532) DropNextACK(n int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.ignoreFrames = n
}

// DropNextResponse acknowledges the next n commands but never answers them.
func (v *VirtualPN532) DropNextResponse(n int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.dropResponses = n
}

// CorruptNextResponse breaks the data checksum of the next n responses.
func (v *VirtualPN532) CorruptNextResponse(n int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.corruptNext = n
}

// InjectNoise queues garbage bytes ahead of the next response frame.
func (v *VirtualPN532) InjectNoise(noise []byte) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.noise = append(v.noise, noise...)
}

// SetErrorReply makes cmd answer with raw as the response payload, e.g.
// {0x7F, 0x01} for an error marker followed by a code.
func (v *VirtualPN532) SetErrorReply(cmd byte, raw []byte) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.errorReplies[cmd] = append([]byte(nil), raw...)
}

// SetErrorFrame makes cmd answer with the syntax error frame.
func (v *VirtualPN532) SetErrorFrame(cmd byte) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.errorFrames[cmd] = true
}

// OverrideOpcode replaces the response opcode sent for cmd.
func (v *VirtualPN532) OverrideOpcode(cmd, opcode byte) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.opcodeOverride[cmd] = opcode
}

// ClearFaults removes every fault hook.
func (v *VirtualPN532) ClearFaults() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.silent = false
	v.ignoreFrames = 0
	v.dropResponses = 0
	v.corruptNext = 0
	v.noise = nil
	v.errorReplies = make(map[byte][]byte)
	v.errorFrames = make(map[byte]bool)
	v.opcodeOverride = make(map[byte]byte)
}

// FramesReceived counts well-formed command frames, answered or not.
func (v *VirtualPN532) FramesReceived() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.framesReceived
}

// Commands returns the opcodes of acknowledged commands in arrival order.
func (v *VirtualPN532) Commands() []byte {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]byte(nil), v.commands...)
}

// CommandCount returns how many times cmd was acknowledged.
func (v *VirtualPN532) CommandCount(cmd byte) int {
	v.mu.Lock()
	defer v.mu.Unlock()
	count := 0
	for _, c := range v.commands {
		if c == cmd {
			count++
		}
	}
	return count
}

// SAMConfigured reports whether SAMConfiguration has been received.
func (v *VirtualPN532) SAMConfigured() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.samConfigured
}

// PoweredDown reports whether PowerDown has been received.
func (v *VirtualPN532) PoweredDown() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.poweredDown
}

// HasPendingResponse reports whether unread bytes are waiting.
func (v *VirtualPN532) HasPendingResponse() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.txBuffer) > 0
}

// Reset clears buffers, counters and chip state. The tag stays in place.
func (v *VirtualPN532) Reset() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.rx.Reset()
	v.txBuffer = nil
	v.commands = nil
	v.framesReceived = 0
	v.samConfigured = false
	v.targetActive = false
	v.poweredDown = false
	v.rfField = true
}
