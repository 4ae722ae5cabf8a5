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

// Package frame implements the PN532 normal information frame: encoding,
// checksums and an incremental decoder for byte streams.
package frame

// Frame direction constants (TFI byte)
const (
	HostToPn532   = 0xD4 // Commands from host to PN532
	Pn532ToHost   = 0xD5 // Responses from PN532 to host
	ErrorFrameTFI = 0x7F // Application-level error frame
)

// Frame markers and control bytes
const (
	Preamble   = 0x00
	StartCode1 = 0x00
	StartCode2 = 0xFF
	Postamble  = 0x00
)

// Frame size limits
const (
	// MaxPayload is the largest payload that fits a normal frame. LEN counts
	// the direction byte and must fit one byte.
	MaxPayload = 254
	// MinFrameLength is preamble + start code + len + lcs + tfi + dcs.
	MinFrameLength = 6
	// Overhead is every frame byte that is not payload.
	Overhead = 8
)

// ACK and NACK frames
var (
	AckFrame  = []byte{0x00, 0x00, 0xFF, 0x00, 0xFF, 0x00}
	NackFrame = []byte{0x00, 0x00, 0xFF, 0xFF, 0x00, 0x00}
)
