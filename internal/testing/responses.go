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

package testing

// The builders below return response bytes as a Transport hands them back:
// everything after the response opcode. They are meant for command-level
// mocks.

// BuildFirmwareVersionResponse creates a GetFirmwareVersion response for
// PN532 firmware 1.6.
func BuildFirmwareVersionResponse() []byte {
	// IC, Ver, Rev, Support
	return []byte{0x32, 0x01, 0x06, 0x07}
}

// BuildTargetResponse creates an InListPassiveTarget response with one
// NTAG21x target (ATQA 00 44, SAK 00).
func BuildTargetResponse(uid []byte) []byte {
	resp := make([]byte, 0, 6+len(uid))
	resp = append(resp, 0x01, 0x01, 0x00, 0x44, 0x00, byte(len(uid)))
	return append(resp, uid...)
}

// BuildNoTargetResponse creates an InListPassiveTarget response with no
// target.
func BuildNoTargetResponse() []byte {
	return []byte{0x00}
}

// BuildDataExchangeResponse creates a successful InDataExchange response.
func BuildDataExchangeResponse(data []byte) []byte {
	resp := make([]byte, 0, 1+len(data))
	resp = append(resp, 0x00)
	return append(resp, data...)
}

// BuildStatusResponse creates an InDataExchange response carrying only a
// status byte.
func BuildStatusResponse(status byte) []byte {
	return []byte{status}
}

// BuildBlock returns a 16-byte block holding four pages.
func BuildBlock(pages ...[]byte) []byte {
	block := make([]byte, 0, blockSize)
	for _, p := range pages {
		block = append(block, p...)
	}
	for len(block) < blockSize {
		block = append(block, 0x00)
	}
	return block[:blockSize]
}

// TestNTAGUID is a sample 7-byte NTAG UID.
var TestNTAGUID = []byte{0x04, 0xAB, 0xCD, 0xEF, 0x12, 0x34, 0x56}
