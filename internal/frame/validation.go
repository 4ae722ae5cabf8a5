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

package frame

import (
	"errors"
	"fmt"
)

// ErrFraming is the sentinel behind every FramingError.
var ErrFraming = errors.New("frame: malformed frame")

// FramingError describes why a candidate frame was rejected. The decoder
// drops the start code and keeps scanning after returning one.
type FramingError struct {
	Reason string
	Header []byte
}

func (e *FramingError) Error() string {
	if len(e.Header) == 0 {
		return fmt.Sprintf("frame: %s", e.Reason)
	}
	return fmt.Sprintf("frame: %s (header % X)", e.Reason, e.Header)
}

func (e *FramingError) Unwrap() error {
	return ErrFraming
}

// ValidateFrameLength checks the LEN/LCS pair starting at buf[off].
// It returns the frame length, or ok=false when fewer than two bytes are
// available. A LEN+LCS sum that is not zero yields a FramingError.
func ValidateFrameLength(buf []byte, off int) (frameLen int, ok bool, err error) {
	if off < 0 || off+1 >= len(buf) {
		return 0, false, nil
	}

	frameLen = int(buf[off])
	lengthChecksum := buf[off+1]

	if byte(frameLen)+lengthChecksum != 0 {
		return 0, true, &FramingError{Reason: "length checksum mismatch", Header: append([]byte(nil), buf[off:off+2]...)}
	}

	return frameLen, true, nil
}

// ValidateFrameChecksum validates the frame data checksum
// Returns true if checksum is invalid, false if valid
func ValidateFrameChecksum(buf []byte, start, end int) bool {
	// Handle invalid slice bounds - negative indices or out of range
	if start < 0 || end < 0 || start > end || end > len(buf) {
		return true
	}

	return CalculateChecksum(buf[start:end]) != 0
}
