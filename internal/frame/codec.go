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

import "bytes"

// Frame is a decoded normal information frame.
type Frame struct {
	Payload   []byte
	Direction byte
}

// IsError reports whether the frame is an application-level error frame.
func (f Frame) IsError() bool {
	return f.Direction == ErrorFrameTFI
}

// Encode builds a normal information frame around payload:
//
//	00 00 FF LEN LCS TFI payload... DCS 00
//
// Callers keep payload within MaxPayload.
func Encode(direction byte, payload []byte) []byte {
	length := byte(len(payload) + 1)

	out := make([]byte, 0, len(payload)+Overhead)
	out = append(out, Preamble, StartCode1, StartCode2, length, ^length+1, direction)
	out = append(out, payload...)
	out = append(out, Checksum(out[5:]), Postamble)
	return out
}

// AckResult is the outcome of looking for an ACK at the head of a stream.
type AckResult int

const (
	// AckPending means not enough bytes have arrived to decide.
	AckPending AckResult = iota
	// AckReceived means an ACK frame was consumed.
	AckReceived
	// NackReceived means a NACK frame was consumed.
	NackReceived
	// AckOther means a different frame header sits at the head of the
	// buffer. Its bytes are left in place for Next.
	AckOther
)

var startCode = []byte{StartCode1, StartCode2}

// Decoder reassembles frames from bytes that arrive in arbitrary chunks.
// It is not safe for concurrent use.
type Decoder struct {
	buf       []byte
	direction byte
}

// NewDecoder returns a decoder that accepts frames sent in the given
// direction. Error frames (TFI 0x7F) are always accepted.
func NewDecoder(direction byte) *Decoder {
	return &Decoder{direction: direction}
}

// Push appends received bytes.
func (d *Decoder) Push(p []byte) {
	d.buf = append(d.buf, p...)
}

// Buffered returns the number of bytes not yet consumed.
func (d *Decoder) Buffered() int {
	return len(d.buf)
}

// Reset discards all buffered bytes.
func (d *Decoder) Reset() {
	d.buf = d.buf[:0]
}

// seek drops everything before the next start code. It returns false when
// no start code is buffered; a trailing 0x00 is kept since it may be the
// first half of one.
func (d *Decoder) seek() bool {
	idx := bytes.Index(d.buf, startCode)
	if idx < 0 {
		if n := len(d.buf); n > 0 && d.buf[n-1] == StartCode1 {
			d.buf = append(d.buf[:0], StartCode1)
		} else {
			d.buf = d.buf[:0]
		}
		return false
	}
	d.buf = d.buf[idx:]
	return true
}

func (d *Decoder) consume(n int) {
	if n > len(d.buf) {
		n = len(d.buf)
	}
	d.buf = append(d.buf[:0], d.buf[n:]...)
}

// consumeControl drops an ACK/NACK at the head of the buffer along with its
// postamble when it has already arrived.
func (d *Decoder) consumeControl() {
	n := 4
	if len(d.buf) > n && d.buf[n] == Postamble {
		n++
	}
	d.consume(n)
}

// NextAck inspects the head of the stream for an ACK or NACK.
func (d *Decoder) NextAck() AckResult {
	for d.seek() {
		if len(d.buf) < 4 {
			return AckPending
		}
		switch length, lcs := d.buf[2], d.buf[3]; {
		case length == 0x00 && lcs == 0xFF:
			d.consumeControl()
			return AckReceived
		case length == 0xFF && lcs == 0x00:
			d.consumeControl()
			return NackReceived
		case length+lcs == 0:
			return AckOther
		default:
			d.consume(len(startCode))
		}
	}
	return AckPending
}

// Next returns the next complete frame. ok is false when more bytes are
// needed. A non-nil error reports one rejected candidate; the decoder has
// already resynchronized and the caller may call Next again. ACK and NACK
// frames are skipped.
func (d *Decoder) Next() (f Frame, ok bool, err error) {
	for d.seek() {
		if len(d.buf) < 4 {
			return Frame{}, false, nil
		}
		if (d.buf[2] == 0x00 && d.buf[3] == 0xFF) || (d.buf[2] == 0xFF && d.buf[3] == 0x00) {
			d.consumeControl()
			continue
		}

		frameLen, _, lenErr := ValidateFrameLength(d.buf, 2)
		if lenErr != nil {
			d.consume(len(startCode))
			return Frame{}, false, lenErr
		}
		if frameLen == 0 {
			d.consume(len(startCode))
			return Frame{}, false, &FramingError{Reason: "zero length frame"}
		}

		// start code, LEN, LCS, body, DCS, postamble
		total := 4 + frameLen + 2
		if len(d.buf) < total {
			return Frame{}, false, nil
		}

		body := d.buf[4 : 4+frameLen]
		if ValidateFrameChecksum(d.buf, 4, 4+frameLen+1) {
			hdr := append([]byte(nil), d.buf[:4]...)
			d.consume(len(startCode))
			return Frame{}, false, &FramingError{Reason: "data checksum mismatch", Header: hdr}
		}
		tfi := body[0]
		if tfi != d.direction && tfi != ErrorFrameTFI {
			hdr := append([]byte(nil), d.buf[:4]...)
			d.consume(len(startCode))
			return Frame{}, false, &FramingError{Reason: "unexpected frame identifier", Header: hdr}
		}
		if d.buf[total-1] != Postamble {
			d.consume(len(startCode))
			return Frame{}, false, &FramingError{Reason: "missing postamble"}
		}

		f = Frame{Direction: tfi, Payload: append([]byte(nil), body[1:]...)}
		d.consume(total)
		return f, true, nil
	}
	return Frame{}, false, nil
}
