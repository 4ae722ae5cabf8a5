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
	"encoding/binary"
	"fmt"
)

// TLV block types found in NTAG user memory
const (
	TLVNull       byte = 0x00
	TLVLockCtrl   byte = 0x01
	TLVMemoryCtrl byte = 0x02
	TLVRecord     byte = 0x03
	TLVPropriety  byte = 0xFD
	TLVTerminator byte = 0xFE

	tlvLongLength byte = 0xFF
	// payloads up to this size use the 1-byte length form
	shortLengthLimit = 0xFF
	// MaxRecordPayload is the largest payload the 2-byte length form holds.
	MaxRecordPayload = 0xFFFF
)

// EncodeRecord wraps payload in a record TLV followed by a terminator and
// pads the result with zeros to a whole number of pages. Payloads of up to
// 255 bytes get a 1-byte length, longer ones 0xFF and a big-endian uint16.
// Payloads over MaxRecordPayload are refused with ErrDataTooLarge.
func EncodeRecord(payload []byte) ([]byte, error) {
	if len(payload) > MaxRecordPayload {
		return nil, fmt.Errorf("%w: record payload is %d bytes, limit %d",
			ErrDataTooLarge, len(payload), MaxRecordPayload)
	}

	out := make([]byte, 0, len(payload)+8)
	out = append(out, TLVRecord)
	if len(payload) <= shortLengthLimit {
		out = append(out, byte(len(payload)))
	} else {
		out = append(out, tlvLongLength)
		out = binary.BigEndian.AppendUint16(out, uint16(len(payload)))
	}
	out = append(out, payload...)
	out = append(out, TLVTerminator)

	for len(out)%PageSize != 0 {
		out = append(out, 0x00)
	}
	return out, nil
}

// ParseRecord returns the payload of the first record TLV in data. NULL
// TLVs and other TLV blocks before it are skipped.
//
// A length byte of 0xFF is either a 255-byte short form or the long-form
// escape. It is read as the long form only when the following uint16 is
// above 255, fits in data, and is not contradicted by the terminators: a
// 255-byte record is followed by 0xFE at its end.
func ParseRecord(data []byte) ([]byte, error) {
	payload, _, err := parseRecord(data, len(data))
	return payload, err
}

// parseRecord scans data, a prefix of limit bytes of user memory. complete
// reports whether reading the rest of the memory could change the result.
func parseRecord(data []byte, limit int) (payload []byte, complete bool, err error) {
	limit = max(limit, len(data))
	partial := func(reason string) ([]byte, bool, error) {
		return nil, len(data) >= limit, fmt.Errorf("%w: %s", ErrInvalidFormat, reason)
	}

	i := 0
	for i < len(data) {
		tlvType := data[i]
		i++

		switch tlvType {
		case TLVNull:
			continue
		case TLVTerminator:
			return nil, true, fmt.Errorf("%w: terminator before record", ErrInvalidFormat)
		}

		length, hdr, ok := tlvLength(data[i:], limit-i)
		if !ok {
			return partial("truncated TLV length")
		}
		i += hdr
		if i+length > len(data) {
			return partial(fmt.Sprintf("TLV 0x%02X length %d overruns %d bytes", tlvType, length, len(data)))
		}

		if tlvType == TLVRecord {
			out := make([]byte, length)
			copy(out, data[i:i+length])
			return out, true, nil
		}
		i += length
	}
	return partial("no record TLV")
}

// tlvLength decodes the length field at the start of b. room is how many
// bytes from b[0] memory can hold. ok is false when b is too short to tell.
func tlvLength(b []byte, room int) (length, hdr int, ok bool) {
	if len(b) == 0 {
		return 0, 0, false
	}
	if b[0] != tlvLongLength {
		return int(b[0]), 1, true
	}
	if len(b) < 3 {
		if room < 3 {
			return shortLengthLimit, 1, true
		}
		return 0, 0, false
	}

	long := int(binary.BigEndian.Uint16(b[1:3]))
	longEnd, shortEnd := 3+long, 1+shortLengthLimit
	switch {
	case long <= shortLengthLimit, longEnd > room:
		return shortLengthLimit, 1, true
	case longEnd == room:
		return long, 3, true
	case longEnd >= len(b):
		return 0, 0, false
	case b[longEnd] != TLVTerminator && b[shortEnd] == TLVTerminator:
		return shortLengthLimit, 1, true
	default:
		return long, 3, true
	}
}

// WriteRecord writes an encoded record page by page from the first user
// page. It stops at the first failing page and does not restore pages that
// were already written.
func (d *Device) WriteRecord(ctx context.Context, target Target, geom Geometry, record []byte, progress ProgressFunc) error {
	if len(record) == 0 || len(record)%PageSize != 0 {
		return fmt.Errorf("%w: record length %d is not a positive multiple of %d",
			ErrInvalidParameter, len(record), PageSize)
	}
	if len(record) > geom.UserBytes {
		return fmt.Errorf("%w: record is %d bytes, %s holds %d",
			ErrDataTooLarge, len(record), geom.Variant, geom.UserBytes)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	total := len(record) / PageSize
	for i := range total {
		page := geom.FirstUserPage + i
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("write record: %d of %d pages written: %w", i, total, err)
		}
		if err := d.writePage(ctx, target, page, record[i*PageSize:(i+1)*PageSize]); err != nil {
			return fmt.Errorf("write record: %d of %d pages written: %w", i, total, err)
		}
		progress.report(i+1, total)
	}
	return nil
}

// EraseUserMemory zeroes every user page. A failure leaves the memory
// partially erased.
func (d *Device) EraseUserMemory(ctx context.Context, target Target, geom Geometry, progress ProgressFunc) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	zero := make([]byte, PageSize)
	total := geom.UserPages()
	for i := range total {
		page := geom.FirstUserPage + i
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("erase: %d of %d pages erased: %w", i, total, err)
		}
		if err := d.writePage(ctx, target, page, zero); err != nil {
			return fmt.Errorf("erase: %d of %d pages erased: %w", i, total, err)
		}
		progress.report(i+1, total)
	}
	return nil
}

// ReadUserMemory reads the whole user area of geom.
func (d *Device) ReadUserMemory(ctx context.Context, target Target, geom Geometry, progress ProgressFunc) (map[int][]byte, error) {
	return d.ReadPages(ctx, target, geom.FirstUserPage, geom.LastUserPage, progress)
}

// ReadRecord reads user memory until the record TLV is complete and returns
// its payload.
func (d *Device) ReadRecord(ctx context.Context, target Target, geom Geometry) ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	var buf []byte
	for page := geom.FirstUserPage; page <= geom.LastUserPage; page += PagesPerBlock {
		block, offset := pageBlock(page)
		data, err := d.readBlock(ctx, target, block)
		if err != nil {
			return nil, fmt.Errorf("read record: %w", err)
		}
		buf = append(buf, data[offset:]...)
		buf = buf[:min(len(buf), geom.UserBytes)]

		if payload, complete, err := parseRecord(buf, geom.UserBytes); err == nil || complete {
			return payload, err
		}
	}
	return ParseRecord(buf)
}
