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

package tagops

import (
	"context"
	"errors"
	"fmt"

	"github.com/spooltag/go-pn532"
)

// ErrUnsupportedTag indicates the tag is not an NTAG215 or NTAG216.
var ErrUnsupportedTag = errors.New("unsupported tag type")

const (
	capabilityPage  = 3
	ccMagic         = 0xE1
	ccSizeNTAG213   = 0x12
	ccSizeNTAG215   = 0x3E
	ccSizeNTAG216   = 0x6D
	unknownTypeName = "Unknown"
)

// VariantFromCC maps a capability container page to a tag variant. Byte 2
// is the data area size in units of 8 bytes.
func VariantFromCC(cc []byte) (pn532.TagVariant, error) {
	if len(cc) < 4 || cc[0] != ccMagic {
		return 0, fmt.Errorf("%w: no capability container (% X)", ErrUnsupportedTag, cc)
	}
	switch cc[2] {
	case ccSizeNTAG215:
		return pn532.NTAG215, nil
	case ccSizeNTAG216:
		return pn532.NTAG216, nil
	case ccSizeNTAG213:
		return 0, fmt.Errorf("%w: NTAG213", ErrUnsupportedTag)
	default:
		return 0, fmt.Errorf("%w: data area size 0x%02X", ErrUnsupportedTag, cc[2])
	}
}

// DetectVariant reads the capability container of target.
func DetectVariant(ctx context.Context, device *pn532.Device, target pn532.Target) (pn532.TagVariant, error) {
	cc, err := device.ReadPage(ctx, target, capabilityPage)
	if err != nil {
		return 0, fmt.Errorf("read capability container: %w", err)
	}
	return VariantFromCC(cc)
}

// TagInfo describes the detected tag.
type TagInfo struct {
	UID        string `json:"uid"`
	TypeName   string `json:"tag_type"`
	TotalPages int    `json:"total_pages"`
	UserMemory int    `json:"user_memory"`
}

// GetTagInfo returns information about the tag found by DetectTag.
func (t *TagOperations) GetTagInfo() (*TagInfo, error) {
	if t.target == nil {
		return nil, pn532.ErrNoTagDetected
	}
	return &TagInfo{
		UID:        t.target.UIDHex(),
		TypeName:   TypeName(t.geom.Variant),
		TotalPages: t.geom.TotalPages,
		UserMemory: t.geom.UserBytes,
	}, nil
}

// TypeName returns a display name for a variant.
func TypeName(v pn532.TagVariant) string {
	switch v {
	case pn532.NTAG215, pn532.NTAG216:
		return v.String()
	default:
		return unknownTypeName
	}
}

