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
	"fmt"

	"github.com/spooltag/go-pn532"
	"github.com/spooltag/go-pn532/spool"
)

// Write stores s on the next tag presented as a JSON media record. The
// spool is validated and sized before the reader is touched. Pages already
// written stay written when a later page fails.
func (t *TagOperations) Write(ctx context.Context, s spool.Spool) error {
	msg, err := spool.Encode(s)
	if err != nil {
		return err
	}
	record, err := pn532.EncodeRecord(msg)
	if err != nil {
		return err
	}
	if t.variant != 0 {
		geom, err := pn532.GeometryFor(t.variant)
		if err != nil {
			return err
		}
		if len(record) > geom.UserBytes {
			return fmt.Errorf("%w: record is %d bytes, %s holds %d",
				pn532.ErrDataTooLarge, len(record), geom.Variant, geom.UserBytes)
		}
	}

	t.report(0, "Waiting for tag")
	if err := t.DetectTag(ctx); err != nil {
		return err
	}
	t.report(30, "Writing %d bytes", len(record))

	if err := t.device.WriteRecord(ctx, *t.target, t.geom, record, t.scaled(30, 100, "Writing page")); err != nil {
		return fmt.Errorf("write spool to %s: %w", t.target.UIDHex(), err)
	}
	t.report(100, "Write complete")
	return nil
}

// Format zeroes the whole user area of the next tag presented.
func (t *TagOperations) Format(ctx context.Context) error {
	t.report(0, "Waiting for tag")
	if err := t.DetectTag(ctx); err != nil {
		return err
	}

	t.report(10, "Erasing %d pages", t.geom.UserPages())
	if err := t.device.EraseUserMemory(ctx, *t.target, t.geom, t.scaled(10, 100, "Erasing page")); err != nil {
		return fmt.Errorf("format %s: %w", t.target.UIDHex(), err)
	}
	t.report(100, "Format complete")
	return nil
}
