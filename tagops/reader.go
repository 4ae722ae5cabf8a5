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
	"time"

	"github.com/spooltag/go-pn532"
	"github.com/spooltag/go-pn532/spool"
)

// TagRecord is the result of a read sequence.
type TagRecord struct {
	Timestamp time.Time `json:"timestamp"`
	UID       string    `json:"uid"`
	TagType   string    `json:"tag_type"`
	spool.Content
}

// Read configures the SAM, waits for a tag, reads the default page window
// and classifies it. When the window holds the start of a record that
// runs past it, the whole record is read so a spool written by Write is
// decoded.
func (t *TagOperations) Read(ctx context.Context) (*TagRecord, error) {
	t.report(0, "Initializing")
	if err := t.device.SAMConfiguration(ctx, pn532.SAMModeNormal, pn532.DefaultSAMTimeout, false); err != nil {
		return nil, fmt.Errorf("SAM configuration failed: %w", err)
	}

	t.report(20, "Waiting for tag")
	if err := t.DetectTag(ctx); err != nil {
		return nil, err
	}
	target := *t.target
	t.report(40, "Tag detected: %s", target.UIDHex())

	first, last := t.geom.ReadWindow()
	pages, err := t.device.ReadPages(ctx, target, first, last, t.scaled(40, 80, "Reading page"))
	if err != nil {
		return nil, fmt.Errorf("read pages %d-%d: %w", first, last, err)
	}

	t.report(90, "Classifying")
	content := spool.Classify(pages)
	if content.Recognized && content.Spool == nil {
		if payload, err := t.device.ReadRecord(ctx, target, t.geom); err == nil {
			content.ApplyRecord(payload)
		} else {
			pn532.Debugf("full record read failed: %v", err)
		}
	}

	t.report(100, "Read complete")
	return &TagRecord{
		Timestamp: t.now(),
		UID:       target.UIDHex(),
		TagType:   TypeName(t.geom.Variant),
		Content:   content,
	}, nil
}
