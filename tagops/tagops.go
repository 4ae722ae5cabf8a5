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

// Package tagops runs complete tag sequences on top of a pn532.Device:
// read and classify, write a spool record, and format. Each sequence
// reports progress as a percentage with a status line.
package tagops

import (
	"context"
	"fmt"
	"time"

	"github.com/spooltag/go-pn532"
)

// DefaultDetectTimeout is how long a sequence waits for a tag.
const DefaultDetectTimeout = 5 * time.Second

// Progress receives percent complete (0-100) and a short status line.
type Progress func(percent int, status string)

// Option configures TagOperations.
type Option func(*TagOperations)

// WithProgress installs a progress callback.
func WithProgress(p Progress) Option {
	return func(t *TagOperations) {
		t.progress = p
	}
}

// WithDetectTimeout sets how long to wait for a tag.
func WithDetectTimeout(d time.Duration) Option {
	return func(t *TagOperations) {
		if d > 0 {
			t.detectTimeout = d
		}
	}
}

// WithVariant fixes the tag variant instead of detecting it from the
// capability container.
func WithVariant(v pn532.TagVariant) Option {
	return func(t *TagOperations) {
		t.variant = v
	}
}

// TagOperations provides the high-level tag sequences.
type TagOperations struct {
	device        *pn532.Device
	target        *pn532.Target
	progress      Progress
	now           func() time.Time
	geom          pn532.Geometry
	detectTimeout time.Duration
	variant       pn532.TagVariant
}

// New creates a new TagOperations instance
func New(device *pn532.Device, opts ...Option) *TagOperations {
	t := &TagOperations{
		device:        device,
		detectTimeout: DefaultDetectTimeout,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *TagOperations) report(percent int, format string, args ...any) {
	if t.progress != nil {
		t.progress(percent, fmt.Sprintf(format, args...))
	}
}

// scaled maps page progress onto the percent range [from, to].
func (t *TagOperations) scaled(from, to int, status string) pn532.ProgressFunc {
	return func(done, total int) {
		if total > 0 {
			t.report(from+(to-from)*done/total, "%s %d/%d", status, done, total)
		}
	}
}

// DetectTag waits for a tag and works out its variant. It must succeed
// before pages can be read or written.
func (t *TagOperations) DetectTag(ctx context.Context) error {
	target, err := t.device.PollTarget(ctx, pn532.BaudISO14443A106, t.detectTimeout)
	if err != nil {
		return fmt.Errorf("failed to detect tag: %w", err)
	}

	variant := t.variant
	if variant == 0 {
		variant, err = DetectVariant(ctx, t.device, *target)
		if err != nil {
			return err
		}
	}
	geom, err := pn532.GeometryFor(variant)
	if err != nil {
		return err
	}

	t.target = target
	t.geom = geom
	pn532.Debugf("tag %s detected as %s", target.UIDHex(), variant)
	return nil
}

// Target returns the tag found by the last DetectTag, or nil.
func (t *TagOperations) Target() *pn532.Target {
	return t.target
}

// Geometry returns the layout of the detected tag.
func (t *TagOperations) Geometry() pn532.Geometry {
	return t.geom
}

// ReaderInfo describes the attached PN532.
type ReaderInfo struct {
	Firmware *pn532.FirmwareVersion `json:"firmware"`
	Status   *pn532.GeneralStatus   `json:"status"`
}

// Info reports the firmware version and general status of the reader.
func (t *TagOperations) Info(ctx context.Context) (*ReaderInfo, error) {
	fw, err := t.device.FirmwareVersion(ctx)
	if err != nil {
		return nil, fmt.Errorf("get firmware version: %w", err)
	}
	status, err := t.device.GetGeneralStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("get general status: %w", err)
	}
	return &ReaderInfo{Firmware: fw, Status: status}, nil
}
