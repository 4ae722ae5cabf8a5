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
	"fmt"
)

const maxPageAddress = 0xFF

// ProgressFunc receives the number of completed steps out of total.
type ProgressFunc func(done, total int)

func (p ProgressFunc) report(done, total int) {
	if p != nil {
		p(done, total)
	}
}

func pageBlock(page int) (block byte, offset int) {
	return byte(page / PagesPerBlock), (page % PagesPerBlock) * PageSize
}

func checkPageAddress(page int) error {
	if page < 0 || page > maxPageAddress {
		return fmt.Errorf("%w: page %d out of range", ErrInvalidParameter, page)
	}
	return nil
}

// ReadPage returns the 4 bytes of page, read through the block that holds it.
func (d *Device) ReadPage(ctx context.Context, target Target, page int) ([]byte, error) {
	if err := checkPageAddress(page); err != nil {
		return nil, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	return d.readPage(ctx, target, page)
}

func (d *Device) readPage(ctx context.Context, target Target, page int) ([]byte, error) {
	block, offset := pageBlock(page)
	data, err := d.readBlock(ctx, target, block)
	if err != nil {
		return nil, fmt.Errorf("read page %d: %w", page, err)
	}
	return append([]byte(nil), data[offset:offset+PageSize]...), nil
}

// WritePage replaces the 4 bytes of page by reading the containing block,
// patching it and writing it back. Pages below the user area are refused
// without touching the device.
func (d *Device) WritePage(ctx context.Context, target Target, geom Geometry, page int, data []byte) error {
	if err := checkPageWrite(geom, page, data); err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	return d.writePage(ctx, target, page, data)
}

func checkPageWrite(geom Geometry, page int, data []byte) error {
	if len(data) != PageSize {
		return fmt.Errorf("%w: page data must be %d bytes, got %d", ErrInvalidParameter, PageSize, len(data))
	}
	if page < geom.FirstUserPage {
		return fmt.Errorf("write page %d: %w", page, ErrPageProtected)
	}
	if page > geom.LastUserPage {
		return fmt.Errorf("%w: page %d is past the %s user area", ErrInvalidParameter, page, geom.Variant)
	}
	return nil
}

func (d *Device) writePage(ctx context.Context, target Target, page int, data []byte) error {
	block, offset := pageBlock(page)

	current, err := d.readBlock(ctx, target, block)
	if err != nil {
		return fmt.Errorf("write page %d: %w", page, err)
	}

	patched := append([]byte(nil), current...)
	copy(patched[offset:offset+PageSize], data)

	if err := d.writeBlock(ctx, target, block, patched); err != nil {
		return fmt.Errorf("write page %d: %w", page, err)
	}
	return nil
}

// ReadPages reads pages first..last inclusive, fetching each block once.
// Pages whose block cannot be read are left out of the result; an error is
// returned only when no page could be read or ctx ends.
func (d *Device) ReadPages(ctx context.Context, target Target, first, last int, progress ProgressFunc) (map[int][]byte, error) {
	if err := checkPageAddress(first); err != nil {
		return nil, err
	}
	if err := checkPageAddress(last); err != nil {
		return nil, err
	}
	if first > last {
		return nil, fmt.Errorf("%w: page range %d..%d", ErrInvalidParameter, first, last)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	total := last - first + 1
	pages := make(map[int][]byte, total)
	blocks := make(map[byte][]byte)
	failed := make(map[byte]bool)
	var lastErr error

	for page := first; page <= last; page++ {
		if err := ctx.Err(); err != nil {
			return pages, fmt.Errorf("read pages: %w", err)
		}

		block, offset := pageBlock(page)
		data, cached := blocks[block]
		if !cached && !failed[block] {
			var err error
			data, err = d.readBlock(ctx, target, block)
			if err != nil {
				Debugf("page %d unreadable: %v", page, err)
				failed[block] = true
				lastErr = err
			} else {
				blocks[block] = data
			}
		}
		if !failed[block] {
			pages[page] = append([]byte(nil), data[offset:offset+PageSize]...)
		}
		progress.report(page-first+1, total)
	}

	if len(pages) == 0 {
		return nil, fmt.Errorf("read pages %d..%d: %w: %w", first, last, ErrNoPagesRead, lastErr)
	}
	return pages, nil
}
