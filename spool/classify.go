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

package spool

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/spooltag/go-pn532"
)

// Material guesses reported by Classify.
const (
	MaterialUnknown   = "Unknown"
	MaterialBambu     = "Bambu Official"
	MaterialPLA       = "PLA (Encrypted)"
	MaterialPETG      = "PETG (Encrypted)"
	MaterialEncrypted = "Encrypted Material"
)

const (
	firstClassifyPage = 4
	lastClassifyPage  = 19
	// more pages than this means the reader got past the password pages
	passwordPageHeuristic = 130
)

// markers are checked in order against the classification window.
var markers = []struct {
	needle   []byte
	material string
}{
	{[]byte("BAMB"), MaterialBambu},
	{[]byte("PLA"), MaterialPLA},
	{[]byte("PETG"), MaterialPETG},
}

// Content is the heuristic reading of a tag's pages. Nothing in it is
// verified: encrypted vendor tags are only recognised by layout and
// plaintext markers.
type Content struct {
	Spool           *Spool            `json:"spool,omitempty"`
	RawPages        map[string]string `json:"raw_pages"`
	Material        string            `json:"material"`
	Recognized      bool              `json:"is_bambu_tag"`
	LikelyEncrypted bool              `json:"is_encrypted"`
	HasPassword     bool              `json:"has_password"`
}

// Classify inspects pages keyed by page number. A record TLV marker on
// page 4 makes the layout recognised; the material is then guessed from
// case-insensitive markers in pages 4 to 19. A plaintext spool record, the
// kind Encode produces, is decoded and clears LikelyEncrypted.
func Classify(pages map[int][]byte) Content {
	c := Content{
		Material:        MaterialUnknown,
		LikelyEncrypted: true,
		RawPages:        RawPages(pages),
	}

	first := pages[firstClassifyPage]
	if len(first) == 0 || first[0] != pn532.TLVRecord {
		return c
	}
	c.Recognized = true
	c.HasPassword = len(pages) > passwordPageHeuristic

	var window []byte
	for page := firstClassifyPage; page <= lastClassifyPage; page++ {
		window = append(window, pages[page]...)
	}
	window = bytes.ToUpper(window)

	c.Material = MaterialEncrypted
	for _, m := range markers {
		if bytes.Contains(window, m.needle) {
			c.Material = m.material
			break
		}
	}

	if payload, err := pn532.ParseRecord(contiguous(pages, firstClassifyPage)); err == nil {
		c.ApplyRecord(payload)
	}
	return c
}

// ApplyRecord decodes a record TLV payload as a spool message. On success
// the spool replaces the guessed material and LikelyEncrypted is cleared.
func (c *Content) ApplyRecord(payload []byte) bool {
	s, err := Decode(payload)
	if err != nil {
		pn532.Debugf("record is not a spool message: %v", err)
		return false
	}
	c.Spool = s
	c.Material = s.Material
	c.LikelyEncrypted = false
	return true
}

// contiguous joins pages from first up to the first missing page.
func contiguous(pages map[int][]byte, first int) []byte {
	var out []byte
	for page := first; ; page++ {
		data, ok := pages[page]
		if !ok {
			return out
		}
		out = append(out, data...)
	}
}

// RawPages renders pages as upper-case hex keyed "Page_XX".
func RawPages(pages map[int][]byte) map[string]string {
	out := make(map[string]string, len(pages))
	for page, data := range pages {
		out[fmt.Sprintf("Page_%02X", page)] = strings.ToUpper(hex.EncodeToString(data))
	}
	return out
}
