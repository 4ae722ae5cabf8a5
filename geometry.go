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

import "fmt"

// TagVariant identifies an NTAG21x memory layout.
type TagVariant int

const (
	NTAG215 TagVariant = iota + 1
	NTAG216
)

func (v TagVariant) String() string {
	switch v {
	case NTAG215:
		return "NTAG215"
	case NTAG216:
		return "NTAG216"
	default:
		return fmt.Sprintf("TagVariant(%d)", int(v))
	}
}

// Default read window used for content classification.
const (
	DefaultReadFirstPage = 4
	DefaultReadLastPage  = 20
)

// Geometry is the fixed memory layout of a tag variant. Page ranges are
// inclusive.
type Geometry struct {
	Variant       TagVariant
	FirstUserPage int
	LastUserPage  int
	UserBytes     int
	ConfigPage0   int
	ConfigPage1   int
	PasswordPage  int
	PackPage      int
	TotalPages    int
}

var geometries = map[TagVariant]Geometry{
	NTAG215: {
		Variant:       NTAG215,
		FirstUserPage: 4,
		LastUserPage:  129,
		UserBytes:     504,
		ConfigPage0:   0x83,
		ConfigPage1:   0x84,
		PasswordPage:  0x85,
		PackPage:      0x86,
		TotalPages:    135,
	},
	NTAG216: {
		Variant:       NTAG216,
		FirstUserPage: 4,
		LastUserPage:  225,
		UserBytes:     888,
		ConfigPage0:   0xE3,
		ConfigPage1:   0xE4,
		PasswordPage:  0xE5,
		PackPage:      0xE6,
		TotalPages:    231,
	},
}

// GeometryFor returns the layout of v.
func GeometryFor(v TagVariant) (Geometry, error) {
	g, ok := geometries[v]
	if !ok {
		return Geometry{}, fmt.Errorf("%w: unknown tag variant %d", ErrInvalidParameter, int(v))
	}
	return g, nil
}

// MustGeometry is GeometryFor for variants known at compile time.
func MustGeometry(v TagVariant) Geometry {
	g, err := GeometryFor(v)
	if err != nil {
		panic(err)
	}
	return g
}

// UserPages returns the number of writable user pages.
func (g Geometry) UserPages() int {
	return g.LastUserPage - g.FirstUserPage + 1
}

// IsUserPage reports whether page lies in the user area.
func (g Geometry) IsUserPage(page int) bool {
	return page >= g.FirstUserPage && page <= g.LastUserPage
}

// ReadWindow returns the default page range read for classification.
func (Geometry) ReadWindow() (first, last int) {
	return DefaultReadFirstPage, DefaultReadLastPage
}

// ParseTagVariant maps a name such as "ntag215" or "216" to a variant.
func ParseTagVariant(name string) (TagVariant, error) {
	switch name {
	case "NTAG215", "ntag215", "215":
		return NTAG215, nil
	case "NTAG216", "ntag216", "216":
		return NTAG216, nil
	default:
		return 0, fmt.Errorf("%w: unknown tag variant %q", ErrInvalidParameter, name)
	}
}
