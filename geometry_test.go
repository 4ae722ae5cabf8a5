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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGeometryFor(t *testing.T) {
	t.Parallel()

	tests := []struct {
		want    Geometry
		variant TagVariant
	}{
		{
			variant: NTAG215,
			want: Geometry{
				Variant: NTAG215, FirstUserPage: 4, LastUserPage: 129, UserBytes: 504,
				ConfigPage0: 0x83, ConfigPage1: 0x84, PasswordPage: 0x85, PackPage: 0x86, TotalPages: 135,
			},
		},
		{
			variant: NTAG216,
			want: Geometry{
				Variant: NTAG216, FirstUserPage: 4, LastUserPage: 225, UserBytes: 888,
				ConfigPage0: 0xE3, ConfigPage1: 0xE4, PasswordPage: 0xE5, PackPage: 0xE6, TotalPages: 231,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.variant.String(), func(t *testing.T) {
			t.Parallel()

			got, err := GeometryFor(tt.variant)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, got.UserBytes, got.UserPages()*PageSize)
			assert.Less(t, got.LastUserPage, got.ConfigPage0)
		})
	}
}

func TestGeometryFor_Unknown(t *testing.T) {
	t.Parallel()

	_, err := GeometryFor(TagVariant(42))
	require.ErrorIs(t, err, ErrInvalidParameter)
	assert.Panics(t, func() { MustGeometry(TagVariant(0)) })
	assert.Equal(t, "TagVariant(42)", TagVariant(42).String())
}

func TestGeometry_IsUserPage(t *testing.T) {
	t.Parallel()

	g := MustGeometry(NTAG215)
	assert.False(t, g.IsUserPage(3))
	assert.True(t, g.IsUserPage(4))
	assert.True(t, g.IsUserPage(129))
	assert.False(t, g.IsUserPage(130))

	first, last := g.ReadWindow()
	assert.Equal(t, 4, first)
	assert.Equal(t, 20, last)
}

func TestParseTagVariant(t *testing.T) {
	t.Parallel()

	for _, name := range []string{"NTAG215", "ntag215", "215"} {
		v, err := ParseTagVariant(name)
		require.NoError(t, err)
		assert.Equal(t, NTAG215, v)
	}
	for _, name := range []string{"NTAG216", "ntag216", "216"} {
		v, err := ParseTagVariant(name)
		require.NoError(t, err)
		assert.Equal(t, NTAG216, v)
	}

	_, err := ParseTagVariant("ntag213")
	require.ErrorIs(t, err, ErrInvalidParameter)
}
