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

//nolint:paralleltest // Tests modify package-level session log state
package pn532

import (
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cleanupSessionLog(t *testing.T) {
	t.Helper()
	t.Cleanup(func() {
		_ = CloseSessionLog()
	})
}

func TestInitSessionLog_CreatesFile(t *testing.T) {
	cleanupSessionLog(t)
	dir := t.TempDir()

	path, err := InitSessionLog(dir)
	require.NoError(t, err)

	assert.Equal(t, dir, filepath.Dir(path))
	assert.Regexp(t, regexp.MustCompile(`^spooltag_\d{8}_\d{6}\.log$`), filepath.Base(path))
	assert.Equal(t, path, GetSessionLogPath())

	_, err = os.Stat(path)
	require.NoError(t, err)
}

func TestSessionLog_HeaderMessagesFooter(t *testing.T) {
	cleanupSessionLog(t)
	origEnabled := debugEnabled
	debugEnabled = false
	t.Cleanup(func() { debugEnabled = origEnabled })

	path, err := InitSessionLog(t.TempDir())
	require.NoError(t, err)

	Debugf("TX % X", []byte{0xD4, 0x4A, 0x01, 0x00})
	require.NoError(t, CloseSessionLog())

	content, err := os.ReadFile(path) //nolint:gosec // test reads its own temp file
	require.NoError(t, err)

	text := string(content)
	assert.Contains(t, text, "=== spooltag session log ===")
	assert.Contains(t, text, "Go Version:")
	assert.Contains(t, text, "DEBUG: TX D4 4A 01 00")
	assert.Contains(t, text, "=== Session ended ===")
	assert.Empty(t, GetSessionLogPath())
}

func TestCloseSessionLog_NoSession(t *testing.T) {
	require.NoError(t, CloseSessionLog())
	require.NoError(t, CloseSessionLog())
}

func TestInitSessionLog_InvalidDirectory(t *testing.T) {
	cleanupSessionLog(t)

	_, err := InitSessionLog(filepath.Join(t.TempDir(), "missing", "nested"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to create session log")
	assert.Empty(t, GetSessionLogPath())
}

func TestInitSessionLog_ReplacesPreviousSession(t *testing.T) {
	cleanupSessionLog(t)

	first, err := InitSessionLog(t.TempDir())
	require.NoError(t, err)
	second, err := InitSessionLog(t.TempDir())
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
	assert.Equal(t, second, GetSessionLogPath())
}
