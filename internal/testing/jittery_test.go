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

package testing

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spooltag/go-pn532/internal/frame"
)

func drain(t *testing.T, conn *JitteryConnection, want int) []byte {
	t.Helper()

	var out []byte
	buf := make([]byte, 64)
	for range 10_000 {
		if len(out) >= want {
			break
		}
		n, err := conn.Read(buf)
		require.NoError(t, err)
		out = append(out, buf[:n]...)
	}
	return out
}

func TestJitteryConnection_DeliversEverything(t *testing.T) {
	t.Parallel()

	sim := NewVirtualPN532()
	conn := NewJitteryConnection(sim, JitterConfig{MaxChunk: 3, Seed: 12345})

	cmd := frame.Encode(frame.HostToPn532, []byte{0x02})
	n, err := conn.Write(cmd)
	require.NoError(t, err)
	require.Equal(t, len(cmd), n)

	want := append([]byte(nil), ACKFrame...)
	want = append(want, frame.Encode(frame.Pn532ToHost, []byte{0x03, 0x32, 0x01, 0x06, 0x07})...)

	got := drain(t, conn, len(want))
	assert.Equal(t, want, got)
	assert.Zero(t, conn.Buffered())
}

func TestJitteryConnection_ChunkSizes(t *testing.T) {
	t.Parallel()

	backend := &bytes.Buffer{}
	backend.Write(bytes.Repeat([]byte{0x42}, 200))
	conn := NewJitteryConnection(backend, JitterConfig{MaxChunk: 5, Seed: 7})

	buf := make([]byte, 64)
	total := 0
	for total < 200 {
		n, err := conn.Read(buf)
		require.NoError(t, err)
		require.GreaterOrEqual(t, n, 1)
		require.LessOrEqual(t, n, 5)
		total += n
	}
	assert.Equal(t, 200, total)
}

func TestJitteryConnection_EmptyReads(t *testing.T) {
	t.Parallel()

	backend := bytes.NewBuffer([]byte{0x01, 0x02})
	conn := NewJitteryConnection(backend, JitterConfig{EmptyReads: true, Seed: 1})

	buf := make([]byte, 8)
	n, err := conn.Read(buf)
	require.NoError(t, err)
	assert.Zero(t, n)

	n, err = conn.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x01, 0x02}, buf[:n])
}

func TestDefaultJitterConfig(t *testing.T) {
	t.Parallel()

	cfg := DefaultJitterConfig()
	assert.Equal(t, 3, cfg.MaxChunk)
	assert.Zero(t, cfg.MaxLatency)
}
