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
	"io"
	"math/rand/v2"
	"time"
)

// JitterConfig configures the behavior of JitteryConnection.
type JitterConfig struct {
	// MaxLatency is the upper bound of the random delay before each read.
	MaxLatency time.Duration
	// MaxChunk caps the bytes returned by one read. Zero means no cap.
	MaxChunk int
	// Seed makes fragmentation reproducible. Zero picks a random seed.
	Seed uint64
	// EmptyReads inserts a (0, nil) read before every data read, like a
	// serial port whose read timeout expired.
	EmptyReads bool
}

// DefaultJitterConfig returns reads of 1 to 3 bytes with no latency.
func DefaultJitterConfig() JitterConfig {
	return JitterConfig{MaxChunk: 3}
}

// JitteryConnection wraps an io.ReadWriter so that received data arrives
// in small random pieces, the way USB-UART bridges (FTDI, CH340) deliver
// it. Writes pass through untouched.
type JitteryConnection struct {
	backend  io.ReadWriter
	rng      *rand.Rand
	pending  []byte
	config   JitterConfig
	readSeen bool
}

// NewJitteryConnection wraps backend.
func NewJitteryConnection(backend io.ReadWriter, config JitterConfig) *JitteryConnection {
	seed := config.Seed
	if seed == 0 {
		seed = rand.Uint64() //nolint:gosec // Test code, not crypto
	}
	return &JitteryConnection{
		backend: backend,
		config:  config,
		rng:     rand.New(rand.NewPCG(seed, seed^0xDEADBEEF)), //nolint:gosec // Test code, not crypto
	}
}

// Write passes writes through to the backend without modification.
func (j *JitteryConnection) Write(data []byte) (int, error) {
	return j.backend.Write(data) //nolint:wrapcheck // Pass-through wrapper
}

// Read returns a random-length prefix of what the backend has produced.
func (j *JitteryConnection) Read(buf []byte) (int, error) {
	if j.config.MaxLatency > 0 {
		time.Sleep(time.Duration(j.rng.Int64N(int64(j.config.MaxLatency) + 1)))
	}

	if len(j.pending) == 0 {
		tmp := make([]byte, 256)
		n, err := j.backend.Read(tmp)
		if err != nil {
			return 0, err //nolint:wrapcheck // Pass-through wrapper
		}
		j.pending = append(j.pending, tmp[:n]...)
	}
	if len(j.pending) == 0 {
		return 0, nil
	}

	if j.config.EmptyReads {
		j.readSeen = !j.readSeen
		if j.readSeen {
			return 0, nil
		}
	}

	n := min(len(buf), len(j.pending))
	if j.config.MaxChunk > 0 && n > 1 {
		n = 1 + j.rng.IntN(min(n, j.config.MaxChunk))
	}
	copy(buf, j.pending[:n])
	j.pending = j.pending[n:]
	return n, nil
}

// Buffered returns how many bytes have been taken from the backend but
// not yet returned.
func (j *JitteryConnection) Buffered() int {
	return len(j.pending)
}
