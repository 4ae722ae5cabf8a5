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
	"errors"
	"fmt"
	"strings"
	"time"
)

// TraceDirection indicates the direction of wire data
type TraceDirection string

const (
	// TraceTX indicates data sent to the PN532
	TraceTX TraceDirection = "TX"
	// TraceRX indicates data received from the PN532
	TraceRX TraceDirection = "RX"
)

const maxTraceHexBytes = 32

// TraceEntry is one wire event recorded while a command was in flight.
type TraceEntry struct {
	Timestamp time.Time
	Direction TraceDirection
	Note      string
	Data      []byte
}

func (e TraceEntry) String() string {
	line := fmt.Sprintf("[%s] %s: %s", e.Timestamp.Format("15:04:05.000"), e.Direction, hexDump(e.Data))
	if e.Note != "" {
		line += " (" + e.Note + ")"
	}
	return line
}

// TraceableError carries the wire events of the command that failed.
//
//	var te *pn532.TraceableError
//	if errors.As(err, &te) {
//	    log.Printf("Wire trace:\n%s", te.FormatTrace())
//	}
type TraceableError struct {
	Err   error
	Port  string
	Trace []TraceEntry
}

func (e *TraceableError) Error() string {
	return e.Err.Error()
}

func (e *TraceableError) Unwrap() error {
	return e.Err
}

// FormatTrace renders the trace one event per line, oldest first.
func (e *TraceableError) FormatTrace() string {
	if len(e.Trace) == 0 {
		return fmt.Sprintf("[%s] (no trace data)", e.Port)
	}

	var sb strings.Builder
	_, _ = fmt.Fprintf(&sb, "[%s] wire trace (%d entries):\n", e.Port, len(e.Trace))
	for _, entry := range e.Trace {
		arrow := ">"
		if entry.Direction == TraceRX {
			arrow = "<"
		}
		_, _ = fmt.Fprintf(&sb, "  %s %s", arrow, hexDump(entry.Data))
		if entry.Note != "" {
			_, _ = fmt.Fprintf(&sb, " (%s)", entry.Note)
		}
		_ = sb.WriteByte('\n')
	}
	return sb.String()
}

func hexDump(data []byte) string {
	switch {
	case len(data) == 0:
		return "(empty)"
	case len(data) > maxTraceHexBytes:
		return fmt.Sprintf("% X ... (%d bytes total)", data[:maxTraceHexBytes], len(data))
	default:
		return fmt.Sprintf("% X", data)
	}
}

// TraceBuffer keeps the most recent wire events of a single command. It is
// owned by one dispatcher and is not safe for concurrent use.
type TraceBuffer struct {
	port    string
	entries []TraceEntry
	maxSize int
}

// NewTraceBuffer creates a trace buffer holding at most maxSize events.
func NewTraceBuffer(port string, maxSize int) *TraceBuffer {
	if maxSize <= 0 {
		maxSize = 16
	}
	return &TraceBuffer{
		port:    port,
		entries: make([]TraceEntry, 0, maxSize),
		maxSize: maxSize,
	}
}

// RecordTX records a frame written to the PN532.
func (tb *TraceBuffer) RecordTX(data []byte, note string) {
	tb.record(TraceTX, data, note)
}

// RecordRX records bytes received from the PN532.
func (tb *TraceBuffer) RecordRX(data []byte, note string) {
	tb.record(TraceRX, data, note)
}

// RecordTimeout records an expired wait.
func (tb *TraceBuffer) RecordTimeout(note string) {
	tb.record(TraceRX, nil, "TIMEOUT: "+note)
}

func (tb *TraceBuffer) record(dir TraceDirection, data []byte, note string) {
	entry := TraceEntry{
		Timestamp: time.Now(),
		Direction: dir,
		Note:      note,
		Data:      append([]byte(nil), data...),
	}
	if len(tb.entries) == tb.maxSize {
		tb.entries = append(tb.entries[:0], tb.entries[1:]...)
	}
	tb.entries = append(tb.entries, entry)
}

// WrapError attaches a copy of the recorded events to err. It returns nil
// for a nil err.
func (tb *TraceBuffer) WrapError(err error) error {
	if err == nil {
		return nil
	}
	return &TraceableError{
		Err:   err,
		Port:  tb.port,
		Trace: append([]TraceEntry(nil), tb.entries...),
	}
}

// Clear drops all recorded events.
func (tb *TraceBuffer) Clear() {
	tb.entries = tb.entries[:0]
}

// GetTrace extracts trace data from an error, returning nil if not present
func GetTrace(err error) *TraceableError {
	var te *TraceableError
	if errors.As(err, &te) {
		return te
	}
	return nil
}
