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
	"fmt"
	"io"
	"os"
	"time"
)

// debugEnabled controls whether debug logging reaches the console.
var debugEnabled = false

// debugOutput is the console sink. Standard output carries command results
// in the CLI, so debug lines go to stderr.
var debugOutput io.Writer = os.Stderr

func init() {
	if os.Getenv("PN532_DEBUG") != "" || os.Getenv("DEBUG") != "" {
		debugEnabled = true
	}
}

func emitDebug(message string) {
	sessionLogMu.Lock()
	if sessionLogWriter != nil {
		timestamp := time.Now().Format("15:04:05.000")
		_, _ = fmt.Fprintf(sessionLogWriter, "%s DEBUG: %s\n", timestamp, message)
	}
	sessionLogMu.Unlock()

	if debugEnabled {
		_, _ = fmt.Fprintf(debugOutput, "DEBUG: %s\n", message)
	}
}

// Debugf prints debug information.
// Always writes to the session log file (if initialized) with a timestamp.
// Only prints to the console when debug mode is enabled.
func Debugf(format string, args ...any) {
	emitDebug(fmt.Sprintf(format, args...))
}

// Debugln is the fmt.Sprintln flavour of Debugf.
func Debugln(args ...any) {
	msg := fmt.Sprintln(args...)
	emitDebug(msg[:len(msg)-1])
}

// SetDebugEnabled allows programmatic control of debug logging
func SetDebugEnabled(enabled bool) {
	debugEnabled = enabled
}
