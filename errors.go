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
	"io"
	"runtime"
	"syscall"
)

// Error categories for better error handling
var (
	// Transport errors
	ErrAckTimeout      = errors.New("no ACK received")
	ErrResponseTimeout = errors.New("no response received")
	ErrTransportWrite  = errors.New("transport write failed")
	ErrTransportRead   = errors.New("transport read failed")
	ErrTransportClosed = errors.New("transport is closed")

	// Device errors
	ErrInvalidResponse = errors.New("invalid response format")
	ErrOpcodeMismatch  = errors.New("response opcode does not match command")

	// Tag errors
	ErrNoTagDetected  = errors.New("no tag detected")
	ErrTagReadFailed  = errors.New("tag read failed")
	ErrTagWriteFailed = errors.New("tag write failed")
	ErrNoPagesRead    = errors.New("no pages could be read")

	// Usage errors are raised before any I/O takes place
	ErrInvalidParameter = errors.New("invalid parameter")
	ErrPageProtected    = fmt.Errorf("%w: page is below the user area", ErrInvalidParameter)
	ErrDataTooLarge     = fmt.Errorf("%w: data too large", ErrInvalidParameter)

	// Data errors
	ErrInvalidFormat = errors.New("invalid data format")
)

// ErrorType represents the category of error for retry logic
type ErrorType int

const (
	// ErrorTypeTransient indicates a potentially retryable error
	ErrorTypeTransient ErrorType = iota
	// ErrorTypePermanent indicates a non-retryable error
	ErrorTypePermanent
	// ErrorTypeTimeout indicates a timeout error
	ErrorTypeTimeout
)

// TransportError wraps transport-level errors with additional context
type TransportError struct {
	Err       error     // Underlying error
	Op        string    // Operation that failed
	Port      string    // Port or device identifier
	Type      ErrorType // Error category
	Retryable bool      // Whether the caller may reasonably try again
}

func (e *TransportError) Error() string {
	if e.Port != "" {
		return fmt.Sprintf("%s %s: %v", e.Op, e.Port, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// DeviceError is returned when the PN532 answers with an error marker
// (0x7F) instead of the expected response. Raw holds the response bytes
// exactly as received.
type DeviceError struct {
	Raw     []byte
	Command byte
}

// Code returns the error code that follows the 0x7F marker, or 0 when the
// device sent the bare marker.
func (e *DeviceError) Code() byte {
	if len(e.Raw) > 1 {
		return e.Raw[1]
	}
	return 0
}

func (e *DeviceError) Error() string {
	if len(e.Raw) > 1 {
		return fmt.Sprintf("command 0x%02X: device error 0x%02X (%s)",
			e.Command, e.Code(), pn532ErrorCodeMeaning(e.Code()))
	}
	return fmt.Sprintf("command 0x%02X: device error (raw % X)", e.Command, e.Raw)
}

// StatusError reports a non-zero status byte returned by InDataExchange.
// It wraps the operation-level error (ErrTagReadFailed, ErrTagWriteFailed).
type StatusError struct {
	Err    error
	Op     string
	Status byte
}

// Code returns the PN532 error code carried in the status byte.
func (e *StatusError) Code() byte {
	return e.Status & 0x3F
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: %v: status 0x%02X (%s)",
		e.Op, e.Err, e.Status, pn532ErrorCodeMeaning(e.Code()))
}

func (e *StatusError) Unwrap() error {
	return e.Err
}

// IsAuthenticationError returns true if the status reports a failed
// MIFARE authentication.
func (e *StatusError) IsAuthenticationError() bool {
	return e.Code() == 0x14
}

// pn532ErrorCodeMeaning returns a human-readable meaning for PN532 error codes
// Error codes are from the PN532 User Manual section 7.1
func pn532ErrorCodeMeaning(code byte) string {
	meanings := map[byte]string{
		0x00: "success",
		0x01: "timeout",
		0x02: "CRC error",
		0x03: "parity error",
		0x04: "erroneous bit count during anti-collision",
		0x05: "framing error during mifare operation",
		0x06: "abnormal bit collision",
		0x07: "communication buffer size insufficient",
		0x09: "RF buffer overflow",
		0x0A: "RF field not activated in time",
		0x0B: "RF protocol error",
		0x0D: "overheating",
		0x0E: "internal buffer overflow",
		0x10: "invalid parameter",
		0x12: "DEP protocol not supported",
		0x13: "dataformat does not match",
		0x14: "authentication error",
		0x23: "UID check byte is wrong",
		0x25: "DEP invalid state",
		0x26: "operation not allowed",
		0x27: "wrong context for command",
		0x29: "target released by initiator",
		0x2A: "card ID mismatch",
		0x2B: "card disappeared",
		0x2C: "NFCID3 initiator/target mismatch",
		0x2D: "over-current event",
		0x2E: "NAD missing in DEP frame",
		0x81: "command not supported",
	}
	if m, ok := meanings[code]; ok {
		return m
	}
	return "unknown error"
}

// IsUsageError reports whether err is a precondition failure raised before
// any bytes were exchanged with the device.
func IsUsageError(err error) bool {
	return errors.Is(err, ErrInvalidParameter)
}

// IsRetryable returns true if the error is potentially retryable by the
// caller. The library itself never retries beyond the single ACK resend.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var te *TransportError
	if errors.As(err, &te) {
		return te.Retryable
	}

	var se *StatusError
	if errors.As(err, &se) {
		// Timeouts and authentication errors are retryable
		return se.Code() == 0x01 || se.IsAuthenticationError()
	}

	switch {
	case errors.Is(err, ErrAckTimeout),
		errors.Is(err, ErrResponseTimeout),
		errors.Is(err, ErrTransportRead),
		errors.Is(err, ErrTransportWrite),
		errors.Is(err, ErrNoTagDetected):
		return true
	default:
		return false
	}
}

// IsFatal returns true if the error indicates the device/connection is gone.
// This is distinct from IsRetryable which indicates whether a single
// operation can be retried.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}

	var te *TransportError
	if errors.As(err, &te) && te.Type == ErrorTypePermanent {
		return true
	}

	if isDeviceGoneError(err) {
		return true
	}

	switch {
	case errors.Is(err, ErrTransportClosed),
		errors.Is(err, io.EOF),
		errors.Is(err, io.ErrClosedPipe):
		return true
	default:
		return false
	}
}

// Windows error codes for device disconnection detection.
// These are defined here because they're not available on non-Windows platforms.
const (
	errAccessDenied syscall.Errno = 5   // ERROR_ACCESS_DENIED
	errGenFailure   syscall.Errno = 31  // ERROR_GEN_FAILURE
	errNoSuchDevice syscall.Errno = 433 // ERROR_NO_SUCH_DEVICE
)

// isDeviceGoneError checks for OS-level errors indicating device disconnection.
// These errors occur when a USB serial adapter is unplugged during I/O.
func isDeviceGoneError(err error) bool {
	var errno syscall.Errno
	if !errors.As(err, &errno) {
		return false
	}

	//nolint:exhaustive // Only checking specific device-gone errors, not all errno values
	switch errno {
	case syscall.EIO, syscall.ENXIO, syscall.ENODEV:
		return true
	}

	if runtime.GOOS == "windows" {
		//nolint:exhaustive // Only checking specific device-gone errors, not all errno values
		switch errno {
		case errAccessDenied, errGenFailure, errNoSuchDevice:
			return true
		}
	}

	return false
}

// Error constructors for consistent error creation

// NewTransportError creates a standard transport error with consistent formatting
func NewTransportError(op, port string, err error, errType ErrorType) *TransportError {
	return &TransportError{
		Op:        op,
		Port:      port,
		Err:       err,
		Type:      errType,
		Retryable: errType == ErrorTypeTransient || errType == ErrorTypeTimeout,
	}
}

// NewAckTimeoutError reports that no ACK arrived after the frame was sent twice.
func NewAckTimeoutError(op, port string) *TransportError {
	return NewTransportError(op, port, ErrAckTimeout, ErrorTypeTimeout)
}

// NewResponseTimeoutError reports an acknowledged command that never answered.
func NewResponseTimeoutError(op, port string) *TransportError {
	return NewTransportError(op, port, ErrResponseTimeout, ErrorTypeTimeout)
}

// NewTransportWriteError wraps a failed stream write.
func NewTransportWriteError(op, port string, cause error) *TransportError {
	return NewTransportError(op, port, fmt.Errorf("%w: %w", ErrTransportWrite, cause), ErrorTypeTransient)
}

// NewTransportReadError wraps a failed stream read.
func NewTransportReadError(op, port string, cause error) *TransportError {
	return NewTransportError(op, port, fmt.Errorf("%w: %w", ErrTransportRead, cause), ErrorTypeTransient)
}
