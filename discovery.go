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
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Target is a tag found by discovery. It is a plain value: the transport
// keeps no reference to it.
type Target struct {
	UID     []byte
	SensRes []byte // ATQA, 2 bytes
	ATS     []byte // ISO14443-4 answer to select, including its length byte
	Number  byte   // logical target number assigned by the PN532
	SelRes  byte   // SAK
}

// UIDHex returns the UID as upper-case hex.
func (t Target) UIDHex() string {
	return strings.ToUpper(hex.EncodeToString(t.UID))
}

// targetNumber is the Tg byte used for InDataExchange.
func (t Target) targetNumber() byte {
	if t.Number == 0 {
		return DefaultTargetNumber
	}
	return t.Number
}

// PollTarget repeats InListPassiveTarget until a tag answers or overall
// elapses, in which case it returns ErrNoTagDetected. Exchange failures
// during the loop are logged and polling continues. Only the first target
// of a response is returned.
func (d *Device) PollTarget(ctx context.Context, baud BaudMode, overall time.Duration) (*Target, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	deadline := time.Now().Add(overall)
	for attempt := 1; ; attempt++ {
		attemptTimeout := min(d.config.PollAttemptTimeout, time.Until(deadline))
		if attemptTimeout <= 0 {
			attemptTimeout = time.Millisecond
		}

		target, err := d.listPassiveTarget(ctx, baud, attemptTimeout)
		switch {
		case err == nil && target != nil:
			Debugf("target %d found on attempt %d: UID %s SAK 0x%02X",
				target.Number, attempt, target.UIDHex(), target.SelRes)
			return target, nil
		case err != nil && ctx.Err() != nil:
			return nil, fmt.Errorf("poll target: %w", ctx.Err())
		case err != nil && (errors.Is(err, ErrTransportClosed) || IsUsageError(err)):
			return nil, err
		case err != nil:
			Debugf("poll attempt %d failed: %v", attempt, err)
		}

		if !time.Now().Before(deadline) {
			return nil, ErrNoTagDetected
		}
		if err := sleepCtx(ctx, d.config.PollDelay); err != nil {
			return nil, fmt.Errorf("poll target: %w", err)
		}
	}
}

// listPassiveTarget issues a single discovery attempt. It returns a nil
// target when the chip reports none.
func (d *Device) listPassiveTarget(ctx context.Context, baud BaudMode, timeout time.Duration) (*Target, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	resp, err := d.send(attemptCtx, CmdInListPassiveTarget, 0x01, byte(baud))
	if err != nil {
		return nil, err
	}
	return parseTarget(resp)
}

// parseTarget decodes an InListPassiveTarget response for a 106 kbps
// type A target:
//
//	NbTg | Tg | SENS_RES(2) | SEL_RES | NFCIDLength | NFCID1... | [ATS...]
func parseTarget(resp []byte) (*Target, error) {
	if len(resp) == 0 || resp[0] == 0 {
		return nil, nil //nolint:nilnil // no target is not an error
	}
	if len(resp) < 6 {
		return nil, fmt.Errorf("%w: target data has %d bytes", ErrInvalidResponse, len(resp))
	}

	uidLen := int(resp[5])
	if len(resp) < 6+uidLen {
		return nil, fmt.Errorf("%w: UID length %d exceeds response", ErrInvalidResponse, uidLen)
	}

	target := &Target{
		Number:  resp[1],
		SensRes: append([]byte(nil), resp[2:4]...),
		SelRes:  resp[4],
		UID:     append([]byte(nil), resp[6:6+uidLen]...),
	}

	if rest := resp[6+uidLen:]; len(rest) > 0 && rest[0] > 0 {
		atsLen := min(int(rest[0]), len(rest))
		target.ATS = append([]byte(nil), rest[:atsLen]...)
	}
	return target, nil
}

// ReleaseTarget ends the chip's session with the target.
func (d *Device) ReleaseTarget(ctx context.Context, target Target) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	resp, err := d.send(ctx, CmdInRelease, target.targetNumber())
	if err != nil {
		return err
	}
	if len(resp) > 0 && resp[0] != 0x00 {
		return &StatusError{Op: "InRelease", Err: ErrInvalidResponse, Status: resp[0]}
	}
	return nil
}

func sleepCtx(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
