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

// Package spool describes filament spool data stored on NTAG tags and
// classifies tag contents read from a reader.
package spool

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/hsanjuan/go-ndef"
)

// MIMEType labels the NDEF media record that carries a Spool.
const MIMEType = "application/json"

// Validation limits for spool fields.
const (
	MaxNozzleTemp = 350
	MaxBedTemp    = 150
	MaxWeight     = 10000
)

var (
	// ErrInvalidSpool is returned by Validate.
	ErrInvalidSpool = errors.New("invalid spool data")
	// ErrNotSpool is returned by Decode when the message holds no spool
	// record.
	ErrNotSpool = errors.New("no spool record")
)

// Spool is the filament description written to a tag. Weights are grams,
// temperatures degrees Celsius.
type Spool struct {
	Material        string `json:"material"`
	Color           string `json:"color"`
	NozzleTemp      int    `json:"nozzle_temp"`
	BedTemp         int    `json:"bed_temp"`
	TotalWeight     int    `json:"total_weight"`
	RemainingWeight int    `json:"remaining_weight"`
}

// Validate checks field ranges.
func (s Spool) Validate() error {
	switch {
	case strings.TrimSpace(s.Material) == "":
		return fmt.Errorf("%w: material is required", ErrInvalidSpool)
	case s.NozzleTemp < 0 || s.NozzleTemp > MaxNozzleTemp:
		return fmt.Errorf("%w: nozzle temperature %d outside 0..%d", ErrInvalidSpool, s.NozzleTemp, MaxNozzleTemp)
	case s.BedTemp < 0 || s.BedTemp > MaxBedTemp:
		return fmt.Errorf("%w: bed temperature %d outside 0..%d", ErrInvalidSpool, s.BedTemp, MaxBedTemp)
	case s.TotalWeight < 0 || s.TotalWeight > MaxWeight:
		return fmt.Errorf("%w: total weight %d outside 0..%d", ErrInvalidSpool, s.TotalWeight, MaxWeight)
	case s.RemainingWeight < 0 || s.RemainingWeight > s.TotalWeight:
		return fmt.Errorf("%w: remaining weight %d outside 0..%d", ErrInvalidSpool, s.RemainingWeight, s.TotalWeight)
	}
	return nil
}

// Encode validates s and returns an NDEF message holding it as a JSON
// media record. The result is the payload of the tag's record TLV.
func Encode(s Spool) ([]byte, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	body, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("marshal spool: %w", err)
	}
	msg, err := ndef.NewMediaMessage(MIMEType, body).Marshal()
	if err != nil {
		return nil, fmt.Errorf("marshal NDEF message: %w", err)
	}
	return msg, nil
}

// Decode extracts the first spool media record from an NDEF message.
func Decode(message []byte) (*Spool, error) {
	msg := &ndef.Message{}
	if _, err := msg.Unmarshal(message); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNotSpool, err)
	}

	for _, rec := range msg.Records {
		if rec.TNF() != ndef.MediaType || rec.Type() != MIMEType {
			continue
		}
		payload, err := rec.Payload()
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrNotSpool, err)
		}
		var s Spool
		if err := json.Unmarshal(payload.Marshal(), &s); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrNotSpool, err)
		}
		return &s, nil
	}
	return nil, ErrNotSpool
}
