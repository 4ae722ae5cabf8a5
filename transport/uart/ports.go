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

package uart

import (
	"fmt"
	"sort"
	"strings"

	"go.bug.st/serial"
	"go.bug.st/serial/enumerator"
)

// PortInfo describes one serial port a reader could be attached to.
type PortInfo struct {
	Name    string `json:"name"`
	VIDPID  string `json:"vid_pid,omitempty"`
	Serial  string `json:"serial,omitempty"`
	Product string `json:"product,omitempty"`
	Bridge  string `json:"bridge,omitempty"`
	IsUSB   bool   `json:"is_usb"`
}

// Likely reports whether the port sits behind a USB-UART bridge commonly
// found on PN532 breakout boards.
func (p PortInfo) Likely() bool {
	return p.Bridge != ""
}

// knownBridges maps VID:PID to the USB-UART chips PN532 modules ship with.
var knownBridges = map[string]string{
	"1A86:7523": "CH340",
	"1A86:55D4": "CH9102",
	"10C4:EA60": "CP210x",
	"0403:6001": "FT232R",
	"0403:6015": "FT231X",
	"067B:2303": "PL2303",
}

// DefaultBlocklist returns USB devices that are never listed. Format is
// VID:PID in hexadecimal, case-insensitive.
func DefaultBlocklist() []string {
	return []string{
		"2341:0043", // Arduino Uno R3, answers the wake-up with its bootloader
		"1366:0105", // SEGGER J-Link CDC port
	}
}

// IsBlocked checks if a VID:PID is in blocklist.
func IsBlocked(vidpid string, blocklist []string) bool {
	vidpid = strings.ToUpper(strings.TrimSpace(vidpid))
	if vidpid == "" {
		return false
	}
	for _, blocked := range blocklist {
		if vidpid == strings.ToUpper(strings.TrimSpace(blocked)) {
			return true
		}
	}
	return false
}

// ParseVIDPID normalises descriptors like "VID:1a86 PID:7523",
// "vendor=1a86 product=7523" or "1a86:7523" to "1A86:7523". It returns ""
// when no pair is found.
func ParseVIDPID(descriptor string) string {
	descriptor = strings.ToUpper(descriptor)

	vid := hexAfter(descriptor, "VID:", "VID=", "VENDOR=")
	pid := hexAfter(descriptor, "PID:", "PID=", "PRODUCT=")
	if vid != "" && pid != "" {
		return vid + ":" + pid
	}

	if parts := strings.Split(strings.TrimSpace(descriptor), ":"); len(parts) == 2 &&
		isHex(parts[0]) && isHex(parts[1]) {
		return parts[0] + ":" + parts[1]
	}
	return ""
}

// hexAfter returns the first run of hex digits following any of keys.
func hexAfter(s string, keys ...string) string {
	for _, key := range keys {
		idx := strings.Index(s, key)
		if idx < 0 {
			continue
		}
		rest := s[idx+len(key):]
		end := 0
		for end < len(rest) && isHexDigit(rest[end]) {
			end++
		}
		if end > 0 {
			return rest[:end]
		}
	}
	return ""
}

func isHexDigit(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'A' && c <= 'F') || (c >= 'a' && c <= 'f')
}

func isHex(s string) bool {
	if s == "" {
		return false
	}
	for i := range len(s) {
		if !isHexDigit(s[i]) {
			return false
		}
	}
	return true
}

// portLister is swapped in tests.
var portLister = enumerator.GetDetailedPortsList

// ListPorts enumerates serial ports, drops blocklisted USB devices and
// sorts likely readers first. When detailed enumeration is unavailable it
// falls back to bare port names.
func ListPorts(blocklist []string) ([]PortInfo, error) {
	details, err := portLister()
	if err != nil {
		names, nameErr := serial.GetPortsList()
		if nameErr != nil {
			return nil, fmt.Errorf("list serial ports: %w", err)
		}
		ports := make([]PortInfo, 0, len(names))
		for _, name := range names {
			ports = append(ports, PortInfo{Name: name})
		}
		return ports, nil
	}

	ports := make([]PortInfo, 0, len(details))
	for _, d := range details {
		info := PortInfo{Name: d.Name, IsUSB: d.IsUSB, Serial: d.SerialNumber, Product: d.Product}
		if d.IsUSB {
			info.VIDPID = ParseVIDPID(d.VID + ":" + d.PID)
			if IsBlocked(info.VIDPID, blocklist) {
				continue
			}
			info.Bridge = knownBridges[info.VIDPID]
		}
		ports = append(ports, info)
	}

	sort.SliceStable(ports, func(i, j int) bool {
		if ports[i].Likely() != ports[j].Likely() {
			return ports[i].Likely()
		}
		return ports[i].Name < ports[j].Name
	})
	return ports, nil
}
