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

// Command spooltag reads, writes and formats filament spool tags through a
// PN532 reader attached over UART or I2C.
//
//	spooltag -device /dev/ttyUSB0 read
//	spooltag -device /dev/ttyUSB0 -material PETG -color "#FF8800" write
//	spooltag -device /dev/i2c-1 -i2c format
//	spooltag -list
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spooltag/go-pn532"
	"github.com/spooltag/go-pn532/spool"
	"github.com/spooltag/go-pn532/tagops"
	"github.com/spooltag/go-pn532/transport/i2c"
	"github.com/spooltag/go-pn532/transport/uart"
)

const (
	cmdRead   = "read"
	cmdWrite  = "write"
	cmdFormat = "format"
	cmdInfo   = "info"
)

var errUsage = errors.New("usage: spooltag [flags] read|write|format|info")

type config struct {
	devicePath string
	command    string
	logDir     string
	spool      spool.Spool
	timeout    time.Duration
	variant    pn532.TagVariant
	retries    int
	debug      bool
	useI2C     bool
	strict     bool
	list       bool
	progress   bool
}

// Package-level flag variables
var (
	flagDevicePath string
	flagLogDir     string
	flagVariant    string
	flagMaterial   string
	flagColor      string
	flagTimeout    time.Duration
	flagNozzle     int
	flagBed        int
	flagWeight     int
	flagRemaining  int
	flagRetries    int
	flagDebug      bool
	flagI2C        bool
	flagStrict     bool
	flagList       bool
	flagProgress   bool
)

func init() {
	flag.StringVar(&flagDevicePath, "device", "", "Device path, e.g. /dev/ttyUSB0 or /dev/i2c-1")
	flag.BoolVar(&flagI2C, "i2c", false, "Use the I2C transport regardless of the device path")
	flag.BoolVar(&flagDebug, "debug", false, "Enable debug output")
	flag.StringVar(&flagLogDir, "log", "", "Write a session log file into this directory")
	flag.DurationVar(&flagTimeout, "timeout", tagops.DefaultDetectTimeout, "How long to wait for a tag")
	flag.BoolVar(&flagStrict, "strict", false, "Reject responses whose opcode does not match the command")
	flag.BoolVar(&flagList, "list", false, "List serial ports that may have a PN532 attached and exit")
	flag.StringVar(&flagVariant, "variant", "", "Tag variant (NTAG215 or NTAG216); detected from the tag when empty")
	flag.IntVar(&flagRetries, "retries", 0, "Retry transient failures this many times")
	flag.BoolVar(&flagProgress, "progress", false, "Print progress updates to stderr")

	flag.StringVar(&flagMaterial, "material", "PLA", "Spool material (write)")
	flag.StringVar(&flagColor, "color", "#FFFFFF", "Spool color (write)")
	flag.IntVar(&flagNozzle, "nozzle", 210, "Nozzle temperature in C (write)")
	flag.IntVar(&flagBed, "bed", 60, "Bed temperature in C (write)")
	flag.IntVar(&flagWeight, "weight", 1000, "Total filament weight in grams (write)")
	flag.IntVar(&flagRemaining, "remaining", -1, "Remaining weight in grams, defaults to -weight (write)")
}

func parseConfig(args []string) (*config, error) {
	cfg := &config{
		devicePath: flagDevicePath,
		logDir:     flagLogDir,
		timeout:    flagTimeout,
		retries:    flagRetries,
		debug:      flagDebug,
		useI2C:     flagI2C,
		strict:     flagStrict,
		list:       flagList,
		progress:   flagProgress,
		spool: spool.Spool{
			Material:        flagMaterial,
			Color:           flagColor,
			NozzleTemp:      flagNozzle,
			BedTemp:         flagBed,
			TotalWeight:     flagWeight,
			RemainingWeight: flagRemaining,
		},
	}
	if cfg.spool.RemainingWeight < 0 {
		cfg.spool.RemainingWeight = cfg.spool.TotalWeight
	}

	if flagVariant != "" {
		v, err := pn532.ParseTagVariant(flagVariant)
		if err != nil {
			return nil, err
		}
		cfg.variant = v
	}

	if cfg.list {
		return cfg, nil
	}

	if len(args) != 1 {
		return nil, errUsage
	}
	cfg.command = strings.ToLower(args[0])
	switch cfg.command {
	case cmdRead, cmdWrite, cmdFormat, cmdInfo:
	default:
		return nil, fmt.Errorf("%w: unknown command %q", errUsage, args[0])
	}

	if cfg.devicePath == "" {
		return nil, errors.New("-device is required")
	}
	if cfg.retries < 0 {
		return nil, errors.New("-retries must not be negative")
	}

	if cfg.debug {
		pn532.SetDebugEnabled(true)
	}

	return cfg, nil
}

// newTransport opens an I2C bus when asked to or when the path names one,
// and a serial port otherwise.
func newTransport(cfg *config) (pn532.Transport, error) {
	dispatcherOpts := []pn532.DispatcherOption{pn532.WithStrictResponses(cfg.strict)}

	if cfg.useI2C || strings.Contains(strings.ToLower(cfg.devicePath), "i2c") {
		transport, err := i2c.New(cfg.devicePath, i2c.WithDispatcherOptions(dispatcherOpts...))
		if err != nil {
			return nil, fmt.Errorf("failed to create I2C transport for %s: %w", cfg.devicePath, err)
		}
		return transport, nil
	}

	transport, err := uart.New(cfg.devicePath, uart.WithDispatcherOptions(dispatcherOpts...))
	if err != nil {
		return nil, fmt.Errorf("failed to create UART transport for %s: %w", cfg.devicePath, err)
	}
	return transport, nil
}

// transportFactory is replaced in tests.
var transportFactory = newTransport

func retryConfig(cfg *config) *pn532.RetryConfig {
	rc := pn532.DefaultRetryConfig()
	rc.MaxAttempts = cfg.retries + 1
	rc.RetryTimeout = 0
	rc.OnRetry = func(attempt int, err error) {
		_, _ = fmt.Fprintf(os.Stderr, "Attempt %d failed, retrying: %v\n", attempt, err)
	}
	return rc
}

func connectToDevice(ctx context.Context, cfg *config) (*pn532.Device, error) {
	var device *pn532.Device
	err := pn532.RetryWithConfig(ctx, retryConfig(cfg), func(ctx context.Context) error {
		d, err := pn532.ConnectDevice(ctx, cfg.devicePath,
			pn532.WithTransportFactory(func(string) (pn532.Transport, error) {
				return transportFactory(cfg)
			}))
		if err != nil {
			return err
		}
		device = d
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", cfg.devicePath, err)
	}

	if cfg.debug {
		if fw := device.CachedFirmwareVersion(); fw != nil {
			_, _ = fmt.Fprintf(os.Stderr, "Connected: PN5%02X firmware %s\n", fw.IC, fw.Version)
		}
	}
	return device, nil
}

func newOperations(device *pn532.Device, cfg *config) *tagops.TagOperations {
	opts := []tagops.Option{tagops.WithDetectTimeout(cfg.timeout)}
	if cfg.variant != 0 {
		opts = append(opts, tagops.WithVariant(cfg.variant))
	}
	if cfg.progress {
		opts = append(opts, tagops.WithProgress(func(percent int, status string) {
			_, _ = fmt.Fprintf(os.Stderr, "[%3d%%] %s\n", percent, status)
		}))
	}
	return tagops.New(device, opts...)
}

type statusResult struct {
	Status string `json:"status"`
	UID    string `json:"uid,omitempty"`
	Type   string `json:"tag_type,omitempty"`
}

func runCommand(ctx context.Context, ops *tagops.TagOperations, cfg *config) (any, error) {
	switch cfg.command {
	case cmdRead:
		return ops.Read(ctx)
	case cmdWrite:
		if err := ops.Write(ctx, cfg.spool); err != nil {
			return nil, err
		}
		return tagResult(ops, "written")
	case cmdFormat:
		if err := ops.Format(ctx); err != nil {
			return nil, err
		}
		return tagResult(ops, "formatted")
	case cmdInfo:
		return ops.Info(ctx)
	default:
		return nil, fmt.Errorf("%w: unknown command %q", errUsage, cfg.command)
	}
}

func tagResult(ops *tagops.TagOperations, status string) (*statusResult, error) {
	info, err := ops.GetTagInfo()
	if err != nil {
		return nil, err
	}
	return &statusResult{Status: status, UID: info.UID, Type: info.TypeName}, nil
}

func listPorts(out io.Writer) error {
	ports, err := uart.ListPorts(uart.DefaultBlocklist())
	if err != nil {
		return fmt.Errorf("failed to list serial ports: %w", err)
	}
	return writeJSON(out, ports)
}

func writeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}
	return nil
}

func run(ctx context.Context, cfg *config, out io.Writer) error {
	if cfg.list {
		return listPorts(out)
	}

	device, err := connectToDevice(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := device.Close(); err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "Failed to close device: %v\n", err)
		}
	}()

	ops := newOperations(device, cfg)

	var result any
	err = pn532.RetryWithConfig(ctx, retryConfig(cfg), func(ctx context.Context) error {
		r, err := runCommand(ctx, ops, cfg)
		if err != nil {
			return err
		}
		result = r
		return nil
	})
	if err != nil {
		return fmt.Errorf("%s failed: %w", cfg.command, err)
	}
	return writeJSON(out, result)
}

func main() {
	flag.Usage = func() {
		_, _ = fmt.Fprintln(flag.CommandLine.Output(), errUsage)
		flag.PrintDefaults()
	}
	flag.Parse()
	os.Exit(mainWithExitCode(flag.Args()))
}

func mainWithExitCode(args []string) int {
	cfg, err := parseConfig(args)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if errors.Is(err, errUsage) {
			flag.Usage()
		}
		return 2
	}

	if cfg.logDir != "" {
		path, err := pn532.InitSessionLog(cfg.logDir)
		if err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
		defer func() { _ = pn532.CloseSessionLog() }()
		_, _ = fmt.Fprintf(os.Stderr, "Session log: %s\n", path)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, os.Stdout); err != nil {
		if errors.Is(err, context.Canceled) {
			return 0
		}
		_, _ = fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}
