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
	"math/rand/v2"
	"time"
)

// RetryConfig controls RetryWithConfig. The library never retries on its
// own beyond the single ACK resend; callers opt in per operation.
type RetryConfig struct {
	// OnRetry is called after a failed attempt that will be repeated.
	OnRetry func(attempt int, err error)
	// MaxAttempts counts the first try. Values below 1 mean one attempt.
	MaxAttempts       int
	InitialBackoff    time.Duration
	MaxBackoff        time.Duration
	BackoffMultiplier float64
	// Jitter adds up to Jitter*backoff of random delay.
	Jitter float64
	// RetryTimeout bounds all attempts together. Zero leaves only ctx.
	RetryTimeout time.Duration
}

// DefaultRetryConfig suits re-running a tag operation while the user
// settles the tag on the antenna.
func DefaultRetryConfig() *RetryConfig {
	return &RetryConfig{
		MaxAttempts:       3,
		InitialBackoff:    50 * time.Millisecond,
		MaxBackoff:        time.Second,
		BackoffMultiplier: 2.0,
		Jitter:            0.1,
		RetryTimeout:      10 * time.Second,
	}
}

// RetryableFunc is one attempt of an operation.
type RetryableFunc func(ctx context.Context) error

// RetryWithConfig runs fn until it succeeds, fails with an error that is
// not worth repeating, or runs out of attempts. The error of the last
// attempt is returned unchanged.
func RetryWithConfig(ctx context.Context, config *RetryConfig, fn RetryableFunc) error {
	if config == nil {
		config = DefaultRetryConfig()
	}
	if config.RetryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, config.RetryTimeout)
		defer cancel()
	}

	attempts := max(config.MaxAttempts, 1)
	backoff := config.InitialBackoff
	for attempt := 1; ; attempt++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if attempt >= attempts || !shouldRetry(err) {
			return err
		}

		if config.OnRetry != nil {
			config.OnRetry(attempt, err)
		}
		sleep := calculateJitteredSleep(backoff, config.Jitter)
		Debugf("attempt %d/%d failed, retrying in %v: %v", attempt, attempts, sleep, err)
		if !sleepWithContext(ctx, sleep) {
			return err
		}
		backoff = calculateNextBackoff(backoff, config)
	}
}

// shouldRetry rejects errors that another attempt cannot fix: usage
// errors, a vanished device and anything not marked retryable.
func shouldRetry(err error) bool {
	return IsRetryable(err) && !IsFatal(err) && !IsUsageError(err)
}

func sleepWithContext(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

func calculateNextBackoff(backoff time.Duration, config *RetryConfig) time.Duration {
	next := time.Duration(float64(backoff) * config.BackoffMultiplier)
	if config.MaxBackoff > 0 && next > config.MaxBackoff {
		return config.MaxBackoff
	}
	return next
}

// calculateJitteredSleep adds up to jitterFactor*baseSleep of random delay.
func calculateJitteredSleep(baseSleep time.Duration, jitterFactor float64) time.Duration {
	if jitterFactor <= 0 {
		return baseSleep
	}
	jitter := float64(baseSleep) * jitterFactor
	return baseSleep + time.Duration(rand.Float64()*jitter) //nolint:gosec // backoff jitter, not crypto
}
