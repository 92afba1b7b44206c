// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"errors"
	"io"
	"log"
	"time"

	"github.com/relabs-tech/headmotion/internal/motion"
)

// sampleLoop reads src until ctx ends and hands every sample to fn.
// Polled sources are read once per interval; paced sources (interval 0)
// are read back to back. Read errors are logged and the tick skipped.
func sampleLoop(ctx context.Context, src motion.Source, interval time.Duration, fn func(motion.Sample)) error {
	var tick <-chan time.Time
	if interval > 0 {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		if ctx.Err() != nil {
			return nil
		}
		if tick != nil {
			select {
			case <-ctx.Done():
				return nil
			case <-tick:
			}
		}

		s, err := src.Next()
		if errors.Is(err, io.EOF) {
			return err
		}
		if err != nil {
			log.Printf("motion source read error: %v", err)
			if tick == nil {
				// Avoid spinning on a source that fails immediately.
				select {
				case <-ctx.Done():
					return nil
				case <-time.After(100 * time.Millisecond):
				}
			}
			continue
		}
		fn(s)
	}
}

// closeSource closes sources that hold a device.
func closeSource(src motion.Source) {
	if c, ok := src.(io.Closer); ok {
		if err := c.Close(); err != nil {
			log.Printf("motion source close error: %v", err)
		}
	}
}
