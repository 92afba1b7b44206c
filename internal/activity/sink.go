// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package activity

import (
	"fmt"
	"sync/atomic"
)

// Sink receives classification results for presentation.
type Sink interface {
	Publish(r Result)
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(r Result)

// Publish calls f.
func (f SinkFunc) Publish(r Result) { f(r) }

// MultiSink fans a result out to every sink in order.
func MultiSink(sinks ...Sink) Sink {
	return SinkFunc(func(r Result) {
		for _, s := range sinks {
			s.Publish(r)
		}
	})
}

// FormatConfidence renders a probability as a whole percentage, e.g. "87%".
func FormatConfidence(p float64) string {
	return fmt.Sprintf("%.0f%%", p*100)
}

// AsyncSink delivers results to another sink on its own goroutine, in
// publish order. Publish never blocks: results that do not fit in the
// buffer are dropped and counted.
type AsyncSink struct {
	next    Sink
	ch      chan Result
	done    chan struct{}
	dropped atomic.Uint64
}

// NewAsyncSink starts the delivery goroutine.
func NewAsyncSink(next Sink, buffer int) *AsyncSink {
	if buffer <= 0 {
		buffer = 16
	}
	s := &AsyncSink{
		next: next,
		ch:   make(chan Result, buffer),
		done: make(chan struct{}),
	}
	go s.run()
	return s
}

func (s *AsyncSink) run() {
	defer close(s.done)
	for r := range s.ch {
		s.next.Publish(r)
	}
}

// Publish queues r for delivery.
func (s *AsyncSink) Publish(r Result) {
	select {
	case s.ch <- r:
	default:
		s.dropped.Add(1)
	}
}

// Dropped returns how many results were discarded on a full buffer.
func (s *AsyncSink) Dropped() uint64 {
	return s.dropped.Load()
}

// Close drains queued results and stops the goroutine. Publish must not
// be called after Close.
func (s *AsyncSink) Close() {
	close(s.ch)
	<-s.done
}
