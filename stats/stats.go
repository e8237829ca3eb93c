/*
Copyright (c) Facebook, Inc. and its affiliates.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package stats counts per-engine gateway events (SPRT retransmits and
// window stalls, SSE resends, V.150.1 state transitions) and exposes them
// both as a plain counter map and as a Prometheus registry.
package stats

import "sync"

// Server is the interface an Engine's status callbacks report through. It
// mirrors the counter-map shape the rest of the gateway's tooling expects,
// so a v150gwd instance and an offline test harness can share one surface.
type Server interface {
	// Reset atomically sets all counters to 0.
	Reset()
	SetCounter(key string, val int64)
	UpdateCounterBy(key string, count int64)
}

// Stats is a flat, mutex-guarded counter map keyed by dotted metric name
// (e.g. "v150gw.sprt.retransmits", "v150gw.sse.resends").
type Stats struct {
	mu       sync.Mutex
	counters map[string]int64
}

// NewStats returns an empty counter set.
func NewStats() *Stats {
	return &Stats{counters: map[string]int64{}}
}

// UpdateCounterBy increments key by count, which may be negative.
func (s *Stats) UpdateCounterBy(key string, count int64) {
	s.mu.Lock()
	s.counters[key] += count
	s.mu.Unlock()
}

// SetCounter sets key to val outright.
func (s *Stats) SetCounter(key string, val int64) {
	s.mu.Lock()
	s.counters[key] = val
	s.mu.Unlock()
}

// Get returns a snapshot copy of every counter.
func (s *Stats) Get() map[string]int64 {
	ret := make(map[string]int64, len(s.counters))
	s.mu.Lock()
	for k, v := range s.counters {
		ret[k] = v
	}
	s.mu.Unlock()
	return ret
}

// Reset zeroes every existing counter without dropping its key.
func (s *Stats) Reset() {
	s.mu.Lock()
	for k := range s.counters {
		s.counters[k] = 0
	}
	s.mu.Unlock()
}
