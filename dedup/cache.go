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

// Package dedup provides a small fixed-capacity fingerprint cache used to
// suppress delivering the same payload twice on channels that carry no
// sequencing guarantee strong enough to do it any other way.
package dedup

import "github.com/cespare/xxhash"

// Cache remembers the last few fingerprints seen, in insertion order, and
// evicts the oldest once it is full. It is not safe for concurrent use -
// callers in this module only ever touch it from the single-threaded
// protocol engine goroutine.
type Cache struct {
	capacity int
	order    []uint64
	seen     map[uint64]struct{}
}

// New returns a Cache that remembers up to capacity fingerprints.
func New(capacity int) *Cache {
	return &Cache{
		capacity: capacity,
		order:    make([]uint64, 0, capacity),
		seen:     make(map[uint64]struct{}, capacity),
	}
}

// Seen reports whether (tag, payload) has already been recorded, and
// records it if not. tag is mixed into the fingerprint so the same payload
// bytes arriving tagged for a different channel or sequence number are
// treated as distinct.
func (c *Cache) Seen(tag byte, seqNo uint16, payload []byte) bool {
	h := xxhash.New()
	h.Write([]byte{tag, byte(seqNo >> 8), byte(seqNo)})
	h.Write(payload)
	fp := h.Sum64()

	if _, ok := c.seen[fp]; ok {
		return true
	}
	if len(c.order) >= c.capacity {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.seen, oldest)
	}
	c.order = append(c.order, fp)
	c.seen[fp] = struct{}{}
	return false
}
