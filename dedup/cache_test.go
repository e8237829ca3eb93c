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

package dedup

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSeenDetectsRepeat(t *testing.T) {
	c := New(4)
	require.False(t, c.Seen(1, 10, []byte("a")))
	require.True(t, c.Seen(1, 10, []byte("a")))
}

func TestSeenDistinguishesByTagAndSeq(t *testing.T) {
	c := New(4)
	require.False(t, c.Seen(1, 10, []byte("a")))
	require.False(t, c.Seen(2, 10, []byte("a")))
	require.False(t, c.Seen(1, 11, []byte("a")))
}

func TestSeenEvictsOldestPastCapacity(t *testing.T) {
	c := New(2)
	require.False(t, c.Seen(0, 1, []byte("a")))
	require.False(t, c.Seen(0, 2, []byte("b")))
	require.False(t, c.Seen(0, 3, []byte("c"))) // evicts fingerprint for seq 1
	require.False(t, c.Seen(0, 1, []byte("a")))  // forgotten, so "new" again
}
