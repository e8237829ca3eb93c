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

package stats

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestUpdateCounterByAccumulates(t *testing.T) {
	s := NewStats()
	s.UpdateCounterBy("v150gw.sprt.retransmits", 1)
	s.UpdateCounterBy("v150gw.sprt.retransmits", 2)
	require.EqualValues(t, 3, s.Get()["v150gw.sprt.retransmits"])
}

func TestSetCounterOverwrites(t *testing.T) {
	s := NewStats()
	s.UpdateCounterBy("v150gw.sse.resends", 5)
	s.SetCounter("v150gw.sse.resends", 1)
	require.EqualValues(t, 1, s.Get()["v150gw.sse.resends"])
}

func TestResetZeroesButKeepsKeys(t *testing.T) {
	s := NewStats()
	s.SetCounter("v150gw.v150.breaks", 4)
	s.Reset()
	val, ok := s.Get()["v150gw.v150.breaks"]
	require.True(t, ok)
	require.Zero(t, val)
}

func TestGetReturnsIndependentSnapshot(t *testing.T) {
	s := NewStats()
	s.SetCounter("k", 1)
	snap := s.Get()
	snap["k"] = 99
	require.EqualValues(t, 1, s.Get()["k"])
}

func TestFlattenKeyReplacesSeparators(t *testing.T) {
	require.Equal(t, "v150gw_sprt_retransmits", flattenKey("v150gw.sprt-retransmits"))
	require.Equal(t, "a_b_c_d_e", flattenKey("a b/c=d-e"))
}
