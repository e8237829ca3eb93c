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

package v150

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseProfileParsesAllFields(t *testing.T) {
	p, err := ParseProfile("mr=1;mg=0;CDSCselect=1;jmdelay=no;versn=1.1")
	require.NoError(t, err)
	require.True(t, p.UniversalModemRelay)
	require.Equal(t, 0, p.Transcompression)
	require.Equal(t, 1, p.CDSCSelect)
	require.False(t, p.JMDelaySupported)
	require.Equal(t, "1.1", p.Version.String())
}

func TestParseProfileRejectsMalformedField(t *testing.T) {
	_, err := ParseProfile("mr=1;garbage")
	require.Error(t, err)
}

func TestParseProfileVersnIsOptional(t *testing.T) {
	p, err := ParseProfile("mr=0;mg=1")
	require.NoError(t, err)
	require.Nil(t, p.Version)
	require.NoError(t, p.CheckVersion())
}

func TestCheckVersionRejectsOlderFarProfile(t *testing.T) {
	p, err := ParseProfile("versn=1.0")
	require.NoError(t, err)
	require.Error(t, p.CheckVersion())
}

func TestCheckVersionAcceptsCurrentFarProfile(t *testing.T) {
	p, err := ParseProfile("versn=1.1")
	require.NoError(t, err)
	require.NoError(t, p.CheckVersion())
}
