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
	"fmt"
	"strconv"
	"strings"

	version "github.com/hashicorp/go-version"
)

// MinSupportedProfileVersion is the lowest SPRT fmtp "versn" this engine
// negotiates with. A far end advertising an older version is rejected
// before any XID exchange is attempted.
var MinSupportedProfileVersion = version.Must(version.NewVersion("1.1"))

// Profile holds the SDP fmtp attribute parameters that accompany SPRT/SSE
// session setup (e.g. "mr=1;mg=0;CDSCselect=1;jmdelay=no;versn=1.1"). These
// live outside V.150.1's own binary messages entirely; they're negotiated by
// the signalling layer before the first SPRT packet is ever sent, but the
// version they carry still needs checking against what this engine speaks.
type Profile struct {
	UniversalModemRelay bool // mr=1 for U-MR, mr=0 for V-MR
	Transcompression     int  // mg=
	CDSCSelect           int  // CDSCselect=
	JMDelaySupported     bool // jmdelay=yes/no
	Version              *version.Version
}

// ParseProfile parses an fmtp attribute value into a Profile. Unknown keys
// are ignored; a key present more than once keeps its last value.
func ParseProfile(fmtp string) (Profile, error) {
	var p Profile
	for _, field := range strings.Split(fmtp, ";") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		kv := strings.SplitN(field, "=", 2)
		if len(kv) != 2 {
			return Profile{}, fmt.Errorf("malformed profile field %q", field)
		}
		key, val := strings.ToLower(strings.TrimSpace(kv[0])), strings.TrimSpace(kv[1])
		switch key {
		case "mr":
			p.UniversalModemRelay = val == "1"
		case "mg":
			n, err := strconv.Atoi(val)
			if err != nil {
				return Profile{}, fmt.Errorf("parsing mg=%q: %w", val, err)
			}
			p.Transcompression = n
		case "cdscselect":
			n, err := strconv.Atoi(val)
			if err != nil {
				return Profile{}, fmt.Errorf("parsing CDSCselect=%q: %w", val, err)
			}
			p.CDSCSelect = n
		case "jmdelay":
			p.JMDelaySupported = val == "yes"
		case "versn":
			v, err := version.NewVersion(val)
			if err != nil {
				return Profile{}, fmt.Errorf("parsing versn=%q: %w", val, err)
			}
			p.Version = v
		}
	}
	return p, nil
}

// CheckVersion rejects a far-end profile whose versn predates
// MinSupportedProfileVersion. A profile with no versn field at all is
// accepted: the field is optional per the fmtp grammar.
func (p Profile) CheckVersion() error {
	if p.Version == nil {
		return nil
	}
	if p.Version.LessThan(MinSupportedProfileVersion) {
		return fmt.Errorf("far profile version %s is older than the minimum supported %s", p.Version, MinSupportedProfileVersion)
	}
	return nil
}
