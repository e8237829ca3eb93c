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

// Package gwconfig holds the YAML-tunable run options for a v150gwd
// instance: which interface and ports to bind, how to mark outgoing
// packets, and the near-end capabilities to declare before INIT exchange.
package gwconfig

import (
	"fmt"
	"os"
	"time"

	yaml "gopkg.in/yaml.v2"

	"github.com/facebookincubator/v150gw/v150"
)

// ChannelConfig overrides one SPRT channel's window/retry tunables. A zero
// value for any field leaves sprt.DefaultChannelParms()'s default in place.
type ChannelConfig struct {
	WindowSize  int `yaml:"window_size"`
	PayloadSize int `yaml:"payload_size"`
	MaxTries    int `yaml:"max_tries"`
}

// CapabilitiesConfig overrides the near-end V.150.1 capability defaults
// NewNearCapabilities seeds, for interop with far ends that need a
// narrower declared capability set.
type CapabilitiesConfig struct {
	V44Supported     bool `yaml:"v44_supported"`
	DLCISupported    bool `yaml:"dlci_supported"`
	IRawBitSupported bool `yaml:"i_raw_bit_supported"`
	IFrameSupported  bool `yaml:"i_frame_supported"`
}

// DTEConfig optionally bridges the engine's information stream to a local
// async serial DTE port. A zero Device leaves the bridge disabled.
type DTEConfig struct {
	Device   string `yaml:"device"`
	BaudRate int    `yaml:"baud_rate"`
}

// Config specifies a v150gwd run's options.
type Config struct {
	ListenPort     int                      `yaml:"listen_port"`
	RemoteAddr     string                   `yaml:"remote_addr"`
	MonitoringPort int                      `yaml:"monitoring_port"`
	DSCP           int                      `yaml:"dscp"`
	SubsessionID   int                      `yaml:"subsession_id"`
	StatsInterval  time.Duration            `yaml:"stats_interval"`
	Channels       map[string]ChannelConfig `yaml:"channels"`
	Capabilities   CapabilitiesConfig       `yaml:"capabilities"`
	DTE            DTEConfig                `yaml:"dte"`
	// RemoteProfile is the peer's SDP fmtp attribute value (e.g.
	// "mr=1;mg=0;CDSCselect=1;jmdelay=no;versn=1.1"), as handed down by the
	// signalling layer that set this session up. It is validated at load
	// time so an out-of-date peer is rejected before any SPRT traffic flows.
	RemoteProfile string `yaml:"remote_profile"`
}

// ReadConfig reads and parses a YAML config file.
func ReadConfig(path string) (*Config, error) {
	c := &Config{StatsInterval: 60 * time.Second}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return nil, err
	}
	if c.DTE.Device != "" && c.DTE.BaudRate == 0 {
		c.DTE.BaudRate = 115200
	}
	if c.RemoteProfile != "" {
		profile, err := v150.ParseProfile(c.RemoteProfile)
		if err != nil {
			return nil, fmt.Errorf("parsing remote_profile: %w", err)
		}
		if err := profile.CheckVersion(); err != nil {
			return nil, fmt.Errorf("remote_profile: %w", err)
		}
	}
	return c, nil
}
