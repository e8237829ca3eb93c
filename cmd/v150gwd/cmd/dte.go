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

package cmd

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"
	"go.bug.st/serial"

	"github.com/facebookincubator/v150gw/v150"
)

// dteBridge relays bytes between a local async serial DTE port (the modem's
// own serial interface) and the V.150.1 information stream, the out-of-scope
// "host I/O" collaborator the protocol engines themselves know nothing
// about. Configuring a device is optional: most deployments feed/drain the
// engine some other way (a pty, a higher-level call-control API), so this
// bridge is only started when gwconfig.Config.DTE.Device is set.
type dteBridge struct {
	port   serial.Port
	engine *v150.Engine
}

func openDTEBridge(device string, baud int, engine *v150.Engine) (*dteBridge, error) {
	mode := &serial.Mode{BaudRate: baud}
	port, err := serial.Open(device, mode)
	if err != nil {
		return nil, fmt.Errorf("opening dte device %q: %w", device, err)
	}
	return &dteBridge{port: port, engine: engine}, nil
}

// run copies bytes arriving on the serial port into the engine's information
// stream until ctx is cancelled or the port errors out.
func (d *dteBridge) run(ctx context.Context) error {
	buf := make([]byte, 256)
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		n, err := d.port.Read(buf)
		if err != nil {
			return fmt.Errorf("reading dte device: %w", err)
		}
		if n == 0 {
			continue
		}
		if err := d.engine.TxInfoStream(append([]byte(nil), buf[:n]...)); err != nil {
			log.Debugf("dte: dropping %d bytes, engine not ready: %v", n, err)
		}
	}
}

// deliver writes a payload decoded off the wire back out to the DTE. It is
// wired as the Engine's RxOctetFunc. fill, when non-negative, is the number
// of characters a _CS sequence number gap implies were lost before this
// payload; the serial port has no way to signal a gap to the DTE, so it is
// only logged.
func (d *dteBridge) deliver(payload []byte, dlci int, fill int) {
	if fill > 0 {
		log.Warningf("dte: %d characters lost before this payload", fill)
	}
	if len(payload) == 0 {
		return
	}
	if _, err := d.port.Write(payload); err != nil {
		log.Warningf("dte: write failed: %v", err)
	}
}

func (d *dteBridge) Close() error { return d.port.Close() }
