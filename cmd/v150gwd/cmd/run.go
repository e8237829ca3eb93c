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
	"encoding/binary"
	"fmt"
	"net"
	"sync"
	"time"

	systemdDaemon "github.com/coreos/go-systemd/daemon"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sys/unix"

	"github.com/facebookincubator/v150gw/gwconfig"
	"github.com/facebookincubator/v150gw/sprt"
	"github.com/facebookincubator/v150gw/sse"
	"github.com/facebookincubator/v150gw/stats"
	"github.com/facebookincubator/v150gw/v150"
)

// sprt and sse packets share one UDP flow in this harness, tagged by a
// leading demux byte. Real deployments run SSE over its own RTP session;
// this is purely a convenience of the reference harness, not a protocol
// requirement the core packages know or care about.
const (
	demuxSPRT byte = 0x00
	demuxSSE  byte = 0x01
)

var (
	runConfigPath string
	runListenPort int
	runRemoteAddr string
)

func init() {
	runCmd.Flags().StringVar(&runConfigPath, "config", "", "path to a v150gwd YAML config")
	runCmd.Flags().IntVar(&runListenPort, "listen-port", 0, "UDP port to bind (overrides config)")
	runCmd.Flags().StringVar(&runRemoteAddr, "remote-addr", "", "remote host:port to relay to (overrides config)")
	RootCmd.AddCommand(runCmd)
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the gateway, relaying modem-over-IP traffic to a single peer",
	RunE: func(cmd *cobra.Command, args []string) error {
		ConfigureVerbosity()
		return doRun()
	},
}

func doRun() error {
	cfg := &gwconfig.Config{StatsInterval: 60 * time.Second}
	if runConfigPath != "" {
		var err error
		cfg, err = gwconfig.ReadConfig(runConfigPath)
		if err != nil {
			return fmt.Errorf("reading config from %q: %w", runConfigPath, err)
		}
	}
	if runListenPort != 0 {
		cfg.ListenPort = runListenPort
	}
	if runRemoteAddr != "" {
		cfg.RemoteAddr = runRemoteAddr
	}
	if cfg.ListenPort == 0 {
		return fmt.Errorf("no listen port configured")
	}

	remote, err := net.ResolveUDPAddr("udp", cfg.RemoteAddr)
	if err != nil {
		return fmt.Errorf("resolving remote addr %q: %w", cfg.RemoteAddr, err)
	}

	conn, err := net.ListenUDP("udp", &net.UDPAddr{Port: cfg.ListenPort})
	if err != nil {
		return fmt.Errorf("binding udp port %d: %w", cfg.ListenPort, err)
	}
	defer conn.Close()

	if cfg.DSCP != 0 {
		if err := setDSCP(conn, cfg.DSCP); err != nil {
			log.Warningf("failed to set DSCP %d: %v", cfg.DSCP, err)
		}
	}

	statsServer := stats.NewStats()
	if cfg.MonitoringPort != 0 {
		exporter := stats.NewPrometheusExporter(statsServer, cfg.MonitoringPort, cfg.StatsInterval)
		go exporter.Start()
	}

	g, err := newGateway(cfg, conn, remote, statsServer)
	if err != nil {
		return err
	}
	if cfg.DTE.Device != "" {
		dte, err := openDTEBridge(cfg.DTE.Device, cfg.DTE.BaudRate, g.engine)
		if err != nil {
			return err
		}
		defer dte.Close()
		g.dte = dte
	}
	return g.run()
}

func setDSCP(conn *net.UDPConn, dscp int) error {
	raw, err := conn.SyscallConn()
	if err != nil {
		return err
	}
	var sockErr error
	err = raw.Control(func(fd uintptr) {
		sockErr = unix.SetsockoptInt(int(fd), unix.IPPROTO_IP, unix.IP_TOS, dscp<<2)
	})
	if err != nil {
		return err
	}
	return sockErr
}

// gateway wires one sprt.Engine, one sse.Engine and the v150.Engine that
// composes them to a single UDP socket and a wall-clock-driven timer. SSE
// packets carry no sequence number or timestamp of their own (those live in
// the RTP header a real deployment would wrap them in), so this harness
// stamps its own in the six bytes that follow the demux byte.
type gateway struct {
	conn   *net.UDPConn
	remote *net.UDPAddr
	stats  *stats.Stats

	engine *v150.Engine
	dte    *dteBridge

	sprtTimer *wallClockTimer
	sseTimer  *wallClockTimer

	sseTxSeqNo uint16
}

func newGateway(cfg *gwconfig.Config, conn *net.UDPConn, remote *net.UDPAddr, statsServer *stats.Stats) (*gateway, error) {
	g := &gateway{conn: conn, remote: remote, stats: statsServer}

	parms := sprt.DefaultChannelParms()
	if c, ok := cfg.Channels["reliable_sequenced"]; ok {
		applyChannelOverride(&parms[sprt.ChannelReliableSequenced], c)
	}
	if c, ok := cfg.Channels["expedited_reliable_sequenced"]; ok {
		applyChannelOverride(&parms[sprt.ChannelExpeditedReliableSequenced], c)
	}

	sprtEngine, err := sprt.New(sprt.Config{
		SubsessionID:   byte(cfg.SubsessionID),
		ChannelParms:   parms,
		TxFunc:         g.txSPRT,
		RxDeliveryFunc: g.deliverSPRT,
		TimerFunc:      g.armSPRTTimer,
		StatusFunc:     g.reportSPRTStatus,
	})
	if err != nil {
		return nil, fmt.Errorf("building sprt engine: %w", err)
	}
	for name, ch := range map[string]sprt.Channel{
		"reliable_sequenced":           sprt.ChannelReliableSequenced,
		"expedited_reliable_sequenced": sprt.ChannelExpeditedReliableSequenced,
	} {
		if c, ok := cfg.Channels[name]; ok && c.MaxTries != 0 {
			if err := sprtEngine.SetLocalMaxTries(ch, c.MaxTries); err != nil {
				return nil, fmt.Errorf("setting %s max_tries: %w", name, err)
			}
		}
	}

	sseEngine, err := sse.New(sse.Config{
		TxFunc:       g.txSSE,
		DeliveryFunc: g.deliverSSE,
		TimerFunc:    g.armSSETimer,
		StatusFunc:   g.reportSSEStatus,
	})
	if err != nil {
		return nil, fmt.Errorf("building sse engine: %w", err)
	}

	engine, err := v150.New(v150.Config{
		SPRT:    sprtEngine,
		SSE:     sseEngine,
		Status:  g.reportV150Status,
		RxOctet: g.deliverOctet,
		Logger:  log.NewEntry(log.StandardLogger()),
	})
	if err != nil {
		return nil, fmt.Errorf("building v150 engine: %w", err)
	}
	near := engine.Near()
	near.V44Supported = cfg.Capabilities.V44Supported
	near.DLCISupported = cfg.Capabilities.DLCISupported
	near.IRawBitSupported = cfg.Capabilities.IRawBitSupported
	near.IFrameSupported = cfg.Capabilities.IFrameSupported

	g.sprtTimer = &wallClockTimer{expire: func(now uint64) { sprtEngine.TimerExpired(sprt.Timestamp(now)) }}
	g.sseTimer = &wallClockTimer{expire: func(now uint64) { sseEngine.TimerExpired(sse.Timestamp(now)) }}
	g.engine = engine
	return g, nil
}

func applyChannelOverride(parms *sprt.ChannelParms, c gwconfig.ChannelConfig) {
	if c.WindowSize != 0 {
		parms.WindowSize = uint16(c.WindowSize)
	}
	if c.PayloadSize != 0 {
		parms.PayloadBytes = uint16(c.PayloadSize)
	}
}

// run sends the opening INIT handshake, then reads packets off the socket
// forever, dispatching each to the SPRT or SSE engine by its demux prefix. If
// a DTE bridge is attached, its read loop runs alongside the UDP loop under
// the same errgroup, so either one exiting tears down the other.
func (g *gateway) run() error {
	if err := g.engine.TxInit(); err != nil {
		return fmt.Errorf("sending initial INIT: %w", err)
	}

	grp, ctx := errgroup.WithContext(context.Background())
	grp.Go(func() error { return g.runUDPLoop() })
	if g.dte != nil {
		grp.Go(func() error { return g.dte.run(ctx) })
	}

	if sent, err := systemdDaemon.SdNotify(false, systemdDaemon.SdNotifyReady); err != nil {
		log.Warningf("sd_notify failed: %v", err)
	} else if sent {
		log.Debug("sd_notify READY sent")
	}

	return grp.Wait()
}

func (g *gateway) runUDPLoop() error {
	buf := make([]byte, 2048)
	for {
		n, _, err := g.conn.ReadFromUDP(buf)
		if err != nil {
			return fmt.Errorf("reading udp: %w", err)
		}
		if n < 1 {
			continue
		}
		pkt := make([]byte, n-1)
		copy(pkt, buf[1:n])
		switch buf[0] {
		case demuxSPRT:
			if err := g.sprtEngine().RxPacket(pkt); err != nil {
				log.Debugf("dropping malformed sprt packet: %v", err)
				g.stats.UpdateCounterBy("v150gw.sprt.rx_errors", 1)
			}
		case demuxSSE:
			if len(pkt) < 6 {
				log.Debug("dropping undersized sse frame")
				continue
			}
			seqNo := binary.BigEndian.Uint16(pkt[0:2])
			timestamp := binary.BigEndian.Uint32(pkt[2:6])
			if err := g.sseEngine().RxPacket(seqNo, timestamp, pkt[6:]); err != nil {
				log.Debugf("dropping malformed sse packet: %v", err)
				g.stats.UpdateCounterBy("v150gw.sse.rx_errors", 1)
			}
		default:
			log.Debugf("dropping packet with unknown demux byte 0x%02x", buf[0])
		}
	}
}

func (g *gateway) sprtEngine() *sprt.Engine { return g.engine.SPRTEngine() }
func (g *gateway) sseEngine() *sse.Engine   { return g.engine.SSEEngine() }

func (g *gateway) txSPRT(pkt []byte) error { return g.send(demuxSPRT, pkt) }
func (g *gateway) txSSE(repeat bool, pkt []byte) error {
	if repeat {
		g.stats.UpdateCounterBy("v150gw.sse.resends", 1)
	}
	framed := make([]byte, 6+len(pkt))
	binary.BigEndian.PutUint16(framed[0:2], g.sseTxSeqNo)
	binary.BigEndian.PutUint32(framed[2:6], uint32(nowMicros()))
	copy(framed[6:], pkt)
	if !repeat {
		g.sseTxSeqNo++
	}
	return g.send(demuxSSE, framed)
}

func (g *gateway) send(demux byte, pkt []byte) error {
	buf := make([]byte, 1+len(pkt))
	buf[0] = demux
	copy(buf[1:], pkt)
	_, err := g.conn.WriteToUDP(buf, g.remote)
	return err
}

func (g *gateway) deliverSPRT(channel sprt.Channel, seqNo uint16, payload []byte) error {
	return g.engine.ProcessRxMsg(channel, payload)
}

func (g *gateway) deliverSSE(pkt sse.Packet) {
	log.Debugf("sse event delivered: %s", pkt.Event)
}

// deliverOctet forwards decoded information-stream payload to the DTE
// bridge, if one is attached. With no DTE configured, decoded payload is
// simply dropped; nothing in this harness reads it another way.
func (g *gateway) deliverOctet(payload []byte, dlci int, fill int) {
	if g.dte != nil {
		g.dte.deliver(payload, dlci, fill)
	}
}

func (g *gateway) reportSPRTStatus(s sprt.Status) {
	if s == sprt.StatusExcessRetries {
		g.stats.UpdateCounterBy("v150gw.sprt.excess_retries", 1)
	}
	log.Debugf("sprt status: %s", s)
}

func (g *gateway) reportSSEStatus(s sse.Status) {
	log.Debugf("sse status: %s", s)
}

func (g *gateway) reportV150Status(s v150.Status) {
	g.stats.UpdateCounterBy(fmt.Sprintf("v150gw.v150.%s", s.Reason), 1)
	log.Infof("v150 status: %+v", s)
}

func (g *gateway) armSPRTTimer(deadline sprt.Timestamp) sprt.Timestamp {
	return sprt.Timestamp(g.sprtTimer.arm(uint64(deadline)))
}

func (g *gateway) armSSETimer(deadline sse.Timestamp) sse.Timestamp {
	return sse.Timestamp(g.sseTimer.arm(uint64(deadline)))
}

// wallClockTimer adapts one engine's abstract microsecond TimerFunc onto
// time.AfterFunc and the wall clock.
type wallClockTimer struct {
	mu     sync.Mutex
	timer  *time.Timer
	expire func(now uint64)
}

func nowMicros() uint64 { return uint64(time.Now().UnixMicro()) }

func (w *wallClockTimer) arm(deadline uint64) uint64 {
	now := nowMicros()
	if deadline == ^uint64(0) {
		// The engines' "what time is it" query: leave the armed timer alone.
		return now
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
	if deadline != 0 {
		var d time.Duration
		if deadline > now {
			d = time.Duration(deadline-now) * time.Microsecond
		}
		w.timer = time.AfterFunc(d, func() { w.expire(nowMicros()) })
	}
	return now
}
