// Package videoudp streams frames as fragmented UDP datagrams to the
// network broadcast address. Fire and forget: the receiver reassembles
// by frame/packet number and drops incomplete frames.
package videoudp

import (
	"net"
	"time"

	"github.com/camstack/camd/internal/app"
	"github.com/camstack/camd/internal/camera"
	"github.com/camstack/camd/internal/metrics"
	"github.com/camstack/camd/internal/streamer"
	"github.com/camstack/camd/pkg/fragudp"
	"github.com/rs/zerolog"
)

func Init() {
	var cfg struct {
		Mod struct {
			Port      int    `yaml:"port"`
			Broadcast string `yaml:"broadcast"`
		} `yaml:"videoudp"`
	}

	cfg.Mod.Port = 5000

	app.LoadConfig(&cfg)

	log = app.GetLogger("videoudp")

	port = cfg.Mod.Port
	broadcast = cfg.Mod.Broadcast

	streamer.RegisterVideo("udp", func() streamer.Transport {
		return new(transport)
	})
}

var log zerolog.Logger

var (
	port      int
	broadcast string
)

// packetGap spaces datagrams so a large frame does not flood the
// sender's own output queue.
const packetGap = 100 * time.Microsecond

type transport struct {
	conn *net.UDPConn
	dst  *net.UDPAddr
	frag fragudp.Fragmenter
}

func (t *transport) Name() string { return "udp" }

func (t *transport) Start() error {
	conn, err := net.ListenUDP("udp4", &net.UDPAddr{Port: port})
	if err != nil {
		return err
	}
	t.conn = conn

	addr := broadcast
	if addr == "" {
		addr = "255.255.255.255"
	}
	t.dst = &net.UDPAddr{IP: net.ParseIP(addr), Port: port}

	log.Info().Int("port", port).Str("broadcast", t.dst.IP.String()).Msg("[videoudp] listen")
	return nil
}

// Tick captures one frame and broadcasts it. A capture failure skips
// the tick - the loop's frame-interval sleep is the retry backoff, so
// there is no retry storm.
func (t *transport) Tick() {
	stop := metrics.Time("frame_capture")
	f, err := camera.Source().Acquire()
	stop()
	if err != nil {
		metrics.Count("capture_failures", 1)
		return
	}
	defer f.Release()

	stop = metrics.Time("frame_send")
	err = t.frag.Split(f.Bytes(), func(pkt []byte) error {
		if _, err := t.conn.WriteToUDP(pkt, t.dst); err != nil {
			return err
		}
		metrics.Count("packets_sent", 1)
		time.Sleep(packetGap)
		return nil
	})
	stop()

	if err != nil {
		log.Warn().Err(err).Msg("[videoudp] send")
		return
	}

	metrics.Count("frames_sent", 1)
	log.Trace().
		Uint32("frame", t.frag.FrameNumber()).
		Int("packets", fragudp.TotalPackets(f.Len())).
		Msg("[videoudp] frame sent")
}

func (t *transport) Close() error {
	return t.conn.Close()
}
