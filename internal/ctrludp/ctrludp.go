// Package ctrludp accepts JSON control commands as UDP datagrams and
// acks each applied command back to the sender. Malformed payloads are
// silently dropped - no ack, no state change.
package ctrludp

import (
	"net"

	"github.com/camstack/camd/internal/app"
	"github.com/camstack/camd/internal/camera"
	"github.com/camstack/camd/internal/metrics"
	"github.com/camstack/camd/internal/streamer"
	"github.com/rs/zerolog"
)

func Init() {
	var cfg struct {
		Mod struct {
			Port int `yaml:"port"`
		} `yaml:"ctrludp"`
	}

	cfg.Mod.Port = 5001

	app.LoadConfig(&cfg)

	log = app.GetLogger("ctrludp")

	port = cfg.Mod.Port

	streamer.RegisterControl("udp", func() streamer.Transport {
		return new(transport)
	})
}

var log zerolog.Logger

var port int

// ack sent for every applied command, same shape on all transports.
const ack = `{"status":"ok","received":true}`

type packet struct {
	data []byte
	addr *net.UDPAddr
}

type transport struct {
	conn    *net.UDPConn
	packets chan packet
}

func (t *transport) Name() string { return "udp" }

func (t *transport) Start() error {
	conn, err := net.ListenUDP("udp4", &net.UDPAddr{Port: port})
	if err != nil {
		return err
	}
	t.conn = conn
	t.packets = make(chan packet, 16)

	go t.read()

	log.Info().Int("port", port).Msg("[ctrludp] listen")
	return nil
}

func (t *transport) read() {
	buf := make([]byte, 256)
	for {
		n, addr, err := t.conn.ReadFromUDP(buf)
		if err != nil {
			close(t.packets)
			return
		}

		data := make([]byte, n)
		copy(data, buf[:n])

		select {
		case t.packets <- packet{data: data, addr: addr}:
		default:
			// control loop is behind, drop rather than block the reader
		}
	}
}

// Tick drains pending datagrams, then applies hardware effects.
func (t *transport) Tick() {
	for {
		select {
		case pkt, ok := <-t.packets:
			if !ok {
				return
			}
			t.process(pkt)
		default:
			camera.ApplyEffects()
			return
		}
	}
}

func (t *transport) process(pkt packet) {
	defer metrics.Time("control_process")()

	if err := camera.PTZ().ApplyJSON(pkt.data); err != nil {
		log.Debug().Err(err).Str("from", pkt.addr.String()).Msg("[ctrludp] drop")
		return
	}

	metrics.Count("control_commands", 1)

	if _, err := t.conn.WriteToUDP([]byte(ack), pkt.addr); err != nil {
		log.Warn().Err(err).Msg("[ctrludp] ack")
	}
}

func (t *transport) Close() error {
	return t.conn.Close()
}
