package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/camstack/camd/internal/api"
	"github.com/camstack/camd/internal/app"
	"github.com/camstack/camd/internal/camera"
	"github.com/camstack/camd/internal/control"
	"github.com/camstack/camd/internal/ctrludp"
	"github.com/camstack/camd/internal/ctrlws"
	"github.com/camstack/camd/internal/discovery"
	"github.com/camstack/camd/internal/metrics"
	"github.com/camstack/camd/internal/mjpeg"
	"github.com/camstack/camd/internal/rtsp"
	"github.com/camstack/camd/internal/signaling"
	"github.com/camstack/camd/internal/streamer"
	"github.com/camstack/camd/internal/videoudp"

	"github.com/rs/zerolog/log"
)

func main() {
	app.Init() // init config and logs

	api.Init()      // init HTTP API server
	metrics.Init()  // timing/counter sink for the host harness
	camera.Init()   // frame source + shared control state
	streamer.Init() // transport selection + loop intervals

	mjpeg.Init()     // video: chunked MJPEG over HTTP
	videoudp.Init()  // video: fragmented UDP broadcast
	rtsp.Init()      // video: RTSP/RTP over TCP
	signaling.Init() // video: WebSocket signaling stand-in

	control.Init() // control: HTTP REST
	ctrludp.Init() // control: UDP JSON
	ctrlws.Init()  // control: WebSocket JSON

	discovery.Init() // mDNS advertisement

	ctx, cancel := context.WithCancel(context.Background())
	streamer.Start(ctx) // launch video and control loops

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	cancel()
	log.Info().Msg("exit")
}
