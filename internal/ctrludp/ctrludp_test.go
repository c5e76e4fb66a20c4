package ctrludp

import (
	"net"
	"testing"
	"time"

	"github.com/camstack/camd/internal/camera"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	camera.Init()
	Init()
	m.Run()
}

func TestCommandAck(t *testing.T) {
	port = 0 // ephemeral

	tr := new(transport)
	require.NoError(t, tr.Start())
	defer tr.Close()

	server := tr.conn.LocalAddr().(*net.UDPAddr)
	client, err := net.DialUDP("udp4", nil, &net.UDPAddr{
		IP:   net.IPv4(127, 0, 0, 1),
		Port: server.Port,
	})
	require.NoError(t, err)
	defer client.Close()

	_, err = client.Write([]byte(`{"led":true,"pan":30}`))
	require.NoError(t, err)

	// the reader goroutine queues the datagram, a tick applies it
	buf := make([]byte, 64)
	deadline := time.Now().Add(2 * time.Second)
	for {
		tr.Tick()
		_ = client.SetReadDeadline(time.Now().Add(10 * time.Millisecond))
		n, err := client.Read(buf)
		if err == nil {
			assert.JSONEq(t, ack, string(buf[:n]))
			break
		}
		require.True(t, time.Now().Before(deadline), "no ack received")
	}

	state := camera.PTZ().Snapshot()
	assert.True(t, state.Led)
	assert.Equal(t, 30, state.Pan)
}

func TestMalformedDropped(t *testing.T) {
	port = 0

	tr := new(transport)
	require.NoError(t, tr.Start())
	defer tr.Close()

	server := tr.conn.LocalAddr().(*net.UDPAddr)
	client, err := net.DialUDP("udp4", nil, &net.UDPAddr{
		IP:   net.IPv4(127, 0, 0, 1),
		Port: server.Port,
	})
	require.NoError(t, err)
	defer client.Close()

	before := camera.PTZ().Snapshot()

	_, err = client.Write([]byte(`pan=40`))
	require.NoError(t, err)

	for i := 0; i < 20; i++ {
		tr.Tick()
		time.Sleep(5 * time.Millisecond)
	}

	// no ack, no state change
	buf := make([]byte, 64)
	_ = client.SetReadDeadline(time.Now().Add(50 * time.Millisecond))
	_, err = client.Read(buf)
	assert.Error(t, err)
	assert.Equal(t, before, camera.PTZ().Snapshot())
}
