package signaling

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/camstack/camd/internal/camera"
	"github.com/gorilla/websocket"
	"github.com/pion/sdp/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	camera.Init()
	Init()
	m.Run()
}

func TestAnswerSDP(t *testing.T) {
	var sd sdp.SessionDescription
	require.NoError(t, sd.Unmarshal([]byte(answerSDP())))

	group, ok := sd.Attribute("group")
	require.True(t, ok)
	assert.Equal(t, "BUNDLE video", group)

	require.Len(t, sd.MediaDescriptions, 1)
	m := sd.MediaDescriptions[0]
	assert.Equal(t, "video", m.MediaName.Media)
	assert.Equal(t, []string{"UDP", "TLS", "RTP", "SAVPF"}, m.MediaName.Protos)

	attrs := map[string]string{}
	for _, a := range m.Attributes {
		attrs[a.Key] = a.Value
	}
	assert.Equal(t, "video", attrs["mid"])
	assert.Equal(t, "active", attrs["setup"])
	assert.True(t, strings.HasPrefix(attrs["fingerprint"], "sha-256 "))
	assert.Contains(t, attrs, "sendonly")
	assert.Contains(t, attrs, "ice-ufrag")
	assert.Contains(t, attrs, "ice-pwd")
}

func dialWS(t *testing.T, tr *transport) *websocket.Conn {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(tr.handleWS))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	return conn
}

func TestSignalingSession(t *testing.T) {
	tr := new(transport)
	conn := dialWS(t, tr)

	require.NoError(t, conn.WriteJSON(Message{Type: "offer", SDP: "v=0\r\n"}))

	var msg Message
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "answer", msg.Type)
	assert.Contains(t, msg.SDP, "m=video")

	require.NoError(t, conn.WriteJSON(Message{Type: "ice-candidate", Candidate: "candidate:0"}))
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "ice-ack", msg.Type)

	// the offer already moved the session to streaming: one tick pushes
	// one frame as a binary message
	tr.Tick()

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	typ, data, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, websocket.BinaryMessage, typ)
	require.Greater(t, len(data), 2)
	assert.Equal(t, []byte{0xFF, 0xD8}, data[:2], "expected a JPEG frame")
}

// TestDisconnectResetsSession: once the client is gone the read loop
// must exit through the cleanup path and reset the session, so the
// video loop stops pushing.
func TestDisconnectResetsSession(t *testing.T) {
	tr := new(transport)
	conn := dialWS(t, tr)

	require.NoError(t, conn.WriteJSON(Message{Type: "offer", SDP: "v=0\r\n"}))

	var msg Message
	require.NoError(t, conn.ReadJSON(&msg))
	require.Equal(t, "answer", msg.Type)

	state := func() sessionState {
		tr.mu.Lock()
		defer tr.mu.Unlock()
		return tr.state
	}

	waitFor(t, func() bool { return state() == stateConnected })

	require.NoError(t, conn.Close())

	waitFor(t, func() bool { return state() == stateDisconnected })

	tr.mu.Lock()
	assert.Nil(t, tr.conn)
	assert.Empty(t, tr.clientID)
	tr.mu.Unlock()
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		require.True(t, time.Now().Before(deadline), "condition never met")
		time.Sleep(time.Millisecond)
	}
}

func TestTickIdleWithoutOffer(t *testing.T) {
	tr := new(transport)
	conn := dialWS(t, tr)

	// no offer: ticks must not push anything
	tr.Tick()
	tr.Tick()

	_ = conn.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
	_, _, err := conn.ReadMessage()
	assert.Error(t, err)
}
