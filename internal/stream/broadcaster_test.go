package stream

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"

	"webcam-lab/internal/core"
)

func testFrame(t *testing.T) gocv.Mat {
	t.Helper()
	frame := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(30, 90, 200, 0), 24, 32, gocv.MatTypeCV8UC3)
	t.Cleanup(func() { frame.Close() })
	return frame
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestBroadcaster_PutWithoutClientsIsNoop(t *testing.T) {
	logger, _ := test.NewNullLogger()
	b := NewBroadcaster(logger)

	assert.Equal(t, 0, b.Clients())
	assert.NoError(t, b.Put(core.Output{Frame: testFrame(t), Mode: core.ModeNormal}))
}

func TestBroadcaster_DeliversJPEGFrames(t *testing.T) {
	logger, _ := test.NewNullLogger()
	b := NewBroadcaster(logger)
	srv := httptest.NewServer(b.Handler())
	defer srv.Close()

	conn := dial(t, srv)
	require.Eventually(t, func() bool { return b.Clients() == 1 }, 2*time.Second, 10*time.Millisecond)

	frame := testFrame(t)
	require.NoError(t, b.Put(core.Output{Frame: frame, Mode: core.ModeNormal}))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	kind, data, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, websocket.BinaryMessage, kind)
	require.Greater(t, len(data), 2)
	assert.Equal(t, []byte{0xFF, 0xD8}, data[:2])

	decoded, err := gocv.IMDecode(data, gocv.IMReadColor)
	require.NoError(t, err)
	defer decoded.Close()
	assert.Equal(t, frame.Rows(), decoded.Rows())
	assert.Equal(t, frame.Cols(), decoded.Cols())
}

func TestBroadcaster_ClientDisconnectIsRemoved(t *testing.T) {
	logger, _ := test.NewNullLogger()
	b := NewBroadcaster(logger)
	srv := httptest.NewServer(b.Handler())
	defer srv.Close()

	conn := dial(t, srv)
	require.Eventually(t, func() bool { return b.Clients() == 1 }, 2*time.Second, 10*time.Millisecond)

	conn.Close()
	require.Eventually(t, func() bool { return b.Clients() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestBroadcaster_SlowClientKeepsLatestFrame(t *testing.T) {
	c := &client{frames: make(chan []byte, 1), done: make(chan struct{})}

	c.offer([]byte{1})
	c.offer([]byte{2})
	c.offer([]byte{3})

	assert.Equal(t, []byte{3}, <-c.frames)
	assert.Empty(t, c.frames)
}

func TestBroadcaster_ViewerPage(t *testing.T) {
	logger, _ := test.NewNullLogger()
	srv := httptest.NewServer(NewBroadcaster(logger).Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "/ws")

	missing, err := http.Get(srv.URL + "/nope")
	require.NoError(t, err)
	missing.Body.Close()
	assert.Equal(t, http.StatusNotFound, missing.StatusCode)
}

func TestBroadcaster_ListenAndShutdown(t *testing.T) {
	logger, _ := test.NewNullLogger()
	b := NewBroadcaster(logger)

	// Shutdown before start is allowed.
	require.NoError(t, b.Shutdown(context.Background()))

	addr, err := b.ListenAndServe("127.0.0.1:0")
	require.NoError(t, err)

	conn, _, err := websocket.DefaultDialer.Dial("ws://"+addr+"/ws", nil)
	require.NoError(t, err)
	defer conn.Close()
	require.Eventually(t, func() bool { return b.Clients() == 1 }, 2*time.Second, 10*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, b.Shutdown(ctx))
	require.Eventually(t, func() bool { return b.Clients() == 0 }, 2*time.Second, 10*time.Millisecond)
}
