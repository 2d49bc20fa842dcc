// Package stream serves the live output over WebSocket as JPEG frames.
package stream

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"gocv.io/x/gocv"

	"webcam-lab/internal/core"
)

const writeTimeout = 2 * time.Second

type client struct {
	id       uuid.UUID
	conn     *websocket.Conn
	frames   chan []byte
	writeMux sync.Mutex
	done     chan struct{}
	once     sync.Once
}

func (c *client) close() {
	c.once.Do(func() {
		close(c.done)
		c.conn.Close()
	})
}

// offer queues a frame, replacing one the client has not picked up yet.
func (c *client) offer(frame []byte) {
	select {
	case c.frames <- frame:
		return
	default:
	}
	select {
	case <-c.frames:
	default:
	}
	select {
	case c.frames <- frame:
	default:
	}
}

// Broadcaster is a core.Sink that pushes every output frame to connected
// WebSocket viewers. Slow viewers skip frames.
type Broadcaster struct {
	mu       sync.RWMutex
	clients  map[uuid.UUID]*client
	upgrader websocket.Upgrader
	logger   *logrus.Logger
	server   *http.Server
	quality  int
}

func NewBroadcaster(logger *logrus.Logger) *Broadcaster {
	return &Broadcaster{
		clients: make(map[uuid.UUID]*client),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		logger:  logger,
		quality: 80,
	}
}

// Clients returns the number of connected viewers.
func (b *Broadcaster) Clients() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.clients)
}

// Handler serves the viewer page on / and the frame socket on /ws.
func (b *Broadcaster) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", b.serveWS)
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(viewerPage))
	})
	return mux
}

// Put encodes the frame once and queues it for every viewer. Nothing is
// encoded while nobody is watching.
func (b *Broadcaster) Put(out core.Output) error {
	if b.Clients() == 0 || out.Frame.Empty() {
		return nil
	}

	buf, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, out.Frame, []int{int(gocv.IMWriteJpegQuality), b.quality})
	if err != nil {
		return fmt.Errorf("encode frame: %w", err)
	}
	data := append([]byte(nil), buf.GetBytes()...)
	buf.Close()

	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, c := range b.clients {
		c.offer(data)
	}
	return nil
}

func (b *Broadcaster) serveWS(w http.ResponseWriter, r *http.Request) {
	conn, err := b.upgrader.Upgrade(w, r, nil)
	if err != nil {
		b.logger.WithError(err).Warn("WebSocket upgrade failed")
		return
	}

	c := &client{
		id:     uuid.New(),
		conn:   conn,
		frames: make(chan []byte, 1),
		done:   make(chan struct{}),
	}
	b.mu.Lock()
	b.clients[c.id] = c
	count := len(b.clients)
	b.mu.Unlock()

	b.logger.WithFields(logrus.Fields{
		"client":  c.id.String(),
		"remote":  r.RemoteAddr,
		"clients": count,
	}).Info("Stream viewer connected")

	go b.readLoop(c)
	b.writeLoop(c)
	b.remove(c)
}

// readLoop drains control frames and notices when the viewer goes away.
func (b *Broadcaster) readLoop(c *client) {
	defer c.close()
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (b *Broadcaster) writeLoop(c *client) {
	for {
		select {
		case <-c.done:
			return
		case frame := <-c.frames:
			c.writeMux.Lock()
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			err := c.conn.WriteMessage(websocket.BinaryMessage, frame)
			c.writeMux.Unlock()
			if err != nil {
				b.logger.WithError(err).WithField("client", c.id.String()).Debug("Stream write failed")
				c.close()
				return
			}
		}
	}
}

func (b *Broadcaster) remove(c *client) {
	c.close()
	b.mu.Lock()
	delete(b.clients, c.id)
	count := len(b.clients)
	b.mu.Unlock()
	b.logger.WithFields(logrus.Fields{
		"client":  c.id.String(),
		"clients": count,
	}).Info("Stream viewer disconnected")
}

// ListenAndServe binds addr and serves in the background. It returns the
// bound address, which differs from addr when addr uses port 0.
func (b *Broadcaster) ListenAndServe(addr string) (string, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return "", fmt.Errorf("listen %s: %w", addr, err)
	}

	b.mu.Lock()
	b.server = &http.Server{Handler: b.Handler(), ReadHeaderTimeout: 5 * time.Second}
	srv := b.server
	b.mu.Unlock()

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			b.logger.WithError(err).Error("Stream server stopped")
		}
	}()
	b.logger.WithField("addr", ln.Addr().String()).Info("Stream server listening")
	return ln.Addr().String(), nil
}

// Shutdown stops the server and disconnects every viewer. It is safe to call
// when the server was never started.
func (b *Broadcaster) Shutdown(ctx context.Context) error {
	b.mu.Lock()
	srv := b.server
	b.server = nil
	clients := make([]*client, 0, len(b.clients))
	for _, c := range b.clients {
		clients = append(clients, c)
	}
	b.mu.Unlock()

	for _, c := range clients {
		c.close()
	}
	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}

const viewerPage = `<!DOCTYPE html>
<html>
<head>
    <title>webcam-lab</title>
</head>
<body style="margin:0;background:#111">
    <img id="frame" style="display:block;margin:auto;max-width:100%">
    <script>
        const img = document.getElementById("frame");
        const ws = new WebSocket("ws://" + location.host + "/ws");
        ws.binaryType = "blob";
        ws.onmessage = (e) => {
            const url = URL.createObjectURL(e.data);
            img.onload = () => URL.revokeObjectURL(url);
            img.src = url;
        };
    </script>
</body>
</html>`
