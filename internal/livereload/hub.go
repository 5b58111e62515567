// Package livereload tells connected preview clients to reload after a rebuild.
//
// Delivery is at most once and nothing is replayed: a client receives the reloads
// broadcast while it is subscribed and nothing from before.
package livereload

import (
	"io"
	"log/slog"
	"net/http"
	"sync"

	"golang.org/x/net/websocket"

	"git.home.luguber.info/inful/refsite/internal/logfields"
	"git.home.luguber.info/inful/refsite/internal/metrics"
)

// Path is the WebSocket endpoint the client script connects to.
const Path = "/__livereload"

// ReloadMessage is sent to every client on a reload.
const ReloadMessage = "reload"

// clientBuffer bounds the messages queued for one slow client before it is dropped.
const clientBuffer = 4

// Script reconnects after the preview server restarts.
const Script = `(() => {
  if (window.__REFSITE_LR__) return;
  window.__REFSITE_LR__ = true;
  function connect() {
    const proto = location.protocol === 'https:' ? 'wss://' : 'ws://';
    const ws = new WebSocket(proto + location.host + '` + Path + `');
    ws.onmessage = () => { console.log('[refsite] change detected, reloading'); location.reload(); };
    ws.onclose = () => setTimeout(connect, 2000);
  }
  connect();
})();`

// Hub fans reload notifications out to subscribed clients.
type Hub struct {
	mu       sync.Mutex
	nextID   int
	clients  map[int]chan string
	closed   bool
	recorder metrics.Recorder
}

// NewHub creates an empty Hub.
func NewHub() *Hub {
	return &Hub{clients: map[int]chan string{}, recorder: metrics.NoopRecorder{}}
}

// WithRecorder sets the metrics recorder.
func (h *Hub) WithRecorder(r metrics.Recorder) *Hub {
	if r != nil {
		h.recorder = r
	}
	return h
}

// Subscribe registers a client. The returned channel is closed when the client is
// unsubscribed, dropped for falling behind, or the hub shuts down. After Shutdown the
// channel is returned closed.
func (h *Hub) Subscribe() (<-chan string, func()) {
	ch := make(chan string, clientBuffer)
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		close(ch)
		return ch, func() {}
	}
	id := h.nextID
	h.nextID++
	h.clients[id] = ch
	h.recorder.SetLiveReloadClients(len(h.clients))
	return ch, func() { h.remove(id) }
}

func (h *Hub) remove(id int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if ch, ok := h.clients[id]; ok {
		delete(h.clients, id)
		close(ch)
		h.recorder.SetLiveReloadClients(len(h.clients))
	}
}

// Clients returns the number of subscribed clients.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Broadcast sends msg to every current subscriber without blocking. Clients whose queue
// is full are dropped. It returns the number of clients the message was queued for.
func (h *Hub) Broadcast(msg string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return 0
	}
	delivered, dropped := 0, 0
	for id, ch := range h.clients {
		select {
		case ch <- msg:
			delivered++
		default:
			delete(h.clients, id)
			close(ch)
			dropped++
		}
	}
	h.recorder.IncReloadBroadcast(delivered)
	h.recorder.SetLiveReloadClients(len(h.clients))
	slog.Debug("Live reload broadcast", logfields.Clients(delivered), slog.Int("dropped", dropped))
	return delivered
}

// Reload broadcasts ReloadMessage.
func (h *Hub) Reload() int {
	return h.Broadcast(ReloadMessage)
}

// Shutdown disconnects every client and ignores later broadcasts.
func (h *Hub) Shutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for id, ch := range h.clients {
		delete(h.clients, id)
		close(ch)
	}
	h.recorder.SetLiveReloadClients(0)
}

// Handler serves the WebSocket endpoint.
func (h *Hub) Handler() http.Handler {
	return websocket.Handler(h.serveConn)
}

func (h *Hub) serveConn(ws *websocket.Conn) {
	defer func() { _ = ws.Close() }()

	msgs, unsubscribe := h.Subscribe()
	defer unsubscribe()
	slog.Debug("Live reload client connected", logfields.Clients(h.Clients()))

	// Clients never send; reading only detects the disconnect.
	gone := make(chan struct{})
	go func() {
		_, _ = io.Copy(io.Discard, ws)
		close(gone)
	}()

	for {
		select {
		case msg, ok := <-msgs:
			if !ok {
				return
			}
			if err := websocket.Message.Send(ws, msg); err != nil {
				slog.Debug("Live reload send failed", logfields.Error(err))
				return
			}
		case <-gone:
			return
		}
	}
}
