// SPDX-License-Identifier: MIT
package transport

import (
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"spectro/internal/log"
)

const (
	broadcastQueue = 256
	writeTimeout   = 5 * time.Second
)

// WebSocketTransport broadcasts messages as JSON to every client connected
// to /ws. A full queue drops messages rather than blocking the sender.
type WebSocketTransport struct {
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*websocket.Conn]struct{}
	closed  bool
	welcome func() []any

	broadcast chan any
	dropped   int64
	done      chan struct{}

	listener net.Listener
	server   *http.Server
}

var _ Transport = (*WebSocketTransport)(nil)

// NewWebSocketTransport returns a transport that is not yet listening. Use
// Handler to mount it on an existing server, or Listen to serve it.
func NewWebSocketTransport() *WebSocketTransport {
	wst := &WebSocketTransport{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		clients:   make(map[*websocket.Conn]struct{}),
		broadcast: make(chan any, broadcastQueue),
		done:      make(chan struct{}),
	}
	go wst.handleBroadcasts()
	return wst
}

// Listen serves the transport on addr ("host:port"; port 0 picks one).
func (wst *WebSocketTransport) Listen(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	wst.listener = ln
	wst.server = &http.Server{Handler: wst.Handler(), ReadHeaderTimeout: 10 * time.Second}

	go func() {
		log.Infof("WebSocketTransport: serving on ws://%s/ws", ln.Addr())
		if err := wst.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Errorf("WebSocketTransport: server error: %v", err)
		}
	}()
	return nil
}

// Addr returns the listening address, or nil before Listen.
func (wst *WebSocketTransport) Addr() net.Addr {
	if wst.listener == nil {
		return nil
	}
	return wst.listener.Addr()
}

// Handler returns the HTTP handler that accepts clients on /ws.
func (wst *WebSocketTransport) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", wst.handleWebSocket)
	return mux
}

// OnConnect sets a function whose messages are written to each new client
// before it receives broadcasts, e.g. the tiles rendered so far.
func (wst *WebSocketTransport) OnConnect(fn func() []any) {
	wst.mu.Lock()
	wst.welcome = fn
	wst.mu.Unlock()
}

func (wst *WebSocketTransport) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := wst.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warnf("WebSocketTransport: upgrade error: %v", err)
		return
	}

	wst.mu.Lock()
	welcome := wst.welcome
	wst.mu.Unlock()
	if welcome != nil {
		// The client is not registered yet, so nothing else writes to conn.
		for _, msg := range welcome() {
			conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteJSON(msg); err != nil {
				log.Warnf("WebSocketTransport: error greeting client: %v", err)
				conn.Close()
				return
			}
		}
	}

	wst.mu.Lock()
	if wst.closed {
		wst.mu.Unlock()
		conn.Close()
		return
	}
	wst.clients[conn] = struct{}{}
	total := len(wst.clients)
	wst.mu.Unlock()
	log.Infof("WebSocketTransport: client %s connected, total: %d", conn.RemoteAddr(), total)

	// Viewers never send; a read error means the client went away.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				wst.drop(conn)
				return
			}
		}
	}()
}

func (wst *WebSocketTransport) drop(conn *websocket.Conn) {
	wst.mu.Lock()
	_, ok := wst.clients[conn]
	delete(wst.clients, conn)
	total := len(wst.clients)
	wst.mu.Unlock()
	conn.Close()
	if ok {
		log.Infof("WebSocketTransport: client disconnected, total: %d", total)
	}
}

func (wst *WebSocketTransport) handleBroadcasts() {
	for {
		select {
		case msg := <-wst.broadcast:
			wst.mu.Lock()
			conns := make([]*websocket.Conn, 0, len(wst.clients))
			for c := range wst.clients {
				conns = append(conns, c)
			}
			wst.mu.Unlock()

			for _, c := range conns {
				c.SetWriteDeadline(time.Now().Add(writeTimeout))
				if err := c.WriteJSON(msg); err != nil {
					log.Warnf("WebSocketTransport: error sending to client: %v", err)
					wst.drop(c)
				}
			}
		case <-wst.done:
			return
		}
	}
}

// Clients returns the number of connected clients.
func (wst *WebSocketTransport) Clients() int {
	wst.mu.Lock()
	defer wst.mu.Unlock()
	return len(wst.clients)
}

// Dropped returns how many messages were discarded because the queue was
// full.
func (wst *WebSocketTransport) Dropped() int64 {
	wst.mu.Lock()
	defer wst.mu.Unlock()
	return wst.dropped
}

// Send queues msg for all clients.
func (wst *WebSocketTransport) Send(msg any) error {
	wst.mu.Lock()
	closed := wst.closed
	wst.mu.Unlock()
	if closed {
		return errors.New("transport: websocket transport closed")
	}

	select {
	case wst.broadcast <- msg:
	default:
		wst.mu.Lock()
		wst.dropped++
		wst.mu.Unlock()
		log.Debugf("WebSocketTransport: queue full, dropping %T", msg)
	}
	return nil
}

// Close disconnects every client and stops the server.
func (wst *WebSocketTransport) Close() error {
	wst.mu.Lock()
	if wst.closed {
		wst.mu.Unlock()
		return nil
	}
	wst.closed = true
	for c := range wst.clients {
		c.Close()
	}
	clear(wst.clients)
	wst.mu.Unlock()
	close(wst.done)

	log.Infof("WebSocketTransport: closed")
	if wst.server != nil {
		return wst.server.Close()
	}
	return nil
}
