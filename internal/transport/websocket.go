package transport

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// WebSocketPeer implements Peer over WebSocket connections, one per remote
// node, dialed lazily on the first Send to that node and re-dialed on a later
// Send after the connection drops; there is no background reconnect loop.
type WebSocketPeer struct {
	selfAddr string
	bindAddr string

	connMu sync.RWMutex
	conns  map[string]*websocket.Conn

	ch       chan Message
	stopCh   chan struct{}
	wg       sync.WaitGroup
	upgrader websocket.Upgrader
	server   *http.Server
}

// NewWebSocketPeer creates a peer that listens on bindAddr and identifies
// itself to others as selfAddr.
func NewWebSocketPeer(selfAddr, bindAddr string) *WebSocketPeer {
	return &WebSocketPeer{
		selfAddr: selfAddr,
		bindAddr: bindAddr,
		conns:    make(map[string]*websocket.Conn),
		ch:       make(chan Message, 1000),
		stopCh:   make(chan struct{}),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

func (w *WebSocketPeer) Start(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/swim", w.handleIncoming)
	w.server = &http.Server{Addr: w.bindAddr, Handler: mux}

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		if err := w.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			fmt.Printf("swim websocket transport error: %v\n", err)
		}
	}()
	return nil
}

func (w *WebSocketPeer) Stop() error {
	close(w.stopCh)
	if w.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		w.server.Shutdown(ctx)
	}
	w.connMu.Lock()
	for _, c := range w.conns {
		c.Close()
	}
	w.connMu.Unlock()
	w.wg.Wait()
	return nil
}

func (w *WebSocketPeer) Receive() <-chan Message { return w.ch }

func (w *WebSocketPeer) Send(ctx context.Context, to string, msg Message) error {
	conn, err := w.dial(to)
	if err != nil {
		return err
	}
	data, err := Encode(msg)
	if err != nil {
		return fmt.Errorf("encode swim message: %w", err)
	}
	return conn.WriteMessage(websocket.TextMessage, data)
}

// dial returns a cached connection or establishes a new one on demand; the
// engine is request/response driven per protocol period, not a persistent
// fan-out, so lazy dial-on-send is sufficient (unlike the teacher's
// always-connected consensus mesh).
func (w *WebSocketPeer) dial(to string) (*websocket.Conn, error) {
	w.connMu.RLock()
	conn, ok := w.conns[to]
	w.connMu.RUnlock()
	if ok {
		return conn, nil
	}

	url := fmt.Sprintf("ws://%s/swim", to)
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		return nil, &ErrUnavailable{Target: to}
	}

	w.connMu.Lock()
	w.conns[to] = conn
	w.connMu.Unlock()

	w.wg.Add(1)
	go w.readLoop(to, conn)
	return conn, nil
}

func (w *WebSocketPeer) handleIncoming(rw http.ResponseWriter, r *http.Request) {
	conn, err := w.upgrader.Upgrade(rw, r, nil)
	if err != nil {
		return
	}
	w.wg.Add(1)
	go w.readLoop(r.RemoteAddr, conn)
}

func (w *WebSocketPeer) readLoop(peerKey string, conn *websocket.Conn) {
	defer w.wg.Done()
	defer func() {
		w.connMu.Lock()
		delete(w.conns, peerKey)
		w.connMu.Unlock()
		conn.Close()
	}()

	for {
		select {
		case <-w.stopCh:
			return
		default:
		}
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		msg, err := Decode(data)
		if err != nil {
			continue
		}
		select {
		case w.ch <- msg:
		default:
		}
	}
}
