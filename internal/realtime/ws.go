package realtime

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/go-pkgz/lgr"
	"github.com/gorilla/websocket"
)

const (
	wsWriteTimeout = 10 * time.Second
	wsPongTimeout  = 60 * time.Second
	wsPingPeriod   = 45 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// ServeWS bridges the hub to a websocket client: every published event is
// forwarded as one JSON message. The connection is closed when the client
// lags behind the hub buffer, forcing it to reconnect and resync.
func ServeWS(hub *Hub, log lgr.L, w http.ResponseWriter, r *http.Request) {
	if log == nil {
		log = lgr.NoOp
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Logf("WARN websocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	sub, err := hub.Subscribe(r.Context())
	if err != nil {
		return
	}
	defer sub.Close()

	// Reader only consumes control frames; any read error ends the session.
	done := make(chan struct{})
	go func() {
		defer close(done)
		conn.SetReadDeadline(time.Now().Add(wsPongTimeout))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(wsPongTimeout))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(wsPingPeriod)
	defer ping.Stop()

	for {
		select {
		case ev, ok := <-sub.Events():
			if !ok {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := conn.WriteJSON(ev); err != nil {
				log.Logf("DEBUG websocket write failed: %v", err)
				return
			}
		case <-ping.C:
			conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}

// WSFeed subscribes to a remote hub over websocket. Each Subscribe call dials
// a fresh connection, so reconnect-after-drop is just another Subscribe.
type WSFeed struct {
	URL string
	Log lgr.L
}

func (f *WSFeed) Subscribe(ctx context.Context) (Subscription, error) {
	log := f.Log
	if log == nil {
		log = lgr.NoOp
	}

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, f.URL, nil)
	if err != nil {
		return nil, err
	}
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}

	sub := &wsSubscription{conn: conn, ch: make(chan Event, subscriptionBuffer)}
	go func() {
		defer close(sub.ch)
		for {
			var ev Event
			if err := conn.ReadJSON(&ev); err != nil {
				log.Logf("DEBUG websocket feed closed: %v", err)
				return
			}
			select {
			case sub.ch <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()
	return sub, nil
}

type wsSubscription struct {
	conn *websocket.Conn
	ch   chan Event
	once sync.Once
}

func (s *wsSubscription) Events() <-chan Event { return s.ch }

func (s *wsSubscription) Close() {
	s.once.Do(func() { s.conn.Close() })
}
