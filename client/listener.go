package client

import (
	"context"
	"strings"
	"sync"

	"github.com/gorilla/websocket"
)

// pushEvent mirrors the frames the server's hub emits
type pushEvent struct {
	Event string `json:"event"`
	Data  struct {
		URL string `json:"url"`
	} `json:"data"`
}

// Listener is the client end of the gallery push channel. Each
// uploadComplete event appends to the gallery without a re-fetch.
// Delivery is best-effort: a dropped connection just means missed
// events until the next full Load
type Listener struct {
	conn *websocket.Conn

	once sync.Once
	done chan struct{}
}

// Listen dials the push channel with this client's session cookie and
// feeds events into the gallery until Close is called or the connection
// drops
func (c *Client) Listen(ctx context.Context, g *Gallery) (*Listener, error) {
	wsURL := strings.Replace(c.base, "http", "ws", 1) + "/ws"

	dialer := websocket.Dialer{Jar: c.http.Jar}

	conn, resp, err := dialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return nil, err
	}
	if resp != nil {
		resp.Body.Close()
	}

	l := &Listener{
		conn: conn,
		done: make(chan struct{}),
	}

	go func() {
		defer close(l.done)

		for {
			var ev pushEvent
			if err := conn.ReadJSON(&ev); err != nil {
				return
			}

			if ev.Event == "uploadComplete" && ev.Data.URL != "" {
				g.Append(ev.Data.URL)
			}
		}
	}()

	return l, nil
}

// Close tears down the connection. Safe to call more than once
func (l *Listener) Close() error {
	var err error
	l.once.Do(func() {
		err = l.conn.Close()
	})

	<-l.done
	return err
}
