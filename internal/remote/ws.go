package remote

import (
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/depeter/reelplayer/internal/player"
)

// Output is a message sent to websocket clients.
type Output struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

type client struct {
	id   string
	conn *websocket.Conn
	log  *logrus.Entry

	// send holds only the newest snapshot; a slow client skips stale ones.
	send    chan player.Snapshot
	replies chan Output
	done    chan struct{}
	once    sync.Once
}

func (c *client) push(s player.Snapshot) {
	for {
		select {
		case c.send <- s:
			return
		case <-c.done:
			return
		default:
		}
		select {
		case <-c.send:
		default:
		}
	}
}

func (c *client) reply(o Output) {
	select {
	case c.replies <- o:
	case <-c.done:
	}
}

func (c *client) close() {
	c.once.Do(func() {
		close(c.done)
		_ = c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
		c.conn.Close()
	})
}

func (c *client) write(o Output) error {
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteJSON(o)
}

func (c *client) writeLoop() {
	for {
		var err error
		select {
		case s := <-c.send:
			err = c.write(Output{Type: "state", Payload: stateOf(s)})
		case o := <-c.replies:
			err = c.write(o)
		case <-c.done:
			return
		}
		if err != nil {
			c.log.WithError(err).Debug("write failed")
			c.close()
			return
		}
	}
}

func (s *Server) serveWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.WithError(err).Debug("websocket upgrade")
		return
	}

	c := &client{
		id:      uuid.NewString(),
		conn:    conn,
		send:    make(chan player.Snapshot, 1),
		replies: make(chan Output, 4),
		done:    make(chan struct{}),
	}
	c.log = s.log.WithField("client", c.id)

	s.mu.Lock()
	s.clients[c.id] = c
	s.mu.Unlock()
	c.log.WithField("remote_addr", r.RemoteAddr).Info("client connected")

	c.push(s.player.Snapshot())
	unsubscribe := s.player.Subscribe(c.push)
	go c.writeLoop()

	s.readLoop(c)

	unsubscribe()
	c.close()
	s.mu.Lock()
	delete(s.clients, c.id)
	s.mu.Unlock()
	c.log.Info("client disconnected")
}

// readLoop runs commands sent by c until the connection fails.
func (s *Server) readLoop(c *client) {
	for {
		var cmd Command
		if err := c.conn.ReadJSON(&cmd); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.log.WithError(err).Debug("read failed")
			}
			return
		}
		if errs := s.run(cmd); errs != nil {
			c.reply(Output{Type: "error", Payload: errs})
		}
	}
}
