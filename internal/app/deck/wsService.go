package deck

import (
	"net/http"
	"strings"

	"bitbucket.org/airenas/slidego/internal/pkg/cmdapp"
	"bitbucket.org/airenas/slidego/internal/pkg/events"
	"github.com/gorilla/websocket"
)

// WsConn is interface for websocket connection handling
type WsConn interface {
	ReadMessage() (messageType int, p []byte, err error)
	Close() error
	WriteJSON(v interface{}) error
}

var wsUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	}}

type websocketHandler struct {
	data *ServiceData
}

func (h websocketHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	cmdapp.Log.Infof("ws request from %s", r.Host)

	c, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		cmdapp.Log.Error(err)
		return
	}
	go handleConnection(c, h.data.Bus)
}

// handleConnection reads job ids from the socket and streams the
// matching job events back. Sending a new id replaces the subscription
func handleConnection(conn WsConn, bus *events.Bus) {
	defer conn.Close()
	var unsubscribe func()
	defer func() {
		if unsubscribe != nil {
			unsubscribe()
		}
	}()
	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			cmdapp.Log.Infof("ws connection closed: %s", err)
			return
		}
		id := strings.TrimSpace(string(message))
		if id == "" {
			continue
		}
		cmdapp.Log.Infof("ws subscribe %s", id)
		if unsubscribe != nil {
			unsubscribe()
		}
		ch, u := bus.Subscribe(id)
		unsubscribe = u
		go pumpEvents(conn, ch)
	}
}

func pumpEvents(conn WsConn, ch <-chan events.Event) {
	for ev := range ch {
		if err := conn.WriteJSON(ev); err != nil {
			cmdapp.Log.Error(err)
			return
		}
	}
}
