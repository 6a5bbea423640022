package remoteproxy

import (
	"github.com/gorilla/websocket"
)

// wsConn adapts a *websocket.Conn, which exchanges discrete messages via
// ReadMessage/WriteMessage, into the io.ReadWriter stream writeFrame and
// readFrame expect. Each Write becomes one binary message; Read drains
// one message at a time into an internal buffer so a caller's smaller
// reads (readFrame's length prefix, then its body) are served correctly
// regardless of how the bytes were originally framed into messages.
type wsConn struct {
	conn *websocket.Conn
	buf  []byte
}

// NewWebSocketConn wraps conn as the io.ReadWriter a Proxy or Worker
// speaks its RPC protocol over, for a sandbox reachable only over a
// network connection rather than a subprocess's piped stdio.
func NewWebSocketConn(conn *websocket.Conn) *wsConn {
	return &wsConn{conn: conn}
}

func (w *wsConn) Read(p []byte) (int, error) {
	for len(w.buf) == 0 {
		_, data, err := w.conn.ReadMessage()
		if err != nil {
			return 0, err
		}
		w.buf = data
	}
	n := copy(p, w.buf)
	w.buf = w.buf[n:]
	return n, nil
}

func (w *wsConn) Write(p []byte) (int, error) {
	if err := w.conn.WriteMessage(websocket.BinaryMessage, p); err != nil {
		return 0, err
	}
	return len(p), nil
}
