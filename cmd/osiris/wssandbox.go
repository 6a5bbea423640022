package main

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/osiris-data/osiris/internal/builtins"
	"github.com/osiris-data/osiris/internal/driver"
	"github.com/osiris-data/osiris/internal/remoteproxy"
)

// websocketSandbox runs the worker in-process behind a loopback HTTP
// server and speaks the remote proxy's RPC protocol over a websocket
// connection rather than a subprocess's piped stdio. It demonstrates the
// "sandbox-provided channel" alternative to subprocessSandbox: any
// transport that yields an io.ReadWriter satisfies execadapter.Sandbox
// identically.
type websocketSandbox struct{}

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

func (websocketSandbox) Launch(ctx context.Context) (io.ReadWriter, func() error, error) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, nil, err
	}

	drivers := driver.NewRegistry()
	drivers.Register(builtins.CSVExtractor{})
	drivers.Register(builtins.CSVWriter{})

	mux := http.NewServeMux()
	mux.HandleFunc("/worker", func(w http.ResponseWriter, r *http.Request) {
		conn, err := wsUpgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		worker := remoteproxy.NewWorker(remoteproxy.NewWebSocketConn(conn), drivers)
		_ = worker.Serve(r.Context())
	})

	server := &http.Server{Handler: mux}
	go server.Serve(ln)

	dialURL := fmt.Sprintf("ws://%s/worker", ln.Addr().String())
	clientConn, _, err := websocket.DefaultDialer.DialContext(ctx, dialURL, nil)
	if err != nil {
		_ = server.Close()
		return nil, nil, err
	}

	teardown := func() error {
		closeErr := clientConn.Close()
		_ = server.Close()
		return closeErr
	}
	return remoteproxy.NewWebSocketConn(clientConn), teardown, nil
}
