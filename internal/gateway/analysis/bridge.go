// Package analysis relays extra declaration files to the browser-side
// language service over a websocket.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"codelab/internal/declaration"
)

const (
	wsWriteWait = 10 * time.Second
	wsPongWait  = 60 * time.Second
	wsPingEvery = (wsPongWait * 9) / 10
	wsQueueSize = 64
)

var ErrUnknownHandle = errors.New("unknown declaration handle")

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(_ *http.Request) bool {
		return true
	},
}

type inbound struct {
	Type string `json:"type"`
}

type outbound struct {
	Type    string `json:"type"`
	ID      int    `json:"id,omitempty"`
	URI     string `json:"uri,omitempty"`
	Content string `json:"content,omitempty"`
	Message string `json:"message,omitempty"`
}

// Lib is one extra file currently held by the bridge.
type Lib struct {
	ID      int
	URI     string
	Content string
}

type client struct {
	out    chan outbound
	cancel context.CancelFunc
}

// Bridge implements declaration.Service. Registered files live on the
// server; every connected editor receives them as they change and gets the
// full set replayed when it connects.
type Bridge struct {
	gate   *declaration.Gate
	logger *slog.Logger

	mu      sync.Mutex
	nextID  int
	libs    map[int]Lib
	clients map[*client]struct{}
}

func NewBridge(gate *declaration.Gate, logger *slog.Logger) *Bridge {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bridge{
		gate:    gate,
		logger:  logger,
		libs:    make(map[int]Lib),
		clients: make(map[*client]struct{}),
	}
}

type handle struct {
	bridge *Bridge
	id     int
}

func (h handle) Dispose() error {
	return h.bridge.dispose(h.id)
}

func (b *Bridge) RegisterExtraFile(code, uri string) (declaration.Handle, error) {
	uri = strings.TrimSpace(uri)
	if uri == "" {
		return nil, fmt.Errorf("uri is required")
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	lib := Lib{ID: b.nextID, URI: uri, Content: code}
	b.libs[lib.ID] = lib
	b.broadcastLocked(outbound{Type: "addExtraLib", ID: lib.ID, URI: lib.URI, Content: lib.Content})
	return handle{bridge: b, id: lib.ID}, nil
}

func (b *Bridge) dispose(id int) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.libs[id]; !ok {
		return fmt.Errorf("%w: %d", ErrUnknownHandle, id)
	}
	delete(b.libs, id)
	b.broadcastLocked(outbound{Type: "dispose", ID: id})
	return nil
}

// Libs returns the live files ordered by registration.
func (b *Bridge) Libs() []Lib {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.libsLocked()
}

func (b *Bridge) libsLocked() []Lib {
	out := make([]Lib, 0, len(b.libs))
	for _, lib := range b.libs {
		out = append(out, lib)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// broadcastLocked never blocks. A client that cannot keep up is dropped and
// catches up through the replay when it reconnects.
func (b *Bridge) broadcastLocked(msg outbound) {
	for c := range b.clients {
		select {
		case c.out <- msg:
		default:
			b.logger.Warn("analysis client lagging, disconnecting")
			delete(b.clients, c)
			c.cancel()
		}
	}
}

func (b *Bridge) attach(cancel context.CancelFunc) *client {
	b.mu.Lock()
	defer b.mu.Unlock()
	libs := b.libsLocked()
	c := &client{out: make(chan outbound, len(libs)+wsQueueSize), cancel: cancel}
	for _, lib := range libs {
		c.out <- outbound{Type: "addExtraLib", ID: lib.ID, URI: lib.URI, Content: lib.Content}
	}
	b.clients[c] = struct{}{}
	return c
}

func (b *Bridge) detach(c *client) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.clients, c)
}

// HandleWS serves the editor connection. The editor announces readiness
// with {"type":"ready"}; the first such frame resolves the gate.
func (b *Bridge) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	if err := conn.SetReadDeadline(time.Now().Add(wsPongWait)); err != nil {
		b.logger.Warn("analysis ws set read deadline failed", "error", err)
		return
	}
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	c := b.attach(cancel)
	defer b.detach(c)

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		defer conn.Close()
		ticker := time.NewTicker(wsPingEvery)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case out := <-c.out:
				if err := conn.SetWriteDeadline(time.Now().Add(wsWriteWait)); err != nil {
					return
				}
				if err := conn.WriteJSON(out); err != nil {
					return
				}
			case <-ticker.C:
				if err := conn.SetWriteDeadline(time.Now().Add(wsWriteWait)); err != nil {
					return
				}
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}
			}
		}
	}()

	for {
		var in inbound
		if err := conn.ReadJSON(&in); err != nil {
			cancel()
			<-writerDone
			return
		}
		switch strings.ToLower(strings.TrimSpace(in.Type)) {
		case "ready":
			if b.gate != nil && b.gate.Resolve(b) {
				b.logger.Info("analysis service ready")
			}
			b.push(c, outbound{Type: "ready"})
		case "ping":
			b.push(c, outbound{Type: "pong"})
		default:
			b.push(c, outbound{Type: "error", Message: "unsupported type: " + in.Type})
		}
	}
}

func (b *Bridge) push(c *client, msg outbound) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.clients[c]; !ok {
		return
	}
	select {
	case c.out <- msg:
	default:
		delete(b.clients, c)
		c.cancel()
	}
}
