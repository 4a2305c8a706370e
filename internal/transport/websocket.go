package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"botkit/internal/bot"
	"botkit/internal/chat"
	"botkit/internal/domain"
)

// wireMessage is the JSON frame exchanged with WebSocket clients.
type wireMessage struct {
	Type  string `json:"type"` // "message" | "join" | "status"
	From  string `json:"from,omitempty"`
	To    string `json:"to,omitempty"`
	Group string `json:"group,omitempty"`
	Text  string `json:"text,omitempty"`
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// WebSocket is the "websocket" chat service: a local server where each
// connected client is a user and groups are rooms clients join with a
// "join" frame. Direct targets are client usernames; the bot is implicitly
// a member of every room, so Join only has to create the room. Params:
// "addr" (default :8081), "path" (default /ws).
type WebSocket struct {
	*chat.Chat

	addr   string
	path   string
	server *http.Server

	mu      sync.RWMutex
	clients map[string]*wsClient       // username -> connection
	rooms   map[string]map[string]bool // group -> usernames
	bound   net.Addr
}

type wsClient struct {
	conn *websocket.Conn
	user string
	mu   sync.Mutex
}

func (c *wsClient) send(msg wireMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

func NewWebSocket(b *bot.Bot, name string, params bot.Params) (domain.Service, error) {
	w := &WebSocket{
		addr:    params.StringOr("addr", ":8081"),
		path:    params.StringOr("path", "/ws"),
		clients: make(map[string]*wsClient),
		rooms:   make(map[string]map[string]bool),
	}
	w.Chat = chat.New(chat.Config{
		Name:      name,
		Transport: w,
		Logger:    b.Logger().With("chat", name),
	})
	return w, nil
}

func (w *WebSocket) Init(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc(w.path, w.handleUpgrade)

	ln, err := net.Listen("tcp", w.addr)
	if err != nil {
		return fmt.Errorf("websocket listen on %s: %w", w.addr, err)
	}
	w.bound = ln.Addr()

	w.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		if err := w.server.Serve(ln); err != nil && err != http.ErrServerClosed {
			w.Logger().Error("websocket server stopped", "err", err)
		}
	}()

	w.Logger().Info("websocket server listening", "addr", w.bound.String(), "path", w.path)
	w.MarkReady()
	return nil
}

// Addr returns the bound listen address, useful when addr was ":0".
func (w *WebSocket) Addr() net.Addr { return w.bound }

func (w *WebSocket) handleUpgrade(rw http.ResponseWriter, r *http.Request) {
	user := r.URL.Query().Get("user")
	if user == "" {
		http.Error(rw, "user query parameter required", http.StatusBadRequest)
		return
	}

	conn, err := upgrader.Upgrade(rw, r, nil)
	if err != nil {
		w.Logger().Error("websocket upgrade failed", "err", err)
		return
	}

	client := &wsClient{conn: conn, user: user}
	w.mu.Lock()
	w.clients[user] = client
	w.mu.Unlock()

	w.Logger().Info("websocket client connected", "user", user)
	client.send(wireMessage{Type: "status", Text: "connected"})

	defer func() {
		w.mu.Lock()
		delete(w.clients, user)
		for _, members := range w.rooms {
			delete(members, user)
		}
		w.mu.Unlock()
		conn.Close()
		w.Logger().Info("websocket client disconnected", "user", user)
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				w.Logger().Error("websocket read error", "user", user, "err", err)
			}
			return
		}

		var msg wireMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			w.Logger().Warn("invalid websocket frame", "user", user, "err", err)
			continue
		}

		switch msg.Type {
		case "join":
			w.addToRoom(msg.Group, user)
			client.send(wireMessage{Type: "status", Group: msg.Group, Text: "joined"})

		case "message":
			w.ResendMessage(domain.Message{
				Chat:  w,
				From:  domain.Identity{Username: user},
				Group: msg.Group,
				Text:  msg.Text,
			})
		}
	}
}

func (w *WebSocket) addToRoom(group, user string) {
	if group == "" {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.rooms[group] == nil {
		w.rooms[group] = make(map[string]bool)
	}
	w.rooms[group][user] = true
}

func (w *WebSocket) Deliver(p domain.SendParams) error {
	if p.Group != "" {
		w.mu.RLock()
		members := w.rooms[p.Group]
		var targets []*wsClient
		for user := range members {
			if c, ok := w.clients[user]; ok {
				targets = append(targets, c)
			}
		}
		w.mu.RUnlock()

		for _, c := range targets {
			if err := c.send(wireMessage{Type: "message", Group: p.Group, Text: p.Text}); err != nil {
				w.Logger().Warn("websocket write failed", "user", c.user, "err", err)
			}
		}
		return nil
	}

	w.mu.RLock()
	client, ok := w.clients[p.To]
	w.mu.RUnlock()
	if !ok {
		return fmt.Errorf("websocket user %q not connected", p.To)
	}
	if err := client.send(wireMessage{Type: "message", To: p.To, Text: p.Text}); err != nil {
		return fmt.Errorf("websocket send to %s: %w", p.To, err)
	}
	return nil
}

func (w *WebSocket) Join(group string, id domain.Identity) error {
	if group == "" {
		return fmt.Errorf("websocket join: empty group name")
	}
	w.mu.Lock()
	if w.rooms[group] == nil {
		w.rooms[group] = make(map[string]bool)
	}
	w.mu.Unlock()
	return nil
}

func (w *WebSocket) Shutdown() error {
	if w.server != nil {
		w.closeAllClients()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := w.server.Shutdown(shutdownCtx); err != nil {
			w.Logger().Error("websocket server shutdown", "err", err)
		}
	}
	return w.Chat.Shutdown()
}

func (w *WebSocket) closeAllClients() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for user, client := range w.clients {
		client.conn.Close()
		delete(w.clients, user)
	}
}
