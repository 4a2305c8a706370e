package transport

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"botkit/internal/bot"
	"botkit/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
}

type recordingConsumer struct {
	mu       sync.Mutex
	messages []domain.Message
}

func (r *recordingConsumer) ReceiveMessage(m domain.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, m)
	return nil
}

func (r *recordingConsumer) snapshot() []domain.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.Message(nil), r.messages...)
}

func startWebSocket(t *testing.T) *WebSocket {
	t.Helper()
	b := bot.New(testLogger())
	svc, err := NewWebSocket(b, "ws", bot.Params{"addr": "127.0.0.1:0"})
	if err != nil {
		t.Fatal(err)
	}
	w := svc.(*WebSocket)
	if err := w.Init(context.Background()); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { w.Shutdown() })
	return w
}

func dial(t *testing.T, w *WebSocket, user string) *websocket.Conn {
	t.Helper()
	url := "ws://" + w.Addr().String() + "/ws?user=" + user
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { conn.Close() })

	// Consume the welcome status frame.
	var welcome wireMessage
	if err := readFrame(t, conn, &welcome); err != nil {
		t.Fatal(err)
	}
	if welcome.Type != "status" {
		t.Fatalf("welcome frame type = %q, want status", welcome.Type)
	}
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn, out *wireMessage) error {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		return err
	}
	return json.Unmarshal(data, out)
}

func writeFrame(t *testing.T, conn *websocket.Conn, msg wireMessage) {
	t.Helper()
	data, _ := json.Marshal(msg)
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		t.Fatal(err)
	}
}

func TestInboundFrameReachesConsumers(t *testing.T) {
	w := startWebSocket(t)
	rec := &recordingConsumer{}
	w.RegisterConsumer(rec)

	conn := dial(t, w, "alice")
	writeFrame(t, conn, wireMessage{Type: "message", Text: "hello"})

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if msgs := rec.snapshot(); len(msgs) == 1 {
			m := msgs[0]
			if m.From.Username != "alice" || m.Text != "hello" || !m.IsDirect() {
				t.Fatalf("got message %+v", m)
			}
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("consumer never received the message")
}

func TestDirectDeliveryReachesClient(t *testing.T) {
	w := startWebSocket(t)
	conn := dial(t, w, "alice")

	res, err := w.SendMessage(domain.SendParams{To: "alice", Text: "hi there"})
	if err != nil {
		t.Fatal(err)
	}
	if res.State != domain.SendSent {
		t.Fatalf("state = %v, want sent", res.State)
	}

	var frame wireMessage
	if err := readFrame(t, conn, &frame); err != nil {
		t.Fatal(err)
	}
	if frame.Type != "message" || frame.Text != "hi there" {
		t.Fatalf("got frame %+v", frame)
	}
}

func TestGroupDeliveryReachesRoomMembersOnly(t *testing.T) {
	w := startWebSocket(t)
	alice := dial(t, w, "alice")
	bob := dial(t, w, "bob")

	writeFrame(t, alice, wireMessage{Type: "join", Group: "#ops"})
	var joined wireMessage
	if err := readFrame(t, alice, &joined); err != nil {
		t.Fatal(err)
	}
	if joined.Text != "joined" {
		t.Fatalf("join ack = %+v", joined)
	}

	res, err := w.SendMessage(domain.SendParams{Group: "#ops", Text: "deploy done"})
	if err != nil {
		t.Fatal(err)
	}
	if res.State != domain.SendSent {
		t.Fatalf("state = %v, want sent", res.State)
	}

	var frame wireMessage
	if err := readFrame(t, alice, &frame); err != nil {
		t.Fatal(err)
	}
	if frame.Group != "#ops" || frame.Text != "deploy done" {
		t.Fatalf("got frame %+v", frame)
	}

	// Bob never joined the room and must see nothing.
	bob.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
	if _, _, err := bob.ReadMessage(); err == nil {
		t.Fatal("bob received a frame for a room he is not in")
	}
}

func TestDirectDeliveryToUnknownUserFails(t *testing.T) {
	w := startWebSocket(t)

	res, err := w.SendMessage(domain.SendParams{To: "nobody", Text: "hi"})
	if err == nil {
		t.Fatal("expected an error for an unknown user")
	}
	if res.State != domain.SendFailed {
		t.Fatalf("state = %v, want failed", res.State)
	}
}

func TestJoinCreatesRoom(t *testing.T) {
	w := startWebSocket(t)

	w.RequestJoin("#ops")
	if got := w.Gate().Desired(); len(got) != 1 || got[0] != "#ops" {
		t.Fatalf("desired = %v, want [#ops]", got)
	}

	w.mu.RLock()
	_, ok := w.rooms["#ops"]
	w.mu.RUnlock()
	if !ok {
		t.Fatal("room was not created")
	}
}

func TestSplitMessageChunks(t *testing.T) {
	if got := splitMessage("short", 100); len(got) != 1 {
		t.Errorf("expected 1 chunk, got %d", len(got))
	}

	long := ""
	for i := 0; i < 100; i++ {
		long += "word "
	}
	chunks := splitMessage(long, 50)
	if len(chunks) < 2 {
		t.Errorf("expected multiple chunks, got %d", len(chunks))
	}
	for i, c := range chunks {
		if len(c) > 50 {
			t.Errorf("chunk %d too long: %d", i, len(c))
		}
	}
	joined := ""
	for _, c := range chunks {
		joined += c
	}
	if joined != long {
		t.Error("chunks do not reassemble to the original message")
	}
}
