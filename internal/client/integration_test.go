package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/whisper-im/whisper/internal/auth"
	"github.com/whisper-im/whisper/internal/events"
	"github.com/whisper-im/whisper/internal/models"
	"github.com/whisper-im/whisper/internal/store/memstore"
	"github.com/whisper-im/whisper/internal/ws"
)

type tokenMap map[string]string

func (m tokenMap) VerifyToken(_ context.Context, token string) (string, error) {
	if externalID, ok := m[token]; ok {
		return externalID, nil
	}
	return "", auth.ErrInvalidToken
}

func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	require.Eventually(t, cond, 3*time.Second, 10*time.Millisecond, msg)
}

// Full round trip through a real hub: presence snapshot and deltas, message
// fan-out with optimistic reconciliation, typing relay, unread marking.
func TestClientAgainstHub(t *testing.T) {
	st := memstore.New()
	alice := &models.User{ExternalID: "ext-alice", Name: "Alice"}
	bob := &models.User{ExternalID: "ext-bob", Name: "Bob"}
	require.NoError(t, st.CreateUser(context.Background(), alice))
	require.NoError(t, st.CreateUser(context.Background(), bob))
	chat, err := st.CreateChat(context.Background(), alice.ID, bob.ID)
	require.NoError(t, err)

	hub := ws.NewHub(st, tokenMap{"tok-a": alice.ExternalID, "tok-b": bob.ExternalID}, nil)
	srv := httptest.NewServer(http.HandlerFunc(hub.ServeWS))
	defer srv.Close()
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")

	a := New(wsURL)
	b := New(wsURL)
	defer a.Disconnect()
	defer b.Disconnect()

	a.Connect("tok-a")
	waitFor(t, func() bool { return a.State() == StateConnected }, "alice should connect")

	b.Connect("tok-b")
	waitFor(t, func() bool { return b.State() == StateConnected }, "bob should connect")

	// Bob's snapshot contains alice; alice learns about bob via the delta.
	waitFor(t, func() bool { return b.IsOnline(alice.ID) }, "bob should see alice online")
	waitFor(t, func() bool { return a.IsOnline(bob.ID) }, "alice should see bob online")

	// Bob is not viewing the chat; alice sends a message.
	aliceSelf := models.MessageSender{ID: alice.ID, Name: alice.Name}
	a.JoinChat(chat.ID)
	a.SendMessage(chat.ID, "hello bob", aliceSelf)

	waitFor(t, func() bool {
		list := b.Messages(chat.ID)
		return len(list) == 1 && list[0].Text == "hello bob" && !isTempID(list[0].ID)
	}, "bob should receive exactly one confirmed message")
	waitFor(t, func() bool { return b.IsUnread(chat.ID) }, "chat should be unread for bob")

	// Alice's optimistic entry is replaced by the echo.
	waitFor(t, func() bool {
		list := a.Messages(chat.ID)
		return len(list) == 1 && !isTempID(list[0].ID)
	}, "alice's optimistic entry should resolve")

	// Opening the chat clears bob's unread marker.
	b.JoinChat(chat.ID)
	require.False(t, b.IsUnread(chat.ID))

	// Typing round trip.
	a.SendTyping(chat.ID, true)
	waitFor(t, func() bool {
		userID, ok := b.TypingUser(chat.ID)
		return ok && userID == alice.ID
	}, "bob should see alice typing")

	a.SendTyping(chat.ID, false)
	waitFor(t, func() bool {
		_, ok := b.TypingUser(chat.ID)
		return !ok
	}, "typing indicator should clear")
}

func TestClientSendToForeignChatRollsBack(t *testing.T) {
	st := memstore.New()
	alice := &models.User{ExternalID: "ext-alice", Name: "Alice"}
	bob := &models.User{ExternalID: "ext-bob", Name: "Bob"}
	mallory := &models.User{ExternalID: "ext-mallory", Name: "Mallory"}
	require.NoError(t, st.CreateUser(context.Background(), alice))
	require.NoError(t, st.CreateUser(context.Background(), bob))
	require.NoError(t, st.CreateUser(context.Background(), mallory))
	chat, err := st.CreateChat(context.Background(), alice.ID, bob.ID)
	require.NoError(t, err)

	hub := ws.NewHub(st, tokenMap{"tok-m": mallory.ExternalID}, nil)
	srv := httptest.NewServer(http.HandlerFunc(hub.ServeWS))
	defer srv.Close()

	m := New("ws" + strings.TrimPrefix(srv.URL, "http"))
	defer m.Disconnect()
	m.Connect("tok-m")
	waitFor(t, func() bool { return m.State() == StateConnected }, "mallory should connect")

	m.SendMessage(chat.ID, "hi", models.MessageSender{ID: mallory.ID, Name: mallory.Name})

	waitFor(t, func() bool { return len(m.Messages(chat.ID)) == 0 }, "optimistic entry should roll back")
	waitFor(t, func() bool { return m.LastError() != "" }, "error should surface")

	messages, err := st.ListChatMessages(context.Background(), chat.ID)
	require.NoError(t, err)
	require.Empty(t, messages, "nothing may be persisted")
}

func TestReconnectRejoinsViewedChat(t *testing.T) {
	upgrader := websocket.Upgrader{}
	type recordedFrame struct {
		session int
		env     events.Envelope
	}
	var (
		mu       sync.Mutex
		sessions int
		conns    []*websocket.Conn
	)
	frames := make(chan recordedFrame, 64)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		mu.Lock()
		sessions++
		n := sessions
		conns = append(conns, conn)
		mu.Unlock()
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			var env events.Envelope
			if json.Unmarshal(data, &env) == nil {
				frames <- recordedFrame{session: n, env: env}
			}
		}
	}))
	defer srv.Close()

	next := func() recordedFrame {
		select {
		case f := <-frames:
			return f
		case <-time.After(3 * time.Second):
			t.Fatal("timed out waiting for frame")
			return recordedFrame{}
		}
	}

	s := New("ws" + strings.TrimPrefix(srv.URL, "http"))
	s.redial = 20 * time.Millisecond
	defer s.Disconnect()
	s.Connect("tok")
	waitFor(t, func() bool { return s.State() == StateConnected }, "should connect")

	s.JoinChat("chat-1")
	f := next()
	require.Equal(t, 1, f.session)
	require.Equal(t, events.TypeJoinChat, f.env.Type)

	// Sever the transport; the redialed connection must restore the viewed
	// chat's room membership without any caller action.
	mu.Lock()
	first := conns[0]
	mu.Unlock()
	first.Close()

	f = next()
	require.Equal(t, 2, f.session)
	require.Equal(t, events.TypeJoinChat, f.env.Type)
	var join events.JoinChat
	require.NoError(t, events.Decode(f.env, &join))
	require.Equal(t, "chat-1", join.ChatID)
}
