package live

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"lancehub/globals"
	"lancehub/middleware"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
)

func wsToken(t *testing.T, userID string) string {
	t.Helper()
	claims := &middleware.Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
		},
	}
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(globals.JwtSecret)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return s
}

func wsServer(hub *Hub) *httptest.Server {
	router := httprouter.New()
	router.GET("/ws/notifications", WebSocketHandler(hub))
	return httptest.NewServer(router)
}

func wsURL(srv *httptest.Server, token string) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/notifications?token=" + token
}

func TestWebSocketHandlerDeliversEvents(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	defer hub.Stop()

	srv := wsServer(hub)
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv, wsToken(t, "user1")), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	// registration races the handshake response
	time.Sleep(100 * time.Millisecond)
	hub.Broadcast("user1", []byte("hello"))

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(msg) != "hello" {
		t.Fatalf("got %s", msg)
	}
}

func TestWebSocketHandlerRejectsBadToken(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	defer hub.Stop()

	srv := wsServer(hub)
	defer srv.Close()

	_, resp, err := websocket.DefaultDialer.Dial(wsURL(srv, "garbage"), nil)
	if err == nil {
		t.Fatal("expected handshake failure")
	}
	if resp == nil || resp.StatusCode != 401 {
		t.Fatalf("expected 401 handshake response, got %+v", resp)
	}
}

func TestWebSocketHandlerClosesAfterStop(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	hub.Stop()

	srv := wsServer(hub)
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv, wsToken(t, "user1")), nil)
	if err != nil {
		// handshake failing outright is also an immediate rejection
		return
	}
	defer conn.Close()

	// the handler must drop the connection instead of parking on a
	// stopped hub's register channel
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Fatal("expected closed connection after shutdown")
	}
}
