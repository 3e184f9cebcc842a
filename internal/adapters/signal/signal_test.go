package signal

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/dkeye/Sketch/internal/app/orch"
	"github.com/dkeye/Sketch/internal/auth"
	"github.com/dkeye/Sketch/internal/config"
	"github.com/dkeye/Sketch/internal/domain"
)

const testSecret = "test-secret"

type relayServer struct {
	srv    *httptest.Server
	orch   *orch.Orchestrator
	issuer *auth.Issuer
}

func testConfig() *config.Config {
	return &config.Config{
		Mode:           "test",
		Secret:         testSecret,
		ReadLimit:      32768,
		PingPeriod:     54 * time.Second,
		PongWait:       60 * time.Second,
		WriteWait:      5 * time.Second,
		Backpressure:   "kick",
		AllowedOrigins: []string{"*"},
	}
}

func newRelayServer(t *testing.T, cfg *config.Config) *relayServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	o := orch.New()
	ctl := NewSignalWSController(o, auth.NewAuthenticator(testSecret), cfg)
	ctx, cancel := context.WithCancel(context.Background())

	r := gin.New()
	r.GET("/ws", func(c *gin.Context) { ctl.HandleSignal(ctx, c) })
	srv := httptest.NewServer(r)
	t.Cleanup(func() {
		_ = o.Shutdown(context.Background())
		cancel()
		srv.Close()
	})
	return &relayServer{srv: srv, orch: o, issuer: auth.NewIssuer(testSecret, "test")}
}

func (rs *relayServer) url(token string) string {
	return "ws" + strings.TrimPrefix(rs.srv.URL, "http") + "/ws?token=" + token
}

func (rs *relayServer) dial(t *testing.T, user string) *websocket.Conn {
	t.Helper()
	token, err := rs.issuer.Issue(domain.UserID(user), time.Hour)
	require.NoError(t, err)
	before := rs.orch.Registry.Len()
	ws, _, err := websocket.DefaultDialer.Dial(rs.url(token), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ws.Close() })
	require.Eventually(t, func() bool { return rs.orch.Registry.Len() > before }, 2*time.Second, 5*time.Millisecond)
	return ws
}

func (rs *relayServer) members(room string) int {
	r, ok := rs.orch.Rooms.Get(domain.RoomID(room))
	if !ok {
		return 0
	}
	return r.MemberCount()
}

func sendText(t *testing.T, ws *websocket.Conn, frame string) {
	t.Helper()
	require.NoError(t, ws.WriteMessage(websocket.TextMessage, []byte(frame)))
}

func readText(t *testing.T, ws *websocket.Conn) string {
	t.Helper()
	require.NoError(t, ws.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := ws.ReadMessage()
	require.NoError(t, err)
	return string(data)
}

func requireSilent(t *testing.T, ws *websocket.Conn) {
	t.Helper()
	require.NoError(t, ws.SetReadDeadline(time.Now().Add(150*time.Millisecond)))
	_, data, err := ws.ReadMessage()
	var netErr net.Error
	require.True(t, errors.As(err, &netErr) && netErr.Timeout(), "unexpected frame %q (err %v)", data, err)
}

func TestHandleSignal_RefusesBadToken(t *testing.T) {
	rs := newRelayServer(t, testConfig())

	for name, token := range map[string]string{
		"missing":   "",
		"garbage":   "not-a-jwt",
		"wrong key": mustIssue(t, auth.NewIssuer("other-secret", "x"), "alice", time.Hour),
		"expired":   mustIssue(t, rs.issuer, "alice", -time.Minute),
	} {
		t.Run(name, func(t *testing.T) {
			req := require.New(t)
			ws, _, err := websocket.DefaultDialer.Dial(rs.url(token), nil)
			req.NoError(err)
			defer ws.Close()

			req.NoError(ws.SetReadDeadline(time.Now().Add(2 * time.Second)))
			_, _, err = ws.ReadMessage()
			req.True(websocket.IsCloseError(err, websocket.ClosePolicyViolation), "got %v", err)
			req.Zero(rs.orch.Registry.Len())
			req.Empty(rs.orch.Rooms.List())
		})
	}
}

func TestHandleSignal_DrawScenario(t *testing.T) {
	req := require.New(t)
	rs := newRelayServer(t, testConfig())
	a := rs.dial(t, "alice")
	b := rs.dial(t, "bob")
	c := rs.dial(t, "carol")

	// Given A and B joined r1
	sendText(t, a, `{"type":"join-room","roomId":"r1"}`)
	sendText(t, b, `{"type":"join-room","roomId":"r1"}`)
	req.Eventually(func() bool { return rs.members("r1") == 2 }, 2*time.Second, 5*time.Millisecond)

	// When A draws
	circle := `{"type":"draw","roomId":"r1","shape":{"type":"circle","centerX":10,"centerY":10,"radius":5},"data":{}}`
	sendText(t, a, circle)

	// Then only B receives exactly that frame
	req.Equal(circle, readText(t, b))
	requireSilent(t, a)
	requireSilent(t, c)
}

func TestHandleSignal_FramesKeepOrder(t *testing.T) {
	req := require.New(t)
	rs := newRelayServer(t, testConfig())
	a := rs.dial(t, "alice")
	b := rs.dial(t, "bob")
	sendText(t, a, `{"type":"join-room","roomId":"r1"}`)
	sendText(t, b, `{"type":"join-room","roomId":"r1"}`)
	req.Eventually(func() bool { return rs.members("r1") == 2 }, 2*time.Second, 5*time.Millisecond)

	frames := []string{
		`{"type":"draw","roomId":"r1","shape":{"type":"rect","x":1,"y":1,"width":2,"height":2}}`,
		`{"type":"draw","roomId":"r1","shape":{"type":"pencil","points":[{"x":1,"y":2}]}}`,
		`{"type":"draw","roomId":"r1","shape":{"type":"eraser","x":3,"y":3}}`,
	}
	for _, f := range frames {
		sendText(t, a, f)
	}
	for _, f := range frames {
		req.Equal(f, readText(t, b))
	}
}

func TestHandleSignal_DisconnectCleansUp(t *testing.T) {
	req := require.New(t)
	rs := newRelayServer(t, testConfig())
	a := rs.dial(t, "alice")
	b := rs.dial(t, "bob")
	sendText(t, a, `{"type":"join-room","roomId":"r1"}`)
	sendText(t, a, `{"type":"join-room","roomId":"r2"}`)
	sendText(t, b, `{"type":"join-room","roomId":"r1"}`)
	req.Eventually(func() bool { return rs.members("r1") == 2 && rs.members("r2") == 1 }, 2*time.Second, 5*time.Millisecond)

	// When A's connection goes away
	req.NoError(a.Close())

	// Then A is gone from the registry and from every room, and r2 is collected
	req.Eventually(func() bool {
		_, r2 := rs.orch.Rooms.Get("r2")
		return rs.orch.Registry.Len() == 1 && rs.members("r1") == 1 && !r2
	}, 2*time.Second, 5*time.Millisecond)
}

func TestHandleSignal_UnrecognizedFramesIgnored(t *testing.T) {
	req := require.New(t)
	rs := newRelayServer(t, testConfig())
	a := rs.dial(t, "alice")

	sendText(t, a, `hello`)
	sendText(t, a, `{"type":"chat","roomId":"r1","message":"hi"}`)
	sendText(t, a, `{"type":"join-room","roomId":"r1"}`)

	req.Eventually(func() bool { return rs.members("r1") == 1 }, 2*time.Second, 5*time.Millisecond)
	requireSilent(t, a)
}

func TestHandleSignal_OversizedFrameCloses(t *testing.T) {
	req := require.New(t)
	cfg := testConfig()
	cfg.ReadLimit = 64
	rs := newRelayServer(t, cfg)
	a := rs.dial(t, "alice")

	sendText(t, a, `{"type":"draw","roomId":"r1","shape":"`+strings.Repeat("x", 256)+`"}`)

	req.Eventually(func() bool { return rs.orch.Registry.Len() == 0 }, 2*time.Second, 5*time.Millisecond)
}

func TestHandleSignal_ShutdownClosesClients(t *testing.T) {
	req := require.New(t)
	rs := newRelayServer(t, testConfig())
	a := rs.dial(t, "alice")

	req.NoError(rs.orch.Shutdown(context.Background()))

	req.NoError(a.SetReadDeadline(time.Now().Add(2 * time.Second)))
	_, _, err := a.ReadMessage()
	req.Error(err)
	var netErr net.Error
	req.False(errors.As(err, &netErr) && netErr.Timeout())
	req.Zero(rs.orch.Registry.Len())
}

func TestHandleSignal_DisallowedOrigin(t *testing.T) {
	req := require.New(t)
	cfg := testConfig()
	cfg.AllowedOrigins = []string{"https://sketch.example"}
	rs := newRelayServer(t, cfg)
	token := mustIssue(t, rs.issuer, "alice", time.Hour)

	header := http.Header{}
	header.Set("Origin", "https://evil.example")
	_, resp, err := websocket.DefaultDialer.Dial(rs.url(token), header)
	req.ErrorIs(err, websocket.ErrBadHandshake)
	req.Equal(http.StatusForbidden, resp.StatusCode)

	header.Set("Origin", "https://sketch.example")
	ws, _, err := websocket.DefaultDialer.Dial(rs.url(token), header)
	req.NoError(err)
	_ = ws.Close()
}

func mustIssue(t *testing.T, issuer *auth.Issuer, user string, ttl time.Duration) string {
	t.Helper()
	token, err := issuer.Issue(domain.UserID(user), ttl)
	require.NoError(t, err)
	return token
}
