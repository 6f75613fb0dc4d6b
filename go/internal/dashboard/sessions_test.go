package dashboard

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
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soubeek/epn-solutions/go/internal/models"
	"github.com/soubeek/epn-solutions/go/internal/realtime/channel"
	"github.com/soubeek/epn-solutions/go/internal/realtime/protocol"
)

type wsServer struct {
	*httptest.Server
	conns chan *websocket.Conn
	inbox chan []byte
}

func newWSServer(t *testing.T) *wsServer {
	t.Helper()
	ts := &wsServer{
		conns: make(chan *websocket.Conn, 8),
		inbox: make(chan []byte, 32),
	}
	upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	ts.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		ts.conns <- conn
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			ts.inbox <- data
		}
	}))
	t.Cleanup(ts.Close)
	return ts
}

func (ts *wsServer) config() channel.Config {
	cfg := channel.DefaultConfig("ws" + strings.TrimPrefix(ts.URL, "http"))
	cfg.PingInterval = 0
	return cfg
}

func (ts *wsServer) nextConn(t *testing.T) *websocket.Conn {
	t.Helper()
	select {
	case conn := <-ts.conns:
		return conn
	case <-time.After(2 * time.Second):
		t.Fatal("server never accepted a connection")
		return nil
	}
}

// expect waits for the next client frame and checks its type.
func (ts *wsServer) expect(t *testing.T, want protocol.Type) map[string]interface{} {
	t.Helper()
	select {
	case data := <-ts.inbox:
		var frame map[string]interface{}
		require.NoError(t, json.Unmarshal(data, &frame))
		require.Equal(t, string(want), frame["type"])
		return frame
	case <-time.After(2 * time.Second):
		t.Fatalf("server never received %s", want)
		return nil
	}
}

func push(t *testing.T, conn *websocket.Conn, frame string) {
	t.Helper()
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(frame)))
}

type recordingSink struct {
	mu     sync.Mutex
	deltas []Delta
}

func (s *recordingSink) Publish(_ context.Context, delta Delta) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deltas = append(s.deltas, delta)
	return nil
}

func (s *recordingSink) types() []protocol.Type {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]protocol.Type, 0, len(s.deltas))
	for _, d := range s.deltas {
		out = append(out, d.Type)
	}
	return out
}

func ids(list []models.SessionRecord) []int64 {
	out := make([]int64, 0, len(list))
	for _, s := range list {
		out = append(out, s.ID)
	}
	return out
}

const (
	aliceJSON = `{"id":1,"code_acces":"AAA111","utilisateur_nom":"Alice","poste_nom":"PC-01","statut":"active","duree_totale":3600,"temps_restant":1800,"pourcentage_utilise":50}`
	bobJSON   = `{"id":2,"code_acces":"BBB222","utilisateur_nom":"Bob","poste_nom":"PC-02","statut":"active","duree_totale":1800,"temps_restant":900,"pourcentage_utilise":50}`
	carolJSON = `{"id":3,"code_acces":"CCC333","utilisateur_nom":"Carol","poste_nom":"PC-03","statut":"en_attente","duree_totale":600,"temps_restant":600,"pourcentage_utilise":0}`
)

func startSync(t *testing.T, ts *wsServer, opts ...Option) (*SessionSync, *clockwork.FakeClock, *websocket.Conn) {
	t.Helper()
	clock := clockwork.NewFakeClock()
	s := NewSessionSync(ts.config(), append([]Option{WithClock(clock)}, opts...)...)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(func() {
		cancel()
		s.Stop()
	})
	require.NoError(t, s.Start(ctx))
	conn := ts.nextConn(t)
	ts.expect(t, protocol.TypeGetSessions)
	return s, clock, conn
}

func TestSessionSync_DashboardScenario(t *testing.T) {
	ts := newWSServer(t)
	sink := &recordingSink{}
	s, _, conn := startSync(t, ts, WithSink(sink))

	push(t, conn, `{"type":"connection_established","message":"Connecté"}`)
	push(t, conn, `{"type":"sessions_update","data":[`+aliceJSON+`,`+bobJSON+`]}`)
	push(t, conn, `{"type":"session_created","data":`+carolJSON+`}`)
	push(t, conn, `{"type":"session_ended","data":{"id":2}}`)

	require.Eventually(t, func() bool {
		return assert.ObjectsAreEqual([]int64{1, 3}, ids(s.Sessions()))
	}, 2*time.Second, 10*time.Millisecond)

	carol, ok := s.Session(3)
	require.True(t, ok)
	assert.Equal(t, "Carol", carol.User)
	assert.Equal(t, models.SessionStatusPending, carol.Status)

	require.Eventually(t, func() bool { return len(sink.types()) == 3 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, []protocol.Type{
		protocol.TypeSessionsUpdate,
		protocol.TypeSessionCreated,
		protocol.TypeSessionEnded,
	}, sink.types())
	assert.True(t, s.Connection().Connected)
}

func TestSessionSync_UnknownUpdateRequestsResync(t *testing.T) {
	ts := newWSServer(t)
	s, _, conn := startSync(t, ts)

	push(t, conn, `{"type":"sessions_update","data":[`+aliceJSON+`]}`)
	push(t, conn, `{"type":"session_update","data":{"id":99,"statut":"active","duree_totale":60,"temps_restant":30}}`)

	ts.expect(t, protocol.TypeGetSessions)
	assert.Equal(t, []int64{1}, ids(s.Sessions()))
}

func TestSessionSync_UpdateReplacesInPlace(t *testing.T) {
	ts := newWSServer(t)
	s, _, conn := startSync(t, ts)

	push(t, conn, `{"type":"sessions_update","data":[`+aliceJSON+`,`+bobJSON+`]}`)
	push(t, conn, `{"type":"session_update","data":{"id":1,"utilisateur_nom":"Alice","statut":"suspendue","duree_totale":3600,"temps_restant":1200,"pourcentage_utilise":66.6}}`)

	require.Eventually(t, func() bool {
		rec, ok := s.Session(1)
		return ok && rec.Status == models.SessionStatusSuspended
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, []int64{1, 2}, ids(s.Sessions()))
}

func TestSessionSync_TrackAppliesTimeUpdates(t *testing.T) {
	ts := newWSServer(t)
	s, _, conn := startSync(t, ts)

	push(t, conn, `{"type":"sessions_update","data":[`+aliceJSON+`,`+bobJSON+`]}`)
	require.Eventually(t, func() bool { return len(s.Sessions()) == 2 }, 2*time.Second, 10*time.Millisecond)

	s.Track(2)
	frame := ts.expect(t, protocol.TypeGetTime)
	assert.EqualValues(t, 2, frame["session_id"])

	push(t, conn, `{"type":"time_update","session_id":1,"temps_restant":10,"pourcentage_utilise":99}`)
	push(t, conn, `{"type":"time_update","session_id":2,"temps_restant":450,"pourcentage_utilise":75}`)

	require.Eventually(t, func() bool {
		rec, _ := s.Session(2)
		return rec.RemainingTime == 450
	}, 2*time.Second, 10*time.Millisecond)

	alice, _ := s.Session(1)
	assert.Equal(t, 1800, alice.RemainingTime)
}

func TestSessionSync_ResyncAfterReconnect(t *testing.T) {
	ts := newWSServer(t)
	s, clock, conn := startSync(t, ts)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn.Close()
	require.NoError(t, clock.BlockUntilContext(ctx, 1))
	assert.False(t, s.RequestSessions())

	clock.Advance(3 * time.Second)
	ts.nextConn(t)
	ts.expect(t, protocol.TypeGetSessions)

	require.Eventually(t, func() bool { return s.Connection().Connected }, 2*time.Second, 10*time.Millisecond)
}

func TestSessionSync_OutboundMessages(t *testing.T) {
	ts := newWSServer(t)
	s, _, _ := startSync(t, ts)

	require.True(t, s.ValidateCode("ABCD12", "10.0.0.5"))
	frame := ts.expect(t, protocol.TypeValidateCode)
	assert.Equal(t, "ABCD12", frame["code"])
	assert.Equal(t, "10.0.0.5", frame["ip_address"])

	require.True(t, s.StartSession(7))
	frame = ts.expect(t, protocol.TypeStartSession)
	assert.EqualValues(t, 7, frame["session_id"])

	require.True(t, s.Heartbeat())
	ts.expect(t, protocol.TypeHeartbeat)
}

func TestStatsMonitor_KeepsLastStats(t *testing.T) {
	ts := newWSServer(t)
	clock := clockwork.NewFakeClock()
	m := NewStatsMonitor(ts.config(), WithClock(clock))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	t.Cleanup(m.Stop)

	_, _, ok := m.Stats()
	assert.False(t, ok)

	require.NoError(t, m.Start(ctx))
	conn := ts.nextConn(t)
	ts.expect(t, protocol.TypeGetStats)

	push(t, conn, `{"type":"stats_update","data":{"utilisateurs":{"total":12},"postes":{"disponibles":4}}}`)
	push(t, conn, `{"type":"stats_update","data":{"utilisateurs":{"total":13}}}`)

	require.Eventually(t, func() bool {
		stats, _, ok := m.Stats()
		return ok && string(stats.Users) == `{"total":13}`
	}, 2*time.Second, 10*time.Millisecond)

	stats, updated, _ := m.Stats()
	assert.Empty(t, stats.Workstations)
	assert.Equal(t, clock.Now(), updated)
}
