package dashboard

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soubeek/epn-solutions/go/internal/models"
)

type fakeSessions struct {
	list []models.SessionRecord
	conn ConnectionStatus
}

func (f *fakeSessions) Sessions() []models.SessionRecord { return f.list }

func (f *fakeSessions) Session(id int64) (models.SessionRecord, bool) {
	for _, s := range f.list {
		if s.ID == id {
			return s, true
		}
	}
	return models.SessionRecord{}, false
}

func (f *fakeSessions) Connection() ConnectionStatus { return f.conn }

type fakeStats struct {
	stats   models.Stats
	updated time.Time
	ok      bool
}

func (f *fakeStats) Stats() (models.Stats, time.Time, bool) { return f.stats, f.updated, f.ok }

func (f *fakeStats) Connection() ConnectionStatus {
	return ConnectionStatus{Endpoint: "ws://backend/ws/dashboard/", State: "reconnecting", Attempt: 2}
}

func newTestAPI(stats StatsSource) (*httptest.Server, *fakeSessions) {
	sessions := &fakeSessions{
		list: []models.SessionRecord{
			{ID: 1, User: "Alice", Status: models.SessionStatusActive, TotalDuration: 3600, RemainingTime: 1800},
			{ID: 3, User: "Carol", Status: models.SessionStatusPending, TotalDuration: 600, RemainingTime: 600},
		},
		conn: ConnectionStatus{Endpoint: "ws://backend/ws/sessions/", State: "open", Connected: true},
	}
	return httptest.NewServer(NewHTTPHandler(sessions, stats, nil).Handler()), sessions
}

func getJSON(t *testing.T, url string, v interface{}) *http.Response {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	if v != nil && resp.StatusCode == http.StatusOK {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
	}
	return resp
}

func TestHTTPHandler_Sessions(t *testing.T) {
	srv, _ := newTestAPI(nil)
	defer srv.Close()

	var body SessionsResponse
	resp := getJSON(t, srv.URL+"/api/sessions", &body)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	assert.Equal(t, 2, body.Count)
	assert.Equal(t, 1, body.Active)
	assert.Equal(t, "Carol", body.Sessions[1].User)
}

func TestHTTPHandler_SessionByID(t *testing.T) {
	srv, _ := newTestAPI(nil)
	defer srv.Close()

	var rec models.SessionRecord
	resp := getJSON(t, srv.URL+"/api/sessions/3", &rec)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, int64(3), rec.ID)
	assert.Equal(t, 600, rec.RemainingTime)

	assert.Equal(t, http.StatusNotFound, getJSON(t, srv.URL+"/api/sessions/2", nil).StatusCode)
	assert.Equal(t, http.StatusBadRequest, getJSON(t, srv.URL+"/api/sessions/abc", nil).StatusCode)
}

func TestHTTPHandler_Stats(t *testing.T) {
	stats := &fakeStats{}
	srv, _ := newTestAPI(stats)
	defer srv.Close()

	assert.Equal(t, http.StatusServiceUnavailable, getJSON(t, srv.URL+"/api/stats", nil).StatusCode)

	stats.stats = models.Stats{Users: json.RawMessage(`{"total":12}`)}
	stats.updated = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	stats.ok = true

	var body StatsResponse
	resp := getJSON(t, srv.URL+"/api/stats", &body)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"total":12}`, string(body.Stats.Users))
	assert.True(t, stats.updated.Equal(body.UpdatedAt))
}

func TestHTTPHandler_StatsNotMonitored(t *testing.T) {
	srv, _ := newTestAPI(nil)
	defer srv.Close()

	assert.Equal(t, http.StatusNotFound, getJSON(t, srv.URL+"/api/stats", nil).StatusCode)
}

func TestHTTPHandler_Connection(t *testing.T) {
	srv, _ := newTestAPI(&fakeStats{})
	defer srv.Close()

	var body ConnectionsResponse
	resp := getJSON(t, srv.URL+"/api/connection", &body)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, body.Sessions.Connected)
	require.NotNil(t, body.Stats)
	assert.Equal(t, "reconnecting", body.Stats.State)
	assert.Equal(t, 2, body.Stats.Attempt)
}

func TestHTTPHandler_HealthAndCORS(t *testing.T) {
	srv, _ := newTestAPI(nil)
	defer srv.Close()

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/health", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://localhost:5173")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}
