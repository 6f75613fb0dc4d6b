package kiosk

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soubeek/epn-solutions/go/internal/kiosk/countdown"
	"github.com/soubeek/epn-solutions/go/internal/kiosk/presentation"
	"github.com/soubeek/epn-solutions/go/internal/models"
	"github.com/soubeek/epn-solutions/go/internal/realtime/channel"
)

type fakeController struct {
	mu        sync.Mutex
	status    Status
	codes     []string
	keys      []presentation.Key
	passwords []string
	unlocks   []string
	expands   int
	drags     int
}

func (f *fakeController) Status() Status { return f.status }

func (f *fakeController) SubmitCode(code string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.codes = append(f.codes, code)
}

func (f *fakeController) HandleKey(k presentation.Key) presentation.Action {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.keys = append(f.keys, k)
	if k.Code == "F4" && k.Alt {
		return presentation.ActionSuppress
	}
	return presentation.ActionPass
}

func (f *fakeController) SubmitAdminPassword(password string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.passwords = append(f.passwords, password)
}

func (f *fakeController) RemoteUnlock(by string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.unlocks = append(f.unlocks, by)
}

func (f *fakeController) ExpandWidget() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.expands++
}

func (f *fakeController) StartDrag() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.drags++
}

func newControlServer(t *testing.T, agent Controller) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	NewControlHandler(agent).RegisterRoutes(mux)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func post(t *testing.T, url, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestControlHandler_Status(t *testing.T) {
	agent := &fakeController{status: Status{
		Ready:      true,
		Mode:       presentation.ModeWidget,
		Session:    &models.SessionRecord{ID: 42, AccessCode: "ABCD12"},
		Remaining:  300,
		Percentage: 50,
		Severity:   countdown.SeverityWarning,
		Channel:    channel.StateOpen,
		LastError:  errors.New("lock_screen: unavailable"),
	}}
	srv := newControlServer(t, agent)

	resp, err := http.Get(srv.URL + "/agent/status")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var view StatusView
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&view))
	assert.Equal(t, "widget", view.Mode)
	assert.Equal(t, "open", view.Channel)
	assert.Equal(t, countdown.SeverityWarning, view.Severity)
	assert.Equal(t, "ABCD12", view.Session.AccessCode)
	assert.Equal(t, "lock_screen: unavailable", view.LastError)
}

func TestControlHandler_Inputs(t *testing.T) {
	agent := &fakeController{}
	srv := newControlServer(t, agent)

	assert.Equal(t, http.StatusAccepted, post(t, srv.URL+"/agent/code", `{"code":"ABCD12"}`).StatusCode)
	assert.Equal(t, http.StatusBadRequest, post(t, srv.URL+"/agent/code", `{"code":""}`).StatusCode)
	assert.Equal(t, http.StatusBadRequest, post(t, srv.URL+"/agent/code", `not json`).StatusCode)
	assert.Equal(t, http.StatusAccepted, post(t, srv.URL+"/agent/admin-password", `{"password":"s3cret"}`).StatusCode)
	assert.Equal(t, http.StatusAccepted, post(t, srv.URL+"/agent/unlock", `{"by":"Marie"}`).StatusCode)
	assert.Equal(t, http.StatusAccepted, post(t, srv.URL+"/agent/expand", ``).StatusCode)
	assert.Equal(t, http.StatusAccepted, post(t, srv.URL+"/agent/drag", ``).StatusCode)

	resp := post(t, srv.URL+"/agent/key", `{"code":"F4","alt":true}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "suppress", body["action"])

	agent.mu.Lock()
	defer agent.mu.Unlock()
	assert.Equal(t, []string{"ABCD12"}, agent.codes)
	assert.Equal(t, []string{"s3cret"}, agent.passwords)
	assert.Equal(t, []string{"Marie"}, agent.unlocks)
	assert.Equal(t, 1, agent.expands)
	assert.Equal(t, 1, agent.drags)
	assert.Equal(t, []presentation.Key{{Code: "F4", Alt: true}}, agent.keys)
}

func TestControlHandler_WrongMethod(t *testing.T) {
	srv := newControlServer(t, &fakeController{})

	resp, err := http.Get(srv.URL + "/agent/code")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}
