package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/raid-campaign/internal/balance"
	"github.com/talgya/raid-campaign/internal/engine"
	"github.com/talgya/raid-campaign/internal/persistence"
	"github.com/talgya/raid-campaign/internal/raid"
)

const testAdminKey = "s3cret"

func newTestServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()
	setup, _ := engine.SeedWorld(engine.SeedConfig{
		Seed:           7,
		Settlements:    8,
		PlayerWarriors: 300,
		PlayerFood:     20000,
		Leaders:        2,
	})
	sim := engine.NewSimulation(setup)
	eng := engine.NewEngine()
	eng.OnDay = sim.TickDay
	eng.OnWeek = sim.TickWeek

	s := &Server{Sim: sim, Eng: eng, AdminKey: testAdminKey}
	ts := httptest.NewServer(s.Router())
	t.Cleanup(ts.Close)
	return s, ts
}

func getJSON(t *testing.T, url string, into any) int {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	if into != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(into))
	}
	return resp.StatusCode
}

func postJSON(t *testing.T, url, token string, body, into any) int {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(data))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	if into != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(into))
	}
	return resp.StatusCode
}

func bestTarget(t *testing.T, ts *httptest.Server) raid.Target {
	t.Helper()
	var targets []raid.Target
	code := getJSON(t, ts.URL+"/api/v1/targets?class="+balance.ClassStandardRaid, &targets)
	require.Equal(t, http.StatusOK, code)
	require.NotEmpty(t, targets)
	return targets[0]
}

func TestStatusAndListings(t *testing.T) {
	s, ts := newTestServer(t)

	var status map[string]any
	require.Equal(t, http.StatusOK, getJSON(t, ts.URL+"/api/v1/status", &status))
	assert.EqualValues(t, 0, status["day"])
	assert.EqualValues(t, 300, status["idle_warriors"])
	assert.EqualValues(t, s.Sim.HomeID, status["home_id"])

	var settlements []map[string]any
	require.Equal(t, http.StatusOK, getJSON(t, ts.URL+"/api/v1/settlements", &settlements))
	assert.Len(t, settlements, 8)

	var classes []balance.RaidClass
	require.Equal(t, http.StatusOK, getJSON(t, ts.URL+"/api/v1/classes", &classes))
	assert.Len(t, classes, len(balance.DefaultClasses()))

	var factions []map[string]any
	require.Equal(t, http.StatusOK, getJSON(t, ts.URL+"/api/v1/factions", &factions))
	assert.NotEmpty(t, factions)
}

func TestTargetsRejectUnknownClass(t *testing.T) {
	_, ts := newTestServer(t)

	var body map[string]string
	code := getJSON(t, ts.URL+"/api/v1/targets?class=viking_funeral", &body)
	assert.Equal(t, http.StatusUnprocessableEntity, code)
	assert.Equal(t, string(raid.CodeClassUnknown), body["code"])
	assert.NotEmpty(t, body["message"])
}

func TestCreateRaidRejectionIsUnprocessable(t *testing.T) {
	_, ts := newTestServer(t)
	target := bestTarget(t, ts)

	var body map[string]string
	code := postJSON(t, ts.URL+"/api/v1/raids", "", createRaidRequest{
		ClassID:  balance.ClassStandardRaid,
		TargetID: target.Settlement.ID,
		Size:     5,
	}, &body)
	assert.Equal(t, http.StatusUnprocessableEntity, code)
	assert.Equal(t, string(raid.CodeSizeOutOfBounds), body["code"])

	code = postJSON(t, ts.URL+"/api/v1/raids", "", createRaidRequest{
		ClassID:  balance.ClassStandardRaid,
		TargetID: target.Settlement.ID,
		Size:     40,
		LeaderID: 99,
	}, &body)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "LEADER_NOT_FOUND", body["code"])
}

func TestCreateAndRecallRaid(t *testing.T) {
	s, ts := newTestServer(t)
	target := bestTarget(t, ts)
	leader := s.Sim.Leaders()[0]

	var created raid.Raid
	code := postJSON(t, ts.URL+"/api/v1/raids", "", createRaidRequest{
		ClassID:  balance.ClassStandardRaid,
		TargetID: target.Settlement.ID,
		Size:     40,
		LeaderID: leader.ID,
	}, &created)
	require.Equal(t, http.StatusCreated, code)
	assert.Equal(t, raid.PhasePreparing, created.Phase)
	assert.Equal(t, s.Sim.HomeID, created.OriginID)
	require.NotNil(t, created.Leader)
	assert.Equal(t, leader.ID, created.Leader.ID)
	assert.Equal(t, 260, s.Sim.Pool.GetAvailableWarriors())

	var active []raid.Raid
	require.Equal(t, http.StatusOK, getJSON(t, ts.URL+"/api/v1/raids", &active))
	require.Len(t, active, 1)
	assert.Equal(t, created.ID, active[0].ID)

	var leaders []map[string]any
	require.Equal(t, http.StatusOK, getJSON(t, ts.URL+"/api/v1/leaders", &leaders))
	assert.Equal(t, created.ID, leaders[0]["raid_id"])

	var recalled raid.Raid
	code = postJSON(t, ts.URL+"/api/v1/raids/"+created.ID+"/recall", "", nil, &recalled)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, raid.PhaseCompleted, recalled.Phase)
	assert.True(t, recalled.Recalled)
	assert.Equal(t, 300, s.Sim.Pool.GetAvailableWarriors())

	var body map[string]string
	code = postJSON(t, ts.URL+"/api/v1/raids/"+created.ID+"/recall", "", nil, &body)
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, string(raid.CodeRaidNotRecallable), body["code"])

	var history []raid.Raid
	require.Equal(t, http.StatusOK, getJSON(t, ts.URL+"/api/v1/raids/history", &history))
	assert.Len(t, history, 1)

	code = getJSON(t, ts.URL+"/api/v1/raids/no-such-raid", &body)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, string(raid.CodeRaidNotFound), body["code"])
}

func TestTickRequiresAdmin(t *testing.T) {
	_, ts := newTestServer(t)

	assert.Equal(t, http.StatusUnauthorized, postJSON(t, ts.URL+"/api/v1/tick", "wrong", map[string]int{"days": 1}, nil))
	assert.Equal(t, http.StatusBadRequest, postJSON(t, ts.URL+"/api/v1/tick", testAdminKey, map[string]int{"days": 0}, nil))

	var out map[string]any
	require.Equal(t, http.StatusOK, postJSON(t, ts.URL+"/api/v1/tick", testAdminKey, map[string]int{"days": 8}, &out))
	assert.EqualValues(t, 8, out["day"])

	var status map[string]any
	require.Equal(t, http.StatusOK, getJSON(t, ts.URL+"/api/v1/status", &status))
	assert.EqualValues(t, 8, status["day"])

	var events []engine.Event
	require.Equal(t, http.StatusOK, getJSON(t, ts.URL+"/api/v1/events", &events))
	require.Len(t, events, 1)
	assert.Equal(t, "diplomacy", events[0].Category)
}

func TestAdminDisabledWithoutKey(t *testing.T) {
	s, _ := newTestServer(t)
	s.AdminKey = ""
	open := httptest.NewServer(s.Router())
	defer open.Close()
	assert.Equal(t, http.StatusForbidden, postJSON(t, open.URL+"/api/v1/tick", "", map[string]int{"days": 1}, nil))
}

func TestSnapshotWithoutDatabase(t *testing.T) {
	_, ts := newTestServer(t)
	assert.Equal(t, http.StatusServiceUnavailable, postJSON(t, ts.URL+"/api/v1/snapshot", testAdminKey, nil, nil))
}

func TestSnapshotSavesTheCampaign(t *testing.T) {
	s, _ := newTestServer(t)
	db, err := persistence.Open(filepath.Join(t.TempDir(), "raidsim.db"))
	require.NoError(t, err)
	defer db.Close()
	s.DB = db
	ts := httptest.NewServer(s.Router())
	defer ts.Close()

	require.False(t, db.HasWorldState())
	var out map[string]any
	require.Equal(t, http.StatusOK, postJSON(t, ts.URL+"/api/v1/snapshot", testAdminKey, nil, &out))
	assert.Equal(t, true, out["saved"])
	assert.True(t, db.HasWorldState())
}

func TestOrdersAreRateLimited(t *testing.T) {
	s, _ := newTestServer(t)
	s.Orders = NewRateLimiter(1, time.Minute)
	limited := httptest.NewServer(s.Router())
	defer limited.Close()

	req := createRaidRequest{ClassID: "nope", Size: 40}
	assert.Equal(t, http.StatusUnprocessableEntity, postJSON(t, limited.URL+"/api/v1/raids", "", req, nil))
	assert.Equal(t, http.StatusTooManyRequests, postJSON(t, limited.URL+"/api/v1/raids", "", req, nil))
}

func TestStreamPushesPhaseChanges(t *testing.T) {
	_, ts := newTestServer(t)
	target := bestTarget(t, ts)

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/v1/stream"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var hello streamMessage
	require.NoError(t, conn.ReadJSON(&hello))
	assert.Equal(t, "snapshot", hello.Type)
	assert.Empty(t, hello.Active)

	var created raid.Raid
	require.Equal(t, http.StatusCreated, postJSON(t, ts.URL+"/api/v1/raids", "", createRaidRequest{
		ClassID:  balance.ClassStandardRaid,
		TargetID: target.Settlement.ID,
		Size:     40,
	}, &created))

	var msg streamMessage
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "phase", msg.Type)
	require.NotNil(t, msg.Notification)
	assert.Equal(t, created.ID, msg.Notification.RaidID)
	assert.Equal(t, raid.PhasePreparing, msg.Notification.To)
	assert.Empty(t, msg.Notification.From)
}

func TestStreamChecksOrigin(t *testing.T) {
	t.Setenv("CORS_ORIGINS", "https://raids.example.org")
	s, _ := newTestServer(t)
	ts := httptest.NewServer(s.Router())
	defer ts.Close()
	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/v1/stream"

	_, resp, err := websocket.DefaultDialer.Dial(wsURL, http.Header{"Origin": {"http://evil.example"}})
	require.ErrorIs(t, err, websocket.ErrBadHandshake)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	for _, origin := range []string{"http://localhost:5173", "https://raids.example.org"} {
		conn, _, err := websocket.DefaultDialer.Dial(wsURL, http.Header{"Origin": {origin}})
		require.NoError(t, err, origin)
		conn.Close()
	}
}
