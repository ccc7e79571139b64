package api_test

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/diamondsgame/internal/api"
	"github.com/mcoot/diamondsgame/internal/api/apierr"
	"github.com/mcoot/diamondsgame/internal/api/response"
	"github.com/mcoot/diamondsgame/internal/factory"
	"github.com/mcoot/diamondsgame/internal/model"
	"github.com/mcoot/diamondsgame/internal/services/session"
)

// testServer creates a test server with all dependencies
type testServer struct {
	handler http.Handler
	app     *factory.TestApp
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	// Phases are driven by hand through the mock clock and the tick endpoint
	app := factory.NewTestApp()
	t.Cleanup(app.HubManager.Close)

	router := api.NewRouter(api.RouterConfig{
		Logger:             logger,
		AuthService:        app.AuthService,
		SessionController:  app.SessionController,
		Coordinator:        app.Coordinator,
		ExtractionResolver: app.ExtractionResolver,
		HubManager:         app.HubManager,
	})

	return &testServer{
		handler: router,
		app:     app,
	}
}

func (ts *testServer) request(method, path string, body any, token string) *httptest.ResponseRecorder {
	var reqBody *bytes.Buffer
	if body != nil {
		b, _ := json.Marshal(body)
		reqBody = bytes.NewBuffer(b)
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	req := httptest.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rr := httptest.NewRecorder()
	ts.handler.ServeHTTP(rr, req)
	return rr
}

func (ts *testServer) guest(t *testing.T, name string) response.AuthResponse {
	t.Helper()
	rr := ts.request(http.MethodPost, "/api/v1/players/guest", map[string]string{"display_name": name}, "")
	require.Equal(t, http.StatusCreated, rr.Code)
	var resp response.AuthResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	return resp
}

func (ts *testServer) admin(t *testing.T) response.AuthResponse {
	t.Helper()
	rr := ts.request(http.MethodPost, "/api/v1/players/register", map[string]string{
		"username":     factory.TestAdminUsername,
		"password":     "overseer",
		"display_name": "Warden",
	}, "")
	require.Equal(t, http.StatusCreated, rr.Code)
	var resp response.AuthResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	return resp
}

func (ts *testServer) createSession(t *testing.T, adminToken string) string {
	t.Helper()
	rr := ts.request(http.MethodPost, "/api/v1/sessions", nil, adminToken)
	require.Equal(t, http.StatusCreated, rr.Code)
	var resp response.Session
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	return resp.ID
}

func (ts *testServer) view(t *testing.T, id, token string) session.View {
	t.Helper()
	rr := ts.request(http.MethodGet, "/api/v1/sessions/"+id, nil, token)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var v session.View
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &v))
	return v
}

// tickPast expires the current phase and ticks it over
func (ts *testServer) tickPast(t *testing.T, id, token string) {
	t.Helper()
	ts.app.ExpirePhase(120)
	rr := ts.request(http.MethodPost, "/api/v1/sessions/"+id+"/tick", nil, token)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
}

func errorCode(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	var resp apierr.ErrorResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	return resp.Error.Code
}

func TestHealthCheck(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.request(http.MethodGet, "/api/v1/health", nil, "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rr.Body.String())
}

func TestCreateGuest(t *testing.T) {
	ts := newTestServer(t)

	resp := ts.guest(t, "Arisu")
	assert.Equal(t, "Arisu", resp.Player.DisplayName)
	assert.True(t, resp.Player.IsGuest)
	assert.NotEmpty(t, resp.Token)
}

func TestCreateGuestRequiresDisplayName(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.request(http.MethodPost, "/api/v1/players/guest", map[string]string{}, "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, apierr.CodeInvalidRequest, errorCode(t, rr))
}

func TestRegisterLoginAndMe(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.request(http.MethodPost, "/api/v1/players/register", map[string]string{
		"username":     "usagi",
		"password":     "climber",
		"display_name": "Usagi",
	}, "")
	require.Equal(t, http.StatusCreated, rr.Code)

	rr = ts.request(http.MethodPost, "/api/v1/players/login", map[string]string{
		"username": "usagi",
		"password": "climber",
	}, "")
	require.Equal(t, http.StatusOK, rr.Code)
	var login response.AuthResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &login))

	rr = ts.request(http.MethodGet, "/api/v1/players/me", nil, login.Token)
	require.Equal(t, http.StatusOK, rr.Code)
	var me response.Player
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &me))
	assert.Equal(t, "Usagi", me.DisplayName)
	assert.False(t, me.IsGuest)
}

func TestLoginWrongPassword(t *testing.T) {
	ts := newTestServer(t)
	ts.admin(t)

	rr := ts.request(http.MethodPost, "/api/v1/players/login", map[string]string{
		"username": factory.TestAdminUsername,
		"password": "wrong",
	}, "")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, apierr.CodeInvalidCredentials, errorCode(t, rr))
}

func TestSessionsRequireAuth(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.request(http.MethodGet, "/api/v1/sessions", nil, "")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = ts.request(http.MethodGet, "/api/v1/sessions", nil, "garbage")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestCreateSessionRequiresAdmin(t *testing.T) {
	ts := newTestServer(t)
	player := ts.guest(t, "Arisu")

	rr := ts.request(http.MethodPost, "/api/v1/sessions", nil, player.Token)
	assert.Equal(t, http.StatusForbidden, rr.Code)
	assert.Equal(t, apierr.CodeForbidden, errorCode(t, rr))
}

func TestCreateAndListSessions(t *testing.T) {
	ts := newTestServer(t)
	admin := ts.admin(t)

	id := ts.createSession(t, admin.Token)

	rr := ts.request(http.MethodGet, "/api/v1/sessions", nil, admin.Token)
	require.Equal(t, http.StatusOK, rr.Code)
	var list []response.Session
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.Equal(t, id, list[0].ID)
	assert.Equal(t, string(model.PhaseIdle), list[0].Phase)
}

func TestGetUnknownSession(t *testing.T) {
	ts := newTestServer(t)
	player := ts.guest(t, "Arisu")

	rr := ts.request(http.MethodGet, "/api/v1/sessions/nope", nil, player.Token)
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, apierr.CodeSessionNotFound, errorCode(t, rr))
}

func TestAdminCannotJoin(t *testing.T) {
	ts := newTestServer(t)
	admin := ts.admin(t)
	id := ts.createSession(t, admin.Token)

	rr := ts.request(http.MethodPost, "/api/v1/sessions/"+id+"/join", nil, admin.Token)
	assert.Equal(t, http.StatusForbidden, rr.Code)
	assert.Equal(t, apierr.CodeAdminNotEligible, errorCode(t, rr))
}

func TestPlayerCannotStart(t *testing.T) {
	ts := newTestServer(t)
	admin := ts.admin(t)
	player := ts.guest(t, "Arisu")
	id := ts.createSession(t, admin.Token)

	rr := ts.request(http.MethodPost, "/api/v1/sessions/"+id+"/start", nil, player.Token)
	assert.Equal(t, http.StatusForbidden, rr.Code)
}

func TestSubmitSlotsOutsideSlotting(t *testing.T) {
	ts := newTestServer(t)
	admin := ts.admin(t)
	player := ts.guest(t, "Arisu")
	id := ts.createSession(t, admin.Token)

	rr := ts.request(http.MethodPost, "/api/v1/sessions/"+id+"/join", nil, player.Token)
	require.Equal(t, http.StatusNoContent, rr.Code)

	rr = ts.request(http.MethodPut, "/api/v1/sessions/"+id+"/slots", map[string]any{"slots": []string{"c1"}}, player.Token)
	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.Equal(t, apierr.CodeWrongPhase, errorCode(t, rr))
}

func TestSubmitSlotsRejectsTooMany(t *testing.T) {
	ts := newTestServer(t)
	player := ts.guest(t, "Arisu")

	rr := ts.request(http.MethodPut, "/api/v1/sessions/any/slots", map[string]any{
		"slots": []string{"a", "b", "c", "d", "e", "f"},
	}, player.Token)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestRoundThroughAPI(t *testing.T) {
	ts := newTestServer(t)
	admin := ts.admin(t)
	alice := ts.guest(t, "Alice")
	bob := ts.guest(t, "Bob")
	id := ts.createSession(t, admin.Token)

	for _, p := range []response.AuthResponse{alice, bob} {
		rr := ts.request(http.MethodPost, "/api/v1/sessions/"+id+"/join", nil, p.Token)
		require.Equal(t, http.StatusNoContent, rr.Code)
	}

	rr := ts.request(http.MethodPost, "/api/v1/sessions/"+id+"/start", nil, admin.Token)
	require.Equal(t, http.StatusOK, rr.Code)
	var started response.Session
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &started))
	assert.Equal(t, string(model.PhaseBriefing), started.Phase)
	assert.Equal(t, 2, started.Participants)

	// briefing -> shuffle -> dealing -> slotting
	for range 3 {
		ts.tickPast(t, id, alice.Token)
	}
	v := ts.view(t, id, alice.Token)
	require.Equal(t, model.PhaseSlotting, v.Phase)
	require.Equal(t, 1, v.Round)
	require.NotEmpty(t, v.Hand)

	// Pausing stops the clock, resuming picks it up
	rr = ts.request(http.MethodPost, "/api/v1/sessions/"+id+"/pause", nil, admin.Token)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.True(t, ts.view(t, id, alice.Token).IsPaused)
	rr = ts.request(http.MethodPost, "/api/v1/sessions/"+id+"/resume", nil, admin.Token)
	require.Equal(t, http.StatusOK, rr.Code)

	// Detector reports on the one groupmate
	rr = ts.request(http.MethodPost, "/api/v1/sessions/"+id+"/detector", nil, alice.Token)
	require.Equal(t, http.StatusOK, rr.Code)
	var detection response.Detection
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &detection))
	assert.Contains(t, detection.Groupmates, bob.Player.ID)

	rr = ts.request(http.MethodPost, "/api/v1/sessions/"+id+"/detector", nil, alice.Token)
	assert.Equal(t, apierr.CodePowerUsed, errorCode(t, rr))

	// Both commit a single card; the second commitment ends slotting
	for _, p := range []response.AuthResponse{alice, bob} {
		hand := ts.view(t, id, p.Token).Hand
		rr = ts.request(http.MethodPut, "/api/v1/sessions/"+id+"/slots", map[string]any{
			"slots": []string{string(hand[0].ID)},
		}, p.Token)
		require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	}

	v = ts.view(t, id, alice.Token)
	assert.Equal(t, model.PhaseEvaluation, v.Phase)
	require.Len(t, v.Results, 1)
	assert.Len(t, v.Revealed, 2)

	// The admin sees every array without participating
	adminView := ts.view(t, id, admin.Token)
	assert.Nil(t, adminView.Me)
	assert.Len(t, adminView.Revealed, 2)

	rr = ts.request(http.MethodPost, "/api/v1/sessions/"+id+"/reset", nil, admin.Token)
	require.Equal(t, http.StatusOK, rr.Code)
	var reset response.Session
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &reset))
	assert.Equal(t, string(model.PhaseIdle), reset.Phase)
}

func TestExtractionWithoutOffer(t *testing.T) {
	ts := newTestServer(t)
	admin := ts.admin(t)
	player := ts.guest(t, "Arisu")
	id := ts.createSession(t, admin.Token)

	rr := ts.request(http.MethodGet, "/api/v1/sessions/"+id+"/extraction", nil, player.Token)
	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.Equal(t, apierr.CodeWrongPhase, errorCode(t, rr))

	rr = ts.request(http.MethodPost, "/api/v1/sessions/"+id+"/extraction/claim", map[string]string{}, player.Token)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}
