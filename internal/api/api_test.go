package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"
	"golang.org/x/crypto/bcrypt"

	"evcharging-backend/config"
	"evcharging-backend/internal/apperr"
	"evcharging-backend/internal/auth"
	"evcharging-backend/internal/dbtest"
	"evcharging-backend/internal/service"
	"evcharging-backend/internal/store"
)

const (
	adminEmail    = "admin@test.com"
	adminPassword = "password123"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    apperr.Code `json:"code"`
		Message string      `json:"message"`
	} `json:"error"`
}

type testServer struct {
	t      *testing.T
	router *gin.Engine
	store  store.Store
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	return newTestServerWith(t, zaptest.NewLogger(t), RateLimit{PerSecond: 1000, Burst: 1000})
}

func newTestServerWith(t *testing.T, logger *zap.Logger, limit RateLimit) *testServer {
	t.Helper()
	s := store.NewGormStore(dbtest.New(t))
	tokens := auth.NewTokenService("test-secret", time.Hour)

	services := Services{
		Auth:     service.NewAuthService(s, auth.NewBcryptHasher(bcrypt.MinCost), tokens, logger),
		Stations: service.NewStationService(s, logger),
		Chargers: service.NewChargerService(s, nil, logger),
		Sessions: service.NewSessionService(s, nil, logger),
	}
	require.NoError(t, services.Auth.EnsureAdmin(context.Background(), config.AdminConfig{
		Email: adminEmail, Password: adminPassword, Name: "Admin",
	}))

	h := NewHandler(services, s, &webpush.Options{VAPIDPublicKey: "test-public-key"}, logger)
	router := NewRouter(h, tokens, limit, logger)
	return &testServer{t: t, router: router, store: s}
}

func (ts *testServer) do(method, path, token string, body any) (*httptest.ResponseRecorder, envelope) {
	ts.t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(ts.t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)

	var env envelope
	if w.Body.Len() > 0 {
		require.NoError(ts.t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	}
	return w, env
}

func (ts *testServer) login(email, password string) string {
	ts.t.Helper()
	w, env := ts.do(http.MethodPost, "/api/v1/auth/login", "", gin.H{"email": email, "password": password})
	require.Equal(ts.t, http.StatusOK, w.Code, w.Body.String())

	var data loginResponse
	require.NoError(ts.t, json.Unmarshal(env.Data, &data))
	assert.Equal(ts.t, "Bearer", data.TokenType)
	return data.AccessToken
}

func (ts *testServer) signupUser(email string) string {
	ts.t.Helper()
	w, _ := ts.do(http.MethodPost, "/api/v1/auth/signup", "", gin.H{"email": email, "password": "password123", "name": "User"})
	require.Equal(ts.t, http.StatusCreated, w.Code, w.Body.String())
	return ts.login(email, "password123")
}

func decodeData[T any](t *testing.T, env envelope) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(env.Data, &v))
	return v
}

func assertError(t *testing.T, w *httptest.ResponseRecorder, env envelope, status int, code apperr.Code) {
	t.Helper()
	assert.Equal(t, status, w.Code, w.Body.String())
	assert.False(t, env.Success)
	require.NotNil(t, env.Error)
	assert.Equal(t, code, env.Error.Code)
	assert.Empty(t, env.Data)
}

func TestFullChargingFlow(t *testing.T) {
	ts := newTestServer(t)
	token := ts.login(adminEmail, adminPassword)

	// 1. Create a station.
	w, env := ts.do(http.MethodPost, "/api/v1/stations", token, gin.H{
		"stationCode":    "ST-TEST-001",
		"name":           "Test Station",
		"address":        "Seoul Gangnam",
		"latitude":       37.4979,
		"longitude":      127.0276,
		"operatorName":   "TestOp",
		"contactNumber":  "02-1234-5678",
		"operatingHours": "24h",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.True(t, env.Success)
	assert.Nil(t, env.Error)
	station := decodeData[stationResponse](t, env)
	assert.Equal(t, "Test Station", station.Name)
	assert.Empty(t, station.Chargers)

	// 2. Add a charger.
	w, env = ts.do(http.MethodPost, fmt.Sprintf("/api/v1/stations/%d/chargers", station.ID), token, gin.H{
		"chargerCode":   "CHG-TEST-01",
		"type":          "DC_FAST",
		"powerKw":       50,
		"connectorType": "CCS1",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	charger := decodeData[chargerResponse](t, env)
	assert.Equal(t, "AVAILABLE", string(charger.Status))

	// 3. Start a session.
	w, env = ts.do(http.MethodPost, fmt.Sprintf("/api/v1/chargers/%d/sessions", charger.ID), token, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	session := decodeData[sessionResponse](t, env)
	assert.Equal(t, "IN_PROGRESS", string(session.Status))
	assert.Nil(t, session.EndTime)

	// 4. The charger is CHARGING, and a second start is refused.
	w, env = ts.do(http.MethodGet, fmt.Sprintf("/api/v1/stations/%d/chargers", station.ID), token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	chargers := decodeData[[]chargerResponse](t, env)
	require.Len(t, chargers, 1)
	assert.Equal(t, "CHARGING", string(chargers[0].Status))

	w, env = ts.do(http.MethodPost, fmt.Sprintf("/api/v1/chargers/%d/sessions", charger.ID), token, nil)
	assertError(t, w, env, http.StatusConflict, apperr.CodeChargerNotAvailable)

	// 5. Complete the session.
	w, env = ts.do(http.MethodPatch, fmt.Sprintf("/api/v1/sessions/%d/complete", session.ID), token, gin.H{
		"energyDeliveredKwh": 35.5,
		"cost":               15000,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	completed := decodeData[sessionResponse](t, env)
	assert.Equal(t, "COMPLETED", string(completed.Status))
	assert.NotNil(t, completed.EndTime)

	w, env = ts.do(http.MethodPatch, fmt.Sprintf("/api/v1/sessions/%d/complete", session.ID), token, gin.H{
		"energyDeliveredKwh": 1,
		"cost":               1,
	})
	assertError(t, w, env, http.StatusConflict, apperr.CodeSessionAlreadyCompleted)

	// 6. The charger is AVAILABLE again.
	w, env = ts.do(http.MethodGet, fmt.Sprintf("/api/v1/stations/%d/chargers", station.ID), token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	chargers = decodeData[[]chargerResponse](t, env)
	assert.Equal(t, "AVAILABLE", string(chargers[0].Status))

	// 7. Exactly one COMPLETED session is recorded.
	w, env = ts.do(http.MethodGet, fmt.Sprintf("/api/v1/sessions?chargerId=%d", charger.ID), token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	sessions := decodeData[[]sessionResponse](t, env)
	require.Len(t, sessions, 1)
	assert.Equal(t, "COMPLETED", string(sessions[0].Status))

	// 8. Delete the station; it and its charger are gone.
	w, _ = ts.do(http.MethodDelete, fmt.Sprintf("/api/v1/stations/%d", station.ID), token, nil)
	require.Equal(t, http.StatusNoContent, w.Code)

	w, env = ts.do(http.MethodGet, fmt.Sprintf("/api/v1/stations/%d", station.ID), token, nil)
	assertError(t, w, env, http.StatusNotFound, apperr.CodeStationNotFound)

	w, env = ts.do(http.MethodPatch, fmt.Sprintf("/api/v1/chargers/%d/status", charger.ID), token, gin.H{"status": "OUT_OF_SERVICE"})
	assertError(t, w, env, http.StatusNotFound, apperr.CodeChargerNotFound)
}

func TestSecurity(t *testing.T) {
	ts := newTestServer(t)
	userToken := ts.signupUser("user@test.com")
	adminToken := ts.login(adminEmail, adminPassword)

	w, env := ts.do(http.MethodGet, "/api/v1/stations", "", nil)
	assertError(t, w, env, http.StatusUnauthorized, apperr.CodeUnauthorized)

	w, env = ts.do(http.MethodGet, "/api/v1/stations", "invalid.token.value", nil)
	assertError(t, w, env, http.StatusUnauthorized, apperr.CodeUnauthorized)

	w, _ = ts.do(http.MethodGet, "/api/v1/stations", userToken, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	body := gin.H{"name": "User Station", "address": "Seoul"}
	w, env = ts.do(http.MethodPost, "/api/v1/stations", userToken, body)
	assertError(t, w, env, http.StatusForbidden, apperr.CodeForbidden)

	w, env = ts.do(http.MethodPost, "/api/v1/stations", adminToken, body)
	require.Equal(t, http.StatusCreated, w.Code)
	station := decodeData[stationResponse](t, env)

	// USER may update but not delete.
	w, _ = ts.do(http.MethodPut, fmt.Sprintf("/api/v1/stations/%d", station.ID), userToken, gin.H{"name": "Renamed", "address": "Busan"})
	assert.Equal(t, http.StatusOK, w.Code)

	w, env = ts.do(http.MethodDelete, fmt.Sprintf("/api/v1/stations/%d", station.ID), userToken, nil)
	assertError(t, w, env, http.StatusForbidden, apperr.CodeForbidden)

	w, _ = ts.do(http.MethodDelete, fmt.Sprintf("/api/v1/stations/%d", station.ID), adminToken, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestAuthErrors(t *testing.T) {
	ts := newTestServer(t)
	ts.signupUser("user@test.com")

	w, env := ts.do(http.MethodPost, "/api/v1/auth/signup", "", gin.H{"email": "user@test.com", "password": "password123", "name": "Again"})
	assertError(t, w, env, http.StatusConflict, apperr.CodeDuplicateEmail)

	w, env = ts.do(http.MethodPost, "/api/v1/auth/login", "", gin.H{"email": "user@test.com", "password": "wrong-password"})
	assertError(t, w, env, http.StatusUnauthorized, apperr.CodeInvalidCredentials)

	w, env = ts.do(http.MethodPost, "/api/v1/auth/signup", "", gin.H{"email": "bad", "password": "x"})
	assertError(t, w, env, http.StatusBadRequest, apperr.CodeValidation)
	assert.Contains(t, env.Error.Message, "email")
	assert.Contains(t, env.Error.Message, "password")
	assert.Contains(t, env.Error.Message, "name")
}

func TestValidationErrors(t *testing.T) {
	ts := newTestServer(t)
	token := ts.login(adminEmail, adminPassword)

	w, env := ts.do(http.MethodPost, "/api/v1/stations", token, gin.H{"latitude": 100})
	assertError(t, w, env, http.StatusBadRequest, apperr.CodeValidation)
	assert.Contains(t, env.Error.Message, "name: is required")
	assert.Contains(t, env.Error.Message, "address: is required")
	assert.Contains(t, env.Error.Message, "latitude")

	w, env = ts.do(http.MethodGet, "/api/v1/stations/abc", token, nil)
	assertError(t, w, env, http.StatusBadRequest, apperr.CodeValidation)

	w, env = ts.do(http.MethodGet, "/api/v1/sessions", token, nil)
	assertError(t, w, env, http.StatusBadRequest, apperr.CodeValidation)

	w, env = ts.do(http.MethodGet, "/api/v1/sessions?chargerId=1&startDate=yesterday", token, nil)
	assertError(t, w, env, http.StatusBadRequest, apperr.CodeValidation)

	w, env = ts.do(http.MethodPatch, "/api/v1/sessions/1/complete", token, gin.H{"energyDeliveredKwh": -1})
	assertError(t, w, env, http.StatusBadRequest, apperr.CodeValidation)
	assert.Contains(t, env.Error.Message, "energyDeliveredKwh")
	assert.Contains(t, env.Error.Message, "cost: is required")

	w, env = ts.do(http.MethodPatch, "/api/v1/chargers/1/status", token, gin.H{"status": "BROKEN"})
	assertError(t, w, env, http.StatusBadRequest, apperr.CodeValidation)

	w, env = ts.do(http.MethodGet, "/api/v1/stations/nearby?lng=127", token, nil)
	assertError(t, w, env, http.StatusBadRequest, apperr.CodeValidation)
}

func TestStatusTransitionsOverHTTP(t *testing.T) {
	ts := newTestServer(t)
	token := ts.login(adminEmail, adminPassword)

	_, env := ts.do(http.MethodPost, "/api/v1/stations", token, gin.H{"name": "S", "address": "A"})
	station := decodeData[stationResponse](t, env)
	_, env = ts.do(http.MethodPost, fmt.Sprintf("/api/v1/stations/%d/chargers", station.ID), token, gin.H{"type": "AC_SLOW"})
	charger := decodeData[chargerResponse](t, env)
	path := fmt.Sprintf("/api/v1/chargers/%d/status", charger.ID)

	w, env := ts.do(http.MethodPatch, path, token, gin.H{"status": "OUT_OF_SERVICE"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "OUT_OF_SERVICE", string(decodeData[chargerResponse](t, env).Status))

	w, env = ts.do(http.MethodPatch, path, token, gin.H{"status": "CHARGING"})
	assertError(t, w, env, http.StatusBadRequest, apperr.CodeInvalidStatusTransition)

	w, env = ts.do(http.MethodPost, fmt.Sprintf("/api/v1/chargers/%d/sessions", charger.ID), token, nil)
	assertError(t, w, env, http.StatusConflict, apperr.CodeChargerNotAvailable)

	w, _ = ts.do(http.MethodPatch, path, token, gin.H{"status": "AVAILABLE"})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestListAndNearbyStations(t *testing.T) {
	ts := newTestServer(t)
	token := ts.login(adminEmail, adminPassword)

	for _, st := range []gin.H{
		{"stationCode": "GANGNAM", "name": "Gangnam", "address": "Seoul", "latitude": 37.4979, "longitude": 127.0276},
		{"stationCode": "CITYHALL", "name": "City Hall", "address": "Seoul", "latitude": 37.5665, "longitude": 126.9780},
		{"stationCode": "BUSAN", "name": "Busan", "address": "Busan", "latitude": 35.1796, "longitude": 129.0756},
	} {
		w, _ := ts.do(http.MethodPost, "/api/v1/stations", token, st)
		require.Equal(t, http.StatusCreated, w.Code)
	}

	w, env := ts.do(http.MethodPost, "/api/v1/stations", token, gin.H{"stationCode": "BUSAN", "name": "Dup", "address": "x"})
	assertError(t, w, env, http.StatusConflict, apperr.CodeDuplicateStationCode)

	w, env = ts.do(http.MethodGet, "/api/v1/stations?page=0&size=2", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	page := decodeData[stationPageResponse](t, env)
	assert.Equal(t, int64(3), page.TotalElements)
	assert.Equal(t, 2, page.TotalPages)
	require.Len(t, page.Content, 2)
	assert.Equal(t, "Gangnam", page.Content[0].Name)

	// Default radius is 5 km.
	w, env = ts.do(http.MethodGet, "/api/v1/stations/nearby?lat=37.4979&lng=127.0276", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	nearby := decodeData[[]stationResponse](t, env)
	require.Len(t, nearby, 1)
	assert.Equal(t, "Gangnam", nearby[0].Name)

	w, env = ts.do(http.MethodGet, "/api/v1/stations/nearby?lat=37.4979&lng=127.0276&radius=20", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	nearby = decodeData[[]stationResponse](t, env)
	require.Len(t, nearby, 2)
	assert.Equal(t, "City Hall", nearby[1].Name)
	require.NotNil(t, nearby[1].DistanceKm)
	assert.InDelta(t, 8.8, *nearby[1].DistanceKm, 0.5)

	for _, query := range []string{
		"lat=NaN&lng=127.0276",
		"lat=37.4979&lng=-Inf",
		"lat=37.4979&lng=127.0276&radius=Inf",
		"lat=37.4979&lng=127.0276&radius=nan",
	} {
		w, env = ts.do(http.MethodGet, "/api/v1/stations/nearby?"+query, token, nil)
		assertError(t, w, env, http.StatusBadRequest, apperr.CodeValidation)
	}

	w, env = ts.do(http.MethodGet, "/api/v1/stations?page=922337203685477580&size=20", token, nil)
	assertError(t, w, env, http.StatusBadRequest, apperr.CodeValidation)
}

func TestSubscriptionsAndVAPID(t *testing.T) {
	ts := newTestServer(t)
	token := ts.login(adminEmail, adminPassword)

	w, env := ts.do(http.MethodGet, "/api/v1/vapid_public_key", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"public_key":"test-public-key"}`, string(env.Data))

	_, env = ts.do(http.MethodPost, "/api/v1/stations", token, gin.H{"name": "S", "address": "A"})
	station := decodeData[stationResponse](t, env)
	_, env = ts.do(http.MethodPost, fmt.Sprintf("/api/v1/stations/%d/chargers", station.ID), token, gin.H{"type": "AC_SLOW"})
	charger := decodeData[chargerResponse](t, env)

	w, env = ts.do(http.MethodPut, "/api/v1/subscriptions", token, gin.H{})
	assertError(t, w, env, http.StatusBadRequest, apperr.CodeValidation)

	endpoint := "https://push.example/abc"
	w, _ = ts.do(http.MethodPut, "/api/v1/subscriptions", token, gin.H{
		"endpoint": endpoint, "p256dh": "key", "auth": "secret", "subscribed_chargers": []int64{charger.ID},
	})
	require.Equal(t, http.StatusCreated, w.Code)

	w, env = ts.do(http.MethodGet, "/api/v1/subscriptions?endpoint="+endpoint, token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []int64{charger.ID}, decodeData[subscriptionResponse](t, env).SubscribedChargers)

	w, _ = ts.do(http.MethodDelete, "/api/v1/subscriptions", token, gin.H{"endpoint": endpoint})
	assert.Equal(t, http.StatusNoContent, w.Code)

	w, env = ts.do(http.MethodGet, "/api/v1/subscriptions?endpoint="+endpoint, token, nil)
	assertError(t, w, env, http.StatusNotFound, apperr.CodeSubscriptionNotFound)
}

func TestStationChangesAreAttributed(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	ts := newTestServerWith(t, zap.New(core), RateLimit{PerSecond: 1000, Burst: 1000})
	token := ts.login(adminEmail, adminPassword)

	w, env := ts.do(http.MethodPost, "/api/v1/stations", token, gin.H{"name": "Audit", "address": "Seoul"})
	require.Equal(t, http.StatusCreated, w.Code)
	created := decodeData[stationResponse](t, env)

	w, _ = ts.do(http.MethodDelete, fmt.Sprintf("/api/v1/stations/%d", created.ID), token, nil)
	require.Equal(t, http.StatusNoContent, w.Code)

	for _, msg := range []string{"station created", "station deleted"} {
		entries := logs.FilterMessage(msg).All()
		require.Len(t, entries, 1, msg)
		fields := entries[0].ContextMap()
		assert.Equal(t, adminEmail, fields["member"])
		assert.Equal(t, "ADMIN", fields["role"])
		assert.Equal(t, created.ID, fields["station_id"])
	}
}

func TestRateLimitKeysOnRemoteAddress(t *testing.T) {
	get := func(router *gin.Engine, forwardedFor string) int {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/v1/healthz", nil)
		req.RemoteAddr = "192.0.2.1:4000"
		req.Header.Set("X-Forwarded-For", forwardedFor)
		router.ServeHTTP(w, req)
		return w.Code
	}

	// Without trusted proxies a rotating X-Forwarded-For does not earn a new budget.
	ts := newTestServerWith(t, zaptest.NewLogger(t), RateLimit{PerSecond: 0.001, Burst: 1})
	assert.Equal(t, http.StatusOK, get(ts.router, "203.0.113.1"))
	assert.Equal(t, http.StatusTooManyRequests, get(ts.router, "203.0.113.2"))

	ts = newTestServerWith(t, zaptest.NewLogger(t), RateLimit{PerSecond: 0.001, Burst: 1, TrustedProxies: []string{"192.0.2.1"}})
	assert.Equal(t, http.StatusOK, get(ts.router, "203.0.113.1"))
	assert.Equal(t, http.StatusOK, get(ts.router, "203.0.113.2"))
	assert.Equal(t, http.StatusTooManyRequests, get(ts.router, "203.0.113.1"))
}

func TestHealthAndUnknownRoute(t *testing.T) {
	ts := newTestServer(t)

	w, _ := ts.do(http.MethodGet, "/api/v1/healthz", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w, env := ts.do(http.MethodGet, "/api/v1/nope", "", nil)
	assertError(t, w, env, http.StatusNotFound, apperr.CodeRouteNotFound)
}

func TestRawQueryParam(t *testing.T) {
	v, ok := rawQueryParam("a=1&endpoint=https%3A%2F%2Fx&b=2", "endpoint")
	assert.True(t, ok)
	assert.Equal(t, "https%3A%2F%2Fx", v)

	_, ok = rawQueryParam("a=1", "endpoint")
	assert.False(t, ok)
}
