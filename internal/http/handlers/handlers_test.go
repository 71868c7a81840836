package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"math"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hongminglow/parkshare/internal/apperr"
	"github.com/hongminglow/parkshare/internal/auth"
	"github.com/hongminglow/parkshare/internal/geo"
	"github.com/hongminglow/parkshare/internal/ledger"
	"github.com/hongminglow/parkshare/internal/models"
	"github.com/hongminglow/parkshare/internal/models/dto"
	"github.com/hongminglow/parkshare/internal/spots"
	"github.com/hongminglow/parkshare/internal/storage/sqlite"
)

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Reason  string          `json:"reason"`
	Data    json.RawMessage `json:"data"`
}

type api struct {
	t      *testing.T
	server *httptest.Server
}

func newAPI(t *testing.T) *api {
	t.Helper()
	store, err := sqlite.Open(context.Background(), ":memory:", nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	tokens := auth.NewTokenManager("test-secret", "parkshare", time.Hour)
	engine := spots.NewEngine(store, geo.NewValidator(50, nil), ledger.New(store, nil), spots.DefaultRules())

	mux := http.NewServeMux()
	NewHealthHandler(time.Now(), store).Register(mux)
	NewAuthHandler(store, tokens, 1, nil).Register(mux)
	NewSpotHandler(engine, tokens).Register(mux)
	NewUserHandler(engine, tokens).Register(mux)

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return &api{t: t, server: srv}
}

func (a *api) do(method, path, token string, body any) (int, envelope) {
	a.t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(a.t, err)
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, a.server.URL+path, reader)
	require.NoError(a.t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(a.t, err)
	defer resp.Body.Close()

	var env envelope
	require.NoError(a.t, json.NewDecoder(resp.Body).Decode(&env))
	return resp.StatusCode, env
}

func (a *api) register(name string) dto.AuthResponse {
	a.t.Helper()
	status, env := a.do(http.MethodPost, "/api/auth/register", "", map[string]string{
		"username": name, "email": name + "@example.com", "password": "correct-horse",
	})
	require.Equal(a.t, http.StatusCreated, status, env.Message)
	var out dto.AuthResponse
	require.NoError(a.t, json.Unmarshal(env.Data, &out))
	return out
}

func decodeData[T any](t *testing.T, env envelope) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(env.Data, &out))
	return out
}

func ptr(f float64) *float64 { return &f }

var here = geo.Point{Lat: 40.7128, Lng: -74.0060}

func submitBody(spot, user geo.Point) dto.SubmitSpotRequest {
	return dto.SubmitSpotRequest{
		Latitude: ptr(spot.Lat), Longitude: ptr(spot.Lng),
		UserLatitude: ptr(user.Lat), UserLongitude: ptr(user.Lng),
	}
}

func TestHealth(t *testing.T) {
	a := newAPI(t)
	for _, path := range []string{"/health", "/api/health"} {
		status, env := a.do(http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusOK, status)
		assert.Contains(t, string(env.Data), `"status":"ok"`)
		assert.Contains(t, string(env.Data), `"store":"ok"`)
	}
}

func TestRegisterAndLogin(t *testing.T) {
	a := newAPI(t)
	reg := a.register("alice")
	assert.NotEmpty(t, reg.Token)
	assert.Equal(t, 1, reg.User.Credits)
	assert.Zero(t, reg.User.Reputation)

	status, env := a.do(http.MethodPost, "/api/auth/register", "", map[string]string{
		"username": "alice", "email": "other@example.com", "password": "correct-horse",
	})
	assert.Equal(t, http.StatusConflict, status, env.Message)

	status, _ = a.do(http.MethodPost, "/api/auth/register", "", map[string]string{
		"username": "bob", "email": "not-an-email", "password": "correct-horse",
	})
	assert.Equal(t, http.StatusBadRequest, status)

	status, env = a.do(http.MethodPost, "/api/auth/login", "", map[string]string{
		"identifier": "alice@example.com", "password": "correct-horse",
	})
	require.Equal(t, http.StatusOK, status)
	login := decodeData[dto.AuthResponse](t, env)
	assert.Equal(t, reg.User.ID, login.User.ID)

	status, _ = a.do(http.MethodPost, "/api/auth/login", "", map[string]string{
		"username": "alice", "password": "correct-horse",
	})
	assert.Equal(t, http.StatusOK, status)

	status, _ = a.do(http.MethodPost, "/api/auth/login", "", map[string]string{
		"identifier": "alice", "password": "wrong-password",
	})
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = a.do(http.MethodPost, "/api/auth/login", "", map[string]string{
		"identifier": "nobody", "password": "whatever-pass",
	})
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestSpotRoutesRequireAuth(t *testing.T) {
	a := newAPI(t)
	status, _ := a.do(http.MethodGet, "/api/spots", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = a.do(http.MethodGet, "/api/user/profile", "garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestSpotLifecycle(t *testing.T) {
	a := newAPI(t)
	alice := a.register("alice")
	bob := a.register("bob")
	carol := a.register("carol")

	status, env := a.do(http.MethodPost, "/api/spots", alice.Token,
		submitBody(here, geo.Point{Lat: here.Lat + 0.001, Lng: here.Lng}))
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, apperr.ReasonTooFar, env.Reason)

	status, env = a.do(http.MethodPost, "/api/spots", alice.Token, dto.SubmitSpotRequest{Latitude: ptr(here.Lat)})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, apperr.ReasonMissingLocation, env.Reason)

	status, env = a.do(http.MethodPost, "/api/spots", alice.Token,
		submitBody(here, geo.Point{Lat: here.Lat + 0.00003, Lng: here.Lng}))
	require.Equal(t, http.StatusCreated, status, env.Message)
	spot := decodeData[dto.SpotResponse](t, env).Spot
	assert.Equal(t, models.SpotNew, spot.Status)

	status, env = a.do(http.MethodGet, "/api/spots?user_latitude=40.7128&user_longitude=-74.0060&radius=100", bob.Token, nil)
	require.Equal(t, http.StatusOK, status)
	list := decodeData[spots.ListResult](t, env)
	assert.Equal(t, spots.Pagination{Page: 1, Pages: 1, PerPage: 100, Total: 1}, list.Pagination)

	path := "/api/spots/" + itoa(spot.ID)
	status, env = a.do(http.MethodPost, path+"/choose", bob.Token, nil)
	require.Equal(t, http.StatusOK, status, env.Message)
	chosen := decodeData[spots.ChooseResult](t, env)
	assert.Equal(t, 0, chosen.RemainingCredits)
	assert.Equal(t, models.SpotChosen, chosen.Spot.Status)

	status, env = a.do(http.MethodPost, path+"/choose", carol.Token, nil)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, apperr.ReasonSpotUnavailable, env.Reason)

	status, env = a.do(http.MethodPost, path+"/occupy", bob.Token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, models.SpotOccupied, decodeData[dto.SpotResponse](t, env).Spot.Status)

	for i := 0; i < 3; i++ {
		status, env = a.do(http.MethodPost, path+"/report", carol.Token, nil)
		require.Equal(t, http.StatusOK, status)
	}
	assert.Equal(t, models.SpotDisabled, decodeData[dto.SpotResponse](t, env).Spot.Status)

	status, env = a.do(http.MethodPost, path+"/occupy", bob.Token, nil)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, apperr.ReasonInvalidTransition, env.Reason)

	status, env = a.do(http.MethodPost, "/api/spots/9999/choose", carol.Token, nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, apperr.ReasonSpotNotFound, env.Reason)

	status, env = a.do(http.MethodPost, "/api/spots/abc/report", carol.Token, nil)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, apperr.ReasonInvalidRequest, env.Reason)

	status, env = a.do(http.MethodGet, "/api/user/profile", alice.Token, nil)
	require.Equal(t, http.StatusOK, status)
	profile := decodeData[dto.ProfileResponse](t, env).User
	assert.Equal(t, 1, profile.Credits)
	assert.Equal(t, 1, profile.SpotsShared)
	assert.Equal(t, 15.0, profile.Reputation)

	status, env = a.do(http.MethodGet, "/api/user/ledger?limit=10", alice.Token, nil)
	require.Equal(t, http.StatusOK, status)
	entries := decodeData[dto.LedgerResponse](t, env).Entries
	require.Len(t, entries, 2)
	assert.Equal(t, models.ReasonReportPenalty, entries[0].Reason)
	assert.Equal(t, models.ReasonSpotShared, entries[1].Reason)
}

func TestChooseWithoutCredits(t *testing.T) {
	a := newAPI(t)
	alice := a.register("alice")
	bob := a.register("bob")

	status, env := a.do(http.MethodPost, "/api/spots", alice.Token, submitBody(here, here))
	require.Equal(t, http.StatusCreated, status)
	first := decodeData[dto.SpotResponse](t, env).Spot
	status, env = a.do(http.MethodPost, "/api/spots", alice.Token, submitBody(here, here))
	require.Equal(t, http.StatusCreated, status)
	second := decodeData[dto.SpotResponse](t, env).Spot

	status, _ = a.do(http.MethodPost, "/api/spots/"+itoa(first.ID)+"/choose", bob.Token, nil)
	require.Equal(t, http.StatusOK, status)

	status, env = a.do(http.MethodPost, "/api/spots/"+itoa(second.ID)+"/choose", bob.Token, nil)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, apperr.ReasonInsufficientCredit, env.Reason)
}

func TestListValidation(t *testing.T) {
	a := newAPI(t)
	alice := a.register("alice")

	tests := []struct {
		query  string
		reason string
	}{
		{"?page=0", apperr.ReasonInvalidPagination},
		{"?per_page=abc", apperr.ReasonInvalidPagination},
		{"?radius=100", apperr.ReasonInvalidRadius},
		{"?user_latitude=40.7&user_longitude=-74&radius=-1", apperr.ReasonInvalidRadius},
		{"?user_latitude=40.7", apperr.ReasonMissingLocation},
		{"?user_latitude=north&user_longitude=-74", apperr.ReasonInvalidCoordinates},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			status, env := a.do(http.MethodGet, "/api/spots"+tt.query, alice.Token, nil)
			assert.Equal(t, http.StatusBadRequest, status)
			assert.Equal(t, tt.reason, env.Reason)
		})
	}
}

func TestListPagePastTheEnd(t *testing.T) {
	a := newAPI(t)
	alice := a.register("alice")
	status, _ := a.do(http.MethodPost, "/api/spots", alice.Token, submitBody(here, here))
	require.Equal(t, http.StatusCreated, status)

	huge := strconv.Itoa(math.MaxInt/100 + 2)
	for _, query := range []string{
		"?page=" + huge,
		"?page=" + huge + "&user_latitude=40.7128&user_longitude=-74.0060",
		"?page=" + huge + "&user_latitude=40.7128&user_longitude=-74.0060&radius=100",
	} {
		t.Run(query, func(t *testing.T) {
			status, env := a.do(http.MethodGet, "/api/spots"+query, alice.Token, nil)
			require.Equal(t, http.StatusOK, status, env.Message)
			assert.JSONEq(t, "[]", string(mustField(t, env.Data, "spots")))
			list := decodeData[spots.ListResult](t, env)
			assert.Equal(t, 1, list.Pagination.Total)
		})
	}

	status, env := a.do(http.MethodGet, "/api/spots?page=99999999999999999999", alice.Token, nil)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, apperr.ReasonInvalidPagination, env.Reason)
}

func mustField(t *testing.T, raw json.RawMessage, key string) json.RawMessage {
	t.Helper()
	var fields map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(raw, &fields))
	return fields[key]
}

func TestHealthReportsStoreFailure(t *testing.T) {
	mux := http.NewServeMux()
	NewHealthHandler(time.Now(), pingFunc(func(context.Context) error {
		return errors.New("connection refused")
	})).Register(mux)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var env envelope
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&env))
	assert.Equal(t, apperr.ReasonStoreUnavailable, env.Reason)
}

type pingFunc func(context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
