package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"payfriend/internal/logging"
	"payfriend/internal/models"
	"payfriend/internal/service"
	"payfriend/internal/session"
	"payfriend/internal/transport"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubFacade fails every call with err.
type stubFacade struct {
	err error
}

func (s stubFacade) GetOffers(ctx context.Context) ([]models.Offer, error) { return nil, s.err }

func (s stubFacade) GetMiniApps(ctx context.Context) ([]models.MiniApp, error) { return nil, s.err }

func (s stubFacade) GetCreditScore(ctx context.Context) (models.CreditScoreReport, error) {
	return models.CreditScoreReport{}, s.err
}

func (s stubFacade) Logout(ctx context.Context) error { return s.err }

func setupTestHandler(t *testing.T, facade service.Facade) (*Handler, *session.Store) {
	t.Helper()
	sessions := session.NewMemoryStore()
	if facade == nil {
		facade = service.NewMock(service.MockOptions{
			Sessions: sessions,
			Observer: service.Observer{Logger: logging.Discard()},
		})
	}
	h := NewHandlerWithOptions(facade, sessions, NewHandlerOptions{
		MaxBodySize: 1 << 10,
		Logger:      logging.Discard(),
	})
	return h, sessions
}

func setupRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/offers", h.GetOffers)
		r.Get("/mini-apps", h.GetMiniApps)
		r.Get("/credit-score", h.GetCreditScore)
		r.Get("/home", h.GetHome)
		r.Post("/session", h.StartSession)
		r.Post("/session/logout", h.Logout)
	})
	return r
}

func do(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	return rr
}

func TestGetOffers(t *testing.T) {
	h, _ := setupTestHandler(t, nil)
	rr := do(setupRouter(h), http.MethodGet, "/api/v1/offers", "")

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))

	var offers []models.Offer
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &offers))
	require.Len(t, offers, 2)
	assert.Equal(t, "1", offers[0].OfferID)
	assert.Equal(t, "Cashback", offers[0].OfferType)
}

func TestGetMiniApps(t *testing.T) {
	h, _ := setupTestHandler(t, nil)
	rr := do(setupRouter(h), http.MethodGet, "/api/v1/mini-apps", "")

	require.Equal(t, http.StatusOK, rr.Code)

	var apps []models.MiniApp
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &apps))
	require.Len(t, apps, 2)
	assert.Equal(t, "Digital Gold", apps[0].Name)
}

func TestGetCreditScore(t *testing.T) {
	h, _ := setupTestHandler(t, nil)
	rr := do(setupRouter(h), http.MethodGet, "/api/v1/credit-score", "")

	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"score":750,"provider":"CIBIL","reportDate":"2024-01-15T00:00:00.000Z"}`, rr.Body.String())
}

func TestGetHome(t *testing.T) {
	h, _ := setupTestHandler(t, nil)
	rr := do(setupRouter(h), http.MethodGet, "/api/v1/home", "")

	require.Equal(t, http.StatusOK, rr.Code)

	var home models.HomeScreen
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &home))
	assert.Len(t, home.Offers, 2)
	assert.Len(t, home.MiniApps, 2)
	assert.Equal(t, 750, home.CreditScore.Score)
	assert.Equal(t, "2024-01-15T00:00:00.000Z", home.CreditScore.ReportDate)
}

func TestFacadeErrorStatus(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"backend 404 kept", &transport.Error{Status: http.StatusNotFound, Message: "Not Found"}, http.StatusNotFound},
		{"backend 503 kept", &transport.Error{Status: http.StatusServiceUnavailable, Message: "down"}, http.StatusServiceUnavailable},
		{"unreachable", &transport.Error{Message: "dial tcp: refused"}, http.StatusBadGateway},
		{"malformed 2xx body", transport.Malformed(http.StatusOK, errors.New("bad json")), http.StatusBadGateway},
		{"other error", context.Canceled, http.StatusBadGateway},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, _ := setupTestHandler(t, stubFacade{err: tt.err})
			r := setupRouter(h)

			for _, path := range []string{"/api/v1/offers", "/api/v1/mini-apps", "/api/v1/credit-score", "/api/v1/home"} {
				rr := do(r, http.MethodGet, path, "")
				assert.Equal(t, tt.wantStatus, rr.Code, path)

				var body models.ErrorResponse
				require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
				assert.Equal(t, http.StatusText(tt.wantStatus), body.Error)
			}

			rr := do(r, http.MethodPost, "/api/v1/session/logout", "")
			assert.Equal(t, tt.wantStatus, rr.Code)
		})
	}
}

func TestFacadeError_HidesBackendBody(t *testing.T) {
	backendBody := strings.Repeat("stack trace line\n", 2000)
	h, _ := setupTestHandler(t, stubFacade{err: &transport.Error{Status: http.StatusInternalServerError, Message: backendBody}})

	rr := do(setupRouter(h), http.MethodGet, "/api/v1/credit-score", "")

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.NotContains(t, rr.Body.String(), "stack trace")
	assert.JSONEq(t, `{"error":"Internal Server Error"}`, rr.Body.String())
}

func TestStartSession_Success(t *testing.T) {
	h, sessions := setupTestHandler(t, nil)
	rr := do(setupRouter(h), http.MethodPost, "/api/v1/session", `{"userId":"u-1","accessToken":"tok-abc"}`)

	require.Equal(t, http.StatusCreated, rr.Code)
	assert.NotContains(t, rr.Body.String(), "tok-abc")

	var got models.Session
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	assert.Equal(t, "u-1", got.UserID)
	assert.Empty(t, got.AccessToken)
	assert.False(t, got.CreatedAt.IsZero())

	assert.Equal(t, "tok-abc", sessions.Token(context.Background()))
}

func TestStartSession_BadRequests(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantErr    string
	}{
		{"empty body", "", http.StatusBadRequest, "request body is required"},
		{"invalid json", "{", http.StatusBadRequest, "invalid JSON in request body"},
		{"missing user", `{"accessToken":"t"}`, http.StatusBadRequest, "userId"},
		{"missing token", `{"userId":"u"}`, http.StatusBadRequest, "accessToken"},
		{"token with space", `{"userId":"u","accessToken":"a b"}`, http.StatusBadRequest, "whitespace"},
		{"too large", `{"userId":"u","accessToken":"` + strings.Repeat("x", 2<<10) + `"}`, http.StatusRequestEntityTooLarge, "too large"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, _ := setupTestHandler(t, nil)

			req := httptest.NewRequest(http.MethodPost, "/api/v1/session", bytes.NewBufferString(tt.body))
			rr := httptest.NewRecorder()
			setupRouter(h).ServeHTTP(rr, req)

			assert.Equal(t, tt.wantStatus, rr.Code)
			assert.Contains(t, rr.Body.String(), tt.wantErr)
		})
	}
}

func TestLogout_ClearsSession(t *testing.T) {
	h, sessions := setupTestHandler(t, nil)
	r := setupRouter(h)

	rr := do(r, http.MethodPost, "/api/v1/session", `{"userId":"u-1","accessToken":"tok"}`)
	require.Equal(t, http.StatusCreated, rr.Code)

	rr = do(r, http.MethodPost, "/api/v1/session/logout", "")
	assert.Equal(t, http.StatusNoContent, rr.Code)
	assert.Empty(t, rr.Body.String())

	_, err := sessions.Current(context.Background())
	assert.ErrorIs(t, err, session.ErrNoSession)

	// Logging out twice is fine.
	rr = do(r, http.MethodPost, "/api/v1/session/logout", "")
	assert.Equal(t, http.StatusNoContent, rr.Code)
}
