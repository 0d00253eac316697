package transport

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type item struct {
	ID string `json:"id"`
}

func TestNewClient_Defaults(t *testing.T) {
	c := NewClient(Config{BaseURL: "http://localhost:8080/"})
	assert.Equal(t, "http://localhost:8080", c.baseURL)
	assert.Equal(t, 10*time.Second, c.httpClient.Timeout)
}

func TestGet_DecodesJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/items", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		_, err := uuid.Parse(r.Header.Get(RequestIDHeader))
		assert.NoError(t, err)
		json.NewEncoder(w).Encode([]item{{ID: "1"}, {ID: "2"}})
	}))
	defer server.Close()

	c := NewClient(Config{BaseURL: server.URL})
	items, err := Get[[]item](context.Background(), c, "/items")
	require.NoError(t, err)
	assert.Equal(t, []item{{ID: "1"}, {ID: "2"}}, items)
}

func TestDo_AttachesBearerToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		assert.Equal(t, "payfriend-test", r.Header.Get("User-Agent"))
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	c := NewClient(Config{
		BaseURL:   server.URL,
		UserAgent: "payfriend-test",
		Token:     func(ctx context.Context) string { return "secret" },
	})
	var out map[string]any
	require.NoError(t, c.GetJSON(context.Background(), "/", &out))
}

func TestDo_NoTokenNoHeader(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	c := NewClient(Config{BaseURL: server.URL, Token: func(ctx context.Context) string { return "" }})
	var out map[string]any
	require.NoError(t, c.GetJSON(context.Background(), "/", &out))
}

func TestGet_NonSuccessStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "backend exploded", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	c := NewClient(Config{BaseURL: server.URL})
	items, err := Get[[]item](context.Background(), c, "/items")
	require.Error(t, err)
	assert.Nil(t, items)

	var te *Error
	require.True(t, errors.As(err, &te))
	assert.Equal(t, http.StatusServiceUnavailable, te.Status)
	assert.Equal(t, "backend exploded", te.Message)
	assert.Equal(t, http.StatusServiceUnavailable, StatusOf(err))
}

func TestGet_EmptyErrorBodyUsesStatusText(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	_, err := Get[item](context.Background(), NewClient(Config{BaseURL: server.URL}), "/x")
	var te *Error
	require.True(t, errors.As(err, &te))
	assert.Equal(t, "Not Found", te.Message)
}

func TestGet_TruncatesLargeErrorBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte(strings.Repeat("x", maxErrorBody+10)))
	}))
	defer server.Close()

	_, err := Get[item](context.Background(), NewClient(Config{BaseURL: server.URL}), "/x")
	var te *Error
	require.True(t, errors.As(err, &te))
	assert.True(t, strings.HasSuffix(te.Message, "...(truncated)"))
}

func TestGet_MalformedBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`not json`))
	}))
	defer server.Close()

	_, err := Get[[]item](context.Background(), NewClient(Config{BaseURL: server.URL}), "/items")
	var te *Error
	require.True(t, errors.As(err, &te))
	assert.Equal(t, http.StatusOK, te.Status)
	assert.Contains(t, te.Message, "malformed response body")
}

func TestGet_NullBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(" null\n"))
	}))
	defer server.Close()

	items, err := Get[[]item](context.Background(), NewClient(Config{BaseURL: server.URL}), "/items")
	assert.Nil(t, items)
	var te *Error
	require.True(t, errors.As(err, &te))
	assert.Equal(t, http.StatusOK, te.Status)
	assert.Contains(t, te.Message, "body is null")
}

func TestGet_CheckFailureIsMalformed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
		w.Write([]byte(`[{}]`))
	}))
	defer server.Close()

	errEmpty := errors.New("empty item")
	items, err := Get(context.Background(), NewClient(Config{BaseURL: server.URL}), "/items",
		func(v []item) error { return nil },
		func(v []item) error { return errEmpty },
	)
	assert.Nil(t, items)
	var te *Error
	require.True(t, errors.As(err, &te))
	assert.Equal(t, http.StatusAccepted, te.Status)
	assert.ErrorIs(t, err, errEmpty)
}

func TestGet_Unreachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	_, err := Get[item](context.Background(), NewClient(Config{BaseURL: url}), "/x")
	var te *Error
	require.True(t, errors.As(err, &te))
	assert.Equal(t, 0, te.Status)
	assert.NotNil(t, te.Unwrap())
	assert.True(t, strings.HasPrefix(te.Error(), "transport: request failed"))
}

func TestGet_ContextCanceled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Get[item](ctx, NewClient(Config{BaseURL: server.URL}), "/slow")
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestDo_PostsJSONBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "value", body["key"])
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	resp, err := NewClient(Config{BaseURL: server.URL}).Do(context.Background(), http.MethodPost, "/x", map[string]string{"key": "value"})
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
}
