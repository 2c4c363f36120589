package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticTokens string

func (s staticTokens) Token() string { return string(s) }

func TestClient_AttachesBearerWhenTokenHeld(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		json.NewEncoder(w).Encode(map[string]any{"success": true, "data": map[string]string{"ok": "yes"}})
	}))
	defer srv.Close()

	c := New(srv.URL, staticTokens("tok-123"))
	var out map[string]string
	require.NoError(t, c.Get(context.Background(), "/api/user/profile", &out))

	assert.Equal(t, "Bearer tok-123", gotAuth)
	assert.Equal(t, "yes", out["ok"])
}

func TestClient_NoHeaderWhenUnauthenticated(t *testing.T) {
	var gotAuth string
	var hasHeader bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_, hasHeader = r.Header["Authorization"]
		json.NewEncoder(w).Encode(map[string]any{"success": true})
	}))
	defer srv.Close()

	c := New(srv.URL, staticTokens(""))
	require.NoError(t, c.Get(context.Background(), "/health", nil))

	assert.Empty(t, gotAuth)
	assert.False(t, hasHeader)
}

// A login after the client is constructed must be visible on the next call.
func TestClient_TokenReadAtCallTime(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		json.NewEncoder(w).Encode(map[string]any{"success": true})
	}))
	defer srv.Close()

	source := &switchableTokens{}
	c := New(srv.URL, source)

	require.NoError(t, c.Get(context.Background(), "/a", nil))
	assert.Empty(t, gotAuth)

	source.set("late-token")
	require.NoError(t, c.Get(context.Background(), "/b", nil))
	assert.Equal(t, "Bearer late-token", gotAuth)
}

type switchableTokens struct{ tok string }

func (s *switchableTokens) Token() string  { return s.tok }
func (s *switchableTokens) set(tok string) { s.tok = tok }

func TestClient_BusinessFailureSurfacedVerbatim(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"success": false, "error": "验证码错误或已过期"})
	}))
	defer srv.Close()

	c := New(srv.URL, nil)
	err := c.Post(context.Background(), "/api/auth/login/phone-sms", map[string]string{}, nil)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "验证码错误或已过期", apiErr.Message)
}

func TestClient_FailureWithoutMessageGetsDefault(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"success": false})
	}))
	defer srv.Close()

	c := New(srv.URL, nil)
	err := c.Get(context.Background(), "/x", nil)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "请求失败", apiErr.Message)
}

func TestClient_HTTPErrorPrefersDetail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]string{"detail": "令牌已过期"})
	}))
	defer srv.Close()

	c := New(srv.URL, staticTokens("expired"))
	err := c.Get(context.Background(), "/api/user/profile", nil)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)
	assert.Equal(t, "令牌已过期", apiErr.Message)
}

func TestClient_HTTPErrorFallsBackToStatusText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("<html>upstream down</html>"))
	}))
	defer srv.Close()

	c := New(srv.URL, nil)
	err := c.Get(context.Background(), "/x", nil)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadGateway, apiErr.Status)
	assert.Equal(t, http.StatusText(http.StatusBadGateway), apiErr.Message)
}

func TestClient_TransportFailureWrapsErrConnection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // refuse connections

	c := New(srv.URL, nil)
	err := c.Get(context.Background(), "/x", nil)

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrConnection))
	assert.Contains(t, err.Error(), "网络连接失败")
}

func TestClient_TimeoutWrapsErrConnection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	c := New(srv.URL, nil, WithTimeout(20*time.Millisecond))
	err := c.Get(context.Background(), "/slow", nil)

	assert.True(t, errors.Is(err, ErrConnection))
}

func TestClient_DecodesDataIntoOut(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"data":    map[string]any{"id": "u1", "is_vip": true},
		})
	}))
	defer srv.Close()

	var out struct {
		ID    string `json:"id"`
		IsVIP bool   `json:"is_vip"`
	}
	c := New(srv.URL, nil)
	require.NoError(t, c.Get(context.Background(), "/api/user/profile", &out))
	assert.Equal(t, "u1", out.ID)
	assert.True(t, out.IsVIP)
}
