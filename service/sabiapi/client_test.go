package sabiapi

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sabicash/sabicash/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientErrorMapping(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		json    bool
		kind    error
		message string
	}{
		{"unauthorized detail", 401, `{"detail":"token expired"}`, true, core.ErrAuth, "token expired"},
		{"validation message", 400, `{"message":"points below minimum"}`, true, core.ErrValidation, "points below minimum"},
		{"insufficient code", 400, `{"detail":"not enough points","code":"insufficient_points"}`, true, core.ErrInsufficientBalance, "not enough points"},
		{"not found", 404, `{"detail":"task not found"}`, true, core.ErrNotFound, "task not found"},
		{"teapot", 418, `{}`, true, core.ErrNetwork, "HTTP 418"},
		{"conflict", 409, `{}`, true, core.ErrInsufficientBalance, "HTTP 409"},
		{"server error without body", 502, `bad gateway`, false, core.ErrNetwork, "HTTP 502"},
		{"unexpected json shape", 422, `{"detail":[{"loc":"points"}]}`, true, core.ErrValidation, "HTTP 422"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if tt.json {
					w.Header().Set("Content-Type", "application/json")
				}
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			}))
			defer srv.Close()

			c := New(Config{BaseURL: srv.URL}, slog.New(slog.NewTextHandler(io.Discard, nil)))
			err := c.Get(context.Background(), "/points/balance", "t", nil, nil)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.kind)
			assert.Equal(t, tt.status, StatusOf(err))

			var e *core.Error
			require.ErrorAs(t, err, &e)
			assert.Equal(t, tt.message, e.Message)
		})
	}
}

func TestClientHeaders(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		assert.NotEmpty(t, r.Header.Get(headerRequestID))

		var in map[string]int
		require.NoError(t, json.NewDecoder(r.Body).Decode(&in))

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]int{"doubled": in["n"] * 2})
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL}, slog.New(slog.NewTextHandler(io.Discard, nil)))

	var out struct {
		Doubled int `json:"doubled"`
	}
	require.NoError(t, c.Post(context.Background(), "/echo", "secret", map[string]int{"n": 21}, &out))
	assert.Equal(t, 42, out.Doubled)
}

func TestClientTransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := New(Config{BaseURL: url}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	err := c.Get(context.Background(), "/points/balance", "", nil, nil)
	assert.True(t, core.IsErrNetwork(err))
}
