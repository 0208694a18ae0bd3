package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	chatdomain "github.com/fintelhq/spendsight/internal/chat/domain"
	"github.com/fintelhq/spendsight/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestService(baseURL string) chatdomain.Service {
	return NewService(Params{
		Config: config.Config{NLQBaseURL: baseURL},
		Log:    zap.NewNop(),
	})
}

func TestGenerateSQLForwardsPromptAndRelaysBody(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/generate-sql", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req chatdomain.GenerateSQLRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "total spend per vendor", req.Prompt)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"sql":"SELECT 1","confidence":0.9}`))
	}))
	defer upstream.Close()

	svc := newTestService(upstream.URL)
	raw, err := svc.GenerateSQL(context.Background(), chatdomain.GenerateSQLRequest{Prompt: "total spend per vendor"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"sql":"SELECT 1","confidence":0.9}`, string(raw))
}

func TestGenerateSQLRelaysUpstreamErrorsVerbatim(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(`{"error":"model unavailable"}`))
	}))
	defer upstream.Close()

	svc := newTestService(upstream.URL)
	raw, err := svc.GenerateSQL(context.Background(), chatdomain.GenerateSQLRequest{Prompt: "anything"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"error":"model unavailable"}`, string(raw))
}

func TestGenerateSQLFailsWhenUnconfigured(t *testing.T) {
	svc := newTestService("")
	_, err := svc.GenerateSQL(context.Background(), chatdomain.GenerateSQLRequest{Prompt: "x"})
	assert.ErrorIs(t, err, chatdomain.ErrNotConfigured)
}
